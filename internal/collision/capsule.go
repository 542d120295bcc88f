package collision

import "github.com/san-kum/rigidsim/internal/geom"

func sphereCapsule(a geom.Shape, posA geom.Vec3, rotA geom.Quat, b geom.Shape, posB geom.Vec3, rotB geom.Quat) (bool, *Manifold) {
	c := a.Center(posA, rotA)
	p, q := b.Segment(posB, rotB)
	return spheres(c, a.Radius, geom.ClosestPointOnSegment(p, q, c), b.Radius)
}

func capsuleCapsule(a geom.Shape, posA geom.Vec3, rotA geom.Quat, b geom.Shape, posB geom.Vec3, rotB geom.Quat) (bool, *Manifold) {
	p1, q1 := a.Segment(posA, rotA)
	p2, q2 := b.Segment(posB, rotB)
	ca, cb := geom.ClosestPointsSegments(p1, q1, p2, q2)
	return spheres(ca, a.Radius, cb, b.Radius)
}

// planeCapsule treats both segment end points as spheres, giving up to two
// contacts for a capsule lying on the plane.
func planeCapsule(a geom.Shape, posA geom.Vec3, rotA geom.Quat, b geom.Shape, posB geom.Vec3, rotB geom.Quat) (bool, *Manifold) {
	n, p := a.PlaneAt(posA, rotA)
	s, e := b.Segment(posB, rotB)
	m := &Manifold{Normal: n}
	for _, c := range [2]geom.Vec3{s, e} {
		if hit, cm := halfSpaceSphere(n, p, c, b.Radius); hit {
			m.add(cm.Contacts[0])
		}
	}
	if len(m.Contacts) == 0 {
		return false, nil
	}
	return true, m
}

// boxCapsule approximates the segment point nearest the box with two rounds
// of alternating closest-point projection, then runs the box-sphere test.
func boxCapsule(a geom.Shape, posA geom.Vec3, rotA geom.Quat, b geom.Shape, posB geom.Vec3, rotB geom.Quat) (bool, *Manifold) {
	o := a.OBB(posA, rotA)
	s, e := b.Segment(posB, rotB)
	c := geom.ClosestPointOnSegment(s, e, o.Center)
	for i := 0; i < 2; i++ {
		c = geom.ClosestPointOnSegment(s, e, o.ClosestPoint(c))
	}
	return obbSphere(o, c, b.Radius)
}
