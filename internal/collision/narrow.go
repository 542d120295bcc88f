package collision

import (
	"math"

	"github.com/san-kum/rigidsim/internal/geom"
)

type pairFunc func(a geom.Shape, posA geom.Vec3, rotA geom.Quat, b geom.Shape, posB geom.Vec3, rotB geom.Quat) (bool, *Manifold)

// pairs is indexed by [kindA][kindB] with kindA <= kindB. The reverse order is
// handled by flipping.
var pairs = [4][4]pairFunc{
	geom.KindSphere: {
		geom.KindSphere:  sphereSphere,
		geom.KindBox:     sphereBox,
		geom.KindPlane:   spherePlane,
		geom.KindCapsule: sphereCapsule,
	},
	geom.KindBox: {
		geom.KindBox:     boxBox,
		geom.KindPlane:   boxPlane,
		geom.KindCapsule: boxCapsule,
	},
	geom.KindPlane: {
		geom.KindCapsule: planeCapsule,
	},
	geom.KindCapsule: {
		geom.KindCapsule: capsuleCapsule,
	},
}

// TestCollision runs the narrow phase for two posed shapes. The manifold
// normal points from A to B. Pairs without a test (plane against plane)
// never collide.
func TestCollision(a geom.Shape, posA geom.Vec3, rotA geom.Quat, b geom.Shape, posB geom.Vec3, rotB geom.Quat) (bool, *Manifold) {
	if a.Kind < 0 || b.Kind < 0 || int(a.Kind) >= len(pairs) || int(b.Kind) >= len(pairs) {
		return false, nil
	}
	if a.Kind <= b.Kind {
		fn := pairs[a.Kind][b.Kind]
		if fn == nil {
			return false, nil
		}
		return fn(a, posA, rotA, b, posB, rotB)
	}
	fn := pairs[b.Kind][a.Kind]
	if fn == nil {
		return false, nil
	}
	hit, m := fn(b, posB, rotB, a, posA, rotA)
	if hit {
		m.Flip()
	}
	return hit, m
}

// spheres tests two spheres given by center and radius. Coincident centers
// separate along +X.
func spheres(ca geom.Vec3, ra float64, cb geom.Vec3, rb float64) (bool, *Manifold) {
	d := cb.Sub(ca)
	dist := d.Len()
	if dist > ra+rb {
		return false, nil
	}
	n := geom.Vec3{1, 0, 0}
	if dist > geom.Epsilon {
		n = d.Mul(1 / dist)
	}
	return true, single(n, ca.Add(n.Mul(ra)), cb.Sub(n.Mul(rb)), ra+rb-dist)
}

func sphereSphere(a geom.Shape, posA geom.Vec3, rotA geom.Quat, b geom.Shape, posB geom.Vec3, rotB geom.Quat) (bool, *Manifold) {
	return spheres(a.Center(posA, rotA), a.Radius, b.Center(posB, rotB), b.Radius)
}

// halfSpaceSphere tests a sphere against the half-space behind a plane. The
// normal points from the plane toward the sphere.
func halfSpaceSphere(n, p, c geom.Vec3, r float64) (bool, *Manifold) {
	d := c.Sub(p).Dot(n)
	if d > r {
		return false, nil
	}
	return true, single(n, c.Sub(n.Mul(d)), c.Sub(n.Mul(r)), r-d)
}

func spherePlane(a geom.Shape, posA geom.Vec3, rotA geom.Quat, b geom.Shape, posB geom.Vec3, rotB geom.Quat) (bool, *Manifold) {
	n, p := b.PlaneAt(posB, rotB)
	hit, m := halfSpaceSphere(n, p, a.Center(posA, rotA), a.Radius)
	if hit {
		m.Flip()
	}
	return hit, m
}

// obbSphere tests a box (A) against a sphere (B).
func obbSphere(o geom.OBB, c geom.Vec3, r float64) (bool, *Manifold) {
	q := o.ClosestPoint(c)
	v := c.Sub(q)
	dist := v.Len()
	if dist > r {
		return false, nil
	}
	if dist > geom.Epsilon {
		n := v.Mul(1 / dist)
		return true, single(n, q, c.Sub(n.Mul(r)), r-dist)
	}

	// Center inside the box: push out through the nearest face.
	l := o.ToLocal(c)
	axis, pen := 0, math.Inf(1)
	for i := 0; i < 3; i++ {
		if p := o.HalfSize[i] - math.Abs(l[i]); p < pen {
			axis, pen = i, p
		}
	}
	n := o.Axes[axis]
	if l[axis] < 0 {
		n = n.Mul(-1)
	}
	return true, single(n, c.Add(n.Mul(pen)), c.Sub(n.Mul(r)), r+pen)
}

func sphereBox(a geom.Shape, posA geom.Vec3, rotA geom.Quat, b geom.Shape, posB geom.Vec3, rotB geom.Quat) (bool, *Manifold) {
	hit, m := obbSphere(b.OBB(posB, rotB), a.Center(posA, rotA), a.Radius)
	if hit {
		m.Flip()
	}
	return hit, m
}

func boxPlane(a geom.Shape, posA geom.Vec3, rotA geom.Quat, b geom.Shape, posB geom.Vec3, rotB geom.Quat) (bool, *Manifold) {
	n, p := b.PlaneAt(posB, rotB)
	m := &Manifold{Normal: n}
	for _, v := range a.OBB(posA, rotA).Vertices() {
		d := v.Sub(p).Dot(n)
		if d > 0 {
			continue
		}
		m.add(Contact{PointOnA: v.Sub(n.Mul(d)), PointOnB: v, Normal: n, Depth: -d})
	}
	if len(m.Contacts) == 0 {
		return false, nil
	}
	m.reduce()
	m.Flip()
	return true, m
}
