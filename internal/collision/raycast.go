package collision

import (
	"math"

	"github.com/san-kum/rigidsim/internal/geom"
)

// RayHit describes where a ray meets a shape. Distance is measured along the
// unit ray direction.
type RayHit struct {
	Distance float64
	Point    geom.Vec3
	Normal   geom.Vec3
}

// RaycastSphere solves |o + t*d - c|^2 = r^2 for the nearest root. A ray
// starting inside the sphere has a non-positive nearest root and misses.
func RaycastSphere(origin, dir, center geom.Vec3, radius, maxDist float64) (RayHit, bool) {
	m := origin.Sub(center)
	a := dir.Dot(dir)
	if a < geom.Epsilon {
		return RayHit{}, false
	}
	b := 2 * m.Dot(dir)
	c := m.Dot(m) - radius*radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return RayHit{}, false
	}
	t := (-b - math.Sqrt(disc)) / (2 * a)
	if t <= 0 || t > maxDist {
		return RayHit{}, false
	}
	p := origin.Add(dir.Mul(t))
	return RayHit{Distance: t, Point: p, Normal: p.Sub(center).Normalize()}, true
}

// RaycastPlane intersects the ray with an infinite plane. Parallel rays miss.
// The reported normal faces the incoming ray.
func RaycastPlane(origin, dir, normal, point geom.Vec3, maxDist float64) (RayHit, bool) {
	den := dir.Dot(normal)
	if math.Abs(den) < geom.Epsilon {
		return RayHit{}, false
	}
	t := point.Sub(origin).Dot(normal) / den
	if t <= 0 || t > maxDist {
		return RayHit{}, false
	}
	if den > 0 {
		normal = normal.Mul(-1)
	}
	return RayHit{Distance: t, Point: origin.Add(dir.Mul(t)), Normal: normal}, true
}

// RaycastBox runs the slab test in the box frame. Rays starting inside the box
// miss.
func RaycastBox(origin, dir geom.Vec3, box geom.OBB, maxDist float64) (RayHit, bool) {
	lo := box.ToLocal(origin)
	ld := geom.Vec3{dir.Dot(box.Axes[0]), dir.Dot(box.Axes[1]), dir.Dot(box.Axes[2])}
	local := geom.AABB{Min: box.HalfSize.Mul(-1), Max: box.HalfSize}
	t, n, ok := local.RayIntersect(lo, ld, maxDist)
	if !ok || t <= 0 {
		return RayHit{}, false
	}
	wn := box.Axes[0].Mul(n[0]).Add(box.Axes[1].Mul(n[1])).Add(box.Axes[2].Mul(n[2]))
	return RayHit{Distance: t, Point: origin.Add(dir.Mul(t)), Normal: wn}, true
}

// RaycastCapsule tests the cylinder body and both end caps and keeps the
// nearest hit. Rays starting inside the capsule miss.
func RaycastCapsule(origin, dir, s, e geom.Vec3, radius, maxDist float64) (RayHit, bool) {
	closest := geom.ClosestPointOnSegment(s, e, origin)
	if origin.Sub(closest).LenSqr() <= radius*radius {
		return RayHit{}, false
	}

	best := RayHit{Distance: math.Inf(1)}
	found := false
	for _, c := range [2]geom.Vec3{s, e} {
		if h, ok := RaycastSphere(origin, dir, c, radius, maxDist); ok && h.Distance < best.Distance {
			best, found = h, true
		}
	}

	axis := e.Sub(s)
	h := axis.Len()
	if h > geom.Epsilon {
		u := axis.Mul(1 / h)
		m := origin.Sub(s)
		rd := dir.Sub(u.Mul(dir.Dot(u)))
		rm := m.Sub(u.Mul(m.Dot(u)))
		a := rd.Dot(rd)
		if a > geom.Epsilon {
			b := 2 * rm.Dot(rd)
			c := rm.Dot(rm) - radius*radius
			if disc := b*b - 4*a*c; disc >= 0 {
				t := (-b - math.Sqrt(disc)) / (2 * a)
				if t > 0 && t <= maxDist && t < best.Distance {
					p := origin.Add(dir.Mul(t))
					along := p.Sub(s).Dot(u)
					if along >= 0 && along <= h {
						n := p.Sub(s.Add(u.Mul(along))).Normalize()
						best, found = RayHit{Distance: t, Point: p, Normal: n}, true
					}
				}
			}
		}
	}
	return best, found
}

// RaycastShape casts a ray against a posed shape. dir need not be unit
// length; it is normalised and a zero direction never hits.
func RaycastShape(origin, dir geom.Vec3, s geom.Shape, pos geom.Vec3, rot geom.Quat, maxDist float64) (RayHit, bool) {
	if dir.Len() < geom.Epsilon || maxDist < 0 {
		return RayHit{}, false
	}
	dir = dir.Normalize()
	switch s.Kind {
	case geom.KindSphere:
		return RaycastSphere(origin, dir, s.Center(pos, rot), s.Radius, maxDist)
	case geom.KindBox:
		return RaycastBox(origin, dir, s.OBB(pos, rot), maxDist)
	case geom.KindPlane:
		n, p := s.PlaneAt(pos, rot)
		return RaycastPlane(origin, dir, n, p, maxDist)
	case geom.KindCapsule:
		a, b := s.Segment(pos, rot)
		return RaycastCapsule(origin, dir, a, b, s.Radius, maxDist)
	}
	return RayHit{}, false
}
