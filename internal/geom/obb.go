package geom

import "math"

// OBB is an oriented bounding box in world space.
type OBB struct {
	Center   Vec3
	HalfSize Vec3
	Axes     [3]Vec3
}

// Project returns the projection radius of the box onto a unit axis.
func (o OBB) Project(axis Vec3) float64 {
	return o.HalfSize[0]*math.Abs(o.Axes[0].Dot(axis)) +
		o.HalfSize[1]*math.Abs(o.Axes[1].Dot(axis)) +
		o.HalfSize[2]*math.Abs(o.Axes[2].Dot(axis))
}

// ToLocal expresses a world point in the box frame.
func (o OBB) ToLocal(p Vec3) Vec3 {
	d := p.Sub(o.Center)
	return Vec3{d.Dot(o.Axes[0]), d.Dot(o.Axes[1]), d.Dot(o.Axes[2])}
}

// ToWorld maps a box-frame point back to world space.
func (o OBB) ToWorld(l Vec3) Vec3 {
	return o.Center.
		Add(o.Axes[0].Mul(l[0])).
		Add(o.Axes[1].Mul(l[1])).
		Add(o.Axes[2].Mul(l[2]))
}

// ClosestPoint returns the point of the solid box nearest to p. Points inside
// the box are returned unchanged.
func (o OBB) ClosestPoint(p Vec3) Vec3 {
	l := o.ToLocal(p)
	for i := 0; i < 3; i++ {
		l[i] = Clamp(l[i], -o.HalfSize[i], o.HalfSize[i])
	}
	return o.ToWorld(l)
}

// Contains reports whether p lies inside the box, with a small tolerance.
func (o OBB) Contains(p Vec3, tol float64) bool {
	l := o.ToLocal(p)
	for i := 0; i < 3; i++ {
		if math.Abs(l[i]) > o.HalfSize[i]+tol {
			return false
		}
	}
	return true
}

// Vertices returns the eight corners in world space.
func (o OBB) Vertices() [8]Vec3 {
	var out [8]Vec3
	for i := 0; i < 8; i++ {
		l := o.HalfSize
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				l[axis] = -l[axis]
			}
		}
		out[i] = o.ToWorld(l)
	}
	return out
}

// ClosestPointOnSegment returns the point on segment ab nearest to p.
func ClosestPointOnSegment(a, b, p Vec3) Vec3 {
	ab := b.Sub(a)
	den := ab.LenSqr()
	if den < Epsilon {
		return a
	}
	t := Clamp(p.Sub(a).Dot(ab)/den, 0, 1)
	return a.Add(ab.Mul(t))
}

// ClosestPointsSegments returns the closest pair of points between segments
// p1q1 and p2q2.
func ClosestPointsSegments(p1, q1, p2, q2 Vec3) (Vec3, Vec3) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.LenSqr()
	e := d2.LenSqr()
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a < Epsilon && e < Epsilon:
		return p1, p2
	case a < Epsilon:
		t = Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e < Epsilon {
			s = Clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			den := a*e - b*b
			if den > Epsilon {
				s = Clamp((b*f-c*e)/den, 0, 1)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = Clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = Clamp((b-c)/a, 0, 1)
			}
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}
