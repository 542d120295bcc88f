package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type (
	Vec3 = mgl64.Vec3
	Quat = mgl64.Quat
)

// ErrInvalidShape is returned by [Shape.Validate] for degenerate dimensions.
var ErrInvalidShape = errors.New("geom: invalid shape")

// Epsilon is the tolerance used for near-zero lengths and denominators.
const Epsilon = 1e-9

// planeExtent bounds a plane's AABB on its unconstrained axes. A finite value
// keeps AABB arithmetic free of Inf.
const planeExtent = 1e9

type Kind int

const (
	KindSphere Kind = iota
	KindBox
	KindPlane
	KindCapsule
)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindBox:
		return "box"
	case KindPlane:
		return "plane"
	case KindCapsule:
		return "capsule"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a shape name back to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "sphere":
		return KindSphere, nil
	case "box":
		return KindBox, nil
	case "plane":
		return KindPlane, nil
	case "capsule":
		return KindCapsule, nil
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidShape, s)
}

// Shape is a collider. Only the fields relevant to Kind are meaningful.
//
// Plane: Normal is the local normal, Distance the offset of the plane along
// it from the shape center. Capsule: the core segment runs along local Y from
// -HalfHeight to +HalfHeight.
type Shape struct {
	Kind        Kind
	Radius      float64
	HalfExtents Vec3
	Normal      Vec3
	Distance    float64
	HalfHeight  float64
	Offset      Vec3
}

func Sphere(radius float64) Shape {
	return Shape{Kind: KindSphere, Radius: radius}
}

func Box(halfExtents Vec3) Shape {
	return Shape{Kind: KindBox, HalfExtents: halfExtents}
}

func Plane(normal Vec3, distance float64) Shape {
	if normal.Len() > Epsilon {
		normal = normal.Normalize()
	}
	return Shape{Kind: KindPlane, Normal: normal, Distance: distance}
}

func Capsule(radius, halfHeight float64) Shape {
	return Shape{Kind: KindCapsule, Radius: radius, HalfHeight: halfHeight}
}

// WithOffset returns a copy of s displaced by a local offset.
func (s Shape) WithOffset(offset Vec3) Shape {
	s.Offset = offset
	return s
}

func (s Shape) Validate() error {
	switch s.Kind {
	case KindSphere:
		if !(s.Radius > 0) {
			return fmt.Errorf("%w: sphere radius %v", ErrInvalidShape, s.Radius)
		}
	case KindBox:
		for i := 0; i < 3; i++ {
			if !(s.HalfExtents[i] > 0) {
				return fmt.Errorf("%w: box half extents %v", ErrInvalidShape, s.HalfExtents)
			}
		}
	case KindPlane:
		if math.Abs(s.Normal.Len()-1) > 1e-6 {
			return fmt.Errorf("%w: plane normal %v is not unit length", ErrInvalidShape, s.Normal)
		}
	case KindCapsule:
		if !(s.Radius > 0) || s.HalfHeight < 0 {
			return fmt.Errorf("%w: capsule radius %v half height %v", ErrInvalidShape, s.Radius, s.HalfHeight)
		}
	default:
		return fmt.Errorf("%w: %v", ErrInvalidShape, s.Kind)
	}
	return nil
}

// Center returns the world position of the shape origin for a body pose.
func (s Shape) Center(pos Vec3, rot Quat) Vec3 {
	if s.Offset == (Vec3{}) {
		return pos
	}
	return pos.Add(rot.Rotate(s.Offset))
}

// PlaneAt returns the world normal and a world point on the plane.
func (s Shape) PlaneAt(pos Vec3, rot Quat) (normal, point Vec3) {
	normal = rot.Rotate(s.Normal)
	point = s.Center(pos, rot).Add(normal.Mul(s.Distance))
	return normal, point
}

// Segment returns the capsule core segment end points in world space.
func (s Shape) Segment(pos Vec3, rot Quat) (Vec3, Vec3) {
	c := s.Center(pos, rot)
	axis := rot.Rotate(Vec3{0, s.HalfHeight, 0})
	return c.Sub(axis), c.Add(axis)
}

// OBB returns the oriented box of a box shape placed at the given pose.
func (s Shape) OBB(pos Vec3, rot Quat) OBB {
	return OBB{
		Center:   s.Center(pos, rot),
		HalfSize: s.HalfExtents,
		Axes: [3]Vec3{
			rot.Rotate(Vec3{1, 0, 0}),
			rot.Rotate(Vec3{0, 1, 0}),
			rot.Rotate(Vec3{0, 0, 1}),
		},
	}
}

// Bounds returns the world AABB of the shape under a body pose.
func (s Shape) Bounds(pos Vec3, rot Quat) AABB {
	c := s.Center(pos, rot)
	switch s.Kind {
	case KindSphere:
		r := Vec3{s.Radius, s.Radius, s.Radius}
		return AABB{Min: c.Sub(r), Max: c.Add(r)}
	case KindBox:
		o := s.OBB(pos, rot)
		var ext Vec3
		for i := 0; i < 3; i++ {
			ext[i] = math.Abs(o.Axes[0][i])*o.HalfSize[0] +
				math.Abs(o.Axes[1][i])*o.HalfSize[1] +
				math.Abs(o.Axes[2][i])*o.HalfSize[2]
		}
		return AABB{Min: c.Sub(ext), Max: c.Add(ext)}
	case KindCapsule:
		a, b := s.Segment(pos, rot)
		r := Vec3{s.Radius, s.Radius, s.Radius}
		return AABB{Min: minVec(a, b).Sub(r), Max: maxVec(a, b).Add(r)}
	case KindPlane:
		n, p := s.PlaneAt(pos, rot)
		box := AABB{
			Min: Vec3{-planeExtent, -planeExtent, -planeExtent},
			Max: Vec3{planeExtent, planeExtent, planeExtent},
		}
		// Axis-aligned half-spaces are bounded on their normal axis.
		for i := 0; i < 3; i++ {
			if math.Abs(n[i]) > 1-1e-9 {
				if n[i] > 0 {
					box.Max[i] = p[i]
				} else {
					box.Min[i] = p[i]
				}
			}
		}
		return box
	}
	return AABB{Min: c, Max: c}
}

// Inertia returns the principal moments of inertia of a solid shape of the
// given mass about its center. Planes have none.
func (s Shape) Inertia(mass float64) Vec3 {
	switch s.Kind {
	case KindSphere:
		i := 0.4 * mass * s.Radius * s.Radius
		return Vec3{i, i, i}
	case KindBox:
		x, y, z := 2*s.HalfExtents[0], 2*s.HalfExtents[1], 2*s.HalfExtents[2]
		k := mass / 12
		return Vec3{k * (y*y + z*z), k * (x*x + z*z), k * (x*x + y*y)}
	case KindCapsule:
		// Cylinder plus two hemispheres, mass split by volume.
		r, h := s.Radius, 2*s.HalfHeight
		cylVol := math.Pi * r * r * h
		sphVol := 4.0 / 3.0 * math.Pi * r * r * r
		mc := mass * cylVol / (cylVol + sphVol)
		ms := mass - mc
		iy := mc*r*r/2 + ms*0.4*r*r
		ixz := mc*(3*r*r+h*h)/12 + ms*(0.4*r*r+h*h/4+3*h*r/8)
		return Vec3{ixz, iy, ixz}
	}
	return Vec3{}
}

func minVec(a, b Vec3) Vec3 {
	return Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}

func maxVec(a, b Vec3) Vec3 {
	return Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// IsFiniteQuat reports whether every component of q is a finite number.
func IsFiniteQuat(q Quat) bool {
	return IsFinite(q.V) && !math.IsNaN(q.W) && !math.IsInf(q.W, 0)
}

// Orthonormal returns two unit vectors perpendicular to n and to each other.
func Orthonormal(n Vec3) (Vec3, Vec3) {
	var t Vec3
	if math.Abs(n[0]) > 0.57735 {
		t = Vec3{n[1], -n[0], 0}
	} else {
		t = Vec3{0, n[2], -n[1]}
	}
	t = t.Normalize()
	return t, n.Cross(t)
}
