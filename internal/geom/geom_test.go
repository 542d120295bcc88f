package geom

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func vec3AlmostEqual(a, b Vec3, tol float64) bool {
	return almostEqual(a[0], b[0], tol) && almostEqual(a[1], b[1], tol) && almostEqual(a[2], b[2], tol)
}

func TestAABBIntersects(t *testing.T) {
	base := NewAABB(Vec3{}, Vec3{1, 1, 1})
	tests := []struct {
		name  string
		other AABB
		want  bool
	}{
		{"overlap", NewAABB(Vec3{1.5, 0, 0}, Vec3{1, 1, 1}), true},
		{"touching faces", NewAABB(Vec3{2, 0, 0}, Vec3{1, 1, 1}), true},
		{"separated x", NewAABB(Vec3{2.01, 0, 0}, Vec3{1, 1, 1}), false},
		{"separated y", NewAABB(Vec3{0, -3, 0}, Vec3{1, 1, 1}), false},
		{"contained", NewAABB(Vec3{0.2, 0.2, 0.2}, Vec3{0.1, 0.1, 0.1}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Intersects(tt.other); got != tt.want {
				t.Errorf("Intersects = %v, want %v", got, tt.want)
			}
			if got := tt.other.Intersects(base); got != tt.want {
				t.Errorf("Intersects (swapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAABBMergeContainsCorners(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	randBox := func() AABB {
		c := Vec3{rng.Float64()*20 - 10, rng.Float64()*20 - 10, rng.Float64()*20 - 10}
		h := Vec3{rng.Float64() * 3, rng.Float64() * 3, rng.Float64() * 3}
		return NewAABB(c, h)
	}

	for i := 0; i < 200; i++ {
		a, b := randBox(), randBox()
		m := a.Merge(b)
		for axis := 0; axis < 3; axis++ {
			if m.Min[axis] != math.Min(a.Min[axis], b.Min[axis]) {
				t.Fatalf("Min[%d] = %v, want %v", axis, m.Min[axis], math.Min(a.Min[axis], b.Min[axis]))
			}
			if m.Max[axis] != math.Max(a.Max[axis], b.Max[axis]) {
				t.Fatalf("Max[%d] = %v, want %v", axis, m.Max[axis], math.Max(a.Max[axis], b.Max[axis]))
			}
		}
		for _, src := range []AABB{a, b} {
			for _, c := range src.Corners() {
				if !m.Contains(c) {
					t.Fatalf("merged box %v does not contain corner %v", m, c)
				}
			}
		}
	}
}

func TestAABBRayIntersect(t *testing.T) {
	box := NewAABB(Vec3{5, 0, 0}, Vec3{1, 1, 1})

	dist, n, ok := box.RayIntersect(Vec3{}, Vec3{1, 0, 0}, 100)
	if !ok {
		t.Fatal("expected hit")
	}
	if !almostEqual(dist, 4, 1e-9) {
		t.Errorf("distance = %v, want 4", dist)
	}
	if !vec3AlmostEqual(n, Vec3{-1, 0, 0}, 1e-9) {
		t.Errorf("normal = %v, want -X", n)
	}

	if _, _, ok := box.RayIntersect(Vec3{}, Vec3{0, 1, 0}, 100); ok {
		t.Error("expected miss for perpendicular ray")
	}
	if _, _, ok := box.RayIntersect(Vec3{}, Vec3{1, 0, 0}, 3); ok {
		t.Error("expected miss beyond max distance")
	}
}

func TestShapeBounds(t *testing.T) {
	rot := mgl64.QuatRotate(math.Pi/4, Vec3{0, 0, 1})
	tests := []struct {
		name  string
		shape Shape
		pos   Vec3
		rot   Quat
		min   Vec3
		max   Vec3
	}{
		{"sphere", Sphere(0.5), Vec3{1, 2, 3}, mgl64.QuatIdent(), Vec3{0.5, 1.5, 2.5}, Vec3{1.5, 2.5, 3.5}},
		{"box identity", Box(Vec3{1, 2, 3}), Vec3{}, mgl64.QuatIdent(), Vec3{-1, -2, -3}, Vec3{1, 2, 3}},
		{"box rotated", Box(Vec3{1, 1, 1}), Vec3{}, rot, Vec3{-math.Sqrt2, -math.Sqrt2, -1}, Vec3{math.Sqrt2, math.Sqrt2, 1}},
		{"capsule", Capsule(0.5, 1), Vec3{}, mgl64.QuatIdent(), Vec3{-0.5, -1.5, -0.5}, Vec3{0.5, 1.5, 0.5}},
		{"offset sphere", Sphere(1).WithOffset(Vec3{0, 2, 0}), Vec3{}, mgl64.QuatIdent(), Vec3{-1, 1, -1}, Vec3{1, 3, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.shape.Bounds(tt.pos, tt.rot)
			if !vec3AlmostEqual(b.Min, tt.min, 1e-9) || !vec3AlmostEqual(b.Max, tt.max, 1e-9) {
				t.Errorf("Bounds = %v, want {%v %v}", b, tt.min, tt.max)
			}
		})
	}
}

func TestPlaneBoundsAreHalfSpace(t *testing.T) {
	ground := Plane(Vec3{0, 1, 0}, 0)
	b := ground.Bounds(Vec3{0, -1, 0}, mgl64.QuatIdent())
	if b.Max[1] != -1 {
		t.Errorf("Max.Y = %v, want -1", b.Max[1])
	}
	if b.Min[1] > -1e6 || b.Max[0] < 1e6 {
		t.Errorf("plane bounds not unbounded on free axes: %v", b)
	}
	if !b.Intersects(NewAABB(Vec3{3, -0.5, 7}, Vec3{0.5, 0.5, 0.5})) {
		t.Error("sphere bounds resting on plane should overlap")
	}
}

func TestShapeValidate(t *testing.T) {
	tests := []struct {
		name    string
		shape   Shape
		wantErr bool
	}{
		{"sphere", Sphere(1), false},
		{"zero sphere", Sphere(0), true},
		{"nan sphere", Sphere(math.NaN()), true},
		{"box", Box(Vec3{1, 1, 1}), false},
		{"flat box", Box(Vec3{1, 0, 1}), true},
		{"plane", Plane(Vec3{0, 2, 0}, 0), false},
		{"plane zero normal", Plane(Vec3{}, 0), true},
		{"capsule", Capsule(0.2, 1), false},
		{"capsule negative height", Capsule(0.2, -1), true},
		{"unknown kind", Shape{Kind: Kind(42)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shape.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidShape) {
				t.Errorf("error %v does not wrap ErrInvalidShape", err)
			}
		})
	}
}

func TestOBBClosestPoint(t *testing.T) {
	o := Box(Vec3{1, 1, 1}).OBB(Vec3{}, mgl64.QuatRotate(math.Pi/2, Vec3{0, 1, 0}))

	if got := o.ClosestPoint(Vec3{5, 0, 0}); !vec3AlmostEqual(got, Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("ClosestPoint = %v, want (1,0,0)", got)
	}
	inside := Vec3{0.2, -0.3, 0.1}
	if got := o.ClosestPoint(inside); !vec3AlmostEqual(got, inside, 1e-9) {
		t.Errorf("ClosestPoint(inside) = %v, want %v", got, inside)
	}
	if !o.Contains(inside, 0) {
		t.Error("Contains(inside) = false")
	}
}

func TestClosestPointsSegments(t *testing.T) {
	a, b := ClosestPointsSegments(Vec3{-1, 0, 0}, Vec3{1, 0, 0}, Vec3{0, -1, 1}, Vec3{0, 1, 1})
	if !vec3AlmostEqual(a, Vec3{0, 0, 0}, 1e-9) || !vec3AlmostEqual(b, Vec3{0, 0, 1}, 1e-9) {
		t.Errorf("ClosestPointsSegments = %v %v", a, b)
	}

	p := ClosestPointOnSegment(Vec3{0, 0, 0}, Vec3{0, 2, 0}, Vec3{1, 5, 0})
	if !vec3AlmostEqual(p, Vec3{0, 2, 0}, 1e-9) {
		t.Errorf("ClosestPointOnSegment = %v, want (0,2,0)", p)
	}
}

func TestShapeInertia(t *testing.T) {
	i := Sphere(1).Inertia(5)
	if !vec3AlmostEqual(i, Vec3{2, 2, 2}, 1e-12) {
		t.Errorf("sphere inertia = %v, want (2,2,2)", i)
	}
	i = Box(Vec3{0.5, 0.5, 0.5}).Inertia(12)
	if !vec3AlmostEqual(i, Vec3{2, 2, 2}, 1e-12) {
		t.Errorf("cube inertia = %v, want (2,2,2)", i)
	}
	if got := Plane(Vec3{0, 1, 0}, 0).Inertia(1); got != (Vec3{}) {
		t.Errorf("plane inertia = %v, want zero", got)
	}
}
