package geom

import "math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Vec3
}

// NewAABB builds a box from a center and half extents.
func NewAABB(center, half Vec3) AABB {
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

// Intersects reports whether the boxes overlap on every axis. Touching counts.
func (a AABB) Intersects(b AABB) bool {
	return a.Min[0] <= b.Max[0] && a.Max[0] >= b.Min[0] &&
		a.Min[1] <= b.Max[1] && a.Max[1] >= b.Min[1] &&
		a.Min[2] <= b.Max[2] && a.Max[2] >= b.Min[2]
}

func (a AABB) Contains(p Vec3) bool {
	return p[0] >= a.Min[0] && p[0] <= a.Max[0] &&
		p[1] >= a.Min[1] && p[1] <= a.Max[1] &&
		p[2] >= a.Min[2] && p[2] <= a.Max[2]
}

// Merge returns the smallest box enclosing both a and b.
func (a AABB) Merge(b AABB) AABB {
	return AABB{Min: minVec(a.Min, b.Min), Max: maxVec(a.Max, b.Max)}
}

// Expand grows the box by margin on every side.
func (a AABB) Expand(margin float64) AABB {
	m := Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

func (a AABB) Center() Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) HalfExtents() Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Corners returns the eight corner points.
func (a AABB) Corners() [8]Vec3 {
	var out [8]Vec3
	for i := 0; i < 8; i++ {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				out[i][axis] = a.Max[axis]
			} else {
				out[i][axis] = a.Min[axis]
			}
		}
	}
	return out
}

// RayIntersect runs the slab test against the box and returns the entry
// distance and the face normal hit. Rays starting inside report t = 0.
func (a AABB) RayIntersect(origin, dir Vec3, maxDist float64) (float64, Vec3, bool) {
	tMin, tMax := 0.0, maxDist
	var normal Vec3
	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < Epsilon {
			if origin[i] < a.Min[i] || origin[i] > a.Max[i] {
				return 0, Vec3{}, false
			}
			continue
		}
		inv := 1 / dir[i]
		t1 := (a.Min[i] - origin[i]) * inv
		t2 := (a.Max[i] - origin[i]) * inv
		sign := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1.0
		}
		if t1 > tMin {
			tMin = t1
			normal = Vec3{}
			normal[i] = sign
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, Vec3{}, false
		}
	}
	return tMin, normal, true
}
