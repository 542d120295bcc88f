package collision

import (
	"math"

	"github.com/san-kum/rigidsim/internal/geom"
)

const (
	// clipTolerance admits corners lying just outside the other box.
	clipTolerance = 1e-4
	// edgeBias makes the SAT prefer face axes over nearly equal edge axes,
	// which keeps resting contacts stable.
	edgeBias = 1.05
)

// satAxis finds the minimum-penetration axis between two boxes. It returns
// false as soon as one axis separates them. The axis points from a to b.
func satAxis(a, b geom.OBB) (geom.Vec3, float64, bool) {
	t := b.Center.Sub(a.Center)
	best, bestScore := math.Inf(1), math.Inf(1)
	var bestAxis geom.Vec3

	test := func(axis geom.Vec3, edge bool) bool {
		l := axis.Len()
		if l < 1e-6 {
			return true
		}
		axis = axis.Mul(1 / l)
		dist := t.Dot(axis)
		pen := a.Project(axis) + b.Project(axis) - math.Abs(dist)
		if pen < 0 {
			return false
		}
		score := pen
		if edge {
			score = pen*edgeBias + 1e-6
		}
		if score < bestScore {
			best, bestScore = pen, score
			if dist < 0 {
				axis = axis.Mul(-1)
			}
			bestAxis = axis
		}
		return true
	}

	for i := 0; i < 3; i++ {
		if !test(a.Axes[i], false) {
			return geom.Vec3{}, 0, false
		}
	}
	for i := 0; i < 3; i++ {
		if !test(b.Axes[i], false) {
			return geom.Vec3{}, 0, false
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !test(a.Axes[i].Cross(b.Axes[j]), true) {
				return geom.Vec3{}, 0, false
			}
		}
	}
	return bestAxis, best, true
}

// Overlaps reports whether two oriented boxes intersect.
func Overlaps(a, b geom.OBB) bool {
	_, _, ok := satAxis(a, b)
	return ok
}

func boxBox(a geom.Shape, posA geom.Vec3, rotA geom.Quat, b geom.Shape, posB geom.Vec3, rotB geom.Quat) (bool, *Manifold) {
	oa, ob := a.OBB(posA, rotA), b.OBB(posB, rotB)
	n, depth, ok := satAxis(oa, ob)
	if !ok {
		return false, nil
	}
	return true, obbContacts(oa, ob, n, depth)
}

// obbContacts clips the corners of each box against the other. Corners of B
// inside A are measured against A's extreme face along n and the other way
// round. Edge-edge contact leaves no corner inside either box, in which case
// a single contact at the midpoint of the mutual closest points is used.
func obbContacts(a, b geom.OBB, n geom.Vec3, depth float64) *Manifold {
	m := &Manifold{Normal: n}

	faceA := a.Center.Dot(n) + a.Project(n)
	for _, v := range b.Vertices() {
		if !a.Contains(v, clipTolerance) {
			continue
		}
		d := math.Min(faceA-v.Dot(n), depth)
		m.add(Contact{PointOnA: v.Add(n.Mul(d)), PointOnB: v, Normal: n, Depth: d})
	}

	faceB := b.Center.Dot(n) - b.Project(n)
	for _, v := range a.Vertices() {
		if !b.Contains(v, clipTolerance) {
			continue
		}
		d := math.Min(v.Dot(n)-faceB, depth)
		m.add(Contact{PointOnA: v, PointOnB: v.Sub(n.Mul(d)), Normal: n, Depth: d})
	}

	if len(m.Contacts) == 0 {
		mid := a.ClosestPoint(b.Center).Add(b.ClosestPoint(a.Center)).Mul(0.5)
		half := n.Mul(depth / 2)
		m.add(Contact{PointOnA: mid.Add(half), PointOnB: mid.Sub(half), Normal: n, Depth: depth})
	}
	m.reduce()
	return m
}
