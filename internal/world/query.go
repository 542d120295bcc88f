package world

import (
	"math"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/collision"
	"github.com/san-kum/rigidsim/internal/geom"
)

type RaycastResult struct {
	Distance float64
	Normal   geom.Vec3
	EntityID body.EntityID
	Point    geom.Vec3
}

// Raycast returns the nearest body hit along the ray within maxDist. A
// non-positive maxDist means unbounded. Rays starting inside a shape do not
// hit that shape.
func (w *World) Raycast(origin, dir geom.Vec3, maxDist float64) (RaycastResult, bool) {
	return w.RaycastFiltered(origin, dir, maxDist, body.AllLayers)
}

// RaycastFiltered is [World.Raycast] restricted to bodies whose collision
// layer shares a bit with mask.
func (w *World) RaycastFiltered(origin, dir geom.Vec3, maxDist float64, mask uint32) (RaycastResult, bool) {
	if dir.Len() < geom.Epsilon || !geom.IsFinite(origin) || !geom.IsFinite(dir) {
		return RaycastResult{}, false
	}
	dir = dir.Normalize()
	if maxDist <= 0 {
		maxDist = math.Inf(1)
	}

	best := RaycastResult{EntityID: body.None, Distance: maxDist}
	found := false
	w.bodies.each(func(b *body.RigidBody) {
		if b.Faulted() || b.CollisionLayer&mask == 0 {
			return
		}
		if b.Shape.Kind != geom.KindPlane {
			if _, _, ok := b.Bounds().RayIntersect(origin, dir, best.Distance); !ok {
				return
			}
		}
		hit, ok := collision.RaycastShape(origin, dir, b.Shape, b.Position, b.Rotation, best.Distance)
		if !ok || (found && hit.Distance >= best.Distance) {
			return
		}
		best = RaycastResult{Distance: hit.Distance, Normal: hit.Normal, EntityID: b.ID, Point: hit.Point}
		found = true
	})
	if !found {
		return RaycastResult{EntityID: body.None}, false
	}
	return best, true
}

// Pose is the post-step transform of one body.
type Pose struct {
	ID       body.EntityID `json:"id"`
	Position geom.Vec3     `json:"position"`
	Rotation geom.Quat     `json:"rotation"`
	Faulted  bool          `json:"faulted,omitempty"`
}

// Poses returns the transform of every live body in handle slot order.
func (w *World) Poses() []Pose {
	out := make([]Pose, 0, w.bodies.live)
	w.bodies.each(func(b *body.RigidBody) {
		out = append(out, Pose{ID: b.ID, Position: b.Position, Rotation: b.Rotation, Faulted: b.Faulted()})
	})
	return out
}

// Contact is a touching pair from the last step.
type Contact struct {
	BodyA, BodyB body.EntityID
	Manifold     *collision.Manifold
}

// Contacts returns the pairs that touched during the last step.
func (w *World) Contacts() []Contact {
	out := make([]Contact, 0, len(w.contacts))
	for _, c := range w.contacts {
		out = append(out, Contact{BodyA: c.A.ID, BodyB: c.B.ID, Manifold: c.Manifold})
	}
	return out
}

func (w *World) ContactCount() int { return len(w.contacts) }
