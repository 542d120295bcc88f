package world

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/collision"
	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/solver"
)

type pairKey struct {
	a, b body.EntityID
}

// Step advances the world by dt seconds. A zero dt does nothing. Negative
// or non-finite dt is rejected before anything changes. Faults in single
// bodies never abort the step: the body is isolated and the rest of the
// world continues.
func (w *World) Step(dt float64) error {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTimestep, dt)
	}
	if w.stepping || w.dispatching {
		return ErrStepInProgress
	}
	if dt == 0 {
		return nil
	}
	w.stepping = true

	bodies := w.simulated()
	for _, b := range bodies {
		b.IntegrateForces(w.cfg.Gravity, dt)
	}
	bodies = w.isolateFaults(bodies)

	pairs := w.broadPhase(bodies)
	current := w.narrowPhase(pairs)

	w.solver.Prepare(w.contacts, w.joints(), dt)
	w.solver.SolveVelocities()

	for _, b := range bodies {
		b.IntegrateVelocities(dt)
	}
	w.solver.SolvePositions()
	w.isolateFaults(bodies)

	w.trackPairs(current)
	for _, e := range w.links.Update(dt) {
		w.queue.Push(e)
	}

	w.time += dt
	w.steps++
	w.stepping = false
	w.dispatch()
	return nil
}

// simulated returns live bodies that have not been isolated.
func (w *World) simulated() []*body.RigidBody {
	out := make([]*body.RigidBody, 0, w.bodies.live)
	w.bodies.each(func(b *body.RigidBody) {
		if !b.Faulted() {
			out = append(out, b)
		}
	})
	return out
}

// isolateFaults sanitizes every body and returns the ones still simulated.
func (w *World) isolateFaults(bodies []*body.RigidBody) []*body.RigidBody {
	kept := bodies[:0]
	for _, b := range bodies {
		if b.Sanitize() {
			w.log.Warn("body isolated after numerical fault", "body", b.ID, "step", w.steps)
		}
		if !b.Faulted() {
			kept = append(kept, b)
		}
	}
	return kept
}

type candidate struct {
	a, b *body.RigidBody
}

type sweepEntry struct {
	body   *body.RigidBody
	bounds geom.AABB
}

// broadPhase sorts bodies by their minimum X bound and sweeps for
// overlapping AABBs. Pairs of two static bodies and pairs rejected by the
// layer filter are skipped.
func (w *World) broadPhase(bodies []*body.RigidBody) []candidate {
	entries := make([]sweepEntry, 0, len(bodies))
	for _, b := range bodies {
		entries = append(entries, sweepEntry{body: b, bounds: b.Bounds()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].bounds.Min[0] < entries[j].bounds.Min[0]
	})

	var out []candidate
	for i := range entries {
		ei := entries[i]
		for j := i + 1; j < len(entries); j++ {
			ej := entries[j]
			if ej.bounds.Min[0] > ei.bounds.Max[0] {
				break
			}
			if ei.body.Type == body.Static && ej.body.Type == body.Static {
				continue
			}
			if !ei.bounds.Intersects(ej.bounds) || !ei.body.CanCollide(ej.body) {
				continue
			}
			a, b := ei.body, ej.body
			if a.ID > b.ID {
				a, b = b, a
			}
			out = append(out, candidate{a: a, b: b})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].a.ID != out[j].a.ID {
			return out[i].a.ID < out[j].a.ID
		}
		return out[i].b.ID < out[j].b.ID
	})
	return out
}

// narrowPhase runs the exact tests and fills w.contacts. It returns the
// touching pairs in candidate order.
func (w *World) narrowPhase(pairs []candidate) []pairKey {
	w.contacts = w.contacts[:0]
	current := make([]pairKey, 0, len(pairs))
	for _, p := range pairs {
		hit, m := collision.TestCollision(p.a.Shape, p.a.Position, p.a.Rotation, p.b.Shape, p.b.Position, p.b.Rotation)
		if !hit {
			continue
		}
		key := pairKey{a: p.a.ID, b: p.b.ID}
		current = append(current, key)
		w.contacts = append(w.contacts, solver.Contact{A: p.a, B: p.b, Manifold: m})
	}
	return current
}

// joints resolves the endpoints of every active link whose bodies are
// simulated.
func (w *World) joints() []solver.Joint {
	links := w.links.Active()
	out := make([]solver.Joint, 0, len(links))
	for _, l := range links {
		a, ok := w.bodies.get(l.EntityA)
		if !ok || a.Faulted() {
			continue
		}
		var b *body.RigidBody
		if !l.Anchored() {
			b, ok = w.bodies.get(l.EntityB)
			if !ok || b.Faulted() {
				continue
			}
		}
		out = append(out, solver.Joint{Link: l, A: a, B: b})
	}
	return out
}

// trackPairs compares this step's touching pairs with the previous step's
// and queues enter, stay and exit events.
func (w *World) trackPairs(current []pairKey) {
	next := make(map[pairKey]*collision.Manifold, len(current))
	for i, k := range current {
		m := w.contacts[i].Manifold
		next[k] = m
		kind := event.CollisionEnter
		if _, ok := w.active[k]; ok {
			kind = event.CollisionStay
		}
		w.queue.Push(CollisionEvent{Type: kind, BodyA: k.a, BodyB: k.b, Manifold: m})
	}
	for _, k := range w.order {
		if _, ok := next[k]; !ok {
			w.queue.Push(CollisionEvent{Type: event.CollisionExit, BodyA: k.a, BodyB: k.b})
		}
	}
	w.active = next
	w.order = append(w.order[:0], current...)
}
