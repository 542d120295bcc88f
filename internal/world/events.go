package world

import (
	"fmt"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/collision"
	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/link"
)

// CollisionEvent reports a pair entering, staying in or leaving contact.
// BodyA is always the lower handle and the manifold normal points from A to
// B. Exit events carry no manifold.
type CollisionEvent struct {
	Type     event.Kind
	BodyA    body.EntityID
	BodyB    body.EntityID
	Manifold *collision.Manifold
}

func (e CollisionEvent) Kind() event.Kind { return e.Type }

// Other returns the body on the other side of the pair from id.
func (e CollisionEvent) Other(id body.EntityID) body.EntityID {
	if e.BodyA == id {
		return e.BodyB
	}
	return e.BodyA
}

type Handler func(event.Event)

// On registers h for events of kind k. Handlers run after the step that
// produced the event, in registration order.
func (w *World) On(k event.Kind, h Handler) {
	w.handlers[k] = append(w.handlers[k], h)
}

// OnAll registers h for every event kind.
func (w *World) OnAll(h Handler) {
	for _, k := range event.Kinds() {
		w.On(k, h)
	}
}

// Defer runs fn once the current event drain has finished, or immediately
// when no drain is running.
func (w *World) Defer(fn func(*World)) {
	if w.dispatching {
		w.deferred = append(w.deferred, fn)
		return
	}
	fn(w)
	w.dispatch()
}

// EventTotal returns how many events of kind k the world has produced.
func (w *World) EventTotal(k event.Kind) int { return w.queue.Total(k) }

// dispatch drains the queue into the handlers, then runs deferred work and
// drains whatever that produced until both are empty.
func (w *World) dispatch() {
	if w.dispatching {
		return
	}
	w.dispatching = true
	for {
		w.queue.Drain(func(e event.Event) {
			for _, h := range w.handlers[e.Kind()] {
				h(e)
			}
		})
		if len(w.deferred) == 0 {
			break
		}
		pending := w.deferred
		w.deferred = nil
		for _, fn := range pending {
			fn(w)
		}
	}
	w.dispatching = false
}

// Describe renders an event as one short line for logs and status panels.
func Describe(e event.Event) string {
	switch ev := e.(type) {
	case CollisionEvent:
		return fmt.Sprintf("%v %d-%d", ev.Type, ev.BodyA, ev.BodyB)
	case link.BreakEvent:
		return fmt.Sprintf("%v link %d (%v) at stretch %.2f", e.Kind(), ev.LinkID, ev.Type, ev.Stretch)
	case link.YieldEvent:
		return fmt.Sprintf("%v link %d rest %.3f -> %.3f", e.Kind(), ev.LinkID, ev.PreviousRestLength, ev.RestLength)
	case link.StretchEvent:
		return fmt.Sprintf("%v link %d stress %.2f", e.Kind(), ev.LinkID, ev.StressLevel)
	case link.ChainBreakEvent:
		return fmt.Sprintf("%v chain %d -> %d, %d", e.Kind(), ev.ChainID, ev.First, ev.Second)
	case link.MeshDamageEvent:
		return fmt.Sprintf("%v mesh %d lost %d, integrity %.2f", e.Kind(), ev.MeshID, ev.LinksLost, ev.Integrity)
	}
	return e.Kind().String()
}
