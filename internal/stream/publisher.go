package stream

import (
	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/world"
)

// Publisher is a sim observer that sends a frame to a hub every Every
// steps. Events raised between frames ride along with the next one.
type Publisher struct {
	hub     *Hub
	every   int
	count   int
	pending []EventSummary
}

// NewPublisher subscribes to every event kind of w. every below one sends
// a frame per step.
func NewPublisher(hub *Hub, w *world.World, every int) *Publisher {
	if every < 1 {
		every = 1
	}
	p := &Publisher{hub: hub, every: every}
	w.OnAll(func(e event.Event) {
		if e.Kind() == event.CollisionStay {
			return
		}
		p.pending = append(p.pending, EventSummary{Kind: e.Kind().String(), Text: world.Describe(e)})
	})
	return p
}

func (p *Publisher) OnStep(w *world.World, t float64) {
	p.count++
	if p.count%p.every != 0 {
		return
	}
	p.hub.Broadcast(Snapshot(w, p.pending))
	p.pending = nil
}

// Snapshot builds a frame from the current world state.
func Snapshot(w *world.World, events []EventSummary) Frame {
	return Frame{
		Step:      w.Steps(),
		Time:      w.Time(),
		Integrity: w.Integrity(),
		Poses:     w.Poses(),
		Events:    events,
	}
}
