// Package event carries notifications out of a physics step.
//
// Producers push typed values implementing [Event] into a [Queue] while the
// step runs. The queue is drained only after the step has finished, so
// handlers always observe a consistent world.
package event

import "fmt"

type Kind int

const (
	CollisionEnter Kind = iota
	CollisionStay
	CollisionExit
	LinkBreak
	LinkYield
	LinkStretch
	ChainBreak
	MeshDamage

	numKinds
)

var kindNames = [numKinds]string{
	CollisionEnter: "collision_enter",
	CollisionStay:  "collision_stay",
	CollisionExit:  "collision_exit",
	LinkBreak:      "link_break",
	LinkYield:      "link_yield",
	LinkStretch:    "link_stretch",
	ChainBreak:     "chain_break",
	MeshDamage:     "mesh_damage",
}

func (k Kind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Kinds lists every event kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

type Event interface {
	Kind() Kind
}

// Queue is a FIFO of events. It is not safe for concurrent use.
type Queue struct {
	items  []Event
	counts [numKinds]int
}

func (q *Queue) Push(e Event) {
	q.items = append(q.items, e)
	if k := e.Kind(); k >= 0 && k < numKinds {
		q.counts[k]++
	}
}

func (q *Queue) Len() int { return len(q.items) }

// Drain hands every queued event to fn in push order and empties the queue.
// Events pushed by fn are delivered in the same drain.
func (q *Queue) Drain(fn func(Event)) {
	for i := 0; i < len(q.items); i++ {
		fn(q.items[i])
		q.items[i] = nil
	}
	q.items = q.items[:0]
}

// Total returns how many events of kind k were ever pushed.
func (q *Queue) Total(k Kind) int {
	if k < 0 || k >= numKinds {
		return 0
	}
	return q.counts[k]
}
