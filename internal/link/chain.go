package link

import (
	"fmt"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/geom"
)

// ChainID identifies a chain. A split retires the old id and hands out new
// ones. NoChain marks an empty side of a split.
type ChainID int

const NoChain ChainID = -1

// Chain is an ordered path of links where link i joins Nodes[i] and
// Nodes[i+1].
type Chain struct {
	ID     ChainID
	Nodes  []body.EntityID
	Links  []*Link
	Parent ChainID
}

// AnyBroken reports whether some link of the chain is broken.
func (c *Chain) AnyBroken() bool { return c.firstBroken() >= 0 }

func (c *Chain) Integrity() float64 { return integrity(c.Links) }

func (c *Chain) firstBroken() int {
	for i, l := range c.Links {
		if !l.Active() {
			return i
		}
	}
	return -1
}

// CreateChain builds len(nodes)-1 links between consecutive nodes. anchors
// holds one body-local anchor per node and may be nil for centre anchors.
// A node equal to [body.None] is a fixed world point given by its anchor,
// which lets a chain hang from the world at either end.
func (s *System) CreateChain(nodes []body.EntityID, anchors []geom.Vec3, p Params) (*Chain, error) {
	if len(nodes) < 2 {
		return nil, fmt.Errorf("%w: chain needs at least two nodes, got %d", ErrInvalidLink, len(nodes))
	}
	if anchors != nil && len(anchors) != len(nodes) {
		return nil, fmt.Errorf("%w: %d anchors for %d nodes", ErrInvalidLink, len(anchors), len(nodes))
	}
	anchor := func(i int) geom.Vec3 {
		if anchors == nil {
			return geom.Vec3{}
		}
		return anchors[i]
	}

	links := make([]*Link, 0, len(nodes)-1)
	for i := 0; i+1 < len(nodes); i++ {
		a, b := i, i+1
		if nodes[a] == body.None {
			a, b = b, a
		}
		l, err := s.Add(nodes[a], anchor(a), nodes[b], anchor(b), p)
		if err != nil {
			s.rollback(len(links))
			return nil, fmt.Errorf("chain link %d: %w", i, err)
		}
		links = append(links, l)
	}
	c := &Chain{ID: s.nextChain, Nodes: append([]body.EntityID(nil), nodes...), Links: links, Parent: NoChain}
	s.nextChain++
	s.chains = append(s.chains, c)
	return c, nil
}

// rollback drops the last n links added, used when an aggregate fails
// halfway through construction.
func (s *System) rollback(n int) {
	for i := 0; i < n; i++ {
		last := s.links[len(s.links)-1]
		delete(s.index, last.ID)
		s.links = s.links[:len(s.links)-1]
	}
}

// splitChains replaces every chain holding a broken link by the segments on
// either side of its first broken link, repeating until no live chain holds
// a broken link.
func (s *System) splitChains() []event.Event {
	var events []event.Event
	for i := 0; i < len(s.chains); {
		c := s.chains[i]
		k := c.firstBroken()
		if k < 0 {
			i++
			continue
		}
		first := s.segment(c, c.Nodes[:k+1], c.Links[:k])
		second := s.segment(c, c.Nodes[k+1:], c.Links[k+1:])

		// Segments go where the old chain was so they are checked next.
		rest := append([]*Chain(nil), s.chains[i+1:]...)
		s.chains = s.chains[:i]
		ev := ChainBreakEvent{ChainID: c.ID, LinkID: c.Links[k].ID, First: NoChain, Second: NoChain, Position: c.Links[k].BreakPoint}
		if first != nil {
			ev.First = first.ID
			s.chains = append(s.chains, first)
		}
		if second != nil {
			ev.Second = second.ID
			s.chains = append(s.chains, second)
		}
		s.chains = append(s.chains, rest...)
		events = append(events, ev)
	}
	return events
}

func (s *System) segment(parent *Chain, nodes []body.EntityID, links []*Link) *Chain {
	if len(links) == 0 {
		return nil
	}
	c := &Chain{
		ID:     s.nextChain,
		Nodes:  append([]body.EntityID(nil), nodes...),
		Links:  append([]*Link(nil), links...),
		Parent: parent.ID,
	}
	s.nextChain++
	return c
}
