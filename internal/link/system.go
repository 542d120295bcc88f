package link

import (
	"fmt"
	"math"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/geom"
)

// Resolver maps a body-local anchor to world space. ok is false when the
// entity does not exist or is no longer simulated.
type Resolver interface {
	AnchorWorld(e body.EntityID, local geom.Vec3) (geom.Vec3, bool)
}

// ResolverFunc adapts a function to [Resolver].
type ResolverFunc func(e body.EntityID, local geom.Vec3) (geom.Vec3, bool)

func (f ResolverFunc) AnchorWorld(e body.EntityID, local geom.Vec3) (geom.Vec3, bool) {
	return f(e, local)
}

// System owns every link, chain and mesh of a world. Links keep their
// insertion order, which is also the order the solver visits them in.
type System struct {
	resolver Resolver

	links []*Link
	index map[ID]int

	chains    []*Chain
	meshes    []*Mesh
	nextLink  ID
	nextChain ChainID
	nextMesh  MeshID
}

func NewSystem(r Resolver) *System {
	return &System{
		resolver:  r,
		index:     make(map[ID]int),
		nextLink:  1,
		nextChain: 1,
		nextMesh:  1,
	}
}

// Add registers a link between anchorA on a and anchorB on b. When b is
// [body.None], anchorB is a fixed world point. A non-positive RestLength is
// replaced by the current anchor distance.
func (s *System) Add(a body.EntityID, anchorA geom.Vec3, b body.EntityID, anchorB geom.Vec3, p Params) (*Link, error) {
	l := New(s.nextLink, a, anchorA, b, anchorB, p)
	pa, pb, ok := s.Endpoints(l)
	if !ok {
		return nil, fmt.Errorf("%w: endpoint %d or %d is not a simulated body", ErrInvalidLink, a, b)
	}
	if !(l.RestLength > 0) {
		l.RestLength = pb.Sub(pa).Len()
		l.CurrentRestLength = l.RestLength
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	s.nextLink++
	s.index[l.ID] = len(s.links)
	s.links = append(s.links, l)
	return l, nil
}

// Get returns the link with the given id.
func (s *System) Get(id ID) (*Link, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLink, id)
	}
	return s.links[i], nil
}

// Links returns every link, broken ones included, in insertion order.
func (s *System) Links() []*Link { return s.links }

// Active returns the links that still take part in solving.
func (s *System) Active() []*Link {
	out := make([]*Link, 0, len(s.links))
	for _, l := range s.links {
		if l.Active() {
			out = append(out, l)
		}
	}
	return out
}

func (s *System) Chains() []*Chain { return s.chains }

func (s *System) Meshes() []*Mesh { return s.meshes }

// Chain returns a live chain by id.
func (s *System) Chain(id ChainID) (*Chain, bool) {
	for _, c := range s.chains {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Mesh returns a mesh by id.
func (s *System) Mesh(id MeshID) (*Mesh, bool) {
	for _, m := range s.meshes {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Endpoints returns the world positions of both link ends.
func (s *System) Endpoints(l *Link) (pa, pb geom.Vec3, ok bool) {
	pa, ok = s.resolver.AnchorWorld(l.EntityA, l.AnchorA)
	if !ok {
		return pa, pb, false
	}
	if l.Anchored() {
		return pa, l.AnchorB, true
	}
	pb, ok = s.resolver.AnchorWorld(l.EntityB, l.AnchorB)
	return pa, pb, ok
}

// Restore overwrites the mutable material state of a link, e.g. when a
// saved scene is loaded.
func (s *System) Restore(id ID, currentRest float64, state State) error {
	l, err := s.Get(id)
	if err != nil {
		return err
	}
	if currentRest < l.RestLength || math.IsNaN(currentRest) || math.IsInf(currentRest, 0) {
		return fmt.Errorf("%w: current rest length %v below rest length %v", ErrInvalidLink, currentRest, l.RestLength)
	}
	if l.State == Broken && state != Broken {
		return fmt.Errorf("%w: link %d is broken", ErrInvalidLink, id)
	}
	if !l.Type.reaches(state) {
		return fmt.Errorf("%w: %v link cannot be %v", ErrInvalidLink, l.Type, state)
	}
	l.CurrentRestLength = currentRest
	if state == Broken {
		// Restored breaks split their aggregates silently.
		if s.breakLink(l) {
			s.aggregate()
		}
		return nil
	}
	l.State = state
	return nil
}

// Update advances the material state of every active link for the current
// endpoint distances, then splits chains and measures mesh damage. The
// returned events are in link order followed by chain and mesh events.
func (s *System) Update(dt float64) []event.Event {
	var events []event.Event
	for _, l := range s.links {
		if !l.Active() {
			continue
		}
		pa, pb, ok := s.Endpoints(l)
		if !ok {
			continue
		}
		tr := l.Update(pb.Sub(pa).Len(), dt)
		switch {
		case tr.Broke:
			l.BreakPoint = pa.Add(pb).Mul(0.5)
			events = append(events, breakEvent(l))
		case tr.Yielded:
			events = append(events, YieldEvent{
				LinkID:             l.ID,
				PreviousRestLength: tr.PreviousRestLength,
				RestLength:         l.CurrentRestLength,
			})
		}
		if tr.Stretched {
			events = append(events, StretchEvent{LinkID: l.ID, StressLevel: l.StressLevel})
		}
	}
	return append(events, s.aggregate()...)
}

// aggregate splits chains at broken links and reports mesh damage.
func (s *System) aggregate() []event.Event {
	return append(s.splitChains(), s.measureMeshes()...)
}

// Break forces a link into the Broken state and splits or damages the
// aggregate it belongs to. Breaking an already broken link is a no-op that
// returns no event.
func (s *System) Break(id ID) ([]event.Event, error) {
	l, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !s.breakLink(l) {
		return nil, nil
	}
	return append([]event.Event{breakEvent(l)}, s.aggregate()...), nil
}

// DetachEntity breaks every active link attached to e. It must run while e
// can still be resolved so the break points are meaningful.
func (s *System) DetachEntity(e body.EntityID) []event.Event {
	var events []event.Event
	for _, l := range s.links {
		if l.EntityA != e && (l.Anchored() || l.EntityB != e) {
			continue
		}
		if s.breakLink(l) {
			events = append(events, breakEvent(l))
		}
	}
	if len(events) == 0 {
		return nil
	}
	return append(events, s.aggregate()...)
}

func (s *System) breakLink(l *Link) bool {
	if !l.Break() {
		return false
	}
	if pa, pb, ok := s.Endpoints(l); ok {
		l.BreakPoint = pa.Add(pb).Mul(0.5)
	}
	return true
}

func breakEvent(l *Link) BreakEvent {
	return BreakEvent{
		LinkID:   l.ID,
		EntityA:  l.EntityA,
		EntityB:  l.EntityB,
		Type:     l.Type,
		Stretch:  l.StretchRatio,
		Position: l.BreakPoint,
	}
}

// Integrity returns the fraction of unbroken links over all links, or 1
// when there are none.
func (s *System) Integrity() float64 {
	return integrity(s.links)
}

func integrity(links []*Link) float64 {
	if len(links) == 0 {
		return 1
	}
	intact := 0
	for _, l := range links {
		if l.Active() {
			intact++
		}
	}
	return float64(intact) / float64(len(links))
}
