package scene

import (
	"fmt"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/link"
	"github.com/san-kum/rigidsim/internal/world"
)

// Built maps scene indices to the handles the world assigned.
type Built struct {
	Bodies []body.EntityID
	Links  []*link.Link
	Chains []*link.Chain
	Meshes []*link.Mesh
}

// Body returns the handle of the i-th scene body, or body.None.
func (b *Built) Body(i int) body.EntityID {
	if i < 0 || i >= len(b.Bodies) {
		return body.None
	}
	return b.Bodies[i]
}

// Build registers every body, link, chain and cloth of the scene in w.
// It stops at the first rejected entity.
func (s *Scene) Build(w *world.World) (*Built, error) {
	out := &Built{Bodies: make([]body.EntityID, 0, len(s.Bodies))}

	for i, sb := range s.Bodies {
		rb, err := sb.rigidBody()
		if err != nil {
			return out, fmt.Errorf("scene: body %d: %w", i, err)
		}
		id, err := w.AddBody(rb)
		if err != nil {
			return out, fmt.Errorf("scene: body %d: %w", i, err)
		}
		out.Bodies = append(out.Bodies, id)
	}

	for i, sl := range s.Links {
		l, err := s.buildLink(w, out, sl)
		if err != nil {
			return out, fmt.Errorf("scene: link %d: %w", i, err)
		}
		out.Links = append(out.Links, l)
	}

	for i, sc := range s.Chains {
		p, err := sc.params()
		if err != nil {
			return out, fmt.Errorf("scene: chain %d: %w", i, err)
		}
		nodes, err := out.nodes(sc.Nodes)
		if err != nil {
			return out, fmt.Errorf("scene: chain %d: %w", i, err)
		}
		var anchors []geom.Vec3
		for _, a := range sc.Anchors {
			v, err := vec(a, geom.Vec3{})
			if err != nil {
				return out, fmt.Errorf("scene: chain %d: %w", i, err)
			}
			anchors = append(anchors, v)
		}
		c, err := w.CreateChain(nodes, anchors, p)
		if err != nil {
			return out, fmt.Errorf("scene: chain %d: %w", i, err)
		}
		out.Chains = append(out.Chains, c)
	}

	for i, sc := range s.Cloths {
		p, err := sc.params()
		if err != nil {
			return out, fmt.Errorf("scene: cloth %d: %w", i, err)
		}
		nodes, err := out.nodes(sc.Nodes)
		if err != nil {
			return out, fmt.Errorf("scene: cloth %d: %w", i, err)
		}
		m, err := w.CreateCloth(nodes, sc.Width, sc.Height, sc.Spacing, link.MeshParams{Params: p, DamageThreshold: sc.DamageThreshold})
		if err != nil {
			return out, fmt.Errorf("scene: cloth %d: %w", i, err)
		}
		out.Meshes = append(out.Meshes, m)
	}
	return out, nil
}

func (s *Scene) buildLink(w *world.World, out *Built, sl Link) (*link.Link, error) {
	p, err := sl.params()
	if err != nil {
		return nil, err
	}
	ends, err := out.nodes([]int{sl.A, sl.B})
	if err != nil {
		return nil, err
	}
	anchorA, err := vec(sl.AnchorA, geom.Vec3{})
	if err != nil {
		return nil, err
	}
	anchorB, err := vec(sl.AnchorB, geom.Vec3{})
	if err != nil {
		return nil, err
	}
	l, err := w.AddLink(ends[0], anchorA, ends[1], anchorB, p)
	if err != nil {
		return nil, err
	}
	if sl.State == "" && sl.CurrentRestLength == 0 {
		return l, nil
	}
	state, err := link.ParseState(sl.State)
	if err != nil {
		return nil, err
	}
	current := sl.CurrentRestLength
	if current == 0 {
		current = l.RestLength
	}
	if err := w.RestoreLink(l.ID, current, state); err != nil {
		return nil, err
	}
	return l, nil
}

func (b *Built) nodes(idx []int) ([]body.EntityID, error) {
	out := make([]body.EntityID, len(idx))
	for i, n := range idx {
		if n == World {
			out[i] = body.None
			continue
		}
		if n < 0 || n >= len(b.Bodies) {
			return nil, fmt.Errorf("%w: body index %d out of range", ErrInvalidScene, n)
		}
		out[i] = b.Bodies[n]
	}
	return out, nil
}

// Capture describes the current state of w. Chains and cloths are written
// as their individual links, so a captured scene rebuilds the same
// constraints without the aggregate bookkeeping. Links whose bodies were
// removed are left out.
func Capture(w *world.World) *Scene {
	s := &Scene{}
	index := make(map[body.EntityID]int)
	for i, rb := range w.Bodies() {
		index[rb.ID] = i
		s.Bodies = append(s.Bodies, bodyOf(rb))
	}

	endpoint := func(e body.EntityID) (int, bool) {
		if e == body.None {
			return World, true
		}
		i, ok := index[e]
		return i, ok
	}
	for _, l := range w.Links() {
		a, okA := endpoint(l.EntityA)
		b, okB := endpoint(l.EntityB)
		if !okA || !okB {
			continue
		}
		s.Links = append(s.Links, Link{
			A:                 a,
			AnchorA:           list(l.AnchorA),
			B:                 b,
			AnchorB:           list(l.AnchorB),
			Material:          materialOf(l.Params()),
			CurrentRestLength: l.CurrentRestLength,
			State:             l.State.String(),
		})
	}
	return s
}
