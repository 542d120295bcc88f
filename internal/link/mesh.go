package link

import (
	"fmt"
	"math"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/geom"
)

type MeshID int

// MeshParams configures a cloth. Params.RestLength is ignored: rest lengths
// follow from the grid spacing. A damage event fires once integrity has
// dropped by at least DamageThreshold since the previous event.
type MeshParams struct {
	Params
	DamageThreshold float64
}

// Mesh is a cloth-like grid of nodes stored row-major, Width nodes per row.
type Mesh struct {
	ID            MeshID
	Width, Height int
	Spacing       float64
	Nodes         []body.EntityID

	Structural []*Link
	Shear      []*Link
	Bend       []*Link

	DamageThreshold float64

	lastIntegrity float64
	seen          map[ID]bool
	pending       []geom.Vec3
}

// All returns structural, shear and bend links in that order.
func (m *Mesh) All() []*Link {
	out := make([]*Link, 0, len(m.Structural)+len(m.Shear)+len(m.Bend))
	out = append(out, m.Structural...)
	out = append(out, m.Shear...)
	return append(out, m.Bend...)
}

// Integrity is the fraction of unbroken links across all three roles.
func (m *Mesh) Integrity() float64 { return integrity(m.All()) }

// Node returns the entity at grid cell (x, y).
func (m *Mesh) Node(x, y int) body.EntityID { return m.Nodes[y*m.Width+x] }

// CreateCloth connects a width x height grid of nodes with structural links
// between neighbours, shear links across each cell and bend links between
// nodes two apart. Links are Elastic or Plastic.
func (s *System) CreateCloth(nodes []body.EntityID, width, height int, spacing float64, p MeshParams) (*Mesh, error) {
	switch {
	case width < 1 || height < 1 || width*height < 2:
		return nil, fmt.Errorf("%w: cloth of %dx%d nodes", ErrInvalidLink, width, height)
	case len(nodes) != width*height:
		return nil, fmt.Errorf("%w: %d nodes for a %dx%d cloth", ErrInvalidLink, len(nodes), width, height)
	case !(spacing > 0) || math.IsInf(spacing, 0):
		return nil, fmt.Errorf("%w: spacing %v", ErrInvalidLink, spacing)
	case p.Type != Elastic && p.Type != Plastic:
		return nil, fmt.Errorf("%w: cloth links must be elastic or plastic, got %v", ErrInvalidLink, p.Type)
	case p.DamageThreshold < 0 || p.DamageThreshold > 1:
		return nil, fmt.Errorf("%w: damage threshold %v", ErrInvalidLink, p.DamageThreshold)
	}

	m := &Mesh{
		ID:              s.nextMesh,
		Width:           width,
		Height:          height,
		Spacing:         spacing,
		Nodes:           append([]body.EntityID(nil), nodes...),
		DamageThreshold: p.DamageThreshold,
		lastIntegrity:   1,
		seen:            make(map[ID]bool),
	}
	added := 0
	connect := func(dst *[]*Link, x0, y0, x1, y1 int, rest float64) error {
		lp := p.Params
		lp.RestLength = rest
		l, err := s.Add(m.Node(x0, y0), geom.Vec3{}, m.Node(x1, y1), geom.Vec3{}, lp)
		if err != nil {
			return fmt.Errorf("cloth link (%d,%d)-(%d,%d): %w", x0, y0, x1, y1, err)
		}
		added++
		*dst = append(*dst, l)
		return nil
	}

	diag := spacing * math.Sqrt2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var err error
			if x+1 < width {
				err = connect(&m.Structural, x, y, x+1, y, spacing)
			}
			if err == nil && y+1 < height {
				err = connect(&m.Structural, x, y, x, y+1, spacing)
			}
			if err == nil && x+1 < width && y+1 < height {
				err = connect(&m.Shear, x, y, x+1, y+1, diag)
				if err == nil {
					err = connect(&m.Shear, x+1, y, x, y+1, diag)
				}
			}
			if err == nil && x+2 < width {
				err = connect(&m.Bend, x, y, x+2, y, 2*spacing)
			}
			if err == nil && y+2 < height {
				err = connect(&m.Bend, x, y, x, y+2, 2*spacing)
			}
			if err != nil {
				s.rollback(added)
				return nil, err
			}
		}
	}
	s.nextMesh++
	s.meshes = append(s.meshes, m)
	return m, nil
}

// measureMeshes records newly broken links of every mesh and emits a
// damage event once integrity has dropped far enough.
func (s *System) measureMeshes() []event.Event {
	var events []event.Event
	for _, m := range s.meshes {
		for _, l := range m.All() {
			if !l.Active() && !m.seen[l.ID] {
				m.seen[l.ID] = true
				m.pending = append(m.pending, l.BreakPoint)
			}
		}
		now := m.Integrity()
		drop := m.lastIntegrity - now
		if drop <= 0 || drop < m.DamageThreshold {
			continue
		}
		center, radius := spread(m.pending)
		events = append(events, MeshDamageEvent{
			MeshID:            m.ID,
			LinksLost:         len(m.pending),
			PreviousIntegrity: m.lastIntegrity,
			Integrity:         now,
			Center:            center,
			Radius:            radius,
		})
		m.lastIntegrity = now
		m.pending = m.pending[:0]
	}
	return events
}

// spread returns the centroid of pts and the largest distance from it.
func spread(pts []geom.Vec3) (geom.Vec3, float64) {
	if len(pts) == 0 {
		return geom.Vec3{}, 0
	}
	var c geom.Vec3
	for _, p := range pts {
		c = c.Add(p)
	}
	c = c.Mul(1 / float64(len(pts)))
	r := 0.0
	for _, p := range pts {
		r = math.Max(r, p.Sub(c).Len())
	}
	return c, r
}
