package collision

import (
	"sort"

	"github.com/san-kum/rigidsim/internal/geom"
)

// MaxContacts caps the number of contacts kept per pair.
const MaxContacts = 4

type Contact struct {
	PointOnA geom.Vec3
	PointOnB geom.Vec3
	Normal   geom.Vec3
	Depth    float64
}

// Point returns the contact midpoint used as the application point for
// impulses.
func (c Contact) Point() geom.Vec3 {
	return c.PointOnA.Add(c.PointOnB).Mul(0.5)
}

type Manifold struct {
	Normal   geom.Vec3
	Contacts []Contact
}

// MaxDepth returns the deepest contact penetration.
func (m *Manifold) MaxDepth() float64 {
	d := 0.0
	for _, c := range m.Contacts {
		if c.Depth > d {
			d = c.Depth
		}
	}
	return d
}

func (m *Manifold) add(c Contact) {
	if c.Depth < 0 {
		c.Depth = 0
	}
	m.Contacts = append(m.Contacts, c)
}

// reduce keeps the deepest MaxContacts contacts.
func (m *Manifold) reduce() {
	if len(m.Contacts) <= MaxContacts {
		return
	}
	sort.SliceStable(m.Contacts, func(i, j int) bool {
		return m.Contacts[i].Depth > m.Contacts[j].Depth
	})
	m.Contacts = m.Contacts[:MaxContacts]
}

// Flip swaps the roles of A and B.
func (m *Manifold) Flip() {
	m.Normal = m.Normal.Mul(-1)
	for i := range m.Contacts {
		c := &m.Contacts[i]
		c.PointOnA, c.PointOnB = c.PointOnB, c.PointOnA
		c.Normal = c.Normal.Mul(-1)
	}
}

func single(normal, onA, onB geom.Vec3, depth float64) *Manifold {
	m := &Manifold{Normal: normal}
	m.add(Contact{PointOnA: onA, PointOnB: onB, Normal: normal, Depth: depth})
	return m
}
