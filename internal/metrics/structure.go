package metrics

import (
	"math"

	"github.com/san-kum/rigidsim/internal/link"
	"github.com/san-kum/rigidsim/internal/world"
)

// Integrity reports the lowest fraction of unbroken links seen.
type Integrity struct {
	name string
	min  float64
}

func NewIntegrity() *Integrity {
	return &Integrity{name: "integrity", min: 1}
}

func (m *Integrity) Name() string { return m.name }

func (m *Integrity) Observe(w *world.World, t float64) {
	m.min = math.Min(m.min, w.Integrity())
}

func (m *Integrity) Value() float64 { return m.min }
func (m *Integrity) Reset()         { m.min = 1 }

// MaxStretch reports the largest stretch ratio seen on an unbroken,
// non-rigid link. Rigid links are held at length by projection and would
// only report solver noise.
type MaxStretch struct {
	name string
	max  float64
}

func NewMaxStretch() *MaxStretch {
	return &MaxStretch{name: "max_stretch"}
}

func (m *MaxStretch) Name() string { return m.name }

func (m *MaxStretch) Observe(w *world.World, t float64) {
	for _, l := range w.Links() {
		if l.Active() && l.Type != link.Rigid {
			m.max = math.Max(m.max, l.StretchRatio)
		}
	}
}

func (m *MaxStretch) Value() float64 { return m.max }
func (m *MaxStretch) Reset()         { m.max = 0 }

// ContactCount reports the mean number of touching pairs per step.
type ContactCount struct {
	name    string
	total   int
	samples int
}

func NewContactCount() *ContactCount {
	return &ContactCount{name: "contacts"}
}

func (c *ContactCount) Name() string { return c.name }

func (c *ContactCount) Observe(w *world.World, t float64) {
	c.total += w.ContactCount()
	c.samples++
}

func (c *ContactCount) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.total) / float64(c.samples)
}

func (c *ContactCount) Reset() {
	c.total = 0
	c.samples = 0
}

// Settled reports the fraction of steps in which every dynamic body moved
// slower than threshold.
type Settled struct {
	name      string
	threshold float64
	settled   int
	samples   int
}

func NewSettled(threshold float64) *Settled {
	return &Settled{
		name:      "settled",
		threshold: threshold,
	}
}

func (s *Settled) Name() string {
	return s.name
}

func (s *Settled) Observe(w *world.World, t float64) {
	s.samples++
	for _, b := range w.Bodies() {
		if b.IsDynamic() && !b.Faulted() && b.LinearVelocity.Len() > s.threshold {
			return
		}
	}
	s.settled++
}

func (s *Settled) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.settled) / float64(s.samples)
}

func (s *Settled) Reset() {
	s.settled = 0
	s.samples = 0
}

// Defaults returns the metrics recorded for every run.
func Defaults() []Metric {
	return []Metric{
		NewKineticEnergy(),
		NewPotentialEnergy(),
		NewEnergyDrift(),
		NewIntegrity(),
		NewMaxStretch(),
		NewContactCount(),
		NewSettled(0.05),
	}
}
