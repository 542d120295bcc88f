package metrics

import (
	"math"

	"github.com/san-kum/rigidsim/internal/world"
)

// Kinetic sums the kinetic energy of every simulated dynamic body.
func Kinetic(w *world.World) float64 {
	e := 0.0
	for _, b := range w.Bodies() {
		if !b.Faulted() {
			e += b.KineticEnergy()
		}
	}
	return e
}

// Potential sums the gravitational potential energy of every simulated
// dynamic body that uses gravity, relative to the origin.
func Potential(w *world.World) float64 {
	g := w.Gravity()
	e := 0.0
	for _, b := range w.Bodies() {
		if b.IsDynamic() && b.UseGravity && !b.Faulted() {
			e -= b.Mass * g.Dot(b.Position)
		}
	}
	return e
}

// KineticEnergy reports the kinetic energy at the last observed step.
type KineticEnergy struct {
	name  string
	value float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string                      { return k.name }
func (k *KineticEnergy) Observe(w *world.World, t float64) { k.value = Kinetic(w) }
func (k *KineticEnergy) Value() float64                    { return k.value }
func (k *KineticEnergy) Reset()                            { k.value = 0 }

// PotentialEnergy reports the mean potential energy over the run.
type PotentialEnergy struct {
	name    string
	total   float64
	samples int
}

func NewPotentialEnergy() *PotentialEnergy {
	return &PotentialEnergy{name: "potential_energy"}
}

func (p *PotentialEnergy) Name() string { return p.name }

func (p *PotentialEnergy) Observe(w *world.World, t float64) {
	p.total += Potential(w)
	p.samples++
}

func (p *PotentialEnergy) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return p.total / float64(p.samples)
}

func (p *PotentialEnergy) Reset() {
	p.total = 0
	p.samples = 0
}

// EnergyDrift tracks the largest relative change of kinetic plus potential
// energy from the first observed step.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(w *world.World, t float64) {
	energy := Kinetic(w) + Potential(w)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
