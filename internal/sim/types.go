package sim

import (
	"math"

	"github.com/san-kum/rigidsim/internal/world"
)

// State is one recorded row of probe values.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Metric folds the world after every step into one summary value.
type Metric interface {
	Name() string
	Observe(w *world.World, t float64)
	Value() float64
	Reset()
}

// Observer sees the world after every step.
type Observer interface {
	OnStep(w *world.World, t float64)
}

type Config struct {
	Dt       float64
	Duration float64
	Seed     int64
	// Probes are sampled after every step into Result.States.
	Probes []Probe
}

type Result struct {
	Names      []string
	States     []State
	Times      []float64
	Metrics    map[string]float64
	Events     map[string]int
	StepsTaken int
	Errors     []error
}

// Column returns the recorded series of the named probe.
func (r *Result) Column(name string) ([]float64, bool) {
	for i, n := range r.Names {
		if n != name {
			continue
		}
		out := make([]float64, len(r.States))
		for j, s := range r.States {
			out[j] = s[i]
		}
		return out, true
	}
	return nil, false
}
