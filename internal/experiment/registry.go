package experiment

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/san-kum/rigidsim/internal/scene"
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/world"
)

// Scenario builds a scene from a seeded source and names the series a run
// records by default.
type Scenario struct {
	Name        string
	Description string
	Scene       func(rng *rand.Rand) *scene.Scene
	Probes      func(b *scene.Built, w *world.World) []sim.Probe
}

type Registry struct {
	scenarios map[string]Scenario
}

func NewRegistry() *Registry {
	r := &Registry{scenarios: make(map[string]Scenario)}
	for _, s := range []Scenario{
		dropScenario(),
		stackScenario(),
		pendulumScenario(),
		chainScenario(),
		bridgeScenario(),
		clothScenario(),
	} {
		r.Register(s)
	}
	return r
}

func (r *Registry) Register(s Scenario) {
	r.scenarios[s.Name] = s
}

func (r *Registry) Get(name string) (Scenario, error) {
	s, ok := r.scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario: %s", name)
	}
	return s, nil
}

// Scene builds the named scenario's scene for a seed.
func (r *Registry) Scene(name string, seed int64) (*scene.Scene, error) {
	s, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return s.Scene(rand.New(rand.NewSource(seed))), nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
