package experiment

import (
	"math/rand"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/link"
	"github.com/san-kum/rigidsim/internal/scene"
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/world"
)

func ptr[T any](v T) *T { return &v }

func ground() scene.Body {
	return scene.Body{
		Type:  "static",
		Shape: scene.Shape{Kind: "plane", Normal: []float64{0, 1, 0}},
	}
}

func sphere(x, y, z, radius, mass float64) scene.Body {
	return scene.Body{
		Type:     "dynamic",
		Mass:     mass,
		Shape:    scene.Shape{Kind: "sphere", Radius: radius},
		Position: []float64{x, y, z},
	}
}

func box(x, y, z, half, mass float64) scene.Body {
	return scene.Body{
		Type:     "dynamic",
		Mass:     mass,
		Shape:    scene.Shape{Kind: "box", HalfExtents: []float64{half, half, half}},
		Position: []float64{x, y, z},
	}
}

// jitter returns a small symmetric offset so seeded runs differ.
func jitter(rng *rand.Rand, scale float64) float64 {
	return (rng.Float64()*2 - 1) * scale
}

func bodyProbes(b *scene.Built, idx ...int) []sim.Probe {
	var out []sim.Probe
	for _, i := range idx {
		id := b.Body(i)
		out = append(out, sim.BodyPosition(id, 0), sim.BodyPosition(id, 1), sim.BodySpeed(id))
	}
	return out
}

func dropScenario() Scenario {
	return Scenario{
		Name:        "drop",
		Description: "sphere dropped onto the ground",
		Scene: func(rng *rand.Rand) *scene.Scene {
			ball := sphere(jitter(rng, 0.01), 5, 0, 0.5, 1)
			ball.Restitution = ptr(0.3)
			return &scene.Scene{Name: "drop", Bodies: []scene.Body{ground(), ball}}
		},
		Probes: func(b *scene.Built, w *world.World) []sim.Probe {
			return append(bodyProbes(b, 1), sim.Contacts())
		},
	}
}

const stackHeight = 5

func stackScenario() Scenario {
	return Scenario{
		Name:        "stack",
		Description: "column of boxes settling on the ground",
		Scene: func(rng *rand.Rand) *scene.Scene {
			s := &scene.Scene{Name: "stack", Bodies: []scene.Body{ground()}}
			for i := 0; i < stackHeight; i++ {
				b := box(jitter(rng, 0.02), 0.5+float64(i)*1.01, 0, 0.5, 1)
				b.Restitution = ptr(0.0)
				s.Bodies = append(s.Bodies, b)
			}
			return s
		},
		Probes: func(b *scene.Built, w *world.World) []sim.Probe {
			return append(bodyProbes(b, stackHeight), sim.Contacts())
		},
	}
}

func pendulumScenario() Scenario {
	return Scenario{
		Name:        "pendulum",
		Description: "sphere swinging on a rigid link from a fixed pivot",
		Scene: func(rng *rand.Rand) *scene.Scene {
			bob := sphere(1.5, 3+jitter(rng, 0.05), 0, 0.25, 1)
			bob.Restitution = ptr(0.0)
			return &scene.Scene{
				Name:   "pendulum",
				Bodies: []scene.Body{ground(), bob},
				Links: []scene.Link{{
					A:        1,
					B:        scene.World,
					AnchorB:  []float64{0, 3, 0},
					Material: scene.Material{Type: link.Rigid.String()},
				}},
			}
		},
		Probes: func(b *scene.Built, w *world.World) []sim.Probe {
			return append(bodyProbes(b, 1), sim.LinkStretch(b.Links[0].ID))
		},
	}
}

const chainLinks = 5

func chainScenario() Scenario {
	return Scenario{
		Name:        "chain",
		Description: "rope chain overloaded by a heavy weight until it snaps",
		Scene: func(rng *rand.Rand) *scene.Scene {
			s := &scene.Scene{Name: "chain", Bodies: []scene.Body{ground()}}
			nodes := []int{scene.World}
			anchors := [][]float64{{0, 6, 0}}
			for i := 1; i <= chainLinks; i++ {
				mass := 0.5
				if i == chainLinks {
					mass = 50
				}
				s.Bodies = append(s.Bodies, sphere(jitter(rng, 0.01), 6-0.5*float64(i), 0, 0.15, mass))
				nodes = append(nodes, i)
				anchors = append(anchors, nil)
			}
			s.Chains = []scene.Chain{{
				Nodes:    nodes,
				Anchors:  anchors,
				Material: scene.Material{Type: link.Rope.String(), Stiffness: 1000, Damping: 5, MaxStretch: 1.3},
			}}
			return s
		},
		Probes: func(b *scene.Built, w *world.World) []sim.Probe {
			return append(bodyProbes(b, chainLinks), sim.Integrity())
		},
	}
}

const bridgeNodes = 7

func bridgeScenario() Scenario {
	return Scenario{
		Name:        "bridge",
		Description: "plastic rope bridge between two pylons sagging under a dropped load",
		Scene: func(rng *rand.Rand) *scene.Scene {
			s := &scene.Scene{Name: "bridge", Bodies: []scene.Body{ground()}}
			span := 6.0
			step := span / float64(bridgeNodes+1)
			nodes := []int{scene.World}
			anchors := [][]float64{{-span / 2, 3, 0}}
			for i := 1; i <= bridgeNodes; i++ {
				s.Bodies = append(s.Bodies, sphere(-span/2+step*float64(i), 3, 0, 0.2, 1))
				nodes = append(nodes, i)
				anchors = append(anchors, nil)
			}
			nodes = append(nodes, scene.World)
			anchors = append(anchors, []float64{span / 2, 3, 0})
			s.Chains = []scene.Chain{{
				Nodes:   nodes,
				Anchors: anchors,
				Material: scene.Material{
					Type:        link.Plastic.String(),
					Stiffness:   4000,
					Damping:     20,
					MaxStretch:  1.6,
					YieldRatio:  1.05,
					PlasticRate: 0.5,
				},
			}}
			s.Bodies = append(s.Bodies, box(jitter(rng, 0.1), 5, 0, 0.3, 20))
			return s
		},
		Probes: func(b *scene.Built, w *world.World) []sim.Probe {
			mid := (bridgeNodes + 1) / 2
			return append(bodyProbes(b, mid, bridgeNodes+1), sim.Integrity())
		},
	}
}

const (
	clothSize    = 6
	clothSpacing = 0.3
)

func clothScenario() Scenario {
	return Scenario{
		Name:        "cloth",
		Description: "cloth pinned at its top corners and torn by a thrown ball",
		Scene: func(rng *rand.Rand) *scene.Scene {
			s := &scene.Scene{Name: "cloth", Bodies: []scene.Body{ground()}}
			top := 1.0 + clothSpacing*float64(clothSize-1)
			nodes := make([]int, 0, clothSize*clothSize)
			for y := 0; y < clothSize; y++ {
				for x := 0; x < clothSize; x++ {
					n := sphere(float64(x)*clothSpacing, top-float64(y)*clothSpacing, 0, 0.05, 0.1)
					if y == 0 && (x == 0 || x == clothSize-1) {
						n.Type = body.Kinematic.String()
						n.Mass = 0
					}
					nodes = append(nodes, len(s.Bodies))
					s.Bodies = append(s.Bodies, n)
				}
			}
			s.Cloths = []scene.Cloth{{
				Nodes:           nodes,
				Width:           clothSize,
				Height:          clothSize,
				Spacing:         clothSpacing,
				Material:        scene.Material{Type: link.Elastic.String(), Stiffness: 400, Damping: 1, MaxStretch: 1.3},
				DamageThreshold: 0.02,
			}}
			mid := clothSpacing * float64(clothSize-1) / 2
			ball := sphere(mid+jitter(rng, 0.1), top-mid, 2, 0.4, 5)
			ball.Velocity = []float64{0, 0, -8}
			ball.Gravity = ptr(false)
			s.Bodies = append(s.Bodies, ball)
			return s
		},
		Probes: func(b *scene.Built, w *world.World) []sim.Probe {
			ball := len(b.Bodies) - 1
			return append(bodyProbes(b, ball), sim.Integrity(), sim.Contacts())
		},
	}
}
