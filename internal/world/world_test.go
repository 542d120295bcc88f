package world_test

import (
	"bytes"
	"log/slog"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/link"
	"github.com/san-kum/rigidsim/internal/world"
)

const dt = 1.0 / 60

func newWorld(logs *bytes.Buffer) *world.World {
	cfg := world.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(logs, nil))
	w, err := world.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	return w
}

func addGround(w *world.World) body.EntityID {
	id, err := w.AddBody(body.New(0, body.Static, geom.Plane(geom.Vec3{0, 1, 0}, 0), 0))
	Expect(err).NotTo(HaveOccurred())
	return id
}

func addSphere(w *world.World, pos geom.Vec3, radius, mass float64) *body.RigidBody {
	b := body.New(0, body.Dynamic, geom.Sphere(radius), mass)
	b.Position = pos
	_, err := w.AddBody(b)
	Expect(err).NotTo(HaveOccurred())
	return b
}

func count(w *world.World, k event.Kind) *int {
	n := new(int)
	w.On(k, func(event.Event) { *n++ })
	return n
}

var _ = Describe("World", func() {
	var (
		logs bytes.Buffer
		w    *world.World
	)

	BeforeEach(func() {
		logs.Reset()
		w = newWorld(&logs)
	})

	Describe("sphere dropped on the ground", func() {
		It("enters contact within 100 steps and never falls through", func() {
			addGround(w)
			ball := addSphere(w, geom.Vec3{0, 10, 0}, 0.5, 1)
			enters := count(w, event.CollisionEnter)

			firstContact := -1
			for i := 1; i <= 100 && firstContact < 0; i++ {
				Expect(w.Step(dt)).To(Succeed())
				if *enters > 0 {
					firstContact = i
				}
			}
			Expect(firstContact).To(BeNumerically(">", 0), "no collision enter within 100 steps")

			for i := 0; i < 300; i++ {
				Expect(w.Step(dt)).To(Succeed())
				Expect(ball.Position[1]).To(BeNumerically(">=", -1e-6))
			}
			Expect(ball.Position[1]).To(BeNumerically("~", 0.5, 0.05))
			Expect(ball.LinearVelocity.Len()).To(BeNumerically("<", 0.1))
		})
	})

	Describe("collision events", func() {
		It("reports enter, stay and exit for a pair", func() {
			addGround(w)
			ball := addSphere(w, geom.Vec3{0, 0.45, 0}, 0.5, 1)
			var kinds []event.Kind
			w.OnAll(func(e event.Event) {
				if ce, ok := e.(world.CollisionEvent); ok {
					kinds = append(kinds, ce.Kind())
					Expect(ce.BodyA).To(BeNumerically("<", ce.BodyB))
				}
			})

			Expect(w.Step(dt)).To(Succeed())
			Expect(w.Step(dt)).To(Succeed())
			ball.Position = geom.Vec3{0, 50, 0}
			Expect(w.Step(dt)).To(Succeed())

			Expect(kinds).To(Equal([]event.Kind{event.CollisionEnter, event.CollisionStay, event.CollisionExit}))
		})

		It("puts the manifold normal from BodyA to BodyB", func() {
			ground := addGround(w)
			addSphere(w, geom.Vec3{0, 0.45, 0}, 0.5, 1)
			var normal geom.Vec3
			w.On(event.CollisionEnter, func(e event.Event) {
				ce := e.(world.CollisionEvent)
				Expect(ce.BodyA).To(Equal(ground))
				normal = ce.Manifold.Normal
			})
			Expect(w.Step(dt)).To(Succeed())
			Expect(normal[1]).To(BeNumerically("~", 1, 1e-9))
		})

		It("skips pairs filtered out by layer and mask", func() {
			addGround(w)
			ball := body.New(0, body.Dynamic, geom.Sphere(0.5), 1)
			ball.Position = geom.Vec3{0, 0.45, 0}
			ball.CollisionMask = 0
			_, err := w.AddBody(ball)
			Expect(err).NotTo(HaveOccurred())

			Expect(w.Step(dt)).To(Succeed())
			Expect(w.ContactCount()).To(BeZero())
		})
	})

	Describe("timestep validation", func() {
		DescribeTable("rejects invalid dt without touching the world",
			func(bad float64) {
				ball := addSphere(w, geom.Vec3{0, 10, 0}, 0.5, 1)
				Expect(w.Step(bad)).To(MatchError(world.ErrInvalidTimestep))
				Expect(w.Steps()).To(BeZero())
				Expect(ball.Position).To(Equal(geom.Vec3{0, 10, 0}))
			},
			Entry("negative", -dt),
			Entry("NaN", math.NaN()),
			Entry("infinite", math.Inf(1)),
		)

		It("treats a zero dt as a no-op", func() {
			addSphere(w, geom.Vec3{0, 10, 0}, 0.5, 1)
			Expect(w.Step(0)).To(Succeed())
			Expect(w.Steps()).To(BeZero())
		})
	})

	Describe("registration", func() {
		It("rejects a massless dynamic body once and keeps simulating", func() {
			bad := body.New(0, body.Dynamic, geom.Sphere(0.5), 0)
			id, err := w.AddBody(bad)
			Expect(err).To(MatchError(world.ErrInvalidMass))
			Expect(world.IsConfigError(err)).To(BeTrue())
			Expect(id).To(Equal(body.None))
			Expect(w.BodyCount()).To(BeZero())

			for i := 0; i < 10; i++ {
				Expect(w.Step(dt)).To(Succeed())
			}
			Expect(strings.Count(logs.String(), "entity rejected")).To(Equal(1))
		})

		It("rejects links to bodies that do not exist", func() {
			ball := addSphere(w, geom.Vec3{}, 0.5, 1)
			_, err := w.AddLink(ball.ID, geom.Vec3{}, body.EntityID(999), geom.Vec3{}, link.DefaultParams(link.Rope))
			Expect(err).To(MatchError(link.ErrInvalidLink))
			Expect(w.Links()).To(BeEmpty())
		})

		It("invalidates handles of removed bodies", func() {
			first := addSphere(w, geom.Vec3{}, 0.5, 1)
			old := first.ID
			Expect(w.RemoveBody(old)).To(Succeed())

			second := addSphere(w, geom.Vec3{}, 0.5, 1)
			Expect(second.ID).NotTo(Equal(old))
			_, err := w.Body(old)
			Expect(err).To(MatchError(world.ErrUnknownBody))
			Expect(w.RemoveBody(old)).To(MatchError(world.ErrUnknownBody))
		})
	})

	Describe("links", func() {
		It("converges a rigid link to its rest length", func() {
			w2, err := world.New(world.Config{Solver: world.DefaultConfig().Solver, Logger: slog.New(slog.NewTextHandler(&logs, nil))})
			Expect(err).NotTo(HaveOccurred())
			a := addSphere(w2, geom.Vec3{0, 0, 0}, 0.1, 1)
			b := addSphere(w2, geom.Vec3{1, 0, 0}, 0.1, 2)
			a.LinearVelocity = geom.Vec3{-3, 1, 0}
			b.LinearVelocity = geom.Vec3{2, 0, 4}
			p := link.DefaultParams(link.Rigid)
			p.RestLength = 1
			_, err = w2.AddLink(a.ID, geom.Vec3{}, b.ID, geom.Vec3{}, p)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 60; i++ {
				Expect(w2.Step(dt)).To(Succeed())
			}
			Expect(b.Position.Sub(a.Position).Len()).To(BeNumerically("~", 1, 1e-3))
		})

		It("swings a pendulum on a world anchor", func() {
			bob := addSphere(w, geom.Vec3{1, 0, 0}, 0.1, 1)
			p := link.DefaultParams(link.Rigid)
			_, err := w.AddLink(bob.ID, geom.Vec3{}, body.None, geom.Vec3{0, 0, 0}, p)
			Expect(err).NotTo(HaveOccurred())

			lowest := 0.0
			for i := 0; i < 120; i++ {
				Expect(w.Step(dt)).To(Succeed())
				Expect(bob.Position.Len()).To(BeNumerically("~", 1, 1e-3))
				lowest = math.Min(lowest, bob.Position[1])
			}
			Expect(lowest).To(BeNumerically("<", -0.9))
		})

		It("breaks an overloaded chain and splits it", func() {
			nodes := []body.EntityID{body.None}
			anchors := []geom.Vec3{{0, 10, 0}}
			for i := 1; i <= 3; i++ {
				mass := 1.0
				if i == 3 {
					mass = 100
				}
				nodes = append(nodes, addSphere(w, geom.Vec3{0, 10 - 0.5*float64(i), 0}, 0.1, mass).ID)
				anchors = append(anchors, geom.Vec3{})
			}
			_, err := w.CreateChain(nodes, anchors, link.DefaultParams(link.Rope))
			Expect(err).NotTo(HaveOccurred())

			breaks := count(w, event.LinkBreak)
			splits := count(w, event.ChainBreak)
			for i := 0; i < 240 && *splits == 0; i++ {
				Expect(w.Step(dt)).To(Succeed())
			}
			Expect(*breaks).To(BeNumerically(">=", 1))
			Expect(*splits).To(BeNumerically(">=", 1))
			Expect(w.Integrity()).To(BeNumerically("<", 1))
		})

		It("breaks links attached to a removed body", func() {
			a := addSphere(w, geom.Vec3{}, 0.1, 1)
			b := addSphere(w, geom.Vec3{1, 0, 0}, 0.1, 1)
			l, err := w.AddLink(a.ID, geom.Vec3{}, b.ID, geom.Vec3{}, link.DefaultParams(link.Elastic))
			Expect(err).NotTo(HaveOccurred())
			breaks := count(w, event.LinkBreak)

			Expect(w.RemoveBody(b.ID)).To(Succeed())
			Expect(l.State).To(Equal(link.Broken))
			Expect(*breaks).To(Equal(1))
			Expect(w.Step(dt)).To(Succeed())
		})

		Context("with a chain and no gravity", func() {
			var chain *link.Chain

			BeforeEach(func() {
				cfg := world.DefaultConfig()
				cfg.Gravity = geom.Vec3{}
				var err error
				w, err = world.New(cfg)
				Expect(err).NotTo(HaveOccurred())

				var nodes []body.EntityID
				for i := 0; i < 4; i++ {
					nodes = append(nodes, addSphere(w, geom.Vec3{float64(i), 0, 0}, 0.1, 1).ID)
				}
				chain, err = w.CreateChain(nodes, nil, link.DefaultParams(link.Rope))
				Expect(err).NotTo(HaveOccurred())
			})

			It("splits the chain as soon as a link is broken by hand", func() {
				splits := count(w, event.ChainBreak)
				Expect(w.BreakLink(chain.Links[1].ID)).To(Succeed())

				Expect(*splits).To(Equal(1))
				Expect(w.Chains()).To(HaveLen(2))
				for _, c := range w.Chains() {
					Expect(c.AnyBroken()).To(BeFalse())
				}
				Expect(w.Step(dt)).To(Succeed())
				Expect(*splits).To(Equal(1))
			})

			It("splits the chain when a node is removed", func() {
				splits := count(w, event.ChainBreak)
				Expect(w.RemoveBody(chain.Nodes[3])).To(Succeed())

				Expect(*splits).To(Equal(1))
				Expect(w.Chains()).To(HaveLen(1))
				Expect(w.Chains()[0].Links).To(HaveLen(2))
			})
		})
	})

	Describe("event dispatch", func() {
		It("defers removal requested by a handler until the drain ends", func() {
			addGround(w)
			ball := addSphere(w, geom.Vec3{0, 0.45, 0}, 0.5, 1)
			seenByLater := false
			w.On(event.CollisionEnter, func(event.Event) {
				Expect(w.RemoveBody(ball.ID)).To(Succeed())
			})
			w.On(event.CollisionEnter, func(event.Event) {
				_, err := w.Body(ball.ID)
				seenByLater = err == nil
			})

			Expect(w.Step(dt)).To(Succeed())
			Expect(seenByLater).To(BeTrue())
			_, err := w.Body(ball.ID)
			Expect(err).To(MatchError(world.ErrUnknownBody))
			Expect(w.EventTotal(event.CollisionExit)).To(Equal(1))
		})

		It("refuses to step from inside a handler", func() {
			addGround(w)
			addSphere(w, geom.Vec3{0, 0.45, 0}, 0.5, 1)
			var inner error
			w.On(event.CollisionEnter, func(event.Event) { inner = w.Step(dt) })
			Expect(w.Step(dt)).To(Succeed())
			Expect(inner).To(MatchError(world.ErrStepInProgress))
		})

		It("runs deferred work immediately outside a drain", func() {
			ran := false
			w.Defer(func(*world.World) { ran = true })
			Expect(ran).To(BeTrue())
		})
	})

	Describe("numerical faults", func() {
		It("isolates a non-finite body and keeps the rest moving", func() {
			bad := addSphere(w, geom.Vec3{0, 5, 0}, 0.5, 1)
			good := addSphere(w, geom.Vec3{10, 5, 0}, 0.5, 1)
			bad.LinearVelocity = geom.Vec3{math.NaN(), 0, 0}

			for i := 0; i < 5; i++ {
				Expect(w.Step(dt)).To(Succeed())
			}
			Expect(bad.Faulted()).To(BeTrue())
			Expect(bad.Position).To(Equal(geom.Vec3{0, 5, 0}))
			Expect(good.Position[1]).To(BeNumerically("<", 5))
			Expect(strings.Count(logs.String(), "body isolated")).To(Equal(1))
		})
	})

	Describe("kinematic bodies", func() {
		It("land exactly on their target and push dynamic bodies", func() {
			mover := body.New(0, body.Kinematic, geom.Box(geom.Vec3{0.5, 0.5, 0.5}), 0)
			id, err := w.AddBody(mover)
			Expect(err).NotTo(HaveOccurred())
			target := body.Pose{Position: geom.Vec3{0.2, 0, 0}, Rotation: mgl64.QuatIdent()}
			Expect(w.SetKinematicTarget(id, target)).To(Succeed())

			Expect(w.Step(dt)).To(Succeed())
			Expect(mover.Position).To(Equal(target.Position))

			ball := addSphere(w, geom.Vec3{1.0, 0, 0}, 0.5, 1)
			ball.UseGravity = false
			Expect(w.SetKinematicTarget(id, body.Pose{Position: geom.Vec3{0.4, 0, 0}, Rotation: mgl64.QuatIdent()})).To(Succeed())
			Expect(w.Step(dt)).To(Succeed())
			Expect(ball.LinearVelocity[0]).To(BeNumerically(">", 0))
		})

		It("refuses targets for dynamic bodies", func() {
			ball := addSphere(w, geom.Vec3{}, 0.5, 1)
			Expect(w.SetKinematicTarget(ball.ID, body.Pose{Rotation: mgl64.QuatIdent()})).NotTo(Succeed())
		})
	})

	Describe("raycast", func() {
		It("hits a box along an unobstructed axis", func() {
			box := body.New(0, body.Static, geom.Box(geom.Vec3{1, 1, 1}), 0)
			box.Position = geom.Vec3{5, 0, 0}
			id, err := w.AddBody(box)
			Expect(err).NotTo(HaveOccurred())

			hit, ok := w.Raycast(geom.Vec3{}, geom.Vec3{1, 0, 0}, 100)
			Expect(ok).To(BeTrue())
			Expect(hit.EntityID).To(Equal(id))
			Expect(hit.Distance).To(BeNumerically(">", 0))
			Expect(hit.Distance).To(BeNumerically("<", 6))
			Expect(hit.Distance).To(BeNumerically("~", 4, 1e-9))
			Expect(hit.Normal[0]).To(BeNumerically("~", -1, 1e-9))
		})

		It("misses in empty directions and honours the layer mask", func() {
			box := body.New(0, body.Static, geom.Box(geom.Vec3{1, 1, 1}), 0)
			box.Position = geom.Vec3{5, 0, 0}
			box.CollisionLayer = 2
			_, err := w.AddBody(box)
			Expect(err).NotTo(HaveOccurred())

			_, ok := w.Raycast(geom.Vec3{}, geom.Vec3{-1, 0, 0}, 100)
			Expect(ok).To(BeFalse())
			_, ok = w.RaycastFiltered(geom.Vec3{}, geom.Vec3{1, 0, 0}, 100, 1)
			Expect(ok).To(BeFalse())
			_, ok = w.RaycastFiltered(geom.Vec3{}, geom.Vec3{1, 0, 0}, 100, 2)
			Expect(ok).To(BeTrue())
		})

		It("returns the nearest of several bodies", func() {
			near := addSphere(w, geom.Vec3{3, 0, 0}, 0.5, 1)
			addSphere(w, geom.Vec3{8, 0, 0}, 0.5, 1)
			hit, ok := w.Raycast(geom.Vec3{}, geom.Vec3{2, 0, 0}, 0)
			Expect(ok).To(BeTrue())
			Expect(hit.EntityID).To(Equal(near.ID))
			Expect(hit.Point[0]).To(BeNumerically("~", 2.5, 1e-9))
		})
	})

	It("reports a pose for every live body", func() {
		addGround(w)
		ball := addSphere(w, geom.Vec3{0, 3, 0}, 0.5, 1)
		Expect(w.Step(dt)).To(Succeed())
		poses := w.Poses()
		Expect(poses).To(HaveLen(2))
		Expect(poses[1].ID).To(Equal(ball.ID))
		Expect(poses[1].Position).To(Equal(ball.Position))
	})
})
