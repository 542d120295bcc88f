package link_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/link"
)

const dt = 1.0 / 60

// positions is a resolver over fixed body centres.
type positions map[body.EntityID]geom.Vec3

func (p positions) AnchorWorld(e body.EntityID, local geom.Vec3) (geom.Vec3, bool) {
	c, ok := p[e]
	if !ok {
		return geom.Vec3{}, false
	}
	return c.Add(local), true
}

func kinds(events []event.Event) []event.Kind {
	out := make([]event.Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind()
	}
	return out
}

var _ = Describe("Link", func() {
	var (
		pos positions
		sys *link.System
	)

	BeforeEach(func() {
		pos = positions{1: {0, 0, 0}, 2: {1, 0, 0}}
		sys = link.NewSystem(pos)
	})

	add := func(p link.Params) *link.Link {
		l, err := sys.Add(1, geom.Vec3{}, 2, geom.Vec3{}, p)
		Expect(err).NotTo(HaveOccurred())
		return l
	}

	Describe("registration", func() {
		It("measures the rest length from the anchors when none is given", func() {
			l := add(link.DefaultParams(link.Elastic))
			Expect(l.RestLength).To(BeNumerically("~", 1, 1e-12))
			Expect(l.CurrentRestLength).To(Equal(l.RestLength))
			Expect(l.State).To(Equal(link.Intact))
		})

		It("rejects endpoints that do not exist", func() {
			_, err := sys.Add(1, geom.Vec3{}, 7, geom.Vec3{}, link.DefaultParams(link.Rope))
			Expect(err).To(MatchError(link.ErrInvalidLink))
			Expect(sys.Links()).To(BeEmpty())
		})

		It("rejects a link from a body to itself", func() {
			_, err := sys.Add(1, geom.Vec3{}, 1, geom.Vec3{0, 1, 0}, link.DefaultParams(link.Elastic))
			Expect(err).To(MatchError(link.ErrInvalidLink))
		})

		It("keeps the yield threshold below the break threshold", func() {
			p := link.DefaultParams(link.Plastic)
			p.MaxStretchRatio = 1.05
			l := add(p)
			Expect(l.YieldRatio).To(BeNumerically(">", 1))
			Expect(l.YieldRatio).To(BeNumerically("<", l.MaxStretchRatio))
		})

		It("resolves world anchored links without a second body", func() {
			l, err := sys.Add(1, geom.Vec3{}, body.None, geom.Vec3{0, 2, 0}, link.DefaultParams(link.Rope))
			Expect(err).NotTo(HaveOccurred())
			Expect(l.Anchored()).To(BeTrue())
			Expect(l.RestLength).To(BeNumerically("~", 2, 1e-12))
		})

		It("fills in stiffness and plastic rate left at zero", func() {
			l := add(link.Params{Type: link.Plastic, RestLength: 1, Damping: 1})
			Expect(l.Stiffness).To(Equal(float64(link.DefaultStiffness)))
			Expect(l.PlasticRate).To(Equal(link.DefaultPlasticRate))

			pos[2] = geom.Vec3{1.3, 0, 0}
			sys.Update(dt)
			Expect(l.State).To(Equal(link.Yielding))
			Expect(l.CurrentRestLength).To(BeNumerically(">", 1))
		})

		It("gives elastic links a stiffness and leaves others without a plastic rate", func() {
			l := add(link.Params{Type: link.Elastic, RestLength: 1})
			Expect(l.Stiffness).To(Equal(float64(link.DefaultStiffness)))
			Expect(l.PlasticRate).To(BeZero())
		})

		DescribeTable("rejects material parameters that leave a link inert",
			func(p link.Params) {
				_, err := sys.Add(1, geom.Vec3{}, 2, geom.Vec3{}, p)
				Expect(err).To(MatchError(link.ErrInvalidLink))
				Expect(sys.Links()).To(BeEmpty())
			},
			Entry("negative stiffness", link.Params{Type: link.Rope, RestLength: 1, Stiffness: -1}),
			Entry("negative plastic rate", link.Params{Type: link.Plastic, RestLength: 1, PlasticRate: -0.5}),
		)

		It("reports unknown ids", func() {
			_, err := sys.Get(42)
			Expect(err).To(MatchError(link.ErrUnknownLink))
		})
	})

	Describe("plastic yielding", func() {
		var l *link.Link

		BeforeEach(func() {
			p := link.DefaultParams(link.Plastic)
			p.RestLength = 1
			p.MaxStretchRatio = 1.5
			l = add(p)
		})

		It("grows the rest length past the yield threshold without breaking", func() {
			pos[2] = geom.Vec3{1.2, 0, 0}
			events := sys.Update(dt)

			Expect(l.State).To(Equal(link.Yielding))
			Expect(l.CurrentRestLength).To(BeNumerically(">", 1))
			Expect(l.CurrentRestLength).To(BeNumerically("~", 1+link.DefaultPlasticRate*0.2*dt, 1e-12))
			Expect(kinds(events)).To(ContainElement(event.LinkYield))
		})

		It("never shrinks the rest length", func() {
			pos[2] = geom.Vec3{1.3, 0, 0}
			for i := 0; i < 30; i++ {
				sys.Update(dt)
			}
			grown := l.CurrentRestLength
			pos[2] = geom.Vec3{0.5, 0, 0}
			sys.Update(dt)

			Expect(l.CurrentRestLength).To(Equal(grown))
			Expect(l.RestLength).To(Equal(1.0))
			Expect(l.State).To(Equal(link.Intact))
		})

		It("behaves elastically below the yield threshold", func() {
			pos[2] = geom.Vec3{1.05, 0, 0}
			events := sys.Update(dt)
			Expect(l.State).To(Equal(link.Intact))
			Expect(l.CurrentRestLength).To(Equal(1.0))
			Expect(kinds(events)).NotTo(ContainElement(event.LinkYield))
		})
	})

	Describe("breaking", func() {
		DescribeTable("over-stretched links break in the crossing step and stay broken",
			func(t link.Type) {
				p := link.DefaultParams(t)
				p.RestLength = 1
				p.MaxStretchRatio = 1.5
				l := add(p)

				pos[2] = geom.Vec3{1.6, 0, 0}
				events := sys.Update(dt)
				Expect(l.State).To(Equal(link.Broken))
				Expect(events).To(HaveLen(1))
				brk, ok := events[0].(link.BreakEvent)
				Expect(ok).To(BeTrue())
				Expect(brk.LinkID).To(Equal(l.ID))
				Expect(brk.Position[0]).To(BeNumerically("~", 0.8, 1e-12))

				for _, x := range []float64{1, 0.2, 3} {
					pos[2] = geom.Vec3{x, 0, 0}
					Expect(sys.Update(dt)).To(BeEmpty())
					Expect(l.State).To(Equal(link.Broken))
					Expect(l.Tension(x)).To(BeZero())
				}
				Expect(sys.Active()).To(BeEmpty())
			},
			Entry("elastic", link.Elastic),
			Entry("plastic", link.Plastic),
			Entry("rope", link.Rope),
		)

		It("never breaks a rigid link", func() {
			l := add(link.DefaultParams(link.Rigid))
			pos[2] = geom.Vec3{10, 0, 0}
			Expect(sys.Update(dt)).To(BeEmpty())
			Expect(l.State).To(Equal(link.Intact))
		})

		It("breaks links attached to a detached entity once", func() {
			l := add(link.DefaultParams(link.Elastic))
			Expect(sys.DetachEntity(2)).To(HaveLen(1))
			Expect(sys.DetachEntity(2)).To(BeEmpty())
			Expect(l.State).To(Equal(link.Broken))
		})

		It("refuses to restore a broken link", func() {
			l := add(link.DefaultParams(link.Elastic))
			_, err := sys.Break(l.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(sys.Restore(l.ID, 1, link.Intact)).To(MatchError(link.ErrInvalidLink))
		})

		It("records where a link restored as broken snapped", func() {
			pos[2] = geom.Vec3{1, 2, 0}
			l := add(link.DefaultParams(link.Elastic))
			Expect(sys.Restore(l.ID, l.RestLength, link.Broken)).To(Succeed())
			Expect(l.State).To(Equal(link.Broken))
			Expect(l.BreakPoint).To(Equal(geom.Vec3{0.5, 1, 0}))
		})
	})

	Describe("restoring", func() {
		DescribeTable("accepts only states the link type can reach",
			func(t link.Type, state link.State, ok bool) {
				l := add(link.DefaultParams(t))
				err := sys.Restore(l.ID, l.RestLength, state)
				if ok {
					Expect(err).NotTo(HaveOccurred())
					Expect(l.State).To(Equal(state))
					return
				}
				Expect(err).To(MatchError(link.ErrInvalidLink))
				Expect(l.State).To(Equal(link.Intact))
			},
			Entry("slack rope", link.Rope, link.Slack, true),
			Entry("yielding plastic", link.Plastic, link.Yielding, true),
			Entry("intact rigid", link.Rigid, link.Intact, true),
			Entry("slack elastic", link.Elastic, link.Slack, false),
			Entry("slack plastic", link.Plastic, link.Slack, false),
			Entry("yielding rope", link.Rope, link.Yielding, false),
			Entry("yielding rigid", link.Rigid, link.Yielding, false),
			Entry("unknown state", link.Elastic, link.State(9), false),
		)
	})

	Describe("rope", func() {
		It("goes slack in compression and applies no force", func() {
			p := link.DefaultParams(link.Rope)
			p.RestLength = 1
			l := add(p)

			pos[2] = geom.Vec3{0.5, 0, 0}
			sys.Update(dt)
			Expect(l.State).To(Equal(link.Slack))
			Expect(l.Tension(0.5)).To(BeZero())

			pos[2] = geom.Vec3{1.2, 0, 0}
			sys.Update(dt)
			Expect(l.State).To(Equal(link.Intact))
			Expect(l.Tension(1.2)).To(BeNumerically(">", 0))
		})
	})

	Describe("stretch monitoring", func() {
		It("fires once per crossing of the warning level", func() {
			p := link.DefaultParams(link.Elastic)
			p.RestLength = 1
			p.MaxStretchRatio = 1.5
			add(p)

			stretch := func(x float64) []event.Kind {
				pos[2] = geom.Vec3{x, 0, 0}
				return kinds(sys.Update(dt))
			}
			Expect(stretch(1.3)).To(Equal([]event.Kind{event.LinkStretch}))
			Expect(stretch(1.3)).To(BeEmpty())
			Expect(stretch(1.0)).To(BeEmpty())
			Expect(stretch(1.3)).To(Equal([]event.Kind{event.LinkStretch}))
		})
	})

	Describe("parsing", func() {
		It("round-trips types and states", func() {
			for _, t := range []link.Type{link.Rigid, link.Elastic, link.Plastic, link.Rope} {
				got, err := link.ParseType(t.String())
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(t))
			}
			for _, s := range []link.State{link.Intact, link.Slack, link.Yielding, link.Broken} {
				got, err := link.ParseState(s.String())
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(s))
			}
			_, err := link.ParseType("spring")
			Expect(err).To(MatchError(link.ErrInvalidLink))
		})
	})

	It("treats infinite stretch of a zero length rigid link as harmless", func() {
		l, err := sys.Add(1, geom.Vec3{}, 2, geom.Vec3{-1, 0, 0}, link.DefaultParams(link.Rigid))
		Expect(err).NotTo(HaveOccurred())
		Expect(l.RestLength).To(BeZero())
		pos[2] = geom.Vec3{2, 0, 0}
		sys.Update(dt)
		Expect(l.State).To(Equal(link.Intact))
		Expect(math.IsInf(l.StretchRatio, 1)).To(BeTrue())
	})
})
