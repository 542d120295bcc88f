package link_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/link"
)

var _ = Describe("Chain", func() {
	var (
		pos   positions
		sys   *link.System
		chain *link.Chain
	)

	BeforeEach(func() {
		pos = positions{1: {0, -1, 0}, 2: {0, -2, 0}, 3: {0, -3, 0}}
		sys = link.NewSystem(pos)
		nodes := []body.EntityID{body.None, 1, 2, 3}
		anchors := []geom.Vec3{{0, 0, 0}, {}, {}, {}}
		var err error
		chain, err = sys.CreateChain(nodes, anchors, link.DefaultParams(link.Rope))
		Expect(err).NotTo(HaveOccurred())
	})

	It("builds one link per pair of consecutive nodes", func() {
		Expect(chain.Links).To(HaveLen(3))
		Expect(chain.AnyBroken()).To(BeFalse())
		Expect(chain.Links[0].Anchored()).To(BeTrue())
		Expect(chain.Links[0].EntityA).To(Equal(body.EntityID(1)))
		for _, l := range chain.Links {
			Expect(l.RestLength).To(BeNumerically("~", 1, 1e-12))
		}
	})

	It("splits at an interior break into two new chains", func() {
		mid := chain.Links[1]
		events, err := sys.Break(mid.ID)
		Expect(err).NotTo(HaveOccurred())

		Expect(kinds(events)).To(Equal([]event.Kind{event.LinkBreak, event.ChainBreak}))
		split := events[1].(link.ChainBreakEvent)
		Expect(split.ChainID).To(Equal(chain.ID))
		Expect(split.LinkID).To(Equal(mid.ID))
		Expect(split.First).NotTo(Equal(link.NoChain))
		Expect(split.Second).NotTo(Equal(link.NoChain))
		Expect(split.First).NotTo(Equal(split.Second))
		Expect(split.Position[1]).To(BeNumerically("~", -1.5, 1e-12))

		_, ok := sys.Chain(chain.ID)
		Expect(ok).To(BeFalse())
		first, ok := sys.Chain(split.First)
		Expect(ok).To(BeTrue())
		Expect(first.Nodes).To(Equal([]body.EntityID{body.None, 1}))
		Expect(first.Parent).To(Equal(chain.ID))
		second, _ := sys.Chain(split.Second)
		Expect(second.Nodes).To(Equal([]body.EntityID{2, 3}))

		Expect(sys.Update(dt)).To(BeEmpty())
	})

	It("reports an empty side when the break is at the end", func() {
		events, err := sys.Break(chain.Links[2].ID)
		Expect(err).NotTo(HaveOccurred())

		Expect(events).To(HaveLen(2))
		split := events[1].(link.ChainBreakEvent)
		Expect(split.First).NotTo(Equal(link.NoChain))
		Expect(split.Second).To(Equal(link.NoChain))
		Expect(sys.Chains()).To(HaveLen(1))
	})

	It("splits again at every later break", func() {
		var events []event.Event
		for _, l := range chain.Links {
			ev, err := sys.Break(l.ID)
			Expect(err).NotTo(HaveOccurred())
			events = append(events, ev...)
		}
		Expect(kinds(events)).To(Equal([]event.Kind{
			event.LinkBreak, event.ChainBreak,
			event.LinkBreak, event.ChainBreak,
			event.LinkBreak, event.ChainBreak,
		}))
		Expect(sys.Chains()).To(BeEmpty())
		Expect(sys.Update(dt)).To(BeEmpty())
	})

	It("splits when a node body is detached", func() {
		events := sys.DetachEntity(2)
		Expect(kinds(events)).To(Equal([]event.Kind{
			event.LinkBreak, event.LinkBreak, event.ChainBreak, event.ChainBreak,
		}))
		Expect(sys.Chains()).To(HaveLen(1))
		Expect(sys.Chains()[0].Nodes).To(Equal([]body.EntityID{body.None, 1}))
	})

	It("rejects mismatched anchors", func() {
		_, err := sys.CreateChain([]body.EntityID{1, 2}, []geom.Vec3{{}}, link.DefaultParams(link.Rope))
		Expect(err).To(MatchError(link.ErrInvalidLink))
	})

	It("leaves no links behind when construction fails", func() {
		before := len(sys.Links())
		_, err := sys.CreateChain([]body.EntityID{1, 2, 99}, nil, link.DefaultParams(link.Elastic))
		Expect(err).To(MatchError(link.ErrInvalidLink))
		Expect(sys.Links()).To(HaveLen(before))
	})
})

var _ = Describe("Mesh", func() {
	const w, h = 3, 3

	var (
		sys  *link.System
		mesh *link.Mesh
	)

	BeforeEach(func() {
		pos := positions{}
		nodes := make([]body.EntityID, 0, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				id := body.EntityID(y*w + x)
				pos[id] = geom.Vec3{float64(x), -float64(y), 0}
				nodes = append(nodes, id)
			}
		}
		sys = link.NewSystem(pos)
		var err error
		mesh, err = sys.CreateCloth(nodes, w, h, 1, link.MeshParams{Params: link.DefaultParams(link.Plastic)})
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates structural, shear and bend links", func() {
		Expect(mesh.Structural).To(HaveLen(12))
		Expect(mesh.Shear).To(HaveLen(8))
		Expect(mesh.Bend).To(HaveLen(6))
		Expect(mesh.Shear[0].RestLength).To(BeNumerically("~", 1.41421356, 1e-6))
		Expect(mesh.Bend[0].RestLength).To(BeNumerically("~", 2, 1e-12))
		Expect(mesh.Integrity()).To(Equal(1.0))
		Expect(sys.Update(dt)).To(BeEmpty())
	})

	It("loses exactly one link worth of integrity per break", func() {
		total := len(mesh.All())
		_, err := sys.Break(mesh.Shear[3].ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(mesh.Integrity()).To(BeNumerically("~", float64(total-1)/float64(total), 1e-9))
	})

	It("reports damage around the broken links", func() {
		events, err := sys.Break(mesh.Structural[0].ID)
		Expect(err).NotTo(HaveOccurred())

		Expect(kinds(events)).To(Equal([]event.Kind{event.LinkBreak, event.MeshDamage}))
		dmg := events[1].(link.MeshDamageEvent)
		Expect(dmg.MeshID).To(Equal(mesh.ID))
		Expect(dmg.LinksLost).To(Equal(1))
		Expect(dmg.PreviousIntegrity).To(Equal(1.0))
		Expect(dmg.Integrity).To(BeNumerically("<", 1))
		Expect(dmg.Center[0]).To(BeNumerically("~", 0.5, 1e-12))
		Expect(dmg.Radius).To(BeZero())

		Expect(sys.Update(dt)).To(BeEmpty())
	})

	It("accumulates losses below the damage threshold", func() {
		sys2 := link.NewSystem(positions{0: {0, 0, 0}, 1: {1, 0, 0}, 2: {0, -1, 0}, 3: {1, -1, 0}})
		p := link.MeshParams{Params: link.DefaultParams(link.Elastic), DamageThreshold: 0.3}
		m, err := sys2.CreateCloth([]body.EntityID{0, 1, 2, 3}, 2, 2, 1, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.All()).To(HaveLen(6))

		events, err := sys2.Break(m.Structural[0].ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(kinds(events)).To(Equal([]event.Kind{event.LinkBreak}))
		Expect(sys2.Update(dt)).To(BeEmpty())

		events, err = sys2.Break(m.Structural[1].ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(2))
		Expect(events[1].(link.MeshDamageEvent).LinksLost).To(Equal(2))
	})

	It("only builds elastic or plastic cloth", func() {
		_, err := sys.CreateCloth(mesh.Nodes, w, h, 1, link.MeshParams{Params: link.DefaultParams(link.Rope)})
		Expect(err).To(MatchError(link.ErrInvalidLink))
		_, err = sys.CreateCloth(mesh.Nodes[:4], w, h, 1, link.MeshParams{Params: link.DefaultParams(link.Elastic)})
		Expect(err).To(MatchError(link.ErrInvalidLink))
	})
})
