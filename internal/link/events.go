package link

import (
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/geom"
)

// BreakEvent fires once when a link enters the Broken state.
type BreakEvent struct {
	LinkID   ID
	EntityA  body.EntityID
	EntityB  body.EntityID
	Type     Type
	Stretch  float64
	Position geom.Vec3
}

func (BreakEvent) Kind() event.Kind { return event.LinkBreak }

// YieldEvent fires when a plastic link absorbs stretch into its rest length.
type YieldEvent struct {
	LinkID             ID
	PreviousRestLength float64
	RestLength         float64
}

func (YieldEvent) Kind() event.Kind { return event.LinkYield }

// StretchEvent fires when a link's stress level first crosses
// [StretchWarning]. It re-arms once the stress drops back below.
type StretchEvent struct {
	LinkID      ID
	StressLevel float64
}

func (StretchEvent) Kind() event.Kind { return event.LinkStretch }

// ChainBreakEvent reports a chain split at a broken link. Second is -1 when
// the break happened at the end of the chain and left no second segment.
type ChainBreakEvent struct {
	ChainID  ChainID
	LinkID   ID
	First    ChainID
	Second   ChainID
	Position geom.Vec3
}

func (ChainBreakEvent) Kind() event.Kind { return event.ChainBreak }

// MeshDamageEvent reports lost integrity of a mesh. Center and Radius bound
// the links broken since the previous damage event.
type MeshDamageEvent struct {
	MeshID            MeshID
	LinksLost         int
	PreviousIntegrity float64
	Integrity         float64
	Center            geom.Vec3
	Radius            float64
}

func (MeshDamageEvent) Kind() event.Kind { return event.MeshDamage }
