package link

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
)

var (
	// ErrInvalidLink indicates link parameters or endpoints that cannot be
	// simulated.
	ErrInvalidLink = errors.New("link: invalid link")

	// ErrUnknownLink indicates a link id that is not registered.
	ErrUnknownLink = errors.New("link: unknown link")
)

const (
	// DefaultYieldRatio is the stretch ratio above which plastic links
	// start absorbing stretch into their rest length.
	DefaultYieldRatio = 1.1

	DefaultMaxStretchRatio = 1.5
	DefaultStiffness       = 1000
	DefaultPlasticRate     = 0.5

	// StretchWarning is the stress level at which a stretch event fires.
	StretchWarning = 0.8

	// yieldEpsilon is the smallest rest length growth reported as a yield.
	yieldEpsilon = 1e-6
)

type ID int

type Type int

const (
	Rigid Type = iota
	Elastic
	Plastic
	Rope
)

func (t Type) String() string {
	switch t {
	case Rigid:
		return "rigid"
	case Elastic:
		return "elastic"
	case Plastic:
		return "plastic"
	case Rope:
		return "rope"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

func ParseType(s string) (Type, error) {
	switch s {
	case "rigid":
		return Rigid, nil
	case "elastic":
		return Elastic, nil
	case "plastic":
		return Plastic, nil
	case "rope":
		return Rope, nil
	}
	return 0, fmt.Errorf("%w: unknown type %q", ErrInvalidLink, s)
}

type State int

const (
	Intact State = iota
	Slack
	Yielding
	Broken
)

// reaches reports whether a link of type t can ever be in state s.
func (t Type) reaches(s State) bool {
	switch s {
	case Intact, Broken:
		return true
	case Slack:
		return t == Rope
	case Yielding:
		return t == Plastic
	}
	return false
}

func (s State) String() string {
	switch s {
	case Intact:
		return "intact"
	case Slack:
		return "slack"
	case Yielding:
		return "yielding"
	case Broken:
		return "broken"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func ParseState(s string) (State, error) {
	switch s {
	case "", "intact":
		return Intact, nil
	case "slack":
		return Slack, nil
	case "yielding":
		return Yielding, nil
	case "broken":
		return Broken, nil
	}
	return 0, fmt.Errorf("%w: unknown state %q", ErrInvalidLink, s)
}

// Params is the material description shared by links, chains and meshes.
// A non-positive RestLength means "measure from the current anchor
// distance" when the link is registered.
type Params struct {
	Type            Type
	RestLength      float64
	Stiffness       float64
	Damping         float64
	MaxStretchRatio float64
	YieldRatio      float64
	PlasticRate     float64
}

// DefaultParams returns usable parameters for a link type.
func DefaultParams(t Type) Params {
	p := Params{
		Type:            t,
		Stiffness:       DefaultStiffness,
		MaxStretchRatio: DefaultMaxStretchRatio,
	}
	if t == Plastic {
		p.PlasticRate = DefaultPlasticRate
	}
	if t == Rigid {
		p.MaxStretchRatio = math.Inf(1)
	}
	return p
}

// Link is a distance constraint between two body anchors. EntityB ==
// [body.None] pins the link to the fixed world point AnchorB. AnchorA and
// AnchorB are otherwise expressed in the local frame of their body.
type Link struct {
	ID      ID
	EntityA body.EntityID
	AnchorA geom.Vec3
	EntityB body.EntityID
	AnchorB geom.Vec3

	Type              Type
	RestLength        float64
	CurrentRestLength float64
	Stiffness         float64
	Damping           float64
	MaxStretchRatio   float64
	YieldRatio        float64
	PlasticRate       float64

	State        State
	StretchRatio float64
	StressLevel  float64

	// BreakPoint is the midpoint of the endpoints when the link broke.
	BreakPoint geom.Vec3

	warned bool
}

// New builds an intact link. Zero material fields fall back to defaults.
func New(id ID, a body.EntityID, anchorA geom.Vec3, b body.EntityID, anchorB geom.Vec3, p Params) *Link {
	if p.MaxStretchRatio == 0 {
		p.MaxStretchRatio = DefaultParams(p.Type).MaxStretchRatio
	}
	if p.YieldRatio == 0 {
		p.YieldRatio = yieldRatioFor(p.MaxStretchRatio)
	}
	if p.Stiffness == 0 {
		p.Stiffness = DefaultStiffness
	}
	if p.PlasticRate == 0 && p.Type == Plastic {
		p.PlasticRate = DefaultPlasticRate
	}
	return &Link{
		ID:                id,
		EntityA:           a,
		AnchorA:           anchorA,
		EntityB:           b,
		AnchorB:           anchorB,
		Type:              p.Type,
		RestLength:        p.RestLength,
		CurrentRestLength: p.RestLength,
		Stiffness:         p.Stiffness,
		Damping:           p.Damping,
		MaxStretchRatio:   p.MaxStretchRatio,
		YieldRatio:        p.YieldRatio,
		PlasticRate:       p.PlasticRate,
		StretchRatio:      1,
	}
}

// yieldRatioFor keeps the yield threshold strictly below the break threshold.
func yieldRatioFor(maxStretch float64) float64 {
	if maxStretch > DefaultYieldRatio {
		return DefaultYieldRatio
	}
	return 1 + (maxStretch-1)/2
}

// Validate checks link parameters. Endpoint existence is checked by the
// owner.
func (l *Link) Validate() error {
	switch {
	case l.Type < Rigid || l.Type > Rope:
		return fmt.Errorf("%w: type %v", ErrInvalidLink, l.Type)
	case l.EntityA == body.None:
		return fmt.Errorf("%w: entity A must be a body", ErrInvalidLink)
	case l.EntityA == l.EntityB:
		return fmt.Errorf("%w: link %d connects entity %d to itself", ErrInvalidLink, l.ID, l.EntityA)
	case l.RestLength < 0 || math.IsNaN(l.RestLength) || math.IsInf(l.RestLength, 0):
		return fmt.Errorf("%w: rest length %v", ErrInvalidLink, l.RestLength)
	case l.Type != Rigid && l.RestLength == 0:
		return fmt.Errorf("%w: %v link needs a positive rest length", ErrInvalidLink, l.Type)
	case l.CurrentRestLength < l.RestLength:
		return fmt.Errorf("%w: current rest length %v below rest length %v", ErrInvalidLink, l.CurrentRestLength, l.RestLength)
	case l.Stiffness < 0 || l.Damping < 0 || l.PlasticRate < 0:
		return fmt.Errorf("%w: negative stiffness, damping or plastic rate", ErrInvalidLink)
	case l.Type != Rigid && !(l.Stiffness > 0):
		return fmt.Errorf("%w: %v link needs a positive stiffness", ErrInvalidLink, l.Type)
	case l.Type == Plastic && !(l.PlasticRate > 0):
		return fmt.Errorf("%w: plastic link needs a positive plastic rate", ErrInvalidLink)
	case l.Type != Rigid && !(l.MaxStretchRatio > 1):
		return fmt.Errorf("%w: max stretch ratio %v must exceed 1", ErrInvalidLink, l.MaxStretchRatio)
	case l.Type == Plastic && !(l.YieldRatio > 1 && l.YieldRatio < l.MaxStretchRatio):
		return fmt.Errorf("%w: yield ratio %v outside (1, %v)", ErrInvalidLink, l.YieldRatio, l.MaxStretchRatio)
	}
	return nil
}

// Anchored reports whether the B side is a fixed world point.
func (l *Link) Anchored() bool { return l.EntityB == body.None }

// Active reports whether the link still takes part in solving.
func (l *Link) Active() bool { return l.State != Broken }

// Params returns the material parameters of the link.
func (l *Link) Params() Params {
	return Params{
		Type:            l.Type,
		RestLength:      l.RestLength,
		Stiffness:       l.Stiffness,
		Damping:         l.Damping,
		MaxStretchRatio: l.MaxStretchRatio,
		YieldRatio:      l.YieldRatio,
		PlasticRate:     l.PlasticRate,
	}
}

// Transition reports what changed during one [Link.Update].
type Transition struct {
	From, To  State
	Broke     bool
	Yielded   bool
	Stretched bool
	// PreviousRestLength is the rest length before plastic growth.
	PreviousRestLength float64
}

// Update advances the material state for the current endpoint distance.
// Broken is terminal: later calls change nothing.
func (l *Link) Update(distance, dt float64) Transition {
	tr := Transition{From: l.State, To: l.State, PreviousRestLength: l.CurrentRestLength}
	if l.State == Broken {
		return tr
	}

	ratio := 1.0
	if l.CurrentRestLength > geom.Epsilon {
		ratio = distance / l.CurrentRestLength
	} else if distance > geom.Epsilon {
		ratio = math.Inf(1)
	}
	l.StretchRatio = ratio

	if l.Type == Rigid {
		l.StressLevel = 0
		l.State = Intact
		tr.To = Intact
		return tr
	}
	l.StressLevel = ratio / l.MaxStretchRatio

	if ratio > l.MaxStretchRatio {
		l.State = Broken
		tr.Broke = true
		tr.To = Broken
		return tr
	}

	switch l.Type {
	case Elastic:
		l.State = Intact
	case Rope:
		if distance <= l.CurrentRestLength {
			l.State = Slack
		} else {
			l.State = Intact
		}
	case Plastic:
		if ratio > l.YieldRatio {
			l.State = Yielding
			grow := l.PlasticRate * (distance - l.CurrentRestLength) * dt
			if grow > 0 {
				l.CurrentRestLength += grow
				tr.Yielded = grow > yieldEpsilon
			}
		} else {
			l.State = Intact
		}
	}
	tr.To = l.State

	over := l.StressLevel >= StretchWarning
	tr.Stretched = over && !l.warned
	l.warned = over
	return tr
}

// Break forces the link into the terminal state, e.g. when an endpoint body
// is removed. It reports whether the link was still active.
func (l *Link) Break() bool {
	if l.State == Broken {
		return false
	}
	l.State = Broken
	return true
}

// Tension returns the elastic restoring force magnitude for a distance:
// positive when pulling the endpoints together. Broken links, rigid links
// and slack ropes report zero.
func (l *Link) Tension(distance float64) float64 {
	if l.State == Broken || l.Type == Rigid {
		return 0
	}
	ext := distance - l.CurrentRestLength
	if l.Type == Rope && ext <= 0 {
		return 0
	}
	return l.Stiffness * ext
}
