// Package solver resolves contacts and links with sequential impulses.
//
// A step is split around position integration: [Solver.Prepare] and
// [Solver.SolveVelocities] run before bodies move, [Solver.SolvePositions]
// runs after and removes residual penetration and rigid link drift by
// moving bodies directly.
package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/collision"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/link"
)

var ErrInvalidConfig = errors.New("solver: invalid config")

// CombineRule merges a material parameter of two bodies into one value for
// the pair.
type CombineRule int

const (
	Average CombineRule = iota
	GeometricMean
	Minimum
	Maximum
	Multiply
)

func (r CombineRule) String() string {
	switch r {
	case Average:
		return "average"
	case GeometricMean:
		return "geometric"
	case Minimum:
		return "min"
	case Maximum:
		return "max"
	case Multiply:
		return "multiply"
	}
	return fmt.Sprintf("rule(%d)", int(r))
}

func ParseCombineRule(s string) (CombineRule, error) {
	for r := Average; r <= Multiply; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown combine rule %q", ErrInvalidConfig, s)
}

func (r CombineRule) Combine(a, b float64) float64 {
	switch r {
	case GeometricMean:
		return math.Sqrt(a * b)
	case Minimum:
		return math.Min(a, b)
	case Maximum:
		return math.Max(a, b)
	case Multiply:
		return a * b
	}
	return (a + b) / 2
}

type Config struct {
	// Iterations is the number of velocity passes over all constraints.
	Iterations int
	// PositionIterations is the number of projection passes after
	// integration.
	PositionIterations int
	// Baumgarte feeds this fraction of penetration and rigid link error back
	// into the velocity target every step.
	Baumgarte float64
	// Slop is the penetration depth left uncorrected to keep contacts warm.
	Slop float64
	// PositionCorrection is the fraction of remaining penetration removed
	// per projection pass, capped at MaxCorrection.
	PositionCorrection float64
	MaxCorrection      float64
	// Approach speeds below RestitutionThreshold do not bounce.
	RestitutionThreshold float64
	RestitutionRule      CombineRule
	FrictionRule         CombineRule
}

func DefaultConfig() Config {
	return Config{
		Iterations:           10,
		PositionIterations:   3,
		Baumgarte:            0.2,
		Slop:                 0.005,
		PositionCorrection:   0.2,
		MaxCorrection:        0.2,
		RestitutionThreshold: 1,
		RestitutionRule:      Average,
		FrictionRule:         GeometricMean,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Iterations < 1:
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidConfig, c.Iterations)
	case c.PositionIterations < 0:
		return fmt.Errorf("%w: position iterations %d", ErrInvalidConfig, c.PositionIterations)
	case c.Baumgarte < 0 || c.Baumgarte > 1:
		return fmt.Errorf("%w: baumgarte %v outside [0, 1]", ErrInvalidConfig, c.Baumgarte)
	case c.PositionCorrection < 0 || c.PositionCorrection > 1:
		return fmt.Errorf("%w: position correction %v outside [0, 1]", ErrInvalidConfig, c.PositionCorrection)
	case c.Slop < 0 || c.MaxCorrection < 0 || c.RestitutionThreshold < 0:
		return fmt.Errorf("%w: negative slop, max correction or restitution threshold", ErrInvalidConfig)
	case c.RestitutionRule < Average || c.RestitutionRule > Multiply:
		return fmt.Errorf("%w: restitution rule %v", ErrInvalidConfig, c.RestitutionRule)
	case c.FrictionRule < Average || c.FrictionRule > Multiply:
		return fmt.Errorf("%w: friction rule %v", ErrInvalidConfig, c.FrictionRule)
	}
	return nil
}

// Contact is a touching pair produced by the narrow phase.
type Contact struct {
	A, B     *body.RigidBody
	Manifold *collision.Manifold
}

// Joint is an active link with its endpoint bodies resolved. B is nil for
// links anchored to the world.
type Joint struct {
	Link *link.Link
	A, B *body.RigidBody
}

type Solver struct {
	cfg      Config
	dt       float64
	contacts []contactConstraint
	joints   []jointConstraint
}

func New(cfg Config) *Solver {
	return &Solver{cfg: cfg}
}

func (s *Solver) Config() Config { return s.cfg }

// Prepare builds the constraint rows for one step. Contacts and joints are
// solved in the order given.
func (s *Solver) Prepare(contacts []Contact, joints []Joint, dt float64) {
	s.dt = dt
	s.contacts = s.contacts[:0]
	for _, c := range contacts {
		if cc, ok := s.prepareContact(c); ok {
			s.contacts = append(s.contacts, cc)
		}
	}
	s.joints = s.joints[:0]
	for _, j := range joints {
		if jc, ok := s.prepareJoint(j); ok {
			s.joints = append(s.joints, jc)
		}
	}
}

// SolveVelocities runs the configured number of impulse passes. Joints are
// visited before contacts so that contacts have the last word on
// penetration.
func (s *Solver) SolveVelocities() {
	for it := 0; it < s.cfg.Iterations; it++ {
		for i := range s.joints {
			s.joints[i].solveVelocity()
		}
		for i := range s.contacts {
			s.contacts[i].solveVelocity()
		}
	}
}

// SolvePositions projects rigid links back to length and pushes
// penetrating bodies apart. Call after position integration.
func (s *Solver) SolvePositions() {
	for it := 0; it < s.cfg.PositionIterations; it++ {
		for i := range s.joints {
			s.joints[i].solvePosition()
		}
		for i := range s.contacts {
			s.contacts[i].solvePosition(s.cfg)
		}
	}
}

// NormalImpulse returns the total normal impulse applied to contact i of
// the prepared set.
func (s *Solver) NormalImpulse(i int) float64 {
	if i < 0 || i >= len(s.contacts) {
		return 0
	}
	total := 0.0
	for _, p := range s.contacts[i].points {
		total += p.accN
	}
	return total
}

// linearInv returns the inverse mass seen along n, ignoring frozen axes.
func linearInv(b *body.RigidBody, n geom.Vec3) float64 {
	if b == nil || !b.IsDynamic() {
		return 0
	}
	s := 0.0
	for i := 0; i < 3; i++ {
		if !b.FreezePosition.Has(i) {
			s += n[i] * n[i]
		}
	}
	return b.InverseMass * s
}

func angularInv(b *body.RigidBody, r, n geom.Vec3) float64 {
	if b == nil || !b.IsDynamic() {
		return 0
	}
	rn := r.Cross(n)
	return b.InverseInertiaWorld().Mul3x1(rn).Dot(rn)
}

func velocityAt(b *body.RigidBody, p geom.Vec3) geom.Vec3 {
	if b == nil {
		return geom.Vec3{}
	}
	return b.VelocityAtPoint(p)
}

// applyPair applies -p to a and +p to b at point.
func applyPair(a, b *body.RigidBody, p, point geom.Vec3) {
	if a != nil {
		a.ApplyImpulseAtPoint(p.Mul(-1), point)
	}
	if b != nil {
		b.ApplyImpulseAtPoint(p, point)
	}
}

// splitTranslate moves a by -d and b by +d in proportion to inverse mass.
func splitTranslate(a, b *body.RigidBody, n geom.Vec3, c float64) {
	wa, wb := linearInv(a, n), linearInv(b, n)
	w := wa + wb
	if w < geom.Epsilon {
		return
	}
	if a != nil {
		a.Translate(n.Mul(-c * wa / w))
	}
	if b != nil {
		b.Translate(n.Mul(c * wb / w))
	}
}
