package solver

import (
	"math"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/link"
)

type jointConstraint struct {
	l    *link.Link
	a, b *body.RigidBody

	pa, pb geom.Vec3
	normal geom.Vec3

	mass  float64
	gamma float64
	bias  float64
	acc   float64
	// tensionOnly limits the accumulated impulse to pulling.
	tensionOnly bool
}

// endpoints returns the world anchor points of the joint.
func (j *jointConstraint) endpoints() (geom.Vec3, geom.Vec3) {
	pa := j.a.Position.Add(j.a.Rotation.Rotate(j.l.AnchorA))
	if j.b == nil {
		return pa, j.l.AnchorB
	}
	return pa, j.b.Position.Add(j.b.Rotation.Rotate(j.l.AnchorB))
}

// prepareJoint sets up one distance row. Rigid links are hard constraints
// with a Baumgarte bias. Elastic, plastic and rope links are soft
// constraints whose spring and damper map to gamma and bias. Slack ropes
// and springless links produce no row.
func (s *Solver) prepareJoint(jt Joint) (jointConstraint, bool) {
	l := jt.Link
	if l == nil || !l.Active() || jt.A == nil || s.dt <= 0 {
		return jointConstraint{}, false
	}
	j := jointConstraint{l: l, a: jt.A, b: jt.B, tensionOnly: l.Type == link.Rope}
	if l.Anchored() {
		j.b = nil
	}
	j.pa, j.pb = j.endpoints()
	d := j.pb.Sub(j.pa)
	dist := d.Len()
	if dist < geom.Epsilon {
		return jointConstraint{}, false
	}
	j.normal = d.Mul(1 / dist)
	stretch := dist - l.CurrentRestLength
	if j.tensionOnly && stretch <= 0 {
		return jointConstraint{}, false
	}

	rA, rB := j.pa.Sub(j.a.Position), geom.Vec3{}
	if j.b != nil {
		rB = j.pb.Sub(j.b.Position)
	}
	k := linearInv(j.a, j.normal) + linearInv(j.b, j.normal) +
		angularInv(j.a, rA, j.normal) + angularInv(j.b, rB, j.normal)
	if k < geom.Epsilon {
		return jointConstraint{}, false
	}

	dt := s.dt
	if l.Type == link.Rigid {
		j.bias = s.cfg.Baumgarte / dt * stretch
		j.mass = 1 / k
		return j, true
	}
	denom := l.Damping + dt*l.Stiffness
	if denom < geom.Epsilon {
		return jointConstraint{}, false
	}
	j.gamma = 1 / (dt * denom)
	beta := dt * l.Stiffness / denom
	j.bias = stretch * beta / dt
	j.mass = 1 / (k + j.gamma)
	return j, true
}

func (j *jointConstraint) solveVelocity() {
	cdot := velocityAt(j.b, j.pb).Sub(velocityAt(j.a, j.pa)).Dot(j.normal)
	lambda := -j.mass * (cdot + j.bias + j.gamma*j.acc)
	acc := j.acc + lambda
	if j.tensionOnly {
		acc = math.Min(acc, 0)
	}
	lambda = acc - j.acc
	j.acc = acc
	p := j.normal.Mul(lambda)
	j.a.ApplyImpulseAtPoint(p.Mul(-1), j.pa)
	if j.b != nil {
		j.b.ApplyImpulseAtPoint(p, j.pb)
	}
}

// solvePosition projects rigid links back to their rest length.
func (j *jointConstraint) solvePosition() {
	if j.l.Type != link.Rigid {
		return
	}
	pa, pb := j.endpoints()
	d := pb.Sub(pa)
	dist := d.Len()
	if dist < geom.Epsilon {
		return
	}
	n := d.Mul(1 / dist)
	// Positive error pulls the ends together.
	splitTranslate(j.a, j.b, n, -(dist - j.l.CurrentRestLength))
}
