package solver

import (
	"math"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
)

type contactPoint struct {
	point          geom.Vec3
	localA, localB geom.Vec3
	massN          float64
	massT          [2]float64
	bias           float64
	accN           float64
	accT           [2]float64
}

type contactConstraint struct {
	a, b        *body.RigidBody
	normal      geom.Vec3
	tangents    [2]geom.Vec3
	friction    float64
	restitution float64
	points      []contactPoint
}

func (s *Solver) prepareContact(c Contact) (contactConstraint, bool) {
	if c.Manifold == nil || len(c.Manifold.Contacts) == 0 {
		return contactConstraint{}, false
	}
	if !c.A.IsDynamic() && !c.B.IsDynamic() {
		return contactConstraint{}, false
	}
	n := c.Manifold.Normal
	t1, t2 := geom.Orthonormal(n)
	cc := contactConstraint{
		a:           c.A,
		b:           c.B,
		normal:      n,
		tangents:    [2]geom.Vec3{t1, t2},
		friction:    s.cfg.FrictionRule.Combine(c.A.Friction, c.B.Friction),
		restitution: s.cfg.RestitutionRule.Combine(c.A.Restitution, c.B.Restitution),
		points:      make([]contactPoint, 0, len(c.Manifold.Contacts)),
	}
	linear := linearInv(c.A, n) + linearInv(c.B, n)
	for _, mc := range c.Manifold.Contacts {
		p := mc.Point()
		rA, rB := p.Sub(c.A.Position), p.Sub(c.B.Position)
		k := linear + angularInv(c.A, rA, n) + angularInv(c.B, rB, n)
		if k < geom.Epsilon {
			continue
		}
		cp := contactPoint{
			point:  p,
			localA: c.A.Rotation.Conjugate().Rotate(mc.PointOnA.Sub(c.A.Position)),
			localB: c.B.Rotation.Conjugate().Rotate(mc.PointOnB.Sub(c.B.Position)),
			massN:  1 / k,
		}
		for i, t := range cc.tangents {
			kt := linearInv(c.A, t) + linearInv(c.B, t) + angularInv(c.A, rA, t) + angularInv(c.B, rB, t)
			if kt > geom.Epsilon {
				cp.massT[i] = 1 / kt
			}
		}

		vn := velocityAt(c.B, p).Sub(velocityAt(c.A, p)).Dot(n)
		if vn < -s.cfg.RestitutionThreshold {
			cp.bias = -cc.restitution * vn
		}
		if s.dt > 0 {
			cp.bias = math.Max(cp.bias, s.cfg.Baumgarte/s.dt*math.Max(mc.Depth-s.cfg.Slop, 0))
		}
		cc.points = append(cc.points, cp)
	}
	return cc, len(cc.points) > 0
}

// solveVelocity pushes the normal velocity of every point towards its bias
// with a non-negative accumulated impulse, then clamps friction to the
// Coulomb cone of the current normal impulse.
func (c *contactConstraint) solveVelocity() {
	for i := range c.points {
		p := &c.points[i]
		dv := velocityAt(c.b, p.point).Sub(velocityAt(c.a, p.point))

		for k, t := range c.tangents {
			if p.massT[k] == 0 {
				continue
			}
			limit := c.friction * p.accN
			lambda := -dv.Dot(t) * p.massT[k]
			acc := geom.Clamp(p.accT[k]+lambda, -limit, limit)
			lambda = acc - p.accT[k]
			p.accT[k] = acc
			applyPair(c.a, c.b, t.Mul(lambda), p.point)
		}

		dv = velocityAt(c.b, p.point).Sub(velocityAt(c.a, p.point))
		lambda := (p.bias - dv.Dot(c.normal)) * p.massN
		acc := math.Max(p.accN+lambda, 0)
		lambda = acc - p.accN
		p.accN = acc
		applyPair(c.a, c.b, c.normal.Mul(lambda), p.point)
	}
}

// solvePosition re-measures penetration from the body-local contact points
// and removes a fraction of it by translation.
func (c *contactConstraint) solvePosition(cfg Config) {
	for i := range c.points {
		p := &c.points[i]
		wa := c.a.Position.Add(c.a.Rotation.Rotate(p.localA))
		wb := c.b.Position.Add(c.b.Rotation.Rotate(p.localB))
		depth := wa.Sub(wb).Dot(c.normal)
		corr := geom.Clamp(cfg.PositionCorrection*(depth-cfg.Slop), 0, cfg.MaxCorrection)
		if corr == 0 {
			continue
		}
		splitTranslate(c.a, c.b, c.normal, corr)
	}
}
