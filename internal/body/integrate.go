package body

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/geom"
)

// IntegrateForces adds gravity, integrates the accumulated force and torque
// into velocity, applies damping and clears the buffers. Kinematic bodies
// with a pending target derive the velocity needed to reach it so contacts
// see them as moving.
func (b *RigidBody) IntegrateForces(gravity geom.Vec3, dt float64) {
	b.prev = b.Pose()
	defer b.clearForces()

	switch b.Type {
	case Static:
		return
	case Kinematic:
		if b.target != nil && dt > 0 {
			b.LinearVelocity = b.target.Position.Sub(b.Position).Mul(1 / dt)
			dq := b.target.Rotation.Mul(b.Rotation.Conjugate()).Normalize()
			if dq.W >= 0 {
				b.AngularVelocity = dq.V.Mul(2 / dt)
			} else {
				b.AngularVelocity = dq.V.Mul(-2 / dt)
			}
		}
		return
	}

	f := b.force
	if b.UseGravity {
		f = f.Add(gravity.Mul(b.Mass))
	}
	b.LinearVelocity = b.LinearVelocity.Add(b.FreezePosition.mask(f.Mul(b.InverseMass * dt)))
	b.AngularVelocity = b.AngularVelocity.Add(b.InverseInertiaWorld().Mul3x1(b.torque).Mul(dt))

	b.LinearVelocity = b.LinearVelocity.Mul(dampingFactor(b.LinearDamping, dt))
	b.AngularVelocity = b.AngularVelocity.Mul(dampingFactor(b.AngularDamping, dt))
}

// IntegrateVelocities advances the pose by one step. Frozen axes keep their
// values. A kinematic body with a target lands on it exactly.
func (b *RigidBody) IntegrateVelocities(dt float64) {
	switch b.Type {
	case Static:
		return
	case Kinematic:
		if b.target != nil {
			b.Position = b.target.Position
			b.Rotation = b.target.Rotation.Normalize()
			b.target = nil
			return
		}
	}

	b.LinearVelocity = b.FreezePosition.mask(b.LinearVelocity)
	b.AngularVelocity = b.FreezeRotation.mask(b.AngularVelocity)

	b.Position = b.Position.Add(b.LinearVelocity.Mul(dt))
	spin := mgl64.Quat{W: 0, V: b.AngularVelocity}.Mul(b.Rotation).Scale(0.5 * dt)
	b.Rotation = b.Rotation.Add(spin).Normalize()
}

// Translate moves a dynamic body directly, honouring frozen axes. Used for
// positional correction.
func (b *RigidBody) Translate(d geom.Vec3) {
	if b.Type != Dynamic {
		return
	}
	b.Position = b.Position.Add(b.FreezePosition.mask(d))
}

// Sanitize isolates a body whose state became non-finite: the pose from the
// start of the step is restored, velocities are zeroed and the body is
// marked faulted. It reports whether the body was isolated by this call.
func (b *RigidBody) Sanitize() bool {
	if b.faulted {
		return false
	}
	if geom.IsFinite(b.Position) && geom.IsFiniteQuat(b.Rotation) &&
		geom.IsFinite(b.LinearVelocity) && geom.IsFinite(b.AngularVelocity) {
		return false
	}
	b.Position = b.prev.Position
	b.Rotation = b.prev.Rotation
	if !geom.IsFinite(b.Position) || !geom.IsFiniteQuat(b.Rotation) {
		b.Position = geom.Vec3{}
		b.Rotation = mgl64.QuatIdent()
	}
	b.LinearVelocity = geom.Vec3{}
	b.AngularVelocity = geom.Vec3{}
	b.faulted = true
	b.clearForces()
	return true
}

func (b *RigidBody) clearForces() {
	b.force = geom.Vec3{}
	b.torque = geom.Vec3{}
}

// dampingFactor returns 1 - d*dt clamped to be non-negative.
func dampingFactor(d, dt float64) float64 {
	return math.Max(0, 1-d*dt)
}
