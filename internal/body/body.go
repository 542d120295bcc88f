package body

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/geom"
)

var (
	// ErrInvalidMass indicates a dynamic body without positive finite mass.
	ErrInvalidMass = errors.New("body: dynamic body requires positive finite mass")

	// ErrInvalidMaterial indicates restitution, friction or damping out of range.
	ErrInvalidMaterial = errors.New("body: material parameter out of range")

	// ErrInvalidPose indicates a non-finite position or rotation.
	ErrInvalidPose = errors.New("body: pose is not finite")
)

// EntityID identifies a body within one world.
type EntityID int

// None marks an absent entity, e.g. the world side of an anchored link.
const None EntityID = -1

type Type int

const (
	Static Type = iota
	Dynamic
	Kinematic
)

func (t Type) String() string {
	switch t {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

func ParseType(s string) (Type, error) {
	switch s {
	case "static":
		return Static, nil
	case "dynamic":
		return Dynamic, nil
	case "kinematic":
		return Kinematic, nil
	}
	return 0, fmt.Errorf("body: unknown type %q", s)
}

// Axes is a bit set over the world X, Y and Z axes.
type Axes uint8

const (
	AxisX Axes = 1 << iota
	AxisY
	AxisZ

	AllAxes = AxisX | AxisY | AxisZ
)

// Has reports whether axis i (0, 1 or 2) is in the set.
func (a Axes) Has(i int) bool { return a&(1<<i) != 0 }

// mask zeroes the components of v on the axes in a.
func (a Axes) mask(v geom.Vec3) geom.Vec3 {
	for i := 0; i < 3; i++ {
		if a.Has(i) {
			v[i] = 0
		}
	}
	return v
}

const (
	DefaultRestitution = 0.2
	DefaultFriction    = 0.5
	DefaultLayer       = 1
	AllLayers          = ^uint32(0)
)

type RigidBody struct {
	ID    EntityID
	Type  Type
	Shape geom.Shape

	Position        geom.Vec3
	Rotation        geom.Quat
	LinearVelocity  geom.Vec3
	AngularVelocity geom.Vec3

	Mass                float64
	InverseMass         float64
	InverseInertiaLocal geom.Vec3

	Restitution    float64
	Friction       float64
	LinearDamping  float64
	AngularDamping float64
	UseGravity     bool

	FreezePosition Axes
	FreezeRotation Axes

	CollisionLayer uint32
	CollisionMask  uint32

	force  geom.Vec3
	torque geom.Vec3

	target  *Pose
	prev    Pose
	faulted bool
}

// Pose is a position and rotation pair.
type Pose struct {
	Position geom.Vec3
	Rotation geom.Quat
}

// New creates a body at the origin with default material and collision
// filter. Dynamic bodies use gravity.
func New(id EntityID, t Type, shape geom.Shape, mass float64) *RigidBody {
	b := &RigidBody{
		ID:             id,
		Type:           t,
		Shape:          shape,
		Rotation:       mgl64.QuatIdent(),
		Mass:           mass,
		Restitution:    DefaultRestitution,
		Friction:       DefaultFriction,
		UseGravity:     t == Dynamic,
		CollisionLayer: DefaultLayer,
		CollisionMask:  AllLayers,
	}
	b.UpdateMassProperties()
	return b
}

// UpdateMassProperties recomputes the inverse mass and inertia from Type,
// Mass and Shape. Non-dynamic bodies get zero inverse mass.
func (b *RigidBody) UpdateMassProperties() {
	b.InverseMass = 0
	b.InverseInertiaLocal = geom.Vec3{}
	if b.Type != Dynamic || !(b.Mass > 0) || math.IsInf(b.Mass, 0) {
		return
	}
	b.InverseMass = 1 / b.Mass
	inertia := b.Shape.Inertia(b.Mass)
	for i := 0; i < 3; i++ {
		if inertia[i] > 0 {
			b.InverseInertiaLocal[i] = 1 / inertia[i]
		}
	}
}

// Validate checks the configuration invariants of a body.
func (b *RigidBody) Validate() error {
	if err := b.Shape.Validate(); err != nil {
		return err
	}
	if b.Type == Dynamic {
		if !(b.Mass > 0) || math.IsInf(b.Mass, 0) {
			return fmt.Errorf("%w: got %v", ErrInvalidMass, b.Mass)
		}
		if b.Shape.Kind == geom.KindPlane {
			return fmt.Errorf("%w: planes cannot be dynamic", geom.ErrInvalidShape)
		}
	}
	if b.Restitution < 0 || b.Restitution > 1 || math.IsNaN(b.Restitution) {
		return fmt.Errorf("%w: restitution %v", ErrInvalidMaterial, b.Restitution)
	}
	if b.Friction < 0 || math.IsNaN(b.Friction) {
		return fmt.Errorf("%w: friction %v", ErrInvalidMaterial, b.Friction)
	}
	for _, d := range []float64{b.LinearDamping, b.AngularDamping} {
		if d < 0 || d >= 1 || math.IsNaN(d) {
			return fmt.Errorf("%w: damping %v", ErrInvalidMaterial, d)
		}
	}
	if !geom.IsFinite(b.Position) || !geom.IsFiniteQuat(b.Rotation) || b.Rotation.Len() < geom.Epsilon {
		return ErrInvalidPose
	}
	return nil
}

func (b *RigidBody) IsDynamic() bool { return b.Type == Dynamic }

// Faulted reports whether the body was isolated after a numerical fault.
func (b *RigidBody) Faulted() bool { return b.faulted }

// Pose returns the current position and rotation.
func (b *RigidBody) Pose() Pose {
	return Pose{Position: b.Position, Rotation: b.Rotation}
}

// Bounds returns the world AABB of the collider.
func (b *RigidBody) Bounds() geom.AABB {
	return b.Shape.Bounds(b.Position, b.Rotation)
}

// CanCollide applies the layer and mask filter in both directions.
func (b *RigidBody) CanCollide(o *RigidBody) bool {
	return b.CollisionLayer&o.CollisionMask != 0 && o.CollisionLayer&b.CollisionMask != 0
}

// InverseInertiaWorld returns R * I^-1 * R^T with rows and columns of frozen
// rotation axes removed. Non-dynamic bodies return the zero matrix.
func (b *RigidBody) InverseInertiaWorld() mgl64.Mat3 {
	if b.Type != Dynamic {
		return mgl64.Mat3{}
	}
	r := b.Rotation.Mat4().Mat3()
	inv := r.Mul3(mgl64.Diag3(b.InverseInertiaLocal)).Mul3(r.Transpose())
	if b.FreezeRotation != 0 {
		m := mgl64.Diag3(b.FreezeRotation.mask(geom.Vec3{1, 1, 1}))
		inv = m.Mul3(inv).Mul3(m)
	}
	return inv
}

// ApplyForce accumulates a force applied at the center of mass. The buffer
// is cleared after integration.
func (b *RigidBody) ApplyForce(f geom.Vec3) {
	if b.Type != Dynamic || !geom.IsFinite(f) {
		return
	}
	b.force = b.force.Add(f)
}

// ApplyForceAtPoint accumulates a force and the torque it exerts about the
// center of mass.
func (b *RigidBody) ApplyForceAtPoint(f, point geom.Vec3) {
	if b.Type != Dynamic || !geom.IsFinite(f) {
		return
	}
	b.force = b.force.Add(f)
	b.torque = b.torque.Add(point.Sub(b.Position).Cross(f))
}

func (b *RigidBody) ApplyTorque(t geom.Vec3) {
	if b.Type != Dynamic || !geom.IsFinite(t) {
		return
	}
	b.torque = b.torque.Add(t)
}

// Force returns the accumulated force.
func (b *RigidBody) Force() geom.Vec3 { return b.force }

// ApplyImpulse changes the linear velocity immediately.
func (b *RigidBody) ApplyImpulse(j geom.Vec3) {
	if b.Type != Dynamic {
		return
	}
	dv := b.FreezePosition.mask(j.Mul(b.InverseMass))
	b.LinearVelocity = b.LinearVelocity.Add(dv)
}

func (b *RigidBody) ApplyAngularImpulse(j geom.Vec3) {
	if b.Type != Dynamic {
		return
	}
	b.AngularVelocity = b.AngularVelocity.Add(b.InverseInertiaWorld().Mul3x1(j))
}

// ApplyImpulseAtPoint applies j at a world point, changing both velocities.
func (b *RigidBody) ApplyImpulseAtPoint(j, point geom.Vec3) {
	if b.Type != Dynamic {
		return
	}
	b.ApplyImpulse(j)
	b.ApplyAngularImpulse(point.Sub(b.Position).Cross(j))
}

// VelocityAtPoint returns v + w x (p - x).
func (b *RigidBody) VelocityAtPoint(p geom.Vec3) geom.Vec3 {
	return b.LinearVelocity.Add(b.AngularVelocity.Cross(p.Sub(b.Position)))
}

// SetTarget records the pose a kinematic body must reach by the end of the
// next step. It is ignored for other body types.
func (b *RigidBody) SetTarget(p Pose) {
	if b.Type != Kinematic {
		return
	}
	b.target = &p
}

// KineticEnergy returns the translational plus rotational kinetic energy.
func (b *RigidBody) KineticEnergy() float64 {
	if b.Type != Dynamic {
		return 0
	}
	e := 0.5 * b.Mass * b.LinearVelocity.LenSqr()
	r := b.Rotation.Mat4().Mat3()
	wl := r.Transpose().Mul3x1(b.AngularVelocity)
	for i := 0; i < 3; i++ {
		if b.InverseInertiaLocal[i] > 0 {
			e += 0.5 * wl[i] * wl[i] / b.InverseInertiaLocal[i]
		}
	}
	return e
}
