package body

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/geom"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func vec3AlmostEqual(a, b geom.Vec3) bool {
	return almostEqual(a[0], b[0]) && almostEqual(a[1], b[1]) && almostEqual(a[2], b[2])
}

var gravity = geom.Vec3{0, -9.81, 0}

func TestNewMassProperties(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		mass    float64
		wantInv float64
	}{
		{"dynamic", Dynamic, 2, 0.5},
		{"static", Static, 2, 0},
		{"kinematic", Kinematic, 2, 0},
		{"dynamic zero mass", Dynamic, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(1, tt.typ, geom.Sphere(1), tt.mass)
			if b.InverseMass != tt.wantInv {
				t.Errorf("InverseMass = %v, want %v", b.InverseMass, tt.wantInv)
			}
			if (b.InverseMass == 0) == (tt.typ == Dynamic && tt.mass > 0) {
				t.Error("InverseMass must be zero iff the body is not a valid dynamic body")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *RigidBody)
		target error
	}{
		{"valid", func(b *RigidBody) {}, nil},
		{"zero mass", func(b *RigidBody) { b.Mass = 0 }, ErrInvalidMass},
		{"negative mass", func(b *RigidBody) { b.Mass = -1 }, ErrInvalidMass},
		{"restitution", func(b *RigidBody) { b.Restitution = 1.5 }, ErrInvalidMaterial},
		{"friction", func(b *RigidBody) { b.Friction = -0.1 }, ErrInvalidMaterial},
		{"damping", func(b *RigidBody) { b.LinearDamping = 1 }, ErrInvalidMaterial},
		{"nan position", func(b *RigidBody) { b.Position[0] = math.NaN() }, ErrInvalidPose},
		{"bad shape", func(b *RigidBody) { b.Shape.Radius = 0 }, geom.ErrInvalidShape},
		{"dynamic plane", func(b *RigidBody) { b.Shape = geom.Plane(geom.Vec3{0, 1, 0}, 0) }, geom.ErrInvalidShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(1, Dynamic, geom.Sphere(0.5), 1)
			tt.mutate(b)
			err := b.Validate()
			if tt.target == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("Validate() = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestImpulsesIgnoredOnNonDynamic(t *testing.T) {
	for _, typ := range []Type{Static, Kinematic} {
		b := New(1, typ, geom.Box(geom.Vec3{1, 1, 1}), 1)
		b.ApplyImpulse(geom.Vec3{1, 2, 3})
		b.ApplyAngularImpulse(geom.Vec3{1, 0, 0})
		b.ApplyForce(geom.Vec3{10, 0, 0})
		b.IntegrateForces(gravity, 1.0/60)
		if b.LinearVelocity != (geom.Vec3{}) || b.AngularVelocity != (geom.Vec3{}) {
			t.Errorf("%v body moved: v=%v w=%v", typ, b.LinearVelocity, b.AngularVelocity)
		}
	}
}

func TestApplyImpulseImmediate(t *testing.T) {
	b := New(1, Dynamic, geom.Sphere(0.5), 2)
	b.ApplyImpulse(geom.Vec3{4, 0, 0})
	if !vec3AlmostEqual(b.LinearVelocity, geom.Vec3{2, 0, 0}) {
		t.Errorf("LinearVelocity = %v, want (2,0,0)", b.LinearVelocity)
	}
}

func TestApplyImpulseAtPointSpins(t *testing.T) {
	b := New(1, Dynamic, geom.Sphere(1), 1)
	b.ApplyImpulseAtPoint(geom.Vec3{0, 0, 1}, geom.Vec3{1, 0, 0})
	if b.AngularVelocity[1] >= 0 {
		t.Errorf("AngularVelocity = %v, want negative Y spin", b.AngularVelocity)
	}
	// I = 0.4 for a unit sphere, so w = r x j / I.
	if !almostEqual(b.AngularVelocity[1], -2.5) {
		t.Errorf("AngularVelocity.Y = %v, want -2.5", b.AngularVelocity[1])
	}
}

func TestVelocityAtPoint(t *testing.T) {
	b := New(1, Dynamic, geom.Sphere(1), 1)
	b.Position = geom.Vec3{1, 0, 0}
	b.LinearVelocity = geom.Vec3{0, 1, 0}
	b.AngularVelocity = geom.Vec3{0, 0, 2}
	got := b.VelocityAtPoint(geom.Vec3{2, 0, 0})
	if !vec3AlmostEqual(got, geom.Vec3{0, 3, 0}) {
		t.Errorf("VelocityAtPoint = %v, want (0,3,0)", got)
	}
}

func TestIntegrateGravityAndDamping(t *testing.T) {
	dt := 0.1
	b := New(1, Dynamic, geom.Sphere(0.5), 3)
	b.LinearDamping = 0.5
	b.IntegrateForces(gravity, dt)

	want := -9.81 * dt * (1 - 0.5*dt)
	if !almostEqual(b.LinearVelocity[1], want) {
		t.Errorf("v.Y = %v, want %v", b.LinearVelocity[1], want)
	}
	if b.Force() != (geom.Vec3{}) {
		t.Errorf("force buffer not cleared: %v", b.Force())
	}

	b.IntegrateVelocities(dt)
	if !almostEqual(b.Position[1], want*dt) {
		t.Errorf("Position.Y = %v, want %v", b.Position[1], want*dt)
	}
}

func TestIntegrateFrozenAxes(t *testing.T) {
	b := New(1, Dynamic, geom.Box(geom.Vec3{1, 1, 1}), 1)
	b.FreezePosition = AxisY
	b.FreezeRotation = AxisX | AxisZ
	b.LinearVelocity = geom.Vec3{1, 5, 0}
	b.AngularVelocity = geom.Vec3{1, 1, 1}
	b.IntegrateVelocities(0.1)

	if b.Position[1] != 0 {
		t.Errorf("frozen Y moved to %v", b.Position[1])
	}
	if !almostEqual(b.Position[0], 0.1) {
		t.Errorf("Position.X = %v, want 0.1", b.Position[0])
	}
	if b.AngularVelocity[0] != 0 || b.AngularVelocity[2] != 0 {
		t.Errorf("frozen rotation axes spin: %v", b.AngularVelocity)
	}
}

func TestIntegrateRotationStaysUnit(t *testing.T) {
	b := New(1, Dynamic, geom.Box(geom.Vec3{1, 0.5, 0.25}), 1)
	b.AngularVelocity = geom.Vec3{3, -2, 5}
	for i := 0; i < 1000; i++ {
		b.IntegrateVelocities(1.0 / 60)
	}
	if !almostEqual(b.Rotation.Len(), 1) {
		t.Errorf("|q| = %v, want 1", b.Rotation.Len())
	}
}

func TestKinematicTarget(t *testing.T) {
	dt := 0.5
	b := New(1, Kinematic, geom.Box(geom.Vec3{1, 1, 1}), 0)
	target := Pose{Position: geom.Vec3{1, 0, 0}, Rotation: mgl64.QuatRotate(0.5, geom.Vec3{0, 1, 0})}
	b.SetTarget(target)

	b.IntegrateForces(gravity, dt)
	if !vec3AlmostEqual(b.LinearVelocity, geom.Vec3{2, 0, 0}) {
		t.Errorf("derived velocity = %v, want (2,0,0)", b.LinearVelocity)
	}
	// Half-angle quaternion delta: w = 2*sin(0.25)/dt about Y.
	if want := 4 * math.Sin(0.25); !almostEqual(b.AngularVelocity[1], want) {
		t.Errorf("derived angular velocity = %v, want Y=%v", b.AngularVelocity, want)
	}

	b.IntegrateVelocities(dt)
	if b.Position != target.Position {
		t.Errorf("Position = %v, want %v", b.Position, target.Position)
	}
}

func TestSanitizeRestoresPose(t *testing.T) {
	b := New(1, Dynamic, geom.Sphere(1), 1)
	b.Position = geom.Vec3{0, 3, 0}
	b.IntegrateForces(gravity, 0.1)
	b.LinearVelocity = geom.Vec3{math.Inf(1), 0, 0}
	b.IntegrateVelocities(0.1)

	if !b.Sanitize() {
		t.Fatal("Sanitize() = false, want true")
	}
	if b.Position != (geom.Vec3{0, 3, 0}) {
		t.Errorf("Position = %v, want restored (0,3,0)", b.Position)
	}
	if !b.Faulted() {
		t.Error("body not marked faulted")
	}
	if b.Sanitize() {
		t.Error("second Sanitize() should report nothing new")
	}
}

func TestCanCollide(t *testing.T) {
	a := New(1, Dynamic, geom.Sphere(1), 1)
	b := New(2, Dynamic, geom.Sphere(1), 1)
	if !a.CanCollide(b) {
		t.Error("default filters should collide")
	}
	b.CollisionLayer = 2
	a.CollisionMask = 1
	if a.CanCollide(b) || b.CanCollide(a) {
		t.Error("masked layers should not collide")
	}
}

func TestKineticEnergy(t *testing.T) {
	b := New(1, Dynamic, geom.Sphere(1), 2)
	b.LinearVelocity = geom.Vec3{3, 0, 0}
	b.AngularVelocity = geom.Vec3{0, 0, 1}
	// 0.5*2*9 + 0.5*(0.4*2)*1
	if !almostEqual(b.KineticEnergy(), 9.4) {
		t.Errorf("KineticEnergy = %v, want 9.4", b.KineticEnergy())
	}
}
