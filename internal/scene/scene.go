// Package scene reads and writes world descriptions as YAML.
//
// Bodies are listed in order and referenced by their position in that list.
// Index -1 in a link, chain or cloth stands for the fixed world. Vectors are
// written as flow sequences and rotations as [w, x, y, z].
package scene

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/link"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownShape = errors.New("scene: unknown shape")
	ErrInvalidScene = errors.New("scene: invalid scene")
)

// World is the fixed-world endpoint index.
const World = -1

type Scene struct {
	Name   string  `yaml:"name,omitempty"`
	Bodies []Body  `yaml:"bodies"`
	Links  []Link  `yaml:"links,omitempty"`
	Chains []Chain `yaml:"chains,omitempty"`
	Cloths []Cloth `yaml:"cloths,omitempty"`
}

type Shape struct {
	Kind        string    `yaml:"kind"`
	Radius      float64   `yaml:"radius,omitempty"`
	HalfExtents []float64 `yaml:"half_extents,flow,omitempty"`
	Normal      []float64 `yaml:"normal,flow,omitempty"`
	Distance    float64   `yaml:"distance,omitempty"`
	HalfHeight  float64   `yaml:"half_height,omitempty"`
	Offset      []float64 `yaml:"offset,flow,omitempty"`
}

// Body describes one rigid body. Restitution, Friction, Gravity and Mask
// fall back to the body defaults when omitted.
type Body struct {
	Type            string    `yaml:"type"`
	Mass            float64   `yaml:"mass,omitempty"`
	Shape           Shape     `yaml:"shape"`
	Position        []float64 `yaml:"position,flow,omitempty"`
	Rotation        []float64 `yaml:"rotation,flow,omitempty"`
	Velocity        []float64 `yaml:"velocity,flow,omitempty"`
	AngularVelocity []float64 `yaml:"angular_velocity,flow,omitempty"`
	Restitution     *float64  `yaml:"restitution,omitempty"`
	Friction        *float64  `yaml:"friction,omitempty"`
	LinearDamping   float64   `yaml:"linear_damping,omitempty"`
	AngularDamping  float64   `yaml:"angular_damping,omitempty"`
	Gravity         *bool     `yaml:"gravity,omitempty"`
	FreezePosition  string    `yaml:"freeze_position,omitempty"`
	FreezeRotation  string    `yaml:"freeze_rotation,omitempty"`
	Layer           uint32    `yaml:"layer,omitempty"`
	Mask            *uint32   `yaml:"mask,omitempty"`
}

// Material holds link parameters. Zero fields take the defaults of the
// link type.
type Material struct {
	Type        string  `yaml:"type"`
	RestLength  float64 `yaml:"rest_length,omitempty"`
	Stiffness   float64 `yaml:"stiffness,omitempty"`
	Damping     float64 `yaml:"damping,omitempty"`
	MaxStretch  float64 `yaml:"max_stretch,omitempty"`
	YieldRatio  float64 `yaml:"yield_ratio,omitempty"`
	PlasticRate float64 `yaml:"plastic_rate,omitempty"`
}

type Link struct {
	A        int       `yaml:"a"`
	AnchorA  []float64 `yaml:"anchor_a,flow,omitempty"`
	B        int       `yaml:"b"`
	AnchorB  []float64 `yaml:"anchor_b,flow,omitempty"`
	Material `yaml:",inline"`
	// CurrentRestLength and State restore a link mid-deformation.
	CurrentRestLength float64 `yaml:"current_rest_length,omitempty"`
	State             string  `yaml:"state,omitempty"`
}

type Chain struct {
	Nodes    []int       `yaml:"nodes,flow"`
	Anchors  [][]float64 `yaml:"anchors,flow,omitempty"`
	Material `yaml:",inline"`
}

type Cloth struct {
	Nodes           []int   `yaml:"nodes,flow"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	Spacing         float64 `yaml:"spacing"`
	Material        `yaml:",inline"`
	DamageThreshold float64 `yaml:"damage_threshold,omitempty"`
}

func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	return &s, nil
}

func Save(path string, s *Scene) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s *Scene) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

func (s Shape) geom() (geom.Shape, error) {
	kind, err := geom.ParseKind(s.Kind)
	if err != nil {
		return geom.Shape{}, fmt.Errorf("%w: %q", ErrUnknownShape, s.Kind)
	}
	var out geom.Shape
	switch kind {
	case geom.KindSphere:
		out = geom.Sphere(s.Radius)
	case geom.KindBox:
		he, err := vec(s.HalfExtents, geom.Vec3{})
		if err != nil {
			return out, err
		}
		out = geom.Box(he)
	case geom.KindPlane:
		n, err := vec(s.Normal, geom.Vec3{0, 1, 0})
		if err != nil {
			return out, err
		}
		out = geom.Plane(n, s.Distance)
	case geom.KindCapsule:
		out = geom.Capsule(s.Radius, s.HalfHeight)
	}
	off, err := vec(s.Offset, geom.Vec3{})
	if err != nil {
		return out, err
	}
	return out.WithOffset(off), nil
}

func shapeOf(g geom.Shape) Shape {
	s := Shape{Kind: g.Kind.String()}
	switch g.Kind {
	case geom.KindSphere:
		s.Radius = g.Radius
	case geom.KindBox:
		s.HalfExtents = list(g.HalfExtents)
	case geom.KindPlane:
		s.Normal = list(g.Normal)
		s.Distance = g.Distance
	case geom.KindCapsule:
		s.Radius = g.Radius
		s.HalfHeight = g.HalfHeight
	}
	if g.Offset != (geom.Vec3{}) {
		s.Offset = list(g.Offset)
	}
	return s
}

// rigidBody builds the body without registering it.
func (b Body) rigidBody() (*body.RigidBody, error) {
	typ, err := body.ParseType(b.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	shape, err := b.Shape.geom()
	if err != nil {
		return nil, err
	}
	rb := body.New(0, typ, shape, b.Mass)

	if rb.Position, err = vec(b.Position, geom.Vec3{}); err != nil {
		return nil, err
	}
	if rb.LinearVelocity, err = vec(b.Velocity, geom.Vec3{}); err != nil {
		return nil, err
	}
	if rb.AngularVelocity, err = vec(b.AngularVelocity, geom.Vec3{}); err != nil {
		return nil, err
	}
	if len(b.Rotation) > 0 {
		if len(b.Rotation) != 4 {
			return nil, fmt.Errorf("%w: rotation needs 4 components, got %d", ErrInvalidScene, len(b.Rotation))
		}
		rb.Rotation = mgl64.Quat{W: b.Rotation[0], V: geom.Vec3{b.Rotation[1], b.Rotation[2], b.Rotation[3]}}.Normalize()
	}
	if b.Restitution != nil {
		rb.Restitution = *b.Restitution
	}
	if b.Friction != nil {
		rb.Friction = *b.Friction
	}
	if b.Gravity != nil {
		rb.UseGravity = *b.Gravity
	}
	rb.LinearDamping = b.LinearDamping
	rb.AngularDamping = b.AngularDamping
	if rb.FreezePosition, err = parseAxes(b.FreezePosition); err != nil {
		return nil, err
	}
	if rb.FreezeRotation, err = parseAxes(b.FreezeRotation); err != nil {
		return nil, err
	}
	if b.Layer != 0 {
		rb.CollisionLayer = b.Layer
	}
	if b.Mask != nil {
		rb.CollisionMask = *b.Mask
	}
	return rb, nil
}

func bodyOf(rb *body.RigidBody) Body {
	restitution, friction, gravity, mask := rb.Restitution, rb.Friction, rb.UseGravity, rb.CollisionMask
	b := Body{
		Type:            rb.Type.String(),
		Mass:            rb.Mass,
		Shape:           shapeOf(rb.Shape),
		Position:        list(rb.Position),
		Rotation:        []float64{rb.Rotation.W, rb.Rotation.V[0], rb.Rotation.V[1], rb.Rotation.V[2]},
		Restitution:     &restitution,
		Friction:        &friction,
		LinearDamping:   rb.LinearDamping,
		AngularDamping:  rb.AngularDamping,
		Gravity:         &gravity,
		FreezePosition:  axesString(rb.FreezePosition),
		FreezeRotation:  axesString(rb.FreezeRotation),
		Layer:           rb.CollisionLayer,
		Mask:            &mask,
	}
	if rb.LinearVelocity != (geom.Vec3{}) {
		b.Velocity = list(rb.LinearVelocity)
	}
	if rb.AngularVelocity != (geom.Vec3{}) {
		b.AngularVelocity = list(rb.AngularVelocity)
	}
	return b
}

func (m Material) params() (link.Params, error) {
	typ, err := link.ParseType(m.Type)
	if err != nil {
		return link.Params{}, err
	}
	p := link.DefaultParams(typ)
	p.RestLength = m.RestLength
	p.Damping = m.Damping
	p.YieldRatio = m.YieldRatio
	if m.Stiffness != 0 {
		p.Stiffness = m.Stiffness
	}
	if m.MaxStretch != 0 {
		p.MaxStretchRatio = m.MaxStretch
	}
	if m.PlasticRate != 0 {
		p.PlasticRate = m.PlasticRate
	}
	return p, nil
}

func materialOf(p link.Params) Material {
	return Material{
		Type:        p.Type.String(),
		RestLength:  p.RestLength,
		Stiffness:   p.Stiffness,
		Damping:     p.Damping,
		MaxStretch:  p.MaxStretchRatio,
		YieldRatio:  p.YieldRatio,
		PlasticRate: p.PlasticRate,
	}
}

func vec(v []float64, def geom.Vec3) (geom.Vec3, error) {
	switch len(v) {
	case 0:
		return def, nil
	case 3:
		return geom.Vec3{v[0], v[1], v[2]}, nil
	}
	return def, fmt.Errorf("%w: vector needs 3 components, got %d", ErrInvalidScene, len(v))
}

func list(v geom.Vec3) []float64 { return []float64{v[0], v[1], v[2]} }

func parseAxes(s string) (body.Axes, error) {
	var a body.Axes
	for _, r := range strings.ToLower(s) {
		switch r {
		case 'x':
			a |= body.AxisX
		case 'y':
			a |= body.AxisY
		case 'z':
			a |= body.AxisZ
		default:
			return 0, fmt.Errorf("%w: unknown axis %q", ErrInvalidScene, r)
		}
	}
	return a, nil
}

func axesString(a body.Axes) string {
	var sb strings.Builder
	for i, name := range "xyz" {
		if a.Has(i) {
			sb.WriteRune(name)
		}
	}
	return sb.String()
}
