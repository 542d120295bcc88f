package world

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/collision"
	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/link"
	"github.com/san-kum/rigidsim/internal/solver"
)

type Config struct {
	Gravity geom.Vec3
	Solver  solver.Config
	Logger  *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Gravity: geom.Vec3{0, -9.81, 0},
		Solver:  solver.DefaultConfig(),
	}
}

// World is not safe for concurrent use. Run independent worlds on separate
// goroutines instead.
type World struct {
	cfg    Config
	log    *slog.Logger
	bodies arena
	links  *link.System
	solver *solver.Solver

	queue       event.Queue
	handlers    map[event.Kind][]Handler
	dispatching bool
	stepping    bool
	deferred    []func(*World)

	active   map[pairKey]*collision.Manifold
	order    []pairKey
	contacts []solver.Contact

	time  float64
	steps int
}

// New builds an empty world. An invalid solver configuration is an error.
func New(cfg Config) (*World, error) {
	if err := cfg.Solver.Validate(); err != nil {
		return nil, err
	}
	if !geom.IsFinite(cfg.Gravity) {
		return nil, fmt.Errorf("world: gravity %v is not finite", cfg.Gravity)
	}
	w := &World{
		cfg:      cfg,
		log:      cfg.Logger,
		solver:   solver.New(cfg.Solver),
		handlers: make(map[event.Kind][]Handler),
		active:   make(map[pairKey]*collision.Manifold),
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	w.links = link.NewSystem(w)
	return w, nil
}

func (w *World) Config() Config     { return w.cfg }
func (w *World) Gravity() geom.Vec3 { return w.cfg.Gravity }
func (w *World) Time() float64      { return w.time }
func (w *World) Steps() int         { return w.steps }

// AddBody validates b, assigns it a handle and starts simulating it. A body
// that fails validation is logged, excluded and reported as a
// [*ConfigError].
func (w *World) AddBody(b *body.RigidBody) (body.EntityID, error) {
	if b == nil {
		return body.None, w.reject("body", "nil body", nil)
	}
	b.UpdateMassProperties()
	if err := b.Validate(); err != nil {
		return body.None, w.reject(fmt.Sprintf("%v body", b.Type), "invalid configuration", err)
	}
	id := w.bodies.insert(b)
	b.ID = id
	return id, nil
}

func (w *World) reject(entity, reason string, err error) error {
	cerr := &ConfigError{Entity: entity, Reason: reason, Wrapped: err}
	w.log.Warn("entity rejected", "entity", entity, "reason", reason, "err", err)
	return cerr
}

// RemoveBody breaks every link attached to the body, ends its active
// contacts and frees its handle. Called from an event handler, the removal
// waits until every queued event has been delivered.
func (w *World) RemoveBody(id body.EntityID) error {
	if _, ok := w.bodies.get(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	if w.dispatching {
		w.deferred = append(w.deferred, func(w *World) { w.removeBody(id) })
		return nil
	}
	w.removeBody(id)
	w.dispatch()
	return nil
}

func (w *World) removeBody(id body.EntityID) {
	if _, ok := w.bodies.get(id); !ok {
		return
	}
	for _, e := range w.links.DetachEntity(id) {
		w.queue.Push(e)
	}
	kept := w.order[:0]
	for _, k := range w.order {
		if k.a == id || k.b == id {
			w.queue.Push(CollisionEvent{Type: event.CollisionExit, BodyA: k.a, BodyB: k.b})
			delete(w.active, k)
			continue
		}
		kept = append(kept, k)
	}
	w.order = kept
	w.bodies.remove(id)
}

// Body returns the live body behind a handle.
func (w *World) Body(id body.EntityID) (*body.RigidBody, error) {
	b, ok := w.bodies.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	return b, nil
}

// Bodies returns every live body, faulted ones included.
func (w *World) Bodies() []*body.RigidBody {
	out := make([]*body.RigidBody, 0, w.bodies.live)
	w.bodies.each(func(b *body.RigidBody) { out = append(out, b) })
	return out
}

func (w *World) BodyCount() int { return w.bodies.live }

// SetKinematicTarget makes a kinematic body reach pose p at the end of the
// next step.
func (w *World) SetKinematicTarget(id body.EntityID, p body.Pose) error {
	b, err := w.Body(id)
	if err != nil {
		return err
	}
	if b.Type != body.Kinematic {
		return fmt.Errorf("world: body %d is %v, not kinematic", id, b.Type)
	}
	if !geom.IsFinite(p.Position) || !geom.IsFiniteQuat(p.Rotation) {
		return fmt.Errorf("world: target for body %d: %w", id, body.ErrInvalidPose)
	}
	b.SetTarget(p)
	return nil
}

// ApplyForce adds an external force for the next step, e.g. from a force
// field outside the world.
func (w *World) ApplyForce(id body.EntityID, f geom.Vec3) error {
	b, err := w.Body(id)
	if err != nil {
		return err
	}
	b.ApplyForce(f)
	return nil
}

func (w *World) ApplyForceAtPoint(id body.EntityID, f, point geom.Vec3) error {
	b, err := w.Body(id)
	if err != nil {
		return err
	}
	b.ApplyForceAtPoint(f, point)
	return nil
}

func (w *World) ApplyImpulse(id body.EntityID, j geom.Vec3) error {
	b, err := w.Body(id)
	if err != nil {
		return err
	}
	b.ApplyImpulse(j)
	return nil
}

// AnchorWorld resolves a body-local anchor for the link system. Faulted
// bodies do not resolve.
func (w *World) AnchorWorld(id body.EntityID, local geom.Vec3) (geom.Vec3, bool) {
	b, ok := w.bodies.get(id)
	if !ok || b.Faulted() {
		return geom.Vec3{}, false
	}
	return b.Position.Add(b.Rotation.Rotate(local)), true
}

// AddLink connects two bodies, or a body and a fixed world point when b is
// [body.None].
func (w *World) AddLink(a body.EntityID, anchorA geom.Vec3, b body.EntityID, anchorB geom.Vec3, p link.Params) (*link.Link, error) {
	l, err := w.links.Add(a, anchorA, b, anchorB, p)
	if err != nil {
		return nil, w.reject(fmt.Sprintf("%v link %d-%d", p.Type, a, b), "invalid link", err)
	}
	return l, nil
}

func (w *World) CreateChain(nodes []body.EntityID, anchors []geom.Vec3, p link.Params) (*link.Chain, error) {
	c, err := w.links.CreateChain(nodes, anchors, p)
	if err != nil {
		return nil, w.reject("chain", "invalid chain", err)
	}
	return c, nil
}

func (w *World) CreateCloth(nodes []body.EntityID, width, height int, spacing float64, p link.MeshParams) (*link.Mesh, error) {
	m, err := w.links.CreateCloth(nodes, width, height, spacing, p)
	if err != nil {
		return nil, w.reject("cloth", "invalid cloth", err)
	}
	return m, nil
}

// RestoreLink overwrites the material state of a link, used when loading a
// saved scene.
func (w *World) RestoreLink(id link.ID, currentRest float64, state link.State) error {
	return w.links.Restore(id, currentRest, state)
}

// BreakLink breaks a link by hand. Its break event is dispatched
// immediately unless called from a handler.
func (w *World) BreakLink(id link.ID) error {
	events, err := w.links.Break(id)
	if err != nil {
		return err
	}
	for _, e := range events {
		w.queue.Push(e)
	}
	if !w.dispatching {
		w.dispatch()
	}
	return nil
}

func (w *World) Link(id link.ID) (*link.Link, error) { return w.links.Get(id) }
func (w *World) Links() []*link.Link                 { return w.links.Links() }
func (w *World) Chains() []*link.Chain               { return w.links.Chains() }
func (w *World) Meshes() []*link.Mesh                { return w.links.Meshes() }

// Integrity returns the fraction of unbroken links in the world.
func (w *World) Integrity() float64 { return w.links.Integrity() }

// Endpoints returns the world positions of both ends of a link.
func (w *World) Endpoints(l *link.Link) (geom.Vec3, geom.Vec3, bool) {
	return w.links.Endpoints(l)
}

// IsConfigError reports whether err is a registration rejection.
func IsConfigError(err error) bool {
	var cerr *ConfigError
	return errors.As(err, &cerr)
}
