package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/link"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/scene"
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/world"
)

// Experiment is one configured world ready to run.
type Experiment struct {
	cfg    *config.Config
	scene  *scene.Scene
	probes func(b *scene.Built, w *world.World) []sim.Probe
	log    *slog.Logger

	world  *world.World
	built  *scene.Built
	runner *sim.Runner
}

// New builds the world for cfg from sc. probes may be nil.
func New(cfg *config.Config, sc *scene.Scene, probes func(*scene.Built, *world.World) []sim.Probe, logger *slog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Experiment{cfg: cfg, scene: sc, probes: probes, log: logger}
	if err := e.Reset(); err != nil {
		return nil, err
	}
	return e, nil
}

// FromRegistry builds the scenario named by cfg.Scenario.
func FromRegistry(r *Registry, cfg *config.Config, logger *slog.Logger) (*Experiment, error) {
	s, err := r.Get(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	sc, err := r.Scene(cfg.Scenario, cfg.Seed)
	if err != nil {
		return nil, err
	}
	return New(cfg, sc, s.Probes, logger)
}

// Reset rebuilds the world from the scene, discarding all progress.
func (e *Experiment) Reset() error {
	wc, err := e.cfg.WorldConfig(e.log)
	if err != nil {
		return err
	}
	w, err := world.New(wc)
	if err != nil {
		return err
	}
	built, err := e.scene.Build(w)
	if err != nil {
		return err
	}
	runner := sim.New(w)
	for _, m := range metrics.Defaults() {
		runner.AddMetric(m)
	}
	e.world, e.built, e.runner = w, built, runner
	return nil
}

// Probes returns the scenario series plus the bodies and links named in
// the record section of the config.
func (e *Experiment) Probes() ([]sim.Probe, error) {
	var out []sim.Probe
	if e.probes != nil {
		out = append(out, e.probes(e.built, e.world)...)
	}
	seen := make(map[string]bool)
	for _, p := range out {
		seen[p.Name] = true
	}
	add := func(p sim.Probe) {
		if !seen[p.Name] {
			seen[p.Name] = true
			out = append(out, p)
		}
	}

	for _, i := range e.cfg.Record.Bodies {
		if i < 0 || i >= len(e.built.Bodies) {
			return nil, fmt.Errorf("record: body index %d out of range", i)
		}
		id := e.built.Bodies[i]
		add(sim.BodyPosition(id, 0))
		add(sim.BodyPosition(id, 1))
		add(sim.BodyPosition(id, 2))
	}
	links := e.world.Links()
	for _, i := range e.cfg.Record.Links {
		if i < 0 || i >= len(links) {
			return nil, fmt.Errorf("record: link index %d out of range", i)
		}
		add(sim.LinkStretch(links[i].ID))
	}
	return out, nil
}

func (e *Experiment) SimConfig() (sim.Config, error) {
	probes, err := e.Probes()
	if err != nil {
		return sim.Config{}, err
	}
	return sim.Config{
		Dt:       e.cfg.Dt,
		Duration: e.cfg.Duration,
		Seed:     e.cfg.Seed,
		Probes:   probes,
	}, nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	simCfg, err := e.SimConfig()
	if err != nil {
		return nil, err
	}
	return e.runner.Run(ctx, simCfg)
}

func (e *Experiment) Config() *config.Config { return e.cfg }
func (e *Experiment) Scene() *scene.Scene    { return e.scene }
func (e *Experiment) World() *world.World    { return e.world }
func (e *Experiment) Built() *scene.Built    { return e.built }

// GetRunner returns the underlying runner for adding observers.
func (e *Experiment) GetRunner() *sim.Runner {
	return e.runner
}

// Builder adapts a scenario to sim.Ensemble: every seed gets its own
// scene, world and metrics.
func Builder(r *Registry, cfg *config.Config, logger *slog.Logger) sim.Builder {
	return func(seed int64) (*world.World, []sim.Metric, error) {
		c := cfg.Clone()
		c.Seed = seed
		e, err := FromRegistry(r, c, logger)
		if err != nil {
			return nil, nil, err
		}
		return e.world, e.runner.Metrics(), nil
	}
}

// Broken counts broken links, for summaries.
func Broken(w *world.World) int {
	n := 0
	for _, l := range w.Links() {
		if l.State == link.Broken {
			n++
		}
	}
	return n
}
