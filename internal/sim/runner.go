package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/rigidsim/internal/event"
	"github.com/san-kum/rigidsim/internal/world"
)

// Runner steps one world at a fixed rate and records what happens.
type Runner struct {
	w         *world.World
	metrics   []Metric
	observers []Observer
}

func New(w *world.World) *Runner {
	return &Runner{
		w:         w,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (r *Runner) World() *world.World      { return r.w }
func (r *Runner) AddMetric(m Metric)       { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer)   { r.observers = append(r.observers, o) }
func (r *Runner) Metrics() []Metric        { return r.metrics }

// Run steps the world for cfg.Duration. Cancellation is checked between
// steps and returns the partial result with the context error. A step
// error ends the run early and is kept in Result.Errors.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration/cfg.Dt + 1e-9)
	result := &Result{
		Names:   make([]string, len(cfg.Probes)),
		States:  make([]State, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
		Events:  make(map[string]int),
		Errors:  make([]error, 0),
	}
	for i, p := range cfg.Probes {
		result.Names[i] = p.Name
	}
	for _, m := range r.metrics {
		m.Reset()
	}
	before := r.eventTotals()

	t := r.w.Time()
	result.States = append(result.States, sample(r.w, cfg.Probes))
	result.Times = append(result.Times, t)

	defer r.finish(result, before)
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := r.w.Step(cfg.Dt); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("step %d: %w", i, err))
			break
		}
		t = r.w.Time()
		result.StepsTaken++

		for _, m := range r.metrics {
			m.Observe(r.w, t)
		}
		for _, obs := range r.observers {
			obs.OnStep(r.w, t)
		}
		result.States = append(result.States, sample(r.w, cfg.Probes))
		result.Times = append(result.Times, t)
	}
	return result, nil
}

// RunWithCallback steps the world until the duration is over or callback
// returns false. Nothing is recorded.
func (r *Runner) RunWithCallback(ctx context.Context, cfg Config, callback func(w *world.World, t float64) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	end := r.w.Time() + cfg.Duration
	for r.w.Time() < end-cfg.Dt/2 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := r.w.Step(cfg.Dt); err != nil {
			return err
		}
		for _, obs := range r.observers {
			obs.OnStep(r.w, r.w.Time())
		}
		if !callback(r.w, r.w.Time()) {
			return nil
		}
	}
	return nil
}

// RunRealtime paces the world against the wall clock until ctx is done,
// waking once per frame and running the fixed steps clock grants.
// Observers see every step. Cancellation is a normal stop.
func (r *Runner) RunRealtime(ctx context.Context, clock *Clock, frame time.Duration) error {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			n := clock.Advance(now.Sub(last).Seconds())
			last = now
			for ; n > 0; n-- {
				if err := r.w.Step(clock.Dt); err != nil {
					return err
				}
				for _, obs := range r.observers {
					obs.OnStep(r.w, r.w.Time())
				}
			}
		}
	}
}

func (r *Runner) finish(result *Result, before map[event.Kind]int) {
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	for k, n := range r.eventTotals() {
		if d := n - before[k]; d > 0 {
			result.Events[k.String()] = d
		}
	}
}

func (r *Runner) eventTotals() map[event.Kind]int {
	out := make(map[event.Kind]int)
	for _, k := range event.Kinds() {
		out[k] = r.w.EventTotal(k)
	}
	return out
}

func sample(w *world.World, probes []Probe) State {
	s := make(State, len(probes))
	for i, p := range probes {
		s[i] = p.Read(w)
	}
	return s
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if !(cfg.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	return nil
}
