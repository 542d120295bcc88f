package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/scene"
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/storage"
	"gopkg.in/yaml.v3"
)

// Script is a scripted sequence of runs.
type Script struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is one run of a script. Zero fields keep the value of the preset,
// or of the defaults when no preset is named.
type Step struct {
	Scenario   string  `yaml:"scenario"`
	Preset     string  `yaml:"preset"`
	Scene      string  `yaml:"scene"`
	Duration   float64 `yaml:"duration"`
	Dt         float64 `yaml:"dt"`
	Seed       int64   `yaml:"seed"`
	Iterations int     `yaml:"iterations"`
	Save       bool    `yaml:"save"`
}

// Outcome is what one step produced. RunID is empty for unsaved steps.
type Outcome struct {
	Step   Step
	RunID  string
	Result *sim.Result
}

// LoadScript loads a script from a YAML file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("script %s has no steps", path)
	}
	return &script, nil
}

// Config resolves the run configuration of a step.
func (s Step) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Scenario != "" {
		cfg.Scenario = s.Scenario
	}
	if s.Preset != "" {
		p := config.GetPreset(cfg.Scenario, s.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for %s", s.Preset, cfg.Scenario)
		}
		cfg = p
	}
	if s.Duration != 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt != 0 {
		cfg.Dt = s.Dt
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	if s.Iterations != 0 {
		cfg.World.Iterations = s.Iterations
	}
	return cfg, cfg.Validate()
}

// Runner executes scripts against a registry. Steps marked save are
// written to Store, which may be nil when no step saves.
type Runner struct {
	Registry *experiment.Registry
	Store    *storage.Store
	Log      *slog.Logger
}

// Run executes every step in order and stops at the first failure,
// returning the outcomes so far.
func (r *Runner) Run(ctx context.Context, script *Script) ([]Outcome, error) {
	logger := r.Log
	if logger == nil {
		logger = slog.Default()
	}
	outcomes := make([]Outcome, 0, len(script.Steps))

	for i, step := range script.Steps {
		cfg, err := step.Config()
		if err != nil {
			return outcomes, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("running step", "script", script.Name, "step", i+1, "of", len(script.Steps), "scenario", cfg.Scenario)

		var exp *experiment.Experiment
		if step.Scene != "" {
			sc, err := scene.Load(step.Scene)
			if err != nil {
				return outcomes, fmt.Errorf("step %d: %w", i+1, err)
			}
			exp, err = experiment.New(cfg, sc, nil, logger)
			if err != nil {
				return outcomes, fmt.Errorf("step %d setup: %w", i+1, err)
			}
		} else {
			exp, err = experiment.FromRegistry(r.Registry, cfg, logger)
			if err != nil {
				return outcomes, fmt.Errorf("step %d setup: %w", i+1, err)
			}
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return outcomes, fmt.Errorf("step %d run: %w", i+1, err)
		}

		out := Outcome{Step: step, Result: result}
		if step.Save {
			if r.Store == nil {
				return outcomes, fmt.Errorf("step %d: no store to save to", i+1)
			}
			out.RunID, err = r.Store.Save(storage.RunMetadata{
				Scenario:   cfg.Scenario,
				Preset:     step.Preset,
				Seed:       cfg.Seed,
				Dt:         cfg.Dt,
				Duration:   cfg.Duration,
				Iterations: cfg.World.Iterations,
			}, result, scene.Capture(exp.World()))
			if err != nil {
				return outcomes, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}
