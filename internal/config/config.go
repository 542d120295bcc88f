package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/san-kum/rigidsim/internal/solver"
	"github.com/san-kum/rigidsim/internal/world"
	"gopkg.in/yaml.v3"
)

const (
	DefaultScenario    = "drop"
	DefaultDt          = 1.0 / 60
	DefaultDuration    = 5.0
	DefaultMaxSubsteps = 5
)

var ErrInvalidConfig = errors.New("config: invalid config")

type Config struct {
	Scenario    string       `yaml:"scenario"`
	Dt          float64      `yaml:"dt"`
	Duration    float64      `yaml:"duration"`
	MaxSubsteps int          `yaml:"max_substeps"`
	Seed        int64        `yaml:"seed"`
	World       WorldConfig  `yaml:"world"`
	Record      RecordConfig `yaml:"record"`
}

type WorldConfig struct {
	Gravity              [3]float64 `yaml:"gravity,flow"`
	Iterations           int        `yaml:"iterations"`
	PositionIterations   int        `yaml:"position_iterations"`
	Baumgarte            float64    `yaml:"baumgarte"`
	Slop                 float64    `yaml:"slop"`
	RestitutionRule      string     `yaml:"restitution_rule"`
	FrictionRule         string     `yaml:"friction_rule"`
	RestitutionThreshold float64    `yaml:"restitution_threshold"`
}

// RecordConfig selects what a run records besides the default series.
// Entries are positions in the scene's body and link lists.
type RecordConfig struct {
	Bodies []int `yaml:"bodies,flow"`
	Links  []int `yaml:"links,flow"`
}

func DefaultConfig() *Config {
	sc := solver.DefaultConfig()
	return &Config{
		Scenario:    DefaultScenario,
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		MaxSubsteps: DefaultMaxSubsteps,
		World: WorldConfig{
			Gravity:              [3]float64{0, -9.81, 0},
			Iterations:           sc.Iterations,
			PositionIterations:   sc.PositionIterations,
			Baumgarte:            sc.Baumgarte,
			Slop:                 sc.Slop,
			RestitutionRule:      sc.RestitutionRule.String(),
			FrictionRule:         sc.FrictionRule.String(),
			RestitutionThreshold: sc.RestitutionThreshold,
		},
	}
}

// Load reads a YAML file over the defaults, so omitted keys keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case !(c.Dt > 0) || math.IsInf(c.Dt, 0):
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidConfig, c.Dt)
	case !(c.Duration > 0) || math.IsInf(c.Duration, 0):
		return fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidConfig, c.Duration)
	case c.MaxSubsteps < 1:
		return fmt.Errorf("%w: max_substeps must be at least 1, got %d", ErrInvalidConfig, c.MaxSubsteps)
	}
	if _, err := c.WorldConfig(nil); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WorldConfig converts the world section into a world configuration.
func (c *Config) WorldConfig(logger *slog.Logger) (world.Config, error) {
	wc := world.DefaultConfig()
	wc.Logger = logger
	wc.Gravity = c.World.Gravity

	sc := solver.DefaultConfig()
	sc.Iterations = c.World.Iterations
	sc.PositionIterations = c.World.PositionIterations
	sc.Baumgarte = c.World.Baumgarte
	sc.Slop = c.World.Slop
	sc.RestitutionThreshold = c.World.RestitutionThreshold

	var err error
	if sc.RestitutionRule, err = solver.ParseCombineRule(c.World.RestitutionRule); err != nil {
		return wc, err
	}
	if sc.FrictionRule, err = solver.ParseCombineRule(c.World.FrictionRule); err != nil {
		return wc, err
	}
	if err := sc.Validate(); err != nil {
		return wc, err
	}
	wc.Solver = sc
	return wc, nil
}

// Clone returns a deep copy, so presets can be tweaked without touching
// the table.
func (c *Config) Clone() *Config {
	out := *c
	out.Record.Bodies = append([]int(nil), c.Record.Bodies...)
	out.Record.Links = append([]int(nil), c.Record.Links...)
	return &out
}
