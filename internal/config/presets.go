package config

import "sort"

func preset(scenario string, mutate func(c *Config)) *Config {
	c := DefaultConfig()
	c.Scenario = scenario
	mutate(c)
	return c
}

var Presets = map[string]map[string]*Config{
	"drop": {
		"default": preset("drop", func(c *Config) {}),
		"precise": preset("drop", func(c *Config) {
			c.Dt = 1.0 / 240
			c.World.Iterations = 20
		}),
		"coarse": preset("drop", func(c *Config) {
			c.Dt = 1.0 / 30
			c.MaxSubsteps = 2
		}),
		"moon": preset("drop", func(c *Config) {
			c.World.Gravity = [3]float64{0, -1.62, 0}
			c.Duration = 10
		}),
	},
	"stack": {
		"default": preset("stack", func(c *Config) {}),
		"stiff": preset("stack", func(c *Config) {
			c.World.Iterations = 30
			c.World.PositionIterations = 6
		}),
		"loose": preset("stack", func(c *Config) {
			c.World.Iterations = 4
			c.World.Baumgarte = 0.1
		}),
	},
	"pendulum": {
		"default": preset("pendulum", func(c *Config) { c.Duration = 10 }),
		"long": preset("pendulum", func(c *Config) {
			c.Dt = 1.0 / 120
			c.Duration = 30
		}),
	},
	"chain": {
		"default": preset("chain", func(c *Config) {}),
		"heavy": preset("chain", func(c *Config) {
			c.World.Gravity = [3]float64{0, -19.62, 0}
		}),
	},
	"bridge": {
		"default": preset("bridge", func(c *Config) { c.Duration = 8 }),
		"precise": preset("bridge", func(c *Config) {
			c.Dt = 1.0 / 120
			c.Duration = 8
			c.World.Iterations = 20
		}),
	},
	"cloth": {
		"default": preset("cloth", func(c *Config) { c.Duration = 4 }),
		"windless": preset("cloth", func(c *Config) {
			c.Duration = 4
			c.World.FrictionRule = "min"
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(scenario, name string) *Config {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	cfg, ok := scenarioPresets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(scenario string) []string {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
