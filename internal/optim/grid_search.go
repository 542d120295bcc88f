package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/sim"
)

// setters are the config knobs a search may vary.
var setters = map[string]func(c *config.Config, v float64){
	"dt":                    func(c *config.Config, v float64) { c.Dt = v },
	"iterations":            func(c *config.Config, v float64) { c.World.Iterations = int(math.Round(v)) },
	"position_iterations":   func(c *config.Config, v float64) { c.World.PositionIterations = int(math.Round(v)) },
	"baumgarte":             func(c *config.Config, v float64) { c.World.Baumgarte = v },
	"slop":                  func(c *config.Config, v float64) { c.World.Slop = v },
	"restitution_threshold": func(c *config.Config, v float64) { c.World.RestitutionThreshold = v },
	"gravity":               func(c *config.Config, v float64) { c.World.Gravity = [3]float64{0, -v, 0} },
}

// Names lists the parameters a search can vary.
func Names() []string {
	out := make([]string, 0, len(setters))
	for k := range setters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Param is one searched knob and the values to try.
type Param struct {
	Name   string
	Values []float64
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Trial is one evaluated point of the grid.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// RunFunc runs one configuration and returns its result.
type RunFunc func(ctx context.Context, cfg *config.Config) (*sim.Result, error)

// GridSearch tries every combination of parameter values and keeps the
// one whose metric is lowest, or highest with Maximize.
type GridSearch struct {
	params   []Param
	Maximize bool
}

func NewGridSearch(params []Param) (*GridSearch, error) {
	for _, p := range params {
		if _, ok := setters[p.Name]; !ok {
			return nil, fmt.Errorf("unknown parameter %q (have %v)", p.Name, Names())
		}
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("parameter %q has no values", p.Name)
		}
	}
	return &GridSearch{params: params}, nil
}

// Search evaluates the grid around base. Failed or non-finite trials are
// reported but never win. The best trial has a nil Params map when no
// trial succeeded.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, run RunFunc, metricName string) (Trial, []Trial, error) {
	var trials []Trial
	best := Trial{Value: math.Inf(1)}
	if g.Maximize {
		best.Value = math.Inf(-1)
	}

	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, run, metricName, &best, &trials)
	return best, trials, err
}

func (g *GridSearch) better(v, than float64) bool {
	if g.Maximize {
		return v > than
	}
	return v < than
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	run RunFunc,
	metricName string,
	best *Trial,
	trials *[]Trial,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.params) {
		params := make(map[string]float64, len(current))
		cfg := base.Clone()
		for k, v := range current {
			params[k] = v
			setters[k](cfg, v)
		}
		trial := Trial{Params: params, Value: math.NaN()}
		if err := cfg.Validate(); err != nil {
			trial.Err = err
		} else if result, err := run(ctx, cfg); err != nil {
			trial.Err = err
		} else if v, ok := result.Metrics[metricName]; !ok {
			trial.Err = fmt.Errorf("metric %q not recorded", metricName)
		} else {
			trial.Value = v
		}
		*trials = append(*trials, trial)

		if trial.Err == nil && !math.IsNaN(trial.Value) && !math.IsInf(trial.Value, 0) && g.better(trial.Value, best.Value) {
			*best = trial
		}
		return nil
	}

	p := g.params[depth]
	for _, val := range p.Values {
		current[p.Name] = val
		if err := g.searchRecursive(ctx, depth+1, current, base, run, metricName, best, trials); err != nil {
			return err
		}
	}
	delete(current, p.Name)
	return nil
}
