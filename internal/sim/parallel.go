package sim

import (
	"context"
	"sync"

	"github.com/san-kum/rigidsim/internal/world"
)

// Builder creates an independent world and its metrics for one seed.
type Builder func(seed int64) (*world.World, []Metric, error)

// Ensemble runs several seeded worlds concurrently. Worlds share nothing,
// so each run owns its goroutine.
type Ensemble struct {
	build     Builder
	numRuns   int
	seedStart int64
}

func NewEnsemble(build Builder, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := cfg
			cfgCopy.Seed = e.seedStart + int64(idx)

			w, metrics, err := e.build(cfgCopy.Seed)
			if err != nil {
				errs[idx] = err
				return
			}
			r := New(w)
			for _, m := range metrics {
				r.AddMetric(m)
			}
			results[idx], errs[idx] = r.Run(ctx, cfgCopy)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
