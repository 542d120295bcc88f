// Package metrics folds a running world into summary numbers. Every type
// here satisfies sim.Metric.
package metrics

import "github.com/san-kum/rigidsim/internal/sim"

type Metric = sim.Metric
