package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/rigidsim/internal/analysis"
	"github.com/san-kum/rigidsim/internal/automation"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/export"
	"github.com/san-kum/rigidsim/internal/optim"
	"github.com/san-kum/rigidsim/internal/scene"
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/storage"
	"github.com/san-kum/rigidsim/internal/stream"
	"github.com/san-kum/rigidsim/internal/viz"
	"github.com/san-kum/rigidsim/internal/world"
	"github.com/spf13/cobra"
)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd, args)
	if err != nil {
		return err
	}
	exp, err := newExperiment(cfg, logger)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("running %s...\n", cfg.Scenario)
	start := time.Now()
	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := since(start)

	runID, err := st.Save(storage.RunMetadata{
		Scenario:   cfg.Scenario,
		Preset:     preset,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Iterations: cfg.World.Iterations,
	}, result, scene.Capture(exp.World()))
	if err != nil {
		return err
	}

	fmt.Printf("completed in %s\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("broken links: %d\n", experiment.Broken(exp.World()))
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
	if len(result.Events) > 0 {
		fmt.Println("\nevents:")
		for _, k := range sortedKeys(result.Events) {
			fmt.Printf("  %s: %d\n", k, result.Events[k])
		}
	}
	for _, e := range result.Errors {
		fmt.Printf("error: %v\n", e)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tSTEPS\tEVENTS")
	for _, run := range runs {
		events := 0
		for _, n := range run.Events {
			events += n
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Steps,
			events,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(series.States) == 0 || len(series.Names) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(series.States))

	for i, name := range series.Names {
		if i >= maxPlots {
			fmt.Printf("(%d more series, raise --max to see them)\n", len(series.Names)-maxPlots)
			break
		}
		data, _ := series.Column(name)
		if analysis.Summarize(data).Count < 2 {
			fmt.Printf("%s: not enough finite samples\n\n", name)
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
}

func exportCSV(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportCSV(os.Stdout, args[0])
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%s)\n\n", meta.ID, meta.Scenario)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERIES\tSAMPLES\tMIN\tMAX\tMEAN\tRMS\tPEAK HZ")
	for _, name := range series.Names {
		data, _ := series.Column(name)
		s := analysis.Summarize(data)
		peak := "-"
		// The spectrum needs an unbroken series.
		if s.Count == len(data) && s.Count >= 8 {
			if f, p := analysis.DominantFrequency(data, meta.Dt); p > 0 {
				peak = fmt.Sprintf("%.3f", f)
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t%.4f\t%.4f\t%s\n", name, s.Count, s.Min, s.Max, s.Mean, s.RMS, peak)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(phase) == 0 {
		return nil
	}
	if len(phase) != 2 {
		return fmt.Errorf("--phase takes exactly two series, got %d", len(phase))
	}
	xs, ok := series.Column(phase[0])
	if !ok {
		return fmt.Errorf("unknown series %q (have %s)", phase[0], strings.Join(series.Names, ", "))
	}
	ys, ok := series.Column(phase[1])
	if !ok {
		return fmt.Errorf("unknown series %q (have %s)", phase[1], strings.Join(series.Names, ", "))
	}
	fmt.Printf("\nphase portrait: %s vs %s\n", phase[1], phase[0])
	fmt.Println(analysis.PhasePortraitToASCII(analysis.NewPhasePortrait(xs, ys), 60, 20))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	// The terminal belongs to the view, so only errors reach stderr.
	if !cmd.Flags().Changed("log-level") {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}

	source := func(scenario string) (viz.Source, *experiment.Experiment, error) {
		var scenarioArgs []string
		if scenario != "" {
			scenarioArgs = []string{scenario}
		}
		cfg, err := loadConfig(cmd, scenarioArgs)
		if err != nil {
			return nil, nil, err
		}
		first, err := newExperiment(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		used := false
		return func() (*world.World, error) {
			if !used {
				used = true
				return first.World(), nil
			}
			e, err := newExperiment(cfg, logger)
			if err != nil {
				return nil, err
			}
			return e.World(), nil
		}, first, nil
	}

	if len(args) == 0 && sceneFile == "" {
		r := experiment.NewRegistry()
		items := make([]viz.MenuItem, 0)
		for _, name := range r.List() {
			s, _ := r.Get(name)
			items = append(items, viz.MenuItem{Name: name, Description: s.Description})
		}
		open := func(name string) (viz.Source, error) {
			src, _, err := source(name)
			return src, err
		}
		return viz.RunMenu(items, open, viz.Options{Dt: dt})
	}

	scenario := ""
	if len(args) > 0 {
		scenario = args[0]
	}
	src, first, err := source(scenario)
	if err != nil {
		return err
	}
	cfg := first.Config()
	return viz.Run(src, viz.Options{Title: cfg.Scenario, Dt: cfg.Dt, MaxSubsteps: cfg.MaxSubsteps})
}

func serveScenario(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd, args)
	if err != nil {
		return err
	}
	exp, err := newExperiment(cfg, logger)
	if err != nil {
		return err
	}

	hub := stream.NewHub(logger)
	initial := exp.Scene()
	hub.OnConnect(func() any { return initial })

	runner := exp.GetRunner()
	runner.AddObserver(stream.NewPublisher(hub, exp.World(), every))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	logger.Info("streaming", "scenario", cfg.Scenario, "addr", addr, "path", "/ws")
	fmt.Printf("streaming %s on ws://%s/ws (ctrl+c to stop)\n", cfg.Scenario, addr)

	simErr := make(chan error, 1)
	go func() {
		simErr <- runner.RunRealtime(ctx, sim.NewClock(cfg.Dt, cfg.MaxSubsteps), time.Second/60)
	}()

	var runErr error
	select {
	case runErr = <-simErr:
	case runErr = <-serveErr:
		stop()
		<-simErr
	}

	hub.Close()
	shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func benchScenario(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd, args)
	if err != nil {
		return err
	}
	if numRuns < 1 {
		return fmt.Errorf("--runs must be at least 1")
	}
	if sceneFile != "" {
		return fmt.Errorf("bench runs registry scenarios; --scene is not supported")
	}

	ensemble := sim.NewEnsemble(experiment.Builder(experiment.NewRegistry(), cfg, logger), numRuns, cfg.Seed)
	fmt.Printf("benchmarking %s: %d runs of %.2fs at dt=%.4f\n", cfg.Scenario, numRuns, cfg.Duration, cfg.Dt)
	start := time.Now()
	results, err := ensemble.Run(cmd.Context(), sim.Config{Dt: cfg.Dt, Duration: cfg.Duration})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	steps := 0
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range results {
		steps += r.StepsTaken
		for name, v := range r.Metrics {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				sums[name] += v
				counts[name]++
			}
		}
	}

	fmt.Printf("completed in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("steps: %d (%.0f steps/s)\n", steps, float64(steps)/elapsed.Seconds())
	fmt.Println("\nmean metrics:")
	for _, name := range sortedKeys(sums) {
		fmt.Printf("  %s: %.6f\n", name, sums[name]/float64(counts[name]))
	}
	return nil
}

func snapshotScenario(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd, args)
	if err != nil {
		return err
	}
	exp, err := newExperiment(cfg, logger)
	if err != nil {
		return err
	}
	if _, err := exp.Run(cmd.Context()); err != nil {
		return err
	}

	svg := export.WorldToSVG(exp.World(), nil, 800, 600)
	if outFile == "" {
		_, err = fmt.Println(svg)
		return err
	}
	if err := os.WriteFile(outFile, []byte(svg), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outFile)
	return nil
}

// parseParam reads "name=v1,v2" or "name=lo:hi:n".
func parseParam(s string) (optim.Param, error) {
	name, rhs, ok := strings.Cut(s, "=")
	if !ok || name == "" || rhs == "" {
		return optim.Param{}, fmt.Errorf("bad --param %q, want name=values", s)
	}
	if parts := strings.Split(rhs, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err := errors.Join(err1, err2, err3); err != nil {
			return optim.Param{}, fmt.Errorf("bad range in --param %q: %w", s, err)
		}
		return optim.Param{Name: name, Values: optim.Linspace(lo, hi, n)}, nil
	}
	var values []float64
	for _, f := range strings.Split(rhs, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return optim.Param{}, fmt.Errorf("bad value in --param %q: %w", s, err)
		}
		values = append(values, v)
	}
	return optim.Param{Name: name, Values: values}, nil
}

func sweepScenario(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd, args)
	if err != nil {
		return err
	}
	if len(params) == 0 {
		return fmt.Errorf("give at least one --param (one of %v)", optim.Names())
	}
	grid := make([]optim.Param, 0, len(params))
	for _, p := range params {
		param, err := parseParam(p)
		if err != nil {
			return err
		}
		grid = append(grid, param)
	}
	search, err := optim.NewGridSearch(grid)
	if err != nil {
		return err
	}
	search.Maximize = maximize

	run := func(ctx context.Context, c *config.Config) (*sim.Result, error) {
		exp, err := newExperiment(c, logger)
		if err != nil {
			return nil, err
		}
		return exp.Run(ctx)
	}
	best, trials, err := search.Search(cmd.Context(), cfg, run, metricName)
	if err != nil {
		return err
	}

	names := make([]string, len(grid))
	for i, p := range grid {
		names[i] = p.Name
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(append(names, metricName), "\t")))
	for _, tr := range trials {
		row := make([]string, 0, len(names)+1)
		for _, n := range names {
			row = append(row, strconv.FormatFloat(tr.Params[n], 'g', 6, 64))
		}
		if tr.Err != nil {
			row = append(row, "error: "+tr.Err.Error())
		} else {
			row = append(row, fmt.Sprintf("%.6f", tr.Value))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best.Params == nil {
		return fmt.Errorf("no trial produced a finite %s", metricName)
	}
	fmt.Printf("\nbest %s = %.6f at", metricName, best.Value)
	for _, n := range names {
		fmt.Printf(" %s=%g", n, best.Params[n])
	}
	fmt.Println()
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	script, err := automation.LoadScript(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	r := &automation.Runner{Registry: experiment.NewRegistry(), Store: st, Log: logger}
	fmt.Printf("running %s (%d steps)\n", script.Name, len(script.Steps))
	outcomes, err := r.Run(cmd.Context(), script)
	for i, o := range outcomes {
		id := o.RunID
		if id == "" {
			id = "(not saved)"
		}
		fmt.Printf("  %d. %-10s %5d steps  %s\n", i+1, o.Step.Scenario, o.Result.StepsTaken, id)
	}
	return err
}
