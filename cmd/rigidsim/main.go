package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/scene"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	dt         float64
	duration   float64
	configFile string
	sceneFile  string
	preset     string
	seed       int64
	iterations int
	addr       string
	every      int
	numRuns    int
	maxPlots   int
	phase      []string
	outFile    string
	params     []string
	metricName string
	maximize   bool
)

// main registers the commands and runs the root command. It exits with
// status 1 when a command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "rigidsim",
		Short:         "rigid body physics sandbox",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd, nil)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".rigidsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	simFlags := func(c *cobra.Command) *cobra.Command {
		c.Flags().Float64Var(&dt, "dt", 1.0/60, "fixed timestep")
		c.Flags().Float64Var(&duration, "time", 5, "simulated duration in seconds")
		c.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
		c.Flags().StringVar(&sceneFile, "scene", "", "scene file path (yaml), replaces the scenario scene")
		c.Flags().StringVar(&preset, "preset", "", "use a preset configuration")
		c.Flags().Int64Var(&seed, "seed", 0, "random seed for scenario jitter")
		c.Flags().IntVar(&iterations, "iterations", 0, "solver velocity iterations")
		return c
	}

	runCmd := simFlags(&cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot recorded series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&maxPlots, "max", 6, "maximum number of series to plot")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "summary and frequency analysis of recorded series",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringSliceVar(&phase, "phase", nil, "two series to draw as a phase portrait, e.g. --phase body1.x,body1.y")

	liveCmd := simFlags(&cobra.Command{
		Use:   "live [scenario]",
		Short: "step a scenario in real time in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	})

	serveCmd := simFlags(&cobra.Command{
		Use:   "serve [scenario]",
		Short: "step a scenario in real time and stream poses over websocket",
		Args:  cobra.MaximumNArgs(1),
		RunE:  serveScenario,
	})
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&every, "every", 2, "steps between broadcast frames")

	benchCmd := simFlags(&cobra.Command{
		Use:   "bench [scenario]",
		Short: "run seeded copies of a scenario concurrently",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScenario,
	})
	benchCmd.Flags().IntVar(&numRuns, "runs", 8, "number of concurrent runs")

	snapshotCmd := simFlags(&cobra.Command{
		Use:   "snapshot [scenario]",
		Short: "run a scenario and draw the final state as SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE:  snapshotScenario,
	})
	snapshotCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	sweepCmd := simFlags(&cobra.Command{
		Use:   "sweep [scenario]",
		Short: "grid search solver settings against a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepScenario,
	})
	sweepCmd.Flags().StringArrayVarP(&params, "param", "p", nil, "name=v1,v2,... or name=lo:hi:n; repeatable")
	sweepCmd.Flags().StringVar(&metricName, "metric", "energy_drift", "metric to optimize")
	sweepCmd.Flags().BoolVar(&maximize, "max", false, "maximize the metric instead of minimizing it")

	batchCmd := &cobra.Command{
		Use:   "batch [script.yaml]",
		Short: "run a scripted sequence of scenarios",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list available presets for a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for scenario: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := experiment.NewRegistry()
			for _, name := range r.List() {
				s, _ := r.Get(name)
				fmt.Printf("  %-10s %s\n", name, s.Description)
			}
			return nil
		},
	}

	sceneCmd := &cobra.Command{
		Use:   "scene [scenario]",
		Short: "print a scenario scene as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := experiment.NewRegistry().Scene(args[0], seed)
			if err != nil {
				return err
			}
			data, err := sc.Marshal()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
	sceneCmd.Flags().Int64Var(&seed, "seed", 0, "random seed for scenario jitter")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, analyzeCmd, liveCmd, serveCmd, benchCmd, snapshotCmd, sweepCmd, batchCmd, presetsCmd, scenariosCmd, sceneCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// loadConfig resolves the run configuration. Later sources win: defaults,
// then the preset, then the config file, then flags set on the command
// line. A scenario argument overrides the scenario named in a file.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Scenario = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Scenario, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Scenario))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if len(args) > 0 {
			cfg.Scenario = args[0]
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("iterations") {
		cfg.World.Iterations = iterations
	}
	return cfg, cfg.Validate()
}

// newExperiment builds the world for cfg, from --scene when given and from
// the scenario registry otherwise.
func newExperiment(cfg *config.Config, logger *slog.Logger) (*experiment.Experiment, error) {
	if sceneFile != "" {
		sc, err := scene.Load(sceneFile)
		if err != nil {
			return nil, err
		}
		return experiment.New(cfg, sc, nil, logger)
	}
	return experiment.FromRegistry(experiment.NewRegistry(), cfg, logger)
}

func setup(cmd *cobra.Command, args []string) (*config.Config, *slog.Logger, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("config resolved", "scenario", cfg.Scenario, "dt", cfg.Dt, "duration", cfg.Duration, "seed", cfg.Seed)
	return cfg, logger, nil
}

func since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
