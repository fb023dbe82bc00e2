// Package main calibrates market simulation parameters against observed
// sales, awareness and perception series.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/reefcal/calibration"
	"github.com/pthm-cable/reefcal/config"
	"github.com/pthm-cable/reefcal/market"
	"github.com/pthm-cable/reefcal/reef"
	"github.com/pthm-cable/reefcal/telemetry"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// run carries the shared state of one calibration run.
type run struct {
	id     string
	seed   int64
	cfg    *config.Config
	eval   *calibration.Evaluator
	out    *telemetry.OutputManager
	hof    *telemetry.HallOfFame
	logger *slog.Logger
	start  time.Time
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	targetsPath := flag.String("targets", "", "Target CSV (empty = calibration.targets, or synthetic data from the base config)")
	outputDir := flag.String("output", "", "Output directory for results")
	method := flag.String("method", "reef", "Optimizer: reef | cmaes")
	seed := flag.Int64("seed", 0, "RNG seed (0 = reef.seed from config)")
	generations := flag.Int("generations", 0, "Reef generations (0 = use config)")
	workers := flag.Int("workers", -1, "Concurrent larva evaluations (-1 = use config)")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations (cmaes)")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	flag.Parse()

	// Load base config
	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Cfg().Clone()
	if *generations > 0 {
		cfg.Reef.Generations = *generations
	}
	if *workers >= 0 {
		cfg.Calibration.Workers = *workers
	}
	if *seed != 0 {
		cfg.Reef.Seed = *seed
	}
	if cfg.Reef.Seed == 0 {
		cfg.Reef.Seed = time.Now().UnixNano()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// Set up slog (JSON to stdout for structured logging)
	runID := uuid.NewString()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Derived.LogLevel})).
		With("run_id", runID)
	slog.SetDefault(logger)

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		log.Fatalf("failed to create output: %v", err)
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		logger.Warn("failed to write config", "error", err)
	}

	registry, err := calibration.NewRegistry(cfg.Calibration.Parameters)
	if err != nil {
		log.Fatalf("failed to build parameters: %v", err)
	}
	seeds := calibration.Seeds(cfg.Reef.Seed, cfg.Calibration.Seeds)

	if *targetsPath == "" {
		*targetsPath = cfg.Calibration.Targets
	}
	targets, err := loadTargets(*targetsPath, cfg, seeds, out)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	eval, err := calibration.NewEvaluator(cfg, registry, targets, seeds)
	if err != nil {
		log.Fatalf("failed to create evaluator: %v", err)
	}

	r := &run{
		id:     runID,
		seed:   cfg.Reef.Seed,
		cfg:    cfg,
		eval:   eval,
		out:    out,
		hof:    telemetry.NewHallOfFame(cfg.HallOfFame.Size, cfg.HallOfFame.MinDistance),
		logger: logger,
		start:  time.Now(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("starting calibration",
		"method", *method,
		"parameters", registry.Dim(),
		"targets", len(targets),
		"seeds", len(seeds),
		"seed", r.seed,
	)

	var best []float64
	switch *method {
	case "reef":
		best, err = r.runReef(ctx)
	case "cmaes":
		best, err = r.runCMAES(ctx, *maxEvals, *population)
	default:
		log.Fatalf("unknown method %q", *method)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("calibration failed: %v", err)
	}
	if best == nil {
		log.Fatal("no calibration was evaluated")
	}

	r.finish(*method, best)
}

// loadTargets reads the target CSV, or simulates the base config over the
// evaluation seeds when no path is given.
func loadTargets(path string, cfg *config.Config, seeds []int64, out *telemetry.OutputManager) ([]calibration.Target, error) {
	if path != "" {
		return calibration.LoadTargets(path)
	}

	slog.Info("no targets given, simulating the base config")
	runs := make([][]telemetry.StepStats, len(seeds))
	for i, s := range seeds {
		runs[i] = market.Run(cfg, s)
	}
	targets := calibration.TargetsFromSteps(runs...)

	if dir := out.Dir(); dir != "" {
		f, err := os.Create(filepath.Join(dir, "targets.csv"))
		if err != nil {
			return nil, fmt.Errorf("creating targets.csv: %w", err)
		}
		defer f.Close()
		if err := calibration.WriteTargets(f, targets); err != nil {
			return nil, fmt.Errorf("writing targets.csv: %w", err)
		}
	}
	return targets, nil
}

// finish logs the best calibration and writes the run outputs.
func (r *run) finish(method string, best []float64) {
	registry := r.eval.Registry()
	score, values, ok := r.eval.Best()
	if !ok {
		values = registry.Clamp(best)
	}

	elapsed := time.Since(r.start)
	r.logger.Info("calibration complete",
		"evaluations", r.eval.Evaluations(),
		"elapsed", formatDuration(elapsed),
		"fitness", score.Fitness,
		"error", score.Error,
		"sales_nrmse", score.Sales,
		"awareness_nrmse", score.Awareness,
		"perception_nrmse", score.Perception,
	)
	for i, p := range registry.Params {
		r.logger.Info("best parameter", "name", p.Path, "value", values[i])
	}

	bestCfg := r.eval.Config(values)
	if err := r.out.WriteBestConfig(bestCfg); err != nil {
		r.logger.Warn("failed to write best config", "error", err)
	}
	if err := r.out.WriteHallOfFame(r.hof); err != nil {
		r.logger.Warn("failed to write hall of fame", "error", err)
	}

	// Trajectory of the best calibration for the first seed
	if err := r.out.WriteSteps(market.Run(bestCfg, calibration.Seeds(r.seed, 1)[0])); err != nil {
		r.logger.Warn("failed to write steps", "error", err)
	}

	info := telemetry.RunInfo{
		RunID:       r.id,
		Method:      method,
		Seed:        r.seed,
		Generations: r.cfg.Reef.Generations,
		Evaluations: r.eval.Evaluations(),
		BestFitness: score.Fitness,
		StartedAt:   r.start,
		FinishedAt:  time.Now(),
	}
	if method == "reef" {
		info.Variant = r.cfg.Reef.Variant
		info.Encoding = r.cfg.Reef.Encoding
	} else {
		info.Generations = 0
	}
	if err := r.out.WriteRun(info); err != nil {
		r.logger.Warn("failed to write run info", "error", err)
	}
	if dir := r.out.Dir(); dir != "" {
		r.logger.Info("results saved", "dir", dir)
	}
}

// remember offers a calibration to the hall of fame.
func (r *run) remember(fitness float64, generation, subpopulation int, values []float64) {
	registry := r.eval.Registry()
	r.hof.Consider(telemetry.HallEntry{
		Fitness:       fitness,
		Generation:    generation,
		Subpopulation: subpopulation,
		Params:        registry.Named(values),
		Normalized:    registry.Normalize(values),
	})
}

// reefEncoding returns the configured genome encoding.
func (r *run) reefEncoding() reef.Encoding {
	return reef.Encoding(r.cfg.Reef.Encoding)
}
