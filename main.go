package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/reefcal/config"
	"github.com/pthm-cable/reefcal/market"
	"github.com/pthm-cable/reefcal/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output per-step stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	steps := flag.Int("steps", 0, "Simulation horizon in steps (0 = use config)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *steps > 0 {
		cfg.Market.Steps = *steps
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	runID := uuid.NewString()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Derived.LogLevel})).
		With("run_id", runID)
	slog.SetDefault(logger)

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		slog.Warn("failed to write config", "error", err)
	}

	started := time.Now()
	m := market.New(cfg, rngSeed)
	slog.Info("starting market simulation",
		"seed", rngSeed,
		"customers", cfg.Market.Customers,
		"steps", cfg.Market.Steps,
	)

	history := make([]telemetry.StepStats, 0, cfg.Market.Steps)
	for m.CurrentStep() < cfg.Market.Steps {
		s := m.Step()
		if *logStats {
			s.LogStats()
		}
		history = append(history, s)
	}
	m.LogSummary(logger)

	if err := out.WriteSteps(history); err != nil {
		slog.Warn("failed to write steps", "error", err)
	}
	if err := out.WriteRun(telemetry.RunInfo{
		RunID:      runID,
		Method:     "simulate",
		Seed:       rngSeed,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}); err != nil {
		slog.Warn("failed to write run info", "error", err)
	}
}
