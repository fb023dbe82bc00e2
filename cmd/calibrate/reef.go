package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pthm-cable/reefcal/calibration"
	"github.com/pthm-cable/reefcal/reef"
	"github.com/pthm-cable/reefcal/telemetry"
)

// runReef calibrates with the coral reef optimizer in the configured
// encoding and returns the best parameter values.
func (r *run) runReef(ctx context.Context) ([]float64, error) {
	registry := r.eval.Registry()
	enc := r.reefEncoding()
	bounds := registry.Bounds(enc)
	opParams := r.cfg.ReefParams().Operators

	if enc == reef.EncodingInteger {
		ops := reef.NewIntOperators(bounds, opParams)
		return optimizeReef[int](ctx, r, ops, calibration.ForEncoding[int](r.eval, enc))
	}
	ops := reef.NewRealOperators(bounds, opParams)
	return optimizeReef[float64](ctx, r, ops, calibration.ForEncoding[float64](r.eval, enc))
}

func optimizeReef[G reef.Gene](ctx context.Context, r *run, ops reef.Operators[G], genes *calibration.Genes[G]) ([]float64, error) {
	cfg := r.cfg
	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	opts := []reef.Option{
		reef.WithWorkers(cfg.Calibration.Workers),
		reef.WithPhaseHook(perf),
		reef.WithLogger(r.logger),
		reef.WithSubstrateSink(func(s reef.SubstrateReport) {
			if err := r.out.WriteSubstrates(s); err != nil {
				r.logger.Warn("failed to write substrates", "error", err)
			}
		}),
	}

	opt, err := reef.New[G](cfg.ReefParams(), ops, genes, reef.NewRandom(r.seed), opts...)
	if err != nil {
		return nil, fmt.Errorf("creating reef: %w", err)
	}

	detector := telemetry.NewBookmarkDetector(
		cfg.Telemetry.BookmarkHistorySize,
		cfg.Bookmarks.Breakthrough.MinImprovement,
		cfg.Bookmarks.Stagnation.Generations,
	)
	window := max(cfg.Telemetry.PerfCollectorWindow, 1)

	onGeneration := func(reports []reef.GenerationReport) {
		var bestEver float64
		if b, ok := opt.Best(); ok {
			bestEver = b.Fitness
		}

		for _, rep := range reports {
			stats := telemetry.NewGenerationStats(rep, bestEver)
			stats.LogStats()
			if err := r.out.WriteGeneration(stats); err != nil {
				r.logger.Warn("failed to write generation", "error", err)
			}

			pop := opt.Populations()[rep.Subpopulation]
			if g := pop.Best(); g != reef.Empty {
				c := pop.Occupant(g)
				r.remember(c.Fitness, rep.Generation, rep.Subpopulation, genes.Values(c.Genome))
			}

			for _, b := range detector.Check(stats) {
				b.LogBookmark()
				if err := r.out.WriteBookmark(b); err != nil {
					r.logger.Warn("failed to write bookmark", "error", err)
				}
				saveSnapshot(r, opt.Populations(), rep.Generation, &b)
			}
		}

		if gen := opt.Generation(); gen%window == 0 {
			stats := perf.Stats()
			stats.LogStats()
			if err := r.out.WritePerf(stats, gen-1); err != nil {
				r.logger.Warn("failed to write perf", "error", err)
			}
		}

		elapsed := time.Since(r.start)
		done := opt.Generation()
		remaining := time.Duration(cfg.Reef.Generations-done) * (elapsed / time.Duration(done))
		r.logger.Info("progress",
			"generation", done,
			"generations", cfg.Reef.Generations,
			"evaluations", r.eval.Evaluations(),
			"best_fitness", bestEver,
			"elapsed", formatDuration(elapsed),
			"eta", formatDuration(remaining),
		)
	}

	opt.Init(ctx)
	if err := opt.Run(ctx, cfg.Reef.Generations, onGeneration); err != nil {
		r.logger.Warn("calibration interrupted", "generation", opt.Generation(), "error", err)
	}

	saveSnapshot(r, opt.Populations(), opt.Generation(), nil)

	best, ok := opt.Best()
	if !ok {
		return nil, nil
	}
	return genes.Values(best.Genome), nil
}

// saveSnapshot saves the reef state when output is enabled.
func saveSnapshot[G reef.Gene](r *run, pops []*reef.Population[G], generation int, b *telemetry.Bookmark) {
	dir := r.out.Dir()
	if dir == "" {
		return
	}
	s := &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		RunID:      r.id,
		RNGSeed:    r.seed,
		Generation: generation,
		Encoding:   r.cfg.Reef.Encoding,
		Bookmark:   b,
	}
	for i, p := range pops {
		s.Reefs = append(s.Reefs, telemetry.NewReefState(i, p))
	}
	path, err := telemetry.SaveSnapshot(s, dir)
	if err != nil {
		r.logger.Warn("failed to save snapshot", "error", err)
		return
	}
	r.logger.Debug("snapshot saved", "path", path)
}
