package calibration

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/reefcal/config"
	"github.com/pthm-cable/reefcal/market"
	"github.com/pthm-cable/reefcal/reef"
	"github.com/pthm-cable/reefcal/telemetry"
)

// Score is the outcome of one parameter vector.
type Score struct {
	Fitness float64 // 1/(1+Error), higher is better
	Error   float64 // weighted normalized RMSE

	Sales      float64 // per-series normalized RMSE
	Awareness  float64
	Perception float64
}

// Evaluator runs the market simulation for every seed and scores the mean
// trajectory against the targets.
type Evaluator struct {
	registry *Registry
	base     *config.Config
	targets  []Target
	seeds    []int64
	weights  config.WeightsConfig
	workers  int // concurrent seed runs per evaluation

	evaluations atomic.Int64

	// Best run tracking
	mu         sync.Mutex
	best       Score
	bestValues []float64
	hasBest    bool
}

// NewEvaluator creates an evaluator. base is cloned; every evaluation
// applies its values to a fresh copy. seeds are the market seeds each
// evaluation averages over.
func NewEvaluator(base *config.Config, registry *Registry, targets []Target, seeds []int64) (*Evaluator, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("calibration needs at least one seed")
	}
	if last := targets[len(targets)-1].Step; last >= base.Market.Steps {
		return nil, fmt.Errorf("target step %d is beyond the %d step horizon", last, base.Market.Steps)
	}
	w := base.Calibration.Weights
	if w.Sales+w.Awareness+w.Perception <= 0 {
		return nil, fmt.Errorf("calibration weights sum to zero")
	}
	return &Evaluator{
		registry: registry,
		base:     base.Clone(),
		targets:  targets,
		seeds:    seeds,
		weights:  w,
		workers:  len(seeds),
	}, nil
}

// Seeds derives n market seeds from a run seed.
func Seeds(runSeed int64, n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = runSeed*1000 + int64(i) + 1
	}
	return seeds
}

// Registry returns the parameter registry.
func (e *Evaluator) Registry() *Registry { return e.registry }

// Evaluations returns the number of completed evaluations.
func (e *Evaluator) Evaluations() int64 { return e.evaluations.Load() }

// Best returns the best score and its parameter values.
func (e *Evaluator) Best() (Score, []float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.best, slices.Clone(e.bestValues), e.hasBest
}

// Config returns a copy of the base config with values applied.
func (e *Evaluator) Config(values []float64) *config.Config {
	cfg := e.base.Clone()
	e.registry.Apply(cfg, values)
	return cfg
}

// Evaluate scores parameter values. Seeds run concurrently; results are
// combined in seed order so the score does not depend on scheduling.
func (e *Evaluator) Evaluate(ctx context.Context, values []float64) (Score, error) {
	cfg := e.Config(values)

	runs := make([][]telemetry.StepStats, len(e.seeds))
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(e.workers)
	for i, seed := range e.seeds {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			runs[i] = market.Run(cfg, seed)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return Score{}, fmt.Errorf("running market: %w", err)
	}

	score := e.score(TargetsFromSteps(runs...))
	e.evaluations.Add(1)

	e.mu.Lock()
	if !e.hasBest || score.Fitness > e.best.Fitness {
		e.best = score
		e.bestValues = e.registry.Clamp(values)
		e.hasBest = true
	}
	e.mu.Unlock()

	return score, nil
}

// score compares a simulated trajectory with the targets.
func (e *Evaluator) score(sim []Target) Score {
	n := len(e.targets)
	want := struct{ sales, awareness, perception []float64 }{
		make([]float64, n), make([]float64, n), make([]float64, n),
	}
	got := struct{ sales, awareness, perception []float64 }{
		make([]float64, n), make([]float64, n), make([]float64, n),
	}
	for i, t := range e.targets {
		want.sales[i], want.awareness[i], want.perception[i] = t.Sales, t.Awareness, t.Perception
		s := sim[t.Step]
		got.sales[i], got.awareness[i], got.perception[i] = s.Sales, s.Awareness, s.Perception
	}

	sc := Score{
		Sales:      NormalizedRMSE(want.sales, got.sales),
		Awareness:  NormalizedRMSE(want.awareness, got.awareness),
		Perception: NormalizedRMSE(want.perception, got.perception),
	}
	w := e.weights
	sc.Error = (w.Sales*sc.Sales + w.Awareness*sc.Awareness + w.Perception*sc.Perception) /
		(w.Sales + w.Awareness + w.Perception)
	sc.Fitness = 1 / (1 + sc.Error)
	return sc
}

// NormalizedRMSE is the root mean squared error of got against want,
// divided by the range of want. A flat series is scaled by its mean
// magnitude instead, and an all-zero one is not scaled.
func NormalizedRMSE(want, got []float64) float64 {
	if len(want) == 0 {
		return 0
	}
	rmse := floats.Distance(want, got, 2) / math.Sqrt(float64(len(want)))

	scale := floats.Max(want) - floats.Min(want)
	if scale == 0 {
		abs := make([]float64, len(want))
		for i, v := range want {
			abs[i] = math.Abs(v)
		}
		scale = stat.Mean(abs, nil)
	}
	if scale == 0 {
		return rmse
	}
	return rmse / scale
}

// Genes adapts the evaluator to a reef genome encoding.
type Genes[G reef.Gene] struct {
	eval     *Evaluator
	encoding reef.Encoding
}

// ForEncoding returns a reef.Evaluator that decodes genomes of enc before
// scoring them.
func ForEncoding[G reef.Gene](e *Evaluator, enc reef.Encoding) *Genes[G] {
	return &Genes[G]{eval: e, encoding: enc}
}

// Evaluate implements reef.Evaluator.
func (g *Genes[G]) Evaluate(ctx context.Context, c *reef.Coral[G]) error {
	values := g.eval.registry.Decode(g.encoding, c.Values())
	score, err := g.eval.Evaluate(ctx, values)
	if err != nil {
		return err
	}
	c.Fitness = score.Fitness
	c.Evaluated = true
	return nil
}

// Values decodes a genome to parameter values.
func (g *Genes[G]) Values(genome []G) []float64 {
	raw := make([]float64, len(genome))
	for i, v := range genome {
		raw[i] = float64(v)
	}
	return g.eval.registry.Decode(g.encoding, raw)
}
