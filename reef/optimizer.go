package reef

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
)

// Option configures an Optimizer.
type Option func(*options)

type options struct {
	workers int
	hook    PhaseHook
	sink    func(SubstrateReport)
	logger  *slog.Logger
}

// WithWorkers sets how many larvae of one phase are evaluated concurrently.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithPhaseHook receives generation and phase timing boundaries.
func WithPhaseHook(h PhaseHook) Option {
	return func(o *options) { o.hook = h }
}

// WithSubstrateSink receives the adaptive variant's per-generation row.
func WithSubstrateSink(fn func(SubstrateReport)) Option {
	return func(o *options) { o.sink = fn }
}

// WithLogger sets the logger; slog.Default() otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Optimizer drives one or more independent reefs generation by generation.
// Every reef draws from the same stream in subpopulation order.
type Optimizer[G Gene] struct {
	params     Params
	ops        Operators[G]
	rng        Random
	eval       *batchEvaluator[G]
	hook       PhaseHook
	sink       func(SubstrateReport)
	logger     *slog.Logger
	pops       []*Population[G]
	strategies []Strategy[G]

	generation  int
	initialized bool
	best        Coral[G]
	hasBest     bool
	stopped     atomic.Bool
}

// New validates params and builds the reefs. It fails before any
// generation runs when a tunable is invalid.
func New[G Gene](params Params, ops Operators[G], eval Evaluator[G], rng Random, opts ...Option) (*Optimizer[G], error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if ops == nil || eval == nil || rng == nil {
		return nil, fmt.Errorf("%w: operators, evaluator and random source are required", ErrInvalidParams)
	}
	if ops.Bounds().Len() == 0 {
		return nil, fmt.Errorf("%w: genome has no genes", ErrInvalidParams)
	}

	o := options{workers: 1, hook: noopHook{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	opt := &Optimizer[G]{
		params: params,
		ops:    ops,
		rng:    rng,
		eval:   &batchEvaluator[G]{eval: eval, workers: o.workers, logger: o.logger},
		hook:   o.hook,
		sink:   o.sink,
		logger: o.logger,
	}

	for i := 0; i < params.Subpopulations; i++ {
		opt.pops = append(opt.pops, NewPopulation[G](params.Size, ops))
		e := engine[G]{
			index:  i,
			params: params,
			ops:    ops,
			rng:    rng,
			eval:   opt.eval,
			hook:   o.hook,
		}
		switch params.Variant {
		case VariantAdaptive:
			opt.strategies = append(opt.strategies, &Adaptive[G]{
				engine: e,
				table:  ops.Substrates(),
				logger: o.logger,
			})
		default:
			opt.strategies = append(opt.strategies, &Classic[G]{engine: e})
		}
	}
	return opt, nil
}

// Populations returns the reefs, one per subpopulation.
func (o *Optimizer[G]) Populations() []*Population[G] { return o.pops }

// Generation returns the number of completed generations.
func (o *Optimizer[G]) Generation() int { return o.generation }

// Best returns a copy of the fittest coral seen so far.
func (o *Optimizer[G]) Best() (Coral[G], bool) {
	if !o.hasBest {
		return Coral[G]{}, false
	}
	best := o.best
	best.Genome = slices.Clone(o.best.Genome)
	return best, true
}

// Stop asks Run to return before the next generation. Safe for concurrent use.
func (o *Optimizer[G]) Stop() { o.stopped.Store(true) }

// Init seeds every reef with random corals and evaluates them.
func (o *Optimizer[G]) Init(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i, pop := range o.pops {
		pop.Initialize(o.params.Occupancy, o.rng)
		var corals []*Coral[G]
		for idx := range pop.storage {
			if pop.storage[idx].Settled() {
				corals = append(corals, &pop.storage[idx])
			}
		}
		failed := o.eval.evaluate(ctx, corals)
		pop.BuildFitnessCache()
		o.trackBest(pop)
		o.logger.Info("reef initialized",
			"subpopulation", i,
			"size", pop.Size(),
			"occupied", pop.Occupied(),
			"failed", failed,
		)
	}
	o.initialized = true
}

// Step runs one generation on every reef. A generation always runs to
// completion; evaluations never see ctx cancellation.
func (o *Optimizer[G]) Step(ctx context.Context) []GenerationReport {
	if !o.initialized {
		o.Init(ctx)
	}
	ctx = context.WithoutCancel(ctx)

	o.hook.StartTick()
	reports := make([]GenerationReport, 0, len(o.pops))
	for i, pop := range o.pops {
		r := o.strategies[i].Generation(ctx, pop)
		r.Generation = o.generation
		if r.Substrates != nil {
			r.Substrates.Generation = o.generation
			if o.sink != nil {
				o.sink(*r.Substrates)
			}
		}
		o.trackBest(pop)
		reports = append(reports, r)
	}
	o.hook.EndTick()

	o.generation++
	return reports
}

// Run steps until generations have completed, ctx is done or Stop is
// called. Cancellation is only observed between generations. fn, when
// non-nil, receives each generation's reports.
func (o *Optimizer[G]) Run(ctx context.Context, generations int, fn func([]GenerationReport)) error {
	if !o.initialized {
		o.Init(ctx)
	}
	for o.generation < generations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if o.stopped.Load() {
			return nil
		}
		reports := o.Step(ctx)
		if fn != nil {
			fn(reports)
		}
	}
	return nil
}

func (o *Optimizer[G]) trackBest(pop *Population[G]) {
	g := pop.Best()
	if g == Empty {
		return
	}
	c := pop.Occupant(g)
	if o.hasBest && c.Fitness <= o.best.Fitness {
		return
	}
	o.best = Coral[G]{
		Genome:    slices.Clone(c.Genome),
		Fitness:   c.Fitness,
		Evaluated: c.Evaluated,
		Position:  c.Position,
	}
	o.hasBest = true
}
