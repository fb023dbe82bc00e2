package reef

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
)

// Evaluator scores a coral. Implementations set c.Fitness and mark
// c.Evaluated on success; on error the coral keeps its prior fitness.
type Evaluator[G Gene] interface {
	Evaluate(ctx context.Context, c *Coral[G]) error
}

// EvaluatorFunc adapts a genome scoring function to Evaluator.
type EvaluatorFunc[G Gene] func(ctx context.Context, genome []G) (float64, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc[G]) Evaluate(ctx context.Context, c *Coral[G]) error {
	fitness, err := f(ctx, c.Genome)
	if err != nil {
		return err
	}
	c.Fitness = fitness
	c.Evaluated = true
	return nil
}

// batchEvaluator scores a phase of larvae. Evaluation never touches reef
// state, so larvae may be scored concurrently; callers settle afterwards
// in their own fixed order.
type batchEvaluator[G Gene] struct {
	eval    Evaluator[G]
	workers int
	logger  *slog.Logger
}

// evaluate scores every larva and returns the number of failures.
func (b *batchEvaluator[G]) evaluate(ctx context.Context, larvae []*Coral[G]) int {
	var failed atomic.Int64

	run := func(c *Coral[G]) {
		c.Evaluated = false
		if err := b.eval.Evaluate(ctx, c); err != nil {
			failed.Add(1)
			b.logger.Warn("evaluation failed", "error", err, "fitness", c.Fitness)
		}
	}

	if b.workers <= 1 || len(larvae) <= 1 {
		for _, c := range larvae {
			run(c)
		}
		return int(failed.Load())
	}

	p := pool.New().WithMaxGoroutines(b.workers)
	for _, c := range larvae {
		p.Go(func() { run(c) })
	}
	p.Wait()
	return int(failed.Load())
}
