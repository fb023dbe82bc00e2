package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"
)

// runCMAES calibrates with CMA-ES over normalized parameters as a baseline
// for the reef. It minimizes the weighted error and returns the best
// parameter values.
func (r *run) runCMAES(ctx context.Context, maxEvals, population int) ([]float64, error) {
	registry := r.eval.Registry()
	dim := registry.Dim()
	initX := registry.Normalize(registry.Extract(r.cfg))

	// Per-evaluation log; one column per parameter
	var logWriter *csv.Writer
	if dir := r.out.Dir(); dir != "" {
		logFile, err := os.Create(filepath.Join(dir, "evaluations.csv"))
		if err != nil {
			return nil, fmt.Errorf("creating evaluations log: %w", err)
		}
		defer logFile.Close()

		logWriter = csv.NewWriter(logFile)
		defer logWriter.Flush()

		header := []string{"eval", "fitness", "error"}
		for _, p := range registry.Params {
			header = append(header, p.Name)
		}
		logWriter.Write(header)
	}

	evalCount := 0
	bestFitness := math.Inf(-1)
	var bestParams []float64

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			// Denormalize and clamp to get actual parameter values
			values := registry.Clamp(registry.Denormalize(x))
			score, err := r.eval.Evaluate(ctx, values)
			if err != nil {
				r.logger.Warn("evaluation failed", "error", err)
				return math.Inf(1)
			}
			evalCount++

			if score.Fitness > bestFitness {
				bestFitness = score.Fitness
				bestParams = values
			}
			r.remember(score.Fitness, evalCount, 0, values)

			if logWriter != nil {
				row := []string{
					strconv.Itoa(evalCount),
					strconv.FormatFloat(score.Fitness, 'f', 6, 64),
					strconv.FormatFloat(score.Error, 'f', 6, 64),
				}
				for _, v := range values {
					row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
				}
				logWriter.Write(row)
				logWriter.Flush()
			}

			elapsed := time.Since(r.start)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(maxEvals-evalCount) * avgPerEval
			r.logger.Info("evaluation",
				"eval", evalCount,
				"max_evals", maxEvals,
				"fitness", score.Fitness,
				"best_fitness", bestFitness,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return score.Error
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Concurrent:      0, // Sequential evaluation
	}

	// Population size
	popSize := population
	if popSize == 0 {
		// Auto-size: 4 + floor(3*ln(n))
		popSize = 4 + int(3*math.Log(float64(dim)))
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	r.logger.Info("starting CMA-ES",
		"parameters", dim,
		"population", popSize,
		"max_evals", maxEvals,
	)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		r.logger.Warn("optimization ended", "error", err)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil && result != nil {
		bestParams = registry.Clamp(registry.Denormalize(result.X))
	}
	return bestParams, ctx.Err()
}
