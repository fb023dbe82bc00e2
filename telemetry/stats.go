package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/reefcal/reef"
)

// GenerationStats holds aggregated statistics for one generation of one reef.
type GenerationStats struct {
	Generation    int `csv:"generation"`
	Subpopulation int `csv:"subpopulation"`

	// Fitness distribution of settled corals after the generation
	BestFitness  float64 `csv:"best"`
	MeanFitness  float64 `csv:"mean"`
	WorstFitness float64 `csv:"worst"`
	StdFitness   float64 `csv:"std"`
	P10Fitness   float64 `csv:"p10"`
	P50Fitness   float64 `csv:"p50"`
	P90Fitness   float64 `csv:"p90"`

	// Occupancy
	Occupied int `csv:"occupied"`
	Free     int `csv:"free"`

	// Larvae
	Spawning   int `csv:"spawning"`
	Brooding   int `csv:"brooding"`
	Budding    int `csv:"budding"`
	Larvae     int `csv:"larvae"`
	Settled    int `csv:"settled"`
	Failed     int `csv:"failed"`
	Depredated int `csv:"depredated"`

	// SettleRate is Settled / Larvae.
	SettleRate float64 `csv:"settle_rate"`

	// Best fitness seen by the optimizer across all reefs so far
	BestEver float64 `csv:"best_ever"`
}

// NewGenerationStats summarizes a generation report.
func NewGenerationStats(r reef.GenerationReport, bestEver float64) GenerationStats {
	s := GenerationStats{
		Generation:    r.Generation,
		Subpopulation: r.Subpopulation,
		Occupied:      r.Occupied,
		Free:          r.Free,
		Spawning:      r.Spawning,
		Brooding:      r.Brooding,
		Budding:       r.Budding,
		Larvae:        r.Larvae,
		Settled:       r.Settled,
		Failed:        r.Failed,
		Depredated:    r.Depredated,
		BestEver:      bestEver,
	}
	if r.Larvae > 0 {
		s.SettleRate = float64(r.Settled) / float64(r.Larvae)
	}
	if len(r.Fitness) > 0 {
		s.BestFitness = floats.Max(r.Fitness)
		s.WorstFitness = floats.Min(r.Fitness)
		s.MeanFitness, s.StdFitness, s.P10Fitness, s.P50Fitness, s.P90Fitness = ComputeFitnessStats(r.Fitness)
	}
	return s
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeFitnessStats calculates mean, population std and percentiles.
func ComputeFitnessStats(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("subpopulation", s.Subpopulation),
		slog.Float64("best", s.BestFitness),
		slog.Float64("mean", s.MeanFitness),
		slog.Float64("worst", s.WorstFitness),
		slog.Float64("std", s.StdFitness),
		slog.Float64("p50", s.P50Fitness),
		slog.Int("occupied", s.Occupied),
		slog.Int("free", s.Free),
		slog.Int("larvae", s.Larvae),
		slog.Int("settled", s.Settled),
		slog.Int("failed", s.Failed),
		slog.Int("depredated", s.Depredated),
		slog.Float64("best_ever", s.BestEver),
	)
}

// LogStats logs the generation stats using slog.
func (s GenerationStats) LogStats() {
	slog.Info("generation",
		"generation", s.Generation,
		"subpopulation", s.Subpopulation,
		"best", s.BestFitness,
		"mean", s.MeanFitness,
		"worst", s.WorstFitness,
		"p50", s.P50Fitness,
		"occupied", s.Occupied,
		"free", s.Free,
		"spawning", s.Spawning,
		"brooding", s.Brooding,
		"budding", s.Budding,
		"larvae", s.Larvae,
		"settled", s.Settled,
		"settle_rate", s.SettleRate,
		"failed", s.Failed,
		"depredated", s.Depredated,
		"best_ever", s.BestEver,
	)
}

// StepStats holds the market state after one simulation step.
type StepStats struct {
	Step int `csv:"step"`

	// Events during the step
	Sales         int `csv:"sales"`
	Adoptions     int `csv:"adoptions"`
	Repurchases   int `csv:"repurchases"`
	Exposures     int `csv:"exposures"`
	Conversations int `csv:"conversations"`

	// State at step end
	Adopters       int     `csv:"adopters"`
	AdoptedShare   float64 `csv:"adopted_share"`
	AwarenessMean  float64 `csv:"awareness"`
	PerceptionMean float64 `csv:"perception"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", s.Step),
		slog.Int("sales", s.Sales),
		slog.Int("adoptions", s.Adoptions),
		slog.Int("repurchases", s.Repurchases),
		slog.Int("exposures", s.Exposures),
		slog.Int("conversations", s.Conversations),
		slog.Int("adopters", s.Adopters),
		slog.Float64("adopted_share", s.AdoptedShare),
		slog.Float64("awareness", s.AwarenessMean),
		slog.Float64("perception", s.PerceptionMean),
	)
}

// LogStats logs the step stats using slog.
func (s StepStats) LogStats() {
	slog.Info("step", "stats", s)
}
