package telemetry

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/reefcal/reef"
)

// phases lists the optimizer phases in the order a generation runs them.
var phases = []string{
	reef.PhaseRebuild, reef.PhaseSpawning, reef.PhaseBrooding,
	reef.PhaseProduce, reef.PhaseEvaluate, reef.PhaseSettle,
	reef.PhaseBudding, reef.PhaseDepredation,
}

// PerfSample holds timing data for a single generation.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks optimizer timing over a rolling window of
// generations. It implements reef.PhaseHook; a tick is one generation
// across every subpopulation.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	tickStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

var _ reef.PhaseHook = (*PerfCollector)(nil)

// NewPerfCollector creates a new performance collector.
// windowSize: number of generations to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 10
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTick begins timing a new generation.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	// End previous phase if any
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTick finishes timing the current generation and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	// End final phase
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	sample := PerfSample{
		TickDuration: now.Sub(p.tickStart),
		Phases:       p.currentPhases,
	}

	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Tick timing
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total tick time
	PhasePct map[string]float64

	// Throughput
	TicksPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var totalTick time.Duration
	var minTick, maxTick time.Duration
	phaseSum := make(map[string]time.Duration)

	// Iterate over valid samples
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalTick += s.TickDuration

		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		if s.TickDuration > maxTick {
			maxTick = s.TickDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avgTick := totalTick / time.Duration(p.sampleCount)

	// Calculate phase averages and percentages
	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avgTick > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avgTick) * 100
		}
	}

	// Calculate throughput
	var ticksPerSec float64
	if avgTick > 0 {
		ticksPerSec = float64(time.Second) / float64(avgTick)
	}

	return PerfStats{
		AvgTickDuration: avgTick,
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		TicksPerSecond:  ticksPerSec,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_generation_ms", s.AvgTickDuration.Milliseconds(),
		"min_generation_ms", s.MinTickDuration.Milliseconds(),
		"max_generation_ms", s.MaxTickDuration.Milliseconds(),
		"generations_per_sec", s.TicksPerSecond,
	}

	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_generation_ms", s.AvgTickDuration.Milliseconds()),
		slog.Int64("min_generation_ms", s.MinTickDuration.Milliseconds()),
		slog.Int64("max_generation_ms", s.MaxTickDuration.Milliseconds()),
		slog.Float64("generations_per_sec", s.TicksPerSecond),
	}

	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Generation     int     `csv:"generation"`
	AvgUS          int64   `csv:"avg_us"`
	MinUS          int64   `csv:"min_us"`
	MaxUS          int64   `csv:"max_us"`
	PerSec         float64 `csv:"generations_per_sec"`
	RebuildPct     float64 `csv:"rebuild_pct"`
	SpawningPct    float64 `csv:"spawning_pct"`
	BroodingPct    float64 `csv:"brooding_pct"`
	ProducePct     float64 `csv:"produce_pct"`
	EvaluatePct    float64 `csv:"evaluate_pct"`
	SettlePct      float64 `csv:"settle_pct"`
	BuddingPct     float64 `csv:"budding_pct"`
	DepredationPct float64 `csv:"depredation_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(generation int) PerfStatsCSV {
	return PerfStatsCSV{
		Generation:     generation,
		AvgUS:          s.AvgTickDuration.Microseconds(),
		MinUS:          s.MinTickDuration.Microseconds(),
		MaxUS:          s.MaxTickDuration.Microseconds(),
		PerSec:         s.TicksPerSecond,
		RebuildPct:     s.PhasePct[reef.PhaseRebuild],
		SpawningPct:    s.PhasePct[reef.PhaseSpawning],
		BroodingPct:    s.PhasePct[reef.PhaseBrooding],
		ProducePct:     s.PhasePct[reef.PhaseProduce],
		EvaluatePct:    s.PhasePct[reef.PhaseEvaluate],
		SettlePct:      s.PhasePct[reef.PhaseSettle],
		BuddingPct:     s.PhasePct[reef.PhaseBudding],
		DepredationPct: s.PhasePct[reef.PhaseDepredation],
	}
}
