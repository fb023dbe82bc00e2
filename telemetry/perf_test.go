package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/pthm-cable/reefcal/reef"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate a few generations
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(reef.PhaseEvaluate)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(reef.PhaseSettle)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	// Verify we got timing data
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}

	// Verify phases are tracked
	if len(stats.PhaseAvg) == 0 {
		t.Error("expected phase averages to be populated")
	}

	if _, ok := stats.PhaseAvg[reef.PhaseEvaluate]; !ok {
		t.Error("expected evaluate phase to be tracked")
	}

	if _, ok := stats.PhaseAvg[reef.PhaseSettle]; !ok {
		t.Error("expected settle phase to be tracked")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5) // Small window

	// Fill window completely
	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(reef.PhaseEvaluate)
		pc.EndTick()
	}

	stats := pc.Stats()

	// Should have data
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration after window filled")
	}

	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate with uneven phase durations
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(100 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	fastPct := stats.PhasePct["fast"]
	slowPct := stats.PhasePct["slow"]

	// Slow phase should take more % than fast
	if slowPct <= fastPct {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", slowPct, fastPct)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	// Empty collector should return zero values without panicking
	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}

	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}

	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	stats := PerfStats{
		AvgTickDuration: 2 * time.Millisecond,
		PhasePct: map[string]float64{
			reef.PhaseEvaluate:    80,
			reef.PhaseDepredation: 5,
		},
	}

	row := stats.ToCSV(7)

	if row.Generation != 7 {
		t.Errorf("expected generation 7, got %d", row.Generation)
	}
	if row.AvgUS != 2000 {
		t.Errorf("expected 2000us, got %d", row.AvgUS)
	}
	if row.EvaluatePct != 80 || row.DepredationPct != 5 || row.SpawningPct != 0 {
		t.Errorf("unexpected phase percentages: %+v", row)
	}
}

func TestPerfCollector_AsPhaseHook(t *testing.T) {
	pc := NewPerfCollector(4)
	params := reef.DefaultParams()
	params.Size = 10
	ops := reef.NewRealOperators(reef.Box{{Min: 0, Max: 1}, {Min: 0, Max: 1}}, params.Operators)
	eval := reef.EvaluatorFunc[float64](func(_ context.Context, g []float64) (float64, error) {
		return 1 / (1 + g[0]*g[0] + g[1]*g[1]), nil
	})

	opt, err := reef.New[float64](params, ops, eval, reef.NewRandom(42), reef.WithPhaseHook(pc))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := opt.Run(context.Background(), 3, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := pc.Stats()
	for _, phase := range []string{reef.PhaseRebuild, reef.PhaseSpawning, reef.PhaseEvaluate, reef.PhaseDepredation} {
		if _, ok := stats.PhaseAvg[phase]; !ok {
			t.Errorf("expected phase %s to be tracked", phase)
		}
	}
}
