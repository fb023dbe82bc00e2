package reef

import (
	"context"
	"errors"
	"testing"
)

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"zero size", func(p *Params) { p.Size = 0 }},
		{"zero subpopulations", func(p *Params) { p.Subpopulations = 0 }},
		{"negative attempts", func(p *Params) { p.Attempts = -1 }},
		{"negative budding", func(p *Params) { p.Budding = -0.1 }},
		{"broadcast above one", func(p *Params) { p.Broadcast = 1.5 }},
		{"negative depredation", func(p *Params) { p.Depredation = -1 }},
		{"negative depredation probability", func(p *Params) { p.DepredationP = -0.01 }},
		{"occupancy above one", func(p *Params) { p.Occupancy = 1.01 }},
		{"negative mutation probability", func(p *Params) { p.Operators.MutationProb = -0.2 }},
		{"negative blx alpha", func(p *Params) { p.Operators.BLXAlpha = -0.5 }},
		{"negative sbx eta", func(p *Params) { p.Operators.SBXEta = -1 }},
		{"negative harmony hmcr", func(p *Params) { p.Operators.HarmonyHMCR = -0.1 }},
		{"harmony hmcr above one", func(p *Params) { p.Operators.HarmonyHMCR = 1.1 }},
		{"negative harmony par", func(p *Params) { p.Operators.HarmonyPAR = -0.1 }},
		{"harmony par above one", func(p *Params) { p.Operators.HarmonyPAR = 1.1 }},
		{"negative harmony bandwidth", func(p *Params) { p.Operators.HarmonyBandwidth = -0.01 }},
		{"negative de weight", func(p *Params) { p.Operators.DEWeight = -0.5 }},
		{"negative de crossover", func(p *Params) { p.Operators.DECrossover = -0.1 }},
		{"de crossover above one", func(p *Params) { p.Operators.DECrossover = 1.1 }},
		{"unknown variant", func(p *Params) { p.Variant = "ring" }},
		{"unknown crossover", func(p *Params) { p.Crossover = "uniform" }},
		{"adaptive too small", func(p *Params) {
			p.Variant = VariantAdaptive
			p.Size = 3
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Validate() = %v, want ErrInvalidParams", err)
			}
		})
	}

	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}

	// Zero is a legal value for every count and fraction.
	zero := DefaultParams()
	zero.Attempts = 0
	zero.Budding, zero.Broadcast, zero.Depredation, zero.DepredationP, zero.Occupancy = 0, 0, 0, 0, 0
	zero.Operators.HarmonyHMCR, zero.Operators.HarmonyPAR, zero.Operators.HarmonyBandwidth = 0, 0, 0
	zero.Operators.DEWeight, zero.Operators.DECrossover = 0, 0
	if err := zero.Validate(); err != nil {
		t.Errorf("zero tunables rejected: %v", err)
	}
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	ops := NewRealOperators(testBox(2, 0, 1), DefaultParams().Operators)

	bad := DefaultParams()
	bad.Occupancy = -1
	if _, err := New[float64](bad, ops, sphere[float64](), NewRandom(1)); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("invalid params: err = %v", err)
	}
	if _, err := New[float64](DefaultParams(), ops, nil, NewRandom(1)); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("nil evaluator: err = %v", err)
	}
	empty := NewRealOperators(Box{}, DefaultParams().Operators)
	if _, err := New[float64](DefaultParams(), empty, sphere[float64](), NewRandom(1)); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("empty genome: err = %v", err)
	}
}

func TestCloneResetsState(t *testing.T) {
	c := &Coral[float64]{Genome: []float64{1, 2}, Fitness: 3, Evaluated: true, Position: 4}
	clone := c.Clone()
	clone.Genome[0] = 9

	if c.Genome[0] != 1 {
		t.Error("clone shares genome storage with its parent")
	}
	if clone.Fitness != 0 || clone.Evaluated || clone.Settled() {
		t.Errorf("clone = %+v, want zero fitness, unevaluated and unsettled", *clone)
	}
}

func TestRunStopsBetweenGenerations(t *testing.T) {
	newOpt := func(t *testing.T) *Optimizer[float64] {
		t.Helper()
		p := testParams(20)
		opt, err := New[float64](p, NewRealOperators(testBox(2, 0, 6), p.Operators), sphere[float64](), NewRandom(4))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return opt
	}

	t.Run("stop", func(t *testing.T) {
		opt := newOpt(t)
		err := opt.Run(context.Background(), 50, func([]GenerationReport) {
			if opt.Generation() == 3 {
				opt.Stop()
			}
		})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if opt.Generation() != 3 {
			t.Errorf("stopped after %d generations, want 3", opt.Generation())
		}
	})

	t.Run("context", func(t *testing.T) {
		opt := newOpt(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		err := opt.Run(ctx, 50, func([]GenerationReport) {
			if opt.Generation() == 2 {
				cancel()
			}
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run err = %v, want context.Canceled", err)
		}
		if opt.Generation() != 2 {
			t.Errorf("cancelled after %d generations, want 2", opt.Generation())
		}
	})

	t.Run("budget", func(t *testing.T) {
		opt := newOpt(t)
		if err := opt.Run(context.Background(), 7, nil); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if opt.Generation() != 7 {
			t.Errorf("ran %d generations, want 7", opt.Generation())
		}
	})
}

func TestBestNeverDecreases(t *testing.T) {
	p := testParams(40)
	p.DepredationP = 0.8
	opt, err := New[float64](p, NewRealOperators(testBox(3, -10, 10), p.Operators), sphere[float64](), NewRandom(99))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	opt.Init(context.Background())
	start, ok := opt.Best()
	if !ok {
		t.Fatal("no best coral after Init")
	}

	prev := start.Fitness
	err = opt.Run(context.Background(), 60, func([]GenerationReport) {
		best, _ := opt.Best()
		if best.Fitness < prev {
			t.Fatalf("best fitness dropped from %g to %g", prev, best.Fitness)
		}
		prev = best.Fitness
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if prev < start.Fitness {
		t.Errorf("final best %g below initial %g", prev, start.Fitness)
	}
}

type recordingHook struct {
	ticks  int
	phases map[string]int
}

func (h *recordingHook) StartTick()              { h.ticks++ }
func (h *recordingHook) StartPhase(phase string) { h.phases[phase]++ }
func (h *recordingHook) EndTick()                {}

func TestPhaseHookSeesEveryPhase(t *testing.T) {
	tests := []struct {
		variant Variant
		phases  []string
	}{
		{VariantClassic, []string{PhaseRebuild, PhaseSpawning, PhaseBrooding, PhaseEvaluate, PhaseSettle, PhaseBudding, PhaseDepredation}},
		{VariantAdaptive, []string{PhaseRebuild, PhaseProduce, PhaseEvaluate, PhaseSettle, PhaseDepredation}},
	}
	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			p := testParams(12)
			p.Variant = tt.variant
			hook := &recordingHook{phases: map[string]int{}}
			opt, err := New[float64](p, NewRealOperators(testBox(2, 0, 1), p.Operators), sphere[float64](), NewRandom(6),
				WithPhaseHook(hook))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if err := opt.Run(context.Background(), 4, nil); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if hook.ticks != 4 {
				t.Errorf("ticks = %d, want 4", hook.ticks)
			}
			for _, phase := range tt.phases {
				if hook.phases[phase] != 4 {
					t.Errorf("phase %s seen %d times, want 4", phase, hook.phases[phase])
				}
			}
		})
	}
}
