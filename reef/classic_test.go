package reef

import (
	"context"
	"reflect"
	"testing"
)

func TestClassicCounts(t *testing.T) {
	tests := []struct {
		numC    int
		fb      float64
		wantESL int
		wantISL int
	}{
		{6, 0.5, 2, 3},
		{10, 0.9, 8, 1},
		{7, 1.0, 6, 0},
		{1, 0.9, 0, 1},
		{0, 0.9, 0, 0},
		{5, 0, 0, 5},
	}
	for _, tt := range tests {
		esl, isl := classicCounts(tt.numC, tt.fb)
		if esl != tt.wantESL || isl != tt.wantISL {
			t.Errorf("classicCounts(%d, %g) = %d, %d; want %d, %d",
				tt.numC, tt.fb, esl, isl, tt.wantESL, tt.wantISL)
		}
	}
}

func TestClassicCountsAlwaysEven(t *testing.T) {
	for numC := 0; numC <= 50; numC++ {
		for _, fb := range []float64{0, 0.1, 0.33, 0.5, 0.77, 0.9, 1} {
			if esl, _ := classicCounts(numC, fb); esl%2 != 0 || esl > numC {
				t.Fatalf("classicCounts(%d, %g) spawning = %d", numC, fb, esl)
			}
		}
	}
}

func TestClassicGenerationPhaseCounts(t *testing.T) {
	p := testParams(10)
	p.Occupancy = 0.6
	p.Broadcast = 0.5
	p.Budding = 0
	p.DepredationP = 0

	opt, err := New[float64](p, NewRealOperators(testBox(3, 0, 6), p.Operators), sphere[float64](), NewRandom(42))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	reports := opt.Step(context.Background())
	r := reports[0]

	if r.Spawning != 2 || r.Brooding != 3 || r.Budding != 0 || r.Larvae != 5 {
		t.Errorf("phases = %d/%d/%d larvae %d; want 2/3/0 larvae 5",
			r.Spawning, r.Brooding, r.Budding, r.Larvae)
	}
	if r.Depredated != 0 {
		t.Errorf("depredated = %d with pd = 0", r.Depredated)
	}
	if r.Occupied < 6 || r.Occupied+r.Free != 10 {
		t.Errorf("occupied = %d free = %d", r.Occupied, r.Free)
	}
	if len(r.Fitness) != r.Occupied {
		t.Errorf("report carries %d fitness values, want %d", len(r.Fitness), r.Occupied)
	}
	if err := opt.Populations()[0].Check(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestClassicInvariantsHoldEveryGeneration(t *testing.T) {
	tests := []struct {
		name      string
		crossover CrossoverKind
	}{
		{"blx", CrossoverBLX},
		{"sbx", CrossoverSBX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams(30)
			p.Crossover = tt.crossover
			p.DepredationP = 0.5
			p.Depredation = 0.2
			p.Budding = 0.1

			opt, err := New[float64](p, NewRealOperators(testBox(4, -5, 5), p.Operators), sphere[float64](), NewRandom(1))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			err = opt.Run(context.Background(), 40, func(reports []GenerationReport) {
				if err := opt.Populations()[0].Check(); err != nil {
					t.Fatalf("generation %d: %v", reports[0].Generation, err)
				}
			})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
		})
	}
}

func TestClassicDeterministicForSeed(t *testing.T) {
	run := func(workers int) Snapshot[int] {
		p := testParams(24)
		p.Subpopulations = 2
		ops := NewIntOperators(testBox(5, 0, 9), p.Operators)
		opt, err := New[int](p, ops, sphere[int](), NewRandom(42), WithWorkers(workers))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := opt.Run(context.Background(), 15, nil); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return opt.Populations()[1].Snapshot()
	}

	sequential := run(1)
	if again := run(1); !reflect.DeepEqual(sequential, again) {
		t.Error("two runs with the same seed diverged")
	}
	if parallel := run(4); !reflect.DeepEqual(sequential, parallel) {
		t.Error("concurrent evaluation changed the outcome")
	}
}

func TestClassicBuddingClonesFittest(t *testing.T) {
	p := testParams(10)
	p.Occupancy = 1
	p.Budding = 0.2
	ops := NewRealOperators(testBox(2, 0, 1), p.Operators)
	pop := NewPopulation[float64](10, ops)
	pop.Initialize(1, NewRandom(2))
	seedFitness(pop)

	c := &Classic[float64]{engine: engine[float64]{params: p, ops: ops, rng: NewRandom(3), hook: noopHook{}}}
	buds := c.bud(pop)
	if len(buds) != 2 {
		t.Fatalf("buds = %d, want ceil(10*0.2) = 2", len(buds))
	}
	// Storage 9 and 8 carry the highest fitness.
	for i, idx := range []int{9, 8} {
		if !reflect.DeepEqual(buds[i].Genome, pop.At(idx).Genome) {
			t.Errorf("bud %d genome = %v, want storage %d %v", i, buds[i].Genome, idx, pop.At(idx).Genome)
		}
		if buds[i].Position != NoPosition || buds[i].Evaluated {
			t.Errorf("bud %d should be an unsettled, unevaluated clone", i)
		}
	}
}

func TestFailedEvaluationsDoNotHaltGeneration(t *testing.T) {
	p := testParams(10)
	p.DepredationP = 0
	opt, err := New[float64](p, NewRealOperators(testBox(2, 0, 1), p.Operators), failing[float64](), NewRandom(5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := opt.Step(context.Background())[0]
	if r.Failed != r.Larvae {
		t.Errorf("failed = %d, want every one of %d larvae", r.Failed, r.Larvae)
	}
	pop := opt.Populations()[0]
	for _, g := range pop.SettledPositions() {
		if pop.Occupant(g).Evaluated {
			t.Errorf("slot %d marked evaluated after a failing evaluation", g)
		}
	}
	if err := pop.Check(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}
