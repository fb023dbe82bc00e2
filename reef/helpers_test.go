package reef

import (
	"context"
	"errors"
	"math"
)

// fixedRandom replays scripted draws before falling back to a seeded stream.
type fixedRandom struct {
	ints     []int
	floats   []float64
	fallback *Stream

	intCalls int // Intn calls so far
}

func newFixedRandom(ints []int, floats []float64) *fixedRandom {
	return &fixedRandom{ints: ints, floats: floats, fallback: NewRandom(1)}
}

func (f *fixedRandom) Intn(n int) int {
	f.intCalls++
	if len(f.ints) > 0 {
		v := f.ints[0]
		f.ints = f.ints[1:]
		return v % n
	}
	return f.fallback.Intn(n)
}

func (f *fixedRandom) Float64() float64 {
	if len(f.floats) > 0 {
		v := f.floats[0]
		f.floats = f.floats[1:]
		return v
	}
	return f.fallback.Float64()
}

func (f *fixedRandom) Bool(p float64) bool { return f.Float64() < p }

func (f *fixedRandom) NormFloat64() float64 { return f.fallback.NormFloat64() }

func testBox(n int, lo, hi float64) Box {
	b := make(Box, n)
	for i := range b {
		b[i] = Interval{Min: lo, Max: hi}
	}
	return b
}

// sphere peaks at 1 when every gene equals 3.
func sphere[G Gene]() EvaluatorFunc[G] {
	return func(_ context.Context, genome []G) (float64, error) {
		var sum float64
		for _, g := range genome {
			d := float64(g) - 3
			sum += d * d
		}
		return 1 / (1 + sum), nil
	}
}

var errSimulation = errors.New("simulation failed")

func failing[G Gene]() EvaluatorFunc[G] {
	return func(context.Context, []G) (float64, error) {
		return 0, errSimulation
	}
}

func testParams(n int) Params {
	p := DefaultParams()
	p.Size = n
	return p
}

// seedFitness gives every settled coral fitness equal to its storage index
// plus one and rebuilds the cache.
func seedFitness[G Gene](p *Population[G]) {
	for i := range p.storage {
		if p.storage[i].Settled() {
			p.storage[i].Fitness = float64(i + 1)
		}
	}
	p.BuildFitnessCache()
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
