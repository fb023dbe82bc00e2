package reef

import "math/rand"

// Random is the single seeded stream every reef operation draws from.
// Reproducing a run requires replaying the exact draw sequence, so the
// optimizer never shares a stream across goroutines.
type Random interface {
	// Intn returns a uniform int in [0, n).
	Intn(n int) int
	// Float64 returns a uniform float in [0, 1).
	Float64() float64
	// Bool returns true with probability p.
	Bool(p float64) bool
	// NormFloat64 returns a standard normal deviate.
	NormFloat64() float64
}

// Stream is the math/rand backed Random.
type Stream struct {
	rng *rand.Rand
}

// NewRandom creates a stream seeded with seed.
func NewRandom(seed int64) *Stream {
	return &Stream{rng: rand.New(rand.NewSource(seed))}
}

func (s *Stream) Intn(n int) int       { return s.rng.Intn(n) }
func (s *Stream) Float64() float64     { return s.rng.Float64() }
func (s *Stream) NormFloat64() float64 { return s.rng.NormFloat64() }

// Bool consumes one Float64 draw even when p is 0 or 1 so the draw
// sequence does not depend on the probability value.
func (s *Stream) Bool(p float64) bool {
	return s.rng.Float64() < p
}

// shuffle permutes xs in place (Fisher-Yates, high index first).
func shuffle(xs []int, rng Random) {
	for i := len(xs) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		xs[i], xs[j] = xs[j], xs[i]
	}
}
