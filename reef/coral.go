// Package reef implements the coral reef optimizer: a fixed grid of candidate
// solutions that reproduce, compete for slots and are periodically culled.
package reef

// Gene constrains the genome encodings a reef can hold.
type Gene interface {
	~int | ~float64
}

// NoPosition marks a coral that is not settled on the grid.
const NoPosition = -1

// Coral is one candidate solution.
type Coral[G Gene] struct {
	Genome    []G
	Fitness   float64 // higher is better
	Evaluated bool
	Position  int // grid index or NoPosition
}

// Settled reports whether the coral occupies a grid slot.
func (c *Coral[G]) Settled() bool {
	return c.Position != NoPosition
}

// Clone returns an unsettled, unevaluated copy of c's genome. Fitness is
// reset so a failed evaluation leaves the clone unfit rather than
// inheriting its parent's score.
func (c *Coral[G]) Clone() *Coral[G] {
	genome := make([]G, len(c.Genome))
	copy(genome, c.Genome)
	return &Coral[G]{
		Genome:   genome,
		Position: NoPosition,
	}
}

// Values returns the genome as float64s.
func (c *Coral[G]) Values() []float64 {
	out := make([]float64, len(c.Genome))
	for i, g := range c.Genome {
		out[i] = float64(g)
	}
	return out
}
