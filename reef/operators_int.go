package reef

import "math"

var _ Operators[int] = (*IntOperators)(nil)

// IntOperators is the operator set of integer genomes.
type IntOperators struct {
	bounds Bounds
	p      OperatorParams
}

// NewIntOperators creates the integer operator set. Gene bounds are
// narrowed to the integers they contain.
func NewIntOperators(bounds Bounds, p OperatorParams) *IntOperators {
	return &IntOperators{bounds: bounds, p: p}
}

func (o *IntOperators) Encoding() Encoding { return EncodingInteger }
func (o *IntOperators) Bounds() Bounds     { return o.bounds }

func (o *IntOperators) Random(rng Random) []int {
	g := make([]int, o.bounds.Len())
	for i := range g {
		lo, hi := intRange(o.bounds, i)
		g[i] = lo + rng.Intn(hi-lo+1)
	}
	return g
}

// BLX draws both children uniformly from the integer interval extended by
// intBLXAlpha times the parent distance on each side. The configured alpha
// only applies to real genomes.
func (o *IntOperators) BLX(a, b []int, rng Random) {
	for i := range a {
		cmin, cmax := min(a[i], b[i]), max(a[i], b[i])
		ext := int(float64(cmax-cmin) * intBLXAlpha)
		minI, maxI := cmin-ext, cmax+ext
		lo, hi := intRange(o.bounds, i)
		a[i] = clampInt(minI+rng.Intn(maxI-minI+1), lo, hi)
		b[i] = clampInt(minI+rng.Intn(maxI-minI+1), lo, hi)
	}
}

func (o *IntOperators) SBX(a, b []int, rng Random) {
	for i := range a {
		lo, hi := intRange(o.bounds, i)
		c1, c2 := sbxPair(float64(a[i]), float64(b[i]), float64(lo), float64(hi), o.p.SBXEta, rng)
		a[i] = clampInt(int(math.Round(c1)), lo, hi)
		b[i] = clampInt(int(math.Round(c2)), lo, hi)
	}
}

func (o *IntOperators) Brood(g []int, rng Random) {
	o.Reset(g, rng)
}

func (o *IntOperators) Mutate(g []int, rng Random) {
	o.Reset(g, rng)
}

// Reset redraws each gene uniformly with the per-gene mutation probability.
func (o *IntOperators) Reset(g []int, rng Random) {
	for i := range g {
		if !rng.Bool(o.p.MutationProb) {
			continue
		}
		lo, hi := intRange(o.bounds, i)
		g[i] = lo + rng.Intn(hi-lo+1)
	}
}

// RandomWalk steps each selected gene by ±1, continuing while a coin with
// the random-walk probability keeps landing. A step that would leave the
// bounds is reflected. It always draws from the reef's single stream.
func (o *IntOperators) RandomWalk(g []int, rng Random) {
	for i := range g {
		if !rng.Bool(o.p.MutationProb) {
			continue
		}
		lo, hi := intRange(o.bounds, i)
		for {
			n := -1
			if rng.Bool(0.5) {
				n = 1
			}
			switch {
			case (n == 1 && g[i] < hi) || (n == -1 && g[i] > lo):
				g[i] += n
			case (n == -1 && g[i] < hi) || (n == 1 && g[i] > lo):
				g[i] -= n
			}
			if !rng.Bool(o.p.RandomWalkProb) {
				break
			}
		}
	}
}

func (o *IntOperators) Substrates() [NumSubstrates]Operator[int] {
	return [NumSubstrates]Operator[int]{
		{Name: "blx", Crossover: o.BLX},
		{Name: "sbx", Crossover: o.SBX},
		{Name: "reset", Mutate: o.Reset},
		{Name: "random_walk", Mutate: o.RandomWalk},
	}
}
