package reef

import "math"

// Encoding names the genome representation of a reef.
type Encoding string

const (
	EncodingReal    Encoding = "real"
	EncodingInteger Encoding = "integer"
)

// NumSubstrates is the number of operator regions of the adaptive variant.
// Both encodings dispatch over four substrates.
const NumSubstrates = 4

// intBLXAlpha is the fixed BLX extension used by integer genomes.
const intBLXAlpha = 3.0

// sbxEpsilon is the minimum parent distance for SBX to act on a gene.
const sbxEpsilon = 1e-14

// Operator is one entry of a substrate dispatch table. Exactly one of
// Crossover and Mutate is set.
type Operator[G Gene] struct {
	Name      string
	Crossover func(a, b []G, rng Random)
	Mutate    func(g []G, rng Random)
}

// Operators is the operator set of one encoding. It is chosen once when a
// reef is built; every operator works in place and clamps to Bounds.
type Operators[G Gene] interface {
	Encoding() Encoding
	Bounds() Bounds
	// Random draws a fresh genome uniformly within bounds.
	Random(rng Random) []G
	BLX(a, b []G, rng Random)
	SBX(a, b []G, rng Random)
	// Brood is the self-mutation of the classic brooding phase.
	Brood(g []G, rng Random)
	// Mutate is the default mutation.
	Mutate(g []G, rng Random)
	// Substrates is the adaptive dispatch table, indexed by substrate.
	Substrates() [NumSubstrates]Operator[G]
}

// blxInterval returns the BLX-alpha sampling interval for two parent genes.
func blxInterval(x, y, alpha float64) (lo, hi float64) {
	cmin, cmax := math.Min(x, y), math.Max(x, y)
	span := cmax - cmin
	return cmin - span*alpha, cmax + span*alpha
}

// sbxPair applies simulated binary crossover to one gene pair. The draw
// sequence is: apply?, spread, swap?
func sbxPair(x1, x2, lo, hi, eta float64, rng Random) (float64, float64) {
	if !rng.Bool(0.5) {
		return x1, x2
	}
	if math.Abs(x1-x2) <= sbxEpsilon {
		return x1, x2
	}

	y1, y2 := math.Min(x1, x2), math.Max(x1, x2)
	u := rng.Float64()
	exp := 1.0 / (eta + 1)

	spread := func(beta float64) float64 {
		alpha := 2 - math.Pow(beta, -(eta+1))
		if u <= 1/alpha {
			return math.Pow(u*alpha, exp)
		}
		return math.Pow(1/(2-u*alpha), exp)
	}

	betaq := spread(1 + 2*(y1-lo)/(y2-y1))
	c1 := clampFloat(0.5*((y1+y2)-betaq*(y2-y1)), lo, hi)
	betaq = spread(1 + 2*(hi-y2)/(y2-y1))
	c2 := clampFloat(0.5*((y1+y2)+betaq*(y2-y1)), lo, hi)

	if rng.Bool(0.5) {
		c1, c2 = c2, c1
	}
	return c1, c2
}

// polynomialStep returns the mutated value of x under Deb's polynomial
// mutation with distribution index eta.
func polynomialStep(x, lo, hi, eta float64, rng Random) float64 {
	if hi <= lo {
		return lo
	}
	span := hi - lo
	delta1 := (x - lo) / span
	delta2 := (hi - x) / span
	u := rng.Float64()
	pow := 1.0 / (eta + 1)

	var deltaq float64
	if u < 0.5 {
		xy := 1 - delta1
		val := 2*u + (1-2*u)*math.Pow(xy, eta+1)
		deltaq = math.Pow(val, pow) - 1
	} else {
		xy := 1 - delta2
		val := 2*(1-u) + 2*(u-0.5)*math.Pow(xy, eta+1)
		deltaq = 1 - math.Pow(val, pow)
	}
	return clampFloat(x+deltaq*span, lo, hi)
}
