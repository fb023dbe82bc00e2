package reef

var _ Operators[float64] = (*RealOperators)(nil)

// RealOperators is the operator set of real-valued genomes.
type RealOperators struct {
	bounds Bounds
	p      OperatorParams
}

// NewRealOperators creates the real-valued operator set.
func NewRealOperators(bounds Bounds, p OperatorParams) *RealOperators {
	return &RealOperators{bounds: bounds, p: p}
}

func (o *RealOperators) Encoding() Encoding { return EncodingReal }
func (o *RealOperators) Bounds() Bounds     { return o.bounds }

func (o *RealOperators) Random(rng Random) []float64 {
	g := make([]float64, o.bounds.Len())
	for i := range g {
		lo, hi := o.bounds.Min(i), o.bounds.Max(i)
		g[i] = lo + rng.Float64()*(hi-lo)
	}
	return g
}

// BLX replaces a and b with two children drawn independently from the
// alpha-extended parent interval, clamped to the gene bounds.
func (o *RealOperators) BLX(a, b []float64, rng Random) {
	for i := range a {
		minI, maxI := blxInterval(a[i], b[i], o.p.BLXAlpha)
		lo, hi := o.bounds.Min(i), o.bounds.Max(i)
		a[i] = clampFloat(minI+rng.Float64()*(maxI-minI), lo, hi)
		b[i] = clampFloat(minI+rng.Float64()*(maxI-minI), lo, hi)
	}
}

func (o *RealOperators) SBX(a, b []float64, rng Random) {
	for i := range a {
		a[i], b[i] = sbxPair(a[i], b[i], o.bounds.Min(i), o.bounds.Max(i), o.p.SBXEta, rng)
	}
}

func (o *RealOperators) Brood(g []float64, rng Random) {
	o.Gaussian(g, rng)
}

func (o *RealOperators) Mutate(g []float64, rng Random) {
	o.Reset(g, rng)
}

// Reset redraws each gene uniformly with the per-gene mutation probability.
func (o *RealOperators) Reset(g []float64, rng Random) {
	for i := range g {
		if !rng.Bool(o.p.MutationProb) {
			continue
		}
		lo, hi := o.bounds.Min(i), o.bounds.Max(i)
		g[i] = lo + rng.Float64()*(hi-lo)
	}
}

// Gaussian adds N(0, std*range) noise to each gene with the per-gene
// mutation probability.
func (o *RealOperators) Gaussian(g []float64, rng Random) {
	for i := range g {
		if !rng.Bool(o.p.MutationProb) {
			continue
		}
		lo, hi := o.bounds.Min(i), o.bounds.Max(i)
		g[i] = clampFloat(g[i]+rng.NormFloat64()*o.p.GaussianStd*(hi-lo), lo, hi)
	}
}

// Polynomial applies Deb's polynomial mutation to each gene with the
// per-gene mutation probability.
func (o *RealOperators) Polynomial(g []float64, rng Random) {
	for i := range g {
		if !rng.Bool(o.p.MutationProb) {
			continue
		}
		g[i] = polynomialStep(g[i], o.bounds.Min(i), o.bounds.Max(i), o.p.PolynomialEta, rng)
	}
}

func (o *RealOperators) Substrates() [NumSubstrates]Operator[float64] {
	return [NumSubstrates]Operator[float64]{
		{Name: "blx", Crossover: o.BLX},
		{Name: "sbx", Crossover: o.SBX},
		{Name: "gaussian", Mutate: o.Gaussian},
		{Name: "polynomial", Mutate: o.Polynomial},
	}
}
