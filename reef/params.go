package reef

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned (wrapped) by Params.Validate.
var ErrInvalidParams = errors.New("invalid reef parameters")

// Variant selects the reproduction strategy.
type Variant string

const (
	VariantClassic  Variant = "classic"
	VariantAdaptive Variant = "adaptive"
)

// CrossoverKind selects the broadcast spawning operator of the classic variant.
type CrossoverKind string

const (
	CrossoverBLX CrossoverKind = "blx"
	CrossoverSBX CrossoverKind = "sbx"
)

// Params holds the reef tunables.
type Params struct {
	Size           int     // N, grid slots and storage slots
	Subpopulations int     // independent reefs, processed in order
	Attempts       int     // k, settlement retries per larva
	Budding        float64 // Fa
	Broadcast      float64 // Fb
	Depredation    float64 // Fd
	DepredationP   float64 // Pd
	Occupancy      float64 // r0
	Variant        Variant
	Crossover      CrossoverKind // classic spawning operator

	Operators OperatorParams
}

// OperatorParams holds the genome operator constants.
type OperatorParams struct {
	BLXAlpha       float64 // real encoding only; integer BLX uses intBLXAlpha
	SBXEta         float64 // SBX distribution index
	PolynomialEta  float64 // polynomial mutation distribution index
	GaussianStd    float64 // fraction of the gene range
	RandomWalkProb float64 // continuation probability of a random walk
	MutationProb   float64 // per-gene mutation probability

	// Harmony search and differential evolution constants are carried
	// and validated but no substrate dispatches to them.
	HarmonyHMCR      float64
	HarmonyPAR       float64
	HarmonyBandwidth float64
	DEWeight         float64
	DECrossover      float64
}

// DefaultParams returns the defaults used when no configuration is supplied.
func DefaultParams() Params {
	return Params{
		Size:           100,
		Subpopulations: 1,
		Attempts:       3,
		Budding:        0.05,
		Broadcast:      0.9,
		Depredation:    0.1,
		DepredationP:   0.1,
		Occupancy:      0.6,
		Variant:        VariantClassic,
		Crossover:      CrossoverBLX,
		Operators: OperatorParams{
			BLXAlpha:         0.5,
			SBXEta:           20,
			PolynomialEta:    20,
			GaussianStd:      0.1,
			RandomWalkProb:   0.5,
			MutationProb:     0.2,
			HarmonyHMCR:      0.9,
			HarmonyPAR:       0.3,
			HarmonyBandwidth: 0.01,
			DEWeight:         0.5,
			DECrossover:      0.9,
		},
	}
}

// Validate reports the first invalid tunable. All values must be
// non-negative; fractions and probabilities must not exceed 1.
func (p Params) Validate() error {
	ints := []struct {
		name string
		v    int
		min  int
	}{
		{"size", p.Size, 1},
		{"subpopulations", p.Subpopulations, 1},
		{"attempts", p.Attempts, 0}, // k = 0 drops every larva
	}
	for _, f := range ints {
		if f.v < f.min {
			return fmt.Errorf("%w: %s = %d, must be >= %d", ErrInvalidParams, f.name, f.v, f.min)
		}
	}

	fractions := []struct {
		name string
		v    float64
	}{
		{"budding", p.Budding},
		{"broadcast", p.Broadcast},
		{"depredation", p.Depredation},
		{"depredation_probability", p.DepredationP},
		{"occupancy", p.Occupancy},
		{"random_walk_probability", p.Operators.RandomWalkProb},
		{"mutation_probability", p.Operators.MutationProb},
		{"harmony_hmcr", p.Operators.HarmonyHMCR},
		{"harmony_par", p.Operators.HarmonyPAR},
		{"de_crossover", p.Operators.DECrossover},
	}
	for _, f := range fractions {
		if f.v < 0 || f.v > 1 {
			return fmt.Errorf("%w: %s = %g, must be in [0, 1]", ErrInvalidParams, f.name, f.v)
		}
	}

	nonNeg := []struct {
		name string
		v    float64
	}{
		{"blx_alpha", p.Operators.BLXAlpha},
		{"sbx_eta", p.Operators.SBXEta},
		{"polynomial_eta", p.Operators.PolynomialEta},
		{"gaussian_std", p.Operators.GaussianStd},
		{"harmony_bandwidth", p.Operators.HarmonyBandwidth},
		{"de_weight", p.Operators.DEWeight},
	}
	for _, f := range nonNeg {
		if f.v < 0 {
			return fmt.Errorf("%w: %s = %g, must be >= 0", ErrInvalidParams, f.name, f.v)
		}
	}

	switch p.Variant {
	case VariantClassic:
	case VariantAdaptive:
		if p.Size < NumSubstrates {
			return fmt.Errorf("%w: size = %d, adaptive variant needs at least %d slots", ErrInvalidParams, p.Size, NumSubstrates)
		}
	default:
		return fmt.Errorf("%w: unknown variant %q", ErrInvalidParams, p.Variant)
	}

	switch p.Crossover {
	case CrossoverBLX, CrossoverSBX:
	default:
		return fmt.Errorf("%w: unknown crossover %q", ErrInvalidParams, p.Crossover)
	}

	return nil
}
