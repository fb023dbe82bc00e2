// Package calibration fits market simulation parameters to observed time
// series by scoring candidate parameter vectors against target data.
package calibration

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/pthm-cable/reefcal/config"
	"github.com/pthm-cable/reefcal/reef"
)

// ErrUnknownParameter is returned for a parameter path with no accessor.
var ErrUnknownParameter = errors.New("unknown calibration parameter")

// defaultSteps is the integer resolution used when a parameter sets none.
const defaultSteps = 100

// Parameter is one calibratable config value.
type Parameter struct {
	Name  string  // snake_case name for logs and CSV columns
	Path  string  // dotted config path
	Min   float64 // lower bound
	Max   float64 // upper bound
	Steps int     // integer encoding grid points above Min

	Get func(cfg *config.Config) float64
	Set func(cfg *config.Config, v float64)
}

type accessor struct {
	get func(*config.Config) float64
	set func(*config.Config, float64)
}

// accessors maps every calibratable config path to its field.
var accessors = map[string]accessor{
	"market.innovation": {
		func(c *config.Config) float64 { return c.Market.Innovation },
		func(c *config.Config, v float64) { c.Market.Innovation = v },
	},
	"market.imitation": {
		func(c *config.Config) float64 { return c.Market.Imitation },
		func(c *config.Config, v float64) { c.Market.Imitation = v },
	},
	"market.repurchase_probability": {
		func(c *config.Config) float64 { return c.Market.RepurchaseProbability },
		func(c *config.Config, v float64) { c.Market.RepurchaseProbability = v },
	},
	"market.perception_weight": {
		func(c *config.Config) float64 { return c.Market.PerceptionWeight },
		func(c *config.Config, v float64) { c.Market.PerceptionWeight = v },
	},
	"market.awareness_decay": {
		func(c *config.Config) float64 { return c.Market.AwarenessDecay },
		func(c *config.Config, v float64) { c.Market.AwarenessDecay = v },
	},
	"market.initial_awareness": {
		func(c *config.Config) float64 { return c.Market.InitialAwareness },
		func(c *config.Config, v float64) { c.Market.InitialAwareness = v },
	},
	"market.initial_perception": {
		func(c *config.Config) float64 { return c.Market.InitialPerception },
		func(c *config.Config, v float64) { c.Market.InitialPerception = v },
	},
	"network.rewire": {
		func(c *config.Config) float64 { return c.Network.Rewire },
		func(c *config.Config, v float64) { c.Network.Rewire = v },
	},
	"network.wom_probability": {
		func(c *config.Config) float64 { return c.Network.WOMProbability },
		func(c *config.Config, v float64) { c.Network.WOMProbability = v },
	},
	"network.wom_awareness": {
		func(c *config.Config) float64 { return c.Network.WOMAwareness },
		func(c *config.Config, v float64) { c.Network.WOMAwareness = v },
	},
	"network.wom_perception": {
		func(c *config.Config) float64 { return c.Network.WOMPerception },
		func(c *config.Config, v float64) { c.Network.WOMPerception = v },
	},
	"touchpoints.reach": {
		func(c *config.Config) float64 { return c.Touchpoints.Reach },
		func(c *config.Config, v float64) { c.Touchpoints.Reach = v },
	},
	"touchpoints.ad_effectiveness": {
		func(c *config.Config) float64 { return c.Touchpoints.AdEffectiveness },
		func(c *config.Config, v float64) { c.Touchpoints.AdEffectiveness = v },
	},
	"touchpoints.message_perception": {
		func(c *config.Config) float64 { return c.Touchpoints.MessagePerception },
		func(c *config.Config, v float64) { c.Touchpoints.MessagePerception = v },
	},
	"touchpoints.perception_shift": {
		func(c *config.Config) float64 { return c.Touchpoints.PerceptionShift },
		func(c *config.Config, v float64) { c.Touchpoints.PerceptionShift = v },
	},
}

// KnownPaths returns every calibratable config path, sorted.
func KnownPaths() []string {
	paths := make([]string, 0, len(accessors))
	for p := range accessors {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Registry is the ordered set of parameters being calibrated. A genome
// holds one gene per parameter in registry order.
type Registry struct {
	Params []Parameter
}

// NewRegistry resolves the configured parameters.
func NewRegistry(specs []config.ParameterConfig) (*Registry, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no parameters configured", ErrUnknownParameter)
	}
	r := &Registry{}
	seen := make(map[string]bool)
	for _, spec := range specs {
		acc, ok := accessors[spec.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, spec.Name)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("parameter %q listed twice", spec.Name)
		}
		seen[spec.Name] = true

		steps := spec.Steps
		if steps <= 0 {
			steps = defaultSteps
		}
		r.Params = append(r.Params, Parameter{
			Name:  strings.ReplaceAll(spec.Name, ".", "_"),
			Path:  spec.Name,
			Min:   spec.Min,
			Max:   spec.Max,
			Steps: steps,
			Get:   acc.get,
			Set:   acc.set,
		})
	}
	return r, nil
}

// Dim returns the number of parameters.
func (r *Registry) Dim() int {
	return len(r.Params)
}

// Bounds returns the gene bounds for an encoding. Real genes hold the
// parameter value itself; integer genes index a grid of Steps+1 points.
func (r *Registry) Bounds(enc reef.Encoding) reef.Box {
	box := make(reef.Box, len(r.Params))
	for i, p := range r.Params {
		if enc == reef.EncodingInteger {
			box[i] = reef.Interval{Min: 0, Max: float64(p.Steps)}
		} else {
			box[i] = reef.Interval{Min: p.Min, Max: p.Max}
		}
	}
	return box
}

// Decode converts genes of an encoding to parameter values.
func (r *Registry) Decode(enc reef.Encoding, genes []float64) []float64 {
	if enc != reef.EncodingInteger {
		return r.Clamp(genes)
	}
	values := make([]float64, len(r.Params))
	for i, p := range r.Params {
		values[i] = p.Min + genes[i]/float64(p.Steps)*(p.Max-p.Min)
	}
	return r.Clamp(values)
}

// Encode converts parameter values to genes of an encoding. Integer genes
// round to the nearest grid point.
func (r *Registry) Encode(enc reef.Encoding, values []float64) []float64 {
	clamped := r.Clamp(values)
	if enc != reef.EncodingInteger {
		return clamped
	}
	genes := make([]float64, len(r.Params))
	for i, p := range r.Params {
		if p.Max > p.Min {
			genes[i] = math.Round((clamped[i] - p.Min) / (p.Max - p.Min) * float64(p.Steps))
		}
	}
	return genes
}

// Normalize converts raw parameter values to [0,1] range.
func (r *Registry) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(r.Params))
	for i, p := range r.Params {
		if p.Max > p.Min {
			normalized[i] = (raw[i] - p.Min) / (p.Max - p.Min)
		}
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (r *Registry) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(r.Params))
	for i, p := range r.Params {
		raw[i] = p.Min + normalized[i]*(p.Max-p.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (r *Registry) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(r.Params))
	for i, p := range r.Params {
		val := v[i]
		if val < p.Min {
			val = p.Min
		}
		if val > p.Max {
			val = p.Max
		}
		clamped[i] = val
	}
	return clamped
}

// Apply writes parameter values into cfg, clamped to bounds.
func (r *Registry) Apply(cfg *config.Config, values []float64) {
	for i, v := range r.Clamp(values) {
		r.Params[i].Set(cfg, v)
	}
}

// Extract reads the current parameter values from cfg.
func (r *Registry) Extract(cfg *config.Config) []float64 {
	values := make([]float64, len(r.Params))
	for i, p := range r.Params {
		values[i] = p.Get(cfg)
	}
	return values
}

// Named maps parameter paths to values.
func (r *Registry) Named(values []float64) map[string]float64 {
	out := make(map[string]float64, len(r.Params))
	for i, p := range r.Params {
		out[p.Path] = values[i]
	}
	return out
}
