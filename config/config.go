// Package config provides configuration loading and access for the market
// simulation and its calibration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/reefcal/reef"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig is returned (wrapped) by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all simulation and calibration parameters.
type Config struct {
	Reef        ReefConfig        `yaml:"reef"`
	Operators   OperatorsConfig   `yaml:"operators"`
	Market      MarketConfig      `yaml:"market"`
	Segments    []SegmentConfig   `yaml:"segments"`
	Network     NetworkConfig     `yaml:"network"`
	Touchpoints TouchpointsConfig `yaml:"touchpoints"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Bookmarks   BookmarksConfig   `yaml:"bookmarks"`
	HallOfFame  HallOfFameConfig  `yaml:"hall_of_fame"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ReefConfig holds the optimizer tunables.
type ReefConfig struct {
	Size                   int     `yaml:"size"`           // N grid slots
	Subpopulations         int     `yaml:"subpopulations"` // independent reefs
	Attempts               int     `yaml:"attempts"`       // k settlement retries
	Budding                float64 `yaml:"budding"`        // Fa
	Broadcast              float64 `yaml:"broadcast"`      // Fb
	Depredation            float64 `yaml:"depredation"`    // Fd
	DepredationProbability float64 `yaml:"depredation_probability"`
	Occupancy              float64 `yaml:"occupancy"` // r0
	Variant                string  `yaml:"variant"`   // classic | adaptive
	Crossover              string  `yaml:"crossover"` // blx | sbx
	Encoding               string  `yaml:"encoding"`  // real | integer
	Generations            int     `yaml:"generations"`
	Seed                   int64   `yaml:"seed"`
}

// OperatorsConfig holds genome operator constants.
type OperatorsConfig struct {
	BLXAlpha              float64            `yaml:"blx_alpha"`
	SBXEta                float64            `yaml:"sbx_eta"`
	PolynomialEta         float64            `yaml:"polynomial_eta"`
	GaussianStd           float64            `yaml:"gaussian_std"` // fraction of the gene range
	RandomWalkProbability float64            `yaml:"random_walk_probability"`
	MutationProbability   float64            `yaml:"mutation_probability"`
	Harmony               HarmonyConfig      `yaml:"harmony"`
	Differential          DifferentialConfig `yaml:"differential"`
}

// HarmonyConfig holds harmony search constants.
type HarmonyConfig struct {
	HMCR      float64 `yaml:"hmcr"`
	PAR       float64 `yaml:"par"`
	Bandwidth float64 `yaml:"bandwidth"`
}

// DifferentialConfig holds differential evolution constants.
type DifferentialConfig struct {
	Weight    float64 `yaml:"weight"`
	Crossover float64 `yaml:"crossover"`
}

// MarketConfig holds the customer and adoption model.
type MarketConfig struct {
	Customers             int     `yaml:"customers"`
	Steps                 int     `yaml:"steps"`
	Innovation            float64 `yaml:"innovation"`             // external adoption pressure
	Imitation             float64 `yaml:"imitation"`              // pressure from adopted neighbours
	RepurchaseProbability float64 `yaml:"repurchase_probability"` // per adopter per step
	PerceptionWeight      float64 `yaml:"perception_weight"`      // logistic slope on perception
	AwarenessDecay        float64 `yaml:"awareness_decay"`        // fraction lost per step
	InitialAwareness      float64 `yaml:"initial_awareness"`
	InitialPerception     float64 `yaml:"initial_perception"` // in [-1, 1]
}

// SegmentConfig defines a customer segment.
type SegmentConfig struct {
	Name           string  `yaml:"name"`
	Share          float64 `yaml:"share"`          // relative size
	Innovativeness float64 `yaml:"innovativeness"` // multiplies market.innovation
	Sensitivity    float64 `yaml:"sensitivity"`    // multiplies touchpoint exposure
}

// NetworkConfig holds social network and word-of-mouth parameters.
type NetworkConfig struct {
	Degree         int     `yaml:"degree"` // even; neighbours per customer before rewiring
	Rewire         float64 `yaml:"rewire"` // Watts-Strogatz rewiring probability
	WOMProbability float64 `yaml:"wom_probability"`
	WOMAwareness   float64 `yaml:"wom_awareness"`
	WOMPerception  float64 `yaml:"wom_perception"` // pull toward the speaker's perception
}

// TouchpointsConfig holds the advertising schedule.
type TouchpointsConfig struct {
	Schedule          []float64 `yaml:"schedule"` // pressure per step, repeated
	Reach             float64   `yaml:"reach"`
	AdEffectiveness   float64   `yaml:"ad_effectiveness"`
	MessagePerception float64   `yaml:"message_perception"`
	PerceptionShift   float64   `yaml:"perception_shift"`
}

// CalibrationConfig holds the fitness evaluation setup.
type CalibrationConfig struct {
	Targets    string            `yaml:"targets"` // CSV path
	Seeds      int               `yaml:"seeds"`   // simulation runs per evaluation
	Workers    int               `yaml:"workers"` // concurrent larva evaluations
	Weights    WeightsConfig     `yaml:"weights"`
	Parameters []ParameterConfig `yaml:"parameters"`
}

// WeightsConfig weights the per-series errors.
type WeightsConfig struct {
	Sales      float64 `yaml:"sales"`
	Awareness  float64 `yaml:"awareness"`
	Perception float64 `yaml:"perception"`
}

// ParameterConfig selects a calibrated field and its search range.
type ParameterConfig struct {
	Name  string  `yaml:"name"` // dotted path, e.g. market.innovation
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Steps int     `yaml:"steps"` // integer encoding resolution
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	LogLevel            string `yaml:"log_level"`
	BookmarkHistorySize int    `yaml:"bookmark_history_size"`
	PerfCollectorWindow int    `yaml:"perf_collector_window"` // generations per perf row
}

// BookmarksConfig holds bookmark detection thresholds.
type BookmarksConfig struct {
	Breakthrough BreakthroughConfig `yaml:"breakthrough"`
	Stagnation   StagnationConfig   `yaml:"stagnation"`
}

// BreakthroughConfig holds breakthrough detection parameters.
type BreakthroughConfig struct {
	MinImprovement float64 `yaml:"min_improvement"` // relative best-fitness gain over the bookmark history
}

// StagnationConfig holds stagnation detection parameters.
type StagnationConfig struct {
	Generations int `yaml:"generations"`
}

// HallOfFameConfig holds hall of fame settings.
type HallOfFameConfig struct {
	Size        int     `yaml:"size"`
	MinDistance float64 `yaml:"min_distance"` // normalized genome distance for a distinct entry
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	SegmentCDF []float64  // cumulative normalized segment shares
	LogLevel   slog.Level // Telemetry.LogLevel parsed
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if len(c.Segments) == 0 {
		c.Segments = []SegmentConfig{{Name: "mainstream", Share: 1, Innovativeness: 1, Sensitivity: 1}}
	}
	if len(c.Touchpoints.Schedule) == 0 {
		c.Touchpoints.Schedule = []float64{1}
	}

	var total float64
	for _, s := range c.Segments {
		total += s.Share
	}
	c.Derived.SegmentCDF = make([]float64, len(c.Segments))
	var acc float64
	for i, s := range c.Segments {
		if total > 0 {
			acc += s.Share / total
		}
		c.Derived.SegmentCDF[i] = acc
	}
	if n := len(c.Derived.SegmentCDF); n > 0 && total > 0 {
		c.Derived.SegmentCDF[n-1] = 1
	}

	switch strings.ToLower(c.Telemetry.LogLevel) {
	case "debug":
		c.Derived.LogLevel = slog.LevelDebug
	case "warn":
		c.Derived.LogLevel = slog.LevelWarn
	case "error":
		c.Derived.LogLevel = slog.LevelError
	default:
		c.Derived.LogLevel = slog.LevelInfo
	}
}

// Validate rejects negative or out-of-range tunables before anything runs.
func (c *Config) Validate() error {
	if err := c.ReefParams().Validate(); err != nil {
		return err
	}
	switch reef.Encoding(c.Reef.Encoding) {
	case reef.EncodingReal, reef.EncodingInteger:
	default:
		return fmt.Errorf("%w: reef.encoding %q", ErrInvalidConfig, c.Reef.Encoding)
	}
	if c.Reef.Generations < 0 {
		return fmt.Errorf("%w: reef.generations = %d", ErrInvalidConfig, c.Reef.Generations)
	}

	m := c.Market
	if m.Customers < 1 || m.Steps < 1 {
		return fmt.Errorf("%w: market needs customers and steps >= 1 (got %d, %d)", ErrInvalidConfig, m.Customers, m.Steps)
	}
	if c.Network.Degree < 0 || c.Network.Degree%2 != 0 || c.Network.Degree >= m.Customers {
		return fmt.Errorf("%w: network.degree = %d, must be even and below market.customers", ErrInvalidConfig, c.Network.Degree)
	}

	probabilities := []struct {
		name string
		v    float64
	}{
		{"market.innovation", m.Innovation},
		{"market.imitation", m.Imitation},
		{"market.repurchase_probability", m.RepurchaseProbability},
		{"market.awareness_decay", m.AwarenessDecay},
		{"market.initial_awareness", m.InitialAwareness},
		{"network.rewire", c.Network.Rewire},
		{"network.wom_probability", c.Network.WOMProbability},
		{"network.wom_awareness", c.Network.WOMAwareness},
		{"network.wom_perception", c.Network.WOMPerception},
		{"touchpoints.reach", c.Touchpoints.Reach},
		{"touchpoints.ad_effectiveness", c.Touchpoints.AdEffectiveness},
		{"touchpoints.perception_shift", c.Touchpoints.PerceptionShift},
	}
	for _, p := range probabilities {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("%w: %s = %g, must be in [0, 1]", ErrInvalidConfig, p.name, p.v)
		}
	}
	if m.PerceptionWeight < 0 {
		return fmt.Errorf("%w: market.perception_weight = %g", ErrInvalidConfig, m.PerceptionWeight)
	}
	for i, p := range c.Touchpoints.Schedule {
		if p < 0 {
			return fmt.Errorf("%w: touchpoints.schedule[%d] = %g", ErrInvalidConfig, i, p)
		}
	}
	for _, s := range c.Segments {
		if s.Share < 0 || s.Innovativeness < 0 || s.Sensitivity < 0 {
			return fmt.Errorf("%w: segment %q has a negative value", ErrInvalidConfig, s.Name)
		}
	}

	cal := c.Calibration
	if cal.Seeds < 1 || cal.Workers < 0 {
		return fmt.Errorf("%w: calibration.seeds = %d, workers = %d", ErrInvalidConfig, cal.Seeds, cal.Workers)
	}
	if cal.Weights.Sales < 0 || cal.Weights.Awareness < 0 || cal.Weights.Perception < 0 {
		return fmt.Errorf("%w: calibration weights must be >= 0", ErrInvalidConfig)
	}
	for _, p := range cal.Parameters {
		if p.Max < p.Min {
			return fmt.Errorf("%w: parameter %s has max %g < min %g", ErrInvalidConfig, p.Name, p.Max, p.Min)
		}
		if p.Steps < 0 {
			return fmt.Errorf("%w: parameter %s has steps %d", ErrInvalidConfig, p.Name, p.Steps)
		}
	}

	if c.HallOfFame.Size < 0 || c.Telemetry.PerfCollectorWindow < 0 || c.Bookmarks.Stagnation.Generations < 0 {
		return fmt.Errorf("%w: telemetry sizes must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// ReefParams converts the reef and operators sections to optimizer params.
func (c *Config) ReefParams() reef.Params {
	return reef.Params{
		Size:           c.Reef.Size,
		Subpopulations: c.Reef.Subpopulations,
		Attempts:       c.Reef.Attempts,
		Budding:        c.Reef.Budding,
		Broadcast:      c.Reef.Broadcast,
		Depredation:    c.Reef.Depredation,
		DepredationP:   c.Reef.DepredationProbability,
		Occupancy:      c.Reef.Occupancy,
		Variant:        reef.Variant(c.Reef.Variant),
		Crossover:      reef.CrossoverKind(c.Reef.Crossover),
		Operators: reef.OperatorParams{
			BLXAlpha:         c.Operators.BLXAlpha,
			SBXEta:           c.Operators.SBXEta,
			PolynomialEta:    c.Operators.PolynomialEta,
			GaussianStd:      c.Operators.GaussianStd,
			RandomWalkProb:   c.Operators.RandomWalkProbability,
			MutationProb:     c.Operators.MutationProbability,
			HarmonyHMCR:      c.Operators.Harmony.HMCR,
			HarmonyPAR:       c.Operators.Harmony.PAR,
			HarmonyBandwidth: c.Operators.Harmony.Bandwidth,
			DEWeight:         c.Operators.Differential.Weight,
			DECrossover:      c.Operators.Differential.Crossover,
		},
	}
}

// Clone returns a deep copy with derived values recomputed.
func (c *Config) Clone() *Config {
	out := *c
	out.Segments = append([]SegmentConfig(nil), c.Segments...)
	out.Touchpoints.Schedule = append([]float64(nil), c.Touchpoints.Schedule...)
	out.Calibration.Parameters = append([]ParameterConfig(nil), c.Calibration.Parameters...)
	out.computeDerived()
	return &out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
