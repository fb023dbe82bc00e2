package config

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/reefcal/reef"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	params := cfg.ReefParams()
	if err := params.Validate(); err != nil {
		t.Fatalf("default reef params invalid: %v", err)
	}
	if params.Size != 100 || params.Variant != reef.VariantClassic {
		t.Errorf("reef params = %+v", params)
	}
	if len(cfg.Calibration.Parameters) == 0 {
		t.Error("defaults carry no calibrated parameters")
	}

	cdf := cfg.Derived.SegmentCDF
	if len(cdf) != len(cfg.Segments) {
		t.Fatalf("segment CDF has %d entries for %d segments", len(cdf), len(cfg.Segments))
	}
	if cdf[len(cdf)-1] != 1 {
		t.Errorf("segment CDF ends at %g, want 1", cdf[len(cdf)-1])
	}
	if math.Abs(cdf[0]-0.2) > 1e-9 {
		t.Errorf("first segment CDF = %g, want 0.2", cdf[0])
	}
	if cfg.Derived.LogLevel != slog.LevelInfo {
		t.Errorf("log level = %v, want info", cfg.Derived.LogLevel)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.yaml")
	data := []byte("reef:\n  size: 40\n  variant: adaptive\ntelemetry:\n  log_level: debug\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Reef.Size != 40 || cfg.Reef.Variant != "adaptive" {
		t.Errorf("reef = %+v, want size 40 adaptive", cfg.Reef)
	}
	// Untouched keys keep their defaults.
	if cfg.Reef.Attempts != 3 || cfg.Market.Customers != 500 {
		t.Errorf("defaults lost: attempts %d customers %d", cfg.Reef.Attempts, cfg.Market.Customers)
	}
	if cfg.Derived.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", cfg.Derived.LogLevel)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("reef:\n  depredation: -0.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, reef.ErrInvalidParams) {
		t.Errorf("Load err = %v, want ErrInvalidParams", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"negative budding", func(c *Config) { c.Reef.Budding = -1 }, reef.ErrInvalidParams},
		{"unknown encoding", func(c *Config) { c.Reef.Encoding = "binary" }, ErrInvalidConfig},
		{"no customers", func(c *Config) { c.Market.Customers = 0 }, ErrInvalidConfig},
		{"odd degree", func(c *Config) { c.Network.Degree = 3 }, ErrInvalidConfig},
		{"degree too large", func(c *Config) { c.Network.Degree = c.Market.Customers }, ErrInvalidConfig},
		{"reach above one", func(c *Config) { c.Touchpoints.Reach = 1.2 }, ErrInvalidConfig},
		{"negative schedule", func(c *Config) { c.Touchpoints.Schedule = []float64{1, -1} }, ErrInvalidConfig},
		{"no seeds", func(c *Config) { c.Calibration.Seeds = 0 }, ErrInvalidConfig},
		{"inverted range", func(c *Config) {
			c.Calibration.Parameters = []ParameterConfig{{Name: "market.imitation", Min: 1, Max: 0}}
		}, ErrInvalidConfig},
		{"negative segment share", func(c *Config) { c.Segments[0].Share = -1 }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	clone := cfg.Clone()
	clone.Segments[0].Share = 99
	clone.Touchpoints.Schedule[0] = 7
	clone.Market.Innovation = 0.5

	if cfg.Segments[0].Share == 99 || cfg.Touchpoints.Schedule[0] == 7 || cfg.Market.Innovation == 0.5 {
		t.Error("clone shares state with the original")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Market.Imitation = 0.42
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Market.Imitation != 0.42 {
		t.Errorf("imitation = %g, want 0.42", back.Market.Imitation)
	}
}

func TestCfgBeforeInitPanics(t *testing.T) {
	saved := global
	global = nil
	defer func() {
		global = saved
		if recover() == nil {
			t.Error("Cfg() did not panic before Init")
		}
	}()
	Cfg()
}
