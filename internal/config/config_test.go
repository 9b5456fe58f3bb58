package config

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "pendulum" {
		t.Errorf("expected model pendulum, got %s", cfg.Model)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected the defaults to validate, got %v", err)
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("model: cartpole\nduration: 3\nparams:\n  theta: 0.2\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != "cartpole" {
		t.Errorf("expected model cartpole, got %s", cfg.Model)
	}
	if cfg.Duration != 3 {
		t.Errorf("expected duration 3, got %f", cfg.Duration)
	}
	if cfg.Dt != DefaultDt {
		t.Errorf("expected dt %f, got %f", DefaultDt, cfg.Dt)
	}
	if cfg.Integrator != "semi_implicit_euler" {
		t.Errorf("expected the default integrator, got %s", cfg.Integrator)
	}
	if cfg.Params["theta"] != 0.2 {
		t.Errorf("expected theta 0.2, got %f", cfg.Params["theta"])
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("model: [")); err == nil {
		t.Error("expected a decode error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		problems int
	}{
		{"valid", func(c *Config) {}, 0},
		{"no model", func(c *Config) { c.Model = "" }, 1},
		{"zero dt", func(c *Config) { c.Dt = 0 }, 1},
		{"nan dt", func(c *Config) { c.Dt = math.NaN() }, 1},
		{"infinite duration", func(c *Config) { c.Duration = math.Inf(1) }, 1},
		{"negative record", func(c *Config) { c.RecordEvery = -1 }, 1},
		{"short gravity", func(c *Config) { c.Gravity = []float64{0, 0} }, 1},
		{"restitution", func(c *Config) { c.Limits.Restitution = 1.5 }, 1},
		{"ensemble", func(c *Config) { c.Ensemble.Runs = -2; c.Ensemble.Perturb = -1 }, 2},
		{"several", func(c *Config) { c.Model = ""; c.Dt = -1; c.Duration = 0 }, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			got := len(multierr.Errors(err))
			if got != tt.problems {
				t.Fatalf("expected %d problems, got %d: %v", tt.problems, got, err)
			}
			for _, e := range multierr.Errors(err) {
				if errors.Cause(e) != ErrInvalid {
					t.Errorf("expected ErrInvalid, got %v", e)
				}
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset("cartpole", "balance")
	cfg.Seed = 42
	if err := Save(path, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Controller != "lqr" {
		t.Errorf("expected controller lqr, got %s", loaded.Controller)
	}
	if loaded.Seed != 42 {
		t.Errorf("expected seed 42, got %d", loaded.Seed)
	}
	if len(loaded.ControllerParams.R) != 2 {
		t.Errorf("expected 2 control weights, got %v", loaded.ControllerParams.R)
	}
	if !loaded.Limits.Enabled {
		t.Error("expected limits enabled")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("pendulum", "small")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Params["theta"] != 0.2 {
		t.Errorf("expected theta 0.2, got %f", cfg.Params["theta"])
	}
}

func TestGetPresetReturnsCopy(t *testing.T) {
	cfg := GetPreset("pendulum", "small")
	cfg.Params["theta"] = 3
	if again := GetPreset("pendulum", "small"); again.Params["theta"] != 0.2 {
		t.Errorf("expected the preset untouched, got theta %f", again.Params["theta"])
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	cfg := GetPreset("pendulum", "nonexistent")
	if cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}

	cfg = GetPreset("nonexistent", "small")
	if cfg != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("pendulum")
	if len(presets) == 0 {
		t.Error("expected presets for pendulum")
	}
	for i := 1; i < len(presets); i++ {
		if presets[i-1] > presets[i] {
			t.Errorf("expected sorted names, got %v", presets)
		}
	}

	presets = ListPresets("nonexistent")
	if presets != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestPresetsValidate(t *testing.T) {
	for model, presets := range Presets {
		for name, cfg := range presets {
			if cfg.Model != model {
				t.Errorf("%s/%s: expected model %s, got %s", model, name, model, cfg.Model)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", model, name, err)
			}
		}
	}
}
