// Package config loads and validates YAML run descriptions.
package config

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 0.001
	DefaultDuration = 10.0
	DefaultKp       = 10.0
	DefaultKi       = 0.1
	DefaultKd       = 5.0
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Model            string             `yaml:"model"`
	Integrator       string             `yaml:"integrator"`
	Controller       string             `yaml:"controller"`
	Dt               float64            `yaml:"dt"`
	Duration         float64            `yaml:"duration"`
	Seed             int64              `yaml:"seed"`
	RecordEvery      int                `yaml:"record_every,omitempty"`
	Gravity          []float64          `yaml:"gravity,omitempty"`
	Params           map[string]float64 `yaml:"params,omitempty"`
	InitState        InitStateConfig    `yaml:"init_state,omitempty"`
	ControllerParams ControllerConfig   `yaml:"controller_params"`
	Limits           LimitsConfig       `yaml:"limits,omitempty"`
	Ensemble         EnsembleConfig     `yaml:"ensemble,omitempty"`
}

// InitStateConfig overrides the model's initial positions and velocities.
// Empty slices keep the model defaults.
type InitStateConfig struct {
	Positions  []float64 `yaml:"positions,omitempty"`
	Velocities []float64 `yaml:"velocities,omitempty"`
}

type ControllerConfig struct {
	Kp      float64   `yaml:"kp"`
	Ki      float64   `yaml:"ki"`
	Kd      float64   `yaml:"kd"`
	Targets []float64 `yaml:"targets,omitempty"`
	// Q and R are the LQR weight diagonals.
	Q []float64 `yaml:"q,omitempty"`
	R []float64 `yaml:"r,omitempty"`
}

type LimitsConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Restitution float64 `yaml:"restitution"`
}

type EnsembleConfig struct {
	Runs    int `yaml:"runs"`
	Workers int `yaml:"workers"`
	// Perturb is the standard deviation of the noise added to each
	// member's initial positions.
	Perturb float64 `yaml:"perturb"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "pendulum",
		Integrator: "semi_implicit_euler",
		Controller: "none",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		ControllerParams: ControllerConfig{
			Kp: DefaultKp,
			Ki: DefaultKi,
			Kd: DefaultKd,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "write config")
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var err error
	fail := func(format string, args ...interface{}) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalid, format, args...))
	}
	if c.Model == "" {
		fail("model is required")
	}
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		fail("dt must be positive, got %v", c.Dt)
	}
	if !(c.Duration > 0) || math.IsInf(c.Duration, 0) {
		fail("duration must be positive, got %v", c.Duration)
	}
	if c.RecordEvery < 0 {
		fail("record_every must not be negative, got %d", c.RecordEvery)
	}
	if len(c.Gravity) != 0 && len(c.Gravity) != 3 {
		fail("gravity needs 3 components, got %d", len(c.Gravity))
	}
	if c.Limits.Restitution < 0 || c.Limits.Restitution > 1 {
		fail("restitution must lie in [0, 1], got %v", c.Limits.Restitution)
	}
	if c.Ensemble.Runs < 0 || c.Ensemble.Workers < 0 {
		fail("ensemble runs and workers must not be negative")
	}
	if c.Ensemble.Perturb < 0 {
		fail("ensemble perturbation must not be negative, got %v", c.Ensemble.Perturb)
	}
	return err
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Gravity = cloneFloats(c.Gravity)
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	out.InitState.Positions = cloneFloats(c.InitState.Positions)
	out.InitState.Velocities = cloneFloats(c.InitState.Velocities)
	out.ControllerParams.Targets = cloneFloats(c.ControllerParams.Targets)
	out.ControllerParams.Q = cloneFloats(c.ControllerParams.Q)
	out.ControllerParams.R = cloneFloats(c.ControllerParams.R)
	return &out
}

func cloneFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}
