package config

import "sort"

var Presets = map[string]map[string]*Config{
	"pendulum": {
		"small": {
			Model: "pendulum", Integrator: "rk4", Dt: 0.001, Duration: 20.0,
			Params: map[string]float64{"theta": 0.2, "damping": 0},
		},
		"large": {
			Model: "pendulum", Integrator: "rk4", Dt: 0.001, Duration: 20.0,
			Params: map[string]float64{"theta": 2.5, "damping": 0},
		},
		"spinning": {
			Model: "pendulum", Integrator: "rk4", Dt: 0.001, Duration: 30.0,
			Params: map[string]float64{"theta": 0.1, "omega": 8.0, "damping": 0},
		},
		"limited": {
			Model: "pendulum", Integrator: "semi_implicit_euler", Dt: 0.001, Duration: 10.0,
			Params: map[string]float64{"theta": 1.2},
			Limits: LimitsConfig{Enabled: true, Restitution: 0.5},
		},
	},
	"double_pendulum": {
		"symmetric": {
			Model: "double_pendulum", Integrator: "rk4", Dt: 0.0005, Duration: 30.0,
			Params: map[string]float64{"theta1": 1.5, "theta2": 0},
		},
		"chaos": {
			Model: "double_pendulum", Integrator: "rk4", Dt: 0.0005, Duration: 60.0,
			Params: map[string]float64{"theta1": 3.0, "theta2": 0},
			Ensemble: EnsembleConfig{Runs: 8, Perturb: 1e-6},
		},
		"gentle": {
			Model: "double_pendulum", Integrator: "rk4", Dt: 0.001, Duration: 30.0,
			Params: map[string]float64{"theta1": 0.3, "theta2": 0},
		},
	},
	"chain": {
		"whip": {
			Model: "chain", Integrator: "rk4", Dt: 0.0005, Duration: 10.0,
			Params: map[string]float64{"links": 8, "theta": 1.4, "damping": 0.005},
		},
	},
	"cartpole": {
		"balance": {
			Model: "cartpole", Integrator: "rk4", Controller: "lqr", Dt: 0.001, Duration: 30.0,
			Params:           map[string]float64{"theta": 0.1},
			ControllerParams: ControllerConfig{Q: []float64{1, 10, 1, 1}, R: []float64{0.1, 100}},
			Limits:           LimitsConfig{Enabled: true},
		},
		"recover": {
			Model: "cartpole", Integrator: "rk4", Controller: "lqr", Dt: 0.001, Duration: 30.0,
			Params:           map[string]float64{"theta": 0.5},
			ControllerParams: ControllerConfig{Q: []float64{1, 10, 1, 1}, R: []float64{0.1, 100}},
			Limits:           LimitsConfig{Enabled: true},
		},
		"freefall": {
			Model: "cartpole", Integrator: "rk4", Dt: 0.001, Duration: 10.0,
			Params: map[string]float64{"theta": 0.1},
			Limits: LimitsConfig{Enabled: true, Restitution: 0.3},
		},
	},
	"ball_pendulum": {
		"conical": {
			Model: "ball_pendulum", Integrator: "rk4", Dt: 0.001, Duration: 20.0,
			Params: map[string]float64{"tilt": 0.6, "swing": 2.0},
		},
	},
	"drone": {
		"drop": {
			Model: "drone", Integrator: "rk4", Dt: 0.001, Duration: 5.0,
			Params: map[string]float64{"altitude": 10},
		},
		"tilt": {
			Model: "drone", Integrator: "rk4", Dt: 0.001, Duration: 20.0,
			InitState: InitStateConfig{Positions: []float64{0, 0.3, 0, 0, 0, 5}},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
