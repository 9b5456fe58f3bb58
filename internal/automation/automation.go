// Package automation runs scripted sequences of experiments from YAML.
package automation

import (
	"context"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/multibody/internal/config"
	"github.com/san-kum/multibody/internal/experiment"
	"github.com/san-kum/multibody/internal/sim"
	"github.com/san-kum/multibody/internal/storage"
)

// Scenario is a named list of steps. Each step is a run config, optionally
// starting from a preset, with two extra keys:
//
//	steps:
//	  - name: swing
//	    preset: large
//	    model: pendulum
//	    duration: 5
type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Steps       []yaml.Node `yaml:"steps"`
}

type stepHeader struct {
	Name   string `yaml:"name"`
	Preset string `yaml:"preset"`
	Model  string `yaml:"model"`
}

// Step is a resolved scenario step.
type Step struct {
	Name   string
	Config *config.Config
}

// StepResult is the outcome of one step. Members is set for ensemble steps,
// in which case Result is the first member.
type StepResult struct {
	Name    string
	RunID   string
	Result  *sim.Result
	Members []*sim.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario")
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parse scenario")
	}
	if len(s.Steps) == 0 {
		return nil, errors.Wrapf(config.ErrInvalid, "scenario %q has no steps", s.Name)
	}
	return &s, nil
}

// Resolve decodes every step over its preset, or over the defaults, and
// validates it.
func (s *Scenario) Resolve() ([]Step, error) {
	steps := make([]Step, 0, len(s.Steps))
	for i := range s.Steps {
		node := &s.Steps[i]
		var h stepHeader
		if err := node.Decode(&h); err != nil {
			return nil, errors.Wrapf(err, "step %d", i+1)
		}
		if h.Name == "" {
			h.Name = "step" + strconv.Itoa(i+1)
		}

		cfg := config.DefaultConfig()
		if h.Preset != "" {
			if h.Model == "" {
				return nil, errors.Wrapf(config.ErrInvalid, "step %s: preset %q needs a model", h.Name, h.Preset)
			}
			if cfg = config.GetPreset(h.Model, h.Preset); cfg == nil {
				return nil, errors.Wrapf(config.ErrInvalid, "step %s: unknown preset %s/%s", h.Name, h.Model, h.Preset)
			}
		}
		if err := node.Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "step %s", h.Name)
		}
		if err := cfg.Validate(); err != nil {
			return nil, errors.Wrapf(err, "step %s", h.Name)
		}
		steps = append(steps, Step{Name: h.Name, Config: cfg})
	}
	return steps, nil
}

// Runner executes scenarios. Results are saved when Store is set.
type Runner struct {
	Registry *experiment.Registry
	Store    *storage.Store
	Logger   *zap.SugaredLogger
}

// Run executes every step in order and stops at the first failure,
// returning the results gathered so far.
func (r *Runner) Run(ctx context.Context, s *Scenario) ([]StepResult, error) {
	steps, err := s.Resolve()
	if err != nil {
		return nil, err
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	results := make([]StepResult, 0, len(steps))
	for i, step := range steps {
		logger.Infow("running step", "scenario", s.Name, "step", step.Name,
			"index", i+1, "of", len(steps), "model", step.Config.Model)

		exp := experiment.New(step.Config, r.Registry, logger.Named(step.Name))
		if err := exp.Setup(); err != nil {
			return results, errors.Wrapf(err, "step %s setup", step.Name)
		}

		sr := StepResult{Name: step.Name}
		if step.Config.Ensemble.Runs > 1 {
			sr.Members, err = exp.RunEnsemble(ctx)
			if err == nil {
				sr.Result = sr.Members[0]
			}
		} else {
			sr.Result, err = exp.Run(ctx)
		}
		if err != nil {
			return results, errors.Wrapf(err, "step %s run", step.Name)
		}

		if r.Store != nil {
			if sr.RunID, err = r.Store.Save(step.Config, sr.Result); err != nil {
				return results, errors.Wrapf(err, "step %s save", step.Name)
			}
		}
		results = append(results, sr)
	}
	return results, nil
}

// Bounded counts the results whose final state is finite with every entry
// within limit.
func Bounded(results []*sim.Result, limit float64) (bounded, escaped int) {
	for _, res := range results {
		ok := res != nil
		if ok {
			for _, x := range res.Final() {
				if math.IsNaN(x) || math.Abs(x) > limit {
					ok = false
					break
				}
			}
		}
		if ok {
			bounded++
		} else {
			escaped++
		}
	}
	return bounded, escaped
}
