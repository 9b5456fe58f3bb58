// Package experiment turns a run configuration into a wired simulator.
package experiment

import (
	"context"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/multibody/internal/config"
	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/logging"
	"github.com/san-kum/multibody/internal/models"
	"github.com/san-kum/multibody/internal/sim"
)

var ErrNotSetup = errors.New("experiment: not set up")

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	logger    *zap.SugaredLogger
	model     models.Model
	skel      *dynamics.Skeleton
	simulator *sim.Simulator
}

func New(cfg *config.Config, registry *Registry, logger *zap.SugaredLogger) *Experiment {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Experiment{cfg: cfg, registry: registry, logger: logger}
}

// Setup builds the skeleton, applies the initial state and wires the
// simulator. It may be called again to start over.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	model, err := e.registry.GetModel(e.cfg.Model)
	if err != nil {
		return err
	}
	if err := models.ApplyParams(model, e.cfg.Params); err != nil {
		return err
	}

	opts := []dynamics.Option{
		dynamics.WithTimeStep(e.cfg.Dt),
		dynamics.WithLogger(e.logger.Named(model.Name())),
	}
	if len(e.cfg.Gravity) == 3 {
		opts = append(opts, dynamics.WithGravity(mgl64.Vec3{e.cfg.Gravity[0], e.cfg.Gravity[1], e.cfg.Gravity[2]}))
	}
	skel, err := model.Build(opts...)
	if err != nil {
		return errors.Wrapf(err, "build %s", model.Name())
	}
	if err := applyInitState(skel, e.cfg.InitState); err != nil {
		return err
	}

	s, err := e.Wire(skel)
	if err != nil {
		return err
	}
	e.model, e.skel, e.simulator = model, skel, s
	e.logger.Debugw("experiment ready", "model", model.Name(), "dofs", skel.NumDofs(),
		"integrator", e.cfg.Integrator, "controller", e.cfg.Controller)
	return nil
}

func applyInitState(skel *dynamics.Skeleton, init config.InitStateConfig) error {
	c := dynamics.Configuration{}
	if len(init.Positions) > 0 {
		c.Positions = init.Positions
	}
	if len(init.Velocities) > 0 {
		c.Velocities = init.Velocities
	}
	return errors.Wrap(skel.SetConfiguration(c), "initial state")
}

// Wire builds a simulator with its own integrator, controller and metrics
// around skel.
func (e *Experiment) Wire(skel *dynamics.Skeleton) (*sim.Simulator, error) {
	integ, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return nil, err
	}
	ctrl, err := e.registry.GetController(e.cfg.Controller, skel, e.cfg.ControllerParams, e.cfg.Dt)
	if err != nil {
		return nil, err
	}

	opts := []sim.Option{sim.WithLogger(e.logger)}
	if e.cfg.Limits.Enabled {
		opts = append(opts, sim.WithConstraintSolver(sim.NewJointLimits(e.cfg.Limits.Restitution, e.logger)))
	}
	s := sim.New(skel, integ, ctrl, opts...)
	for _, m := range e.registry.DefaultMetrics(e.cfg.Model) {
		s.AddMetric(m)
	}
	return s, nil
}

func (e *Experiment) simConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Dt = e.cfg.Dt
	cfg.Duration = e.cfg.Duration
	cfg.Seed = e.cfg.Seed
	if e.cfg.RecordEvery > 0 {
		cfg.RecordEvery = e.cfg.RecordEvery
	}
	return cfg
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, ErrNotSetup
	}
	return e.simulator.Run(ctx, e.simConfig())
}

// RunEnsemble simulates cfg.Ensemble.Runs clones of the skeleton. Member i
// starts from the current state with Gaussian noise of standard deviation
// Perturb on its positions, drawn from a source seeded with Seed+i.
func (e *Experiment) RunEnsemble(ctx context.Context) ([]*sim.Result, error) {
	if e.simulator == nil {
		return nil, ErrNotSetup
	}
	runs := e.cfg.Ensemble.Runs
	if runs == 0 {
		runs = 1
	}
	perturb := e.cfg.Ensemble.Perturb

	ens := sim.NewEnsemble(e.skel, runs, func(run int, skel *dynamics.Skeleton) (*sim.Simulator, error) {
		if perturb > 0 {
			rng := rand.New(rand.NewSource(e.cfg.Seed + int64(run)))
			q := skel.Positions()
			for i := range q {
				q[i] += perturb * rng.NormFloat64()
			}
			if err := skel.SetPositions(q); err != nil {
				return nil, err
			}
		}
		return e.Wire(skel)
	})
	if e.cfg.Ensemble.Workers > 0 {
		ens.SetWorkers(e.cfg.Ensemble.Workers)
	}
	ens.SetLogger(e.logger)
	return ens.Run(ctx, e.simConfig())
}

func (e *Experiment) Config() *config.Config       { return e.cfg }
func (e *Experiment) Model() models.Model          { return e.model }
func (e *Experiment) Skeleton() *dynamics.Skeleton { return e.skel }
func (e *Experiment) GetSimulator() *sim.Simulator { return e.simulator }
