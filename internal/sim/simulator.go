package sim

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/logging"
)

// Simulator drives one skeleton through time.
type Simulator struct {
	skel       *dynamics.Skeleton
	integrator Integrator
	controller Controller
	solver     ConstraintSolver
	metrics    []Metric
	observers  []Observer
	logger     *zap.SugaredLogger
	t          float64
}

type Option func(*Simulator)

func WithConstraintSolver(cs ConstraintSolver) Option {
	return func(s *Simulator) { s.solver = cs }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Simulator) { s.logger = l }
}

type idle struct{}

func (idle) Compute(*dynamics.Skeleton, float64) Control { return nil }

// New returns a simulator for skel. A nil controller leaves the joint
// commands alone.
func New(skel *dynamics.Skeleton, integrator Integrator, controller Controller, opts ...Option) *Simulator {
	if controller == nil {
		controller = idle{}
	}
	s := &Simulator{
		skel:       skel,
		integrator: integrator,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("skeleton", skel.Name())
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Skeleton() *dynamics.Skeleton { return s.skel }
func (s *Simulator) Time() float64                { return s.t }
func (s *Simulator) Controller() Controller       { return s.controller }

// SetTime moves the clock, e.g. after restoring a recorded configuration.
func (s *Simulator) SetTime(t float64) { s.t = t }

// Reset puts the skeleton back at its initial configuration with no
// commands and rewinds the clock.
func (s *Simulator) Reset() {
	s.skel.ResetPositions()
	s.skel.ResetVelocities()
	s.skel.ResetCommands()
	s.skel.ClearExternalForces()
	s.t = 0
	for _, m := range s.metrics {
		m.Reset()
	}
}

// Step advances the skeleton by dt and returns the control that was
// applied. It ignores metrics and observers.
func (s *Simulator) Step(ctx context.Context, dt float64) (Control, error) {
	u := s.controller.Compute(s.skel, s.t)
	if err := s.advance(ctx, u, dt); err != nil {
		return u, err
	}
	return u, nil
}

func (s *Simulator) advance(ctx context.Context, u Control, dt float64) error {
	if len(u) > 0 {
		if n := s.skel.NumDofs(); len(u) != n {
			return errors.Wrapf(ErrDimensionMismatch, "control has %d entries for %d DOFs", len(u), n)
		}
		if err := s.skel.SetCommands(u); err != nil {
			return errors.Wrap(err, "apply control")
		}
	}
	if err := s.integrator.Step(ctx, s.skel, dt, s.solver); err != nil {
		return err
	}
	s.t += dt
	return nil
}

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if err := s.skel.SetTimeStep(cfg.Dt); err != nil {
		return nil, errors.Wrap(err, "set time step")
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	every := cfg.RecordEvery
	if every < 1 {
		every = 1
	}
	n := s.skel.NumDofs()
	pool := NewStatePool(2 * n)

	result := &Result{
		DofNames: dofNames(s.skel),
		States:   make([]State, 0, steps/every+2),
		Controls: make([]Control, 0, steps/every+1),
		Times:    make([]float64, 0, steps/every+2),
		Metrics:  make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	result.States = append(result.States, Capture(s.skel))
	result.Times = append(result.Times, s.t)

	initialEnergy := totalEnergy(s.skel)
	s.logger.Debugw("run started", "steps", steps, "dt", cfg.Dt, "dofs", n)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		t := s.t
		u := s.controller.Compute(s.skel, t)

		for _, m := range s.metrics {
			m.Observe(s.skel, u, t)
		}
		if len(s.observers) > 0 {
			x := pool.Fill(s.skel.Positions(), s.skel.Velocities())
			for _, obs := range s.observers {
				obs.OnStep(x, u, t)
			}
			pool.Put(x)
		}

		if err := s.advance(ctx, u, cfg.Dt); err != nil {
			return result, &StepError{Step: i, Time: t, State: Capture(s.skel), Wrapped: err}
		}

		x := Capture(s.skel)
		if cfg.ValidateState && !x.IsValid() {
			s.logger.Errorw("state diverged", "step", i, "t", t)
			return result, &StepError{Step: i, Time: t, State: x, Wrapped: ErrInvalidState}
		}
		result.StepsTaken++

		if result.StepsTaken%every == 0 || i == steps-1 {
			result.States = append(result.States, x)
			result.Controls = append(result.Controls, u)
			result.Times = append(result.Times, s.t)
		}
	}

	finalEnergy := totalEnergy(s.skel)
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.logger.Debugw("run finished", "steps", result.StepsTaken, "energy_drift", result.EnergyDrift)
	return result, nil
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 || math.IsNaN(cfg.Dt) {
		return errors.Wrapf(ErrInvalidConfig, "dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 || math.IsNaN(cfg.Duration) {
		return errors.Wrapf(ErrInvalidConfig, "duration must be positive, got %f", cfg.Duration)
	}
	if cfg.RecordEvery < 0 {
		return errors.Wrapf(ErrInvalidConfig, "record interval must not be negative, got %d", cfg.RecordEvery)
	}
	return nil
}

func totalEnergy(skel *dynamics.Skeleton) float64 {
	return skel.KineticEnergy() + skel.PotentialEnergy()
}

func dofNames(skel *dynamics.Skeleton) []string {
	dofs := skel.Dofs()
	names := make([]string, len(dofs))
	for i, d := range dofs {
		names[i], _ = skel.DofName(d)
	}
	return names
}
