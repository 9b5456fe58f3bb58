package experiment

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/config"
	"github.com/san-kum/multibody/internal/controllers"
	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/integrators"
	"github.com/san-kum/multibody/internal/metrics"
	"github.com/san-kum/multibody/internal/models"
	"github.com/san-kum/multibody/internal/sim"
)

var ErrUnknown = errors.New("experiment: unknown name")

// ControllerFactory builds a controller for a freshly built skeleton. dt is
// the control period.
type ControllerFactory func(skel *dynamics.Skeleton, p config.ControllerConfig, dt float64) (sim.Controller, error)

type Registry struct {
	models      map[string]func() models.Model
	integrators map[string]func() sim.Integrator
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]func() models.Model),
		integrators: make(map[string]func() sim.Integrator),
		controllers: make(map[string]ControllerFactory),
	}

	r.models["pendulum"] = func() models.Model { return models.NewPendulum() }
	r.models["double_pendulum"] = func() models.Model { return models.NewDoublePendulum() }
	r.models["chain"] = func() models.Model { return models.NewChain() }
	r.models["cartpole"] = func() models.Model { return models.NewCartPole() }
	r.models["ball_pendulum"] = func() models.Model { return models.NewBallPendulum() }
	r.models["drone"] = func() models.Model { return models.NewDrone() }

	r.integrators["semi_implicit_euler"] = func() sim.Integrator { return integrators.NewSemiImplicitEuler() }
	r.integrators["euler"] = func() sim.Integrator { return integrators.NewEuler() }
	r.integrators["verlet"] = func() sim.Integrator { return integrators.NewVerlet() }
	r.integrators["rk4"] = func() sim.Integrator { return integrators.NewRK4() }

	r.controllers["none"] = func(*dynamics.Skeleton, config.ControllerConfig, float64) (sim.Controller, error) {
		return controllers.NewNone(), nil
	}
	r.controllers["pid"] = func(_ *dynamics.Skeleton, p config.ControllerConfig, _ float64) (sim.Controller, error) {
		return controllers.NewPID(p.Kp, p.Ki, p.Kd, p.Targets), nil
	}
	r.controllers["computed_torque"] = func(_ *dynamics.Skeleton, p config.ControllerConfig, _ float64) (sim.Controller, error) {
		return controllers.NewComputedTorque(p.Kp, p.Kd, p.Targets), nil
	}
	r.controllers["lqr"] = newLQR
	r.controllers["manual"] = func(*dynamics.Skeleton, config.ControllerConfig, float64) (sim.Controller, error) {
		return controllers.NewManual(controllers.DefaultManualStep), nil
	}

	return r
}

// minDesignPeriod bounds how finely LQR gains are discretized; the Riccati
// iteration slows down as the period shrinks.
const minDesignPeriod = 0.01

// newLQR balances about Targets (zero velocity). Missing weights default
// to identity.
func newLQR(skel *dynamics.Skeleton, p config.ControllerConfig, dt float64) (sim.Controller, error) {
	n := skel.NumDofs()
	target := make(sim.State, 2*n)
	copy(target[:n], p.Targets)
	q, r := p.Q, p.R
	if len(q) == 0 {
		q = ones(2 * n)
	}
	if len(r) == 0 {
		r = ones(n)
	}
	return controllers.DesignLQR(skel, target, q, r, math.Max(dt, minDesignPeriod))
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func (r *Registry) RegisterModel(name string, fn func() models.Model) {
	r.models[name] = fn
}

func (r *Registry) RegisterIntegrator(name string, fn func() sim.Integrator) {
	r.integrators[name] = fn
}

func (r *Registry) RegisterController(name string, fn ControllerFactory) {
	r.controllers[name] = fn
}

func (r *Registry) GetModel(name string) (models.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknown, "model %q", name)
	}
	return fn(), nil
}

func (r *Registry) GetIntegrator(name string) (sim.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknown, "integrator %q", name)
	}
	return fn(), nil
}

// GetController builds the named controller for skel. An empty name means
// "none".
func (r *Registry) GetController(name string, skel *dynamics.Skeleton, p config.ControllerConfig, dt float64) (sim.Controller, error) {
	if name == "" {
		name = "none"
	}
	fn, ok := r.controllers[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknown, "controller %q", name)
	}
	c, err := fn(skel, p, dt)
	return c, errors.Wrapf(err, "controller %q", name)
}

func (r *Registry) ListModels() []string      { return sortedNames(r.models) }
func (r *Registry) ListIntegrators() []string { return sortedNames(r.integrators) }
func (r *Registry) ListControllers() []string { return sortedNames(r.controllers) }

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(model string) []sim.Metric {
	out := []sim.Metric{
		metrics.NewEnergy(),
		metrics.NewEnergyDrift(),
		metrics.NewStability(10.0),
		metrics.NewControlEffort(),
	}
	if model == "drone" || model == "cartpole" {
		out = append(out, metrics.NewCOMHeight())
	}
	return out
}
