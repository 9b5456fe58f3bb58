package sim

import (
	"context"
	"math"

	"github.com/san-kum/multibody/internal/dynamics"
)

// State is a flat generalized state: positions followed by velocities.
type State []float64

// Capture reads the current positions and velocities of skel.
func Capture(skel *dynamics.Skeleton) State {
	return append(State(skel.Positions()), skel.Velocities()...)
}

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// Split returns the position and velocity halves of a state built for a
// skeleton with n DOFs.
func (s State) Split(n int) (q, v []float64) {
	return s[:n], s[n:]
}

func (s State) IsValid() bool {
	for _, x := range s {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, x := range s {
		sum += x * x
	}
	return math.Sqrt(sum)
}

type Control []float64

// Integrator advances a skeleton by dt. Implementations call ApplyConstraints
// with solver once the new velocities are known.
type Integrator interface {
	Step(ctx context.Context, skel *dynamics.Skeleton, dt float64, solver ConstraintSolver) error
}

// ConstraintSolver writes constraint impulses into a skeleton.
type ConstraintSolver interface {
	Solve(ctx context.Context, skel *dynamics.Skeleton) error
}

// Controller returns joint commands for the current skeleton state. An
// empty Control leaves the commands untouched.
type Controller interface {
	Compute(skel *dynamics.Skeleton, t float64) Control
}

type Metric interface {
	Name() string
	Observe(skel *dynamics.Skeleton, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Config struct {
	Dt            float64
	Duration      float64
	Seed          int64
	ValidateState bool
	// RecordEvery keeps every n-th state; zero or one keeps all.
	RecordEvery int
}

func DefaultConfig() Config {
	return Config{
		Dt:            dynamics.DefaultTimeStep,
		Duration:      5,
		ValidateState: true,
		RecordEvery:   1,
	}
}

type Result struct {
	DofNames    []string
	States      []State
	Controls    []Control
	Times       []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
}

// Final returns the last recorded state, or nil for an empty result.
func (r *Result) Final() State {
	if r == nil || len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
