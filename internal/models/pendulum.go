package models

import (
	"math"

	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// Pendulum is a point mass on a massless rod.
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
	Theta   float64
	Omega   float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    DefaultMass,
		Length:  DefaultLength,
		Damping: 0.1,
		Gravity: DefaultGravity,
		Theta:   0.5,
	}
}

func (p *Pendulum) Name() string { return "pendulum" }

func (p *Pendulum) Params() map[string]*float64 {
	return map[string]*float64{
		"mass":    &p.Mass,
		"length":  &p.Length,
		"damping": &p.Damping,
		"gravity": &p.Gravity,
		"theta":   &p.Theta,
		"omega":   &p.Omega,
	}
}

func (p *Pendulum) Build(opts ...dynamics.Option) (*dynamics.Skeleton, error) {
	if err := positive(p.Name(), map[string]float64{"mass": p.Mass, "length": p.Length}); err != nil {
		return nil, err
	}
	j, err := hinge("pivot", p.Length, p.Theta, p.Damping)
	if err != nil {
		return nil, errors.Wrap(err, "pendulum joint")
	}
	if err := j.SetInitialVelocities([]float64{p.Omega}); err != nil {
		return nil, err
	}
	skel := newSkeleton(p.Name(), p.Gravity, opts)
	if _, err := skel.CreateJointAndBodyNodePair(dynamics.BodyID{}, j, pointMass("bob", p.Mass)); err != nil {
		return nil, errors.Wrap(err, "pendulum body")
	}
	return skel, nil
}

// Derivative is m·L²·θ̈ = τ − d·θ̇ − m·g·L·sin θ. Joint damping in the
// skeleton is integrated implicitly, so the two agree only as dt → 0 when
// Damping is non-zero.
func (p *Pendulum) Derivative(x sim.State, u sim.Control) sim.State {
	theta, omega := x[0], x[1]

	torque := 0.0
	if len(u) > 0 {
		torque = u[0]
	}
	alpha := (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta) + torque) / (p.Mass * p.Length * p.Length)

	return sim.State{omega, alpha}
}
