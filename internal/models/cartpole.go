package models

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
	"github.com/san-kum/multibody/internal/spatial"
)

// CartPole is a cart sliding along x with a pole hinged on top. The pole
// angle is zero upright and positive toward +x. DOFs are [x, θ].
type CartPole struct {
	CartMass   float64
	PoleMass   float64
	PoleLength float64
	Gravity    float64
	// Track is the half length of the rail; zero leaves the cart unbounded.
	Track    float64
	Position float64
	Theta    float64
}

func NewCartPole() *CartPole {
	return &CartPole{
		CartMass:   1.0,
		PoleMass:   0.1,
		PoleLength: 0.5,
		Gravity:    DefaultGravity,
		Track:      2.4,
		Theta:      0.1,
	}
}

func (c *CartPole) Name() string { return "cartpole" }

func (c *CartPole) Params() map[string]*float64 {
	return map[string]*float64{
		"cart_mass":   &c.CartMass,
		"pole_mass":   &c.PoleMass,
		"pole_length": &c.PoleLength,
		"gravity":     &c.Gravity,
		"track":       &c.Track,
		"position":    &c.Position,
		"theta":       &c.Theta,
	}
}

func (c *CartPole) Build(opts ...dynamics.Option) (*dynamics.Skeleton, error) {
	if err := positive(c.Name(), map[string]float64{"cart_mass": c.CartMass, "pole_mass": c.PoleMass, "pole_length": c.PoleLength}); err != nil {
		return nil, err
	}
	if c.Track < 0 {
		return nil, errors.Wrapf(ErrInvalidParam, "cartpole: track must not be negative, got %v", c.Track)
	}
	skel := newSkeleton(c.Name(), c.Gravity, opts)

	rail := dynamics.DefaultJointProperties(1)
	rail.Name = "rail"
	rail.InitialPositions = []float64{c.Position}
	if c.Track > 0 {
		rail.PositionLower = []float64{-c.Track}
		rail.PositionUpper = []float64{c.Track}
	}
	slider, err := dynamics.NewPrismaticJoint(rail, mgl64.Vec3{1, 0, 0})
	if err != nil {
		return nil, errors.Wrap(err, "rail")
	}
	cart, err := skel.CreateJointAndBodyNodePair(dynamics.BodyID{}, slider, pointMass("cart", c.CartMass))
	if err != nil {
		return nil, errors.Wrap(err, "cart")
	}

	pivot := dynamics.DefaultJointProperties(1)
	pivot.Name = "pole"
	pivot.InitialPositions = []float64{c.Theta}
	pivot.ChildToJoint = spatial.Translation(mgl64.Vec3{0, 0, -c.PoleLength})
	hingeJoint, err := dynamics.NewRevoluteJoint(pivot, mgl64.Vec3{0, 1, 0})
	if err != nil {
		return nil, errors.Wrap(err, "pole hinge")
	}
	if _, err := skel.CreateJointAndBodyNodePair(cart, hingeJoint, pointMass("tip", c.PoleMass)); err != nil {
		return nil, errors.Wrap(err, "pole")
	}
	return skel, nil
}

// Derivative solves
//
//	(M+m)·ẍ + m·l·cos θ·θ̈ − m·l·sin θ·θ̇² = F
//	m·l·cos θ·ẍ + m·l²·θ̈ − m·g·l·sin θ = τ
//
// for u = [F, τ]; a missing τ is zero.
func (c *CartPole) Derivative(x sim.State, u sim.Control) sim.State {
	theta, xdot, omega := x[1], x[2], x[3]
	mc, mp, l, g := c.CartMass, c.PoleMass, c.PoleLength, c.Gravity
	s, co := math.Sin(theta), math.Cos(theta)

	var f [2]float64
	copy(f[:], u)

	a, b, d := mc+mp, mp*l*co, mp*l*l
	r0 := f[0] + mp*l*s*omega*omega
	r1 := f[1] + mp*g*l*s

	det := a*d - b*b
	xddot := (d*r0 - b*r1) / det
	alpha := (a*r1 - b*r0) / det

	return sim.State{xdot, omega, xddot, alpha}
}
