package models

import (
	"math"

	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// DoublePendulum is two point masses on massless rods. Theta2 is measured
// relative to the first rod.
type DoublePendulum struct {
	M1, M2  float64
	L1, L2  float64
	Gravity float64
	Theta1  float64
	Theta2  float64
}

func NewDoublePendulum() *DoublePendulum {
	return &DoublePendulum{
		M1: DefaultMass, M2: DefaultMass,
		L1: DefaultLength, L2: DefaultLength,
		Gravity: DefaultGravity,
		Theta1:  1.5,
		Theta2:  0,
	}
}

func (d *DoublePendulum) Name() string { return "double_pendulum" }

func (d *DoublePendulum) Params() map[string]*float64 {
	return map[string]*float64{
		"m1":      &d.M1,
		"m2":      &d.M2,
		"l1":      &d.L1,
		"l2":      &d.L2,
		"gravity": &d.Gravity,
		"theta1":  &d.Theta1,
		"theta2":  &d.Theta2,
	}
}

func (d *DoublePendulum) Build(opts ...dynamics.Option) (*dynamics.Skeleton, error) {
	if err := positive(d.Name(), map[string]float64{"m1": d.M1, "m2": d.M2, "l1": d.L1, "l2": d.L2}); err != nil {
		return nil, err
	}
	skel := newSkeleton(d.Name(), d.Gravity, opts)

	shoulder, err := hinge("shoulder", d.L1, d.Theta1, 0)
	if err != nil {
		return nil, err
	}
	upper, err := skel.CreateJointAndBodyNodePair(dynamics.BodyID{}, shoulder, pointMass("upper", d.M1))
	if err != nil {
		return nil, errors.Wrap(err, "upper link")
	}

	elbow, err := hinge("elbow", d.L2, d.Theta2, 0)
	if err != nil {
		return nil, err
	}
	if _, err := skel.CreateJointAndBodyNodePair(upper, elbow, pointMass("lower", d.M2)); err != nil {
		return nil, errors.Wrap(err, "lower link")
	}
	return skel, nil
}

// massMatrix returns M, the velocity product terms C and the gravity terms
// G of M·q̈ + C + G = τ in relative joint angles.
func (d *DoublePendulum) massMatrix(q, dq []float64) (m [2][2]float64, c, g [2]float64) {
	m1, m2, l1, l2, gr := d.M1, d.M2, d.L1, d.L2, d.Gravity
	c2, s2 := math.Cos(q[1]), math.Sin(q[1])

	m[0][0] = (m1+m2)*l1*l1 + m2*l2*l2 + 2*m2*l1*l2*c2
	m[0][1] = m2*l2*l2 + m2*l1*l2*c2
	m[1][0] = m[0][1]
	m[1][1] = m2 * l2 * l2

	c[0] = -m2 * l1 * l2 * s2 * (2*dq[0]*dq[1] + dq[1]*dq[1])
	c[1] = m2 * l1 * l2 * s2 * dq[0] * dq[0]

	g[0] = (m1+m2)*gr*l1*math.Sin(q[0]) + m2*gr*l2*math.Sin(q[0]+q[1])
	g[1] = m2 * gr * l2 * math.Sin(q[0]+q[1])
	return m, c, g
}

func (d *DoublePendulum) Derivative(x sim.State, u sim.Control) sim.State {
	q, dq := x.Split(2)
	m, c, g := d.massMatrix(q, dq)

	var tau [2]float64
	copy(tau[:], u)
	r0 := tau[0] - c[0] - g[0]
	r1 := tau[1] - c[1] - g[1]

	det := m[0][0]*m[1][1] - m[0][1]*m[1][0]
	a0 := (m[1][1]*r0 - m[0][1]*r1) / det
	a1 := (m[0][0]*r1 - m[1][0]*r0) / det

	return sim.State{dq[0], dq[1], a0, a1}
}

// Energy is the total mechanical energy with the pivot as zero height.
func (d *DoublePendulum) Energy(x sim.State) float64 {
	theta1, theta2 := x[0], x[0]+x[1]
	omega1, omega2 := x[2], x[2]+x[3]
	m1, m2, l1, l2, g := d.M1, d.M2, d.L1, d.L2, d.Gravity

	v1sq := l1 * l1 * omega1 * omega1
	v2sq := l1*l1*omega1*omega1 + l2*l2*omega2*omega2 +
		2*l1*l2*omega1*omega2*math.Cos(theta1-theta2)

	ke := 0.5*m1*v1sq + 0.5*m2*v2sq
	y1 := -l1 * math.Cos(theta1)
	y2 := y1 - l2*math.Cos(theta2)
	pe := m1*g*y1 + m2*g*y2

	return ke + pe
}
