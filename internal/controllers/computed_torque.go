package controllers

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// ComputedTorque cancels the skeleton's own dynamics so every DOF follows
// ë + Kd·ė + Kp·e = 0:
//
//	τ = M(q)·(Kp·(q* − q) − Kd·q̇) + C(q, q̇) + g(q)
//
// Joint springs and damping are not compensated.
type ComputedTorque struct {
	Kp     float64
	Kd     float64
	Target []float64
}

func NewComputedTorque(kp, kd float64, target []float64) *ComputedTorque {
	return &ComputedTorque{Kp: kp, Kd: kd, Target: target}
}

func (c *ComputedTorque) Compute(skel *dynamics.Skeleton, t float64) sim.Control {
	q, v := skel.Positions(), skel.Velocities()
	n := len(q)
	if n == 0 {
		return nil
	}

	desired := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		target := 0.0
		if i < len(c.Target) {
			target = c.Target[i]
		}
		desired.SetVec(i, c.Kp*(target-q[i])-c.Kd*v[i])
	}

	var tau mat.VecDense
	tau.MulVec(skel.MassMatrix(), desired)
	tau.AddVec(&tau, mat.NewVecDense(n, skel.CoriolisAndGravityForces()))
	return sim.Control(tau.RawVector().Data)
}
