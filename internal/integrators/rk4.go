package integrators

import (
	"context"

	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// RK4 is the classic fourth-order scheme. Stage positions are reached by
// integrating from the step's start along each joint's configuration
// space, so ball and free joints stay on their manifolds. Stage velocities
// of Velocity and Locked joints are held at their prescribed values.
type RK4 struct {
	a       [4][]float64
	w       [4][]float64
	scratch []float64
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.scratch) != n {
		for s := range r.a {
			r.a[s] = make([]float64, n)
			r.w[s] = make([]float64, n)
		}
		r.scratch = make([]float64, n)
	}
}

func (r *RK4) Step(ctx context.Context, skel *dynamics.Skeleton, dt float64, solver sim.ConstraintSolver) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q0, v0 := skel.Positions(), skel.Velocities()
	n := len(v0)
	r.ensureScratch(n)

	h := [4]float64{0, dt / 2, dt / 2, dt}
	copy(r.w[0], v0)
	for s := 0; s < 4; s++ {
		if s > 0 {
			for i := 0; i < n; i++ {
				r.w[s][i] = v0[i] + h[s]*r.a[s-1][i]
			}
		}
		if err := skel.PrescribeVelocities(r.w[s]); err != nil {
			return errors.Wrapf(err, "rk4 stage %d", s+1)
		}
		if s > 0 {
			if err := r.move(skel, q0, r.w[s-1], h[s]); err != nil {
				return err
			}
		}
		if err := skel.SetVelocities(r.w[s]); err != nil {
			return errors.Wrapf(err, "rk4 stage %d", s+1)
		}
		skel.ComputeForwardDynamics()
		copy(r.a[s], skel.Accelerations())
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = (r.w[0][i] + 2*r.w[1][i] + 2*r.w[2][i] + r.w[3][i]) / 6
	}
	if err := r.move(skel, q0, r.scratch, dt); err != nil {
		return err
	}
	v1 := make([]float64, n)
	for i := 0; i < n; i++ {
		r.scratch[i] = (r.a[0][i] + 2*r.a[1][i] + 2*r.a[2][i] + r.a[3][i]) / 6
		v1[i] = v0[i] + dt*r.scratch[i]
	}
	if err := skel.PrescribeVelocities(v1); err != nil {
		return errors.Wrap(err, "rk4 update")
	}
	if err := skel.SetVelocities(v1); err != nil {
		return errors.Wrap(err, "rk4 update")
	}
	if err := skel.SetAccelerations(r.scratch); err != nil {
		return errors.Wrap(err, "rk4 update")
	}
	return sim.ApplyConstraints(ctx, skel, solver)
}

// move sets the skeleton to q0 advanced by h along velocity w.
func (r *RK4) move(skel *dynamics.Skeleton, q0, w []float64, h float64) error {
	if err := skel.SetPositions(q0); err != nil {
		return errors.Wrap(err, "rk4 restore")
	}
	if err := skel.SetVelocities(w); err != nil {
		return errors.Wrap(err, "rk4 restore")
	}
	skel.IntegratePositions(h)
	return nil
}
