package integrators

import (
	"context"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// Verlet is velocity Verlet in kick-drift-kick form. The second
// acceleration is evaluated at the half-step velocity. Velocity and Locked
// joints are held at their prescribed velocities after each kick.
type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(ctx context.Context, skel *dynamics.Skeleton, dt float64, solver sim.ConstraintSolver) error {
	half := dt / 2
	skel.ComputeForwardDynamics()
	skel.IntegrateVelocities(half)
	if err := holdKinematic(skel); err != nil {
		return err
	}
	skel.IntegratePositions(dt)
	skel.ComputeForwardDynamics()
	skel.IntegrateVelocities(half)
	if err := holdKinematic(skel); err != nil {
		return err
	}
	return sim.ApplyConstraints(ctx, skel, solver)
}
