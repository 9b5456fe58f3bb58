package integrators

import (
	"context"
	"slices"

	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// SemiImplicitEuler updates velocities from the current accelerations, lets
// the constraint solver correct them, then moves positions with the new
// velocities. It is the default stepper.
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (e *SemiImplicitEuler) Step(ctx context.Context, skel *dynamics.Skeleton, dt float64, solver sim.ConstraintSolver) error {
	skel.ComputeForwardDynamics()
	skel.IntegrateVelocities(dt)
	if err := holdKinematic(skel); err != nil {
		return err
	}
	if err := sim.ApplyConstraints(ctx, skel, solver); err != nil {
		return err
	}
	skel.IntegratePositions(dt)
	return nil
}

// Euler is the explicit scheme: positions move with the old velocities.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(ctx context.Context, skel *dynamics.Skeleton, dt float64, solver sim.ConstraintSolver) error {
	skel.ComputeForwardDynamics()
	skel.IntegratePositions(dt)
	skel.IntegrateVelocities(dt)
	if err := holdKinematic(skel); err != nil {
		return err
	}
	return sim.ApplyConstraints(ctx, skel, solver)
}

// holdKinematic pins Velocity and Locked joints to their prescribed
// velocities after a velocity update.
func holdKinematic(skel *dynamics.Skeleton) error {
	v := skel.Velocities()
	held := append([]float64(nil), v...)
	if err := skel.PrescribeVelocities(held); err != nil {
		return errors.Wrap(err, "hold kinematic joints")
	}
	if slices.Equal(v, held) {
		return nil
	}
	return errors.Wrap(skel.SetVelocities(held), "hold kinematic joints")
}
