package analysis

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// Build wires a simulator around a skeleton.
type Build func(skel *dynamics.Skeleton) (*sim.Simulator, error)

// LyapunovExponent estimates the largest Lyapunov exponent of skel from its
// current state. A twin copy starts d0 away along the first DOF; after every
// step the separation in (q, v) is logged and the twin is pulled back to
// distance d0 along the same direction.
func LyapunovExponent(ctx context.Context, skel *dynamics.Skeleton, build Build, d0, dt, duration float64) (float64, error) {
	if d0 <= 0 || dt <= 0 || duration <= 0 {
		return 0, errors.Errorf("perturbation, step and duration must be positive: %g, %g, %g", d0, dt, duration)
	}
	if skel.NumDofs() == 0 {
		return 0, errors.New("skeleton has no dofs")
	}

	ref, err := twin(skel, build, skel.Name()+"_ref", 0)
	if err != nil {
		return 0, err
	}
	pert, err := twin(skel, build, skel.Name()+"_twin", d0)
	if err != nil {
		return 0, err
	}

	n := skel.NumDofs()
	steps := int(math.Round(duration / dt))
	sumLog := 0.0
	for i := 0; i < steps; i++ {
		if _, err := ref.Step(ctx, dt); err != nil {
			return 0, errors.Wrap(err, "reference")
		}
		if _, err := pert.Step(ctx, dt); err != nil {
			return 0, errors.Wrap(err, "twin")
		}

		a, b := sim.Capture(ref.Skeleton()), sim.Capture(pert.Skeleton())
		diff := make(sim.State, len(a))
		for k := range a {
			diff[k] = b[k] - a[k]
		}
		sep := diff.Norm()
		if sep == 0 {
			continue
		}
		sumLog += math.Log(sep / d0)

		scale := d0 / sep
		for k := range b {
			b[k] = a[k] + diff[k]*scale
		}
		q, v := b.Split(n)
		if err := pert.Skeleton().SetConfiguration(dynamics.Configuration{Positions: q, Velocities: v}); err != nil {
			return 0, err
		}
	}
	return sumLog / (float64(steps) * dt), nil
}

func twin(skel *dynamics.Skeleton, build Build, name string, offset float64) (*sim.Simulator, error) {
	c := skel.Clone(name)
	full := skel.Configuration()
	full.Positions[0] += offset
	if err := c.SetConfiguration(dynamics.Configuration{Positions: full.Positions, Velocities: full.Velocities}); err != nil {
		return nil, err
	}
	return build(c)
}
