package sim

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/logging"
)

// ApplyConstraints runs solver and folds the impulses it wrote into the
// skeleton: velocities, accelerations and forces all pick up the change.
// The impulses are cleared afterwards. A nil solver is a no-op.
func ApplyConstraints(ctx context.Context, skel *dynamics.Skeleton, solver ConstraintSolver) error {
	if solver == nil {
		return nil
	}
	if err := solver.Solve(ctx, skel); err != nil {
		return errors.Wrap(err, "constraint solver")
	}
	skel.ComputeImpulseForwardDynamics()
	skel.UpdateConstrainedTerms()
	skel.ClearConstraintImpulses()
	return nil
}

// JointLimits stops DOFs that sit on or past a position limit from moving
// further out. Each violating DOF gets the impulse that would cancel its
// outward velocity (scaled by 1+Restitution) through the diagonal of M⁻¹.
// DOFs are treated one at a time, so coupled violations resolve
// approximately.
type JointLimits struct {
	Restitution float64
	logger      *zap.SugaredLogger
}

func NewJointLimits(restitution float64, logger *zap.SugaredLogger) *JointLimits {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &JointLimits{Restitution: restitution, logger: logger}
}

func (l *JointLimits) Solve(ctx context.Context, skel *dynamics.Skeleton) error {
	dofs := skel.Dofs()
	if len(dofs) == 0 {
		return nil
	}
	var invM *mat.Dense
	for i, d := range dofs {
		if err := ctx.Err(); err != nil {
			return err
		}
		j, err := skel.DofJoint(d)
		if err != nil {
			return err
		}
		lo, hi := j.PositionLimits(d.Local)
		q, v := j.Position(d.Local), j.Velocity(d.Local)

		outward := (q <= lo && v < 0) || (q >= hi && v > 0)
		if !outward {
			continue
		}
		if invM == nil {
			invM = skel.InvMassMatrix()
		}
		m := invM.At(i, i)
		if m <= 0 {
			l.logger.Warnw("skipping limit on DOF without mobility", "dof", j.DofName(d.Local))
			continue
		}
		impulse := -(1 + l.Restitution) * v / m
		if err := skel.SetConstraintImpulse(d, impulse); err != nil {
			return err
		}
		l.logger.Debugw("joint limit hit", "dof", j.DofName(d.Local), "q", q, "v", v, "impulse", impulse)
	}
	return nil
}
