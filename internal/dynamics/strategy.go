package dynamics

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/multibody/internal/spatial"
)

// strategy carries the mode-dependent half of each recursion hook.
type strategy interface {
	addChildArtInertia(parentAI *spatial.Mat6, childAI spatial.Mat6)
	addChildArtInertiaImplicit(parentAI *spatial.Mat6, childAI spatial.Mat6)
	updateInvProjArtInertia(ai spatial.Mat6)
	updateInvProjArtInertiaImplicit(ai spatial.Mat6, dt float64)
	addChildBiasForce(parentBias *spatial.Vec6, childAI spatial.Mat6, childBias, childPartialAcc spatial.Vec6)
	addChildBiasImpulse(parentBias *spatial.Vec6, childAI spatial.Mat6, childBiasImpulse spatial.Vec6)
	updateTotalForce(bodyForce spatial.Vec6, dt float64)
	updateTotalImpulse(bodyImpulse spatial.Vec6)
	updateAcceleration(ai spatial.Mat6, parentAcc spatial.Vec6)
	updateVelocityChange(ai spatial.Mat6, parentDelV spatial.Vec6)
	updateForceFD(bodyForce spatial.Vec6, dt float64)
	updateImpulseFD(bodyImpulse spatial.Vec6)
	updateConstrainedTerms(dt float64)
}

// selectStrategy fixes the strategy for the coming pass. Zero-DOF joints
// have nothing to solve and always transmit rigidly.
func (j *jointCore) selectStrategy() {
	if j.n == 0 {
		j.active = applyKinematic{j}
		return
	}
	switch j.props.ActuatorMode {
	case Force, Passive, Servo:
		j.active = solveDynamic{j}
	case Acceleration, Velocity, Locked:
		j.active = applyKinematic{j}
	default:
		panic(errors.Wrapf(ErrUnsupportedActuatorMode, "joint %q mode %d", j.props.Name, int(j.props.ActuatorMode)))
	}
}

// updateTotalForce applies the actuator mode to the joint state, then
// forms the generalized force the recursion back-substitutes.
func (j *jointCore) updateTotalForce(bodyForce spatial.Vec6, dt float64) {
	switch j.props.ActuatorMode {
	case Force:
		copy(j.forces, j.commands)
	case Passive, Servo:
		zero(j.forces)
	case Acceleration:
		copy(j.accelerations, j.commands)
	case Velocity:
		for i := range j.accelerations {
			j.accelerations[i] = (j.commands[i] - j.velocities[i]) / dt
		}
	case Locked:
		moving := false
		for _, v := range j.velocities {
			moving = moving || v != 0
		}
		zero(j.velocities)
		zero(j.accelerations)
		if moving {
			j.velocitiesChanged()
		}
	default:
		panic(errors.Wrapf(ErrUnsupportedActuatorMode, "joint %q mode %d", j.props.Name, int(j.props.ActuatorMode)))
	}
	j.active.updateTotalForce(bodyForce, dt)
}

// updateForceID recovers the generalized force from the transmitted body
// wrench: τ = Sᵀ·F + d·v + k·(q − q0 + v·dt).
func (j *jointCore) updateForceID(bodyForce spatial.Vec6, dt float64, withDamping, withSpring bool) {
	f := jacobianTranspose(j.jacobian(), bodyForce)
	for i := range f {
		if withDamping {
			f[i] += j.props.Damping[i] * j.velocities[i]
		}
		if withSpring {
			f[i] += j.props.SpringStiffness[i] *
				(j.positions[i] - j.props.RestPositions[i] + j.velocities[i]*dt)
		}
	}
	copy(j.forces, f)
	j.mustBeFinite("forces", j.forces)
}

func (j *jointCore) implicitDiagonal(dt float64) []float64 {
	diag := make([]float64, j.n)
	for i := range diag {
		diag[i] = dt*j.props.Damping[i] + dt*dt*j.props.SpringStiffness[i]
	}
	return diag
}

// solveDynamic solves for accelerations given forces.
type solveDynamic struct {
	j *jointCore
}

func (s solveDynamic) addChildArtInertia(parentAI *spatial.Mat6, childAI spatial.Mat6) {
	pi := projectedRemainder(s.j.jacobian(), childAI, s.j.invProjAI)
	*parentAI = parentAI.Add(spatial.TransformInertia(s.j.transform().Inverse(), pi))
}

func (s solveDynamic) addChildArtInertiaImplicit(parentAI *spatial.Mat6, childAI spatial.Mat6) {
	pi := projectedRemainder(s.j.jacobian(), childAI, s.j.invProjAIImpl)
	*parentAI = parentAI.Add(spatial.TransformInertia(s.j.transform().Inverse(), pi))
}

func (s solveDynamic) updateInvProjArtInertia(ai spatial.Mat6) {
	s.j.invProjAI = invertProjected(s.j, projectInertia(s.j.jacobian(), ai, nil))
}

func (s solveDynamic) updateInvProjArtInertiaImplicit(ai spatial.Mat6, dt float64) {
	proj := projectInertia(s.j.jacobian(), ai, s.j.implicitDiagonal(dt))
	s.j.invProjAIImpl = invertProjected(s.j, proj)
}

func (s solveDynamic) addChildBiasForce(parentBias *spatial.Vec6, childAI spatial.Mat6, childBias, childPartialAcc spatial.Vec6) {
	ddq := matVec(s.j.invProjAIImpl, s.j.totalForce)
	acc := childPartialAcc.Add(jacobianTimes(s.j.jacobian(), ddq))
	beta := childBias.Add(childAI.MulVec(acc))
	*parentBias = parentBias.Add(spatial.DAdInvT(s.j.transform(), beta))
}

func (s solveDynamic) addChildBiasImpulse(parentBias *spatial.Vec6, childAI spatial.Mat6, childBiasImpulse spatial.Vec6) {
	dv := matVec(s.j.invProjAI, s.j.totalImpulse)
	beta := childBiasImpulse.Add(childAI.MulVec(jacobianTimes(s.j.jacobian(), dv)))
	*parentBias = parentBias.Add(spatial.DAdInvT(s.j.transform(), beta))
}

// updateTotalForce forms forces − k·(q − q0 + v·dt) − d·v − Sᵀ·F.
func (s solveDynamic) updateTotalForce(bodyForce spatial.Vec6, dt float64) {
	j := s.j
	stf := jacobianTranspose(j.jacobian(), bodyForce)
	for i := range j.totalForce {
		spring := -j.props.SpringStiffness[i] * (j.positions[i] - j.props.RestPositions[i] + j.velocities[i]*dt)
		damping := -j.props.Damping[i] * j.velocities[i]
		j.totalForce[i] = j.forces[i] + spring + damping - stf[i]
	}
	j.mustBeFinite("total force", j.totalForce)
}

func (s solveDynamic) updateTotalImpulse(bodyImpulse spatial.Vec6) {
	copy(s.j.totalImpulse, sub(s.j.constraintImpulses, jacobianTranspose(s.j.jacobian(), bodyImpulse)))
}

func (s solveDynamic) updateAcceleration(ai spatial.Mat6, parentAcc spatial.Vec6) {
	j := s.j
	rhs := sub(j.totalForce, jacobianTranspose(j.jacobian(), ai.MulVec(spatial.AdInvT(j.transform(), parentAcc))))
	copy(j.accelerations, matVec(j.invProjAIImpl, rhs))
	j.mustBeFinite("accelerations", j.accelerations)
}

func (s solveDynamic) updateVelocityChange(ai spatial.Mat6, parentDelV spatial.Vec6) {
	j := s.j
	rhs := sub(j.totalImpulse, jacobianTranspose(j.jacobian(), ai.MulVec(spatial.AdInvT(j.transform(), parentDelV))))
	copy(j.velocityChanges, matVec(j.invProjAI, rhs))
	j.mustBeFinite("velocity changes", j.velocityChanges)
}

func (solveDynamic) updateForceFD(spatial.Vec6, float64) {}

func (solveDynamic) updateImpulseFD(spatial.Vec6) {}

// updateConstrainedTerms folds the velocity change into the state. The
// constraint impulse, spread over the step, is added to the joint force.
func (s solveDynamic) updateConstrainedTerms(dt float64) {
	j := s.j
	for i := range j.velocities {
		j.velocities[i] += j.velocityChanges[i]
		j.accelerations[i] += j.velocityChanges[i] / dt
		j.forces[i] += j.constraintImpulses[i] / dt
	}
	j.mustBeFinite("forces", j.forces)
	j.velocitiesChanged()
}

// applyKinematic prescribes accelerations and recovers forces.
type applyKinematic struct {
	j *jointCore
}

func (k applyKinematic) addChildArtInertia(parentAI *spatial.Mat6, childAI spatial.Mat6) {
	*parentAI = parentAI.Add(spatial.TransformInertia(k.j.transform().Inverse(), childAI))
}

func (k applyKinematic) addChildArtInertiaImplicit(parentAI *spatial.Mat6, childAI spatial.Mat6) {
	k.addChildArtInertia(parentAI, childAI)
}

func (k applyKinematic) updateInvProjArtInertia(spatial.Mat6) {
	if k.j.n > 0 {
		k.j.invProjAI = mat.NewDense(k.j.n, k.j.n, nil)
	}
}

func (k applyKinematic) updateInvProjArtInertiaImplicit(spatial.Mat6, float64) {
	if k.j.n > 0 {
		k.j.invProjAIImpl = mat.NewDense(k.j.n, k.j.n, nil)
	}
}

func (k applyKinematic) addChildBiasForce(parentBias *spatial.Vec6, childAI spatial.Mat6, childBias, childPartialAcc spatial.Vec6) {
	acc := childPartialAcc.Add(jacobianTimes(k.j.jacobian(), k.j.accelerations))
	beta := childBias.Add(childAI.MulVec(acc))
	*parentBias = parentBias.Add(spatial.DAdInvT(k.j.transform(), beta))
}

func (k applyKinematic) addChildBiasImpulse(parentBias *spatial.Vec6, _ spatial.Mat6, childBiasImpulse spatial.Vec6) {
	*parentBias = parentBias.Add(spatial.DAdInvT(k.j.transform(), childBiasImpulse))
}

func (applyKinematic) updateTotalForce(spatial.Vec6, float64) {}

func (applyKinematic) updateTotalImpulse(spatial.Vec6) {}

func (applyKinematic) updateAcceleration(spatial.Mat6, spatial.Vec6) {}

func (k applyKinematic) updateVelocityChange(spatial.Mat6, spatial.Vec6) {
	zero(k.j.velocityChanges)
}

func (k applyKinematic) updateForceFD(bodyForce spatial.Vec6, dt float64) {
	k.j.updateForceID(bodyForce, dt, true, true)
}

func (k applyKinematic) updateImpulseFD(bodyImpulse spatial.Vec6) {
	copy(k.j.impulses, jacobianTranspose(k.j.jacobian(), bodyImpulse))
}

func (k applyKinematic) updateConstrainedTerms(dt float64) {
	j := k.j
	for i := range j.forces {
		j.forces[i] += j.impulses[i] / dt
	}
	j.mustBeFinite("forces", j.forces)
}
