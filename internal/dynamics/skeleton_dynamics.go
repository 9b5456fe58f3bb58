package dynamics

import (
	"github.com/san-kum/multibody/internal/spatial"
)

func (s *Skeleton) selectStrategies() {
	for _, b := range s.bodies {
		b.joint.core().selectStrategy()
	}
}

// ensureKinematics refreshes transforms, velocities, partial accelerations
// and gravity wrenches when a position, velocity, gravity or structure
// change made them stale.
func (s *Skeleton) ensureKinematics() {
	if !s.kinematicsDirty {
		return
	}
	for _, b := range s.bodies {
		b.updateKinematics(s.gravity)
	}
	s.kinematicsDirty = false
}

// updateArticulatedInertia runs the inward articulated inertia pass of one
// tree. Strategies must be selected.
func (s *Skeleton) updateArticulatedInertia(t *tree) {
	dt := s.timeStep
	for i := len(t.bodies) - 1; i >= 0; i-- {
		b := t.bodies[i]
		b.artInertia = b.inertia
		b.artInertiaImpl = b.inertia
		for _, c := range b.child {
			cj := c.joint.core()
			cj.active.addChildArtInertia(&b.artInertia, c.artInertia)
			cj.active.addChildArtInertiaImplicit(&b.artInertiaImpl, c.artInertiaImpl)
		}
		j := b.joint.core()
		if j.n > 0 {
			j.active.updateInvProjArtInertia(b.artInertia)
			j.active.updateInvProjArtInertiaImplicit(b.artInertiaImpl, dt)
		}
	}
}

// ComputeForwardKinematics updates world transforms, spatial velocities
// and spatial accelerations from the joint state.
func (s *Skeleton) ComputeForwardKinematics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginPass()
	defer s.endPass()

	s.ensureKinematics()
	for _, b := range s.bodies {
		b.updateAccelerationID()
	}
}

// ComputeForwardDynamics solves for the accelerations of dynamic joints and
// the forces of kinematic joints with the articulated-body algorithm.
// Joint damping and springs are treated implicitly over one time step.
func (s *Skeleton) ComputeForwardDynamics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginPass()
	defer s.endPass()

	s.ensure(ArticulatedInertiaCache)

	dt := s.timeStep
	for i := len(s.bodies) - 1; i >= 0; i-- {
		s.bodies[i].updateBiasForce(dt)
	}
	for _, b := range s.bodies {
		j := b.joint.core()
		j.active.updateAcceleration(b.artInertiaImpl, b.parentAcceleration())
		b.updateAccelerationID()
		b.force = b.biasForce.Add(b.artInertiaImpl.MulVec(b.acceleration))
		j.active.updateForceFD(b.force, dt)
	}
}

func (b *BodyNode) updateBiasForce(dt float64) {
	v := b.velocity
	b.biasForce = spatial.Dad(v, b.inertia.MulVec(v)).Neg().Sub(b.fext).Sub(b.fgravity)
	for _, c := range b.child {
		c.joint.core().active.addChildBiasForce(&b.biasForce, c.artInertiaImpl, c.biasForce, c.partialAcc)
	}
	b.joint.core().updateTotalForce(b.artInertiaImpl.MulVec(b.partialAcc).Add(b.biasForce), dt)
}

// ComputeInverseDynamics solves for the joint forces that realize the
// current accelerations: τ = Sᵀ·F (+ d·v) (+ k·(q − q0 + v·dt)).
func (s *Skeleton) ComputeInverseDynamics(withExternal, withDamping, withSpring bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginPass()
	defer s.endPass()

	s.ensureKinematics()
	for _, b := range s.bodies {
		b.updateAccelerationID()
	}

	dt := s.timeStep
	for i := len(s.bodies) - 1; i >= 0; i-- {
		b := s.bodies[i]
		v := b.velocity
		f := b.inertia.MulVec(b.acceleration).Sub(b.fgravity).Sub(spatial.Dad(v, b.inertia.MulVec(v)))
		if withExternal {
			f = f.Sub(b.fext)
		}
		for _, c := range b.child {
			f = f.Add(spatial.DAdInvT(c.joint.core().transform(), c.force))
		}
		b.force = f
		b.joint.core().updateForceID(f, dt, withDamping, withSpring)
	}
}

// ComputeImpulseForwardDynamics computes the velocity change every joint
// undergoes from the current constraint impulses. Call
// UpdateConstrainedTerms to fold it into the state.
func (s *Skeleton) ComputeImpulseForwardDynamics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginPass()
	defer s.endPass()

	s.ensure(ArticulatedInertiaCache)

	for i := len(s.bodies) - 1; i >= 0; i-- {
		b := s.bodies[i]
		b.biasImpulse = b.constraintImpulse.Neg()
		for _, c := range b.child {
			c.joint.core().active.addChildBiasImpulse(&b.biasImpulse, c.artInertia, c.biasImpulse)
		}
		b.joint.core().active.updateTotalImpulse(b.biasImpulse)
	}
	for _, b := range s.bodies {
		j := b.joint.core()
		parentDelV := b.parentVelocityChange()
		j.active.updateVelocityChange(b.artInertia, parentDelV)

		var delV spatial.Vec6
		if b.parent != nil {
			delV = spatial.AdInvT(j.transform(), parentDelV)
		}
		b.delV = delV.Add(jacobianTimes(j.jacobian(), j.velocityChanges))
		b.impulseForce = b.biasImpulse.Add(b.artInertia.MulVec(b.delV))
		j.active.updateImpulseFD(b.impulseForce)
	}
}

// UpdateConstrainedTerms applies the last velocity changes: velocities gain
// Δv, accelerations Δv/dt, and forces the impulses spread over dt.
func (s *Skeleton) UpdateConstrainedTerms() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginPass()
	defer s.endPass()

	s.selectStrategies()
	dt := s.timeStep
	for _, b := range s.bodies {
		b.joint.core().active.updateConstrainedTerms(dt)
		b.velocity = b.velocity.Add(b.delV)
		b.acceleration = b.acceleration.Add(b.delV.Scale(1 / dt))
		b.force = b.force.Add(b.impulseForce.Scale(1 / dt))
	}
}

// IntegratePositions advances every joint along its configuration space.
func (s *Skeleton) IntegratePositions(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bodies {
		b.joint.IntegratePositions(dt)
	}
}

// IntegrateVelocities advances every joint velocity by dt·acceleration.
func (s *Skeleton) IntegrateVelocities(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bodies {
		b.joint.IntegrateVelocities(dt)
	}
}
