package dynamics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/spatial"
)

// BodyNode is a rigid body of a skeleton together with the recursion
// quantities the articulated-body passes leave behind. All spatial vectors
// are expressed in the body frame.
type BodyNode struct {
	id     BodyID
	props  BodyNodeProperties
	skel   *Skeleton
	joint  Joint
	parent *BodyNode
	child  []*BodyNode

	treeIndex       int
	indexInTree     int
	indexInSkeleton int

	inertia        spatial.Mat6
	worldTransform spatial.Isometry
	velocity       spatial.Vec6
	partialAcc     spatial.Vec6
	acceleration   spatial.Vec6
	force          spatial.Vec6
	fext           spatial.Vec6
	fgravity       spatial.Vec6

	artInertia     spatial.Mat6
	artInertiaImpl spatial.Mat6
	biasForce      spatial.Vec6

	constraintImpulse spatial.Vec6
	biasImpulse       spatial.Vec6
	delV              spatial.Vec6
	impulseForce      spatial.Vec6

	// scratch for aggregate sweeps
	sweepAcc   spatial.Vec6
	sweepForce spatial.Vec6

	invMassAI spatial.Mat6
}

func newBodyNode(props BodyNodeProperties) *BodyNode {
	return &BodyNode{
		props:          props,
		inertia:        props.spatialInertia(),
		worldTransform: spatial.Identity(),
	}
}

func (b *BodyNode) ID() BodyID          { return b.id }
func (b *BodyNode) Name() string        { return b.props.Name }
func (b *BodyNode) Skeleton() *Skeleton { return b.skel }

// ParentJoint is the joint connecting the body to its parent, or to the
// world for a root body.
func (b *BodyNode) ParentJoint() Joint { return b.joint }

// Parent returns nil for a root body.
func (b *BodyNode) Parent() *BodyNode { return b.parent }

func (b *BodyNode) Children() []*BodyNode {
	return append([]*BodyNode(nil), b.child...)
}

func (b *BodyNode) TreeIndex() int       { return b.treeIndex }
func (b *BodyNode) IndexInTree() int     { return b.indexInTree }
func (b *BodyNode) IndexInSkeleton() int { return b.indexInSkeleton }

func (b *BodyNode) Properties() BodyNodeProperties { return b.props }

// SetName renames the body and returns the unique name issued.
func (b *BodyNode) SetName(name string) string {
	if b.skel != nil {
		name = b.skel.issueBodyName(b, name)
	}
	b.props.Name = name
	return name
}

func (b *BodyNode) Mass() float64 { return b.props.Mass }

func (b *BodyNode) SetMass(m float64) error {
	p := b.props
	p.Mass = m
	return b.setInertial(p)
}

func (b *BodyNode) LocalCOM() mgl64.Vec3 { return b.props.LocalCOM }

func (b *BodyNode) SetLocalCOM(c mgl64.Vec3) error {
	p := b.props
	p.LocalCOM = c
	return b.setInertial(p)
}

// SetInertia sets the rotational inertia about the center of mass.
func (b *BodyNode) SetInertia(i mgl64.Mat3) error {
	p := b.props
	p.Inertia = i
	return b.setInertial(p)
}

func (b *BodyNode) setInertial(p BodyNodeProperties) error {
	if err := p.validate(); err != nil {
		return errors.Wrapf(err, "body %q", b.props.Name)
	}
	b.props = p
	b.inertia = p.spatialInertia()
	b.notify(changeStructure)
	return nil
}

func (b *BodyNode) GravityMode() bool { return b.props.GravityMode }

func (b *BodyNode) SetGravityMode(on bool) {
	if b.props.GravityMode == on {
		return
	}
	b.props.GravityMode = on
	b.notify(changeGravity)
}

// SpatialInertia is the body-frame spatial inertia G.
func (b *BodyNode) SpatialInertia() spatial.Mat6 { return b.inertia }

// WorldTransform is the pose of the body frame in the world.
func (b *BodyNode) WorldTransform() spatial.Isometry {
	b.refresh()
	return b.worldTransform
}

func (b *BodyNode) SpatialVelocity() spatial.Vec6 {
	b.refresh()
	return b.velocity
}

// SpatialAcceleration is the body acceleration of the last dynamics or
// forward kinematics pass.
func (b *BodyNode) SpatialAcceleration() spatial.Vec6 { return b.acceleration }

// PartialAcceleration is ad(V, S·dq) + dS·dq from the last kinematics update.
func (b *BodyNode) PartialAcceleration() spatial.Vec6 { return b.partialAcc }

// BodyForce is the wrench transmitted through the parent joint.
func (b *BodyNode) BodyForce() spatial.Vec6 { return b.force }

func (b *BodyNode) GravityForce() spatial.Vec6 { return b.fgravity }

// COM returns the center of mass in world coordinates.
func (b *BodyNode) COM() mgl64.Vec3 {
	b.refresh()
	return b.worldTransform.Apply(b.props.LocalCOM)
}

// COMLinearVelocity returns the world-frame velocity of the center of mass.
func (b *BodyNode) COMLinearVelocity() mgl64.Vec3 {
	b.refresh()
	w, v := b.velocity.Angular(), b.velocity.Linear()
	return b.worldTransform.R.Mul3x1(v.Add(w.Cross(b.props.LocalCOM)))
}

// KineticEnergy is ½·Vᵀ·G·V.
func (b *BodyNode) KineticEnergy() float64 {
	b.refresh()
	return 0.5 * b.velocity.Dot(b.inertia.MulVec(b.velocity))
}

// PotentialEnergy is the gravitational energy −m·g·c.
func (b *BodyNode) PotentialEnergy(gravity mgl64.Vec3) float64 {
	if !b.props.GravityMode {
		return 0
	}
	return -b.props.Mass * gravity.Dot(b.COM())
}

func (b *BodyNode) ExternalForce() spatial.Vec6 { return b.fext }

// SetExternalForce replaces the body-frame external wrench.
func (b *BodyNode) SetExternalForce(f spatial.Vec6) error {
	if !f.IsFinite() {
		return errors.Wrapf(ErrNonFinite, "body %q external force", b.props.Name)
	}
	b.fext = f
	b.notify(changeExternal)
	return nil
}

// AddExternalForce applies force at offset (body frame). When inWorld is
// set, the force direction is given in world coordinates.
func (b *BodyNode) AddExternalForce(force, offset mgl64.Vec3, inWorld bool) error {
	if inWorld {
		b.refresh()
		force = b.worldTransform.R.Transpose().Mul3x1(force)
	}
	w := spatial.NewVec6(offset.Cross(force), force)
	if !w.IsFinite() {
		return errors.Wrapf(ErrNonFinite, "body %q external force", b.props.Name)
	}
	b.fext = b.fext.Add(w)
	b.notify(changeExternal)
	return nil
}

func (b *BodyNode) ClearExternalForce() {
	b.fext = spatial.Vec6{}
	b.notify(changeExternal)
}

func (b *BodyNode) ConstraintImpulse() spatial.Vec6 { return b.constraintImpulse }

func (b *BodyNode) SetConstraintImpulse(imp spatial.Vec6) error {
	if !imp.IsFinite() {
		return errors.Wrapf(ErrNonFinite, "body %q constraint impulse", b.props.Name)
	}
	b.constraintImpulse = imp
	b.notify(changeConstraint)
	return nil
}

// AddConstraintImpulse accumulates a body-frame impulse from a constraint
// solver.
func (b *BodyNode) AddConstraintImpulse(imp spatial.Vec6) error {
	if !imp.IsFinite() {
		return errors.Wrapf(ErrNonFinite, "body %q constraint impulse", b.props.Name)
	}
	b.constraintImpulse = b.constraintImpulse.Add(imp)
	b.notify(changeConstraint)
	return nil
}

func (b *BodyNode) ClearConstraintImpulse() {
	b.constraintImpulse = spatial.Vec6{}
	b.notify(changeConstraint)
}

// VelocityChange is ΔV from the last impulse forward dynamics.
func (b *BodyNode) VelocityChange() spatial.Vec6 { return b.delV }

// refresh brings the world transform and velocity up to date.
func (b *BodyNode) refresh() {
	if b.skel != nil {
		b.skel.ensureKinematics()
	}
}

func (b *BodyNode) notify(c change) {
	if b.skel != nil {
		b.skel.treeChanged(b.treeIndex, c)
	}
}

// updateKinematics refreshes the world transform, velocity, partial
// acceleration and gravity wrench from the parent's values.
func (b *BodyNode) updateKinematics(gravity mgl64.Vec3) {
	j := b.joint.core()
	t := j.transform()
	s := j.jacobian()

	var parentV spatial.Vec6
	if b.parent != nil {
		b.worldTransform = b.parent.worldTransform.Mul(t)
		parentV = spatial.AdInvT(t, b.parent.velocity)
	} else {
		b.worldTransform = t
	}

	sdq := jacobianTimes(s, j.velocities)
	b.velocity = parentV.Add(sdq)
	b.partialAcc = spatial.Ad(b.velocity, sdq).Add(jacobianTimes(j.jacobianDeriv(), j.velocities))

	if b.props.GravityMode {
		b.fgravity = b.inertia.MulVec(spatial.AdInvRLinear(b.worldTransform, gravity))
	} else {
		b.fgravity = spatial.Vec6{}
	}
}

// updateAccelerationID propagates the joint accelerations outward.
func (b *BodyNode) updateAccelerationID() {
	j := b.joint.core()
	var parentAcc spatial.Vec6
	if b.parent != nil {
		parentAcc = spatial.AdInvT(j.transform(), b.parent.acceleration)
	}
	b.acceleration = parentAcc.Add(b.partialAcc).Add(jacobianTimes(j.jacobian(), j.accelerations))
}

func (b *BodyNode) parentAcceleration() spatial.Vec6 {
	if b.parent == nil {
		return spatial.Vec6{}
	}
	return b.parent.acceleration
}

func (b *BodyNode) parentVelocityChange() spatial.Vec6 {
	if b.parent == nil {
		return spatial.Vec6{}
	}
	return b.parent.delV
}
