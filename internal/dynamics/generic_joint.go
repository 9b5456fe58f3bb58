package dynamics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/multibody/internal/configspace"
	"github.com/san-kum/multibody/internal/spatial"
)

// Joint is the type-erased view of a GenericJoint used by the skeleton.
// Only joints built by this package satisfy it.
type Joint interface {
	Name() string
	SetName(name string) string
	Type() string
	NumDofs() int
	ID() JointID
	Properties() JointProperties

	DofName(i int) string
	SetDofName(i int, name string, preserve bool) (string, error)
	Dof(i int) (DegreeOfFreedom, error)
	IndexInSkeleton(i int) int
	IndexInTree(i int) int
	TreeIndex() int

	Position(i int) float64
	Velocity(i int) float64
	Acceleration(i int) float64
	Force(i int) float64
	Command(i int) float64
	Positions() []float64
	Velocities() []float64
	Accelerations() []float64
	Forces() []float64
	Commands() []float64
	SetPosition(i int, v float64) error
	SetPositions(v []float64) error
	SetVelocity(i int, v float64) error
	SetVelocities(v []float64) error
	SetAcceleration(i int, v float64) error
	SetAccelerations(v []float64) error
	SetForce(i int, v float64) error
	SetForces(v []float64) error
	SetCommand(i int, v float64) error
	SetCommands(v []float64) error
	ResetCommands()

	ActuatorMode() ActuatorMode
	SetActuatorMode(m ActuatorMode) error

	PositionLimits(i int) (lower, upper float64)
	VelocityLimits(i int) (lower, upper float64)
	AccelerationLimits(i int) (lower, upper float64)
	ForceLimits(i int) (lower, upper float64)
	SetPositionLimits(i int, lower, upper float64) error
	SetVelocityLimits(i int, lower, upper float64) error
	SetAccelerationLimits(i int, lower, upper float64) error
	SetForceLimits(i int, lower, upper float64) error

	SpringStiffness(i int) float64
	SetSpringStiffness(i int, k float64) error
	RestPosition(i int) float64
	SetRestPosition(i int, q0 float64) error
	Damping(i int) float64
	SetDamping(i int, d float64) error
	Friction(i int) float64
	SetFriction(i int, f float64) error

	InitialPositions() []float64
	InitialVelocities() []float64
	SetInitialPositions(v []float64) error
	SetInitialVelocities(v []float64) error
	ResetPositions()
	ResetVelocities()

	ConstraintImpulse(i int) float64
	ConstraintImpulses() []float64
	SetConstraintImpulse(i int, v float64) error
	SetConstraintImpulses(v []float64) error
	ResetConstraintImpulses()
	VelocityChanges() []float64
	Impulses() []float64
	InvProjArtInertia() *mat.Dense
	InvProjArtInertiaImplicit() *mat.Dense

	ParentToJoint() spatial.Isometry
	ChildToJoint() spatial.Isometry
	SetParentToJoint(t spatial.Isometry) error
	SetChildToJoint(t spatial.Isometry) error
	RelativeTransform() spatial.Isometry
	RelativeJacobian() []spatial.Vec6
	RelativeJacobianDeriv() []spatial.Vec6

	PotentialEnergy() float64
	PositionDifferences(q2, q1 []float64) ([]float64, error)
	IntegratePositions(dt float64)
	IntegrateVelocities(dt float64)

	core() *jointCore
	cloneJoint() Joint
}

// GenericJoint is a joint whose configuration lives on the space S with
// points of type P. Positions are stored in tangent coordinates of S.
type GenericJoint[P any, S configspace.Space[P]] struct {
	jointCore
	space S
}

// Aliases for the three configuration spaces.
type (
	FlatJoint     = GenericJoint[configspace.Vector, configspace.Flat]
	RotationJoint = GenericJoint[mgl64.Mat3, configspace.Rotation]
	RigidJoint    = GenericJoint[spatial.Isometry, configspace.RigidTransform]
)

func newGenericJoint[P any, S configspace.Space[P]](space S, kin kinematics, props JointProperties) (*GenericJoint[P, S], error) {
	core, err := newJointCore(kin, space.Dim(), props)
	if err != nil {
		return nil, err
	}
	return &GenericJoint[P, S]{jointCore: core, space: space}, nil
}

func (j *GenericJoint[P, S]) Space() S { return j.space }

// ManifoldPositions returns the positions as a point of the space.
func (j *GenericJoint[P, S]) ManifoldPositions() P {
	return j.space.ToManifold(j.positions)
}

// SetManifoldPositions sets positions from a point of the space.
func (j *GenericJoint[P, S]) SetManifoldPositions(p P) error {
	return j.SetPositions(j.space.ToTangent(p))
}

// IntegratePositions moves along the manifold: q ← log(exp(q) ⊕ v·dt).
func (j *GenericJoint[P, S]) IntegratePositions(dt float64) {
	if j.n == 0 {
		return
	}
	p := j.space.IntegratePosition(j.space.ToManifold(j.positions), j.velocities, dt)
	copy(j.positions, j.space.ToTangent(p))
	j.positionsChanged()
}

// cloneJoint copies the static description; the clone starts at the
// initial configuration and is unattached.
func (j *GenericJoint[P, S]) cloneJoint() Joint {
	c := &GenericJoint[P, S]{jointCore: j.jointCore.cloneCore(), space: j.space}
	return c
}

func (j *jointCore) cloneCore() jointCore {
	props := j.props.clone()
	c, err := newJointCore(j.kin, j.n, props)
	if err != nil {
		panic(errors.Wrap(err, "cloning a validated joint"))
	}
	return c
}

// NewWeldJoint rigidly attaches the child body.
func NewWeldJoint(props JointProperties) (*FlatJoint, error) {
	return newGenericJoint[configspace.Vector](configspace.Flat{N: 0}, weldKinematics{}, props)
}

// NewRevoluteJoint rotates about axis (joint frame).
func NewRevoluteJoint(props JointProperties, axis mgl64.Vec3) (*FlatJoint, error) {
	a, err := unitAxis(axis)
	if err != nil {
		return nil, err
	}
	return newGenericJoint[configspace.Vector](configspace.Flat{N: 1}, revoluteKinematics{axis: a}, props)
}

// NewPrismaticJoint slides along axis (joint frame).
func NewPrismaticJoint(props JointProperties, axis mgl64.Vec3) (*FlatJoint, error) {
	a, err := unitAxis(axis)
	if err != nil {
		return nil, err
	}
	return newGenericJoint[configspace.Vector](configspace.Flat{N: 1}, prismaticKinematics{axis: a}, props)
}

// NewScrewJoint rotates about axis while advancing pitch meters per radian.
func NewScrewJoint(props JointProperties, axis mgl64.Vec3, pitch float64) (*FlatJoint, error) {
	a, err := unitAxis(axis)
	if err != nil {
		return nil, err
	}
	return newGenericJoint[configspace.Vector](configspace.Flat{N: 1}, screwKinematics{axis: a, pitch: pitch}, props)
}

// NewUniversalJoint rotates about axis1 and then about axis2.
func NewUniversalJoint(props JointProperties, axis1, axis2 mgl64.Vec3) (*FlatJoint, error) {
	a1, err := unitAxis(axis1)
	if err != nil {
		return nil, err
	}
	a2, err := unitAxis(axis2)
	if err != nil {
		return nil, err
	}
	return newGenericJoint[configspace.Vector](configspace.Flat{N: 2}, universalKinematics{axis1: a1, axis2: a2}, props)
}

func NewTranslationalJoint(props JointProperties) (*FlatJoint, error) {
	return newGenericJoint[configspace.Vector](configspace.Flat{N: 3}, translationalKinematics{}, props)
}

// NewBallJoint rotates freely; its velocities are the body-frame angular
// velocity.
func NewBallJoint(props JointProperties) (*RotationJoint, error) {
	return newGenericJoint[mgl64.Mat3](configspace.Rotation{}, ballKinematics{}, props)
}

// NewFreeJoint moves freely; its velocities are the body-frame twist.
func NewFreeJoint(props JointProperties) (*RigidJoint, error) {
	return newGenericJoint[spatial.Isometry](configspace.RigidTransform{}, freeKinematics{}, props)
}

func unitAxis(axis mgl64.Vec3) (mgl64.Vec3, error) {
	l := axis.Len()
	if l < 1e-12 {
		return mgl64.Vec3{}, errors.Wrapf(ErrInvalidProperty, "zero joint axis %v", axis)
	}
	return axis.Mul(1 / l), nil
}
