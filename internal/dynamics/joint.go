package dynamics

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/multibody/internal/configspace"
	"github.com/san-kum/multibody/internal/logging"
	"github.com/san-kum/multibody/internal/spatial"
)

// rigidityTolerance bounds |RᵀR − I| and |det R − 1| for joint frames.
const rigidityTolerance = 1e-6

// jointOwner receives change notifications from an attached joint. Its
// methods never take the skeleton lock.
type jointOwner interface {
	jointChanged(j *jointCore, c change)
	passActive() bool
	issueDofName(j *jointCore, local int, name string) string
	issueJointName(j *jointCore, name string) string
}

// jointCore is the state and recursion machinery shared by every joint
// type. Per-DOF slices all have length n.
type jointCore struct {
	kin    kinematics
	n      int
	props  JointProperties
	id     JointID
	owner  jointOwner
	logger *zap.SugaredLogger

	positions     []float64
	velocities    []float64
	accelerations []float64
	forces        []float64
	commands      []float64

	velocityChanges    []float64
	impulses           []float64
	constraintImpulses []float64

	treeIndex       int
	indexInTree     []int
	indexInSkeleton []int

	transformDirty     bool
	jacobianDirty      bool
	jacobianDerivDirty bool
	relTransform       spatial.Isometry
	relJacobian        []spatial.Vec6
	relJacobianDeriv   []spatial.Vec6

	active        strategy
	invProjAI     *mat.Dense
	invProjAIImpl *mat.Dense
	totalForce    []float64
	totalImpulse  []float64

	invMassProj  *mat.Dense
	invMassForce []float64
}

func newJointCore(kin kinematics, n int, props JointProperties) (jointCore, error) {
	norm, err := props.normalized(n)
	if err != nil {
		return jointCore{}, errors.Wrapf(err, "%s joint %q", kin.name(), props.Name)
	}
	if norm.Name == "" {
		norm.Name = kin.name() + "_joint"
	}

	j := jointCore{
		kin:                kin,
		n:                  n,
		props:              norm,
		logger:             logging.NewNop(),
		positions:          append([]float64(nil), norm.InitialPositions...),
		velocities:         append([]float64(nil), norm.InitialVelocities...),
		accelerations:      make([]float64, n),
		forces:             make([]float64, n),
		commands:           make([]float64, n),
		velocityChanges:    make([]float64, n),
		impulses:           make([]float64, n),
		constraintImpulses: make([]float64, n),
		indexInTree:        make([]int, n),
		indexInSkeleton:    make([]int, n),
		transformDirty:     true,
		jacobianDirty:      true,
		jacobianDerivDirty: true,
		totalForce:         make([]float64, n),
		totalImpulse:       make([]float64, n),
		invMassForce:       make([]float64, n),
	}
	j.checkRigid("parent", norm.ParentToJoint)
	j.checkRigid("child", norm.ChildToJoint)
	return j, nil
}

func (j *jointCore) core() *jointCore { return j }

func (j *jointCore) Name() string { return j.props.Name }

// Type names the joint kind, e.g. "revolute".
func (j *jointCore) Type() string { return j.kin.name() }

func (j *jointCore) NumDofs() int { return j.n }

// ID is the zero handle until the joint is attached to a skeleton.
func (j *jointCore) ID() JointID { return j.id }

// Properties returns a copy of the static description, with the current
// actuator mode, limits, springs and names.
func (j *jointCore) Properties() JointProperties { return j.props.clone() }

// SetName renames the joint and returns the name actually issued, which
// differs from name when another joint of the skeleton already uses it.
func (j *jointCore) SetName(name string) string {
	if j.owner != nil {
		name = j.owner.issueJointName(j, name)
	}
	j.props.Name = name
	for i := 0; i < j.n; i++ {
		if !j.props.PreserveDofNames[i] {
			j.assignDofName(i, j.defaultDofName(i))
		}
	}
	return name
}

func (j *jointCore) defaultDofName(i int) string {
	if j.n == 1 {
		return j.props.Name
	}
	return j.props.Name + "_" + strconv.Itoa(i)
}

func (j *jointCore) assignDofName(i int, name string) string {
	if j.owner != nil {
		name = j.owner.issueDofName(j, i, name)
	}
	j.props.DofNames[i] = name
	return name
}

func (j *jointCore) DofName(i int) string {
	if j.checkIndex("DofName", i) != nil {
		return ""
	}
	return j.props.DofNames[i]
}

// SetDofName renames one DOF and returns the issued unique name. A preserved
// name survives later joint renames.
func (j *jointCore) SetDofName(i int, name string, preserve bool) (string, error) {
	if err := j.checkIndex("SetDofName", i); err != nil {
		return "", err
	}
	j.props.PreserveDofNames[i] = preserve
	return j.assignDofName(i, name), nil
}

func (j *jointCore) IsDofNamePreserved(i int) bool {
	if j.checkIndex("IsDofNamePreserved", i) != nil {
		return false
	}
	return j.props.PreserveDofNames[i]
}

// Dof returns the handle of local DOF i.
func (j *jointCore) Dof(i int) (DegreeOfFreedom, error) {
	if err := j.checkIndex("Dof", i); err != nil {
		return DegreeOfFreedom{}, err
	}
	return DegreeOfFreedom{Joint: j.id, Local: i}, nil
}

func (j *jointCore) IndexInSkeleton(i int) int {
	if j.checkIndex("IndexInSkeleton", i) != nil {
		return -1
	}
	return j.indexInSkeleton[i]
}

func (j *jointCore) IndexInTree(i int) int {
	if j.checkIndex("IndexInTree", i) != nil {
		return -1
	}
	return j.indexInTree[i]
}

func (j *jointCore) TreeIndex() int { return j.treeIndex }

// validation

func (j *jointCore) checkIndex(op string, i int) error {
	if i >= 0 && i < j.n {
		return nil
	}
	j.logger.Warnw("index out of range", "joint", j.props.Name, "op", op, "index", i, "dofs", j.n)
	return errors.Wrapf(ErrIndexOutOfRange, "%s: joint %q index %d of %d", op, j.props.Name, i, j.n)
}

func (j *jointCore) checkLength(op string, v []float64) error {
	if len(v) == j.n {
		return nil
	}
	j.logger.Warnw("dimension mismatch", "joint", j.props.Name, "op", op, "got", len(v), "dofs", j.n)
	return errors.Wrapf(ErrDimensionMismatch, "%s: joint %q expected %d values, got %d", op, j.props.Name, j.n, len(v))
}

func (j *jointCore) checkFinite(op string, v ...float64) error {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			j.logger.Warnw("non-finite value rejected", "joint", j.props.Name, "op", op, "value", x)
			return errors.Wrapf(ErrNonFinite, "%s: joint %q", op, j.props.Name)
		}
	}
	return nil
}

func (j *jointCore) checkIdle(op string) error {
	if j.owner == nil || !j.owner.passActive() {
		return nil
	}
	j.logger.Warnw("mutation during recursion pass", "joint", j.props.Name, "op", op)
	return errors.Wrapf(ErrConcurrentAccess, "%s: joint %q", op, j.props.Name)
}

func (j *jointCore) checkRigid(which string, t spatial.Isometry) {
	if !t.IsRigid(rigidityTolerance) {
		j.logger.Warnw("joint frame is not rigid", "joint", j.props.Name, "frame", which,
			"error", ErrInvalidTransform)
	}
}

// mustBeFinite guards values the recursion itself produced.
func (j *jointCore) mustBeFinite(what string, v []float64) {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			panic(errors.Wrapf(ErrNonFinite, "joint %q %s %v", j.props.Name, what, v))
		}
	}
}

func (j *jointCore) notify(c change) {
	if j.owner != nil {
		j.owner.jointChanged(j, c)
	}
}

func (j *jointCore) positionsChanged() {
	j.transformDirty = true
	j.jacobianDirty = true
	j.jacobianDerivDirty = true
	j.notify(changePositions)
}

func (j *jointCore) velocitiesChanged() {
	j.jacobianDerivDirty = true
	j.notify(changeVelocities)
}

// element and vector helpers

func (j *jointCore) get(op string, src []float64, i int) float64 {
	if j.checkIndex(op, i) != nil {
		return 0
	}
	return src[i]
}

func (j *jointCore) set(op string, dst []float64, i int, v float64) error {
	if err := j.checkIndex(op, i); err != nil {
		return err
	}
	if err := j.checkFinite(op, v); err != nil {
		return err
	}
	if err := j.checkIdle(op); err != nil {
		return err
	}
	dst[i] = v
	return nil
}

func (j *jointCore) setAll(op string, dst []float64, v []float64) error {
	if err := j.checkLength(op, v); err != nil {
		return err
	}
	if err := j.checkFinite(op, v...); err != nil {
		return err
	}
	if err := j.checkIdle(op); err != nil {
		return err
	}
	copy(dst, v)
	return nil
}

// state accessors

func (j *jointCore) Position(i int) float64     { return j.get("Position", j.positions, i) }
func (j *jointCore) Velocity(i int) float64     { return j.get("Velocity", j.velocities, i) }
func (j *jointCore) Acceleration(i int) float64 { return j.get("Acceleration", j.accelerations, i) }
func (j *jointCore) Force(i int) float64        { return j.get("Force", j.forces, i) }
func (j *jointCore) Command(i int) float64      { return j.get("Command", j.commands, i) }

func (j *jointCore) Positions() []float64     { return append([]float64(nil), j.positions...) }
func (j *jointCore) Velocities() []float64    { return append([]float64(nil), j.velocities...) }
func (j *jointCore) Accelerations() []float64 { return append([]float64(nil), j.accelerations...) }
func (j *jointCore) Forces() []float64        { return append([]float64(nil), j.forces...) }
func (j *jointCore) Commands() []float64      { return append([]float64(nil), j.commands...) }

func (j *jointCore) SetPosition(i int, v float64) error {
	if err := j.set("SetPosition", j.positions, i, v); err != nil {
		return err
	}
	j.positionsChanged()
	return nil
}

func (j *jointCore) SetPositions(v []float64) error {
	if err := j.setAll("SetPositions", j.positions, v); err != nil {
		return err
	}
	j.positionsChanged()
	return nil
}

func (j *jointCore) SetVelocity(i int, v float64) error {
	if err := j.set("SetVelocity", j.velocities, i, v); err != nil {
		return err
	}
	j.velocitiesChanged()
	return nil
}

func (j *jointCore) SetVelocities(v []float64) error {
	if err := j.setAll("SetVelocities", j.velocities, v); err != nil {
		return err
	}
	j.velocitiesChanged()
	return nil
}

func (j *jointCore) SetAcceleration(i int, v float64) error {
	return j.set("SetAcceleration", j.accelerations, i, v)
}

func (j *jointCore) SetAccelerations(v []float64) error {
	return j.setAll("SetAccelerations", j.accelerations, v)
}

func (j *jointCore) SetForce(i int, v float64) error {
	return j.set("SetForce", j.forces, i, v)
}

func (j *jointCore) SetForces(v []float64) error {
	return j.setAll("SetForces", j.forces, v)
}

// SetCommand stores a command clipped according to the actuator mode: Force
// clips to force limits, Servo and Velocity to velocity limits, Acceleration
// to acceleration limits. Passive and Locked joints keep the value unclipped
// and log a warning when it is nonzero.
func (j *jointCore) SetCommand(i int, v float64) error {
	if err := j.checkIndex("SetCommand", i); err != nil {
		return err
	}
	if err := j.checkFinite("SetCommand", v); err != nil {
		return err
	}
	if err := j.checkIdle("SetCommand"); err != nil {
		return err
	}
	j.commands[i] = j.clipCommand(i, v)
	return nil
}

func (j *jointCore) SetCommands(v []float64) error {
	if err := j.checkLength("SetCommands", v); err != nil {
		return err
	}
	if err := j.checkFinite("SetCommands", v...); err != nil {
		return err
	}
	if err := j.checkIdle("SetCommands"); err != nil {
		return err
	}
	for i, x := range v {
		j.commands[i] = j.clipCommand(i, x)
	}
	return nil
}

func (j *jointCore) ResetCommands() {
	zero(j.commands)
}

func (j *jointCore) clipCommand(i int, v float64) float64 {
	p := &j.props
	switch p.ActuatorMode {
	case Force:
		return clamp(v, p.ForceLower[i], p.ForceUpper[i])
	case Servo, Velocity:
		return clamp(v, p.VelocityLower[i], p.VelocityUpper[i])
	case Acceleration:
		return clamp(v, p.AccelerationLower[i], p.AccelerationUpper[i])
	case Passive, Locked:
		if v != 0 {
			j.logger.Warnw("command ignored by actuator mode", "joint", p.Name, "mode", p.ActuatorMode, "index", i, "command", v)
		}
		return v
	}
	panic(errors.Wrapf(ErrUnsupportedActuatorMode, "joint %q mode %d", p.Name, int(p.ActuatorMode)))
}

func (j *jointCore) ActuatorMode() ActuatorMode { return j.props.ActuatorMode }

func (j *jointCore) SetActuatorMode(m ActuatorMode) error {
	if !m.Valid() {
		j.logger.Warnw("unsupported actuator mode", "joint", j.props.Name, "mode", int(m))
		return errors.Wrapf(ErrUnsupportedActuatorMode, "joint %q mode %d", j.props.Name, int(m))
	}
	if err := j.checkIdle("SetActuatorMode"); err != nil {
		return err
	}
	if m == j.props.ActuatorMode {
		return nil
	}
	j.props.ActuatorMode = m
	j.notify(changeActuatorMode)
	return nil
}

// limits

func (j *jointCore) PositionLimits(i int) (lower, upper float64) {
	if j.checkIndex("PositionLimits", i) != nil {
		return 0, 0
	}
	return j.props.PositionLower[i], j.props.PositionUpper[i]
}

func (j *jointCore) VelocityLimits(i int) (lower, upper float64) {
	if j.checkIndex("VelocityLimits", i) != nil {
		return 0, 0
	}
	return j.props.VelocityLower[i], j.props.VelocityUpper[i]
}

func (j *jointCore) AccelerationLimits(i int) (lower, upper float64) {
	if j.checkIndex("AccelerationLimits", i) != nil {
		return 0, 0
	}
	return j.props.AccelerationLower[i], j.props.AccelerationUpper[i]
}

func (j *jointCore) ForceLimits(i int) (lower, upper float64) {
	if j.checkIndex("ForceLimits", i) != nil {
		return 0, 0
	}
	return j.props.ForceLower[i], j.props.ForceUpper[i]
}

func (j *jointCore) SetPositionLimits(i int, lower, upper float64) error {
	return j.setLimits("SetPositionLimits", j.props.PositionLower, j.props.PositionUpper, i, lower, upper)
}

func (j *jointCore) SetVelocityLimits(i int, lower, upper float64) error {
	return j.setLimits("SetVelocityLimits", j.props.VelocityLower, j.props.VelocityUpper, i, lower, upper)
}

func (j *jointCore) SetAccelerationLimits(i int, lower, upper float64) error {
	return j.setLimits("SetAccelerationLimits", j.props.AccelerationLower, j.props.AccelerationUpper, i, lower, upper)
}

func (j *jointCore) SetForceLimits(i int, lower, upper float64) error {
	return j.setLimits("SetForceLimits", j.props.ForceLower, j.props.ForceUpper, i, lower, upper)
}

func (j *jointCore) setLimits(op string, lo, hi []float64, i int, lower, upper float64) error {
	if err := j.checkIndex(op, i); err != nil {
		return err
	}
	if math.IsNaN(lower) || math.IsNaN(upper) {
		return errors.Wrapf(ErrNonFinite, "%s: joint %q", op, j.props.Name)
	}
	if lower > upper {
		return errors.Wrapf(ErrInvalidProperty, "%s: joint %q lower %g > upper %g", op, j.props.Name, lower, upper)
	}
	if err := j.checkIdle(op); err != nil {
		return err
	}
	lo[i], hi[i] = lower, upper
	return nil
}

// springs, damping, friction

func (j *jointCore) SpringStiffness(i int) float64 {
	return j.get("SpringStiffness", j.props.SpringStiffness, i)
}

func (j *jointCore) SetSpringStiffness(i int, k float64) error {
	if err := j.setCoefficient("SetSpringStiffness", j.props.SpringStiffness, i, k); err != nil {
		return err
	}
	j.notify(changeImplicit)
	return nil
}

func (j *jointCore) RestPosition(i int) float64 {
	return j.get("RestPosition", j.props.RestPositions, i)
}

// SetRestPosition rejects rest positions outside the position limits.
func (j *jointCore) SetRestPosition(i int, q0 float64) error {
	if err := j.checkIndex("SetRestPosition", i); err != nil {
		return err
	}
	if err := j.checkFinite("SetRestPosition", q0); err != nil {
		return err
	}
	lo, hi := j.props.PositionLower[i], j.props.PositionUpper[i]
	if q0 < lo || q0 > hi {
		j.logger.Warnw("rest position outside position limits", "joint", j.props.Name, "index", i,
			"rest", q0, "lower", lo, "upper", hi)
		return errors.Wrapf(ErrInvalidProperty, "joint %q rest position %g outside [%g, %g]", j.props.Name, q0, lo, hi)
	}
	if err := j.checkIdle("SetRestPosition"); err != nil {
		return err
	}
	j.props.RestPositions[i] = q0
	return nil
}

func (j *jointCore) Damping(i int) float64 {
	return j.get("Damping", j.props.Damping, i)
}

func (j *jointCore) SetDamping(i int, d float64) error {
	if err := j.setCoefficient("SetDamping", j.props.Damping, i, d); err != nil {
		return err
	}
	j.notify(changeImplicit)
	return nil
}

// Friction is the Coulomb friction a constraint solver should apply.
func (j *jointCore) Friction(i int) float64 {
	return j.get("Friction", j.props.Friction, i)
}

func (j *jointCore) SetFriction(i int, f float64) error {
	return j.setCoefficient("SetFriction", j.props.Friction, i, f)
}

func (j *jointCore) setCoefficient(op string, dst []float64, i int, v float64) error {
	if err := j.checkIndex(op, i); err != nil {
		return err
	}
	if err := j.checkFinite(op, v); err != nil {
		return err
	}
	if v < 0 {
		j.logger.Warnw("negative coefficient rejected", "joint", j.props.Name, "op", op, "index", i, "value", v)
		return errors.Wrapf(ErrInvalidProperty, "%s: joint %q value %g", op, j.props.Name, v)
	}
	if err := j.checkIdle(op); err != nil {
		return err
	}
	dst[i] = v
	return nil
}

// initial state

func (j *jointCore) InitialPositions() []float64 {
	return append([]float64(nil), j.props.InitialPositions...)
}

func (j *jointCore) InitialVelocities() []float64 {
	return append([]float64(nil), j.props.InitialVelocities...)
}

func (j *jointCore) SetInitialPositions(v []float64) error {
	if err := j.checkLength("SetInitialPositions", v); err != nil {
		return err
	}
	if err := j.checkFinite("SetInitialPositions", v...); err != nil {
		return err
	}
	if err := j.checkIdle("SetInitialPositions"); err != nil {
		return err
	}
	copy(j.props.InitialPositions, v)
	return nil
}

func (j *jointCore) SetInitialVelocities(v []float64) error {
	if err := j.checkLength("SetInitialVelocities", v); err != nil {
		return err
	}
	if err := j.checkFinite("SetInitialVelocities", v...); err != nil {
		return err
	}
	if err := j.checkIdle("SetInitialVelocities"); err != nil {
		return err
	}
	copy(j.props.InitialVelocities, v)
	return nil
}

// ResetPositions restores the initial positions.
func (j *jointCore) ResetPositions() {
	copy(j.positions, j.props.InitialPositions)
	j.positionsChanged()
}

// ResetVelocities restores the initial velocities.
func (j *jointCore) ResetVelocities() {
	copy(j.velocities, j.props.InitialVelocities)
	j.velocitiesChanged()
}

// resetState puts the joint at its initial configuration with zero
// accelerations, forces, commands and impulses.
func (j *jointCore) resetState() {
	copy(j.positions, j.props.InitialPositions)
	copy(j.velocities, j.props.InitialVelocities)
	zero(j.accelerations)
	zero(j.forces)
	zero(j.commands)
	zero(j.velocityChanges)
	zero(j.impulses)
	zero(j.constraintImpulses)
	j.transformDirty = true
	j.jacobianDirty = true
	j.jacobianDerivDirty = true
}

// constraint interface

func (j *jointCore) ConstraintImpulse(i int) float64 {
	return j.get("ConstraintImpulse", j.constraintImpulses, i)
}

func (j *jointCore) ConstraintImpulses() []float64 {
	return append([]float64(nil), j.constraintImpulses...)
}

func (j *jointCore) SetConstraintImpulse(i int, v float64) error {
	if err := j.set("SetConstraintImpulse", j.constraintImpulses, i, v); err != nil {
		return err
	}
	j.notify(changeConstraint)
	return nil
}

func (j *jointCore) SetConstraintImpulses(v []float64) error {
	if err := j.setAll("SetConstraintImpulses", j.constraintImpulses, v); err != nil {
		return err
	}
	j.notify(changeConstraint)
	return nil
}

func (j *jointCore) ResetConstraintImpulses() {
	zero(j.constraintImpulses)
	j.notify(changeConstraint)
}

// VelocityChanges returns Δv from the last impulse forward dynamics.
func (j *jointCore) VelocityChanges() []float64 {
	return append([]float64(nil), j.velocityChanges...)
}

// Impulses returns the generalized impulses a kinematic joint transmitted
// in the last impulse forward dynamics.
func (j *jointCore) Impulses() []float64 {
	return append([]float64(nil), j.impulses...)
}

// InvProjArtInertia returns (Sᵀ·AI·S)⁻¹ from the last articulated inertia
// update. Kinematic joints report zeros.
func (j *jointCore) InvProjArtInertia() *mat.Dense {
	return copyDense(j.invProjAI, j.n)
}

// InvProjArtInertiaImplicit is InvProjArtInertia with dt·d + dt²·k added
// to the projected diagonal before inversion.
func (j *jointCore) InvProjArtInertiaImplicit() *mat.Dense {
	return copyDense(j.invProjAIImpl, j.n)
}

// frames

func (j *jointCore) ParentToJoint() spatial.Isometry { return j.props.ParentToJoint }
func (j *jointCore) ChildToJoint() spatial.Isometry  { return j.props.ChildToJoint }

// SetParentToJoint sets the joint frame in the parent body. A non-rigid
// transform is logged and used as given.
func (j *jointCore) SetParentToJoint(t spatial.Isometry) error {
	if err := j.checkIdle("SetParentToJoint"); err != nil {
		return err
	}
	j.checkRigid("parent", t)
	j.props.ParentToJoint = t
	j.positionsChanged()
	return nil
}

// SetChildToJoint sets the joint frame in the child body. A non-rigid
// transform is logged and used as given.
func (j *jointCore) SetChildToJoint(t spatial.Isometry) error {
	if err := j.checkIdle("SetChildToJoint"); err != nil {
		return err
	}
	j.checkRigid("child", t)
	j.props.ChildToJoint = t
	j.positionsChanged()
	return nil
}

// RelativeTransform is the pose of the child body in the parent body.
func (j *jointCore) RelativeTransform() spatial.Isometry {
	return j.transform()
}

// RelativeJacobian returns the motion subspace S in the child body frame.
func (j *jointCore) RelativeJacobian() []spatial.Vec6 {
	return append([]spatial.Vec6(nil), j.jacobian()...)
}

func (j *jointCore) RelativeJacobianDeriv() []spatial.Vec6 {
	return append([]spatial.Vec6(nil), j.jacobianDeriv()...)
}

func (j *jointCore) transform() spatial.Isometry {
	if j.transformDirty {
		q := j.kin.transform(j.positions)
		j.relTransform = j.props.ParentToJoint.Mul(q).Mul(j.props.ChildToJoint.Inverse())
		j.transformDirty = false
	}
	return j.relTransform
}

func (j *jointCore) jacobian() []spatial.Vec6 {
	if j.jacobianDirty {
		j.relJacobian = j.toChildFrame(j.kin.jacobian(j.positions))
		j.jacobianDirty = false
	}
	return j.relJacobian
}

func (j *jointCore) jacobianDeriv() []spatial.Vec6 {
	if j.jacobianDerivDirty {
		j.relJacobianDeriv = j.toChildFrame(j.kin.jacobianDeriv(j.positions, j.velocities))
		j.jacobianDerivDirty = false
	}
	return j.relJacobianDeriv
}

func (j *jointCore) toChildFrame(cols []spatial.Vec6) []spatial.Vec6 {
	out := make([]spatial.Vec6, len(cols))
	for i, c := range cols {
		out[i] = spatial.AdT(j.props.ChildToJoint, c)
	}
	return out
}

// energy and differences

// PotentialEnergy is the energy stored in the joint springs.
func (j *jointCore) PotentialEnergy() float64 {
	pe := 0.0
	for i := 0; i < j.n; i++ {
		d := j.positions[i] - j.props.RestPositions[i]
		pe += 0.5 * j.props.SpringStiffness[i] * d * d
	}
	return pe
}

// PositionDifferences returns q2 − q1 componentwise. For curved spaces this
// is not the geodesic difference.
func (j *jointCore) PositionDifferences(q2, q1 []float64) ([]float64, error) {
	if err := j.checkLength("PositionDifferences", q2); err != nil {
		return nil, err
	}
	if err := j.checkLength("PositionDifferences", q1); err != nil {
		return nil, err
	}
	out := make([]float64, j.n)
	for i := range out {
		out[i] = q2[i] - q1[i]
	}
	return out, nil
}

// IntegrateVelocities advances velocities by dt·accelerations.
func (j *jointCore) IntegrateVelocities(dt float64) {
	if j.n == 0 {
		return
	}
	copy(j.velocities, configspace.IntegrateVelocity(j.velocities, j.accelerations, dt))
	j.velocitiesChanged()
}

func (j *jointCore) attach(owner jointOwner, id JointID, logger *zap.SugaredLogger) {
	j.owner = owner
	j.id = id
	j.logger = logger
}

func (j *jointCore) detach() {
	j.owner = nil
	j.id = JointID{}
	j.logger = logging.NewNop()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}
