// Package dynamics implements articulated rigid-body dynamics over
// kinematic trees in generalized coordinates.
//
// A [Skeleton] is a forest of [BodyNode] values, each attached to its
// parent (or the world) through a [Joint]. Joints are [GenericJoint]
// values parameterized by their configuration space:
//
//   - [FlatJoint]: weld, revolute, prismatic, screw, universal, translational
//   - [RotationJoint]: ball
//   - [RigidJoint]: free
//
// The skeleton runs the two-pass articulated-body recursion for forward
// dynamics, inverse dynamics and impulse-based forward dynamics, and
// assembles joint-space aggregates (mass matrix, its inverse, Coriolis,
// gravity, external and constraint forces) lazily per tree behind dirty
// flags. Every joint contributes to the recursion according to its
// [ActuatorMode].
//
// # Example
//
//	skel := dynamics.NewSkeleton("pendulum")
//	props := dynamics.DefaultJointProperties(1)
//	joint, _ := dynamics.NewRevoluteJoint(props, mgl64.Vec3{0, 1, 0})
//	body, _ := skel.CreateJointAndBodyNodePair(dynamics.BodyID{}, joint, dynamics.DefaultBodyNodeProperties())
//	skel.ComputeForwardDynamics()
//	skel.IntegrateVelocities(skel.TimeStep())
//	skel.IntegratePositions(skel.TimeStep())
//
// # Thread Safety
//
// Skeleton methods are safe for concurrent use; each takes the skeleton
// lock. Joints and bodies are NOT: mutate them from one goroutine, or
// hold [Skeleton.Lock] around direct mutation. Joint setters called while
// a recursion pass runs fail with [ErrConcurrentAccess]. For parallel
// simulation, [Skeleton.Clone] the skeleton once per goroutine.
package dynamics
