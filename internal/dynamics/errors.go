package dynamics

import "github.com/pkg/errors"

// Domain errors for joint, body and skeleton operations.
var (
	// ErrIndexOutOfRange indicates a DOF index at or beyond NumDofs.
	ErrIndexOutOfRange = errors.New("dynamics: index out of range")

	// ErrDimensionMismatch indicates a vector whose length differs from NumDofs.
	ErrDimensionMismatch = errors.New("dynamics: dimension mismatch")

	// ErrUnsupportedActuatorMode indicates an actuator mode outside the known set.
	ErrUnsupportedActuatorMode = errors.New("dynamics: unsupported actuator mode")

	// ErrInvalidTransform indicates a joint frame that is not a rigid transform.
	ErrInvalidTransform = errors.New("dynamics: invalid transform")

	ErrNotFound = errors.New("dynamics: not found")

	// ErrInvalidHandle indicates a stale or zero body/joint handle.
	ErrInvalidHandle = errors.New("dynamics: invalid handle")

	// ErrNonFinite indicates a NaN or Inf value.
	ErrNonFinite = errors.New("dynamics: non-finite value")

	// ErrConcurrentAccess indicates a mutation attempted while a recursion
	// pass holds the skeleton.
	ErrConcurrentAccess = errors.New("dynamics: concurrent access during recursion pass")

	// ErrInvalidProperty indicates a negative stiffness, damping, friction or
	// mass, or inverted limits.
	ErrInvalidProperty = errors.New("dynamics: invalid property")
)
