package dynamics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/spatial"
)

// JointProperties holds the static description of a joint. Per-DOF slices
// must have length NumDofs or be nil; nil slices take the defaults.
type JointProperties struct {
	Name string

	// ParentToJoint is the pose of the joint frame in the parent body frame.
	ParentToJoint spatial.Isometry
	// ChildToJoint is the pose of the joint frame in the child body frame.
	ChildToJoint spatial.Isometry

	ActuatorMode ActuatorMode

	PositionLower, PositionUpper         []float64
	VelocityLower, VelocityUpper         []float64
	AccelerationLower, AccelerationUpper []float64
	ForceLower, ForceUpper               []float64

	InitialPositions  []float64
	InitialVelocities []float64

	SpringStiffness []float64
	RestPositions   []float64
	Damping         []float64
	Friction        []float64

	DofNames         []string
	PreserveDofNames []bool
}

// DefaultJointProperties returns properties for an n-DOF joint with
// unbounded limits, no springs, no damping, no friction and Force mode.
func DefaultJointProperties(n int) JointProperties {
	return JointProperties{
		ParentToJoint:     spatial.Identity(),
		ChildToJoint:      spatial.Identity(),
		ActuatorMode:      Force,
		PositionLower:     filled(n, math.Inf(-1)),
		PositionUpper:     filled(n, math.Inf(1)),
		VelocityLower:     filled(n, math.Inf(-1)),
		VelocityUpper:     filled(n, math.Inf(1)),
		AccelerationLower: filled(n, math.Inf(-1)),
		AccelerationUpper: filled(n, math.Inf(1)),
		ForceLower:        filled(n, math.Inf(-1)),
		ForceUpper:        filled(n, math.Inf(1)),
		InitialPositions:  make([]float64, n),
		InitialVelocities: make([]float64, n),
		SpringStiffness:   make([]float64, n),
		RestPositions:     make([]float64, n),
		Damping:           make([]float64, n),
		Friction:          make([]float64, n),
		DofNames:          make([]string, n),
		PreserveDofNames:  make([]bool, n),
	}
}

// normalized fills nil slices with defaults and validates the rest.
func (p JointProperties) normalized(n int) (JointProperties, error) {
	def := DefaultJointProperties(n)
	out := p

	floats := []struct {
		name string
		dst  *[]float64
		def  []float64
	}{
		{"position lower", &out.PositionLower, def.PositionLower},
		{"position upper", &out.PositionUpper, def.PositionUpper},
		{"velocity lower", &out.VelocityLower, def.VelocityLower},
		{"velocity upper", &out.VelocityUpper, def.VelocityUpper},
		{"acceleration lower", &out.AccelerationLower, def.AccelerationLower},
		{"acceleration upper", &out.AccelerationUpper, def.AccelerationUpper},
		{"force lower", &out.ForceLower, def.ForceLower},
		{"force upper", &out.ForceUpper, def.ForceUpper},
		{"initial positions", &out.InitialPositions, def.InitialPositions},
		{"initial velocities", &out.InitialVelocities, def.InitialVelocities},
		{"spring stiffness", &out.SpringStiffness, def.SpringStiffness},
		{"rest positions", &out.RestPositions, def.RestPositions},
		{"damping", &out.Damping, def.Damping},
		{"friction", &out.Friction, def.Friction},
	}
	for _, f := range floats {
		if *f.dst == nil {
			*f.dst = f.def
			continue
		}
		if len(*f.dst) != n {
			return p, errors.Wrapf(ErrDimensionMismatch, "%s: expected %d values, got %d", f.name, n, len(*f.dst))
		}
		*f.dst = append([]float64(nil), *f.dst...)
	}

	if out.DofNames == nil {
		out.DofNames = def.DofNames
	} else if len(out.DofNames) != n {
		return p, errors.Wrapf(ErrDimensionMismatch, "dof names: expected %d values, got %d", n, len(out.DofNames))
	} else {
		out.DofNames = append([]string(nil), out.DofNames...)
	}
	if out.PreserveDofNames == nil {
		out.PreserveDofNames = def.PreserveDofNames
	} else if len(out.PreserveDofNames) != n {
		return p, errors.Wrapf(ErrDimensionMismatch, "preserve flags: expected %d values, got %d", n, len(out.PreserveDofNames))
	} else {
		out.PreserveDofNames = append([]bool(nil), out.PreserveDofNames...)
	}

	if out.ParentToJoint == (spatial.Isometry{}) {
		out.ParentToJoint = spatial.Identity()
	}
	if out.ChildToJoint == (spatial.Isometry{}) {
		out.ChildToJoint = spatial.Identity()
	}

	if !out.ActuatorMode.Valid() {
		return p, errors.Wrapf(ErrUnsupportedActuatorMode, "mode %d", int(out.ActuatorMode))
	}

	for i := 0; i < n; i++ {
		switch {
		case out.SpringStiffness[i] < 0:
			return p, errors.Wrapf(ErrInvalidProperty, "spring stiffness[%d] = %g", i, out.SpringStiffness[i])
		case out.Damping[i] < 0:
			return p, errors.Wrapf(ErrInvalidProperty, "damping[%d] = %g", i, out.Damping[i])
		case out.Friction[i] < 0:
			return p, errors.Wrapf(ErrInvalidProperty, "friction[%d] = %g", i, out.Friction[i])
		case out.PositionLower[i] > out.PositionUpper[i],
			out.VelocityLower[i] > out.VelocityUpper[i],
			out.AccelerationLower[i] > out.AccelerationUpper[i],
			out.ForceLower[i] > out.ForceUpper[i]:
			return p, errors.Wrapf(ErrInvalidProperty, "inverted limits at dof %d", i)
		}
	}
	return out, nil
}

func (p JointProperties) clone() JointProperties {
	out := p
	cp := func(s []float64) []float64 { return append([]float64(nil), s...) }
	out.PositionLower, out.PositionUpper = cp(p.PositionLower), cp(p.PositionUpper)
	out.VelocityLower, out.VelocityUpper = cp(p.VelocityLower), cp(p.VelocityUpper)
	out.AccelerationLower, out.AccelerationUpper = cp(p.AccelerationLower), cp(p.AccelerationUpper)
	out.ForceLower, out.ForceUpper = cp(p.ForceLower), cp(p.ForceUpper)
	out.InitialPositions, out.InitialVelocities = cp(p.InitialPositions), cp(p.InitialVelocities)
	out.SpringStiffness, out.RestPositions = cp(p.SpringStiffness), cp(p.RestPositions)
	out.Damping, out.Friction = cp(p.Damping), cp(p.Friction)
	out.DofNames = append([]string(nil), p.DofNames...)
	out.PreserveDofNames = append([]bool(nil), p.PreserveDofNames...)
	return out
}

// BodyNodeProperties holds the inertial description of a body.
type BodyNodeProperties struct {
	Name string
	Mass float64
	// LocalCOM is the center of mass in the body frame.
	LocalCOM mgl64.Vec3
	// Inertia is the rotational inertia about the center of mass.
	Inertia     mgl64.Mat3
	GravityMode bool
}

// DefaultBodyNodeProperties returns a unit-mass body with unit inertia
// that feels gravity.
func DefaultBodyNodeProperties() BodyNodeProperties {
	return BodyNodeProperties{
		Name:        "body",
		Mass:        1,
		Inertia:     mgl64.Ident3(),
		GravityMode: true,
	}
}

func (p BodyNodeProperties) validate() error {
	if p.Mass <= 0 || math.IsNaN(p.Mass) || math.IsInf(p.Mass, 0) {
		return errors.Wrapf(ErrInvalidProperty, "mass %g", p.Mass)
	}
	for i := 0; i < 9; i++ {
		if math.IsNaN(p.Inertia[i]) || math.IsInf(p.Inertia[i], 0) {
			return errors.Wrap(ErrNonFinite, "inertia")
		}
	}
	return nil
}

// spatialInertia returns the body-frame spatial inertia.
func (p BodyNodeProperties) spatialInertia() spatial.Mat6 {
	return spatial.SpatialInertia(p.Mass, p.LocalCOM, p.Inertia)
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
