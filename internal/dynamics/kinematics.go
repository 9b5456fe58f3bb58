package dynamics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/multibody/internal/configspace"
	"github.com/san-kum/multibody/internal/spatial"
)

// kinematics maps generalized coordinates of one joint type to the motion
// of the joint frame. Jacobian columns are expressed in the joint frame; the
// joint moves them into the child body frame.
type kinematics interface {
	name() string
	transform(q []float64) spatial.Isometry
	jacobian(q []float64) []spatial.Vec6
	jacobianDeriv(q, dq []float64) []spatial.Vec6
}

type weldKinematics struct{}

func (weldKinematics) name() string                                      { return "weld" }
func (weldKinematics) transform([]float64) spatial.Isometry              { return spatial.Identity() }
func (weldKinematics) jacobian([]float64) []spatial.Vec6                 { return nil }
func (weldKinematics) jacobianDeriv([]float64, []float64) []spatial.Vec6 { return nil }

type revoluteKinematics struct {
	axis mgl64.Vec3
}

func (revoluteKinematics) name() string { return "revolute" }

func (k revoluteKinematics) transform(q []float64) spatial.Isometry {
	return spatial.Rotation(spatial.AxisRotation(k.axis, q[0]))
}

func (k revoluteKinematics) jacobian([]float64) []spatial.Vec6 {
	return []spatial.Vec6{spatial.NewVec6(k.axis, mgl64.Vec3{})}
}

func (revoluteKinematics) jacobianDeriv([]float64, []float64) []spatial.Vec6 {
	return make([]spatial.Vec6, 1)
}

type prismaticKinematics struct {
	axis mgl64.Vec3
}

func (prismaticKinematics) name() string { return "prismatic" }

func (k prismaticKinematics) transform(q []float64) spatial.Isometry {
	return spatial.Translation(k.axis.Mul(q[0]))
}

func (k prismaticKinematics) jacobian([]float64) []spatial.Vec6 {
	return []spatial.Vec6{spatial.NewVec6(mgl64.Vec3{}, k.axis)}
}

func (prismaticKinematics) jacobianDeriv([]float64, []float64) []spatial.Vec6 {
	return make([]spatial.Vec6, 1)
}

// screwKinematics rotates about axis and translates pitch meters per radian
// along it.
type screwKinematics struct {
	axis  mgl64.Vec3
	pitch float64
}

func (screwKinematics) name() string { return "screw" }

func (k screwKinematics) transform(q []float64) spatial.Isometry {
	return spatial.Isometry{
		R: spatial.AxisRotation(k.axis, q[0]),
		P: k.axis.Mul(k.pitch * q[0]),
	}
}

func (k screwKinematics) jacobian([]float64) []spatial.Vec6 {
	return []spatial.Vec6{spatial.NewVec6(k.axis, k.axis.Mul(k.pitch))}
}

func (screwKinematics) jacobianDeriv([]float64, []float64) []spatial.Vec6 {
	return make([]spatial.Vec6, 1)
}

// universalKinematics rotates about axis1 by q0, then about axis2 by q1.
type universalKinematics struct {
	axis1, axis2 mgl64.Vec3
}

func (universalKinematics) name() string { return "universal" }

func (k universalKinematics) transform(q []float64) spatial.Isometry {
	r := spatial.AxisRotation(k.axis1, q[0]).Mul3(spatial.AxisRotation(k.axis2, q[1]))
	return spatial.Rotation(r)
}

func (k universalKinematics) jacobian(q []float64) []spatial.Vec6 {
	back := spatial.AxisRotation(k.axis2, -q[1])
	return []spatial.Vec6{
		spatial.NewVec6(back.Mul3x1(k.axis1), mgl64.Vec3{}),
		spatial.NewVec6(k.axis2, mgl64.Vec3{}),
	}
}

func (k universalKinematics) jacobianDeriv(q, dq []float64) []spatial.Vec6 {
	s := k.jacobian(q)
	return []spatial.Vec6{
		spatial.Ad(s[1].Scale(dq[1]), s[0]).Neg(),
		{},
	}
}

// translationalKinematics translates freely along all three axes.
type translationalKinematics struct{}

func (translationalKinematics) name() string { return "translational" }

func (translationalKinematics) transform(q []float64) spatial.Isometry {
	return spatial.Translation(mgl64.Vec3{q[0], q[1], q[2]})
}

func (translationalKinematics) jacobian([]float64) []spatial.Vec6 {
	return []spatial.Vec6{
		{0, 0, 0, 1, 0, 0},
		{0, 0, 0, 0, 1, 0},
		{0, 0, 0, 0, 0, 1},
	}
}

func (translationalKinematics) jacobianDeriv([]float64, []float64) []spatial.Vec6 {
	return make([]spatial.Vec6, 3)
}

// ballKinematics uses body-frame angular velocity, so the Jacobian is
// constant.
type ballKinematics struct{}

func (ballKinematics) name() string { return "ball" }

func (ballKinematics) transform(q []float64) spatial.Isometry {
	return spatial.Rotation(configspace.Rotation{}.ToManifold(q))
}

func (ballKinematics) jacobian([]float64) []spatial.Vec6 {
	return []spatial.Vec6{
		{1, 0, 0, 0, 0, 0},
		{0, 1, 0, 0, 0, 0},
		{0, 0, 1, 0, 0, 0},
	}
}

func (ballKinematics) jacobianDeriv([]float64, []float64) []spatial.Vec6 {
	return make([]spatial.Vec6, 3)
}

// freeKinematics uses the body-frame twist, so the Jacobian is the identity.
type freeKinematics struct{}

func (freeKinematics) name() string { return "free" }

func (freeKinematics) transform(q []float64) spatial.Isometry {
	return configspace.RigidTransform{}.ToManifold(q)
}

func (freeKinematics) jacobian([]float64) []spatial.Vec6 {
	cols := make([]spatial.Vec6, 6)
	for i := range cols {
		cols[i][i] = 1
	}
	return cols
}

func (freeKinematics) jacobianDeriv([]float64, []float64) []spatial.Vec6 {
	return make([]spatial.Vec6, 6)
}
