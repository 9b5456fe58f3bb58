package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Isometry is a rigid transform x ↦ R·x + P.
type Isometry struct {
	R mgl64.Mat3
	P mgl64.Vec3
}

func Identity() Isometry {
	return Isometry{R: mgl64.Ident3()}
}

func Translation(p mgl64.Vec3) Isometry {
	return Isometry{R: mgl64.Ident3(), P: p}
}

func Rotation(r mgl64.Mat3) Isometry {
	return Isometry{R: r}
}

// Mul composes t then o, i.e. (t·o)(x) = t(o(x)).
func (t Isometry) Mul(o Isometry) Isometry {
	return Isometry{
		R: t.R.Mul3(o.R),
		P: t.R.Mul3x1(o.P).Add(t.P),
	}
}

func (t Isometry) Inverse() Isometry {
	rt := t.R.Transpose()
	return Isometry{R: rt, P: rt.Mul3x1(t.P).Mul(-1)}
}

func (t Isometry) Apply(x mgl64.Vec3) mgl64.Vec3 {
	return t.R.Mul3x1(x).Add(t.P)
}

// Mat4 returns the homogeneous matrix of t.
func (t Isometry) Mat4() mgl64.Mat4 {
	r := t.R
	return mgl64.Mat4{
		r[0], r[1], r[2], 0,
		r[3], r[4], r[5], 0,
		r[6], r[7], r[8], 0,
		t.P[0], t.P[1], t.P[2], 1,
	}
}

func FromMat4(m mgl64.Mat4) Isometry {
	return Isometry{R: m.Mat3(), P: m.Col(3).Vec3()}
}

func (t Isometry) ApproxEqual(o Isometry, tol float64) bool {
	for i := 0; i < 9; i++ {
		if math.Abs(t.R[i]-o.R[i]) > tol {
			return false
		}
	}
	for i := 0; i < 3; i++ {
		if math.Abs(t.P[i]-o.P[i]) > tol {
			return false
		}
	}
	return true
}

// IsRigid reports whether R is orthonormal with determinant +1 and every
// entry is finite.
func (t Isometry) IsRigid(tol float64) bool {
	for i := 0; i < 9; i++ {
		if math.IsNaN(t.R[i]) || math.IsInf(t.R[i], 0) {
			return false
		}
	}
	for i := 0; i < 3; i++ {
		if math.IsNaN(t.P[i]) || math.IsInf(t.P[i], 0) {
			return false
		}
	}
	rtr := t.R.Transpose().Mul3(t.R)
	id := mgl64.Ident3()
	for i := 0; i < 9; i++ {
		if math.Abs(rtr[i]-id[i]) > tol {
			return false
		}
	}
	return math.Abs(t.R.Det()-1) <= tol
}

// AxisRotation returns the rotation of angle radians about a unit axis.
func AxisRotation(axis mgl64.Vec3, angle float64) mgl64.Mat3 {
	return ExpMapRot(axis.Mul(angle))
}

// ExpMapRot is the Rodrigues exponential of an axis-angle vector.
func ExpMapRot(w mgl64.Vec3) mgl64.Mat3 {
	theta := w.Len()
	k := Skew(w)
	k2 := k.Mul3(k)
	var a, b float64
	if theta < 1e-8 {
		a = 1 - theta*theta/6
		b = 0.5 - theta*theta/24
	} else {
		a = math.Sin(theta) / theta
		b = (1 - math.Cos(theta)) / (theta * theta)
	}
	return mgl64.Ident3().Add(k.Mul(a)).Add(k2.Mul(b))
}

// LogMap returns the axis-angle vector of r with angle in [0, π].
func LogMap(r mgl64.Mat3) mgl64.Vec3 {
	// vee(R - Rᵀ) = 2 sinθ · axis
	vee := mgl64.Vec3{
		r.At(2, 1) - r.At(1, 2),
		r.At(0, 2) - r.At(2, 0),
		r.At(1, 0) - r.At(0, 1),
	}
	sinTheta := vee.Len() / 2
	cosTheta := (r.At(0, 0) + r.At(1, 1) + r.At(2, 2) - 1) / 2
	theta := math.Atan2(sinTheta, cosTheta)

	switch {
	case theta < 1e-8:
		return vee.Mul(0.5)
	case math.Pi-theta < 1e-6:
		return logNearPi(r, theta, vee)
	default:
		return vee.Mul(theta / (2 * sinTheta))
	}
}

// logNearPi recovers the axis from the symmetric part R ≈ 2aaᵀ − I.
func logNearPi(r mgl64.Mat3, theta float64, vee mgl64.Vec3) mgl64.Vec3 {
	diag := [3]float64{r.At(0, 0), r.At(1, 1), r.At(2, 2)}
	k := 0
	for i := 1; i < 3; i++ {
		if diag[i] > diag[k] {
			k = i
		}
	}
	var axis mgl64.Vec3
	axis[k] = math.Sqrt(math.Max((diag[k]+1)/2, 0))
	for i := 0; i < 3; i++ {
		if i != k {
			axis[i] = (r.At(i, k) + r.At(k, i)) / (4 * axis[k])
		}
	}
	axis = axis.Normalize()
	if axis.Dot(vee) < 0 {
		axis = axis.Mul(-1)
	}
	return axis.Mul(theta)
}
