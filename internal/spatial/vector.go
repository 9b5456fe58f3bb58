package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec6 is a spatial vector, angular part first.
type Vec6 [6]float64

func NewVec6(angular, linear mgl64.Vec3) Vec6 {
	return Vec6{angular[0], angular[1], angular[2], linear[0], linear[1], linear[2]}
}

func (v Vec6) Angular() mgl64.Vec3 { return mgl64.Vec3{v[0], v[1], v[2]} }
func (v Vec6) Linear() mgl64.Vec3  { return mgl64.Vec3{v[3], v[4], v[5]} }

func (v Vec6) Add(o Vec6) Vec6 {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

func (v Vec6) Sub(o Vec6) Vec6 {
	for i := range v {
		v[i] -= o[i]
	}
	return v
}

func (v Vec6) Scale(s float64) Vec6 {
	for i := range v {
		v[i] *= s
	}
	return v
}

func (v Vec6) Neg() Vec6 { return v.Scale(-1) }

func (v Vec6) Dot(o Vec6) float64 {
	sum := 0.0
	for i := range v {
		sum += v[i] * o[i]
	}
	return sum
}

func (v Vec6) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// IsFinite reports whether no component is NaN or infinite.
func (v Vec6) IsFinite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Mat6 is a 6×6 matrix stored row-major.
type Mat6 [6][6]float64

func Identity6() Mat6 {
	var m Mat6
	for i := 0; i < 6; i++ {
		m[i][i] = 1
	}
	return m
}

func (m Mat6) MulVec(v Vec6) Vec6 {
	var out Vec6
	for r := 0; r < 6; r++ {
		sum := 0.0
		for c := 0; c < 6; c++ {
			sum += m[r][c] * v[c]
		}
		out[r] = sum
	}
	return out
}

func (m Mat6) Mul(o Mat6) Mat6 {
	var out Mat6
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			sum := 0.0
			for k := 0; k < 6; k++ {
				sum += m[r][k] * o[k][c]
			}
			out[r][c] = sum
		}
	}
	return out
}

func (m Mat6) Add(o Mat6) Mat6 {
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			m[r][c] += o[r][c]
		}
	}
	return m
}

func (m Mat6) Sub(o Mat6) Mat6 {
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			m[r][c] -= o[r][c]
		}
	}
	return m
}

func (m Mat6) Transpose() Mat6 {
	var out Mat6
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			out[c][r] = m[r][c]
		}
	}
	return out
}

func (m Mat6) IsFinite() bool {
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			if math.IsNaN(m[r][c]) || math.IsInf(m[r][c], 0) {
				return false
			}
		}
	}
	return true
}

// Skew returns the cross-product matrix of v.
func Skew(v mgl64.Vec3) mgl64.Mat3 {
	// column-major
	return mgl64.Mat3{
		0, v[2], -v[1],
		-v[2], 0, v[0],
		v[1], -v[0], 0,
	}
}

// SpatialInertia builds the body-origin spatial inertia of a rigid body with
// the given mass, center of mass and rotational inertia about the COM.
func SpatialInertia(mass float64, com mgl64.Vec3, inertiaCOM mgl64.Mat3) Mat6 {
	c := Skew(com)
	// I_o = I_c + m*[c][c]^T
	io := inertiaCOM.Add(c.Mul3(c.Transpose()).Mul(mass))
	mc := c.Mul(mass)

	var g Mat6
	for r := 0; r < 3; r++ {
		for col := 0; col < 3; col++ {
			g[r][col] = io.At(r, col)
			g[r][col+3] = mc.At(r, col)
			g[r+3][col] = mc.At(col, r)
		}
		g[r+3][r+3] = mass
	}
	return g
}
