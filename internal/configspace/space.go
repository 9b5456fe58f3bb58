// Package configspace describes the configuration manifolds a joint can move
// on and the maps between each manifold and its flat tangent coordinates.
package configspace

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/multibody/internal/spatial"
)

// Vector holds tangent coordinates; its length is the space dimension.
type Vector = []float64

// Space is a configuration manifold whose points have type P.
type Space[P any] interface {
	Dim() int
	Name() string
	Zero() P
	ToTangent(p P) Vector
	ToManifold(v Vector) P
	IntegratePosition(p P, v Vector, dt float64) P
}

// IntegrateVelocity returns v + dt·a. It is the same for every space.
func IntegrateVelocity(v, a Vector, dt float64) Vector {
	out := make(Vector, len(v))
	for i := range v {
		out[i] = v[i] + dt*a[i]
	}
	return out
}

// Flat is R^N.
type Flat struct {
	N int
}

func (f Flat) Dim() int                 { return f.N }
func (f Flat) Name() string             { return "flat" }
func (f Flat) Zero() Vector             { return make(Vector, f.N) }
func (Flat) ToTangent(p Vector) Vector  { return append(Vector(nil), p...) }
func (Flat) ToManifold(v Vector) Vector { return append(Vector(nil), v...) }

func (Flat) IntegratePosition(p Vector, v Vector, dt float64) Vector {
	out := make(Vector, len(p))
	for i := range p {
		out[i] = p[i] + dt*v[i]
	}
	return out
}

// Rotation is SO(3) with body-frame angular velocity as its tangent.
type Rotation struct{}

func (Rotation) Dim() int         { return 3 }
func (Rotation) Name() string     { return "rotation" }
func (Rotation) Zero() mgl64.Mat3 { return mgl64.Ident3() }

func (Rotation) ToTangent(p mgl64.Mat3) Vector {
	w := spatial.LogMap(p)
	return Vector{w[0], w[1], w[2]}
}

func (Rotation) ToManifold(v Vector) mgl64.Mat3 {
	return spatial.ExpMapRot(mgl64.Vec3{v[0], v[1], v[2]})
}

func (Rotation) IntegratePosition(p mgl64.Mat3, v Vector, dt float64) mgl64.Mat3 {
	return p.Mul3(spatial.ExpMapRot(mgl64.Vec3{v[0] * dt, v[1] * dt, v[2] * dt}))
}

// RigidTransform is SE(3) in [log R; translation] coordinates. The tangent
// map is not the SE(3) exponential: ToManifold(v) = (exp(v[:3]), v[3:]).
type RigidTransform struct{}

func (RigidTransform) Dim() int               { return 6 }
func (RigidTransform) Name() string           { return "rigid-transform" }
func (RigidTransform) Zero() spatial.Isometry { return spatial.Identity() }

func (RigidTransform) ToTangent(p spatial.Isometry) Vector {
	w := spatial.LogMap(p.R)
	return Vector{w[0], w[1], w[2], p.P[0], p.P[1], p.P[2]}
}

func (RigidTransform) ToManifold(v Vector) spatial.Isometry {
	return spatial.Isometry{
		R: spatial.ExpMapRot(mgl64.Vec3{v[0], v[1], v[2]}),
		P: mgl64.Vec3{v[3], v[4], v[5]},
	}
}

func (s RigidTransform) IntegratePosition(p spatial.Isometry, v Vector, dt float64) spatial.Isometry {
	step := make(Vector, 6)
	for i := range step {
		step[i] = v[i] * dt
	}
	return p.Mul(s.ToManifold(step))
}
