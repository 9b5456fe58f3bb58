package configspace

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/multibody/internal/spatial"
)

func TestRotationRoundTrip(t *testing.T) {
	space := Rotation{}
	tests := []Vector{
		{0, 0, 0},
		{0.1, 0, 0},
		{0.3, -0.7, 1.2},
		{0, 0, math.Pi - 1e-3},
		{-2.5, 0.4, 0.1},
	}

	for _, v := range tests {
		p := space.ToManifold(v)
		back := space.ToManifold(space.ToTangent(p))
		for i := 0; i < 9; i++ {
			if math.Abs(back[i]-p[i]) > 1e-10 {
				t.Fatalf("tangent %v: expected %v, got %v", v, p, back)
			}
		}
	}
}

func TestRigidTransformRoundTrip(t *testing.T) {
	space := RigidTransform{}
	p := spatial.Isometry{
		R: spatial.ExpMapRot(mgl64.Vec3{0.4, 0.2, -0.9}),
		P: mgl64.Vec3{1, 2, 3},
	}
	back := space.ToManifold(space.ToTangent(p))
	if !back.ApproxEqual(p, 1e-10) {
		t.Errorf("expected %+v, got %+v", p, back)
	}
}

func TestIntegrateVelocity(t *testing.T) {
	v := Vector{1, -2, 0.5}
	a := Vector{0.5, 0.5, -1}
	got := IntegrateVelocity(v, a, 0.1)
	want := Vector{1.05, -1.95, 0.4}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-15 {
			t.Errorf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if v[0] != 1 {
		t.Error("input vector was modified")
	}
}

func TestFlatIntegratePosition(t *testing.T) {
	space := Flat{N: 2}
	got := space.IntegratePosition(Vector{1, 2}, Vector{3, -4}, 0.5)
	if got[0] != 2.5 || got[1] != 0 {
		t.Errorf("expected [2.5 0], got %v", got)
	}
}

func TestRotationIntegratePosition(t *testing.T) {
	space := Rotation{}
	got := space.IntegratePosition(mgl64.Ident3(), Vector{0, 0, math.Pi / 2}, 1)

	want := mgl64.Rotate3DZ(math.Pi / 2)
	for i := 0; i < 9; i++ {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	rtr := got.Transpose().Mul3(got)
	id := mgl64.Ident3()
	for i := 0; i < 9; i++ {
		if math.Abs(rtr[i]-id[i]) > 1e-12 {
			t.Fatalf("result not orthonormal: %v", rtr)
		}
	}
	if math.Abs(got.Det()-1) > 1e-12 {
		t.Errorf("expected det 1, got %v", got.Det())
	}
}

func TestRigidTransformIntegrateIsBodyFrame(t *testing.T) {
	space := RigidTransform{}
	start := spatial.Isometry{R: mgl64.Rotate3DZ(math.Pi / 2), P: mgl64.Vec3{1, 0, 0}}
	// unit body-x velocity moves along world y after a quarter turn about z
	got := space.IntegratePosition(start, Vector{0, 0, 0, 1, 0, 0}, 1)
	want := mgl64.Vec3{1, 1, 0}
	if !got.P.ApproxEqualThreshold(want, 1e-12) {
		t.Errorf("expected %v, got %v", want, got.P)
	}
}

func spd(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Set(i, j, 1/float64(i+j+1))
		}
		m.Set(i, i, m.At(i, i)+float64(n))
	}
	return m
}

func TestInverseAgreement(t *testing.T) {
	for n := 1; n <= 6; n++ {
		m := spd(n)
		inv, err := Inverse(m)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}

		var prod mat.Dense
		prod.Mul(m, inv)
		if !mat.EqualApprox(&prod, eye(n), 1e-10) {
			t.Errorf("n=%d: M·M⁻¹ is not identity:\n%v", n, mat.Formatted(&prod))
		}

		if n <= closedFormLimit {
			closed, err := inverseClosedForm(m)
			if err != nil {
				t.Fatal(err)
			}
			factored, err := inverseFactorized(m)
			if err != nil {
				t.Fatal(err)
			}
			if !mat.EqualApprox(closed, factored, 1e-10) {
				t.Errorf("n=%d: closed form and factorized inverse disagree", n)
			}
		}
	}
}

func TestInverseSingular(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 2, 4})
	if _, err := Inverse(m); err == nil {
		t.Error("expected error for singular matrix")
	}
}

func TestInverseEmpty(t *testing.T) {
	inv, err := Inverse(&mat.Dense{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inv.IsEmpty() {
		t.Error("expected empty result")
	}
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
