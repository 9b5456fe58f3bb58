package spatial

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func approxVec6(a, b Vec6, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestExpLogRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		w    mgl64.Vec3
	}{
		{"zero", mgl64.Vec3{}},
		{"tiny", mgl64.Vec3{1e-9, -2e-9, 0}},
		{"x quarter", mgl64.Vec3{math.Pi / 2, 0, 0}},
		{"oblique", mgl64.Vec3{0.3, -1.1, 0.7}},
		{"near pi", mgl64.Vec3{0, 0, math.Pi - 1e-4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ExpMapRot(tt.w)
			got := LogMap(r)
			if !got.ApproxEqualThreshold(tt.w, 1e-9) {
				t.Errorf("expected %v, got %v", tt.w, got)
			}
			back := ExpMapRot(got)
			for i := 0; i < 9; i++ {
				if math.Abs(back[i]-r[i]) > 1e-10 {
					t.Fatalf("expected %v, got %v", r, back)
				}
			}
		})
	}
}

func TestLogMapAtPi(t *testing.T) {
	r := ExpMapRot(mgl64.Vec3{0, math.Pi, 0})
	w := LogMap(r)
	if math.Abs(w.Len()-math.Pi) > 1e-9 {
		t.Errorf("expected angle pi, got %v", w.Len())
	}
	back := ExpMapRot(w)
	for i := 0; i < 9; i++ {
		if math.Abs(back[i]-r[i]) > 1e-9 {
			t.Fatalf("expected %v, got %v", r, back)
		}
	}
}

func TestIsometryInverse(t *testing.T) {
	tr := Isometry{R: ExpMapRot(mgl64.Vec3{0.2, 0.4, -0.3}), P: mgl64.Vec3{1, -2, 0.5}}
	id := tr.Mul(tr.Inverse())
	if !id.ApproxEqual(Identity(), 1e-12) {
		t.Errorf("expected identity, got %+v", id)
	}
	if !tr.IsRigid(1e-9) {
		t.Error("expected rigid transform")
	}

	bad := tr
	bad.R = bad.R.Mul(2)
	if bad.IsRigid(1e-9) {
		t.Error("expected scaled rotation to be rejected")
	}

	m := tr.Mat4()
	if !FromMat4(m).ApproxEqual(tr, 1e-15) {
		t.Error("Mat4 round trip changed the transform")
	}
}

func TestAdjointDuality(t *testing.T) {
	tr := Isometry{R: ExpMapRot(mgl64.Vec3{0.5, -0.1, 0.9}), P: mgl64.Vec3{0.3, 0.2, -1}}
	v := Vec6{0.1, 0.2, 0.3, -0.4, 0.5, 0.6}
	f := Vec6{1, -2, 3, 0.5, 0.25, -1}

	if got := AdInvT(tr, AdT(tr, v)); !approxVec6(got, v, 1e-12) {
		t.Errorf("expected %v, got %v", v, got)
	}

	// power is frame independent: <F_P, V_P> == <F_C, V_C>
	vc := AdInvT(tr, v)
	fp := DAdInvT(tr, f)
	if math.Abs(fp.Dot(v)-f.Dot(vc)) > 1e-12 {
		t.Errorf("power mismatch: %v vs %v", fp.Dot(v), f.Dot(vc))
	}

	if got := DAdT(tr, DAdInvT(tr, f)); !approxVec6(got, f, 1e-12) {
		t.Errorf("expected %v, got %v", f, got)
	}

	x := AdTMatrix(tr)
	if got := x.MulVec(v); !approxVec6(got, AdT(tr, v), 1e-12) {
		t.Errorf("matrix form disagrees: %v vs %v", got, AdT(tr, v))
	}
}

func TestDadIsAdTranspose(t *testing.T) {
	v := Vec6{0.3, -0.2, 0.1, 1, 2, -1}
	w := Vec6{-0.5, 0.4, 0.2, 0.1, -0.3, 0.7}
	f := Vec6{2, 1, -1, 0.5, -0.5, 3}

	// <dad(V, F), W> == <F, ad(V, W)>
	lhs := Dad(v, f).Dot(w)
	rhs := f.Dot(Ad(v, w))
	if math.Abs(lhs-rhs) > 1e-12 {
		t.Errorf("expected %v, got %v", rhs, lhs)
	}
}

func TestSpatialInertiaKineticEnergy(t *testing.T) {
	mass := 2.0
	com := mgl64.Vec3{0, 0, -1}
	g := SpatialInertia(mass, com, mgl64.Mat3{})

	// point mass at com spinning about x at 1 rad/s moves at 1 m/s
	v := Vec6{1, 0, 0, 0, 0, 0}
	ke := 0.5 * v.Dot(g.MulVec(v))
	if math.Abs(ke-1.0) > 1e-12 {
		t.Errorf("expected 1.0, got %v", ke)
	}
}

func TestTransformInertiaMatchesShiftedBody(t *testing.T) {
	mass := 1.5
	ic := mgl64.Diag3(mgl64.Vec3{0.1, 0.2, 0.3})
	child := SpatialInertia(mass, mgl64.Vec3{}, ic)

	// child frame sits 2 m along z in the parent
	tr := Translation(mgl64.Vec3{0, 0, 2})
	got := TransformInertia(tr.Inverse(), child)
	want := SpatialInertia(mass, mgl64.Vec3{0, 0, 2}, ic)
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			if math.Abs(got[r][c]-want[r][c]) > 1e-12 {
				t.Fatalf("entry (%d,%d): expected %v, got %v", r, c, want[r][c], got[r][c])
			}
		}
	}
}
