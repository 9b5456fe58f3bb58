package spatial

import "github.com/go-gl/mathgl/mgl64"

// AdT maps a twist expressed in the frame T into the frame T is expressed in.
func AdT(t Isometry, v Vec6) Vec6 {
	w := t.R.Mul3x1(v.Angular())
	lin := t.R.Mul3x1(v.Linear()).Add(t.P.Cross(w))
	return NewVec6(w, lin)
}

// AdInvT is AdT with the inverse of t: w' = Rᵀw, v' = Rᵀ(v − p×w).
func AdInvT(t Isometry, v Vec6) Vec6 {
	rt := t.R.Transpose()
	w := v.Angular()
	lin := v.Linear().Sub(t.P.Cross(w))
	return NewVec6(rt.Mul3x1(w), rt.Mul3x1(lin))
}

// AdR rotates both halves of v by R.
func AdR(t Isometry, v Vec6) Vec6 {
	return NewVec6(t.R.Mul3x1(v.Angular()), t.R.Mul3x1(v.Linear()))
}

// AdInvRLinear returns [0; Rᵀ·v].
func AdInvRLinear(t Isometry, v mgl64.Vec3) Vec6 {
	return NewVec6(mgl64.Vec3{}, t.R.Transpose().Mul3x1(v))
}

// DAdT is the dual adjoint Ad_Tᵀ: it pulls a wrench expressed in the outer
// frame into the frame T.
func DAdT(t Isometry, f Vec6) Vec6 {
	rt := t.R.Transpose()
	m := f.Angular().Sub(t.P.Cross(f.Linear()))
	return NewVec6(rt.Mul3x1(m), rt.Mul3x1(f.Linear()))
}

// DAdInvT pushes a wrench expressed in frame T out to the frame T is
// expressed in: m' = Rm + p×(Rf), f' = Rf.
func DAdInvT(t Isometry, f Vec6) Vec6 {
	rf := t.R.Mul3x1(f.Linear())
	m := t.R.Mul3x1(f.Angular()).Add(t.P.Cross(rf))
	return NewVec6(m, rf)
}

// Ad is the Lie bracket of twists: [w1×w2; w1×v2 + v1×w2].
func Ad(v, w Vec6) Vec6 {
	w1, v1 := v.Angular(), v.Linear()
	w2, v2 := w.Angular(), w.Linear()
	return NewVec6(w1.Cross(w2), w1.Cross(v2).Add(v1.Cross(w2)))
}

// Dad is the dual bracket adᵀ: [−w×m − v×f; −w×f] with f = [m; f].
func Dad(v, f Vec6) Vec6 {
	w, lin := v.Angular(), v.Linear()
	m, force := f.Angular(), f.Linear()
	return NewVec6(
		w.Cross(m).Add(lin.Cross(force)).Mul(-1),
		w.Cross(force).Mul(-1),
	)
}

// AdTMatrix returns the 6×6 matrix of AdT(t, ·).
func AdTMatrix(t Isometry) Mat6 {
	pr := Skew(t.P).Mul3(t.R)
	var x Mat6
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			x[r][c] = t.R.At(r, c)
			x[r+3][c] = pr.At(r, c)
			x[r+3][c+3] = t.R.At(r, c)
		}
	}
	return x
}

// TransformInertia returns Ad_Tᵀ·I·Ad_T. Called with the inverse of a
// parent-to-child transform it moves a child inertia into the parent frame.
func TransformInertia(t Isometry, inertia Mat6) Mat6 {
	x := AdTMatrix(t)
	return x.Transpose().Mul(inertia).Mul(x)
}
