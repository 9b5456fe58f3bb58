package controllers

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// LQR is full-state feedback u = −K·(x − x*) with x = q‖q̇.
type LQR struct {
	K      *mat.Dense
	Target sim.State
}

func NewLQR(k *mat.Dense, target sim.State) *LQR {
	return &LQR{K: k, Target: target}
}

func (l *LQR) Compute(skel *dynamics.Skeleton, t float64) sim.Control {
	x := sim.Capture(skel)
	rows, cols := l.K.Dims()
	if cols != len(x) {
		return make(sim.Control, rows)
	}

	dx := mat.NewVecDense(len(x), nil)
	for j := range x {
		target := 0.0
		if j < len(l.Target) {
			target = l.Target[j]
		}
		dx.SetVec(j, x[j]-target)
	}

	var u mat.VecDense
	u.MulVec(l.K, dx)
	u.ScaleVec(-1, &u)
	return sim.Control(u.RawVector().Data)
}

const (
	riccatiMaxIter = 20000
	riccatiTol     = 1e-9
	linearizeEps   = 1e-6
)

// Linearize returns A and B of ẋ ≈ A·(x − x0) + B·(u − u0) by central
// differences of forward dynamics. The skeleton's configuration is
// restored before returning. A nil u0 means zero commands.
func Linearize(skel *dynamics.Skeleton, x0 sim.State, u0 sim.Control) (a, b *mat.Dense, err error) {
	n := skel.NumDofs()
	if n == 0 {
		return nil, nil, errors.Wrap(ErrDimensionMismatch, "skeleton has no DOFs")
	}
	if len(x0) != 2*n {
		return nil, nil, errors.Wrapf(ErrDimensionMismatch, "state has %d entries for %d DOFs", len(x0), n)
	}
	if u0 == nil {
		u0 = make(sim.Control, n)
	}
	if len(u0) != n {
		return nil, nil, errors.Wrapf(ErrDimensionMismatch, "control has %d entries for %d DOFs", len(u0), n)
	}

	snap := skel.Configuration()
	defer func() {
		if rerr := skel.SetConfiguration(snap); rerr != nil && err == nil {
			err = errors.Wrap(rerr, "restore configuration")
		}
	}()

	accel := func(x sim.State, u sim.Control) ([]float64, error) {
		q, v := x.Split(n)
		if err := skel.SetPositions(q); err != nil {
			return nil, err
		}
		if err := skel.SetVelocities(v); err != nil {
			return nil, err
		}
		if err := skel.SetCommands(u); err != nil {
			return nil, err
		}
		skel.ComputeForwardDynamics()
		return skel.Accelerations(), nil
	}

	a = mat.NewDense(2*n, 2*n, nil)
	b = mat.NewDense(2*n, n, nil)
	for i := 0; i < n; i++ {
		a.Set(i, n+i, 1)
	}

	x := x0.Clone()
	for j := range x {
		x[j] = x0[j] + linearizeEps
		plus, err := accel(x, u0)
		if err != nil {
			return nil, nil, err
		}
		x[j] = x0[j] - linearizeEps
		minus, err := accel(x, u0)
		if err != nil {
			return nil, nil, err
		}
		x[j] = x0[j]
		for i := 0; i < n; i++ {
			a.Set(n+i, j, (plus[i]-minus[i])/(2*linearizeEps))
		}
	}

	u := append(sim.Control(nil), u0...)
	for k := range u {
		u[k] = u0[k] + linearizeEps
		plus, err := accel(x0, u)
		if err != nil {
			return nil, nil, err
		}
		u[k] = u0[k] - linearizeEps
		minus, err := accel(x0, u)
		if err != nil {
			return nil, nil, err
		}
		u[k] = u0[k]
		for i := 0; i < n; i++ {
			b.Set(n+i, k, (plus[i]-minus[i])/(2*linearizeEps))
		}
	}
	return a, b, nil
}

// DesignLQR linearizes skel about target with zero commands and solves the
// discrete Riccati equation for the sample time dt. q and r are the
// diagonals of the state and control weights.
func DesignLQR(skel *dynamics.Skeleton, target sim.State, q, r []float64, dt float64) (*LQR, error) {
	n := skel.NumDofs()
	if len(q) != 2*n || len(r) != n {
		return nil, errors.Wrapf(ErrDimensionMismatch, "weights %d/%d for %d DOFs", len(q), len(r), n)
	}
	a, b, err := Linearize(skel, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "linearize")
	}

	// zero-order hold to first order
	ad := mat.NewDense(2*n, 2*n, nil)
	ad.Scale(dt, a)
	for i := 0; i < 2*n; i++ {
		ad.Set(i, i, ad.At(i, i)+1)
	}
	bd := mat.NewDense(2*n, n, nil)
	bd.Scale(dt, b)

	k, err := solveRiccati(ad, bd, diag(q), diag(r))
	if err != nil {
		return nil, err
	}
	return NewLQR(k, target.Clone()), nil
}

func diag(d []float64) *mat.Dense {
	m := mat.NewDense(len(d), len(d), nil)
	for i, v := range d {
		m.Set(i, i, v)
	}
	return m
}

// solveRiccati iterates P ← Q + AᵀPA − AᵀPB·K with K = (R + BᵀPB)⁻¹·BᵀPA
// until P settles and returns K.
func solveRiccati(a, b, q, r *mat.Dense) (*mat.Dense, error) {
	p := mat.DenseCopyOf(q)
	var pa, pb, s, bpa, k, next, apb, corr, diff mat.Dense
	for iter := 0; iter < riccatiMaxIter; iter++ {
		pa.Mul(p, a)
		pb.Mul(p, b)
		s.Mul(b.T(), &pb)
		s.Add(&s, r)
		bpa.Mul(b.T(), &pa)
		if err := k.Solve(&s, &bpa); err != nil {
			return nil, errors.Wrap(err, "riccati gain")
		}

		next.Mul(a.T(), &pa)
		apb.Mul(a.T(), &pb)
		corr.Mul(&apb, &k)
		next.Sub(&next, &corr)
		next.Add(&next, q)

		diff.Sub(&next, p)
		p = mat.DenseCopyOf(&next)
		if mat.Norm(&diff, math.Inf(1)) < riccatiTol*math.Max(1, mat.Norm(p, math.Inf(1))) {
			return mat.DenseCopyOf(&k), nil
		}
	}
	return nil, errors.Wrapf(ErrNotConverged, "after %d iterations", riccatiMaxIter)
}
