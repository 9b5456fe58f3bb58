package configspace

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var ErrSingular = errors.New("configspace: matrix is singular")

// closedFormLimit is the largest dimension inverted through the adjugate.
const closedFormLimit = 4

// Inverse inverts a square Dim×Dim matrix. Small matrices use the
// closed-form adjugate; larger ones a Cholesky factorization with LU as the
// fallback when the matrix is not positive definite. A 0×0 input yields an
// empty matrix.
func Inverse(m mat.Matrix) (*mat.Dense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.Errorf("configspace: cannot invert %dx%d matrix", r, c)
	}
	if r == 0 {
		return &mat.Dense{}, nil
	}
	if r <= closedFormLimit {
		return inverseClosedForm(m)
	}
	return inverseFactorized(m)
}

func inverseClosedForm(m mat.Matrix) (*mat.Dense, error) {
	n, _ := m.Dims()
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		for j := range a[i] {
			a[i][j] = m.At(i, j)
		}
	}

	det := determinant(a)
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return nil, errors.Wrapf(ErrSingular, "determinant %g", det)
	}

	inv := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			// adj(A)[i][j] = cofactor(A)[j][i]
			sign := 1.0
			if (i+j)%2 == 1 {
				sign = -1
			}
			inv.Set(i, j, sign*determinant(minor(a, j, i))/det)
		}
	}
	return inv, nil
}

func inverseFactorized(m mat.Matrix) (*mat.Dense, error) {
	n, _ := m.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	var chol mat.Cholesky
	if chol.Factorize(sym) {
		var symInv mat.SymDense
		if err := chol.InverseTo(&symInv); err == nil {
			inv := mat.NewDense(n, n, nil)
			inv.Copy(&symInv)
			return inv, nil
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, errors.Wrap(ErrSingular, err.Error())
	}
	return &inv, nil
}

func determinant(a [][]float64) float64 {
	switch len(a) {
	case 0:
		return 1
	case 1:
		return a[0][0]
	case 2:
		return a[0][0]*a[1][1] - a[0][1]*a[1][0]
	}
	det := 0.0
	sign := 1.0
	for j := range a[0] {
		if a[0][j] != 0 {
			det += sign * a[0][j] * determinant(minor(a, 0, j))
		}
		sign = -sign
	}
	return det
}

func minor(a [][]float64, row, col int) [][]float64 {
	out := make([][]float64, 0, len(a)-1)
	for i := range a {
		if i == row {
			continue
		}
		r := make([]float64, 0, len(a)-1)
		for j := range a[i] {
			if j != col {
				r = append(r, a[i][j])
			}
		}
		out = append(out, r)
	}
	return out
}
