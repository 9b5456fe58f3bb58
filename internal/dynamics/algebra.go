package dynamics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/multibody/internal/configspace"
	"github.com/san-kum/multibody/internal/spatial"
)

// jacobianTranspose returns Sᵀ·f.
func jacobianTranspose(s []spatial.Vec6, f spatial.Vec6) []float64 {
	out := make([]float64, len(s))
	for i, col := range s {
		out[i] = col.Dot(f)
	}
	return out
}

// jacobianTimes returns S·x.
func jacobianTimes(s []spatial.Vec6, x []float64) spatial.Vec6 {
	var out spatial.Vec6
	for i, col := range s {
		out = out.Add(col.Scale(x[i]))
	}
	return out
}

// projectInertia returns Sᵀ·AI·S plus diag on the diagonal when given.
func projectInertia(s []spatial.Vec6, ai spatial.Mat6, diag []float64) *mat.Dense {
	n := len(s)
	proj := mat.NewDense(n, n, nil)
	ais := make([]spatial.Vec6, n)
	for c := range s {
		ais[c] = ai.MulVec(s[c])
	}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			proj.Set(r, c, s[r].Dot(ais[c]))
		}
	}
	for i, d := range diag {
		proj.Set(i, i, proj.At(i, i)+d)
	}
	return proj
}

// invertProjected inverts a projected inertia. A singular projection yields
// the zero matrix so the joint transmits no motion.
func invertProjected(j *jointCore, proj *mat.Dense) *mat.Dense {
	inv, err := configspace.Inverse(proj)
	if err != nil {
		j.logger.Errorw("projected articulated inertia is singular", "joint", j.props.Name, "error", err)
		n, _ := proj.Dims()
		return mat.NewDense(n, n, nil)
	}
	return inv
}

// projectedRemainder returns AI − AI·S·Ψ·Sᵀ·AI.
func projectedRemainder(s []spatial.Vec6, ai spatial.Mat6, psi *mat.Dense) spatial.Mat6 {
	n := len(s)
	if n == 0 {
		return ai
	}
	ais := make([]spatial.Vec6, n)
	for c := range s {
		ais[c] = ai.MulVec(s[c])
	}
	out := ai
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			w := psi.At(a, b)
			if w == 0 {
				continue
			}
			for r := 0; r < 6; r++ {
				for c := 0; c < 6; c++ {
					out[r][c] -= ais[a][r] * w * ais[b][c]
				}
			}
		}
	}
	return out
}

// matVec returns m·x for a joint-space matrix.
func matVec(m *mat.Dense, x []float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	for r := 0; r < n; r++ {
		sum := 0.0
		for c := 0; c < n; c++ {
			sum += m.At(r, c) * x[c]
		}
		out[r] = sum
	}
	return out
}

func copyDense(m *mat.Dense, n int) *mat.Dense {
	if n == 0 {
		return &mat.Dense{}
	}
	if m == nil {
		return mat.NewDense(n, n, nil)
	}
	return mat.DenseCopyOf(m)
}

func sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}
