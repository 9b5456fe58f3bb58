package metrics

import (
	"math"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// ControlEffort is the mean over steps of Σ|uᵢ|, where uᵢ is the command
// the controller issued for skeleton DOF i. The per-DOF means and the
// largest single command are kept alongside.
type ControlEffort struct {
	name    string
	sum     float64
	perDof  []float64
	peak    float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

// Observe accumulates u. Commands beyond the skeleton's DOF count are
// ignored.
func (c *ControlEffort) Observe(skel *dynamics.Skeleton, u sim.Control, t float64) {
	n := len(u)
	if skel != nil {
		n = min(n, skel.NumDofs())
	}
	if len(c.perDof) < n {
		c.perDof = append(c.perDof, make([]float64, n-len(c.perDof))...)
	}
	for i, val := range u[:n] {
		a := math.Abs(val)
		c.sum += a
		c.perDof[i] += a
		c.peak = math.Max(c.peak, a)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

// PerDof returns the mean |uᵢ| of each DOF over the observed steps.
func (c *ControlEffort) PerDof() []float64 {
	out := make([]float64, len(c.perDof))
	if c.samples == 0 {
		return out
	}
	for i, s := range c.perDof {
		out[i] = s / float64(c.samples)
	}
	return out
}

// Peak is the largest |uᵢ| seen.
func (c *ControlEffort) Peak() float64 {
	return c.peak
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.perDof = c.perDof[:0]
	c.peak = 0
	c.samples = 0
}
