package metrics

import (
	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// COMHeight is the lowest center-of-mass height along gravity seen so far.
type COMHeight struct {
	name    string
	lowest  float64
	samples int
}

func NewCOMHeight() *COMHeight {
	return &COMHeight{name: "com_min_height"}
}

func (c *COMHeight) Name() string { return c.name }

func (c *COMHeight) Observe(skel *dynamics.Skeleton, u sim.Control, t float64) {
	g := skel.Gravity()
	var h float64
	if n := g.Len(); n > 0 {
		h = -skel.COM().Dot(g) / n
	}
	if c.samples == 0 || h < c.lowest {
		c.lowest = h
	}
	c.samples++
}

func (c *COMHeight) Value() float64 { return c.lowest }

func (c *COMHeight) Reset() {
	c.lowest = 0
	c.samples = 0
}
