package controllers

import (
	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// None commands zero on every DOF.
type None struct{}

func NewNone() *None {
	return &None{}
}

func (n *None) Compute(skel *dynamics.Skeleton, t float64) sim.Control {
	return make(sim.Control, skel.NumDofs())
}
