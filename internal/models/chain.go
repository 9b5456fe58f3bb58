package models

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/dynamics"
)

// Chain is an n-link planar pendulum of equal point masses.
type Chain struct {
	Links   float64
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
	Theta   float64
}

func NewChain() *Chain {
	return &Chain{
		Links:   5,
		Mass:    DefaultMass,
		Length:  0.4,
		Damping: 0.01,
		Gravity: DefaultGravity,
		Theta:   1.0,
	}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Params() map[string]*float64 {
	return map[string]*float64{
		"links":   &c.Links,
		"mass":    &c.Mass,
		"length":  &c.Length,
		"damping": &c.Damping,
		"gravity": &c.Gravity,
		"theta":   &c.Theta,
	}
}

// Build hangs the links one below the other; only the top joint starts at
// Theta.
func (c *Chain) Build(opts ...dynamics.Option) (*dynamics.Skeleton, error) {
	if err := positive(c.Name(), map[string]float64{"links": c.Links, "mass": c.Mass, "length": c.Length}); err != nil {
		return nil, err
	}
	n := int(math.Round(c.Links))
	if float64(n) != c.Links {
		return nil, errors.Wrapf(ErrInvalidParam, "chain: links must be a whole number, got %v", c.Links)
	}

	skel := newSkeleton(c.Name(), c.Gravity, opts)
	var parent dynamics.BodyID
	for i := 0; i < n; i++ {
		q0 := 0.0
		if i == 0 {
			q0 = c.Theta
		}
		j, err := hinge(fmt.Sprintf("joint%d", i), c.Length, q0, c.Damping)
		if err != nil {
			return nil, err
		}
		if parent, err = skel.CreateJointAndBodyNodePair(parent, j, pointMass(fmt.Sprintf("link%d", i), c.Mass)); err != nil {
			return nil, errors.Wrapf(err, "link %d", i)
		}
	}
	return skel, nil
}
