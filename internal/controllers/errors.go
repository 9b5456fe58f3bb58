package controllers

import "github.com/pkg/errors"

var (
	ErrNotConverged = errors.New("controllers: riccati iteration did not converge")

	// ErrDimensionMismatch indicates a target or weight of the wrong size.
	ErrDimensionMismatch = errors.New("controllers: dimension mismatch")
)
