package sim

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidState indicates NaN or Inf in the skeleton state.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	ErrInvalidConfig = errors.New("sim: invalid config")

	// ErrDimensionMismatch indicates a control of the wrong length.
	ErrDimensionMismatch = errors.New("sim: dimension mismatch between control and skeleton")

	// ErrDiverged indicates two ensemble members that should agree do not.
	ErrDiverged = errors.New("sim: ensemble runs diverged")
)

// StepError wraps an error with the step it happened on.
type StepError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
