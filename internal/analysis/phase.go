package analysis

import (
	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/sim"
)

var ErrBadDof = errors.New("dof index out of range")

// Point is one sample of a phase portrait.
type Point struct {
	Q, V float64
}

// Portrait extracts the (q, v) trajectory of DOF dof from states recorded for
// a skeleton with n DOFs.
func Portrait(states []sim.State, n, dof int) ([]Point, error) {
	if dof < 0 || dof >= n {
		return nil, errors.Wrapf(ErrBadDof, "dof %d of %d", dof, n)
	}
	out := make([]Point, 0, len(states))
	for _, s := range states {
		if len(s) != 2*n {
			return nil, errors.Errorf("state has %d entries, expected %d", len(s), 2*n)
		}
		out = append(out, Point{Q: s[dof], V: s[n+dof]})
	}
	return out, nil
}

// Crossing is a linearly interpolated state at which the watched DOF passes
// upward through the section level.
type Crossing struct {
	Time  float64
	State sim.State
}

// Section records every upward crossing of q[dof] through level.
func Section(states []sim.State, times []float64, n, dof int, level float64) ([]Crossing, error) {
	if dof < 0 || dof >= n {
		return nil, errors.Wrapf(ErrBadDof, "dof %d of %d", dof, n)
	}
	if len(times) != len(states) {
		return nil, errors.Errorf("%d times for %d states", len(times), len(states))
	}

	var out []Crossing
	for i := 1; i < len(states); i++ {
		prev, cur := states[i-1][dof], states[i][dof]
		if !(prev < level && cur >= level) {
			continue
		}
		frac := (level - prev) / (cur - prev)
		s := make(sim.State, len(states[i]))
		for k := range s {
			s[k] = states[i-1][k] + frac*(states[i][k]-states[i-1][k])
		}
		out = append(out, Crossing{
			Time:  times[i-1] + frac*(times[i]-times[i-1]),
			State: s,
		})
	}
	return out, nil
}

// Period is the mean interval between consecutive crossings, or zero when
// there are fewer than two.
func Period(crossings []Crossing) float64 {
	if len(crossings) < 2 {
		return 0
	}
	return (crossings[len(crossings)-1].Time - crossings[0].Time) / float64(len(crossings)-1)
}
