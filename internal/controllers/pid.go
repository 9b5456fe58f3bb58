package controllers

import (
	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// PID drives every DOF toward its target position independently. The
// derivative term acts on the measured velocity, so target changes do not
// kick the output.
type PID struct {
	Kp      float64
	Ki      float64
	Kd      float64
	Targets []float64

	integral []float64
	prevT    float64
	first    bool
}

// NewPID returns a PID controller; DOFs past the end of targets aim for
// zero.
func NewPID(kp, ki, kd float64, targets []float64) *PID {
	return &PID{
		Kp:      kp,
		Ki:      ki,
		Kd:      kd,
		Targets: targets,
		first:   true,
	}
}

func (p *PID) Reset() {
	p.integral = nil
	p.first = true
}

func (p *PID) Compute(skel *dynamics.Skeleton, t float64) sim.Control {
	q, v := skel.Positions(), skel.Velocities()
	n := len(q)
	if len(p.integral) != n {
		p.integral = make([]float64, n)
	}

	dt := 0.0
	if !p.first {
		dt = t - p.prevT
	}
	p.first = false
	p.prevT = t

	u := make(sim.Control, n)
	for i := range u {
		target := 0.0
		if i < len(p.Targets) {
			target = p.Targets[i]
		}
		err := target - q[i]
		if dt > 0 {
			p.integral[i] += err * dt
		}
		u[i] = p.Kp*err + p.Ki*p.integral[i] - p.Kd*v[i]
	}
	return u
}
