package controllers

import (
	"sync"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// DefaultManualStep is the torque change per nudge.
const DefaultManualStep = 0.5

// Manual holds a user-set command per DOF until it is changed or cleared.
type Manual struct {
	mu   sync.Mutex
	u    sim.Control
	step float64
}

func NewManual(step float64) *Manual {
	if step <= 0 {
		step = DefaultManualStep
	}
	return &Manual{step: step}
}

// Nudge adds dir steps to the command on dof.
func (m *Manual) Nudge(dof int, dir float64) {
	if dof < 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.u) <= dof {
		m.u = append(m.u, 0)
	}
	m.u[dof] += dir * m.step
}

func (m *Manual) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.u = m.u[:0]
}

// Command returns the held command on dof.
func (m *Manual) Command(dof int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dof < 0 || dof >= len(m.u) {
		return 0
	}
	return m.u[dof]
}

func (m *Manual) Compute(skel *dynamics.Skeleton, t float64) sim.Control {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(sim.Control, skel.NumDofs())
	copy(out, m.u)
	return out
}
