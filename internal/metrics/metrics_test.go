package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/integrators"
	"github.com/san-kum/multibody/internal/sim"
	"github.com/san-kum/multibody/internal/spatial"
)

const g0 = 9.81

// pendulum is a unit point mass on a unit rod hanging from the origin.
func pendulum(tb testing.TB, theta float64) *dynamics.Skeleton {
	tb.Helper()
	props := dynamics.DefaultJointProperties(1)
	props.Name = "hinge"
	props.InitialPositions = []float64{theta}
	props.ChildToJoint = spatial.Translation(mgl64.Vec3{0, 0, 1})
	j, err := dynamics.NewRevoluteJoint(props, mgl64.Vec3{0, -1, 0})
	if err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
	skel := dynamics.NewSkeleton("pendulum")
	body := dynamics.BodyNodeProperties{Name: "bob", Mass: 1, GravityMode: true}
	if _, err := skel.CreateJointAndBodyNodePair(dynamics.BodyID{}, j, body); err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
	return skel
}

func TestEnergy(t *testing.T) {
	m := NewEnergy()

	theta, omega := math.Pi/4, 2.0
	skel := pendulum(t, theta)
	if err := skel.SetVelocities([]float64{omega}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.Observe(skel, nil, 0)
	expected := 0.5*omega*omega - g0*math.Cos(theta)
	if math.Abs(m.Value()-expected) > 1e-9 {
		t.Errorf("expected energy %f, got %f", expected, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Errorf("expected zero after reset, got %f", m.Value())
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift()
	skel := pendulum(t, 0)

	m.Observe(skel, nil, 0)
	if m.Value() != 0 {
		t.Errorf("expected no drift on the first sample, got %v", m.Value())
	}

	if err := skel.SetVelocities([]float64{1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Observe(skel, nil, 0.1)
	// E0 = -g, E1 = -g + 1/2
	want := 0.5 / g0
	if math.Abs(m.Value()-want) > 1e-9 {
		t.Errorf("expected drift %v, got %v", want, m.Value())
	}

	// the maximum sticks
	if err := skel.SetVelocities([]float64{0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Observe(skel, nil, 0.2)
	if math.Abs(m.Value()-want) > 1e-9 {
		t.Errorf("expected drift %v to persist, got %v", want, m.Value())
	}
}

func TestEnergyDriftOfSimulation(t *testing.T) {
	skel := pendulum(t, 0.5)
	drift := NewEnergyDrift()
	s := sim.New(skel, integrators.NewRK4(), nil)
	s.AddMetric(drift)

	result, err := s.Run(context.Background(), sim.Config{Dt: 1e-3, Duration: 2})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if v := result.Metrics["energy_drift"]; v > 1e-8 {
		t.Errorf("expected rk4 to conserve energy, drift %e", v)
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()

	m.Observe(nil, sim.Control{1, -3}, 0)
	m.Observe(nil, sim.Control{0, 1}, 0.1)
	if got := m.Value(); got != 2.5 {
		t.Errorf("expected mean effort 2.5, got %v", got)
	}
	if got := m.PerDof(); len(got) != 2 || got[0] != 0.5 || got[1] != 2 {
		t.Errorf("expected per-dof effort [0.5 2], got %v", got)
	}
	if got := m.Peak(); got != 3 {
		t.Errorf("expected peak 3, got %v", got)
	}

	m.Reset()
	if got := m.Value(); got != 0 {
		t.Errorf("expected 0 after reset, got %v", got)
	}
	if got := m.PerDof(); len(got) != 0 {
		t.Errorf("expected no per-dof effort after reset, got %v", got)
	}
}

func TestControlEffortIgnoresExtraCommands(t *testing.T) {
	m := NewControlEffort()
	skel := pendulum(t, 0)

	m.Observe(skel, sim.Control{-2, 7}, 0)
	if got := m.Value(); got != 2 {
		t.Errorf("expected effort 2, got %v", got)
	}
	if got := m.Peak(); got != 2 {
		t.Errorf("expected peak 2, got %v", got)
	}
}

func TestStability(t *testing.T) {
	m := NewStability(1.0)
	skel := pendulum(t, 0)

	if m.Value() != 1 {
		t.Errorf("expected 1 with no samples, got %v", m.Value())
	}
	m.Observe(skel, nil, 0)
	if err := skel.SetVelocities([]float64{5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Observe(skel, nil, 0.1)
	if got := m.Value(); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
}

func TestCOMHeight(t *testing.T) {
	m := NewCOMHeight()
	skel := pendulum(t, math.Pi/3)
	m.Observe(skel, nil, 0)
	if want := -0.5; math.Abs(m.Value()-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, m.Value())
	}
	if err := skel.SetPositions([]float64{0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Observe(skel, nil, 0.1)
	if want := -1.0; math.Abs(m.Value()-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, m.Value())
	}
}
