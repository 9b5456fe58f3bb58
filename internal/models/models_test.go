package models

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/integrators"
	"github.com/san-kum/multibody/internal/sim"
)

func build(tb testing.TB, m Model) *dynamics.Skeleton {
	tb.Helper()
	skel, err := m.Build()
	if err != nil {
		tb.Fatalf("build %s: %v", m.Name(), err)
	}
	return skel
}

func setState(tb testing.TB, skel *dynamics.Skeleton, x sim.State, u sim.Control) {
	tb.Helper()
	q, v := x.Split(skel.NumDofs())
	if err := skel.SetPositions(q); err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
	if err := skel.SetVelocities(v); err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
	cmd := make([]float64, skel.NumDofs())
	copy(cmd, u)
	if err := skel.SetCommands(cmd); err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
}

// checkReference compares forward dynamics with the closed-form model.
func checkReference(t *testing.T, ref Reference, states []sim.State, controls []sim.Control, tol float64) {
	t.Helper()
	skel := build(t, ref)
	n := skel.NumDofs()
	for i, x := range states {
		setState(t, skel, x, controls[i])
		skel.ComputeForwardDynamics()

		want := ref.Derivative(x, controls[i])[n:]
		got := skel.Accelerations()
		for k := range want {
			if math.Abs(got[k]-want[k]) > tol*math.Max(1, math.Abs(want[k])) {
				t.Errorf("state %v, control %v, dof %d: expected acceleration %v, got %v", x, controls[i], k, want[k], got[k])
			}
		}
	}
}

func TestApplyParams(t *testing.T) {
	p := NewPendulum()
	if err := ApplyParams(p, map[string]float64{"mass": 2, "length": 0.5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Mass != 2 || p.Length != 0.5 {
		t.Errorf("expected mass 2 and length 0.5, got %v and %v", p.Mass, p.Length)
	}

	tests := []struct {
		name   string
		params map[string]float64
		want   error
	}{
		{"unknown", map[string]float64{"spin": 1}, ErrUnknownParam},
		{"nan", map[string]float64{"mass": math.NaN()}, ErrInvalidParam},
		{"inf", map[string]float64{"length": math.Inf(1)}, ErrInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ApplyParams(NewPendulum(), tt.params); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParamNames(t *testing.T) {
	got := ParamNames(NewDoublePendulum())
	want := []string{"gravity", "l1", "l2", "m1", "m2", "theta1", "theta2"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}

func TestInvalidParamsRejected(t *testing.T) {
	tests := []struct {
		name  string
		model Model
		set   map[string]float64
	}{
		{"pendulum mass", NewPendulum(), map[string]float64{"mass": 0}},
		{"pendulum length", NewPendulum(), map[string]float64{"length": -1}},
		{"double pendulum", NewDoublePendulum(), map[string]float64{"l2": 0}},
		{"chain links", NewChain(), map[string]float64{"links": 0}},
		{"chain fractional links", NewChain(), map[string]float64{"links": 2.5}},
		{"cartpole track", NewCartPole(), map[string]float64{"track": -1}},
		{"ball radius", NewBallPendulum(), map[string]float64{"radius": 0}},
		{"drone inertia", NewDrone(), map[string]float64{"inertia": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ApplyParams(tt.model, tt.set); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := tt.model.Build(); !errors.Is(err, ErrInvalidParam) {
				t.Errorf("expected ErrInvalidParam, got %v", err)
			}
		})
	}
}

func TestBuildHonoursOptions(t *testing.T) {
	moon := mgl64.Vec3{0, 0, -1.62}
	skel, err := NewPendulum().Build(dynamics.WithGravity(moon))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skel.Gravity() != moon {
		t.Errorf("expected gravity %v, got %v", moon, skel.Gravity())
	}

	p := NewPendulum()
	p.Gravity = 3
	if g := build(t, p).Gravity(); g != (mgl64.Vec3{0, 0, -3}) {
		t.Errorf("expected the model gravity, got %v", g)
	}
}

func TestPendulumMatchesReference(t *testing.T) {
	p := NewPendulum()
	p.Damping = 0
	p.Mass, p.Length = 2, 0.7

	checkReference(t, p,
		[]sim.State{{0, 0}, {math.Pi / 2, 0}, {0.3, -1.2}, {-2, 4}},
		[]sim.Control{nil, nil, {1.5}, {-0.5}},
		1e-9)
}

func TestPendulumEquilibrium(t *testing.T) {
	p := NewPendulum()
	p.Theta = 0
	skel := build(t, p)
	skel.ComputeForwardDynamics()
	if a := skel.Accelerations()[0]; math.Abs(a) > 1e-12 {
		t.Errorf("expected zero acceleration at equilibrium, got %v", a)
	}
}

func TestPendulumDampingIsImplicit(t *testing.T) {
	p := NewPendulum()
	skel := build(t, p)
	x := sim.State{0.4, 2}
	setState(t, skel, x, nil)
	skel.ComputeForwardDynamics()

	want := p.Derivative(x, nil)[1]
	if got := skel.Accelerations()[0]; math.Abs(got-want) > 1e-2 {
		t.Errorf("expected acceleration near %v, got %v", want, got)
	}
}

func TestDoublePendulumMatchesReference(t *testing.T) {
	d := NewDoublePendulum()
	d.M1, d.M2, d.L1, d.L2 = 1.5, 0.5, 1.0, 0.6

	checkReference(t, d,
		[]sim.State{{0, 0, 0, 0}, {1.5, 0, 0, 0}, {0.4, -0.7, 1.1, -2.3}, {2.5, 1, -3, 0.5}},
		[]sim.Control{nil, nil, {0.5, -1}, {2, 0}},
		1e-9)
}

func TestDoublePendulumEnergy(t *testing.T) {
	d := NewDoublePendulum()
	skel := build(t, d)
	x := sim.State{0.4, -0.7, 1.1, -2.3}
	setState(t, skel, x, nil)

	got := skel.KineticEnergy() + skel.PotentialEnergy()
	if want := d.Energy(x); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected energy %v, got %v", want, got)
	}
}

func TestCartPoleMatchesReference(t *testing.T) {
	c := NewCartPole()
	checkReference(t, c,
		[]sim.State{{0, 0, 0, 0}, {0.5, 0.1, 0, 0}, {-1, -0.8, 0.3, 2}, {0, math.Pi, -1, 0.5}},
		[]sim.Control{nil, {1}, {-2, 0.1}, {0.5, 0}},
		1e-9)
}

func TestCartPoleTrack(t *testing.T) {
	skel := build(t, NewCartPole())
	rail, err := skel.JointByName("rail")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lo, hi := rail.PositionLimits(0); lo != -2.4 || hi != 2.4 {
		t.Errorf("expected track limits ±2.4, got %v, %v", lo, hi)
	}

	c := NewCartPole()
	c.Track = 0
	rail, err = build(t, c).JointByName("rail")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lo, hi := rail.PositionLimits(0); !math.IsInf(lo, -1) || !math.IsInf(hi, 1) {
		t.Errorf("expected an unbounded rail, got %v, %v", lo, hi)
	}
}

func TestChainBuild(t *testing.T) {
	c := NewChain()
	c.Links = 3
	skel := build(t, c)

	if n := skel.NumDofs(); n != 3 {
		t.Fatalf("expected 3 DOFs, got %d", n)
	}
	q := skel.Positions()
	if q[0] != c.Theta || q[1] != 0 || q[2] != 0 {
		t.Errorf("expected [%v 0 0], got %v", c.Theta, q)
	}
	if err := skel.CheckIndexingConsistency(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := skel.BodyByName("link2"); err != nil {
		t.Errorf("expected link2, got %v", err)
	}
}

func TestBallPendulumConservesEnergy(t *testing.T) {
	skel := build(t, NewBallPendulum())
	s := sim.New(skel, integrators.NewRK4(), nil)

	result, err := s.Run(context.Background(), sim.Config{Dt: 1e-3, Duration: 2})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.EnergyDrift > 1e-6 {
		t.Errorf("expected energy conserved, drift %e", result.EnergyDrift)
	}
	// the swing leaves the initial plane
	if q := skel.Positions(); math.Abs(q[1]) < 1e-3 && math.Abs(q[2]) < 1e-3 {
		t.Errorf("expected out-of-plane motion, got %v", q)
	}
}

func TestDroneHover(t *testing.T) {
	d := NewDrone()
	skel := build(t, d)
	hover := d.HoverThrust()
	if err := skel.SetCommands(d.Thrust(hover, hover)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	skel.ComputeForwardDynamics()

	for i, a := range skel.Accelerations() {
		if math.Abs(a) > 1e-9 {
			t.Errorf("dof %d: expected no acceleration while hovering, got %v", i, a)
		}
	}
}

func TestDroneFreefall(t *testing.T) {
	d := NewDrone()
	d.DragCoeff, d.AngDrag = 0, 0
	skel := build(t, d)

	s := sim.New(skel, integrators.NewRK4(), nil)
	if _, err := s.Run(context.Background(), sim.Config{Dt: 1e-3, Duration: 0.5}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	wantZ := d.Altitude - 0.5*d.Gravity*0.25
	if z := skel.Positions()[5]; math.Abs(z-wantZ) > 1e-6 {
		t.Errorf("expected altitude %v, got %v", wantZ, z)
	}
	if vz := skel.Velocities()[5]; math.Abs(vz+d.Gravity*0.5) > 1e-6 {
		t.Errorf("expected vertical speed %v, got %v", -d.Gravity*0.5, vz)
	}
}

func TestDroneMatchesPlanarModel(t *testing.T) {
	d := NewDrone()
	d.DragCoeff, d.AngDrag = 0, 0
	skel := build(t, d)

	theta, left, right := 0.3, 3.0, 5.0
	if err := skel.SetPositions([]float64{0, theta, 0, 0, 0, d.Altitude}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := skel.SetCommands(d.Thrust(left, right)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	skel.ComputeForwardDynamics()

	ref := d.PlanarDerivative(sim.State{0, d.Altitude, theta, 0, 0, 0}, left, right)
	ax, az, alpha := ref[3], ref[4], ref[5]
	s, c := math.Sin(theta), math.Cos(theta)
	// body-frame accelerations
	want := []float64{0, alpha, 0, c*ax - s*az, 0, s*ax + c*az}

	for i, a := range skel.Accelerations() {
		if math.Abs(a-want[i]) > 1e-9 {
			t.Errorf("dof %d: expected %v, got %v", i, want[i], a)
		}
	}
}

func TestDroneThrustClipsNegative(t *testing.T) {
	d := NewDrone()
	u := d.Thrust(-1, 2)
	if u[5] != 2 {
		t.Errorf("expected total thrust 2, got %v", u[5])
	}
	if want := -2 * d.ArmLength; u[1] != want {
		t.Errorf("expected pitch torque %v, got %v", want, u[1])
	}
}
