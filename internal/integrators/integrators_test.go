package integrators

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
	"github.com/san-kum/multibody/internal/spatial"
)

const g0 = 9.81

func pendulum(tb testing.TB, joint func(dynamics.JointProperties) (dynamics.Joint, error), body dynamics.BodyNodeProperties, q0 []float64) *dynamics.Skeleton {
	tb.Helper()
	props := dynamics.DefaultJointProperties(len(q0))
	props.Name = "pivot"
	props.InitialPositions = q0
	props.ChildToJoint = spatial.Translation(mgl64.Vec3{0, 0, 1})
	j, err := joint(props)
	if err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
	skel := dynamics.NewSkeleton("pendulum")
	if _, err := skel.CreateJointAndBodyNodePair(dynamics.BodyID{}, j, body); err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
	return skel
}

func hinge(props dynamics.JointProperties) (dynamics.Joint, error) {
	return dynamics.NewRevoluteJoint(props, mgl64.Vec3{0, -1, 0})
}

func ball(props dynamics.JointProperties) (dynamics.Joint, error) {
	return dynamics.NewBallJoint(props)
}

func pointMass() dynamics.BodyNodeProperties {
	return dynamics.BodyNodeProperties{Name: "bob", Mass: 1, GravityMode: true}
}

// referencePendulum integrates θ'' = -(g/L)·sin θ for a unit point mass
// on a unit rod with a much finer step.
func referencePendulum(theta, omega, duration float64) (float64, float64) {
	const h = 1e-5
	f := func(th float64) float64 { return -g0 * math.Sin(th) }
	for i, n := 0, int(math.Round(duration/h)); i < n; i++ {
		k1q, k1v := omega, f(theta)
		k2q, k2v := omega+h/2*k1v, f(theta+h/2*k1q)
		k3q, k3v := omega+h/2*k2v, f(theta+h/2*k2q)
		k4q, k4v := omega+h*k3v, f(theta+h*k3q)
		theta += h / 6 * (k1q + 2*k2q + 2*k3q + k4q)
		omega += h / 6 * (k1v + 2*k2v + 2*k3v + k4v)
	}
	return theta, omega
}

func run(tb testing.TB, integ sim.Integrator, skel *dynamics.Skeleton, dt, duration float64) {
	tb.Helper()
	if err := skel.SetTimeStep(dt); err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
	for i, n := 0, int(math.Round(duration/dt)); i < n; i++ {
		if err := integ.Step(context.Background(), skel, dt, nil); err != nil {
			tb.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestIntegratorAccuracy(t *testing.T) {
	wantQ, wantV := referencePendulum(0.5, 0, 1)

	tests := []struct {
		name  string
		integ sim.Integrator
		tol   float64
	}{
		{"semi-implicit euler", NewSemiImplicitEuler(), 1e-2},
		{"euler", NewEuler(), 2e-2},
		{"verlet", NewVerlet(), 1e-4},
		{"rk4", NewRK4(), 1e-7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skel := pendulum(t, hinge, pointMass(), []float64{0.5})
			run(t, tt.integ, skel, 1e-3, 1)

			q, v := skel.Positions()[0], skel.Velocities()[0]
			if math.Abs(q-wantQ) > tt.tol {
				t.Errorf("position error too large: got %.8f, expected %.8f", q, wantQ)
			}
			if math.Abs(v-wantV) > 10*tt.tol {
				t.Errorf("velocity error too large: got %.8f, expected %.8f", v, wantV)
			}
		})
	}
}

func energy(skel *dynamics.Skeleton) float64 {
	return skel.KineticEnergy() + skel.PotentialEnergy()
}

func TestSemiImplicitEulerEnergyStaysBounded(t *testing.T) {
	skel := pendulum(t, hinge, pointMass(), []float64{0.5})
	e0 := energy(skel)
	run(t, NewSemiImplicitEuler(), skel, 1e-3, 10)

	if drift := math.Abs(energy(skel)-e0) / math.Abs(e0); drift > 1e-2 {
		t.Errorf("energy drift too high: %e", drift)
	}
}

func TestEulerGainsEnergy(t *testing.T) {
	skel := pendulum(t, hinge, pointMass(), []float64{0.5})
	e0 := energy(skel)
	run(t, NewEuler(), skel, 1e-3, 10)

	if e1 := energy(skel); e1 <= e0 {
		t.Errorf("expected explicit euler to gain energy: %v then %v", e0, e1)
	}
}

func TestRK4StaysOnManifold(t *testing.T) {
	body := dynamics.DefaultBodyNodeProperties()
	body.Name = "bob"
	rev := pendulum(t, hinge, body, []float64{0.8})
	sph := pendulum(t, ball, body, []float64{0, -0.8, 0})

	run(t, NewRK4(), rev, 1e-3, 0.5)
	run(t, NewRK4(), sph, 1e-3, 0.5)

	want := rev.Positions()[0]
	got := sph.Positions()
	if math.Abs(got[1]+want) > 1e-8 || math.Abs(got[0]) > 1e-10 || math.Abs(got[2]) > 1e-10 {
		t.Errorf("expected ball rotation (0, %v, 0), got %v", -want, got)
	}
	if w := sph.Velocities(); math.Abs(w[1]+rev.Velocities()[0]) > 1e-8 {
		t.Errorf("expected ball angular velocity %v, got %v", -rev.Velocities()[0], w)
	}
}

type stopSolver struct{ calls int }

// Solve cancels all motion of the single DOF.
func (s *stopSolver) Solve(ctx context.Context, skel *dynamics.Skeleton) error {
	s.calls++
	v := skel.Velocities()[0]
	inv := skel.InvMassMatrix().At(0, 0)
	return skel.SetConstraintImpulse(skel.Dofs()[0], -v/inv)
}

func TestIntegratorsApplyConstraints(t *testing.T) {
	integrators := map[string]sim.Integrator{
		"semi-implicit euler": NewSemiImplicitEuler(),
		"euler":               NewEuler(),
		"verlet":              NewVerlet(),
		"rk4":                 NewRK4(),
	}
	for name, integ := range integrators {
		t.Run(name, func(t *testing.T) {
			skel := pendulum(t, hinge, pointMass(), []float64{0.5})
			solver := &stopSolver{}
			if err := integ.Step(context.Background(), skel, 1e-3, solver); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if solver.calls != 1 {
				t.Errorf("expected 1 solver call, got %d", solver.calls)
			}
			if v := skel.Velocities()[0]; math.Abs(v) > 1e-9 {
				t.Errorf("expected the solver to stop the joint, got %v", v)
			}
		})
	}
}

func TestRK4HonoursCancellation(t *testing.T) {
	skel := pendulum(t, hinge, pointMass(), []float64{0.5})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewRK4().Step(ctx, skel, 1e-3, nil); err == nil {
		t.Error("expected an error from a canceled context")
	}
	if q := skel.Positions()[0]; q != 0.5 {
		t.Errorf("expected no motion, got %v", q)
	}
}

func hingeIn(mode dynamics.ActuatorMode) func(dynamics.JointProperties) (dynamics.Joint, error) {
	return func(props dynamics.JointProperties) (dynamics.Joint, error) {
		props.ActuatorMode = mode
		return hinge(props)
	}
}

func TestIntegratorsHoldKinematicJoints(t *testing.T) {
	const dt = 1e-3
	tests := []struct {
		name  string
		integ func() sim.Integrator
		// explicit Euler moves positions with the velocity from before the step
		lag int
	}{
		{"semi-implicit euler", func() sim.Integrator { return NewSemiImplicitEuler() }, 0},
		{"euler", func() sim.Integrator { return NewEuler() }, 1},
		{"verlet", func() sim.Integrator { return NewVerlet() }, 0},
		{"rk4", func() sim.Integrator { return NewRK4() }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/locked", func(t *testing.T) {
			skel := pendulum(t, hingeIn(dynamics.Locked), pointMass(), []float64{0.4})
			if err := skel.SetVelocities([]float64{3}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			run(t, tt.integ(), skel, dt, 3*dt)
			if q := skel.Positions()[0]; q != 0.4 {
				t.Errorf("expected the locked joint to stay at 0.4, got %v", q)
			}
			if v := skel.Velocities()[0]; v != 0 {
				t.Errorf("expected zero velocity, got %v", v)
			}
		})

		t.Run(tt.name+"/velocity", func(t *testing.T) {
			skel := pendulum(t, hingeIn(dynamics.Velocity), pointMass(), []float64{0.4})
			if err := skel.SetCommands([]float64{1}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			run(t, tt.integ(), skel, dt, dt)
			if v := skel.Velocities()[0]; math.Abs(v-1) > 1e-12 {
				t.Errorf("expected velocity 1 after one step, got %v", v)
			}
			run(t, tt.integ(), skel, dt, 2*dt)
			want := 0.4 + float64(3-tt.lag)*dt
			if q := skel.Positions()[0]; math.Abs(q-want) > 1e-12 {
				t.Errorf("expected %v, got %v", want, q)
			}
		})
	}
}
