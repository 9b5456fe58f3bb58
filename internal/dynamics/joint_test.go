package dynamics

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/multibody/internal/logging"
	"github.com/san-kum/multibody/internal/spatial"
)

func TestDefaultJointProperties(t *testing.T) {
	p := DefaultJointProperties(2)
	if p.ActuatorMode != Force {
		t.Errorf("expected Force, got %v", p.ActuatorMode)
	}
	for i := 0; i < 2; i++ {
		if !math.IsInf(p.PositionLower[i], -1) || !math.IsInf(p.ForceUpper[i], 1) {
			t.Errorf("expected unbounded limits at %d", i)
		}
		if p.SpringStiffness[i] != 0 || p.Damping[i] != 0 || p.Friction[i] != 0 {
			t.Errorf("expected zero coefficients at %d", i)
		}
	}
}

func TestJointPropertiesValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *JointProperties)
		want   error
	}{
		{"short slice", func(p *JointProperties) { p.Damping = []float64{1} }, ErrDimensionMismatch},
		{"negative spring", func(p *JointProperties) { p.SpringStiffness = []float64{-1, 0} }, ErrInvalidProperty},
		{"inverted limits", func(p *JointProperties) { p.ForceLower, p.ForceUpper = []float64{5, 0}, []float64{1, 0} }, ErrInvalidProperty},
		{"unknown mode", func(p *JointProperties) { p.ActuatorMode = ActuatorMode(42) }, ErrUnsupportedActuatorMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := JointProperties{}
			tt.mutate(&p)
			_, err := NewUniversalJoint(p, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestZeroAxisRejected(t *testing.T) {
	if _, err := NewRevoluteJoint(DefaultJointProperties(1), mgl64.Vec3{}); !errors.Is(err, ErrInvalidProperty) {
		t.Errorf("expected ErrInvalidProperty, got %v", err)
	}
}

func TestCommandClipping(t *testing.T) {
	tests := []struct {
		name    string
		mode    ActuatorMode
		command float64
		want    float64
	}{
		{"force above", Force, 15, 10},
		{"force below", Force, -15, -10},
		{"force inside", Force, 3, 3},
		{"velocity", Velocity, 9, 2},
		{"servo", Servo, -9, -2},
		{"acceleration", Acceleration, 100, 50},
		{"passive unclipped", Passive, 15, 15},
		{"locked unclipped", Locked, -15, -15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props := DefaultJointProperties(1)
			props.ForceLower, props.ForceUpper = []float64{-10}, []float64{10}
			props.VelocityLower, props.VelocityUpper = []float64{-2}, []float64{2}
			props.AccelerationLower, props.AccelerationUpper = []float64{-50}, []float64{50}
			props.ActuatorMode = tt.mode
			j, err := NewRevoluteJoint(props, mgl64.Vec3{0, 0, 1})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := j.SetCommand(0, tt.command); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := j.Command(0); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPassiveCommandWarns(t *testing.T) {
	logger, logs := logging.NewTestLogger(t)
	skel := NewSkeleton("warn", WithLogger(logger))
	ids := newChain(t, skel, []float64{1}, []float64{1})
	j := mustJoint(t, skel, ids[0])
	if err := j.SetActuatorMode(Passive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := j.SetCommand(0, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := logs.FilterMessage("command ignored by actuator mode").Len(); n != 1 {
		t.Errorf("expected 1 warning, got %d", n)
	}

	skel.ComputeForwardDynamics()
	if f := j.Force(0); f != 0 {
		t.Errorf("expected a passive joint to apply no force, got %v", f)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	logger, logs := logging.NewTestLogger(t)
	skel := NewSkeleton("range", WithLogger(logger))
	ids := newChain(t, skel, []float64{1}, []float64{1})
	j := mustJoint(t, skel, ids[0])
	if err := j.SetPosition(0, 0.25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := j.Position(3); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if err := j.SetPosition(3, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := j.SetDamping(-1, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if got := j.Position(0); got != 0.25 {
		t.Errorf("expected the state untouched at 0.25, got %v", got)
	}

	entries := logs.FilterMessage("index out of range").All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 warnings, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["skeleton"] != "range" || fields["joint"] != "j0" {
		t.Errorf("expected skeleton and joint context, got %v", fields)
	}
}

func TestDimensionMismatch(t *testing.T) {
	logger, logs := logging.NewTestLogger(t)
	skel := NewSkeleton("dims", WithLogger(logger))
	newChain(t, skel, []float64{1, 1}, []float64{1, 1})
	before := skel.Positions()

	if err := skel.SetPositions([]float64{1, 2, 3}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	j, err := skel.JointByName("j0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := j.SetVelocities([]float64{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if got := skel.Positions(); !approxSlice(got, before, 0) {
		t.Errorf("expected %v, got %v", before, got)
	}
	if n := logs.FilterMessage("dimension mismatch").Len(); n != 2 {
		t.Errorf("expected 2 warnings, got %d", n)
	}
}

func TestNonFiniteRejected(t *testing.T) {
	j, err := NewPrismaticJoint(DefaultJointProperties(1), mgl64.Vec3{1, 0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range []float64{math.NaN(), math.Inf(1)} {
		if err := j.SetForce(0, v); !errors.Is(err, ErrNonFinite) {
			t.Errorf("expected ErrNonFinite, got %v", err)
		}
		if err := j.SetCommands([]float64{v}); !errors.Is(err, ErrNonFinite) {
			t.Errorf("expected ErrNonFinite, got %v", err)
		}
		if err := j.SetConstraintImpulse(0, v); !errors.Is(err, ErrNonFinite) {
			t.Errorf("expected ErrNonFinite, got %v", err)
		}
	}
	if j.Force(0) != 0 || j.Command(0) != 0 || j.ConstraintImpulse(0) != 0 {
		t.Error("expected state untouched")
	}
}

func TestRejectedSkeletonSetterLeavesState(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		set  func(skel *Skeleton) error
		want error
	}{
		{"positions", func(s *Skeleton) error { return s.SetPositions([]float64{0.7, nan}) }, ErrNonFinite},
		{"velocities", func(s *Skeleton) error { return s.SetVelocities([]float64{2, math.Inf(1)}) }, ErrNonFinite},
		{"accelerations", func(s *Skeleton) error { return s.SetAccelerations([]float64{2, nan}) }, ErrNonFinite},
		{"forces", func(s *Skeleton) error { return s.SetForces([]float64{2, nan}) }, ErrNonFinite},
		{"commands", func(s *Skeleton) error { return s.SetCommands([]float64{2, nan}) }, ErrNonFinite},
		{"short commands", func(s *Skeleton) error { return s.SetCommands([]float64{2}) }, ErrDimensionMismatch},
		{"configuration", func(s *Skeleton) error {
			return s.SetConfiguration(Configuration{
				Positions:  []float64{1, 1},
				Velocities: []float64{1, nan},
			})
		}, ErrNonFinite},
		{"configuration size", func(s *Skeleton) error {
			return s.SetConfiguration(Configuration{
				Positions: []float64{1, 1},
				Commands:  []float64{1, 1, 1},
			})
		}, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skel := NewSkeleton("atomic")
			newChain(t, skel, []float64{1, 1}, []float64{1, 1})
			if err := skel.SetPositions([]float64{0.1, -0.3}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := skel.SetVelocities([]float64{0.5, 0.25}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			before := skel.Configuration()

			if err := tt.set(skel); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if after := skel.Configuration(); !reflect.DeepEqual(before, after) {
				t.Errorf("expected state %+v, got %+v", before, after)
			}
		})
	}
}

func TestMutationDuringPassRejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(j Joint) error
	}{
		{"position", func(j Joint) error { return j.SetPosition(0, 1) }},
		{"commands", func(j Joint) error { return j.SetCommands([]float64{1}) }},
		{"damping", func(j Joint) error { return j.SetDamping(0, 0.3) }},
		{"rest position", func(j Joint) error { return j.SetRestPosition(0, 0.2) }},
		{"position limits", func(j Joint) error { return j.SetPositionLimits(0, -1, 1) }},
		{"force limits", func(j Joint) error { return j.SetForceLimits(0, -5, 5) }},
		{"initial positions", func(j Joint) error { return j.SetInitialPositions([]float64{0.4}) }},
		{"initial velocities", func(j Joint) error { return j.SetInitialVelocities([]float64{0.4}) }},
		{"parent frame", func(j Joint) error {
			return j.SetParentToJoint(spatial.Translation(mgl64.Vec3{0, 0, 1}))
		}},
		{"child frame", func(j Joint) error {
			return j.SetChildToJoint(spatial.Translation(mgl64.Vec3{0, 0, 1}))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skel := NewSkeleton("pass")
			ids := newChain(t, skel, []float64{1}, []float64{1})
			j := mustJoint(t, skel, ids[0])
			before := j.core().props.clone()

			skel.beginPass()
			err := tt.mutate(j)
			skel.endPass()

			if !errors.Is(err, ErrConcurrentAccess) {
				t.Errorf("expected ErrConcurrentAccess, got %v", err)
			}
			if !reflect.DeepEqual(j.core().props, before) {
				t.Error("expected the rejected mutation to leave the properties untouched")
			}
			if err := tt.mutate(j); err != nil {
				t.Errorf("expected no error after the pass, got %v", err)
			}
		})
	}
}

func TestUnsupportedActuatorModePanics(t *testing.T) {
	skel := NewSkeleton("panic")
	ids := newChain(t, skel, []float64{1}, []float64{1})
	j := mustJoint(t, skel, ids[0])

	if err := j.SetActuatorMode(ActuatorMode(17)); !errors.Is(err, ErrUnsupportedActuatorMode) {
		t.Fatalf("expected ErrUnsupportedActuatorMode, got %v", err)
	}

	j.core().props.ActuatorMode = ActuatorMode(17)
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrUnsupportedActuatorMode) {
			t.Errorf("expected a panic with ErrUnsupportedActuatorMode, got %v", r)
		}
	}()
	skel.ComputeForwardDynamics()
}

func TestRestPositionOutsideLimits(t *testing.T) {
	props := DefaultJointProperties(1)
	props.PositionLower, props.PositionUpper = []float64{-1}, []float64{1}
	j, err := NewRevoluteJoint(props, mgl64.Vec3{0, 0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := j.SetRestPosition(0, 2); !errors.Is(err, ErrInvalidProperty) {
		t.Errorf("expected ErrInvalidProperty, got %v", err)
	}
	if err := j.SetRestPosition(0, 0.5); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got := j.RestPosition(0); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
}

func TestNonRigidTransformWarns(t *testing.T) {
	logger, logs := logging.NewTestLogger(t)
	skel := NewSkeleton("rigid", WithLogger(logger))
	ids := newChain(t, skel, []float64{1}, []float64{1})
	j := mustJoint(t, skel, ids[0])

	sheared := spatial.Isometry{R: mgl64.Mat3{1, 0, 0, 0.2, 1, 0, 0, 0, 1}}
	if err := j.SetParentToJoint(sheared); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := logs.FilterMessage("joint frame is not rigid").Len(); n != 1 {
		t.Errorf("expected 1 warning, got %d", n)
	}
	if got := j.ParentToJoint(); got != sheared {
		t.Errorf("expected the transform to be used as given, got %v", got)
	}
}

func TestIntegratePositionsOnManifolds(t *testing.T) {
	t.Run("ball", func(t *testing.T) {
		j, err := NewBallJoint(DefaultJointProperties(3))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		start := mgl64.Vec3{0.2, -0.4, 0.1}
		omega := mgl64.Vec3{1, 0.5, -2}
		if err := j.SetPositions(start[:]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := j.SetVelocities(omega[:]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		j.IntegratePositions(0.01)

		want := spatial.ExpMapRot(start).Mul3(spatial.ExpMapRot(omega.Mul(0.01)))
		got := j.ManifoldPositions()
		if !got.ApproxEqualThreshold(want, 1e-10) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("revolute", func(t *testing.T) {
		j, err := NewRevoluteJoint(DefaultJointProperties(1), mgl64.Vec3{0, 0, 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := j.SetVelocity(0, 2); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := j.SetAcceleration(0, -1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		j.IntegrateVelocities(0.1)
		j.IntegratePositions(0.1)
		if got := j.Velocity(0); got != 2+(-1)*0.1 {
			t.Errorf("expected %v, got %v", 2+(-1)*0.1, got)
		}
		if got := j.Position(0); !approx(got, 0.19, 1e-15) {
			t.Errorf("expected 0.19, got %v", got)
		}
	})
}

func TestPositionDifferencesIsComponentwise(t *testing.T) {
	j, err := NewBallJoint(DefaultJointProperties(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := j.PositionDifferences([]float64{1, 2, 3}, []float64{0.5, 0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []float64{0.5, 1.5, 2.5}; !approxSlice(got, want, 0) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestActuatorModeText(t *testing.T) {
	for _, m := range []ActuatorMode{Force, Passive, Servo, Acceleration, Velocity, Locked} {
		text, err := m.MarshalText()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var back ActuatorMode
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if back != m {
			t.Errorf("expected %v, got %v", m, back)
		}
	}
	if _, err := ParseActuatorMode("turbo"); !errors.Is(err, ErrUnsupportedActuatorMode) {
		t.Errorf("expected ErrUnsupportedActuatorMode, got %v", err)
	}
}

func TestJointSpringEnergy(t *testing.T) {
	props := DefaultJointProperties(2)
	props.SpringStiffness = []float64{2, 4}
	props.RestPositions = []float64{0.5, -0.5}
	props.InitialPositions = []float64{1, 0}
	j, err := NewUniversalJoint(props, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 0.5*2*0.25 + 0.5*4*0.25
	if got := j.PotentialEnergy(); !approx(got, want, 1e-15) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
