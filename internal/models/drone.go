package models

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
)

// Drone is a free-flying rigid body with two rotors on its body x axis,
// both thrusting along body z. Drag acts as joint damping on the free
// joint, in the body frame.
type Drone struct {
	Mass, Inertia, ArmLength float64
	Gravity, DragCoeff       float64
	AngDrag                  float64
	Altitude                 float64
}

func NewDrone() *Drone {
	return &Drone{
		Mass:      DefaultMass,
		Inertia:   0.1,
		ArmLength: 0.25,
		Gravity:   DefaultGravity,
		DragCoeff: 0.1,
		AngDrag:   0.05,
		Altitude:  5,
	}
}

func (d *Drone) Name() string { return "drone" }

func (d *Drone) Params() map[string]*float64 {
	return map[string]*float64{
		"mass":       &d.Mass,
		"inertia":    &d.Inertia,
		"arm_length": &d.ArmLength,
		"gravity":    &d.Gravity,
		"drag":       &d.DragCoeff,
		"ang_drag":   &d.AngDrag,
		"altitude":   &d.Altitude,
	}
}

func (d *Drone) Build(opts ...dynamics.Option) (*dynamics.Skeleton, error) {
	if err := positive(d.Name(), map[string]float64{"mass": d.Mass, "inertia": d.Inertia}); err != nil {
		return nil, err
	}
	props := dynamics.DefaultJointProperties(6)
	props.Name = "flight"
	props.InitialPositions = []float64{0, 0, 0, 0, 0, d.Altitude}
	props.Damping = []float64{d.AngDrag, d.AngDrag, d.AngDrag, d.DragCoeff, d.DragCoeff, d.DragCoeff}
	props.DofNames = []string{"roll", "pitch", "yaw", "x", "y", "z"}
	j, err := dynamics.NewFreeJoint(props)
	if err != nil {
		return nil, errors.Wrap(err, "free joint")
	}

	body := pointMass("frame", d.Mass)
	body.Inertia = mgl64.Diag3(mgl64.Vec3{d.Inertia, d.Inertia, 2 * d.Inertia})

	skel := newSkeleton(d.Name(), d.Gravity, opts)
	if _, err := skel.CreateJointAndBodyNodePair(dynamics.BodyID{}, j, body); err != nil {
		return nil, errors.Wrap(err, "frame")
	}
	return skel, nil
}

// Thrust maps rotor thrusts to free-joint commands. The left rotor sits
// at −x, so it pitches the body about +y. Negative thrust is clipped.
func (d *Drone) Thrust(left, right float64) sim.Control {
	left, right = math.Max(0, left), math.Max(0, right)
	return sim.Control{0, (left - right) * d.ArmLength, 0, 0, 0, left + right}
}

func (d *Drone) HoverThrust() float64 {
	return d.Mass * d.Gravity / 2.0
}

// PlanarDerivative is the x–z plane model of the same vehicle with state
// [x, z, θ, ẋ, ż, ω], θ the pitch about +y and drag applied in world axes.
func (d *Drone) PlanarDerivative(x sim.State, left, right float64) sim.State {
	theta, vx, vz, omega := x[2], x[3], x[4], x[5]
	left, right = math.Max(0, left), math.Max(0, right)

	totalThrust := left + right
	torque := (left - right) * d.ArmLength

	sin, cos := math.Sin(theta), math.Cos(theta)
	fx := totalThrust*sin - d.DragCoeff*vx
	fz := totalThrust*cos - d.Mass*d.Gravity - d.DragCoeff*vz

	ax := fx / d.Mass
	az := fz / d.Mass
	alpha := (torque - d.AngDrag*omega) / d.Inertia

	return sim.State{vx, vz, omega, ax, az, alpha}
}
