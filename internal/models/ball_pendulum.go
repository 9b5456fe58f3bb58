package models

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/spatial"
)

// BallPendulum is a solid sphere on a massless rod hung from a ball joint.
// Tilt rotates the rod about x; Swing is the initial angular velocity about
// the body y axis.
type BallPendulum struct {
	Mass    float64
	Length  float64
	Radius  float64
	Gravity float64
	Tilt    float64
	Swing   float64
}

func NewBallPendulum() *BallPendulum {
	return &BallPendulum{
		Mass:    DefaultMass,
		Length:  DefaultLength,
		Radius:  0.1,
		Gravity: DefaultGravity,
		Tilt:    0.6,
		Swing:   2.0,
	}
}

func (b *BallPendulum) Name() string { return "ball_pendulum" }

func (b *BallPendulum) Params() map[string]*float64 {
	return map[string]*float64{
		"mass":    &b.Mass,
		"length":  &b.Length,
		"radius":  &b.Radius,
		"gravity": &b.Gravity,
		"tilt":    &b.Tilt,
		"swing":   &b.Swing,
	}
}

func (b *BallPendulum) Build(opts ...dynamics.Option) (*dynamics.Skeleton, error) {
	if err := positive(b.Name(), map[string]float64{"mass": b.Mass, "length": b.Length, "radius": b.Radius}); err != nil {
		return nil, err
	}
	props := dynamics.DefaultJointProperties(3)
	props.Name = "socket"
	props.InitialPositions = []float64{b.Tilt, 0, 0}
	props.InitialVelocities = []float64{0, b.Swing, 0}
	props.ChildToJoint = spatial.Translation(mgl64.Vec3{0, 0, b.Length})
	j, err := dynamics.NewBallJoint(props)
	if err != nil {
		return nil, errors.Wrap(err, "socket")
	}

	body := pointMass("sphere", b.Mass)
	body.Inertia = mgl64.Ident3().Mul(0.4 * b.Mass * b.Radius * b.Radius)

	skel := newSkeleton(b.Name(), b.Gravity, opts)
	if _, err := skel.CreateJointAndBodyNodePair(dynamics.BodyID{}, j, body); err != nil {
		return nil, errors.Wrap(err, "sphere")
	}
	return skel, nil
}
