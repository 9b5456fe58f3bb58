// Package models builds ready-made skeletons from a handful of named
// parameters. Models with closed-form equations of motion also implement
// Reference so the engine can be checked against them.
package models

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/sim"
	"github.com/san-kum/multibody/internal/spatial"
)

const (
	DefaultMass    = 1.0
	DefaultLength  = 1.0
	DefaultGravity = 9.81
)

var (
	ErrUnknownParam = errors.New("models: unknown parameter")
	ErrInvalidParam = errors.New("models: invalid parameter")
)

type Model interface {
	Name() string
	// Params exposes the tunable fields by name.
	Params() map[string]*float64
	Build(opts ...dynamics.Option) (*dynamics.Skeleton, error)
}

// Reference is a model whose equations of motion are known in the same
// generalized coordinates its skeleton uses. x is positions followed by
// velocities; the result is its time derivative.
type Reference interface {
	Model
	Derivative(x sim.State, u sim.Control) sim.State
}

// ApplyParams sets the named parameters of m.
func ApplyParams(m Model, params map[string]float64) error {
	fields := m.Params()
	for _, k := range sortedKeys(params) {
		p, ok := fields[k]
		if !ok {
			return errors.Wrapf(ErrUnknownParam, "%s has no parameter %q", m.Name(), k)
		}
		if math.IsNaN(params[k]) || math.IsInf(params[k], 0) {
			return errors.Wrapf(ErrInvalidParam, "%s: %s=%v", m.Name(), k, params[k])
		}
		*p = params[k]
	}
	return nil
}

// ParamValues returns a copy of the current parameters of m.
func ParamValues(m Model) map[string]float64 {
	out := make(map[string]float64)
	for k, p := range m.Params() {
		out[k] = *p
	}
	return out
}

func ParamNames(m Model) []string {
	return sortedKeys(ParamValues(m))
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func positive(model string, values map[string]float64) error {
	for _, k := range sortedKeys(values) {
		if values[k] <= 0 {
			return errors.Wrapf(ErrInvalidParam, "%s: %s must be positive, got %v", model, k, values[k])
		}
	}
	return nil
}

func newSkeleton(name string, gravity float64, opts []dynamics.Option) *dynamics.Skeleton {
	all := append([]dynamics.Option{dynamics.WithGravity(mgl64.Vec3{0, 0, -gravity})}, opts...)
	return dynamics.NewSkeleton(name, all...)
}

func pointMass(name string, m float64) dynamics.BodyNodeProperties {
	return dynamics.BodyNodeProperties{Name: name, Mass: m, GravityMode: true}
}

// swingAxis makes positive angles move a hanging body toward +x.
var swingAxis = mgl64.Vec3{0, -1, 0}

// hinge is a revolute joint whose pivot sits length above its child body.
func hinge(name string, length, q0, damping float64) (*dynamics.FlatJoint, error) {
	props := dynamics.DefaultJointProperties(1)
	props.Name = name
	props.InitialPositions = []float64{q0}
	props.Damping = []float64{damping}
	props.ChildToJoint = spatial.Translation(mgl64.Vec3{0, 0, length})
	return dynamics.NewRevoluteJoint(props, swingAxis)
}
