package dynamics

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ActuatorMode decides how a joint's command enters the dynamics.
//
// Force, Passive and Servo joints are dynamic: the recursion solves for
// their accelerations. Acceleration, Velocity and Locked joints are
// kinematic: their accelerations are prescribed and the recursion solves for
// the force that realizes them.
type ActuatorMode int

const (
	// Force applies the command as a generalized force.
	Force ActuatorMode = iota
	// Passive ignores the command.
	Passive
	// Servo treats the command as a desired velocity for an external
	// constraint solver; without one it behaves like Passive.
	Servo
	// Acceleration prescribes the command as the acceleration.
	Acceleration
	// Velocity prescribes (command − v)/dt as the acceleration.
	Velocity
	// Locked pins velocity and acceleration to zero.
	Locked
)

var actuatorModeNames = map[ActuatorMode]string{
	Force:        "force",
	Passive:      "passive",
	Servo:        "servo",
	Acceleration: "acceleration",
	Velocity:     "velocity",
	Locked:       "locked",
}

func (m ActuatorMode) String() string {
	if name, ok := actuatorModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ActuatorMode(%d)", int(m))
}

// Valid reports whether m is one of the known modes.
func (m ActuatorMode) Valid() bool {
	_, ok := actuatorModeNames[m]
	return ok
}

// IsDynamic reports whether the recursion solves for the joint's
// acceleration. It panics on an unknown mode.
func (m ActuatorMode) IsDynamic() bool {
	switch m {
	case Force, Passive, Servo:
		return true
	case Acceleration, Velocity, Locked:
		return false
	}
	panic(errors.Wrapf(ErrUnsupportedActuatorMode, "mode %d", int(m)))
}

// ParseActuatorMode maps a mode name back to its value.
func ParseActuatorMode(s string) (ActuatorMode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for m, name := range actuatorModeNames {
		if name == key {
			return m, nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedActuatorMode, "%q", s)
}

func (m ActuatorMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, errors.Wrapf(ErrUnsupportedActuatorMode, "mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *ActuatorMode) UnmarshalText(b []byte) error {
	parsed, err := ParseActuatorMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
