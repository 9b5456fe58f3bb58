package dynamics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Configuration is a snapshot of the generalized state in skeleton DOF
// order.
type Configuration struct {
	Positions     []float64 `json:"positions"`
	Velocities    []float64 `json:"velocities"`
	Accelerations []float64 `json:"accelerations"`
	Forces        []float64 `json:"forces"`
	Commands      []float64 `json:"commands"`
}

func (s *Skeleton) gather(get func(j *jointCore) []float64) []float64 {
	out := make([]float64, 0, len(s.dofs))
	for _, b := range s.bodies {
		out = append(out, get(b.joint.core())...)
	}
	return out
}

// checkValues rejects v unless it has one finite value per DOF.
func (s *Skeleton) checkValues(op string, v []float64) error {
	if len(v) != len(s.dofs) {
		s.logger.Warnw("dimension mismatch", "op", op, "got", len(v), "dofs", len(s.dofs))
		return errors.Wrapf(ErrDimensionMismatch, "%s: skeleton %q expected %d values, got %d", op, s.name, len(s.dofs), len(v))
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			s.logger.Warnw("non-finite value rejected", "op", op, "dof", i, "value", x)
			return errors.Wrapf(ErrNonFinite, "%s: skeleton %q dof %d", op, s.name, i)
		}
	}
	return nil
}

// scatter validates all of v, then hands each joint its segment. A
// rejected vector leaves every joint untouched.
func (s *Skeleton) scatter(op string, v []float64, set func(j Joint, seg []float64) error) error {
	if err := s.checkValues(op, v); err != nil {
		return err
	}
	off := 0
	for _, b := range s.bodies {
		n := b.joint.NumDofs()
		if n == 0 {
			continue
		}
		if err := set(b.joint, v[off:off+n]); err != nil {
			return errors.Wrapf(err, "skeleton %q", s.name)
		}
		off += n
	}
	return nil
}

func (s *Skeleton) Positions() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gather(func(j *jointCore) []float64 { return j.positions })
}

func (s *Skeleton) SetPositions(v []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scatter("SetPositions", v, Joint.SetPositions)
}

func (s *Skeleton) Velocities() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gather(func(j *jointCore) []float64 { return j.velocities })
}

func (s *Skeleton) SetVelocities(v []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scatter("SetVelocities", v, Joint.SetVelocities)
}

func (s *Skeleton) Accelerations() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gather(func(j *jointCore) []float64 { return j.accelerations })
}

func (s *Skeleton) SetAccelerations(v []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scatter("SetAccelerations", v, Joint.SetAccelerations)
}

func (s *Skeleton) Forces() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gather(func(j *jointCore) []float64 { return j.forces })
}

func (s *Skeleton) SetForces(v []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scatter("SetForces", v, Joint.SetForces)
}

func (s *Skeleton) Commands() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gather(func(j *jointCore) []float64 { return j.commands })
}

// SetCommands clips each command according to its joint's actuator mode.
func (s *Skeleton) SetCommands(v []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scatter("SetCommands", v, Joint.SetCommands)
}

func (s *Skeleton) ResetCommands() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bodies {
		b.joint.ResetCommands()
	}
}

// ResetPositions puts every joint at its initial positions.
func (s *Skeleton) ResetPositions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bodies {
		b.joint.ResetPositions()
	}
}

func (s *Skeleton) ResetVelocities() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bodies {
		b.joint.ResetVelocities()
	}
}

// PrescribeVelocities overwrites the entries of v that belong to Velocity
// joints with their commands and those of Locked joints with zero. Other
// entries are left as given.
func (s *Skeleton) PrescribeVelocities(v []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(v) != len(s.dofs) {
		return errors.Wrapf(ErrDimensionMismatch, "PrescribeVelocities: skeleton %q expected %d values, got %d", s.name, len(s.dofs), len(v))
	}
	off := 0
	for _, b := range s.bodies {
		j := b.joint.core()
		switch j.props.ActuatorMode {
		case Velocity:
			copy(v[off:off+j.n], j.commands)
		case Locked:
			zero(v[off : off+j.n])
		}
		off += j.n
	}
	return nil
}

// Configuration returns a snapshot of the generalized state.
func (s *Skeleton) Configuration() Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Configuration{
		Positions:     s.gather(func(j *jointCore) []float64 { return j.positions }),
		Velocities:    s.gather(func(j *jointCore) []float64 { return j.velocities }),
		Accelerations: s.gather(func(j *jointCore) []float64 { return j.accelerations }),
		Forces:        s.gather(func(j *jointCore) []float64 { return j.forces }),
		Commands:      s.gather(func(j *jointCore) []float64 { return j.commands }),
	}
}

// SetConfiguration restores a snapshot. Nil fields are left untouched.
func (s *Skeleton) SetConfiguration(c Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	steps := []struct {
		op  string
		v   []float64
		set func(j Joint, seg []float64) error
	}{
		{"SetPositions", c.Positions, Joint.SetPositions},
		{"SetVelocities", c.Velocities, Joint.SetVelocities},
		{"SetAccelerations", c.Accelerations, Joint.SetAccelerations},
		{"SetForces", c.Forces, Joint.SetForces},
		{"SetCommands", c.Commands, Joint.SetCommands},
	}
	for _, st := range steps {
		if st.v == nil {
			continue
		}
		if err := s.checkValues(st.op, st.v); err != nil {
			return err
		}
	}
	for _, st := range steps {
		if st.v == nil {
			continue
		}
		if err := s.scatter(st.op, st.v, st.set); err != nil {
			return err
		}
	}
	return nil
}

// energy and mass

// KineticEnergy is Σ ½·Vᵀ·G·V over all bodies.
func (s *Skeleton) KineticEnergy() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureKinematics()
	ke := 0.0
	for _, b := range s.bodies {
		ke += b.KineticEnergy()
	}
	return ke
}

// PotentialEnergy sums gravitational energy of the bodies and the energy
// stored in joint springs.
func (s *Skeleton) PotentialEnergy() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureKinematics()
	pe := 0.0
	for _, b := range s.bodies {
		pe += b.PotentialEnergy(s.gravity)
		pe += b.joint.PotentialEnergy()
	}
	return pe
}

func (s *Skeleton) Mass() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := 0.0
	for _, b := range s.bodies {
		m += b.props.Mass
	}
	return m
}

// COM returns the world center of mass; zero for an empty skeleton.
func (s *Skeleton) COM() mgl64.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureKinematics()
	var sum mgl64.Vec3
	m := 0.0
	for _, b := range s.bodies {
		sum = sum.Add(b.COM().Mul(b.props.Mass))
		m += b.props.Mass
	}
	if m == 0 {
		return mgl64.Vec3{}
	}
	return sum.Mul(1 / m)
}

// COMLinearVelocity returns the world velocity of the center of mass.
func (s *Skeleton) COMLinearVelocity() mgl64.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureKinematics()
	var sum mgl64.Vec3
	m := 0.0
	for _, b := range s.bodies {
		sum = sum.Add(b.COMLinearVelocity().Mul(b.props.Mass))
		m += b.props.Mass
	}
	if m == 0 {
		return mgl64.Vec3{}
	}
	return sum.Mul(1 / m)
}

// constraint interface

// SetConstraintImpulse stores a generalized impulse on one DOF.
func (s *Skeleton) SetConstraintImpulse(d DegreeOfFreedom, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.dof(d)
	if err != nil {
		return err
	}
	return j.SetConstraintImpulse(d.Local, v)
}

// ClearConstraintImpulses zeroes body and joint constraint impulses.
func (s *Skeleton) ClearConstraintImpulses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bodies {
		b.ClearConstraintImpulse()
		b.joint.ResetConstraintImpulses()
	}
}

func (s *Skeleton) ClearExternalForces() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bodies {
		b.ClearExternalForce()
	}
}
