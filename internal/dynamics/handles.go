package dynamics

import "fmt"

// BodyID is a generational handle to a body node of one skeleton. The zero
// value is never valid.
type BodyID struct {
	slot uint32
	gen  uint32
}

// JointID is the handle of the parent joint of the body in the same slot.
type JointID struct {
	slot uint32
	gen  uint32
}

func (id BodyID) IsZero() bool  { return id.gen == 0 }
func (id JointID) IsZero() bool { return id.gen == 0 }

// Joint returns the handle of the body's parent joint.
func (id BodyID) Joint() JointID { return JointID(id) }

// Body returns the handle of the joint's child body.
func (id JointID) Body() BodyID { return BodyID(id) }

func (id BodyID) String() string  { return fmt.Sprintf("body#%d.%d", id.slot, id.gen) }
func (id JointID) String() string { return fmt.Sprintf("joint#%d.%d", id.slot, id.gen) }

// DegreeOfFreedom names one coordinate of one joint. Its indices and name
// are read through the owning skeleton.
type DegreeOfFreedom struct {
	Joint JointID
	Local int
}

func (d DegreeOfFreedom) String() string {
	return fmt.Sprintf("%s/%d", d.Joint, d.Local)
}
