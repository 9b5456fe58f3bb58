package dynamics_test

import (
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/spatial"
)

func revolute(name string, q0 float64) dynamics.Joint {
	props := dynamics.DefaultJointProperties(1)
	props.Name = name
	props.InitialPositions = []float64{q0}
	props.ChildToJoint = spatial.Translation(mgl64.Vec3{0, 0, 0.5})
	j, err := dynamics.NewRevoluteJoint(props, mgl64.Vec3{0, 1, 0})
	Expect(err).NotTo(HaveOccurred())
	return j
}

func ball(name string) dynamics.Joint {
	props := dynamics.DefaultJointProperties(3)
	props.Name = name
	j, err := dynamics.NewBallJoint(props)
	Expect(err).NotTo(HaveOccurred())
	return j
}

func body(name string) dynamics.BodyNodeProperties {
	props := dynamics.DefaultBodyNodeProperties()
	props.Name = name
	return props
}

func attach(skel *dynamics.Skeleton, parent dynamics.BodyID, j dynamics.Joint, name string) dynamics.BodyID {
	id, err := skel.CreateJointAndBodyNodePair(parent, j, body(name))
	Expect(err).NotTo(HaveOccurred())
	return id
}

var _ = Describe("Skeleton structure", func() {
	var (
		skel                          *dynamics.Skeleton
		shoulder, elbow, wrist, other dynamics.BodyID
	)

	BeforeEach(func() {
		skel = dynamics.NewSkeleton("arm")
		shoulder = attach(skel, dynamics.BodyID{}, revolute("shoulder", 0.1), "upper")
		elbow = attach(skel, shoulder, ball("elbow"), "fore")
		wrist = attach(skel, elbow, revolute("wrist", -0.2), "hand")
		other = attach(skel, dynamics.BodyID{}, revolute("base", 0), "post")
	})

	AfterEach(func() {
		Expect(skel.CheckIndexingConsistency()).To(Succeed())
	})

	It("indexes bodies and DOFs in tree order", func() {
		Expect(skel.NumTrees()).To(Equal(2))
		Expect(skel.NumBodies()).To(Equal(4))
		Expect(skel.NumDofs()).To(Equal(6))

		b, err := skel.Body(wrist)
		Expect(err).NotTo(HaveOccurred())
		Expect(b.TreeIndex()).To(Equal(0))
		Expect(b.IndexInTree()).To(Equal(2))
		Expect(b.ParentJoint().IndexInSkeleton(0)).To(Equal(4))

		p, err := skel.Body(other)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.TreeIndex()).To(Equal(1))
		Expect(p.ParentJoint().IndexInTree(0)).To(Equal(0))
		Expect(p.ParentJoint().IndexInSkeleton(0)).To(Equal(5))

		dofs, err := skel.TreeDofs(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(dofs).To(HaveLen(5))
	})

	It("names DOFs after their joints", func() {
		for _, name := range []string{"shoulder", "elbow_0", "elbow_1", "elbow_2", "wrist", "base"} {
			_, err := skel.DofByName(name)
			Expect(err).NotTo(HaveOccurred(), name)
		}
	})

	It("suffixes duplicate names", func() {
		id := attach(skel, other, revolute("shoulder", 0), "upper")
		b, err := skel.Body(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Name()).To(Equal("upper(1)"))
		Expect(b.ParentJoint().Name()).To(Equal("shoulder(1)"))
		Expect(b.ParentJoint().DofName(0)).To(Equal("shoulder(1)"))
	})

	It("keeps preserved DOF names across joint renames", func() {
		j, err := skel.Joint(elbow.Joint())
		Expect(err).NotTo(HaveOccurred())
		name, err := j.SetDofName(1, "pitch", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("pitch"))

		Expect(j.SetName("knee")).To(Equal("knee"))
		Expect(j.DofName(0)).To(Equal("knee_0"))
		Expect(j.DofName(1)).To(Equal("pitch"))
		Expect(j.DofName(2)).To(Equal("knee_2"))

		_, err = skel.DofByName("elbow_0")
		Expect(err).To(MatchError(dynamics.ErrNotFound))
	})

	It("rejects a joint that already belongs to a skeleton", func() {
		j, err := skel.Joint(wrist.Joint())
		Expect(err).NotTo(HaveOccurred())
		_, err = skel.CreateJointAndBodyNodePair(other, j, body("again"))
		Expect(err).To(MatchError(dynamics.ErrInvalidHandle))
	})

	Describe("removing a subtree", func() {
		It("invalidates handles into it and reindexes the rest", func() {
			Expect(skel.RemoveBodyNode(elbow)).To(Succeed())

			_, err := skel.Body(elbow)
			Expect(err).To(MatchError(dynamics.ErrInvalidHandle))
			_, err = skel.Body(wrist)
			Expect(err).To(MatchError(dynamics.ErrInvalidHandle))
			_, err = skel.Joint(wrist.Joint())
			Expect(err).To(MatchError(dynamics.ErrInvalidHandle))

			Expect(skel.NumBodies()).To(Equal(2))
			Expect(skel.NumDofs()).To(Equal(2))
			p, err := skel.Body(other)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.ParentJoint().IndexInSkeleton(0)).To(Equal(1))

			_, err = skel.BodyByName("hand")
			Expect(err).To(MatchError(dynamics.ErrNotFound))
		})

		It("does not hand out a stale handle's slot to the old handle", func() {
			Expect(skel.RemoveBodyNode(wrist)).To(Succeed())
			fresh := attach(skel, elbow, revolute("wrist", 0), "hand")
			Expect(fresh).NotTo(Equal(wrist))
			_, err := skel.Body(wrist)
			Expect(err).To(MatchError(dynamics.ErrInvalidHandle))
		})

		It("removes a whole tree", func() {
			Expect(skel.RemoveBodyNode(shoulder)).To(Succeed())
			Expect(skel.NumTrees()).To(Equal(1))
			Expect(skel.NumDofs()).To(Equal(1))
		})
	})

	Describe("moving a subtree", func() {
		It("reparents within the skeleton", func() {
			joint, err := skel.Joint(wrist.Joint())
			Expect(err).NotTo(HaveOccurred())
			Expect(joint.SetPosition(0, 0.4)).To(Succeed())

			moved, err := skel.MoveBodyNode(wrist, nil, other)
			Expect(err).NotTo(HaveOccurred())

			_, err = skel.Body(wrist)
			Expect(err).To(MatchError(dynamics.ErrInvalidHandle))
			b, err := skel.Body(moved)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.TreeIndex()).To(Equal(1))
			Expect(b.Parent().Name()).To(Equal("post"))
			Expect(b.ParentJoint().Position(0)).To(Equal(0.4))

			dofs, err := skel.TreeDofs(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(dofs).To(HaveLen(4))
		})

		It("refuses to move a body under its own descendant", func() {
			_, err := skel.MoveBodyNode(elbow, nil, wrist)
			Expect(err).To(MatchError(dynamics.ErrInvalidHandle))
			Expect(skel.NumBodies()).To(Equal(4))
		})

		It("moves into another skeleton", func() {
			dst := dynamics.NewSkeleton("dst")
			attach(dst, dynamics.BodyID{}, revolute("shoulder", 0), "upper")

			moved, err := skel.MoveBodyNode(elbow, dst, dynamics.BodyID{})
			Expect(err).NotTo(HaveOccurred())

			Expect(skel.NumBodies()).To(Equal(2))
			Expect(dst.NumBodies()).To(Equal(3))
			Expect(dst.NumTrees()).To(Equal(2))
			Expect(dst.NumDofs()).To(Equal(5))

			b, err := dst.Body(moved)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Skeleton()).To(BeIdenticalTo(dst))
			Expect(b.Children()).To(HaveLen(1))
			Expect(dst.CheckIndexingConsistency()).To(Succeed())

			_, err = dst.DofByName("wrist")
			Expect(err).NotTo(HaveOccurred())
			_, err = skel.DofByName("wrist")
			Expect(err).To(MatchError(dynamics.ErrNotFound))
		})
	})

	Describe("cloning", func() {
		It("copies a subtree at its initial configuration", func() {
			joint, err := skel.Joint(shoulder.Joint())
			Expect(err).NotTo(HaveOccurred())
			Expect(joint.SetPosition(0, 1.2)).To(Succeed())

			copied, err := skel.CloneBodyNode(shoulder, nil, dynamics.BodyID{})
			Expect(err).NotTo(HaveOccurred())
			Expect(skel.NumTrees()).To(Equal(3))
			Expect(skel.NumBodies()).To(Equal(7))

			b, err := skel.Body(copied)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Name()).To(Equal("upper(1)"))
			Expect(b.ParentJoint().Position(0)).To(Equal(0.1))
			Expect(joint.Position(0)).To(Equal(1.2))
		})

		It("clones the whole skeleton without sharing state", func() {
			Expect(skel.SetPositions([]float64{0.5, 0.1, 0.2, 0.3, 0.4, 0.6})).To(Succeed())
			skel.SetGravity(mgl64.Vec3{0, 0, -1.62})

			c := skel.Clone("copy")
			Expect(c.CheckIndexingConsistency()).To(Succeed())
			Expect(c.NumBodies()).To(Equal(skel.NumBodies()))
			Expect(c.NumDofs()).To(Equal(skel.NumDofs()))
			Expect(c.Gravity()).To(Equal(skel.Gravity()))
			Expect(c.Positions()).To(Equal([]float64{0.1, 0, 0, 0, -0.2, 0}))

			Expect(c.SetPositions([]float64{1, 1, 1, 1, 1, 1})).To(Succeed())
			Expect(skel.Positions()).To(Equal([]float64{0.5, 0.1, 0.2, 0.3, 0.4, 0.6}))

			cm, sm := c.MassMatrix(), skel.MassMatrix()
			r, _ := cm.Dims()
			Expect(r).To(Equal(6))
			Expect(sm.At(5, 5)).To(BeNumerically(">", 0))
		})
	})

	Describe("configuration snapshots", func() {
		It("restores positions and velocities", func() {
			Expect(skel.SetVelocities([]float64{1, 2, 3, 4, 5, 6})).To(Succeed())
			snap := skel.Configuration()

			skel.ComputeForwardDynamics()
			skel.IntegrateVelocities(0.01)
			skel.IntegratePositions(0.01)
			Expect(skel.Positions()).NotTo(Equal(snap.Positions))

			Expect(skel.SetConfiguration(snap)).To(Succeed())
			Expect(skel.Positions()).To(Equal(snap.Positions))
			Expect(skel.Velocities()).To(Equal(snap.Velocities))
		})

		It("rejects a snapshot of the wrong size", func() {
			err := skel.SetConfiguration(dynamics.Configuration{Positions: []float64{1}})
			Expect(err).To(MatchError(dynamics.ErrDimensionMismatch))
		})
	})
})
