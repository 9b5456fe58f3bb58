package dynamics

import (
	"fmt"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/multibody/internal/spatial"
)

const g0 = 9.81

// pendulumAxis makes positive angles swing the body toward +x.
var pendulumAxis = mgl64.Vec3{0, -1, 0}

func pointMass(name string, m float64) BodyNodeProperties {
	return BodyNodeProperties{Name: name, Mass: m, GravityMode: true}
}

// hinge returns a revolute joint whose pivot sits length above the child
// body origin.
func hinge(tb testing.TB, name string, length float64) *FlatJoint {
	tb.Helper()
	props := DefaultJointProperties(1)
	props.Name = name
	props.ChildToJoint = spatial.Translation(mgl64.Vec3{0, 0, length})
	j, err := NewRevoluteJoint(props, pendulumAxis)
	if err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
	return j
}

// newChain builds a planar chain of point masses hanging below the world
// origin, each pivot at the previous mass.
func newChain(tb testing.TB, skel *Skeleton, masses, lengths []float64) []BodyID {
	tb.Helper()
	var parent BodyID
	ids := make([]BodyID, len(masses))
	for i := range masses {
		j := hinge(tb, fmt.Sprintf("j%d", i), lengths[i])
		id, err := skel.CreateJointAndBodyNodePair(parent, j, pointMass(fmt.Sprintf("link%d", i), masses[i]))
		if err != nil {
			tb.Fatalf("unexpected error: %v", err)
		}
		ids[i] = id
		parent = id
	}
	return ids
}

func mustJoint(tb testing.TB, skel *Skeleton, id BodyID) Joint {
	tb.Helper()
	j, err := skel.Joint(id.Joint())
	if err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
	return j
}

func mustBody(tb testing.TB, skel *Skeleton, id BodyID) *BodyNode {
	tb.Helper()
	b, err := skel.Body(id)
	if err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
	return b
}

// doublePendulum returns M, C and G of a planar double pendulum of point
// masses in relative coordinates: M·q̈ + C + G = τ.
func doublePendulum(m1, m2, l1, l2 float64, q, dq []float64) (m [2][2]float64, c, grav [2]float64) {
	c2, s2 := math.Cos(q[1]), math.Sin(q[1])
	m[0][0] = (m1+m2)*l1*l1 + m2*l2*l2 + 2*m2*l1*l2*c2
	m[0][1] = m2*l2*l2 + m2*l1*l2*c2
	m[1][0] = m[0][1]
	m[1][1] = m2 * l2 * l2

	c[0] = -m2 * l1 * l2 * s2 * (2*dq[0]*dq[1] + dq[1]*dq[1])
	c[1] = m2 * l1 * l2 * s2 * dq[0] * dq[0]

	grav[0] = (m1+m2)*g0*l1*math.Sin(q[0]) + m2*g0*l2*math.Sin(q[0]+q[1])
	grav[1] = m2 * g0 * l2 * math.Sin(q[0]+q[1])
	return m, c, grav
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func approxSlice(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !approx(a[i], b[i], tol) {
			return false
		}
	}
	return true
}

func isIdentity(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(m.At(i, j)-want) > tol {
				return false
			}
		}
	}
	return true
}
