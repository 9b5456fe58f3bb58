package viz

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/multibody/internal/dynamics"
)

// Camera orbits a target point. World +z is drawn up.
type Camera struct {
	Target     mgl64.Vec3
	Yaw, Pitch float64
	Zoom       float64
	// Distance > 0 gives a perspective projection, 0 an orthographic one.
	Distance float64
}

func NewCamera() *Camera {
	return &Camera{Zoom: 1, Distance: 12}
}

func (c *Camera) Orbit(dyaw, dpitch float64) {
	c.Yaw += dyaw
	c.Pitch = mgl64.Clamp(c.Pitch+dpitch, -math.Pi/2, math.Pi/2)
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// view maps world points into camera coordinates: x right, y up, z toward
// the viewer.
func (c *Camera) view() mgl64.Mat4 {
	// looking along +y at yaw 0 with z up
	base := mgl64.Mat4{
		1, 0, 0, 0,
		0, 0, -1, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
	}
	return mgl64.HomogRotate3DX(c.Pitch).
		Mul4(base).
		Mul4(mgl64.HomogRotate3DZ(-c.Yaw)).
		Mul4(mgl64.Translate3D(-c.Target[0], -c.Target[1], -c.Target[2]))
}

// Project maps p to dot coordinates on a w×h canvas with scale dots per
// meter at zoom 1. ok is false for points behind the camera.
func (c *Camera) Project(p mgl64.Vec3, w, h int, scale float64) (x, y int, depth float64, ok bool) {
	v := mgl64.TransformCoordinate(p, c.view())
	k := scale * c.Zoom
	if c.Distance > 0 {
		if v[2] >= c.Distance {
			return 0, 0, 0, false
		}
		k *= c.Distance / (c.Distance - v[2])
	}
	x = int(math.Round(v[0]*k)) + w/2
	y = int(math.Round(-v[1]*k)) + h/2
	return x, y, v[2], true
}

type SegmentKind int

const (
	Link SegmentKind = iota
	Axis
	Marker
)

type Segment struct {
	A, B mgl64.Vec3
	Kind SegmentKind
}

// markerSize is the half length of the body frame axes, in meters.
const markerSize = 0.15

// SkeletonSegments describes skel as world-space segments: a link from each
// joint to its child's center of mass, a link from each parent's center of
// mass to the joints it carries, and a point at every center of mass. Bodies
// with rotational inertia also get their frame axes.
func SkeletonSegments(skel *dynamics.Skeleton) []Segment {
	var out []Segment
	for _, b := range skel.Bodies() {
		tf := b.WorldTransform()
		com := b.COM()
		pivot := tf.Apply(b.ParentJoint().ChildToJoint().P)
		if p := b.Parent(); p != nil {
			out = append(out, Segment{A: p.COM(), B: pivot, Kind: Link})
		}
		out = append(out, Segment{A: pivot, B: com, Kind: Link})
		out = append(out, Segment{A: com, B: com, Kind: Marker})

		if b.Properties().Inertia != (mgl64.Mat3{}) {
			for i := 0; i < 3; i++ {
				axis := tf.R.Col(i).Mul(markerSize)
				out = append(out, Segment{A: com.Sub(axis), B: com.Add(axis), Kind: Axis})
			}
		}
	}
	return out
}

// Render draws segments back to front.
func Render(c *Canvas, segs []Segment, cam *Camera, scale float64) {
	if c == nil || cam == nil {
		return
	}
	w, h := c.Dots()
	type projected struct {
		x0, y0, x1, y1 int
		depth          float64
		kind           SegmentKind
	}
	proj := make([]projected, 0, len(segs))
	for _, s := range segs {
		x0, y0, d0, ok0 := cam.Project(s.A, w, h, scale)
		x1, y1, d1, ok1 := cam.Project(s.B, w, h, scale)
		if !ok0 || !ok1 {
			continue
		}
		proj = append(proj, projected{x0, y0, x1, y1, (d0 + d1) / 2, s.Kind})
	}
	sort.SliceStable(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, p := range proj {
		switch p.kind {
		case Marker:
			c.Disc(p.x0, p.y0, 2)
		default:
			c.Line(p.x0, p.y0, p.x1, p.y1)
		}
	}
}

// Frame renders skel from cam onto a fresh w×h cell canvas scaled to fit.
// Floating skeletons are centred on their COM.
func Frame(skel *dynamics.Skeleton, cam *Camera, w, h int) *Canvas {
	c := NewCanvas(w, h)
	if hasFreeJoint(skel) {
		cam.Target = skel.COM()
	}
	Render(c, SkeletonSegments(skel), cam, fitScale(skel, c))
	return c
}
