package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/multibody/internal/sim"
)

type Part int

const (
	Positions Part = iota
	Velocities
)

func (p Part) String() string {
	if p == Velocities {
		return "velocity"
	}
	return "position"
}

// Downsample picks at most n evenly spaced values, always keeping the last.
func Downsample(values []float64, n int) []float64 {
	if n < 1 || len(values) <= n {
		return values
	}
	if n == 1 {
		return values[len(values)-1:]
	}
	out := make([]float64, n)
	last := len(values) - 1
	for i := range out {
		out[i] = values[i*last/(n-1)]
	}
	return out
}

// Column extracts one component of every state.
func Column(states []sim.State, i int) []float64 {
	out := make([]float64, 0, len(states))
	for _, x := range states {
		if i < len(x) {
			out = append(out, x[i])
		}
	}
	return out
}

// PlotDofs draws one chart per DOF of the chosen part of the trajectory.
func PlotDofs(names []string, states []sim.State, part Part, w, h int) string {
	n := len(names)
	var b strings.Builder
	for i, name := range names {
		idx := i
		if part == Velocities {
			idx += n
		}
		data := Downsample(Column(states, idx), w)
		if len(data) < 2 {
			continue
		}
		b.WriteString(asciigraph.Plot(data,
			asciigraph.Height(h),
			asciigraph.Width(w),
			asciigraph.Caption(fmt.Sprintf("%s %s", name, part)),
		))
		b.WriteString("\n\n")
	}
	return b.String()
}

// PlotSeries draws a single named series, e.g. energy over time.
func PlotSeries(values []float64, caption string, w, h int) string {
	data := Downsample(values, w)
	if len(data) < 2 {
		return ""
	}
	return asciigraph.Plot(data, asciigraph.Height(h), asciigraph.Width(w), asciigraph.Caption(caption))
}

// PhasePortrait traces (xs[i], ys[i]) on a w×h cell canvas scaled to the
// data, with the axes drawn where they fall inside it.
func PhasePortrait(xs, ys []float64, w, h int) *Canvas {
	c := NewCanvas(w, h)
	n := min(len(xs), len(ys))
	if n == 0 {
		return c
	}
	minX, maxX, minY, maxY := xs[0], xs[0], ys[0], ys[0]
	for i := 1; i < n; i++ {
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
	}
	if maxX == minX {
		minX, maxX = minX-1, maxX+1
	}
	if maxY == minY {
		minY, maxY = minY-1, maxY+1
	}
	dw, dh := c.Dots()
	px := func(x float64) int { return int((x - minX) / (maxX - minX) * float64(dw-1)) }
	py := func(y float64) int { return dh - 1 - int((y-minY)/(maxY-minY)*float64(dh-1)) }

	if minX < 0 && maxX > 0 {
		c.Line(px(0), 0, px(0), dh-1)
	}
	if minY < 0 && maxY > 0 {
		c.Line(0, py(0), dw-1, py(0))
	}
	x0, y0 := px(xs[0]), py(ys[0])
	c.Set(x0, y0)
	for i := 1; i < n; i++ {
		x1, y1 := px(xs[i]), py(ys[i])
		c.Line(x0, y0, x1, y1)
		x0, y0 = x1, y1
	}
	return c
}
