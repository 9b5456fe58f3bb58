// Package export writes trajectories and rendered frames as SVG.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/viz"
)

const background = "#0a0a0a"

// CanvasToSVG draws every set dot of canvas as a circle, scale pixels apart.
func CanvasToSVG(canvas *viz.Canvas, scale float64, color string) string {
	if canvas == nil {
		return ""
	}
	w, h := canvas.Dots()
	width, height := float64(w)*scale, float64(h)*scale

	var sb strings.Builder
	header(&sb, width, height)
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", color)
	r := scale * 0.4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, r)
			}
		}
	}
	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// Series is one polyline of a chart.
type Series struct {
	Label string
	X, Y  []float64
	Color string
}

var palette = []string{"#00ff00", "#00bfff", "#ff8c00", "#ff1493", "#ffd700", "#adff2f"}

// TrajectoryToSVG plots all series on shared axes padded by 10% of their
// range. Series with fewer than two points are skipped.
func TrajectoryToSVG(series []Series, width, height int) (string, error) {
	minX, maxX, minY, maxY, ok := bounds(series)
	if !ok {
		return "", errors.New("nothing to plot")
	}
	rangeX, rangeY := pad(&minX, &maxX), pad(&minY, &maxY)

	var sb strings.Builder
	header(&sb, float64(width), float64(height))
	for i, s := range series {
		if len(s.X) < 2 || len(s.X) != len(s.Y) {
			continue
		}
		color := s.Color
		if color == "" {
			color = palette[i%len(palette)]
		}
		fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"M", color)
		for k := range s.X {
			x := (s.X[k] - minX) / rangeX * float64(width)
			y := float64(height) - (s.Y[k]-minY)/rangeY*float64(height)
			if k > 0 {
				sb.WriteString(" L")
			}
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		}
		sb.WriteString("\"/>\n")
		if s.Label != "" {
			fmt.Fprintf(&sb, "<text x=\"8\" y=\"%d\" fill=\"%s\" font-family=\"monospace\" font-size=\"12\">%s</text>\n",
				16*(i+1), color, s.Label)
		}
	}
	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

func header(sb *strings.Builder, w, h float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, w, h, w, h, background)
}

func bounds(series []Series) (minX, maxX, minY, maxY float64, ok bool) {
	for _, s := range series {
		if len(s.X) < 2 || len(s.X) != len(s.Y) {
			continue
		}
		for k := range s.X {
			if !ok {
				minX, maxX, minY, maxY, ok = s.X[k], s.X[k], s.Y[k], s.Y[k], true
				continue
			}
			minX, maxX = min(minX, s.X[k]), max(maxX, s.X[k])
			minY, maxY = min(minY, s.Y[k]), max(maxY, s.Y[k])
		}
	}
	return
}

func pad(lo, hi *float64) float64 {
	r := *hi - *lo
	if r == 0 {
		r = 1
	}
	*lo -= r * 0.1
	*hi += r * 0.1
	return *hi - *lo
}

// WriteFile writes svg to path, or to w when path is "-".
func WriteFile(path string, w io.Writer, svg string) error {
	if path == "-" {
		_, err := io.WriteString(w, svg)
		return err
	}
	return errors.Wrap(os.WriteFile(path, []byte(svg), 0o644), "write svg")
}
