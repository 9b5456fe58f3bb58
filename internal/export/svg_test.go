package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/multibody/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	svg := CanvasToSVG(c, 2, "#fff")
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 circles, got %d", n)
	}
	if !strings.Contains(svg, `width="8" height="8"`) {
		t.Errorf("expected an 8x8 image, got %q", svg)
	}
	if !strings.Contains(svg, `cx="7.0" cy="7.0"`) {
		t.Error("expected the second dot at (7, 7)")
	}
	if CanvasToSVG(nil, 1, "#fff") != "" {
		t.Error("expected an empty string for a nil canvas")
	}
}

func TestTrajectoryToSVG(t *testing.T) {
	series := []Series{
		{Label: "pivot", X: []float64{0, 1, 2}, Y: []float64{0, 1, 0}},
		{Label: "short", X: []float64{0}, Y: []float64{0}},
		{X: []float64{0, 2}, Y: []float64{-1, 1}, Color: "#123456"},
	}
	svg, err := TrajectoryToSVG(series, 100, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := strings.Count(svg, "<path"); n != 2 {
		t.Errorf("expected 2 paths, got %d", n)
	}
	if !strings.Contains(svg, `stroke="#123456"`) {
		t.Error("expected the explicit color")
	}
	if !strings.Contains(svg, ">pivot</text>") {
		t.Error("expected the series label")
	}
	if strings.Contains(svg, ">short</text>") {
		t.Error("expected the short series skipped")
	}
}

func TestTrajectoryToSVGEmpty(t *testing.T) {
	if _, err := TrajectoryToSVG([]Series{{X: []float64{1}, Y: []float64{1}}}, 10, 10); err == nil {
		t.Error("expected an error with nothing to plot")
	}
}

func TestWriteFile(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFile("-", &buf, "<svg/>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "<svg/>" {
		t.Errorf("expected <svg/>, got %q", buf.String())
	}

	path := filepath.Join(t.TempDir(), "out.svg")
	if err := WriteFile(path, nil, "<svg/>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "<svg/>" {
		t.Errorf("expected <svg/>, got %q", data)
	}
}
