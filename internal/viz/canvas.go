package viz

import (
	"strings"
)

// Each terminal cell holds a 2×4 block of Braille dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
const brailleBlank = 0x2800

var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a Braille dot matrix. Coordinates are in dots; the origin is
// the top-left corner.
type Canvas struct {
	Width, Height int
	cells         [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, cells: make([][]rune, h)}
	for i := range c.cells {
		c.cells[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (int, int) { return 2 * c.Width, 4 * c.Height }

func (c *Canvas) cell(x, y int) (*rune, rune, bool) {
	if x < 0 || y < 0 {
		return nil, 0, false
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return nil, 0, false
	}
	return &c.cells[row][col], dotBits[y%4][x%2], true
}

func (c *Canvas) Set(x, y int) {
	if r, bit, ok := c.cell(x, y); ok {
		*r |= bit
	}
}

func (c *Canvas) IsSet(x, y int) bool {
	r, bit, ok := c.cell(x, y)
	return ok && *r&bit != 0
}

func (c *Canvas) Unset(x, y int) {
	if r, bit, ok := c.cell(x, y); ok {
		*r &^= bit
	}
}

func (c *Canvas) Clear() {
	for i := range c.cells {
		for j := range c.cells[i] {
			c.cells[i][j] = brailleBlank
		}
	}
}

// Line draws with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), -absInt(y1-y0)
	sx, sy := 1, 1
	if x1 < x0 {
		sx = -1
	}
	if y1 < y0 {
		sy = -1
	}
	err := dx + dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Disc fills a circle of radius r dots.
func (c *Canvas) Disc(cx, cy, r int) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				c.Set(cx+x, cy+y)
			}
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.cells {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
