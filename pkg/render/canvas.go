package render

import (
	"math"
	"strings"

	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// Cell is one character of a Canvas.
type Cell struct {
	Rune rune
	// Hex is the foreground colour, empty for the terminal default.
	Hex string
}

// Canvas is a character grid for terminal rendering.
type Canvas struct {
	w, h  int
	cells []Cell
}

// NewCanvas creates a blank w x h canvas.
func NewCanvas(w, h int) *Canvas {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	c := &Canvas{w: w, h: h, cells: make([]Cell, w*h)}
	c.Clear()
	return c
}

func (c *Canvas) Width() int  { return c.w }
func (c *Canvas) Height() int { return c.h }

// Clear blanks every cell.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = Cell{Rune: ' '}
	}
}

// Set writes a cell; out-of-range coordinates are ignored.
func (c *Canvas) Set(x, y int, cell Cell) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y*c.w+x] = cell
}

// At returns the cell at (x, y).
func (c *Canvas) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return Cell{}
	}
	return c.cells[y*c.w+x]
}

// Line draws from (x0, y0) to (x1, y1) with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int, cell Cell) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.Set(x0, y0, cell)
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

// DrawSegments rasterises cable segments through vp. The glyph follows the
// slope of each segment.
func (c *Canvas) DrawSegments(segs []Segment, vp Viewport) {
	for _, s := range segs {
		fx, fy := vp.Project(s.From)
		tx, ty := vp.Project(s.To)
		x0, y0 := int(math.Round(fx)), int(math.Round(fy))
		x1, y1 := int(math.Round(tx)), int(math.Round(ty))
		c.Line(x0, y0, x1, y1, Cell{Rune: slopeGlyph(x1-x0, y1-y0), Hex: s.Material.Hex})
	}
}

// DrawNodes marks node positions, drawn over cables.
func (c *Canvas) DrawNodes(nodes []topology.Node, vp Viewport) {
	for _, n := range nodes {
		if n.IsDestroyed() {
			continue
		}
		x, y := vp.Project(n.ConnectionPoint())
		glyph := 'o'
		if v, ok := n.(interface{ Variant() topology.Variant }); ok && v.Variant() == topology.VariantWallConnector {
			glyph = '#'
		}
		c.Set(int(math.Round(x)), int(math.Round(y)), Cell{Rune: glyph})
	}
}

// Rows returns the plain text of each row.
func (c *Canvas) Rows() []string {
	rows := make([]string, c.h)
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		b.Reset()
		for x := 0; x < c.w; x++ {
			b.WriteRune(c.cells[y*c.w+x].Rune)
		}
		rows[y] = b.String()
	}
	return rows
}

func (c *Canvas) String() string {
	return strings.Join(c.Rows(), "\n")
}

func slopeGlyph(dx, dy int) rune {
	switch {
	case dx == 0 && dy == 0:
		return '.'
	case dy == 0 || abs(dx) > 2*abs(dy):
		return '-'
	case dx == 0 || abs(dy) > 2*abs(dx):
		return '|'
	case (dx > 0) == (dy > 0):
		return '\\'
	default:
		return '/'
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
