package core

import (
	"fmt"
	"strings"
)

// FloorPlan answers whether a cell exists on the grid.
type FloorPlan interface {
	HasCell(c Cell) bool
}

// Grid is a rectangular floor plan with optional blocked cells.
// Cells span x in [0, Width) and y in [0, Height).
type Grid struct {
	Width, Height int
	blocked       map[Cell]bool
}

// NewGrid creates an open width x height grid.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:   width,
		Height:  height,
		blocked: make(map[Cell]bool),
	}
}

// Block removes cells from the floor plan. Out-of-bounds cells are ignored.
func (g *Grid) Block(cells ...Cell) {
	for _, c := range cells {
		if g.InBounds(c) {
			g.blocked[c] = true
		}
	}
}

// Unblock restores a previously blocked cell.
func (g *Grid) Unblock(c Cell) {
	delete(g.blocked, c)
}

// InBounds reports whether c lies inside the rectangle, blocked or not.
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// HasCell reports whether c is an open cell of the grid.
func (g *Grid) HasCell(c Cell) bool {
	return g.InBounds(c) && !g.blocked[c]
}

// Blocked returns the blocked cells in row-major order (y asc, then x asc).
func (g *Grid) Blocked() []Cell {
	var out []Cell
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.blocked[At(x, y)] {
				out = append(out, At(x, y))
			}
		}
	}
	return out
}

// OpenCells returns all open cells in row-major order.
func (g *Grid) OpenCells() []Cell {
	out := make([]Cell, 0, g.Width*g.Height-len(g.blocked))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if c := At(x, y); !g.blocked[c] {
				out = append(out, c)
			}
		}
	}
	return out
}

// ParseGrid builds a grid from ASCII rows: '.' is open, '#' is blocked.
// The first row is the top of the map (largest y), so North points up.
func ParseGrid(rows []string) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty grid")
	}
	width := len(rows[0])
	g := NewGrid(width, len(rows))
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has width %d, want %d", i, len(row), width)
		}
		y := len(rows) - 1 - i
		for x, ch := range row {
			switch ch {
			case '.':
			case '#':
				g.Block(At(x, y))
			default:
				return nil, fmt.Errorf("row %d col %d: unexpected %q", i, x, ch)
			}
		}
	}
	return g, nil
}

// Render draws the grid in ParseGrid's format, overlaying marks
// (e.g. robot initials) on their cells.
func (g *Grid) Render(marks map[Cell]byte) string {
	var b strings.Builder
	for y := g.Height - 1; y >= 0; y-- {
		for x := 0; x < g.Width; x++ {
			c := At(x, y)
			switch {
			case marks[c] != 0:
				b.WriteByte(marks[c])
			case g.blocked[c]:
				b.WriteByte('#')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
