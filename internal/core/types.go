// Package core defines domain models for the warehouse step planner.
package core

import "fmt"

// Cell is a grid coordinate. Cells compare by value.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// At returns the cell at (x, y).
func At(x, y int) Cell {
	return Cell{X: x, Y: y}
}

// Step returns the neighbouring cell one unit in direction d.
func (c Cell) Step(d Direction) Cell {
	dx, dy := d.Offset()
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

// Manhattan returns the L1 distance between two cells.
func (c Cell) Manhattan(o Cell) int {
	return abs(c.X-o.X) + abs(c.Y-o.Y)
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Direction is one of the four axis-aligned moves.
type Direction int

const (
	North Direction = iota // y+1
	South                  // y-1
	East                   // x+1
	West                   // x-1
)

func (d Direction) String() string {
	switch d {
	case North:
		return "NORTH"
	case South:
		return "SOUTH"
	case East:
		return "EAST"
	case West:
		return "WEST"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Valid reports whether d is one of the four defined directions.
func (d Direction) Valid() bool {
	return d >= North && d <= West
}

// Offset returns the unit (dx, dy) for the direction.
func (d Direction) Offset() (dx, dy int) {
	switch d {
	case North:
		return 0, 1
	case South:
		return 0, -1
	case East:
		return 1, 0
	case West:
		return -1, 0
	default:
		return 0, 0
	}
}

// DirectionBetween returns the direction that moves from one cell to an
// adjacent one. ok is false when the cells are not 4-neighbours.
func DirectionBetween(from, to Cell) (d Direction, ok bool) {
	dx, dy := to.X-from.X, to.Y-from.Y
	switch {
	case dx == 1 && dy == 0:
		return East, true
	case dx == -1 && dy == 0:
		return West, true
	case dx == 0 && dy == 1:
		return North, true
	case dx == 0 && dy == -1:
		return South, true
	}
	return 0, false
}

// ParseDirection accepts the canonical upper-case names as well as
// lower-case and single-letter forms.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "NORTH", "north", "N", "n":
		return North, nil
	case "SOUTH", "south", "S", "s":
		return South, nil
	case "EAST", "east", "E", "e":
		return East, nil
	case "WEST", "west", "W", "w":
		return West, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid direction %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
