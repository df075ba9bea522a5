package core

import (
	"errors"
	"fmt"
	"sync"
)

// RobotID is a stable robot identifier.
type RobotID string

// Robot is a read-only snapshot of a robot and its current cell.
type Robot struct {
	ID       RobotID
	Location Cell
}

// RobotDirectory enumerates live robots and their current cells.
type RobotDirectory interface {
	// Robots returns a snapshot of all live robots in a stable order.
	Robots() []Robot
	// Location returns the current cell of a robot.
	Location(id RobotID) (Cell, bool)
}

var (
	ErrDuplicateRobot = errors.New("robot already registered")
	ErrRobotNotFound  = errors.New("robot not found")
	ErrOffFloor       = errors.New("cell is not on the floor plan")
	ErrCellOccupied   = errors.New("cell is occupied")
)

// Fleet is an in-memory RobotDirectory that also executes moves.
// It is safe for concurrent use.
type Fleet struct {
	mu     sync.RWMutex
	floor  FloorPlan
	order  []RobotID
	cells  map[RobotID]Cell
	occupy map[Cell]RobotID
}

// NewFleet creates an empty fleet on the given floor plan.
func NewFleet(floor FloorPlan) *Fleet {
	return &Fleet{
		floor:  floor,
		cells:  make(map[RobotID]Cell),
		occupy: make(map[Cell]RobotID),
	}
}

// Add registers a robot at a cell.
func (f *Fleet) Add(id RobotID, at Cell) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.cells[id]; ok {
		return fmt.Errorf("add %s: %w", id, ErrDuplicateRobot)
	}
	if err := f.checkFree(at); err != nil {
		return fmt.Errorf("add %s at %s: %w", id, at, err)
	}
	f.order = append(f.order, id)
	f.cells[id] = at
	f.occupy[at] = id
	return nil
}

// Robots returns robots in registration order.
func (f *Fleet) Robots() []Robot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Robot, len(f.order))
	for i, id := range f.order {
		out[i] = Robot{ID: id, Location: f.cells[id]}
	}
	return out
}

// Location returns the current cell of a robot.
func (f *Fleet) Location(id RobotID) (Cell, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.cells[id]
	return c, ok
}

// Len returns the number of registered robots.
func (f *Fleet) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.order)
}

// Move advances a robot one cell in direction d.
func (f *Fleet) Move(id RobotID, d Direction) (Cell, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	from, ok := f.cells[id]
	if !ok {
		return Cell{}, fmt.Errorf("move %s: %w", id, ErrRobotNotFound)
	}
	to := from.Step(d)
	if err := f.checkFree(to); err != nil {
		return from, fmt.Errorf("move %s %s to %s: %w", id, d, to, err)
	}
	f.relocate(id, from, to)
	return to, nil
}

// Place records an externally observed position for a robot.
func (f *Fleet) Place(id RobotID, at Cell) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	from, ok := f.cells[id]
	if !ok {
		return fmt.Errorf("place %s: %w", id, ErrRobotNotFound)
	}
	if from == at {
		return nil
	}
	if err := f.checkFree(at); err != nil {
		return fmt.Errorf("place %s at %s: %w", id, at, err)
	}
	f.relocate(id, from, at)
	return nil
}

func (f *Fleet) relocate(id RobotID, from, to Cell) {
	delete(f.occupy, from)
	f.occupy[to] = id
	f.cells[id] = to
}

func (f *Fleet) checkFree(c Cell) error {
	if f.floor != nil && !f.floor.HasCell(c) {
		return ErrOffFloor
	}
	if _, taken := f.occupy[c]; taken {
		return ErrCellOccupied
	}
	return nil
}
