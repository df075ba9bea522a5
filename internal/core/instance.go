package core

import "fmt"

// Instance is a planning scenario: a floor, starting robots and goals.
type Instance struct {
	Grid       *Grid
	Robots     []Robot // Starting positions
	Assignment Assignment
}

// NewInstance creates an empty instance on an open grid.
func NewInstance(width, height int) *Instance {
	return &Instance{Grid: NewGrid(width, height)}
}

// Validate checks that robots start on distinct open cells and that every
// goal refers to a known robot. Destination rules are left to the planner.
func (inst *Instance) Validate() error {
	if inst.Grid == nil {
		return fmt.Errorf("instance has no grid")
	}
	seen := make(map[RobotID]bool, len(inst.Robots))
	taken := make(map[Cell]RobotID, len(inst.Robots))
	for _, r := range inst.Robots {
		if seen[r.ID] {
			return fmt.Errorf("robot %s listed twice", r.ID)
		}
		seen[r.ID] = true
		if !inst.Grid.HasCell(r.Location) {
			return fmt.Errorf("robot %s starts off the floor at %s", r.ID, r.Location)
		}
		if other, ok := taken[r.Location]; ok {
			return fmt.Errorf("robots %s and %s share start %s", other, r.ID, r.Location)
		}
		taken[r.Location] = r.ID
	}
	for _, g := range inst.Assignment {
		if !seen[g.Robot] {
			return fmt.Errorf("goal for unknown robot %s", g.Robot)
		}
	}
	return nil
}

// Fleet builds a fresh directory holding the starting positions.
func (inst *Instance) Fleet() (*Fleet, error) {
	f := NewFleet(inst.Grid)
	for _, r := range inst.Robots {
		if err := f.Add(r.ID, r.Location); err != nil {
			return nil, err
		}
	}
	return f, nil
}
