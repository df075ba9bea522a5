package core

// Goal pairs a robot with its destination cell.
type Goal struct {
	Robot RobotID
	Dest  Cell
}

// Assignment maps robots to destinations. Order is significant: the
// planner services robots in slice order.
type Assignment []Goal

// Dest returns the destination assigned to a robot.
func (a Assignment) Dest(id RobotID) (Cell, bool) {
	for _, g := range a {
		if g.Robot == id {
			return g.Dest, true
		}
	}
	return Cell{}, false
}

// Robots returns the assigned robot ids in order.
func (a Assignment) Robots() []RobotID {
	ids := make([]RobotID, len(a))
	for i, g := range a {
		ids[i] = g.Robot
	}
	return ids
}

// Reached reports whether every robot in the assignment stands on its
// destination according to the directory.
func (a Assignment) Reached(dir RobotDirectory) bool {
	for _, g := range a {
		at, ok := dir.Location(g.Robot)
		if !ok || at != g.Dest {
			return false
		}
	}
	return true
}
