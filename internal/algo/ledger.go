package algo

import (
	"sort"

	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// Ledger records robots that are mid-move, the cell each one reserved at
// lock time, and robots parked idle by the deadlock breaker. It is the
// only planner state that survives between NextStep calls.
// Not safe for concurrent use.
type Ledger struct {
	moving   map[core.RobotID]core.Cell // Robot -> reserved target
	reserved map[core.Cell]core.RobotID
	idle     map[core.RobotID]struct{}
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		moving:   make(map[core.RobotID]core.Cell),
		reserved: make(map[core.Cell]core.RobotID),
		idle:     make(map[core.RobotID]struct{}),
	}
}

// Reserve marks a robot as moving into target. It fails if the robot is
// already moving or another robot holds the target.
func (l *Ledger) Reserve(id core.RobotID, target core.Cell) error {
	if _, ok := l.moving[id]; ok {
		return ErrAlreadyLocked
	}
	if holder, ok := l.reserved[target]; ok && holder != id {
		return ErrInvalidMove
	}
	l.moving[id] = target
	l.reserved[target] = id
	return nil
}

// Release ends a robot's move, frees the cell reserved for it and clears
// the whole idle set. It returns the released cell.
func (l *Ledger) Release(id core.RobotID) (core.Cell, error) {
	target, ok := l.moving[id]
	if !ok {
		return core.Cell{}, ErrNotLocked
	}
	delete(l.moving, id)
	delete(l.reserved, target)
	clear(l.idle)
	return target, nil
}

// MarkIdle parks a robot until the next Release.
func (l *Ledger) MarkIdle(id core.RobotID) {
	l.idle[id] = struct{}{}
}

// IsMoving reports whether the robot holds a reservation.
func (l *Ledger) IsMoving(id core.RobotID) bool {
	_, ok := l.moving[id]
	return ok
}

// IsIdle reports whether the robot is parked idle.
func (l *Ledger) IsIdle(id core.RobotID) bool {
	_, ok := l.idle[id]
	return ok
}

// IsReserved reports whether any in-flight move targets the cell.
func (l *Ledger) IsReserved(c core.Cell) bool {
	_, ok := l.reserved[c]
	return ok
}

// Target returns the cell reserved by a moving robot.
func (l *Ledger) Target(id core.RobotID) (core.Cell, bool) {
	c, ok := l.moving[id]
	return c, ok
}

func (l *Ledger) MovingCount() int { return len(l.moving) }

func (l *Ledger) IdleCount() int { return len(l.idle) }

func (l *Ledger) ReservedCount() int { return len(l.reserved) }

// LedgerSnapshot is a sorted copy of the ledger for reporting.
type LedgerSnapshot struct {
	Moving map[core.RobotID]core.Cell `json:"moving"`
	Idle   []core.RobotID             `json:"idle"`
}

// Snapshot copies the ledger.
func (l *Ledger) Snapshot() LedgerSnapshot {
	snap := LedgerSnapshot{
		Moving: make(map[core.RobotID]core.Cell, len(l.moving)),
		Idle:   make([]core.RobotID, 0, len(l.idle)),
	}
	for id, c := range l.moving {
		snap.Moving[id] = c
	}
	for id := range l.idle {
		snap.Idle = append(snap.Idle, id)
	}
	sort.Slice(snap.Idle, func(i, j int) bool { return snap.Idle[i] < snap.Idle[j] })
	return snap
}
