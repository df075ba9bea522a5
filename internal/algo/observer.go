package algo

import "github.com/elektrokombinacija/warehouse-planner/internal/core"

// Observer is notified of planner activity. Implementations must not call
// back into the planner.
type Observer interface {
	// OnSearch is called after every breadth-first search.
	OnSearch(robot core.RobotID, expanded int, found bool)

	// OnResult is called for every non-error NextStep outcome.
	OnResult(res Result)

	// OnError is called for every NextStep, Lock or Unlock error.
	OnError(robot core.RobotID, err error)

	// OnLock is called when a robot reserves a cell.
	OnLock(robot core.RobotID, target core.Cell, ledger *Ledger)

	// OnUnlock is called when a robot releases its reservation.
	OnUnlock(robot core.RobotID, released core.Cell, ledger *Ledger)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) OnSearch(core.RobotID, int, bool) {}
func (NopObserver) OnResult(Result) {}
func (NopObserver) OnError(core.RobotID, error) {}
func (NopObserver) OnLock(core.RobotID, core.Cell, *Ledger) {}
func (NopObserver) OnUnlock(core.RobotID, core.Cell, *Ledger) {}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnSearch(robot core.RobotID, expanded int, found bool) {
	for _, o := range m {
		o.OnSearch(robot, expanded, found)
	}
}

func (m MultiObserver) OnResult(res Result) {
	for _, o := range m {
		o.OnResult(res)
	}
}

func (m MultiObserver) OnError(robot core.RobotID, err error) {
	for _, o := range m {
		o.OnError(robot, err)
	}
}

func (m MultiObserver) OnLock(robot core.RobotID, target core.Cell, ledger *Ledger) {
	for _, o := range m {
		o.OnLock(robot, target, ledger)
	}
}

func (m MultiObserver) OnUnlock(robot core.RobotID, released core.Cell, ledger *Ledger) {
	for _, o := range m {
		o.OnUnlock(robot, released, ledger)
	}
}
