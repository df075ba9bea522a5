package algo

import (
	"fmt"

	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// ResultKind tags the non-error outcomes of NextStep.
type ResultKind int

const (
	ResultStep ResultKind = iota // Robot should move one cell in Direction
	ResultWait                   // Retry after other robots progress
	ResultDone                   // Every robot is on its destination
)

func (k ResultKind) String() string {
	switch k {
	case ResultStep:
		return "step"
	case ResultWait:
		return "wait"
	case ResultDone:
		return "done"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// WaitReason explains a ResultWait.
type WaitReason string

const (
	WaitNone         WaitReason = ""
	WaitOthersMoving WaitReason = "others-moving" // Nothing eligible; robots in flight
	WaitIdlePending  WaitReason = "idle-pending"  // Nothing eligible or moving; idle robots await an unlock
	WaitPathBlocked  WaitReason = "path-blocked"  // Search failed while robots are in flight
	WaitGoalOccupied WaitReason = "goal-occupied" // Another assigned robot sits on the goal; robot marked idle
)

// Result is the outcome of one NextStep call.
type Result struct {
	Kind      ResultKind
	Robot     core.RobotID   // Set for Step and for robot-specific waits
	Direction core.Direction // Valid only for Step
	Sidestep  bool           // Step produced by the deadlock breaker
	Reason    WaitReason     // Set only for Wait
}

// StepResult builds a step outcome.
func StepResult(id core.RobotID, d core.Direction) Result {
	return Result{Kind: ResultStep, Robot: id, Direction: d}
}

// SidestepResult builds a step outcome produced by the deadlock breaker.
func SidestepResult(id core.RobotID, d core.Direction) Result {
	return Result{Kind: ResultStep, Robot: id, Direction: d, Sidestep: true}
}

// WaitResult builds a wait outcome.
func WaitResult(id core.RobotID, reason WaitReason) Result {
	return Result{Kind: ResultWait, Robot: id, Reason: reason}
}

// DoneResult builds the terminal outcome.
func DoneResult() Result {
	return Result{Kind: ResultDone}
}

func (r Result) String() string {
	switch r.Kind {
	case ResultStep:
		if r.Sidestep {
			return fmt.Sprintf("sidestep(%s, %s)", r.Robot, r.Direction)
		}
		return fmt.Sprintf("step(%s, %s)", r.Robot, r.Direction)
	case ResultWait:
		if r.Robot != "" {
			return fmt.Sprintf("wait(%s, %s)", r.Robot, r.Reason)
		}
		return fmt.Sprintf("wait(%s)", r.Reason)
	default:
		return r.Kind.String()
	}
}
