package algo

import (
	"errors"
	"fmt"

	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// Sentinel errors. Use errors.Is to test for them, or KindOf to classify.
var (
	// ErrInvalidAssignment: duplicate destinations, a destination off the
	// floor plan, a robot listed twice or a robot the directory does not know.
	ErrInvalidAssignment = errors.New("invalid assignment")
	// ErrPathNotFound: no path exists and no deadlock pattern applies.
	ErrPathNotFound = errors.New("path not found")
	// ErrInvariantViolation: the search produced an inconsistent tree.
	ErrInvariantViolation = errors.New("internal invariant violation")

	ErrNotLocked     = errors.New("robot is not locked")
	ErrAlreadyLocked = errors.New("robot is already locked")
	ErrUnknownRobot  = errors.New("unknown robot")
	ErrInvalidMove   = errors.New("invalid move")
)

// ErrorKind classifies planner errors.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInvalidAssignment
	KindPathNotFound
	KindInvariantViolation
	KindNotLocked
	KindAlreadyLocked
	KindUnknownRobot
	KindInvalidMove
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidAssignment:
		return "invalid_assignment"
	case KindPathNotFound:
		return "path_not_found"
	case KindInvariantViolation:
		return "invariant_violation"
	case KindNotLocked:
		return "not_locked"
	case KindAlreadyLocked:
		return "already_locked"
	case KindUnknownRobot:
		return "unknown_robot"
	case KindInvalidMove:
		return "invalid_move"
	default:
		return "other"
	}
}

var kindSentinels = []struct {
	kind ErrorKind
	err  error
}{
	{KindInvalidAssignment, ErrInvalidAssignment},
	{KindPathNotFound, ErrPathNotFound},
	{KindInvariantViolation, ErrInvariantViolation},
	{KindNotLocked, ErrNotLocked},
	{KindAlreadyLocked, ErrAlreadyLocked},
	{KindUnknownRobot, ErrUnknownRobot},
	{KindInvalidMove, ErrInvalidMove},
}

// KindOf returns the kind of a planner error. nil yields KindNone and
// errors from outside the planner yield KindOther.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return KindOther
}

// PlanError carries the operation, robot and cell behind a planner error.
type PlanError struct {
	Op     string // "next_step", "lock", "unlock"
	Robot  core.RobotID
	Cell   core.Cell
	Detail string
	Err    error // One of the sentinel errors
}

func (e *PlanError) Error() string {
	msg := e.Op
	if e.Robot != "" {
		msg += " " + string(e.Robot)
	}
	msg += ": " + e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *PlanError) Unwrap() error { return e.Err }

// Kind returns the error classification.
func (e *PlanError) Kind() ErrorKind { return KindOf(e.Err) }

func planErr(op string, robot core.RobotID, at core.Cell, err error, format string, args ...any) *PlanError {
	return &PlanError{
		Op:     op,
		Robot:  robot,
		Cell:   at,
		Detail: fmt.Sprintf(format, args...),
		Err:    err,
	}
}
