package algo

import (
	"go.uber.org/zap"

	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// SidestepOrder is the order in which the deadlock breaker tries to vacate
// a contested cell.
var SidestepOrder = [4]core.Direction{core.North, core.East, core.South, core.West}

// breakDeadlock runs after the search fails for goal.Robot standing at at.
//
// While other robots are in flight the failure is treated as temporary.
// Otherwise a robot standing on someone else's destination steps aside,
// and a robot whose own destination is held by another assigned robot is
// parked idle. Anything else, including a robot outside the assignment
// sitting on the destination, is a genuine dead end.
func (p *Planner) breakDeadlock(
	assignment core.Assignment,
	locations map[core.RobotID]core.Cell,
	goal core.Goal,
	at core.Cell,
	blocked Blocked,
) (Result, error) {
	log := p.logger.With(
		zap.String("robot", string(goal.Robot)),
		zap.Stringer("at", at),
		zap.Stringer("dest", goal.Dest))

	if n := p.ledger.MovingCount(); n > 0 {
		log.Debug("no path while robots are moving", zap.Int("moving", n))
		return WaitResult(goal.Robot, WaitPathBlocked), nil
	}

	for _, other := range assignment {
		if other.Robot == goal.Robot || other.Dest != at {
			continue
		}
		for _, d := range SidestepOrder {
			if !blocked(at.Step(d)) {
				log.Info("sidestepping off another robot's destination",
					zap.String("owner", string(other.Robot)),
					zap.Stringer("direction", d))
				return SidestepResult(goal.Robot, d), nil
			}
		}
		log.Warn("boxed in on another robot's destination",
			zap.String("owner", string(other.Robot)))
		return Result{}, planErr("next_step", goal.Robot, at, ErrPathNotFound,
			"boxed in on destination of %s", other.Robot)
	}

	for _, other := range assignment {
		if other.Robot != goal.Robot && locations[other.Robot] == goal.Dest {
			p.ledger.MarkIdle(goal.Robot)
			log.Info("destination occupied, robot parked idle",
				zap.String("occupant", string(other.Robot)))
			return WaitResult(goal.Robot, WaitGoalOccupied), nil
		}
	}

	log.Warn("destination unreachable")
	return Result{}, planErr("next_step", goal.Robot, at, ErrPathNotFound,
		"no path from %s to %s", at, goal.Dest)
}
