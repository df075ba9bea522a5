// Package algo implements the warehouse step planner: a reservation-aware
// breadth-first search that yields one move at a time for one robot.
package algo

import (
	"errors"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// Planner coordinates robot selection, search, the reservation ledger and
// the deadlock breaker. One Planner owns one ledger and one search arena;
// it must not be shared between goroutines without external locking.
type Planner struct {
	floor    core.FloorPlan
	robots   core.RobotDirectory
	ledger   *Ledger
	search   *Search
	logger   *zap.Logger
	observer Observer
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// WithObserver sets the activity observer.
func WithObserver(o Observer) Option {
	return func(p *Planner) { p.observer = o }
}

// WithLedger supplies an existing ledger.
func WithLedger(l *Ledger) Option {
	return func(p *Planner) { p.ledger = l }
}

// NewPlanner creates a planner over a floor plan and a robot directory.
func NewPlanner(floor core.FloorPlan, robots core.RobotDirectory, opts ...Option) *Planner {
	p := &Planner{
		floor:    floor,
		robots:   robots,
		ledger:   NewLedger(),
		search:   NewSearch(),
		logger:   zap.NewNop(),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ledger exposes the reservation ledger for inspection.
func (p *Planner) Ledger() *Ledger { return p.ledger }

// NextStep picks the first robot in assignment order that is neither on
// its destination, moving nor idle, and returns its next move. Wait and
// Done are returned as results; invalid input, unreachable goals and
// internal faults are returned as errors.
func (p *Planner) NextStep(assignment core.Assignment) (Result, error) {
	res, robot, err := p.nextStep(assignment)
	if err != nil {
		p.observer.OnError(robot, err)
		return Result{}, err
	}
	p.observer.OnResult(res)
	return res, nil
}

func (p *Planner) nextStep(assignment core.Assignment) (Result, core.RobotID, error) {
	snapshot := p.robots.Robots()
	locations := make(map[core.RobotID]core.Cell, len(snapshot))
	occupied := make(map[core.Cell]struct{}, len(snapshot))
	for _, r := range snapshot {
		locations[r.ID] = r.Location
		occupied[r.Location] = struct{}{}
	}

	if err := p.validate(assignment, locations); err != nil {
		return Result{}, "", err
	}

	goal, ok := p.selectRobot(assignment, locations)
	if !ok {
		moving, idle := p.ledger.MovingCount(), p.ledger.IdleCount()
		if moving == 0 && idle == 0 {
			return DoneResult(), "", nil
		}
		p.logger.Debug("no eligible robot", zap.Int("moving", moving), zap.Int("idle", idle))
		if moving > 0 {
			return WaitResult("", WaitOthersMoving), "", nil
		}
		return WaitResult("", WaitIdlePending), "", nil
	}

	at := locations[goal.Robot]
	blocked := func(c core.Cell) bool {
		if !p.floor.HasCell(c) {
			return true
		}
		if _, ok := occupied[c]; ok {
			return true
		}
		return p.ledger.IsReserved(c)
	}

	dir, expanded, err := p.search.FirstStep(at, goal.Dest, blocked)
	p.observer.OnSearch(goal.Robot, expanded, err == nil)
	switch {
	case err == nil:
		p.logger.Debug("step found",
			zap.String("robot", string(goal.Robot)),
			zap.Stringer("at", at),
			zap.Stringer("dest", goal.Dest),
			zap.Stringer("direction", dir),
			zap.Int("expanded", expanded))
		return StepResult(goal.Robot, dir), goal.Robot, nil
	case errors.Is(err, errNoPath):
		res, err := p.breakDeadlock(assignment, locations, goal, at, blocked)
		return res, goal.Robot, err
	default:
		p.logger.Error("search invariant violated",
			zap.String("robot", string(goal.Robot)),
			zap.Stringer("at", at),
			zap.Error(err))
		return Result{}, goal.Robot, planErr("next_step", goal.Robot, at, ErrInvariantViolation, "%v", err)
	}
}

// validate rejects assignments with shared or off-floor destinations, and
// robots that are repeated or unknown to the directory.
func (p *Planner) validate(assignment core.Assignment, locations map[core.RobotID]core.Cell) error {
	robots := make(map[core.RobotID]struct{}, len(assignment))
	dests := make(map[core.Cell]core.RobotID, len(assignment))
	for _, g := range assignment {
		if _, dup := robots[g.Robot]; dup {
			return planErr("next_step", g.Robot, g.Dest, ErrInvalidAssignment, "robot listed twice")
		}
		robots[g.Robot] = struct{}{}

		if _, ok := locations[g.Robot]; !ok {
			return planErr("next_step", g.Robot, g.Dest, ErrInvalidAssignment, "robot not in directory")
		}
		if other, dup := dests[g.Dest]; dup {
			return planErr("next_step", g.Robot, g.Dest, ErrInvalidAssignment,
				"destination %s also assigned to %s", g.Dest, other)
		}
		dests[g.Dest] = g.Robot

		if !p.floor.HasCell(g.Dest) {
			return planErr("next_step", g.Robot, g.Dest, ErrInvalidAssignment,
				"destination %s is not on the floor plan", g.Dest)
		}
	}
	return nil
}

func (p *Planner) selectRobot(assignment core.Assignment, locations map[core.RobotID]core.Cell) (core.Goal, bool) {
	for _, g := range assignment {
		if locations[g.Robot] == g.Dest {
			continue
		}
		if p.ledger.IsMoving(g.Robot) || p.ledger.IsIdle(g.Robot) {
			continue
		}
		return g, true
	}
	return core.Goal{}, false
}

// Lock reserves the cell a robot is about to enter. Call it with the
// robot and direction just returned by NextStep, before animating.
func (p *Planner) Lock(id core.RobotID, d core.Direction) error {
	at, ok := p.robots.Location(id)
	if !ok {
		err := planErr("lock", id, core.Cell{}, ErrUnknownRobot, "robot not in directory")
		p.observer.OnError(id, err)
		return err
	}
	if !d.Valid() {
		err := planErr("lock", id, at, ErrInvalidMove, "invalid direction %d", int(d))
		p.observer.OnError(id, err)
		return err
	}
	target := at.Step(d)
	if !p.floor.HasCell(target) {
		err := planErr("lock", id, target, ErrInvalidMove, "target %s is not on the floor plan", target)
		p.observer.OnError(id, err)
		return err
	}
	if rerr := p.ledger.Reserve(id, target); rerr != nil {
		err := planErr("lock", id, target, rerr, "reserve %s", target)
		p.observer.OnError(id, err)
		return err
	}

	p.logger.Debug("robot locked",
		zap.String("robot", string(id)),
		zap.Stringer("from", at),
		zap.Stringer("target", target))
	p.observer.OnLock(id, target, p.ledger)
	return nil
}

// Unlock ends a robot's move once the directory reflects its new cell.
// It frees the cell reserved at lock time and clears every idle robot.
func (p *Planner) Unlock(id core.RobotID) error {
	released, rerr := p.ledger.Release(id)
	if rerr != nil {
		err := planErr("unlock", id, core.Cell{}, rerr, "no reservation held")
		p.observer.OnError(id, err)
		return err
	}

	if at, ok := p.robots.Location(id); ok && at != released {
		p.logger.Warn("robot unlocked away from its reserved cell",
			zap.String("robot", string(id)),
			zap.Stringer("at", at),
			zap.Stringer("reserved", released))
	}
	p.logger.Debug("robot unlocked",
		zap.String("robot", string(id)),
		zap.Stringer("released", released))
	p.observer.OnUnlock(id, released, p.ledger)
	return nil
}
