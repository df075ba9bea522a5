package algo

import (
	"errors"
	"testing"

	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// newTestPlanner builds a planner over an ASCII floor with robots placed
// at the given cells.
func newTestPlanner(t *testing.T, rows []string, robots []core.Robot, opts ...Option) (*Planner, *core.Fleet) {
	t.Helper()
	g, err := core.ParseGrid(rows)
	if err != nil {
		t.Fatalf("ParseGrid: %v", err)
	}
	fleet := core.NewFleet(g)
	for _, r := range robots {
		if err := fleet.Add(r.ID, r.Location); err != nil {
			t.Fatalf("Add %s: %v", r.ID, err)
		}
	}
	return NewPlanner(g, fleet, opts...), fleet
}

var open3 = []string{"...", "...", "..."}

func mustStep(t *testing.T, p *Planner, a core.Assignment) Result {
	t.Helper()
	res, err := p.NextStep(a)
	if err != nil {
		t.Fatalf("NextStep: %v", err)
	}
	return res
}

func TestNextStep_SimpleStep(t *testing.T) {
	p, _ := newTestPlanner(t, open3, []core.Robot{{ID: "a", Location: core.At(0, 0)}})
	a := core.Assignment{{Robot: "a", Dest: core.At(2, 0)}}

	res := mustStep(t, p, a)
	if res != StepResult("a", core.East) {
		t.Fatalf("NextStep = %v, want step(a, EAST)", res)
	}

	// Same inputs, same answer; nothing leaks between calls.
	again := mustStep(t, p, a)
	if again != res {
		t.Errorf("repeat NextStep = %v, want %v", again, res)
	}
	if !p.search.Empty() {
		t.Error("search state not cleared")
	}
}

func TestNextStep_Done(t *testing.T) {
	p, _ := newTestPlanner(t, open3, []core.Robot{{ID: "a", Location: core.At(0, 0)}})
	res := mustStep(t, p, core.Assignment{{Robot: "a", Dest: core.At(0, 0)}})
	if res.Kind != ResultDone {
		t.Fatalf("NextStep = %v, want done", res)
	}

	res = mustStep(t, p, nil)
	if res.Kind != ResultDone {
		t.Fatalf("empty assignment = %v, want done", res)
	}
}

func TestNextStep_InvalidAssignment(t *testing.T) {
	robots := []core.Robot{
		{ID: "a", Location: core.At(0, 0)},
		{ID: "b", Location: core.At(2, 2)},
	}
	tests := []struct {
		name string
		a    core.Assignment
	}{
		{"shared destination", core.Assignment{{Robot: "a", Dest: core.At(1, 1)}, {Robot: "b", Dest: core.At(1, 1)}}},
		{"destination off grid", core.Assignment{{Robot: "a", Dest: core.At(5, 5)}}},
		{"destination blocked", core.Assignment{{Robot: "a", Dest: core.At(1, 2)}}},
		{"robot repeated", core.Assignment{{Robot: "a", Dest: core.At(1, 1)}, {Robot: "a", Dest: core.At(2, 0)}}},
		{"robot unknown", core.Assignment{{Robot: "ghost", Dest: core.At(1, 1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPlanner(t, []string{".#.", "...", "..."}, robots)
			_, err := p.NextStep(tt.a)
			if !errors.Is(err, ErrInvalidAssignment) {
				t.Fatalf("err = %v, want ErrInvalidAssignment", err)
			}
			if KindOf(err) != KindInvalidAssignment {
				t.Errorf("KindOf = %v", KindOf(err))
			}
			if p.ledger.IdleCount() != 0 || p.ledger.MovingCount() != 0 || !p.search.Empty() {
				t.Error("invalid input must not touch planner state")
			}
		})
	}
}

func TestNextStep_SelectionSkipsMovingRobots(t *testing.T) {
	p, fleet := newTestPlanner(t, open3, []core.Robot{
		{ID: "a", Location: core.At(0, 0)},
		{ID: "b", Location: core.At(0, 2)},
	})
	a := core.Assignment{
		{Robot: "a", Dest: core.At(2, 0)},
		{Robot: "b", Dest: core.At(2, 2)},
	}

	res := mustStep(t, p, a)
	if res != StepResult("a", core.East) {
		t.Fatalf("first = %v, want step(a, EAST)", res)
	}
	if err := p.Lock("a", core.East); err != nil {
		t.Fatalf("Lock a: %v", err)
	}

	res = mustStep(t, p, a)
	if res != StepResult("b", core.East) {
		t.Fatalf("second = %v, want step(b, EAST)", res)
	}
	if err := p.Lock("b", core.East); err != nil {
		t.Fatalf("Lock b: %v", err)
	}

	res = mustStep(t, p, a)
	if res.Kind != ResultWait || res.Reason != WaitOthersMoving {
		t.Fatalf("third = %v, want wait(others-moving)", res)
	}

	if _, err := fleet.Move("a", core.East); err != nil {
		t.Fatalf("Move a: %v", err)
	}
	if err := p.Unlock("a"); err != nil {
		t.Fatalf("Unlock a: %v", err)
	}
	res = mustStep(t, p, a)
	if res != StepResult("a", core.East) {
		t.Fatalf("after unlock = %v, want step(a, EAST)", res)
	}
}

func TestNextStep_ReservedCellIsObstacle(t *testing.T) {
	p, _ := newTestPlanner(t, open3, []core.Robot{
		{ID: "b", Location: core.At(1, 1)},
		{ID: "a", Location: core.At(0, 0)},
	})
	a := core.Assignment{
		{Robot: "b", Dest: core.At(1, 0)},
		{Robot: "a", Dest: core.At(2, 0)},
	}

	res := mustStep(t, p, a)
	if res != StepResult("b", core.South) {
		t.Fatalf("first = %v, want step(b, SOUTH)", res)
	}
	if err := p.Lock("b", core.South); err != nil {
		t.Fatalf("Lock b: %v", err)
	}

	// (1,0) is reserved and (1,1) still holds b, so a detours north.
	res = mustStep(t, p, a)
	if res != StepResult("a", core.North) {
		t.Fatalf("second = %v, want step(a, NORTH)", res)
	}
}

func TestNextStep_SwapSidestep(t *testing.T) {
	p, _ := newTestPlanner(t, open3, []core.Robot{
		{ID: "a", Location: core.At(0, 0)},
		{ID: "b", Location: core.At(1, 0)},
	})
	a := core.Assignment{
		{Robot: "a", Dest: core.At(1, 0)},
		{Robot: "b", Dest: core.At(0, 0)},
	}

	res := mustStep(t, p, a)
	if res.Kind != ResultStep || !res.Sidestep || res.Robot != "a" {
		t.Fatalf("NextStep = %v, want sidestep for a", res)
	}
	if res.Direction == core.East {
		t.Error("sidestep must not move toward b")
	}
	if res.Direction != core.North {
		t.Errorf("sidestep = %v, want NORTH", res.Direction)
	}
}

func TestNextStep_SidestepOrder(t *testing.T) {
	tests := []struct {
		name  string
		floor []string
		want  core.Direction
	}{
		{"north first", []string{"...", "...", "..."}, core.North},
		{"east before west", []string{".#.", "...", "..."}, core.East},
		{"west last", []string{".#.", "..#", "..."}, core.West},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// a and b stand on each other's goals, b directly south of a.
			p, _ := newTestPlanner(t, tt.floor, []core.Robot{
				{ID: "a", Location: core.At(1, 1)},
				{ID: "b", Location: core.At(1, 0)},
			})
			res := mustStep(t, p, core.Assignment{
				{Robot: "a", Dest: core.At(1, 0)},
				{Robot: "b", Dest: core.At(1, 1)},
			})
			if res != SidestepResult("a", tt.want) {
				t.Errorf("NextStep = %v, want sidestep(a, %v)", res, tt.want)
			}
		})
	}
}

func TestNextStep_BoxedInOnOthersGoal(t *testing.T) {
	p, _ := newTestPlanner(t, []string{".."}, []core.Robot{
		{ID: "a", Location: core.At(0, 0)},
		{ID: "b", Location: core.At(1, 0)},
	})
	_, err := p.NextStep(core.Assignment{
		{Robot: "a", Dest: core.At(1, 0)},
		{Robot: "b", Dest: core.At(0, 0)},
	})
	if !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("err = %v, want ErrPathNotFound", err)
	}
	var perr *PlanError
	if !errors.As(err, &perr) || perr.Robot != "a" || perr.Cell != core.At(0, 0) {
		t.Errorf("PlanError = %+v", perr)
	}
}

func TestNextStep_PathBlockedWhileMoving(t *testing.T) {
	p, _ := newTestPlanner(t, []string{"...."}, []core.Robot{
		{ID: "a", Location: core.At(0, 0)},
		{ID: "b", Location: core.At(1, 0)},
	})
	a := core.Assignment{
		{Robot: "b", Dest: core.At(2, 0)},
		{Robot: "a", Dest: core.At(3, 0)},
	}

	res := mustStep(t, p, a)
	if res != StepResult("b", core.East) {
		t.Fatalf("first = %v, want step(b, EAST)", res)
	}
	if err := p.Lock("b", core.East); err != nil {
		t.Fatalf("Lock b: %v", err)
	}

	res = mustStep(t, p, a)
	if res != WaitResult("a", WaitPathBlocked) {
		t.Fatalf("second = %v, want wait(a, path-blocked)", res)
	}
	if p.ledger.IsIdle("a") {
		t.Error("path-blocked wait must not park the robot")
	}
}

func TestNextStep_GoalOccupiedParksIdle(t *testing.T) {
	p, fleet := newTestPlanner(t, []string{"...", "..."}, []core.Robot{
		{ID: "a", Location: core.At(0, 0)},
		{ID: "b", Location: core.At(2, 0)},
	})
	// b sits on a's goal and has its own destination below.
	a := core.Assignment{
		{Robot: "a", Dest: core.At(2, 0)},
		{Robot: "b", Dest: core.At(2, 1)},
	}

	res := mustStep(t, p, a)
	if res != WaitResult("a", WaitGoalOccupied) {
		t.Fatalf("first = %v, want wait(a, goal-occupied)", res)
	}
	if !p.ledger.IsIdle("a") {
		t.Fatal("a should be idle")
	}

	res = mustStep(t, p, a)
	if res != StepResult("b", core.South) {
		t.Fatalf("second = %v, want step(b, SOUTH)", res)
	}
	if err := p.Lock("b", core.South); err != nil {
		t.Fatalf("Lock b: %v", err)
	}

	res = mustStep(t, p, a)
	if res != WaitResult("", WaitOthersMoving) {
		t.Fatalf("third = %v, want wait(others-moving)", res)
	}

	if _, err := fleet.Move("b", core.South); err != nil {
		t.Fatalf("Move b: %v", err)
	}
	if err := p.Unlock("b"); err != nil {
		t.Fatalf("Unlock b: %v", err)
	}
	if p.ledger.IsIdle("a") {
		t.Fatal("unlock should clear the idle set")
	}

	res = mustStep(t, p, a)
	if res != StepResult("a", core.East) {
		t.Fatalf("after unlock = %v, want step(a, EAST)", res)
	}
}

func TestNextStep_GoalOccupiedByUnassignedRobot(t *testing.T) {
	p, _ := newTestPlanner(t, []string{"...", "..."}, []core.Robot{
		{ID: "a", Location: core.At(0, 0)},
		{ID: "b", Location: core.At(2, 0)},
	})
	// b is not part of the episode and will never leave a's goal.
	a := core.Assignment{{Robot: "a", Dest: core.At(2, 0)}}

	for i := 0; i < 3; i++ {
		_, err := p.NextStep(a)
		if !errors.Is(err, ErrPathNotFound) {
			t.Fatalf("call %d: err = %v, want ErrPathNotFound", i, err)
		}
		if p.ledger.IsIdle("a") {
			t.Fatalf("call %d: a must not be parked behind an unassigned robot", i)
		}
	}
}

func TestNextStep_IdlePending(t *testing.T) {
	p, _ := newTestPlanner(t, []string{"...", "..."}, []core.Robot{
		{ID: "a", Location: core.At(0, 0)},
		{ID: "b", Location: core.At(2, 0)},
	})
	res := mustStep(t, p, core.Assignment{
		{Robot: "a", Dest: core.At(2, 0)},
		{Robot: "b", Dest: core.At(2, 1)},
	})
	if res != WaitResult("a", WaitGoalOccupied) {
		t.Fatalf("first = %v, want wait(a, goal-occupied)", res)
	}

	// b leaves the episode; a stays parked until the next unlock.
	res = mustStep(t, p, core.Assignment{{Robot: "a", Dest: core.At(2, 0)}})
	if res != WaitResult("", WaitIdlePending) {
		t.Fatalf("second = %v, want wait(idle-pending)", res)
	}
	if p.ledger.MovingCount() != 0 {
		t.Errorf("moving = %d, want 0", p.ledger.MovingCount())
	}
}

func TestNextStep_Unreachable(t *testing.T) {
	p, _ := newTestPlanner(t, []string{".#."}, []core.Robot{{ID: "a", Location: core.At(0, 0)}})
	_, err := p.NextStep(core.Assignment{{Robot: "a", Dest: core.At(2, 0)}})
	if KindOf(err) != KindPathNotFound {
		t.Fatalf("err = %v, want path not found", err)
	}
	if !p.search.Empty() {
		t.Error("search state not cleared after failure")
	}
	if p.ledger.IsIdle("a") {
		t.Error("unreachable robot must not be parked idle")
	}
}

func TestLockUnlock(t *testing.T) {
	p, fleet := newTestPlanner(t, []string{"..."}, []core.Robot{{ID: "a", Location: core.At(0, 0)}})

	if err := p.Unlock("a"); KindOf(err) != KindNotLocked {
		t.Errorf("Unlock before Lock = %v, want not locked", err)
	}
	if err := p.Lock("ghost", core.East); KindOf(err) != KindUnknownRobot {
		t.Errorf("Lock ghost = %v, want unknown robot", err)
	}
	if err := p.Lock("a", core.West); KindOf(err) != KindInvalidMove {
		t.Errorf("Lock off floor = %v, want invalid move", err)
	}
	if err := p.Lock("a", core.Direction(7)); KindOf(err) != KindInvalidMove {
		t.Errorf("Lock bad direction = %v, want invalid move", err)
	}
	if p.ledger.MovingCount() != 0 {
		t.Fatal("rejected locks must not reserve")
	}

	if err := p.Lock("a", core.East); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := p.Lock("a", core.East); KindOf(err) != KindAlreadyLocked {
		t.Errorf("double Lock = %v, want already locked", err)
	}
	if !p.ledger.IsReserved(core.At(1, 0)) {
		t.Fatal("(1,0) should be reserved")
	}

	if _, err := fleet.Move("a", core.East); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if err := p.Unlock("a"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	// The cell reserved at lock time is released even though the robot
	// now stands on it.
	if p.ledger.IsReserved(core.At(1, 0)) || p.ledger.ReservedCount() != 0 {
		t.Error("reservation leaked after unlock")
	}
}

type recordingObserver struct {
	NopObserver
	searches []bool
	results  []Result
	errs     []ErrorKind
	locks    int
	unlocks  int
}

func (r *recordingObserver) OnSearch(_ core.RobotID, _ int, found bool) {
	r.searches = append(r.searches, found)
}
func (r *recordingObserver) OnResult(res Result) { r.results = append(r.results, res) }
func (r *recordingObserver) OnError(_ core.RobotID, err error) {
	r.errs = append(r.errs, KindOf(err))
}
func (r *recordingObserver) OnLock(core.RobotID, core.Cell, *Ledger) { r.locks++ }
func (r *recordingObserver) OnUnlock(core.RobotID, core.Cell, *Ledger) { r.unlocks++ }

func TestPlannerObserver(t *testing.T) {
	obs := &recordingObserver{}
	p, _ := newTestPlanner(t, []string{".#."}, []core.Robot{
		{ID: "a", Location: core.At(0, 0)},
	}, WithObserver(MultiObserver{obs, NopObserver{}}))

	_, _ = p.NextStep(core.Assignment{{Robot: "a", Dest: core.At(2, 0)}})
	if len(obs.searches) != 1 || obs.searches[0] {
		t.Errorf("searches = %v, want one failed search", obs.searches)
	}
	if len(obs.errs) != 1 || obs.errs[0] != KindPathNotFound {
		t.Errorf("errs = %v", obs.errs)
	}

	p2, fleet2 := newTestPlanner(t, []string{".."}, []core.Robot{
		{ID: "a", Location: core.At(0, 0)},
	}, WithObserver(obs))
	res, err := p2.NextStep(core.Assignment{{Robot: "a", Dest: core.At(1, 0)}})
	if err != nil || res != StepResult("a", core.East) {
		t.Fatalf("NextStep = %v, %v", res, err)
	}
	if err := p2.Lock("a", core.East); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	_, _ = fleet2.Move("a", core.East)
	if err := p2.Unlock("a"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if len(obs.results) != 1 || obs.locks != 1 || obs.unlocks != 1 {
		t.Errorf("results=%d locks=%d unlocks=%d", len(obs.results), obs.locks, obs.unlocks)
	}
}
