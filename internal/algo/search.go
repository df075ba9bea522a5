package algo

import (
	"errors"
	"fmt"

	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// ExpansionOrder is the fixed neighbour order used by the search.
// Changing it changes which of several equal-length paths is chosen.
var ExpansionOrder = [4]core.Direction{core.North, core.West, core.East, core.South}

// errNoPath is returned by Search when the frontier empties.
var errNoPath = errors.New("frontier exhausted")

// Blocked reports whether a cell may not be entered.
type Blocked func(c core.Cell) bool

// searchNode is one entry in the search arena. parent indexes the arena;
// the root has parent -1.
type searchNode struct {
	cell   core.Cell
	parent int
}

// Search is a breadth-first search over the grid that returns only the
// first step of a shortest path. The arena, frontier and visited set are
// reused across calls and cleared before every call returns.
// Not safe for concurrent use.
type Search struct {
	nodes   []searchNode // Arena; nodes[head:] is the frontier
	head    int
	queued  map[core.Cell]struct{} // Cells in the frontier
	visited map[core.Cell]struct{} // Cells already expanded
}

// NewSearch creates an empty search arena.
func NewSearch() *Search {
	return &Search{
		queued:  make(map[core.Cell]struct{}),
		visited: make(map[core.Cell]struct{}),
	}
}

// FirstStep searches from start to goal avoiding blocked cells and returns
// the direction of the first move together with the number of expanded
// nodes. It fails with errNoPath when the goal is unreachable and with
// ErrInvariantViolation when the backtrace is inconsistent.
func (s *Search) FirstStep(start, goal core.Cell, blocked Blocked) (core.Direction, int, error) {
	defer s.reset()

	if start == goal {
		return 0, 0, fmt.Errorf("%w: search started on its goal %s", ErrInvariantViolation, goal)
	}

	s.push(start, -1)
	expanded := 0
	found := -1

	for s.head < len(s.nodes) {
		idx := s.head
		s.head++
		current := s.nodes[idx].cell
		delete(s.queued, current)

		if current == goal {
			found = idx
			break
		}

		for _, d := range ExpansionOrder {
			next := current.Step(d)
			if s.illegal(next, blocked) {
				continue
			}
			s.push(next, idx)
		}

		s.visited[current] = struct{}{}
		expanded++
	}

	if found < 0 {
		return 0, expanded, errNoPath
	}

	dir, err := s.backtrace(found)
	return dir, expanded, err
}

// backtrace walks parent links from the goal node up to the child of the
// root and converts that hop into a direction.
func (s *Search) backtrace(idx int) (core.Direction, error) {
	for s.nodes[idx].parent > 0 {
		idx = s.nodes[idx].parent
	}
	if s.nodes[idx].parent != 0 {
		return 0, fmt.Errorf("%w: backtrace did not reach the root", ErrInvariantViolation)
	}

	root, first := s.nodes[0].cell, s.nodes[idx].cell
	dir, ok := core.DirectionBetween(root, first)
	if !ok {
		return 0, fmt.Errorf("%w: first step %s is not adjacent to %s", ErrInvariantViolation, first, root)
	}
	return dir, nil
}

func (s *Search) illegal(c core.Cell, blocked Blocked) bool {
	if blocked != nil && blocked(c) {
		return true
	}
	if _, ok := s.visited[c]; ok {
		return true
	}
	_, ok := s.queued[c]
	return ok
}

func (s *Search) push(c core.Cell, parent int) {
	s.nodes = append(s.nodes, searchNode{cell: c, parent: parent})
	s.queued[c] = struct{}{}
}

func (s *Search) reset() {
	s.nodes = s.nodes[:0]
	s.head = 0
	clear(s.queued)
	clear(s.visited)
}

// Empty reports whether no search state is held.
func (s *Search) Empty() bool {
	return len(s.nodes) == 0 && s.head == 0 && len(s.queued) == 0 && len(s.visited) == 0
}
