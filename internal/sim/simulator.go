// Package sim is a headless choreographer for the step planner. It drives
// a Fleet through repeated next-step, lock, move and unlock rounds and
// collects run metrics.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/warehouse-planner/internal/algo"
	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// Outcome says why a run stopped.
type Outcome string

const (
	OutcomeDone     Outcome = "done"      // Every robot reached its destination
	OutcomeMaxTicks Outcome = "max_ticks" // Tick limit hit
	OutcomeStalled  Outcome = "stalled"   // No robot moved for StallTicks ticks
	OutcomeCanceled Outcome = "canceled"  // Context canceled
	OutcomeFailed   Outcome = "failed"    // Invariant violation or conflict
)

// SimulationConfig configures a run.
type SimulationConfig struct {
	// Instance to simulate
	Instance *core.Instance

	// Upper bound on ticks
	MaxTicks int

	// Consecutive ticks without a step before the run is declared stalled
	StallTicks int

	Logger   *zap.Logger
	Observer algo.Observer
}

// DefaultConfig returns default simulation configuration.
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		MaxTicks:   1000,
		StallTicks: 20,
	}
}

// SimulationMetrics collects metrics during a run.
type SimulationMetrics struct {
	// Timing
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Progress
	Ticks        int `json:"ticks"`
	Steps        int `json:"steps"`
	Sidesteps    int `json:"sidesteps"`
	Waits        int `json:"waits"`
	IdleParks    int `json:"idle_parks"`
	PathFailures int `json:"path_failures"`
	Makespan     int `json:"makespan"` // Last tick in which a robot moved

	// Per robot
	RobotSteps map[core.RobotID]int `json:"robot_steps"`

	// Conflicts between applied moves; always zero for a correct planner
	ConflictsDetected int `json:"conflicts_detected"`

	Outcome   Outcome `json:"outcome"`
	LastError string  `json:"last_error,omitempty"`
}

// Simulator runs one scenario against a private fleet.
type Simulator struct {
	mu sync.Mutex

	config  SimulationConfig
	fleet   *core.Fleet
	planner *algo.Planner
	logger  *zap.Logger

	metrics SimulationMetrics
}

// move is a step locked during the current tick.
type move struct {
	robot core.RobotID
	dir   core.Direction
	from  core.Cell
	to    core.Cell
}

// NewSimulator creates a simulator with a fresh fleet at the instance's
// starting positions.
func NewSimulator(config SimulationConfig) (*Simulator, error) {
	if config.Instance == nil {
		return nil, errors.New("simulation needs an instance")
	}
	if err := config.Instance.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instance: %w", err)
	}
	if config.MaxTicks < 1 {
		config.MaxTicks = DefaultConfig().MaxTicks
	}
	if config.StallTicks < 1 {
		config.StallTicks = DefaultConfig().StallTicks
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fleet, err := config.Instance.Fleet()
	if err != nil {
		return nil, fmt.Errorf("build fleet: %w", err)
	}

	opts := []algo.Option{algo.WithLogger(logger.Named("planner"))}
	if config.Observer != nil {
		opts = append(opts, algo.WithObserver(config.Observer))
	}

	return &Simulator{
		config:  config,
		fleet:   fleet,
		planner: algo.NewPlanner(config.Instance.Grid, fleet, opts...),
		logger:  logger,
		metrics: SimulationMetrics{RobotSteps: make(map[core.RobotID]int)},
	}, nil
}

// Fleet exposes the simulated directory.
func (s *Simulator) Fleet() *core.Fleet { return s.fleet }

// Run ticks until every robot is home, the run stalls, MaxTicks is hit or
// ctx is canceled. Invariant violations and move conflicts are returned
// as errors; the metrics are valid in every case.
func (s *Simulator) Run(ctx context.Context) (*SimulationMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.StartTime = time.Now()

	stalled := 0
	for s.metrics.Ticks < s.config.MaxTicks {
		if err := ctx.Err(); err != nil {
			s.finish(OutcomeCanceled, err)
			return s.snapshot(), nil
		}

		moves, done, err := s.plan()
		if err != nil {
			s.finish(OutcomeFailed, err)
			return s.snapshot(), err
		}
		if done {
			s.finish(OutcomeDone, nil)
			return s.snapshot(), nil
		}

		s.metrics.Ticks++
		if err := s.apply(moves); err != nil {
			s.finish(OutcomeFailed, err)
			return s.snapshot(), err
		}

		if len(moves) == 0 {
			stalled++
			if stalled >= s.config.StallTicks {
				s.finish(OutcomeStalled, nil)
				return s.snapshot(), nil
			}
			continue
		}
		stalled = 0
		s.metrics.Makespan = s.metrics.Ticks
	}

	if s.config.Instance.Assignment.Reached(s.fleet) {
		s.finish(OutcomeDone, nil)
	} else {
		s.finish(OutcomeMaxTicks, nil)
	}
	return s.snapshot(), nil
}

// plan asks for steps until the planner has nothing more this tick, and
// locks each one. A robot is locked at most once per tick because locked
// robots are skipped by selection.
func (s *Simulator) plan() ([]move, bool, error) {
	assignment := s.config.Instance.Assignment
	var moves []move

	// Each call either locks a robot, parks one idle or ends the tick.
	for calls := 0; calls <= 2*len(assignment); calls++ {
		res, err := s.planner.NextStep(assignment)
		if err != nil {
			if algo.KindOf(err) == algo.KindPathNotFound {
				s.metrics.PathFailures++
				s.metrics.LastError = err.Error()
				s.logger.Debug("no path this tick", zap.Error(err))
				return moves, false, nil
			}
			return moves, false, err
		}

		switch res.Kind {
		case algo.ResultDone:
			return moves, len(moves) == 0, nil
		case algo.ResultWait:
			s.metrics.Waits++
			if res.Reason == algo.WaitGoalOccupied {
				s.metrics.IdleParks++
				continue
			}
			return moves, false, nil
		case algo.ResultStep:
			from, _ := s.fleet.Location(res.Robot)
			if err := s.planner.Lock(res.Robot, res.Direction); err != nil {
				return moves, false, fmt.Errorf("lock %s: %w", res.Robot, err)
			}
			if res.Sidestep {
				s.metrics.Sidesteps++
			}
			moves = append(moves, move{robot: res.Robot, dir: res.Direction, from: from, to: from.Step(res.Direction)})
		}
	}
	return moves, false, nil
}

// apply moves every locked robot and releases its reservation.
func (s *Simulator) apply(moves []move) error {
	if err := checkConflicts(moves); err != nil {
		s.metrics.ConflictsDetected++
		return err
	}
	for _, m := range moves {
		if _, err := s.fleet.Move(m.robot, m.dir); err != nil {
			return fmt.Errorf("tick %d: move %s %s: %w", s.metrics.Ticks, m.robot, m.dir, err)
		}
		if err := s.planner.Unlock(m.robot); err != nil {
			return fmt.Errorf("tick %d: unlock %s: %w", s.metrics.Ticks, m.robot, err)
		}
		s.metrics.Steps++
		s.metrics.RobotSteps[m.robot]++
	}
	return nil
}

// checkConflicts rejects two moves into one cell and two robots swapping
// cells within one tick.
func checkConflicts(moves []move) error {
	targets := make(map[core.Cell]core.RobotID, len(moves))
	edges := make(map[[2]core.Cell]core.RobotID, len(moves))
	for _, m := range moves {
		if other, ok := targets[m.to]; ok {
			return fmt.Errorf("%w: %s and %s both enter %s", algo.ErrInvariantViolation, other, m.robot, m.to)
		}
		targets[m.to] = m.robot
		if other, ok := edges[[2]core.Cell{m.to, m.from}]; ok {
			return fmt.Errorf("%w: %s and %s swap %s and %s", algo.ErrInvariantViolation, other, m.robot, m.from, m.to)
		}
		edges[[2]core.Cell{m.from, m.to}] = m.robot
	}
	return nil
}

func (s *Simulator) finish(outcome Outcome, err error) {
	s.metrics.EndTime = time.Now()
	s.metrics.Outcome = outcome
	if err != nil {
		s.metrics.LastError = err.Error()
	}
	s.logger.Info("simulation finished",
		zap.String("outcome", string(outcome)),
		zap.Int("ticks", s.metrics.Ticks),
		zap.Int("steps", s.metrics.Steps),
		zap.Int("sidesteps", s.metrics.Sidesteps),
		zap.Int("makespan", s.metrics.Makespan))
}

func (s *Simulator) snapshot() *SimulationMetrics {
	m := s.metrics
	m.RobotSteps = make(map[core.RobotID]int, len(s.metrics.RobotSteps))
	for id, n := range s.metrics.RobotSteps {
		m.RobotSteps[id] = n
	}
	return &m
}

// Metrics returns current simulation metrics.
func (s *Simulator) Metrics() SimulationMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.snapshot()
}

// ExportMetrics writes metrics to a JSON file.
func (s *Simulator) ExportMetrics(path string) error {
	metrics := s.Metrics()

	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SimulationResult is the final output of a simulation run.
type SimulationResult struct {
	Scenario string            `json:"scenario"`
	Metrics  SimulationMetrics `json:"metrics"`
	Success  bool              `json:"success"`
	Error    string            `json:"error,omitempty"`
}

// RunScenario is a convenience function to simulate a scenario file
// end to end.
func RunScenario(ctx context.Context, sc *Scenario, config SimulationConfig) (*SimulationResult, error) {
	inst, err := sc.Instance()
	if err != nil {
		return nil, err
	}
	config.Instance = inst

	sim, err := NewSimulator(config)
	if err != nil {
		return nil, err
	}

	metrics, err := sim.Run(ctx)
	result := &SimulationResult{
		Scenario: sc.Name,
		Metrics:  *metrics,
		Success:  err == nil && metrics.Outcome == OutcomeDone,
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result, err
}
