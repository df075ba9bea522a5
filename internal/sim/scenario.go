package sim

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// Scenario is the on-disk form of a planning instance.
type Scenario struct {
	Name      string          `json:"name"`
	Params    *GenerateParams `json:"params,omitempty"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Blocked   []core.Cell     `json:"blocked,omitempty"`
	Robots    []RobotSpec     `json:"robots"`
	Goals     []GoalSpec      `json:"goals"`
	Generated string          `json:"generated,omitempty"`
}

// RobotSpec is a robot and its starting cell.
type RobotSpec struct {
	ID    core.RobotID `json:"id"`
	Start core.Cell    `json:"start"`
}

// GoalSpec assigns a destination. Goals are serviced in file order.
type GoalSpec struct {
	Robot core.RobotID `json:"robot"`
	Dest  core.Cell    `json:"dest"`
}

// Instance converts the scenario into a validated instance.
func (s *Scenario) Instance() (*core.Instance, error) {
	if s.Width < 1 || s.Height < 1 {
		return nil, fmt.Errorf("scenario %q: invalid size %dx%d", s.Name, s.Width, s.Height)
	}
	inst := core.NewInstance(s.Width, s.Height)
	inst.Grid.Block(s.Blocked...)
	for _, r := range s.Robots {
		inst.Robots = append(inst.Robots, core.Robot{ID: r.ID, Location: r.Start})
	}
	for _, g := range s.Goals {
		inst.Assignment = append(inst.Assignment, core.Goal{Robot: g.Robot, Dest: g.Dest})
	}
	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return inst, nil
}

// FromInstance builds a scenario from an instance.
func FromInstance(name string, inst *core.Instance) *Scenario {
	s := &Scenario{
		Name:    name,
		Width:   inst.Grid.Width,
		Height:  inst.Grid.Height,
		Blocked: inst.Grid.Blocked(),
	}
	for _, r := range inst.Robots {
		s.Robots = append(s.Robots, RobotSpec{ID: r.ID, Start: r.Location})
	}
	for _, g := range inst.Assignment {
		s.Goals = append(s.Goals, GoalSpec{Robot: g.Robot, Dest: g.Dest})
	}
	return s
}

// LoadScenario reads a scenario JSON file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the scenario as indented JSON.
func (s *Scenario) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GenerateParams controls random scenario generation.
type GenerateParams struct {
	Seed            int64   `json:"seed"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Robots          int     `json:"robots"`
	ObstacleDensity float64 `json:"obstacle_density"` // Fraction of cells blocked
}

// Generate builds a deterministic scenario: the same params always give
// the same floor, starts and destinations. Starts are distinct open
// cells, as are destinations.
func Generate(params GenerateParams) (*Scenario, error) {
	if params.Width < 1 || params.Height < 1 {
		return nil, fmt.Errorf("invalid grid %dx%d", params.Width, params.Height)
	}
	if params.ObstacleDensity < 0 || params.ObstacleDensity >= 1 {
		return nil, fmt.Errorf("obstacle density must be in [0, 1): %v", params.ObstacleDensity)
	}
	rng := rand.New(rand.NewSource(params.Seed))

	grid := core.NewGrid(params.Width, params.Height)
	if params.ObstacleDensity > 0 {
		for y := 0; y < params.Height; y++ {
			for x := 0; x < params.Width; x++ {
				if rng.Float64() < params.ObstacleDensity {
					grid.Block(core.At(x, y))
				}
			}
		}
	}

	open := grid.OpenCells()
	if params.Robots < 1 || params.Robots > len(open) {
		return nil, fmt.Errorf("%d robots do not fit on %d open cells", params.Robots, len(open))
	}

	starts := rng.Perm(len(open))[:params.Robots]
	dests := rng.Perm(len(open))[:params.Robots]

	inst := &core.Instance{Grid: grid}
	for i := 0; i < params.Robots; i++ {
		id := core.RobotID(fmt.Sprintf("r%d", i))
		inst.Robots = append(inst.Robots, core.Robot{ID: id, Location: open[starts[i]]})
		inst.Assignment = append(inst.Assignment, core.Goal{Robot: id, Dest: open[dests[i]]})
	}

	s := FromInstance(fmt.Sprintf("warehouse_%d_%dx%d_%d", params.Robots, params.Width, params.Height, params.Seed), inst)
	p := params
	s.Params = &p
	s.Generated = time.Now().UTC().Format(time.RFC3339)
	return s, nil
}
