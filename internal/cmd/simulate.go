package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/warehouse-planner/internal/core"
	"github.com/elektrokombinacija/warehouse-planner/internal/sim"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a headless simulation",
	Long: `Drive a fleet to its destinations tick by tick: in each tick the planner
is asked for steps until it waits, every step is locked, applied and
unlocked. Runs a scenario file (--scenario) or a generated one.`,
	RunE: runSimulate,
}

var (
	simScenario   string
	simOut        string
	simJSON       bool
	simMaxTicks   int
	simStallTicks int
	simGen        genFlags
)

func init() {
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "scenario JSON to run (default: generate one)")
	simulateCmd.Flags().StringVar(&simOut, "out", "", "write run metrics as JSON to this file")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "print the result as JSON")
	simulateCmd.Flags().IntVar(&simMaxTicks, "max-ticks", 0, "tick limit (default SIM_MAX_TICKS)")
	simulateCmd.Flags().IntVar(&simStallTicks, "stall-ticks", 0, "ticks without movement before giving up (default SIM_STALL_TICKS)")
	simGen.register(simulateCmd)
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	var (
		sc  *sim.Scenario
		err error
	)
	if simScenario != "" {
		sc, err = sim.LoadScenario(simScenario)
	} else {
		sc, err = sim.Generate(simGen.params())
	}
	if err != nil {
		return err
	}

	simCfg := sim.DefaultConfig()
	simCfg.MaxTicks = firstPositive(simMaxTicks, cfg.Sim.MaxTicks)
	simCfg.StallTicks = firstPositive(simStallTicks, cfg.Sim.StallTicks)
	simCfg.Logger = logger.Named("sim")

	inst, err := sc.Instance()
	if err != nil {
		return err
	}
	simCfg.Instance = inst
	s, err := sim.NewSimulator(simCfg)
	if err != nil {
		return err
	}

	metrics, runErr := s.Run(cmd.Context())
	if simOut != "" {
		if err := s.ExportMetrics(simOut); err != nil {
			return fmt.Errorf("export metrics: %w", err)
		}
	}

	result := sim.SimulationResult{
		Scenario: sc.Name,
		Metrics:  *metrics,
		Success:  runErr == nil && metrics.Outcome == sim.OutcomeDone,
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	out := cmd.OutOrStdout()
	if simJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		printSimulation(cmd, sc, s.Fleet(), &result)
	}
	return runErr
}

func printSimulation(cmd *cobra.Command, sc *sim.Scenario, fleet *core.Fleet, res *sim.SimulationResult) {
	out := cmd.OutOrStdout()
	m := res.Metrics

	fmt.Fprintln(out)
	fmt.Fprintln(out, "SIMULATION SUMMARY")
	fmt.Fprintln(out, strings.Repeat("─", 40))
	fmt.Fprintf(out, "Scenario:  %s (%dx%d, %d robots)\n", sc.Name, sc.Width, sc.Height, len(sc.Robots))
	fmt.Fprintf(out, "Outcome:   %s\n", m.Outcome)
	fmt.Fprintf(out, "Ticks:     %d (makespan %d)\n", m.Ticks, m.Makespan)
	fmt.Fprintf(out, "Steps:     %d (%d sidesteps)\n", m.Steps, m.Sidesteps)
	fmt.Fprintf(out, "Waits:     %d (%d idle parks)\n", m.Waits, m.IdleParks)
	fmt.Fprintf(out, "Failures:  %d\n", m.PathFailures)
	fmt.Fprintf(out, "Elapsed:   %s\n", m.EndTime.Sub(m.StartTime))
	if res.Error != "" {
		fmt.Fprintf(out, "Error:     %s\n", res.Error)
	} else if m.LastError != "" {
		fmt.Fprintf(out, "Last:      %s\n", m.LastError)
	}

	ids := make([]string, 0, len(m.RobotSteps))
	for id := range m.RobotSteps {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	if len(ids) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "STEPS PER ROBOT")
		fmt.Fprintln(out, strings.Repeat("─", 40))
		for _, id := range ids {
			fmt.Fprintf(out, "%-8s %d\n", id, m.RobotSteps[core.RobotID(id)])
		}
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, renderFleet(sc, fleet))
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
