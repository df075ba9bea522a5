// Package cmd implements the warehouse-planner command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/elektrokombinacija/warehouse-planner/internal/config"
)

var (
	// Version and BuildTime are set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	cfg    *config.Config
	logger = zap.NewNop()

	logLevel string // Overrides LOG_LEVEL when set
)

var rootCmd = &cobra.Command{
	Use:   "warehouse-planner",
	Short: "Step-at-a-time path planner for warehouse robot fleets",
	Long: `warehouse-planner computes the next single move for one robot among many
sharing a grid floor. Robots are serviced in assignment order; a reservation
ledger keeps in-flight moves apart and a deadlock breaker resolves swaps.

Configuration is read from the environment (PLANNER_HTTP_PORT, LOG_LEVEL,
REDIS_*, SIM_*, FLOOR_*, TIMEOUT_*).`,
	SilenceUsage:      true,
	Version:           Version,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(versionLine())
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default from LOG_LEVEL)")
}

func versionLine() string {
	return fmt.Sprintf("warehouse-planner %s (built %s)\n", Version, BuildTime)
}

func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
		if err := loaded.Validate(); err != nil {
			return err
		}
	}
	cfg = loaded

	l, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// initLogger initializes the logger based on log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}
