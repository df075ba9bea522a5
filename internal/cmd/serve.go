package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/warehouse-planner/internal/algo"
	"github.com/elektrokombinacija/warehouse-planner/internal/api"
	"github.com/elektrokombinacija/warehouse-planner/internal/core"
	"github.com/elektrokombinacija/warehouse-planner/internal/events"
	"github.com/elektrokombinacija/warehouse-planner/internal/events/memory"
	"github.com/elektrokombinacija/warehouse-planner/internal/events/redis"
	"github.com/elektrokombinacija/warehouse-planner/internal/metrics"
	"github.com/elektrokombinacija/warehouse-planner/internal/sim"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the planner over HTTP",
	Long: `Start the HTTP API on PLANNER_HTTP_PORT. The floor is an open
FLOOR_WIDTH x FLOOR_HEIGHT grid unless --scenario loads one, in which case
the scenario's robots are registered at their starting cells.

With REDIS_ENABLED=true every planner decision is appended to a Redis stream.
Otherwise decisions go to an in-process bus that writes them to the debug log.`,
	RunE: runServe,
}

var (
	serveScenario string
)

func init() {
	serveCmd.Flags().StringVar(&serveScenario, "scenario", "", "scenario JSON providing the floor and initial robots")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	grid, fleet, err := serveFloor()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observers := algo.MultiObserver{metrics.NewCollector(reg)}

	var pub events.Publisher
	if cfg.Redis.Enabled {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("Redis close error", zap.Error(err))
			}
		}()

		stream := redis.NewStreamPublisher(redisClient, cfg.Redis.StreamPrefix, cfg.Redis.StreamMaxLen, logger.Named("events"))
		if err := stream.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis",
			zap.String("addr", cfg.Redis.Addr),
			zap.String("stream", stream.StreamKey(events.TopicDecisions)))
		pub = stream
	} else {
		pub = newDecisionLog(logger.Named("events"))
	}
	defer func() { _ = pub.Close() }()
	observers = append(observers, events.NewObserver(pub, logger.Named("events"),
		events.WithPublishTimeout(cfg.Timeouts.PublishTimeout)))

	planner := algo.NewPlanner(grid, fleet,
		algo.WithLogger(logger.Named("planner")),
		algo.WithObserver(observers))

	server := api.NewServer(&api.Config{
		Port:     cfg.HTTPPort,
		Floor:    grid,
		Fleet:    fleet,
		Planner:  planner,
		Logger:   logger.Named("http"),
		Gatherer: reg,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("warehouse planner started",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("floor_width", grid.Width),
		zap.Int("floor_height", grid.Height),
		zap.Int("robots", fleet.Len()),
		zap.Bool("event_stream", cfg.Redis.Enabled))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	logger.Info("warehouse planner shut down complete")
	return nil
}

// newDecisionLog returns a bus whose only subscriber writes each planner
// decision to log at debug level.
func newDecisionLog(log *zap.Logger) *memory.Bus {
	bus := memory.NewBus()
	bus.Subscribe(events.TopicDecisions, func(_ context.Context, e events.Event) error {
		fields := []zap.Field{
			zap.String("id", e.ID),
			zap.String("type", string(e.Type)),
		}
		if e.Robot != "" {
			fields = append(fields, zap.String("robot", string(e.Robot)))
		}
		if e.Direction != "" {
			fields = append(fields, zap.String("direction", e.Direction), zap.Bool("sidestep", e.Sidestep))
		}
		if e.Reason != "" {
			fields = append(fields, zap.String("reason", e.Reason))
		}
		if e.Cell != nil {
			fields = append(fields, zap.Stringer("cell", *e.Cell))
		}
		if e.Error != "" {
			fields = append(fields, zap.String("kind", e.Kind), zap.String("error", e.Error))
		}
		log.Debug("planner decision", fields...)
		return nil
	})
	return bus
}

func serveFloor() (*core.Grid, *core.Fleet, error) {
	if serveScenario == "" {
		grid := core.NewGrid(cfg.Floor.Width, cfg.Floor.Height)
		return grid, core.NewFleet(grid), nil
	}
	sc, err := sim.LoadScenario(serveScenario)
	if err != nil {
		return nil, nil, err
	}
	inst, err := sc.Instance()
	if err != nil {
		return nil, nil, err
	}
	fleet, err := inst.Fleet()
	if err != nil {
		return nil, nil, err
	}
	return inst.Grid, fleet, nil
}
