// Package config loads service and simulator settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the warehouse planner.
type Config struct {
	// Server configuration
	HTTPPort int    `env:"PLANNER_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Floor used by `serve` when no scenario file is given
	Floor FloorConfig

	// Decision event stream
	Redis RedisConfig

	// Headless simulation
	Sim SimConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// FloorConfig describes the default open floor.
type FloorConfig struct {
	Width  int `env:"FLOOR_WIDTH" envDefault:"16"`
	Height int `env:"FLOOR_HEIGHT" envDefault:"16"`
}

// RedisConfig holds Redis connection and stream settings.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	StreamPrefix string `env:"REDIS_STREAM_PREFIX" envDefault:"warehouse:events"`
	StreamMaxLen int64  `env:"REDIS_STREAM_MAXLEN" envDefault:"10000"` // 0 keeps every entry

	PoolSize    int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
}

// SimConfig holds defaults for generated simulation scenarios.
type SimConfig struct {
	Width           int     `env:"SIM_WIDTH" envDefault:"10"`
	Height          int     `env:"SIM_HEIGHT" envDefault:"10"`
	Robots          int     `env:"SIM_ROBOTS" envDefault:"6"`
	Seed            int64   `env:"SIM_SEED" envDefault:"1"`
	ObstacleDensity float64 `env:"SIM_OBSTACLE_DENSITY" envDefault:"0"`
	MaxTicks        int     `env:"SIM_MAX_TICKS" envDefault:"1000"`
	StallTicks      int     `env:"SIM_STALL_TICKS" envDefault:"20"`
}

// TimeoutConfig holds timeout settings.
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"15s"`
	PublishTimeout  time.Duration `env:"TIMEOUT_PUBLISH" envDefault:"2s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.Floor.Width < 1 || c.Floor.Height < 1 {
		return fmt.Errorf("invalid floor size: %dx%d", c.Floor.Width, c.Floor.Height)
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required when the event stream is enabled")
		}
		if c.Redis.StreamMaxLen < 0 {
			return fmt.Errorf("redis stream max length must not be negative")
		}
	}

	if err := c.Sim.Validate(); err != nil {
		return err
	}

	if c.Timeouts.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.Timeouts.PublishTimeout <= 0 {
		return fmt.Errorf("publish timeout must be positive")
	}

	return nil
}

// Validate checks the simulation settings.
func (s SimConfig) Validate() error {
	if s.Width < 1 || s.Height < 1 {
		return fmt.Errorf("invalid simulation grid: %dx%d", s.Width, s.Height)
	}
	if s.Robots < 1 {
		return fmt.Errorf("simulation needs at least 1 robot")
	}
	if s.ObstacleDensity < 0 || s.ObstacleDensity >= 1 {
		return fmt.Errorf("obstacle density must be in [0, 1): %v", s.ObstacleDensity)
	}
	open := int(float64(s.Width*s.Height) * (1 - s.ObstacleDensity))
	if s.Robots > open {
		return fmt.Errorf("%d robots do not fit on %d open cells", s.Robots, open)
	}
	if s.MaxTicks < 1 {
		return fmt.Errorf("max ticks must be at least 1")
	}
	if s.StallTicks < 1 {
		return fmt.Errorf("stall ticks must be at least 1")
	}
	return nil
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
