package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != 8080 || cfg.LogLevel != "info" {
		t.Errorf("server defaults = %d %q", cfg.HTTPPort, cfg.LogLevel)
	}
	if cfg.Redis.Enabled {
		t.Error("redis stream should be disabled by default")
	}
	if cfg.Redis.StreamPrefix != "warehouse:events" {
		t.Errorf("stream prefix = %q", cfg.Redis.StreamPrefix)
	}
	if cfg.Sim.MaxTicks != 1000 || cfg.Sim.StallTicks != 20 {
		t.Errorf("sim tick defaults = %d %d", cfg.Sim.MaxTicks, cfg.Sim.StallTicks)
	}
	if cfg.Timeouts.ShutdownTimeout != 15*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.Timeouts.ShutdownTimeout)
	}
	if cfg.GetHTTPAddr() != ":8080" {
		t.Errorf("GetHTTPAddr = %q", cfg.GetHTTPAddr())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PLANNER_HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("SIM_ROBOTS", "3")
	t.Setenv("SIM_OBSTACLE_DENSITY", "0.2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != 9000 || cfg.LogLevel != "debug" {
		t.Errorf("server = %d %q", cfg.HTTPPort, cfg.LogLevel)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Sim.Robots != 3 || cfg.Sim.ObstacleDensity != 0.2 {
		t.Errorf("sim = %+v", cfg.Sim)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("Load error = %v, want invalid log level", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			HTTPPort: 8080,
			LogLevel: "info",
			Floor:    FloorConfig{Width: 4, Height: 4},
			Redis:    RedisConfig{Addr: "localhost:6379"},
			Sim:      SimConfig{Width: 4, Height: 4, Robots: 2, MaxTicks: 10, StallTicks: 2},
			Timeouts: TimeoutConfig{ShutdownTimeout: time.Second, PublishTimeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.HTTPPort = 0 }, "invalid HTTP port"},
		{"port too big", func(c *Config) { c.HTTPPort = 70000 }, "invalid HTTP port"},
		{"empty floor", func(c *Config) { c.Floor.Width = 0 }, "invalid floor size"},
		{"redis without addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis address"},
		{"redis disabled without addr", func(c *Config) { c.Redis.Addr = "" }, ""},
		{"no robots", func(c *Config) { c.Sim.Robots = 0 }, "at least 1 robot"},
		{"too many robots", func(c *Config) { c.Sim.Robots = 17 }, "do not fit"},
		{"density one", func(c *Config) { c.Sim.ObstacleDensity = 1 }, "obstacle density"},
		{"dense floor", func(c *Config) { c.Sim.ObstacleDensity = 0.9 }, "do not fit"},
		{"no ticks", func(c *Config) { c.Sim.MaxTicks = 0 }, "max ticks"},
		{"no stall ticks", func(c *Config) { c.Sim.StallTicks = 0 }, "stall ticks"},
		{"no shutdown timeout", func(c *Config) { c.Timeouts.ShutdownTimeout = 0 }, "shutdown timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
