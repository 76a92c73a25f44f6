package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs can use strings like
// "250ms" or "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the demo binary's configuration, loaded from YAML.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Sim      SimConfig      `yaml:"sim"`
	Demo     DemoConfig     `yaml:"demo"`
	Limits   []LimitConfig  `yaml:"limits"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

type ServerConfig struct {
	// Addr is the HTTP API listen address. Empty disables the API.
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	// Backend is one of memory, sqlite, postgres, redis.
	Backend string `yaml:"backend"`
	// Path is the database file for the sqlite backend.
	Path string `yaml:"path"`
	// DSN is the connection string for the postgres backend.
	DSN string `yaml:"dsn"`
	// Addr is the server address for the redis backend.
	Addr string `yaml:"addr"`
}

type PipelineConfig struct {
	Concurrency       int      `yaml:"concurrency"`
	PollInterval      Duration `yaml:"poll_interval"`
	ProcessTimeout    Duration `yaml:"process_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	AllowResubmission *bool    `yaml:"allow_resubmission"`
}

type SimConfig struct {
	FailureRate float64  `yaml:"failure_rate"`
	FatalRate   float64  `yaml:"fatal_rate"`
	SlowRate    float64  `yaml:"slow_rate"`
	MinLatency  Duration `yaml:"min_latency"`
	MaxLatency  Duration `yaml:"max_latency"`
	Seed        uint64   `yaml:"seed"`
}

type DemoConfig struct {
	// Jobs is how many demo jobs to seed at startup.
	Jobs int `yaml:"jobs"`
	// StatsInterval is how often a stats snapshot is logged.
	StatsInterval Duration `yaml:"stats_interval"`
	// CleanupAge removes terminal jobs older than this. Zero disables
	// cleanup entirely.
	CleanupAge Duration `yaml:"cleanup_age"`
	// CleanupSchedule is the cron expression for periodic cleanup runs.
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

type LimitConfig struct {
	Provider       string  `yaml:"provider"`
	MaxConcurrency int     `yaml:"max_concurrency"`
	RateLimit      float64 `yaml:"rate_limit"`
	RateBurst      int     `yaml:"rate_burst"`
}

// LoadConfig reads the YAML config at path. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Store.Path == "" {
		c.Store.Path = "digest-demo.db"
	}
	if c.Store.Addr == "" {
		c.Store.Addr = "localhost:6379"
	}
	if c.Pipeline.Concurrency == 0 {
		c.Pipeline.Concurrency = 4
	}
	if c.Pipeline.PollInterval == 0 {
		c.Pipeline.PollInterval = Duration(250 * time.Millisecond)
	}
	if c.Pipeline.ShutdownTimeout == 0 {
		c.Pipeline.ShutdownTimeout = Duration(30 * time.Second)
	}
	if c.Sim.FailureRate == 0 {
		c.Sim.FailureRate = 0.10
	}
	if c.Sim.SlowRate == 0 {
		c.Sim.SlowRate = 0.20
	}
	if c.Sim.MinLatency == 0 {
		c.Sim.MinLatency = Duration(time.Second)
	}
	if c.Sim.MaxLatency == 0 {
		c.Sim.MaxLatency = Duration(10 * time.Second)
	}
	if c.Demo.Jobs == 0 {
		c.Demo.Jobs = 10
	}
	if c.Demo.StatsInterval == 0 {
		c.Demo.StatsInterval = Duration(5 * time.Second)
	}
	if c.Demo.CleanupSchedule == "" {
		c.Demo.CleanupSchedule = "@every 1h"
	}
}
