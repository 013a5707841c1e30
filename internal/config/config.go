package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/DangerosoDavo/simecs/ecs/simclock"
)

type Config struct {
	Frame         FrameConfig         `toml:"frame"`
	Clock         ClockConfig         `toml:"clock"`
	Buffers       BuffersConfig       `toml:"buffers"`
	Logging       LoggingConfig       `toml:"logging"`
	Scenario      ScenarioConfig      `toml:"scenario"`
	Observability ObservabilityConfig `toml:"observability"`
}

type FrameConfig struct {
	Interval  time.Duration `toml:"interval"`
	Workers   int           `toml:"workers"`    // 0 = one per CPU
	BatchSize int           `toml:"batch_size"` // 0 = chosen by the job graph
}

type ClockConfig struct {
	InitialSpeed simclock.Speed `toml:"initial_speed"`
}

type BuffersConfig struct {
	BlockSize int `toml:"block_size"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type ScenarioConfig struct {
	Path string `toml:"path"`
}

type ObservabilityConfig struct {
	LogJobs     bool   `toml:"log_jobs"`
	LogFormat   string `toml:"log_format"` // "json" or "kv"
	MetricsPath string `toml:"metrics_path"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Frame: FrameConfig{
			Interval: 16 * time.Millisecond,
		},
		Clock: ClockConfig{
			InitialSpeed: simclock.Normal,
		},
		Buffers: BuffersConfig{
			BlockSize: 4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Observability: ObservabilityConfig{
			LogFormat: "json",
		},
	}
}

func (c *Config) validate() error {
	if c.Frame.Interval <= 0 {
		return fmt.Errorf("frame.interval must be positive, got %v", c.Frame.Interval)
	}
	if c.Frame.Workers < 0 {
		return fmt.Errorf("frame.workers must not be negative, got %d", c.Frame.Workers)
	}
	if c.Buffers.BlockSize <= 0 {
		return fmt.Errorf("buffers.block_size must be positive, got %d", c.Buffers.BlockSize)
	}
	switch c.Observability.LogFormat {
	case "json", "kv":
	default:
		return fmt.Errorf("observability.log_format must be json or kv, got %q", c.Observability.LogFormat)
	}
	return nil
}
