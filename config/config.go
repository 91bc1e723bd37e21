// Package config loads journeyflow settings: defaults, then an optional
// YAML or TOML file, then JOURNEYFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/Tsinling0525/journeyflow/logging"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "JOURNEYFLOW_"

// DefaultFile is looked up in the working directory when no path is given,
// followed by DefaultTOMLFile.
const (
	DefaultFile     = "journeyflow.yaml"
	DefaultTOMLFile = "journeyflow.toml"
)

type Config struct {
	DataDir    string           `yaml:"data_dir" toml:"data_dir" env:"DATA_DIR"`
	Simulation SimulationConfig `yaml:"simulation" toml:"simulation" envPrefix:"SIM_"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging" envPrefix:"LOG_"`
	Server     ServerConfig     `yaml:"server" toml:"server" envPrefix:"SERVER_"`
	Events     EventsConfig     `yaml:"events" toml:"events" envPrefix:"EVENTS_"`
	Archive    ArchiveConfig    `yaml:"archive" toml:"archive" envPrefix:"ARCHIVE_"`
}

type SimulationConfig struct {
	TickDuration time.Duration `yaml:"tick_duration" toml:"tick_duration" env:"TICK_DURATION"`
	BaseInterval time.Duration `yaml:"base_interval" toml:"base_interval" env:"BASE_INTERVAL"`
	MinInterval  time.Duration `yaml:"min_interval" toml:"min_interval" env:"MIN_INTERVAL"`
	Speed        float64       `yaml:"speed" toml:"speed" env:"SPEED"`

	// Seed 0 draws a fresh seed for every run.
	Seed int64 `yaml:"seed" toml:"seed" env:"SEED"`

	// StartTime is RFC 3339; empty means wall-clock now.
	StartTime string `yaml:"start_time" toml:"start_time" env:"START_TIME"`

	ScheduleBatch  uint64  `yaml:"schedule_batch" toml:"schedule_batch" env:"SCHEDULE_BATCH"`
	APIProbability float64 `yaml:"api_probability" toml:"api_probability" env:"API_PROBABILITY"`
	APIBatchMax    int     `yaml:"api_batch_max" toml:"api_batch_max" env:"API_BATCH_MAX"`
	MaxLogEntries  int     `yaml:"max_log_entries" toml:"max_log_entries" env:"MAX_LOG_ENTRIES"`
}

// StartAt parses StartTime. The zero time means "now".
func (c SimulationConfig) StartAt() (time.Time, error) {
	if strings.TrimSpace(c.StartTime) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(c.StartTime))
	if err != nil {
		return time.Time{}, fmt.Errorf("start_time: %w", err)
	}
	return t, nil
}

type LoggingConfig struct {
	// Level is one of error, warn, info (default), debug or trace.
	Level string `yaml:"level" toml:"level" env:"LEVEL"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr" env:"ADDR"`
}

type EventsConfig struct {
	// NATSURL enables the NATS event bus when set.
	NATSURL       string `yaml:"nats_url" toml:"nats_url" env:"NATS_URL"`
	SubjectPrefix string `yaml:"subject_prefix" toml:"subject_prefix" env:"SUBJECT_PREFIX"`
}

type ArchiveConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled" env:"ENABLED"`

	// Path defaults to <data_dir>/archive.db.
	Path string `yaml:"path" toml:"path" env:"PATH"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DataDir: "data",
		Simulation: SimulationConfig{
			TickDuration:   time.Hour,
			BaseInterval:   time.Second,
			MinInterval:    10 * time.Millisecond,
			Speed:          1,
			ScheduleBatch:  100,
			APIProbability: 0.2,
			APIBatchMax:    20,
			MaxLogEntries:  10000,
		},
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{Addr: ":8080"},
		Events:  EventsConfig{SubjectPrefix: "journeyflow"},
	}
}

// Load builds the configuration. An explicit path must exist; with an
// empty path DefaultFile is read when present.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, name := range []string{DefaultFile, DefaultTOMLFile} {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads a YAML file, or TOML when path ends in .toml, over
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with JOURNEYFLOW_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks ranges and formats.
func (c *Config) Validate() error {
	var errs []error
	s := c.Simulation
	if s.TickDuration <= 0 {
		errs = append(errs, fmt.Errorf("tick_duration must be positive, got %v", s.TickDuration))
	}
	if s.BaseInterval <= 0 {
		errs = append(errs, fmt.Errorf("base_interval must be positive, got %v", s.BaseInterval))
	}
	if s.MinInterval <= 0 || s.MinInterval > s.BaseInterval {
		errs = append(errs, fmt.Errorf("min_interval must be in (0, base_interval], got %v", s.MinInterval))
	}
	if s.Speed <= 0 {
		errs = append(errs, fmt.Errorf("speed must be positive, got %v", s.Speed))
	}
	if s.APIProbability < 0 || s.APIProbability > 1 {
		errs = append(errs, fmt.Errorf("api_probability must be between 0 and 1, got %v", s.APIProbability))
	}
	if s.APIBatchMax < 1 {
		errs = append(errs, fmt.Errorf("api_batch_max must be at least 1, got %d", s.APIBatchMax))
	}
	if s.MaxLogEntries < 0 {
		errs = append(errs, fmt.Errorf("max_log_entries must be non-negative, got %d", s.MaxLogEntries))
	}
	if _, err := s.StartAt(); err != nil {
		errs = append(errs, err)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace)", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// ArchivePath is the archive database location.
func (c *Config) ArchivePath() string {
	if c.Archive.Path != "" {
		return c.Archive.Path
	}
	return filepath.Join(c.DataDir, "archive.db")
}
