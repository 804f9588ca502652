// Package config defines the tasklog runtime configuration.
//
// Values come from three layers, later ones winning: Default(), an optional
// YAML file (Load), and TASKLOG_* environment variables (FromEnv).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tasklog/internal/engine"
)

// ID policies accepted in Config.IDPolicy.
const (
	IDPolicySequence = "sequence"
	IDPolicyUUIDv7   = "uuidv7"
)

// Config is the top-level tasklog configuration.
type Config struct {
	AddLatency     time.Duration `json:"add_latency" yaml:"add_latency" env:"TASKLOG_ADD_LATENCY"`
	ReplayInterval time.Duration `json:"replay_interval" yaml:"replay_interval" env:"TASKLOG_REPLAY_INTERVAL"`
	MaxReplayDepth int           `json:"max_replay_depth" yaml:"max_replay_depth" env:"TASKLOG_MAX_REPLAY_DEPTH"`
	IDPolicy       string        `json:"id_policy" yaml:"id_policy" env:"TASKLOG_ID_POLICY"` // "sequence" or "uuidv7"
	FavoriteNeedle string        `json:"favorite_needle" yaml:"favorite_needle" env:"TASKLOG_FAVORITE_NEEDLE"`
	LogLevel       string        `json:"log_level" yaml:"log_level" env:"TASKLOG_LOG_LEVEL"`
	Database       string        `json:"database,omitempty" yaml:"database" env:"TASKLOG_DB"` // journal path; empty disables journaling
}

// Default returns a config with the engine defaults.
func Default() *Config {
	return &Config{
		AddLatency:     engine.DefaultAddLatency,
		ReplayInterval: engine.DefaultReplayInterval,
		MaxReplayDepth: engine.DefaultMaxReplayDepth,
		IDPolicy:       IDPolicySequence,
		FavoriteNeedle: engine.DefaultFavoriteNeedle,
		LogLevel:       "info",
	}
}

// Load reads a YAML config file on top of Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv overlays TASKLOG_* environment variables onto cfg.
// Unset variables leave the existing values alone.
func FromEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Resolve builds the effective config: defaults, then the file at path (if
// path is non-empty), then the environment. The result is validated.
func Resolve(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := FromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.AddLatency < 0 {
		return fmt.Errorf("add_latency must be non-negative, got %s", c.AddLatency)
	}
	if c.ReplayInterval < 0 {
		return fmt.Errorf("replay_interval must be non-negative, got %s", c.ReplayInterval)
	}
	if c.MaxReplayDepth < 1 {
		return fmt.Errorf("max_replay_depth must be at least 1, got %d", c.MaxReplayDepth)
	}
	switch c.IDPolicy {
	case IDPolicySequence, IDPolicyUUIDv7:
	default:
		return fmt.Errorf("id_policy must be %q or %q, got %q", IDPolicySequence, IDPolicyUUIDv7, c.IDPolicy)
	}
	if c.FavoriteNeedle == "" {
		return fmt.Errorf("favorite_needle must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// EngineOptions converts the config to controller options.
// The logger and journal are wired by the caller.
func (c *Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithAddLatency(c.AddLatency),
		engine.WithReplayInterval(c.ReplayInterval),
		engine.WithMaxReplayDepth(c.MaxReplayDepth),
		engine.WithIDGenerator(c.idGenerator()),
		engine.WithFavoritePredicate(engine.SubstringFavorite(c.FavoriteNeedle)),
	}
}

// Reducer returns a standalone reducer with the same ID policy and favorite
// rule a controller built from EngineOptions would use. Each call gets its
// own generator.
func (c *Config) Reducer() *engine.Reducer {
	return engine.NewReducer(c.idGenerator(), engine.SubstringFavorite(c.FavoriteNeedle))
}

func (c *Config) idGenerator() engine.IDGenerator {
	if c.IDPolicy == IDPolicyUUIDv7 {
		return engine.UUIDv7Generator{}
	}
	return engine.NewSequenceGenerator(engine.DefaultIDPrefix)
}
