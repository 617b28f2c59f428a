// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Log formats.
const (
	FormatAuto = "auto"
	FormatJSON = "json"
	FormatText = "text"
)

// Config holds every setting skirmishd reads at startup.
type Config struct {
	DBPath       string        `env:"SKIRMISH_DB_PATH" envDefault:"data/skirmish.db"`
	Map          string        `env:"SKIRMISH_MAP" envDefault:"default"`
	Seed         int64         `env:"SKIRMISH_SEED" envDefault:"42"`
	TickInterval time.Duration `env:"SKIRMISH_TICK_INTERVAL" envDefault:"100ms"`
	Speed        float64       `env:"SKIRMISH_SPEED" envDefault:"1.0"`

	PathNodeBudget int `env:"SKIRMISH_PATH_NODE_BUDGET" envDefault:"0"`
	PathWorkers    int `env:"SKIRMISH_PATH_WORKERS" envDefault:"4"`

	SaveEvery uint64 `env:"SKIRMISH_SAVE_EVERY" envDefault:"600"` // Ticks between saves; 0 disables

	LogLevel  string `env:"SKIRMISH_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"SKIRMISH_LOG_FORMAT" envDefault:"auto"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c Config) Validate() error {
	switch {
	case c.DBPath == "":
		return errors.New("SKIRMISH_DB_PATH must not be empty")
	case c.Map == "":
		return errors.New("SKIRMISH_MAP must not be empty")
	case c.TickInterval <= 0:
		return fmt.Errorf("SKIRMISH_TICK_INTERVAL must be positive, got %s", c.TickInterval)
	case c.Speed < 0:
		return fmt.Errorf("SKIRMISH_SPEED must not be negative, got %g", c.Speed)
	case c.PathNodeBudget < 0:
		return fmt.Errorf("SKIRMISH_PATH_NODE_BUDGET must not be negative, got %d", c.PathNodeBudget)
	case c.PathWorkers < 1:
		return fmt.Errorf("SKIRMISH_PATH_WORKERS must be at least 1, got %d", c.PathWorkers)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case FormatAuto, FormatJSON, FormatText:
	default:
		return fmt.Errorf("SKIRMISH_LOG_FORMAT must be auto, json, or text, got %q", c.LogFormat)
	}
	return nil
}

// Level returns the configured slog level.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("SKIRMISH_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
