// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable Load reads the config path from.
const EnvVar = "RAILBOOK_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the railbook server.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Server configures the listener.
	Server ServerConfig `yaml:"server"`

	// Reservation configures order limits and hold expiry.
	Reservation ReservationConfig `yaml:"reservation"`

	// Timetable configures the seed inventory.
	Timetable TimetableConfig `yaml:"timetable"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Server      *ServerConfig       `yaml:"server,omitempty"`
	Reservation *ReservationConfig  `yaml:"reservation,omitempty"`
	Timetable   *TimetableOverrides `yaml:"timetable,omitempty"`
	Logging     *LoggingConfig      `yaml:"logging,omitempty"`
}

// TimetableOverrides is the override form of TimetableConfig. A nil
// UseBuiltin leaves the base value alone.
type TimetableOverrides struct {
	Path       string `yaml:"path"`
	UseBuiltin *bool  `yaml:"use_builtin"`
}

// ServerConfig configures the listener.
type ServerConfig struct {
	// Network is "tcp" or "unix".
	// Default: tcp
	Network string `yaml:"network"`

	// Address is host:port for tcp or a socket path for unix.
	// Default: 127.0.0.1:8888
	Address string `yaml:"address"`

	// WriteTimeout bounds each write to a terminal, so a terminal that
	// stops reading cannot stall replies or pushes indefinitely.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ReservationConfig configures the reservation authority.
type ReservationConfig struct {
	// HoldTimeout is how long an unpaid order keeps its seats.
	// Default: 60s
	HoldTimeout time.Duration `yaml:"hold_timeout"`

	// SweepInterval is how often expired holds are reclaimed.
	// Default: 1s
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// MaxTickets is the largest ticket count one order may hold.
	// Default: 5
	MaxTickets int `yaml:"max_tickets"`
}

// TimetableConfig configures the seed inventory applied at startup.
type TimetableConfig struct {
	// Path is a JSONC timetable file. Empty means no file.
	Path string `yaml:"path"`

	// UseBuiltin seeds the built-in demonstration timetable when Path
	// is empty.
	// Default: true
	UseBuiltin bool `yaml:"use_builtin"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is json, text, or auto. Auto writes text when stderr is
	// a terminal and JSON otherwise.
	// Default: auto
	Format string `yaml:"format"`
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: ServerConfig{
			Network:      "tcp",
			Address:      "127.0.0.1:8888",
			WriteTimeout: 10 * time.Second,
		},
		Reservation: ReservationConfig{
			HoldTimeout:   60 * time.Second,
			SweepInterval: time.Second,
			MaxTickets:    5,
		},
		Timetable: TimetableConfig{
			UseBuiltin: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the RAILBOOK_CONFIG environment
// variable. It fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your railbook.yaml config file, or use --config flag", EnvVar)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. The only expansion
// performed is ${HOME} and similar variables in paths, for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Server != nil {
		if overrides.Server.Network != "" {
			c.Server.Network = overrides.Server.Network
		}
		if overrides.Server.Address != "" {
			c.Server.Address = overrides.Server.Address
		}
		if overrides.Server.WriteTimeout != 0 {
			c.Server.WriteTimeout = overrides.Server.WriteTimeout
		}
	}

	if overrides.Reservation != nil {
		if overrides.Reservation.HoldTimeout != 0 {
			c.Reservation.HoldTimeout = overrides.Reservation.HoldTimeout
		}
		if overrides.Reservation.SweepInterval != 0 {
			c.Reservation.SweepInterval = overrides.Reservation.SweepInterval
		}
		if overrides.Reservation.MaxTickets != 0 {
			c.Reservation.MaxTickets = overrides.Reservation.MaxTickets
		}
	}

	if overrides.Timetable != nil {
		if overrides.Timetable.Path != "" {
			c.Timetable.Path = overrides.Timetable.Path
		}
		if overrides.Timetable.UseBuiltin != nil {
			c.Timetable.UseBuiltin = *overrides.Timetable.UseBuiltin
		}
	}

	if overrides.Logging != nil {
		if overrides.Logging.Level != "" {
			c.Logging.Level = overrides.Logging.Level
		}
		if overrides.Logging.Format != "" {
			c.Logging.Format = overrides.Logging.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Timetable.Path = expandVars(c.Timetable.Path, vars)
	if c.Server.Network == "unix" {
		c.Server.Address = expandVars(c.Server.Address, vars)
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	networks := []string{"tcp", "unix"}
	if !slices.Contains(networks, c.Server.Network) {
		errs = append(errs, fmt.Errorf("server.network must be one of: %v", networks))
	}
	if c.Server.Address == "" {
		errs = append(errs, fmt.Errorf("server.address is required"))
	}
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must not be negative"))
	}

	if c.Reservation.HoldTimeout <= 0 {
		errs = append(errs, fmt.Errorf("reservation.hold_timeout must be positive"))
	}
	if c.Reservation.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("reservation.sweep_interval must be positive"))
	} else if c.Reservation.SweepInterval > c.Reservation.HoldTimeout {
		errs = append(errs, fmt.Errorf("reservation.sweep_interval (%s) must not exceed hold_timeout (%s)",
			c.Reservation.SweepInterval, c.Reservation.HoldTimeout))
	}
	if c.Reservation.MaxTickets < 1 {
		errs = append(errs, fmt.Errorf("reservation.max_tickets must be at least 1"))
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	formats := []string{"auto", "json", "text"}
	if !slices.Contains(formats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", formats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
