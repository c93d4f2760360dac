// Package config holds the tunables of the scheduling core and loads them
// from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	ErrInvalidBigStride = errors.New("big_stride must be greater than zero")
	ErrInvalidPriority  = errors.New("default_priority must be at least 1")
	ErrInvalidFrames    = errors.New("frames must be at least 1")
	ErrInvalidClock     = errors.New("clock must be \"system\" or \"virtual\"")
)

// Clock kinds.
const (
	ClockSystem  = "system"
	ClockVirtual = "virtual"
)

// Config contains the kernel tunables.
type Config struct {
	// BigStride is the stride numerator; a task advances by BigStride/priority
	// every time it is dispatched.
	BigStride uint64 `yaml:"big_stride"`
	// DefaultPriority is assigned to tasks spawned without an explicit priority.
	DefaultPriority uint64 `yaml:"default_priority"`
	// DeadlockDetection is the initial detection flag of new processes.
	DeadlockDetection bool `yaml:"deadlock_detection"`
	// Frames is the number of physical frames available to anonymous mappings.
	Frames int `yaml:"frames"`
	// Clock selects wall-clock or virtual time for sleep.
	Clock string `yaml:"clock"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BigStride:         1 << 20,
		DefaultPriority:   16,
		DeadlockDetection: false,
		Frames:            4096,
		Clock:             ClockSystem,
		LogLevel:          "info",
	}
}

// Load reads a YAML file on top of the defaults. Keys absent from the file
// keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Clock = strings.ToLower(strings.TrimSpace(cfg.Clock))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every tunable is usable.
func (c *Config) Validate() error {
	if c.BigStride == 0 {
		return ErrInvalidBigStride
	}
	if c.DefaultPriority < 1 {
		return ErrInvalidPriority
	}
	if c.Frames < 1 {
		return ErrInvalidFrames
	}
	switch c.Clock {
	case ClockSystem, ClockVirtual:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidClock, c.Clock)
	}
	return nil
}
