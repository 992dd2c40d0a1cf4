// Package config holds the runtime configuration for a world.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config tunes a world. The zero value is not meaningful; start from
// Default and override.
type Config struct {
	// Workers bounds the goroutines used when running systems.
	// Zero means one per logical CPU.
	Workers int `json:"workers" yaml:"workers"`

	// Audit enables the expensive contract checks (duplicate-add
	// detection, allocator address validation).
	Audit bool `json:"audit" yaml:"audit"`

	// LogLevel selects the diagnostic log level: debug, info, warn,
	// error. Empty disables logging.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// ScatterPoolSize is validated to be at least one. The world does not
	// pass it on: every scatter allocator it creates starts at
	// scatter.DefaultStartingSize elements.
	ScatterPoolSize int `json:"scatter_pool_size" yaml:"scatter_pool_size"`
}

// Default returns the configuration used when none is supplied.
func Default() Config {
	return Config{
		Workers:         0,
		Audit:           false,
		LogLevel:        "",
		ScatterPoolSize: 16,
	}
}

// Load parses a yaml document over the defaults.
func Load(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the runtime cannot honour.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must be >= 0, got %d", c.Workers)
	}
	if c.ScatterPoolSize < 1 {
		return fmt.Errorf("config: scatter_pool_size must be >= 1, got %d", c.ScatterPoolSize)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}
