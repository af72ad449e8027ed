package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("config: invalid")

// StoreConfig selects the SQL database used for pairs and labels.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Config holds all runtime configuration for a coalesce invocation.
// Values are populated from .coalesce.yaml, COALESCE_* env vars, and CLI flags.
type Config struct {
	Input         string      `mapstructure:"input"`
	Size          int         `mapstructure:"size"`
	MinGroupSize  int         `mapstructure:"min_group_size"`
	SkipInvalid   bool        `mapstructure:"skip_invalid"`
	Format        string      `mapstructure:"format"`
	TelemetryPath string      `mapstructure:"telemetry_path"`
	Verbose       bool        `mapstructure:"verbose"`
	Store         StoreConfig `mapstructure:"store"`
}

var (
	knownFormats = map[string]bool{"text": true, "json": true, "toml": true}
	knownDrivers = map[string]bool{"sqlite": true, "mysql": true}
)

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags. The result is not
// validated: callers apply flag overrides first and then call Validate.
func Load() (Config, error) {
	viper.SetDefault("input", "")
	viper.SetDefault("size", 0)
	viper.SetDefault("min_group_size", 1)
	viper.SetDefault("skip_invalid", false)
	viper.SetDefault("format", "text")
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("verbose", false)
	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dsn", "")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// Validate reports the first out-of-range value in c.
func (c Config) Validate() error {
	switch {
	case c.Size < 0:
		return fmt.Errorf("%w: size %d is negative", ErrInvalid, c.Size)
	case c.MinGroupSize < 1:
		return fmt.Errorf("%w: min_group_size %d is below 1", ErrInvalid, c.MinGroupSize)
	case !knownFormats[c.Format]:
		return fmt.Errorf("%w: unknown format %q", ErrInvalid, c.Format)
	case !knownDrivers[c.Store.Driver]:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver)
	}
	return nil
}
