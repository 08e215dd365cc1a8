package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/viper"
)

// ErrNoGraph is returned by Validate when no graph snapshot is configured.
var ErrNoGraph = errors.New("no graph snapshot configured")

// Config holds all runtime configuration for a cascade run.
// Values are populated from .cascade.yaml, CASCADE_* env vars, and CLI flags.
type Config struct {
	Graph             string `mapstructure:"graph"`
	Events            string `mapstructure:"events"`
	Follow            bool   `mapstructure:"follow"`
	Workers           int    `mapstructure:"workers"`
	SourceRoot        string `mapstructure:"source_root"`
	EventLog          string `mapstructure:"evlog"`
	StatsDir          string `mapstructure:"stats_dir"`
	AllowDanglingDeps bool   `mapstructure:"allow_dangling_deps"`
	Betweenness       bool   `mapstructure:"betweenness"`
	Verbose           bool   `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("graph", "")
	viper.SetDefault("events", "")
	viper.SetDefault("follow", false)
	viper.SetDefault("workers", runtime.NumCPU())
	viper.SetDefault("source_root", "")
	viper.SetDefault("evlog", "")
	viper.SetDefault("stats_dir", "")
	viper.SetDefault("allow_dangling_deps", false)
	viper.SetDefault("betweenness", false)
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings a replay needs.
func (c Config) Validate() error {
	if c.Graph == "" {
		return ErrNoGraph
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}
