// Package config loads server configuration from config.yaml plus
// SKYFLEET_* environment overrides. Simulation content (scenarios, fleet,
// no-fly zones) lives in its own catalog files and is not handled here.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the server process configuration.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigDir  string `mapstructure:"config_dir"`
	LogLevel   string `mapstructure:"log_level"`

	Sim     SimConfig     `mapstructure:"sim"`
	Index   IndexConfig   `mapstructure:"index"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SimConfig seeds the world engine.
type SimConfig struct {
	Seed            int64   `mapstructure:"seed"`
	TickRateHz      int     `mapstructure:"tick_rate_hz"`
	Scenario        string  `mapstructure:"scenario"`
	SpeedMultiplier float64 `mapstructure:"speed_multiplier"`
	AutoStart       bool    `mapstructure:"auto_start"`
}

// IndexConfig controls the sqlite order/alert index.
type IndexConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads config.yaml from configDir, applying defaults and SKYFLEET_*
// environment variables (SKYFLEET_SIM_SEED overrides sim.seed). A missing
// file is fine; a malformed one is not.
func Load(configDir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("config_dir", configDir)
	v.SetDefault("log_level", "info")

	v.SetDefault("sim.seed", 1)
	v.SetDefault("sim.tick_rate_hz", 10)
	v.SetDefault("sim.scenario", "NORMAL")
	v.SetDefault("sim.speed_multiplier", 1.0)
	v.SetDefault("sim.auto_start", false)

	v.SetDefault("index.enabled", true)
	v.SetDefault("index.path", "./data/index.db")

	v.SetDefault("metrics.enabled", true)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("SKYFLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", configDir, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen_addr must not be empty")
	}
	if c.Sim.TickRateHz <= 0 {
		return fmt.Errorf("config: sim.tick_rate_hz must be positive, got %v", c.Sim.TickRateHz)
	}
	if c.Sim.SpeedMultiplier <= 0 {
		return fmt.Errorf("config: sim.speed_multiplier must be positive, got %v", c.Sim.SpeedMultiplier)
	}
	return nil
}
