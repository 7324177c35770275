// Package config loads server configuration from file, environment and
// defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `mapstructure:"listen_addr" validate:"required,hostname_port"`
	// DBPath is the SQLite database file. ":memory:" runs without a file.
	DBPath string `mapstructure:"db_path" validate:"required"`
	// SlotConfigDir holds the per-entity-type slot YAML files.
	SlotConfigDir string `mapstructure:"slot_config_dir" validate:"required"`
	// WatchSlotConfig reloads slot configuration on file changes.
	WatchSlotConfig bool `mapstructure:"watch_slot_config"`
	// LogLevel is the minimum level emitted.
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
}

// Load reads configuration from the optional file at path, the PAGEGRID_*
// environment, and defaults, then validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("listen_addr", "localhost:8080")
	v.SetDefault("db_path", "pagegrid.db")
	v.SetDefault("slot_config_dir", "slots")
	v.SetDefault("watch_slot_config", true)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("PAGEGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}
