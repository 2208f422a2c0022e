package cmd

import (
	"fmt"

	"github.com/spf13/viper"
)

type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
	Active bool   `mapstructure:"active"`
}

// GetActiveDBConfig returns the currently active database configuration.
func GetActiveDBConfig() (*DBConfig, error) {
	var configs []DBConfig

	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active database found in config (set active: true)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active databases found (only one can be active)")
	}

	return activeConfig, nil
}

// ResolveDBConfig prefers the database section and flags, then the active
// entry of the databases list.
func ResolveDBConfig() (*DBConfig, error) {
	if dsn := viper.GetString("database.dsn"); dsn != "" {
		cfg := &DBConfig{
			Name:   "database",
			Driver: viper.GetString("database.driver"),
			DSN:    dsn,
			Schema: viper.GetString("database.schema"),
			Active: true,
		}
		if cfg.Driver == "" {
			return nil, fmt.Errorf("database.driver is required when database.dsn is set")
		}
		return cfg, nil
	}

	cfg, err := GetActiveDBConfig()
	if err != nil {
		return nil, fmt.Errorf("database.dsn is required (via flag, env or config): %w", err)
	}
	if cfg.Driver == "" || cfg.DSN == "" {
		return nil, fmt.Errorf("database %q needs both driver and dsn", cfg.Name)
	}
	return cfg, nil
}
