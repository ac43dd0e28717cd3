/*
Package config loads server configuration.

PURPOSE:
  One Config struct for the whole server, loaded from an optional YAML
  file with environment overrides (BOOKS_ prefix, e.g. BOOKS_SERVER_PORT).
  A missing config file is not an error; defaults cover every field so
  the server runs with zero configuration.
*/
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address         string   `mapstructure:"address"`
	Port            int      `mapstructure:"port"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	ShutdownSeconds int      `mapstructure:"shutdown_seconds"`
}

type DatabaseConfig struct {
	// Path is the SQLite file, or "memory" for the in-memory store.
	Path string `mapstructure:"path"`
}

type ChartConfig struct {
	// SeedDefault seeds the built-in chart of accounts on startup.
	SeedDefault bool `mapstructure:"seed_default"`
	// File points at a JSON chart definition seeded instead of the default.
	File string `mapstructure:"file"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Chart    ChartConfig    `mapstructure:"chart"`
}

// Load reads configuration from the given file path (e.g. "config.yaml").
// An empty path looks for config.yaml in the working directory and
// silently falls back to defaults when none exists.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_seconds", 10)
	v.SetDefault("database.path", "books.db")
	v.SetDefault("chart.seed_default", true)
	v.SetDefault("chart.file", "")

	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// environment overrides, e.g. BOOKS_SERVER_PORT=9000
	v.SetEnvPrefix("BOOKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Addr is the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
