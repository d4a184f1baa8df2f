// Package config loads process-wide configuration, fixed at start: listen
// address, caller origin policy, logging and the data directory. Precedence
// is defaults, then the optional TOML file in the data directory, then
// environment variables; cmd/agent applies flag overrides on top.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all process configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	CORS    CORSConfig    `toml:"cors"`
	Logging LogConfig     `toml:"logging"`
	Storage StorageConfig `toml:"storage"`
}

// ServerConfig holds the management listener configuration. The default bind
// address is loopback-only; exposing the agent beyond the local machine is an
// explicit operator decision.
type ServerConfig struct {
	Port string `envconfig:"RESTGATE_PORT" toml:"port"`
	Host string `envconfig:"RESTGATE_HOST" toml:"host"`
}

// CORSConfig holds the caller origin policy.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"RESTGATE_ORIGINS" toml:"allowed_origins"`
	AllowAnyOrigin bool     `envconfig:"RESTGATE_ALLOW_ANY_ORIGIN" toml:"allow_any_origin"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `envconfig:"RESTGATE_LOG_LEVEL" toml:"level"`
	Debug bool   `envconfig:"RESTGATE_DEBUG" toml:"debug"`
}

// StorageConfig holds the persisted-state location.
type StorageConfig struct {
	DataDir string `envconfig:"RESTGATE_DATA_DIR" toml:"data_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "9119",
			Host: "127.0.0.1",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowAnyOrigin: false,
		},
		Logging: LogConfig{
			Level: "info",
			Debug: false,
		},
		Storage: StorageConfig{},
	}
}

// Load builds the configuration from defaults, the optional file at filePath
// (skipped when empty or absent) and the environment.
func Load(filePath string) (*Config, error) {
	cfg := Default()

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", filePath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", filePath, err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load environment config: %w", err)
	}
	return cfg, nil
}
