// internal/server/config.go
package server

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config holds the server's own settings, kept separate from the app config
// so deployment concerns do not leak into the pipeline.
type Config struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	GraceSeconds int    `yaml:"grace"`
}

// LoadConfig reads a YAML server config. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read server config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse server config %q: %w", path, err)
		}
	}

	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port <= 0 {
		cfg.Port = 8080
	}
	if cfg.GraceSeconds <= 0 {
		cfg.GraceSeconds = 10
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// GracePeriod returns how long in-flight requests get during shutdown.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}
