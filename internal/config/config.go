// Package config loads TaskFlow configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Probe/metrics HTTP server (plain net/http, beside the API server)
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// API server
	APIListenAddr  string `envconfig:"API_LISTEN_ADDR" default:":8090"`
	APICORSOrigins string `envconfig:"API_CORS_ORIGINS"`
	RateLimitRPS   int    `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int    `envconfig:"API_RATE_LIMIT_BURST" default:"200"`

	// Auth: "none", "api-key", or "jwt"
	AuthMode  string        `envconfig:"AUTH_MODE" default:"api-key"`
	APIKey    string        `envconfig:"API_KEY"`
	JWTSecret string        `envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"1h"`

	// Storage
	DBPath string `envconfig:"DB_PATH" default:"taskflow.db"`

	// Optional demo-data seed file (YAML); applied on startup when set
	SeedPath string `envconfig:"SEED_PATH"`
}

// AuthEnabled returns true unless auth is explicitly disabled.
func (c *Config) AuthEnabled() bool {
	return c.AuthMode != "none"
}

// JWTEnabled returns true if token-based auth can be used.
func (c *Config) JWTEnabled() bool {
	return c.JWTSecret != ""
}

// SeedEnabled returns true if a seed file is configured.
func (c *Config) SeedEnabled() bool {
	return c.SeedPath != ""
}

// Validate rejects configurations that cannot serve requests.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case "none", "api-key", "jwt":
	default:
		return fmt.Errorf("invalid AUTH_MODE %q (want none, api-key, or jwt)", c.AuthMode)
	}
	if c.AuthMode == "api-key" && c.APIKey == "" {
		return fmt.Errorf("AUTH_MODE=api-key requires API_KEY")
	}
	if c.AuthMode == "jwt" && c.JWTSecret == "" {
		return fmt.Errorf("AUTH_MODE=jwt requires JWT_SECRET")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithPrefix reads configuration with an environment variable prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
