// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles client-wide settings and environment parsing.

It leverages 'caarlos0/env' to map VAULT_* environment variables into a
strongly-typed Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to the store and API client via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name in [Config].
const EnvPrefix = "VAULT_"

// Storage drivers accepted by STORE_DRIVER.
const (
	StoreDriverFile   = "file"
	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
)

// # Configuration Schema

// Config holds all runtime configuration for the vault client.
type Config struct {

	// Client settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`

	// Remote vault API
	APIBaseURL  string        `env:"API_BASE_URL" envDefault:"http://localhost:5000/api"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Outbound request pacing (token bucket)
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Persistent session store
	StoreDriver string `env:"STORE_DRIVER" envDefault:"file"`
	StorePath   string `env:"STORE_PATH"`

	// Key-Value store (Redis), only read when StoreDriver is "redis"
	RedisURL    string `env:"REDIS_URL"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"legacyvault:"`
}

// # Configuration Loading

// Load parses VAULT_* environment variables into a [Config] struct.
func Load() (*Config, error) {
	return LoadWithEnvironment(nil)
}

// LoadWithEnvironment parses configuration from the given variables instead of
// the process environment when environment is non-nil.
func LoadWithEnvironment(environment map[string]string) (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	options := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		options.Environment = environment
	}

	if err := env.ParseWithOptions(cfg, options); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// The file store lives next to the user's other configuration by default.
	if cfg.StoreDriver == StoreDriverFile && cfg.StorePath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("config: failed to resolve user config dir: %w", err)
		}
		cfg.StorePath = filepath.Join(dir, "legacyvault", "session.json")
	}

	return cfg, nil
}

// validate rejects combinations that cannot produce a working client.
func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverFile, StoreDriverMemory:
	case StoreDriverRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: %sREDIS_URL is required when %sSTORE_DRIVER=redis", EnvPrefix, EnvPrefix)
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("config: %sHTTP_TIMEOUT must be positive", EnvPrefix)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("config: rate limit must be positive")
	}

	return nil
}

// IsDevelopment reports whether the client is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the client is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
