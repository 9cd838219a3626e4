package config

import (
	"fmt"

	pkgconfig "github.com/k1shan-k/lsspoing/pkg/config"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// Upstream APIs
	IdentityBaseURL    string `env:"IDENTITY_BASE_URL" envDefault:"https://dummyjson.com"`
	CatalogBaseURL     string `env:"CATALOG_BASE_URL" envDefault:"https://dummyjson.com"`
	UpstreamTimeoutSec int    `env:"UPSTREAM_TIMEOUT_SECONDS" envDefault:"15"`

	// Session
	TokenExpiryMins int `env:"TOKEN_EXPIRY_MINUTES" envDefault:"30"`

	// State store backend: sqlite, redis or memory
	StateBackend string `env:"STATE_BACKEND" envDefault:"sqlite"`
	StatePath    string `env:"STATE_PATH" envDefault:"data/storefront.db"`

	// Redis (used when STATE_BACKEND=redis)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.IdentityBaseURL == "" {
		return nil, fmt.Errorf("IDENTITY_BASE_URL is required")
	}
	if cfg.CatalogBaseURL == "" {
		return nil, fmt.Errorf("CATALOG_BASE_URL is required")
	}
	switch cfg.StateBackend {
	case "sqlite", "redis", "memory":
	default:
		return nil, fmt.Errorf("invalid STATE_BACKEND: %q (want sqlite, redis or memory)", cfg.StateBackend)
	}
	if cfg.StateBackend == "sqlite" && cfg.StatePath == "" {
		return nil, fmt.Errorf("STATE_PATH is required when STATE_BACKEND=sqlite")
	}
	if cfg.TokenExpiryMins < 1 {
		return nil, fmt.Errorf("TOKEN_EXPIRY_MINUTES must be positive, got %d", cfg.TokenExpiryMins)
	}
	return cfg, nil
}
