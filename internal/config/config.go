package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/darkodi/shorturl/internal/logger"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	App       AppConfig
	Log       logger.Config
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `env:"PORT" env-default:"3000"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// StoreConfig holds the connection string of the shared store
type StoreConfig struct {
	URI string `env:"STORE_URI" env-default:"redis://127.0.0.1:6379/0"`
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Environment  string `env:"ENVIRONMENT" env-default:"development"` // "development", "production", "testing"
	MaxURLLength int    `env:"URL_MAX_LENGTH" env-default:"2048"`
}

// RateLimitConfig holds the per-client token bucket settings
type RateLimitConfig struct {
	Enabled  bool          `env:"RATE_LIMIT_ENABLED" env-default:"false"`
	Rate     int           `env:"RATE_LIMIT_RATE" env-default:"10"`
	Burst    int           `env:"RATE_LIMIT_BURST" env-default:"20"`
	Interval time.Duration `env:"RATE_LIMIT_INTERVAL" env-default:"1s"`
	Cleanup  time.Duration `env:"RATE_LIMIT_CLEANUP" env-default:"5m"`
}

// Load reads configuration from environment variables. A .env file in the
// working directory, if any, is loaded first; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	cfg.Log.Environment = cfg.App.Environment

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %s (must be 1-65535)", c.Server.Port)
	}

	if strings.TrimSpace(c.Store.URI) == "" {
		return errors.New("store uri cannot be empty")
	}

	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
		"testing":     true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, production, or testing)", c.App.Environment)
	}

	if c.App.MaxURLLength < 1 {
		return fmt.Errorf("invalid url max length: %d", c.App.MaxURLLength)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.RateLimit.Enabled && (c.RateLimit.Rate < 1 || c.RateLimit.Burst < 1 || c.RateLimit.Interval <= 0) {
		return errors.New("rate limit rate, burst and interval must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
