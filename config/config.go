// Package config loads the process configuration from the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/diasporalink/api/logging"
	"github.com/diasporalink/api/postgres"
	"github.com/joho/godotenv"
)

type Config struct {
	// DatabaseURL is optional; without it the service runs with no database.
	DatabaseURL            string        `env:"DATABASE_URL"`
	DatabaseRetryAttempts  int           `env:"DATABASE_RETRY_ATTEMPTS" envDefault:"3"`
	DatabaseRetryDelay     time.Duration `env:"DATABASE_RETRY_DELAY" envDefault:"5s"`
	DatabaseConnectTimeout time.Duration `env:"DATABASE_CONNECT_TIMEOUT" envDefault:"10s"`
	DatabaseMaxConns       int32         `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	DatabaseMinConns       int32         `env:"DATABASE_MIN_CONNS" envDefault:"0"`

	HTTPAddr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	LogLevel  string         `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat logging.Format `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads envFiles (".env" when none are given) into the environment
// without overriding variables that are already set, then decodes Config.
// Missing env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR must not be empty")
	}

	if c.HTTPShutdownTimeout <= 0 {
		return errors.New("HTTP_SHUTDOWN_TIMEOUT must be greater than zero")
	}

	switch c.LogFormat {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("LOG_FORMAT must be %q or %q, got %q", logging.FormatJSON, logging.FormatConsole, c.LogFormat)
	}

	return nil
}

// PostgresOptions maps the database settings onto postgres options. Invalid
// retry or pool values are not rejected here: the manager reports them at
// Initialize and keeps the process running.
func (c *Config) PostgresOptions() []postgres.Option {
	opts := []postgres.Option{
		postgres.WithConnectionString(c.DatabaseURL),
		postgres.WithMaxAttempts(c.DatabaseRetryAttempts),
		postgres.WithRetryDelay(c.DatabaseRetryDelay),
		postgres.WithConnectTimeout(c.DatabaseConnectTimeout),
		postgres.WithPoolMaxConnections(c.DatabaseMaxConns),
	}

	if c.DatabaseMinConns > 0 {
		opts = append(opts, postgres.WithPoolMinConnections(c.DatabaseMinConns))
	}

	return opts
}
