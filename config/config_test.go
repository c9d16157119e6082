package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/diasporalink/api/config"
	"github.com/diasporalink/api/logging"
	"github.com/diasporalink/api/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configVars = []string{
	"DATABASE_URL",
	"DATABASE_RETRY_ATTEMPTS",
	"DATABASE_RETRY_DELAY",
	"DATABASE_CONNECT_TIMEOUT",
	"DATABASE_MAX_CONNS",
	"DATABASE_MIN_CONNS",
	"HTTP_ADDR",
	"HTTP_SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
}

// clearEnv unsets every config variable for the duration of the test;
// t.Setenv restores the previous values on cleanup.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range configVars {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func missingEnvFile(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(missingEnvFile(t))

	require.NoError(t, err)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 3, cfg.DatabaseRetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.DatabaseRetryDelay)
	assert.Equal(t, 10*time.Second, cfg.DatabaseConnectTimeout)
	assert.Equal(t, int32(10), cfg.DatabaseMaxConns)
	assert.Equal(t, int32(0), cfg.DatabaseMinConns)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Second, cfg.HTTPShutdownTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, logging.FormatJSON, cfg.LogFormat)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)

	t.Setenv("DATABASE_URL", "postgres://app:pw@db:5432/diaspora")
	t.Setenv("DATABASE_RETRY_ATTEMPTS", "5")
	t.Setenv("DATABASE_RETRY_DELAY", "250ms")
	t.Setenv("DATABASE_MIN_CONNS", "2")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := config.Load(missingEnvFile(t))

	require.NoError(t, err)
	assert.Equal(t, "postgres://app:pw@db:5432/diaspora", cfg.DatabaseURL)
	assert.Equal(t, 5, cfg.DatabaseRetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.DatabaseRetryDelay)
	assert.Equal(t, int32(2), cfg.DatabaseMinConns)
	assert.Equal(t, logging.FormatConsole, cfg.LogFormat)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)

	t.Setenv("HTTP_ADDR", ":9999")

	path := filepath.Join(t.TempDir(), "test.env")
	content := "DATABASE_URL=postgres://file:pw@db/diaspora\nHTTP_ADDR=:7000\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "postgres://file:pw@db/diaspora", cfg.DatabaseURL)
	assert.Equal(t, ":9999", cfg.HTTPAddr, "existing environment wins over the env file")
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad duration", "DATABASE_RETRY_DELAY", "soon", "failed to parse environment"},
		{"bad integer", "DATABASE_RETRY_ATTEMPTS", "three", "failed to parse environment"},
		{"bad log format", "LOG_FORMAT", "xml", "LOG_FORMAT must be"},
		{"zero shutdown timeout", "HTTP_SHUTDOWN_TIMEOUT", "0s", "HTTP_SHUTDOWN_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := config.Load(missingEnvFile(t))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_UnreadableEnvFile(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load env file")
}

func TestPostgresOptions(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		DatabaseURL:            "postgres://app:pw@db/diaspora",
		DatabaseRetryAttempts:  4,
		DatabaseRetryDelay:     time.Second,
		DatabaseConnectTimeout: 2 * time.Second,
		DatabaseMaxConns:       8,
		DatabaseMinConns:       1,
	}

	m := postgres.New(cfg.PostgresOptions()...)

	assert.Equal(t, postgres.RetryBudget{MaxAttempts: 4, Delay: time.Second}, m.RetryBudget())
	assert.Equal(t, "postgres://app:xxxxx@db/diaspora", m.MaskedConnectionString())
}
