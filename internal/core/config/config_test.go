package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults verifies that default values are used when env vars are missing.
func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("APP_ENV")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("SERVER_PORT")
	os.Unsetenv("STORE_BACKEND")
	os.Unsetenv("ACCURACY_LIMIT_M")
	os.Unsetenv("GEOFENCE_RADIUS_M")
	os.Unsetenv("DEFAULT_DRIVER_CAPACITY")

	cfg, err := Load(".")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 100.0, cfg.Engine.AccuracyLimitM)
	assert.Equal(t, 100.0, cfg.Engine.GeofenceRadiusM)
	assert.Equal(t, 1, cfg.Engine.DefaultDriverCapacity)
	assert.Equal(t, "delivery.events", cfg.Events.AMQPExchange)
}

// TestLoad_EnvVars verifies that environment variables override defaults.
func TestLoad_EnvVars(t *testing.T) {
	os.Setenv("APP_ENV", "production")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("STORE_BACKEND", "redis")
	os.Setenv("REDIS_URL", "redis://cache:6379/1")
	os.Setenv("ACCURACY_LIMIT_M", "50")
	os.Setenv("DEFAULT_DRIVER_CAPACITY", "2")
	defer func() {
		os.Unsetenv("APP_ENV")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("STORE_BACKEND")
		os.Unsetenv("REDIS_URL")
		os.Unsetenv("ACCURACY_LIMIT_M")
		os.Unsetenv("DEFAULT_DRIVER_CAPACITY")
	}()

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis://cache:6379/1", cfg.Store.RedisURL)
	assert.Equal(t, 50.0, cfg.Engine.AccuracyLimitM)
	assert.Equal(t, 2, cfg.Engine.DefaultDriverCapacity)
}

// TestLoad_File verifies that values are loaded from a .env file.
func TestLoad_File(t *testing.T) {
	content := []byte(`
APP_ENV=staging
LOG_LEVEL=warn
SERVER_PORT=7070
STORE_BACKEND=postgres
POSTGRES_URL=postgres://db:5432/staging
GEOFENCE_RADIUS_M=75
`)
	err := os.WriteFile(".env", content, 0644)
	require.NoError(t, err)
	defer os.Remove(".env")

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7070, cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "postgres://db:5432/staging", cfg.Store.PostgresURL)
	assert.Equal(t, 75.0, cfg.Engine.GeofenceRadiusM)
}
