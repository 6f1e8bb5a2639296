package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable ValidateEnv reads, restoring the original
// values when the test ends.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "PASSWORD", "ROOM_LIMIT", "LOBBY_LIFETIME", "GAME_LIFETIME",
		"GO_ENV", "LOG_LEVEL", "ALLOWED_ORIGINS", "RATE_LIMIT_API",
		"REDIS_ENABLED", "REDIS_ADDR", "REDIS_PASSWORD",
		"TRACING_ENABLED", "TRACING_COLLECTOR_ADDR",
	}
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestValidateEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := ValidateEnv()
	require.NoError(t, err)

	assert.Equal(t, "7468", cfg.Port)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, 100, cfg.RoomLimit)
	assert.Equal(t, 10*time.Minute, cfg.LobbyLifetime)
	assert.Equal(t, 20*time.Minute, cfg.GameLifetime)
	assert.Equal(t, "production", cfg.GoEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "600-M", cfg.RateLimitAPI)
	assert.False(t, cfg.RedisEnabled)
	assert.False(t, cfg.TracingEnabled)
}

func TestValidateEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("PASSWORD", "hunter2")
	t.Setenv("ROOM_LIMIT", "5")
	t.Setenv("LOBBY_LIFETIME", "1")
	t.Setenv("GAME_LIFETIME", "2")
	t.Setenv("GO_ENV", "development")
	t.Setenv("RATE_LIMIT_API", "10-S")

	cfg, err := ValidateEnv()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.Equal(t, 5, cfg.RoomLimit)
	assert.Equal(t, time.Minute, cfg.LobbyLifetime)
	assert.Equal(t, 2*time.Minute, cfg.GameLifetime)
	assert.Equal(t, "development", cfg.GoEnv)
	assert.Equal(t, "10-S", cfg.RateLimitAPI)
}

func TestValidateEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port not a number", "PORT", "http"},
		{"port out of range", "PORT", "70000"},
		{"room limit zero", "ROOM_LIMIT", "0"},
		{"room limit negative", "ROOM_LIMIT", "-1"},
		{"lobby lifetime zero", "LOBBY_LIFETIME", "0"},
		{"game lifetime garbage", "GAME_LIFETIME", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := ValidateEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidateEnv_AccumulatesErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "bad")
	t.Setenv("ROOM_LIMIT", "bad")

	_, err := ValidateEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "ROOM_LIMIT")
}

func TestValidateEnv_Redis(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("REDIS_PASSWORD", "secret")

	cfg, err := ValidateEnv()
	require.NoError(t, err)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, "redis.internal:6379", cfg.RedisAddr)
	assert.Equal(t, "secret", cfg.RedisPassword)

	t.Setenv("REDIS_ADDR", "not-an-addr")
	_, err = ValidateEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR")
}

func TestValidateEnv_Tracing(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := ValidateEnv()
	require.NoError(t, err)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, "localhost:4317", cfg.TracingCollectorAddr)

	t.Setenv("TRACING_COLLECTOR_ADDR", "collector")
	_, err = ValidateEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRACING_COLLECTOR_ADDR")
}

func TestRedactSecret(t *testing.T) {
	assert.Equal(t, "(unset)", redactSecret(""))
	assert.Equal(t, "***", redactSecret("abcd"))
	assert.Equal(t, "hu***", redactSecret("hunter2"))
}

func TestIsValidHostPort(t *testing.T) {
	assert.True(t, isValidHostPort("localhost:6379"))
	assert.False(t, isValidHostPort("localhost"))
	assert.False(t, isValidHostPort(":6379"))
	assert.False(t, isValidHostPort("localhost:0"))
	assert.False(t, isValidHostPort("localhost:port"))
}
