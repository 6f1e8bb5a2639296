package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds validated environment configuration
type Config struct {
	// Core server settings
	Port     string
	Password string

	// Room lifecycle
	RoomLimit     int
	LobbyLifetime time.Duration
	GameLifetime  time.Duration

	// Optional variables with defaults
	GoEnv          string
	LogLevel       string
	AllowedOrigins string

	// Rate limiting (ulule/limiter formatted rate, e.g. "600-M")
	RateLimitAPI  string
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string

	// Tracing
	TracingEnabled       bool
	TracingCollectorAddr string
}

// ValidateEnv validates all environment variables and returns a Config object.
// Returns an error if any variable is present but invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errors []string

	// PORT (defaults to 7468)
	cfg.Port = getEnvOrDefault("PORT", "7468")
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	// PASSWORD (empty disables the bearer check entirely)
	cfg.Password = os.Getenv("PASSWORD")
	if cfg.Password == "" {
		slog.Warn("PASSWORD not set, the API is open to anyone who can reach it")
	}

	// ROOM_LIMIT (defaults to 100)
	roomLimit := getEnvOrDefault("ROOM_LIMIT", "100")
	if limit, err := strconv.Atoi(roomLimit); err != nil || limit < 1 {
		errors = append(errors, fmt.Sprintf("ROOM_LIMIT must be a positive integer (got '%s')", roomLimit))
	} else {
		cfg.RoomLimit = limit
	}

	// LOBBY_LIFETIME / GAME_LIFETIME, in minutes (default 10 and 20)
	if d, err := minutesEnv("LOBBY_LIFETIME", 10); err != nil {
		errors = append(errors, err.Error())
	} else {
		cfg.LobbyLifetime = d
	}
	if d, err := minutesEnv("GAME_LIFETIME", 20); err != nil {
		errors = append(errors, err.Error())
	} else {
		cfg.GameLifetime = d
	}

	// Optional: GO_ENV (defaults to "production")
	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")

	// Rate limit (Defaults: M = Minute, H = Hour)
	cfg.RateLimitAPI = getEnvOrDefault("RATE_LIMIT_API", "600-M")

	// Conditional: REDIS_ADDR (used only by the rate limiter store)
	cfg.RedisEnabled = os.Getenv("REDIS_ENABLED") == "true"
	if cfg.RedisEnabled {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
		if cfg.RedisAddr == "" {
			cfg.RedisAddr = "localhost:6379"
			slog.Warn("REDIS_ADDR not set, using default", "addr", cfg.RedisAddr)
		} else if !isValidHostPort(cfg.RedisAddr) {
			errors = append(errors, fmt.Sprintf("REDIS_ADDR must be in format 'host:port' (got '%s')", cfg.RedisAddr))
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}

	// Conditional: OTEL collector (used only when tracing is on)
	cfg.TracingEnabled = os.Getenv("TRACING_ENABLED") == "true"
	if cfg.TracingEnabled {
		cfg.TracingCollectorAddr = getEnvOrDefault("TRACING_COLLECTOR_ADDR", "localhost:4317")
		if !isValidHostPort(cfg.TracingCollectorAddr) {
			errors = append(errors, fmt.Sprintf("TRACING_COLLECTOR_ADDR must be in format 'host:port' (got '%s')", cfg.TracingCollectorAddr))
		}
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// minutesEnv reads an integer minute count with a default.
func minutesEnv(key string, defaultMinutes int) (time.Duration, error) {
	raw := getEnvOrDefault(key, strconv.Itoa(defaultMinutes))
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes < 1 {
		return 0, fmt.Errorf("%s must be a positive number of minutes (got '%s')", key, raw)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// isValidHostPort checks if a string is in the format "host:port"
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	return parts[0] != ""
}

// logValidatedConfig logs the validated configuration with secrets redacted
func logValidatedConfig(cfg *Config) {
	slog.Info("Environment configuration validated")
	slog.Info("Configuration",
		"port", cfg.Port,
		"password", redactSecret(cfg.Password),
		"room_limit", cfg.RoomLimit,
		"lobby_lifetime", cfg.LobbyLifetime,
		"game_lifetime", cfg.GameLifetime,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"rate_limit_api", cfg.RateLimitAPI,
		"redis_enabled", cfg.RedisEnabled,
		"tracing_enabled", cfg.TracingEnabled,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// redactSecret redacts a secret by showing only the first characters
func redactSecret(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	if len(secret) <= 4 {
		return "***"
	}
	return secret[:2] + "***"
}
