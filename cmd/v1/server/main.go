package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/shoutwars/backend-go/internal/v1/config"
	"github.com/shoutwars/backend-go/internal/v1/health"
	"github.com/shoutwars/backend-go/internal/v1/janitor"
	"github.com/shoutwars/backend-go/internal/v1/logging"
	"github.com/shoutwars/backend-go/internal/v1/ratelimit"
	"github.com/shoutwars/backend-go/internal/v1/room"
	"github.com/shoutwars/backend-go/internal/v1/session"
	"github.com/shoutwars/backend-go/internal/v1/tracing"
	"github.com/shoutwars/backend-go/internal/v1/transport"
)

func main() {
	// Load .env file for local development.
	// Try multiple paths to handle different ways of running the app
	envPaths := []string{".env", "../../../.env", "../../.env"}
	var envLoaded bool

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		slog.Warn("No .env file found in any expected location, relying on environment variables")
	}

	// Validate environment variables before starting the server
	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.GoEnv == "development"); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	slog.Info("ShoutWars backend server starting", "api_version", transport.APIVersion)

	// --- Tracing (optional) ---
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(context.Background(), "shoutwars-backend", cfg.TracingCollectorAddr)
		if err != nil {
			slog.Error("Failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				slog.Error("Error shutting down tracer provider", "error", err)
			}
		}()
		slog.Info("Tracing initialized", "collector", cfg.TracingCollectorAddr)
	}

	// --- Redis (optional, rate limiter store only) ---
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			slog.Error("Failed to connect to Redis, falling back to memory store", "error", err)
			redisClient = nil
		} else {
			slog.Info("Redis connected for rate limiting", "addr", cfg.RedisAddr)
		}
	} else {
		slog.Info("Running with in-memory rate limiting (Redis disabled)")
	}

	limiter, err := ratelimit.New(cfg, redisClient)
	if err != nil {
		slog.Error("Failed to create rate limiter", "error", err)
		os.Exit(1)
	}

	// --- Core registries and janitor ---
	rooms := room.NewRegistry(cfg.RoomLimit, cfg.LobbyLifetime, cfg.GameLifetime)
	sessions := session.NewRegistry()

	cleaner := janitor.New(rooms, sessions, janitor.DefaultInterval, janitor.DefaultUserTimeout)
	cleaner.Start()

	// --- HTTP surface ---
	handler := transport.NewHandler(rooms, sessions, cfg.Password)
	healthHandler := health.NewHandler(rooms, redisClient)
	router := transport.NewRouter(cfg, handler, limiter, healthHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		slog.Info("API server starting", "port", cfg.Port, "path", transport.APIPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to run server", "error", err)
			syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	// Wait for an interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := cleaner.Stop(ctx); err != nil {
		slog.Error("Error during janitor shutdown", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("Failed to close Redis connection", "error", err)
		}
	}

	slog.Info("Server exiting")
}
