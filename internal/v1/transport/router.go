package transport

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/shoutwars/backend-go/internal/v1/config"
	"github.com/shoutwars/backend-go/internal/v1/health"
	"github.com/shoutwars/backend-go/internal/v1/middleware"
	"github.com/shoutwars/backend-go/internal/v1/ratelimit"
)

// NewRouter assembles the gin engine: middleware, the versioned API group
// behind the password filter, and the operational endpoints (metrics and
// health probes) outside it.
func NewRouter(cfg *config.Config, h *Handler, limiter *ratelimit.Limiter, healthHandler *health.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins(cfg.AllowedOrigins)
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("shoutwars-backend"))
	}

	api := router.Group(APIPath)
	api.Use(PasswordFilter(cfg.Password))
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	{
		api.POST("/room/create", h.CreateRoom)
		api.POST("/room/join", h.JoinRoom)
		api.POST("/room/start", h.StartGame)
		api.POST("/room/sync", h.Sync)
		api.GET("/status", h.Status)
	}

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoints
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	// Everything else is a version error
	router.NoRoute(h.InvalidVersion)

	return router
}

// allowedOrigins splits the configured comma-separated list, defaulting to
// localhost for development.
func allowedOrigins(raw string) []string {
	if raw == "" {
		return []string{"http://localhost:3000"}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
