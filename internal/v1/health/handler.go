// Package health exposes liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shoutwars/backend-go/internal/v1/logging"
	"github.com/shoutwars/backend-go/internal/v1/room"
)

// Handler manages health check endpoints
type Handler struct {
	rooms       *room.Registry
	redisClient *redis.Client
}

// NewHandler creates a new health check handler. redisClient may be nil
// when the rate limiter runs on the memory store.
func NewHandler(rooms *room.Registry, redisClient *redis.Client) *Handler {
	return &Handler{
		rooms:       rooms,
		redisClient: redisClient,
	}
}

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint
// GET /health/live
// Returns 200 if the process is alive (no dependency checks)
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness handles the readiness probe endpoint
// GET /health/ready
// Returns 200 when the instance can still take new rooms and its
// dependencies answer; 503 otherwise.
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	capacityStatus := h.checkCapacity()
	checks["capacity"] = capacityStatus
	if capacityStatus != "healthy" {
		allHealthy = false
	}

	redisStatus := h.checkRedis(ctx)
	checks["redis"] = redisStatus
	if redisStatus != "healthy" {
		allHealthy = false
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// checkCapacity reports "saturated" once the room registry is full, so a
// load balancer can prefer instances that can still host new rooms.
func (h *Handler) checkCapacity() string {
	if h.rooms == nil {
		return "unhealthy"
	}
	if h.rooms.Count() >= h.rooms.Limit() {
		return "saturated"
	}
	return "healthy"
}

// checkRedis verifies Redis connectivity using PING
func (h *Handler) checkRedis(ctx context.Context) string {
	// Memory-store mode has no redis dependency to check
	if h.redisClient == nil {
		return "healthy"
	}

	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		logging.Error(ctx, "Redis health check failed", zap.Error(err))
		return "unhealthy"
	}

	return "healthy"
}
