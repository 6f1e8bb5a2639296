// Package ratelimit implements API rate limiting using Redis or local memory.
//
// This is the coarse per-IP limit on the whole API surface. The 100 ms
// per-user sync cooldown is not here: it keys on room state and lives with
// the sync handler.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/shoutwars/backend-go/internal/v1/config"
	"github.com/shoutwars/backend-go/internal/v1/logging"
)

// Limiter holds the rate limiter instance and its backing store.
type Limiter struct {
	api         *limiter.Limiter
	store       limiter.Store
	redisClient *redis.Client
}

// New creates a Limiter from the configured formatted rate. With a redis
// client the limit is shared across instances; without one it falls back
// to an in-memory store.
func New(cfg *config.Config, redisClient *redis.Client) (*Limiter, error) {
	apiRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPI)
	if err != nil {
		return nil, fmt.Errorf("invalid API rate: %w", err)
	}

	var store limiter.Store
	if redisClient != nil {
		s, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "limiter:shoutwars:",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		store = s
		logging.Info(context.Background(), "Rate limiter using Redis store")
	} else {
		store = memory.NewStore()
		logging.Warn(context.Background(), "Rate limiter using memory store (Redis disabled or unavailable)")
	}

	return &Limiter{
		api:         limiter.New(store, apiRate),
		store:       store,
		redisClient: redisClient,
	}, nil
}

// Middleware returns a Gin middleware enforcing the per-IP API limit.
// Responses on limit breach are msgpack like the rest of the API.
func (rl *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		lctx, err := rl.api.Get(c.Request.Context(), key)
		if err != nil {
			// Store failure must not take the API down with it.
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", lctx.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", lctx.Remaining))

		if lctx.Reached {
			body, merr := msgpack.Marshal(map[string]string{
				"error": "Rate limit exceeded.",
			})
			if merr != nil {
				c.AbortWithStatus(http.StatusTooManyRequests)
				return
			}
			c.Data(http.StatusTooManyRequests, "application/msgpack", body)
			c.Abort()
			return
		}

		c.Next()
	}
}
