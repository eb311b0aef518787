// Package ratelimit limits requests per client IP with an in-memory store.
package ratelimit

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/edge-sentinel/agent/engine/infra/server/router"
	"github.com/edge-sentinel/agent/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/otel/metric"
)

// NewMiddleware returns a gin middleware enforcing cfg per client IP.
func NewMiddleware(cfg *Config, meter metric.Meter) (gin.HandlerFunc, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := InitMetrics(meter); err != nil {
		logger.Warn("Failed to create rate limit metrics", "error", err)
	}
	instance := limiter.New(memory.NewStore(), cfg.ToLimiterRate())
	limited := mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(limitReached(cfg)),
		mgin.WithErrorHandler(limiterFailed),
	)
	excluded := slices.Clone(cfg.ExcludedPaths)
	return func(c *gin.Context) {
		if slices.Contains(excluded, c.FullPath()) {
			c.Next()
			return
		}
		limited(c)
	}, nil
}

func limitReached(cfg *Config) func(c *gin.Context) {
	return func(c *gin.Context) {
		IncrementBlockedRequests(c.Request.Context(), c.FullPath())
		reason := fmt.Sprintf("rate limit of %d requests per %s exceeded", cfg.Limit, cfg.Period)
		router.RespondWithError(c, http.StatusTooManyRequests,
			router.NewRequestError(http.StatusTooManyRequests, reason, nil))
	}
}

func limiterFailed(c *gin.Context, err error) {
	router.RespondWithError(c, http.StatusInternalServerError,
		router.NewRequestError(http.StatusInternalServerError, "rate limiter failed", err))
}
