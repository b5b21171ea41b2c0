package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/port/outbound"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

const (
	// RateLimitRemaining is the header for remaining requests.
	RateLimitRemaining = "X-RateLimit-Remaining"
	// RateLimitLimit is the header for the limit.
	RateLimitLimit = "X-RateLimit-Limit"
	// RetryAfter is the header for retry time.
	RetryAfter = "Retry-After"
)

// RateLimitByIP limits requests per client IP. A nil limiter disables it and
// limiter failures let the request through.
func RateLimitByIP(limiter outbound.RateLimiterPort, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		key := "http:" + c.ClientIP()
		ctx := c.Request.Context()
		allowed, err := limiter.Allow(ctx, key, limit, window)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header(RateLimitLimit, strconv.Itoa(limit))
		if remaining, err := limiter.GetRemaining(ctx, key, limit, window); err == nil {
			c.Header(RateLimitRemaining, strconv.Itoa(remaining))
		}

		if !allowed {
			c.Header(RetryAfter, strconv.Itoa(int(window.Seconds())))
			appErr := apperrors.RateLimited("too many requests, please try again later")
			c.AbortWithStatusJSON(appErr.StatusCode, appErr.ToResponse())
			return
		}
		c.Next()
	}
}
