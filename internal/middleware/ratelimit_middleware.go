package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// AttemptLimiter counts one attempt for a key and reports whether it is
// still within the window.
type AttemptLimiter interface {
	Limit() int
	Allow(ctx context.Context, key string) (ok bool, remaining int, retryAfter time.Duration, err error)
}

// RateLimit throttles a route per client IP. Limiter failures let the
// request through; the per-account lockout in the auth service remains
// the backstop.
func RateLimit(limiter AttemptLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		ok, remaining, retryAfter, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts, please try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}
