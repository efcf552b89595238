package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rimagic/api/internal/ratelimit"
)

// RateLimit enforces per-key sliding-window limits. Runs after auth so the
// key's own per-minute limit applies. Every response carries the
// X-RateLimit-* headers, including 429s.
func RateLimit(limiter ratelimit.Limiter, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := Principal(c)
		if !ok {
			AbortError(c, http.StatusUnauthorized, "MISSING_KEY", "X-API-Key header is required")
			return
		}

		decision, err := limiter.Check(c.Request.Context(), key.ID, key.RateLimitPerMinute)
		if err != nil {
			log.Error().Err(err).Str("key_id", key.ID).Msg("rate limit check failed")
			AbortError(c, http.StatusServiceUnavailable, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(math.Ceil(decision.Reset.Seconds()))))

		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			AbortError(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded, slow down")
			return
		}

		c.Next()
	}
}
