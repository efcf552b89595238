package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rimagic/api/internal/models"
)

// QuotaChecker answers whether a key is still under its monthly quota.
type QuotaChecker interface {
	HasQuota(ctx context.Context, apiKeyID string, quota int) (bool, error)
}

// UsageRecorder persists one usage row per governed request.
type UsageRecorder interface {
	Log(ctx context.Context, entry models.UsageLog, quota int) error
}

// QuotaGate rejects billable requests once the monthly quota is exhausted.
// Check failures are logged and let the request through; quota enforcement
// is not worth an outage.
func QuotaGate(checker QuotaChecker, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := Principal(c)
		if !ok {
			AbortError(c, http.StatusUnauthorized, "MISSING_KEY", "X-API-Key header is required")
			return
		}

		ok, err := checker.HasQuota(c.Request.Context(), key.ID, key.MonthlyQuota)
		if err != nil {
			log.Error().Err(err).Str("key_id", key.ID).Msg("quota check failed")
			c.Next()
			return
		}
		if !ok {
			AbortError(c, http.StatusPaymentRequired, "QUOTA_EXCEEDED", "monthly quota exhausted, upgrade your plan or wait for the next cycle")
			return
		}

		c.Next()
	}
}

// UsageRecording writes one usage row after the handler finishes. Sits right
// after auth so rate-limited and quota-rejected requests are still counted.
// Recording is fire-and-forget; a failed write never fails the request.
func UsageRecording(recorder UsageRecorder, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		key, ok := Principal(c)
		if !ok {
			return
		}

		entry := models.UsageLog{
			APIKeyID:       key.ID,
			Endpoint:       c.FullPath(),
			Method:         c.Request.Method,
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: int(time.Since(start).Milliseconds()),
		}
		if entry.Endpoint == "" {
			entry.Endpoint = c.Request.URL.Path
		}
		if tpl := c.GetString(templateKey); tpl != "" {
			entry.TemplateID = &tpl
		}
		if code := c.GetString(errorCodeKey); code != "" {
			entry.ErrorCode = &code
		}
		if ip := c.ClientIP(); ip != "" {
			entry.IPAddress = &ip
		}
		if ua := c.Request.UserAgent(); ua != "" {
			entry.UserAgent = &ua
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := recorder.Log(ctx, entry, key.MonthlyQuota); err != nil {
				log.Error().Err(err).Str("key_id", key.ID).Msg("usage recording failed")
			}
		}()
	}
}
