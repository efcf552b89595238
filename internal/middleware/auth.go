package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rimagic/api/internal/models"
	"rimagic/api/internal/repository"
)

const (
	apiKeyHeader = "X-API-Key"
	principalKey = "principal"
	errorCodeKey = "error_code"
	templateKey  = "template_id"
)

// Authenticator resolves presented API keys. Implemented by
// repository.APIKeyRepository.
type Authenticator interface {
	Authenticate(ctx context.Context, presented string) (models.APIKey, error)
	Touch(ctx context.Context, id string) error
}

// APIKeyAuth validates X-API-Key and attaches the resolved credential to the
// request context. Every auth failure answers 401; which kind it was shows
// up only in logs, never in the response.
func APIKeyAuth(auth Authenticator, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(apiKeyHeader)
		if presented == "" {
			AbortError(c, http.StatusUnauthorized, "MISSING_KEY", "X-API-Key header is required")
			return
		}

		key, err := auth.Authenticate(c.Request.Context(), presented)
		if err != nil {
			if isAuthFailure(err) {
				log.Warn().
					Str("reason", err.Error()).
					Msg("api key rejected")
				AbortError(c, http.StatusUnauthorized, "INVALID_KEY", "invalid or expired api key")
				return
			}
			log.Error().Err(err).Msg("credential lookup failed")
			AbortError(c, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "authentication backend unavailable")
			return
		}

		// Best-effort last-used update off the request path.
		go func(id string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := auth.Touch(ctx, id); err != nil {
				log.Debug().Err(err).Str("key_id", id).Msg("last_used update failed")
			}
		}(key.ID)

		c.Set(principalKey, key)
		c.Next()
	}
}

func isAuthFailure(err error) bool {
	return errors.Is(err, repository.ErrKeyMalformed) ||
		errors.Is(err, repository.ErrKeyUnknown) ||
		errors.Is(err, repository.ErrKeyRevoked) ||
		errors.Is(err, repository.ErrKeyExpired)
}

// Principal returns the authenticated credential attached by APIKeyAuth.
func Principal(c *gin.Context) (models.APIKey, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.APIKey{}, false
	}
	key, ok := v.(models.APIKey)
	return key, ok
}

// SetTemplateID lets handlers tag the request for usage recording.
func SetTemplateID(c *gin.Context, id string) {
	c.Set(templateKey, id)
}

// AbortError stops the chain with the standard error envelope.
func AbortError(c *gin.Context, status int, code, message string) {
	c.Set(errorCodeKey, code)
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
