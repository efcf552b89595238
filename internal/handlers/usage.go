package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rimagic/api/internal/middleware"
)

func (h HandlerSet) Usage(c *gin.Context) {
	key, ok := middleware.Principal(c)
	if !ok {
		middleware.AbortError(c, http.StatusUnauthorized, "MISSING_KEY", "X-API-Key header is required")
		return
	}

	stats, err := h.usage.Stats(c.Request.Context(), key.ID, key.MonthlyQuota)
	if err != nil {
		h.log.Error().Err(err).Str("key_id", key.ID).Msg("usage stats query failed")
		middleware.AbortError(c, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "usage data unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"usage":   stats,
	})
}

func (h HandlerSet) UsageHistory(c *gin.Context) {
	key, ok := middleware.Principal(c)
	if !ok {
		middleware.AbortError(c, http.StatusUnauthorized, "MISSING_KEY", "X-API-Key header is required")
		return
	}

	months := 12
	if raw := c.Query("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 24 {
			middleware.AbortError(c, http.StatusBadRequest, "INVALID_REQUEST", "months must be an integer between 1 and 24")
			return
		}
		months = parsed
	}

	history, err := h.usage.History(c.Request.Context(), key.ID, months)
	if err != nil {
		h.log.Error().Err(err).Str("key_id", key.ID).Msg("usage history query failed")
		middleware.AbortError(c, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "usage data unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"history": history,
	})
}
