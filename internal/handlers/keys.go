package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rimagic/api/internal/middleware"
)

// CurrentKey returns the authenticated key's own record. The stored digest
// never serializes; only the 12-character prefix identifies the key.
func (h HandlerSet) CurrentKey(c *gin.Context) {
	key, ok := middleware.Principal(c)
	if !ok {
		middleware.AbortError(c, http.StatusUnauthorized, "MISSING_KEY", "X-API-Key header is required")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     key,
	})
}
