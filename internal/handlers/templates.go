package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rimagic/api/internal/middleware"
)

func (h HandlerSet) ListTemplates(c *gin.Context) {
	summaries := h.templates.List()
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"templates": summaries,
		"count":     len(summaries),
	})
}

func (h HandlerSet) GetTemplate(c *gin.Context) {
	id := c.Param("id")
	tpl, err := h.templates.Get(id)
	if err != nil {
		middleware.AbortError(c, http.StatusNotFound, "UNKNOWN_TEMPLATE", "template not found")
		return
	}
	middleware.SetTemplateID(c, id)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"template": tpl.Record,
	})
}
