package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rimagic/api/internal/engine"
	"rimagic/api/internal/imaging"
	"rimagic/api/internal/middleware"
	"rimagic/api/internal/service"
)

type generateRequest struct {
	TemplateID string            `json:"template_id" binding:"required"`
	DesignURL  string            `json:"design_url" binding:"required"`
	Placement  *engine.Placement `json:"placement" binding:"required"`
	Options    generateOptions   `json:"options"`
}

type generateOptions struct {
	Format      string `json:"format"`
	JPEGQuality int    `json:"jpeg_quality"`
}

type generateMetadata struct {
	GenerationTimeMs int64          `json:"generation_time_ms"`
	Dimensions       dimensionsBody `json:"dimensions"`
	TemplateID       string         `json:"template_id"`
	Format           string         `json:"format"`
}

type dimensionsBody struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (h HandlerSet) GenerateMockup(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortError(c, http.StatusBadRequest, "INVALID_REQUEST", "template_id, design_url and placement are required")
		return
	}
	middleware.SetTemplateID(c, req.TemplateID)

	format, err := imaging.ParseFormat(req.Options.Format)
	if err != nil {
		middleware.AbortError(c, http.StatusBadRequest, "INVALID_REQUEST", "format must be png, jpeg or webp")
		return
	}

	start := time.Now()
	result, err := h.mockups.Generate(c.Request.Context(), service.GenerateInput{
		TemplateID:  req.TemplateID,
		DesignURL:   req.DesignURL,
		Placement:   *req.Placement,
		Format:      format,
		JPEGQuality: req.Options.JPEGQuality,
	})
	if err != nil {
		h.abortGenerateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"mockup_url": result.URL,
		"metadata": generateMetadata{
			GenerationTimeMs: time.Since(start).Milliseconds(),
			Dimensions:       dimensionsBody{Width: result.Width, Height: result.Height},
			TemplateID:       req.TemplateID,
			Format:           string(result.Format),
		},
	})
}

// abortGenerateError maps engine failures onto the error envelope. The
// design URL is caller-supplied, so fetch problems are client errors, not
// server ones.
func (h HandlerSet) abortGenerateError(c *gin.Context, err error) {
	var statusErr *engine.HTTPStatusError

	switch {
	case errors.Is(err, engine.ErrTemplateNotFound):
		middleware.AbortError(c, http.StatusNotFound, "UNKNOWN_TEMPLATE", "template not found")
	case errors.Is(err, engine.ErrTemplateUnavailable):
		middleware.AbortError(c, http.StatusServiceUnavailable, "TEMPLATE_UNAVAILABLE", "template assets are unavailable")
	case errors.Is(err, engine.ErrInvalidPlacement):
		middleware.AbortError(c, http.StatusBadRequest, "INVALID_PLACEMENT", "placement is out of range or misses the print area")
	case errors.Is(err, engine.ErrInvalidURL):
		middleware.AbortError(c, http.StatusBadRequest, "INVALID_URL", "design_url must be an absolute http or https url")
	case errors.Is(err, engine.ErrFetchTimeout):
		middleware.AbortError(c, http.StatusUnprocessableEntity, "FETCH_TIMEOUT", "design download timed out")
	case errors.Is(err, engine.ErrTooLarge), errors.Is(err, engine.ErrDesignTooLarge):
		middleware.AbortError(c, http.StatusRequestEntityTooLarge, "DESIGN_TOO_LARGE", "design exceeds size limits")
	case errors.Is(err, engine.ErrUnsupportedType):
		middleware.AbortError(c, http.StatusUnprocessableEntity, "UNSUPPORTED_TYPE", "design must be png, jpeg or webp")
	case errors.Is(err, engine.ErrDecodeFailed):
		middleware.AbortError(c, http.StatusUnprocessableEntity, "DECODE_FAILED", "design image could not be decoded")
	case errors.As(err, &statusErr):
		middleware.AbortError(c, http.StatusUnprocessableEntity, "FETCH_FAILED", statusErr.Error())
	case errors.Is(err, engine.ErrBacklogFull):
		c.Header("Retry-After", "5")
		middleware.AbortError(c, http.StatusServiceUnavailable, "BACKLOG_FULL", "compositing queue is full, retry shortly")
	default:
		h.log.Error().Err(err).Msg("mockup generation failed")
		middleware.AbortError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "mockup generation failed")
	}
}
