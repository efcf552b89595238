package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"rimagic/api/internal/config"
	"rimagic/api/internal/engine"
	"rimagic/api/internal/middleware"
	"rimagic/api/internal/ratelimit"
	"rimagic/api/internal/repository"
	"rimagic/api/internal/service"
)

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	templates *engine.Store
	mockups   *service.MockupService
	limiter   ratelimit.Limiter
	keys      *repository.APIKeyRepository
	usage     *repository.UsageRepository
	db        *pgxpool.Pool
	cache     *redis.Client
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	db *pgxpool.Pool,
	cache *redis.Client,
	templates *engine.Store,
	mockups *service.MockupService,
	limiter ratelimit.Limiter,
) HandlerSet {
	return HandlerSet{
		log:       log,
		cfg:       cfg,
		templates: templates,
		mockups:   mockups,
		limiter:   limiter,
		keys:      repository.NewAPIKeyRepository(db),
		usage:     repository.NewUsageRepository(db),
		db:        db,
		cache:     cache,
	}
}

func (h HandlerSet) Register(router *gin.Engine) {
	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	v1.Use(
		middleware.APIKeyAuth(h.keys, h.log),
		// Recording sits inside auth so rate-limited and quota-rejected
		// requests still land in usage_logs.
		middleware.UsageRecording(h.usage, h.log),
		middleware.RateLimit(h.limiter, h.log),
	)

	v1.GET("/templates", h.ListTemplates)
	v1.GET("/templates/:id", h.GetTemplate)
	v1.GET("/usage", h.Usage)
	v1.GET("/usage/history", h.UsageHistory)
	v1.GET("/keys/me", h.CurrentKey)

	v1.POST("/mockups/generate",
		middleware.QuotaGate(h.usage, h.log),
		h.GenerateMockup,
	)
}
