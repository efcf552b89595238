package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"rimagic/api/internal/cache"
	"rimagic/api/internal/config"
	"rimagic/api/internal/database"
	"rimagic/api/internal/engine"
	"rimagic/api/internal/handlers"
	"rimagic/api/internal/jobs"
	"rimagic/api/internal/log"
	"rimagic/api/internal/ratelimit"
	"rimagic/api/internal/repository"
	"rimagic/api/internal/server"
	"rimagic/api/internal/service"
	"rimagic/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.LogLevel)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	// Redis is optional: with it, rate-limit counters are shared across
	// replicas; without it, they live in Postgres.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
	}

	var artifacts *storage.ArtifactStore
	if cfg.ArtifactUploadEnabled() {
		artifacts, err = storage.NewArtifactStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init artifact store")
		}
		if err := artifacts.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure bucket failed")
		}
	}

	catalog := repository.NewTemplateRepository(dbPool)
	templates := engine.NewStore(cfg.Templates.Path, catalog, logger)
	if err := templates.LoadAll(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load templates")
	}
	if templates.Count() == 0 {
		logger.Warn().Msg("no templates loaded, every generate call will 404")
	}

	keys := repository.NewAPIKeyRepository(dbPool)
	if err := keys.EnsureSetupKey(ctx, logger); err != nil {
		logger.Error().Err(err).Msg("setup key check failed")
	}

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewWindowLimiter(ratelimit.NewRedisStore(redisClient))
	} else {
		limiter = ratelimit.NewWindowLimiter(repository.NewRateLimitRepository(dbPool))
	}

	pool := engine.NewPool(cfg.Engine.MaxConcurrentComposites, cfg.Engine.QueueDepth)
	fetcher := engine.NewFetcher(cfg.Engine.FetchTimeout, cfg.Engine.FetchMaxBytes)
	mockups := service.NewMockupService(templates, fetcher, pool, artifacts, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, dbPool, redisClient, templates, mockups, limiter)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(
		repository.NewRateLimitRepository(dbPool),
		repository.NewUsageRepository(dbPool),
		cfg.Usage.LogRetentionDays,
		logger,
	)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, pool, dbPool, redisClient)
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	pool *engine.Pool,
	db *pgxpool.Pool,
	redisClient *redis.Client,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()
	pool.Close()

	db.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
