package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news-enricher/config"
	"news-enricher/driver"
	"news-enricher/handler"
	"news-enricher/middleware"
	"news-enricher/provider"
	"news-enricher/repository"
	"news-enricher/service"
	"news-enricher/utils/logger"
	"news-enricher/utils/otel"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelCfg := otel.ConfigFromEnv()
	otelShutdown, otelErr := otel.InitProvider(ctx, otelCfg)
	if otelErr != nil {
		// Run without telemetry rather than refusing to start.
		otelCfg.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}

	log := logger.Init(otelCfg.Enabled)
	if otelErr != nil {
		log.Warn("opentelemetry disabled", "error", otelErr)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pool, err := driver.Init(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := driver.EnsureSchema(ctx, pool); err != nil {
		log.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	redisClient, err := driver.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warn("failed to close redis client", "error", err)
		}
	}()

	newsProvider, err := provider.NewProvider(cfg, log)
	if err != nil {
		log.Error("failed to build news provider", "error", err)
		os.Exit(1)
	}

	articleRepo := repository.NewArticleRepository(pool, cfg, log)
	checkpointRepo := repository.NewCheckpointRepository(pool)
	cacheRepo := repository.NewCacheRepository(redisClient, cfg, log)

	inference := driver.NewInferenceClient(cfg, log)
	fetcher := service.NewPageFetcher(cfg, log)

	ingestion := service.NewIngestionService(newsProvider, articleRepo, cacheRepo, cfg, log)
	enrichment := service.NewEnrichmentService(
		articleRepo, checkpointRepo, cacheRepo, fetcher, inference, cfg, log)

	// A cold inference runtime should not block startup; the processor job
	// retries failed phases on later ticks anyway.
	healthCtx, cancelHealth := context.WithTimeout(ctx, 30*time.Second)
	if err := inference.CheckHealth(healthCtx); err != nil {
		log.Warn("inference runtime not ready at startup", "error", err)
	} else {
		log.Info("inference runtime ready", "model", cfg.Inference.Model)
	}
	cancelHealth()

	scheduler := handler.NewJobScheduler(log)
	scheduler.AddJob(&handler.Job{
		Name:     "ingest-articles",
		Interval: cfg.Scheduler.IngestInterval,
		RunFunc: func(ctx context.Context) error {
			_, err := ingestion.RunIngestionTick(ctx)
			return err
		},
	})
	scheduler.AddJob(&handler.Job{
		Name:     "process-articles",
		Interval: cfg.Scheduler.ProcessInterval,
		RunFunc: func(ctx context.Context) error {
			_, err := enrichment.RunProcessorTick(ctx)
			return err
		},
	})
	scheduler.Start(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if otelCfg.Enabled {
		e.Use(otelecho.Middleware(otelCfg.ServiceName))
		e.Use(middleware.OTelStatusMiddleware())
	}
	e.Use(middleware.RequestIDMiddleware())
	e.Use(middleware.LoggingMiddleware(log))

	processHandler := handler.NewProcessHandler(enrichment)
	healthHandler := handler.NewHealthHandler(articleRepo, checkpointRepo, cfg.Provider.Name, log)
	jobsHandler := handler.NewJobsHandler(scheduler)

	e.Any("/process", processHandler.Handle)
	e.GET("/health", healthHandler.Handle)
	e.GET("/jobs", jobsHandler.Handle)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("server starting", "addr", addr, "provider", cfg.Provider.Name)

		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped unexpectedly", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}

	scheduler.Wait()

	flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFlush()
	if err := otelShutdown(flushCtx); err != nil {
		log.Warn("telemetry shutdown failed", "error", err)
	}

	log.Info("shutdown complete")
}
