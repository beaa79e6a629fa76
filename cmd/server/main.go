// Command server starts the CV ingestion HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	ai "github.com/talentwire/cv-ingest/internal/adapter/ai"
	aireal "github.com/talentwire/cv-ingest/internal/adapter/ai/real"
	aistub "github.com/talentwire/cv-ingest/internal/adapter/ai/stub"
	"github.com/talentwire/cv-ingest/internal/adapter/cache"
	httpserver "github.com/talentwire/cv-ingest/internal/adapter/httpserver"
	"github.com/talentwire/cv-ingest/internal/adapter/observability"
	"github.com/talentwire/cv-ingest/internal/adapter/queue/redpanda"
	"github.com/talentwire/cv-ingest/internal/adapter/repo/postgres"
	localext "github.com/talentwire/cv-ingest/internal/adapter/textextractor/local"
	"github.com/talentwire/cv-ingest/internal/app"
	"github.com/talentwire/cv-ingest/internal/config"
	"github.com/talentwire/cv-ingest/internal/domain"
	"github.com/talentwire/cv-ingest/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	candRepo := postgres.NewCandidateRepo(pool)
	batchRepo := postgres.NewBatchRepo(pool)
	reqRepo := postgres.NewRequisitionRepo(pool)
	matchRepo := postgres.NewMatchRepo(pool)
	appRepo := postgres.NewApplicationRepo(pool)

	if cfg.DataRetentionDays > 0 {
		cleanupSvc := postgres.NewCleanupService(pool, cfg.DataRetentionDays)
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started",
			slog.Int("retention_days", cfg.DataRetentionDays),
			slog.Duration("interval", cfg.CleanupInterval))
	}

	producer, err := redpanda.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer func() { _ = rdb.Close() }()
	reportCache := cache.NewReportCache(rdb, cfg.ReportCacheTTL)

	var chat domain.ChatClient
	if cfg.UseStubAI {
		slog.Warn("using stub AI client")
		chat = aistub.New()
	} else {
		chat = aireal.New(cfg)
	}
	analyzer := ai.NewAnalyzer(chat, cfg.AIModel, cfg.AIMaxTokens, cfg.AITokenBudget)

	resolver := usecase.NewResolver(candRepo, cfg.NameMatchFallback)
	scorer := usecase.NewScoreService(reqRepo, matchRepo, appRepo, analyzer)
	ingest := usecase.IngestService{
		Extractor:     localext.New(),
		Analyzer:      analyzer,
		Resolver:      resolver,
		Candidates:    candRepo,
		Batches:       batchRepo,
		Queue:         producer,
		Cache:         reportCache,
		Scorer:        scorer,
		SyncThreshold: cfg.SyncBatchThreshold,
		MinTextChars:  cfg.MinCVTextChars,
		Concurrency:   cfg.ConsumerMaxConcurrency,
	}
	status := usecase.NewStatusService(batchRepo, reportCache)

	dbCheck, redisCheck, kafkaCheck := app.BuildReadinessChecks(pool, rdb, producer)
	srv := httpserver.NewServer(cfg, ingest, status, dbCheck, redisCheck, kafkaCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
