// Command worker consumes batch ingestion tasks from the Redpanda queue
// and runs them through the pipeline.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	ai "github.com/talentwire/cv-ingest/internal/adapter/ai"
	aireal "github.com/talentwire/cv-ingest/internal/adapter/ai/real"
	aistub "github.com/talentwire/cv-ingest/internal/adapter/ai/stub"
	"github.com/talentwire/cv-ingest/internal/adapter/cache"
	"github.com/talentwire/cv-ingest/internal/adapter/observability"
	"github.com/talentwire/cv-ingest/internal/adapter/queue/redpanda"
	"github.com/talentwire/cv-ingest/internal/adapter/repo/postgres"
	localext "github.com/talentwire/cv-ingest/internal/adapter/textextractor/local"
	"github.com/talentwire/cv-ingest/internal/config"
	"github.com/talentwire/cv-ingest/internal/domain"
	"github.com/talentwire/cv-ingest/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Expose worker metrics on a dedicated port for scraping.
	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
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
	}

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
		Cache:         reportCache,
		Scorer:        scorer,
		SyncThreshold: cfg.SyncBatchThreshold,
		MinTextChars:  cfg.MinCVTextChars,
		Concurrency:   cfg.ConsumerMaxConcurrency,
	}

	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, "cv-ingest-workers", ingest, cfg.ConsumerMaxConcurrency)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			slog.Error("failed to close consumer", slog.Any("error", err))
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- consumer.Start(runCtx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			slog.Error("consumer stopped", slog.Any("error", err))
		}
	}
	slog.Info("worker stopped")
}
