package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/auditai/insight-engine/internal/api"
	"github.com/auditai/insight-engine/internal/auth"
	"github.com/auditai/insight-engine/internal/config"
	"github.com/auditai/insight-engine/internal/crawler"
	"github.com/auditai/insight-engine/internal/jobevents"
	"github.com/auditai/insight-engine/internal/llm"
	"github.com/auditai/insight-engine/internal/pkg/logger"
	"github.com/auditai/insight-engine/internal/repository/memory"
	"github.com/auditai/insight-engine/internal/repository/postgres"
	"github.com/auditai/insight-engine/internal/service/ingest"
	"github.com/auditai/insight-engine/internal/service/insight"
	"github.com/auditai/insight-engine/internal/service/jobledger"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger.Configure(logger.Options{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "insight-engine",
		RedactPII:   cfg.Log.ShouldRedactPII(),
	})

	if err := run(cfg); err != nil {
		logger.Error("server: exiting", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db         *sql.DB
		ingestRepo ingest.Repository
		jobRepo    jobledger.Repository
	)
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		ingestRepo = postgres.NewIngestRepo(db)
		jobRepo = postgres.NewJobLogRepo(db)
		logger.Info("server: postgres connected")
	} else {
		store := memory.NewStore()
		ingestRepo, jobRepo = store, store
		logger.Warn("server: DATABASE_URL not set, using in-memory store; data is lost on restart")
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	completer, err := newCompleter(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	if rdb != nil && cfg.LLM.CacheTTL() > 0 {
		completer = llm.NewCache(completer, rdb, cfg.LLM.Model, cfg.LLM.CacheTTL())
		logger.Info("server: completion cache enabled", "ttl", cfg.LLM.CacheTTL())
	}

	var (
		fetchOpts []crawler.Option
		bucket    api.BucketPinger
	)
	if cfg.Crawler.Snapshot.Enabled() {
		snaps, err := crawler.NewS3Snapshots(ctx, cfg.Crawler.Snapshot)
		if err != nil {
			return err
		}
		fetchOpts = append(fetchOpts, crawler.WithSnapshotStore(snaps))
		bucket = snaps
		logger.Info("server: page snapshots enabled", "bucket", cfg.Crawler.Snapshot.S3Bucket)
	}

	var jobOpts []jobledger.Option
	if cfg.Jobs.EventsQueueURL != "" {
		pub, err := jobevents.NewSQSPublisher(ctx, cfg.Jobs.AWSRegion, cfg.Jobs.EventsQueueURL)
		if err != nil {
			return err
		}
		jobOpts = append(jobOpts, jobledger.WithPublisher(pub))
		logger.Info("server: job events publishing to SQS")
	}

	prompts, err := insight.NewPromptBuilder()
	if err != nil {
		return err
	}

	guard := auth.NewGuard(cfg.Service.Bearer)
	if !guard.Configured() {
		logger.Warn("server: SERVICE_BEARER not set, /v1 routes will answer 500")
	}

	srv, err := api.NewServer(cfg.Server, api.Deps{
		Ingest:    ingest.NewService(ingestRepo, ingest.WithMaxBatchSize(cfg.Ingest.MaxBatchSize)),
		Jobs:      jobledger.NewService(jobRepo, jobOpts...),
		Insight:   insight.NewService(crawler.NewFetcher(cfg.Crawler, fetchOpts...), completer, prompts),
		Guard:     guard,
		DB:        db,
		Redis:     rdb,
		Snapshots: bucket,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server: listening", "addr", cfg.Server.Addr(), "llm_provider", cfg.LLM.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server: stopped")
	return nil
}

func newCompleter(ctx context.Context, cfg config.LLMConfig) (llm.Completer, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			logger.Warn("server: OPENAI_API_KEY not set, /suggest will return no suggestions")
		}
		return llm.NewOpenAIClient(cfg, nil), nil
	case "bedrock":
		return llm.NewBedrockClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
