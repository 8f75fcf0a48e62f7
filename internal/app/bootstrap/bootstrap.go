package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	questionlifecycle "agrivote/contexts/farmer-advisory/question-lifecycle"
	"agrivote/contexts/farmer-advisory/question-lifecycle/adapters/memory"
	postgresadapter "agrivote/contexts/farmer-advisory/question-lifecycle/adapters/postgres"
	redisadapter "agrivote/contexts/farmer-advisory/question-lifecycle/adapters/redis"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
	"agrivote/internal/platform/config"
	"agrivote/internal/platform/db"
	"agrivote/internal/platform/messaging"
	"agrivote/internal/platform/observability"

	"github.com/redis/go-redis/v9"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type WorkerApp struct {
	Module questionlifecycle.Module

	postgres      *db.Postgres
	redis         redis.UniversalClient
	metricsServer *http.Server
	relayEnabled  bool
	pollInterval  time.Duration
	logger        *slog.Logger
}

// BuildWorker wires the question lifecycle against Postgres and Redis. Without
// POSTGRES_DSN outside production it falls back to the in-memory module.
func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	metrics := observability.NewLifecycleMetrics()
	bus := messaging.NewBus(cfg.OutboxBatchSize, logger)

	app := &WorkerApp{
		relayEnabled: cfg.EnableOutboxRelay,
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
		metricsServer: &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(metrics),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		if cfg.IsProduction() {
			return nil, errors.New("POSTGRES_DSN is required")
		}
		logger.Warn("postgres dsn not set, using in-memory store",
			"event", "bootstrap_memory_store",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		app.Module = questionlifecycle.NewInMemoryModule(nil, bus, metrics, logger)
		return app, nil
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return nil, err
	}
	app.postgres = pg

	repo := postgresadapter.NewRepository(pg.DB, logger)
	if err := repo.Migrate(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}

	var locker ports.QuestionLocker = memory.NewLocker()
	if cfg.EnableRedisLocks {
		options, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(options)
		app.redis = client
		if err := client.Ping(ctx).Err(); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		locker = redisadapter.NewLocker(client, cfg.QuestionLockTTL, logger)
	}

	app.Module = questionlifecycle.NewModule(questionlifecycle.Dependencies{
		Questions:       repo,
		Experts:         repo,
		ExpertWriter:    repo,
		Locker:          locker,
		Outbox:          repo,
		OutboxReader:    repo,
		EventDedup:      repo,
		Bus:             bus,
		Clock:           postgresadapter.SystemClock{},
		IDGenerator:     postgresadapter.UUIDGenerator{},
		Metrics:         metrics,
		OutboxBatchSize: cfg.OutboxBatchSize,
		EventDedupTTL:   7 * 24 * time.Hour,
		Logger:          logger,
	})
	return app, nil
}

func metricsMux(metrics *observability.LifecycleMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Run starts the expert consumer and the metrics endpoint, then relays the
// outbox until ctx ends.
func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.Module.ExpertConsumer.Start(ctx); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := w.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = w.metricsServer.Shutdown(shutdownCtx)
	}()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"metrics_addr", w.metricsServer.Addr,
		"outbox_relay_enabled", w.relayEnabled,
	)

	relayDone := make(chan error, 1)
	if w.relayEnabled {
		go func() { relayDone <- w.Module.OutboxRelay.Run(ctx, w.pollInterval) }()
	}

	select {
	case err := <-serverErr:
		return fmt.Errorf("metrics server: %w", err)
	case err := <-relayDone:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-ctx.Done():
		return nil
	}
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.redis != nil {
		errs = append(errs, w.redis.Close())
	}
	if w.postgres != nil {
		errs = append(errs, w.postgres.Close())
	}
	return errors.Join(errs...)
}
