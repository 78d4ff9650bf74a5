// Package main is the entry point for the SafeWave API server.
//
// It initializes the configuration, connects the PostgreSQL state store and
// the Redis latest-decision cache, builds the decision engine and the HTTP
// chassis (middleware, routing, health check), schedules the readings-log
// retention job, and starts listening for requests.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
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

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"safewave/internal/api/handlers"
	"safewave/internal/archive"
	"safewave/internal/cache"
	"safewave/internal/classifier"
	"safewave/internal/config"
	"safewave/internal/core"
	"safewave/internal/db"
	"safewave/internal/engine"
	"safewave/internal/maintenance"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("safewave API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"site_id", cfg.SiteID,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password.Unmask(),
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// The cache is best-effort: a dead Redis at startup only costs the
	// /latest fast path, so failure here is logged, not fatal.
	latestCache := cache.NewLatestCache(rdb, cfg.Redis.LatestTTL)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup, latest-decision cache degraded", "error", err)
	}

	stateRepo := db.NewRiskStateRepository(pool)
	readingRepo := db.NewReadingRepository(pool)
	classifierClient := classifier.New(cfg.Classifier, logger)

	eng, err := engine.New(
		stateRepo,
		readingRepo,
		classifierClient,
		latestCache,
		cfg.Risk,
		engine.SystemClock{},
		logger,
	)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	// Retention: archive-then-prune on the configured cron schedule.
	var archiver maintenance.RecordArchiver
	if cfg.Retention.ArchiveDir != "" {
		a, err := archive.NewArchiver(cfg.Retention.ArchiveDir)
		if err != nil {
			return fmt.Errorf("creating archiver: %w", err)
		}
		archiver = a
	}
	retention := maintenance.NewRetentionJob(readingRepo, archiver, cfg.Retention, logger)
	if err := retention.Start(); err != nil {
		return fmt.Errorf("scheduling retention job: %w", err)
	}
	defer retention.Stop()

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	predictHandler := handlers.NewPredictHandler(eng, latestCache, srv.Validator, cfg.SiteID, logger)
	srv.Registrars = append(srv.Registrars, func(r chi.Router) {
		predictHandler.RegisterRoutes(r)
	})

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// newPool builds the pgx connection pool with the configured tuning
// parameters and verifies connectivity before returning.
func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
