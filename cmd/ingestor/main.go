// Package main is the entry point for the SafeWave MQTT ingestor.
//
// It consumes sensor readings from the configured MQTT topic and runs each
// one through the same decision pipeline as the HTTP API: shared state
// store, shared hysteresis counter, shared readings log. Running it as a
// separate process keeps broker backpressure away from the request path.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"safewave/internal/cache"
	"safewave/internal/classifier"
	"safewave/internal/config"
	"safewave/internal/core"
	"safewave/internal/db"
	"safewave/internal/engine"
	"safewave/internal/ingest"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("safewave ingestor starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"broker", cfg.MQTT.BrokerURL,
		"topic", cfg.MQTT.ReadingsTopic,
		"site_id", cfg.SiteID,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		return fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.Database.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password.Unmask(),
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	latestCache := cache.NewLatestCache(rdb, cfg.Redis.LatestTTL)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup, latest-decision cache degraded", "error", err)
	}

	eng, err := engine.New(
		db.NewRiskStateRepository(pool),
		db.NewReadingRepository(pool),
		classifier.New(cfg.Classifier, logger),
		latestCache,
		cfg.Risk,
		engine.SystemClock{},
		logger,
	)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	consumer := ingest.NewConsumer(cfg.MQTT, eng, core.NewValidator(logger), cfg.SiteID, logger)
	if err := consumer.Start(); err != nil {
		return fmt.Errorf("starting mqtt consumer: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info("shutdown signal received", "signal", sig.String())

	consumer.Stop()
	logger.Info("ingestor stopped cleanly")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
