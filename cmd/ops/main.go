// Package main is the SafeWave operations CLI. It runs maintenance tasks
// on demand instead of waiting for their schedule; currently the only task
// is a one-shot retention pass over the readings log.
//
// Usage:
//
//	safewave-ops retention
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"safewave/internal/archive"
	"safewave/internal/config"
	"safewave/internal/db"
	"safewave/internal/maintenance"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 1 || args[0] != "retention" {
		return fmt.Errorf("usage: safewave-ops retention")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL.Unmask())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	var archiver maintenance.RecordArchiver
	if cfg.Retention.ArchiveDir != "" {
		a, err := archive.NewArchiver(cfg.Retention.ArchiveDir)
		if err != nil {
			return fmt.Errorf("creating archiver: %w", err)
		}
		archiver = a
	}

	job := maintenance.NewRetentionJob(db.NewReadingRepository(pool), archiver, cfg.Retention, logger)
	job.Run(ctx)
	return nil
}
