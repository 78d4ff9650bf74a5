// Package maintenance hosts the scheduled background jobs of the SafeWave
// service. Currently the only job is readings-log retention: archive then
// prune decision records older than the configured maximum age.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"safewave/internal/config"
	"safewave/internal/types"
)

// maxArchiveBatch bounds how many expired records a single retention run
// loads into memory. Anything beyond it is picked up by the next run.
const maxArchiveBatch = 10000

// retentionRunTimeout bounds one full archive-and-prune pass.
const retentionRunTimeout = 5 * time.Minute

// RetentionStore is the slice of the readings repository the job needs.
type RetentionStore interface {
	ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*types.DecisionRecord, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RecordArchiver persists expired records before they are deleted.
type RecordArchiver interface {
	Archive(recs []*types.DecisionRecord, runAt time.Time) (string, error)
}

// RetentionJob periodically archives and deletes decision records older
// than the retention window. Records are always archived before deletion;
// an archive failure aborts the run and leaves the rows in place.
type RetentionJob struct {
	store    RetentionStore
	archiver RecordArchiver // may be nil when no archive dir is configured
	cfg      config.RetentionConfig
	logger   *slog.Logger
	cron     *cron.Cron
}

// NewRetentionJob creates the job. A nil archiver disables archiving; rows
// past the retention window are then deleted directly.
func NewRetentionJob(
	store RetentionStore,
	archiver RecordArchiver,
	cfg config.RetentionConfig,
	logger *slog.Logger,
) *RetentionJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionJob{
		store:    store,
		archiver: archiver,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start schedules the job per the configured cron expression and begins the
// scheduler. Returns an error if the expression does not parse.
func (j *RetentionJob) Start() error {
	c := cron.New()
	_, err := c.AddFunc(j.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), retentionRunTimeout)
		defer cancel()
		j.Run(ctx)
	})
	if err != nil {
		return err
	}
	c.Start()
	j.cron = c
	j.logger.Info("retention job scheduled",
		"schedule", j.cfg.Schedule, "max_age", j.cfg.MaxAge)
	return nil
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (j *RetentionJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// Run executes one archive-and-prune pass. Exposed for the ops CLI and
// tests; the scheduler calls it on the configured cadence.
func (j *RetentionJob) Run(ctx context.Context) {
	now := time.Now().UTC()
	cutoff := now.Add(-j.cfg.MaxAge)

	recs, err := j.store.ListOlderThan(ctx, cutoff, maxArchiveBatch)
	if err != nil {
		j.logger.Error("retention: listing expired records failed", "error", err)
		return
	}
	if len(recs) == 0 {
		j.logger.Debug("retention: nothing to prune", "cutoff", cutoff)
		return
	}

	// When the batch is full there are more expired rows than one run
	// handles; only delete up to the last archived record so nothing is
	// dropped unarchived. The boundary row is re-archived next run, which
	// is harmless.
	deleteCutoff := cutoff
	if len(recs) == maxArchiveBatch {
		deleteCutoff = recs[len(recs)-1].CreatedAt
	}

	if j.archiver != nil {
		path, err := j.archiver.Archive(recs, now)
		if err != nil {
			j.logger.Error("retention: archiving expired records failed, skipping delete",
				"count", len(recs), "error", err)
			return
		}
		j.logger.Info("retention: archived expired records",
			"count", len(recs), "path", path)
	}

	deleted, err := j.store.DeleteOlderThan(ctx, deleteCutoff)
	if err != nil {
		j.logger.Error("retention: deleting expired records failed", "error", err)
		return
	}
	j.logger.Info("retention: pruned readings log",
		"deleted", deleted, "cutoff", deleteCutoff)
}
