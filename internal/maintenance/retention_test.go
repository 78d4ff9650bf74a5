package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"safewave/internal/config"
	"safewave/internal/types"
)

type fakeStore struct {
	listRecs []*types.DecisionRecord
	listErr  error

	deleteCutoff time.Time
	deleteCalled bool
	deleteErr    error
}

func (s *fakeStore) ListOlderThan(_ context.Context, _ time.Time, _ int) ([]*types.DecisionRecord, error) {
	return s.listRecs, s.listErr
}

func (s *fakeStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.deleteCalled = true
	s.deleteCutoff = cutoff
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	return int64(len(s.listRecs)), nil
}

type fakeArchiver struct {
	archived []*types.DecisionRecord
	err      error
}

func (a *fakeArchiver) Archive(recs []*types.DecisionRecord, _ time.Time) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.archived = recs
	return "/tmp/archive.ndjson.gz", nil
}

func retentionCfg() config.RetentionConfig {
	return config.RetentionConfig{
		MaxAge:   90 * 24 * time.Hour,
		Schedule: "0 3 * * *",
	}
}

func expired(id string) *types.DecisionRecord {
	return &types.DecisionRecord{
		ID:        id,
		SiteID:    "site-1",
		Status:    types.StatusSafe,
		CreatedAt: time.Now().UTC().Add(-120 * 24 * time.Hour),
	}
}

func TestRetentionJob_ArchivesThenDeletes(t *testing.T) {
	store := &fakeStore{listRecs: []*types.DecisionRecord{expired("a"), expired("b")}}
	arch := &fakeArchiver{}
	job := NewRetentionJob(store, arch, retentionCfg(), nil)

	job.Run(context.Background())

	assert.Len(t, arch.archived, 2)
	assert.True(t, store.deleteCalled)
}

// Nothing may be deleted when the archive write fails: the rows stay in the
// log for the next run.
func TestRetentionJob_ArchiveFailureSkipsDelete(t *testing.T) {
	store := &fakeStore{listRecs: []*types.DecisionRecord{expired("a")}}
	arch := &fakeArchiver{err: errors.New("disk full")}
	job := NewRetentionJob(store, arch, retentionCfg(), nil)

	job.Run(context.Background())

	assert.False(t, store.deleteCalled)
}

func TestRetentionJob_NothingExpired(t *testing.T) {
	store := &fakeStore{}
	arch := &fakeArchiver{}
	job := NewRetentionJob(store, arch, retentionCfg(), nil)

	job.Run(context.Background())

	assert.Nil(t, arch.archived)
	assert.False(t, store.deleteCalled)
}

func TestRetentionJob_ListFailureIsSafe(t *testing.T) {
	store := &fakeStore{listErr: errors.New("timeout")}
	job := NewRetentionJob(store, &fakeArchiver{}, retentionCfg(), nil)

	job.Run(context.Background())

	assert.False(t, store.deleteCalled)
}

// Without an archiver the job prunes directly.
func TestRetentionJob_NoArchiverDeletesDirectly(t *testing.T) {
	store := &fakeStore{listRecs: []*types.DecisionRecord{expired("a")}}
	job := NewRetentionJob(store, nil, retentionCfg(), nil)

	job.Run(context.Background())

	assert.True(t, store.deleteCalled)
}

func TestRetentionJob_StartRejectsBadSchedule(t *testing.T) {
	cfg := retentionCfg()
	cfg.Schedule = "not a cron expression"
	job := NewRetentionJob(&fakeStore{}, nil, cfg, nil)

	assert.Error(t, job.Start())
}

func TestRetentionJob_StartAndStop(t *testing.T) {
	job := NewRetentionJob(&fakeStore{}, nil, retentionCfg(), nil)
	assert.NoError(t, job.Start())
	job.Stop()
}
