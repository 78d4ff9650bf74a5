package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"safewave/internal/config"
	"safewave/internal/types"
)

// maxPersistAttempts bounds the optimistic-concurrency retry loop. Each
// attempt reloads the state, recomputes the decision, and retries the
// conditional write; contention beyond this is surfaced as a conflict.
const maxPersistAttempts = 3

// StateStore persists the per-site RiskState. Implementations must
// distinguish confirmed absence (ErrCodeNotFoundState) from transient
// unavailability: the engine only treats the former as "fresh site".
type StateStore interface {
	// Get loads the state for a site. Returns an AppError with code
	// ErrCodeNotFoundState when no state has ever been persisted.
	Get(ctx context.Context, siteID string) (*types.RiskState, error)
	// Create inserts the first state row for a site. Returns an AppError
	// with code ErrCodeConflictConcurrent if another writer got there first.
	Create(ctx context.Context, state *types.RiskState) error
	// Update performs a version-guarded write: it only succeeds when the
	// stored version equals expectedVersion, otherwise it returns an
	// AppError with code ErrCodeConflictConcurrent.
	Update(ctx context.Context, state *types.RiskState, expectedVersion int64) error
}

// ReadingLog is the append-only store of decision records.
type ReadingLog interface {
	Append(ctx context.Context, rec *types.DecisionRecord) error
	Latest(ctx context.Context, siteID string) (*types.DecisionRecord, error)
}

// AdvisoryClassifier produces the informational label recorded alongside
// each decision. Its output is never an input to the status transition.
type AdvisoryClassifier interface {
	Classify(ctx context.Context, reading types.SensorReading) (types.AdvisoryLabel, error)
}

// LatestCache receives the freshest decision after each invocation so the
// read path can serve it without a log query. Strictly best-effort.
type LatestCache interface {
	SetLatest(ctx context.Context, rec *types.DecisionRecord) error
}

// Engine wires the rule evaluator, the advisory classifier, and the
// persisted counter/state machine into the one-reading-in, one-decision-out
// pipeline. Safe for concurrent use: racing invocations against the same
// site are serialized by the state store's conditional writes.
type Engine struct {
	store      StateStore
	log        ReadingLog
	classifier AdvisoryClassifier
	cache      LatestCache // may be nil
	thresholds config.RiskThresholds
	clock      Clock
	logger     *slog.Logger
}

// New creates an Engine. The cache is optional (nil disables it); everything
// else is required.
func New(
	store StateStore,
	log ReadingLog,
	classifier AdvisoryClassifier,
	cache LatestCache,
	thresholds config.RiskThresholds,
	clock Clock,
	logger *slog.Logger,
) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("state store must not be nil")
	}
	if log == nil {
		return nil, fmt.Errorf("reading log must not be nil")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier must not be nil")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      store,
		log:        log,
		classifier: classifier,
		cache:      cache,
		thresholds: thresholds,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Decide runs one full invocation: score the reading, update the persisted
// hysteresis counter, derive the new status, persist both atomically, and
// append the decision record. It either completes with a persisted result
// or fails without claiming durability.
func (e *Engine) Decide(ctx context.Context, siteID string, reading types.SensorReading) (*types.DecisionRecord, error) {
	now := e.clock.Now().UTC()

	// The classifier and the rule evaluator run over the same reading
	// independently; neither sees the other's output.
	var (
		advisory types.AdvisoryLabel
		ev       Evaluation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		advisory = e.classify(gctx, reading)
		return nil
	})
	g.Go(func() error {
		ev = Evaluate(reading, e.thresholds, now)
		return nil
	})
	_ = g.Wait() // both goroutines recover their own failures

	state, err := e.persistDecision(ctx, siteID, ev, now)
	if err != nil {
		return nil, err
	}

	rec := NewDecisionRecord(
		siteID, reading, advisory, ev,
		state.HighCount, state.Status,
		e.thresholds.MaxScore(), now,
	)
	if err := e.log.Append(ctx, rec); err != nil {
		// The state row is durable but the log entry is not; the caller
		// must not present this decision as recorded.
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeStateStoreWrite,
			"decision computed but not recorded",
			err,
			map[string]any{
				"computed_status": state.Status,
				"durable":         false,
			},
		)
	}

	if e.cache != nil {
		if err := e.cache.SetLatest(ctx, rec); err != nil {
			e.logger.Warn("latest-decision cache refresh failed",
				"site_id", siteID, "error", err)
		}
	}

	e.logger.Info("decision",
		"site_id", siteID,
		"status", state.Status,
		"high_count", state.HighCount,
		"bio_score", rec.BioScore,
		"zone", ev.Zone.String(),
		"advisory", advisory,
	)
	return rec, nil
}

// Latest returns the most recent decision for a site from the readings log.
func (e *Engine) Latest(ctx context.Context, siteID string) (*types.DecisionRecord, error) {
	return e.log.Latest(ctx, siteID)
}

// classify calls the external model exactly once, recovering any failure
// into the UNKNOWN sentinel so a broken classifier never blocks a decision.
func (e *Engine) classify(ctx context.Context, reading types.SensorReading) types.AdvisoryLabel {
	label, err := e.classifier.Classify(ctx, reading)
	if err != nil {
		e.logger.Warn("advisory classifier unavailable, substituting UNKNOWN", "error", err)
		return types.LabelUnknown
	}
	if !label.IsValid() {
		e.logger.Warn("advisory classifier returned unrecognized label, substituting UNKNOWN",
			"label", string(label))
		return types.LabelUnknown
	}
	return label
}

// persistDecision runs the read-decide-write sequence under optimistic
// concurrency: load (or initialize) the site state, advance the counter and
// status, and write conditionally on the loaded version. A conflict means
// another invocation won the race; reload and recompute so no increment is
// ever lost.
func (e *Engine) persistDecision(ctx context.Context, siteID string, ev Evaluation, now time.Time) (*types.RiskState, error) {
	var lastErr error

	for attempt := 0; attempt < maxPersistAttempts; attempt++ {
		prior, fresh, err := e.loadState(ctx, siteID)
		if err != nil {
			return nil, err
		}

		count, status := Advance(ev, prior.HighCount, e.thresholds)
		next := &types.RiskState{
			SiteID:    siteID,
			HighCount: count,
			Status:    status,
			UpdatedAt: now,
			Version:   prior.Version + 1,
		}

		if fresh {
			err = e.store.Create(ctx, next)
		} else {
			err = e.store.Update(ctx, next, prior.Version)
		}
		if err == nil {
			return next, nil
		}
		if isConflict(err) {
			lastErr = err
			continue
		}

		// Non-conflict write failure: the response must not claim the
		// escalation was durable. Attach the computed outcome for
		// visibility, clearly flagged.
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeStateStoreWrite,
			"failed to persist risk state",
			err,
			map[string]any{
				"computed_status":     status,
				"computed_high_count": count,
				"durable":             false,
			},
		)
	}

	return nil, types.NewAppError(
		types.ErrCodeConflictConcurrent,
		fmt.Sprintf("risk state contention persisted across %d attempts", maxPersistAttempts),
		lastErr,
	)
}

// loadState fetches the prior state, mapping confirmed absence -- and only
// confirmed absence -- to a fresh zero state. A transient store error is
// surfaced as-is: silently treating it as "no state" would reset hysteresis
// and mask sustained risk.
func (e *Engine) loadState(ctx context.Context, siteID string) (*types.RiskState, bool, error) {
	state, err := e.store.Get(ctx, siteID)
	if err == nil {
		return state, false, nil
	}

	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundState {
		return types.NewRiskState(siteID), true, nil
	}
	return nil, false, err
}

// isConflict reports whether err is the optimistic-lock conflict signal.
func isConflict(err error) bool {
	var appErr *types.AppError
	return errors.As(err, &appErr) && appErr.Code == types.ErrCodeConflictConcurrent
}
