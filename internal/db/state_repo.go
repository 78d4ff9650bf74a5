package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"safewave/internal/types"
)

// RiskStateRepository provides data access for the risk_state table: one row
// per monitored site holding the hysteresis counter, the last published
// status, and a version column guarding conditional writes.
//
// Error contract (relied on by the engine):
//   - Get on a site with no row returns ErrCodeNotFoundState; any other
//     read failure returns ErrCodeStateStoreUnavailable. The two are never
//     conflated -- mistaking an outage for absence would silently reset
//     hysteresis.
//   - Create/Update signal lost races with ErrCodeConflictConcurrent.
type RiskStateRepository struct {
	db DBTX
}

// NewRiskStateRepository creates a RiskStateRepository backed by the given
// database connection (pool or transaction).
func NewRiskStateRepository(db DBTX) *RiskStateRepository {
	return &RiskStateRepository{db: db}
}

// Get loads the persisted state for a site.
func (r *RiskStateRepository) Get(ctx context.Context, siteID string) (*types.RiskState, error) {
	var (
		state     types.RiskState
		rawStatus string
	)
	err := r.db.QueryRow(ctx,
		`SELECT site_id, high_count, status, updated_at, version
		 FROM risk_state WHERE site_id = $1`,
		siteID,
	).Scan(&state.SiteID, &state.HighCount, &rawStatus, &state.UpdatedAt, &state.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(
				types.ErrCodeNotFoundState,
				"no risk state for site",
				err,
			)
		}
		return nil, types.NewAppError(
			types.ErrCodeStateStoreUnavailable,
			"failed to load risk state",
			err,
		)
	}

	status, err := types.ParseStatus(rawStatus)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalDB,
			"risk state row holds an invalid status",
			err,
		)
	}
	state.Status = status
	return &state, nil
}

// Create inserts the first state row for a site. A unique violation means a
// concurrent invocation created it first; the caller should reload and
// retry.
func (r *RiskStateRepository) Create(ctx context.Context, state *types.RiskState) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO risk_state (site_id, high_count, status, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5)`,
		state.SiteID,
		state.HighCount,
		string(state.Status),
		state.UpdatedAt,
		state.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(
				types.ErrCodeConflictConcurrent,
				"risk state already created by a concurrent invocation",
				err,
			)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create risk state", err)
	}
	return nil
}

// Update performs the version-guarded conditional write: it succeeds only
// when the stored version still equals expectedVersion, serializing racing
// read-decide-write sequences without a shared lock.
func (r *RiskStateRepository) Update(ctx context.Context, state *types.RiskState, expectedVersion int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE risk_state
		 SET high_count = $1, status = $2, updated_at = $3, version = $4
		 WHERE site_id = $5 AND version = $6`,
		state.HighCount,
		string(state.Status),
		state.UpdatedAt,
		state.Version,
		state.SiteID,
		expectedVersion,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update risk state", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(
			types.ErrCodeConflictConcurrent,
			"risk state modified by a concurrent invocation",
			nil,
		)
	}
	return nil
}
