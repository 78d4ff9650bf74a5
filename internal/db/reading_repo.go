package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"safewave/internal/types"
)

// readingColumns is the canonical column list for safewave_readings, kept in
// one place so scans and inserts cannot drift apart.
const readingColumns = `id, site_id, ph, temp, tds, turb, flow,
	advisory, bio_score, risk_percent, high_count, status, created_at`

// ReadingRepository provides data access for the safewave_readings table,
// the append-only log of every decision the engine has made. Rows are never
// updated; retention is the only deletion path.
type ReadingRepository struct {
	db DBTX
}

// NewReadingRepository creates a ReadingRepository backed by the given
// database connection (pool or transaction).
func NewReadingRepository(db DBTX) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Append inserts one decision record.
func (r *ReadingRepository) Append(ctx context.Context, rec *types.DecisionRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO safewave_readings (`+readingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID,
		rec.SiteID,
		rec.PH,
		rec.Temp,
		rec.TDS,
		rec.Turb,
		rec.Flow,
		string(rec.Advisory),
		rec.BioScore,
		rec.RiskPercent,
		rec.HighCount,
		string(rec.Status),
		rec.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to append decision record", err)
	}
	return nil
}

// Latest returns the most recent decision for a site, or an AppError with
// code ErrCodeNotFoundReading when the site has no decisions yet.
func (r *ReadingRepository) Latest(ctx context.Context, siteID string) (*types.DecisionRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+readingColumns+`
		 FROM safewave_readings
		 WHERE site_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		siteID,
	)
	rec, err := scanReading(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundReading, "No data available", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load latest decision", err)
	}
	return rec, nil
}

// ListOlderThan returns decision records created strictly before the cutoff,
// oldest first, up to limit rows. Used by the retention job to archive
// before deleting.
func (r *ReadingRepository) ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*types.DecisionRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+readingColumns+`
		 FROM safewave_readings
		 WHERE created_at < $1
		 ORDER BY created_at ASC, id ASC
		 LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list expired decision records", err)
	}
	defer rows.Close()

	var recs []*types.DecisionRecord
	for rows.Next() {
		rec, err := scanReading(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan decision record", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read decision records", err)
	}
	return recs, nil
}

// DeleteOlderThan removes decision records created strictly before the
// cutoff and reports how many rows were deleted.
func (r *ReadingRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM safewave_readings WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete expired decision records", err)
	}
	return tag.RowsAffected(), nil
}

// scanReading hydrates one row into a DecisionRecord.
func scanReading(row pgx.Row) (*types.DecisionRecord, error) {
	var (
		rec         types.DecisionRecord
		rawAdvisory string
		rawStatus   string
	)
	err := row.Scan(
		&rec.ID,
		&rec.SiteID,
		&rec.PH,
		&rec.Temp,
		&rec.TDS,
		&rec.Turb,
		&rec.Flow,
		&rawAdvisory,
		&rec.BioScore,
		&rec.RiskPercent,
		&rec.HighCount,
		&rawStatus,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Advisory = types.AdvisoryLabel(rawAdvisory)
	rec.Status = types.Status(rawStatus)
	return &rec, nil
}
