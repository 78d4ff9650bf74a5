// Package db provides PostgreSQL-backed repository implementations for the
// SafeWave platform. All repositories accept a DBTX interface that is
// satisfied by both *pgxpool.Pool (for normal queries) and pgx.Tx (for
// transactional execution), enabling clean transaction support.
package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
// Repositories accept this so the same code works inside or outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint
// violation (error code 23505). Used to detect create races on the
// single-row-per-site risk_state table.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
