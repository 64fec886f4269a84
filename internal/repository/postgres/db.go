package postgres

import (
	"context"
	"database/sql"
)

// Querier is the part of *sql.DB the trips repository and Migrate use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ Querier = (*sql.DB)(nil)
