package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is the subset of pgx operations repositories need, satisfied by both
// *pgxpool.Pool and pgx.Tx so every repository works inside and outside a
// transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// nullableString maps empty strings to NULL on write.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
