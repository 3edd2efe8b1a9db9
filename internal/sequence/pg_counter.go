package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgCounter keeps one row per day in daily_counters. The upsert creates the
// row at 1 or bumps it in a single statement, so Postgres serializes
// concurrent bookings on the same day.
type PgCounter struct {
	db rowQuerier
}

func NewPgCounter(db rowQuerier) *PgCounter {
	if db == nil {
		panic("sequence: db required")
	}
	return &PgCounter{db: db}
}

func (c *PgCounter) Increment(ctx context.Context, day string) (int64, error) {
	var seq int64
	err := c.db.QueryRow(ctx, `
		INSERT INTO daily_counters (day, seq)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE
		SET seq = daily_counters.seq + 1
		RETURNING seq
	`, day).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("upsert daily counter %s: %w", day, err)
	}
	return seq, nil
}
