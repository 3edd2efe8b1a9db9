package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Channel is the NOTIFY channel of the appointments insert trigger.
const Channel = "appointment_inserted"

// Feed delivers appointment inserts until ctx ends or the underlying stream
// fails. Watch always returns a non-nil error.
type Feed interface {
	Watch(ctx context.Context, fn func(context.Context, AppointmentInserted)) error
}

// PgFeed listens on a dedicated pooled connection. Only inserts are
// published by the trigger, so updates never show up here.
type PgFeed struct {
	pool    *pgxpool.Pool
	channel string
	logger  zerolog.Logger
}

func NewPgFeed(pool *pgxpool.Pool, logger zerolog.Logger) *PgFeed {
	return &PgFeed{pool: pool, channel: Channel, logger: logger}
}

func (f *PgFeed) Watch(ctx context.Context, fn func(context.Context, AppointmentInserted)) error {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer func() {
		if !conn.Conn().IsClosed() {
			_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		}
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", f.channel, err)
	}
	f.logger.Info().Str("channel", f.channel).Msg("watching appointment inserts")

	return f.pump(ctx, conn.Conn(), fn)
}

type listener interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
}

// pump hands each well-formed payload to fn. Malformed payloads are logged
// and skipped; only a dead connection or ctx ends the loop.
func (f *PgFeed) pump(ctx context.Context, l listener, fn func(context.Context, AppointmentInserted)) error {
	for {
		n, err := l.WaitForNotification(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("wait for notification: %w", err)
		}

		ev, err := decodeInserted(n.Payload)
		if err != nil {
			f.logger.Warn().Err(err).Str("payload", n.Payload).Msg("skipping malformed appointment event")
			continue
		}
		fn(ctx, ev)
	}
}

func decodeInserted(payload string) (AppointmentInserted, error) {
	var ev AppointmentInserted
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("decode appointment event: %w", err)
	}
	if ev.ID == uuid.Nil {
		return ev, errors.New("decode appointment event: missing id")
	}
	return ev, nil
}
