package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	// Insert stores n. Inserting an ID that already exists is a no-op.
	Insert(ctx context.Context, n Notification) error
	ListRecent(ctx context.Context, limit int) ([]Notification, error)
	// MarkRead flips the given notifications to read, or every unread one
	// when ids is empty. It returns the number of rows changed.
	MarkRead(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PgStore struct {
	db querier
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{db: pool}
}

func newPgStoreWithDB(db querier) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Insert(ctx context.Context, n Notification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, title, message, type, related_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, n.ID, n.Title, n.Message, n.Type, n.RelatedID, n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PgStore) ListRecent(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, message, type, related_id, is_read, created_at
		FROM notifications
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	result := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.RelatedID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PgStore) MarkRead(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if len(ids) == 0 {
		tag, err = s.db.Exec(ctx, `UPDATE notifications SET is_read = true WHERE is_read = false`)
	} else {
		tag, err = s.db.Exec(ctx, `UPDATE notifications SET is_read = true WHERE is_read = false AND id = ANY($1)`, ids)
	}
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ Store = (*PgStore)(nil)
