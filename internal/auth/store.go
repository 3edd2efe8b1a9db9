package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

const RoleDoctor = "doctor"

// User is a staff account.
type User struct {
	ID               uuid.UUID
	Name             string
	Email            string
	PasswordHash     string
	Role             string
	RefreshTokenHash *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// SetRefreshHash stores the hash of the current refresh token; nil
	// signs the user out everywhere.
	SetRefreshHash(ctx context.Context, id uuid.UUID, hash *string) error
	// Upsert creates the user or resets name, password and role of the
	// user with the same email, signing them out.
	Upsert(ctx context.Context, u User) (*User, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgUserStore struct {
	db querier
}

func NewPgUserStore(pool *pgxpool.Pool) *PgUserStore {
	return &PgUserStore{db: pool}
}

func newPgUserStoreWithDB(db querier) *PgUserStore {
	return &PgUserStore{db: db}
}

const userColumns = `id, name, email, password_hash, role, refresh_token_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.RefreshTokenHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PgUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email)))
}

func (s *PgUserStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PgUserStore) SetRefreshHash(ctx context.Context, id uuid.UUID, hash *string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET refresh_token_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PgUserStore) Upsert(ctx context.Context, u User) (*User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleDoctor
	}
	saved, err := scanUser(s.db.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, now(), now())
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
		    password_hash = EXCLUDED.password_hash,
		    role = EXCLUDED.role,
		    refresh_token_hash = NULL,
		    updated_at = now()
		RETURNING `+userColumns,
		u.ID, u.Name, strings.TrimSpace(u.Email), u.PasswordHash, u.Role))
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return saved, nil
}

var _ UserStore = (*PgUserStore)(nil)
