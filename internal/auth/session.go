package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRefresh     = errors.New("invalid or reused refresh token")
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Session is what a successful login or refresh hands back.
type Session struct {
	AccessToken  string
	RefreshToken string
	RefreshTTL   time.Duration
	User         *User
}

// Sessions signs staff in and rotates their refresh tokens. Only the hash of
// the latest refresh token is stored, so a replayed older token is refused.
type Sessions struct {
	users      UserStore
	verifier   *Verifier
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     zerolog.Logger
}

func NewSessions(users UserStore, verifier *Verifier, accessTTL, refreshTTL time.Duration, logger zerolog.Logger) *Sessions {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Sessions{users: users, verifier: verifier, accessTTL: accessTTL, refreshTTL: refreshTTL, logger: logger}
}

func (s *Sessions) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !VerifySecret(password, u.PasswordHash) {
		s.logger.Info().Str("user_id", u.ID.String()).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	sess, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Msg("user logged in")
	return sess, nil
}

// Refresh swaps a refresh token for a new access/refresh pair. A token that
// is not the latest one clears the stored hash, ending every session.
func (s *Sessions) Refresh(ctx context.Context, raw string) (*Session, error) {
	u, err := s.userForRefresh(ctx, raw)
	if err != nil {
		return nil, err
	}

	if u.RefreshTokenHash == nil || !VerifySecret(raw, *u.RefreshTokenHash) {
		if u.RefreshTokenHash != nil {
			s.logger.Warn().Str("user_id", u.ID.String()).Msg("refresh token reuse, revoking sessions")
			if err := s.users.SetRefreshHash(ctx, u.ID, nil); err != nil {
				return nil, fmt.Errorf("revoke sessions: %w", err)
			}
		}
		return nil, ErrInvalidRefresh
	}

	return s.issue(ctx, u)
}

// Logout forgets the stored refresh token. Unknown or expired tokens are
// ignored so logging out always succeeds.
func (s *Sessions) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := s.userForRefresh(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrInvalidRefresh) {
			return nil
		}
		return err
	}
	if err := s.users.SetRefreshHash(ctx, u.ID, nil); err != nil && !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Info().Str("user_id", u.ID.String()).Msg("user logged out")
	return nil
}

func (s *Sessions) userForRefresh(ctx context.Context, raw string) (*User, error) {
	claims, err := s.verifier.ParseRefresh(raw)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *Sessions) issue(ctx context.Context, u *User) (*Session, error) {
	access, err := s.verifier.Issue(u.ID.String(), u.Role, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.verifier.IssueRefresh(u.ID.String(), s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	hash, err := HashSecret(refresh)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshHash(ctx, u.ID, &hash); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	u.RefreshTokenHash = &hash
	return &Session{AccessToken: access, RefreshToken: refresh, RefreshTTL: s.refreshTTL, User: u}, nil
}
