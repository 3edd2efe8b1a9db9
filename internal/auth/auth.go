// Package auth signs staff in and guards staff routes with HS256 bearer tokens.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

type contextKey struct{}

// Token types carried in the "typ" claim. Only access tokens open staff routes.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Claims is what a staff token carries.
type Claims struct {
	Role string `json:"role,omitempty"`
	Type string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	logger zerolog.Logger
}

// NewVerifier returns a verifier. With an empty secret every request is let
// through, which is how local development runs.
func NewVerifier(secret string, logger zerolog.Logger) *Verifier {
	return &Verifier{secret: []byte(secret), logger: logger}
}

func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

func (v *Verifier) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}

// Issue signs an access token for subject.
func (v *Verifier) Issue(subject, role string, ttl time.Duration) (string, error) {
	return v.sign(Claims{Role: role, Type: TokenAccess}, subject, ttl)
}

// IssueRefresh signs a refresh token. Each one carries a fresh ID so a
// rotated token never equals the one it replaces.
func (v *Verifier) IssueRefresh(subject string, ttl time.Duration) (string, error) {
	return v.sign(Claims{Type: TokenRefresh}, subject, ttl)
}

func (v *Verifier) sign(claims Claims, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// ParseRefresh accepts only refresh tokens.
func (v *Verifier) ParseRefresh(raw string) (*Claims, error) {
	claims, err := v.Parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}
	return claims, nil
}

// Middleware rejects requests without a valid token. Browsers cannot set
// headers on a websocket upgrade, so the token may also come in ?token=.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !v.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := tokenFromRequest(r)
		if err != nil {
			unauthorized(w, "missing_token", err.Error())
			return
		}
		claims, err := v.Parse(raw)
		if err == nil && claims.Type == TokenRefresh {
			err = fmt.Errorf("%w: refresh token used as access token", ErrInvalidToken)
		}
		if err != nil {
			v.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected token")
			unauthorized(w, "invalid_token", ErrInvalidToken.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
	})
}

// FromContext returns the claims Middleware stored, if any.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}

func tokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", ErrMissingToken
		}
		return strings.TrimSpace(token), nil
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, nil
	}
	return "", ErrMissingToken
}

func unauthorized(w http.ResponseWriter, code, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "details": details})
}
