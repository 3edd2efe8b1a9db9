package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/hackgods/clinic-booking/internal/auth"
)

const refreshCookie = "refresh_token"

type SessionService interface {
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Refresh(ctx context.Context, raw string) (*auth.Session, error)
	Logout(ctx context.Context, raw string) error
}

// The refresh token only ever travels in an HttpOnly cookie; the access token
// goes in the body for the client to send as a bearer token.

func loginHandler(svc SessionService, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "email and password are required")
			return
		}

		sess, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			handleError(w, r, err)
			return
		}

		setRefreshCookie(w, sess, secure)
		writeJSON(w, http.StatusOK, LoginResponse{
			AccessToken: sess.AccessToken,
			TokenType:   "bearer",
			User:        UserResponse{Name: sess.User.Name, Email: sess.User.Email},
		})
	}
}

func refreshHandler(svc SessionService, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(refreshCookie)
		if err != nil || c.Value == "" {
			writeError(w, http.StatusUnauthorized, "missing_refresh_token", "no refresh token found")
			return
		}

		sess, err := svc.Refresh(r.Context(), c.Value)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidRefresh) {
				clearRefreshCookie(w, secure)
			}
			handleError(w, r, err)
			return
		}

		setRefreshCookie(w, sess, secure)
		writeJSON(w, http.StatusOK, TokenResponse{AccessToken: sess.AccessToken, TokenType: "bearer"})
	}
}

func logoutHandler(svc SessionService, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var raw string
		if c, err := r.Cookie(refreshCookie); err == nil {
			raw = c.Value
		}
		if err := svc.Logout(r.Context(), raw); err != nil {
			handleError(w, r, err)
			return
		}

		clearRefreshCookie(w, secure)
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
	}
}

func setRefreshCookie(w http.ResponseWriter, sess *auth.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    sess.RefreshToken,
		Path:     "/",
		MaxAge:   int(sess.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
