package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/workdoc/workdoc/internal/access"
	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/service"
)

// TokenVerifier verifies bearer tokens. *service.AuthService satisfies it.
type TokenVerifier interface {
	Verify(token string) (*service.Claims, error)
}

// UserLoader loads the account a token refers to.
type UserLoader interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// Authenticate returns an HTTP middleware that validates the Bearer token in
// the Authorization header and loads its user. Missing, invalid, and expired
// tokens, as well as unknown or deactivated users, get a 401 JSON error. On
// success an access.Principal is attached to the request context.
func Authenticate(tokens TokenVerifier, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeAuthError(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}

			claims, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				msg := "Invalid token."
				if errors.Is(err, service.ErrTokenExpired) {
					msg = "Token expired."
				}
				writeAuthError(w, http.StatusUnauthorized, msg)
				return
			}

			u, err := users.GetUser(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, model.ErrNotFound) {
					writeAuthError(w, http.StatusUnauthorized, "Invalid token or user not found.")
					return
				}
				writeAuthError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if !u.IsActive {
				writeAuthError(w, http.StatusUnauthorized, "Account is deactivated.")
				return
			}

			p := &access.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
			next.ServeHTTP(w, r.WithContext(access.WithPrincipal(r.Context(), p)))
		})
	}
}

// Require returns an HTTP middleware that runs checks against the request's
// principal in order. The first failing check ends the request with 401 or
// 403. It must be used after Authenticate in the middleware chain.
func Require(checks ...access.Check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := access.Evaluate(access.FromContext(r.Context()), checks...); err != nil {
				status := http.StatusForbidden
				if errors.Is(err, model.ErrUnauthorized) {
					status = http.StatusUnauthorized
				}
				writeAuthError(w, status, "Access denied. Insufficient permissions.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeAuthError writes the standard error envelope. It lives here rather
// than in handler to avoid an import cycle.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}
