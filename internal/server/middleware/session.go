// Package middleware provides HTTP middleware for session authentication.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// sessionIDKey is the context key for storing the authenticated session ID.
const sessionIDKey ContextKey = "sessionID"

// TokenValidator validates signed session tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (SessionIDGetter, error)
}

// SessionIDGetter is an interface for extracting the session ID from token claims.
type SessionIDGetter interface {
	GetSessionID() uuid.UUID
}

// RequireSession validates the session token found in the named path value, or in a
// Bearer Authorization header when the path has none, and stores the session ID in
// the request context.
func RequireSession(validator TokenValidator, pathParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, pathParam)
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, claims.GetSessionID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request, pathParam string) string {
	if pathParam != "" {
		if token := strings.TrimSpace(r.PathValue(pathParam)); token != "" {
			return token
		}
	}

	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetSessionID extracts the authenticated session ID from the request context.
func GetSessionID(r *http.Request) (uuid.UUID, error) {
	id, ok := r.Context().Value(sessionIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("session ID not found in request context")
	}
	return id, nil
}

// WithSessionID returns a copy of ctx carrying id, for handlers invoked outside RequireSession.
func WithSessionID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}
