package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/tejxv/PULSE/internal/domain/reports"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

// Identity is one authenticated principal.
type Identity struct {
	UserID string
	Role   reports.Role
}

// BearerAuth validates the bearer token from the Authorization header and
// puts the resolved identity on the request context.
func BearerAuth(tokens map[string]Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for health check
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			// Support both "Bearer <token>" and "<token>" formats
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			// Constant-time comparison to prevent timing attacks
			var matched *Identity
			for candidate, id := range tokens {
				if subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1 {
					ident := id
					matched = &ident
					break
				}
			}
			if matched == nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, matched.UserID)
			ctx = context.WithValue(ctx, RoleKey, matched.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts the authenticated user id from context
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRole extracts the authenticated role from context, defaulting to patient
func GetRole(ctx context.Context) reports.Role {
	if role, ok := ctx.Value(RoleKey).(reports.Role); ok {
		return role
	}
	return reports.RolePatient
}
