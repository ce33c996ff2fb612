package middleware

import (
	"context"
	"net/http"

	"github.com/sacbeh/gatehouse/internal/models"
	pkghttp "github.com/sacbeh/gatehouse/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const userContextKey contextKey = "session_user"

// SessionVerifier checks a bearer token against the session store and
// returns the verified user snapshot
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*models.UserInfo, bool)
}

// RequireSession validates the bearer token on every request and injects the
// verified user snapshot into the request context. Requests without a valid
// active session never reach the wrapped handler.
func RequireSession(sessions SessionVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := pkghttp.BearerToken(r)
			if token == "" {
				pkghttp.WriteUnauthorized(w, "Missing or malformed authorization header")
				return
			}

			info, ok := sessions.VerifySession(r.Context(), token)
			if !ok {
				pkghttp.WriteError(w, http.StatusUnauthorized, "session_invalid", "Session is invalid or expired")
				return
			}

			next.ServeHTTP(w, r.WithContext(NewUserContext(r.Context(), info)))
		})
	}
}

// RequirePermission guards a route on a single permission from the session
// snapshot. Must be mounted after RequireSession.
func RequirePermission(perm models.Permission) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := UserFromContext(r)
			if info == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !info.HasPermission(perm) {
				pkghttp.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewUserContext returns a context carrying a verified user snapshot
func NewUserContext(ctx context.Context, info *models.UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, info)
}

// UserFromContext extracts the verified user snapshot, nil when absent
func UserFromContext(r *http.Request) *models.UserInfo {
	info, _ := r.Context().Value(userContextKey).(*models.UserInfo)
	return info
}
