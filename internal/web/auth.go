package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/civreg/civreg/internal/core"
)

type contextKey string

const userContextKey contextKey = "user"

// bearerToken extracts the token from an Authorization header. Returns
// "" when the header is missing or not a Bearer scheme.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// requireUser validates the Bearer token and loads the active user into
// the request context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := s.issuer.Verify(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := s.service.GetUser(r.Context(), userID)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if !user.IsActive {
			writeError(w, r, http.StatusForbidden, "inactive user")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSuperuser gates routes to superusers. Must run after
// requireUser.
func (s *Server) requireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromContext(r.Context())
		if !ok || !user.IsSuperuser {
			writeError(w, r, http.StatusForbidden, "superuser privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// userFromContext returns the authenticated user placed by requireUser.
func userFromContext(ctx context.Context) (core.User, bool) {
	user, ok := ctx.Value(userContextKey).(core.User)
	return user, ok
}
