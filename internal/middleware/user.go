package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	// UserIDHeader carries the authenticated user id set by the upstream
	// auth gateway. Requests without it are anonymous.
	UserIDHeader = "X-User-ID"

	// UserIDContextKey is the context key for the logged-in user id
	UserIDContextKey contextKey = "user_id"
)

// WithUserID trusts the gateway-supplied user id header and stores it in the
// request context. A malformed id is rejected with 400.
func WithUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			respondBadRequest(w, r, "Invalid "+UserIDHeader+" header")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, id.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID returns the logged-in user id, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDContextKey).(string); ok {
		return id
	}
	return ""
}
