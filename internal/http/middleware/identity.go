package middleware

import (
	"net/http"
	"strings"

	"github.com/davidbz/ember/internal/observability"
)

// UserIDHeader carries the caller's identity, set by the authenticating proxy.
const UserIDHeader = "X-User-Id"

// Identity copies the caller's user id from UserIDHeader into the request context.
func Identity() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(observability.WithUserID(r.Context(), userID)))
		})
	}
}
