package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds requests that do not configure their own
const DefaultRequestTimeout = 30 * time.Second

// Timeout cancels the request context after the given duration and
// answers 503 if the handler has not written a response by then
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
		return http.TimeoutHandler(wrapped, d, "Request Timeout")
	}
}
