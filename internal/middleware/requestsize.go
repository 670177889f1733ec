package middleware

import "net/http"

// DefaultMaxRequestSize caps request bodies at 1 MiB
const DefaultMaxRequestSize int64 = 1 << 20

// MaxRequestSize rejects oversized requests. Requests that declare a
// Content-Length above the limit fail immediately; chunked bodies are
// bounded by http.MaxBytesReader and fail on read.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
