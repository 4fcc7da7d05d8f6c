// Package requesttime pins "now" at the start of each request so audit entries,
// history timestamps and rate-limit windows within one request agree.
package requesttime

import (
	"net/http"
	"time"

	"lumine/pkg/requestcontext"
)

// Middleware captures the current time and stores it in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
