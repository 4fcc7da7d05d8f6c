// Package cors enforces the browser origin allowlist.
package cors

import (
	"net/http"
	"slices"

	dErrors "lumine/pkg/domain-errors"
	"lumine/pkg/platform/httputil"
)

const allowHeaders = "Authorization, Content-Type, X-Device-Id, X-App-Version, X-User-JWT"

// Allowlist echoes allowed origins, answers preflights and rejects requests
// from any other browser origin. Requests without an Origin header pass through.
func Allowlist(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := origin != "" && slices.Contains(origins, origin)
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			if origin != "" && !allowed {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbiddenOrigin, "origin not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
