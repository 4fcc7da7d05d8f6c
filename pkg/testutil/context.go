package testutil

import (
	"net/http"
	"time"

	"lumine/pkg/domain"
	"lumine/pkg/requestcontext"
)

// WithActor simulates what the auth middleware does for a resolved request.
func WithActor(req *http.Request, actor domain.Actor) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithRequestTime pins the request clock.
func WithRequestTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}

// ActorMiddleware injects a fixed actor into every request, standing in for
// auth.Authenticate in handler tests.
func ActorMiddleware(actor domain.Actor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, WithActor(r, actor))
		})
	}
}
