package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"lumine/pkg/domain"
	dErrors "lumine/pkg/domain-errors"
	"lumine/pkg/platform/httputil"
	request "lumine/pkg/platform/middleware/request"
	"lumine/pkg/requestcontext"
)

// HeaderUserJWT carries the staff member's session token, separate from the
// service-level API token in Authorization.
const HeaderUserJWT = "X-User-JWT"

// ActorResolver turns the optional user token into an Actor.
type ActorResolver interface {
	Resolve(ctx context.Context, userToken string) (domain.Actor, error)
}

// RequireAPIToken gates routes behind the shared service token. With no token
// configured every request is rejected.
func RequireAPIToken(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				logger.ErrorContext(r.Context(), "api token not configured",
					"request_id", request.GetRequestID(r.Context()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "api token not configured"))
				return
			}
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(expected)) != 1 {
				logger.WarnContext(r.Context(), "unauthorized access - invalid api token",
					"request_id", request.GetRequestID(r.Context()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid api token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate resolves the actor for the request and stores it in the context.
func Authenticate(resolver ActorResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor, err := resolver.Resolve(ctx, strings.TrimSpace(r.Header.Get(HeaderUserJWT)))
			if err != nil {
				logger.WarnContext(ctx, "actor resolution failed",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}

// RequireRole rejects actors outside the allowed roles. System actors are only
// issued when role enforcement is off, so they pass every gate.
func RequireRole(logger *slog.Logger, allowed ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.Actor(ctx)
			if actor.IsZero() {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "actor not resolved"))
				return
			}
			if actor.Role != domain.RoleSystem && !actor.HasRole(allowed...) {
				logger.WarnContext(ctx, "role not allowed",
					"actor_id", actor.UserID,
					"role", actor.Role,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "role not allowed for this operation").
					WithMeta(map[string]any{"role": string(actor.Role)}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
