// Package httptransport assembles the public HTTP surface: shared middleware,
// operational endpoints and the bounded-context handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"lumine/internal/platform/metrics"
	"lumine/pkg/platform/httputil"
	"lumine/pkg/platform/middleware/auth"
	"lumine/pkg/platform/middleware/cors"
	"lumine/pkg/platform/middleware/metadata"
	request "lumine/pkg/platform/middleware/request"
	"lumine/pkg/platform/middleware/requesttime"
)

const (
	ActionSync = "sync"

	healthTimeout = 2 * time.Second
)

// RouteRegistrar is implemented by the dataset and intake handlers.
type RouteRegistrar interface {
	Register(r chi.Router)
}

type RateLimiter interface {
	RateLimit(action string) func(http.Handler) http.Handler
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config carries everything the router mounts. Nil optional fields are skipped.
type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	APIToken       string
	AllowedOrigins []string
	Resolver       auth.ActorResolver
	RateLimiter    RateLimiter
	Dataset        RouteRegistrar
	Intake         RouteRegistrar
	HealthChecks   map[string]HealthCheck
}

// NewRouter wires all public endpoints. Order matters: the API token and rate
// limit run before actor resolution so unauthenticated floods never reach the
// profile store.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Instrument)
	}

	r.Get("/health", healthHandler(cfg.HealthChecks, cfg.Logger))
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(cors.Allowlist(cfg.AllowedOrigins))
		r.Use(auth.RequireAPIToken(cfg.APIToken, cfg.Logger))

		if cfg.Dataset != nil {
			r.With(cfg.limit(ActionSync), auth.Authenticate(cfg.Resolver, cfg.Logger)).
				Group(cfg.Dataset.Register)
		}
		if cfg.Intake != nil {
			cfg.Intake.Register(r)
		}
	})

	return otelhttp.NewHandler(r, "lumine",
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
	)
}

func (cfg Config) limit(action string) func(http.Handler) http.Handler {
	if cfg.RateLimiter == nil {
		return passthrough
	}
	return cfg.RateLimiter.RateLimit(action)
}

// StageMiddleware returns the per-stage chain for the intake handler: rate
// limit keyed by stage, then actor resolution.
func StageMiddleware(limiter RateLimiter, resolver auth.ActorResolver, logger *slog.Logger) func(stage string) func(http.Handler) http.Handler {
	authenticate := auth.Authenticate(resolver, logger)
	return func(stage string) func(http.Handler) http.Handler {
		limit := passthrough
		if limiter != nil {
			limit = limiter.RateLimit(stage)
		}
		return func(next http.Handler) http.Handler {
			return limit(authenticate(next))
		}
	}
}

func passthrough(next http.Handler) http.Handler {
	return next
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
