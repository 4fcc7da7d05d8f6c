package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"lumine/internal/ratelimit/models"
	"lumine/internal/ratelimit/ports"
	"lumine/pkg/attrs"
	dErrors "lumine/pkg/domain-errors"
	"lumine/pkg/platform/audit"
	"lumine/pkg/platform/httputil"
	"lumine/pkg/requestcontext"
)

type RateLimiter interface {
	Allow(ctx context.Context, action, actorKey string) models.Result
}

type Middleware struct {
	limiter  RateLimiter
	auditor  ports.AuditPublisher
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(m *Middleware) {
		m.auditor = publisher
	}
}

func New(limiter RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit throttles requests per action and client IP. Apply after the
// client metadata middleware.
func (m *Middleware) RateLimit(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			result := m.limiter.Allow(ctx, action, ip)

			addRateLimitHeaders(w, result)
			if result.Degraded {
				w.Header().Set("X-RateLimit-Status", "degraded")
			}

			if !result.Allowed {
				m.reject(w, r, action, ip, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, action, ip string, result models.Result) {
	ctx := r.Context()
	retryAfter := result.RetryAfter(requestcontext.Now(ctx))

	m.logger.WarnContext(ctx, "rate limit exceeded",
		"action", action,
		"ip_prefix", attrs.AnonymizeIP(ip),
		"backend", result.Backend,
		"request_id", requestcontext.RequestID(ctx),
	)
	if m.auditor != nil {
		m.auditor.Append(ctx, audit.Entry{
			Action:       audit.ActionRateLimited,
			ResourceType: audit.ResourceRequest,
			ResourceID:   action,
			Success:      false,
			Meta: map[string]any{
				"path":     r.URL.Path,
				"ipPrefix": attrs.AnonymizeIP(ip),
				"limit":    result.Limit,
			},
		})
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later").
		WithMeta(map[string]any{"retryAfterSeconds": retryAfter, "limit": result.Limit}))
}

func addRateLimitHeaders(w http.ResponseWriter, result models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
