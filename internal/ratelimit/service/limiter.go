// Package service decides whether a request fits its action's fixed-window
// budget. A shared backend is preferred; any failure of it falls back to the
// process-local store for that request.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lumine/internal/ratelimit/metrics"
	"lumine/internal/ratelimit/models"
	"lumine/internal/ratelimit/ports"
	"lumine/pkg/platform/circuit"
)

const (
	DefaultMax     = 30
	DefaultWindow  = 60 * time.Second
	DefaultTimeout = 300 * time.Millisecond
)

type Limiter struct {
	shared  ports.SharedStore
	local   ports.LocalStore
	breaker *circuit.Breaker
	limit   models.Limit
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// WithSharedStore enables the distributed backend.
func WithSharedStore(store ports.SharedStore) Option {
	return func(l *Limiter) {
		l.shared = store
	}
}

// WithBreaker skips the shared backend while the breaker is open.
func WithBreaker(b *circuit.Breaker) Option {
	return func(l *Limiter) {
		l.breaker = b
	}
}

// WithBackendTimeout bounds each shared backend call.
func WithBackendTimeout(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// New builds a limiter. Non-positive limit fields take the defaults.
func New(local ports.LocalStore, limit models.Limit, opts ...Option) (*Limiter, error) {
	if local == nil {
		return nil, errors.New("rate limiter: local store is required")
	}
	if limit.Max <= 0 {
		limit.Max = DefaultMax
	}
	if limit.Window <= 0 {
		limit.Window = DefaultWindow
	}
	l := &Limiter{
		local:   local,
		limit:   limit,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Limiter) Limit() models.Limit {
	return l.limit
}

// Allow counts one request for action by actorKey. It never fails: backend
// errors degrade the decision to the local store.
func (l *Limiter) Allow(ctx context.Context, action, actorKey string) models.Result {
	key := models.Key(action, actorKey)

	result, ok := l.allowShared(ctx, key)
	if !ok {
		result = models.NewResult(l.local.Increment(ctx, key, l.limit.Window), l.limit, models.BackendLocal)
		result.Degraded = l.shared != nil
	}
	l.metrics.ObserveDecision(action, result.Allowed, string(result.Backend))
	return result
}

func (l *Limiter) allowShared(ctx context.Context, key string) (models.Result, bool) {
	if l.shared == nil {
		return models.Result{}, false
	}
	if l.breaker != nil && !l.breaker.Allow() {
		l.metrics.IncFallback("breaker_open")
		return models.Result{}, false
	}

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	count, err := l.shared.Increment(callCtx, key, l.limit.Window)
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		l.metrics.IncFallback(reason)
		l.logger.WarnContext(ctx, "shared rate limit backend failed, using local store",
			"reason", reason,
			"error", err,
		)
		l.recordFailure(ctx)
		return models.Result{}, false
	}
	l.recordSuccess(ctx)
	return models.NewResult(count, l.limit, models.BackendShared), true
}

func (l *Limiter) recordFailure(ctx context.Context) {
	if l.breaker == nil {
		return
	}
	if _, change := l.breaker.RecordFailure(); change.Opened {
		l.metrics.SetBreakerOpen(true)
		l.logger.WarnContext(ctx, "rate limit breaker opened", "breaker", l.breaker.Name())
	}
}

func (l *Limiter) recordSuccess(ctx context.Context) {
	if l.breaker == nil {
		return
	}
	if _, change := l.breaker.RecordSuccess(); change.Closed {
		l.metrics.SetBreakerOpen(false)
		l.logger.InfoContext(ctx, "rate limit breaker closed", "breaker", l.breaker.Name())
	}
}
