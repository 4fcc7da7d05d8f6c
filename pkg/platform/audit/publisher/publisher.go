// Package publisher is the fire-and-forget entry point for audit writes. Callers
// never see a persistence failure: errors are logged, counted and dropped.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "lumine/pkg/platform/audit"
	"lumine/pkg/platform/circuit"
	"lumine/pkg/requestcontext"
)

const defaultPersistTimeout = 3 * time.Second

// Publisher appends audit entries to a store, either inline or through a
// bounded buffer drained by a single goroutine.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	breaker *circuit.Breaker
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	buffer chan audit.Entry
	done   chan struct{}
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBreaker stops persistence attempts while the store is failing.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

// WithAsyncBuffer enables background persistence with a buffer of n entries.
// When the buffer is full new entries are dropped.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = make(chan audit.Entry, n)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		logger:  slog.Default(),
		timeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.done = make(chan struct{})
		go p.run()
	}
	return p
}

// Append records an entry. It never returns an error and never blocks on a
// full buffer. Missing id, timestamp, actor and device fields are filled from ctx.
func (p *Publisher) Append(ctx context.Context, entry audit.Entry) {
	if p == nil || p.store == nil {
		return
	}
	entry = enrich(ctx, entry)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.incDropped("closed")
		p.logger.WarnContext(ctx, "audit publisher closed, entry dropped", "action", entry.Action)
		return
	}

	if p.buffer == nil {
		p.persist(context.WithoutCancel(ctx), entry)
		return
	}

	select {
	case p.buffer <- entry:
	default:
		p.metrics.incDropped("buffer_full")
		p.logger.WarnContext(ctx, "audit buffer full, entry dropped",
			"action", entry.Action,
			"resource_id", entry.ResourceID,
		)
	}
}

// Close stops accepting entries and drains the buffer.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.buffer != nil {
		close(p.buffer)
	}
	p.mu.Unlock()

	if p.done != nil {
		<-p.done
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for entry := range p.buffer {
		p.persist(context.Background(), entry)
	}
}

func (p *Publisher) persist(ctx context.Context, entry audit.Entry) {
	if p.breaker != nil && !p.breaker.Allow() {
		p.metrics.incDropped("circuit_open")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.store.Append(ctx, entry); err != nil {
		p.metrics.incFailure()
		p.logger.ErrorContext(ctx, "failed to persist audit entry",
			"error", err,
			"action", entry.Action,
			"resource_type", entry.ResourceType,
			"resource_id", entry.ResourceID,
			"request_id", entry.RequestID,
		)
		if p.breaker != nil {
			if _, change := p.breaker.RecordFailure(); change.Opened {
				p.metrics.setBreakerOpen(true)
				p.logger.WarnContext(ctx, "audit store circuit opened")
			}
		}
		return
	}

	p.metrics.incPersisted(entry.Action)
	if p.breaker != nil {
		if _, change := p.breaker.RecordSuccess(); change.Closed {
			p.metrics.setBreakerOpen(false)
			p.logger.InfoContext(ctx, "audit store circuit closed")
		}
	}
}

func enrich(ctx context.Context, entry audit.Entry) audit.Entry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if entry.ActorID == "" && entry.ActorRole == "" {
		actor := requestcontext.Actor(ctx)
		entry.ActorID = actor.UserID
		entry.ActorRole = string(actor.Role)
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}

	meta := make(map[string]any, len(entry.Meta)+4)
	for k, v := range entry.Meta {
		meta[k] = v
	}
	device := requestcontext.DeviceInfo(ctx)
	setIfMissing(meta, "deviceId", device.ID)
	setIfMissing(meta, "appVersion", device.AppVersion)
	setIfMissing(meta, "client", device.ClientLabel)
	setIfMissing(meta, "requestId", entry.RequestID)
	entry.Meta = meta
	return entry
}

func setIfMissing(meta map[string]any, key, value string) {
	if value == "" {
		return
	}
	if _, ok := meta[key]; !ok {
		meta[key] = value
	}
}
