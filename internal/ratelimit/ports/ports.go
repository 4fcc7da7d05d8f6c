// Package ports defines the interfaces shared by the limiter and its stores.
package ports

import (
	"context"
	"time"

	"lumine/internal/ratelimit/models"
	"lumine/pkg/platform/audit"
)

// SharedStore is a counter visible to every instance. Increment must be a single
// atomic operation: the first increment in a window sets its expiry.
type SharedStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (models.Count, error)
}

// LocalStore is the per-process fallback. It cannot fail.
type LocalStore interface {
	Increment(ctx context.Context, key string, window time.Duration) models.Count
}

// AuditPublisher records throttled requests.
type AuditPublisher interface {
	Append(ctx context.Context, entry audit.Entry)
}
