package local

import (
	"context"
	"sync"
	"time"

	"lumine/internal/ratelimit/models"
	"lumine/pkg/requestcontext"
)

type entry struct {
	windowStart time.Time
	count       int
}

// Store is a fixed-window counter map. Every call purges entries whose window
// started more than two windows ago, so memory stays bounded by active keys.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Increment counts one request. A window resets once more than one full window
// has elapsed since it started.
func (s *Store) Increment(ctx context.Context, key string, window time.Duration) models.Count {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purge(now, window)
	e, ok := s.entries[key]
	if !ok || now.Sub(e.windowStart) > window {
		e = &entry{windowStart: now}
		s.entries[key] = e
	}
	e.count++
	return models.Count{Value: e.count, ResetAt: e.windowStart.Add(window)}
}

// Len returns the number of tracked keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// purge must be called with s.mu held.
func (s *Store) purge(now time.Time, window time.Duration) {
	cutoff := 2 * window
	for k, e := range s.entries {
		if now.Sub(e.windowStart) > cutoff {
			delete(s.entries, k)
		}
	}
}
