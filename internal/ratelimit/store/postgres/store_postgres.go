package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"lumine/internal/ratelimit/models"
	"lumine/pkg/requestcontext"
)

// Store keeps fixed-window counters in rate_limit_counters. The increment is a
// single upsert; expired rows are deleted by a sampled cleanup on the hot path.
type Store struct {
	db         *sql.DB
	sampleRate float64
	sample     func() float64
	logger     *slog.Logger
}

type Option func(*Store)

// WithCleanupSampleRate sets the probability that a call also deletes expired rows.
func WithCleanupSampleRate(rate float64) Option {
	return func(s *Store) {
		s.sampleRate = rate
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, sampleRate: 0.01, sample: rand.Float64, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Increment(ctx context.Context, key string, window time.Duration) (models.Count, error) {
	now := requestcontext.Now(ctx)

	var (
		count     int
		expiresAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rate_limit_counters (key, window_start, count, expires_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (key) DO UPDATE SET
			window_start = CASE WHEN rate_limit_counters.expires_at < $2
				THEN EXCLUDED.window_start ELSE rate_limit_counters.window_start END,
			count = CASE WHEN rate_limit_counters.expires_at < $2
				THEN 1 ELSE rate_limit_counters.count + 1 END,
			expires_at = CASE WHEN rate_limit_counters.expires_at < $2
				THEN EXCLUDED.expires_at ELSE rate_limit_counters.expires_at END
		RETURNING count, expires_at
	`, key, now, now.Add(window)).Scan(&count, &expiresAt)
	if err != nil {
		return models.Count{}, fmt.Errorf("increment rate limit counter: %w", err)
	}

	if s.sampleRate > 0 && s.sample() < s.sampleRate {
		// The increment already committed; a failed cleanup only delays eviction.
		if err := s.cleanup(ctx, now); err != nil {
			s.logger.WarnContext(ctx, "rate limit cleanup failed", "error", err)
		}
	}
	return models.Count{Value: count, ResetAt: expiresAt}, nil
}

func (s *Store) cleanup(ctx context.Context, now time.Time) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rate_limit_counters WHERE expires_at < $1`, now); err != nil {
		return fmt.Errorf("cleanup rate limit counters: %w", err)
	}
	return nil
}
