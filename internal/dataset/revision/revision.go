// Package revision owns the two storage-backed counters of the dataset: the
// revision used for optimistic concurrency and the public identifier sequence.
package revision

import (
	"context"
	"fmt"
)

const (
	KeyRevision     = "data_rev"
	KeyNextPublicID = "next_child_public_id"

	// DefaultPrefix is the public identifier prefix for tracked individuals.
	DefaultPrefix = "CRI"
)

// Counter is a named integer with an atomic increment. Implementations must make
// Increment a single storage-level operation; read-then-write is not acceptable.
type Counter interface {
	// Get returns the value, creating the key with initial when missing.
	// Inside a transaction the PostgreSQL implementation also locks the row.
	Get(ctx context.Context, key string, initial int64) (int64, error)
	// Increment adds one and returns the new value. A missing key starts from initial.
	Increment(ctx context.Context, key string, initial int64) (int64, error)
}

// Store exposes the dataset revision. The revision starts at 1 and increases by
// exactly one per successful mutation.
type Store struct {
	counters Counter
}

func NewStore(counters Counter) *Store {
	return &Store{counters: counters}
}

// Current returns the revision, lazily initialising it to 1.
func (s *Store) Current(ctx context.Context) (int64, error) {
	rev, err := s.counters.Get(ctx, KeyRevision, 1)
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

// Bump increments the revision and returns the new value.
func (s *Store) Bump(ctx context.Context) (int64, error) {
	rev, err := s.counters.Increment(ctx, KeyRevision, 1)
	if err != nil {
		return 0, fmt.Errorf("bump revision: %w", err)
	}
	return rev, nil
}

// Allocator issues human-readable public identifiers such as CRI-0007.
// The counter holds the next number to hand out.
type Allocator struct {
	counters Counter
	prefix   string
}

func NewAllocator(counters Counter, prefix string) *Allocator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Allocator{counters: counters, prefix: prefix}
}

// Next allocates one identifier. Two callers never receive the same value
// because the increment and the read happen in one storage operation.
func (a *Allocator) Next(ctx context.Context) (string, error) {
	next, err := a.counters.Increment(ctx, KeyNextPublicID, 1)
	if err != nil {
		return "", fmt.Errorf("allocate public id: %w", err)
	}
	return Format(a.prefix, next-1), nil
}

// Format renders a public identifier with at least four digits.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}
