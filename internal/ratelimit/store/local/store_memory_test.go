package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lumine/pkg/requestcontext"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) context.Context {
	return requestcontext.WithTime(context.Background(), epoch.Add(time.Duration(ms)*time.Millisecond))
}

func TestFixedWindowCounting(t *testing.T) {
	s := New()
	window := time.Second

	assert.Equal(t, 1, s.Increment(at(0), "sync:1.2.3.4", window).Value)
	assert.Equal(t, 2, s.Increment(at(10), "sync:1.2.3.4", window).Value)
	assert.Equal(t, 3, s.Increment(at(20), "sync:1.2.3.4", window).Value)

	c := s.Increment(at(1100), "sync:1.2.3.4", window)
	assert.Equal(t, 1, c.Value)
	assert.Equal(t, epoch.Add(2100*time.Millisecond), c.ResetAt)
}

func TestWindowBoundaryIsInclusive(t *testing.T) {
	s := New()
	s.Increment(at(0), "k", time.Second)
	assert.Equal(t, 2, s.Increment(at(1000), "k", time.Second).Value)
}

func TestKeysAreIndependent(t *testing.T) {
	s := New()
	s.Increment(at(0), "sync:a", time.Second)
	assert.Equal(t, 1, s.Increment(at(0), "sync:b", time.Second).Value)
	assert.Equal(t, 1, s.Increment(at(0), "triage:a", time.Second).Value)
}

func TestStaleEntriesArePurged(t *testing.T) {
	s := New()
	s.Increment(at(0), "old", time.Second)
	s.Increment(at(1500), "recent", time.Second)
	assert.Equal(t, 2, s.Len())

	s.Increment(at(2100), "recent", time.Second)
	assert.Equal(t, 1, s.Len())
}
