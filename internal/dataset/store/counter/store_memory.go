package counter

import (
	"context"
	"sync"
)

// InMemoryCounter keeps counters in a map guarded by a mutex. Safe for a single
// process only; multi-instance deployments use the PostgreSQL store.
type InMemoryCounter struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewInMemoryCounter() *InMemoryCounter {
	return &InMemoryCounter{values: make(map[string]int64)}
}

func (c *InMemoryCounter) Get(_ context.Context, key string, initial int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		c.values[key] = initial
		return initial, nil
	}
	return v, nil
}

func (c *InMemoryCounter) Increment(_ context.Context, key string, initial int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		v = initial
	}
	v++
	c.values[key] = v
	return v, nil
}

// Set overwrites a counter. Used by tests to seed state.
func (c *InMemoryCounter) Set(key string, value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}
