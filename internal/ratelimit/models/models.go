package models

import (
	"time"
)

// Limit is the fixed-window budget applied to every action.
type Limit struct {
	Max    int
	Window time.Duration
}

// Key builds the counter key for an action and the actor it is tracked by.
func Key(action, actorKey string) string {
	return action + ":" + actorKey
}

// Count is the state of one window after an increment.
type Count struct {
	Value   int
	ResetAt time.Time
}

// Backend names the store that produced a decision.
type Backend string

const (
	BackendShared Backend = "shared"
	BackendLocal  Backend = "local"
)

// Result is a rate-limit decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	Backend   Backend
	// Degraded is set when the shared backend was configured but not used.
	Degraded bool
}

// NewResult evaluates a count against a limit. The request that brings the
// count to Max is still allowed.
func NewResult(c Count, limit Limit, backend Backend) Result {
	remaining := limit.Max - c.Value
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   c.Value <= limit.Max,
		Limit:     limit.Max,
		Remaining: remaining,
		ResetAt:   c.ResetAt,
		Backend:   backend,
	}
}

// RetryAfter is the whole seconds until the window resets, at least one.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
