package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"lumine/internal/ratelimit/models"
	"lumine/pkg/requestcontext"
)

const keyPrefix = "lumine:rl:"

// incrementScript increments the counter and sets the expiry on the first hit
// of a window. Returns {count, remaining ttl in ms}.
var incrementScript = goredis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// Store keeps fixed-window counters in Redis. Keys expire on their own, so no
// cleanup pass is needed.
type Store struct {
	client goredis.Scripter
}

func New(client goredis.Scripter) *Store {
	return &Store{client: client}
}

func (s *Store) Increment(ctx context.Context, key string, window time.Duration) (models.Count, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{keyPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return models.Count{}, fmt.Errorf("redis increment: %w", err)
	}
	if len(res) != 2 {
		return models.Count{}, fmt.Errorf("redis increment: unexpected reply of length %d", len(res))
	}
	return models.Count{
		Value:   int(res[0]),
		ResetAt: requestcontext.Now(ctx).Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}
