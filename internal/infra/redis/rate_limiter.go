package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the set to the window, then admits the call only if the
// remaining count is below the limit. Runs atomically on the server.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', tostring(now - window))
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, ARGV[1], ARGV[4])
redis.call('PEXPIRE', key, ARGV[2])
return 1
`)

// RateLimiter is a rolling-window limiter shared by every instance through a
// sorted set per key.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	clock  func() time.Time
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window, clock: time.Now}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	now := l.clock().UnixMilli()
	res, err := slidingWindow.Run(ctx, l.client,
		[]string{l.key(key)},
		now,
		l.window.Milliseconds(),
		l.limit,
		strconv.FormatInt(now, 10)+"-"+uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res == 1, nil
}

func (l *RateLimiter) key(key string) string {
	return "mathmaxxer:ratelimit:" + key
}
