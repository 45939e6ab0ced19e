// internal/common/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "lead-capture/internal/common/errors"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits at most limit calls per key within a sliding window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) (Decision, error)
}

// slidingWindow keeps one sorted-set member per admitted call, scored by its
// time in milliseconds. Entries older than the window are trimmed first;
// ARGV[5] is the exclusive trim bound.
var slidingWindow = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[5])
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, ARGV[1], ARGV[4])
  redis.call('PEXPIRE', key, window)
  return {1, count + 1, 0}
end

local retry = window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  retry = tonumber(oldest[2]) + window - now
end
return {0, count, retry}
`)

type RedisLimiter struct {
	client *redis.Client
	window time.Duration
	prefix string
	now    func() time.Time
	member func() string
}

func NewRedisLimiter(client *redis.Client, window time.Duration, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		window: window,
		prefix: prefix,
		now:    time.Now,
		member: func() string { return uuid.NewString() },
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int) (Decision, error) {
	now := l.now().UnixMilli()
	windowMs := l.window.Milliseconds()

	cutoff := "(" + strconv.FormatInt(now-windowMs, 10)

	res, err := slidingWindow.Run(ctx, l.client, []string{l.prefix + key}, now, windowMs, limit, l.member(), cutoff).Int64Slice()
	if err != nil {
		return Decision{}, apperrors.NewRateLimiterFailedError(fmt.Errorf("rate limit script failed: %w", err))
	}
	if len(res) != 3 {
		return Decision{}, apperrors.NewRateLimiterFailedError(fmt.Errorf("rate limit script returned %d values", len(res)))
	}

	d := Decision{Allowed: res[0] == 1, Limit: limit}
	if d.Allowed {
		d.Remaining = limit - int(res[1])
	} else {
		d.RetryAfter = time.Duration(res[2]) * time.Millisecond
	}
	return d, nil
}

// MemoryLimiter is the single-process variant of RedisLimiter.
type MemoryLimiter struct {
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	calls map[string][]time.Time
	ops   int
}

func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		window: window,
		now:    time.Now,
		calls:  make(map[string][]time.Time),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	calls := l.prune(l.calls[key], now)

	l.ops++
	if l.ops%1024 == 0 {
		l.sweep(now)
	}

	if len(calls) >= limit {
		l.calls[key] = calls
		retry := l.window
		if len(calls) > 0 {
			retry = calls[0].Add(l.window).Sub(now)
		}
		return Decision{Allowed: false, Limit: limit, RetryAfter: retry}, nil
	}

	l.calls[key] = append(calls, now)
	return Decision{Allowed: true, Limit: limit, Remaining: limit - len(calls) - 1}, nil
}

// prune drops calls that left the window. calls is ordered oldest first.
func (l *MemoryLimiter) prune(calls []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(calls) && calls[i].Before(cutoff) {
		i++
	}
	return calls[i:]
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for key, calls := range l.calls {
		if len(l.prune(calls, now)) == 0 {
			delete(l.calls, key)
		}
	}
}

// Key joins an operation and caller into a limiter key.
func Key(operation, caller string) string {
	return operation + ":" + caller
}
