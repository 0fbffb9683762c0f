// Package ratelimit implements a sliding-window limiter shared through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go-inventory-pos/internal/auth"

	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Limiter interface {
	Admit(ctx context.Context, key string) (Result, error)
}

// KeyFor picks the limiter key: the user when authenticated, otherwise the client address.
func KeyFor(id auth.Identity, clientIP string) string {
	if id.IsAuthenticated() {
		return "user:" + id.UserID
	}
	return "ip:" + clientIP
}

// FailOpen is the metadata reported when the backend cannot be consulted.
func FailOpen(limit int, window time.Duration, now time.Time) Result {
	return Result{Allowed: true, Limit: limit, Remaining: limit, ResetAt: now.Add(window)}
}

// slidingWindowScript weighs the previous fixed window by how much of it still overlaps the
// sliding window, then admits and counts the request if the total stays below the limit.
//
// KEYS[1] current bucket, KEYS[2] previous bucket
// ARGV[1] limit, ARGV[2] now (ms), ARGV[3] window (ms)
// Returns {allowed (0|1), remaining}.
var slidingWindowScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local window = tonumber(ARGV[3])

local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local previous = tonumber(redis.call("GET", KEYS[2]) or "0")

local elapsed = (now % window) / window
local weighted = math.floor((1 - elapsed) * previous)

if weighted + current >= limit then
  return {0, 0}
end

local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], window * 2 + 1000)
end

local remaining = limit - (weighted + count)
if remaining < 0 then
  remaining = 0
end
return {1, remaining}
`)

type RedisLimiter struct {
	client  redis.Scripter
	limit   int
	window  time.Duration
	timeout time.Duration
	prefix  string
	now     func() time.Time
}

type Options struct {
	Limit   int
	Window  time.Duration
	Timeout time.Duration
	Prefix  string
	Now     func() time.Time // defaults to time.Now
}

func NewRedisLimiter(client redis.Scripter, opts Options) *RedisLimiter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RedisLimiter{
		client:  client,
		limit:   opts.Limit,
		window:  opts.Window,
		timeout: opts.Timeout,
		prefix:  opts.Prefix,
		now:     opts.Now,
	}
}

// Admit counts one request for key. Errors, including timeouts, are returned to the caller,
// which decides how to degrade.
func (l *RedisLimiter) Admit(ctx context.Context, key string) (Result, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	now := l.now()
	windowMs := l.window.Milliseconds()
	nowMs := now.UnixMilli()
	bucket := nowMs / windowMs

	keys := []string{
		fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket),
		fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket-1),
	}
	vals, err := slidingWindowScript.Run(ctx, l.client, keys, l.limit, nowMs, windowMs).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("rate limit script: unexpected reply %v", vals)
	}

	return Result{
		Allowed:   vals[0] == 1,
		Limit:     l.limit,
		Remaining: int(vals[1]),
		ResetAt:   time.UnixMilli((bucket + 1) * windowMs),
	}, nil
}
