// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// slidingWindowScript keeps one sorted-set member per admission, scored by
// its time in milliseconds. Returns {allowed, remaining, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
if count >= limit then
  local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
  local retry = window
  if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
  end
  return {0, 0, retry}
end

redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, window)
return {1, limit - count - 1, 0}
`)

// RedisLimiter shares admission logs between processes through Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter creates a RedisLimiter. Keys are namespaced by prefix.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: strings.TrimSpace(prefix)}
}

// Allow runs the sliding-window script for key.
func (l *RedisLimiter) Allow(ctx context.Context, key string, p Policy, now time.Time) (Result, error) {
	if p.Disabled() {
		return Result{Allowed: true}, nil
	}

	res, err := slidingWindowScript.Run(ctx, l.client,
		[]string{l.buildKey(key)},
		now.UnixMilli(),
		p.Window.Milliseconds(),
		p.Limit,
		strconv.FormatInt(now.UnixNano(), 10)+"-"+ulid.Make().String(),
	).Int64Slice()
	if err != nil {
		return Result{}, oops.Code("RATELIMIT_REDIS_FAILED").With("key", key).Wrap(err)
	}
	if len(res) != 3 {
		return Result{}, oops.Code("RATELIMIT_REDIS_FAILED").Errorf("unexpected script reply of length %d", len(res))
	}

	return Result{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// Close closes the Redis client.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

func (l *RedisLimiter) buildKey(key string) string {
	if l.prefix == "" {
		return key
	}
	return l.prefix + ":" + key
}
