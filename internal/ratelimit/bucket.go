package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// takeScript refills the bucket from redis server time, then tries to take a
// single token. It replies {allowed, whole tokens left, wait in ms}.
const takeScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "level", "at")
local level = tonumber(state[1]) or burst
local at = tonumber(state[2]) or now
if now > at then
  level = math.min(burst, level + (now - at) * rate / 1000)
end

local allowed = 0
local wait = 0
if level >= 1 then
  allowed = 1
  level = level - 1
else
  wait = math.ceil((1 - level) * 1000 / rate)
end

redis.call("HSET", KEYS[1], "level", tostring(level), "at", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, math.floor(level), wait}
`

var errBucketUnavailable = errors.New("checkout bucket not configured")

// Decision is the outcome of one attempt to take a token.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// bucket is a token bucket kept in redis so every API replica shares it.
type bucket struct {
	client redis.Scripter
	script *redis.Script
}

func newBucket(client redis.Scripter) *bucket {
	if client == nil {
		return nil
	}
	return &bucket{client: client, script: redis.NewScript(takeScript)}
}

func (b *bucket) take(ctx context.Context, key string, rate float64, burst int) (Decision, error) {
	if b == nil || b.client == nil {
		return Decision{}, errBucketUnavailable
	}
	if key == "" || rate <= 0 || burst <= 0 {
		return Decision{}, fmt.Errorf("checkout bucket: invalid key %q rate %v burst %d", key, rate, burst)
	}

	reply, err := b.script.Run(ctx, b.client, []string{key},
		rate, burst, idleTTL(rate, burst).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(reply) != 3 {
		return Decision{}, fmt.Errorf("checkout bucket: unexpected reply %v", reply)
	}

	return Decision{
		Allowed:    reply[0] == 1,
		Remaining:  int(reply[1]),
		RetryAfter: time.Duration(reply[2]) * time.Millisecond,
	}, nil
}

// idleTTL keeps an untouched bucket around for twice the time it needs to
// refill completely.
func idleTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(2*float64(burst)/rate))
	return time.Duration(seconds) * time.Second
}
