package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// unlockScript deletes the lock only while it still carries our token, so a
// holder whose lease expired cannot free somebody else's lock.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release frees a lock taken by invoiceLock.acquire.
type Release func(ctx context.Context) error

func noRelease(context.Context) error { return nil }

type invoiceLock struct {
	client *redis.Client
	lease  time.Duration
}

func (l *invoiceLock) acquire(ctx context.Context, key string) (Release, bool, error) {
	if l == nil || l.client == nil {
		return noRelease, true, nil
	}
	if key == "" {
		return noRelease, false, errors.New("invoice lock: empty key")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
	if err != nil || !ok {
		return noRelease, false, err
	}
	return func(ctx context.Context) error {
		return unlockScript.Run(ctx, l.client, []string{key}, token).Err()
	}, true, nil
}
