package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultLockTTL = 10 * time.Second

var ErrLockHeld = errors.New("name lock is held by another request")

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NameLock serializes writes that claim a user name. It closes the gap
// between the uniqueness query and the insert.
type NameLock struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewNameLock(client *redis.Client, ttl time.Duration) *NameLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &NameLock{
		client: client,
		ttl:    ttl,
		wait:   ttl,
		retry:  50 * time.Millisecond,
	}
}

// Acquire blocks until the lock for name is held, ctx is done or the wait
// budget runs out. The returned func releases the lock.
func (l *NameLock) Acquire(ctx context.Context, name string) (func(), error) {
	key := NameLockKey(name)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire name lock: %w", err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrLockHeld
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// release runs on a fresh context so a cancelled request still unlocks.
// On failure the lock expires after its TTL.
func (l *NameLock) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to release name lock")
	}
}

func NameLockKey(name string) string {
	return fmt.Sprintf("user:lock:%s", name)
}
