package locks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLockTTL        = 30 * time.Second
	DefaultAcquireTimeout = 5 * time.Second

	maxBackoff = 500 * time.Millisecond
)

var ErrLockNotHeld = errors.New("lock not held by this instance")

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker holds locks as Redis keys so that several server instances
// share them. A lock expires after its TTL if the holder dies.
type RedisLocker struct {
	client         *redis.Client
	instanceID     string
	ttl            time.Duration
	acquireTimeout time.Duration
	logger         *slog.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{
		client:         client,
		instanceID:     uuid.New().String(),
		ttl:            ttl,
		acquireTimeout: DefaultAcquireTimeout,
		logger:         logger,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (Unlock, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, l.acquireTimeout)
	defer cancel()
	return acquireAll(acquireCtx, keys, l.take)
}

func (l *RedisLocker) take(ctx context.Context, key string) (func(), error) {
	lockKey := "lock:" + key
	value := fmt.Sprintf("%s:%s", l.instanceID, uuid.New().String())

	for attempt := 0; ; attempt++ {
		acquired, err := l.client.SetNX(ctx, lockKey, value, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			l.logger.Warn("redis lock attempt failed", slog.String("key", lockKey), slog.Int("attempt", attempt+1), slog.Any("error", err))
		}
		if err == nil && acquired {
			acquiredAt := time.Now()
			return func() { l.release(lockKey, value, acquiredAt) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w %s after %d attempts", ErrLockTimeout, key, attempt+1)
		case <-time.After(backoff(attempt)):
		}
	}
}

// release deletes the key only if it still holds our value, so a lock that
// expired and was taken by someone else is left alone.
func (l *RedisLocker) release(lockKey, value string, acquiredAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := releaseScript.Run(ctx, l.client, []string{lockKey}, value).Int64()
	switch {
	case err != nil:
		l.logger.Error("failed to release redis lock", slog.String("key", lockKey), slog.Any("error", err))
	case result == 0:
		l.logger.Warn("redis lock expired before release", slog.String("key", lockKey),
			slog.Duration("held", time.Since(acquiredAt)), slog.Any("error", ErrLockNotHeld))
	}
}

// backoff grows 25ms, 50ms, 100ms, ... up to maxBackoff.
func backoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	return min(time.Duration(25<<attempt)*time.Millisecond, maxBackoff)
}
