package locks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatal(err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLockerExclusive(t *testing.T) {
	client := redisClient(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewRedisLocker(client, time.Second, logger)
	b := NewRedisLocker(client, time.Second, logger)
	b.acquireTimeout = 100 * time.Millisecond

	key := "test:" + t.Name()
	unlock, err := a.Acquire(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Acquire(context.Background(), key); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	unlock()

	unlock, err = b.Acquire(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	unlock()
}

func TestBackoff(t *testing.T) {
	if backoff(0) != 25*time.Millisecond || backoff(2) != 100*time.Millisecond {
		t.Fatalf("unexpected backoff %v %v", backoff(0), backoff(2))
	}
	if backoff(10) != maxBackoff {
		t.Fatalf("backoff not capped: %v", backoff(10))
	}
}
