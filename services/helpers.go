package services

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Dosada05/tournament-progression/locks"
	"github.com/Dosada05/tournament-progression/models"
)

// Notifier receives content events after a change has been committed.
type Notifier interface {
	Notify(contentID int, eventType string, payload any)
}

type noopNotifier struct{}

func (noopNotifier) Notify(int, string, any) {}

// RandFactory returns a random source for one draw. Sources are not shared
// between goroutines.
type RandFactory func() *rand.Rand

var seedMu sync.Mutex

// DefaultRand seeds every source from the clock.
func DefaultRand() *rand.Rand {
	seedMu.Lock()
	defer seedMu.Unlock()
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Common holds what every service needs besides its store.
type Common struct {
	Locker   locks.Locker
	Notifier Notifier
	Rand     RandFactory
	Logger   *slog.Logger
}

func (c Common) withDefaults() Common {
	if c.Locker == nil {
		c.Locker = locks.NewLocalLocker()
	}
	if c.Notifier == nil {
		c.Notifier = noopNotifier{}
	}
	if c.Rand == nil {
		c.Rand = DefaultRand
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// locked runs fn while holding keys.
func (c Common) locked(ctx context.Context, keys []string, fn func() error) error {
	unlock, err := c.Locker.Acquire(ctx, keys...)
	if err != nil {
		return classify(err)
	}
	defer unlock()
	return fn()
}

func intPtr(v int) *int {
	return &v
}

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// isKnockout reports whether the slot belongs to the knockout stage.
func isKnockout(s *models.Schedule) bool {
	return s != nil && s.Stage == models.StageKnockout
}
