// Package locks serialises critical sections by key. Every call to Acquire
// takes its keys in sorted order, so callers that need several keys must take
// them in one call.
package locks

import (
	"context"
	"errors"
	"slices"
	"strconv"
)

var ErrLockTimeout = errors.New("timeout acquiring lock")

// Unlock releases everything taken by one Acquire call.
type Unlock func()

type Locker interface {
	Acquire(ctx context.Context, keys ...string) (Unlock, error)
}

func ContentKey(contentID int) string { return "content:" + strconv.Itoa(contentID) }
func BracketKey(contentID int) string { return "bracket:" + strconv.Itoa(contentID) }
func MatchKey(matchID int) string { return "match:" + strconv.Itoa(matchID) }
func OfficialsKey(tournamentID int) string { return "officials:" + strconv.Itoa(tournamentID) }
func PlayerKey(playerID int) string { return "player:" + strconv.Itoa(playerID) }

// normalize sorts keys and drops duplicates.
func normalize(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// acquireAll takes keys one by one through take and, on failure, releases the
// ones already held.
func acquireAll(ctx context.Context, keys []string, take func(ctx context.Context, key string) (func(), error)) (Unlock, error) {
	keys = normalize(keys)
	held := make([]func(), 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	for _, key := range keys {
		r, err := take(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, r)
	}
	return release, nil
}
