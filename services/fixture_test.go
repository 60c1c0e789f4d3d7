package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"

	"github.com/Dosada05/tournament-progression/locks"
	"github.com/Dosada05/tournament-progression/models"
	"github.com/Dosada05/tournament-progression/repositories"
	"github.com/Dosada05/tournament-progression/repositories/inmem"
)

const testTournamentID = 7

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(_ int, eventType string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
}

func (n *recordingNotifier) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e == eventType {
			c++
		}
	}
	return c
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *inmem.Store
	content  *models.Content
	entries  []*models.Entry
	notifier *recordingNotifier
	common   Common
}

// newFixture seeds one content with n solo entries and four officials.
func newFixture(t *testing.T, n int, settings string) *fixture {
	t.Helper()
	ctx := context.Background()
	st := inmem.NewStore()
	repos := st.Repositories()

	content := &models.Content{TournamentID: testTournamentID, Name: "Men's Singles"}
	if settings != "" {
		content.SettingsJSON = &settings
	}
	if err := repos.Contents.Create(ctx, content); err != nil {
		t.Fatal(err)
	}

	entries := make([]*models.Entry, n)
	for i := range entries {
		e := &models.Entry{ContentID: content.ID, Members: []int{100 + i}}
		if err := repos.Entries.Create(ctx, e); err != nil {
			t.Fatal(err)
		}
		entries[i] = e
	}
	for i := 0; i < 4; i++ {
		o := &models.Official{TournamentID: testTournamentID, Name: "Umpire", Available: true}
		if err := repos.Officials.Create(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	notifier := &recordingNotifier{}
	var seed int64
	var seedMu sync.Mutex
	return &fixture{
		t:        t,
		ctx:      ctx,
		store:    st,
		content:  content,
		entries:  entries,
		notifier: notifier,
		common: Common{
			Locker:   locks.NewLocalLocker(),
			Notifier: notifier,
			Rand: func() *rand.Rand {
				seedMu.Lock()
				defer seedMu.Unlock()
				seed++
				return rand.New(rand.NewSource(seed))
			},
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	}
}

func (f *fixture) groups() GroupService { return NewGroupService(f.store, f.common) }
func (f *fixture) brackets() BracketService { return NewBracketService(f.store, nil, f.common) }
func (f *fixture) matches() MatchService { return NewMatchService(f.store, f.common) }
func (f *fixture) ratings() RatingService { return NewRatingService(f.store, f.common) }

// groupMatch schedules a group A match between two entries outside any draw.
func (f *fixture) groupMatch(e1, e2 *models.Entry) *models.Match {
	f.t.Helper()
	repos := f.store.Repositories()
	sc := &models.Schedule{ContentID: f.content.ID, Stage: models.StageGroup, GroupName: strPtr("A")}
	if err := repos.Schedules.Create(f.ctx, sc); err != nil {
		f.t.Fatal(err)
	}
	m := &models.Match{ContentID: f.content.ID, ScheduleID: sc.ID, Entry1ID: e1.ID, Entry2ID: e2.ID, Status: models.StatusScheduled}
	if err := repos.Matches.Create(f.ctx, m); err != nil {
		f.t.Fatal(err)
	}
	return m
}

// play starts a match, records the sets and finalizes it.
func (f *fixture) play(matchID int, sets ...[2]int) *FinalizeResult {
	f.t.Helper()
	svc := f.matches()
	if _, err := svc.StartMatch(f.ctx, matchID); err != nil {
		f.t.Fatalf("start match %d: %v", matchID, err)
	}
	for _, s := range sets {
		if _, err := svc.RecordSet(f.ctx, matchID, s[0], s[1]); err != nil {
			f.t.Fatalf("record set on match %d: %v", matchID, err)
		}
	}
	res, err := svc.FinalizeMatch(f.ctx, matchID)
	if err != nil {
		f.t.Fatalf("finalize match %d: %v", matchID, err)
	}
	return res
}

// scheduled returns the scheduled matches of the fixture's content.
func (f *fixture) scheduled(stage models.Stage) []*models.Match {
	f.t.Helper()
	all, err := f.store.Repositories().Matches.ListByContent(f.ctx, f.content.ID, &stage)
	if err != nil {
		f.t.Fatal(err)
	}
	var out []*models.Match
	for _, m := range all {
		if m.Status == models.StatusScheduled {
			out = append(out, m)
		}
	}
	return out
}

func expectErr(t *testing.T, err error, targets ...error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error matching %v, got nil", targets)
	}
	for _, target := range targets {
		if !errors.Is(err, target) {
			t.Fatalf("expected %v to match %v", err, target)
		}
	}
}

var errBoom = errors.New("boom")

type failingRatings struct {
	repositories.RatingRepository
}

func (failingRatings) AddHistory(context.Context, *models.RatingHistoryEntry) error {
	return errBoom
}

// failingStore breaks rating history writes inside transactions.
type failingStore struct {
	*inmem.Store
}

func (s failingStore) RunInTx(ctx context.Context, fn func(r repositories.Repositories) error) error {
	return s.Store.RunInTx(ctx, func(r repositories.Repositories) error {
		r.Ratings = failingRatings{r.Ratings}
		return fn(r)
	})
}
