package services

import (
	"sync"
	"testing"

	"github.com/Dosada05/tournament-progression/models"
)

func TestPreviewMatchesFinalize(t *testing.T) {
	f := newFixture(t, 0, "")
	repos := f.store.Repositories()

	// doubles: 1100/900 against 1000/1000, first-seen players start at 1000
	pairs := [][]int{{1, 2}, {3, 4}}
	var entries []*models.Entry
	for _, members := range pairs {
		e := &models.Entry{ContentID: f.content.ID, Members: members}
		if err := repos.Entries.Create(f.ctx, e); err != nil {
			t.Fatal(err)
		}
		entries = append(entries, e)
	}
	for id, r := range map[int]int{1: 1100, 2: 900} {
		if err := repos.Ratings.Upsert(f.ctx, &models.RatingRecord{PlayerID: id, Rating: r}); err != nil {
			t.Fatal(err)
		}
	}

	m := f.groupMatch(entries[0], entries[1])
	svc := f.matches()
	if _, err := svc.StartMatch(f.ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	for _, s := range [][2]int{{11, 7}, {5, 11}, {11, 9}} {
		if _, err := svc.RecordSet(f.ctx, m.ID, s[0], s[1]); err != nil {
			t.Fatal(err)
		}
	}

	preview, err := f.ratings().PreviewRatingChanges(f.ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	stored, err := repos.Ratings.GetRatings(f.ctx, []int{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 || stored[1] != 1100 {
		t.Fatalf("preview changed stored ratings: %v", stored)
	}

	res, err := svc.FinalizeMatch(f.ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(preview) != 4 || len(res.RatingChanges) != 4 {
		t.Fatalf("expected 4 changes, got %d and %d", len(preview), len(res.RatingChanges))
	}
	for i := range preview {
		if preview[i] != res.RatingChanges[i] {
			t.Fatalf("preview %+v differs from applied %+v", preview[i], res.RatingChanges[i])
		}
	}

	// 2-1 between equal averages: 12 * (1 + 1/3) * (2/3 - 1/2) = 2.67
	stored, err = repos.Ratings.GetRatings(f.ctx, []int{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	want := map[int]int{1: 1103, 2: 903, 3: 997, 4: 997}
	for id, r := range want {
		if stored[id] != r {
			t.Fatalf("player %d: expected %d, got %d", id, r, stored[id])
		}
	}

	history, err := f.ratings().GetHistory(f.ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 || history[3].PreviousRating != 1000 || history[3].NewRating != 997 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestPreviewUnknownMatch(t *testing.T) {
	f := newFixture(t, 0, "")
	_, err := f.ratings().PreviewRatingChanges(f.ctx, 42)
	expectErr(t, err, ErrMatchNotFound, ErrNotFound)
}

// sharedPlayerMatches starts two running 2-0 matches in which player 100 takes
// part in both.
func sharedPlayerMatches(t *testing.T, f *fixture) []*models.Match {
	t.Helper()
	ms := []*models.Match{
		f.groupMatch(f.entries[0], f.entries[1]),
		f.groupMatch(f.entries[0], f.entries[2]),
	}
	svc := f.matches()
	for _, m := range ms {
		if _, err := svc.StartMatch(f.ctx, m.ID); err != nil {
			t.Fatal(err)
		}
		for _, s := range [][2]int{{11, 5}, {11, 5}} {
			if _, err := svc.RecordSet(f.ctx, m.ID, s[0], s[1]); err != nil {
				t.Fatal(err)
			}
		}
	}
	return ms
}

func TestConcurrentFinalizeSharedPlayer(t *testing.T) {
	seq := newFixture(t, 3, "")
	for _, m := range sharedPlayerMatches(t, seq) {
		if _, err := seq.matches().FinalizeMatch(seq.ctx, m.ID); err != nil {
			t.Fatal(err)
		}
	}
	want, err := seq.store.Repositories().Ratings.GetRatings(seq.ctx, []int{100})
	if err != nil {
		t.Fatal(err)
	}

	f := newFixture(t, 3, "")
	ms := sharedPlayerMatches(t, f)
	errs := make([]error, len(ms))
	var wg sync.WaitGroup
	for i, m := range ms {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.matches().FinalizeMatch(f.ctx, m.ID)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := f.store.Repositories().Ratings.GetRatings(f.ctx, []int{100})
	if err != nil {
		t.Fatal(err)
	}
	if got[100] != want[100] || got[100] <= 1000 {
		t.Fatalf("player 100 rated %d, sequential run gives %d", got[100], want[100])
	}

	var rows []*models.RatingHistoryEntry
	for _, m := range ms {
		history, err := f.ratings().GetHistory(f.ctx, m.ID)
		if err != nil {
			t.Fatal(err)
		}
		for _, h := range history {
			if h.PlayerID == 100 {
				rows = append(rows, h)
			}
		}
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 history rows for player 100, got %d", len(rows))
	}
	first, second := rows[0], rows[1]
	if first.PreviousRating != 1000 {
		first, second = second, first
	}
	if first.PreviousRating != 1000 || second.PreviousRating != first.NewRating || second.NewRating != got[100] {
		t.Fatalf("history rows do not chain: %+v then %+v", first, second)
	}
}
