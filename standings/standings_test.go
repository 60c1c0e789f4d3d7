package standings

import (
	"testing"

	"github.com/Dosada05/tournament-progression/models"
)

func TestApplyCreatesAndAccumulatesRows(t *testing.T) {
	table := Table{}
	table = Apply(table, Outcome{ContentID: 1, GroupName: "A", WinnerID: 10, LoserID: 20, WinnerSets: 2, LoserSets: 1})
	table = Apply(table, Outcome{ContentID: 1, GroupName: "A", WinnerID: 20, LoserID: 30, WinnerSets: 2, LoserSets: 0})

	a := table[10]
	if a.MatchesPlayed != 1 || a.MatchesWon != 1 || a.MatchesLost != 0 || a.SetsWon != 2 || a.SetsLost != 1 || a.SetsDiff != 1 {
		t.Fatalf("unexpected row for winner: %+v", a)
	}
	b := table[20]
	if b.MatchesPlayed != 2 || b.MatchesWon != 1 || b.MatchesLost != 1 || b.SetsWon != 3 || b.SetsLost != 2 || b.SetsDiff != 1 {
		t.Fatalf("unexpected row for entry 20: %+v", b)
	}
	c := table[30]
	if c.MatchesPlayed != 1 || c.MatchesLost != 1 || c.SetsDiff != -2 || c.GroupName != "A" || c.ContentID != 1 {
		t.Fatalf("unexpected row for entry 30: %+v", c)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	before := Table{10: {EntryID: 10, MatchesWon: 1, MatchesPlayed: 1}}
	_ = Apply(before, Outcome{WinnerID: 10, LoserID: 20, WinnerSets: 2})
	if before[10].MatchesWon != 1 || len(before) != 1 {
		t.Fatal("Apply modified its input table")
	}
}

func TestRankOrdersByWinsThenSetDiff(t *testing.T) {
	rows := []models.GroupStanding{
		{EntryID: 1, MatchesWon: 1, SetsDiff: 0},
		{EntryID: 2, MatchesWon: 2, SetsDiff: 1},
		{EntryID: 3, MatchesWon: 1, SetsDiff: 3},
	}
	ranked := Rank(rows, nil)
	want := []int{2, 3, 1}
	for i, id := range want {
		if ranked[i].EntryID != id || *ranked[i].Position != i+1 {
			t.Fatalf("position %d: want entry %d, got %d (pos %v)", i+1, id, ranked[i].EntryID, *ranked[i].Position)
		}
	}
	if rows[0].Position != nil {
		t.Fatal("Rank assigned positions on its input")
	}
}

func TestRankHeadToHeadBreaksTie(t *testing.T) {
	rows := []models.GroupStanding{
		{EntryID: 7, MatchesWon: 2, SetsDiff: 2}, // Y
		{EntryID: 9, MatchesWon: 2, SetsDiff: 2}, // X
	}
	h2h := HeadToHead{}
	h2h.Record(7, 9, 9)

	ranked := Rank(rows, h2h)
	if ranked[0].EntryID != 9 {
		t.Fatalf("head-to-head winner should rank first, got %d", ranked[0].EntryID)
	}
}

func TestRankKeepsInsertionOrderWhenTied(t *testing.T) {
	rows := []models.GroupStanding{{EntryID: 5}, {EntryID: 3}, {EntryID: 4}}
	ranked := Rank(rows, HeadToHead{})
	for i, id := range []int{5, 3, 4} {
		if ranked[i].EntryID != id {
			t.Fatalf("tied rows lost their order: %v", ranked)
		}
	}
}

func TestRankIsIdempotent(t *testing.T) {
	rows := []models.GroupStanding{
		{EntryID: 1, MatchesWon: 1, SetsDiff: 1},
		{EntryID: 2, MatchesWon: 1, SetsDiff: 1},
		{EntryID: 3, MatchesWon: 2, SetsDiff: 3},
		{EntryID: 4, MatchesWon: 0, SetsDiff: -5},
	}
	h2h := HeadToHead{}
	h2h.Record(1, 2, 2)

	first := Rank(rows, h2h)
	second := Rank(rows, h2h)
	for i := range first {
		if first[i].EntryID != second[i].EntryID || *first[i].Position != *second[i].Position {
			t.Fatalf("rank is not idempotent at %d: %d vs %d", i, first[i].EntryID, second[i].EntryID)
		}
	}
}

func TestRankEmptyGroup(t *testing.T) {
	if got := Rank(nil, nil); len(got) != 0 {
		t.Fatalf("ranking an empty group should be a no-op, got %v", got)
	}
}

func TestBuildHeadToHeadSkipsUnfinished(t *testing.T) {
	winner := 1
	matches := []*models.Match{
		{Entry1ID: 1, Entry2ID: 2, Status: models.MatchStatusCompleted, WinnerEntryID: &winner},
		{Entry1ID: 1, Entry2ID: 3, Status: models.StatusInProgress},
	}
	h2h := BuildHeadToHead(matches)
	if w, ok := h2h.Winner(2, 1); !ok || w != 1 {
		t.Fatal("completed match missing from head-to-head")
	}
	if _, ok := h2h.Winner(1, 3); ok {
		t.Fatal("unfinished match should not count")
	}
}
