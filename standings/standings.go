// Package standings aggregates round-robin results into group tables and
// orders them with the group-stage tie-break rules.
package standings

import (
	"slices"

	"github.com/Dosada05/tournament-progression/models"
)

// Outcome is a completed group-stage match seen from the standings' side.
type Outcome struct {
	ContentID  int
	GroupName  string
	WinnerID   int
	LoserID    int
	WinnerSets int
	LoserSets  int
}

// Table holds the standings of one group keyed by entry ID.
type Table map[int]models.GroupStanding

// Apply folds one outcome into the table and returns the updated table.
// The input table is not modified. Rows are created zeroed on first touch.
func Apply(t Table, o Outcome) Table {
	next := make(Table, len(t)+2)
	for id, row := range t {
		next[id] = row
	}

	winner := next.row(o.ContentID, o.GroupName, o.WinnerID)
	winner.MatchesPlayed++
	winner.MatchesWon++
	winner.SetsWon += o.WinnerSets
	winner.SetsLost += o.LoserSets
	winner.SetsDiff = winner.SetsWon - winner.SetsLost
	next[o.WinnerID] = winner

	loser := next.row(o.ContentID, o.GroupName, o.LoserID)
	loser.MatchesPlayed++
	loser.MatchesLost++
	loser.SetsWon += o.LoserSets
	loser.SetsLost += o.WinnerSets
	loser.SetsDiff = loser.SetsWon - loser.SetsLost
	next[o.LoserID] = loser

	return next
}

func (t Table) row(contentID int, group string, entryID int) models.GroupStanding {
	if row, ok := t[entryID]; ok {
		return row
	}
	return models.GroupStanding{ContentID: contentID, GroupName: group, EntryID: entryID}
}

// HeadToHead records the winner of each completed group match, keyed by the
// unordered pair of entries.
type HeadToHead map[[2]int]int

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// Record stores the result of a match between a and b.
func (h HeadToHead) Record(a, b, winner int) {
	h[pairKey(a, b)] = winner
}

// Winner returns the winner of the match between a and b, if one was played.
func (h HeadToHead) Winner(a, b int) (int, bool) {
	w, ok := h[pairKey(a, b)]
	return w, ok
}

// BuildHeadToHead collects head-to-head results from completed matches.
func BuildHeadToHead(matches []*models.Match) HeadToHead {
	h := make(HeadToHead)
	for _, m := range matches {
		if m.Status != models.MatchStatusCompleted || m.WinnerEntryID == nil {
			continue
		}
		h.Record(m.Entry1ID, m.Entry2ID, *m.WinnerEntryID)
	}
	return h
}

// Rank orders the rows of one group and assigns 1-based positions.
//
// Priority: matches won, set difference, head-to-head winner, then the
// incoming order. The input slice is not reordered.
func Rank(rows []models.GroupStanding, h2h HeadToHead) []models.GroupStanding {
	if len(rows) == 0 {
		return nil
	}
	ranked := slices.Clone(rows)
	slices.SortStableFunc(ranked, func(a, b models.GroupStanding) int {
		if a.MatchesWon != b.MatchesWon {
			return b.MatchesWon - a.MatchesWon
		}
		if a.SetsDiff != b.SetsDiff {
			return b.SetsDiff - a.SetsDiff
		}
		if w, ok := h2h.Winner(a.EntryID, b.EntryID); ok {
			switch w {
			case a.EntryID:
				return -1
			case b.EntryID:
				return 1
			}
		}
		return 0
	})
	for i := range ranked {
		pos := i + 1
		ranked[i].Position = &pos
	}
	return ranked
}
