// Package rating implements the Elo-style rating update applied after every
// completed match. It is pure arithmetic; persistence lives in the services.
package rating

import (
	"fmt"
	"math"

	"github.com/Dosada05/tournament-progression/models"
)

const (
	KFactor = 12
	scale   = 400.0
)

// Member is one rated participant of a side with its current rating.
type Member struct {
	PlayerID int `json:"player_id"`
	Rating   int `json:"rating"`
}

// Side is one entry of a match: its members and the number of sets it won.
type Side struct {
	EntryID int      `json:"entry_id"`
	Members []Member `json:"members"`
	SetsWon int      `json:"sets_won"`
}

// Change is the rating update computed for one participant.
type Change struct {
	PlayerID int     `json:"player_id"`
	EntryID  int     `json:"entry_id"`
	Previous int     `json:"previous_rating"`
	New      int     `json:"new_rating"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
	Margin   float64 `json:"margin_multiplier"`
}

func (c Change) Delta() int {
	return c.New - c.Previous
}

// ExpectedScore is the probability that a side rated ra beats a side rated rb.
func ExpectedScore(ra, rb float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (rb-ra)/scale))
}

// ActualScore is the share of sets won; zero when no set was played.
func ActualScore(setsWon, totalSets int) float64 {
	if totalSets == 0 {
		return 0
	}
	return float64(setsWon) / float64(totalSets)
}

// MarginMultiplier scales the update by how decisive the set score was.
func MarginMultiplier(setsWon, setsLost, totalSets int) float64 {
	if totalSets == 0 {
		return 1
	}
	diff := setsWon - setsLost
	if diff < 0 {
		diff = -diff
	}
	return 1 + float64(diff)/float64(totalSets)
}

// NewRating applies one update step and rounds to the nearest integer.
func NewRating(current int, margin, actual, expected float64) int {
	return int(math.Round(float64(current) + KFactor*margin*(actual-expected)))
}

// EntryRating is the arithmetic mean of the members' ratings.
func EntryRating(members []Member) float64 {
	if len(members) == 0 {
		return models.DefaultRating
	}
	sum := 0
	for _, m := range members {
		sum += m.Rating
	}
	return float64(sum) / float64(len(members))
}

// Calculate computes the changes for every member of both sides, side a first.
// All members of a side share the side's expected, actual and margin inputs.
func Calculate(a, b Side) []Change {
	total := a.SetsWon + b.SetsWon
	ra, rb := EntryRating(a.Members), EntryRating(b.Members)

	changes := make([]Change, 0, len(a.Members)+len(b.Members))
	changes = appendSide(changes, a, ExpectedScore(ra, rb), ActualScore(a.SetsWon, total), MarginMultiplier(a.SetsWon, b.SetsWon, total))
	changes = appendSide(changes, b, ExpectedScore(rb, ra), ActualScore(b.SetsWon, total), MarginMultiplier(b.SetsWon, a.SetsWon, total))
	return changes
}

func appendSide(changes []Change, side Side, expected, actual, margin float64) []Change {
	for _, m := range side.Members {
		changes = append(changes, Change{
			PlayerID: m.PlayerID,
			EntryID:  side.EntryID,
			Previous: m.Rating,
			New:      NewRating(m.Rating, margin, actual, expected),
			Expected: expected,
			Actual:   actual,
			Margin:   margin,
		})
	}
	return changes
}

// Reason is the audit text stored with each history row.
func Reason(matchID, setsA, setsB int) string {
	return fmt.Sprintf("match #%d final sets %d-%d", matchID, setsA, setsB)
}
