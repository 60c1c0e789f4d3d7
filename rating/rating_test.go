package rating

import (
	"math"
	"testing"
)

func TestExpectedScoreEqualRatings(t *testing.T) {
	if got := ExpectedScore(1000, 1000); got != 0.5 {
		t.Fatalf("expected 0.5 for equal ratings, got %v", got)
	}
	hi, lo := ExpectedScore(1400, 1000), ExpectedScore(1000, 1400)
	if math.Abs(hi+lo-1) > 1e-9 {
		t.Fatalf("expected scores of opposing sides must sum to 1, got %v + %v", hi, lo)
	}
	if hi <= 0.9 {
		t.Fatalf("a 400 point favourite should expect ~0.91, got %v", hi)
	}
}

func TestActualAndMarginWithoutSets(t *testing.T) {
	if ActualScore(0, 0) != 0 {
		t.Fatal("actual score without sets should be 0")
	}
	if MarginMultiplier(0, 0, 0) != 1 {
		t.Fatal("margin multiplier without sets should be 1")
	}
	if got := MarginMultiplier(2, 1, 3); math.Abs(got-4.0/3.0) > 1e-9 {
		t.Fatalf("margin for 2-1 should be 4/3, got %v", got)
	}
}

func TestCalculateStraightSetsWin(t *testing.T) {
	a := Side{EntryID: 1, Members: []Member{{PlayerID: 10, Rating: 1000}}, SetsWon: 2}
	b := Side{EntryID: 2, Members: []Member{{PlayerID: 20, Rating: 1000}}, SetsWon: 0}

	changes := Calculate(a, b)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Delta() != 12 || changes[0].New != 1012 {
		t.Fatalf("winner should gain 12, got %+v", changes[0])
	}
	if changes[1].Delta() != -12 || changes[1].New != 988 {
		t.Fatalf("loser should lose 12, got %+v", changes[1])
	}
	if changes[0].Margin != 2 || changes[0].Actual != 1 || changes[0].Expected != 0.5 {
		t.Fatalf("unexpected inputs for winner: %+v", changes[0])
	}
}

func TestCalculatePairsUseMeanRating(t *testing.T) {
	a := Side{EntryID: 1, Members: []Member{{PlayerID: 1, Rating: 1200}, {PlayerID: 2, Rating: 800}}, SetsWon: 1}
	b := Side{EntryID: 2, Members: []Member{{PlayerID: 3, Rating: 1000}, {PlayerID: 4, Rating: 1000}}, SetsWon: 2}

	changes := Calculate(a, b)
	if len(changes) != 4 {
		t.Fatalf("expected one change per member, got %d", len(changes))
	}
	// Both pairs average 1000, so every member sees expected 0.5.
	for _, c := range changes {
		if c.Expected != 0.5 {
			t.Fatalf("member %d: expected 0.5, got %v", c.PlayerID, c.Expected)
		}
	}
	// Same inputs for team-mates means the same delta.
	if changes[0].Delta() != changes[1].Delta() {
		t.Fatalf("team-mates got different deltas: %d vs %d", changes[0].Delta(), changes[1].Delta())
	}
	// actual 1/3, margin 1+1/3: 12 * 4/3 * (1/3 - 1/2) = -2.67 -> -3
	if changes[0].Delta() != -3 {
		t.Fatalf("expected -3 for the losing pair, got %d", changes[0].Delta())
	}
	if changes[2].Delta() != 3 {
		t.Fatalf("expected +3 for the winning pair, got %d", changes[2].Delta())
	}
}

func TestEntryRatingDefaultsWhenEmpty(t *testing.T) {
	if EntryRating(nil) != 1000 {
		t.Fatal("an entry without rated members should default to 1000")
	}
}
