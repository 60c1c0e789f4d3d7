package brackets

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/Dosada05/tournament-progression/models"
)

func makeEntries(n int, teamOf func(i int) int) []*models.Entry {
	entries := make([]*models.Entry, n)
	for i := range entries {
		entries[i] = &models.Entry{ID: i + 1, ContentID: 1, TeamID: teamOf(i)}
	}
	return entries
}

func noTeam(int) int { return 0 }

// seatedEntries maps every first round entry to the half it was seated in.
func seatedEntries(t *testing.T, tree *Tree) map[int]string {
	t.Helper()
	seated := make(map[int]string)
	for _, n := range tree.Round(1) {
		side := "top"
		if n.Position > tree.Size/4 {
			side = "bottom"
		}
		for _, e := range []*int{n.EntryAID, n.EntryBID} {
			if e == nil {
				continue
			}
			if _, dup := seated[*e]; dup {
				t.Fatalf("entry %d seated twice", *e)
			}
			seated[*e] = side
		}
	}
	return seated
}

func TestBuildFromSeedsProperties(t *testing.T) {
	for _, n := range []int{12, 15, 16, 17, 31, 64, 100, 200, 256} {
		for seed := int64(1); seed <= 5; seed++ {
			entries := makeEntries(n, noTeam)
			tree, err := BuildFromSeeds(1, entries, rand.New(rand.NewSource(seed)))
			if err != nil {
				t.Fatalf("n=%d: %v", n, err)
			}

			switch tree.Size {
			case 16, 32, 64, 128, 256:
			default:
				t.Fatalf("n=%d: bracket size %d", n, tree.Size)
			}
			first := tree.Round(1)
			if len(first) != tree.Size/2 {
				t.Fatalf("n=%d: %d first round nodes, want %d", n, len(first), tree.Size/2)
			}

			byes := 0
			for _, node := range first {
				if node.IsBye {
					byes++
					if node.Status != models.NodeCompleted || node.WinnerEntryID == nil {
						t.Fatalf("n=%d: bye node %d not completed", n, node.ID)
					}
				}
				if node.EntryAID == nil && node.EntryBID == nil {
					t.Fatalf("n=%d: empty first round node %d", n, node.ID)
				}
			}
			if byes != tree.Size-n {
				t.Fatalf("n=%d: %d byes, want %d", n, byes, tree.Size-n)
			}
			if got := len(seatedEntries(t, tree)); got != n {
				t.Fatalf("n=%d: %d entries seated", n, got)
			}
			if err := tree.Validate(); err != nil {
				t.Fatalf("n=%d: %v", n, err)
			}
		}
	}
}

func TestBuildFromSeedsPropagatesByes(t *testing.T) {
	tree, err := BuildFromSeeds(1, makeEntries(12, noTeam), rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range tree.Round(1) {
		if !n.IsBye {
			continue
		}
		next, _ := tree.Node(*n.NextNodeID)
		if !next.HasEntry(*n.WinnerEntryID) {
			t.Fatalf("bye winner %d missing from node %d", *n.WinnerEntryID, next.ID)
		}
	}
}

func TestBuildFromSeedsSplitsTeams(t *testing.T) {
	// Team 1 has four entries, team 2 has three.
	teamOf := func(i int) int {
		switch {
		case i < 4:
			return 1
		case i < 7:
			return 2
		default:
			return 0
		}
	}
	for seed := int64(1); seed <= 20; seed++ {
		entries := makeEntries(20, teamOf)
		tree, err := BuildFromSeeds(1, entries, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatal(err)
		}
		seated := seatedEntries(t, tree)
		counts := map[int]map[string]int{1: {}, 2: {}}
		for _, e := range entries {
			if e.TeamID != 0 {
				counts[e.TeamID][seated[e.ID]]++
			}
		}
		if counts[1]["top"] != 2 || counts[1]["bottom"] != 2 {
			t.Errorf("seed %d: team 1 split %v", seed, counts[1])
		}
		if counts[2]["top"] != 2 || counts[2]["bottom"] != 1 {
			t.Errorf("seed %d: team 2 split %v", seed, counts[2])
		}
	}
}

func TestBuildFromSeedsErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := BuildFromSeeds(1, makeEntries(11, noTeam), rng); !errors.Is(err, ErrBracketTooSmall) {
		t.Errorf("expected ErrBracketTooSmall, got %v", err)
	}
	if _, err := BuildFromSeeds(1, makeEntries(257, noTeam), rng); !errors.Is(err, ErrBracketTooLarge) {
		t.Errorf("expected ErrBracketTooLarge, got %v", err)
	}
}

func groupResults(groups, perGroup int) []GroupResult {
	out := make([]GroupResult, groups)
	id := 1
	for g := range out {
		out[g].Name = string(rune('A' + g))
		for i := 0; i < perGroup; i++ {
			out[g].Ranked = append(out[g].Ranked, id)
			id++
		}
	}
	return out
}

func TestBuildFromGroupResults(t *testing.T) {
	// Six groups give twelve qualifiers: a bracket of 16 with four byes.
	groups := groupResults(6, 4)
	firsts := make(map[int]bool)
	for _, g := range groups {
		firsts[g.Ranked[0]] = true
	}

	for seed := int64(1); seed <= 10; seed++ {
		tree, err := BuildFromGroupResults(1, groups, Options{}, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatal(err)
		}
		if tree.Size != 16 {
			t.Fatalf("size %d, want 16", tree.Size)
		}
		if err := tree.Validate(); err != nil {
			t.Fatal(err)
		}

		seated := seatedEntries(t, tree)
		if len(seated) != 12 {
			t.Fatalf("%d qualifiers seated, want 12", len(seated))
		}

		byes := map[string]int{}
		for _, n := range tree.Round(1) {
			if !n.IsBye {
				continue
			}
			if !firsts[*n.WinnerEntryID] {
				t.Fatalf("seed %d: bye given to non-winner %d", seed, *n.WinnerEntryID)
			}
			byes[seated[*n.WinnerEntryID]]++
		}
		if byes["top"] != 2 || byes["bottom"] != 2 {
			t.Fatalf("seed %d: byes split %v", seed, byes)
		}
	}
}

func TestBuildFromGroupResultsSmall(t *testing.T) {
	// Two groups of two: four qualifiers make a semi-final bracket.
	tree, err := BuildFromGroupResults(1, groupResults(2, 2), Options{}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	if tree.Size != 4 || tree.Rounds() != 2 {
		t.Fatalf("size %d rounds %d", tree.Size, tree.Rounds())
	}
	if name := tree.Round(1)[0].RoundName; name != "Semi-final" {
		t.Fatalf("round name %q", name)
	}
}

func TestBuildFromGroupResultsOddByes(t *testing.T) {
	// Five groups of two: ten qualifiers, sixteen slots, six byes for five winners.
	groups := groupResults(5, 2)
	for seed := int64(1); seed <= 10; seed++ {
		tree, err := BuildFromGroupResults(1, groups, Options{}, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatal(err)
		}
		byes, top := 0, 0
		for _, n := range tree.Round(1) {
			if n.IsBye {
				byes++
				if n.Position <= tree.Size/4 {
					top++
				}
			}
		}
		if byes != 6 || top != 3 {
			t.Fatalf("seed %d: %d byes, %d in the top half", seed, byes, top)
		}
	}
}

func TestBuildFromGroupResultsSeparatesQualifiers(t *testing.T) {
	groups := groupResults(8, 3)
	for seed := int64(1); seed <= 10; seed++ {
		tree, err := BuildFromGroupResults(1, groups, Options{SeparateGroupQualifiers: true}, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatal(err)
		}
		seated := seatedEntries(t, tree)
		for _, g := range groups {
			if seated[g.Ranked[0]] == seated[g.Ranked[1]] {
				t.Fatalf("seed %d: group %s qualifiers share the %s half", seed, g.Name, seated[g.Ranked[0]])
			}
		}
	}
}

func TestBuildFromGroupResultsTooFew(t *testing.T) {
	groups := []GroupResult{{Name: "A", Ranked: []int{1, 2}}, {Name: "B", Ranked: []int{3}}}
	if _, err := BuildFromGroupResults(1, groups, Options{}, rand.New(rand.NewSource(1))); !errors.Is(err, ErrBracketTooSmall) {
		t.Fatalf("expected ErrBracketTooSmall, got %v", err)
	}
}
