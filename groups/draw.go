package groups

import (
	"fmt"
	"slices"

	"github.com/Dosada05/tournament-progression/models"
)

// Randomizer is the source of randomness for the draw. *rand.Rand satisfies it.
type Randomizer interface {
	Shuffle(n int, swap func(i, j int))
}

// Group is one drawn group.
type Group struct {
	Name     string          `json:"name"`
	Capacity int             `json:"capacity"`
	Entries  []*models.Entry `json:"entries"`
}

func (g *Group) hasTeam(teamID int) bool {
	for _, e := range g.Entries {
		if e.TeamID == teamID {
			return true
		}
	}
	return false
}

func (g *Group) full() bool {
	return len(g.Entries) >= g.Capacity
}

// GroupName returns the name of the i-th group: A..Z, then AA, AB, ...
func GroupName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}

type team struct {
	id      int
	entries []*models.Entry
}

// Draw assigns every entry to exactly one group of the layout.
//
// Entries of a team with fewer entries than there are groups end up in
// distinct groups. Those teams are seated first, largest first, each entry
// going to the least-filled group without a team-mate. Everything else is
// shuffled and poured into the groups in order.
func Draw(entries []*models.Entry, layout Layout, rng Randomizer) ([]Group, error) {
	if len(entries) != layout.Total() {
		return nil, fmt.Errorf("%w: %d entries for %d slots", ErrLayoutMismatch, len(entries), layout.Total())
	}

	groups := make([]Group, layout.GroupCount)
	for i := range groups {
		groups[i] = Group{Name: GroupName(i), Capacity: layout.Sizes[i], Entries: make([]*models.Entry, 0, layout.Sizes[i])}
	}

	constrained, pool := partitionTeams(entries, layout.GroupCount)
	for _, t := range constrained {
		for _, e := range t.entries {
			g := leastFilled(groups, t.id)
			groups[g].Entries = append(groups[g].Entries, e)
		}
	}

	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	next := 0
	for i := range groups {
		for !groups[i].full() {
			groups[i].Entries = append(groups[i].Entries, pool[next])
			next++
		}
	}

	return groups, nil
}

// partitionTeams splits entries into teams that must be spread (2 <= size < groupCount),
// ordered largest first, and the pool of all other entries.
func partitionTeams(entries []*models.Entry, groupCount int) ([]team, []*models.Entry) {
	order := make([]int, 0)
	byTeam := make(map[int][]*models.Entry)
	pool := make([]*models.Entry, 0, len(entries))

	for _, e := range entries {
		if e.TeamID == 0 {
			pool = append(pool, e)
			continue
		}
		if _, seen := byTeam[e.TeamID]; !seen {
			order = append(order, e.TeamID)
		}
		byTeam[e.TeamID] = append(byTeam[e.TeamID], e)
	}

	constrained := make([]team, 0)
	for _, id := range order {
		members := byTeam[id]
		if len(members) > 1 && len(members) < groupCount {
			constrained = append(constrained, team{id: id, entries: members})
		} else {
			pool = append(pool, members...)
		}
	}
	slices.SortStableFunc(constrained, func(a, b team) int {
		return len(b.entries) - len(a.entries)
	})
	return constrained, pool
}

// leastFilled returns the index of the emptiest group that has room and no entry
// of teamID, ties going to the earlier group. If every open group already holds
// a team-mate it falls back to the emptiest open group.
func leastFilled(groups []Group, teamID int) int {
	best, fallback := -1, -1
	for i := range groups {
		g := &groups[i]
		if g.full() {
			continue
		}
		if fallback < 0 || len(g.Entries) < len(groups[fallback].Entries) {
			fallback = i
		}
		if g.hasTeam(teamID) {
			continue
		}
		if best < 0 || len(g.Entries) < len(groups[best].Entries) {
			best = i
		}
	}
	if best < 0 {
		return fallback
	}
	return best
}
