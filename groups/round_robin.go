package groups

import "github.com/Dosada05/tournament-progression/models"

// Fixture is one pairing of the group round robin.
type Fixture struct {
	Round    int `json:"round"`
	Entry1ID int `json:"entry1_id"`
	Entry2ID int `json:"entry2_id"`
}

// RoundRobinFixtures pairs every entry of the group against every other once,
// using the circle method so that nobody plays twice in a round.
func RoundRobinFixtures(entries []*models.Entry) []Fixture {
	n := len(entries)
	if n < 2 {
		return nil
	}

	ids := make([]int, 0, n+1)
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	// 0 is the dummy opponent that gives a free round with an odd count.
	if n%2 != 0 {
		ids = append(ids, 0)
	}
	size := len(ids)
	half := size / 2

	fixtures := make([]Fixture, 0, n*(n-1)/2)
	for round := 1; round < size; round++ {
		for i := 0; i < half; i++ {
			a, b := ids[i], ids[size-1-i]
			if a == 0 || b == 0 {
				continue
			}
			fixtures = append(fixtures, Fixture{Round: round, Entry1ID: a, Entry2ID: b})
		}
		// Keep the first entry fixed and rotate the rest clockwise.
		last := ids[size-1]
		copy(ids[2:], ids[1:size-1])
		ids[1] = last
	}
	return fixtures
}
