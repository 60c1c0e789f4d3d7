package brackets

import (
	"github.com/Dosada05/tournament-progression/models"
)

// Randomizer is the source of randomness for seeding. *rand.Rand satisfies it.
type Randomizer interface {
	Shuffle(n int, swap func(i, j int))
	Intn(n int) int
	Perm(n int) []int
}

// half is one side of the first round: the entries seated in it and which of
// its pairs hold a single entry.
type half struct {
	pairs    int
	byePairs []bool
	byes     []int // entries that receive a bye
	entries  []int
}

func newHalf(pairs int) *half {
	return &half{pairs: pairs, byePairs: make([]bool, pairs)}
}

func (h *half) byeCount() int {
	c := 0
	for _, b := range h.byePairs {
		if b {
			c++
		}
	}
	return c
}

// capacity is how many entries the half seats in total.
func (h *half) capacity() int {
	return 2*h.pairs - h.byeCount()
}

func (h *half) free() int {
	return h.capacity() - len(h.byes) - len(h.entries)
}

// markByes flags n random pairs of the half as byes.
func (h *half) markByes(n int, rng Randomizer) {
	for _, p := range rng.Perm(h.pairs)[:n] {
		h.byePairs[p] = true
	}
}

// seat lays the half out as slots, two per pair. A bye pair holds one entry on a
// random side.
func (h *half) seat(rng Randomizer) []*int {
	slots := make([]*int, 0, 2*h.pairs)
	byes, entries := h.byes, h.entries
	for p := 0; p < h.pairs; p++ {
		if h.byePairs[p] {
			e := intPtr(byes[0])
			byes = byes[1:]
			if rng.Intn(2) == 0 {
				slots = append(slots, e, nil)
			} else {
				slots = append(slots, nil, e)
			}
			continue
		}
		slots = append(slots, intPtr(entries[0]), intPtr(entries[1]))
		entries = entries[2:]
	}
	return slots
}

func shuffleInts(s []int, rng Randomizer) {
	rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// BuildFromSeeds draws a fresh bracket for entries.
//
// Byes are spread over random first round pairs, at most one per pair. Entries
// of a team with several entries are split between the two halves, the larger
// share going to the top. Each half is shuffled before pairing.
func BuildFromSeeds(contentID int, entries []*models.Entry, rng Randomizer) (*Tree, error) {
	size, err := BracketSize(len(entries))
	if err != nil {
		return nil, err
	}

	top, bottom := newHalf(size/4), newHalf(size/4)
	for _, p := range rng.Perm(size / 2)[:size-len(entries)] {
		if p < top.pairs {
			top.byePairs[p] = true
		} else {
			bottom.byePairs[p-top.pairs] = true
		}
	}

	shuffled := make([]*models.Entry, len(entries))
	copy(shuffled, entries)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	teams := make(map[int][]int)
	order := make([]int, 0)
	rest := make([]int, 0, len(shuffled))
	for _, e := range shuffled {
		if e.TeamID == 0 {
			rest = append(rest, e.ID)
			continue
		}
		if _, ok := teams[e.TeamID]; !ok {
			order = append(order, e.TeamID)
		}
		teams[e.TeamID] = append(teams[e.TeamID], e.ID)
	}

	var pooled []int
	for _, id := range order {
		members := teams[id]
		if len(members) == 1 {
			rest = append(rest, members[0])
			continue
		}
		upper := (len(members) + 1) / 2
		for i, entryID := range members {
			preferred, other := top, bottom
			if i >= upper {
				preferred, other = bottom, top
			}
			switch {
			case preferred.free() > 0:
				preferred.entries = append(preferred.entries, entryID)
			case other.free() > 0:
				other.entries = append(other.entries, entryID)
			default:
				pooled = append(pooled, entryID)
			}
		}
	}
	rest = append(pooled, rest...)
	for _, entryID := range rest {
		if top.free() > 0 {
			top.entries = append(top.entries, entryID)
		} else {
			bottom.entries = append(bottom.entries, entryID)
		}
	}

	for _, h := range []*half{top, bottom} {
		shuffleInts(h.entries, rng)
		n := h.byeCount()
		h.byes, h.entries = h.entries[:n], h.entries[n:]
	}

	return assemble(contentID, size, append(top.seat(rng), bottom.seat(rng)...))
}

// GroupResult is the final order of one group, best first.
type GroupResult struct {
	Name   string `json:"name"`
	Ranked []int  `json:"ranked"`
}

type Options struct {
	// SeparateGroupQualifiers keeps a runner-up out of its group winner's half
	// whenever there is room on the other side.
	SeparateGroupQualifiers bool
}

type qualifier struct {
	entryID int
	group   int
}

// BuildFromGroupResults seeds a bracket with the first and second placed
// entries of every group.
//
// Byes go to group winners in group order, alternating halves starting at the
// top. If there are more byes than winners the remainder goes to random
// runners-up. The other winners alternate halves in group order and the
// runners-up are shuffled into whatever room is left.
func BuildFromGroupResults(contentID int, groups []GroupResult, opts Options, rng Randomizer) (*Tree, error) {
	var firsts, seconds []qualifier
	for i, g := range groups {
		if len(g.Ranked) > 0 {
			firsts = append(firsts, qualifier{entryID: g.Ranked[0], group: i})
		}
		if len(g.Ranked) > 1 {
			seconds = append(seconds, qualifier{entryID: g.Ranked[1], group: i})
		}
	}

	size, err := qualifierBracketSize(len(firsts) + len(seconds))
	if err != nil {
		return nil, err
	}
	byes := size - len(firsts) - len(seconds)

	rng.Shuffle(len(seconds), func(i, j int) { seconds[i], seconds[j] = seconds[j], seconds[i] })

	recipients := make([]qualifier, 0, byes)
	if byes <= len(firsts) {
		recipients = append(recipients, firsts[:byes]...)
		firsts = firsts[byes:]
	} else {
		recipients = append(recipients, firsts...)
		n := byes - len(firsts)
		recipients = append(recipients, seconds[:n]...)
		firsts, seconds = nil, seconds[n:]
	}

	top, bottom := newHalf(size/4), newHalf(size/4)
	top.markByes((byes+1)/2, rng)
	bottom.markByes(byes/2, rng)

	winnerHalf := make(map[int]*half)
	for i, q := range recipients {
		h := top
		if i%2 == 1 {
			h = bottom
		}
		h.byes = append(h.byes, q.entryID)
		winnerHalf[q.group] = h
	}
	for i, q := range firsts {
		h, other := top, bottom
		if i%2 == 1 {
			h, other = bottom, top
		}
		if h.free() == 0 {
			h = other
		}
		h.entries = append(h.entries, q.entryID)
		winnerHalf[q.group] = h
	}
	for _, q := range seconds {
		h, other := top, bottom
		if opts.SeparateGroupQualifiers && winnerHalf[q.group] == top {
			h, other = bottom, top
		}
		if h.free() == 0 {
			h = other
		}
		h.entries = append(h.entries, q.entryID)
	}

	for _, h := range []*half{top, bottom} {
		shuffleInts(h.byes, rng)
		shuffleInts(h.entries, rng)
	}

	return assemble(contentID, size, append(top.seat(rng), bottom.seat(rng)...))
}

// assemble builds the node arena for a seeded first round. Nodes get local IDs
// 1..size-1 in round and position order; persistence maps them to real IDs.
func assemble(contentID, size int, slots []*int) (*Tree, error) {
	t := &Tree{ContentID: contentID, Size: size, nodes: make(map[int]*models.BracketNode, size-1)}

	nextID := 1
	prev := make([]*models.BracketNode, 0, size/2)
	for p := 0; p < size/2; p++ {
		n := &models.BracketNode{
			ID:        nextID,
			ContentID: contentID,
			Round:     1,
			Position:  p + 1,
			EntryAID:  slots[2*p],
			EntryBID:  slots[2*p+1],
			Status:    models.NodeReady,
			RoundName: RoundName(size),
		}
		nextID++

		switch {
		case n.EntryAID != nil && n.EntryBID == nil:
			n.IsBye, n.Status, n.WinnerEntryID = true, models.NodeCompleted, intPtr(*n.EntryAID)
		case n.EntryAID == nil && n.EntryBID != nil:
			n.IsBye, n.Status, n.WinnerEntryID = true, models.NodeCompleted, intPtr(*n.EntryBID)
		case n.EntryAID == nil && n.EntryBID == nil:
			n.Status = models.NodePending
		}
		t.nodes[n.ID] = n
		prev = append(prev, n)
	}

	for round, participants := 2, size/2; participants >= 2; round, participants = round+1, participants/2 {
		current := make([]*models.BracketNode, 0, len(prev)/2)
		for p := 0; p < len(prev)/2; p++ {
			a, b := prev[2*p], prev[2*p+1]
			n := &models.BracketNode{
				ID:          nextID,
				ContentID:   contentID,
				Round:       round,
				Position:    p + 1,
				PrevNodeAID: intPtr(a.ID),
				PrevNodeBID: intPtr(b.ID),
				Status:      models.NodePending,
				RoundName:   RoundName(participants),
			}
			nextID++
			a.NextNodeID, b.NextNodeID = intPtr(n.ID), intPtr(n.ID)
			t.nodes[n.ID] = n
			current = append(current, n)
		}
		prev = current
	}

	if err := t.propagateByes(); err != nil {
		return nil, err
	}
	return t, nil
}
