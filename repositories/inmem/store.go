// Package inmem is a process-local repositories.Store. Transactions work on a
// copy of the whole state that replaces the live state only when the
// transaction function succeeds.
package inmem

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/Dosada05/tournament-progression/models"
	"github.com/Dosada05/tournament-progression/repositories"
)

type state struct {
	seq         map[string]int
	contents    map[int]models.Content
	entries     map[int]models.Entry
	assignments map[int][]models.GroupAssignment
	schedules   map[int]models.Schedule
	matches     map[int]models.Match
	sets        map[int]models.MatchSet
	standings   map[int]models.GroupStanding
	nodes       map[int]models.BracketNode
	officials   map[int]models.Official
	ratings     map[int]models.RatingRecord
	history     map[int]models.RatingHistoryEntry
}

func newState() *state {
	return &state{
		seq:         make(map[string]int),
		contents:    make(map[int]models.Content),
		entries:     make(map[int]models.Entry),
		assignments: make(map[int][]models.GroupAssignment),
		schedules:   make(map[int]models.Schedule),
		matches:     make(map[int]models.Match),
		sets:        make(map[int]models.MatchSet),
		standings:   make(map[int]models.GroupStanding),
		nodes:       make(map[int]models.BracketNode),
		officials:   make(map[int]models.Official),
		ratings:     make(map[int]models.RatingRecord),
		history:     make(map[int]models.RatingHistoryEntry),
	}
}

// clone copies every table. Rows are values, so the copy can be mutated freely;
// pointer fields inside rows are always replaced, never written through.
func (s *state) clone() *state {
	c := &state{
		seq:         maps.Clone(s.seq),
		contents:    maps.Clone(s.contents),
		entries:     maps.Clone(s.entries),
		assignments: make(map[int][]models.GroupAssignment, len(s.assignments)),
		schedules:   maps.Clone(s.schedules),
		matches:     maps.Clone(s.matches),
		sets:        maps.Clone(s.sets),
		standings:   maps.Clone(s.standings),
		nodes:       maps.Clone(s.nodes),
		officials:   maps.Clone(s.officials),
		ratings:     maps.Clone(s.ratings),
		history:     maps.Clone(s.history),
	}
	for k, v := range s.assignments {
		c.assignments[k] = slices.Clone(v)
	}
	return c
}

func (s *state) next(table string) int {
	s.seq[table]++
	return s.seq[table]
}

// access runs f against a state with the locking its caller needs.
type access func(write bool, f func(s *state) error) error

type Store struct {
	mu    sync.RWMutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// Repositories returns repositories that act on the live state, each call on
// its own.
func (st *Store) Repositories() repositories.Repositories {
	return bind(func(write bool, f func(s *state) error) error {
		if write {
			st.mu.Lock()
			defer st.mu.Unlock()
			next := st.state.clone()
			if err := f(next); err != nil {
				return err
			}
			st.state = next
			return nil
		}
		st.mu.RLock()
		defer st.mu.RUnlock()
		return f(st.state)
	})
}

// RunInTx serialises writers. fn must only use the repositories it is given.
func (st *Store) RunInTx(ctx context.Context, fn func(r repositories.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	working := st.state.clone()
	err := fn(bind(func(_ bool, f func(s *state) error) error {
		return f(working)
	}))
	if err != nil {
		return err
	}
	st.state = working
	return nil
}

func bind(a access) repositories.Repositories {
	return repositories.Repositories{
		Contents:  &contentRepo{a},
		Entries:   &entryRepo{a},
		Groups:    &groupRepo{a},
		Schedules: &scheduleRepo{a},
		Matches:   &matchRepo{a},
		Sets:      &setRepo{a},
		Standings: &standingRepo{a},
		Brackets:  &bracketRepo{a},
		Officials: &officialRepo{a},
		Ratings:   &ratingRepo{a},
	}
}

var _ repositories.Store = (*Store)(nil)
