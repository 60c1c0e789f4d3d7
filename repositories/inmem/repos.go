package inmem

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Dosada05/tournament-progression/models"
	"github.com/Dosada05/tournament-progression/repositories"
)

func sortedValues[T any](m map[int]T, keep func(T) bool) []T {
	keys := make([]int, 0, len(m))
	for k, v := range m {
		if keep(v) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func groupOrder(a, b string) int {
	return cmp.Or(cmp.Compare(len(a), len(b)), cmp.Compare(a, b))
}

type contentRepo struct{ access }

func (r *contentRepo) Create(_ context.Context, c *models.Content) error {
	return r.access(true, func(s *state) error {
		c.ID = s.next("contents")
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now()
		}
		s.contents[c.ID] = *c
		return nil
	})
}

func (r *contentRepo) GetByID(_ context.Context, id int) (*models.Content, error) {
	var out *models.Content
	err := r.access(false, func(s *state) error {
		c, ok := s.contents[id]
		if !ok {
			return repositories.ErrContentNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

type entryRepo struct{ access }

func (r *entryRepo) Create(_ context.Context, e *models.Entry) error {
	return r.access(true, func(s *state) error {
		if _, ok := s.contents[e.ContentID]; !ok {
			return repositories.ErrContentNotFound
		}
		e.ID = s.next("entries")
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now()
		}
		row := *e
		row.Members = slices.Clone(e.Members)
		s.entries[e.ID] = row
		return nil
	})
}

func copyEntry(e models.Entry) *models.Entry {
	e.Members = slices.Clone(e.Members)
	return &e
}

func (r *entryRepo) GetByID(_ context.Context, id int) (*models.Entry, error) {
	var out *models.Entry
	err := r.access(false, func(s *state) error {
		e, ok := s.entries[id]
		if !ok {
			return repositories.ErrEntryNotFound
		}
		out = copyEntry(e)
		return nil
	})
	return out, err
}

func (r *entryRepo) ListByContent(_ context.Context, contentID int) ([]*models.Entry, error) {
	out := make([]*models.Entry, 0)
	err := r.access(false, func(s *state) error {
		for _, e := range sortedValues(s.entries, func(e models.Entry) bool { return e.ContentID == contentID }) {
			out = append(out, copyEntry(e))
		}
		return nil
	})
	return out, err
}

type groupRepo struct{ access }

func (r *groupRepo) ReplaceAssignments(_ context.Context, contentID int, assignments []models.GroupAssignment) error {
	return r.access(true, func(s *state) error {
		for _, a := range assignments {
			if _, ok := s.entries[a.EntryID]; !ok {
				return fmt.Errorf("%w: %d", repositories.ErrEntryNotFound, a.EntryID)
			}
		}
		rows := slices.Clone(assignments)
		for i := range rows {
			rows[i].ContentID = contentID
		}
		s.assignments[contentID] = rows
		return nil
	})
}

func (r *groupRepo) ListAssignments(_ context.Context, contentID int) ([]models.GroupAssignment, error) {
	var out []models.GroupAssignment
	err := r.access(false, func(s *state) error {
		out = slices.Clone(s.assignments[contentID])
		if out == nil {
			out = make([]models.GroupAssignment, 0)
		}
		slices.SortStableFunc(out, func(a, b models.GroupAssignment) int {
			return cmp.Or(groupOrder(a.GroupName, b.GroupName), cmp.Compare(a.Slot, b.Slot))
		})
		return nil
	})
	return out, err
}

type scheduleRepo struct{ access }

func (r *scheduleRepo) Create(_ context.Context, sc *models.Schedule) error {
	return r.access(true, func(s *state) error {
		if _, ok := s.contents[sc.ContentID]; !ok {
			return repositories.ErrContentNotFound
		}
		if sc.BracketNodeID != nil {
			if _, ok := s.nodes[*sc.BracketNodeID]; !ok {
				return repositories.ErrBracketNodeNotFound
			}
		}
		sc.ID = s.next("schedules")
		s.schedules[sc.ID] = *sc
		return nil
	})
}

func (r *scheduleRepo) GetByID(_ context.Context, id int) (*models.Schedule, error) {
	var out *models.Schedule
	err := r.access(false, func(s *state) error {
		sc, ok := s.schedules[id]
		if !ok {
			return repositories.ErrScheduleNotFound
		}
		out = &sc
		return nil
	})
	return out, err
}

func (r *scheduleRepo) GetByBracketNode(_ context.Context, nodeID int) (*models.Schedule, error) {
	var out *models.Schedule
	err := r.access(false, func(s *state) error {
		for _, sc := range s.schedules {
			if sc.BracketNodeID != nil && *sc.BracketNodeID == nodeID {
				out = &sc
				return nil
			}
		}
		return repositories.ErrScheduleNotFound
	})
	return out, err
}

func (r *scheduleRepo) DeleteByContentStage(_ context.Context, contentID int, stage models.Stage) error {
	return r.access(true, func(s *state) error {
		for id, sc := range s.schedules {
			if sc.ContentID == contentID && sc.Stage == stage {
				deleteSchedule(s, id)
			}
		}
		return nil
	})
}

// deleteSchedule removes a schedule with its match and that match's sets.
func deleteSchedule(s *state, scheduleID int) {
	delete(s.schedules, scheduleID)
	for mid, m := range s.matches {
		if m.ScheduleID != scheduleID {
			continue
		}
		delete(s.matches, mid)
		for sid, set := range s.sets {
			if set.MatchID == mid {
				delete(s.sets, sid)
			}
		}
	}
}

type matchRepo struct{ access }

func (r *matchRepo) Create(_ context.Context, m *models.Match) error {
	return r.access(true, func(s *state) error {
		if _, ok := s.schedules[m.ScheduleID]; !ok {
			return repositories.ErrScheduleNotFound
		}
		for _, existing := range s.matches {
			if existing.ScheduleID == m.ScheduleID {
				return fmt.Errorf("%w: schedule %d", repositories.ErrDuplicateScheduleMatch, m.ScheduleID)
			}
		}
		for _, id := range []int{m.Entry1ID, m.Entry2ID} {
			if _, ok := s.entries[id]; !ok {
				return fmt.Errorf("%w: %d", repositories.ErrEntryNotFound, id)
			}
		}
		m.ID = s.next("matches")
		m.CreatedAt = time.Now()
		s.matches[m.ID] = *m
		return nil
	})
}

func (r *matchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	var out *models.Match
	err := r.access(false, func(s *state) error {
		m, ok := s.matches[id]
		if !ok {
			return repositories.ErrMatchNotFound
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *matchRepo) Update(_ context.Context, m *models.Match) error {
	return r.access(true, func(s *state) error {
		current, ok := s.matches[m.ID]
		if !ok {
			return repositories.ErrMatchNotFound
		}
		current.Status, current.WinnerEntryID = m.Status, m.WinnerEntryID
		current.RefereeID, current.AssistantRefereeID = m.RefereeID, m.AssistantRefereeID
		current.StartedAt, current.CompletedAt = m.StartedAt, m.CompletedAt
		s.matches[m.ID] = current
		return nil
	})
}

func (r *matchRepo) list(keep func(s *state, m models.Match) bool) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	err := r.access(false, func(s *state) error {
		for _, m := range sortedValues(s.matches, func(m models.Match) bool { return keep(s, m) }) {
			out = append(out, &m)
		}
		return nil
	})
	return out, err
}

func (r *matchRepo) ListByContent(_ context.Context, contentID int, stage *models.Stage) ([]*models.Match, error) {
	return r.list(func(s *state, m models.Match) bool {
		if m.ContentID != contentID {
			return false
		}
		return stage == nil || s.schedules[m.ScheduleID].Stage == *stage
	})
}

func (r *matchRepo) ListByGroup(_ context.Context, contentID int, groupName string) ([]*models.Match, error) {
	return r.list(func(s *state, m models.Match) bool {
		sc := s.schedules[m.ScheduleID]
		return m.ContentID == contentID && sc.Stage == models.StageGroup && sc.GroupName != nil && *sc.GroupName == groupName
	})
}

func (r *matchRepo) ListInProgressByTournament(_ context.Context, tournamentID int) ([]*models.Match, error) {
	return r.list(func(s *state, m models.Match) bool {
		return m.Status == models.StatusInProgress && s.contents[m.ContentID].TournamentID == tournamentID
	})
}

type setRepo struct{ access }

func (r *setRepo) Create(_ context.Context, set *models.MatchSet) error {
	return r.access(true, func(s *state) error {
		if _, ok := s.matches[set.MatchID]; !ok {
			return repositories.ErrMatchNotFound
		}
		for _, existing := range s.sets {
			if existing.MatchID == set.MatchID && existing.SetNumber == set.SetNumber {
				return fmt.Errorf("%w: match %d set %d", repositories.ErrDuplicateSetNumber, set.MatchID, set.SetNumber)
			}
		}
		set.ID = s.next("match_sets")
		set.CreatedAt = time.Now()
		s.sets[set.ID] = *set
		return nil
	})
}

func (r *setRepo) ListByMatch(_ context.Context, matchID int) ([]*models.MatchSet, error) {
	out := make([]*models.MatchSet, 0)
	err := r.access(false, func(s *state) error {
		for _, set := range sortedValues(s.sets, func(set models.MatchSet) bool { return set.MatchID == matchID }) {
			out = append(out, &set)
		}
		slices.SortFunc(out, func(a, b *models.MatchSet) int { return a.SetNumber - b.SetNumber })
		return nil
	})
	return out, err
}

type standingRepo struct{ access }

func (r *standingRepo) list(keep func(models.GroupStanding) bool) ([]*models.GroupStanding, error) {
	out := make([]*models.GroupStanding, 0)
	err := r.access(false, func(s *state) error {
		for _, row := range sortedValues(s.standings, keep) {
			out = append(out, &row)
		}
		return nil
	})
	return out, err
}

func (r *standingRepo) ListByGroup(_ context.Context, contentID int, groupName string) ([]*models.GroupStanding, error) {
	return r.list(func(row models.GroupStanding) bool {
		return row.ContentID == contentID && row.GroupName == groupName
	})
}

func (r *standingRepo) ListByContent(_ context.Context, contentID int) ([]*models.GroupStanding, error) {
	out, err := r.list(func(row models.GroupStanding) bool { return row.ContentID == contentID })
	slices.SortStableFunc(out, func(a, b *models.GroupStanding) int { return groupOrder(a.GroupName, b.GroupName) })
	return out, err
}

func (r *standingRepo) Upsert(_ context.Context, row *models.GroupStanding) error {
	return r.access(true, func(s *state) error {
		if _, ok := s.entries[row.EntryID]; !ok {
			return fmt.Errorf("%w: %d", repositories.ErrEntryNotFound, row.EntryID)
		}
		row.UpdatedAt = time.Now()
		for id, existing := range s.standings {
			if existing.ContentID == row.ContentID && existing.GroupName == row.GroupName && existing.EntryID == row.EntryID {
				row.ID = id
				s.standings[id] = *row
				return nil
			}
		}
		row.ID = s.next("group_standings")
		s.standings[row.ID] = *row
		return nil
	})
}

func (r *standingRepo) DeleteByContent(_ context.Context, contentID int) error {
	return r.access(true, func(s *state) error {
		for id, row := range s.standings {
			if row.ContentID == contentID {
				delete(s.standings, id)
			}
		}
		return nil
	})
}

type bracketRepo struct{ access }

func (r *bracketRepo) Create(_ context.Context, n *models.BracketNode) error {
	return r.access(true, func(s *state) error {
		if _, ok := s.contents[n.ContentID]; !ok {
			return repositories.ErrContentNotFound
		}
		n.ID = s.next("bracket_nodes")
		row := *n
		row.NextNodeID, row.PrevNodeAID, row.PrevNodeBID, row.MatchID = nil, nil, nil, nil
		s.nodes[n.ID] = row
		return nil
	})
}

func (r *bracketRepo) UpdateLinks(_ context.Context, n *models.BracketNode) error {
	return r.access(true, func(s *state) error {
		row, ok := s.nodes[n.ID]
		if !ok {
			return repositories.ErrBracketNodeNotFound
		}
		row.NextNodeID, row.PrevNodeAID, row.PrevNodeBID = n.NextNodeID, n.PrevNodeAID, n.PrevNodeBID
		s.nodes[n.ID] = row
		return nil
	})
}

func (r *bracketRepo) Update(_ context.Context, n *models.BracketNode) error {
	return r.access(true, func(s *state) error {
		row, ok := s.nodes[n.ID]
		if !ok {
			return repositories.ErrBracketNodeNotFound
		}
		if n.MatchID != nil {
			for id, other := range s.nodes {
				if id != n.ID && other.MatchID != nil && *other.MatchID == *n.MatchID {
					return fmt.Errorf("%w: match %d", repositories.ErrNodeMatchAssigned, *n.MatchID)
				}
			}
		}
		row.EntryAID, row.EntryBID, row.WinnerEntryID = n.EntryAID, n.EntryBID, n.WinnerEntryID
		row.Status, row.IsBye, row.MatchID = n.Status, n.IsBye, n.MatchID
		s.nodes[n.ID] = row
		return nil
	})
}

func (r *bracketRepo) GetByID(_ context.Context, id int) (*models.BracketNode, error) {
	var out *models.BracketNode
	err := r.access(false, func(s *state) error {
		n, ok := s.nodes[id]
		if !ok {
			return repositories.ErrBracketNodeNotFound
		}
		out = &n
		return nil
	})
	return out, err
}

func (r *bracketRepo) GetByMatch(_ context.Context, matchID int) (*models.BracketNode, error) {
	var out *models.BracketNode
	err := r.access(false, func(s *state) error {
		for _, n := range s.nodes {
			if n.MatchID != nil && *n.MatchID == matchID {
				out = &n
				return nil
			}
		}
		return repositories.ErrBracketNodeNotFound
	})
	return out, err
}

func (r *bracketRepo) ListByContent(_ context.Context, contentID int) ([]*models.BracketNode, error) {
	out := make([]*models.BracketNode, 0)
	err := r.access(false, func(s *state) error {
		for _, n := range sortedValues(s.nodes, func(n models.BracketNode) bool { return n.ContentID == contentID }) {
			out = append(out, &n)
		}
		slices.SortFunc(out, func(a, b *models.BracketNode) int {
			return cmp.Or(cmp.Compare(a.Round, b.Round), cmp.Compare(a.Position, b.Position))
		})
		return nil
	})
	return out, err
}

func (r *bracketRepo) AssignMatch(_ context.Context, nodeID, matchID int) error {
	return r.access(true, func(s *state) error {
		n, ok := s.nodes[nodeID]
		if !ok || n.MatchID != nil {
			return fmt.Errorf("%w: node %d", repositories.ErrNodeMatchAssigned, nodeID)
		}
		n.MatchID = &matchID
		s.nodes[nodeID] = n
		return nil
	})
}

func (r *bracketRepo) DeleteByContent(_ context.Context, contentID int) error {
	return r.access(true, func(s *state) error {
		for id, n := range s.nodes {
			if n.ContentID != contentID {
				continue
			}
			delete(s.nodes, id)
			for sid, sc := range s.schedules {
				if sc.BracketNodeID != nil && *sc.BracketNodeID == id {
					deleteSchedule(s, sid)
				}
			}
		}
		return nil
	})
}

type officialRepo struct{ access }

func (r *officialRepo) Create(_ context.Context, o *models.Official) error {
	return r.access(true, func(s *state) error {
		o.ID = s.next("officials")
		s.officials[o.ID] = *o
		return nil
	})
}

func (r *officialRepo) ListAvailable(_ context.Context, tournamentID int) ([]*models.Official, error) {
	out := make([]*models.Official, 0)
	err := r.access(false, func(s *state) error {
		for _, o := range sortedValues(s.officials, func(o models.Official) bool {
			return o.TournamentID == tournamentID && o.Available
		}) {
			out = append(out, &o)
		}
		return nil
	})
	return out, err
}

type ratingRepo struct{ access }

func (r *ratingRepo) GetRatings(_ context.Context, playerIDs []int) (map[int]int, error) {
	out := make(map[int]int, len(playerIDs))
	err := r.access(false, func(s *state) error {
		for _, id := range playerIDs {
			if rec, ok := s.ratings[id]; ok {
				out[id] = rec.Rating
			}
		}
		return nil
	})
	return out, err
}

func (r *ratingRepo) Upsert(_ context.Context, rec *models.RatingRecord) error {
	return r.access(true, func(s *state) error {
		rec.UpdatedAt = time.Now()
		s.ratings[rec.PlayerID] = *rec
		return nil
	})
}

func (r *ratingRepo) AddHistory(_ context.Context, h *models.RatingHistoryEntry) error {
	return r.access(true, func(s *state) error {
		if _, ok := s.matches[h.MatchID]; !ok {
			return repositories.ErrMatchNotFound
		}
		h.ID = s.next("rating_history")
		h.CreatedAt = time.Now()
		s.history[h.ID] = *h
		return nil
	})
}

func (r *ratingRepo) ListHistoryByMatch(_ context.Context, matchID int) ([]*models.RatingHistoryEntry, error) {
	out := make([]*models.RatingHistoryEntry, 0)
	err := r.access(false, func(s *state) error {
		for _, h := range sortedValues(s.history, func(h models.RatingHistoryEntry) bool { return h.MatchID == matchID }) {
			out = append(out, &h)
		}
		return nil
	})
	return out, err
}
