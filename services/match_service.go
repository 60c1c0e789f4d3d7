package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Dosada05/tournament-progression/brackets"
	"github.com/Dosada05/tournament-progression/locks"
	"github.com/Dosada05/tournament-progression/models"
	"github.com/Dosada05/tournament-progression/rating"
	"github.com/Dosada05/tournament-progression/repositories"
	"github.com/Dosada05/tournament-progression/standings"
)

const (
	minWinningPoints = 11
	deucePoints      = 10
	deuceMargin      = 2
)

// FinalizeResult lists everything a finalized match changed.
type FinalizeResult struct {
	Match         *models.Match          `json:"match"`
	Standings     []models.GroupStanding `json:"standings,omitempty"`
	Advance       *AdvanceResult         `json:"advance,omitempty"`
	RatingChanges []rating.Change        `json:"rating_changes"`
}

type MatchService interface {
	StartMatch(ctx context.Context, matchID int) (*models.Match, error)
	RecordSet(ctx context.Context, matchID, scoreA, scoreB int) (*models.MatchSet, error)
	FinalizeMatch(ctx context.Context, matchID int) (*FinalizeResult, error)
	CancelMatch(ctx context.Context, matchID int) (*models.Match, error)
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListSets(ctx context.Context, matchID int) ([]*models.MatchSet, error)
}

type matchService struct {
	store repositories.Store
	Common
}

func NewMatchService(store repositories.Store, common Common) MatchService {
	return &matchService{store: store, Common: common.withDefaults()}
}

// matchScope is what a match operation needs to know before taking its locks.
type matchScope struct {
	match    *models.Match
	content  *models.Content
	schedule *models.Schedule
}

func (s *matchService) scope(ctx context.Context, matchID int) (*matchScope, error) {
	repos := s.store.Repositories()
	m, err := repos.Matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	content, err := repos.Contents.GetByID(ctx, m.ContentID)
	if err != nil {
		return nil, err
	}
	sc, err := repos.Schedules.GetByID(ctx, m.ScheduleID)
	if err != nil {
		return nil, err
	}
	return &matchScope{match: m, content: content, schedule: sc}, nil
}

// keys returns the match lock plus the bracket lock for knockout matches.
func (ms *matchScope) keys(extra ...string) []string {
	keys := append([]string{locks.MatchKey(ms.match.ID)}, extra...)
	if isKnockout(ms.schedule) {
		keys = append(keys, locks.BracketKey(ms.content.ID))
	}
	return keys
}

func (s *matchService) StartMatch(ctx context.Context, matchID int) (*models.Match, error) {
	ms, err := s.scope(ctx, matchID)
	if err != nil {
		return nil, classify(err)
	}
	tournamentID := ms.content.TournamentID

	var updated *models.Match
	err = s.locked(ctx, ms.keys(locks.OfficialsKey(tournamentID)), func() error {
		return s.store.RunInTx(ctx, func(r repositories.Repositories) error {
			m, err := r.Matches.GetByID(ctx, matchID)
			if err != nil {
				return err
			}
			if m.Status != models.StatusScheduled {
				return fmt.Errorf("%w: match %d is %s", ErrMatchNotScheduled, m.ID, m.Status)
			}

			free, err := freeOfficials(ctx, r, tournamentID)
			if err != nil {
				return err
			}
			if len(free) < 2 {
				return fmt.Errorf("%w: %d free in tournament %d", ErrNotEnoughOfficials, len(free), tournamentID)
			}

			m.RefereeID = intPtr(free[0].ID)
			m.AssistantRefereeID = intPtr(free[1].ID)
			m.Status = models.StatusInProgress
			m.StartedAt = timePtr(time.Now().UTC())
			if err := r.Matches.Update(ctx, m); err != nil {
				return err
			}
			if err := setNodeStatus(ctx, r, m.ID, models.NodeReady, models.NodeInProgress); err != nil {
				return err
			}
			updated = m
			return nil
		})
	})
	if err != nil {
		return nil, classify(err)
	}

	s.Logger.InfoContext(ctx, "match started",
		slog.Int("match_id", matchID), slog.Int("referee_id", *updated.RefereeID), slog.Int("assistant_referee_id", *updated.AssistantRefereeID))
	s.Notifier.Notify(updated.ContentID, brackets.EventMatchUpdated, updated)
	return updated, nil
}

// freeOfficials returns the available officials of a tournament that referee
// no running match, ordered by ID.
func freeOfficials(ctx context.Context, r repositories.Repositories, tournamentID int) ([]*models.Official, error) {
	available, err := r.Officials.ListAvailable(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	running, err := r.Matches.ListInProgressByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	busy := make(map[int]bool, 2*len(running))
	for _, m := range running {
		if m.RefereeID != nil {
			busy[*m.RefereeID] = true
		}
		if m.AssistantRefereeID != nil {
			busy[*m.AssistantRefereeID] = true
		}
	}

	free := make([]*models.Official, 0, len(available))
	for _, o := range available {
		if !busy[o.ID] {
			free = append(free, o)
		}
	}
	slices.SortFunc(free, func(a, b *models.Official) int { return a.ID - b.ID })
	return free, nil
}

// setNodeStatus moves the bracket node of a knockout match from one status to
// another. Group matches have no node and are left alone.
func setNodeStatus(ctx context.Context, r repositories.Repositories, matchID int, from, to models.NodeStatus) error {
	node, err := r.Brackets.GetByMatch(ctx, matchID)
	if errors.Is(err, repositories.ErrBracketNodeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if node.Status != from {
		return nil
	}
	node.Status = to
	return r.Brackets.Update(ctx, node)
}

// validateSetScore accepts a set won with at least 11 points, by exactly two
// once the loser has reached 10.
func validateSetScore(scoreA, scoreB int) error {
	if scoreA < 0 || scoreB < 0 {
		return fmt.Errorf("%w: negative score %d-%d", ErrInvalidSetScore, scoreA, scoreB)
	}
	if scoreA == scoreB {
		return fmt.Errorf("%w: tied score %d-%d", ErrInvalidSetScore, scoreA, scoreB)
	}
	winner, loser := max(scoreA, scoreB), min(scoreA, scoreB)
	if winner < minWinningPoints {
		return fmt.Errorf("%w: %d-%d, winner needs at least %d", ErrInvalidSetScore, scoreA, scoreB, minWinningPoints)
	}
	if loser >= deucePoints && winner-loser != deuceMargin {
		return fmt.Errorf("%w: %d-%d, margin must be %d after %d-all", ErrInvalidSetScore, scoreA, scoreB, deuceMargin, deucePoints)
	}
	return nil
}

func (s *matchService) RecordSet(ctx context.Context, matchID, scoreA, scoreB int) (*models.MatchSet, error) {
	var set *models.MatchSet
	var contentID int
	err := s.locked(ctx, []string{locks.MatchKey(matchID)}, func() error {
		return s.store.RunInTx(ctx, func(r repositories.Repositories) error {
			m, err := r.Matches.GetByID(ctx, matchID)
			if err != nil {
				return err
			}
			if m.Status != models.StatusInProgress {
				return fmt.Errorf("%w: match %d is %s", ErrMatchNotInProgress, m.ID, m.Status)
			}
			contentID = m.ContentID

			needed, err := s.setsToWin(ctx, r, m.ContentID)
			if err != nil {
				return err
			}
			sets, err := r.Sets.ListByMatch(ctx, matchID)
			if err != nil {
				return err
			}
			winsA, winsB := models.CountSetWins(sets)
			if winsA >= needed || winsB >= needed {
				return fmt.Errorf("%w: match %d stands %d-%d", ErrNoMoreSetsAllowed, m.ID, winsA, winsB)
			}
			if err := validateSetScore(scoreA, scoreB); err != nil {
				return err
			}

			set = &models.MatchSet{MatchID: matchID, SetNumber: len(sets) + 1, ScoreA: scoreA, ScoreB: scoreB}
			return r.Sets.Create(ctx, set)
		})
	})
	if err != nil {
		return nil, classify(err)
	}

	s.Logger.InfoContext(ctx, "set recorded",
		slog.Int("match_id", matchID), slog.Int("set_number", set.SetNumber), slog.Int("score_a", scoreA), slog.Int("score_b", scoreB))
	s.Notifier.Notify(contentID, brackets.EventMatchUpdated, set)
	return set, nil
}

func (s *matchService) setsToWin(ctx context.Context, r repositories.Repositories, contentID int) (int, error) {
	content, err := r.Contents.GetByID(ctx, contentID)
	if err != nil {
		return 0, err
	}
	settings, err := content.Settings()
	if err != nil {
		s.Logger.WarnContext(ctx, "invalid content settings, using defaults",
			slog.Int("content_id", contentID), slog.Any("error", err))
	}
	return settings.SetsToWin(), nil
}

func (s *matchService) FinalizeMatch(ctx context.Context, matchID int) (*FinalizeResult, error) {
	ms, err := s.scope(ctx, matchID)
	if err != nil {
		return nil, classify(err)
	}
	players, err := memberIDs(ctx, s.store.Repositories(), ms.match)
	if err != nil {
		return nil, classify(err)
	}
	playerKeys := make([]string, len(players))
	for i, id := range players {
		playerKeys[i] = locks.PlayerKey(id)
	}

	var result *FinalizeResult
	err = s.locked(ctx, ms.keys(playerKeys...), func() error {
		return s.store.RunInTx(ctx, func(r repositories.Repositories) error {
			res, err := s.finalizeInTx(ctx, r, matchID)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		return nil, classify(err)
	}

	m := result.Match
	s.Logger.InfoContext(ctx, "match finalized",
		slog.Int("match_id", m.ID), slog.Int("winner_entry_id", *m.WinnerEntryID), slog.Int("rating_changes", len(result.RatingChanges)))
	s.Notifier.Notify(m.ContentID, brackets.EventMatchUpdated, m)
	if result.Standings != nil {
		s.Notifier.Notify(m.ContentID, brackets.EventStandingsUpdated, result.Standings)
	}
	if result.Advance != nil {
		s.Notifier.Notify(m.ContentID, brackets.EventBracketUpdated, result.Advance)
	}
	return result, nil
}

// finalizeInTx completes a match and applies its consequences: the group
// table or the bracket, then the ratings of every player involved.
func (s *matchService) finalizeInTx(ctx context.Context, r repositories.Repositories, matchID int) (*FinalizeResult, error) {
	m, err := r.Matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.StatusInProgress {
		return nil, fmt.Errorf("%w: match %d is %s", ErrMatchNotInProgress, m.ID, m.Status)
	}
	sets, err := r.Sets.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: match %d", ErrNoSetsRecorded, m.ID)
	}
	needed, err := s.setsToWin(ctx, r, m.ContentID)
	if err != nil {
		return nil, err
	}

	winsA, winsB := models.CountSetWins(sets)
	var winner, loser, winnerSets, loserSets int
	switch {
	case winsA >= needed:
		winner, loser, winnerSets, loserSets = m.Entry1ID, m.Entry2ID, winsA, winsB
	case winsB >= needed:
		winner, loser, winnerSets, loserSets = m.Entry2ID, m.Entry1ID, winsB, winsA
	default:
		return nil, fmt.Errorf("%w: match %d stands %d-%d, %d needed", ErrIncompleteMatch, m.ID, winsA, winsB, needed)
	}

	m.Status = models.MatchStatusCompleted
	m.WinnerEntryID = intPtr(winner)
	m.CompletedAt = timePtr(time.Now().UTC())
	if err := r.Matches.Update(ctx, m); err != nil {
		return nil, err
	}

	result := &FinalizeResult{Match: m}
	sc, err := r.Schedules.GetByID(ctx, m.ScheduleID)
	if err != nil {
		return nil, err
	}
	switch sc.Stage {
	case models.StageGroup:
		if sc.GroupName == nil {
			return nil, fmt.Errorf("group schedule %d has no group name", sc.ID)
		}
		outcome := standings.Outcome{
			ContentID:  m.ContentID,
			GroupName:  *sc.GroupName,
			WinnerID:   winner,
			LoserID:    loser,
			WinnerSets: winnerSets,
			LoserSets:  loserSets,
		}
		if result.Standings, err = applyOutcome(ctx, r, outcome); err != nil {
			return nil, err
		}
	case models.StageKnockout:
		node, err := r.Brackets.GetByMatch(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if result.Advance, err = advanceInTx(ctx, r, m.ContentID, node.ID, winner, m); err != nil {
			return nil, err
		}
	}

	if result.RatingChanges, err = applyRatings(ctx, r, m, winsA, winsB); err != nil {
		return nil, err
	}
	return result, nil
}

// applyOutcome folds a group result into the stored table and returns the
// winner's and loser's rows.
func applyOutcome(ctx context.Context, r repositories.Repositories, o standings.Outcome) ([]models.GroupStanding, error) {
	rows, err := r.Standings.ListByGroup(ctx, o.ContentID, o.GroupName)
	if err != nil {
		return nil, err
	}
	table := make(standings.Table, len(rows))
	for _, row := range rows {
		table[row.EntryID] = *row
	}
	table = standings.Apply(table, o)

	touched := []models.GroupStanding{table[o.WinnerID], table[o.LoserID]}
	for i := range touched {
		if err := r.Standings.Upsert(ctx, &touched[i]); err != nil {
			return nil, err
		}
	}
	return touched, nil
}

func (s *matchService) CancelMatch(ctx context.Context, matchID int) (*models.Match, error) {
	ms, err := s.scope(ctx, matchID)
	if err != nil {
		return nil, classify(err)
	}

	var cancelled *models.Match
	err = s.locked(ctx, ms.keys(), func() error {
		return s.store.RunInTx(ctx, func(r repositories.Repositories) error {
			m, err := r.Matches.GetByID(ctx, matchID)
			if err != nil {
				return err
			}
			if m.Status != models.StatusScheduled && m.Status != models.StatusInProgress {
				return fmt.Errorf("%w: match %d is %s", ErrMatchNotCancelable, m.ID, m.Status)
			}
			m.Status = models.MatchStatusCancelled
			if err := r.Matches.Update(ctx, m); err != nil {
				return err
			}
			if err := setNodeStatus(ctx, r, m.ID, models.NodeInProgress, models.NodeReady); err != nil {
				return err
			}
			cancelled = m
			return nil
		})
	})
	if err != nil {
		return nil, classify(err)
	}

	s.Logger.InfoContext(ctx, "match cancelled", slog.Int("match_id", matchID))
	s.Notifier.Notify(cancelled.ContentID, brackets.EventMatchUpdated, cancelled)
	return cancelled, nil
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	m, err := s.store.Repositories().Matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, classify(err)
	}
	return m, nil
}

func (s *matchService) ListSets(ctx context.Context, matchID int) ([]*models.MatchSet, error) {
	repos := s.store.Repositories()
	if _, err := repos.Matches.GetByID(ctx, matchID); err != nil {
		return nil, classify(err)
	}
	sets, err := repos.Sets.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, classify(err)
	}
	if sets == nil {
		return []*models.MatchSet{}, nil
	}
	return sets, nil
}
