package services

import (
	"context"
	"time"

	"github.com/Dosada05/tournament-progression/models"
	"github.com/Dosada05/tournament-progression/rating"
	"github.com/Dosada05/tournament-progression/repositories"
)

type RatingService interface {
	// PreviewRatingChanges computes the updates finalizing the match would
	// apply with its current sets, without storing anything.
	PreviewRatingChanges(ctx context.Context, matchID int) ([]rating.Change, error)
	GetHistory(ctx context.Context, matchID int) ([]*models.RatingHistoryEntry, error)
}

type ratingService struct {
	store repositories.Store
	Common
}

func NewRatingService(store repositories.Store, common Common) RatingService {
	return &ratingService{store: store, Common: common.withDefaults()}
}

func (s *ratingService) PreviewRatingChanges(ctx context.Context, matchID int) ([]rating.Change, error) {
	repos := s.store.Repositories()
	m, err := repos.Matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, classify(err)
	}
	sets, err := repos.Sets.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, classify(err)
	}
	winsA, winsB := models.CountSetWins(sets)
	a, b, err := matchSides(ctx, repos, m, winsA, winsB)
	if err != nil {
		return nil, classify(err)
	}
	return rating.Calculate(a, b), nil
}

func (s *ratingService) GetHistory(ctx context.Context, matchID int) ([]*models.RatingHistoryEntry, error) {
	repos := s.store.Repositories()
	if _, err := repos.Matches.GetByID(ctx, matchID); err != nil {
		return nil, classify(err)
	}
	history, err := repos.Ratings.ListHistoryByMatch(ctx, matchID)
	if err != nil {
		return nil, classify(err)
	}
	if history == nil {
		return []*models.RatingHistoryEntry{}, nil
	}
	return history, nil
}

// matchSides loads both entries of m with their members' current ratings.
// Players without a stored rating start at models.DefaultRating.
func matchSides(ctx context.Context, r repositories.Repositories, m *models.Match, winsA, winsB int) (rating.Side, rating.Side, error) {
	e1, err := r.Entries.GetByID(ctx, m.Entry1ID)
	if err != nil {
		return rating.Side{}, rating.Side{}, err
	}
	e2, err := r.Entries.GetByID(ctx, m.Entry2ID)
	if err != nil {
		return rating.Side{}, rating.Side{}, err
	}

	ids := append(append([]int{}, e1.Members...), e2.Members...)
	current, err := r.Ratings.GetRatings(ctx, ids)
	if err != nil {
		return rating.Side{}, rating.Side{}, err
	}

	side := func(e *models.Entry, won int) rating.Side {
		members := make([]rating.Member, 0, len(e.Members))
		for _, id := range e.Members {
			value, ok := current[id]
			if !ok {
				value = models.DefaultRating
			}
			members = append(members, rating.Member{PlayerID: id, Rating: value})
		}
		return rating.Side{EntryID: e.ID, Members: members, SetsWon: won}
	}
	return side(e1, winsA), side(e2, winsB), nil
}

// applyRatings stores the new rating and a history row for every member of
// both sides of m.
func applyRatings(ctx context.Context, r repositories.Repositories, m *models.Match, winsA, winsB int) ([]rating.Change, error) {
	a, b, err := matchSides(ctx, r, m, winsA, winsB)
	if err != nil {
		return nil, err
	}
	changes := rating.Calculate(a, b)
	reason := rating.Reason(m.ID, winsA, winsB)
	now := time.Now().UTC()

	for _, c := range changes {
		if err := r.Ratings.Upsert(ctx, &models.RatingRecord{PlayerID: c.PlayerID, Rating: c.New, UpdatedAt: now}); err != nil {
			return nil, err
		}
		entry := &models.RatingHistoryEntry{
			MatchID:        m.ID,
			PlayerID:       c.PlayerID,
			PreviousRating: c.Previous,
			NewRating:      c.New,
			Reason:         reason,
			CreatedAt:      now,
		}
		if err := r.Ratings.AddHistory(ctx, entry); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

// memberIDs lists the players of both entries of m.
func memberIDs(ctx context.Context, r repositories.Repositories, m *models.Match) ([]int, error) {
	var ids []int
	for _, id := range []int{m.Entry1ID, m.Entry2ID} {
		e, err := r.Entries.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, e.Members...)
	}
	return ids, nil
}
