package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tournament-progression/models"
	"github.com/Dosada05/tournament-progression/repositories"
)

// ContentOverview is everything a scoreboard needs to render one content.
type ContentOverview struct {
	Content *models.Content `json:"content"`
	Groups  []GroupRanking  `json:"groups"`
	Bracket *BracketView    `json:"bracket,omitempty"`
	Matches []*models.Match `json:"matches"`
}

type OverviewService interface {
	GetContentOverview(ctx context.Context, contentID int) (*ContentOverview, error)
}

type overviewService struct {
	store    repositories.Store
	brackets BracketService
	groups   GroupService
	logger   *slog.Logger
}

func NewOverviewService(store repositories.Store, brackets BracketService, groups GroupService, logger *slog.Logger) OverviewService {
	if logger == nil {
		logger = slog.Default()
	}
	return &overviewService{store: store, brackets: brackets, groups: groups, logger: logger}
}

func (s *overviewService) GetContentOverview(ctx context.Context, contentID int) (*ContentOverview, error) {
	content, err := s.store.Repositories().Contents.GetByID(ctx, contentID)
	if err != nil {
		return nil, classify(err)
	}
	overview := &ContentOverview{Content: content}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rankings, err := s.groups.GetStandings(gCtx, contentID)
		if err != nil {
			return fmt.Errorf("failed to load standings: %w", err)
		}
		overview.Groups = rankings
		return nil
	})

	// A content without a knockout stage yet is not an error.
	g.Go(func() error {
		view, err := s.brackets.GetBracket(gCtx, contentID)
		if errors.Is(err, ErrBracketNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load bracket: %w", err)
		}
		overview.Bracket = view
		return nil
	})

	g.Go(func() error {
		matches, err := s.store.Repositories().Matches.ListByContent(gCtx, contentID, nil)
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		if matches == nil {
			matches = []*models.Match{}
		}
		overview.Matches = matches
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "content overview failed", slog.Int("content_id", contentID), slog.Any("error", err))
		return nil, classify(err)
	}
	return overview, nil
}
