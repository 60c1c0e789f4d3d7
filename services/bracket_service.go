package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-progression/brackets"
	"github.com/Dosada05/tournament-progression/locks"
	"github.com/Dosada05/tournament-progression/models"
	"github.com/Dosada05/tournament-progression/repositories"
)

// BracketView is the read model of a content's knockout tree.
type BracketView struct {
	ContentID int                   `json:"content_id"`
	Size      int                   `json:"size"`
	Rounds    int                   `json:"rounds"`
	Nodes     []*models.BracketNode `json:"nodes"`
}

func newBracketView(tree *brackets.Tree) *BracketView {
	return &BracketView{ContentID: tree.ContentID, Size: tree.Size, Rounds: tree.Rounds(), Nodes: tree.Nodes()}
}

// BracketArchiver stores a JSON snapshot of a freshly built bracket and
// returns where it was put.
type BracketArchiver interface {
	ArchiveBracket(ctx context.Context, contentID int, snapshot []byte) (string, error)
}

// AdvanceResult is the outcome of deciding a bracket node.
type AdvanceResult struct {
	Advancement brackets.Advancement `json:"advancement"`
	NextMatch   *models.Match        `json:"next_match,omitempty"`
}

type BracketService interface {
	BuildKnockout(ctx context.Context, contentID int) (*BracketView, error)
	BuildKnockoutFromGroups(ctx context.Context, contentID int) (*BracketView, error)
	AdvanceWinner(ctx context.Context, nodeID, winnerEntryID int) (*AdvanceResult, error)
	GetBracket(ctx context.Context, contentID int) (*BracketView, error)
}

type bracketService struct {
	store    repositories.Store
	archiver BracketArchiver
	Common
}

// NewBracketService wires the bracket operations. archiver may be nil.
func NewBracketService(store repositories.Store, archiver BracketArchiver, common Common) BracketService {
	return &bracketService{store: store, archiver: archiver, Common: common.withDefaults()}
}

func (s *bracketService) BuildKnockout(ctx context.Context, contentID int) (*BracketView, error) {
	return s.build(ctx, contentID, "seeds", func(r repositories.Repositories) (*brackets.Tree, error) {
		entries, err := r.Entries.ListByContent(ctx, contentID)
		if err != nil {
			return nil, err
		}
		return brackets.BuildFromSeeds(contentID, entries, s.Rand())
	})
}

func (s *bracketService) BuildKnockoutFromGroups(ctx context.Context, contentID int) (*BracketView, error) {
	return s.build(ctx, contentID, "groups", func(r repositories.Repositories) (*brackets.Tree, error) {
		content, err := r.Contents.GetByID(ctx, contentID)
		if err != nil {
			return nil, err
		}
		settings, err := content.Settings()
		if err != nil {
			s.Logger.WarnContext(ctx, "invalid content settings, using defaults",
				slog.Int("content_id", contentID), slog.Any("error", err))
		}

		members, err := groupMembers(ctx, r, contentID)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			return nil, fmt.Errorf("%w: content %d", ErrNoGroups, contentID)
		}

		results := make([]brackets.GroupResult, 0, len(members))
		for _, name := range groupNames(members) {
			ranked, err := rankAndStore(ctx, r, contentID, name, members[name])
			if err != nil {
				return nil, err
			}
			order := make([]int, len(ranked))
			for i, row := range ranked {
				order[i] = row.EntryID
			}
			results = append(results, brackets.GroupResult{Name: name, Ranked: order})
		}

		opts := brackets.Options{SeparateGroupQualifiers: settings.SeparateGroupQualifiers}
		return brackets.BuildFromGroupResults(contentID, results, opts, s.Rand())
	})
}

// build seeds a tree and saves it as the content's bracket in one transaction.
func (s *bracketService) build(ctx context.Context, contentID int, source string, seed func(r repositories.Repositories) (*brackets.Tree, error)) (*BracketView, error) {
	var view *BracketView

	err := s.locked(ctx, []string{locks.ContentKey(contentID), locks.BracketKey(contentID)}, func() error {
		return s.store.RunInTx(ctx, func(r repositories.Repositories) error {
			if _, err := r.Contents.GetByID(ctx, contentID); err != nil {
				return err
			}
			fresh, err := seed(r)
			if err != nil {
				return err
			}
			if err := fresh.Validate(); err != nil {
				return err
			}
			tree, err := saveTree(ctx, r, contentID, fresh)
			if err != nil {
				return err
			}
			view = newBracketView(tree)
			return nil
		})
	})
	if err != nil {
		return nil, classify(err)
	}

	s.Logger.InfoContext(ctx, "knockout bracket built",
		slog.Int("content_id", contentID), slog.String("source", source), slog.Int("size", view.Size))
	s.archive(ctx, view)
	s.Notifier.Notify(contentID, brackets.EventBracketUpdated, view)
	return view, nil
}

func (s *bracketService) archive(ctx context.Context, view *BracketView) {
	if s.archiver == nil {
		return
	}
	snapshot, err := json.Marshal(view)
	if err != nil {
		s.Logger.ErrorContext(ctx, "failed to encode bracket snapshot", slog.Int("content_id", view.ContentID), slog.Any("error", err))
		return
	}
	location, err := s.archiver.ArchiveBracket(ctx, view.ContentID, snapshot)
	if err != nil {
		s.Logger.WarnContext(ctx, "bracket snapshot not archived", slog.Int("content_id", view.ContentID), slog.Any("error", err))
		return
	}
	s.Logger.InfoContext(ctx, "bracket snapshot archived", slog.Int("content_id", view.ContentID), slog.String("location", location))
}

// saveTree replaces the knockout stage of a content with fresh. A tree of the
// same size is reseeded in place so node IDs survive; otherwise the old tree
// is dropped. Knockout schedule slots are recreated and ready nodes get their
// first match.
func saveTree(ctx context.Context, r repositories.Repositories, contentID int, fresh *brackets.Tree) (*brackets.Tree, error) {
	stage := models.StageKnockout
	played, err := r.Matches.ListByContent(ctx, contentID, &stage)
	if err != nil {
		return nil, err
	}
	if started(played) {
		return nil, fmt.Errorf("%w: content %d", ErrKnockoutStarted, contentID)
	}

	existing, err := r.Brackets.ListByContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if err := r.Schedules.DeleteByContentStage(ctx, contentID, models.StageKnockout); err != nil {
		return nil, err
	}

	var tree *brackets.Tree
	if len(existing) > 0 {
		current, err := brackets.NewTree(contentID, existing)
		if err != nil {
			return nil, err
		}
		if current.Size == fresh.Size {
			if err := current.Reseed(fresh); err != nil {
				return nil, err
			}
			for _, n := range current.Nodes() {
				if err := r.Brackets.Update(ctx, n); err != nil {
					return nil, err
				}
			}
			tree = current
		} else if err := r.Brackets.DeleteByContent(ctx, contentID); err != nil {
			return nil, err
		}
	}
	if tree == nil {
		if tree, err = insertTree(ctx, r, contentID, fresh); err != nil {
			return nil, err
		}
	}

	for _, n := range tree.Nodes() {
		if n.IsBye {
			continue
		}
		sc := &models.Schedule{ContentID: contentID, Stage: models.StageKnockout, BracketNodeID: intPtr(n.ID)}
		if err := r.Schedules.Create(ctx, sc); err != nil {
			return nil, err
		}
		if n.Status == models.NodeReady {
			if _, err := createNodeMatch(ctx, r, n, sc); err != nil {
				return nil, err
			}
		}
	}
	return tree, nil
}

// insertTree stores the nodes of a freshly built tree. Nodes are created
// first and linked in a second pass once every database ID is known.
func insertTree(ctx context.Context, r repositories.Repositories, contentID int, fresh *brackets.Tree) (*brackets.Tree, error) {
	nodes := fresh.Nodes()
	ids := make(map[int]int, len(nodes))
	for _, n := range nodes {
		local := n.ID
		n.ContentID = contentID
		if err := r.Brackets.Create(ctx, n); err != nil {
			return nil, fmt.Errorf("failed to create bracket node r%d/p%d: %w", n.Round, n.Position, err)
		}
		ids[local] = n.ID
	}

	remap := func(id *int) *int {
		if id == nil {
			return nil
		}
		return intPtr(ids[*id])
	}
	for _, n := range nodes {
		n.NextNodeID = remap(n.NextNodeID)
		n.PrevNodeAID = remap(n.PrevNodeAID)
		n.PrevNodeBID = remap(n.PrevNodeBID)
		if err := r.Brackets.UpdateLinks(ctx, n); err != nil {
			return nil, fmt.Errorf("failed to link bracket node %d: %w", n.ID, err)
		}
	}
	return brackets.NewTree(contentID, nodes)
}

// createNodeMatch schedules the match of a ready node in slot sc.
func createNodeMatch(ctx context.Context, r repositories.Repositories, node *models.BracketNode, sc *models.Schedule) (*models.Match, error) {
	m := &models.Match{
		ContentID:  node.ContentID,
		ScheduleID: sc.ID,
		Entry1ID:   *node.EntryAID,
		Entry2ID:   *node.EntryBID,
		Status:     models.StatusScheduled,
	}
	if err := r.Matches.Create(ctx, m); err != nil {
		return nil, err
	}
	if err := r.Brackets.AssignMatch(ctx, node.ID, m.ID); err != nil {
		return nil, err
	}
	node.MatchID = intPtr(m.ID)
	return m, nil
}

func (s *bracketService) AdvanceWinner(ctx context.Context, nodeID, winnerEntryID int) (*AdvanceResult, error) {
	node, err := s.store.Repositories().Brackets.GetByID(ctx, nodeID)
	if err != nil {
		return nil, classify(err)
	}

	var result *AdvanceResult
	err = s.locked(ctx, []string{locks.BracketKey(node.ContentID)}, func() error {
		return s.store.RunInTx(ctx, func(r repositories.Repositories) error {
			res, err := advanceInTx(ctx, r, node.ContentID, nodeID, winnerEntryID, nil)
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

	s.Logger.InfoContext(ctx, "bracket node decided",
		slog.Int("node_id", nodeID), slog.Int("winner_entry_id", winnerEntryID), slog.Bool("changed", result.Advancement.Changed))
	if result.Advancement.Changed {
		s.Notifier.Notify(node.ContentID, brackets.EventBracketUpdated, result)
	}
	return result, nil
}

// advanceInTx decides a node and, when the next node fills up, schedules its
// match. source is the match being finalized, or nil for a manual decision.
// A manual decision cancels a scheduled match of the node as a walkover and is
// refused while that match is running.
func advanceInTx(ctx context.Context, r repositories.Repositories, contentID, nodeID, winnerEntryID int, source *models.Match) (*AdvanceResult, error) {
	nodes, err := r.Brackets.ListByContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	tree, err := brackets.NewTree(contentID, nodes)
	if err != nil {
		return nil, err
	}
	node, ok := tree.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, nodeID)
	}

	if source == nil && node.MatchID != nil && node.WinnerEntryID == nil {
		m, err := r.Matches.GetByID(ctx, *node.MatchID)
		if err != nil {
			return nil, err
		}
		switch m.Status {
		case models.StatusInProgress:
			return nil, fmt.Errorf("%w: node %d, match %d", ErrNodeMatchActive, nodeID, m.ID)
		case models.StatusScheduled:
			m.Status = models.MatchStatusCancelled
			if err := r.Matches.Update(ctx, m); err != nil {
				return nil, err
			}
		}
	}

	adv, err := tree.AdvanceWinner(nodeID, winnerEntryID)
	if err != nil {
		return nil, err
	}
	result := &AdvanceResult{Advancement: adv}
	if !adv.Changed {
		return result, nil
	}

	if err := r.Brackets.Update(ctx, adv.Node); err != nil {
		return nil, err
	}
	next := adv.Next
	if next == nil {
		return result, nil
	}
	if err := r.Brackets.Update(ctx, next); err != nil {
		return nil, err
	}
	if next.Status != models.NodeReady || next.MatchID != nil {
		return result, nil
	}

	sc, err := r.Schedules.GetByBracketNode(ctx, next.ID)
	if errors.Is(err, repositories.ErrScheduleNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.NextMatch, err = createNodeMatch(ctx, r, next, sc)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *bracketService) GetBracket(ctx context.Context, contentID int) (*BracketView, error) {
	repos := s.store.Repositories()
	if _, err := repos.Contents.GetByID(ctx, contentID); err != nil {
		return nil, classify(err)
	}
	nodes, err := repos.Brackets.ListByContent(ctx, contentID)
	if err != nil {
		return nil, classify(err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: content %d", ErrBracketNotFound, contentID)
	}
	tree, err := brackets.NewTree(contentID, nodes)
	if err != nil {
		return nil, classify(err)
	}
	return newBracketView(tree), nil
}
