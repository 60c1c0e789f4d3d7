package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Dosada05/tournament-progression/brackets"
	"github.com/Dosada05/tournament-progression/groups"
	"github.com/Dosada05/tournament-progression/locks"
	"github.com/Dosada05/tournament-progression/models"
	"github.com/Dosada05/tournament-progression/repositories"
	"github.com/Dosada05/tournament-progression/standings"
)

// GroupRanking is the ordered table of one group.
type GroupRanking struct {
	GroupName string                 `json:"group_name"`
	Standings []models.GroupStanding `json:"standings"`
}

type GroupService interface {
	PlanGroups(totalEntries int) (groups.Layout, error)
	DrawGroups(ctx context.Context, contentID int) ([]models.GroupAssignment, error)
	// RankGroup ranks one group, or every group of the content when groupName is nil.
	RankGroup(ctx context.Context, contentID int, groupName *string) ([]GroupRanking, error)
	GetStandings(ctx context.Context, contentID int) ([]GroupRanking, error)
}

type groupService struct {
	store repositories.Store
	Common
}

func NewGroupService(store repositories.Store, common Common) GroupService {
	return &groupService{store: store, Common: common.withDefaults()}
}

func (s *groupService) PlanGroups(totalEntries int) (groups.Layout, error) {
	layout, err := groups.ComputeLayout(totalEntries)
	if err != nil {
		return groups.Layout{}, classify(err)
	}
	return layout, nil
}

func (s *groupService) DrawGroups(ctx context.Context, contentID int) ([]models.GroupAssignment, error) {
	var assignments []models.GroupAssignment
	var fixtures int

	err := s.locked(ctx, []string{locks.ContentKey(contentID), locks.BracketKey(contentID)}, func() error {
		return s.store.RunInTx(ctx, func(r repositories.Repositories) error {
			if _, err := r.Contents.GetByID(ctx, contentID); err != nil {
				return err
			}
			stage := models.StageGroup
			existing, err := r.Matches.ListByContent(ctx, contentID, &stage)
			if err != nil {
				return err
			}
			if started(existing) {
				return ErrGroupStageStarted
			}

			entries, err := r.Entries.ListByContent(ctx, contentID)
			if err != nil {
				return err
			}
			layout, err := groups.ComputeLayout(len(entries))
			if err != nil {
				return err
			}
			drawn, err := groups.Draw(entries, layout, s.Rand())
			if err != nil {
				return err
			}

			assignments = make([]models.GroupAssignment, 0, len(entries))
			for _, g := range drawn {
				for slot, e := range g.Entries {
					assignments = append(assignments, models.GroupAssignment{ContentID: contentID, GroupName: g.Name, EntryID: e.ID, Slot: slot + 1})
				}
			}
			if err := r.Groups.ReplaceAssignments(ctx, contentID, assignments); err != nil {
				return err
			}
			if err := r.Schedules.DeleteByContentStage(ctx, contentID, models.StageGroup); err != nil {
				return err
			}
			if err := r.Standings.DeleteByContent(ctx, contentID); err != nil {
				return err
			}

			fixtures, err = createGroupFixtures(ctx, r, contentID, drawn)
			return err
		})
	})
	if err != nil {
		return nil, classify(err)
	}

	s.Logger.InfoContext(ctx, "groups drawn",
		slog.Int("content_id", contentID), slog.Int("entries", len(assignments)), slog.Int("matches", fixtures))
	s.Notifier.Notify(contentID, brackets.EventGroupsDrawn, assignments)
	return assignments, nil
}

// createGroupFixtures schedules the round robin of every group and returns the
// number of matches created.
func createGroupFixtures(ctx context.Context, r repositories.Repositories, contentID int, drawn []groups.Group) (int, error) {
	created := 0
	for _, g := range drawn {
		for _, f := range groups.RoundRobinFixtures(g.Entries) {
			sc := &models.Schedule{ContentID: contentID, Stage: models.StageGroup, GroupName: strPtr(g.Name)}
			if err := r.Schedules.Create(ctx, sc); err != nil {
				return created, err
			}
			m := &models.Match{
				ContentID:  contentID,
				ScheduleID: sc.ID,
				Entry1ID:   f.Entry1ID,
				Entry2ID:   f.Entry2ID,
				Status:     models.StatusScheduled,
			}
			if err := r.Matches.Create(ctx, m); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

// started reports whether any of the matches has left the scheduled state
// other than by cancellation.
func started(matches []*models.Match) bool {
	for _, m := range matches {
		if m.Status == models.StatusInProgress || m.Status == models.MatchStatusCompleted {
			return true
		}
	}
	return false
}

func (s *groupService) RankGroup(ctx context.Context, contentID int, groupName *string) ([]GroupRanking, error) {
	var rankings []GroupRanking

	err := s.locked(ctx, []string{locks.ContentKey(contentID)}, func() error {
		return s.store.RunInTx(ctx, func(r repositories.Repositories) error {
			if _, err := r.Contents.GetByID(ctx, contentID); err != nil {
				return err
			}
			members, err := groupMembers(ctx, r, contentID)
			if err != nil {
				return err
			}

			names := groupNames(members)
			if groupName != nil {
				if _, ok := members[*groupName]; !ok {
					return fmt.Errorf("%w %q in content %d", ErrGroupNotFound, *groupName, contentID)
				}
				names = []string{*groupName}
			}

			rankings = make([]GroupRanking, 0, len(names))
			for _, name := range names {
				ranked, err := rankAndStore(ctx, r, contentID, name, members[name])
				if err != nil {
					return err
				}
				rankings = append(rankings, GroupRanking{GroupName: name, Standings: ranked})
			}
			return nil
		})
	})
	if err != nil {
		return nil, classify(err)
	}

	s.Logger.InfoContext(ctx, "groups ranked", slog.Int("content_id", contentID), slog.Int("groups", len(rankings)))
	s.Notifier.Notify(contentID, brackets.EventStandingsUpdated, rankings)
	return rankings, nil
}

// groupMembers maps every drawn group of the content to its entries in slot order.
func groupMembers(ctx context.Context, r repositories.Repositories, contentID int) (map[string][]int, error) {
	assignments, err := r.Groups.ListAssignments(ctx, contentID)
	if err != nil {
		return nil, err
	}
	members := make(map[string][]int)
	for _, a := range assignments {
		members[a.GroupName] = append(members[a.GroupName], a.EntryID)
	}
	return members, nil
}

// groupNames returns the group names in draw order: A..Z, AA, AB, ...
func groupNames(members map[string][]int) []string {
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	return names
}

// rankAndStore ranks one group and saves the positions. Entries without a
// standing row yet take part with zero stats after the existing rows.
func rankAndStore(ctx context.Context, r repositories.Repositories, contentID int, groupName string, entryIDs []int) ([]models.GroupStanding, error) {
	stored, err := r.Standings.ListByGroup(ctx, contentID, groupName)
	if err != nil {
		return nil, err
	}
	rows := make([]models.GroupStanding, 0, len(entryIDs))
	seen := make(map[int]bool, len(stored))
	for _, row := range stored {
		rows = append(rows, *row)
		seen[row.EntryID] = true
	}
	for _, id := range entryIDs {
		if !seen[id] {
			rows = append(rows, models.GroupStanding{ContentID: contentID, GroupName: groupName, EntryID: id})
		}
	}

	matches, err := r.Matches.ListByGroup(ctx, contentID, groupName)
	if err != nil {
		return nil, err
	}
	ranked := standings.Rank(rows, standings.BuildHeadToHead(matches))
	for i := range ranked {
		if err := r.Standings.Upsert(ctx, &ranked[i]); err != nil {
			return nil, err
		}
	}
	if ranked == nil {
		ranked = []models.GroupStanding{}
	}
	return ranked, nil
}

func (s *groupService) GetStandings(ctx context.Context, contentID int) ([]GroupRanking, error) {
	repos := s.store.Repositories()
	if _, err := repos.Contents.GetByID(ctx, contentID); err != nil {
		return nil, classify(err)
	}
	rows, err := repos.Standings.ListByContent(ctx, contentID)
	if err != nil {
		return nil, classify(err)
	}
	return collectRankings(rows), nil
}

// collectRankings groups rows by group name, ordering each group by position
// with unranked rows last.
func collectRankings(rows []*models.GroupStanding) []GroupRanking {
	byGroup := make(map[string][]models.GroupStanding)
	for _, row := range rows {
		byGroup[row.GroupName] = append(byGroup[row.GroupName], *row)
	}
	names := make(map[string][]int, len(byGroup))
	for name := range byGroup {
		names[name] = nil
	}

	out := make([]GroupRanking, 0, len(byGroup))
	for _, name := range groupNames(names) {
		table := byGroup[name]
		slices.SortStableFunc(table, func(a, b models.GroupStanding) int {
			switch {
			case a.Position == nil && b.Position == nil:
				return 0
			case a.Position == nil:
				return 1
			case b.Position == nil:
				return -1
			}
			return *a.Position - *b.Position
		})
		out = append(out, GroupRanking{GroupName: name, Standings: table})
	}
	return out
}
