package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-progression/models"
)

type postgresStandingRepository struct {
	exec SQLExecutor
}

const standingColumns = `
	SELECT id, content_id, group_name, entry_id, matches_played, matches_won, matches_lost,
	       sets_won, sets_lost, sets_diff, position, updated_at
	FROM group_standings`

func (r *postgresStandingRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.GroupStanding, error) {
	rows, err := r.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query group standings: %w", err)
	}
	defer rows.Close()

	out := make([]*models.GroupStanding, 0)
	for rows.Next() {
		s := &models.GroupStanding{}
		if err := rows.Scan(&s.ID, &s.ContentID, &s.GroupName, &s.EntryID, &s.MatchesPlayed, &s.MatchesWon,
			&s.MatchesLost, &s.SetsWon, &s.SetsLost, &s.SetsDiff, &s.Position, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group standing: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *postgresStandingRepository) ListByGroup(ctx context.Context, contentID int, groupName string) ([]*models.GroupStanding, error) {
	return r.list(ctx, standingColumns+` WHERE content_id = $1 AND group_name = $2 ORDER BY id`, contentID, groupName)
}

func (r *postgresStandingRepository) ListByContent(ctx context.Context, contentID int) ([]*models.GroupStanding, error) {
	return r.list(ctx, standingColumns+` WHERE content_id = $1 ORDER BY length(group_name), group_name, id`, contentID)
}

func (r *postgresStandingRepository) Upsert(ctx context.Context, s *models.GroupStanding) error {
	s.UpdatedAt = time.Now()
	query := `
		INSERT INTO group_standings
		    (content_id, group_name, entry_id, matches_played, matches_won, matches_lost,
		     sets_won, sets_lost, sets_diff, position, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (content_id, group_name, entry_id) DO UPDATE SET
		    matches_played = EXCLUDED.matches_played,
		    matches_won    = EXCLUDED.matches_won,
		    matches_lost   = EXCLUDED.matches_lost,
		    sets_won       = EXCLUDED.sets_won,
		    sets_lost      = EXCLUDED.sets_lost,
		    sets_diff      = EXCLUDED.sets_diff,
		    position       = EXCLUDED.position,
		    updated_at     = EXCLUDED.updated_at
		RETURNING id`
	err := r.exec.QueryRowContext(ctx, query, s.ContentID, s.GroupName, s.EntryID, s.MatchesPlayed, s.MatchesWon,
		s.MatchesLost, s.SetsWon, s.SetsLost, s.SetsDiff, s.Position, s.UpdatedAt).Scan(&s.ID)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to save standing of entry %d: %w", s.EntryID, err), map[string]error{
			"group_standings_entry_id_fkey":   ErrEntryNotFound,
			"group_standings_content_id_fkey": ErrContentNotFound,
		})
	}
	return nil
}

func (r *postgresStandingRepository) DeleteByContent(ctx context.Context, contentID int) error {
	if _, err := r.exec.ExecContext(ctx, `DELETE FROM group_standings WHERE content_id = $1`, contentID); err != nil {
		return fmt.Errorf("failed to delete group standings for content %d: %w", contentID, err)
	}
	return nil
}
