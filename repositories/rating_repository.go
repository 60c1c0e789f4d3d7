package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Dosada05/tournament-progression/models"
)

type postgresRatingRepository struct {
	exec SQLExecutor
}

func (r *postgresRatingRepository) GetRatings(ctx context.Context, playerIDs []int) (map[int]int, error) {
	out := make(map[int]int, len(playerIDs))
	if len(playerIDs) == 0 {
		return out, nil
	}
	ids := make([]int64, len(playerIDs))
	for i, id := range playerIDs {
		ids[i] = int64(id)
	}

	rows, err := r.exec.QueryContext(ctx, `SELECT player_id, rating FROM ratings WHERE player_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var playerID, rating int
		if err := rows.Scan(&playerID, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		out[playerID] = rating
	}
	return out, rows.Err()
}

func (r *postgresRatingRepository) Upsert(ctx context.Context, rec *models.RatingRecord) error {
	rec.UpdatedAt = time.Now()
	query := `
		INSERT INTO ratings (player_id, rating, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (player_id) DO UPDATE SET rating = EXCLUDED.rating, updated_at = EXCLUDED.updated_at`
	if _, err := r.exec.ExecContext(ctx, query, rec.PlayerID, rec.Rating, rec.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save rating of player %d: %w", rec.PlayerID, err)
	}
	return nil
}

func (r *postgresRatingRepository) AddHistory(ctx context.Context, h *models.RatingHistoryEntry) error {
	query := `
		INSERT INTO rating_history (match_id, player_id, previous_rating, new_rating, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.exec.QueryRowContext(ctx, query, h.MatchID, h.PlayerID, h.PreviousRating, h.NewRating, h.Reason).
		Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to write rating history for player %d: %w", h.PlayerID, err), map[string]error{
			"rating_history_match_id_fkey": ErrMatchNotFound,
		})
	}
	return nil
}

func (r *postgresRatingRepository) ListHistoryByMatch(ctx context.Context, matchID int) ([]*models.RatingHistoryEntry, error) {
	query := `
		SELECT id, match_id, player_id, previous_rating, new_rating, reason, created_at
		FROM rating_history
		WHERE match_id = $1
		ORDER BY id`
	rows, err := r.exec.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rating history for match %d: %w", matchID, err)
	}
	defer rows.Close()

	out := make([]*models.RatingHistoryEntry, 0)
	for rows.Next() {
		h := &models.RatingHistoryEntry{}
		if err := rows.Scan(&h.ID, &h.MatchID, &h.PlayerID, &h.PreviousRating, &h.NewRating, &h.Reason, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
