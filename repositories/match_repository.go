package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-progression/models"
)

type postgresScheduleRepository struct {
	exec SQLExecutor
}

func (r *postgresScheduleRepository) Create(ctx context.Context, s *models.Schedule) error {
	query := `
		INSERT INTO schedules (content_id, stage, group_name, bracket_node_id, court, starts_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.exec.QueryRowContext(ctx, query, s.ContentID, s.Stage, s.GroupName, s.BracketNodeID, s.Court, s.StartsAt).Scan(&s.ID)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to create schedule: %w", err), map[string]error{
			"schedules_content_id_fkey":      ErrContentNotFound,
			"schedules_bracket_node_id_fkey": ErrBracketNodeNotFound,
		})
	}
	return nil
}

const scheduleColumns = `SELECT id, content_id, stage, group_name, bracket_node_id, court, starts_at FROM schedules`

func (r *postgresScheduleRepository) get(ctx context.Context, where string, arg int) (*models.Schedule, error) {
	s := &models.Schedule{}
	err := r.exec.QueryRowContext(ctx, scheduleColumns+" WHERE "+where, arg).
		Scan(&s.ID, &s.ContentID, &s.Stage, &s.GroupName, &s.BracketNodeID, &s.Court, &s.StartsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return s, nil
}

func (r *postgresScheduleRepository) GetByID(ctx context.Context, id int) (*models.Schedule, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *postgresScheduleRepository) GetByBracketNode(ctx context.Context, nodeID int) (*models.Schedule, error) {
	return r.get(ctx, "bracket_node_id = $1", nodeID)
}

func (r *postgresScheduleRepository) DeleteByContentStage(ctx context.Context, contentID int, stage models.Stage) error {
	// Matches and their sets go with the schedule rows.
	_, err := r.exec.ExecContext(ctx, `DELETE FROM schedules WHERE content_id = $1 AND stage = $2`, contentID, stage)
	if err != nil {
		return fmt.Errorf("failed to delete %s schedules for content %d: %w", stage, contentID, err)
	}
	return nil
}

type postgresMatchRepository struct {
	exec SQLExecutor
}

const matchColumns = `
	SELECT m.id, m.content_id, m.schedule_id, m.entry1_id, m.entry2_id, m.status, m.winner_entry_id,
	       m.referee_id, m.assistant_referee_id, m.started_at, m.completed_at, m.created_at
	FROM matches m`

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(&m.ID, &m.ContentID, &m.ScheduleID, &m.Entry1ID, &m.Entry2ID, &m.Status, &m.WinnerEntryID,
		&m.RefereeID, &m.AssistantRefereeID, &m.StartedAt, &m.CompletedAt, &m.CreatedAt)
	return m, err
}

func (r *postgresMatchRepository) Create(ctx context.Context, m *models.Match) error {
	query := `
		INSERT INTO matches (content_id, schedule_id, entry1_id, entry2_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.exec.QueryRowContext(ctx, query, m.ContentID, m.ScheduleID, m.Entry1ID, m.Entry2ID, m.Status).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to create match: %w", err), map[string]error{
			"matches_schedule_id_key":  ErrDuplicateScheduleMatch,
			"matches_schedule_id_fkey": ErrScheduleNotFound,
			"matches_entry1_id_fkey":   ErrEntryNotFound,
			"matches_entry2_id_fkey":   ErrEntryNotFound,
		})
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, err := scanMatch(r.exec.QueryRowContext(ctx, matchColumns+` WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, m *models.Match) error {
	query := `
		UPDATE matches
		SET status = $1, winner_entry_id = $2, referee_id = $3, assistant_referee_id = $4,
		    started_at = $5, completed_at = $6
		WHERE id = $7`
	result, err := r.exec.ExecContext(ctx, query, m.Status, m.WinnerEntryID, m.RefereeID, m.AssistantRefereeID,
		m.StartedAt, m.CompletedAt, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update match %d: %w", m.ID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) ListByContent(ctx context.Context, contentID int, stage *models.Stage) ([]*models.Match, error) {
	var qb strings.Builder
	qb.WriteString(matchColumns)
	qb.WriteString(` JOIN schedules s ON s.id = m.schedule_id WHERE m.content_id = $1`)
	args := []interface{}{contentID}
	if stage != nil {
		args = append(args, *stage)
		qb.WriteString(" AND s.stage = $" + strconv.Itoa(len(args)))
	}
	qb.WriteString(" ORDER BY m.id")
	return r.list(ctx, qb.String(), args...)
}

func (r *postgresMatchRepository) ListByGroup(ctx context.Context, contentID int, groupName string) ([]*models.Match, error) {
	query := matchColumns + `
		JOIN schedules s ON s.id = m.schedule_id
		WHERE m.content_id = $1 AND s.stage = 'group' AND s.group_name = $2
		ORDER BY m.id`
	return r.list(ctx, query, contentID, groupName)
}

func (r *postgresMatchRepository) ListInProgressByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := matchColumns + `
		JOIN contents c ON c.id = m.content_id
		WHERE c.tournament_id = $1 AND m.status = 'in_progress'
		ORDER BY m.id`
	return r.list(ctx, query, tournamentID)
}

type postgresMatchSetRepository struct {
	exec SQLExecutor
}

func (r *postgresMatchSetRepository) Create(ctx context.Context, s *models.MatchSet) error {
	query := `
		INSERT INTO match_sets (match_id, set_number, score_a, score_b)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := r.exec.QueryRowContext(ctx, query, s.MatchID, s.SetNumber, s.ScoreA, s.ScoreB).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to record set: %w", err), map[string]error{
			"match_sets_match_id_set_number_key": ErrDuplicateSetNumber,
			"match_sets_match_id_fkey":           ErrMatchNotFound,
		})
	}
	return nil
}

func (r *postgresMatchSetRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchSet, error) {
	query := `
		SELECT id, match_id, set_number, score_a, score_b, created_at
		FROM match_sets
		WHERE match_id = $1
		ORDER BY set_number`
	rows, err := r.exec.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sets for match %d: %w", matchID, err)
	}
	defer rows.Close()

	sets := make([]*models.MatchSet, 0)
	for rows.Next() {
		s := &models.MatchSet{}
		if err := rows.Scan(&s.ID, &s.MatchID, &s.SetNumber, &s.ScoreA, &s.ScoreB, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan set: %w", err)
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}
