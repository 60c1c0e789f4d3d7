package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Dosada05/tournament-progression/models"
)

type postgresContentRepository struct {
	exec SQLExecutor
}

func (r *postgresContentRepository) Create(ctx context.Context, content *models.Content) error {
	query := `
		INSERT INTO contents (tournament_id, name, settings_json)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := r.exec.QueryRowContext(ctx, query, content.TournamentID, content.Name, content.SettingsJSON).
		Scan(&content.ID, &content.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create content: %w", err)
	}
	return nil
}

func (r *postgresContentRepository) GetByID(ctx context.Context, id int) (*models.Content, error) {
	query := `SELECT id, tournament_id, name, settings_json, created_at FROM contents WHERE id = $1`
	c := &models.Content{}
	err := r.exec.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.TournamentID, &c.Name, &c.SettingsJSON, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to get content %d: %w", id, err)
	}
	return c, nil
}

type postgresEntryRepository struct {
	exec SQLExecutor
}

func (r *postgresEntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	query := `INSERT INTO entries (content_id, team_id) VALUES ($1, $2) RETURNING id, created_at`
	err := r.exec.QueryRowContext(ctx, query, entry.ContentID, entry.TeamID).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to create entry: %w", err), map[string]error{
			"entries_content_id_fkey": ErrContentNotFound,
		})
	}
	for _, playerID := range entry.Members {
		if _, err := r.exec.ExecContext(ctx,
			`INSERT INTO entry_members (entry_id, player_id) VALUES ($1, $2)`, entry.ID, playerID); err != nil {
			return fmt.Errorf("failed to add player %d to entry %d: %w", playerID, entry.ID, err)
		}
	}
	return nil
}

const entryColumns = `
	SELECT e.id, e.content_id, e.team_id, e.created_at,
	       COALESCE(ARRAY(SELECT m.player_id FROM entry_members m WHERE m.entry_id = e.id ORDER BY m.player_id), '{}')
	FROM entries e`

func (r *postgresEntryRepository) scanEntry(row rowScanner) (*models.Entry, error) {
	e := &models.Entry{}
	var members pq.Int64Array
	if err := row.Scan(&e.ID, &e.ContentID, &e.TeamID, &e.CreatedAt, &members); err != nil {
		return nil, err
	}
	e.Members = make([]int, len(members))
	for i, m := range members {
		e.Members[i] = int(m)
	}
	return e, nil
}

func (r *postgresEntryRepository) GetByID(ctx context.Context, id int) (*models.Entry, error) {
	e, err := r.scanEntry(r.exec.QueryRowContext(ctx, entryColumns+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry %d: %w", id, err)
	}
	return e, nil
}

func (r *postgresEntryRepository) ListByContent(ctx context.Context, contentID int) ([]*models.Entry, error) {
	rows, err := r.exec.QueryContext(ctx, entryColumns+` WHERE e.content_id = $1 ORDER BY e.id`, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for content %d: %w", contentID, err)
	}
	defer rows.Close()

	entries := make([]*models.Entry, 0)
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type postgresGroupRepository struct {
	exec SQLExecutor
}

func (r *postgresGroupRepository) ReplaceAssignments(ctx context.Context, contentID int, assignments []models.GroupAssignment) error {
	if _, err := r.exec.ExecContext(ctx, `DELETE FROM group_assignments WHERE content_id = $1`, contentID); err != nil {
		return fmt.Errorf("failed to clear group assignments for content %d: %w", contentID, err)
	}
	query := `INSERT INTO group_assignments (content_id, group_name, entry_id, slot) VALUES ($1, $2, $3, $4)`
	for _, a := range assignments {
		if _, err := r.exec.ExecContext(ctx, query, contentID, a.GroupName, a.EntryID, a.Slot); err != nil {
			return mapConstraintError(fmt.Errorf("failed to assign entry %d to group %s: %w", a.EntryID, a.GroupName, err), map[string]error{
				"group_assignments_entry_id_fkey": ErrEntryNotFound,
			})
		}
	}
	return nil
}

func (r *postgresGroupRepository) ListAssignments(ctx context.Context, contentID int) ([]models.GroupAssignment, error) {
	query := `
		SELECT content_id, group_name, entry_id, slot
		FROM group_assignments
		WHERE content_id = $1
		ORDER BY length(group_name), group_name, slot`
	rows, err := r.exec.QueryContext(ctx, query, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group assignments for content %d: %w", contentID, err)
	}
	defer rows.Close()

	out := make([]models.GroupAssignment, 0)
	for rows.Next() {
		var a models.GroupAssignment
		if err := rows.Scan(&a.ContentID, &a.GroupName, &a.EntryID, &a.Slot); err != nil {
			return nil, fmt.Errorf("failed to scan group assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type postgresOfficialRepository struct {
	exec SQLExecutor
}

func (r *postgresOfficialRepository) Create(ctx context.Context, o *models.Official) error {
	query := `INSERT INTO officials (tournament_id, name, available) VALUES ($1, $2, $3) RETURNING id`
	if err := r.exec.QueryRowContext(ctx, query, o.TournamentID, o.Name, o.Available).Scan(&o.ID); err != nil {
		return fmt.Errorf("failed to create official: %w", err)
	}
	return nil
}

func (r *postgresOfficialRepository) ListAvailable(ctx context.Context, tournamentID int) ([]*models.Official, error) {
	query := `
		SELECT id, tournament_id, name, available
		FROM officials
		WHERE tournament_id = $1 AND available
		ORDER BY id`
	rows, err := r.exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list officials for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	out := make([]*models.Official, 0)
	for rows.Next() {
		o := &models.Official{}
		if err := rows.Scan(&o.ID, &o.TournamentID, &o.Name, &o.Available); err != nil {
			return nil, fmt.Errorf("failed to scan official: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
