package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-progression/models"
)

type postgresBracketRepository struct {
	exec SQLExecutor
}

const bracketColumns = `
	SELECT id, content_id, round, position, entry_a_id, entry_b_id, winner_entry_id,
	       next_node_id, prev_node_a_id, prev_node_b_id, match_id, status, round_name, is_bye
	FROM bracket_nodes`

func scanNode(row rowScanner) (*models.BracketNode, error) {
	n := &models.BracketNode{}
	err := row.Scan(&n.ID, &n.ContentID, &n.Round, &n.Position, &n.EntryAID, &n.EntryBID, &n.WinnerEntryID,
		&n.NextNodeID, &n.PrevNodeAID, &n.PrevNodeBID, &n.MatchID, &n.Status, &n.RoundName, &n.IsBye)
	return n, err
}

// Create inserts the node without its links; they are written by UpdateLinks
// once every node of the tree has an ID.
func (r *postgresBracketRepository) Create(ctx context.Context, n *models.BracketNode) error {
	query := `
		INSERT INTO bracket_nodes (content_id, round, position, entry_a_id, entry_b_id, winner_entry_id, status, round_name, is_bye)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := r.exec.QueryRowContext(ctx, query, n.ContentID, n.Round, n.Position, n.EntryAID, n.EntryBID,
		n.WinnerEntryID, n.Status, n.RoundName, n.IsBye).Scan(&n.ID)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to create bracket node r%d p%d: %w", n.Round, n.Position, err), map[string]error{
			"bracket_nodes_content_id_fkey": ErrContentNotFound,
		})
	}
	return nil
}

func (r *postgresBracketRepository) UpdateLinks(ctx context.Context, n *models.BracketNode) error {
	query := `UPDATE bracket_nodes SET next_node_id = $1, prev_node_a_id = $2, prev_node_b_id = $3 WHERE id = $4`
	result, err := r.exec.ExecContext(ctx, query, n.NextNodeID, n.PrevNodeAID, n.PrevNodeBID, n.ID)
	if err != nil {
		return fmt.Errorf("failed to link bracket node %d: %w", n.ID, err)
	}
	return checkAffectedRows(result, ErrBracketNodeNotFound)
}

func (r *postgresBracketRepository) Update(ctx context.Context, n *models.BracketNode) error {
	query := `
		UPDATE bracket_nodes
		SET entry_a_id = $1, entry_b_id = $2, winner_entry_id = $3, status = $4, is_bye = $5, match_id = $6
		WHERE id = $7`
	result, err := r.exec.ExecContext(ctx, query, n.EntryAID, n.EntryBID, n.WinnerEntryID, n.Status, n.IsBye, n.MatchID, n.ID)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to update bracket node %d: %w", n.ID, err), map[string]error{
			"bracket_nodes_match_id_key": ErrNodeMatchAssigned,
		})
	}
	return checkAffectedRows(result, ErrBracketNodeNotFound)
}

func (r *postgresBracketRepository) GetByID(ctx context.Context, id int) (*models.BracketNode, error) {
	n, err := scanNode(r.exec.QueryRowContext(ctx, bracketColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNodeNotFound
		}
		return nil, fmt.Errorf("failed to get bracket node %d: %w", id, err)
	}
	return n, nil
}

func (r *postgresBracketRepository) GetByMatch(ctx context.Context, matchID int) (*models.BracketNode, error) {
	n, err := scanNode(r.exec.QueryRowContext(ctx, bracketColumns+` WHERE match_id = $1`, matchID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNodeNotFound
		}
		return nil, fmt.Errorf("failed to get bracket node of match %d: %w", matchID, err)
	}
	return n, nil
}

func (r *postgresBracketRepository) ListByContent(ctx context.Context, contentID int) ([]*models.BracketNode, error) {
	rows, err := r.exec.QueryContext(ctx, bracketColumns+` WHERE content_id = $1 ORDER BY round, position`, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bracket nodes for content %d: %w", contentID, err)
	}
	defer rows.Close()

	nodes := make([]*models.BracketNode, 0)
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bracket node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (r *postgresBracketRepository) AssignMatch(ctx context.Context, nodeID, matchID int) error {
	result, err := r.exec.ExecContext(ctx,
		`UPDATE bracket_nodes SET match_id = $1 WHERE id = $2 AND match_id IS NULL`, matchID, nodeID)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to assign match %d to node %d: %w", matchID, nodeID, err), map[string]error{
			"bracket_nodes_match_id_key": ErrNodeMatchAssigned,
		})
	}
	return checkAffectedRows(result, ErrNodeMatchAssigned)
}

func (r *postgresBracketRepository) DeleteByContent(ctx context.Context, contentID int) error {
	if _, err := r.exec.ExecContext(ctx, `DELETE FROM bracket_nodes WHERE content_id = $1`, contentID); err != nil {
		return fmt.Errorf("failed to delete bracket nodes for content %d: %w", contentID, err)
	}
	return nil
}
