package models

import "time"

// GroupStanding is the accumulated record of one entry in one round-robin group.
type GroupStanding struct {
	ID            int       `json:"id" db:"id"`
	ContentID     int       `json:"content_id" db:"content_id"`
	GroupName     string    `json:"group_name" db:"group_name"`
	EntryID       int       `json:"entry_id" db:"entry_id"`
	MatchesPlayed int       `json:"matches_played" db:"matches_played"`
	MatchesWon    int       `json:"matches_won" db:"matches_won"`
	MatchesLost   int       `json:"matches_lost" db:"matches_lost"`
	SetsWon       int       `json:"sets_won" db:"sets_won"`
	SetsLost      int       `json:"sets_lost" db:"sets_lost"`
	SetsDiff      int       `json:"sets_diff" db:"sets_diff"`
	Position      *int      `json:"position,omitempty" db:"position"` // Nullable until the group is ranked
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
