package models

import "time"

// Entry is a competing unit of one content: a player, a pair or a team.
type Entry struct {
	ID        int       `json:"id" db:"id"`
	ContentID int       `json:"content_id" db:"content_id"`
	TeamID    int       `json:"team_id" db:"team_id"` // owning team/roster, 0 when unaffiliated
	Members   []int     `json:"members" db:"-"`       // player IDs, loaded from entry_members
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GroupAssignment places an entry into a named group of a content.
type GroupAssignment struct {
	ContentID int    `json:"content_id" db:"content_id"`
	GroupName string `json:"group_name" db:"group_name"`
	EntryID   int    `json:"entry_id" db:"entry_id"`
	Slot      int    `json:"slot" db:"slot"`
}
