package models

import "time"

type MatchStatus string

const (
	StatusScheduled      MatchStatus = "scheduled"
	StatusInProgress     MatchStatus = "in_progress"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

type Stage string

const (
	StageGroup    Stage = "group"
	StageKnockout Stage = "knockout"
)

// Schedule is a slot in the order of play. Group slots carry the group name,
// knockout slots are assigned to a bracket node.
type Schedule struct {
	ID            int       `json:"id" db:"id"`
	ContentID     int       `json:"content_id" db:"content_id"`
	Stage         Stage     `json:"stage" db:"stage"`
	GroupName     *string   `json:"group_name,omitempty" db:"group_name"`
	BracketNodeID *int      `json:"bracket_node_id,omitempty" db:"bracket_node_id"`
	Court         *string   `json:"court,omitempty" db:"court"`
	StartsAt      *time.Time `json:"starts_at,omitempty" db:"starts_at"`
}

type Match struct {
	ID                 int         `json:"id"`
	ContentID          int         `json:"content_id"`
	ScheduleID         int         `json:"schedule_id"`
	Entry1ID           int         `json:"entry1_id"`
	Entry2ID           int         `json:"entry2_id"`
	Status             MatchStatus `json:"status"`
	WinnerEntryID      *int        `json:"winner_entry_id,omitempty"`
	RefereeID          *int        `json:"referee_id,omitempty"`
	AssistantRefereeID *int        `json:"assistant_referee_id,omitempty"`
	StartedAt          *time.Time  `json:"started_at,omitempty"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// HasEntry reports whether entryID is one of the two sides.
func (m *Match) HasEntry(entryID int) bool {
	return m.Entry1ID == entryID || m.Entry2ID == entryID
}

// Opponent returns the other side of the match.
func (m *Match) Opponent(entryID int) int {
	if entryID == m.Entry1ID {
		return m.Entry2ID
	}
	return m.Entry1ID
}

// MatchSet is one game of a match. ScoreA belongs to Entry1, ScoreB to Entry2.
type MatchSet struct {
	ID        int       `json:"id"`
	MatchID   int       `json:"match_id"`
	SetNumber int       `json:"set_number"`
	ScoreA    int       `json:"score_a"`
	ScoreB    int       `json:"score_b"`
	CreatedAt time.Time `json:"created_at"`
}

// CountSetWins returns the number of sets won by each side.
func CountSetWins(sets []*MatchSet) (winsA, winsB int) {
	for _, s := range sets {
		switch {
		case s.ScoreA > s.ScoreB:
			winsA++
		case s.ScoreB > s.ScoreA:
			winsB++
		}
	}
	return winsA, winsB
}

// Official referees matches of a tournament.
type Official struct {
	ID           int    `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	Name         string `json:"name" db:"name"`
	Available    bool   `json:"available" db:"available"`
}
