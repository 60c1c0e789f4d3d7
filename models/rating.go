package models

import "time"

const DefaultRating = 1000

type RatingRecord struct {
	PlayerID  int       `json:"player_id"`
	Rating    int       `json:"rating"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingHistoryEntry is the immutable audit row written for every rated participant of a match.
type RatingHistoryEntry struct {
	ID             int       `json:"id"`
	MatchID        int       `json:"match_id"`
	PlayerID       int       `json:"player_id"`
	PreviousRating int       `json:"previous_rating"`
	NewRating      int       `json:"new_rating"`
	Reason         string    `json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}
