package models

import (
	"encoding/json"
	"time"
)

const DefaultMaxSets = 3

// ContentSettings holds the per-event configuration stored as JSON on the content row.
type ContentSettings struct {
	MaxSets int `json:"max_sets"` // 3 for best-of-3, 5 for best-of-5
	// SeparateGroupQualifiers keeps a group runner-up out of its group winner's half
	// when a knockout bracket is built from group results.
	SeparateGroupQualifiers bool `json:"separate_group_qualifiers"`
}

// Content is one event of a tournament, e.g. "Men's Singles".
type Content struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	SettingsJSON *string   `json:"-" db:"settings_json"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Settings parses SettingsJSON, falling back to defaults for missing or invalid values.
func (c *Content) Settings() (ContentSettings, error) {
	settings := ContentSettings{MaxSets: DefaultMaxSets}
	if c.SettingsJSON == nil || *c.SettingsJSON == "" {
		return settings, nil
	}
	if err := json.Unmarshal([]byte(*c.SettingsJSON), &settings); err != nil {
		return ContentSettings{MaxSets: DefaultMaxSets}, err
	}
	if settings.MaxSets < 1 || settings.MaxSets%2 == 0 {
		settings.MaxSets = DefaultMaxSets
	}
	return settings, nil
}

// SetsToWin is the number of sets a side needs to take the match.
func (s ContentSettings) SetsToWin() int {
	return s.MaxSets/2 + 1
}
