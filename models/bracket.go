package models

type NodeStatus string

const (
	NodePending    NodeStatus = "pending"
	NodeReady      NodeStatus = "ready"
	NodeInProgress NodeStatus = "in_progress"
	NodeCompleted  NodeStatus = "completed"
)

// BracketNode is one slot of a single-elimination tree. Links to other nodes are
// plain IDs; the tree is walked through them, never by slice index.
type BracketNode struct {
	ID            int        `json:"id"`
	ContentID     int        `json:"content_id"`
	Round         int        `json:"round"`
	Position      int        `json:"position"`
	EntryAID      *int       `json:"entry_a_id,omitempty"`
	EntryBID      *int       `json:"entry_b_id,omitempty"`
	WinnerEntryID *int       `json:"winner_entry_id,omitempty"`
	NextNodeID    *int       `json:"next_node_id,omitempty"`
	PrevNodeAID   *int       `json:"prev_node_a_id,omitempty"`
	PrevNodeBID   *int       `json:"prev_node_b_id,omitempty"`
	MatchID       *int       `json:"match_id,omitempty"`
	Status        NodeStatus `json:"status"`
	RoundName     string     `json:"round_name"`
	IsBye         bool       `json:"is_bye"`
}

// HasEntry reports whether entryID occupies one of the node's slots.
func (n *BracketNode) HasEntry(entryID int) bool {
	return (n.EntryAID != nil && *n.EntryAID == entryID) || (n.EntryBID != nil && *n.EntryBID == entryID)
}

// Full reports whether both slots are populated.
func (n *BracketNode) Full() bool {
	return n.EntryAID != nil && n.EntryBID != nil
}
