package brackets

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/Dosada05/tournament-progression/models"
)

// Tree is the arena of a content's knockout nodes, indexed by node ID.
// Nodes refer to each other only through their link IDs.
type Tree struct {
	ContentID int
	Size      int
	nodes     map[int]*models.BracketNode
}

// NewTree wraps persisted nodes. The bracket size is derived from the number of
// first round nodes.
func NewTree(contentID int, nodes []*models.BracketNode) (*Tree, error) {
	t := &Tree{ContentID: contentID, nodes: make(map[int]*models.BracketNode, len(nodes))}
	firstRound := 0
	for _, n := range nodes {
		if _, dup := t.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node %d", ErrInvalidTree, n.ID)
		}
		t.nodes[n.ID] = n
		if n.Round == 1 {
			firstRound++
		}
	}
	t.Size = firstRound * 2
	return t, nil
}

// Rounds is log2 of the bracket size.
func (t *Tree) Rounds() int {
	if t.Size == 0 {
		return 0
	}
	return bits.TrailingZeros(uint(t.Size))
}

func (t *Tree) Node(id int) (*models.BracketNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Nodes returns every node ordered by round, then position.
func (t *Tree) Nodes() []*models.BracketNode {
	out := make([]*models.BracketNode, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b *models.BracketNode) int {
		if a.Round != b.Round {
			return a.Round - b.Round
		}
		return a.Position - b.Position
	})
	return out
}

// Round returns the nodes of round r ordered by position.
func (t *Tree) Round(r int) []*models.BracketNode {
	out := make([]*models.BracketNode, 0)
	for _, n := range t.Nodes() {
		if n.Round == r {
			out = append(out, n)
		}
	}
	return out
}

// Final is the node without a successor, or nil for an empty tree.
func (t *Tree) Final() *models.BracketNode {
	for _, n := range t.nodes {
		if n.NextNodeID == nil {
			return n
		}
	}
	return nil
}

// Advancement describes what AdvanceWinner changed.
type Advancement struct {
	Node    *models.BracketNode `json:"node"`
	Next    *models.BracketNode `json:"next,omitempty"`
	Changed bool                `json:"changed"`
}

// AdvanceWinner completes a node with winnerID and moves the winner into the
// slot of the next node that this node feeds. The next node becomes ready once
// both of its slots are filled.
//
// Repeating the recorded winner is a no-op; naming a different one is an error.
// A node still waiting for one of its entries cannot be decided.
func (t *Tree) AdvanceWinner(nodeID, winnerID int) (Advancement, error) {
	node, ok := t.nodes[nodeID]
	if !ok {
		return Advancement{}, fmt.Errorf("%w: %d", ErrNodeNotFound, nodeID)
	}
	if !node.HasEntry(winnerID) {
		return Advancement{}, fmt.Errorf("%w: entry %d, node %d", ErrWinnerNotInNode, winnerID, nodeID)
	}
	if node.WinnerEntryID != nil {
		if *node.WinnerEntryID == winnerID {
			return Advancement{Node: node, Next: t.next(node)}, nil
		}
		return Advancement{}, fmt.Errorf("%w: node %d won by entry %d", ErrNodeAlreadyDecided, nodeID, *node.WinnerEntryID)
	}
	if !node.Full() && !node.IsBye {
		return Advancement{}, fmt.Errorf("%w: node %d", ErrNodeNotReady, nodeID)
	}

	node.WinnerEntryID = intPtr(winnerID)
	node.Status = models.NodeCompleted
	next, err := t.propagate(node)
	if err != nil {
		return Advancement{}, err
	}
	return Advancement{Node: node, Next: next, Changed: true}, nil
}

func (t *Tree) next(node *models.BracketNode) *models.BracketNode {
	if node.NextNodeID == nil {
		return nil
	}
	return t.nodes[*node.NextNodeID]
}

// propagate copies a decided node's winner into its successor.
func (t *Tree) propagate(node *models.BracketNode) (*models.BracketNode, error) {
	if node.NextNodeID == nil {
		return nil, nil
	}
	next, ok := t.nodes[*node.NextNodeID]
	if !ok {
		return nil, fmt.Errorf("%w: node %d points at missing node %d", ErrInvalidTree, node.ID, *node.NextNodeID)
	}

	winner := intPtr(*node.WinnerEntryID)
	switch {
	case next.PrevNodeAID != nil && *next.PrevNodeAID == node.ID:
		next.EntryAID = winner
	case next.PrevNodeBID != nil && *next.PrevNodeBID == node.ID:
		next.EntryBID = winner
	default:
		return nil, fmt.Errorf("%w: node %d is not a predecessor of node %d", ErrInvalidTree, node.ID, next.ID)
	}

	switch {
	case next.WinnerEntryID != nil:
		// A decided node keeps its status.
	case next.Full():
		next.Status = models.NodeReady
	default:
		next.Status = models.NodePending
	}
	return next, nil
}

// Reseed overwrites the first round of t with the first round of fresh,
// keeping t's node IDs and links. Later rounds are cleared and byes are
// propagated again. Match references are dropped from every node.
func (t *Tree) Reseed(fresh *Tree) error {
	if fresh.Size != t.Size {
		return fmt.Errorf("%w: existing %d, new %d", ErrSizeMismatch, t.Size, fresh.Size)
	}

	current, seeded := t.Round(1), fresh.Round(1)
	for _, n := range t.nodes {
		n.MatchID = nil
		if n.Round > 1 {
			n.EntryAID, n.EntryBID, n.WinnerEntryID = nil, nil, nil
			n.Status = models.NodePending
			n.IsBye = false
		}
	}
	for i, n := range current {
		src := seeded[i]
		n.EntryAID, n.EntryBID = src.EntryAID, src.EntryBID
		n.WinnerEntryID, n.Status, n.IsBye = src.WinnerEntryID, src.Status, src.IsBye
	}

	return t.propagateByes()
}

func (t *Tree) propagateByes() error {
	for _, n := range t.Round(1) {
		if !n.IsBye {
			continue
		}
		if _, err := t.propagate(n); err != nil {
			return err
		}
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}
