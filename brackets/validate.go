package brackets

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/Dosada05/tournament-progression/models"
)

func nodeHash(n *models.BracketNode) int {
	return n.ID
}

// Graph returns the tree as a directed graph with an edge from every node to
// the node its winner advances to.
func (t *Tree) Graph() (graph.Graph[int, *models.BracketNode], error) {
	g := graph.New(nodeHash, graph.Directed(), graph.PreventCycles())
	for _, n := range t.Nodes() {
		if err := g.AddVertex(n); err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", ErrInvalidTree, n.ID, err)
		}
	}
	for _, n := range t.Nodes() {
		if n.NextNodeID == nil {
			continue
		}
		if err := g.AddEdge(n.ID, *n.NextNodeID); err != nil {
			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return nil, fmt.Errorf("%w: cycle through node %d", ErrInvalidTree, n.ID)
			}
			return nil, fmt.Errorf("%w: node %d -> %d: %v", ErrInvalidTree, n.ID, *n.NextNodeID, err)
		}
	}
	return g, nil
}

// Validate checks that the links form a single-elimination tree: one final,
// two predecessors for every later-round node that agree with the nodes'
// next links, and every first round node log2(size)-1 steps from the final.
func (t *Tree) Validate() error {
	if t.Size < 2 || t.Size&(t.Size-1) != 0 {
		return fmt.Errorf("%w: size %d is not a power of two", ErrInvalidTree, t.Size)
	}
	if len(t.nodes) != t.Size-1 {
		return fmt.Errorf("%w: %d nodes for size %d", ErrInvalidTree, len(t.nodes), t.Size)
	}

	g, err := t.Graph()
	if err != nil {
		return err
	}
	preds, err := g.PredecessorMap()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTree, err)
	}

	finals := 0
	for id, in := range preds {
		n := t.nodes[id]
		if n.NextNodeID == nil {
			finals++
		}
		if n.Round == 1 {
			if len(in) != 0 {
				return fmt.Errorf("%w: first round node %d has predecessors", ErrInvalidTree, id)
			}
			continue
		}
		if len(in) != 2 || n.PrevNodeAID == nil || n.PrevNodeBID == nil {
			return fmt.Errorf("%w: node %d has %d predecessors", ErrInvalidTree, id, len(in))
		}
		if _, ok := in[*n.PrevNodeAID]; !ok {
			return fmt.Errorf("%w: node %d does not feed node %d", ErrInvalidTree, *n.PrevNodeAID, id)
		}
		if _, ok := in[*n.PrevNodeBID]; !ok {
			return fmt.Errorf("%w: node %d does not feed node %d", ErrInvalidTree, *n.PrevNodeBID, id)
		}
	}
	if finals != 1 {
		return fmt.Errorf("%w: %d nodes without a successor", ErrInvalidTree, finals)
	}

	final := t.Final()
	want := t.Rounds() - 1
	for _, leaf := range t.Round(1) {
		path, err := graph.ShortestPath(g, leaf.ID, final.ID)
		if err != nil {
			return fmt.Errorf("%w: node %d cannot reach the final: %v", ErrInvalidTree, leaf.ID, err)
		}
		if len(path)-1 != want {
			return fmt.Errorf("%w: node %d is %d rounds below the final, want %d", ErrInvalidTree, leaf.ID, len(path)-1, want)
		}
	}
	return nil
}
