// Package groups plans and draws the round-robin group stage.
package groups

import (
	"errors"
	"fmt"
)

const (
	MinEntries    = 12
	MinGroupSize  = 3
	MaxGroupSize  = 5
	minGroupCount = 4
)

var (
	ErrInsufficientEntries = errors.New("not enough entries for a group stage")
	ErrNoValidLayout       = errors.New("no group layout fits the entry count")
	ErrLayoutMismatch      = errors.New("entry count does not match the group layout")
)

// Layout is the planned number of groups and the size of each group, in group order.
type Layout struct {
	GroupCount int   `json:"group_count"`
	Sizes      []int `json:"sizes"`
}

// Total is the number of entries the layout accommodates.
func (l Layout) Total() int {
	total := 0
	for _, s := range l.Sizes {
		total += s
	}
	return total
}

// ComputeLayout picks a power-of-two group count (4, 8, 16, ...) whose groups all
// hold between 3 and 5 entries, preferring the most even split.
func ComputeLayout(totalEntries int) (Layout, error) {
	if totalEntries < MinEntries {
		return Layout{}, fmt.Errorf("%w: got %d, need at least %d", ErrInsufficientEntries, totalEntries, MinEntries)
	}

	var best Layout
	bestSpread := -1
	for count := minGroupCount; ; count *= 2 {
		avg := float64(totalEntries) / float64(count)
		if avg < MinGroupSize {
			break // sizes only shrink with more groups
		}
		if avg > MaxGroupSize {
			continue
		}

		sizes := distribute(totalEntries, count)
		lo, hi := sizes[len(sizes)-1], sizes[0]
		if lo < MinGroupSize || hi > MaxGroupSize {
			continue
		}
		spread := hi - lo
		if bestSpread < 0 || spread < bestSpread {
			best = Layout{GroupCount: count, Sizes: sizes}
			bestSpread = spread
		}
		if spread == 0 {
			break
		}
	}

	if bestSpread < 0 {
		return Layout{}, fmt.Errorf("%w: %d entries", ErrNoValidLayout, totalEntries)
	}
	return best, nil
}

// distribute gives every group floor(total/count) entries and one extra to the
// first total%count groups, so sizes are non-increasing.
func distribute(total, count int) []int {
	base, extra := total/count, total%count
	sizes := make([]int, count)
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}
