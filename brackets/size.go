package brackets

import (
	"errors"
	"fmt"
)

const (
	MinEntries     = 12
	MinBracketSize = 16
	MaxBracketSize = 256

	minQualifiers = 4
)

var (
	ErrBracketTooSmall    = errors.New("too few entries for a knockout bracket")
	ErrBracketTooLarge    = errors.New("too many entries for a knockout bracket")
	ErrNodeNotFound       = errors.New("bracket node not found")
	ErrWinnerNotInNode    = errors.New("winner is not an entry of the bracket node")
	ErrNodeAlreadyDecided = errors.New("bracket node already has a different winner")
	ErrNodeNotReady       = errors.New("bracket node is waiting for an entry")
	ErrSizeMismatch       = errors.New("bracket sizes differ")
	ErrInvalidTree        = errors.New("bracket tree is malformed")
)

// BracketSize is the smallest power of two from 16 to 256 that fits numEntries.
func BracketSize(numEntries int) (int, error) {
	if numEntries < MinEntries {
		return 0, fmt.Errorf("%w: got %d, need at least %d", ErrBracketTooSmall, numEntries, MinEntries)
	}
	return fitSize(numEntries, MinBracketSize)
}

// qualifierBracketSize sizes a bracket built from group results, where as few as
// four qualifiers make a valid draw.
func qualifierBracketSize(numQualifiers int) (int, error) {
	if numQualifiers < minQualifiers {
		return 0, fmt.Errorf("%w: got %d qualifiers, need at least %d", ErrBracketTooSmall, numQualifiers, minQualifiers)
	}
	return fitSize(numQualifiers, minQualifiers)
}

func fitSize(n, floor int) (int, error) {
	if n > MaxBracketSize {
		return 0, fmt.Errorf("%w: got %d, at most %d", ErrBracketTooLarge, n, MaxBracketSize)
	}
	size := floor
	for size < n {
		size *= 2
	}
	return size, nil
}

// RoundName names a round by the number of participants it starts with.
func RoundName(participants int) string {
	switch participants {
	case 2:
		return "Final"
	case 4:
		return "Semi-final"
	case 8:
		return "Quarter-final"
	default:
		return fmt.Sprintf("Round of %d", participants)
	}
}
