package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-progression/brackets"
	"github.com/Dosada05/tournament-progression/groups"
	"github.com/Dosada05/tournament-progression/locks"
	"github.com/Dosada05/tournament-progression/repositories"
)

// Error kinds. Every error returned by the services wraps exactly one of them.
var (
	ErrValidation          = errors.New("validation failed")
	ErrState               = errors.New("operation not allowed in the current state")
	ErrNotFound            = errors.New("requested resource not found")
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrCapacity            = errors.New("capacity exceeded")
)

var (
	ErrInvalidSetScore     = fmt.Errorf("%w: invalid set score", ErrValidation)
	ErrInsufficientEntries = fmt.Errorf("%w: not enough entries", ErrValidation)
	ErrInvalidWinner       = fmt.Errorf("%w: winner is not a participant", ErrValidation)
	ErrInvalidEntryCount   = fmt.Errorf("%w: invalid entry count", ErrValidation)

	ErrMatchNotScheduled  = fmt.Errorf("%w: match is not scheduled", ErrState)
	ErrMatchNotInProgress = fmt.Errorf("%w: match is not in progress", ErrState)
	ErrMatchNotCancelable = fmt.Errorf("%w: match can no longer be cancelled", ErrState)
	ErrNoMoreSetsAllowed  = fmt.Errorf("%w: match is already decided", ErrState)
	ErrNoSetsRecorded     = fmt.Errorf("%w: no sets recorded", ErrState)
	ErrIncompleteMatch    = fmt.Errorf("%w: no side has won enough sets", ErrState)
	ErrNodeAlreadyDecided = fmt.Errorf("%w: bracket node already decided", ErrState)
	ErrNodeMatchActive    = fmt.Errorf("%w: bracket node match is in progress", ErrState)
	ErrNodeNotReady       = fmt.Errorf("%w: bracket node is waiting for an entry", ErrState)
	ErrGroupStageStarted  = fmt.Errorf("%w: group stage already started", ErrState)
	ErrKnockoutStarted    = fmt.Errorf("%w: knockout stage already started", ErrState)
	ErrNoGroups           = fmt.Errorf("%w: groups have not been drawn", ErrState)

	ErrContentNotFound = fmt.Errorf("%w: content", ErrNotFound)
	ErrMatchNotFound   = fmt.Errorf("%w: match", ErrNotFound)
	ErrNodeNotFound    = fmt.Errorf("%w: bracket node", ErrNotFound)
	ErrBracketNotFound = fmt.Errorf("%w: bracket", ErrNotFound)
	ErrGroupNotFound   = fmt.Errorf("%w: group", ErrNotFound)

	ErrNotEnoughOfficials = fmt.Errorf("%w: not enough officials", ErrResourceUnavailable)
	ErrBusy               = fmt.Errorf("%w: resource is locked", ErrResourceUnavailable)

	ErrNoValidLayout   = fmt.Errorf("%w: no valid group layout", ErrCapacity)
	ErrBracketTooSmall = fmt.Errorf("%w: bracket too small", ErrCapacity)
	ErrBracketTooLarge = fmt.Errorf("%w: bracket too large", ErrCapacity)
)

// classify wraps errors of the engine packages and repositories into the
// service error of the matching kind. Errors that already carry a kind, and
// infrastructure failures, pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrValidation, ErrState, ErrNotFound, ErrResourceUnavailable, ErrCapacity} {
		if errors.Is(err, kind) {
			return err
		}
	}

	var target error
	switch {
	case errors.Is(err, groups.ErrInsufficientEntries):
		target = ErrInsufficientEntries
	case errors.Is(err, groups.ErrLayoutMismatch):
		target = ErrInvalidEntryCount
	case errors.Is(err, groups.ErrNoValidLayout):
		target = ErrNoValidLayout
	case errors.Is(err, brackets.ErrBracketTooSmall):
		target = ErrBracketTooSmall
	case errors.Is(err, brackets.ErrBracketTooLarge):
		target = ErrBracketTooLarge
	case errors.Is(err, brackets.ErrWinnerNotInNode):
		target = ErrInvalidWinner
	case errors.Is(err, brackets.ErrNodeAlreadyDecided):
		target = ErrNodeAlreadyDecided
	case errors.Is(err, brackets.ErrNodeNotReady):
		target = ErrNodeNotReady
	case errors.Is(err, brackets.ErrNodeNotFound), errors.Is(err, repositories.ErrBracketNodeNotFound):
		target = ErrNodeNotFound
	case errors.Is(err, repositories.ErrContentNotFound):
		target = ErrContentNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		target = ErrMatchNotFound
	case errors.Is(err, repositories.ErrEntryNotFound), errors.Is(err, repositories.ErrScheduleNotFound),
		errors.Is(err, repositories.ErrOfficialNotFound), errors.Is(err, repositories.ErrStandingNotFound):
		target = ErrNotFound
	case errors.Is(err, repositories.ErrNodeMatchAssigned), errors.Is(err, repositories.ErrDuplicateScheduleMatch),
		errors.Is(err, repositories.ErrDuplicateSetNumber):
		target = ErrState
	case errors.Is(err, locks.ErrLockTimeout):
		target = ErrBusy
	default:
		return err
	}
	return fmt.Errorf("%w: %w", target, err)
}
