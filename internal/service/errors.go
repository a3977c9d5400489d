package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrUnsupportedFormat    = errors.New("event format does not support brackets")
	ErrBracketExists        = errors.New("bracket already generated for this event, reset it first")
	ErrNotEnoughRegistrants = errors.New("at least 2 registrants are required to generate a bracket")
	ErrNoBracket            = errors.New("no bracket has been generated for this event")
	ErrInvalidBestOf        = errors.New("best of must be a positive odd number")
	ErrInvalidBracketInput  = errors.New("invalid bracket input")

	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchAlreadyPlayed = errors.New("match has already been played")
	ErrMatchNotPlayed     = errors.New("match has not been played")
	ErrMatchNotReady      = errors.New("match is still waiting for an occupant")
	ErrWinnerNotInMatch   = errors.New("winner is not part of this match")
	ErrLoserNotInMatch    = errors.New("loser is not part of this match or is the winner")
	ErrInvalidScore       = errors.New("game scores do not support the reported winner")
	ErrResetPlayed        = errors.New("grand final reset has been played, unmark it first")

	// Consistency errors, they mean an invariant of the stored bracket is broken
	ErrByeMatch     = errors.New("bye match cannot take a reported result")
	ErrBrokenLink   = errors.New("advancement target does not exist")
	ErrSlotOccupied = errors.New("advancement target slot already holds another registrant")
)

// InvalidSeedError names the first seed that refers to a registration outside the event
type InvalidSeedError struct {
	RegistrationID uuid.UUID
}

func (e *InvalidSeedError) Error() string {
	return fmt.Sprintf("seed refers to unknown registration %s", e.RegistrationID)
}

// IsConsistencyError reports whether err comes from a broken bracket invariant
// rather than from bad input.
func IsConsistencyError(err error) bool {
	return errors.Is(err, ErrByeMatch) || errors.Is(err, ErrBrokenLink) || errors.Is(err, ErrSlotOccupied)
}
