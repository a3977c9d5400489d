// Package topology computes elimination bracket graphs from an ordered list of
// entrants. Everything here is pure: matches live in an arena slice and refer to
// each other by index, durable identifiers are assigned by the caller.
package topology

import (
	"errors"

	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
	"github.com/google/uuid"
)

var (
	ErrTooFewEntrants     = errors.New("at least 2 entrants are required")
	ErrDuplicateEntrant   = errors.New("entrant listed more than once")
	ErrDuplicateSeed      = errors.New("seed assigned to more than one entrant")
	ErrInvalidSeed        = errors.New("seed must be a positive integer")
	ErrInvalidLosersStart = errors.New("losers start rounds before final must not be negative")
)

type Slot int

const (
	SlotA Slot = 1
	SlotB Slot = 2
)

type OccupantKind int

const (
	// Awaiting means the slot is filled later by the result of an earlier match
	Awaiting OccupantKind = iota
	Filled
	Bye
)

type Occupant struct {
	Kind OccupantKind
	ID   uuid.UUID
}

func EntrantOccupant(id uuid.UUID) Occupant {
	return Occupant{Kind: Filled, ID: id}
}

func ByeOccupant() Occupant {
	return Occupant{Kind: Bye}
}

func (o Occupant) IsEntrant() bool { return o.Kind == Filled }
func (o Occupant) IsBye() bool     { return o.Kind == Bye }

// Link points at another match in the same arena
type Link struct {
	Match int
	Slot  Slot
}

type Match struct {
	Side     bracket.BracketSide
	Round    int
	Number   int
	Position int

	A Occupant
	B Occupant

	IsBye  bool
	Played bool
	Winner *uuid.UUID

	WinnerTo *Link
	LoserTo  *Link
}

func (m *Match) occupant(s Slot) *Occupant {
	if s == SlotA {
		return &m.A
	}
	return &m.B
}

type Plan struct {
	Format      bracket.Format
	Matches     []Match
	TotalRounds int
	// Zero for single elimination
	LosersRounds int
	BracketSize  int
	// Set when a third place match was requested but a semifinal is a bye
	ThirdPlaceOmitted bool
}

func (p *Plan) MatchCount() int {
	return len(p.Matches)
}

// Round returns the arena indexes of one round of one side, ordered by match number
func (p *Plan) Round(side bracket.BracketSide, round int) []int {
	var idx []int
	for i, m := range p.Matches {
		if m.Side == side && m.Round == round {
			idx = append(idx, i)
		}
	}
	return idx
}

type arena struct {
	matches []Match
}

func (a *arena) add(side bracket.BracketSide, round, number int) int {
	a.matches = append(a.matches, Match{
		Side:     side,
		Round:    round,
		Number:   number,
		Position: len(a.matches) + 1,
	})
	return len(a.matches) - 1
}

func (a *arena) winnerTo(from, to int, slot Slot) {
	a.matches[from].WinnerTo = &Link{Match: to, Slot: slot}
}

func (a *arena) loserTo(from, to int, slot Slot) {
	a.matches[from].LoserTo = &Link{Match: to, Slot: slot}
}
