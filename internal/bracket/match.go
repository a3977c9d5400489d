package bracket

import (
	"time"

	"github.com/google/uuid"
)

type BracketSide string

const (
	WinnersSide    BracketSide = "winners"
	LosersSide     BracketSide = "losers"
	GrandFinalSide BracketSide = "grand-final"
	ThirdPlaceSide BracketSide = "third-place"
)

type Match struct {
	ID      uuid.UUID  `db:"id" json:"id"`
	EventID uuid.UUID  `db:"event_id" json:"event_id"`
	GroupID *uuid.UUID `db:"group_id" json:"group_id,omitempty"`

	// Position in the bracket for reconstructing the view
	BracketSide     BracketSide `db:"bracket_side" json:"bracket_side"`
	RoundNumber     int         `db:"round_number" json:"round_number"`
	MatchOrder      int         `db:"match_order" json:"match_order"`
	BracketPosition int         `db:"bracket_position" json:"bracket_position"`

	Entry1ID  *uuid.UUID `db:"entry_1_id" json:"entry_1_id,omitempty"`
	Entry2ID  *uuid.UUID `db:"entry_2_id" json:"entry_2_id,omitempty"`
	Entry1Bye bool       `db:"entry_1_bye" json:"entry_1_bye"`
	Entry2Bye bool       `db:"entry_2_bye" json:"entry_2_bye"`

	// Games won by each side when the event is played as best-of
	Score1 int `db:"score_1" json:"score_1"`
	Score2 int `db:"score_2" json:"score_2"`

	Played   bool       `db:"played" json:"played"`
	WinnerID *uuid.UUID `db:"winner_id" json:"winner_id,omitempty"`

	WinnerNextMatchID *uuid.UUID `db:"winner_next_match_id" json:"winner_next_match_id,omitempty"`
	WinnerNextSlot    *int       `db:"winner_next_slot" json:"winner_next_slot,omitempty"`

	LoserNextMatchID *uuid.UUID `db:"loser_next_match_id" json:"loser_next_match_id,omitempty"`
	LoserNextSlot    *int       `db:"loser_next_slot" json:"loser_next_slot,omitempty"`

	IsBye bool `db:"is_bye" json:"is_bye"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (m *Match) EntryID(slot int) *uuid.UUID {
	if slot == 1 {
		return m.Entry1ID
	}
	return m.Entry2ID
}

func (m *Match) SetEntry(slot int, id uuid.UUID) {
	if slot == 1 {
		m.Entry1ID = &id
	} else {
		m.Entry2ID = &id
	}
}

func (m *Match) SlotIsBye(slot int) bool {
	if slot == 1 {
		return m.Entry1Bye
	}
	return m.Entry2Bye
}

// HasByeSlot is true when either side is a structural bye placeholder
func (m *Match) HasByeSlot() bool {
	return m.Entry1Bye || m.Entry2Bye
}

// SlotOf returns the slot holding the entry, or 0 when it is not part of the match
func (m *Match) SlotOf(id uuid.UUID) int {
	switch {
	case m.Entry1ID != nil && *m.Entry1ID == id:
		return 1
	case m.Entry2ID != nil && *m.Entry2ID == id:
		return 2
	default:
		return 0
	}
}

// DecidesChampion is true for the match whose winner takes the event
func (m *Match) DecidesChampion() bool {
	return m.WinnerNextMatchID == nil && m.BracketSide != ThirdPlaceSide
}

func (m *Match) IsWinner(slot int) bool {
	id := m.EntryID(slot)
	return m.Played && m.WinnerID != nil && id != nil && *id == *m.WinnerID
}

type MatchGame struct {
	MatchID    uuid.UUID `db:"match_id" json:"match_id"`
	GameNumber int       `db:"game_number" json:"game_number"`
	Score1     int       `db:"score_1" json:"score_1"`
	Score2     int       `db:"score_2" json:"score_2"`
}
