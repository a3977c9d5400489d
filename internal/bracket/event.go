package bracket

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Format string

const (
	SingleElimination Format = "single-elimination"
	DoubleElimination Format = "double-elimination"
	RoundRobin        Format = "round-robin"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case SingleElimination, DoubleElimination, RoundRobin:
		return f, nil
	default:
		return "", fmt.Errorf("unknown event format %q", s)
	}
}

// IsElimination reports whether matches of this format are laid out as a bracket
func (f Format) IsElimination() bool {
	return f == SingleElimination || f == DoubleElimination
}

type Event struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Format             Format    `db:"format" json:"format"`
	BestOf             int       `db:"best_of" json:"best_of"`
	HasThirdPlaceMatch bool      `db:"has_third_place_match" json:"has_third_place_match"`
	// Nil means a full losers bracket
	LosersStartRoundsBeforeFinal *int      `db:"losers_start_rounds_before_final" json:"losers_start_rounds_before_final,omitempty"`
	Completed                    bool      `db:"completed" json:"completed"`
	CreatedAt                    time.Time `db:"created_at" json:"created_at"`
}
