package topology

import (
	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
	"github.com/google/uuid"
)

type SingleElimination struct {
	ThirdPlaceMatch bool
}

func (SingleElimination) Format() bracket.Format { return bracket.SingleElimination }

func (b SingleElimination) Build(entrants []Entrant) (*Plan, error) {
	ordered, err := orderEntrants(entrants)
	if err != nil {
		return nil, err
	}

	a := &arena{}
	size := BracketSize(len(ordered))
	rounds := buildWinners(a, ordered, size)
	total := len(rounds)

	plan := &Plan{
		Format:      bracket.SingleElimination,
		TotalRounds: total,
		BracketSize: size,
	}

	if b.ThirdPlaceMatch {
		// With 3 entrants one semifinal is a bye and has no loser to send
		if total >= 2 && len(ordered) >= 4 {
			semis := rounds[total-2]
			third := a.add(bracket.ThirdPlaceSide, total, 1)
			a.loserTo(semis[0], third, SlotA)
			a.loserTo(semis[1], third, SlotB)
		} else {
			plan.ThirdPlaceOmitted = true
		}
	}

	plan.Matches = a.matches
	return plan, nil
}

// buildWinners lays out a full winners bracket for size slots and returns the
// arena indexes per round (rounds[0] is round 1).
func buildWinners(a *arena, ordered []uuid.UUID, size int) [][]int {
	total := roundsFor(size)
	rounds := make([][]int, total)

	for r := 1; r <= total; r++ {
		count := size >> r
		rounds[r-1] = make([]int, count)
		for i := 0; i < count; i++ {
			rounds[r-1][i] = a.add(bracket.WinnersSide, r, i+1)
		}
	}

	for i, pair := range seedPairs(size) {
		m := &a.matches[rounds[0][i]]
		m.A = slotOccupant(ordered, pair[0])
		m.B = slotOccupant(ordered, pair[1])
	}

	// Binary merge: matches 2k-1 and 2k of one round feed match k of the next
	for r := 0; r < total-1; r++ {
		for i, idx := range rounds[r] {
			slot := SlotA
			if i%2 == 1 {
				slot = SlotB
			}
			a.winnerTo(idx, rounds[r+1][i/2], slot)
		}
	}

	return rounds
}

func slotOccupant(ordered []uuid.UUID, seedIndex int) Occupant {
	if seedIndex < len(ordered) {
		return EntrantOccupant(ordered[seedIndex])
	}
	return ByeOccupant()
}
