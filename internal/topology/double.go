package topology

import (
	"fmt"

	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
)

// DoubleElimination builds a winners bracket, a losers bracket and one grand
// final. The grand final reset is not part of the plan: it is created when the
// losers bracket champion wins the first grand final.
type DoubleElimination struct {
	// When set to L, only losers of the last L+1 winners rounds (the final
	// included) drop into the losers bracket. Earlier losers are eliminated.
	LosersStartRoundsBeforeFinal *int
}

func (DoubleElimination) Format() bracket.Format { return bracket.DoubleElimination }

func (b DoubleElimination) Build(entrants []Entrant) (*Plan, error) {
	ordered, err := orderEntrants(entrants)
	if err != nil {
		return nil, err
	}

	a := &arena{}
	size := BracketSize(len(ordered))
	winners := buildWinners(a, ordered, size)
	total := len(winners)

	first, err := b.firstDropRound(total)
	if err != nil {
		return nil, err
	}

	losersChampion := buildLosers(a, winners, first)
	final := winners[total-1][0]

	gf := a.add(bracket.GrandFinalSide, 1, 1)
	a.winnerTo(final, gf, SlotA)
	if losersChampion < 0 {
		// No losers bracket: the winners final loser goes straight to the grand final
		a.loserTo(final, gf, SlotB)
	} else {
		a.winnerTo(losersChampion, gf, SlotB)
	}

	losersRounds := 0
	for _, m := range a.matches {
		if m.Side == bracket.LosersSide && m.Round > losersRounds {
			losersRounds = m.Round
		}
	}

	return &Plan{
		Format:       bracket.DoubleElimination,
		Matches:      a.matches,
		TotalRounds:  total,
		LosersRounds: losersRounds,
		BracketSize:  size,
	}, nil
}

// firstDropRound is the first winners round whose losers get a second chance
func (b DoubleElimination) firstDropRound(total int) (int, error) {
	if b.LosersStartRoundsBeforeFinal == nil {
		return 1, nil
	}
	l := *b.LosersStartRoundsBeforeFinal
	if l < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLosersStart, l)
	}
	return max(1, total-l), nil
}

// buildLosers wires the losers bracket fed by winners rounds first..final and
// returns the arena index of the losers final, or -1 when only the winners final
// drops a loser.
//
// Losers round 1 pairs the losers of winners round `first`. After that the
// bracket alternates between drop rounds, where survivors meet the losers of the
// next winners round, and consolidation rounds, where survivors meet each other.
func buildLosers(a *arena, winners [][]int, first int) int {
	total := len(winners)
	depth := total - first + 1
	if depth < 2 {
		return -1
	}

	dropping := winners[first-1]
	round := 1
	prev := make([]int, len(dropping)/2)
	for j := range prev {
		prev[j] = a.add(bracket.LosersSide, round, j+1)
		a.loserTo(dropping[2*j], prev[j], SlotA)
		a.loserTo(dropping[2*j+1], prev[j], SlotB)
	}

	for t := 2; t <= depth; t++ {
		dropping = winners[first+t-2]

		round++
		drop := make([]int, len(prev))
		for j := range drop {
			drop[j] = a.add(bracket.LosersSide, round, j+1)
			a.winnerTo(prev[j], drop[j], SlotA)

			// Alternate the drop order so a dropped player does not meet the
			// opponent they just sent down
			src := j
			if t%2 == 0 {
				src = len(dropping) - 1 - j
			}
			a.loserTo(dropping[src], drop[j], SlotB)
		}
		prev = drop

		if t == depth {
			break
		}

		round++
		merged := make([]int, len(prev)/2)
		for j := range merged {
			merged[j] = a.add(bracket.LosersSide, round, j+1)
			a.winnerTo(prev[2*j], merged[j], SlotA)
			a.winnerTo(prev[2*j+1], merged[j], SlotB)
		}
		prev = merged
	}

	return prev[0]
}
