package service

import (
	"sort"

	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
	"github.com/google/uuid"
)

// Round lists the matches of one column of the drawn bracket, in match order
type Round struct {
	Side     bracket.BracketSide `json:"side"`
	Number   int                 `json:"number"`
	MatchIDs []uuid.UUID         `json:"match_ids"`
}

var sideOrder = map[bracket.BracketSide]int{
	bracket.WinnersSide:    0,
	bracket.LosersSide:     1,
	bracket.ThirdPlaceSide: 2,
	bracket.GrandFinalSide: 3,
}

// layoutRounds groups matches into rounds, winners side first and finals last
func layoutRounds(matches []bracket.Match) []Round {
	type key struct {
		side  bracket.BracketSide
		round int
	}

	sorted := make([]bracket.Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.BracketSide != b.BracketSide {
			return sideOrder[a.BracketSide] < sideOrder[b.BracketSide]
		}
		if a.RoundNumber != b.RoundNumber {
			return a.RoundNumber < b.RoundNumber
		}
		return a.MatchOrder < b.MatchOrder
	})

	var rounds []Round
	index := make(map[key]int)
	for _, m := range sorted {
		k := key{m.BracketSide, m.RoundNumber}
		i, exists := index[k]
		if !exists {
			i = len(rounds)
			index[k] = i
			rounds = append(rounds, Round{Side: m.BracketSide, Number: m.RoundNumber})
		}
		rounds[i].MatchIDs = append(rounds[i].MatchIDs, m.ID)
	}
	return rounds
}
