package service

import (
	"fmt"

	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
	"github.com/google/uuid"
)

type GameScore struct {
	Score1 int `json:"score_1"`
	Score2 int `json:"score_2"`
}

// tallyGames checks per-game scores against a best-of series and returns the
// games won by each slot. The reported winner must be the first to win a
// majority and no game may follow the deciding one.
func tallyGames(matchID uuid.UUID, bestOf, winnerSlot int, scores []GameScore) (int, int, []bracket.MatchGame, error) {
	if len(scores) == 0 {
		return 0, 0, nil, nil
	}
	if bestOf < 1 {
		bestOf = 1
	}
	if len(scores) > bestOf {
		return 0, 0, nil, fmt.Errorf("%w: %d games reported in a best of %d", ErrInvalidScore, len(scores), bestOf)
	}

	need := bestOf/2 + 1
	wins := [3]int{}
	games := make([]bracket.MatchGame, 0, len(scores))

	for i, sc := range scores {
		if sc.Score1 < 0 || sc.Score2 < 0 {
			return 0, 0, nil, fmt.Errorf("%w: game %d has a negative score", ErrInvalidScore, i+1)
		}
		if sc.Score1 == sc.Score2 {
			return 0, 0, nil, fmt.Errorf("%w: game %d has no winner", ErrInvalidScore, i+1)
		}
		if wins[1] == need || wins[2] == need {
			return 0, 0, nil, fmt.Errorf("%w: game %d played after the series was decided", ErrInvalidScore, i+1)
		}

		if sc.Score1 > sc.Score2 {
			wins[1]++
		} else {
			wins[2]++
		}
		games = append(games, bracket.MatchGame{
			MatchID:    matchID,
			GameNumber: i + 1,
			Score1:     sc.Score1,
			Score2:     sc.Score2,
		})
	}

	if wins[winnerSlot] != need {
		return 0, 0, nil, fmt.Errorf("%w: winner took %d of the %d games needed", ErrInvalidScore, wins[winnerSlot], need)
	}
	return wins[1], wins[2], games, nil
}
