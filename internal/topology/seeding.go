package topology

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/google/uuid"
)

// Entrant is one registrant going into the bracket. Seed 0 means unseeded.
type Entrant struct {
	ID   uuid.UUID
	Seed int
}

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func BracketSize(count int) int {
	if count <= 1 {
		return count
	}
	return 1 << bits.Len(uint(count-1))
}

func roundsFor(size int) int {
	return bits.Len(uint(size)) - 1
}

// seedPairs returns the round 1 pairings as 0-based seed indexes. Seed 1 meets
// the lowest seed, and the two top seeds sit in opposite halves so they can only
// meet in the final.
func seedPairs(bracketSize int) [][2]int {
	if bracketSize < 2 {
		return [][2]int{}
	}

	order := []int{0}
	for len(order) < bracketSize {
		next := make([]int, 0, len(order)*2)
		count := len(order) * 2

		for _, seed := range order {
			next = append(next, seed, (count-1)-seed)
		}
		order = next
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(order); i += 2 {
		pairs = append(pairs, [2]int{order[i], order[i+1]})
	}
	return pairs
}

// orderEntrants places seeded entrants first by ascending seed, then unseeded
// entrants in the order they were given.
func orderEntrants(entrants []Entrant) ([]uuid.UUID, error) {
	if len(entrants) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewEntrants, len(entrants))
	}

	seen := make(map[uuid.UUID]struct{}, len(entrants))
	seeds := make(map[int]uuid.UUID)
	for _, e := range entrants {
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntrant, e.ID)
		}
		seen[e.ID] = struct{}{}

		if e.Seed < 0 {
			return nil, fmt.Errorf("%w: %d for %s", ErrInvalidSeed, e.Seed, e.ID)
		}
		if e.Seed == 0 {
			continue
		}
		if other, dup := seeds[e.Seed]; dup {
			return nil, fmt.Errorf("%w: seed %d for %s and %s", ErrDuplicateSeed, e.Seed, other, e.ID)
		}
		seeds[e.Seed] = e.ID
	}

	sorted := make([]Entrant, len(entrants))
	copy(sorted, entrants)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i].Seed, sorted[j].Seed
		switch {
		case si == 0:
			return false
		case sj == 0:
			return true
		default:
			return si < sj
		}
	})

	ids := make([]uuid.UUID, len(sorted))
	for i, e := range sorted {
		ids[i] = e.ID
	}
	return ids, nil
}
