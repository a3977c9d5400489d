package topology

import "github.com/google/uuid"

// SlotKey identifies one occupant slot of a match by bracket position
type SlotKey struct {
	Position int
	Slot     Slot
}

// ByeResolution is everything that follows from the bye placeholders alone,
// without any result entered by a person.
type ByeResolution struct {
	// Downstream slot -> advancing occupant (an entrant, or a bye passed on by a bye)
	Fills map[SlotKey]Occupant
	// Position -> entrant that wins without playing
	Walkovers map[int]uuid.UUID
	// Positions of matches between two byes. They are never played and are
	// dropped from the plan when the resolution is applied.
	Voids map[int]bool
}

// ResolveByes propagates byes through the match graph until nothing changes, so
// a chain of byes is fully resolved. The input is not modified.
func ResolveByes(matches []Match) ByeResolution {
	res := ByeResolution{
		Fills:     make(map[SlotKey]Occupant),
		Walkovers: make(map[int]uuid.UUID),
		Voids:     make(map[int]bool),
	}

	work := make([]Match, len(matches))
	copy(work, matches)

	fill := func(link *Link, occ Occupant) {
		if link == nil {
			return
		}
		target := &work[link.Match]
		*target.occupant(link.Slot) = occ
		res.Fills[SlotKey{Position: target.Position, Slot: link.Slot}] = occ
	}

	for changed := true; changed; {
		changed = false
		for i := range work {
			m := &work[i]
			if m.Played || res.Voids[m.Position] {
				continue
			}

			switch {
			case m.A.IsBye() && m.B.IsBye():
				res.Voids[m.Position] = true
				fill(m.WinnerTo, ByeOccupant())
				fill(m.LoserTo, ByeOccupant())
			case m.A.IsEntrant() && m.B.IsBye():
				m.Played = true
				res.Walkovers[m.Position] = m.A.ID
				fill(m.WinnerTo, m.A)
				fill(m.LoserTo, ByeOccupant())
			case m.B.IsEntrant() && m.A.IsBye():
				m.Played = true
				res.Walkovers[m.Position] = m.B.ID
				fill(m.WinnerTo, m.B)
				fill(m.LoserTo, ByeOccupant())
			default:
				continue
			}
			changed = true
		}
	}

	return res
}

// ApplyByes writes a resolution into the plan, marks walkovers as played byes
// and removes void matches, renumbering positions so they stay dense.
func (p *Plan) ApplyByes(res ByeResolution) {
	byPosition := make(map[int]int, len(p.Matches))
	for i, m := range p.Matches {
		byPosition[m.Position] = i
	}

	for key, occ := range res.Fills {
		if i, ok := byPosition[key.Position]; ok {
			*p.Matches[i].occupant(key.Slot) = occ
		}
	}
	for pos, winner := range res.Walkovers {
		if i, ok := byPosition[pos]; ok {
			m := &p.Matches[i]
			m.IsBye = true
			m.Played = true
			w := winner
			m.Winner = &w
		}
	}

	if len(res.Voids) == 0 {
		return
	}

	remap := make([]int, len(p.Matches))
	kept := make([]Match, 0, len(p.Matches)-len(res.Voids))
	for i, m := range p.Matches {
		if res.Voids[m.Position] {
			remap[i] = -1
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, m)
	}

	relink := func(l *Link) *Link {
		if l == nil || remap[l.Match] < 0 {
			return nil
		}
		return &Link{Match: remap[l.Match], Slot: l.Slot}
	}
	for i := range kept {
		kept[i].Position = i + 1
		kept[i].WinnerTo = relink(kept[i].WinnerTo)
		kept[i].LoserTo = relink(kept[i].LoserTo)
	}
	p.Matches = kept
}
