package service

import (
	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
	"github.com/AdamBeresnev/fedbrackets/internal/topology"
	"github.com/AdamBeresnev/fedbrackets/internal/utils"
	"github.com/google/uuid"
)

// buildEntrants pairs every registrant with its seed, 0 when it has none
func buildEntrants(registrantIDs []uuid.UUID, seeds []bracket.SeedAssignment) []topology.Entrant {
	seedOf := make(map[uuid.UUID]int, len(seeds))
	for _, s := range seeds {
		seedOf[s.RegistrationID] = s.Seed
	}

	entrants := make([]topology.Entrant, len(registrantIDs))
	for i, id := range registrantIDs {
		entrants[i] = topology.Entrant{ID: id, Seed: seedOf[id]}
	}
	return entrants
}

// materialize turns the planned bracket into rows. Identifiers are generated
// up front so every advancement link can be written in the same insert.
func materialize(eventID uuid.UUID, plan *topology.Plan) []bracket.Match {
	ids := make([]uuid.UUID, len(plan.Matches))
	for i := range ids {
		ids[i] = uuid.New()
	}

	rows := make([]bracket.Match, len(plan.Matches))
	for i, m := range plan.Matches {
		row := bracket.Match{
			ID:              ids[i],
			EventID:         eventID,
			BracketSide:     m.Side,
			RoundNumber:     m.Round,
			MatchOrder:      m.Number,
			BracketPosition: m.Position,
			IsBye:           m.IsBye,
			Played:          m.Played,
			WinnerID:        m.Winner,
		}

		row.Entry1ID, row.Entry1Bye = occupantColumns(m.A)
		row.Entry2ID, row.Entry2Bye = occupantColumns(m.B)

		if l := m.WinnerTo; l != nil {
			row.WinnerNextMatchID = utils.Ptr(ids[l.Match])
			row.WinnerNextSlot = utils.Ptr(int(l.Slot))
		}
		if l := m.LoserTo; l != nil {
			row.LoserNextMatchID = utils.Ptr(ids[l.Match])
			row.LoserNextSlot = utils.Ptr(int(l.Slot))
		}

		rows[i] = row
	}

	return rows
}

func occupantColumns(o topology.Occupant) (*uuid.UUID, bool) {
	switch o.Kind {
	case topology.Filled:
		return utils.Ptr(o.ID), false
	case topology.Bye:
		return nil, true
	default:
		return nil, false
	}
}
