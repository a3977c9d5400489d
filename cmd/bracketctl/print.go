package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
	"github.com/AdamBeresnev/fedbrackets/internal/service"
	"github.com/AdamBeresnev/fedbrackets/internal/utils"
	"github.com/google/uuid"
)

func printBracket(w io.Writer, view *service.BracketView) error {
	names := make(map[uuid.UUID]string, len(view.Registrations))
	for _, r := range view.Registrations {
		names[r.ID] = r.Name
	}
	byID := make(map[uuid.UUID]bracket.Match, len(view.Matches))
	for _, m := range view.Matches {
		byID[m.ID] = m
	}

	fmt.Fprintf(w, "%s (%s, best of %d)\n", view.Event.Name, view.Event.Format, view.Event.BestOf)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, round := range view.Rounds {
		fmt.Fprintf(tw, "\n%s round %d\t\t\t\n", round.Side, round.Number)
		for _, id := range round.MatchIDs {
			m := byID[id]
			fmt.Fprintf(tw, "  #%d\t%s\tvs %s\t%s\n", m.BracketPosition,
				occupant(names, &m, 1), occupant(names, &m, 2), status(names, m))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if view.ChampionID != nil {
		fmt.Fprintf(w, "\nChampion: %s\n", names[*view.ChampionID])
	}
	return nil
}

// occupant names the registrant in a slot, starring the winner
func occupant(names map[uuid.UUID]string, m *bracket.Match, slot int) string {
	id := m.EntryID(slot)
	switch {
	case m.SlotIsBye(slot):
		return "(bye)"
	case id == nil:
		return "(tbd)"
	case m.IsWinner(slot):
		return names[*id] + " *"
	default:
		return names[*id]
	}
}

func status(names map[uuid.UUID]string, m bracket.Match) string {
	switch {
	case m.Played && m.IsBye:
		return "walkover: " + names[utils.OrZero(m.WinnerID)]
	case m.Played:
		return fmt.Sprintf("won by %s (%d-%d)", names[utils.OrZero(m.WinnerID)], m.Score1, m.Score2)
	case m.IsBye:
		return "void"
	default:
		return "pending"
	}
}
