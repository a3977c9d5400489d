package topology

import (
	"fmt"

	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
)

// Builder is implemented once per bracket format
type Builder interface {
	Format() bracket.Format
	Build(entrants []Entrant) (*Plan, error)
}

type Options struct {
	ThirdPlaceMatch              bool
	LosersStartRoundsBeforeFinal *int
}

// NewBuilder picks the builder for an elimination format
func NewBuilder(format bracket.Format, opts Options) (Builder, error) {
	switch format {
	case bracket.SingleElimination:
		return SingleElimination{ThirdPlaceMatch: opts.ThirdPlaceMatch}, nil
	case bracket.DoubleElimination:
		return DoubleElimination{LosersStartRoundsBeforeFinal: opts.LosersStartRoundsBeforeFinal}, nil
	default:
		return nil, fmt.Errorf("format %q has no bracket", format)
	}
}

// Generate builds the plan and resolves every bye chain in it
func Generate(b Builder, entrants []Entrant) (*Plan, error) {
	plan, err := b.Build(entrants)
	if err != nil {
		return nil, err
	}
	plan.ApplyByes(ResolveByes(plan.Matches))
	return plan, nil
}
