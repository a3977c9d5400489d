package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
	"github.com/AdamBeresnev/fedbrackets/internal/metrics"
	"github.com/AdamBeresnev/fedbrackets/internal/store"
	"github.com/AdamBeresnev/fedbrackets/internal/topology"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type BracketService struct {
	db      *sqlx.DB
	events  *store.EventStore
	matches *store.MatchStore
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Recorder
}

func NewBracketService(
	db *sqlx.DB,
	events *store.EventStore,
	matches *store.MatchStore,
	logger *slog.Logger,
	tracer trace.Tracer,
	recorder *metrics.Recorder,
) *BracketService {
	return &BracketService{
		db:      db,
		events:  events,
		matches: matches,
		logger:  logger,
		tracer:  tracer,
		metrics: recorder,
	}
}

type GenerateParams struct {
	EventID                      uuid.UUID
	Format                       string
	Seeds                        []bracket.SeedAssignment
	HasThirdPlaceMatch           bool
	LosersStartRoundsBeforeFinal *int
}

type GenerateResult struct {
	Matches           []bracket.Match `json:"matches"`
	TotalRounds       int             `json:"total_rounds"`
	LosersRounds      int             `json:"losers_rounds,omitempty"`
	BracketSize       int             `json:"bracket_size"`
	MatchCount        int             `json:"match_count"`
	ThirdPlaceOmitted bool            `json:"third_place_omitted,omitempty"`
}

// ValidateEventForBracketGeneration accepts only formats laid out as a bracket
func (s *BracketService) ValidateEventForBracketGeneration(format string) error {
	f, err := bracket.ParseFormat(format)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if !f.IsElimination() {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return nil
}

func (s *BracketService) CheckBracketExists(ctx context.Context, eventID uuid.UUID) (bool, error) {
	count, err := s.matches.CountMatches(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to count matches: %w", err)
	}
	return count > 0, nil
}

// ValidateSeeds returns an *InvalidSeedError for the first seed whose
// registration is not in registrantIDs.
func (s *BracketService) ValidateSeeds(seeds []bracket.SeedAssignment, registrantIDs []uuid.UUID) error {
	known := make(map[uuid.UUID]struct{}, len(registrantIDs))
	for _, id := range registrantIDs {
		known[id] = struct{}{}
	}
	for _, seed := range seeds {
		if _, ok := known[seed.RegistrationID]; !ok {
			return &InvalidSeedError{RegistrationID: seed.RegistrationID}
		}
	}
	return nil
}

// GenerateBracket validates the input, builds the bracket and writes every match
// and seed in one transaction. Nothing is written when any step fails.
func (s *BracketService) GenerateBracket(ctx context.Context, params GenerateParams, registrantIDs []uuid.UUID) (*GenerateResult, error) {
	ctx, span := s.tracer.Start(ctx, "BracketService.GenerateBracket", trace.WithAttributes(
		attribute.String("event_id", params.EventID.String()),
		attribute.String("format", params.Format),
		attribute.Int("registrants", len(registrantIDs)),
	))
	defer span.End()

	logger := s.logger.With(slog.String("event_id", params.EventID.String()))

	fail := func(reason string, err error) (*GenerateResult, error) {
		s.metrics.GenerationFailed(reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		logger.Warn("Bracket generation rejected", slog.String("reason", reason), slog.Any("error", err))
		return nil, err
	}

	if err := s.ValidateEventForBracketGeneration(params.Format); err != nil {
		return fail("format", err)
	}
	if len(registrantIDs) < 2 {
		return fail("registrants", ErrNotEnoughRegistrants)
	}
	if err := s.ValidateSeeds(params.Seeds, registrantIDs); err != nil {
		return fail("seeds", err)
	}

	builder, err := topology.NewBuilder(bracket.Format(params.Format), topology.Options{
		ThirdPlaceMatch:              params.HasThirdPlaceMatch,
		LosersStartRoundsBeforeFinal: params.LosersStartRoundsBeforeFinal,
	})
	if err != nil {
		return fail("format", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err))
	}

	plan, err := topology.Generate(builder, buildEntrants(registrantIDs, params.Seeds))
	if err != nil {
		return fail("input", fmt.Errorf("%w: %w", ErrInvalidBracketInput, err))
	}
	if plan.ThirdPlaceOmitted {
		logger.Info("Third place match omitted, a semifinal is a bye")
	}

	rows := materialize(params.EventID, plan)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fail("storage", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if _, err := s.events.GetEventTx(ctx, tx, params.EventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail("event", ErrEventNotFound)
		}
		return fail("storage", fmt.Errorf("failed to get event: %w", err))
	}

	count, err := s.matches.CountMatchesTx(ctx, tx, params.EventID)
	if err != nil {
		return fail("storage", fmt.Errorf("failed to count matches: %w", err))
	}
	if count > 0 {
		return fail("exists", ErrBracketExists)
	}

	if err := s.matches.CreateMatches(ctx, tx, rows); err != nil {
		if isUniqueViolation(err) {
			return fail("exists", ErrBracketExists)
		}
		return fail("storage", fmt.Errorf("failed to create matches: %w", err))
	}

	if len(params.Seeds) > 0 {
		if err := s.events.UpdateSeedsTx(ctx, tx, params.EventID, params.Seeds); err != nil {
			return fail("storage", fmt.Errorf("failed to save seeds: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return fail("exists", ErrBracketExists)
		}
		return fail("storage", fmt.Errorf("failed to commit bracket: %w", err))
	}

	s.metrics.BracketGenerated(params.Format)
	logger.Info("Bracket generated",
		slog.String("format", params.Format),
		slog.Int("bracket_size", plan.BracketSize),
		slog.Int("total_rounds", plan.TotalRounds),
		slog.Int("match_count", len(rows)),
	)

	return &GenerateResult{
		Matches:           rows,
		TotalRounds:       plan.TotalRounds,
		LosersRounds:      plan.LosersRounds,
		BracketSize:       plan.BracketSize,
		MatchCount:        len(rows),
		ThirdPlaceOmitted: plan.ThirdPlaceOmitted,
	}, nil
}

// GenerateForEvent generates the bracket from the stored event configuration
// and registrations. Without explicit seeds the stored registration seeds are used.
func (s *BracketService) GenerateForEvent(ctx context.Context, eventID uuid.UUID, seeds []bracket.SeedAssignment) (*GenerateResult, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	registrations, err := s.events.GetRegistrations(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}

	registrantIDs := make([]uuid.UUID, len(registrations))
	for i, r := range registrations {
		registrantIDs[i] = r.ID
	}
	if len(seeds) == 0 {
		seeds = storedSeeds(registrations)
	}

	return s.GenerateBracket(ctx, GenerateParams{
		EventID:                      eventID,
		Format:                       string(event.Format),
		Seeds:                        seeds,
		HasThirdPlaceMatch:           event.HasThirdPlaceMatch,
		LosersStartRoundsBeforeFinal: event.LosersStartRoundsBeforeFinal,
	}, registrantIDs)
}

func storedSeeds(registrations []bracket.Registration) []bracket.SeedAssignment {
	var seeds []bracket.SeedAssignment
	for _, r := range registrations {
		if r.Seed != nil {
			seeds = append(seeds, bracket.SeedAssignment{RegistrationID: r.ID, Seed: *r.Seed})
		}
	}
	return seeds
}

// ResetBracket deletes every match of the event with its games, clears the
// registration seeds and the completion flag.
func (s *BracketService) ResetBracket(ctx context.Context, eventID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "BracketService.ResetBracket", trace.WithAttributes(
		attribute.String("event_id", eventID.String()),
	))
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	event, err := s.events.GetEventTx(ctx, tx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to get event: %w", err)
	}
	if !event.Format.IsElimination() {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, event.Format)
	}

	deleted, err := s.matches.DeleteMatchesTx(ctx, tx, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete matches: %w", err)
	}
	if deleted == 0 {
		return ErrNoBracket
	}

	if err := s.events.ClearSeedsTx(ctx, tx, eventID); err != nil {
		return fmt.Errorf("failed to clear seeds: %w", err)
	}
	if err := s.events.SetCompletedTx(ctx, tx, eventID, false); err != nil {
		return fmt.Errorf("failed to clear completion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.metrics.BracketReset()
	s.logger.Info("Bracket reset", slog.String("event_id", eventID.String()), slog.Int64("deleted_matches", deleted))
	return nil
}

type BracketView struct {
	Event         *bracket.Event         `json:"event"`
	Registrations []bracket.Registration `json:"registrations"`
	Matches       []bracket.Match        `json:"matches"`
	Games         []bracket.MatchGame    `json:"games"`
	Rounds        []Round                `json:"rounds"`
	ChampionID    *uuid.UUID             `json:"champion_id,omitempty"`
}

// GetBracket loads the event and everything hanging off it concurrently
func (s *BracketService) GetBracket(ctx context.Context, eventID uuid.UUID) (*BracketView, error) {
	ctx, span := s.tracer.Start(ctx, "BracketService.GetBracket")
	defer span.End()

	view := &BracketView{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		event, err := s.events.GetEvent(gctx, eventID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		view.Event = event
		return err
	})
	g.Go(func() error {
		var err error
		view.Registrations, err = s.events.GetRegistrations(gctx, eventID)
		return err
	})
	g.Go(func() error {
		var err error
		view.Matches, err = s.matches.GetMatches(gctx, eventID)
		return err
	})
	g.Go(func() error {
		var err error
		view.Games, err = s.matches.GetGames(gctx, eventID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Rounds = layoutRounds(view.Matches)
	if view.Event.Completed {
		view.ChampionID = championOf(view.Matches)
	}
	return view, nil
}

// championOf picks the winner of the latest played match that decides the event
func championOf(matches []bracket.Match) *uuid.UUID {
	var champion *uuid.UUID
	best := 0
	for i := range matches {
		m := &matches[i]
		if m.Played && m.DecidesChampion() && m.BracketPosition > best {
			best = m.BracketPosition
			champion = m.WinnerID
		}
	}
	return champion
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
