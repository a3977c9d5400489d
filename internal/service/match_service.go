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
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type MatchService struct {
	db      *sqlx.DB
	events  *store.EventStore
	matches *store.MatchStore
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Recorder
}

func NewMatchService(
	db *sqlx.DB,
	events *store.EventStore,
	matches *store.MatchStore,
	logger *slog.Logger,
	tracer trace.Tracer,
	recorder *metrics.Recorder,
) *MatchService {
	return &MatchService{
		db:      db,
		events:  events,
		matches: matches,
		logger:  logger,
		tracer:  tracer,
		metrics: recorder,
	}
}

type ResultInput struct {
	MatchID  uuid.UUID
	WinnerID uuid.UUID
	// Optional, checked against the other occupant when given
	LoserID *uuid.UUID
	Games   []GameScore
}

// Placement is one registrant written into a downstream slot
type Placement struct {
	MatchID uuid.UUID `json:"match_id"`
	Slot    int       `json:"slot"`
	EntryID uuid.UUID `json:"entry_id"`
	// The target faced a bye and completed on its own
	Walkover bool `json:"walkover,omitempty"`
}

type Advancement struct {
	Match          *bracket.Match `json:"match"`
	Placements     []Placement    `json:"placements"`
	ResetMatch     *bracket.Match `json:"reset_match,omitempty"`
	EventCompleted bool           `json:"event_completed"`
}

func (s *MatchService) GetMatch(ctx context.Context, matchID uuid.UUID) (*bracket.Match, error) {
	match, err := s.matches.GetMatch(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	return match, err
}

// AdvanceWinner records a result and writes the winner and loser into the
// slots their links point at. Downstream matches stay unplayed unless the
// registrant lands opposite a bye placeholder.
func (s *MatchService) AdvanceWinner(ctx context.Context, in ResultInput) (*Advancement, error) {
	ctx, span := s.tracer.Start(ctx, "MatchService.AdvanceWinner", trace.WithAttributes(
		attribute.String("match_id", in.MatchID.String()),
	))
	defer span.End()

	logger := s.logger.With(slog.String("match_id", in.MatchID.String()))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.matches.GetMatchTx(ctx, tx, in.MatchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	if match.IsBye || match.HasByeSlot() {
		logger.Error("Result reported for a bye match")
		span.SetStatus(codes.Error, "bye match")
		return nil, ErrByeMatch
	}
	if match.Played {
		return nil, ErrMatchAlreadyPlayed
	}
	if match.Entry1ID == nil || match.Entry2ID == nil {
		return nil, ErrMatchNotReady
	}

	winnerSlot := match.SlotOf(in.WinnerID)
	if winnerSlot == 0 {
		return nil, ErrWinnerNotInMatch
	}
	loserID := *match.EntryID(3 - winnerSlot)
	if in.LoserID != nil && *in.LoserID != loserID {
		return nil, ErrLoserNotInMatch
	}

	event, err := s.events.GetEventTx(ctx, tx, match.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	score1, score2, games, err := tallyGames(match.ID, event.BestOf, winnerSlot, in.Games)
	if err != nil {
		return nil, err
	}

	match.WinnerID = &in.WinnerID
	match.Score1, match.Score2 = score1, score2
	match.Played = true

	ok, err := s.matches.MarkPlayedTx(ctx, tx, match)
	if err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}
	if !ok {
		return nil, ErrMatchAlreadyPlayed
	}
	if err := s.matches.CreateGamesTx(ctx, tx, games); err != nil {
		return nil, fmt.Errorf("failed to save games: %w", err)
	}

	adv := &Advancement{Match: match}

	if match.WinnerNextMatchID != nil && match.WinnerNextSlot != nil {
		if err := s.place(ctx, tx, logger, adv, *match.WinnerNextMatchID, *match.WinnerNextSlot, in.WinnerID); err != nil {
			return nil, s.consistencyFailure(span, logger, err)
		}
	}
	if match.LoserNextMatchID != nil && match.LoserNextSlot != nil {
		if err := s.place(ctx, tx, logger, adv, *match.LoserNextMatchID, *match.LoserNextSlot, loserID); err != nil {
			return nil, s.consistencyFailure(span, logger, err)
		}
	}

	if match.DecidesChampion() {
		if needsGrandFinalReset(event, match, winnerSlot) {
			reset, err := s.createGrandFinalReset(ctx, tx, logger, match)
			if err != nil {
				return nil, err
			}
			adv.ResetMatch = reset
		} else {
			if err := s.events.SetCompletedTx(ctx, tx, match.EventID, true); err != nil {
				return nil, fmt.Errorf("failed to complete event: %w", err)
			}
			adv.EventCompleted = true
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.metrics.ResultRecorded(string(match.BracketSide))
	logger.Info("Match result recorded",
		slog.String("winner_id", in.WinnerID.String()),
		slog.Int("placements", len(adv.Placements)),
		slog.Bool("event_completed", adv.EventCompleted),
	)
	return adv, nil
}

func (s *MatchService) consistencyFailure(span trace.Span, logger *slog.Logger, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "advancement failed")
	if IsConsistencyError(err) {
		logger.Error("Bracket invariant broken while advancing", slog.Any("error", err))
	}
	return err
}

// place writes entryID into one slot of the target match. Writing the same
// registrant again is a no-op, any other occupant is an error. A target whose
// other slot is a bye completes immediately and forwards its winner.
func (s *MatchService) place(ctx context.Context, tx *sqlx.Tx, logger *slog.Logger, adv *Advancement, targetID uuid.UUID, slot int, entryID uuid.UUID) error {
	target, err := s.matches.GetMatchTx(ctx, tx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: match %s", ErrBrokenLink, targetID)
		}
		return fmt.Errorf("failed to get next match: %w", err)
	}

	if existing := target.EntryID(slot); existing != nil {
		if *existing == entryID {
			return nil
		}
		return fmt.Errorf("%w: match %d slot %d", ErrSlotOccupied, target.BracketPosition, slot)
	}
	if target.SlotIsBye(slot) {
		return fmt.Errorf("%w: match %d slot %d is a bye", ErrSlotOccupied, target.BracketPosition, slot)
	}

	ok, err := s.matches.SetEntryTx(ctx, tx, target.ID, slot, entryID)
	if err != nil {
		return fmt.Errorf("failed to update next match: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: match %d slot %d", ErrSlotOccupied, target.BracketPosition, slot)
	}
	target.SetEntry(slot, entryID)
	adv.Placements = append(adv.Placements, Placement{MatchID: target.ID, Slot: slot, EntryID: entryID})

	if target.Played || !target.SlotIsBye(3-slot) {
		return nil
	}

	target.WinnerID = &entryID
	target.IsBye = true
	target.Played = true
	if _, err := s.matches.MarkPlayedTx(ctx, tx, target); err != nil {
		return fmt.Errorf("failed to complete walkover: %w", err)
	}
	adv.Placements[len(adv.Placements)-1].Walkover = true
	logger.Debug("Walkover completed", slog.Int("bracket_position", target.BracketPosition))

	if target.LoserNextMatchID != nil {
		logger.Warn("Walkover has a loser target, nothing is sent there", slog.Int("bracket_position", target.BracketPosition))
	}
	if target.WinnerNextMatchID != nil && target.WinnerNextSlot != nil {
		return s.place(ctx, tx, logger, adv, *target.WinnerNextMatchID, *target.WinnerNextSlot, entryID)
	}
	return nil
}

// needsGrandFinalReset is true when the losers bracket champion, who always
// enters the grand final in slot 2, wins the first grand final
func needsGrandFinalReset(event *bracket.Event, match *bracket.Match, winnerSlot int) bool {
	return event.Format == bracket.DoubleElimination &&
		match.BracketSide == bracket.GrandFinalSide &&
		match.RoundNumber == 1 &&
		winnerSlot == 2
}

func (s *MatchService) createGrandFinalReset(ctx context.Context, tx *sqlx.Tx, logger *slog.Logger, final *bracket.Match) (*bracket.Match, error) {
	existing, err := s.matches.FindMatchTx(ctx, tx, final.EventID, bracket.GrandFinalSide, 2, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to look up grand final reset: %w", err)
	}
	if existing != nil {
		logger.Warn("Grand final reset already exists", slog.String("reset_id", existing.ID.String()))
		return existing, nil
	}

	pos, err := s.matches.MaxBracketPositionTx(ctx, tx, final.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bracket position: %w", err)
	}

	reset := bracket.Match{
		ID:              uuid.New(),
		EventID:         final.EventID,
		BracketSide:     bracket.GrandFinalSide,
		RoundNumber:     2,
		MatchOrder:      1,
		BracketPosition: pos + 1,
		Entry1ID:        final.Entry1ID,
		Entry2ID:        final.Entry2ID,
	}
	if err := s.matches.CreateMatches(ctx, tx, []bracket.Match{reset}); err != nil {
		return nil, fmt.Errorf("failed to create grand final reset: %w", err)
	}

	s.metrics.GrandFinalReset()
	logger.Info("Grand final reset created", slog.String("reset_id", reset.ID.String()))
	return &reset, nil
}

// UnmarkPlayed reverts a human-decided result. Registrants already written
// into downstream matches stay where they are. Unmarking the first grand final
// removes the unplayed reset created by its result.
func (s *MatchService) UnmarkPlayed(ctx context.Context, matchID uuid.UUID) (*bracket.Match, error) {
	ctx, span := s.tracer.Start(ctx, "MatchService.UnmarkPlayed", trace.WithAttributes(
		attribute.String("match_id", matchID.String()),
	))
	defer span.End()

	logger := s.logger.With(slog.String("match_id", matchID.String()))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.matches.GetMatchTx(ctx, tx, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match.IsBye || match.HasByeSlot() {
		return nil, ErrByeMatch
	}
	if !match.Played {
		return nil, ErrMatchNotPlayed
	}

	if isFirstGrandFinal(match) {
		if err := s.dropGrandFinalReset(ctx, tx, logger, match); err != nil {
			return nil, err
		}
	}

	ok, err := s.matches.UnmarkPlayedTx(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}
	if !ok {
		return nil, ErrMatchNotPlayed
	}
	if err := s.matches.DeleteGamesTx(ctx, tx, matchID); err != nil {
		return nil, fmt.Errorf("failed to delete games: %w", err)
	}

	if match.DecidesChampion() {
		if err := s.events.SetCompletedTx(ctx, tx, match.EventID, false); err != nil {
			return nil, fmt.Errorf("failed to reopen event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if match.WinnerNextMatchID != nil || match.LoserNextMatchID != nil {
		logger.Warn("Match unmarked, downstream advancement is left in place")
	} else {
		logger.Info("Match unmarked")
	}

	match.Played = false
	match.WinnerID = nil
	match.Score1, match.Score2 = 0, 0
	return match, nil
}

func isFirstGrandFinal(match *bracket.Match) bool {
	return match.BracketSide == bracket.GrandFinalSide && match.RoundNumber == 1
}

// dropGrandFinalReset deletes the reset that exists only because of the first
// grand final's result. A played reset blocks the unmark.
func (s *MatchService) dropGrandFinalReset(ctx context.Context, tx *sqlx.Tx, logger *slog.Logger, final *bracket.Match) error {
	reset, err := s.matches.FindMatchTx(ctx, tx, final.EventID, bracket.GrandFinalSide, 2, 1)
	if err != nil {
		return fmt.Errorf("failed to look up grand final reset: %w", err)
	}
	if reset == nil {
		return nil
	}
	if reset.Played {
		return ErrResetPlayed
	}
	if err := s.matches.DeleteMatchTx(ctx, tx, reset.ID); err != nil {
		return fmt.Errorf("failed to delete grand final reset: %w", err)
	}
	logger.Info("Grand final reset removed", slog.String("reset_id", reset.ID.String()))
	return nil
}
