package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
	"github.com/AdamBeresnev/fedbrackets/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const maxRegistrantNameLength = 50

type EventService struct {
	db     *sqlx.DB
	store  *store.EventStore
	logger *slog.Logger
}

func NewEventService(db *sqlx.DB, store *store.EventStore, logger *slog.Logger) *EventService {
	return &EventService{db: db, store: store, logger: logger}
}

type RegistrantInput struct {
	Name string `json:"name"`
	Seed *int   `json:"seed,omitempty"`
}

type EventInput struct {
	Name                         string            `json:"name"`
	Format                       string            `json:"format"`
	BestOf                       int               `json:"best_of"`
	HasThirdPlaceMatch           bool              `json:"has_third_place_match"`
	LosersStartRoundsBeforeFinal *int              `json:"losers_start_rounds_before_final,omitempty"`
	Registrants                  []RegistrantInput `json:"registrants"`
}

// ValidationError carries a message meant for the caller
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (in *EventInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Message: "Event name is required"}
	}
	if _, err := bracket.ParseFormat(in.Format); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if in.BestOf == 0 {
		in.BestOf = 1
	}
	if in.BestOf < 0 || in.BestOf%2 == 0 {
		return ErrInvalidBestOf
	}
	if in.LosersStartRoundsBeforeFinal != nil && *in.LosersStartRoundsBeforeFinal < 0 {
		return &ValidationError{Message: "losers_start_rounds_before_final must not be negative"}
	}
	for _, r := range in.Registrants {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return &ValidationError{Message: "Registrant name is required"}
		}
		if len(name) > maxRegistrantNameLength {
			return &ValidationError{Message: fmt.Sprintf("Registrant name '%s' exceeds %d characters", name, maxRegistrantNameLength)}
		}
	}
	return nil
}

// CreateEvent stores the event with its registrants. No bracket is generated here.
func (s *EventService) CreateEvent(ctx context.Context, in EventInput) (*bracket.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	event := &bracket.Event{
		ID:                           uuid.New(),
		Name:                         strings.TrimSpace(in.Name),
		Format:                       bracket.Format(in.Format),
		BestOf:                       in.BestOf,
		HasThirdPlaceMatch:           in.HasThirdPlaceMatch,
		LosersStartRoundsBeforeFinal: in.LosersStartRoundsBeforeFinal,
	}
	if err := s.store.CreateEvent(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	registrations := make([]bracket.Registration, 0, len(in.Registrants))
	for _, input := range in.Registrants {
		registrations = append(registrations, bracket.Registration{
			ID:      uuid.New(),
			EventID: event.ID,
			Name:    strings.TrimSpace(input.Name),
			Seed:    input.Seed,
		})
	}
	if err := s.store.CreateRegistrations(ctx, tx, registrations); err != nil {
		return nil, fmt.Errorf("failed to create registrations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("Event created",
		slog.String("event_id", event.ID.String()),
		slog.String("format", string(event.Format)),
		slog.Int("registrants", len(registrations)),
	)
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, id uuid.UUID) (*bracket.Event, error) {
	event, err := s.store.GetEvent(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return event, err
}

func (s *EventService) ListEvents(ctx context.Context) ([]bracket.Event, error) {
	return s.store.ListEvents(ctx)
}

func (s *EventService) GetRegistrations(ctx context.Context, eventID uuid.UUID) ([]bracket.Registration, error) {
	return s.store.GetRegistrations(ctx, eventID)
}
