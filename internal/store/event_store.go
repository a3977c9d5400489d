package store

import (
	"context"

	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type EventStore struct {
	db *sqlx.DB
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) CreateEvent(ctx context.Context, tx *sqlx.Tx, event *bracket.Event) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO events (id, name, format, best_of, has_third_place_match, losers_start_rounds_before_final)
        VALUES (:id, :name, :format, :best_of, :has_third_place_match, :losers_start_rounds_before_final)`, event)
	return err
}

func (s *EventStore) CreateRegistrations(ctx context.Context, tx *sqlx.Tx, registrations []bracket.Registration) error {
	if len(registrations) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO registrations (id, event_id, name, seed)
            VALUES (:id, :event_id, :name, :seed)`, registrations)
	return err
}

func (s *EventStore) GetEvent(ctx context.Context, id uuid.UUID) (*bracket.Event, error) {
	var event bracket.Event
	err := s.db.GetContext(ctx, &event, "SELECT * FROM events WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *EventStore) GetEventTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Event, error) {
	var event bracket.Event
	err := tx.GetContext(ctx, &event, "SELECT * FROM events WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *EventStore) ListEvents(ctx context.Context) ([]bracket.Event, error) {
	var events []bracket.Event
	err := s.db.SelectContext(ctx, &events, "SELECT * FROM events ORDER BY created_at DESC")
	return events, err
}

// GetRegistrations lists seeded registrations first by seed, then the rest in creation order
func (s *EventStore) GetRegistrations(ctx context.Context, eventID uuid.UUID) ([]bracket.Registration, error) {
	var registrations []bracket.Registration
	err := s.db.SelectContext(ctx, &registrations, `SELECT * FROM registrations WHERE event_id = ?
        ORDER BY seed IS NULL, seed ASC, created_at ASC, rowid ASC`, eventID)
	return registrations, err
}

func (s *EventStore) UpdateSeedsTx(ctx context.Context, tx *sqlx.Tx, eventID uuid.UUID, seeds []bracket.SeedAssignment) error {
	for _, seed := range seeds {
		_, err := tx.ExecContext(ctx, "UPDATE registrations SET seed = ? WHERE id = ? AND event_id = ?",
			seed.Seed, seed.RegistrationID, eventID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *EventStore) ClearSeedsTx(ctx context.Context, tx *sqlx.Tx, eventID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "UPDATE registrations SET seed = NULL WHERE event_id = ?", eventID)
	return err
}

func (s *EventStore) SetCompletedTx(ctx context.Context, tx *sqlx.Tx, eventID uuid.UUID, completed bool) error {
	_, err := tx.ExecContext(ctx, "UPDATE events SET completed = ? WHERE id = ?", completed, eventID)
	return err
}
