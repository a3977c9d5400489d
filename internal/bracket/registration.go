package bracket

import (
	"time"

	"github.com/google/uuid"
)

type Registration struct {
	ID        uuid.UUID `db:"id" json:"id"`
	EventID   uuid.UUID `db:"event_id" json:"event_id"`
	Name      string    `db:"name" json:"name"`
	Seed      *int      `db:"seed" json:"seed,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type SeedAssignment struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	Seed           int       `json:"seed"`
}
