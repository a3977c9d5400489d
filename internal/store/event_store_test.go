package store

import (
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
	"github.com/AdamBeresnev/fedbrackets/internal/db"
	"github.com/AdamBeresnev/fedbrackets/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)

	require.NoError(t, db.RunMigrations(database.DB), "Failed to apply migrations")
	return database
}

func createTestEvent(t *testing.T, database *sqlx.DB, format bracket.Format) *bracket.Event {
	t.Helper()

	event := &bracket.Event{
		ID:     uuid.New(),
		Name:   "Test Event",
		Format: format,
		BestOf: 1,
	}

	tx, err := database.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, NewEventStore(database).CreateEvent(context.Background(), tx, event))
	require.NoError(t, tx.Commit())
	return event
}

func TestCreateEvent(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	store := NewEventStore(database)
	event := &bracket.Event{
		ID:                           uuid.New(),
		Name:                         "Regional Championship",
		Format:                       bracket.DoubleElimination,
		BestOf:                       3,
		HasThirdPlaceMatch:           true,
		LosersStartRoundsBeforeFinal: utils.Ptr(2),
	}

	tx, err := database.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateEvent(context.Background(), tx, event))
	require.NoError(t, tx.Commit())

	fetched, err := store.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)

	assert.Equal(t, event.ID, fetched.ID)
	assert.Equal(t, event.Name, fetched.Name)
	assert.Equal(t, event.Format, fetched.Format)
	assert.Equal(t, 3, fetched.BestOf)
	assert.True(t, fetched.HasThirdPlaceMatch)
	assert.Equal(t, 2, utils.OrZero(fetched.LosersStartRoundsBeforeFinal))
	assert.False(t, fetched.Completed)
	assert.WithinDuration(t, time.Now().UTC(), fetched.CreatedAt, time.Minute)

	tx, err = database.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, store.SetCompletedTx(context.Background(), tx, event.ID, true))
	require.NoError(t, tx.Commit())

	fetched, err = store.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Completed)
}

func TestRegistrations(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	store := NewEventStore(database)
	event := createTestEvent(t, database, bracket.SingleElimination)

	registrations := []bracket.Registration{
		{ID: uuid.New(), EventID: event.ID, Name: "Unseeded first"},
		{ID: uuid.New(), EventID: event.ID, Name: "Seed 2", Seed: utils.Ptr(2)},
		{ID: uuid.New(), EventID: event.ID, Name: "Unseeded second"},
		{ID: uuid.New(), EventID: event.ID, Name: "Seed 1", Seed: utils.Ptr(1)},
	}

	ctx := context.Background()
	tx, err := database.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateRegistrations(ctx, tx, registrations))
	require.NoError(t, store.CreateRegistrations(ctx, tx, nil))
	require.NoError(t, tx.Commit())

	fetched, err := store.GetRegistrations(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 4)
	assert.Equal(t, []uuid.UUID{registrations[3].ID, registrations[1].ID, registrations[0].ID, registrations[2].ID},
		[]uuid.UUID{fetched[0].ID, fetched[1].ID, fetched[2].ID, fetched[3].ID})

	t.Run("update and clear seeds", func(t *testing.T) {
		tx, err := database.BeginTxx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, store.UpdateSeedsTx(ctx, tx, event.ID, []bracket.SeedAssignment{
			{RegistrationID: registrations[0].ID, Seed: 3},
		}))
		require.NoError(t, tx.Commit())

		fetched, err := store.GetRegistrations(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, registrations[0].ID, fetched[2].ID)
		assert.Equal(t, 3, utils.OrZero(fetched[2].Seed))

		tx, err = database.BeginTxx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, store.ClearSeedsTx(ctx, tx, event.ID))
		require.NoError(t, tx.Commit())

		fetched, err = store.GetRegistrations(ctx, event.ID)
		require.NoError(t, err)
		for _, r := range fetched {
			assert.Nil(t, r.Seed)
		}
	})
}
