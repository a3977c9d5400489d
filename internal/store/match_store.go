package store

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Rows per INSERT, keeps the bound parameter count under SQLite's default limit of 999
const matchInsertBatch = 40

type MatchStore struct {
	db *sqlx.DB
}

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

// CreateMatches inserts the rows with their advancement links already set. The
// links are deferred foreign keys, so targets may come later in the slice.
func (s *MatchStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	for start := 0; start < len(matches); start += matchInsertBatch {
		end := min(start+matchInsertBatch, len(matches))
		_, err := tx.NamedExecContext(ctx, `INSERT INTO matches (id, event_id, group_id, bracket_side, round_number, match_order, bracket_position,
                entry_1_id, entry_2_id, entry_1_bye, entry_2_bye, score_1, score_2, played, winner_id,
                winner_next_match_id, winner_next_slot, loser_next_match_id, loser_next_slot, is_bye)
            VALUES (:id, :event_id, :group_id, :bracket_side, :round_number, :match_order, :bracket_position,
                :entry_1_id, :entry_2_id, :entry_1_bye, :entry_2_bye, :score_1, :score_2, :played, :winner_id,
                :winner_next_match_id, :winner_next_slot, :loser_next_match_id, :loser_next_slot, :is_bye)`, matches[start:end])
		if err != nil {
			return fmt.Errorf("failed to insert matches %d-%d: %w", start+1, end, err)
		}
	}
	return nil
}

// CountMatches counts every match of the event, the same rows DeleteMatchesTx removes
func (s *MatchStore) CountMatches(ctx context.Context, eventID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM matches WHERE event_id = ?", eventID)
	return count, err
}

func (s *MatchStore) CountMatchesTx(ctx context.Context, tx *sqlx.Tx, eventID uuid.UUID) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM matches WHERE event_id = ?", eventID)
	return count, err
}

func (s *MatchStore) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	if err := s.db.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *MatchStore) GetMatchTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	if err := tx.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *MatchStore) GetMatches(ctx context.Context, eventID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE event_id = ? ORDER BY bracket_position ASC", eventID)
	return matches, err
}

// FindMatchTx looks a match up by its place in the bracket, returning nil when there is none
func (s *MatchStore) FindMatchTx(ctx context.Context, tx *sqlx.Tx, eventID uuid.UUID, side bracket.BracketSide, round, order int) (*bracket.Match, error) {
	var matches []bracket.Match
	err := tx.SelectContext(ctx, &matches, `SELECT * FROM matches
        WHERE event_id = ? AND bracket_side = ? AND round_number = ? AND match_order = ?`, eventID, side, round, order)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return &matches[0], nil
}

func (s *MatchStore) MaxBracketPositionTx(ctx context.Context, tx *sqlx.Tx, eventID uuid.UUID) (int, error) {
	var pos int
	err := tx.GetContext(ctx, &pos, "SELECT COALESCE(MAX(bracket_position), 0) FROM matches WHERE event_id = ?", eventID)
	return pos, err
}

// SetEntryTx fills an occupant slot. It only writes into an empty, non-bye slot
// and reports whether the row changed.
func (s *MatchStore) SetEntryTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, slot int, entryID uuid.UUID) (bool, error) {
	query := `UPDATE matches SET entry_1_id = ? WHERE id = ? AND entry_1_id IS NULL AND entry_1_bye = 0`
	if slot == 2 {
		query = `UPDATE matches SET entry_2_id = ? WHERE id = ? AND entry_2_id IS NULL AND entry_2_bye = 0`
	}
	return execAffected(ctx, tx, query, entryID, matchID)
}

// MarkPlayedTx records the result. Only an unplayed row is changed, a second
// concurrent writer gets false.
func (s *MatchStore) MarkPlayedTx(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) (bool, error) {
	return execAffected(ctx, tx, `UPDATE matches SET played = 1, winner_id = ?, score_1 = ?, score_2 = ?, is_bye = ?
        WHERE id = ? AND played = 0`, match.WinnerID, match.Score1, match.Score2, match.IsBye, match.ID)
}

// UnmarkPlayedTx reverts a played, human-decided match to unplayed
func (s *MatchStore) UnmarkPlayedTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) (bool, error) {
	return execAffected(ctx, tx, `UPDATE matches SET played = 0, winner_id = NULL, score_1 = 0, score_2 = 0
        WHERE id = ? AND played = 1 AND is_bye = 0`, matchID)
}

// DeleteMatchTx removes a single match, its games go with it
func (s *MatchStore) DeleteMatchTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE id = ?", id)
	return err
}

func (s *MatchStore) DeleteMatchesTx(ctx context.Context, tx *sqlx.Tx, eventID uuid.UUID) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE event_id = ?", eventID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *MatchStore) CreateGamesTx(ctx context.Context, tx *sqlx.Tx, games []bracket.MatchGame) error {
	if len(games) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO match_games (match_id, game_number, score_1, score_2)
        VALUES (:match_id, :game_number, :score_1, :score_2)`, games)
	return err
}

func (s *MatchStore) DeleteGamesTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM match_games WHERE match_id = ?", matchID)
	return err
}

func (s *MatchStore) GetGames(ctx context.Context, eventID uuid.UUID) ([]bracket.MatchGame, error) {
	var games []bracket.MatchGame
	err := s.db.SelectContext(ctx, &games, `SELECT g.* FROM match_games g
        JOIN matches m ON m.id = g.match_id
        WHERE m.event_id = ? ORDER BY m.bracket_position, g.game_number`, eventID)
	return games, err
}

func execAffected(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (bool, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
