package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/rating-engine/models"
)

var ErrMatchRecordNotFound = errors.New("match record not found")

// MatchLedgerRepository читает журнал обработанных матчей.
// Запись в журнал идёт только через RatingRepository.CommitMatchUpdate,
// чтобы у многострочной атомарности был единственный владелец.
type MatchLedgerRepository interface {
	GetByMatchID(ctx context.Context, matchID string) (*models.MatchRecord, error)
	ListRecentByUser(ctx context.Context, userID int, season string, limit int) ([]*models.MatchRecord, error)
}

type postgresMatchLedgerRepository struct {
	db *sql.DB
}

func NewPostgresMatchLedgerRepository(db *sql.DB) MatchLedgerRepository {
	return &postgresMatchLedgerRepository{db: db}
}

const matchRecordColumns = `id, match_id, tournament_id, game, mode, season, winner_id, loser_id,
	       winner_rating_before, winner_rating_after, loser_rating_before, loser_rating_after,
	       rating_change, match_importance, played_at, created_at`

func (r *postgresMatchLedgerRepository) scanRecord(rowScanner interface{ Scan(...interface{}) error }) (*models.MatchRecord, error) {
	var m models.MatchRecord
	err := rowScanner.Scan(
		&m.ID, &m.MatchID, &m.TournamentID, &m.Game, &m.Mode, &m.Season,
		&m.WinnerID, &m.LoserID,
		&m.WinnerRatingBefore, &m.WinnerRatingAfter, &m.LoserRatingBefore, &m.LoserRatingAfter,
		&m.RatingChange, &m.MatchImportance, &m.PlayedAt, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchRecordNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchLedgerRepository) GetByMatchID(ctx context.Context, matchID string) (*models.MatchRecord, error) {
	query := `
		SELECT ` + matchRecordColumns + `
		FROM match_ledger
		WHERE match_id = $1`

	row := r.db.QueryRowContext(ctx, query, matchID)
	record, err := r.scanRecord(row)
	if err != nil {
		if errors.Is(err, ErrMatchRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan match record %s: %w", matchID, err)
	}
	return record, nil
}

func (r *postgresMatchLedgerRepository) ListRecentByUser(ctx context.Context, userID int, season string, limit int) ([]*models.MatchRecord, error) {
	query := `
		SELECT ` + matchRecordColumns + `
		FROM match_ledger
		WHERE (winner_id = $1 OR loser_id = $1) AND season = $2
		ORDER BY played_at DESC, id DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, userID, season, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent matches for user %d: %w", userID, err)
	}
	defer rows.Close()

	records := make([]*models.MatchRecord, 0)
	for rows.Next() {
		record, scanErr := r.scanRecord(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match record row: %w", scanErr)
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match record rows iteration: %w", err)
	}
	return records, nil
}
