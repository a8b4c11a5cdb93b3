package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/rating-engine/models"
	"github.com/Dosada05/rating-engine/rating"
	"github.com/lib/pq"
)

var (
	ErrRatingNotFound = errors.New("rating not found")
	// ErrRatingVersionConflict — строка была изменена конкурентно, версия устарела.
	// Вызывающая сторона перечитывает строку и повторяет операцию целиком.
	ErrRatingVersionConflict = errors.New("rating version conflict")
	// ErrMatchRecordDuplicate — match_id уже есть в журнале (идемпотентный повтор).
	ErrMatchRecordDuplicate = errors.New("match record already exists")
)

// LeaderboardFilter — фильтр выборки лидерборда. Game и Mode опциональны,
// Season обязателен: рейтинги всегда читаются в рамках одного сезона.
type LeaderboardFilter struct {
	Game   *string
	Mode   *models.GameMode
	Season string
}

type RatingRepository interface {
	// GetOrCreate возвращает существующую строку или создаёт новую со
	// стартовым рейтингом. Безопасен при конкурентном первом обращении:
	// вставка идёт через ON CONFLICT DO NOTHING по уникальному ключу
	// (user_id, game, mode, season), оба вызова увидят одну и ту же строку.
	GetOrCreate(ctx context.Context, userID int, game string, mode models.GameMode, season string) (*models.Rating, error)
	Get(ctx context.Context, userID int, game string, mode models.GameMode, season string) (*models.Rating, error)
	// CommitMatchUpdate атомарно фиксирует матч: запись в журнал плюс обе
	// строки рейтинга в одной транзакции. Либо всё, либо ничего.
	CommitMatchUpdate(ctx context.Context, winner, loser *models.Rating, record *models.MatchRecord) error
	// CommitDecay атомарно фиксирует decay одной строки вместе с записью аудита.
	CommitDecay(ctx context.Context, decayed *models.Rating, audit *models.RatingAudit) error
	ListByRatingDescending(ctx context.Context, filter LeaderboardFilter, limit, offset int) ([]*models.Rating, error)
	// ListInactiveAbove — keyset-пагинация по id для decay-скана.
	ListInactiveAbove(ctx context.Context, floorRating int, inactiveSince time.Time, season string, afterID, limit int) ([]*models.Rating, error)
	ListByUser(ctx context.Context, userID int, season string) ([]*models.Rating, error)
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

const ratingColumns = `id, user_id, game, mode, season, rating, peak_rating, matches_played,
	       wins, losses, win_rate, tier, tier_progress, last_match_date, version, created_at, updated_at`

func (r *postgresRatingRepository) scanRating(rowScanner interface{ Scan(...interface{}) error }) (*models.Rating, error) {
	var rt models.Rating
	err := rowScanner.Scan(
		&rt.ID, &rt.UserID, &rt.Game, &rt.Mode, &rt.Season, &rt.Rating, &rt.PeakRating,
		&rt.MatchesPlayed, &rt.Wins, &rt.Losses, &rt.WinRate, &rt.Tier, &rt.TierProgress,
		&rt.LastMatchDate, &rt.Version, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, err
	}
	return &rt, nil
}

func (r *postgresRatingRepository) Get(ctx context.Context, userID int, game string, mode models.GameMode, season string) (*models.Rating, error) {
	query := `
		SELECT ` + ratingColumns + `
		FROM ratings
		WHERE user_id = $1 AND game = $2 AND mode = $3 AND season = $4`

	row := r.db.QueryRowContext(ctx, query, userID, game, mode, season)
	return r.scanRating(row)
}

func (r *postgresRatingRepository) GetOrCreate(ctx context.Context, userID int, game string, mode models.GameMode, season string) (*models.Rating, error) {
	tier, progress := rating.ClassifyTier(rating.DefaultRating)

	insertQuery := `
		INSERT INTO ratings
			(user_id, game, mode, season, rating, peak_rating, matches_played, wins, losses,
			 win_rate, tier, tier_progress, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5, 0, 0, 0, 0, $6, $7, 1, NOW(), NOW())
		ON CONFLICT (user_id, game, mode, season) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, insertQuery,
		userID, game, mode, season, rating.DefaultRating, tier, progress,
	); err != nil {
		return nil, fmt.Errorf("failed to ensure rating row for user %d (%s/%s/%s): %w", userID, game, mode, season, err)
	}

	row, err := r.Get(ctx, userID, game, mode, season)
	if err != nil {
		return nil, fmt.Errorf("failed to read rating row after upsert for user %d: %w", userID, err)
	}
	return row, nil
}

// updateGuarded обновляет строку рейтинга только если версия не изменилась
// с момента чтения. 0 затронутых строк означает конкурентное обновление.
func (r *postgresRatingRepository) updateGuarded(ctx context.Context, exec SQLExecutor, rt *models.Rating) error {
	query := `
		UPDATE ratings SET
			rating = $1, peak_rating = $2, matches_played = $3, wins = $4, losses = $5,
			win_rate = $6, tier = $7, tier_progress = $8, last_match_date = $9,
			version = version + 1, updated_at = NOW()
		WHERE id = $10 AND version = $11`

	result, err := exec.ExecContext(ctx, query,
		rt.Rating, rt.PeakRating, rt.MatchesPlayed, rt.Wins, rt.Losses,
		rt.WinRate, rt.Tier, rt.TierProgress, rt.LastMatchDate,
		rt.ID, rt.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update rating %d: %w", rt.ID, err)
	}
	return checkAffectedRows(result, ErrRatingVersionConflict)
}

func (r *postgresRatingRepository) insertMatchRecord(ctx context.Context, exec SQLExecutor, record *models.MatchRecord) error {
	query := `
		INSERT INTO match_ledger
			(match_id, tournament_id, game, mode, season, winner_id, loser_id,
			 winner_rating_before, winner_rating_after, loser_rating_before, loser_rating_after,
			 rating_change, match_importance, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		record.MatchID, record.TournamentID, record.Game, record.Mode, record.Season,
		record.WinnerID, record.LoserID,
		record.WinnerRatingBefore, record.WinnerRatingAfter,
		record.LoserRatingBefore, record.LoserRatingAfter,
		record.RatingChange, record.MatchImportance, record.PlayedAt,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		// 23505: unique_violation — журнал и есть механизм идемпотентности
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrMatchRecordDuplicate
		}
		return fmt.Errorf("failed to insert match record %s: %w", record.MatchID, err)
	}
	return nil
}

func (r *postgresRatingRepository) CommitMatchUpdate(ctx context.Context, winner, loser *models.Rating, record *models.MatchRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	// Журнал вставляется первым: дубликат match_id откатывает всё до того,
	// как рейтинги будут тронуты.
	if txErr = r.insertMatchRecord(ctx, tx, record); txErr != nil {
		return txErr
	}
	if txErr = r.updateGuarded(ctx, tx, winner); txErr != nil {
		return txErr
	}
	if txErr = r.updateGuarded(ctx, tx, loser); txErr != nil {
		return txErr
	}

	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("failed to commit match update %s: %w", record.MatchID, txErr)
	}
	return nil
}

func (r *postgresRatingRepository) CommitDecay(ctx context.Context, decayed *models.Rating, audit *models.RatingAudit) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = r.updateGuarded(ctx, tx, decayed); txErr != nil {
		return txErr
	}

	auditQuery := `
		INSERT INTO rating_audits
			(id, user_id, game, mode, season, kind, rating_before, rating_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`
	if _, txErr = tx.ExecContext(ctx, auditQuery,
		audit.ID, audit.UserID, audit.Game, audit.Mode, audit.Season,
		audit.Kind, audit.RatingBefore, audit.RatingAfter,
	); txErr != nil {
		txErr = fmt.Errorf("failed to insert rating audit for user %d: %w", audit.UserID, txErr)
		return txErr
	}

	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("failed to commit decay for rating %d: %w", decayed.ID, txErr)
	}
	return nil
}

func (r *postgresRatingRepository) ListByRatingDescending(ctx context.Context, filter LeaderboardFilter, limit, offset int) ([]*models.Rating, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT ` + ratingColumns + `
		FROM ratings
		WHERE season = $1`)

	args := []interface{}{filter.Season}
	placeholderIndex := 2

	if filter.Game != nil {
		queryBuilder.WriteString(" AND game = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Game)
		placeholderIndex++
	}
	if filter.Mode != nil {
		queryBuilder.WriteString(" AND mode = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Mode)
		placeholderIndex++
	}

	// user_id ASC для детерминированного порядка при равных рейтингах
	queryBuilder.WriteString(" ORDER BY rating DESC, user_id ASC")
	queryBuilder.WriteString(" LIMIT $" + strconv.Itoa(placeholderIndex))
	args = append(args, limit)
	placeholderIndex++
	queryBuilder.WriteString(" OFFSET $" + strconv.Itoa(placeholderIndex))
	args = append(args, offset)

	return r.queryRatings(ctx, queryBuilder.String(), args...)
}

func (r *postgresRatingRepository) ListInactiveAbove(ctx context.Context, floorRating int, inactiveSince time.Time, season string, afterID, limit int) ([]*models.Rating, error) {
	query := `
		SELECT ` + ratingColumns + `
		FROM ratings
		WHERE season = $1
		  AND rating > $2
		  AND last_match_date IS NOT NULL
		  AND last_match_date < $3
		  AND id > $4
		ORDER BY id ASC
		LIMIT $5`

	return r.queryRatings(ctx, query, season, floorRating, inactiveSince, afterID, limit)
}

func (r *postgresRatingRepository) ListByUser(ctx context.Context, userID int, season string) ([]*models.Rating, error) {
	query := `
		SELECT ` + ratingColumns + `
		FROM ratings
		WHERE user_id = $1 AND season = $2
		ORDER BY rating DESC, game ASC, mode ASC`

	return r.queryRatings(ctx, query, userID, season)
}

func (r *postgresRatingRepository) queryRatings(ctx context.Context, query string, args ...interface{}) ([]*models.Rating, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]*models.Rating, 0)
	for rows.Next() {
		rt, scanErr := r.scanRating(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", scanErr)
		}
		ratings = append(ratings, rt)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rating rows iteration: %w", err)
	}
	return ratings, nil
}
