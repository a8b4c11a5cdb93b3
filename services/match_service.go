package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/rating-engine/live"
	"github.com/Dosada05/rating-engine/models"
	"github.com/Dosada05/rating-engine/rating"
	"github.com/Dosada05/rating-engine/repositories"
	"github.com/cenkalti/backoff/v4"
)

const (
	defaultImportance    = 1.0
	tournamentImportance = 1.5
	maxCommitRetries     = 3
)

type ProcessMatchInput struct {
	MatchID      string
	WinnerID     int
	LoserID      int
	Game         string
	Mode         models.GameMode
	TournamentID *int
	IsTournament bool
	Importance   float64
	PlayedAt     time.Time
}

// MatchProcessor — единственная точка входа, превращающая исход матча
// в зафиксированное состояние рейтингов.
type MatchProcessor interface {
	ProcessMatch(ctx context.Context, input ProcessMatchInput) (*models.MatchResult, error)
	// ProcessRegularMatch — обёртка для обычного матча: mode=solo, importance=1.0.
	ProcessRegularMatch(ctx context.Context, winnerID, loserID int, game, matchID string) (*models.MatchResult, error)
	// ProcessTournamentMatch — обёртка для турнирного матча: mode=tournament, importance=1.5.
	ProcessTournamentMatch(ctx context.Context, winnerID, loserID int, game, matchID string, tournamentID int) (*models.MatchResult, error)
}

type matchProcessor struct {
	ratingRepo repositories.RatingRepository
	ledgerRepo repositories.MatchLedgerRepository
	hub        *live.Hub // может быть nil, пуш тогда отключён
	season     string
	logger     *slog.Logger
}

func NewMatchProcessor(
	ratingRepo repositories.RatingRepository,
	ledgerRepo repositories.MatchLedgerRepository,
	hub *live.Hub,
	season string,
	logger *slog.Logger,
) MatchProcessor {
	return &matchProcessor{
		ratingRepo: ratingRepo,
		ledgerRepo: ledgerRepo,
		hub:        hub,
		season:     season,
		logger:     logger,
	}
}

func (s *matchProcessor) ProcessMatch(ctx context.Context, input ProcessMatchInput) (*models.MatchResult, error) {
	if err := validateMatchInput(input); err != nil {
		return nil, err
	}
	if input.Importance <= 0 {
		input.Importance = defaultImportance
	}
	if input.PlayedAt.IsZero() {
		input.PlayedAt = time.Now()
	}

	// Идемпотентный повтор: матч уже в журнале — возвращаем сохранённый
	// результат, ничего не пересчитывая.
	existing, err := s.ledgerRepo.GetByMatchID(ctx, input.MatchID)
	if err == nil {
		return resultFromRecord(existing, true), nil
	}
	if !errors.Is(err, repositories.ErrMatchRecordNotFound) {
		return nil, fmt.Errorf("failed to check ledger for match %s: %w", input.MatchID, err)
	}

	// Оптимистичная блокировка: при конфликте версий повторяем весь цикл
	// чтение-расчёт-коммит с экспоненциальной паузой.
	var result *models.MatchResult
	operation := func() error {
		res, attemptErr := s.attempt(ctx, input)
		if attemptErr != nil {
			if errors.Is(attemptErr, repositories.ErrRatingVersionConflict) {
				return attemptErr
			}
			return backoff.Permanent(attemptErr)
		}
		result = res
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxCommitRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, repositories.ErrRatingVersionConflict) {
			s.logger.Warn("match commit retries exhausted",
				slog.String("match_id", input.MatchID),
				slog.Int("winner_id", input.WinnerID),
				slog.Int("loser_id", input.LoserID))
			return nil, fmt.Errorf("%w: match %s", ErrStorageConflict, input.MatchID)
		}
		return nil, err
	}

	s.logger.Info("match processed",
		slog.String("match_id", input.MatchID),
		slog.String("game", input.Game),
		slog.String("mode", string(input.Mode)),
		slog.Int("winner_id", input.WinnerID),
		slog.Int("winner_after", result.Winner.After),
		slog.Int("loser_id", input.LoserID),
		slog.Int("loser_after", result.Loser.After))

	if s.hub != nil && !result.Replayed {
		room := live.LeaderboardRoom(input.Game, input.Mode)
		s.hub.BroadcastToRoom(room, live.Message{
			Type:    live.MessageTypeRatingUpdated,
			Payload: result,
			RoomID:  room,
		})
	}
	return result, nil
}

// attempt выполняет один проход чтение-расчёт-коммит.
func (s *matchProcessor) attempt(ctx context.Context, input ProcessMatchInput) (*models.MatchResult, error) {
	winner, err := s.ratingRepo.GetOrCreate(ctx, input.WinnerID, input.Game, input.Mode, s.season)
	if err != nil {
		return nil, fmt.Errorf("failed to load winner rating: %w", err)
	}
	loser, err := s.ratingRepo.GetOrCreate(ctx, input.LoserID, input.Game, input.Mode, s.season)
	if err != nil {
		return nil, fmt.Errorf("failed to load loser rating: %w", err)
	}

	winnerK := rating.KFactor(winner.Rating, winner.MatchesPlayed, input.IsTournament)
	loserK := rating.KFactor(loser.Rating, loser.MatchesPlayed, input.IsTournament)
	winnerChange, loserChange := rating.RatingDelta(winner.Rating, loser.Rating, winnerK, loserK, input.Importance)

	record := &models.MatchRecord{
		MatchID:            input.MatchID,
		TournamentID:       input.TournamentID,
		Game:               input.Game,
		Mode:               input.Mode,
		Season:             s.season,
		WinnerID:           input.WinnerID,
		LoserID:            input.LoserID,
		WinnerRatingBefore: winner.Rating,
		WinnerRatingAfter:  rating.Apply(winner.Rating, winnerChange),
		LoserRatingBefore:  loser.Rating,
		LoserRatingAfter:   rating.Apply(loser.Rating, loserChange),
		RatingChange:       winnerChange,
		MatchImportance:    input.Importance,
		PlayedAt:           input.PlayedAt,
	}

	applyMatchOutcome(winner, record.WinnerRatingAfter, true, input.PlayedAt)
	applyMatchOutcome(loser, record.LoserRatingAfter, false, input.PlayedAt)

	if err := s.ratingRepo.CommitMatchUpdate(ctx, winner, loser, record); err != nil {
		if errors.Is(err, repositories.ErrMatchRecordDuplicate) {
			// Гонка двух одновременных вызовов с одним match_id:
			// проигравший гонку возвращает результат победителя.
			stored, lookupErr := s.ledgerRepo.GetByMatchID(ctx, input.MatchID)
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to load replayed match %s: %w", input.MatchID, lookupErr)
			}
			return resultFromRecord(stored, true), nil
		}
		return nil, err
	}

	return resultFromRecord(record, false), nil
}

func (s *matchProcessor) ProcessRegularMatch(ctx context.Context, winnerID, loserID int, game, matchID string) (*models.MatchResult, error) {
	return s.ProcessMatch(ctx, ProcessMatchInput{
		MatchID:    matchID,
		WinnerID:   winnerID,
		LoserID:    loserID,
		Game:       game,
		Mode:       models.ModeSolo,
		Importance: defaultImportance,
	})
}

func (s *matchProcessor) ProcessTournamentMatch(ctx context.Context, winnerID, loserID int, game, matchID string, tournamentID int) (*models.MatchResult, error) {
	return s.ProcessMatch(ctx, ProcessMatchInput{
		MatchID:      matchID,
		WinnerID:     winnerID,
		LoserID:      loserID,
		Game:         game,
		Mode:         models.ModeTournament,
		TournamentID: &tournamentID,
		IsTournament: true,
		Importance:   tournamentImportance,
	})
}

func validateMatchInput(input ProcessMatchInput) error {
	switch {
	case input.MatchID == "":
		return fmt.Errorf("%w: match_id is required", ErrInvalidMatch)
	case input.WinnerID <= 0 || input.LoserID <= 0:
		return fmt.Errorf("%w: winner_id and loser_id are required", ErrInvalidMatch)
	case input.WinnerID == input.LoserID:
		return fmt.Errorf("%w: winner and loser must be different players", ErrInvalidMatch)
	case input.Game == "":
		return fmt.Errorf("%w: game is required", ErrInvalidMatch)
	case !input.Mode.Valid():
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidMatch, input.Mode)
	}
	return nil
}

// applyMatchOutcome переводит снапшот рейтинга в состояние "после матча".
// Тир всегда пересчитывается вместе с рейтингом.
func applyMatchOutcome(rt *models.Rating, newRating int, won bool, playedAt time.Time) {
	rt.Rating = newRating
	if newRating > rt.PeakRating {
		rt.PeakRating = newRating
	}
	rt.MatchesPlayed++
	if won {
		rt.Wins++
	} else {
		rt.Losses++
	}
	rt.WinRate = float64(rt.Wins) / float64(rt.MatchesPlayed)
	rt.Tier, rt.TierProgress = rating.ClassifyTier(newRating)
	t := playedAt
	rt.LastMatchDate = &t
}

func resultFromRecord(record *models.MatchRecord, replayed bool) *models.MatchResult {
	winnerTier, winnerProgress := rating.ClassifyTier(record.WinnerRatingAfter)
	loserTier, loserProgress := rating.ClassifyTier(record.LoserRatingAfter)

	return &models.MatchResult{
		MatchID: record.MatchID,
		Game:    record.Game,
		Mode:    record.Mode,
		Season:  record.Season,
		Winner: models.RatingMovement{
			UserID:       record.WinnerID,
			Before:       record.WinnerRatingBefore,
			After:        record.WinnerRatingAfter,
			Change:       record.WinnerRatingAfter - record.WinnerRatingBefore,
			Tier:         winnerTier,
			TierProgress: winnerProgress,
		},
		Loser: models.RatingMovement{
			UserID:       record.LoserID,
			Before:       record.LoserRatingBefore,
			After:        record.LoserRatingAfter,
			Change:       record.LoserRatingAfter - record.LoserRatingBefore,
			Tier:         loserTier,
			TierProgress: loserProgress,
		},
		Replayed: replayed,
	}
}
