package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Dosada05/rating-engine/models"
	"github.com/Dosada05/rating-engine/rating"
	"github.com/Dosada05/rating-engine/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type DecayConfig struct {
	InactivityThreshold time.Duration // порог неактивности, по умолчанию 30 дней
	Amount              int           // размер списания за прогон
	FloorRating         int           // пол decay; игроки на нём и ниже не трогаются
	PageSize            int
	Concurrency         int
}

func DefaultDecayConfig() DecayConfig {
	return DecayConfig{
		InactivityThreshold: 30 * 24 * time.Hour,
		Amount:              25,
		FloorRating:         1200,
		PageSize:            200,
		Concurrency:         4,
	}
}

// DecayService — периодическое списание рейтинга у давно неактивных игроков
// выше пола. Каждая строка коммитится независимо, поэтому падение посреди
// прогона не теряет консистентность, а повторный запуск безопасен: у строк
// на полу условие rating > floor больше не выполняется.
type DecayService interface {
	ApplyInactivityDecay(ctx context.Context) (int, error)
}

type decayService struct {
	ratingRepo repositories.RatingRepository
	cfg        DecayConfig
	season     string
	logger     *slog.Logger
}

func NewDecayService(ratingRepo repositories.RatingRepository, cfg DecayConfig, season string, logger *slog.Logger) DecayService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &decayService{
		ratingRepo: ratingRepo,
		cfg:        cfg,
		season:     season,
		logger:     logger,
	}
}

func (s *decayService) ApplyInactivityDecay(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.InactivityThreshold)
	var decayed int64
	afterID := 0

	for {
		page, err := s.ratingRepo.ListInactiveAbove(ctx, s.cfg.FloorRating, cutoff, s.season, afterID, s.cfg.PageSize)
		if err != nil {
			return int(atomic.LoadInt64(&decayed)), fmt.Errorf("failed to list inactive ratings: %w", err)
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].ID

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Concurrency)
		for _, row := range page {
			row := row
			g.Go(func() error {
				applied, err := s.decayRow(gCtx, row)
				if err != nil {
					return err
				}
				if applied {
					atomic.AddInt64(&decayed, 1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return int(atomic.LoadInt64(&decayed)), err
		}

		if len(page) < s.cfg.PageSize {
			break
		}
	}

	total := int(atomic.LoadInt64(&decayed))
	s.logger.Info("inactivity decay finished",
		slog.String("season", s.season),
		slog.Int("decayed", total))
	return total, nil
}

func (s *decayService) decayRow(ctx context.Context, row *models.Rating) (bool, error) {
	before := row.Rating
	newRating := row.Rating - s.cfg.Amount
	if newRating < s.cfg.FloorRating {
		newRating = s.cfg.FloorRating
	}

	row.Rating = newRating
	row.Tier, row.TierProgress = rating.ClassifyTier(newRating)

	audit := &models.RatingAudit{
		ID:           uuid.NewString(),
		UserID:       row.UserID,
		Game:         row.Game,
		Mode:         row.Mode,
		Season:       row.Season,
		Kind:         models.AuditKindDecay,
		RatingBefore: before,
		RatingAfter:  newRating,
	}

	if err := s.ratingRepo.CommitDecay(ctx, row, audit); err != nil {
		if errors.Is(err, repositories.ErrRatingVersionConflict) {
			// Игрок успел сыграть матч между сканом и коммитом — он больше
			// не неактивен, просто пропускаем строку.
			s.logger.Warn("decay skipped due to concurrent update",
				slog.Int("user_id", row.UserID),
				slog.String("game", row.Game),
				slog.String("mode", string(row.Mode)))
			return false, nil
		}
		return false, fmt.Errorf("failed to commit decay for user %d (%s/%s): %w", row.UserID, row.Game, row.Mode, err)
	}
	return true, nil
}
