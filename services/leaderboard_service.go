package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Dosada05/rating-engine/models"
	"github.com/Dosada05/rating-engine/rating"
	"github.com/Dosada05/rating-engine/repositories"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 200
	recentMatchesLimit      = 10
)

type LeaderboardQuery struct {
	Game   *string
	Mode   *models.GameMode
	Limit  int
	Offset int
}

// LeaderboardService — read-only представления поверх рейтингов.
// Лидерборд отдаётся из короткоживущего кэша: устаревание на секунды
// допустимо, корректность обеспечивает слой записи.
type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, query LeaderboardQuery) ([]models.RankedRating, error)
	GetUserRatingProfile(ctx context.Context, userID int) (*models.RatingProfile, error)
}

type leaderboardCacheEntry struct {
	rankings  []models.RankedRating
	expiresAt time.Time
}

type leaderboardService struct {
	ratingRepo repositories.RatingRepository
	ledgerRepo repositories.MatchLedgerRepository
	season     string
	cacheTTL   time.Duration

	mu    sync.RWMutex
	cache map[string]leaderboardCacheEntry
}

func NewLeaderboardService(
	ratingRepo repositories.RatingRepository,
	ledgerRepo repositories.MatchLedgerRepository,
	season string,
	cacheTTL time.Duration,
) LeaderboardService {
	return &leaderboardService{
		ratingRepo: ratingRepo,
		ledgerRepo: ledgerRepo,
		season:     season,
		cacheTTL:   cacheTTL,
		cache:      make(map[string]leaderboardCacheEntry),
	}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, query LeaderboardQuery) ([]models.RankedRating, error) {
	if query.Limit <= 0 {
		query.Limit = defaultLeaderboardLimit
	}
	if query.Limit > maxLeaderboardLimit {
		query.Limit = maxLeaderboardLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	key := s.cacheKey(query)
	if cached, ok := s.readCache(key); ok {
		return cached, nil
	}

	rows, err := s.ratingRepo.ListByRatingDescending(ctx, repositories.LeaderboardFilter{
		Game:   query.Game,
		Mode:   query.Mode,
		Season: s.season,
	}, query.Limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	rankings := make([]models.RankedRating, len(rows))
	for i, row := range rows {
		rankings[i] = models.RankedRating{
			Rank:          query.Offset + i + 1,
			UserID:        row.UserID,
			Game:          row.Game,
			Mode:          row.Mode,
			Season:        row.Season,
			Rating:        row.Rating,
			PeakRating:    row.PeakRating,
			Tier:          row.Tier,
			TierProgress:  row.TierProgress,
			MatchesPlayed: row.MatchesPlayed,
			WinRate:       row.WinRate,
		}
	}

	s.writeCache(key, rankings)
	return rankings, nil
}

func (s *leaderboardService) GetUserRatingProfile(ctx context.Context, userID int) (*models.RatingProfile, error) {
	rows, err := s.ratingRepo.ListByUser(ctx, userID, s.season)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings for user %d: %w", userID, err)
	}

	profile := &models.RatingProfile{
		UserID:        userID,
		Season:        s.season,
		OverallRating: rating.DefaultRating,
		PeakRating:    rating.DefaultRating,
		PerGame:       make([]models.GameBreakdown, 0, len(rows)),
		RecentMatches: make([]*models.MatchRecord, 0),
	}

	if len(rows) == 0 {
		// "Рейтинга ещё нет" — не ошибка, профиль со стартовыми значениями.
		profile.Tier, profile.TierProgress = rating.ClassifyTier(rating.DefaultRating)
		return profile, nil
	}

	// Строки отсортированы по рейтингу по убыванию, первая — лучшая.
	profile.OverallRating = rows[0].Rating
	profile.PeakRating = rows[0].PeakRating
	profile.Tier, profile.TierProgress = rating.ClassifyTier(profile.OverallRating)

	for _, row := range rows {
		if row.PeakRating > profile.PeakRating {
			profile.PeakRating = row.PeakRating
		}
		profile.TotalMatches += row.MatchesPlayed
		profile.TotalWins += row.Wins
		profile.TotalLosses += row.Losses
		profile.PerGame = append(profile.PerGame, models.GameBreakdown{
			Game:          row.Game,
			Mode:          row.Mode,
			Rating:        row.Rating,
			PeakRating:    row.PeakRating,
			Tier:          row.Tier,
			TierProgress:  row.TierProgress,
			MatchesPlayed: row.MatchesPlayed,
			Wins:          row.Wins,
			Losses:        row.Losses,
			WinRate:       row.WinRate,
		})
	}
	if profile.TotalMatches > 0 {
		profile.WinRate = float64(profile.TotalWins) / float64(profile.TotalMatches)
	}

	recent, err := s.ledgerRepo.ListRecentByUser(ctx, userID, s.season, recentMatchesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent matches for user %d: %w", userID, err)
	}
	profile.RecentMatches = recent

	return profile, nil
}

func (s *leaderboardService) cacheKey(query LeaderboardQuery) string {
	game, mode := "*", "*"
	if query.Game != nil {
		game = *query.Game
	}
	if query.Mode != nil {
		mode = string(*query.Mode)
	}
	return fmt.Sprintf("%s|%s|%s|%d|%d", s.season, game, mode, query.Limit, query.Offset)
}

func (s *leaderboardService) readCache(key string) ([]models.RankedRating, bool) {
	if s.cacheTTL <= 0 {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.rankings, true
}

func (s *leaderboardService) writeCache(key string, rankings []models.RankedRating) {
	if s.cacheTTL <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = leaderboardCacheEntry{
		rankings:  rankings,
		expiresAt: time.Now().Add(s.cacheTTL),
	}
}
