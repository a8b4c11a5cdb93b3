package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/rating-engine/models"
	"github.com/Dosada05/rating-engine/storage"
)

const snapshotTopN = 100

// SnapshotService выгружает JSON-срез лидерборда в объектное хранилище
// (Cloudflare R2) — для истории сезона и внешних потребителей.
type SnapshotService interface {
	ExportLeaderboard(ctx context.Context, game string, mode models.GameMode) (*storage.UploadResult, error)
}

type leaderboardSnapshot struct {
	Season      string                `json:"season"`
	Game        string                `json:"game"`
	Mode        models.GameMode       `json:"mode"`
	GeneratedAt time.Time             `json:"generated_at"`
	Entries     []models.RankedRating `json:"entries"`
}

type snapshotService struct {
	leaderboard LeaderboardService
	uploader    storage.FileUploader // nil — экспорт выключен
	season      string
	logger      *slog.Logger
}

func NewSnapshotService(leaderboard LeaderboardService, uploader storage.FileUploader, season string, logger *slog.Logger) SnapshotService {
	return &snapshotService{
		leaderboard: leaderboard,
		uploader:    uploader,
		season:      season,
		logger:      logger,
	}
}

func (s *snapshotService) ExportLeaderboard(ctx context.Context, game string, mode models.GameMode) (*storage.UploadResult, error) {
	if s.uploader == nil {
		return nil, ErrSnapshotsDisabled
	}

	entries, err := s.leaderboard.GetLeaderboard(ctx, LeaderboardQuery{
		Game:  &game,
		Mode:  &mode,
		Limit: snapshotTopN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build leaderboard snapshot for %s/%s: %w", game, mode, err)
	}

	snapshot := leaderboardSnapshot{
		Season:      s.season,
		Game:        game,
		Mode:        mode,
		GeneratedAt: time.Now().UTC(),
		Entries:     entries,
	}
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal leaderboard snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshots/%s/%s_%s_%s.json", s.season, game, mode, snapshot.GeneratedAt.Format("2006-01-02"))
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to upload leaderboard snapshot %s: %w", key, err)
	}

	s.logger.Info("leaderboard snapshot exported",
		slog.String("key", result.Key),
		slog.String("location", result.Location),
		slog.Int("entries", len(entries)))
	return result, nil
}
