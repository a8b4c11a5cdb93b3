package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Dosada05/rating-engine/models"
	"github.com/Dosada05/rating-engine/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUploader struct {
	lastKey         string
	lastContentType string
	lastBody        []byte
}

func (u *memUploader) Upload(_ context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.lastKey = key
	u.lastContentType = contentType
	u.lastBody = body
	return &storage.UploadResult{Key: key, Location: "https://cdn.example.com/" + key}, nil
}

func (u *memUploader) Delete(_ context.Context, _ string) error { return nil }

func (u *memUploader) GetPublicURL(key string) string { return "https://cdn.example.com/" + key }

func TestExportLeaderboard(t *testing.T) {
	ledger := newMemLedger()
	ratings := newMemRatings(ledger)
	seedLeaderboardRows(ratings)
	leaderboard := NewLeaderboardService(ratings, ledger, testSeason, 0)

	uploader := &memUploader{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewSnapshotService(leaderboard, uploader, testSeason, logger)

	result, err := service.ExportLeaderboard(context.Background(), "chess", models.ModeSolo)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, strings.HasPrefix(uploader.lastKey, "snapshots/"+testSeason+"/chess_solo_"))
	assert.True(t, strings.HasSuffix(uploader.lastKey, ".json"))
	assert.Equal(t, "application/json", uploader.lastContentType)

	var snapshot struct {
		Season  string                `json:"season"`
		Game    string                `json:"game"`
		Mode    models.GameMode       `json:"mode"`
		Entries []models.RankedRating `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(uploader.lastBody, &snapshot))
	assert.Equal(t, testSeason, snapshot.Season)
	assert.Equal(t, "chess", snapshot.Game)
	require.Len(t, snapshot.Entries, 4)
	assert.Equal(t, 1, snapshot.Entries[0].Rank)
	assert.Equal(t, 3, snapshot.Entries[0].UserID)
}

func TestExportLeaderboard_Disabled(t *testing.T) {
	ledger := newMemLedger()
	ratings := newMemRatings(ledger)
	leaderboard := NewLeaderboardService(ratings, ledger, testSeason, 0)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := NewSnapshotService(leaderboard, nil, testSeason, logger)
	_, err := service.ExportLeaderboard(context.Background(), "chess", models.ModeSolo)
	assert.ErrorIs(t, err, ErrSnapshotsDisabled)
}
