package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Dosada05/rating-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func newTestDecayService(t *testing.T) (DecayService, *memRatings) {
	t.Helper()
	ratings := newMemRatings(newMemLedger())
	cfg := DecayConfig{
		InactivityThreshold: 30 * 24 * time.Hour,
		Amount:              25,
		FloorRating:         1200,
		PageSize:            2, // маленькая страница, чтобы прогнать пагинацию
		Concurrency:         2,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDecayService(ratings, cfg, testSeason, logger), ratings
}

func TestApplyInactivityDecay(t *testing.T) {
	service, ratings := newTestDecayService(t)

	inactive := timePtr(time.Now().Add(-40 * 24 * time.Hour))
	active := timePtr(time.Now().Add(-24 * time.Hour))

	ratings.seed(&models.Rating{UserID: 1, Game: "chess", Mode: models.ModeSolo, Season: testSeason,
		Rating: 1500, PeakRating: 1500, LastMatchDate: inactive})
	ratings.seed(&models.Rating{UserID: 2, Game: "chess", Mode: models.ModeSolo, Season: testSeason,
		Rating: 1210, PeakRating: 1400, LastMatchDate: inactive})
	// Уже на полу — списывать нечего.
	ratings.seed(&models.Rating{UserID: 3, Game: "chess", Mode: models.ModeSolo, Season: testSeason,
		Rating: 1200, PeakRating: 1300, LastMatchDate: inactive})
	// Активный игрок не трогается.
	ratings.seed(&models.Rating{UserID: 4, Game: "chess", Mode: models.ModeSolo, Season: testSeason,
		Rating: 1600, PeakRating: 1600, LastMatchDate: active})
	// Ни одного матча — decay не применяется.
	ratings.seed(&models.Rating{UserID: 5, Game: "chess", Mode: models.ModeSolo, Season: testSeason,
		Rating: 1700, PeakRating: 1700})

	decayed, err := service.ApplyInactivityDecay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, decayed)

	row1, err := ratings.Get(context.Background(), 1, "chess", models.ModeSolo, testSeason)
	require.NoError(t, err)
	assert.Equal(t, 1475, row1.Rating)
	assert.Equal(t, models.TierPlatinum, row1.Tier)
	assert.Equal(t, 38, row1.TierProgress)
	// Пик не трогается decay-ем.
	assert.Equal(t, 1500, row1.PeakRating)

	// Списание не пробивает пол.
	row2, err := ratings.Get(context.Background(), 2, "chess", models.ModeSolo, testSeason)
	require.NoError(t, err)
	assert.Equal(t, 1200, row2.Rating)

	row3, err := ratings.Get(context.Background(), 3, "chess", models.ModeSolo, testSeason)
	require.NoError(t, err)
	assert.Equal(t, 1200, row3.Rating)

	row4, err := ratings.Get(context.Background(), 4, "chess", models.ModeSolo, testSeason)
	require.NoError(t, err)
	assert.Equal(t, 1600, row4.Rating)

	row5, err := ratings.Get(context.Background(), 5, "chess", models.ModeSolo, testSeason)
	require.NoError(t, err)
	assert.Equal(t, 1700, row5.Rating)

	require.Len(t, ratings.audits, 2)
	for _, audit := range ratings.audits {
		assert.Equal(t, models.AuditKindDecay, audit.Kind)
		assert.NotEmpty(t, audit.ID)
		assert.Greater(t, audit.RatingBefore, audit.RatingAfter)
	}
}

func TestApplyInactivityDecay_SecondRun(t *testing.T) {
	service, ratings := newTestDecayService(t)

	inactive := timePtr(time.Now().Add(-40 * 24 * time.Hour))
	ratings.seed(&models.Rating{UserID: 1, Game: "chess", Mode: models.ModeSolo, Season: testSeason,
		Rating: 1500, PeakRating: 1500, LastMatchDate: inactive})
	ratings.seed(&models.Rating{UserID: 2, Game: "chess", Mode: models.ModeSolo, Season: testSeason,
		Rating: 1210, PeakRating: 1400, LastMatchDate: inactive})

	_, err := service.ApplyInactivityDecay(context.Background())
	require.NoError(t, err)

	// Повторный прогон: игрок на полу больше не попадает в выборку.
	decayed, err := service.ApplyInactivityDecay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, decayed)

	row1, err := ratings.Get(context.Background(), 1, "chess", models.ModeSolo, testSeason)
	require.NoError(t, err)
	assert.Equal(t, 1450, row1.Rating)
}

func TestApplyInactivityDecay_SkipsConcurrentlyUpdated(t *testing.T) {
	service, ratings := newTestDecayService(t)

	inactive := timePtr(time.Now().Add(-40 * 24 * time.Hour))
	ratings.seed(&models.Rating{UserID: 1, Game: "chess", Mode: models.ModeSolo, Season: testSeason,
		Rating: 1500, PeakRating: 1500, LastMatchDate: inactive})
	ratings.decayConflicts[1] = true

	// Конфликт версий означает, что игрок успел сыграть матч —
	// строка пропускается без ошибки.
	decayed, err := service.ApplyInactivityDecay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, decayed)
	assert.Empty(t, ratings.audits)

	row, err := ratings.Get(context.Background(), 1, "chess", models.ModeSolo, testSeason)
	require.NoError(t, err)
	assert.Equal(t, 1500, row.Rating)
}

func TestApplyInactivityDecay_Pagination(t *testing.T) {
	service, ratings := newTestDecayService(t)

	inactive := timePtr(time.Now().Add(-40 * 24 * time.Hour))
	for userID := 1; userID <= 5; userID++ {
		ratings.seed(&models.Rating{UserID: userID, Game: "chess", Mode: models.ModeSolo, Season: testSeason,
			Rating: 1500, PeakRating: 1500, LastMatchDate: inactive})
	}

	decayed, err := service.ApplyInactivityDecay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, decayed)
}
