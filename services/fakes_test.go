package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/rating-engine/models"
	"github.com/Dosada05/rating-engine/rating"
	"github.com/Dosada05/rating-engine/repositories"
)

// In-memory реализации репозиториев для тестов сервисного слоя.
// Повторяют контракт Postgres-версий: версии строк, уникальность match_id,
// сортировку лидерборда.

func ratingKey(userID int, game string, mode models.GameMode, season string) string {
	return fmt.Sprintf("%d|%s|%s|%s", userID, game, mode, season)
}

func cloneRating(r *models.Rating) *models.Rating {
	c := *r
	if r.LastMatchDate != nil {
		t := *r.LastMatchDate
		c.LastMatchDate = &t
	}
	return &c
}

type memLedger struct {
	mu        sync.Mutex
	byMatchID map[string]*models.MatchRecord
	nextID    int

	// missReads заставляет GetByMatchID вернуть "не найдено" для первых N
	// вызовов — имитация гонки, когда запись появляется между проверкой
	// журнала и коммитом.
	missReads int
}

func newMemLedger() *memLedger {
	return &memLedger{byMatchID: make(map[string]*models.MatchRecord), nextID: 1}
}

func (l *memLedger) GetByMatchID(_ context.Context, matchID string) (*models.MatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.missReads > 0 {
		l.missReads--
		return nil, repositories.ErrMatchRecordNotFound
	}
	record, ok := l.byMatchID[matchID]
	if !ok {
		return nil, repositories.ErrMatchRecordNotFound
	}
	c := *record
	return &c, nil
}

func (l *memLedger) ListRecentByUser(_ context.Context, userID int, season string, limit int) ([]*models.MatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	records := make([]*models.MatchRecord, 0)
	for _, record := range l.byMatchID {
		if record.Season != season {
			continue
		}
		if record.WinnerID != userID && record.LoserID != userID {
			continue
		}
		c := *record
		records = append(records, &c)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].PlayedAt.Equal(records[j].PlayedAt) {
			return records[i].PlayedAt.After(records[j].PlayedAt)
		}
		return records[i].ID > records[j].ID
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (l *memLedger) insert(record *models.MatchRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byMatchID[record.MatchID]; ok {
		return repositories.ErrMatchRecordDuplicate
	}
	record.ID = l.nextID
	l.nextID++
	record.CreatedAt = time.Now()
	c := *record
	l.byMatchID[record.MatchID] = &c
	return nil
}

type memRatings struct {
	mu     sync.Mutex
	rows   map[string]*models.Rating
	nextID int
	ledger *memLedger

	// matchCommitConflicts — столько ближайших CommitMatchUpdate вернут
	// конфликт версий.
	matchCommitConflicts int
	// decayConflicts — user_id, для которых ближайший CommitDecay вернёт
	// конфликт версий.
	decayConflicts map[int]bool

	audits    []*models.RatingAudit
	listCalls int
}

func newMemRatings(ledger *memLedger) *memRatings {
	return &memRatings{
		rows:           make(map[string]*models.Rating),
		nextID:         1,
		ledger:         ledger,
		decayConflicts: make(map[int]bool),
	}
}

func (m *memRatings) seed(r *models.Rating) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.nextID
		m.nextID++
	} else if r.ID >= m.nextID {
		m.nextID = r.ID + 1
	}
	if r.Version == 0 {
		r.Version = 1
	}
	m.rows[ratingKey(r.UserID, r.Game, r.Mode, r.Season)] = cloneRating(r)
}

func (m *memRatings) GetOrCreate(_ context.Context, userID int, game string, mode models.GameMode, season string) (*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ratingKey(userID, game, mode, season)
	if row, ok := m.rows[key]; ok {
		return cloneRating(row), nil
	}

	tier, progress := rating.ClassifyTier(rating.DefaultRating)
	row := &models.Rating{
		ID:           m.nextID,
		UserID:       userID,
		Game:         game,
		Mode:         mode,
		Season:       season,
		Rating:       rating.DefaultRating,
		PeakRating:   rating.DefaultRating,
		Tier:         tier,
		TierProgress: progress,
		Version:      1,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.nextID++
	m.rows[key] = row
	return cloneRating(row), nil
}

func (m *memRatings) Get(_ context.Context, userID int, game string, mode models.GameMode, season string) (*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[ratingKey(userID, game, mode, season)]
	if !ok {
		return nil, repositories.ErrRatingNotFound
	}
	return cloneRating(row), nil
}

func (m *memRatings) CommitMatchUpdate(_ context.Context, winner, loser *models.Rating, record *models.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.matchCommitConflicts > 0 {
		m.matchCommitConflicts--
		return repositories.ErrRatingVersionConflict
	}

	for _, rt := range []*models.Rating{winner, loser} {
		stored, ok := m.rows[ratingKey(rt.UserID, rt.Game, rt.Mode, rt.Season)]
		if !ok {
			return repositories.ErrRatingNotFound
		}
		if stored.Version != rt.Version {
			return repositories.ErrRatingVersionConflict
		}
	}

	if err := m.ledger.insert(record); err != nil {
		return err
	}

	for _, rt := range []*models.Rating{winner, loser} {
		c := cloneRating(rt)
		c.Version++
		c.UpdatedAt = time.Now()
		m.rows[ratingKey(rt.UserID, rt.Game, rt.Mode, rt.Season)] = c
	}
	return nil
}

func (m *memRatings) CommitDecay(_ context.Context, decayed *models.Rating, audit *models.RatingAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.decayConflicts[decayed.UserID] {
		delete(m.decayConflicts, decayed.UserID)
		return repositories.ErrRatingVersionConflict
	}

	stored, ok := m.rows[ratingKey(decayed.UserID, decayed.Game, decayed.Mode, decayed.Season)]
	if !ok {
		return repositories.ErrRatingNotFound
	}
	if stored.Version != decayed.Version {
		return repositories.ErrRatingVersionConflict
	}

	c := cloneRating(decayed)
	c.Version++
	c.UpdatedAt = time.Now()
	m.rows[ratingKey(decayed.UserID, decayed.Game, decayed.Mode, decayed.Season)] = c

	a := *audit
	a.CreatedAt = time.Now()
	m.audits = append(m.audits, &a)
	return nil
}

func (m *memRatings) ListByRatingDescending(_ context.Context, filter repositories.LeaderboardFilter, limit, offset int) ([]*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	rows := make([]*models.Rating, 0)
	for _, row := range m.rows {
		if row.Season != filter.Season {
			continue
		}
		if filter.Game != nil && row.Game != *filter.Game {
			continue
		}
		if filter.Mode != nil && row.Mode != *filter.Mode {
			continue
		}
		rows = append(rows, cloneRating(row))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Rating != rows[j].Rating {
			return rows[i].Rating > rows[j].Rating
		}
		return rows[i].UserID < rows[j].UserID
	})
	if offset >= len(rows) {
		return []*models.Rating{}, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memRatings) ListInactiveAbove(_ context.Context, floorRating int, inactiveSince time.Time, season string, afterID, limit int) ([]*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]*models.Rating, 0)
	for _, row := range m.rows {
		if row.Season != season || row.ID <= afterID {
			continue
		}
		if row.Rating <= floorRating {
			continue
		}
		if row.LastMatchDate == nil || !row.LastMatchDate.Before(inactiveSince) {
			continue
		}
		rows = append(rows, cloneRating(row))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memRatings) ListByUser(_ context.Context, userID int, season string) ([]*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]*models.Rating, 0)
	for _, row := range m.rows {
		if row.UserID != userID || row.Season != season {
			continue
		}
		rows = append(rows, cloneRating(row))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Rating > rows[j].Rating })
	return rows, nil
}
