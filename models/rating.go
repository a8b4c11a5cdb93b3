package models

import "time"

type GameMode string

const (
	ModeSolo       GameMode = "solo"
	ModeTeam       GameMode = "team"
	ModeTournament GameMode = "tournament"
)

func (m GameMode) Valid() bool {
	switch m {
	case ModeSolo, ModeTeam, ModeTournament:
		return true
	}
	return false
}

type Tier string

const (
	TierBronze      Tier = "Bronze"
	TierSilver      Tier = "Silver"
	TierGold        Tier = "Gold"
	TierPlatinum    Tier = "Platinum"
	TierDiamond     Tier = "Diamond"
	TierMaster      Tier = "Master"
	TierGrandmaster Tier = "Grandmaster"
	TierChallenger  Tier = "Challenger"
)

// Rating — одна строка рейтинга на комбинацию (user, game, mode, season).
// Поле Version используется для оптимистичной блокировки: каждое успешное
// обновление инкрементирует его, запись с устаревшей версией не проходит.
type Rating struct {
	ID            int        `json:"id" db:"id"`
	UserID        int        `json:"user_id" db:"user_id"`
	Game          string     `json:"game" db:"game"`
	Mode          GameMode   `json:"mode" db:"mode"`
	Season        string     `json:"season" db:"season"`
	Rating        int        `json:"rating" db:"rating"`
	PeakRating    int        `json:"peak_rating" db:"peak_rating"`
	MatchesPlayed int        `json:"matches_played" db:"matches_played"`
	Wins          int        `json:"wins" db:"wins"`
	Losses        int        `json:"losses" db:"losses"`
	WinRate       float64    `json:"win_rate" db:"win_rate"`
	Tier          Tier       `json:"tier" db:"tier"`
	TierProgress  int        `json:"tier_progress" db:"tier_progress"`
	LastMatchDate *time.Time `json:"last_match_date,omitempty" db:"last_match_date"`
	Version       int        `json:"-" db:"version"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
