package models

import "time"

// MatchRecord — неизменяемая запись в журнале обработанных матчей.
// MatchID приходит извне и служит ключом идемпотентности: уникальный
// констрейнт на match_id гарантирует, что матч применяется не более одного раза.
type MatchRecord struct {
	ID                 int       `json:"id" db:"id"`
	MatchID            string    `json:"match_id" db:"match_id"`
	TournamentID       *int      `json:"tournament_id,omitempty" db:"tournament_id"`
	Game               string    `json:"game" db:"game"`
	Mode               GameMode  `json:"mode" db:"mode"`
	Season             string    `json:"season" db:"season"`
	WinnerID           int       `json:"winner_id" db:"winner_id"`
	LoserID            int       `json:"loser_id" db:"loser_id"`
	WinnerRatingBefore int       `json:"winner_rating_before" db:"winner_rating_before"`
	WinnerRatingAfter  int       `json:"winner_rating_after" db:"winner_rating_after"`
	LoserRatingBefore  int       `json:"loser_rating_before" db:"loser_rating_before"`
	LoserRatingAfter   int       `json:"loser_rating_after" db:"loser_rating_after"`
	RatingChange       int       `json:"rating_change" db:"rating_change"`
	MatchImportance    float64   `json:"match_importance" db:"match_importance"`
	PlayedAt           time.Time `json:"played_at" db:"played_at"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// RatingMovement описывает изменение рейтинга одного игрока в рамках матча.
type RatingMovement struct {
	UserID       int  `json:"user_id"`
	Before       int  `json:"before"`
	After        int  `json:"after"`
	Change       int  `json:"change"`
	Tier         Tier `json:"tier"`
	TierProgress int  `json:"tier_progress"`
}

type MatchResult struct {
	MatchID  string         `json:"match_id"`
	Game     string         `json:"game"`
	Mode     GameMode       `json:"mode"`
	Season   string         `json:"season"`
	Winner   RatingMovement `json:"winner"`
	Loser    RatingMovement `json:"loser"`
	Replayed bool           `json:"replayed"`
}
