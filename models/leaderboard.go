package models

// RankedRating — строка лидерборда: рейтинг плюс вычисленное место.
// Rank считается от позиции в отсортированной выборке, в БД не хранится.
type RankedRating struct {
	Rank          int      `json:"rank"`
	UserID        int      `json:"user_id"`
	Game          string   `json:"game"`
	Mode          GameMode `json:"mode"`
	Season        string   `json:"season"`
	Rating        int      `json:"rating"`
	PeakRating    int      `json:"peak_rating"`
	Tier          Tier     `json:"tier"`
	TierProgress  int      `json:"tier_progress"`
	MatchesPlayed int      `json:"matches_played"`
	WinRate       float64  `json:"win_rate"`
}

type GameBreakdown struct {
	Game          string   `json:"game"`
	Mode          GameMode `json:"mode"`
	Rating        int      `json:"rating"`
	PeakRating    int      `json:"peak_rating"`
	Tier          Tier     `json:"tier"`
	TierProgress  int      `json:"tier_progress"`
	MatchesPlayed int      `json:"matches_played"`
	Wins          int      `json:"wins"`
	Losses        int      `json:"losses"`
	WinRate       float64  `json:"win_rate"`
}

// RatingProfile — сводный профиль игрока за текущий сезон.
// OverallRating — максимум по всем строкам (game, mode); если строк нет,
// используется стартовый рейтинг по умолчанию.
type RatingProfile struct {
	UserID        int             `json:"user_id"`
	Season        string          `json:"season"`
	OverallRating int             `json:"overall_rating"`
	PeakRating    int             `json:"peak_rating"`
	Tier          Tier            `json:"tier"`
	TierProgress  int             `json:"tier_progress"`
	TotalMatches  int             `json:"total_matches"`
	TotalWins     int             `json:"total_wins"`
	TotalLosses   int             `json:"total_losses"`
	WinRate       float64         `json:"win_rate"`
	PerGame       []GameBreakdown `json:"per_game_breakdown"`
	RecentMatches []*MatchRecord  `json:"recent_matches"`
}
