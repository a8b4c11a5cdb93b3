package models

import "time"

const AuditKindDecay = "decay"

// RatingAudit — запись аудита для изменений рейтинга вне матчей (decay).
// У матчей есть MatchRecord, у decay нет оппонента, поэтому отдельная таблица.
type RatingAudit struct {
	ID           string    `json:"id" db:"id"`
	UserID       int       `json:"user_id" db:"user_id"`
	Game         string    `json:"game" db:"game"`
	Mode         GameMode  `json:"mode" db:"mode"`
	Season       string    `json:"season" db:"season"`
	Kind         string    `json:"kind" db:"kind"`
	RatingBefore int       `json:"rating_before" db:"rating_before"`
	RatingAfter  int       `json:"rating_after" db:"rating_after"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
