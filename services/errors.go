package services

import "errors"

// Общие ошибки сервисного слоя, используемые в HTTP-маппинге.
var (
	// Невалидный результат матча: победитель равен проигравшему,
	// пустой match_id или некорректный режим. Отклоняется до любого чтения.
	ErrInvalidMatch = errors.New("invalid match result")

	// Конкурентный конфликт записи, не разрешившийся за отведённые ретраи.
	// Операция идемпотентна по match_id, внешний вызывающий может повторить её.
	ErrStorageConflict = errors.New("storage conflict, operation can be retried")

	// Рейтинг не найден (для прямых чтений; профиль вместо этого
	// возвращает значения по умолчанию).
	ErrRatingNotFound = errors.New("rating not found")

	// Экспорт снапшотов лидерборда не сконфигурирован (нет R2).
	ErrSnapshotsDisabled = errors.New("leaderboard snapshot export is not configured")
)
