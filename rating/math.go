package rating

import "math"

const (
	// DefaultRating — стартовый рейтинг новой строки (user, game, mode, season).
	DefaultRating = 1200
	// RatingFloor — абсолютный пол рейтинга, ниже него опуститься нельзя.
	RatingFloor = 800

	kMin = 16
	kMax = 50
)

// ExpectedScore возвращает ожидаемый результат игрока A против игрока B
// по логистической модели ELO: 1 / (1 + 10^((b-a)/400)).
// Свойство: ExpectedScore(a,b) + ExpectedScore(b,a) == 1 для любых a, b.
func ExpectedScore(ratingA, ratingB int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
}

// KFactor — максимальный размах изменения рейтинга за матч.
// Новички раскачиваются быстрее, топовые игроки — медленнее,
// турнирные матчи весят больше. Итог зажат в [16, 50], причём
// клэмп применяется после турнирного множителя.
func KFactor(rating, matchesPlayed int, isTournament bool) int {
	k := 32.0
	if matchesPlayed < 10 {
		k = 48.0
	} else if matchesPlayed < 30 {
		k = 40.0
	}

	if rating > 2000 {
		k *= 0.75
	} else if rating > 1800 {
		k *= 0.85
	}

	if isTournament {
		k *= 1.5
	}

	result := int(math.Round(k))
	if result < kMin {
		return kMin
	}
	if result > kMax {
		return kMax
	}
	return result
}

// RatingDelta считает изменения рейтинга победителя и проигравшего.
// У каждого игрока свой K, поэтому обмен не строго нулевой по сумме —
// это сохранённое поведение исходного движка, а не ошибка.
// loserChange использует ожидаемый результат победителя: алгебраически
// -K*imp*(1-loserExpected) == -K*imp*winnerExpected.
func RatingDelta(winnerRating, loserRating, winnerK, loserK int, importance float64) (winnerChange, loserChange int) {
	winnerExpected := ExpectedScore(winnerRating, loserRating)
	winnerChange = int(math.Round(float64(winnerK) * importance * (1.0 - winnerExpected)))
	loserChange = -int(math.Round(float64(loserK) * importance * winnerExpected))
	return winnerChange, loserChange
}

// Apply применяет изменение к рейтингу с учётом пола.
func Apply(rating, change int) int {
	result := rating + change
	if result < RatingFloor {
		return RatingFloor
	}
	return result
}
