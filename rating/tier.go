package rating

import (
	"math"

	"github.com/Dosada05/rating-engine/models"
)

type tierBand struct {
	tier       models.Tier
	lowerBound int
	width      int
}

// Границы тиров, по возрастанию. У Challenger верхней границы нет,
// ширина 300 используется только для нормализации прогресса.
var tierBands = []tierBand{
	{models.TierBronze, 0, 1000},
	{models.TierSilver, 1000, 200},
	{models.TierGold, 1200, 200},
	{models.TierPlatinum, 1400, 200},
	{models.TierDiamond, 1600, 200},
	{models.TierMaster, 1800, 200},
	{models.TierGrandmaster, 2000, 200},
	{models.TierChallenger, 2200, 300},
}

// ClassifyTier — чистая функция рейтинг -> (тир, прогресс внутри тира 0..100).
// Тир нигде не хранится отдельно от пересчёта: любая запись рейтинга
// обязана пересчитать тир этой функцией, чтобы они не разъехались.
func ClassifyTier(value int) (models.Tier, int) {
	band := tierBands[0]
	for _, b := range tierBands {
		if value >= b.lowerBound {
			band = b
		} else {
			break
		}
	}

	progress := int(math.Round(float64(value-band.lowerBound) / float64(band.width) * 100.0))
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return band.tier, progress
}
