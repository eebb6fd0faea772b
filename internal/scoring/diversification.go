package scoring

import (
	"github.com/bobmcallan/mapletrade/internal/models"
)

// DiversificationScore computes a 0-100 score from holding count, sector
// count, and weight dispersion. More positions spread across more sectors
// with no single dominant weight score higher. Monotone non-decreasing in
// each input dimension.
func DiversificationScore(holdings []models.Holding, sectors []models.SectorAllocation) float64 {
	score := 0.0

	switch n := len(holdings); {
	case n >= 20:
		score += 30
	case n >= 10:
		score += 20
	case n >= 5:
		score += 10
	}

	switch n := len(sectors); {
	case n >= 8:
		score += 30
	case n >= 5:
		score += 20
	case n >= 3:
		score += 10
	}

	if len(holdings) > 0 {
		maxWeight := holdings[0].Weight
		for _, h := range holdings[1:] {
			if h.Weight > maxWeight {
				maxWeight = h.Weight
			}
		}
		if maxWeight < 15 {
			score += 20
		} else if maxWeight < 25 {
			score += 10
		}
	}

	if len(sectors) > 0 {
		maxSector := sectors[0].Weight
		for _, s := range sectors[1:] {
			if s.Weight > maxSector {
				maxSector = s.Weight
			}
		}
		if maxSector < 30 {
			score += 20
		} else if maxSector < 40 {
			score += 10
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}
