// Package scoring implements the decision policy that turns per-source
// analysis signals into a single recommendation plus portfolio-level
// risk, diversification, concentration, and stress metrics. Everything
// here is pure arithmetic with no I/O.
package scoring

import (
	"github.com/bobmcallan/mapletrade/internal/models"
)

// The three-factor model is the primary signal source and carries twice
// the weight of any other source. Fixed policy, not configurable.
const primarySource = models.SourceThreeFactor

const (
	buyThreshold  = 0.3
	sellThreshold = -0.3
)

// NormalizeConfidence maps a categorical confidence label to a numeric
// weight. Unrecognized labels map to 0.5.
func NormalizeConfidence(tier models.ConfidenceTier) float64 {
	switch tier {
	case models.ConfidenceHigh:
		return 0.9
	case models.ConfidenceMedium:
		return 0.6
	case models.ConfidenceLow:
		return 0.3
	default:
		return 0.5
	}
}

// Combine merges signals into one recommendation. Direction comes from
// the confidence-weighted average of per-source votes (BUY=+1, HOLD=0,
// SELL=-1): above 0.3 is a BUY, below -0.3 a SELL, anything else
// (boundaries included) a HOLD. The confidence tier reflects the mean
// signal weight, not the combined score. No signals at all yields a
// defined HOLD/LOW fallback rather than an error.
func Combine(signals []models.AnalysisSignal) models.CombinedRecommendation {
	if len(signals) == 0 {
		return models.CombinedRecommendation{
			Direction:      models.DirectionHold,
			ConfidenceTier: models.ConfidenceLow,
			Method:         "default",
		}
	}

	var weightedSum, totalWeight float64
	for _, sig := range signals {
		weight := clamp(sig.Confidence, 0, 1)
		if sig.Source == primarySource {
			weight *= 2
		}
		weightedSum += directionScore(sig.Direction) * weight
		totalWeight += weight
	}

	var score float64
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}

	direction := models.DirectionHold
	switch {
	case score > buyThreshold:
		direction = models.DirectionBuy
	case score < sellThreshold:
		direction = models.DirectionSell
	}

	return models.CombinedRecommendation{
		Direction:      direction,
		ConfidenceTier: tierFromWeight(totalWeight / float64(len(signals))),
		WeightedScore:  score,
		SourceCount:    len(signals),
		Method:         "combined",
	}
}

func directionScore(d models.Direction) float64 {
	switch d {
	case models.DirectionBuy:
		return 1
	case models.DirectionSell:
		return -1
	default:
		return 0
	}
}

// tierFromWeight buckets the mean signal weight. Boundary values fall to
// the lower tier.
func tierFromWeight(mean float64) models.ConfidenceTier {
	switch {
	case mean > 0.7:
		return models.ConfidenceHigh
	case mean > 0.4:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
