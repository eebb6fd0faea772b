package scoring

import (
	"sort"

	"github.com/bobmcallan/mapletrade/internal/models"
)

// AnalyzeConcentration ranks holdings by weight and flags over-concentration:
// "high" when the top holding exceeds 30% or the top three exceed 60%,
// otherwise "moderate". The result is identical for any permutation of the
// input (ties break on symbol). Empty input yields nil, not an error.
func AnalyzeConcentration(holdings []models.Holding) *models.ConcentrationAnalysis {
	if len(holdings) == 0 {
		return nil
	}

	ranked := make([]models.Holding, len(holdings))
	copy(ranked, holdings)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Weight != ranked[j].Weight {
			return ranked[i].Weight > ranked[j].Weight
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	top3 := topWeight(ranked, 3)
	top5 := topWeight(ranked, 5)

	risk := "moderate"
	if ranked[0].Weight > 30 || top3 > 60 {
		risk = "high"
	}

	return &models.ConcentrationAnalysis{
		TopHolding: &models.TopHolding{
			Symbol: ranked[0].Symbol,
			Weight: ranked[0].Weight,
		},
		Top3Concentration: top3,
		Top5Concentration: top5,
		ConcentrationRisk: risk,
	}
}

// topWeight sums the weights of the first n ranked holdings, or all of
// them when fewer exist.
func topWeight(ranked []models.Holding, n int) float64 {
	if n > len(ranked) {
		n = len(ranked)
	}
	sum := 0.0
	for _, h := range ranked[:n] {
		sum += h.Weight
	}
	return sum
}

// ConcentrationIndex computes a Herfindahl-style index from position
// weights: the sum of squared value shares scaled to 0-100. A single
// holding scores 100; ten equal holdings score 10.
func ConcentrationIndex(weights []float64) float64 {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return 0
	}

	index := 0.0
	for _, w := range weights {
		if w <= 0 {
			continue
		}
		share := w / total
		index += share * share
	}
	return index * 100
}
