package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/mapletrade/internal/models"
)

// Ratio thresholds against rough industry averages. Each triple reads
// low/mid/high; what the bands mean depends on the ratio.
const (
	peUndervalued = 15.0
	peFair        = 25.0
	peOvervalued  = 35.0

	deLow      = 0.5
	deModerate = 1.0
	deHigh     = 2.0

	crPoor       = 1.0
	crAcceptable = 1.5
	crStrong     = 2.0

	roePoor      = 0.05
	roeAverage   = 0.15
	roeExcellent = 0.25
)

// AnalyzeFundamentals scores a symbol's fundamentals: financial health from
// ROE, current ratio, and leverage; valuation from analyst target upside;
// plus a composite 0-100 score and a categorical recommendation.
func (s *Service) AnalyzeFundamentals(ctx context.Context, symbol string) (*models.FundamentalAnalysis, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	data, err := s.market.GetMarketData(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get market data for %s: %w", symbol, err)
	}
	if data.Fundamentals == nil {
		return nil, fmt.Errorf("no fundamental data available for %s", symbol)
	}
	f := data.Fundamentals

	result := &models.FundamentalAnalysis{
		Symbol:     symbol,
		AnalyzedAt: time.Now().UTC(),
	}

	// Analyst upside when both prices are known
	currentPrice := data.LatestClose()
	if f.TargetPrice > 0 && currentPrice > 0 {
		upside := (f.TargetPrice - currentPrice) / currentPrice
		result.ValuationUpside = &upside
	}

	result.HealthScore, result.HealthRating = assessHealth(f)
	result.Signals = fundamentalSignals(f, result.ValuationUpside, result.HealthScore, result.HealthRating)
	result.CompositeScore = compositeScore(f, result.ValuationUpside, result.HealthScore)
	result.Recommendation, result.ConfidenceTier = fundamentalRecommendation(result.CompositeScore, result.Signals)

	return result, nil
}

// assessHealth scores profitability, liquidity, and leverage, each worth
// one point when the underlying ratio is known. Zero ratios are treated
// as unavailable since the feed reports missing values as zero.
func assessHealth(f *models.Fundamentals) (float64, string) {
	var earned, max float64

	if f.ROE != 0 {
		max++
		switch {
		case f.ROE > roeExcellent:
			earned += 1.0
		case f.ROE > roeAverage:
			earned += 0.7
		case f.ROE > roePoor:
			earned += 0.4
		}
	}

	if f.CurrentRatio != 0 {
		max++
		switch {
		case f.CurrentRatio > crStrong:
			earned += 1.0
		case f.CurrentRatio > crAcceptable:
			earned += 0.7
		}
	}

	if f.DebtToEquity != 0 {
		max++
		switch {
		case f.DebtToEquity < deLow:
			earned += 1.0
		case f.DebtToEquity < deModerate:
			earned += 0.7
		}
	}

	var overall float64
	if max > 0 {
		overall = earned / max
	}
	return overall, healthRating(overall)
}

func healthRating(score float64) string {
	switch {
	case score >= 0.8:
		return "Excellent"
	case score >= 0.6:
		return "Good"
	case score >= 0.4:
		return "Fair"
	case score >= 0.2:
		return "Poor"
	default:
		return "Very Poor"
	}
}

// fundamentalSignals derives the ratio-driven buy/sell observations
func fundamentalSignals(f *models.Fundamentals, upside *float64, healthScore float64, healthRating string) []models.FundamentalSignal {
	var sigs []models.FundamentalSignal

	if upside != nil {
		switch {
		case *upside > 0.20:
			strength := "Moderate"
			if *upside > 0.30 {
				strength = "Strong"
			}
			sigs = append(sigs, models.FundamentalSignal{
				Indicator: "valuation",
				Direction: models.DirectionBuy,
				Strength:  strength,
				Reason:    fmt.Sprintf("%.1f%% upside potential", *upside*100),
			})
		case *upside < -0.15:
			strength := "Moderate"
			if *upside < -0.25 {
				strength = "Strong"
			}
			sigs = append(sigs, models.FundamentalSignal{
				Indicator: "valuation",
				Direction: models.DirectionSell,
				Strength:  strength,
				Reason:    fmt.Sprintf("%.1f%% downside risk", -*upside*100),
			})
		default:
			sigs = append(sigs, models.FundamentalSignal{
				Indicator: "valuation",
				Direction: models.DirectionHold,
				Strength:  "Neutral",
				Reason:    "Fair valuation",
			})
		}
	}

	if f.PE > 0 {
		if f.PE < peUndervalued {
			sigs = append(sigs, models.FundamentalSignal{
				Indicator: "pe_ratio",
				Direction: models.DirectionBuy,
				Strength:  "Strong",
				Reason:    fmt.Sprintf("P/E of %.1f indicates undervaluation", f.PE),
			})
		} else if f.PE > peOvervalued {
			sigs = append(sigs, models.FundamentalSignal{
				Indicator: "pe_ratio",
				Direction: models.DirectionSell,
				Strength:  "Moderate",
				Reason:    fmt.Sprintf("P/E of %.1f indicates overvaluation", f.PE),
			})
		}
	}

	if healthScore > 0.8 {
		sigs = append(sigs, models.FundamentalSignal{
			Indicator: "financial_health",
			Direction: models.DirectionBuy,
			Strength:  "Moderate",
			Reason:    fmt.Sprintf("Excellent financial health (%s)", healthRating),
		})
	} else if healthScore < 0.3 {
		sigs = append(sigs, models.FundamentalSignal{
			Indicator: "financial_health",
			Direction: models.DirectionSell,
			Strength:  "Strong",
			Reason:    fmt.Sprintf("Poor financial health (%s)", healthRating),
		})
	}

	return sigs
}

// compositeScore blends valuation, health, P/E, and growth into 0-100,
// normalized over the components actually available. Nothing available
// scores a neutral 50.
func compositeScore(f *models.Fundamentals, upside *float64, healthScore float64) float64 {
	var score, weights float64

	if upside != nil {
		score += clamp01to100((*upside+0.5)*100) * 0.3
		weights += 0.3
	}

	// Health is always computable; a company with no known ratios just
	// scores zero here.
	score += healthScore * 100 * 0.4
	weights += 0.4

	if f.PE > 0 {
		score += clamp01to100((50-f.PE)*2) * 0.2
		weights += 0.2
	}

	if f.RevenueGrowth != 0 {
		score += clamp01to100(f.RevenueGrowth*200) * 0.1
		weights += 0.1
	}

	if weights == 0 {
		return 50
	}
	return score / weights
}

// fundamentalRecommendation turns the composite score and signal tallies
// into a direction with a categorical confidence tier
func fundamentalRecommendation(score float64, sigs []models.FundamentalSignal) (models.Direction, models.ConfidenceTier) {
	var buys, sells, strong int
	for _, sig := range sigs {
		switch sig.Direction {
		case models.DirectionBuy:
			buys++
		case models.DirectionSell:
			sells++
		}
		if sig.Strength == "Strong" {
			strong++
		}
	}

	strongTier := func() models.ConfidenceTier {
		if strong >= 2 {
			return models.ConfidenceHigh
		}
		return models.ConfidenceMedium
	}

	switch {
	case score > 70 && buys > sells:
		return models.DirectionBuy, strongTier()
	case score < 30 && sells > buys:
		return models.DirectionSell, strongTier()
	default:
		diff := buys - sells
		if diff < 0 {
			diff = -diff
		}
		if diff <= 1 {
			return models.DirectionHold, models.ConfidenceMedium
		}
		return models.DirectionHold, models.ConfidenceLow
	}
}

func clamp01to100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
