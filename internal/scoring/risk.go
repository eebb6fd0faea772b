package scoring

import (
	"github.com/bobmcallan/mapletrade/internal/models"
)

// RiskScore computes a 0-100 composite score from portfolio risk metrics.
// Starts at a neutral 50 and adjusts for volatility, concentration, and
// largest position size. Higher means riskier.
func RiskScore(m models.RiskMetrics) float64 {
	score := 50.0

	switch {
	case m.PortfolioVolatility > 40:
		score += 20
	case m.PortfolioVolatility > 25:
		score += 10
	case m.PortfolioVolatility < 15:
		score -= 10
	}

	if m.ConcentrationIndex > 30 {
		score += 15
	} else if m.ConcentrationIndex > 20 {
		score += 5
	}

	if m.MaxPositionWeight > 40 {
		score += 15
	} else if m.MaxPositionWeight > 30 {
		score += 10
	}

	return clamp(score, 0, 100)
}

// RiskWarnings returns advisory warnings for a portfolio. These never
// affect the score. The empty slice (not nil) keeps JSON output stable.
func RiskWarnings(m models.RiskMetrics, holdingCount int) []string {
	warnings := []string{}

	if m.MaxPositionWeight > 30 {
		warnings = append(warnings, "Single position exceeds 30% of portfolio")
	}
	if m.PortfolioVolatility > 40 {
		warnings = append(warnings, "High portfolio volatility detected")
	}
	if holdingCount < 5 {
		warnings = append(warnings, "Low diversification - consider adding more positions")
	}

	return warnings
}

// RiskLevel buckets portfolio volatility and concentration into a coarse
// level used by upstream risk metrics.
func RiskLevel(volatility, concentrationIndex float64) string {
	switch {
	case volatility > 30 || concentrationIndex > 40:
		return "high"
	case volatility > 20 || concentrationIndex > 25:
		return "moderate"
	default:
		return "low"
	}
}
