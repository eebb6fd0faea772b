package report

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
	"github.com/bobmcallan/mapletrade/internal/scoring"
)

// reportLookbackDays is the analysis window for comprehensive and risk reports.
const reportLookbackDays = 90

// maxRecommendations caps the recommendation list on comprehensive reports.
const maxRecommendations = 10

const (
	rebalanceWeightThreshold = 25.0
	overboughtRSIThreshold   = 70.0
	concentrationActionLevel = 40.0
	underperformerThreshold  = -20.0
)

func (s *Service) buildComprehensive(ctx context.Context, userID, portfolioID string, report *models.Report) error {
	// Step 1: Run the full analysis with technical indicators
	analysis, err := s.portfolios.Analyze(ctx, userID, portfolioID, interfaces.PortfolioAnalyzeOptions{
		PeriodDays:       reportLookbackDays,
		IncludeTechnical: true,
	})
	if err != nil {
		return err
	}
	report.Analysis = analysis

	// Step 2: Performance summary
	report.PerformanceSummary = &models.PerformanceSummary{
		TotalReturn:       analysis.Summary.TotalReturnPct,
		AbsoluteGain:      analysis.Summary.TotalGainLoss,
		CurrentValue:      analysis.Summary.TotalValue,
		InvestedAmount:    analysis.Summary.TotalCost,
		PerformanceRating: scoring.RatePerformance(analysis.Summary.TotalReturnPct),
	}

	// Step 3: Risk assessment
	concentrationRisk := "moderate"
	if analysis.RiskMetrics.ConcentrationIndex > 30 {
		concentrationRisk = "high"
	}
	report.RiskAssessment = &models.RiskAssessment{
		RiskLevel:         analysis.RiskMetrics.RiskLevel,
		Volatility:        analysis.RiskMetrics.PortfolioVolatility,
		ConcentrationRisk: concentrationRisk,
		RiskScore:         scoring.RiskScore(analysis.RiskMetrics),
		Warnings:          scoring.RiskWarnings(analysis.RiskMetrics, len(analysis.Holdings)),
	}

	// Step 4: Recommendations and action items
	report.Recommendations = buildRecommendations(analysis)
	report.ActionItems = buildActionItems(analysis)
	return nil
}

// buildRecommendations merges analysis-level advice with per-holding
// rebalancing and technical flags, capped at maxRecommendations.
func buildRecommendations(analysis *models.PortfolioAnalysis) []models.Recommendation {
	recs := make([]models.Recommendation, 0, maxRecommendations)

	for _, text := range analysis.Recommendations {
		recs = append(recs, models.Recommendation{
			Type:           "portfolio_optimization",
			Priority:       "high",
			Recommendation: text,
		})
	}

	for _, h := range analysis.Holdings {
		if h.Weight > rebalanceWeightThreshold {
			recs = append(recs, models.Recommendation{
				Type:           "rebalancing",
				Priority:       "medium",
				Recommendation: fmt.Sprintf("Consider reducing %s position (currently %.1f%% of portfolio)", h.Symbol, h.Weight),
			})
		}
	}

	for _, h := range analysis.Holdings {
		if rsi, ok := h.Technical["rsi"]; ok && rsi > overboughtRSIThreshold {
			recs = append(recs, models.Recommendation{
				Type:           "technical",
				Priority:       "low",
				Recommendation: fmt.Sprintf("%s is overbought (RSI: %.1f)", h.Symbol, rsi),
			})
		}
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

func buildActionItems(analysis *models.PortfolioAnalysis) []models.ActionItem {
	var items []models.ActionItem
	now := time.Now()

	if analysis.RiskMetrics.ConcentrationIndex > concentrationActionLevel {
		items = append(items, models.ActionItem{
			Action:   "Diversify portfolio",
			Priority: "high",
			Deadline: now.AddDate(0, 0, 7).Format("2006-01-02"),
			Details:  "Portfolio is highly concentrated. Add 3-5 new positions.",
		})
	}

	underperformers := 0
	for _, h := range analysis.Holdings {
		if h.GainLossPct < underperformerThreshold {
			underperformers++
		}
	}
	if underperformers > 0 {
		items = append(items, models.ActionItem{
			Action:   "Review underperforming positions",
			Priority: "medium",
			Deadline: now.AddDate(0, 0, 14).Format("2006-01-02"),
			Details:  fmt.Sprintf("Review %d positions down >20%%", underperformers),
		})
	}
	return items
}
