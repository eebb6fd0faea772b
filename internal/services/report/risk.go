package report

import (
	"context"

	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
	"github.com/bobmcallan/mapletrade/internal/scoring"
)

// highVolatilityThreshold flags holdings volatile enough to list individually.
const highVolatilityThreshold = 40.0

func (s *Service) buildRisk(ctx context.Context, userID, portfolioID string, report *models.Report) error {
	// Step 1: Run the full analysis with technical indicators
	analysis, err := s.portfolios.Analyze(ctx, userID, portfolioID, interfaces.PortfolioAnalyzeOptions{
		PeriodDays:       reportLookbackDays,
		IncludeTechnical: true,
	})
	if err != nil {
		return err
	}

	// Step 2: Headline risk metrics and concentration breakdown
	riskMetrics := analysis.RiskMetrics
	report.OverallRisk = &riskMetrics
	report.Concentration = scoring.AnalyzeConcentration(analysis.Holdings)

	// Step 3: Volatility and sector correlation views
	report.VolatilityAnalysis = buildVolatilityAnalysis(analysis)
	report.CorrelationAnalysis = buildCorrelationAnalysis(analysis)

	// Step 4: Stress scenarios against current value
	report.StressTest = scoring.StressTest(analysis.Summary.TotalValue)
	return nil
}

// buildVolatilityAnalysis summarizes per-holding volatility. Holdings with
// no volatility figure are excluded; nil when none have one.
func buildVolatilityAnalysis(analysis *models.PortfolioAnalysis) *models.VolatilityAnalysis {
	var vols []float64
	for _, h := range analysis.Holdings {
		if h.Volatility > 0 {
			vols = append(vols, h.Volatility)
		}
	}
	if len(vols) == 0 {
		return nil
	}

	sum, maxVol, minVol := 0.0, vols[0], vols[0]
	for _, v := range vols {
		sum += v
		if v > maxVol {
			maxVol = v
		}
		if v < minVol {
			minVol = v
		}
	}

	var high []models.VolatileHolding
	for _, h := range analysis.Holdings {
		if h.Volatility > highVolatilityThreshold {
			high = append(high, models.VolatileHolding{Symbol: h.Symbol, Volatility: h.Volatility})
		}
	}

	return &models.VolatilityAnalysis{
		PortfolioVolatility:    analysis.RiskMetrics.PortfolioVolatility,
		AvgHoldingVolatility:   sum / float64(len(vols)),
		MaxVolatility:          maxVol,
		MinVolatility:          minVol,
		HighVolatilityHoldings: high,
	}
}

// buildCorrelationAnalysis reads sector crowding off the allocation
// breakdown, which analysis orders by descending weight. Nil when the
// portfolio has no sector data.
func buildCorrelationAnalysis(analysis *models.PortfolioAnalysis) *models.CorrelationAnalysis {
	if len(analysis.SectorAllocation) == 0 {
		return nil
	}

	top := analysis.SectorAllocation[0]
	risk := "moderate"
	if top.Weight > 40 {
		risk = "high"
	}
	return &models.CorrelationAnalysis{
		SectorConcentration: &models.SectorConcentration{
			MostConcentratedSector: top.Sector,
			Concentration:          top.Weight,
			Risk:                   risk,
		},
		DiversificationScore: scoring.DiversificationScore(analysis.Holdings, analysis.SectorAllocation),
	}
}
