package batch

import (
	"context"
	"sort"
	"time"

	"github.com/bobmcallan/mapletrade/internal/models"
)

// Screen analyzes the candidate symbols and keeps those matching every
// criterion. A symbol missing the data a criterion needs does not match.
func (s *Service) Screen(ctx context.Context, symbols []string, criteria models.ScreenCriteria) (*models.ScreenResult, error) {
	batch, err := s.AnalyzeStocks(ctx, symbols, nil)
	if err != nil {
		return nil, err
	}

	var matches []models.ScreenMatch
	for symbol, analysis := range batch.Results {
		if !matchesCriteria(analysis, criteria) {
			continue
		}
		matches = append(matches, models.ScreenMatch{
			Symbol:  symbol,
			Name:    analysis.Name,
			Metrics: screenMetrics(analysis, criteria),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Symbol < matches[j].Symbol })

	s.logger.Info().
		Int("screened", batch.Summary.Total).
		Int("matches", len(matches)).
		Msg("Screening complete")

	return &models.ScreenResult{
		Criteria:      criteria,
		TotalScreened: batch.Summary.Total,
		Matches:       len(matches),
		Stocks:        matches,
		ScreenedAt:    time.Now(),
	}, nil
}

func matchesCriteria(analysis *models.StockAnalysis, criteria models.ScreenCriteria) bool {
	if criteria.PriceMin > 0 || criteria.PriceMax > 0 {
		price := currentPrice(analysis)
		if price <= 0 {
			return false
		}
		if criteria.PriceMin > 0 && price < criteria.PriceMin {
			return false
		}
		if criteria.PriceMax > 0 && price > criteria.PriceMax {
			return false
		}
	}

	if criteria.VolatilityMax > 0 {
		if analysis.Technical == nil || analysis.Technical.Volatility == nil {
			return false
		}
		if *analysis.Technical.Volatility > criteria.VolatilityMax {
			return false
		}
	}

	if criteria.FundamentalScoreMin > 0 {
		if analysis.Fundamental == nil {
			return false
		}
		if analysis.Fundamental.CompositeScore < criteria.FundamentalScoreMin {
			return false
		}
	}

	if criteria.Recommendation != "" {
		if analysis.Combined == nil || analysis.Combined.Direction != criteria.Recommendation {
			return false
		}
	}
	return true
}

// screenMetrics extracts the figures relevant to the criteria that were
// actually applied, mirroring what the match was judged on.
func screenMetrics(analysis *models.StockAnalysis, criteria models.ScreenCriteria) map[string]float64 {
	metrics := make(map[string]float64)

	if criteria.PriceMin > 0 || criteria.PriceMax > 0 {
		metrics["price"] = currentPrice(analysis)
	}
	if criteria.VolatilityMax > 0 && analysis.Technical != nil && analysis.Technical.Volatility != nil {
		metrics["volatility"] = *analysis.Technical.Volatility
	}
	if criteria.FundamentalScoreMin > 0 && analysis.Fundamental != nil {
		metrics["fundamental_score"] = analysis.Fundamental.CompositeScore
	}
	if criteria.Recommendation != "" && analysis.Combined != nil {
		metrics["weighted_score"] = analysis.Combined.WeightedScore
	}
	return metrics
}

func currentPrice(analysis *models.StockAnalysis) float64 {
	if analysis.ThreeFactor != nil {
		return analysis.ThreeFactor.CurrentPrice
	}
	return 0
}
