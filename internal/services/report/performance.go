package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

// performancePeriods are the lookback windows measured by performance
// reports. The first entry drives the best/worst performer ranking.
var performancePeriods = []int{30, 90, 180, 365}

const topPerformerCount = 3

func (s *Service) buildPerformance(ctx context.Context, userID, portfolioID string, report *models.Report) error {
	// Step 1: Measure returns over each lookback window. A failed window
	// is skipped rather than failing the whole report.
	periods := make(map[string]models.PeriodPerformance, len(performancePeriods))
	analyses := make(map[int]*models.PortfolioAnalysis, len(performancePeriods))
	for _, days := range performancePeriods {
		analysis, err := s.portfolios.Analyze(ctx, userID, portfolioID, interfaces.PortfolioAnalyzeOptions{
			PeriodDays: days,
		})
		if err != nil {
			s.logger.Warn().Err(err).Int("days", days).Msg("Skipping performance period")
			continue
		}
		periods[fmt.Sprintf("%dd", days)] = models.PeriodPerformance{
			Return:   analysis.Summary.TotalReturnPct,
			Value:    analysis.Summary.TotalValue,
			GainLoss: analysis.Summary.TotalGainLoss,
		}
		analyses[days] = analysis
	}
	report.PerformancePeriods = periods

	// Step 2: Rank holdings over the shortest window
	if base, ok := analyses[performancePeriods[0]]; ok {
		report.BestPerformers, report.WorstPerformers = rankPerformers(base.Holdings)
	}

	// Step 3: Compare against the benchmark index
	report.BenchmarkComparison = s.compareToBenchmark(ctx, periods)
	return nil
}

// rankPerformers returns the top and bottom holdings by return over the
// period, both listed in descending return order.
func rankPerformers(holdings []models.Holding) ([]models.BestPerformer, []models.WorstPerformer) {
	if len(holdings) == 0 {
		return nil, nil
	}

	ranked := make([]models.Holding, len(holdings))
	copy(ranked, holdings)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].GainLossPct > ranked[j].GainLossPct
	})

	count := len(ranked)
	if count > topPerformerCount {
		count = topPerformerCount
	}

	best := make([]models.BestPerformer, 0, count)
	for _, h := range ranked[:count] {
		best = append(best, models.BestPerformer{
			Symbol: h.Symbol,
			Name:   h.Name,
			Return: h.GainLossPct,
			Gain:   h.GainLoss,
		})
	}

	worst := make([]models.WorstPerformer, 0, count)
	for _, h := range ranked[len(ranked)-count:] {
		worst = append(worst, models.WorstPerformer{
			Symbol: h.Symbol,
			Name:   h.Name,
			Return: h.GainLossPct,
			Loss:   h.GainLoss,
		})
	}
	return best, worst
}

// compareToBenchmark measures the portfolio's 90-day return against the
// configured benchmark index. A fetch failure produces an error marker
// instead of numbers.
func (s *Service) compareToBenchmark(ctx context.Context, periods map[string]models.PeriodPerformance) *models.BenchmarkComparison {
	symbol := s.config.BenchmarkSymbol
	benchReturn, err := s.market.BenchmarkReturn(ctx, symbol, reportLookbackDays)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Benchmark fetch failed")
		return &models.BenchmarkComparison{Error: "Could not fetch benchmark data"}
	}

	portfolioReturn := periods[fmt.Sprintf("%dd", reportLookbackDays)].Return
	return &models.BenchmarkComparison{
		Benchmark:       benchmarkLabel(symbol),
		BenchmarkReturn: benchReturn,
		PortfolioReturn: portfolioReturn,
		ExcessReturn:    portfolioReturn - benchReturn,
		Outperformed:    portfolioReturn > benchReturn,
	}
}

func benchmarkLabel(symbol string) string {
	if symbol == "SPY" {
		return "S&P 500 (SPY)"
	}
	return symbol
}
