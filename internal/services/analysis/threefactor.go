package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/mapletrade/internal/models"
	"github.com/bobmcallan/mapletrade/internal/signals"
)

// sectorETFs maps GICS sector names to their sector ETF. Symbols without
// a mapped sector are compared against SPY.
var sectorETFs = map[string]string{
	"Technology":             "XLK",
	"Healthcare":             "XLV",
	"Financials":             "XLF",
	"Consumer Discretionary": "XLY",
	"Consumer Staples":       "XLP",
	"Energy":                 "XLE",
	"Materials":              "XLB",
	"Industrials":            "XLI",
	"Utilities":              "XLU",
	"Real Estate":            "XLRE",
	"Communication Services": "XLC",
}

// SectorETF returns the benchmark ETF for a sector name, falling back to SPY
func SectorETF(sector string) string {
	if etf, ok := sectorETFs[sector]; ok {
		return etf
	}
	return "SPY"
}

// AnalyzeThreeFactor runs the three-factor model for one symbol:
// outperformance against the sector ETF, analyst target above the current
// price, and volatility under the sector threshold. The first two factors
// drive the direction; volatility breaks ties. A failed factor degrades to
// its negative value rather than failing the analysis.
func (s *Service) AnalyzeThreeFactor(ctx context.Context, symbol string, months int) (*models.ThreeFactorResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if months <= 0 {
		months = s.config.DefaultMonths
	}
	windowDays := months * 30

	data, err := s.market.GetMarketData(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get market data for %s: %w", symbol, err)
	}

	result := &models.ThreeFactorResult{
		Symbol:       symbol,
		PeriodMonths: months,
		AnalyzedAt:   time.Now().UTC(),
	}

	var sector string
	if data.Fundamentals != nil {
		sector = data.Fundamentals.Sector
	}
	result.BenchmarkSymbol = SectorETF(sector)

	// Factor 1: outperformance vs sector ETF
	cutoff := time.Now().AddDate(0, 0, -windowDays)
	outperformance := false
	if ret, ok := signals.Returns(closesOf(data.BarsSince(cutoff))); ok {
		result.StockReturn = ret.TotalReturn

		benchReturn, err := s.market.BenchmarkReturn(ctx, result.BenchmarkSymbol, windowDays)
		if err != nil {
			s.logger.Warn().Str("symbol", symbol).Str("benchmark", result.BenchmarkSymbol).Err(err).
				Msg("Benchmark return unavailable, treating outperformance as negative")
			result.Errors = append(result.Errors,
				fmt.Sprintf("benchmark return unavailable for %s", result.BenchmarkSymbol))
		} else {
			result.BenchmarkReturn = benchReturn
			outperformance = result.StockReturn > benchReturn
		}
		result.Outperformance = result.StockReturn - result.BenchmarkReturn
	} else {
		s.logger.Warn().Str("symbol", symbol).Msg("Insufficient price history for return calculation")
		result.Errors = append(result.Errors, "insufficient price history for return calculation")
	}

	// Factor 2: analyst target above current price
	result.CurrentPrice = data.LatestClose()
	targetAbove := false
	if data.Fundamentals != nil && data.Fundamentals.TargetPrice > 0 && result.CurrentPrice > 0 {
		result.TargetPrice = data.Fundamentals.TargetPrice
		result.TargetSpread = (result.TargetPrice - result.CurrentPrice) / result.CurrentPrice * 100
		targetAbove = result.TargetPrice > result.CurrentPrice
	}
	result.TargetAboveCurrent = targetAbove

	// Factor 3: volatility under the threshold
	result.VolatilityThreshold = s.config.VolatilityThreshold
	lowVolatility := false
	if vol, ok := signals.Volatility(closesOf(data.BarsSince(cutoff))); ok {
		result.Volatility = vol
		lowVolatility = vol < result.VolatilityThreshold
	}
	result.LowVolatility = lowVolatility

	result.Signal, result.Rationale = decide(outperformance, targetAbove, lowVolatility)
	result.Confidence = factorConfidence(outperformance, targetAbove, lowVolatility)

	return result, nil
}

// decide applies the decision table. Outperformance and target are the
// positive signals; volatility only tips the balance.
func decide(outperformance, targetAbove, lowVolatility bool) (models.Direction, string) {
	positives := 0
	if outperformance {
		positives++
	}
	if targetAbove {
		positives++
	}

	switch positives {
	case 2:
		return models.DirectionBuy, "Both outperformance and target are positive"
	case 0:
		if lowVolatility {
			return models.DirectionHold, "Both performance and target are negative, but volatility is low"
		}
		return models.DirectionSell, "Both performance and target are negative, and volatility is high"
	default:
		if lowVolatility {
			return models.DirectionBuy, "One positive signal and volatility is low"
		}
		return models.DirectionHold, "One positive signal, but volatility is high"
	}
}

// factorConfidence scores agreement across all three booleans
func factorConfidence(factors ...bool) float64 {
	count := 0
	for _, f := range factors {
		if f {
			count++
		}
	}
	switch count {
	case 3:
		return 0.9
	case 2:
		return 0.7
	case 1:
		return 0.5
	default:
		return 0.3
	}
}

func closesOf(bars []models.EODBar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	return closes
}
