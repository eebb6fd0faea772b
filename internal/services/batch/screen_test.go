package batch

import (
	"context"
	"fmt"
	"testing"

	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

func screenFixture() map[string]*models.StockAnalysis {
	return map[string]*models.StockAnalysis{
		// cheap, calm, strong fundamentals, BUY
		"AAA": stockResult("AAA", 40, 18, 45, models.DirectionBuy, models.ConfidenceHigh),
		// mid price, volatile, BUY
		"BBB": stockResult("BBB", 90, 48, 60, models.DirectionBuy, models.ConfidenceMedium),
		// expensive, calm, SELL
		"CCC": stockResult("CCC", 300, 22, 55, models.DirectionSell, models.ConfidenceLow),
	}
}

func newScreenService(t *testing.T) *Service {
	t.Helper()
	svc, analysis := newTestService()
	fixtures := screenFixture()
	analysis.analyzeFn = func(_ context.Context, symbol string, _ interfaces.StockAnalyzeOptions) (*models.StockAnalysis, error) {
		sa, ok := fixtures[symbol]
		if !ok {
			return nil, fmt.Errorf("no fixture for %s", symbol)
		}
		return sa, nil
	}
	return svc
}

func TestScreen_PriceAndVolatility(t *testing.T) {
	svc := newScreenService(t)

	result, err := svc.Screen(context.Background(), []string{"AAA", "BBB", "CCC"}, models.ScreenCriteria{
		PriceMin:      50,
		VolatilityMax: 35,
	})
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}

	// AAA fails price min, BBB fails volatility max
	if result.TotalScreened != 3 || result.Matches != 1 {
		t.Fatalf("screened %d matched %d, want 3/1", result.TotalScreened, result.Matches)
	}
	match := result.Stocks[0]
	if match.Symbol != "CCC" || match.Name != "CCC Inc" {
		t.Errorf("match = %+v", match)
	}
	if !approxEqual(match.Metrics["price"], 300, 0.001) || !approxEqual(match.Metrics["volatility"], 22, 0.001) {
		t.Errorf("metrics = %v", match.Metrics)
	}
	if _, ok := match.Metrics["fundamental_score"]; ok {
		t.Error("metrics should only cover applied criteria")
	}
}

func TestScreen_FundamentalScore(t *testing.T) {
	svc, analysis := newTestService()
	analysis.analyzeFn = func(_ context.Context, symbol string, _ interfaces.StockAnalyzeOptions) (*models.StockAnalysis, error) {
		sa := stockResult(symbol, 100, 25, 50, models.DirectionBuy, models.ConfidenceHigh)
		if symbol == "WEAK" {
			sa.Fundamental.CompositeScore = 35
		}
		if symbol == "NODATA" {
			sa.Fundamental = nil
		}
		return sa, nil
	}

	result, err := svc.Screen(context.Background(), []string{"STRONG", "WEAK", "NODATA"}, models.ScreenCriteria{
		FundamentalScoreMin: 50,
	})
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}
	if result.Matches != 1 || result.Stocks[0].Symbol != "STRONG" {
		t.Fatalf("stocks = %+v", result.Stocks)
	}
	if !approxEqual(result.Stocks[0].Metrics["fundamental_score"], 60, 0.001) {
		t.Errorf("metrics = %v", result.Stocks[0].Metrics)
	}
}

func TestScreen_Recommendation(t *testing.T) {
	svc := newScreenService(t)

	result, err := svc.Screen(context.Background(), []string{"AAA", "BBB", "CCC"}, models.ScreenCriteria{
		Recommendation: models.DirectionBuy,
	})
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}
	if result.Matches != 2 {
		t.Fatalf("stocks = %+v", result.Stocks)
	}
	// Sorted by symbol
	if result.Stocks[0].Symbol != "AAA" || result.Stocks[1].Symbol != "BBB" {
		t.Errorf("order = %s, %s", result.Stocks[0].Symbol, result.Stocks[1].Symbol)
	}
	if _, ok := result.Stocks[0].Metrics["weighted_score"]; !ok {
		t.Error("recommendation criterion should surface the weighted score")
	}
}

func TestScreen_EmptyCriteriaMatchesAll(t *testing.T) {
	svc := newScreenService(t)

	result, err := svc.Screen(context.Background(), []string{"AAA", "BBB", "CCC"}, models.ScreenCriteria{})
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}
	if result.Matches != 3 {
		t.Errorf("matches = %d, want all 3", result.Matches)
	}
	if len(result.Stocks[0].Metrics) != 0 {
		t.Errorf("no criteria applied, metrics = %v", result.Stocks[0].Metrics)
	}
}

func TestScreen_FailedSymbolsNeverMatch(t *testing.T) {
	svc := newScreenService(t)

	result, err := svc.Screen(context.Background(), []string{"AAA", "UNKNOWN"}, models.ScreenCriteria{})
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}
	if result.TotalScreened != 2 || result.Matches != 1 {
		t.Errorf("screened %d matched %d", result.TotalScreened, result.Matches)
	}
}
