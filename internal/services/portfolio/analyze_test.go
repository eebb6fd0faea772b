package portfolio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

// climbingCloses alternates small up moves so volatility is positive but tame
func climbingCloses(base float64, n int) []float64 {
	closes := make([]float64, n)
	price := base
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			price *= 1.005
		} else {
			price *= 1.003
		}
		closes[i] = price
	}
	return closes
}

func seedMarketData(store *mockMarketStore, symbol, sector string, closes []float64) *models.MarketData {
	start := time.Now().AddDate(0, 0, -len(closes))
	md := &models.MarketData{
		Symbol:       symbol,
		Name:         symbol + " Inc",
		EOD:          dailyBars(start, closes...),
		Fundamentals: &models.Fundamentals{Symbol: symbol, Sector: sector},
	}
	store.data[symbol] = md
	return md
}

func analyzeFixture(t *testing.T) (*Service, *mockStorageManager, *mockMarketService, *models.Portfolio) {
	t.Helper()
	svc, manager, market := newTestService()

	seedMarketData(manager.market, "AAPL", "Technology", climbingCloses(100, 30))
	seedMarketData(manager.market, "XOM", "Energy", climbingCloses(90, 30))

	p := mustCreate(t, svc, &models.Portfolio{
		UserID: "user-1",
		Name:   "Balanced",
		Positions: []models.Position{
			{Symbol: "AAPL", Shares: 6, PurchasePrice: 150},
			{Symbol: "AAPL", Shares: 4, PurchasePrice: 150},
			{Symbol: "XOM", Shares: 20, PurchasePrice: 90},
			{Symbol: "MISS", Shares: 5, PurchasePrice: 10},
		},
	})
	return svc, manager, market, p
}

func findHolding(t *testing.T, holdings []models.Holding, symbol string) models.Holding {
	t.Helper()
	for _, h := range holdings {
		if h.Symbol == symbol {
			return h
		}
	}
	t.Fatalf("holding %s not found in %+v", symbol, holdings)
	return models.Holding{}
}

func TestAnalyze_Summary(t *testing.T) {
	svc, manager, market, p := analyzeFixture(t)

	analysis, err := svc.Analyze(context.Background(), "user-1", p.ID, interfaces.PortfolioAnalyzeOptions{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if market.ensureCalls != 1 {
		t.Errorf("expected one market refresh, got %d", market.ensureCalls)
	}
	if analysis.PeriodDays != 30 {
		t.Errorf("expected default period 30, got %d", analysis.PeriodDays)
	}
	if len(analysis.Holdings) != 3 {
		t.Fatalf("expected 3 merged holdings, got %d", len(analysis.Holdings))
	}

	aaplClose := manager.market.data["AAPL"].LatestClose()
	xomClose := manager.market.data["XOM"].LatestClose()
	wantValue := 10*aaplClose + 20*xomClose
	wantCost := 10*150.0 + 20*90.0 + 5*10.0

	if !approxEqual(analysis.Summary.TotalValue, wantValue, 0.01) {
		t.Errorf("total value = %.2f, want %.2f", analysis.Summary.TotalValue, wantValue)
	}
	if !approxEqual(analysis.Summary.TotalCost, wantCost, 0.01) {
		t.Errorf("total cost = %.2f, want %.2f", analysis.Summary.TotalCost, wantCost)
	}
	wantPct := (wantValue - wantCost) / wantCost * 100
	if !approxEqual(analysis.Summary.TotalReturnPct, wantPct, 0.01) {
		t.Errorf("return pct = %.2f, want %.2f", analysis.Summary.TotalReturnPct, wantPct)
	}

	aapl := findHolding(t, analysis.Holdings, "AAPL")
	if aapl.Shares != 10 {
		t.Errorf("AAPL lots not merged: %.1f shares", aapl.Shares)
	}
	if !approxEqual(aapl.Weight, aapl.Value/wantValue*100, 0.01) {
		t.Errorf("AAPL weight = %.2f", aapl.Weight)
	}
	if aapl.Volatility <= 0 {
		t.Error("expected positive AAPL volatility")
	}
	if aapl.Sector != "Technology" {
		t.Errorf("sector not resolved from fundamentals: %q", aapl.Sector)
	}
	if aapl.Technical != nil {
		t.Error("technical must be absent unless requested")
	}
}

func TestAnalyze_DegradesMissingMarketData(t *testing.T) {
	svc, _, _, p := analyzeFixture(t)

	analysis, err := svc.Analyze(context.Background(), "user-1", p.ID, interfaces.PortfolioAnalyzeOptions{IncludeTechnical: true})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	miss := findHolding(t, analysis.Holdings, "MISS")
	if miss.Value != 0 || miss.Weight != 0 {
		t.Errorf("missing-data holding should have no value: %+v", miss)
	}
	if miss.Volatility != 0 || miss.Technical != nil {
		t.Errorf("missing-data holding should be degraded: %+v", miss)
	}
	if miss.CostBasis != 50 {
		t.Errorf("cost basis must survive degradation: %.2f", miss.CostBasis)
	}
	if miss.GainLossPct != 0 {
		t.Errorf("no price means no gain judgment, got %.2f", miss.GainLossPct)
	}
}

func TestAnalyze_IncludeTechnical(t *testing.T) {
	svc, _, _, p := analyzeFixture(t)

	analysis, err := svc.Analyze(context.Background(), "user-1", p.ID, interfaces.PortfolioAnalyzeOptions{IncludeTechnical: true})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	aapl := findHolding(t, analysis.Holdings, "AAPL")
	if aapl.Technical == nil {
		t.Fatal("expected technical map")
	}
	for _, key := range []string{"rsi", "sma_20", "macd"} {
		if _, ok := aapl.Technical[key]; !ok {
			t.Errorf("technical map missing %q: %+v", key, aapl.Technical)
		}
	}
	if rsi := aapl.Technical["rsi"]; rsi <= 50 || rsi > 100 {
		t.Errorf("all-gains series should have high RSI, got %.1f", rsi)
	}
}

func TestAnalyze_RiskMetrics(t *testing.T) {
	svc, _, _, p := analyzeFixture(t)

	analysis, err := svc.Analyze(context.Background(), "user-1", p.ID, interfaces.PortfolioAnalyzeOptions{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	rm := analysis.RiskMetrics
	// Two priced holdings cannot score below 50 on a Herfindahl index
	if rm.ConcentrationIndex <= 40 {
		t.Errorf("concentration = %.1f, expected > 40", rm.ConcentrationIndex)
	}
	if rm.RiskLevel != "high" {
		t.Errorf("risk level = %q, want high", rm.RiskLevel)
	}
	if rm.MaxPositionWeight <= 0 || rm.MaxPositionWeight > 100 {
		t.Errorf("max position weight out of range: %.1f", rm.MaxPositionWeight)
	}
	if rm.PortfolioVolatility <= 0 {
		t.Error("expected positive portfolio volatility")
	}
}

func TestAnalyze_SectorAllocation(t *testing.T) {
	svc, _, _, p := analyzeFixture(t)

	analysis, err := svc.Analyze(context.Background(), "user-1", p.ID, interfaces.PortfolioAnalyzeOptions{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	alloc := analysis.SectorAllocation
	if len(alloc) != 2 {
		t.Fatalf("expected 2 sectors, got %+v", alloc)
	}
	// XOM value (20 x ~92) exceeds AAPL value (10 x ~104)
	if alloc[0].Sector != "Energy" || alloc[1].Sector != "Technology" {
		t.Errorf("allocation not descending by weight: %+v", alloc)
	}
	total := alloc[0].Weight + alloc[1].Weight
	if !approxEqual(total, 100, 0.01) {
		t.Errorf("sector weights sum to %.2f, want 100", total)
	}
}

func TestAnalyze_SurfacesReviewNotes(t *testing.T) {
	svc, manager, _, p := analyzeFixture(t)
	_ = manager.users.Put(context.Background(), &models.UserRecord{
		UserID:  "user-1",
		Subject: subjectReview,
		Key:     p.ID,
		Value:   `["Trim concentrated positions","Add fixed income"]`,
	})

	analysis, err := svc.Analyze(context.Background(), "user-1", p.ID, interfaces.PortfolioAnalyzeOptions{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(analysis.Recommendations) != 2 || analysis.Recommendations[0] != "Trim concentrated positions" {
		t.Errorf("review notes not surfaced: %+v", analysis.Recommendations)
	}
}

func TestAnalyze_EmptyPortfolio(t *testing.T) {
	svc, _, market, _ := analyzeFixture(t)
	empty := mustCreate(t, svc, &models.Portfolio{UserID: "user-1", Name: "Empty"})
	market.ensureCalls = 0

	analysis, err := svc.Analyze(context.Background(), "user-1", empty.ID, interfaces.PortfolioAnalyzeOptions{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if market.ensureCalls != 0 {
		t.Error("no symbols should mean no market refresh")
	}
	if len(analysis.Holdings) != 0 || analysis.Summary.TotalValue != 0 {
		t.Errorf("expected empty snapshot: %+v", analysis)
	}
	if analysis.RiskMetrics.RiskLevel != "low" {
		t.Errorf("empty portfolio risk = %q, want low", analysis.RiskMetrics.RiskLevel)
	}
	if analysis.Recommendations == nil {
		t.Error("recommendations must be an empty list, not nil")
	}
}

func TestAnalyze_MarketRefreshFailureStillAnalyzes(t *testing.T) {
	svc, _, market, p := analyzeFixture(t)
	market.ensureFn = func(context.Context, []string, bool) error {
		return fmt.Errorf("provider down")
	}

	analysis, err := svc.Analyze(context.Background(), "user-1", p.ID, interfaces.PortfolioAnalyzeOptions{})
	if err != nil {
		t.Fatalf("Analyze should fall back to cached data: %v", err)
	}
	if analysis.Summary.TotalValue <= 0 {
		t.Error("expected cached prices to produce a valuation")
	}
}

func TestAnalyze_NotFound(t *testing.T) {
	svc, _, _, _ := analyzeFixture(t)
	if _, err := svc.Analyze(context.Background(), "user-1", "missing", interfaces.PortfolioAnalyzeOptions{}); err == nil {
		t.Error("expected error for unknown portfolio")
	}
}

func TestMergeLots(t *testing.T) {
	lots := mergeLots([]models.Position{
		{Symbol: "aapl", Shares: 6, PurchasePrice: 150},
		{Symbol: "AAPL", Name: "Apple Inc", Sector: "Technology", Shares: 4, PurchasePrice: 170},
		{Symbol: "MSFT", Shares: 3, PurchasePrice: 400},
	})

	if len(lots) != 2 {
		t.Fatalf("expected 2 merged lots, got %d", len(lots))
	}
	aapl := lots[0]
	if aapl.Symbol != "AAPL" || aapl.Shares != 10 {
		t.Errorf("AAPL merge wrong: %+v", aapl)
	}
	if !approxEqual(aapl.Cost, 6*150+4*170, 0.001) {
		t.Errorf("AAPL cost = %.2f", aapl.Cost)
	}
	if aapl.Name != "Apple Inc" || aapl.Sector != "Technology" {
		t.Errorf("first non-empty metadata not kept: %+v", aapl)
	}
}
