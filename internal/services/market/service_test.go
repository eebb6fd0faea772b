package market

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

func approxEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// --- mock market data client ---

type mockClient struct {
	quoteFn        func(ctx context.Context, symbol string) (*models.Quote, error)
	eodFn          func(ctx context.Context, symbol string, opts ...interfaces.EODOption) ([]models.EODBar, error)
	fundamentalsFn func(ctx context.Context, symbol string) (*models.Fundamentals, error)

	quoteCalls        int
	eodCalls          int
	fundamentalsCalls int
}

func (m *mockClient) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	m.quoteCalls++
	if m.quoteFn != nil {
		return m.quoteFn(ctx, symbol)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockClient) GetEOD(ctx context.Context, symbol string, opts ...interfaces.EODOption) ([]models.EODBar, error) {
	m.eodCalls++
	if m.eodFn != nil {
		return m.eodFn(ctx, symbol, opts...)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockClient) GetFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	m.fundamentalsCalls++
	if m.fundamentalsFn != nil {
		return m.fundamentalsFn(ctx, symbol)
	}
	return nil, fmt.Errorf("not implemented")
}

// --- mock storage ---

type mockMarketStorage struct {
	data  map[string]*models.MarketData
	stale []string
}

func (m *mockMarketStorage) GetMarketData(_ context.Context, symbol string) (*models.MarketData, error) {
	md, ok := m.data[symbol]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return md, nil
}

func (m *mockMarketStorage) SaveMarketData(_ context.Context, data *models.MarketData) error {
	data.LastUpdated = time.Now()
	m.data[data.Symbol] = data
	return nil
}

func (m *mockMarketStorage) GetMarketDataBatch(_ context.Context, symbols []string) ([]*models.MarketData, error) {
	var result []*models.MarketData
	for _, s := range symbols {
		if md, ok := m.data[s]; ok {
			result = append(result, md)
		}
	}
	return result, nil
}

func (m *mockMarketStorage) ListSymbols(_ context.Context) ([]string, error) {
	var keys []string
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *mockMarketStorage) GetStaleSymbols(_ context.Context, _ time.Duration) ([]string, error) {
	return m.stale, nil
}

type mockStorageManager struct {
	market *mockMarketStorage
}

func (m *mockStorageManager) InternalStore() interfaces.InternalStore         { return nil }
func (m *mockStorageManager) UserDataStore() interfaces.UserDataStore         { return nil }
func (m *mockStorageManager) MarketDataStorage() interfaces.MarketDataStorage { return m.market }
func (m *mockStorageManager) DataPath() string                                { return "" }
func (m *mockStorageManager) WriteRaw(subdir, key string, data []byte) error  { return nil }
func (m *mockStorageManager) ReadRaw(subdir, key string) ([]byte, error) {
	return nil, fmt.Errorf("not found")
}
func (m *mockStorageManager) PurgeDerivedData(_ context.Context) (map[string]int, error) {
	return nil, nil
}
func (m *mockStorageManager) Close() error { return nil }

func newTestService(client *mockClient) (*Service, *mockMarketStorage) {
	storage := &mockMarketStorage{data: make(map[string]*models.MarketData)}
	manager := &mockStorageManager{market: storage}
	logger := common.NewSilentLogger()
	return NewService(manager, client, logger), storage
}

func dailyBars(start time.Time, closes ...float64) []models.EODBar {
	bars := make([]models.EODBar, len(closes))
	for i, c := range closes {
		bars[i] = models.EODBar{
			Date:  start.AddDate(0, 0, i),
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return bars
}

// --- tests ---

func TestEnsureMarketData_FullCollect(t *testing.T) {
	start := time.Now().AddDate(0, 0, -5)
	client := &mockClient{
		quoteFn: func(_ context.Context, symbol string) (*models.Quote, error) {
			return &models.Quote{Symbol: symbol, Price: 105.0}, nil
		},
		eodFn: func(_ context.Context, symbol string, _ ...interfaces.EODOption) ([]models.EODBar, error) {
			return dailyBars(start, 100, 101, 102, 103, 104), nil
		},
		fundamentalsFn: func(_ context.Context, symbol string) (*models.Fundamentals, error) {
			return &models.Fundamentals{Symbol: symbol, Name: "Apple Inc", Sector: "Technology"}, nil
		},
	}
	svc, storage := newTestService(client)

	if err := svc.EnsureMarketData(context.Background(), []string{"aapl"}, false); err != nil {
		t.Fatalf("EnsureMarketData: %v", err)
	}

	md, ok := storage.data["AAPL"]
	if !ok {
		t.Fatal("expected market data saved under AAPL")
	}
	if md.Quote == nil || md.Quote.Price != 105.0 {
		t.Errorf("quote not stored: %+v", md.Quote)
	}
	if len(md.EOD) != 5 {
		t.Errorf("expected 5 bars, got %d", len(md.EOD))
	}
	if md.Fundamentals == nil || md.Fundamentals.Sector != "Technology" {
		t.Errorf("fundamentals not stored: %+v", md.Fundamentals)
	}
	if md.Name != "Apple Inc" {
		t.Errorf("name not copied from fundamentals: %q", md.Name)
	}
	if md.EODUpdatedAt.IsZero() || md.QuoteUpdatedAt.IsZero() || md.FundamentalsUpdatedAt.IsZero() {
		t.Error("freshness stamps missing")
	}
}

func TestEnsureMarketData_SkipsFreshComponents(t *testing.T) {
	now := time.Now()
	client := &mockClient{}
	svc, storage := newTestService(client)

	storage.data["AAPL"] = &models.MarketData{
		Symbol:                "AAPL",
		Quote:                 &models.Quote{Symbol: "AAPL", Price: 100},
		EOD:                   dailyBars(now.AddDate(0, 0, -3), 99, 100, 101),
		Fundamentals:          &models.Fundamentals{Symbol: "AAPL"},
		QuoteUpdatedAt:        now,
		EODUpdatedAt:          now,
		FundamentalsUpdatedAt: now,
	}

	if err := svc.EnsureMarketData(context.Background(), []string{"AAPL"}, false); err != nil {
		t.Fatalf("EnsureMarketData: %v", err)
	}

	if client.quoteCalls != 0 || client.eodCalls != 0 || client.fundamentalsCalls != 0 {
		t.Errorf("fresh data should skip the client, calls: quote=%d eod=%d fundamentals=%d",
			client.quoteCalls, client.eodCalls, client.fundamentalsCalls)
	}
}

func TestEnsureMarketData_ForceRefetchesEverything(t *testing.T) {
	now := time.Now()
	client := &mockClient{
		quoteFn: func(_ context.Context, symbol string) (*models.Quote, error) {
			return &models.Quote{Symbol: symbol, Price: 200}, nil
		},
		eodFn: func(_ context.Context, symbol string, _ ...interfaces.EODOption) ([]models.EODBar, error) {
			return dailyBars(now.AddDate(0, 0, -2), 198, 199), nil
		},
		fundamentalsFn: func(_ context.Context, symbol string) (*models.Fundamentals, error) {
			return &models.Fundamentals{Symbol: symbol}, nil
		},
	}
	svc, storage := newTestService(client)
	storage.data["AAPL"] = &models.MarketData{
		Symbol:                "AAPL",
		Quote:                 &models.Quote{Symbol: "AAPL", Price: 100},
		EOD:                   dailyBars(now.AddDate(0, 0, -3), 99),
		QuoteUpdatedAt:        now,
		EODUpdatedAt:          now,
		FundamentalsUpdatedAt: now,
	}

	if err := svc.EnsureMarketData(context.Background(), []string{"AAPL"}, true); err != nil {
		t.Fatalf("EnsureMarketData force: %v", err)
	}

	if client.quoteCalls != 1 || client.eodCalls != 1 || client.fundamentalsCalls != 1 {
		t.Errorf("force should call all endpoints, calls: quote=%d eod=%d fundamentals=%d",
			client.quoteCalls, client.eodCalls, client.fundamentalsCalls)
	}
	if storage.data["AAPL"].Quote.Price != 200 {
		t.Errorf("expected refreshed quote, got %.2f", storage.data["AAPL"].Quote.Price)
	}
}

func TestEnsureMarketData_IncrementalEODMerge(t *testing.T) {
	now := time.Now()
	old := now.AddDate(0, 0, -10)
	existingBars := dailyBars(old, 100, 101, 102)
	lastDate := existingBars[2].Date

	var capturedFrom time.Time
	client := &mockClient{
		quoteFn: func(_ context.Context, symbol string) (*models.Quote, error) {
			return &models.Quote{Symbol: symbol, Price: 105}, nil
		},
		eodFn: func(_ context.Context, _ string, opts ...interfaces.EODOption) ([]models.EODBar, error) {
			params := &interfaces.EODParams{}
			for _, opt := range opts {
				opt(params)
			}
			capturedFrom = params.From
			return dailyBars(lastDate.AddDate(0, 0, 1), 103, 104), nil
		},
	}
	svc, storage := newTestService(client)
	storage.data["AAPL"] = &models.MarketData{
		Symbol:                "AAPL",
		EOD:                   existingBars,
		EODUpdatedAt:          now.Add(-24 * time.Hour),
		QuoteUpdatedAt:        now.Add(-24 * time.Hour),
		FundamentalsUpdatedAt: now, // fresh, skip fundamentals
	}

	if err := svc.EnsureMarketData(context.Background(), []string{"AAPL"}, false); err != nil {
		t.Fatalf("EnsureMarketData: %v", err)
	}

	wantFrom := lastDate.AddDate(0, 0, 1)
	if capturedFrom.Format("2006-01-02") != wantFrom.Format("2006-01-02") {
		t.Errorf("expected incremental from %s, got %s",
			wantFrom.Format("2006-01-02"), capturedFrom.Format("2006-01-02"))
	}

	md := storage.data["AAPL"]
	if len(md.EOD) != 5 {
		t.Fatalf("expected 5 merged bars, got %d", len(md.EOD))
	}
	for i := 1; i < len(md.EOD); i++ {
		if !md.EOD[i-1].Date.Before(md.EOD[i].Date) {
			t.Error("merged bars not ascending")
		}
	}
	if md.EOD[4].Close != 104 {
		t.Errorf("expected newest close 104, got %.2f", md.EOD[4].Close)
	}
}

func TestEnsureMarketData_FailedSymbolDoesNotAbortBatch(t *testing.T) {
	now := time.Now()
	client := &mockClient{
		quoteFn: func(_ context.Context, symbol string) (*models.Quote, error) {
			return &models.Quote{Symbol: symbol, Price: 50}, nil
		},
		eodFn: func(_ context.Context, symbol string, _ ...interfaces.EODOption) ([]models.EODBar, error) {
			if symbol == "BAD" {
				return nil, fmt.Errorf("api error")
			}
			return dailyBars(now.AddDate(0, 0, -2), 49, 50), nil
		},
		fundamentalsFn: func(_ context.Context, symbol string) (*models.Fundamentals, error) {
			return &models.Fundamentals{Symbol: symbol}, nil
		},
	}
	svc, storage := newTestService(client)

	if err := svc.EnsureMarketData(context.Background(), []string{"BAD", "GOOD"}, false); err != nil {
		t.Fatalf("EnsureMarketData: %v", err)
	}

	if _, ok := storage.data["BAD"]; ok {
		t.Error("failed symbol should not be saved")
	}
	if _, ok := storage.data["GOOD"]; !ok {
		t.Error("good symbol should still be collected")
	}
}

func TestGetMarketData_FetchesOnMiss(t *testing.T) {
	now := time.Now()
	client := &mockClient{
		quoteFn: func(_ context.Context, symbol string) (*models.Quote, error) {
			return &models.Quote{Symbol: symbol, Price: 10}, nil
		},
		eodFn: func(_ context.Context, symbol string, _ ...interfaces.EODOption) ([]models.EODBar, error) {
			return dailyBars(now.AddDate(0, 0, -2), 9, 10), nil
		},
		fundamentalsFn: func(_ context.Context, symbol string) (*models.Fundamentals, error) {
			return &models.Fundamentals{Symbol: symbol}, nil
		},
	}
	svc, _ := newTestService(client)

	md, err := svc.GetMarketData(context.Background(), "NEW")
	if err != nil {
		t.Fatalf("GetMarketData: %v", err)
	}
	if md.Symbol != "NEW" || len(md.EOD) != 2 {
		t.Errorf("unexpected data: %+v", md)
	}
	if client.eodCalls != 1 {
		t.Errorf("expected one EOD fetch, got %d", client.eodCalls)
	}

	// Second call hits the cache
	_, err = svc.GetMarketData(context.Background(), "NEW")
	if err != nil {
		t.Fatalf("GetMarketData cached: %v", err)
	}
	if client.eodCalls != 1 {
		t.Errorf("cached read should not refetch, got %d calls", client.eodCalls)
	}
}

func TestBenchmarkReturn(t *testing.T) {
	now := time.Now()
	svc, storage := newTestService(&mockClient{})
	storage.data["SPY"] = &models.MarketData{
		Symbol:                "SPY",
		EOD:                   dailyBars(now.AddDate(0, 0, -20), 500, 505, 510, 520, 525),
		EODUpdatedAt:          now,
		QuoteUpdatedAt:        now,
		FundamentalsUpdatedAt: now,
	}

	ret, err := svc.BenchmarkReturn(context.Background(), "SPY", 30)
	if err != nil {
		t.Fatalf("BenchmarkReturn: %v", err)
	}
	want := (525.0 - 500.0) / 500.0 * 100
	if !approxEqual(ret, want, 1e-9) {
		t.Errorf("expected %.4f%%, got %.4f%%", want, ret)
	}
}

func TestBenchmarkReturn_WindowExcludesOldBars(t *testing.T) {
	now := time.Now()
	svc, storage := newTestService(&mockClient{})

	// Two old bars outside the 10-day window, three inside
	bars := append(
		dailyBars(now.AddDate(0, 0, -40), 400, 410),
		dailyBars(now.AddDate(0, 0, -5), 500, 510, 550)...,
	)
	storage.data["SPY"] = &models.MarketData{
		Symbol:                "SPY",
		EOD:                   bars,
		EODUpdatedAt:          now,
		QuoteUpdatedAt:        now,
		FundamentalsUpdatedAt: now,
	}

	ret, err := svc.BenchmarkReturn(context.Background(), "SPY", 10)
	if err != nil {
		t.Fatalf("BenchmarkReturn: %v", err)
	}
	want := (550.0 - 500.0) / 500.0 * 100
	if !approxEqual(ret, want, 1e-9) {
		t.Errorf("expected %.4f%% from windowed bars, got %.4f%%", want, ret)
	}
}

func TestBenchmarkReturn_InsufficientHistory(t *testing.T) {
	now := time.Now()
	svc, storage := newTestService(&mockClient{})
	storage.data["SPY"] = &models.MarketData{
		Symbol:                "SPY",
		EOD:                   dailyBars(now, 500),
		EODUpdatedAt:          now,
		QuoteUpdatedAt:        now,
		FundamentalsUpdatedAt: now,
	}

	_, err := svc.BenchmarkReturn(context.Background(), "SPY", 30)
	if err == nil {
		t.Error("expected error with a single bar")
	}
}

func TestRefreshStaleData(t *testing.T) {
	now := time.Now()
	client := &mockClient{
		quoteFn: func(_ context.Context, symbol string) (*models.Quote, error) {
			return &models.Quote{Symbol: symbol, Price: 1}, nil
		},
		eodFn: func(_ context.Context, symbol string, _ ...interfaces.EODOption) ([]models.EODBar, error) {
			return dailyBars(now.AddDate(0, 0, -2), 1, 2), nil
		},
		fundamentalsFn: func(_ context.Context, symbol string) (*models.Fundamentals, error) {
			return &models.Fundamentals{Symbol: symbol}, nil
		},
	}
	svc, storage := newTestService(client)
	storage.stale = []string{"OLD1", "OLD2"}

	if err := svc.RefreshStaleData(context.Background()); err != nil {
		t.Fatalf("RefreshStaleData: %v", err)
	}
	if len(storage.data) != 2 {
		t.Errorf("expected 2 refreshed symbols, got %d", len(storage.data))
	}
}

func TestMergeEODBars_ReplacesSameDate(t *testing.T) {
	day := time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC)
	existing := []models.EODBar{
		{Date: day.AddDate(0, 0, -1), Close: 100},
		{Date: day, Close: 101}, // intraday provisional bar
	}
	updated := []models.EODBar{
		{Date: day, Close: 102}, // settled close
		{Date: day.AddDate(0, 0, 1), Close: 103},
	}

	merged := mergeEODBars(existing, updated)
	if len(merged) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(merged))
	}
	if merged[1].Close != 102 {
		t.Errorf("same-date bar should be replaced by newer data, got %.2f", merged[1].Close)
	}
	if merged[2].Close != 103 {
		t.Errorf("expected appended bar 103, got %.2f", merged[2].Close)
	}
}
