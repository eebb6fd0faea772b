package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

func TestHandleAnalyze_Success(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")

	var gotSymbol string
	var gotOpts interfaces.StockAnalyzeOptions
	srv.app.AnalysisService = &mockAnalysisService{
		analyzeFn: func(ctx context.Context, symbol string, opts interfaces.StockAnalyzeOptions) (*models.StockAnalysis, error) {
			gotSymbol = symbol
			gotOpts = opts
			return &models.StockAnalysis{Symbol: symbol}, nil
		},
	}

	req := withAuth(httptest.NewRequest(http.MethodGet, "/api/analyze/RY.TO", nil), userID)
	rec := httptest.NewRecorder()
	srv.handleAnalyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotSymbol != "RY.TO" {
		t.Errorf("expected symbol RY.TO, got %q", gotSymbol)
	}
	if gotOpts.PeriodMonths != srv.app.Config.Analysis.DefaultMonths {
		t.Errorf("expected default months %d, got %d", srv.app.Config.Analysis.DefaultMonths, gotOpts.PeriodMonths)
	}
	if !gotOpts.IncludeTechnical {
		t.Error("technical analysis should default to on")
	}
}

func TestHandleAnalyze_BumpsAnalysisCounter(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")

	srv.app.AnalysisService = &mockAnalysisService{
		analyzeFn: func(ctx context.Context, symbol string, opts interfaces.StockAnalyzeOptions) (*models.StockAnalysis, error) {
			return &models.StockAnalysis{Symbol: symbol}, nil
		},
	}

	for i := 0; i < 3; i++ {
		req := withAuth(httptest.NewRequest(http.MethodGet, "/api/analyze/RY.TO", nil), userID)
		rec := httptest.NewRecorder()
		srv.handleAnalyze(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("analyze %d failed: %d", i, rec.Code)
		}
	}

	user, err := srv.app.Storage.InternalStore().GetUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.TotalAnalyses != 3 {
		t.Errorf("expected 3 recorded analyses, got %d", user.TotalAnalyses)
	}
	if user.LastAnalysisAt.IsZero() {
		t.Error("expected last_analysis_at to be set")
	}
}

func TestHandleAnalyze_QueryOptions(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")

	var gotOpts interfaces.StockAnalyzeOptions
	srv.app.AnalysisService = &mockAnalysisService{
		analyzeFn: func(ctx context.Context, symbol string, opts interfaces.StockAnalyzeOptions) (*models.StockAnalysis, error) {
			gotOpts = opts
			return &models.StockAnalysis{Symbol: symbol}, nil
		},
	}

	req := withAuth(httptest.NewRequest(http.MethodGet, "/api/analyze/RY.TO?months=6&technical=false", nil), userID)
	rec := httptest.NewRecorder()
	srv.handleAnalyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotOpts.PeriodMonths != 6 {
		t.Errorf("expected 6 months, got %d", gotOpts.PeriodMonths)
	}
	if gotOpts.IncludeTechnical {
		t.Error("technical=false should disable technical analysis")
	}
}

func TestHandleAnalyze_EmptySymbol(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")

	req := withAuth(httptest.NewRequest(http.MethodGet, "/api/analyze/", nil), userID)
	rec := httptest.NewRecorder()
	srv.handleAnalyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAnalyze_BadMonths(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")

	req := withAuth(httptest.NewRequest(http.MethodGet, "/api/analyze/RY.TO?months=abc", nil), userID)
	rec := httptest.NewRecorder()
	srv.handleAnalyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAnalyze_ErrorMapping(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"no market data", errors.New("no market data for ZZZZ"), http.StatusNotFound},
		{"not found", errors.New("symbol not found"), http.StatusNotFound},
		{"internal", errors.New("scoring exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv.app.AnalysisService = &mockAnalysisService{
				analyzeFn: func(ctx context.Context, symbol string, opts interfaces.StockAnalyzeOptions) (*models.StockAnalysis, error) {
					return nil, tc.err
				},
			}
			req := withAuth(httptest.NewRequest(http.MethodGet, "/api/analyze/ZZZZ", nil), userID)
			rec := httptest.NewRecorder()
			srv.handleAnalyze(rec, req)
			if rec.Code != tc.status {
				t.Errorf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleAnalyze_Unauthenticated(t *testing.T) {
	srv := newTestServerWithStorage(t)

	req := httptest.NewRequest(http.MethodGet, "/api/analyze/RY.TO", nil)
	rec := httptest.NewRecorder()
	srv.handleAnalyze(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestHandleAnalyze_MethodNotAllowed(t *testing.T) {
	srv := newTestServerWithStorage(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/RY.TO", nil)
	rec := httptest.NewRecorder()
	srv.handleAnalyze(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestHandleBatchAnalyze_Success(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")

	var gotSymbols, gotKinds []string
	srv.app.BatchService = &mockBatchService{
		analyzeFn: func(ctx context.Context, symbols []string, kinds []string) (*models.BatchResult, error) {
			gotSymbols, gotKinds = symbols, kinds
			return &models.BatchResult{Results: map[string]*models.StockAnalysis{}}, nil
		},
	}

	body := jsonBody(t, map[string]interface{}{
		"symbols": []string{"RY.TO", "TD.TO"},
		"kinds":   []string{"three_factor"},
	})
	req := withAuth(httptest.NewRequest(http.MethodPost, "/api/batch/analyze", body), userID)
	rec := httptest.NewRecorder()
	srv.handleBatchAnalyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(gotSymbols) != 2 || gotSymbols[0] != "RY.TO" {
		t.Errorf("unexpected symbols: %v", gotSymbols)
	}
	if len(gotKinds) != 1 || gotKinds[0] != "three_factor" {
		t.Errorf("unexpected kinds: %v", gotKinds)
	}
}

func TestHandleBatchAnalyze_Validation(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")
	srv.app.BatchService = &mockBatchService{}

	tooMany := make([]string, 51)
	for i := range tooMany {
		tooMany[i] = "SYM"
	}

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"no symbols field", map[string]interface{}{"kinds": []string{"three_factor"}}},
		{"empty symbols", map[string]interface{}{"symbols": []string{}}},
		{"over limit", map[string]interface{}{"symbols": tooMany}},
		{"blank entry", map[string]interface{}{"symbols": []string{"RY.TO", ""}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := withAuth(httptest.NewRequest(http.MethodPost, "/api/batch/analyze", jsonBody(t, tc.body)), userID)
			rec := httptest.NewRecorder()
			srv.handleBatchAnalyze(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleBatchAnalyze_UnknownKind(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")

	srv.app.BatchService = &mockBatchService{
		analyzeFn: func(ctx context.Context, symbols []string, kinds []string) (*models.BatchResult, error) {
			return nil, errors.New(`unknown analysis kind "astrology"`)
		},
	}

	body := jsonBody(t, map[string]interface{}{"symbols": []string{"RY.TO"}, "kinds": []string{"astrology"}})
	req := withAuth(httptest.NewRequest(http.MethodPost, "/api/batch/analyze", body), userID)
	rec := httptest.NewRecorder()
	srv.handleBatchAnalyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleBatchScreen(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")

	var gotCriteria models.ScreenCriteria
	srv.app.BatchService = &mockBatchService{
		screenFn: func(ctx context.Context, symbols []string, criteria models.ScreenCriteria) (*models.ScreenResult, error) {
			gotCriteria = criteria
			return &models.ScreenResult{Criteria: criteria, TotalScreened: len(symbols)}, nil
		},
	}

	body := jsonBody(t, map[string]interface{}{
		"symbols":  []string{"RY.TO", "TD.TO"},
		"criteria": map[string]interface{}{"volatility_max": 30.0, "price_min": 5.0},
	})
	req := withAuth(httptest.NewRequest(http.MethodPost, "/api/batch/screen", body), userID)
	rec := httptest.NewRecorder()
	srv.handleBatchScreen(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCriteria.VolatilityMax != 30 || gotCriteria.PriceMin != 5 {
		t.Errorf("criteria not passed through: %+v", gotCriteria)
	}
}

func TestHandleBatchScreen_EmptySymbols(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")
	srv.app.BatchService = &mockBatchService{}

	body := jsonBody(t, map[string]interface{}{"symbols": []string{}})
	req := withAuth(httptest.NewRequest(http.MethodPost, "/api/batch/screen", body), userID)
	rec := httptest.NewRecorder()
	srv.handleBatchScreen(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleBatchCompare(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")

	srv.app.BatchService = &mockBatchService{
		compareFn: func(ctx context.Context, symbols []string) (*models.CompareResult, error) {
			return &models.CompareResult{
				Symbols:  symbols,
				Rankings: []models.ComparisonEntry{{Rank: 1, Symbol: symbols[0]}},
			}, nil
		},
	}

	body := jsonBody(t, map[string]interface{}{"symbols": []string{"RY.TO", "TD.TO"}})
	req := withAuth(httptest.NewRequest(http.MethodPost, "/api/batch/compare", body), userID)
	rec := httptest.NewRecorder()
	srv.handleBatchCompare(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result models.CompareResult
	json.NewDecoder(rec.Body).Decode(&result)
	if len(result.Rankings) != 1 || result.Rankings[0].Symbol != "RY.TO" {
		t.Errorf("unexpected rankings: %+v", result.Rankings)
	}
}

func TestHandleBatchCompare_SingleSymbol(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")
	srv.app.BatchService = &mockBatchService{}

	body := jsonBody(t, map[string]interface{}{"symbols": []string{"RY.TO"}})
	req := withAuth(httptest.NewRequest(http.MethodPost, "/api/batch/compare", body), userID)
	rec := httptest.NewRecorder()
	srv.handleBatchCompare(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for single symbol, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "symbols") {
		t.Errorf("expected validation message about symbols, got %s", rec.Body.String())
	}
}
