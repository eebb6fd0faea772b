package server

import (
	"context"
	"errors"

	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

var errNotMocked = errors.New("not mocked")

// mockAnalysisService lets tests script AnalyzeStock responses.
type mockAnalysisService struct {
	analyzeFn func(ctx context.Context, symbol string, opts interfaces.StockAnalyzeOptions) (*models.StockAnalysis, error)
}

var _ interfaces.AnalysisService = (*mockAnalysisService)(nil)

func (m *mockAnalysisService) AnalyzeStock(ctx context.Context, symbol string, opts interfaces.StockAnalyzeOptions) (*models.StockAnalysis, error) {
	if m.analyzeFn == nil {
		return nil, errNotMocked
	}
	return m.analyzeFn(ctx, symbol, opts)
}

// mockBatchService lets tests script batch responses.
type mockBatchService struct {
	analyzeFn func(ctx context.Context, symbols []string, kinds []string) (*models.BatchResult, error)
	screenFn  func(ctx context.Context, symbols []string, criteria models.ScreenCriteria) (*models.ScreenResult, error)
	compareFn func(ctx context.Context, symbols []string) (*models.CompareResult, error)
}

var _ interfaces.BatchService = (*mockBatchService)(nil)

func (m *mockBatchService) AnalyzeStocks(ctx context.Context, symbols []string, kinds []string) (*models.BatchResult, error) {
	if m.analyzeFn == nil {
		return nil, errNotMocked
	}
	return m.analyzeFn(ctx, symbols, kinds)
}

func (m *mockBatchService) Screen(ctx context.Context, symbols []string, criteria models.ScreenCriteria) (*models.ScreenResult, error) {
	if m.screenFn == nil {
		return nil, errNotMocked
	}
	return m.screenFn(ctx, symbols, criteria)
}

func (m *mockBatchService) Compare(ctx context.Context, symbols []string) (*models.CompareResult, error) {
	if m.compareFn == nil {
		return nil, errNotMocked
	}
	return m.compareFn(ctx, symbols)
}

// mockReportService lets tests script report assembly and history.
type mockReportService struct {
	createFn  func(ctx context.Context, userID, portfolioID string, reportType models.ReportType) (*models.Report, error)
	historyFn func(ctx context.Context, userID, portfolioID string, limit int) ([]*models.Report, error)
}

var _ interfaces.ReportService = (*mockReportService)(nil)

func (m *mockReportService) CreateReport(ctx context.Context, userID, portfolioID string, reportType models.ReportType) (*models.Report, error) {
	if m.createFn == nil {
		return nil, errNotMocked
	}
	return m.createFn(ctx, userID, portfolioID, reportType)
}

func (m *mockReportService) GetReportHistory(ctx context.Context, userID, portfolioID string, limit int) ([]*models.Report, error) {
	if m.historyFn == nil {
		return nil, errNotMocked
	}
	return m.historyFn(ctx, userID, portfolioID, limit)
}

// mockPortfolioService covers the handlers that map service errors to
// status codes without a full storage round trip.
type mockPortfolioService struct {
	chartFn  func(ctx context.Context, userID, portfolioID string, days int) ([]byte, error)
	importFn func(ctx context.Context, userID, name string, pdfData []byte) (*models.Portfolio, error)
}

var _ interfaces.PortfolioService = (*mockPortfolioService)(nil)

func (m *mockPortfolioService) CreatePortfolio(ctx context.Context, portfolio *models.Portfolio) error {
	return errNotMocked
}

func (m *mockPortfolioService) GetPortfolio(ctx context.Context, userID, portfolioID string) (*models.Portfolio, error) {
	return nil, errNotMocked
}

func (m *mockPortfolioService) ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	return nil, errNotMocked
}

func (m *mockPortfolioService) UpdatePortfolio(ctx context.Context, portfolio *models.Portfolio) error {
	return errNotMocked
}

func (m *mockPortfolioService) DeletePortfolio(ctx context.Context, userID, portfolioID string) error {
	return errNotMocked
}

func (m *mockPortfolioService) AddPosition(ctx context.Context, userID, portfolioID string, position models.Position) (*models.Portfolio, error) {
	return nil, errNotMocked
}

func (m *mockPortfolioService) RemovePosition(ctx context.Context, userID, portfolioID, symbol string) (*models.Portfolio, error) {
	return nil, errNotMocked
}

func (m *mockPortfolioService) Analyze(ctx context.Context, userID, portfolioID string, opts interfaces.PortfolioAnalyzeOptions) (*models.PortfolioAnalysis, error) {
	return nil, errNotMocked
}

func (m *mockPortfolioService) Growth(ctx context.Context, userID, portfolioID string, days int) ([]models.GrowthPoint, error) {
	return nil, errNotMocked
}

func (m *mockPortfolioService) RenderGrowthChart(ctx context.Context, userID, portfolioID string, days int) ([]byte, error) {
	if m.chartFn == nil {
		return nil, errNotMocked
	}
	return m.chartFn(ctx, userID, portfolioID, days)
}

func (m *mockPortfolioService) RenderAllocationChart(ctx context.Context, userID, portfolioID string) ([]byte, error) {
	return nil, errNotMocked
}

func (m *mockPortfolioService) ImportStatement(ctx context.Context, userID, name string, pdfData []byte) (*models.Portfolio, error) {
	if m.importFn == nil {
		return nil, errNotMocked
	}
	return m.importFn(ctx, userID, name, pdfData)
}
