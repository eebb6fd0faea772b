// Package interfaces defines service contracts for MapleTrade
package interfaces

import (
	"context"

	"github.com/bobmcallan/mapletrade/internal/models"
)

// MarketService handles market data collection and caching
type MarketService interface {
	// EnsureMarketData fetches and stores market data for symbols.
	// When force is true, all data is re-fetched regardless of freshness.
	EnsureMarketData(ctx context.Context, symbols []string, force bool) error

	// GetMarketData returns cached data for a symbol, fetching it when
	// missing or stale
	GetMarketData(ctx context.Context, symbol string) (*models.MarketData, error)

	// BenchmarkReturn computes a reference index's return percentage over
	// a lookback period in days
	BenchmarkReturn(ctx context.Context, symbol string, days int) (float64, error)

	// RefreshStaleData updates outdated market data
	RefreshStaleData(ctx context.Context) error
}

// StockAnalyzeOptions configures single-stock analysis
type StockAnalyzeOptions struct {
	PeriodMonths     int  // lookback window, default 6
	IncludeTechnical bool // compute indicator bundle
}

// AnalysisService evaluates individual stocks
type AnalysisService interface {
	// AnalyzeStock runs the three-factor model, fundamental assessment,
	// and optional technical indicators for one symbol, then combines
	// the signals into a single recommendation
	AnalyzeStock(ctx context.Context, symbol string, opts StockAnalyzeOptions) (*models.StockAnalysis, error)
}

// PortfolioAnalyzeOptions configures portfolio analysis
type PortfolioAnalyzeOptions struct {
	PeriodDays       int  // lookback window, default 30
	IncludeTechnical bool // attach per-holding indicators
}

// PortfolioService manages portfolios and their analysis
type PortfolioService interface {
	// CreatePortfolio stores a new portfolio for a user
	CreatePortfolio(ctx context.Context, portfolio *models.Portfolio) error

	// GetPortfolio retrieves a portfolio, scoped to the owning user
	GetPortfolio(ctx context.Context, userID, portfolioID string) (*models.Portfolio, error)

	// ListPortfolios returns all portfolios owned by a user
	ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error)

	// UpdatePortfolio replaces a stored portfolio
	UpdatePortfolio(ctx context.Context, portfolio *models.Portfolio) error

	// DeletePortfolio removes a portfolio and its derived reports
	DeletePortfolio(ctx context.Context, userID, portfolioID string) error

	// AddPosition appends a position and returns the updated portfolio
	AddPosition(ctx context.Context, userID, portfolioID string, position models.Position) (*models.Portfolio, error)

	// RemovePosition drops all lots for a symbol and returns the updated portfolio
	RemovePosition(ctx context.Context, userID, portfolioID, symbol string) (*models.Portfolio, error)

	// Analyze produces the full analysis snapshot for a portfolio
	Analyze(ctx context.Context, userID, portfolioID string, opts PortfolioAnalyzeOptions) (*models.PortfolioAnalysis, error)

	// Growth returns the portfolio value series over a lookback period
	Growth(ctx context.Context, userID, portfolioID string, days int) ([]models.GrowthPoint, error)

	// RenderGrowthChart renders the growth series as a PNG
	RenderGrowthChart(ctx context.Context, userID, portfolioID string, days int) ([]byte, error)

	// RenderAllocationChart renders the sector allocation as a PNG donut
	RenderAllocationChart(ctx context.Context, userID, portfolioID string) ([]byte, error)

	// ImportStatement parses a broker statement PDF into a new portfolio
	ImportStatement(ctx context.Context, userID, name string, pdfData []byte) (*models.Portfolio, error)
}

// ReportService assembles and stores portfolio reports
type ReportService interface {
	// CreateReport assembles a report of the given type and persists it.
	// Every successful assembly increments the user's analysis counter.
	CreateReport(ctx context.Context, userID, portfolioID string, reportType models.ReportType) (*models.Report, error)

	// GetReportHistory returns recent stored reports, newest first
	GetReportHistory(ctx context.Context, userID, portfolioID string, limit int) ([]*models.Report, error)
}

// BatchService fans analysis out across many symbols
type BatchService interface {
	// AnalyzeStocks analyzes each symbol independently. Kinds selects
	// which analyses run (three_factor, fundamental, technical); empty
	// means all. One symbol's failure never aborts the batch.
	AnalyzeStocks(ctx context.Context, symbols []string, kinds []string) (*models.BatchResult, error)

	// Screen filters symbols against criteria
	Screen(ctx context.Context, symbols []string, criteria models.ScreenCriteria) (*models.ScreenResult, error)

	// Compare ranks symbols by combined recommendation strength
	Compare(ctx context.Context, symbols []string) (*models.CompareResult, error)
}
