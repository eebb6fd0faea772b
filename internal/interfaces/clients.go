// Package interfaces defines service contracts for MapleTrade
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/mapletrade/internal/models"
)

// MarketDataClient provides access to the upstream market data API
type MarketDataClient interface {
	// GetQuote retrieves the latest price snapshot
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// GetEOD retrieves end-of-day price history
	GetEOD(ctx context.Context, symbol string, opts ...EODOption) ([]models.EODBar, error)

	// GetFundamentals retrieves fundamental data
	GetFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error)
}

// EODOption configures EOD data requests
type EODOption func(*EODParams)

// EODParams holds EOD query parameters
type EODParams struct {
	From  time.Time
	To    time.Time
	Limit int
}

// WithDateRange sets the date range for EOD query
func WithDateRange(from, to time.Time) EODOption {
	return func(p *EODParams) {
		p.From = from
		p.To = to
	}
}

// WithLimit sets the limit for EOD query
func WithLimit(limit int) EODOption {
	return func(p *EODParams) {
		p.Limit = limit
	}
}
