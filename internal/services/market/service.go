// Package market provides market data collection and caching services
package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

// historyYears is the EOD lookback for a full fetch. Three years covers the
// 200-day moving average plus the longest analysis window with margin.
const historyYears = 3

// Service implements MarketService
type Service struct {
	storage interfaces.StorageManager
	client  interfaces.MarketDataClient
	logger  *common.Logger
}

// NewService creates a new market service
func NewService(storage interfaces.StorageManager, client interfaces.MarketDataClient, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		client:  client,
		logger:  logger,
	}
}

// EnsureMarketData fetches and stores market data for symbols.
// Each component (quote, EOD history, fundamentals) has its own freshness
// window; only stale components are re-fetched unless force is set.
// A failed symbol is logged and skipped, the rest still collect.
func (s *Service) EnsureMarketData(ctx context.Context, symbols []string, force bool) error {
	if s.client == nil {
		return fmt.Errorf("no market data client configured")
	}
	now := time.Now()

	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		s.logger.Debug().Str("symbol", symbol).Bool("force", force).Msg("Collecting market data")

		existing, _ := s.storage.MarketDataStorage().GetMarketData(ctx, symbol)

		marketData := &models.MarketData{Symbol: symbol}
		if existing != nil {
			marketData = existing
		}

		changed := false

		// --- Quote ---
		if force || existing == nil || !common.IsFresh(existing.QuoteUpdatedAt, common.FreshnessTodayBar) {
			quote, err := s.client.GetQuote(ctx, symbol)
			if err != nil {
				s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Failed to fetch quote")
			} else {
				marketData.Quote = quote
				marketData.QuoteUpdatedAt = now
				changed = true
			}
		}

		// --- EOD bars ---
		if force || existing == nil || !common.IsFresh(existing.EODUpdatedAt, common.FreshnessEODHistory) {
			var bars []models.EODBar
			var err error

			// Incremental fetch: only bars after the latest stored date
			if !force && existing != nil && len(existing.EOD) > 0 {
				latest := existing.EOD[len(existing.EOD)-1].Date
				from := latest.AddDate(0, 0, 1)
				if from.Before(now) {
					s.logger.Debug().Str("symbol", symbol).Str("from", from.Format("2006-01-02")).Msg("Incremental EOD fetch")
					bars, err = s.client.GetEOD(ctx, symbol, interfaces.WithDateRange(from, now))
					if err != nil {
						s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Failed to fetch incremental EOD data")
					} else if len(bars) > 0 {
						marketData.EOD = mergeEODBars(existing.EOD, bars)
						changed = true
					}
				}
				// Even with no new bars, record the check
				marketData.EODUpdatedAt = now
				changed = true
			} else {
				bars, err = s.client.GetEOD(ctx, symbol, interfaces.WithDateRange(now.AddDate(-historyYears, 0, 0), now))
				if err != nil {
					s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Failed to fetch EOD data")
					continue
				}
				marketData.EOD = bars
				marketData.EODUpdatedAt = now
				changed = true
			}
		}

		// --- Fundamentals ---
		if force || existing == nil || !common.IsFresh(existing.FundamentalsUpdatedAt, common.FreshnessFundamentals) {
			fundamentals, err := s.client.GetFundamentals(ctx, symbol)
			if err != nil {
				s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Failed to fetch fundamentals")
			} else {
				marketData.Fundamentals = fundamentals
				if fundamentals.Name != "" {
					marketData.Name = fundamentals.Name
				}
				marketData.FundamentalsUpdatedAt = now
				changed = true
			}
		}

		if !changed {
			continue
		}

		if err := s.storage.MarketDataStorage().SaveMarketData(ctx, marketData); err != nil {
			s.logger.Error().Str("symbol", symbol).Err(err).Msg("Failed to save market data")
			continue
		}
		s.logger.Info().
			Str("symbol", symbol).
			Int("bars", len(marketData.EOD)).
			Msg("Market data collected")
	}

	return nil
}

// GetMarketData returns cached data for a symbol, fetching it first when
// nothing is cached yet.
func (s *Service) GetMarketData(ctx context.Context, symbol string) (*models.MarketData, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	data, err := s.storage.MarketDataStorage().GetMarketData(ctx, symbol)
	if err == nil && len(data.EOD) > 0 {
		return data, nil
	}

	if err := s.EnsureMarketData(ctx, []string{symbol}, false); err != nil {
		return nil, fmt.Errorf("failed to collect market data for %s: %w", symbol, err)
	}
	data, err = s.storage.MarketDataStorage().GetMarketData(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("no market data available for %s", symbol)
	}
	return data, nil
}

// BenchmarkReturn computes a reference index's total return percentage over
// the trailing period.
func (s *Service) BenchmarkReturn(ctx context.Context, symbol string, days int) (float64, error) {
	data, err := s.GetMarketData(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("benchmark data unavailable for %s: %w", symbol, err)
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	bars := data.BarsSince(cutoff)
	if len(bars) < 2 {
		return 0, fmt.Errorf("insufficient price history for benchmark %s over %d days", symbol, days)
	}

	first := bars[0].Close
	last := bars[len(bars)-1].Close
	if first <= 0 {
		return 0, fmt.Errorf("invalid starting price for benchmark %s", symbol)
	}
	return (last - first) / first * 100, nil
}

// RefreshStaleData re-collects every symbol whose snapshot is older than the
// EOD history freshness window. Used by the scheduler after market close.
func (s *Service) RefreshStaleData(ctx context.Context) error {
	stale, err := s.storage.MarketDataStorage().GetStaleSymbols(ctx, common.FreshnessEODHistory)
	if err != nil {
		return fmt.Errorf("failed to list stale symbols: %w", err)
	}
	if len(stale) == 0 {
		s.logger.Debug().Msg("No stale market data")
		return nil
	}
	s.logger.Info().Int("count", len(stale)).Msg("Refreshing stale market data")
	return s.EnsureMarketData(ctx, stale, false)
}

// mergeEODBars merges new bars into an existing ascending series. A new bar
// on an existing date replaces it (today's bar firms up after the close).
func mergeEODBars(existing, newBars []models.EODBar) []models.EODBar {
	byDate := make(map[string]models.EODBar, len(existing)+len(newBars))
	for _, b := range existing {
		byDate[b.Date.Format("2006-01-02")] = b
	}
	for _, b := range newBars {
		byDate[b.Date.Format("2006-01-02")] = b
	}

	merged := make([]models.EODBar, 0, len(byDate))
	for _, b := range byDate {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})
	return merged
}

// Ensure Service implements the interface
var _ interfaces.MarketService = (*Service)(nil)
