package portfolio

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/mapletrade/internal/models"
)

// defaultGrowthDays is the lookback window when none is requested.
const defaultGrowthDays = 365

// Growth returns daily portfolio value data points over a lookback period.
// It bulk-loads market data once then iterates dates in memory, so the cost
// is O(holdings) reads instead of O(days x holdings).
func (s *Service) Growth(ctx context.Context, userID, portfolioID string, days int) ([]models.GrowthPoint, error) {
	start := time.Now()

	p, err := s.loadPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = defaultGrowthDays
	}

	// End at yesterday: today's bar may not exist yet
	to := time.Now().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -(days - 1))
	if earliest := earliestPurchaseDate(p.Positions); !earliest.IsZero() && earliest.After(from) {
		from = earliest.Truncate(24 * time.Hour)
	}

	dates := generateCalendarDates(from, to)
	if len(dates) == 0 {
		return nil, nil
	}

	symbols := p.Symbols()
	marketData, err := s.storage.MarketDataStorage().GetMarketDataBatch(ctx, symbols)
	if err != nil {
		s.logger.Warn().Err(err).Str("portfolio_id", portfolioID).Msg("Market data batch load failed")
	}
	bySymbol := make(map[string]*models.MarketData, len(marketData))
	for _, md := range marketData {
		bySymbol[strings.ToUpper(md.Symbol)] = md
	}

	points := make([]models.GrowthPoint, 0, len(dates))
	for _, date := range dates {
		var value, cost float64
		for _, pos := range p.Positions {
			if !positionActiveOn(pos, date) {
				continue
			}
			cost += pos.CostBasis()

			md := bySymbol[strings.ToUpper(pos.Symbol)]
			if md == nil {
				continue
			}
			closePrice, found := findClosingPriceAsOf(md.EOD, date)
			if !found {
				continue
			}
			value += pos.Shares * closePrice
		}

		// Leading dates before any data exist produce empty points
		if value == 0 && cost == 0 {
			continue
		}
		points = append(points, models.GrowthPoint{Date: date, Value: value, Cost: cost})
	}

	s.logger.Info().
		Str("portfolio_id", portfolioID).
		Int("days", len(dates)).
		Int("points", len(points)).
		Dur("elapsed", time.Since(start)).
		Msg("Portfolio growth computed")
	return points, nil
}

// positionActiveOn reports whether a lot was held on the given date. Lots
// without a purchase date count for the whole window.
func positionActiveOn(pos models.Position, date time.Time) bool {
	if pos.PurchaseDate.IsZero() {
		return true
	}
	return !pos.PurchaseDate.Truncate(24 * time.Hour).After(date)
}

// earliestPurchaseDate scans all lots for the oldest purchase date
func earliestPurchaseDate(positions []models.Position) time.Time {
	var earliest time.Time
	for _, pos := range positions {
		if pos.PurchaseDate.IsZero() {
			continue
		}
		if earliest.IsZero() || pos.PurchaseDate.Before(earliest) {
			earliest = pos.PurchaseDate
		}
	}
	return earliest
}

// generateCalendarDates produces one date per day from start to end inclusive
func generateCalendarDates(start, end time.Time) []time.Time {
	start = start.Truncate(24 * time.Hour)
	end = end.Truncate(24 * time.Hour)
	if end.Before(start) {
		return nil
	}

	days := int(end.Sub(start).Hours()/24) + 1
	dates := make([]time.Time, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// findClosingPriceAsOf binary-searches EOD bars (ascending by date) for the
// last bar at or before the target date
func findClosingPriceAsOf(bars []models.EODBar, asOf time.Time) (float64, bool) {
	if len(bars) == 0 {
		return 0, false
	}
	target := asOf.Truncate(24 * time.Hour)

	// First index strictly after the target; the bar before it is the answer
	idx := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.Truncate(24 * time.Hour).After(target)
	})
	if idx == 0 {
		return 0, false
	}
	return bars[idx-1].Close, true
}
