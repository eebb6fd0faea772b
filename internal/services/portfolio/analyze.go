package portfolio

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
	"github.com/bobmcallan/mapletrade/internal/scoring"
	"github.com/bobmcallan/mapletrade/internal/signals"
)

// defaultAnalysisPeriodDays is the lookback window when none is requested.
const defaultAnalysisPeriodDays = 30

// mergedLot aggregates all lots of one symbol into a single holding input
type mergedLot struct {
	Symbol string
	Name   string
	Sector string
	Shares float64
	Cost   float64
}

// Analyze builds the full analysis snapshot for a portfolio. Holdings with no
// cached market data are kept but degraded: no price, zero volatility, no
// technical indicators. The snapshot itself never fails on missing data.
func (s *Service) Analyze(ctx context.Context, userID, portfolioID string, opts interfaces.PortfolioAnalyzeOptions) (*models.PortfolioAnalysis, error) {
	start := time.Now()

	p, err := s.loadPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	periodDays := opts.PeriodDays
	if periodDays <= 0 {
		periodDays = defaultAnalysisPeriodDays
	}

	notes := s.loadReviewNotes(ctx, userID, portfolioID)
	if notes == nil {
		notes = []string{}
	}
	analysis := &models.PortfolioAnalysis{
		PortfolioID:     p.ID,
		PortfolioName:   p.Name,
		PeriodDays:      periodDays,
		Holdings:        []models.Holding{},
		Recommendations: notes,
		GeneratedAt:     time.Now(),
	}
	analysis.RiskMetrics.RiskLevel = "low"

	symbols := p.Symbols()
	if len(symbols) == 0 {
		return analysis, nil
	}

	// Warm the cache; stale or missing symbols degrade individually below
	if err := s.market.EnsureMarketData(ctx, symbols, false); err != nil {
		s.logger.Warn().Err(err).Str("portfolio_id", portfolioID).Msg("Market data refresh failed, analyzing with cached data")
	}

	marketData, err := s.storage.MarketDataStorage().GetMarketDataBatch(ctx, symbols)
	if err != nil {
		s.logger.Warn().Err(err).Str("portfolio_id", portfolioID).Msg("Market data batch load failed")
	}
	bySymbol := make(map[string]*models.MarketData, len(marketData))
	for _, md := range marketData {
		bySymbol[strings.ToUpper(md.Symbol)] = md
	}

	cutoff := time.Now().AddDate(0, 0, -periodDays)
	lots := mergeLots(p.Positions)

	var totalValue, totalCost float64
	holdings := make([]models.Holding, 0, len(lots))
	for _, lot := range lots {
		h := models.Holding{
			Symbol:    lot.Symbol,
			Name:      lot.Name,
			Sector:    lot.Sector,
			Shares:    lot.Shares,
			CostBasis: lot.Cost,
		}

		md := bySymbol[lot.Symbol]
		if md != nil {
			if h.Name == "" {
				h.Name = md.Name
			}
			if h.Sector == "" && md.Fundamentals != nil {
				h.Sector = md.Fundamentals.Sector
			}
			h.CurrentPrice = md.LatestClose()
		}

		if h.CurrentPrice > 0 {
			h.Value = h.Shares * h.CurrentPrice
			h.GainLoss = h.Value - h.CostBasis
			if h.CostBasis > 0 {
				h.GainLossPct = h.GainLoss / h.CostBasis * 100
			}

			closes := closingPrices(md.BarsSince(cutoff))
			if vol, ok := signals.Volatility(closes); ok {
				h.Volatility = vol
			}
			if opts.IncludeTechnical {
				h.Technical = holdingTechnical(closes)
			}
		}

		totalValue += h.Value
		totalCost += h.CostBasis
		holdings = append(holdings, h)
	}

	// Weights need the final total, so they are a second pass
	weights := make([]float64, 0, len(holdings))
	for i := range holdings {
		if totalValue > 0 {
			holdings[i].Weight = holdings[i].Value / totalValue * 100
		}
		weights = append(weights, holdings[i].Weight)
	}

	analysis.Holdings = holdings
	analysis.Summary = models.PortfolioSummary{
		TotalValue:    totalValue,
		TotalCost:     totalCost,
		TotalGainLoss: totalValue - totalCost,
	}
	if totalCost > 0 {
		analysis.Summary.TotalReturnPct = (totalValue - totalCost) / totalCost * 100
	}

	analysis.RiskMetrics = buildRiskMetrics(holdings, weights)
	analysis.SectorAllocation = buildSectorAllocation(holdings, totalValue)

	s.logger.Info().
		Str("portfolio_id", portfolioID).
		Int("holdings", len(holdings)).
		Float64("total_value", totalValue).
		Str("risk_level", analysis.RiskMetrics.RiskLevel).
		Dur("elapsed", time.Since(start)).
		Msg("Portfolio analyzed")
	return analysis, nil
}

// mergeLots combines multiple lots per symbol, keeping the first non-empty
// name and sector seen
func mergeLots(positions []models.Position) []mergedLot {
	index := make(map[string]int, len(positions))
	lots := make([]mergedLot, 0, len(positions))
	for _, pos := range positions {
		sym := strings.ToUpper(strings.TrimSpace(pos.Symbol))
		if sym == "" {
			continue
		}
		i, ok := index[sym]
		if !ok {
			i = len(lots)
			index[sym] = i
			lots = append(lots, mergedLot{Symbol: sym})
		}
		lots[i].Shares += pos.Shares
		lots[i].Cost += pos.CostBasis()
		if lots[i].Name == "" {
			lots[i].Name = pos.Name
		}
		if lots[i].Sector == "" {
			lots[i].Sector = pos.Sector
		}
	}
	return lots
}

// holdingTechnical computes the per-holding indicator map. Indicators that
// need more history than available are simply absent.
func holdingTechnical(closes []float64) map[string]float64 {
	tech := make(map[string]float64)
	if rsi, ok := signals.RSI(closes, 14); ok {
		tech["rsi"] = rsi
	}
	if sma, ok := signals.SMA(closes, 20); ok {
		tech["sma_20"] = sma
	}
	if macd, ok := signals.MACD(closes); ok {
		tech["macd"] = macd.MACD
	}
	if len(tech) == 0 {
		return nil
	}
	return tech
}

// buildRiskMetrics derives the portfolio risk block. Portfolio volatility is
// the value-weighted mean of holding volatilities.
func buildRiskMetrics(holdings []models.Holding, weights []float64) models.RiskMetrics {
	var volatility, maxWeight float64
	for i, h := range holdings {
		volatility += weights[i] / 100 * h.Volatility
		if weights[i] > maxWeight {
			maxWeight = weights[i]
		}
	}
	concentration := scoring.ConcentrationIndex(weights)
	return models.RiskMetrics{
		PortfolioVolatility: volatility,
		ConcentrationIndex:  concentration,
		MaxPositionWeight:   maxWeight,
		RiskLevel:           scoring.RiskLevel(volatility, concentration),
	}
}

// buildSectorAllocation aggregates holding value by sector, descending by
// weight. Holdings without a sector fall under "Other".
func buildSectorAllocation(holdings []models.Holding, totalValue float64) []models.SectorAllocation {
	if totalValue <= 0 {
		return nil
	}
	values := make(map[string]float64)
	for _, h := range holdings {
		if h.Value <= 0 {
			continue
		}
		sector := h.Sector
		if sector == "" {
			sector = "Other"
		}
		values[sector] += h.Value
	}

	allocation := make([]models.SectorAllocation, 0, len(values))
	for sector, value := range values {
		allocation = append(allocation, models.SectorAllocation{
			Sector: sector,
			Weight: value / totalValue * 100,
		})
	}
	sort.Slice(allocation, func(i, j int) bool {
		if allocation[i].Weight != allocation[j].Weight {
			return allocation[i].Weight > allocation[j].Weight
		}
		return allocation[i].Sector < allocation[j].Sector
	})
	return allocation
}

// loadReviewNotes returns stored free-text review notes for a portfolio.
// Notes are written by the weekly review job and surfaced verbatim.
func (s *Service) loadReviewNotes(ctx context.Context, userID, portfolioID string) []string {
	rec, err := s.storage.UserDataStore().Get(ctx, userID, subjectReview, portfolioID)
	if err != nil {
		return nil
	}
	var notes []string
	if err := json.Unmarshal([]byte(rec.Value), &notes); err != nil {
		s.logger.Warn().Err(err).Str("portfolio_id", portfolioID).Msg("Skipping corrupt review notes")
		return nil
	}
	return notes
}

// closingPrices extracts the close series from EOD bars
func closingPrices(bars []models.EODBar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	return closes
}
