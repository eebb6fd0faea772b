package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/mapletrade/internal/models"
	"github.com/bobmcallan/mapletrade/internal/signals"
)

// srLookback is the support/resistance window in bars
const srLookback = 20

// AnalyzeTechnical computes the indicator bundle for a symbol over the
// lookback window. Indicators whose minimum history is not met are left
// nil rather than failing the bundle.
func (s *Service) AnalyzeTechnical(ctx context.Context, symbol string, months int) (*models.TechnicalAnalysis, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if months <= 0 {
		months = s.config.DefaultMonths
	}

	data, err := s.market.GetMarketData(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get market data for %s: %w", symbol, err)
	}

	cutoff := time.Now().AddDate(0, 0, -months*30)
	bars := data.BarsSince(cutoff)
	if len(bars) == 0 {
		return nil, fmt.Errorf("no price history for %s in the last %d months", symbol, months)
	}

	return buildTechnical(symbol, bars), nil
}

// buildTechnical assembles the bundle from bars ordered oldest to newest
func buildTechnical(symbol string, bars []models.EODBar) *models.TechnicalAnalysis {
	closes := closesOf(bars)

	result := &models.TechnicalAnalysis{
		Symbol:     symbol,
		StartDate:  bars[0].Date,
		EndDate:    bars[len(bars)-1].Date,
		DataPoints: len(bars),
	}

	if ret, ok := signals.Returns(closes); ok {
		result.Returns = ret
	}
	if vol, ok := signals.Volatility(closes); ok {
		result.Volatility = &vol
	}
	if rsi, ok := signals.RSI(closes, 14); ok {
		result.RSI14 = &rsi
	}
	if sma, ok := signals.SMA(closes, 20); ok {
		result.SMA20 = &sma
	}
	if sma, ok := signals.SMA(closes, 50); ok {
		result.SMA50 = &sma
	}
	if sma, ok := signals.SMA(closes, 200); ok {
		result.SMA200 = &sma
	}
	if ema, ok := signals.EMA(closes, 12); ok {
		result.EMA12 = &ema
	}
	if ema, ok := signals.EMA(closes, 26); ok {
		result.EMA26 = &ema
	}
	if bb, ok := signals.Bollinger(closes, 20); ok {
		result.BollingerBands = bb
	}
	if macd, ok := signals.MACD(closes); ok {
		result.MACD = macd
	}
	if trend, ok := signals.Trend(closes); ok {
		result.Trend = trend
	}
	if sr, ok := signals.SupportResistance(bars, srLookback); ok {
		result.SupportResistance = sr
	}

	return result
}
