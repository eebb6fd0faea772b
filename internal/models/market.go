// Package models defines data structures for MapleTrade
package models

import (
	"time"
)

// Quote holds a delayed or real-time price snapshot for a symbol
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	Change        float64   `json:"change"`
	ChangePct     float64   `json:"change_pct"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// EODBar represents a single day's price data
type EODBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// Fundamentals contains fundamental data for a stock
type Fundamentals struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Sector        string    `json:"sector"`
	Industry      string    `json:"industry,omitempty"`
	Exchange      string    `json:"exchange,omitempty"`
	MarketCap     float64   `json:"market_cap"`
	PE            float64   `json:"pe_ratio"`
	PB            float64   `json:"pb_ratio"`
	EPS           float64   `json:"eps"`
	DividendYield float64   `json:"dividend_yield"`
	Beta          float64   `json:"beta"`
	TargetPrice   float64   `json:"target_price"`   // analyst mean target, 0 when unavailable
	ROE           float64   `json:"roe"`            // decimal, e.g. 0.15
	DebtToEquity  float64   `json:"debt_to_equity"` // ratio, not percentage
	CurrentRatio  float64   `json:"current_ratio"`
	RevenueGrowth float64   `json:"revenue_growth"` // decimal year-over-year
	ProfitMargin  float64   `json:"profit_margin"`  // decimal
	BookValue     float64   `json:"book_value"`
	Description   string    `json:"description,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// MarketData holds all cached market data for a symbol, with per-component
// freshness timestamps so each piece refreshes on its own cadence
type MarketData struct {
	Symbol       string        `json:"symbol"`
	Name         string        `json:"name"`
	Quote        *Quote        `json:"quote,omitempty"`
	EOD          []EODBar      `json:"eod"`
	Fundamentals *Fundamentals `json:"fundamentals,omitempty"`
	LastUpdated  time.Time     `json:"last_updated"`

	QuoteUpdatedAt        time.Time `json:"quote_updated_at"`
	EODUpdatedAt          time.Time `json:"eod_updated_at"`
	FundamentalsUpdatedAt time.Time `json:"fundamentals_updated_at"`
}

// LatestClose returns the most recent EOD close, or the live quote price
// when it is newer. Zero when no price data exists.
func (m *MarketData) LatestClose() float64 {
	var close float64
	if len(m.EOD) > 0 {
		close = m.EOD[len(m.EOD)-1].Close
	}
	if m.Quote != nil && m.Quote.Price > 0 {
		return m.Quote.Price
	}
	return close
}

// BarsSince returns the EOD bars dated on or after cutoff, preserving order
func (m *MarketData) BarsSince(cutoff time.Time) []EODBar {
	for i, bar := range m.EOD {
		if !bar.Date.Before(cutoff) {
			return m.EOD[i:]
		}
	}
	return nil
}
