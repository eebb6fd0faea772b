// Package models defines data structures for MapleTrade
package models

import (
	"strings"
	"time"
)

// Portfolio is a user-owned collection of positions
type Portfolio struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	Positions   []Position `json:"positions"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Position is a purchased lot within a portfolio
type Position struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Sector        string    `json:"sector,omitempty"`
	Shares        float64   `json:"shares"`
	PurchasePrice float64   `json:"purchase_price"`
	PurchaseDate  time.Time `json:"purchase_date,omitempty"`
}

// CostBasis returns shares × purchase price
func (p Position) CostBasis() float64 {
	return p.Shares * p.PurchasePrice
}

// Symbols returns the distinct position symbols in insertion order
func (p *Portfolio) Symbols() []string {
	seen := make(map[string]bool, len(p.Positions))
	out := make([]string, 0, len(p.Positions))
	for _, pos := range p.Positions {
		sym := strings.ToUpper(pos.Symbol)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

// FindPosition returns the position for a symbol, case-insensitive
func (p *Portfolio) FindPosition(symbol string) (Position, bool) {
	for _, pos := range p.Positions {
		if strings.EqualFold(pos.Symbol, symbol) {
			return pos, true
		}
	}
	return Position{}, false
}

// PortfolioSummary aggregates value and return across all holdings
type PortfolioSummary struct {
	TotalReturnPct float64 `json:"total_return_pct"`
	TotalValue     float64 `json:"total_value"`
	TotalCost      float64 `json:"total_cost"`
	TotalGainLoss  float64 `json:"total_gain_loss"`
}

// Holding is one analyzed position within a portfolio snapshot. Weight and
// volatility are percentages. Technical is keyed by indicator name ("rsi",
// "macd", ...) and is only present when technical analysis was requested.
type Holding struct {
	Symbol       string             `json:"symbol"`
	Name         string             `json:"name"`
	Sector       string             `json:"sector,omitempty"`
	Shares       float64            `json:"shares,omitempty"`
	CurrentPrice float64            `json:"current_price,omitempty"`
	Value        float64            `json:"value"`
	CostBasis    float64            `json:"cost_basis"`
	Weight       float64            `json:"weight"`
	Volatility   float64            `json:"volatility"`
	GainLoss     float64            `json:"gain_loss"`
	GainLossPct  float64            `json:"gain_loss_pct"`
	Technical    map[string]float64 `json:"technical,omitempty"`
}

// RiskMetrics summarizes portfolio-level risk. ConcentrationIndex is a
// Herfindahl-style sum of squared weight shares scaled to 0-100.
type RiskMetrics struct {
	PortfolioVolatility float64 `json:"portfolio_volatility"`
	ConcentrationIndex  float64 `json:"concentration_index"`
	MaxPositionWeight   float64 `json:"max_position_weight"`
	RiskLevel           string  `json:"risk_level"` // low, moderate, high
}

// SectorAllocation is one sector's share of portfolio value
type SectorAllocation struct {
	Sector string  `json:"sector"`
	Weight float64 `json:"weight"`
}

// PortfolioAnalysis is the full analysis snapshot for one portfolio over a
// lookback period. It is the input record for report assembly and scoring.
type PortfolioAnalysis struct {
	PortfolioID      string             `json:"portfolio_id"`
	PortfolioName    string             `json:"portfolio_name"`
	PeriodDays       int                `json:"period_days"`
	Summary          PortfolioSummary   `json:"summary"`
	Holdings         []Holding          `json:"holdings"`
	RiskMetrics      RiskMetrics        `json:"risk_metrics"`
	SectorAllocation []SectorAllocation `json:"sector_allocation"`
	Recommendations  []string           `json:"recommendations"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// GrowthPoint is one sample of portfolio value over time, used for charting
type GrowthPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Cost  float64   `json:"cost"`
}
