// Package models defines data structures for MapleTrade
package models

import "time"

// FailedSymbol records a single symbol's failure within a batch
type FailedSymbol struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// BatchSummary aggregates a batch run. Total is always successful + failed.
type BatchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`

	// Aggregates over successful results; omitted when nothing succeeded
	AvgVolatility     float64        `json:"avg_volatility,omitempty"`
	MaxVolatility     float64        `json:"max_volatility,omitempty"`
	MinVolatility     float64        `json:"min_volatility,omitempty"`
	VolatilityMix     map[string]int `json:"volatility_mix,omitempty"`     // category → count
	RecommendationMix map[string]int `json:"recommendation_mix,omitempty"` // direction → count
	OverboughtCount   int            `json:"overbought_count,omitempty"`   // RSI > 70
	OversoldCount     int            `json:"oversold_count,omitempty"`     // RSI < 30
}

// BatchResult is the outcome of analyzing a set of symbols. Results are
// keyed by symbol; a failed symbol appears in FailedSymbols and never in
// Results.
type BatchResult struct {
	Results       map[string]*StockAnalysis `json:"results"`
	Summary       BatchSummary              `json:"summary"`
	FailedSymbols []FailedSymbol            `json:"failed_symbols"`
	StartedAt     time.Time                 `json:"started_at"`
	CompletedAt   time.Time                 `json:"completed_at"`
}

// ScreenCriteria filters candidate symbols during screening. Zero-valued
// bounds are not applied.
type ScreenCriteria struct {
	PriceMin            float64   `json:"price_min,omitempty"`
	PriceMax            float64   `json:"price_max,omitempty"`
	VolatilityMax       float64   `json:"volatility_max,omitempty"`
	FundamentalScoreMin float64   `json:"fundamental_score_min,omitempty"`
	Recommendation      Direction `json:"recommendation,omitempty"`
}

// ScreenMatch is one symbol that passed all screening criteria
type ScreenMatch struct {
	Symbol  string             `json:"symbol"`
	Name    string             `json:"name,omitempty"`
	Metrics map[string]float64 `json:"metrics"`
}

// ScreenResult is the outcome of a screening run
type ScreenResult struct {
	Criteria      ScreenCriteria `json:"criteria"`
	TotalScreened int            `json:"total_screened"`
	Matches       int            `json:"matches"`
	Stocks        []ScreenMatch  `json:"stocks"`
	ScreenedAt    time.Time      `json:"screened_at"`
}

// ComparisonEntry is one symbol's standing within a comparison
type ComparisonEntry struct {
	Rank           int       `json:"rank"`
	Symbol         string    `json:"symbol"`
	Score          float64   `json:"score"` // confidence-weighted recommendation score
	Recommendation Direction `json:"recommendation"`
	Confidence     float64   `json:"confidence"`
	Volatility     float64   `json:"volatility,omitempty"`
	CurrentPrice   float64   `json:"current_price,omitempty"`
}

// CompareResult ranks a set of symbols against each other
type CompareResult struct {
	Symbols    []string          `json:"symbols"`
	Rankings   []ComparisonEntry `json:"rankings"`
	ComparedAt time.Time         `json:"compared_at"`
}
