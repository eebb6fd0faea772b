// Package models defines data structures for MapleTrade
package models

import "time"

// SignalSource identifies which analyzer produced a signal
type SignalSource string

const (
	SourceThreeFactor SignalSource = "three_factor" // primary quantitative model
	SourceFundamental SignalSource = "fundamental"
	SourceTechnical   SignalSource = "technical"
)

// Direction is a buy/hold/sell recommendation
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionHold Direction = "HOLD"
	DirectionSell Direction = "SELL"
)

// ConfidenceTier buckets signal confidence for presentation
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "HIGH"
	ConfidenceMedium ConfidenceTier = "MEDIUM"
	ConfidenceLow    ConfidenceTier = "LOW"
)

// AnalysisSignal is one analyzer's normalized vote. Constructed fresh per
// evaluation and never persisted.
type AnalysisSignal struct {
	Source     SignalSource `json:"source"`
	Direction  Direction    `json:"direction"`
	Confidence float64      `json:"confidence"` // always clamped to [0,1]
}

// CombinedRecommendation is the blended output of all available signals
type CombinedRecommendation struct {
	Direction      Direction      `json:"direction"`
	ConfidenceTier ConfidenceTier `json:"confidence_tier"`
	WeightedScore  float64        `json:"weighted_score"`
	SourceCount    int            `json:"source_count"`
	Method         string         `json:"method"` // "combined", or "default" when no signals
}

// ThreeFactorResult captures the primary model's evaluation of one symbol.
// The three factors are benchmark outperformance, analyst target above
// current price, and volatility below threshold.
type ThreeFactorResult struct {
	Symbol              string    `json:"symbol"`
	Signal              Direction `json:"signal"`
	Confidence          float64   `json:"confidence"`
	Rationale           string    `json:"rationale"`
	Outperformance      float64   `json:"outperformance"` // return minus sector benchmark return, pct points
	StockReturn         float64   `json:"stock_return"`
	BenchmarkReturn     float64   `json:"benchmark_return"`
	BenchmarkSymbol     string    `json:"benchmark_symbol"`
	TargetAboveCurrent  bool      `json:"target_above_current"`
	TargetPrice         float64   `json:"target_price,omitempty"`
	TargetSpread        float64   `json:"target_spread,omitempty"` // (target-current)/current, pct
	CurrentPrice        float64   `json:"current_price"`
	Volatility          float64   `json:"volatility"` // annualized, pct
	VolatilityThreshold float64   `json:"volatility_threshold"`
	LowVolatility       bool      `json:"low_volatility"`
	PeriodMonths        int       `json:"period_months"`
	Errors              []string  `json:"errors,omitempty"` // factors degraded by provider failures
	AnalyzedAt          time.Time `json:"analyzed_at"`
}

// FundamentalSignal is one ratio-driven observation feeding the fundamental score
type FundamentalSignal struct {
	Indicator string    `json:"indicator"`
	Direction Direction `json:"direction"`
	Strength  string    `json:"strength"` // Strong, Moderate, Neutral
	Reason    string    `json:"reason"`
}

// FundamentalAnalysis is the fundamentals assessment for one symbol
type FundamentalAnalysis struct {
	Symbol          string              `json:"symbol"`
	CompositeScore  float64             `json:"composite_score"` // 0-100
	HealthScore     float64             `json:"health_score"`    // 0-1
	HealthRating    string              `json:"health_rating"`   // Excellent .. Very Poor
	ValuationUpside *float64            `json:"valuation_upside,omitempty"` // (target-current)/current
	Signals         []FundamentalSignal `json:"signals"`
	Recommendation  Direction           `json:"recommendation"`
	ConfidenceTier  ConfidenceTier      `json:"confidence_tier"`
	AnalyzedAt      time.Time           `json:"analyzed_at"`
}

// MACDResult holds the moving average convergence divergence triple
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerBands holds the 20-period bands and derived position metrics
type BollingerBands struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	Width    float64 `json:"width"`
	Position float64 `json:"position"` // 0 = lower band, 1 = upper band
}

// TrendAnalysis classifies the price trend against moving averages.
// LongTerm and Signal are only set when 200 bars of history exist.
type TrendAnalysis struct {
	CurrentPrice float64 `json:"current_price"`
	ShortTerm    string  `json:"short_term"`          // vs SMA 20: bullish or bearish
	MediumTerm   string  `json:"medium_term"`         // vs SMA 50
	LongTerm     string  `json:"long_term,omitempty"` // vs SMA 200
	Signal       string  `json:"signal,omitempty"`    // golden_cross or death_cross
}

// SupportResistance holds recent price structure levels. Strength counts
// bars whose range touched the level within a 2% tolerance.
type SupportResistance struct {
	Support            float64 `json:"support"`
	Resistance         float64 `json:"resistance"`
	Pivot              float64 `json:"pivot"`
	SupportStrength    int     `json:"support_strength"`
	ResistanceStrength int     `json:"resistance_strength"`
}

// ReturnMetrics holds period return statistics
type ReturnMetrics struct {
	TotalReturn    float64 `json:"total_return"`     // pct over the window
	AvgDailyReturn float64 `json:"avg_daily_return"` // pct
	SharpeRatio    float64 `json:"sharpe_ratio"`     // annualized, zero risk-free rate
}

// TechnicalAnalysis is the indicator bundle for one symbol. Pointer fields
// are nil when the price history is too short for that indicator.
type TechnicalAnalysis struct {
	Symbol            string             `json:"symbol"`
	StartDate         time.Time          `json:"start_date"`
	EndDate           time.Time          `json:"end_date"`
	DataPoints        int                `json:"data_points"`
	Returns           *ReturnMetrics     `json:"returns,omitempty"`
	Volatility        *float64           `json:"volatility,omitempty"`
	RSI14             *float64           `json:"rsi_14,omitempty"`
	SMA20             *float64           `json:"sma_20,omitempty"`
	SMA50             *float64           `json:"sma_50,omitempty"`
	SMA200            *float64           `json:"sma_200,omitempty"`
	EMA12             *float64           `json:"ema_12,omitempty"`
	EMA26             *float64           `json:"ema_26,omitempty"`
	BollingerBands    *BollingerBands    `json:"bollinger_bands,omitempty"`
	MACD              *MACDResult        `json:"macd,omitempty"`
	Trend             *TrendAnalysis     `json:"trend,omitempty"`
	SupportResistance *SupportResistance `json:"support_resistance,omitempty"`
}

// StockAnalysis is the full per-symbol result: every available source plus
// the combined recommendation
type StockAnalysis struct {
	Symbol      string                  `json:"symbol"`
	Name        string                  `json:"name,omitempty"`
	ThreeFactor *ThreeFactorResult      `json:"three_factor,omitempty"`
	Fundamental *FundamentalAnalysis    `json:"fundamental,omitempty"`
	Technical   *TechnicalAnalysis      `json:"technical,omitempty"`
	Combined    *CombinedRecommendation `json:"combined,omitempty"`
	GeneratedAt time.Time               `json:"generated_at"`
}
