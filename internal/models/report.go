// Package models defines data structures for MapleTrade
package models

import "time"

// ReportType selects which sections a portfolio report carries
type ReportType string

const (
	ReportComprehensive ReportType = "comprehensive"
	ReportPerformance   ReportType = "performance"
	ReportRisk          ReportType = "risk"
)

// ValidReportType reports whether t is a supported report type
func ValidReportType(t ReportType) bool {
	switch t {
	case ReportComprehensive, ReportPerformance, ReportRisk:
		return true
	}
	return false
}

// ReportMetadata identifies a generated report
type ReportMetadata struct {
	ReportType    ReportType `json:"report_type"`
	GeneratedAt   time.Time  `json:"generated_at"`
	UserID        string     `json:"user_id"`
	PortfolioID   string     `json:"portfolio_id"`
	PortfolioName string     `json:"portfolio_name"`
}

// PerformanceSummary condenses the portfolio's return picture
type PerformanceSummary struct {
	TotalReturn       float64 `json:"total_return"`
	AbsoluteGain      float64 `json:"absolute_gain"`
	CurrentValue      float64 `json:"current_value"`
	InvestedAmount    float64 `json:"invested_amount"`
	PerformanceRating string  `json:"performance_rating"` // excellent .. very_poor
}

// RiskAssessment is the scored risk view of a portfolio
type RiskAssessment struct {
	RiskLevel         string   `json:"risk_level"`
	Volatility        float64  `json:"volatility"`
	ConcentrationRisk string   `json:"concentration_risk"` // high or moderate
	RiskScore         float64  `json:"risk_score"`         // 0-100
	Warnings          []string `json:"warnings"`
}

// Recommendation is one actionable suggestion in a report
type Recommendation struct {
	Type           string `json:"type"`     // portfolio_optimization, rebalancing, technical
	Priority       string `json:"priority"` // high, medium, low
	Recommendation string `json:"recommendation"`
}

// ActionItem is a dated follow-up task derived from portfolio conditions
type ActionItem struct {
	Action   string `json:"action"`
	Priority string `json:"priority"`
	Deadline string `json:"deadline"` // ISO date
	Details  string `json:"details"`
}

// PeriodPerformance is the portfolio's return over one fixed horizon
type PeriodPerformance struct {
	Return   float64 `json:"return"`
	Value    float64 `json:"value"`
	GainLoss float64 `json:"gain_loss"`
}

// BestPerformer is a top holding ranked by period return
type BestPerformer struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Return float64 `json:"return"`
	Gain   float64 `json:"gain"`
}

// WorstPerformer is a bottom holding ranked by period return
type WorstPerformer struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Return float64 `json:"return"`
	Loss   float64 `json:"loss"`
}

// BenchmarkComparison compares portfolio return against a reference index.
// Error is set (and the numeric fields zeroed) when benchmark data could
// not be fetched.
type BenchmarkComparison struct {
	Benchmark       string  `json:"benchmark,omitempty"`
	BenchmarkReturn float64 `json:"benchmark_return,omitempty"`
	PortfolioReturn float64 `json:"portfolio_return,omitempty"`
	ExcessReturn    float64 `json:"excess_return,omitempty"`
	Outperformed    bool    `json:"outperformed,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// TopHolding identifies the single largest position by weight
type TopHolding struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

// ConcentrationAnalysis ranks holdings by weight and flags over-concentration
type ConcentrationAnalysis struct {
	TopHolding        *TopHolding `json:"top_holding,omitempty"`
	Top3Concentration float64     `json:"top3_concentration"`
	Top5Concentration float64     `json:"top5_concentration"`
	ConcentrationRisk string      `json:"concentration_risk"` // high or moderate
}

// VolatileHolding is a holding whose volatility exceeds the outlier threshold
type VolatileHolding struct {
	Symbol     string  `json:"symbol"`
	Volatility float64 `json:"volatility"`
}

// VolatilityAnalysis summarizes holding volatility across the portfolio
type VolatilityAnalysis struct {
	PortfolioVolatility    float64           `json:"portfolio_volatility"`
	AvgHoldingVolatility   float64           `json:"avg_holding_volatility"`
	MaxVolatility          float64           `json:"max_volatility"`
	MinVolatility          float64           `json:"min_volatility"`
	HighVolatilityHoldings []VolatileHolding `json:"high_volatility_holdings"`
}

// SectorConcentration flags the most concentrated sector
type SectorConcentration struct {
	MostConcentratedSector string  `json:"most_concentrated_sector"`
	Concentration          float64 `json:"concentration"`
	Risk                   string  `json:"risk"` // high or moderate
}

// CorrelationAnalysis is a sector-based proxy for correlation risk
type CorrelationAnalysis struct {
	SectorConcentration  *SectorConcentration `json:"sector_concentration,omitempty"`
	DiversificationScore float64              `json:"diversification_score"`
}

// StressScenarioResult projects portfolio value under one adverse scenario
type StressScenarioResult struct {
	PercentageDrop float64 `json:"percentage_drop"`
	NewValue       float64 `json:"new_value"`
	LossAmount     float64 `json:"loss_amount"`
}

// Report is a generated portfolio report. Sections are populated according
// to the report type; unused sections are omitted from the JSON output.
type Report struct {
	ID       string         `json:"id"`
	Metadata ReportMetadata `json:"metadata"`

	// Comprehensive sections
	Analysis           *PortfolioAnalysis  `json:"analysis,omitempty"`
	PerformanceSummary *PerformanceSummary `json:"performance_summary,omitempty"`
	RiskAssessment     *RiskAssessment     `json:"risk_assessment,omitempty"`
	Recommendations    []Recommendation    `json:"recommendations,omitempty"`
	ActionItems        []ActionItem        `json:"action_items,omitempty"`

	// Performance sections
	PerformancePeriods  map[string]PeriodPerformance `json:"performance_periods,omitempty"`
	BestPerformers      []BestPerformer              `json:"best_performers,omitempty"`
	WorstPerformers     []WorstPerformer             `json:"worst_performers,omitempty"`
	BenchmarkComparison *BenchmarkComparison         `json:"benchmark_comparison,omitempty"`

	// Risk sections
	OverallRisk         *RiskMetrics                    `json:"overall_risk,omitempty"`
	Concentration       *ConcentrationAnalysis          `json:"concentration_analysis,omitempty"`
	VolatilityAnalysis  *VolatilityAnalysis             `json:"volatility_analysis,omitempty"`
	CorrelationAnalysis *CorrelationAnalysis            `json:"correlation_analysis,omitempty"`
	StressTest          map[string]StressScenarioResult `json:"stress_test,omitempty"`
}
