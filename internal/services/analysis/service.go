// Package analysis evaluates individual stocks: the three-factor model,
// the fundamentals assessment, technical indicators, and the combined
// recommendation built from their signals.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
	"github.com/bobmcallan/mapletrade/internal/scoring"
)

// Service implements AnalysisService
type Service struct {
	market interfaces.MarketService
	config common.AnalysisConfig
	logger *common.Logger
}

// NewService creates a new analysis service
func NewService(market interfaces.MarketService, config common.AnalysisConfig, logger *common.Logger) *Service {
	return &Service{
		market: market,
		config: config,
		logger: logger,
	}
}

// AnalyzeStock runs every available analyzer for one symbol and combines
// their signals. The three-factor model and fundamentals each contribute a
// vote; the technical bundle is informational only. A missing source
// contributes no signal rather than failing the analysis.
func (s *Service) AnalyzeStock(ctx context.Context, symbol string, opts interfaces.StockAnalyzeOptions) (*models.StockAnalysis, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	months := opts.PeriodMonths
	if months <= 0 {
		months = s.config.DefaultMonths
	}

	data, err := s.market.GetMarketData(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("analysis failed for %s: %w", symbol, err)
	}

	result := &models.StockAnalysis{
		Symbol:      symbol,
		Name:        data.Name,
		GeneratedAt: time.Now().UTC(),
	}

	var sigs []models.AnalysisSignal

	threeFactor, err := s.AnalyzeThreeFactor(ctx, symbol, months)
	if err != nil {
		return nil, fmt.Errorf("analysis failed for %s: %w", symbol, err)
	}
	result.ThreeFactor = threeFactor
	sigs = append(sigs, models.AnalysisSignal{
		Source:     models.SourceThreeFactor,
		Direction:  threeFactor.Signal,
		Confidence: threeFactor.Confidence,
	})

	fundamental, err := s.AnalyzeFundamentals(ctx, symbol)
	if err != nil {
		s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Fundamental analysis unavailable")
	} else {
		result.Fundamental = fundamental
		sigs = append(sigs, models.AnalysisSignal{
			Source:     models.SourceFundamental,
			Direction:  fundamental.Recommendation,
			Confidence: scoring.NormalizeConfidence(fundamental.ConfidenceTier),
		})
	}

	if opts.IncludeTechnical {
		technical, err := s.AnalyzeTechnical(ctx, symbol, months)
		if err != nil {
			s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Technical analysis unavailable")
		} else {
			result.Technical = technical
		}
	}

	combined := scoring.Combine(sigs)
	result.Combined = &combined

	s.logger.Info().
		Str("symbol", symbol).
		Str("direction", string(combined.Direction)).
		Str("confidence", string(combined.ConfidenceTier)).
		Int("sources", combined.SourceCount).
		Msg("Stock analysis complete")

	return result, nil
}

var _ interfaces.AnalysisService = (*Service)(nil)
