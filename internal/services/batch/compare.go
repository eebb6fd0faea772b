package batch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bobmcallan/mapletrade/internal/models"
	"github.com/bobmcallan/mapletrade/internal/scoring"
)

// Compare analyzes the symbols and ranks them by confidence-weighted
// recommendation score, strongest first. Failed symbols are left out of
// the rankings.
func (s *Service) Compare(ctx context.Context, symbols []string) (*models.CompareResult, error) {
	normalized := normalizeSymbols(symbols)
	if len(normalized) < 2 {
		return nil, fmt.Errorf("need at least 2 symbols to compare, got %d", len(normalized))
	}

	batch, err := s.AnalyzeStocks(ctx, normalized, nil)
	if err != nil {
		return nil, err
	}

	rankings := make([]models.ComparisonEntry, 0, len(batch.Results))
	for symbol, analysis := range batch.Results {
		entry := models.ComparisonEntry{
			Symbol:         symbol,
			Recommendation: models.DirectionHold,
		}
		if analysis.Combined != nil {
			entry.Recommendation = analysis.Combined.Direction
			entry.Confidence = scoring.NormalizeConfidence(analysis.Combined.ConfidenceTier)
			entry.Score = recommendationScore(analysis.Combined.Direction) * entry.Confidence
		}
		if analysis.Technical != nil && analysis.Technical.Volatility != nil {
			entry.Volatility = *analysis.Technical.Volatility
		}
		entry.CurrentPrice = currentPrice(analysis)
		rankings = append(rankings, entry)
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Score != rankings[j].Score {
			return rankings[i].Score > rankings[j].Score
		}
		return rankings[i].Symbol < rankings[j].Symbol
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}

	s.logger.Info().
		Int("symbols", len(normalized)).
		Int("ranked", len(rankings)).
		Msg("Comparison complete")

	return &models.CompareResult{
		Symbols:    normalized,
		Rankings:   rankings,
		ComparedAt: time.Now(),
	}, nil
}

func recommendationScore(d models.Direction) float64 {
	switch d {
	case models.DirectionBuy:
		return 1
	case models.DirectionSell:
		return -1
	default:
		return 0
	}
}
