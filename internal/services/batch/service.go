// Package batch fans stock analysis out across many symbols
package batch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
	"github.com/bobmcallan/mapletrade/internal/scoring"
)

// Analysis kinds a batch request can select. Empty selection means all.
const (
	kindThreeFactor = string(models.SourceThreeFactor)
	kindFundamental = string(models.SourceFundamental)
	kindTechnical   = string(models.SourceTechnical)
)

// Service implements BatchService
type Service struct {
	analysis interfaces.AnalysisService
	config   common.BatchConfig
	logger   *common.Logger
}

// NewService creates a new batch service
func NewService(analysis interfaces.AnalysisService, config common.BatchConfig, logger *common.Logger) *Service {
	return &Service{
		analysis: analysis,
		config:   config,
		logger:   logger,
	}
}

// AnalyzeStocks analyzes each symbol independently on a bounded worker
// pool. One symbol's failure is recorded and never aborts the batch, so
// successful + failed always equals total.
func (s *Service) AnalyzeStocks(ctx context.Context, symbols []string, kinds []string) (*models.BatchResult, error) {
	symbols = normalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}
	wanted, err := selectKinds(kinds)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &models.BatchResult{
		Results:   make(map[string]*models.StockAnalysis, len(symbols)),
		StartedAt: start,
	}

	s.logger.Info().
		Int("symbols", len(symbols)).
		Int("workers", s.config.WorkerCount()).
		Msg("Starting batch analysis")

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.config.WorkerCount())
	)

	record := func(symbol string, analysis *models.StockAnalysis, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.FailedSymbols = append(result.FailedSymbols, models.FailedSymbol{
				Symbol: symbol,
				Error:  err.Error(),
			})
			return
		}
		result.Results[symbol] = analysis
	}

	for _, symbol := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().
						Str("symbol", sym).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(debug.Stack())).
						Msg("Recovered from panic in batch worker")
					record(sym, nil, fmt.Errorf("analysis panic: %v", r))
				}
			}()

			// A cancelled batch still reports every symbol: symbols that
			// never started get a synthesized failure entry.
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				record(sym, nil, ctx.Err())
				return
			}
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				record(sym, nil, err)
				return
			}

			analysis, err := s.analysis.AnalyzeStock(ctx, sym, interfaces.StockAnalyzeOptions{
				IncludeTechnical: wanted[kindTechnical],
			})
			if err != nil {
				record(sym, nil, err)
				return
			}
			record(sym, pruneSections(analysis, wanted), nil)
		}(symbol)
	}
	wg.Wait()

	sort.Slice(result.FailedSymbols, func(i, j int) bool {
		return result.FailedSymbols[i].Symbol < result.FailedSymbols[j].Symbol
	})
	result.Summary = buildSummary(len(symbols), result)
	result.CompletedAt = time.Now()

	s.logger.Info().
		Int("successful", result.Summary.Successful).
		Int("failed", result.Summary.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("Batch analysis complete")
	return result, nil
}

// normalizeSymbols uppercases, trims, and dedupes while preserving order
func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

func selectKinds(kinds []string) (map[string]bool, error) {
	wanted := make(map[string]bool, 3)
	if len(kinds) == 0 {
		wanted[kindThreeFactor] = true
		wanted[kindFundamental] = true
		wanted[kindTechnical] = true
		return wanted, nil
	}
	for _, k := range kinds {
		switch k {
		case kindThreeFactor, kindFundamental, kindTechnical:
			wanted[k] = true
		default:
			return nil, fmt.Errorf("unknown analysis kind: %s", k)
		}
	}
	return wanted, nil
}

// pruneSections drops result sections the caller did not ask for. The
// combined recommendation only survives when at least one voting source
// was requested.
func pruneSections(analysis *models.StockAnalysis, wanted map[string]bool) *models.StockAnalysis {
	if !wanted[kindThreeFactor] {
		analysis.ThreeFactor = nil
	}
	if !wanted[kindFundamental] {
		analysis.Fundamental = nil
	}
	if !wanted[kindTechnical] {
		analysis.Technical = nil
	}
	if !wanted[kindThreeFactor] && !wanted[kindFundamental] {
		analysis.Combined = nil
	}
	return analysis
}

func buildSummary(total int, result *models.BatchResult) models.BatchSummary {
	summary := models.BatchSummary{
		Total:      total,
		Successful: len(result.Results),
		Failed:     len(result.FailedSymbols),
	}
	if summary.Successful == 0 {
		return summary
	}

	var vols []float64
	volMix := make(map[string]int)
	recMix := make(map[string]int)
	for _, analysis := range result.Results {
		if analysis.Technical != nil && analysis.Technical.Volatility != nil {
			v := *analysis.Technical.Volatility
			vols = append(vols, v)
			volMix[scoring.CategorizeVolatility(v)]++
		}
		if analysis.Technical != nil && analysis.Technical.RSI14 != nil {
			switch rsi := *analysis.Technical.RSI14; {
			case rsi > 70:
				summary.OverboughtCount++
			case rsi < 30:
				summary.OversoldCount++
			}
		}
		if analysis.Combined != nil {
			recMix[string(analysis.Combined.Direction)]++
		}
	}

	if len(vols) > 0 {
		sum, maxVol, minVol := 0.0, vols[0], vols[0]
		for _, v := range vols {
			sum += v
			if v > maxVol {
				maxVol = v
			}
			if v < minVol {
				minVol = v
			}
		}
		summary.AvgVolatility = sum / float64(len(vols))
		summary.MaxVolatility = maxVol
		summary.MinVolatility = minVol
		summary.VolatilityMix = volMix
	}
	if len(recMix) > 0 {
		summary.RecommendationMix = recMix
	}
	return summary
}

// Ensure Service implements BatchService
var _ interfaces.BatchService = (*Service)(nil)
