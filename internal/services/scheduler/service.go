// Package scheduler runs background maintenance jobs on cron schedules
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
	"github.com/bobmcallan/mapletrade/internal/scoring"
)

const (
	subjectReview = "review"
	subjectBatch  = "batch"
)

// reviewLookbackDays is the analysis window for the weekly portfolio review.
const reviewLookbackDays = 90

const (
	defaultRefreshCron  = "0 30 17 * * 1-5" // weekday evenings after close
	defaultSnapshotCron = "0 0 18 * * 5"    // Friday evening
)

// Service schedules the nightly market refresh and the weekly portfolio
// review. Each job run is skipped when the previous run is still going.
type Service struct {
	storage    interfaces.StorageManager
	market     interfaces.MarketService
	portfolios interfaces.PortfolioService
	batch      interfaces.BatchService
	config     common.SchedulerConfig
	logger     *common.Logger

	cron      *cron.Cron
	cancel    context.CancelFunc
	refreshMu sync.Mutex
	reviewMu  sync.Mutex
}

// NewService creates a new scheduler service
func NewService(
	storage interfaces.StorageManager,
	market interfaces.MarketService,
	portfolios interfaces.PortfolioService,
	batch interfaces.BatchService,
	config common.SchedulerConfig,
	logger *common.Logger,
) *Service {
	return &Service{
		storage:    storage,
		market:     market,
		portfolios: portfolios,
		batch:      batch,
		config:     config,
		logger:     logger,
	}
}

// Start registers the cron jobs and begins scheduling. Safe to call again
// after Stop. A disabled scheduler starts nothing and returns nil.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Scheduler disabled")
		return nil
	}
	if s.cancel != nil {
		s.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	refreshCron := s.config.RefreshCron
	if refreshCron == "" {
		refreshCron = defaultRefreshCron
	}
	snapshotCron := s.config.SnapshotCron
	if snapshotCron == "" {
		snapshotCron = defaultSnapshotCron
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(refreshCron, func() { s.runRefresh(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to register refresh job: %w", err)
	}
	if _, err := c.AddFunc(snapshotCron, func() { s.runWeeklyReview(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to register review job: %w", err)
	}
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.logger.Info().
		Str("refresh_cron", refreshCron).
		Str("snapshot_cron", snapshotCron).
		Msg("Scheduler started")
	return nil
}

// Stop cancels in-flight jobs and waits for running cron entries to finish
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
	s.logger.Info().Msg("Scheduler stopped")
}

// runRefresh warms market data for every symbol held in any portfolio,
// then refreshes whatever else in the cache has gone stale.
func (s *Service) runRefresh(ctx context.Context) {
	if !s.refreshMu.TryLock() {
		s.logger.Warn().Msg("Market refresh still running, skipping this run")
		return
	}
	defer s.refreshMu.Unlock()

	start := time.Now()
	symbols, err := s.heldSymbols(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Market refresh could not gather held symbols")
		return
	}

	if len(symbols) > 0 {
		if err := s.market.EnsureMarketData(ctx, symbols, false); err != nil {
			s.logger.Warn().Err(err).Msg("Held symbol refresh incomplete")
		}
	}
	if err := s.market.RefreshStaleData(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Stale data refresh incomplete")
	}

	s.logger.Info().
		Int("held_symbols", len(symbols)).
		Dur("elapsed", time.Since(start)).
		Msg("Market refresh complete")
}

// runWeeklyReview rewrites each portfolio's review notes from a fresh
// analysis and stores a dated batch snapshot of every held symbol.
func (s *Service) runWeeklyReview(ctx context.Context) {
	if !s.reviewMu.TryLock() {
		s.logger.Warn().Msg("Weekly review still running, skipping this run")
		return
	}
	defer s.reviewMu.Unlock()

	start := time.Now()
	users, err := s.storage.InternalStore().ListUsers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Weekly review could not list users")
		return
	}

	reviewed := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			s.logger.Warn().Msg("Weekly review aborted")
			return
		}
		reviewed += s.reviewUser(ctx, userID)
	}

	s.logger.Info().
		Int("users", len(users)).
		Int("portfolios", reviewed).
		Dur("elapsed", time.Since(start)).
		Msg("Weekly review complete")
}

func (s *Service) reviewUser(ctx context.Context, userID string) int {
	portfolios, err := s.portfolios.ListPortfolios(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Skipping user in weekly review")
		return 0
	}

	reviewed := 0
	held := make(map[string]bool)
	for _, p := range portfolios {
		for _, pos := range p.Positions {
			if sym := strings.ToUpper(strings.TrimSpace(pos.Symbol)); sym != "" {
				held[sym] = true
			}
		}

		analysis, err := s.portfolios.Analyze(ctx, userID, p.ID, interfaces.PortfolioAnalyzeOptions{
			PeriodDays: reviewLookbackDays,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("portfolio_id", p.ID).Msg("Skipping portfolio in weekly review")
			continue
		}
		if err := s.saveReviewNotes(ctx, userID, p.ID, buildReviewNotes(analysis)); err != nil {
			s.logger.Warn().Err(err).Str("portfolio_id", p.ID).Msg("Failed to save review notes")
			continue
		}
		reviewed++
	}

	if len(held) > 0 {
		s.snapshotHoldings(ctx, userID, held)
	}
	return reviewed
}

// buildReviewNotes derives advisory notes for a portfolio from its latest
// analysis. They surface as recommendations on subsequent analyses.
func buildReviewNotes(analysis *models.PortfolioAnalysis) []string {
	notes := scoring.RiskWarnings(analysis.RiskMetrics, len(analysis.Holdings))

	rating := scoring.RatePerformance(analysis.Summary.TotalReturnPct)
	if rating == "poor" || rating == "very_poor" {
		notes = append(notes, fmt.Sprintf("Performance rated %s: %.1f%% over the last %d days",
			rating, analysis.Summary.TotalReturnPct, analysis.PeriodDays))
	}

	if len(analysis.SectorAllocation) > 0 {
		if top := analysis.SectorAllocation[0]; top.Weight > 40 {
			notes = append(notes, fmt.Sprintf("%s holds %.1f%% of portfolio value, consider spreading across sectors",
				top.Sector, top.Weight))
		}
	}
	return notes
}

func (s *Service) saveReviewNotes(ctx context.Context, userID, portfolioID string, notes []string) error {
	data, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("failed to marshal review notes: %w", err)
	}
	return s.storage.UserDataStore().Put(ctx, &models.UserRecord{
		UserID:  userID,
		Subject: subjectReview,
		Key:     portfolioID,
		Value:   string(data),
	})
}

// snapshotHoldings runs a full batch analysis over the user's held symbols
// and stores the result keyed by date, building up the batch run history.
func (s *Service) snapshotHoldings(ctx context.Context, userID string, held map[string]bool) {
	symbols := make([]string, 0, len(held))
	for sym := range held {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	result, err := s.batch.AnalyzeStocks(ctx, symbols, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Weekly batch snapshot failed")
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to marshal batch snapshot")
		return
	}
	record := &models.UserRecord{
		UserID:  userID,
		Subject: subjectBatch,
		Key:     time.Now().Format("2006-01-02"),
		Value:   string(data),
	}
	if err := s.storage.UserDataStore().Put(ctx, record); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to save batch snapshot")
		return
	}
	s.logger.Info().
		Str("user_id", userID).
		Int("symbols", len(symbols)).
		Int("successful", result.Summary.Successful).
		Msg("Weekly batch snapshot stored")
}

// heldSymbols walks every user's portfolios and collects the distinct
// symbols they hold, sorted for stable logging.
func (s *Service) heldSymbols(ctx context.Context) ([]string, error) {
	users, err := s.storage.InternalStore().ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	held := make(map[string]bool)
	for _, userID := range users {
		portfolios, err := s.portfolios.ListPortfolios(ctx, userID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Skipping user in market refresh")
			continue
		}
		for _, p := range portfolios {
			for _, pos := range p.Positions {
				if sym := strings.ToUpper(strings.TrimSpace(pos.Symbol)); sym != "" {
					held[sym] = true
				}
			}
		}
	}

	symbols := make([]string, 0, len(held))
	for sym := range held {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}
