// Package portfolio provides portfolio management and analysis services
package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

// User data store subjects owned by this service. Reports are written by the
// report service but cleaned up here when their portfolio is deleted.
const (
	subjectPortfolio = "portfolio"
	subjectReport    = "report"
	subjectReview    = "review"
)

// Service implements PortfolioService
type Service struct {
	storage interfaces.StorageManager
	market  interfaces.MarketService
	logger  *common.Logger
}

// NewService creates a new portfolio service
func NewService(storage interfaces.StorageManager, market interfaces.MarketService, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		market:  market,
		logger:  logger,
	}
}

var _ interfaces.PortfolioService = (*Service)(nil)

// CreatePortfolio stores a new portfolio. An empty ID is assigned a UUID.
func (s *Service) CreatePortfolio(ctx context.Context, portfolio *models.Portfolio) error {
	if portfolio.UserID == "" {
		return fmt.Errorf("portfolio user ID is required")
	}
	if strings.TrimSpace(portfolio.Name) == "" {
		return fmt.Errorf("portfolio name is required")
	}

	if portfolio.ID == "" {
		portfolio.ID = uuid.NewString()
	}
	normalizePositions(portfolio)

	now := time.Now()
	portfolio.CreatedAt = now
	portfolio.UpdatedAt = now

	if err := s.savePortfolio(ctx, portfolio); err != nil {
		return err
	}

	s.logger.Info().
		Str("user_id", portfolio.UserID).
		Str("portfolio_id", portfolio.ID).
		Str("name", portfolio.Name).
		Int("positions", len(portfolio.Positions)).
		Msg("Portfolio created")
	return nil
}

// GetPortfolio retrieves a portfolio scoped to the owning user
func (s *Service) GetPortfolio(ctx context.Context, userID, portfolioID string) (*models.Portfolio, error) {
	return s.loadPortfolio(ctx, userID, portfolioID)
}

// ListPortfolios returns all portfolios owned by a user, oldest first
func (s *Service) ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	records, err := s.storage.UserDataStore().List(ctx, userID, subjectPortfolio)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios for user '%s': %w", userID, err)
	}

	portfolios := make([]*models.Portfolio, 0, len(records))
	for _, rec := range records {
		var p models.Portfolio
		if err := json.Unmarshal([]byte(rec.Value), &p); err != nil {
			s.logger.Warn().Err(err).Str("key", rec.Key).Msg("Skipping corrupt portfolio record")
			continue
		}
		portfolios = append(portfolios, &p)
	}

	// Stable order: creation time, then ID for same-instant records
	for i := 1; i < len(portfolios); i++ {
		for j := i; j > 0 && earlier(portfolios[j], portfolios[j-1]); j-- {
			portfolios[j], portfolios[j-1] = portfolios[j-1], portfolios[j]
		}
	}
	return portfolios, nil
}

func earlier(a, b *models.Portfolio) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// UpdatePortfolio replaces a stored portfolio, preserving its creation time
func (s *Service) UpdatePortfolio(ctx context.Context, portfolio *models.Portfolio) error {
	if portfolio.ID == "" {
		return fmt.Errorf("portfolio ID is required")
	}
	existing, err := s.loadPortfolio(ctx, portfolio.UserID, portfolio.ID)
	if err != nil {
		return err
	}

	if strings.TrimSpace(portfolio.Name) == "" {
		portfolio.Name = existing.Name
	}
	normalizePositions(portfolio)
	portfolio.CreatedAt = existing.CreatedAt
	portfolio.UpdatedAt = time.Now()

	if err := s.savePortfolio(ctx, portfolio); err != nil {
		return err
	}

	s.logger.Info().
		Str("user_id", portfolio.UserID).
		Str("portfolio_id", portfolio.ID).
		Msg("Portfolio updated")
	return nil
}

// DeletePortfolio removes a portfolio along with its stored reports and
// review notes
func (s *Service) DeletePortfolio(ctx context.Context, userID, portfolioID string) error {
	if _, err := s.loadPortfolio(ctx, userID, portfolioID); err != nil {
		return err
	}

	store := s.storage.UserDataStore()
	if err := store.Delete(ctx, userID, subjectPortfolio, portfolioID); err != nil {
		return fmt.Errorf("failed to delete portfolio '%s': %w", portfolioID, err)
	}

	// Derived reports reference the portfolio by ID inside their payload
	removed := 0
	reports, err := store.List(ctx, userID, subjectReport)
	if err != nil {
		s.logger.Warn().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to list reports for cleanup")
	} else {
		for _, rec := range reports {
			var r models.Report
			if err := json.Unmarshal([]byte(rec.Value), &r); err != nil {
				continue
			}
			if r.Metadata.PortfolioID != portfolioID {
				continue
			}
			if err := store.Delete(ctx, userID, subjectReport, rec.Key); err == nil {
				removed++
			}
		}
	}

	_ = store.Delete(ctx, userID, subjectReview, portfolioID)

	s.logger.Info().
		Str("user_id", userID).
		Str("portfolio_id", portfolioID).
		Int("reports_removed", removed).
		Msg("Portfolio deleted")
	return nil
}

// AddPosition appends a position lot and returns the updated portfolio
func (s *Service) AddPosition(ctx context.Context, userID, portfolioID string, position models.Position) (*models.Portfolio, error) {
	if strings.TrimSpace(position.Symbol) == "" {
		return nil, fmt.Errorf("position symbol is required")
	}
	if position.Shares <= 0 {
		return nil, fmt.Errorf("position shares must be positive, got %.4f", position.Shares)
	}
	if position.PurchasePrice < 0 {
		return nil, fmt.Errorf("position purchase price cannot be negative")
	}

	p, err := s.loadPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	position.Symbol = strings.ToUpper(strings.TrimSpace(position.Symbol))
	p.Positions = append(p.Positions, position)
	p.UpdatedAt = time.Now()

	if err := s.savePortfolio(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("portfolio_id", portfolioID).
		Str("symbol", position.Symbol).
		Float64("shares", position.Shares).
		Msg("Position added")
	return p, nil
}

// RemovePosition drops all lots for a symbol and returns the updated portfolio
func (s *Service) RemovePosition(ctx context.Context, userID, portfolioID, symbol string) (*models.Portfolio, error) {
	p, err := s.loadPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	kept := p.Positions[:0]
	removed := 0
	for _, pos := range p.Positions {
		if strings.EqualFold(pos.Symbol, symbol) {
			removed++
			continue
		}
		kept = append(kept, pos)
	}
	if removed == 0 {
		return nil, fmt.Errorf("position '%s' not found in portfolio '%s'", symbol, portfolioID)
	}

	p.Positions = kept
	p.UpdatedAt = time.Now()

	if err := s.savePortfolio(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("portfolio_id", portfolioID).
		Str("symbol", strings.ToUpper(symbol)).
		Int("lots_removed", removed).
		Msg("Position removed")
	return p, nil
}

// savePortfolio marshals the portfolio into its user record
func (s *Service) savePortfolio(ctx context.Context, p *models.Portfolio) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio '%s': %w", p.ID, err)
	}
	record := &models.UserRecord{
		UserID:  p.UserID,
		Subject: subjectPortfolio,
		Key:     p.ID,
		Value:   string(data),
	}
	if err := s.storage.UserDataStore().Put(ctx, record); err != nil {
		return fmt.Errorf("failed to save portfolio '%s': %w", p.ID, err)
	}
	return nil
}

// loadPortfolio reads and unmarshals one portfolio record
func (s *Service) loadPortfolio(ctx context.Context, userID, portfolioID string) (*models.Portfolio, error) {
	rec, err := s.storage.UserDataStore().Get(ctx, userID, subjectPortfolio, portfolioID)
	if err != nil {
		return nil, err
	}
	var p models.Portfolio
	if err := json.Unmarshal([]byte(rec.Value), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal portfolio '%s': %w", portfolioID, err)
	}
	return &p, nil
}

// normalizePositions uppercases symbols and trims whitespace in place
func normalizePositions(p *models.Portfolio) {
	for i := range p.Positions {
		p.Positions[i].Symbol = strings.ToUpper(strings.TrimSpace(p.Positions[i].Symbol))
	}
}
