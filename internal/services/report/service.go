// Package report assembles and stores portfolio reports
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

const subjectReport = "report"

// defaultHistoryLimit caps report history responses when no limit is given.
const defaultHistoryLimit = 10

// UnknownReportTypeError marks a report request with an unsupported type so
// the API boundary can map it to a client error.
type UnknownReportTypeError struct {
	Type models.ReportType
}

func (e *UnknownReportTypeError) Error() string {
	return fmt.Sprintf("unknown report type: %s", e.Type)
}

// Service implements ReportService
type Service struct {
	storage    interfaces.StorageManager
	portfolios interfaces.PortfolioService
	market     interfaces.MarketService
	config     common.AnalysisConfig
	logger     *common.Logger
}

// NewService creates a new report service
func NewService(
	storage interfaces.StorageManager,
	portfolios interfaces.PortfolioService,
	market interfaces.MarketService,
	config common.AnalysisConfig,
	logger *common.Logger,
) *Service {
	return &Service{
		storage:    storage,
		portfolios: portfolios,
		market:     market,
		config:     config,
		logger:     logger,
	}
}

// CreateReport assembles a report of the given type and persists it. Every
// successful assembly bumps the user's analysis counter.
func (s *Service) CreateReport(ctx context.Context, userID, portfolioID string, reportType models.ReportType) (*models.Report, error) {
	if !models.ValidReportType(reportType) {
		return nil, &UnknownReportTypeError{Type: reportType}
	}

	// Ownership check before any analysis work
	portfolio, err := s.portfolios.GetPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("portfolio not found or access denied: %w", err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("portfolio_id", portfolioID).
		Str("report_type", string(reportType)).
		Msg("Generating portfolio report")

	report := &models.Report{ID: uuid.NewString()}

	switch reportType {
	case models.ReportComprehensive:
		err = s.buildComprehensive(ctx, userID, portfolioID, report)
	case models.ReportPerformance:
		err = s.buildPerformance(ctx, userID, portfolioID, report)
	case models.ReportRisk:
		err = s.buildRisk(ctx, userID, portfolioID, report)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to assemble %s report: %w", reportType, err)
	}

	report.Metadata = models.ReportMetadata{
		ReportType:    reportType,
		GeneratedAt:   time.Now(),
		UserID:        userID,
		PortfolioID:   portfolioID,
		PortfolioName: portfolio.Name,
	}

	if err := s.saveReport(ctx, userID, report); err != nil {
		return nil, err
	}

	// Counter failure never voids a stored report
	if err := s.storage.InternalStore().IncrementAnalysisCount(ctx, userID, report.Metadata.GeneratedAt); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to bump analysis counter")
	}

	s.logger.Info().
		Str("report_id", report.ID).
		Str("report_type", string(reportType)).
		Msg("Report generated and stored")
	return report, nil
}

// GetReportHistory returns recent stored reports, newest first. An empty
// portfolioID returns reports across all of the user's portfolios.
func (s *Service) GetReportHistory(ctx context.Context, userID, portfolioID string, limit int) ([]*models.Report, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	records, err := s.storage.UserDataStore().Query(ctx, userID, subjectReport, interfaces.QueryOptions{
		OrderBy: "datetime_desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query report history: %w", err)
	}

	reports := make([]*models.Report, 0, limit)
	for _, rec := range records {
		var r models.Report
		if err := json.Unmarshal([]byte(rec.Value), &r); err != nil {
			s.logger.Warn().Err(err).Str("key", rec.Key).Msg("Skipping corrupt report record")
			continue
		}
		if r.ID == "" {
			r.ID = rec.Key
		}
		if portfolioID != "" && r.Metadata.PortfolioID != portfolioID {
			continue
		}
		reports = append(reports, &r)
		if len(reports) == limit {
			break
		}
	}
	return reports, nil
}

func (s *Service) saveReport(ctx context.Context, userID string, report *models.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report '%s': %w", report.ID, err)
	}
	record := &models.UserRecord{
		UserID:  userID,
		Subject: subjectReport,
		Key:     report.ID,
		Value:   string(data),
	}
	if err := s.storage.UserDataStore().Put(ctx, record); err != nil {
		return fmt.Errorf("failed to save report '%s': %w", report.ID, err)
	}
	return nil
}

// Ensure Service implements ReportService
var _ interfaces.ReportService = (*Service)(nil)
