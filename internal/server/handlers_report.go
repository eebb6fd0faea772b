package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bobmcallan/mapletrade/internal/models"
	"github.com/bobmcallan/mapletrade/internal/services/report"
)

// --- Report handlers ---

// handleReports handles POST (create) and GET (history) on /api/reports.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleReportCreate(w, r)
	case http.MethodGet:
		s.handleReportList(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleReportCreate(w http.ResponseWriter, r *http.Request) {
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		PortfolioID string `json:"portfolio_id" validate:"required"`
		ReportType  string `json:"report_type" validate:"required"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := validateRequest(w, &req); err != nil {
		return
	}

	rep, err := s.app.ReportService.CreateReport(r.Context(), auth.UserID, req.PortfolioID, models.ReportType(req.ReportType))
	if err != nil {
		var unknownType *report.UnknownReportTypeError
		status := http.StatusInternalServerError
		switch {
		case errors.As(err, &unknownType):
			status = http.StatusBadRequest
		case strings.Contains(err.Error(), "not found"):
			status = http.StatusNotFound
		}
		WriteError(w, status, fmt.Sprintf("report generation failed: %v", err))
		return
	}

	WriteJSON(w, http.StatusCreated, rep)
}

// handleReportList handles GET /api/reports?portfolio=&limit=.
func (s *Server) handleReportList(w http.ResponseWriter, r *http.Request) {
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	portfolioID := r.URL.Query().Get("portfolio")
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}

	reports, err := s.app.ReportService.GetReportHistory(r.Context(), auth.UserID, portfolioID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", auth.UserID).Msg("Failed to list reports")
		WriteError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// handleReportGet handles GET /api/reports/{id}. Reads the stored record
// directly; reports are immutable once generated.
func (s *Server) handleReportGet(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	reportID := PathParam(r, "/api/reports/", "")
	if reportID == "" {
		WriteError(w, http.StatusBadRequest, "report ID is required in path")
		return
	}

	rec, err := s.app.Storage.UserDataStore().Get(r.Context(), auth.UserID, "report", reportID)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("report '%s' not found", reportID))
		return
	}

	var rep models.Report
	if err := json.Unmarshal([]byte(rec.Value), &rep); err != nil {
		s.logger.Error().Err(err).Str("report_id", reportID).Msg("Stored report is corrupt")
		WriteError(w, http.StatusInternalServerError, "stored report is corrupt")
		return
	}
	if rep.ID == "" {
		rep.ID = rec.Key
	}

	WriteJSON(w, http.StatusOK, &rep)
}
