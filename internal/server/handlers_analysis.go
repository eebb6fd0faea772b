package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

// --- Stock analysis handlers ---

// handleAnalyze handles GET /api/analyze/{symbol}.
// Query: months (analysis window, default from config), technical=false to
// skip indicator computation.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	symbol := PathParam(r, "/api/analyze/", "")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}

	months, ok := queryInt(w, r, "months", s.app.Config.Analysis.DefaultMonths)
	if !ok {
		return
	}
	technical := r.URL.Query().Get("technical") != "false"

	analysis, err := s.app.AnalysisService.AnalyzeStock(r.Context(), symbol, interfaces.StockAnalyzeOptions{
		PeriodMonths:     months,
		IncludeTechnical: technical,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "no market data") {
			status = http.StatusNotFound
		}
		WriteError(w, status, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	// Counter failure never voids a delivered analysis.
	if err := s.app.Storage.InternalStore().IncrementAnalysisCount(r.Context(), auth.UserID, time.Now()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", auth.UserID).Msg("Failed to bump analysis counter")
	}

	WriteJSON(w, http.StatusOK, analysis)
}

// --- Batch handlers ---

// handleBatchAnalyze handles POST /api/batch/analyze.
func (s *Server) handleBatchAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if _, ok := s.requireUser(w, r); !ok {
		return
	}

	var req struct {
		Symbols []string `json:"symbols" validate:"required,min=1,max=50,dive,required"`
		Kinds   []string `json:"kinds"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := validateRequest(w, &req); err != nil {
		return
	}

	result, err := s.app.BatchService.AnalyzeStocks(r.Context(), req.Symbols, req.Kinds)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "unknown analysis kind") || strings.Contains(err.Error(), "no symbols") {
			status = http.StatusBadRequest
		}
		WriteError(w, status, fmt.Sprintf("batch analysis failed: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// handleBatchScreen handles POST /api/batch/screen.
func (s *Server) handleBatchScreen(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if _, ok := s.requireUser(w, r); !ok {
		return
	}

	var req struct {
		Symbols  []string              `json:"symbols" validate:"required,min=1,max=50,dive,required"`
		Criteria models.ScreenCriteria `json:"criteria"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := validateRequest(w, &req); err != nil {
		return
	}

	result, err := s.app.BatchService.Screen(r.Context(), req.Symbols, req.Criteria)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "no symbols") {
			status = http.StatusBadRequest
		}
		WriteError(w, status, fmt.Sprintf("screening failed: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// handleBatchCompare handles POST /api/batch/compare.
func (s *Server) handleBatchCompare(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if _, ok := s.requireUser(w, r); !ok {
		return
	}

	var req struct {
		Symbols []string `json:"symbols" validate:"required,min=2,max=50,dive,required"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := validateRequest(w, &req); err != nil {
		return
	}

	result, err := s.app.BatchService.Compare(r.Context(), req.Symbols)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "at least 2 symbols") {
			status = http.StatusBadRequest
		}
		WriteError(w, status, fmt.Sprintf("comparison failed: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
