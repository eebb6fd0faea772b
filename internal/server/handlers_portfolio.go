package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

// statementSizeLimit caps uploaded PDF statements at 10MB.
const statementSizeLimit = 10 << 20

// --- Portfolio handlers ---

// routePortfolios dispatches /api/portfolios/{id}/* to the appropriate handler.
func (s *Server) routePortfolios(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/portfolios/")
	if path == "" {
		s.handlePortfolios(w, r)
		return
	}
	if path == "import" {
		s.handlePortfolioImport(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	portfolioID := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	switch {
	case subpath == "":
		s.handlePortfolio(w, r, portfolioID)
	case subpath == "positions":
		s.handlePositionAdd(w, r, portfolioID)
	case strings.HasPrefix(subpath, "positions/"):
		symbol := strings.TrimPrefix(subpath, "positions/")
		s.handlePositionRemove(w, r, portfolioID, symbol)
	case subpath == "analysis":
		s.handlePortfolioAnalysis(w, r, portfolioID)
	case subpath == "growth":
		s.handlePortfolioGrowth(w, r, portfolioID)
	case strings.HasPrefix(subpath, "charts/"):
		kind := strings.TrimPrefix(subpath, "charts/")
		s.handlePortfolioChart(w, r, portfolioID, kind)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// handlePortfolios handles GET (list) and POST (create) on /api/portfolios.
func (s *Server) handlePortfolios(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handlePortfolioList(w, r)
	case http.MethodPost:
		s.handlePortfolioCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	portfolios, err := s.app.PortfolioService.ListPortfolios(r.Context(), auth.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", auth.UserID).Msg("Failed to list portfolios")
		WriteError(w, http.StatusInternalServerError, "failed to list portfolios")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolios": portfolios,
		"count":      len(portfolios),
	})
}

func (s *Server) handlePortfolioCreate(w http.ResponseWriter, r *http.Request) {
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name" validate:"required,max=128"`
		Description string `json:"description" validate:"max=1024"`
		Currency    string `json:"currency" validate:"omitempty,len=3"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := validateRequest(w, &req); err != nil {
		return
	}

	portfolio := &models.Portfolio{
		UserID:      auth.UserID,
		Name:        req.Name,
		Description: req.Description,
		Currency:    req.Currency,
	}
	if err := s.app.PortfolioService.CreatePortfolio(r.Context(), portfolio); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("failed to create portfolio: %v", err))
		return
	}

	WriteJSON(w, http.StatusCreated, portfolio)
}

// handlePortfolio handles GET/PUT/DELETE on /api/portfolios/{id}.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request, portfolioID string) {
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		portfolio, err := s.app.PortfolioService.GetPortfolio(r.Context(), auth.UserID, portfolioID)
		if err != nil {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Portfolio not found: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, portfolio)

	case http.MethodPut:
		var req struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
			Currency    *string `json:"currency"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}

		portfolio, err := s.app.PortfolioService.GetPortfolio(r.Context(), auth.UserID, portfolioID)
		if err != nil {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Portfolio not found: %v", err))
			return
		}
		if req.Name != nil {
			portfolio.Name = *req.Name
		}
		if req.Description != nil {
			portfolio.Description = *req.Description
		}
		if req.Currency != nil {
			portfolio.Currency = *req.Currency
		}
		if err := s.app.PortfolioService.UpdatePortfolio(r.Context(), portfolio); err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("failed to update portfolio: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, portfolio)

	case http.MethodDelete:
		if err := s.app.PortfolioService.DeletePortfolio(r.Context(), auth.UserID, portfolioID); err != nil {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Portfolio not found: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// handlePositionAdd handles POST /api/portfolios/{id}/positions.
func (s *Server) handlePositionAdd(w http.ResponseWriter, r *http.Request, portfolioID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Symbol        string  `json:"symbol" validate:"required,max=12"`
		Shares        float64 `json:"shares" validate:"required,gt=0"`
		PurchasePrice float64 `json:"purchase_price" validate:"gte=0"`
		PurchaseDate  string  `json:"purchase_date"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := validateRequest(w, &req); err != nil {
		return
	}

	position := models.Position{
		Symbol:        req.Symbol,
		Shares:        req.Shares,
		PurchasePrice: req.PurchasePrice,
	}
	if req.PurchaseDate != "" {
		date, err := parseDate(req.PurchaseDate)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "purchase_date must be YYYY-MM-DD")
			return
		}
		position.PurchaseDate = date
	}

	portfolio, err := s.app.PortfolioService.AddPosition(r.Context(), auth.UserID, portfolioID, position)
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		WriteError(w, status, fmt.Sprintf("failed to add position: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, portfolio)
}

// handlePositionRemove handles DELETE /api/portfolios/{id}/positions/{symbol}.
func (s *Server) handlePositionRemove(w http.ResponseWriter, r *http.Request, portfolioID, symbol string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	portfolio, err := s.app.PortfolioService.RemovePosition(r.Context(), auth.UserID, portfolioID, symbol)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("failed to remove position: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, portfolio)
}

// handlePortfolioAnalysis handles GET /api/portfolios/{id}/analysis.
// Query: days (analysis window), technical (include per-holding indicators).
func (s *Server) handlePortfolioAnalysis(w http.ResponseWriter, r *http.Request, portfolioID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	days, ok := queryInt(w, r, "days", 0)
	if !ok {
		return
	}
	technical := r.URL.Query().Get("technical") == "true"

	analysis, err := s.app.PortfolioService.Analyze(r.Context(), auth.UserID, portfolioID, interfaces.PortfolioAnalyzeOptions{
		PeriodDays:       days,
		IncludeTechnical: technical,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		WriteError(w, status, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, analysis)
}

// handlePortfolioGrowth handles GET /api/portfolios/{id}/growth?days=.
func (s *Server) handlePortfolioGrowth(w http.ResponseWriter, r *http.Request, portfolioID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	days, ok := queryInt(w, r, "days", 0)
	if !ok {
		return
	}

	points, err := s.app.PortfolioService.Growth(r.Context(), auth.UserID, portfolioID, days)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		WriteError(w, status, fmt.Sprintf("growth calculation failed: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio_id": portfolioID,
		"points":       points,
	})
}

// handlePortfolioChart handles GET /api/portfolios/{id}/charts/{kind}.
// Kinds: growth (value over time), allocation (position weights).
func (s *Server) handlePortfolioChart(w http.ResponseWriter, r *http.Request, portfolioID, kind string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var png []byte
	var err error
	switch kind {
	case "growth":
		days, parsed := queryInt(w, r, "days", 0)
		if !parsed {
			return
		}
		png, err = s.app.PortfolioService.RenderGrowthChart(r.Context(), auth.UserID, portfolioID, days)
	case "allocation":
		png, err = s.app.PortfolioService.RenderAllocationChart(r.Context(), auth.UserID, portfolioID)
	default:
		WriteError(w, http.StatusNotFound, fmt.Sprintf("unknown chart kind: %s", kind))
		return
	}
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		WriteError(w, status, fmt.Sprintf("chart render failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handlePortfolioImport handles POST /api/portfolios/import?name=.
// The request body is the raw PDF statement; a new portfolio is created
// from its parsed positions.
func (s *Server) handlePortfolioImport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		WriteError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	pdfData, err := io.ReadAll(http.MaxBytesReader(w, r.Body, statementSizeLimit))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read statement body")
		return
	}

	portfolio, err := s.app.PortfolioService.ImportStatement(r.Context(), auth.UserID, name, pdfData)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("statement import failed: %v", err))
		return
	}

	WriteJSON(w, http.StatusCreated, portfolio)
}

// queryInt parses an optional non-negative integer query parameter. A missing
// or empty parameter yields def. Returns false after writing a 400 response
// when the value is not a valid non-negative integer.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a non-negative integer", name))
		return 0, false
	}
	return v, true
}
