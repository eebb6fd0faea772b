package server

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/bobmcallan/mapletrade/internal/common"
)

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)
	mux.HandleFunc("/debug/memstats", s.handleMemstats)

	// Auth
	mux.HandleFunc("/api/auth/register", s.handleAuthRegister)
	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)
	mux.HandleFunc("/api/auth/me", s.handleAuthMe)

	// Users
	mux.HandleFunc("/api/users/", s.routeUsers)

	// Portfolios
	mux.HandleFunc("/api/portfolios/", s.routePortfolios)
	mux.HandleFunc("/api/portfolios", s.handlePortfolios)

	// Stock analysis
	mux.HandleFunc("/api/analyze/", s.handleAnalyze)

	// Batch
	mux.HandleFunc("/api/batch/analyze", s.handleBatchAnalyze)
	mux.HandleFunc("/api/batch/screen", s.handleBatchScreen)
	mux.HandleFunc("/api/batch/compare", s.handleBatchCompare)

	// Reports
	mux.HandleFunc("/api/reports/", s.handleReportGet)
	mux.HandleFunc("/api/reports", s.handleReports)

	// Admin
	mux.HandleFunc("/api/admin/users", s.handleAdminUsers)
	mux.HandleFunc("/api/admin/purge", s.handleAdminPurge)
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()

	store := s.app.Storage.InternalStore()

	// Runtime overrides stored in system KV
	runtimeSettings := map[string]string{}
	for _, key := range []string{"market_api_key"} {
		if val, err := store.GetSystemKV(ctx, key); err == nil && val != "" {
			runtimeSettings[key] = val
		}
	}
	// Mask secrets
	for k, v := range runtimeSettings {
		if strings.Contains(k, "api_key") {
			runtimeSettings[k] = maskSecret(v)
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runtime_settings":  runtimeSettings,
		"environment":       s.app.Config.Environment,
		"server_address":    fmt.Sprintf("%s:%d", s.app.Config.Server.Host, s.app.Config.Server.Port),
		"storage_internal":  s.app.Config.Storage.Internal.Path,
		"storage_user":      s.app.Config.Storage.User.Path,
		"storage_market":    s.app.Config.Storage.Market.Path,
		"logging_level":     s.app.Config.Logging.Level,
		"benchmark_symbol":  s.app.Config.Analysis.BenchmarkSymbol,
		"default_months":    s.app.Config.Analysis.DefaultMonths,
		"batch_workers":     s.app.Config.Batch.WorkerCount(),
		"scheduler_enabled": s.app.Config.Scheduler.Enabled,
		"market_configured": s.app.MarketClient != nil,
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	uptime := time.Since(s.app.StartupTime).Round(time.Second)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"commit":     common.GetGitCommit(),
		"uptime":     uptime.String(),
		"started_at": s.app.StartupTime,
		"goroutines": runtime.NumGoroutine(),
	})
}

func (s *Server) handleMemstats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"heap_alloc_bytes": m.HeapAlloc,
		"heap_inuse_bytes": m.HeapInuse,
		"heap_idle_bytes":  m.HeapIdle,
		"sys_bytes":        m.Sys,
		"num_gc":           m.NumGC,
		"heap_alloc_mb":    float64(m.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb":    float64(m.HeapInuse) / 1024 / 1024,
		"heap_idle_mb":     float64(m.HeapIdle) / 1024 / 1024,
		"sys_mb":           float64(m.Sys) / 1024 / 1024,
	})
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
