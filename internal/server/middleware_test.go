package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/models"
)

// newFullStackHandler rebuilds the server through NewServer so requests pass
// the complete middleware chain instead of hitting handlers directly.
func newFullStackHandler(t *testing.T, srv *Server) http.Handler {
	t.Helper()
	return NewServer(srv.app).Handler()
}

func TestMiddleware_HealthRequiresNoAuth(t *testing.T) {
	srv := newTestServerWithStorage(t)
	handler := newFullStackHandler(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMiddleware_MissingTokenPassesThrough(t *testing.T) {
	srv := newTestServerWithStorage(t)
	handler := newFullStackHandler(t, srv)

	// No Authorization header: the middleware passes the request on and the
	// handler rejects it itself.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "authentication required") {
		t.Errorf("expected handler-level rejection, got %s", rec.Body.String())
	}
}

func TestMiddleware_NonBearerHeaderIgnored(t *testing.T) {
	srv := newTestServerWithStorage(t)
	handler := newFullStackHandler(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "authentication required") {
		t.Errorf("Basic auth should be treated as unauthenticated, got %s", rec.Body.String())
	}
}

func TestMiddleware_GarbageToken(t *testing.T) {
	srv := newTestServerWithStorage(t)
	handler := newFullStackHandler(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid or expired token") {
		t.Errorf("expected token rejection, got %s", rec.Body.String())
	}
	if rec.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Errorf("expected WWW-Authenticate header, got %q", rec.Header().Get("WWW-Authenticate"))
	}
}

func TestMiddleware_ValidToken(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, token := registerTestUser(t, srv, "alice@example.com", "secretpass")
	handler := newFullStackHandler(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), userID) {
		t.Errorf("expected user_id %s in response, got %s", userID, rec.Body.String())
	}
}

func TestMiddleware_WrongSecretToken(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, _ := registerTestUser(t, srv, "alice@example.com", "secretpass")
	handler := newFullStackHandler(t, srv)

	token, err := signJWT(&models.InternalUser{UserID: userID, Email: "alice@example.com"},
		&common.AuthConfig{JWTSecret: "some-other-secret"})
	if err != nil {
		t.Fatalf("signJWT failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid or expired token") {
		t.Errorf("expected signature rejection, got %s", rec.Body.String())
	}
}

func TestMiddleware_EmptySubjectClaim(t *testing.T) {
	srv := newTestServerWithStorage(t)
	handler := newFullStackHandler(t, srv)

	token, err := signJWT(&models.InternalUser{UserID: "", Email: "ghost@example.com"},
		&common.AuthConfig{JWTSecret: srv.app.Config.Auth.JWTSecret})
	if err != nil {
		t.Fatalf("signJWT failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid token claims") {
		t.Errorf("expected claims rejection, got %s", rec.Body.String())
	}
}

func TestMiddleware_DeletedUserTokenRejected(t *testing.T) {
	srv := newTestServerWithStorage(t)
	userID, token := registerTestUser(t, srv, "alice@example.com", "secretpass")
	handler := newFullStackHandler(t, srv)

	if err := srv.app.Storage.InternalStore().DeleteUser(context.Background(), userID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted account, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "user not found") {
		t.Errorf("expected account check rejection, got %s", rec.Body.String())
	}
}

func TestMiddleware_CORSPreflight(t *testing.T) {
	srv := newTestServerWithStorage(t)
	handler := newFullStackHandler(t, srv)

	req := httptest.NewRequest(http.MethodOptions, "/api/portfolios", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected wildcard origin, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected Access-Control-Allow-Methods header")
	}
}

func TestMiddleware_CorrelationID(t *testing.T) {
	srv := newTestServerWithStorage(t)
	handler := newFullStackHandler(t, srv)

	// Caller-supplied request ID is echoed back
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "req-123" {
		t.Errorf("expected echoed request ID, got %q", got)
	}

	// X-Correlation-ID works as a fallback
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Correlation-ID", "corr-9")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "corr-9" {
		t.Errorf("expected echoed correlation ID, got %q", got)
	}

	// Otherwise one is generated
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); len(got) != 8 {
		t.Errorf("expected generated 8-char correlation ID, got %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := common.NewSilentLogger()
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	handler := recoveryMiddleware(logger)(panicking)
	req := httptest.NewRequest(http.MethodGet, "/api/anything", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Internal server error") {
		t.Errorf("expected error body, got %s", rec.Body.String())
	}
}

func TestMiddleware_UnknownRoute(t *testing.T) {
	srv := newTestServerWithStorage(t)
	handler := newFullStackHandler(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown route, got %d", rec.Code)
	}
}
