package server

import (
	"net/http"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/models"
)

// requireAdmin checks that the authenticated user has the admin role.
// Returns false after writing the error response.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) (*common.AuthUser, bool) {
	auth, ok := s.requireUser(w, r)
	if !ok {
		return nil, false
	}

	user, err := s.app.Storage.InternalStore().GetUser(r.Context(), auth.UserID)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "User not found")
		return nil, false
	}
	if user.Role != models.RoleAdmin {
		WriteError(w, http.StatusForbidden, "Admin access required")
		return nil, false
	}

	return auth, true
}

// handleAdminUsers handles GET /api/admin/users, listing registered user IDs.
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	users, err := s.app.Storage.InternalStore().ListUsers(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		WriteError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// handleAdminPurge handles POST /api/admin/purge. Reports, batch results,
// market snapshots and charts are regenerable; portfolios and accounts are
// never touched.
func (s *Server) handleAdminPurge(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	auth, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}

	counts, err := s.app.Storage.PurgeDerivedData(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "purge failed: "+err.Error())
		return
	}

	s.logger.Info().
		Str("user_id", auth.UserID).
		Interface("counts", counts).
		Msg("Derived data purged via admin endpoint")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"purged": counts,
	})
}
