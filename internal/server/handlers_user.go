package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/models"
)

// --- User handlers ---

// routeUsers dispatches GET/PUT for /api/users/{id}.
func (s *Server) routeUsers(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/api/users/")
	if userID == "" || strings.Contains(userID, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleUserGet(w, r, userID)
	case http.MethodPut:
		s.handleUserUpdate(w, r, userID)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

// allowUserAccess enforces the self-or-admin rule for user resources.
// Returns false after writing the response when access is denied.
func (s *Server) allowUserAccess(w http.ResponseWriter, r *http.Request, auth *common.AuthUser, userID string) bool {
	if auth.UserID == userID {
		return true
	}
	caller, err := s.app.Storage.InternalStore().GetUser(r.Context(), auth.UserID)
	if err != nil || caller.Role != models.RoleAdmin {
		WriteError(w, http.StatusForbidden, "access denied")
		return false
	}
	return true
}

// handleUserGet handles GET /api/users/{id}.
func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request, userID string) {
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !s.allowUserAccess(w, r, auth, userID) {
		return
	}

	user, err := s.app.Storage.InternalStore().GetUser(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("user '%s' not found", userID))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   models.PublicUser(user),
	})
}

// handleUserUpdate handles PUT /api/users/{id}. Email and password may be
// changed by the user themselves or an admin; role changes are admin only.
func (s *Server) handleUserUpdate(w http.ResponseWriter, r *http.Request, userID string) {
	auth, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !s.allowUserAccess(w, r, auth, userID) {
		return
	}

	var req struct {
		Email    *string `json:"email"`
		Password *string `json:"password"`
		Role     *string `json:"role"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	store := s.app.Storage.InternalStore()

	user, err := store.GetUser(ctx, userID)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("user '%s' not found", userID))
		return
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			WriteError(w, http.StatusBadRequest, "email must not be empty")
			return
		}
		if existing, err := store.GetUserByEmail(ctx, email); err == nil && existing.UserID != userID {
			WriteError(w, http.StatusConflict, fmt.Sprintf("account with email '%s' already exists", email))
			return
		}
		user.Email = email
	}

	if req.Password != nil {
		if len(*req.Password) < 8 {
			WriteError(w, http.StatusBadRequest, "password must have at least 8 characters")
			return
		}
		hash, err := hashPassword(*req.Password)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to hash password")
			WriteError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
		user.PasswordHash = hash
	}

	if req.Role != nil {
		caller, err := store.GetUser(ctx, auth.UserID)
		if err != nil || caller.Role != models.RoleAdmin {
			WriteError(w, http.StatusForbidden, "only admins may change roles")
			return
		}
		if err := models.ValidateRole(*req.Role); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		user.Role = *req.Role
	}

	user.ModifiedAt = time.Now()
	if err := store.SaveUser(ctx, user); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to save user")
		WriteError(w, http.StatusInternalServerError, "failed to save user")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   models.PublicUser(user),
	})
}
