package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

type seedUsersFile struct {
	Users []seedUser `json:"users"`
}

type seedUser struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ImportUsersFromFile reads a users JSON file and imports accounts into the
// internal store. Existing users (by user ID) are skipped, never overwritten.
// Passwords are bcrypt-hashed; an empty role defaults to "user" and an invalid
// role skips the entry. Returns (imported count, skipped count, error).
func ImportUsersFromFile(ctx context.Context, store interfaces.InternalStore, logger *common.Logger, filePath string) (int, int, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read users file %s: %w", filePath, err)
	}

	var file seedUsersFile
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, 0, fmt.Errorf("failed to parse users file %s: %w", filePath, err)
	}

	imported, skipped := 0, 0
	for _, u := range file.Users {
		if u.UserID == "" {
			skipped++
			continue
		}
		// Skip if exists
		if _, err := store.GetUser(ctx, u.UserID); err == nil {
			skipped++
			continue
		}
		role := u.Role
		if role == "" {
			role = models.RoleUser
		}
		if err := models.ValidateRole(role); err != nil {
			logger.Warn().Err(err).Str("user_id", u.UserID).Msg("Skipping user with invalid role")
			skipped++
			continue
		}
		// Hash password
		passwordBytes := []byte(u.Password)
		if len(passwordBytes) > 72 {
			passwordBytes = passwordBytes[:72]
		}
		hash, err := bcrypt.GenerateFromPassword(passwordBytes, 10)
		if err != nil {
			logger.Warn().Err(err).Str("user_id", u.UserID).Msg("Failed to hash password during import")
			skipped++
			continue
		}
		now := time.Now()
		user := &models.InternalUser{
			UserID:       u.UserID,
			Email:        u.Email,
			PasswordHash: string(hash),
			Role:         role,
			CreatedAt:    now,
			ModifiedAt:   now,
		}
		if err := store.SaveUser(ctx, user); err != nil {
			logger.Warn().Err(err).Str("user_id", u.UserID).Msg("Failed to save user during import")
			skipped++
			continue
		}
		logger.Info().Str("user_id", u.UserID).Str("role", role).Msg("User imported")
		imported++
	}
	return imported, skipped, nil
}
