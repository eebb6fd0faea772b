package models

import (
	"fmt"
	"time"
)

// Account roles. Role checks compare against these exact values.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidateRole checks that role is one of the known account roles.
func ValidateRole(role string) error {
	switch role {
	case RoleAdmin, RoleUser:
		return nil
	}
	return fmt.Errorf("invalid role %q: must be %s or %s", role, RoleAdmin, RoleUser)
}

// InternalUser represents a user account stored in the internal database.
// Auth and identity only, preferences are stored as UserKeyValue entries.
// TotalAnalyses and LastAnalysisAt are bumped on every report generated
// for the user.
type InternalUser struct {
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"password_hash"`
	Role           string    `json:"role"`
	TotalAnalyses  int       `json:"total_analyses"`
	LastAnalysisAt time.Time `json:"last_analysis_at,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	ModifiedAt     time.Time `json:"modified_at"`
}

// UserKeyValue represents a per-user configuration key-value pair.
type UserKeyValue struct {
	UserID   string    `json:"user_id"`
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	Version  int       `json:"version"`
	DateTime time.Time `json:"datetime"`
}

// UserRecord is a generic document record for all user domain data.
// Subjects in use: portfolio, report, review, batch.
type UserRecord struct {
	UserID   string    `json:"user_id"`
	Subject  string    `json:"subject"`
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	Version  int       `json:"version"`
	DateTime time.Time `json:"datetime"`
}
