package models

import "time"

// User is the API-facing view of an account. PasswordHash is never
// serialized.
type User struct {
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	TotalAnalyses  int       `json:"total_analyses"`
	LastAnalysisAt time.Time `json:"last_analysis_at,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PublicUser converts a stored account into its API-facing view
func PublicUser(u *InternalUser) *User {
	return &User{
		UserID:         u.UserID,
		Email:          u.Email,
		Role:           u.Role,
		TotalAnalyses:  u.TotalAnalyses,
		LastAnalysisAt: u.LastAnalysisAt,
		CreatedAt:      u.CreatedAt,
	}
}
