package common

import (
	"context"
)

// AuthUser holds the authenticated identity extracted from a request's bearer
// token. When absent (nil), the request is unauthenticated.
type AuthUser struct {
	UserID string
	Email  string
}

type contextKey int

const authUserKey contextKey = iota

// WithAuthUser stores an AuthUser in the request context.
func WithAuthUser(ctx context.Context, u *AuthUser) context.Context {
	return context.WithValue(ctx, authUserKey, u)
}

// AuthUserFromContext retrieves the AuthUser from context, or nil if absent.
func AuthUserFromContext(ctx context.Context) *AuthUser {
	u, _ := ctx.Value(authUserKey).(*AuthUser)
	return u
}
