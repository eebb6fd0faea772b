// Package interfaces defines service contracts for MapleTrade
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/mapletrade/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	// Storage accessors
	InternalStore() InternalStore
	UserDataStore() UserDataStore
	MarketDataStorage() MarketDataStorage

	// DataPath returns the base data directory path (e.g. /app/data/market).
	DataPath() string

	// WriteRaw writes arbitrary binary data to a subdirectory atomically.
	// Key is sanitized for safe filenames (e.g. "growth-smsf.png").
	WriteRaw(subdir, key string, data []byte) error

	// ReadRaw reads binary data previously written with WriteRaw.
	ReadRaw(subdir, key string) ([]byte, error)

	// PurgeDerivedData deletes cached market data and reports while
	// preserving user data (portfolios, accounts). Returns counts of
	// deleted items per type.
	PurgeDerivedData(ctx context.Context) (map[string]int, error)

	// Lifecycle
	Close() error
}

// InternalStore manages user accounts, per-user config, and system-level KV.
type InternalStore interface {
	// User accounts
	GetUser(ctx context.Context, userID string) (*models.InternalUser, error)
	GetUserByEmail(ctx context.Context, email string) (*models.InternalUser, error)
	SaveUser(ctx context.Context, user *models.InternalUser) error
	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]string, error)

	// IncrementAnalysisCount bumps the user's analysis counter and stamps
	// the last-analysis time.
	IncrementAnalysisCount(ctx context.Context, userID string, at time.Time) error

	// Per-user key-value config
	GetUserKV(ctx context.Context, userID, key string) (*models.UserKeyValue, error)
	SetUserKV(ctx context.Context, userID, key, value string) error
	DeleteUserKV(ctx context.Context, userID, key string) error
	ListUserKV(ctx context.Context, userID string) ([]*models.UserKeyValue, error)

	// System key-value (non-user-scoped)
	GetSystemKV(ctx context.Context, key string) (string, error)
	SetSystemKV(ctx context.Context, key, value string) error

	Close() error
}

// UserDataStore manages all user domain data via generic records.
type UserDataStore interface {
	Get(ctx context.Context, userID, subject, key string) (*models.UserRecord, error)
	Put(ctx context.Context, record *models.UserRecord) error
	Delete(ctx context.Context, userID, subject, key string) error
	List(ctx context.Context, userID, subject string) ([]*models.UserRecord, error)
	Query(ctx context.Context, userID, subject string, opts QueryOptions) ([]*models.UserRecord, error)
	DeleteBySubject(ctx context.Context, subject string) (int, error)
	Close() error
}

// QueryOptions configures query behavior for UserDataStore.
type QueryOptions struct {
	Limit   int
	OrderBy string // "datetime_desc" (default), "datetime_asc"
}

// MarketDataStorage handles market data persistence
type MarketDataStorage interface {
	// GetMarketData retrieves cached market data for a symbol
	GetMarketData(ctx context.Context, symbol string) (*models.MarketData, error)

	// SaveMarketData persists market data
	SaveMarketData(ctx context.Context, data *models.MarketData) error

	// GetMarketDataBatch retrieves market data for multiple symbols
	GetMarketDataBatch(ctx context.Context, symbols []string) ([]*models.MarketData, error)

	// ListSymbols returns every symbol with cached market data
	ListSymbols(ctx context.Context) ([]string, error)

	// GetStaleSymbols returns symbols whose data is older than maxAge
	GetStaleSymbols(ctx context.Context, maxAge time.Duration) ([]string, error)
}
