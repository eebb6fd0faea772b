// Package common provides shared utilities for MapleTrade
package common

import "time"

// Freshness TTLs for cached market data components
const (
	FreshnessTodayBar     = 1 * time.Hour
	FreshnessEODHistory   = 12 * time.Hour
	FreshnessFundamentals = 7 * 24 * time.Hour // 7 days
	FreshnessReport       = 1 * time.Hour
	FreshnessChart        = 24 * time.Hour
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
