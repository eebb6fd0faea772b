// Package common provides shared utilities for MapleTrade
package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/mapletrade/internal/interfaces"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for MapleTrade
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	Logging     LoggingConfig   `toml:"logging"`
	Auth        AuthConfig      `toml:"auth"`
	Analysis    AnalysisConfig  `toml:"analysis"`
	Batch       BatchConfig     `toml:"batch"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds storage configuration for the 3 storage areas.
type StorageConfig struct {
	Internal AreaConfig `toml:"internal"` // User accounts + config KV (BadgerHold)
	User     AreaConfig `toml:"user"`     // Portfolios, reports, batch history (BadgerHold)
	Market   AreaConfig `toml:"market"`   // Market data snapshots + charts (file-based JSON)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	MarketData MarketDataConfig `toml:"marketdata"`
}

// MarketDataConfig holds market data API configuration
type MarketDataConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *MarketDataConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// AuthConfig holds JWT authentication configuration.
type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	Issuer      string `toml:"issuer"`
	TokenExpiry string `toml:"token_expiry"` // duration string, default "24h"
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// AnalysisConfig holds analysis policy defaults.
type AnalysisConfig struct {
	BenchmarkSymbol     string  `toml:"benchmark_symbol"`     // reference index for performance comparison
	DefaultMonths       int     `toml:"default_months"`       // analysis window when the caller gives none
	VolatilityThreshold float64 `toml:"volatility_threshold"` // annualized pct; sector override may apply
}

// BatchConfig holds batch analysis configuration.
type BatchConfig struct {
	Workers int `toml:"workers"`
}

// WorkerCount returns the configured worker count clamped to [1, 8].
func (c *BatchConfig) WorkerCount() int {
	if c.Workers < 1 {
		return 4
	}
	if c.Workers > 8 {
		return 8
	}
	return c.Workers
}

// SchedulerConfig holds cron schedules for background jobs.
type SchedulerConfig struct {
	Enabled      bool   `toml:"enabled"`
	RefreshCron  string `toml:"refresh_cron"`  // market snapshot refresh
	SnapshotCron string `toml:"snapshot_cron"` // weekly batch snapshot
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Internal: AreaConfig{Path: "data/internal"},
			User:     AreaConfig{Path: "data/user"},
			Market:   AreaConfig{Path: "data/market"},
		},
		Clients: ClientsConfig{
			MarketData: MarketDataConfig{
				BaseURL:   "https://api.marketfeed.io/v1",
				RateLimit: 10,
				Timeout:   "30s",
			},
		},
		Auth: AuthConfig{
			JWTSecret:   "dev-jwt-secret-change-in-production",
			Issuer:      "mapletrade",
			TokenExpiry: "24h",
		},
		Analysis: AnalysisConfig{
			BenchmarkSymbol:     "SPY",
			DefaultMonths:       6,
			VolatilityThreshold: 42.0,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Scheduler: SchedulerConfig{
			Enabled:      false,
			RefreshCron:  "0 30 17 * * 1-5",
			SnapshotCron: "0 0 18 * * 5",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Outputs:    []string{"console", "file"},
			FilePath:   "./logs/mapletrade.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	normalizeAnalysis(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MAPLETRADE_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("MAPLETRADE_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("MAPLETRADE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("MAPLETRADE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("MAPLETRADE_DATA_PATH"); path != "" {
		config.Storage.Internal.Path = filepath.Join(path, "internal")
		config.Storage.User.Path = filepath.Join(path, "user")
		config.Storage.Market.Path = filepath.Join(path, "market")
	}

	if v := os.Getenv("MAPLETRADE_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("MAPLETRADE_TOKEN_EXPIRY"); v != "" {
		config.Auth.TokenExpiry = v
	}
	if v := os.Getenv("MAPLETRADE_MARKET_API_KEY"); v != "" {
		config.Clients.MarketData.APIKey = v
	}
	if v := os.Getenv("MAPLETRADE_BENCHMARK"); v != "" {
		config.Analysis.BenchmarkSymbol = strings.ToUpper(v)
	}
}

// normalizeAnalysis fills analysis defaults for zero or nonsense values.
func normalizeAnalysis(config *Config) {
	if config.Analysis.BenchmarkSymbol == "" {
		config.Analysis.BenchmarkSymbol = "SPY"
	}
	config.Analysis.BenchmarkSymbol = strings.ToUpper(config.Analysis.BenchmarkSymbol)
	if config.Analysis.DefaultMonths <= 0 {
		config.Analysis.DefaultMonths = 6
	}
	if config.Analysis.VolatilityThreshold <= 0 {
		config.Analysis.VolatilityThreshold = 42.0
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment, InternalStore, or fallback
func ResolveAPIKey(ctx context.Context, store interfaces.InternalStore, name string, fallback string) (string, error) {
	// Environment variable mapping
	keyToEnvMapping := map[string][]string{
		"market_api_key": {"MARKETDATA_API_KEY", "MAPLETRADE_MARKET_API_KEY"},
	}

	// Check environment variables first (highest priority)
	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	// Try InternalStore system KV (medium priority)
	if store != nil {
		apiKey, err := store.GetSystemKV(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	// Fallback (lowest priority)
	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or store", name)
}
