// Package marketfs implements file-based storage for market data snapshots.
// Each symbol is one JSON file, so the cache can be inspected and pruned
// with ordinary filesystem tools.
package marketfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

// Store provides file-based JSON storage for market data.
type Store struct {
	basePath  string
	marketDir string
	logger    *common.Logger
}

// NewMarketStore creates a new market file store.
func NewMarketStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create market store path %s: %w", path, err)
	}
	marketDir := filepath.Join(path, "market")
	os.MkdirAll(marketDir, 0755)

	logger.Info().Str("path", path).Msg("MarketFS store opened")
	return &Store{
		basePath:  path,
		marketDir: marketDir,
		logger:    logger,
	}, nil
}

// DataPath returns the base data path.
func (s *Store) DataPath() string {
	return s.basePath
}

// MarketDataStorage returns the market data storage interface.
func (s *Store) MarketDataStorage() interfaces.MarketDataStorage {
	return &marketDataStorage{store: s}
}

// WriteRaw writes arbitrary binary data to a subdirectory atomically.
func (s *Store) WriteRaw(subdir, key string, data []byte) error {
	dir := filepath.Join(s.basePath, subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	target := filepath.Join(dir, sanitizeKey(key))

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ReadRaw reads back data written with WriteRaw.
func (s *Store) ReadRaw(subdir, key string) ([]byte, error) {
	target := filepath.Join(s.basePath, subdir, sanitizeKey(key))
	data, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("'%s' not found in %s", key, subdir)
		}
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	return data, nil
}

// PurgeMarket removes all market data files and returns the count.
func (s *Store) PurgeMarket() int {
	return purgeDir(s.marketDir)
}

// PurgeCharts removes all chart files and returns the count.
func (s *Store) PurgeCharts() int {
	chartsDir := filepath.Join(s.basePath, "charts")
	return purgeAllFiles(chartsDir)
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

// --- helpers ---

func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func filePath(dir, key string) string {
	return filepath.Join(dir, sanitizeKey(key)+".json")
}

func readJSON(dir, key string, dest interface{}) error {
	path := filePath(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("'%s' not found", key)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("'%s' is empty", key)
	}
	return json.Unmarshal(data, dest)
}

func writeJSON(dir, key string, data interface{}) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	target := filePath(dir, key)
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func listKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".tmp-") {
			key := strings.TrimSuffix(name, ".json")
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func deleteJSON(dir, key string) {
	target := filePath(dir, key)
	os.Remove(target)
}

func purgeDir(dir string) int {
	keys, err := listKeys(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, key := range keys {
		deleteJSON(dir, key)
		count++
	}
	return count
}

func purgeAllFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		os.Remove(filepath.Join(dir, e.Name()))
		count++
	}
	return count
}

// --- MarketDataStorage ---

type marketDataStorage struct {
	store *Store
}

func (m *marketDataStorage) GetMarketData(_ context.Context, symbol string) (*models.MarketData, error) {
	var data models.MarketData
	if err := readJSON(m.store.marketDir, strings.ToUpper(symbol), &data); err != nil {
		return nil, fmt.Errorf("market data for '%s' not found", symbol)
	}
	return &data, nil
}

func (m *marketDataStorage) SaveMarketData(_ context.Context, data *models.MarketData) error {
	data.Symbol = strings.ToUpper(data.Symbol)
	data.LastUpdated = time.Now()
	if err := writeJSON(m.store.marketDir, data.Symbol, data); err != nil {
		return fmt.Errorf("failed to save market data: %w", err)
	}
	m.store.logger.Debug().Str("symbol", data.Symbol).Msg("Market data saved")
	return nil
}

func (m *marketDataStorage) GetMarketDataBatch(_ context.Context, symbols []string) ([]*models.MarketData, error) {
	result := make([]*models.MarketData, 0, len(symbols))
	for _, symbol := range symbols {
		var data models.MarketData
		if err := readJSON(m.store.marketDir, strings.ToUpper(symbol), &data); err == nil {
			result = append(result, &data)
		}
	}
	return result, nil
}

func (m *marketDataStorage) ListSymbols(_ context.Context) ([]string, error) {
	keys, err := listKeys(m.store.marketDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list market data: %w", err)
	}
	return keys, nil
}

func (m *marketDataStorage) GetStaleSymbols(_ context.Context, maxAge time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-maxAge)
	keys, err := listKeys(m.store.marketDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list market data: %w", err)
	}
	var stale []string
	for _, key := range keys {
		var data models.MarketData
		if err := readJSON(m.store.marketDir, key, &data); err != nil {
			continue
		}
		if data.LastUpdated.Before(cutoff) {
			stale = append(stale, data.Symbol)
		}
	}
	return stale, nil
}
