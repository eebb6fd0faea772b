package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/mapletrade/internal/clients/marketdata"
	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/services/analysis"
	"github.com/bobmcallan/mapletrade/internal/services/batch"
	"github.com/bobmcallan/mapletrade/internal/services/market"
	"github.com/bobmcallan/mapletrade/internal/services/portfolio"
	"github.com/bobmcallan/mapletrade/internal/services/report"
	"github.com/bobmcallan/mapletrade/internal/services/scheduler"
	"github.com/bobmcallan/mapletrade/internal/storage"
)

// App holds all initialized services, clients, and storage.
// It is the shared core behind cmd/mapletrade-server.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	MarketClient     interfaces.MarketDataClient
	MarketService    interfaces.MarketService
	AnalysisService  interfaces.AnalysisService
	PortfolioService interfaces.PortfolioService
	ReportService    interfaces.ReportService
	BatchService     interfaces.BatchService
	Scheduler        *scheduler.Service
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients, and all services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	// Get binary directory for self-contained operation
	binDir := getBinaryDir()

	// Load configuration - check provided path, MAPLETRADE_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("MAPLETRADE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "mapletrade.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/mapletrade.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage paths to binary directory
	areas := []*common.AreaConfig{
		&config.Storage.Internal,
		&config.Storage.User,
		&config.Storage.Market,
	}
	for _, area := range areas {
		if area.Path != "" && !filepath.IsAbs(area.Path) {
			area.Path = filepath.Join(binDir, area.Path)
		}
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	// Initialize logger
	logger := common.NewLoggerFromConfig(config.Logging)

	// Initialize storage
	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	ctx := context.Background()

	// Purge derived data when the stored schema version is stale
	checkSchemaVersion(ctx, storageManager, logger)

	// Provision the emergency admin account when requested
	if breakglassEnabled() {
		ensureBreakglassAdmin(ctx, storageManager.InternalStore(), logger)
	}

	// Seed accounts from a users file when one is nominated
	if usersFile := os.Getenv("MAPLETRADE_USERS_FILE"); usersFile != "" {
		imported, skipped, err := ImportUsersFromFile(ctx, storageManager.InternalStore(), logger, usersFile)
		if err != nil {
			logger.Warn().Err(err).Str("file", usersFile).Msg("User import failed")
		} else {
			logger.Info().Int("imported", imported).Int("skipped", skipped).Msg("Users imported from file")
		}
	}

	// Resolve market data API key
	marketKey, err := common.ResolveAPIKey(ctx, storageManager.InternalStore(), "market_api_key", config.Clients.MarketData.APIKey)
	if err != nil {
		logger.Warn().Msg("Market data API key not configured - live market data will be unavailable")
	}

	// The client stays a nil interface when no key is available; the market
	// service refuses collection in that case but still serves cached data.
	var marketClient interfaces.MarketDataClient
	if marketKey != "" {
		marketClient = marketdata.NewClient(marketKey,
			marketdata.WithBaseURL(config.Clients.MarketData.BaseURL),
			marketdata.WithLogger(logger),
			marketdata.WithRateLimit(config.Clients.MarketData.RateLimit),
			marketdata.WithTimeout(config.Clients.MarketData.GetTimeout()),
		)
	}

	// Initialize services
	marketService := market.NewService(storageManager, marketClient, logger)
	analysisService := analysis.NewService(marketService, config.Analysis, logger)
	portfolioService := portfolio.NewService(storageManager, marketService, logger)
	reportService := report.NewService(storageManager, portfolioService, marketService, config.Analysis, logger)
	batchService := batch.NewService(analysisService, config.Batch, logger)
	schedulerService := scheduler.NewService(storageManager, marketService, portfolioService, batchService, config.Scheduler, logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		MarketClient:     marketClient,
		MarketService:    marketService,
		AnalysisService:  analysisService,
		PortfolioService: portfolioService,
		ReportService:    reportService,
		BatchService:     batchService,
		Scheduler:        schedulerService,
		StartupTime:      startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// StartScheduler begins the background refresh and review jobs.
func (a *App) StartScheduler() error {
	return a.Scheduler.Start()
}

// Close releases all resources held by the App.
// Shutdown order: stop scheduler, close storage.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
		a.Scheduler = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
