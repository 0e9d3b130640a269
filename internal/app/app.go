package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/folio/internal/clients/alphavantage"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/metrics"
	"github.com/bobmcallan/folio/internal/services/portfolio"
	"github.com/bobmcallan/folio/internal/services/quote"
)

// refreshTimeout bounds a single scheduled portfolio refresh
const refreshTimeout = 5 * time.Minute

// App holds all initialized services and clients.
// It is the shared core used by cmd/folio-server and the HTTP server.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Metrics          *metrics.Metrics
	QuoteClient      interfaces.QuoteClient
	StockService     interfaces.StockDataService
	PortfolioService interfaces.PortfolioService
	StartupTime      time.Time

	scheduler *Scheduler
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the given path, FOLIO_CONFIG, the
// binary directory, then config/folio.toml for development.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and initializes all services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(getBinaryDir(), config.Logging.FilePath)
	}

	return NewAppFromConfig(config, common.NewLoggerFromConfig(config.Logging), nil), nil
}

// NewAppFromConfig wires services from an already loaded config. clock may
// be nil for the system clock.
func NewAppFromConfig(config *common.Config, logger *common.Logger, clock common.Clock) *App {
	startupStart := time.Now()
	if clock == nil {
		clock = common.SystemClock
	}

	for _, name := range config.ValidateRequired() {
		logger.Warn().Str("setting", name).Msg("Not configured - quotes will use fallback data")
	}

	m := metrics.New()

	avClient := alphavantage.NewClientFromConfig(config.Clients.AlphaVantage, logger, m, clock)

	stockService := quote.NewService(avClient, logger,
		quote.WithResponseCache(quote.NewResponseCache(
			config.Stocks.GetResponseCacheTTL(),
			config.Stocks.ResponseCacheScope,
			clock,
		)),
		quote.WithOverviewLimit(config.Stocks.OverviewLimit),
		quote.WithGenerator(quote.NewGenerator(nil, clock)),
		quote.WithServiceMetrics(m),
	)

	holdings := portfolio.HoldingsFromConfig(config.Portfolio.Holdings, clock.Now())
	if len(holdings) == 0 {
		holdings = portfolio.SampleHoldings(clock.Now())
	}
	targets := config.Portfolio.SectorTargets
	if len(targets) == 0 {
		targets = common.DefaultSectorTargets()
	}

	portfolioService := portfolio.NewService(
		config.Portfolio.Name,
		holdings,
		stockService,
		stockService.Enricher(),
		logger,
		portfolio.WithClock(clock),
		portfolio.WithMetrics(m),
		portfolio.WithCurrency(config.Portfolio.Currency),
		portfolio.WithSectorTargets(portfolio.SectorTargetsFromConfig(targets)),
	)

	a := &App{
		Config:           config,
		Logger:           logger,
		Metrics:          m,
		QuoteClient:      avClient,
		StockService:     stockService,
		PortfolioService: portfolioService,
		StartupTime:      startupStart,
	}

	logger.Info().
		Int("holdings", len(holdings)).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Shutdown()
		a.scheduler = nil
	}
}

// StartRefreshScheduler launches the periodic portfolio refresh. It is a
// no-op when auto refresh is disabled or already running.
func (a *App) StartRefreshScheduler() error {
	if !a.Config.Portfolio.AutoRefresh || a.scheduler != nil {
		return nil
	}

	s, err := NewScheduler(a.Logger)
	if err != nil {
		return err
	}
	interval := a.Config.Portfolio.GetRefreshInterval()
	if err := s.Every("portfolio-refresh", interval, true, a.refreshPortfolio); err != nil {
		s.Shutdown()
		return err
	}
	s.Start()
	a.scheduler = s

	a.Logger.Info().Dur("interval", interval).Msg("Portfolio refresh scheduler started")
	return nil
}

func (a *App) refreshPortfolio(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	_, err := a.PortfolioService.Refresh(ctx)
	return err
}
