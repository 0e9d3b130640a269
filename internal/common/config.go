// Package common provides shared utilities for Folio
package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Folio
type Config struct {
	Environment string          `toml:"environment" env:"FOLIO_ENV"`
	Server      ServerConfig    `toml:"server"`
	Clients     ClientsConfig   `toml:"clients"`
	Stocks      StocksConfig    `toml:"stocks"`
	Portfolio   PortfolioConfig `toml:"portfolio"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host" env:"FOLIO_HOST"`
	Port int    `toml:"port" env:"FOLIO_PORT"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	AlphaVantage AlphaVantageConfig `toml:"alphavantage"`
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	BaseURL           string `toml:"base_url" env:"ALPHA_VANTAGE_BASE_URL"`
	APIKey            string `toml:"api_key" env:"ALPHA_VANTAGE_API_KEY"`
	Timeout           string `toml:"timeout" env:"ALPHA_VANTAGE_TIMEOUT"`
	MinDelay          string `toml:"min_delay" env:"ALPHA_VANTAGE_MIN_DELAY"`           // minimum spacing between outbound calls
	QuoteTTL          string `toml:"quote_ttl" env:"ALPHA_VANTAGE_QUOTE_TTL"`           // freshness window for GLOBAL_QUOTE
	OverviewTTLFactor int    `toml:"overview_ttl_factor" env:"ALPHA_VANTAGE_OVERVIEW_TTL_FACTOR"` // overview TTL = quote TTL x factor
}

// GetTimeout parses and returns the timeout duration
func (c *AlphaVantageConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// GetMinDelay parses and returns the minimum inter-request delay
func (c *AlphaVantageConfig) GetMinDelay() time.Duration {
	return parseDuration(c.MinDelay, 12*time.Second)
}

// GetQuoteTTL parses and returns the quote freshness window
func (c *AlphaVantageConfig) GetQuoteTTL() time.Duration {
	return parseDuration(c.QuoteTTL, 60*time.Second)
}

// GetOverviewTTL returns the overview freshness window.
func (c *AlphaVantageConfig) GetOverviewTTL() time.Duration {
	factor := c.OverviewTTLFactor
	if factor <= 0 {
		factor = 5
	}
	return c.GetQuoteTTL() * time.Duration(factor)
}

// Response cache scopes for /api/stocks
const (
	CacheScopeSymbols = "symbols" // keyed by the requested symbol set
	CacheScopeGlobal  = "global"  // single slot regardless of symbols
)

// StocksConfig holds configuration for the /api/stocks aggregation
type StocksConfig struct {
	ResponseCacheTTL   string `toml:"response_cache_ttl" env:"FOLIO_STOCKS_CACHE_TTL"`
	ResponseCacheScope string `toml:"response_cache_scope" env:"FOLIO_STOCKS_CACHE_SCOPE"`
	OverviewLimit      int    `toml:"overview_limit" env:"FOLIO_STOCKS_OVERVIEW_LIMIT"` // overview is fetched for the first N symbols only
}

// GetResponseCacheTTL parses and returns the response cache TTL
func (c *StocksConfig) GetResponseCacheTTL() time.Duration {
	return parseDuration(c.ResponseCacheTTL, 60*time.Second)
}

// PortfolioConfig holds the tracked holdings and refresh settings
type PortfolioConfig struct {
	Name            string          `toml:"name" env:"FOLIO_PORTFOLIO_NAME"`
	Currency        string          `toml:"currency" env:"FOLIO_CURRENCY"`
	RefreshInterval string          `toml:"refresh_interval" env:"FOLIO_REFRESH_INTERVAL"`
	AutoRefresh     bool            `toml:"auto_refresh" env:"FOLIO_AUTO_REFRESH"`
	Holdings        []HoldingConfig `toml:"holdings"`

	// SectorTargets are the ideal allocation bands shown beside each sector.
	// Empty uses DefaultSectorTargets.
	SectorTargets []SectorTargetConfig `toml:"sector_targets"`
}

// SectorTargetConfig is the ideal share of invested capital for one sector,
// as a percent band.
type SectorTargetConfig struct {
	Sector string  `toml:"sector"`
	Min    float64 `toml:"min"`
	Max    float64 `toml:"max"`
	Note   string  `toml:"note"`
}

// DefaultSectorTargets returns the built-in allocation plan.
func DefaultSectorTargets() []SectorTargetConfig {
	return []SectorTargetConfig{
		{Sector: "Financial Sector", Min: 30, Max: 35, Note: "reduce small caps"},
		{Sector: "Information Technology", Min: 20, Max: 25, Note: "consolidate winners only"},
		{Sector: "Consumer", Min: 15, Max: 20},
		{Sector: "Power", Min: 10, Max: 15, Note: "keep only quality"},
		{Sector: "Others", Min: 10, Max: 15, Note: "diversification"},
	}
}

// HoldingConfig is a seed position from the config file
type HoldingConfig struct {
	ID            string  `toml:"id"`
	Name          string  `toml:"name"`
	Symbol        string  `toml:"symbol"`
	Sector        string  `toml:"sector"`
	Exchange      string  `toml:"exchange"`
	Quantity      float64 `toml:"quantity"`
	PurchasePrice float64 `toml:"purchase_price"`
	CurrentPrice  float64 `toml:"current_price"`
	PERatio       float64 `toml:"pe_ratio"`
	Earnings      string  `toml:"earnings"`
}

// GetRefreshInterval parses and returns the refresh interval
func (c *PortfolioConfig) GetRefreshInterval() time.Duration {
	return parseDuration(c.RefreshInterval, 60*time.Second)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level" env:"FOLIO_LOG_LEVEL"`
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
		Clients: ClientsConfig{
			AlphaVantage: AlphaVantageConfig{
				BaseURL:           "https://www.alphavantage.co",
				Timeout:           "10s",
				MinDelay:          "12s",
				QuoteTTL:          "60s",
				OverviewTTLFactor: 5,
			},
		},
		Stocks: StocksConfig{
			ResponseCacheTTL:   "60s",
			ResponseCacheScope: CacheScopeSymbols,
			OverviewLimit:      3,
		},
		Portfolio: PortfolioConfig{
			Name:            "default",
			Currency:        "INR",
			RefreshInterval: "60s",
			AutoRefresh:     true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Outputs:    []string{"console"},
			FilePath:   "./logs/folio.log",
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

	// .env is optional; real environment variables win over it
	_ = godotenv.Load(".env")

	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	validateScope(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Only variables that are set replace the file/default values.
func applyEnvOverrides(config *Config) error {
	return env.Parse(config)
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ValidateRequired returns the names of settings that should be configured
// for live data. Missing entries are warnings, not fatal: the service falls
// back to synthetic quotes.
func (c *Config) ValidateRequired() []string {
	var missing []string
	if c.Clients.AlphaVantage.APIKey == "" {
		missing = append(missing, "clients.alphavantage.api_key")
	}
	return missing
}

// validateScope normalises the response cache scope, defaulting to per-symbol-set keys.
func validateScope(config *Config) {
	scope := strings.ToLower(strings.TrimSpace(config.Stocks.ResponseCacheScope))
	if scope != CacheScopeGlobal {
		scope = CacheScopeSymbols
	}
	config.Stocks.ResponseCacheScope = scope
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
