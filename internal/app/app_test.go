package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

const quoteBody = `{
  "Global Quote": {
    "01. symbol": "TATAPOWER.BSE",
    "05. price": "352.40",
    "06. volume": "1000",
    "07. latest trading day": "2026-03-02",
    "09. change": "2.40",
    "10. change percent": "0.6857%"
  }
}`

// newUpstream serves a fixed quote for every GLOBAL_QUOTE request and an
// empty payload for everything else.
func newUpstream(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var quotes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") == "GLOBAL_QUOTE" {
			quotes.Add(1)
			w.Write([]byte(quoteBody))
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &quotes
}

// writeTestConfig creates a folio.toml pointing at baseURL with one holding.
func writeTestConfig(t *testing.T, baseURL string, autoRefresh bool) string {
	t.Helper()
	dir := t.TempDir()

	auto := "false"
	if autoRefresh {
		auto = "true"
	}

	config := `
[clients.alphavantage]
base_url = "` + baseURL + `"
api_key = "test-key"
min_delay = "0s"

[portfolio]
name = "test"
currency = "INR"
refresh_interval = "1h"
auto_refresh = ` + auto + `

[[portfolio.holdings]]
id = "tp"
name = "Tata Power"
symbol = "TATAPOWER.NS"
sector = "Power"
quantity = 10
purchase_price = 200
current_price = 220

[logging]
level = "error"
outputs = ["console"]
`
	configPath := filepath.Join(dir, "folio.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))
	return configPath
}

func TestNewApp_InitializesAllServices(t *testing.T) {
	srv, _ := newUpstream(t)

	a, err := NewApp(writeTestConfig(t, srv.URL, false))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Config)
	assert.NotNil(t, a.Logger)
	assert.NotNil(t, a.Metrics)
	assert.NotNil(t, a.QuoteClient)
	assert.NotNil(t, a.StockService)
	assert.NotNil(t, a.PortfolioService)
	assert.False(t, a.StartupTime.IsZero())

	p := a.PortfolioService.Snapshot()
	assert.Equal(t, "test", p.Name)
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, "tp", p.Holdings[0].ID)
	assert.Equal(t, 2200.0, p.Holdings[0].PresentValue)
	assert.NotEmpty(t, p.Holdings[0].AIRecommendation)
}

func TestNewAppFromConfig_SampleHoldingsWhenNoneConfigured(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Portfolio.AutoRefresh = false

	a := NewAppFromConfig(cfg, common.NewSilentLogger(), nil)
	defer a.Close()

	p := a.PortfolioService.Snapshot()
	assert.Len(t, p.Holdings, 10)
	assert.Equal(t, 542250.0, p.TotalInvestment)
}

func TestNewApp_InvalidConfigReturnsError(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("{{{{invalid toml"), 0o644))

	_, err := NewApp(configPath)
	assert.Error(t, err)
}

func TestApp_CloseIsIdempotent(t *testing.T) {
	srv, _ := newUpstream(t)
	a, err := NewApp(writeTestConfig(t, srv.URL, true))
	require.NoError(t, err)
	require.NoError(t, a.StartRefreshScheduler())

	a.Close()
	a.Close()
}

func TestStartRefreshScheduler_RefreshesImmediately(t *testing.T) {
	srv, quotes := newUpstream(t)
	a, err := NewApp(writeTestConfig(t, srv.URL, true))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.StartRefreshScheduler())
	// second start is a no-op
	require.NoError(t, a.StartRefreshScheduler())

	assert.Eventually(t, func() bool {
		h := a.PortfolioService.Snapshot().Holdings[0]
		return h.QuoteSource == models.SourceAlphaVantage
	}, 5*time.Second, 20*time.Millisecond)

	h := a.PortfolioService.Snapshot().Holdings[0]
	assert.Equal(t, 352.40, h.CurrentPrice)
	assert.Equal(t, int32(1), quotes.Load())
}

func TestStartRefreshScheduler_DisabledIsNoop(t *testing.T) {
	srv, quotes := newUpstream(t)
	a, err := NewApp(writeTestConfig(t, srv.URL, false))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.StartRefreshScheduler())
	assert.Nil(t, a.scheduler)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), quotes.Load())
}

func TestRefreshPortfolio_Manual(t *testing.T) {
	srv, _ := newUpstream(t)
	a, err := NewApp(writeTestConfig(t, srv.URL, false))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.refreshPortfolio(context.Background()))
	assert.InDelta(t, 3524.0, a.PortfolioService.Snapshot().CurrentValue, 1e-6)
}

func TestResolveConfigPath(t *testing.T) {
	assert.Equal(t, "given.toml", ResolveConfigPath("given.toml"))

	t.Setenv("FOLIO_CONFIG", "/etc/folio/folio.toml")
	assert.Equal(t, "/etc/folio/folio.toml", ResolveConfigPath(""))
}
