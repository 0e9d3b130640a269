package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/portfolio"
)

const tataQuote = `{
  "Global Quote": {
    "01. symbol": "TATAPOWER.BSE",
    "05. price": "352.40",
    "06. volume": "1000",
    "07. latest trading day": "2026-03-02",
    "09. change": "2.40",
    "10. change percent": "0.6857%"
  }
}`

// newTestApp builds an App over the sample portfolio whose quote provider
// only knows TATAPOWER.
func newTestApp(t *testing.T) *app.App {
	t.Helper()
	return newTestAppWithQuotes(t, map[string]string{"TATAPOWER.BSE": tataQuote})
}

// newTestAppWithQuotes serves the given GLOBAL_QUOTE bodies keyed by
// provider symbol; every other request gets an empty object.
func newTestAppWithQuotes(t *testing.T, quotes map[string]string) *app.App {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if body, ok := quotes[q.Get("symbol")]; ok && q.Get("function") == "GLOBAL_QUOTE" {
			w.Write([]byte(body))
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(upstream.Close)

	cfg := common.NewDefaultConfig()
	cfg.Clients.AlphaVantage.BaseURL = upstream.URL
	cfg.Clients.AlphaVantage.APIKey = "test-key"
	cfg.Clients.AlphaVantage.MinDelay = "0s"
	cfg.Portfolio.AutoRefresh = false

	a := app.NewAppFromConfig(cfg, common.NewSilentLogger(), nil)
	t.Cleanup(a.Close)
	return a
}

func newTestServer(t *testing.T) (*Server, *app.App) {
	t.Helper()
	a := newTestApp(t)
	return NewServer(a), a
}

func do(t *testing.T, s *Server, method, target string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

var testTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type failingStocks struct{}

func (failingStocks) GetStocks(ctx context.Context, symbols []string) (map[string]models.StockData, error) {
	return nil, errors.New("provider exploded")
}

func TestHealthAndVersion(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])

	rr = do(t, s, http.MethodGet, "/api/version", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, decode[map[string]string](t, rr), "version")

	rr = do(t, s, http.MethodPost, "/api/health", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, HEAD", rr.Header().Get("Allow"))
}

func TestStocks_NoSymbols(t *testing.T) {
	s, _ := newTestServer(t)

	for _, target := range []string{"/api/stocks", "/api/stocks?symbols=", "/api/stocks?symbols=%20,%20"} {
		rr := do(t, s, http.MethodGet, target, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Equal(t, "No symbols provided", decode[ErrorResponse](t, rr).Error)
		assert.Equal(t, "no-cache, no-store, must-revalidate", rr.Header().Get("Cache-Control"))
	}
}

func TestStocks_LiveAndFallback(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/stocks?symbols=TATAPOWER.NS,%20UNKNOWN.NS", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-cache", rr.Header().Get("Pragma"))
	assert.Equal(t, "0", rr.Header().Get("Expires"))

	data := decode[map[string]models.StockData](t, rr)
	require.Len(t, data, 2)

	live := data["TATAPOWER.NS"]
	assert.Equal(t, models.SourceAlphaVantage, live.Source)
	assert.Equal(t, 352.40, live.CurrentPrice)

	fb := data["UNKNOWN.NS"]
	assert.Equal(t, models.SourceFallback, fb.Source)
	assert.GreaterOrEqual(t, fb.CurrentPrice, 500.0)
	assert.NotEmpty(t, fb.SyntheticFields)
}

func TestStocks_InternalError(t *testing.T) {
	s, a := newTestServer(t)
	a.StockService = failingStocks{}

	rr := do(t, s, http.MethodGet, "/api/stocks?symbols=TCS.NS", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decode[ErrorResponse](t, rr)
	assert.Equal(t, "Failed to fetch stock data", resp.Error)
	assert.Equal(t, "provider exploded", resp.Details)
}

func TestPortfolio_FilterAndSort(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/portfolio?sector=Power&sort=currentPrice&order=desc", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[portfolioResponse](t, rr)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Portfolio.Holdings, 2)
	assert.Equal(t, "TATAPOWER.NS", resp.Portfolio.Holdings[0].Symbol)
	assert.Equal(t, "SUZLON.NS", resp.Portfolio.Holdings[1].Symbol)

	// totals describe the whole portfolio, not the filtered view
	assert.Equal(t, 542250.0, resp.Portfolio.TotalInvestment)
	assert.Equal(t, "₹542,250.00", resp.Totals.TotalInvestment)
	assert.Equal(t, "+46.60%", resp.Totals.TotalGainLossPercent)
	assert.Len(t, resp.Sectors, 5)
}

func TestPortfolio_Search(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/portfolio?search=tata", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[portfolioResponse](t, rr)
	assert.Equal(t, 2, resp.Count)
}

func TestPortfolio_BadQuery(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/portfolio?sort=colour", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[ErrorResponse](t, rr).Error, "colour")

	rr = do(t, s, http.MethodGet, "/api/portfolio?sort=name&order=sideways", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPortfolioSectorsAndChart(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/portfolio/sectors", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	sectors := decode[[]models.SectorSummary](t, rr)
	require.Len(t, sectors, 5)
	assert.Equal(t, "Financial Sector", sectors[0].Sector)
	require.NotNil(t, sectors[0].IdealAllocation)
	assert.Equal(t, 30.0, sectors[0].IdealAllocation.Min)
	assert.Equal(t, 35.0, sectors[0].IdealAllocation.Max)
	assert.Equal(t, models.AllocationWithin, sectors[0].AllocationStatus)

	rr = do(t, s, http.MethodGet, "/api/portfolio/sectors/chart", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")))
}

func TestPortfolioRefresh(t *testing.T) {
	s, a := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/portfolio/refresh", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = do(t, s, http.MethodPost, "/api/portfolio/refresh", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	p := decode[models.Portfolio](t, rr)
	require.Len(t, p.Holdings, 10)

	for _, h := range a.PortfolioService.Snapshot().Holdings {
		if h.Symbol == "TATAPOWER.NS" {
			assert.Equal(t, 352.40, h.CurrentPrice)
			assert.Equal(t, models.SourceAlphaVantage, h.QuoteSource)
		} else {
			assert.Equal(t, models.SourceFallback, h.QuoteSource, h.Symbol)
		}
	}
}

func TestPortfolioRefresh_Error(t *testing.T) {
	s, a := newTestServer(t)
	a.PortfolioService = portfolio.NewService("broken", portfolio.SampleHoldings(testTime), failingStocks{}, nil, nil)

	rr := do(t, s, http.MethodPost, "/api/portfolio/refresh", nil, nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, decode[ErrorResponse](t, rr).Details, "provider exploded")
}

func TestPortfolioExportImport(t *testing.T) {
	s, a := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/portfolio/export", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "default-")
	workbook := rr.Body.Bytes()

	a.PortfolioService.ReplaceHoldings(portfolio.SampleHoldings(testTime)[:1])
	require.Len(t, a.PortfolioService.Snapshot().Holdings, 1)

	rr = do(t, s, http.MethodPost, "/api/portfolio/import", workbook, map[string]string{"Content-Type": xlsxContentType})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	p := decode[models.Portfolio](t, rr)
	assert.Len(t, p.Holdings, 10)
	assert.Equal(t, 542250.0, a.PortfolioService.Snapshot().TotalInvestment)
}

func TestPortfolioImport_Multipart(t *testing.T) {
	s, a := newTestServer(t)
	export := do(t, s, http.MethodGet, "/api/portfolio/export", nil, nil)
	require.Equal(t, http.StatusOK, export.Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "holdings.xlsx")
	require.NoError(t, err)
	_, err = part.Write(export.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rr := do(t, s, http.MethodPost, "/api/portfolio/import", body.Bytes(), map[string]string{"Content-Type": mw.FormDataContentType()})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, a.PortfolioService.Snapshot().Holdings, 10)
}

func TestPortfolioImport_Invalid(t *testing.T) {
	s, a := newTestServer(t)
	before := a.PortfolioService.Snapshot()

	rr := do(t, s, http.MethodPost, "/api/portfolio/import", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, s, http.MethodPost, "/api/portfolio/import", []byte("not a workbook"), nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid workbook", decode[ErrorResponse](t, rr).Error)

	rr = do(t, s, http.MethodPost, "/api/portfolio/import", []byte("--x--"), map[string]string{"Content-Type": "multipart/form-data; boundary=x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, before.TotalInvestment, a.PortfolioService.Snapshot().TotalInvestment)
}

const nanQuote = `{"Global Quote": {"01. symbol": "HDFCBANK.BSE", "05. price": "NaN", "09. change": "-Inf"}}`

// withinDeadline fails the test if fn blocks, e.g. on a lock left held.
func withinDeadline(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("request blocked")
	}
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusOK, map[string]float64{"price": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "Internal server error", decode[ErrorResponse](t, rr).Error)
}

func TestStocks_NonFiniteQuoteFallsBack(t *testing.T) {
	s := NewServer(newTestAppWithQuotes(t, map[string]string{"HDFCBANK.BSE": nanQuote}))

	rr := do(t, s, http.MethodGet, "/api/stocks?symbols=HDFCBANK.NS", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Body.Bytes())

	data := decode[map[string]models.StockData](t, rr)
	rec := data["HDFCBANK.NS"]
	assert.Equal(t, models.SourceFallback, rec.Source)
	assert.False(t, math.IsNaN(rec.CurrentPrice))
	assert.Greater(t, rec.CurrentPrice, 0.0)
}

func TestPortfolioRefresh_NonFiniteQuoteKeepsServing(t *testing.T) {
	a := newTestAppWithQuotes(t, map[string]string{"HDFCBANK.BSE": nanQuote})
	s := NewServer(a)

	var rr *httptest.ResponseRecorder
	withinDeadline(t, func() { rr = do(t, s, http.MethodPost, "/api/portfolio/refresh", nil, nil) })
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	p := decode[models.Portfolio](t, rr)
	require.Len(t, p.Holdings, 10)
	assert.False(t, math.IsNaN(p.CurrentValue))

	withinDeadline(t, func() { rr = do(t, s, http.MethodGet, "/api/portfolio", nil, nil) })
	require.Equal(t, http.StatusOK, rr.Code)
	withinDeadline(t, func() { rr = do(t, s, http.MethodGet, "/api/portfolio/sectors", nil, nil) })
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestPortfolioImport_NonFiniteRejectedThenServes(t *testing.T) {
	s, a := newTestServer(t)
	before := a.PortfolioService.Snapshot()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Name", "Symbol", "Quantity", "Purchase Price"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Infosys", "INFY.NS", "NaN", "1400"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	var rr *httptest.ResponseRecorder
	withinDeadline(t, func() {
		rr = do(t, s, http.MethodPost, "/api/portfolio/import", buf.Bytes(), map[string]string{"Content-Type": xlsxContentType})
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[ErrorResponse](t, rr).Details, "finite")

	withinDeadline(t, func() { rr = do(t, s, http.MethodGet, "/api/portfolio", nil, nil) })
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, before.TotalInvestment, decode[portfolioResponse](t, rr).Portfolio.TotalInvestment)

	withinDeadline(t, func() { rr = do(t, s, http.MethodGet, "/api/portfolio/export", nil, nil) })
	require.Equal(t, http.StatusOK, rr.Code)
	workbook := rr.Body.Bytes()
	withinDeadline(t, func() {
		rr = do(t, s, http.MethodPost, "/api/portfolio/import", workbook, map[string]string{"Content-Type": xlsxContentType})
	})
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestRecommendations(t *testing.T) {
	s, _ := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/recommendations", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	recs := decode[[]models.Recommendation](t, rr)
	require.Len(t, recs, 10)
	for _, rec := range recs {
		assert.Contains(t, []models.Action{models.ActionExit, models.ActionHold, models.ActionAdd}, rec.Action)
		assert.NotEmpty(t, rec.Symbol)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	do(t, s, http.MethodGet, "/api/health", nil, nil)
	rr := do(t, s, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "folio_http_requests_total"), "http counter exported")
}
