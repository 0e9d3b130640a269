// Package alphavantage provides a client for the Alpha Vantage quote API
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/folio/internal/cache"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/metrics"
	"github.com/bobmcallan/folio/internal/models"
)

const (
	DefaultBaseURL           = "https://www.alphavantage.co"
	DefaultTimeout           = 10 * time.Second
	DefaultMinDelay          = 12 * time.Second // free tier: 5 requests per minute
	DefaultQuoteTTL          = 60 * time.Second
	DefaultOverviewTTLFactor = 5
	userAgent                = "Portfolio-Dashboard/1.0"
)

const (
	functionQuote    = "GLOBAL_QUOTE"
	functionOverview = "OVERVIEW"
)

// Client implements interfaces.QuoteClient against Alpha Vantage.
type Client struct {
	apiKey    string
	http      *resty.Client
	limiter   *rate.Limiter
	logger    *common.Logger
	metrics   *metrics.Metrics
	clock     common.Clock
	quoteTTL  time.Duration
	ovTTL     time.Duration
	quotes    *cache.TTL[*models.Quote]
	overviews *cache.TTL[*models.Overview]
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.http.SetBaseURL(strings.TrimRight(baseURL, "/"))
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithMinDelay sets the minimum spacing between outbound requests. Zero
// disables the gate.
func WithMinDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.limiter = newGate(d)
	}
}

// WithCacheTTL sets the quote freshness window; overviews stay fresh for
// factor times as long.
func WithCacheTTL(quoteTTL time.Duration, factor int) ClientOption {
	return func(c *Client) {
		if factor <= 0 {
			factor = DefaultOverviewTTLFactor
		}
		c.quoteTTL = quoteTTL
		c.ovTTL = quoteTTL * time.Duration(factor)
	}
}

// WithClock sets the clock used for cache expiry
func WithClock(clock common.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithMetrics records request and cache counters
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey: apiKey,
		http: resty.New().
			SetBaseURL(DefaultBaseURL).
			SetTimeout(DefaultTimeout).
			SetHeader("User-Agent", userAgent).
			SetHeader("Accept", "application/json"),
		limiter:  newGate(DefaultMinDelay),
		logger:   common.NewSilentLogger(),
		clock:    common.SystemClock,
		quoteTTL: DefaultQuoteTTL,
		ovTTL:    DefaultQuoteTTL * DefaultOverviewTTLFactor,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.quotes = cache.New[*models.Quote](c.quoteTTL, c.clock)
	c.overviews = cache.New[*models.Overview](c.ovTTL, c.clock)

	return c
}

// NewClientFromConfig builds a client from the alphavantage config section.
func NewClientFromConfig(cfg common.AlphaVantageConfig, logger *common.Logger, m *metrics.Metrics, clock common.Clock) *Client {
	opts := []ClientOption{
		WithLogger(logger),
		WithTimeout(cfg.GetTimeout()),
		WithMinDelay(cfg.GetMinDelay()),
		WithCacheTTL(cfg.GetQuoteTTL(), cfg.OverviewTTLFactor),
		WithMetrics(m),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if clock != nil {
		opts = append(opts, WithClock(clock))
	}
	return NewClient(cfg.APIKey, opts...)
}

// newGate returns a limiter admitting one request per d. The first request
// passes immediately.
func newGate(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Function   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Alpha Vantage API error: %s (status: %d, function: %s)", e.Message, e.StatusCode, e.Function)
}

// ProviderSymbol maps an NSE-suffixed symbol to the BSE suffix Alpha Vantage
// lists Indian equities under. Other symbols pass through unchanged.
func ProviderSymbol(symbol string) string {
	if base, ok := strings.CutSuffix(symbol, ".NS"); ok {
		return base + ".BSE"
	}
	return symbol
}

// query performs a gated GET /query and decodes the body into a flat map.
func (c *Client) query(ctx context.Context, function, symbol string) (map[string]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	c.logger.Debug().Str("function", function).Str("symbol", symbol).Msg("Alpha Vantage API request")

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": function,
			"symbol":   symbol,
			"apikey":   c.apiKey,
		}).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Message:    string(resp.Body()),
			Function:   function,
		}
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if msg := stringField(body, "Error Message"); msg != "" {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: msg, Function: function}
	}
	if msg := stringField(body, "Note"); msg != "" {
		return nil, &APIError{StatusCode: http.StatusTooManyRequests, Message: "rate limit: " + msg, Function: function}
	}
	if msg := stringField(body, "Information"); msg != "" {
		return nil, &APIError{StatusCode: http.StatusTooManyRequests, Message: msg, Function: function}
	}

	return body, nil
}

// GetQuote returns the latest quote for symbol. Upstream failures and empty
// payloads yield (nil, nil); an error is returned only when ctx is done.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	key := "quote_" + symbol
	if q, ok := c.quotes.Get(key); ok {
		c.metrics.CacheLookup("quote", true)
		return q, nil
	}
	c.metrics.CacheLookup("quote", false)

	body, err := c.query(ctx, functionQuote, ProviderSymbol(symbol))
	if err != nil {
		return nil, c.upstreamFailure(ctx, functionQuote, symbol, err)
	}

	var raw map[string]string
	if msg, ok := body["Global Quote"]; ok {
		if err := json.Unmarshal(msg, &raw); err != nil {
			c.metrics.UpstreamRequest(functionQuote, "malformed")
			c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Alpha Vantage returned malformed quote")
			return nil, nil
		}
	}
	if len(raw) == 0 {
		c.metrics.UpstreamRequest(functionQuote, "empty")
		c.logger.Warn().Str("symbol", symbol).Msg("Alpha Vantage returned empty quote")
		return nil, nil
	}

	q := parseQuote(symbol, raw, c.clock.Now())
	if q.Price <= 0 {
		c.metrics.UpstreamRequest(functionQuote, "malformed")
		c.logger.Warn().Str("symbol", symbol).Str("price", raw["05. price"]).Msg("Alpha Vantage returned unusable price")
		return nil, nil
	}
	c.quotes.Set(key, q)
	c.metrics.UpstreamRequest(functionQuote, "ok")
	return q, nil
}

// GetCompanyOverview returns company fundamentals for symbol with the same
// nil-on-failure contract as GetQuote.
func (c *Client) GetCompanyOverview(ctx context.Context, symbol string) (*models.Overview, error) {
	key := "overview_" + symbol
	if o, ok := c.overviews.Get(key); ok {
		c.metrics.CacheLookup("overview", true)
		return o, nil
	}
	c.metrics.CacheLookup("overview", false)

	body, err := c.query(ctx, functionOverview, ProviderSymbol(symbol))
	if err != nil {
		return nil, c.upstreamFailure(ctx, functionOverview, symbol, err)
	}

	raw := make(map[string]string, len(body))
	for k, v := range body {
		var s string
		if json.Unmarshal(v, &s) == nil {
			raw[k] = s
		}
	}
	if _, ok := raw["Symbol"]; !ok {
		c.metrics.UpstreamRequest(functionOverview, "empty")
		c.logger.Warn().Str("symbol", symbol).Msg("Alpha Vantage returned empty overview")
		return nil, nil
	}

	o := parseOverview(symbol, raw)
	c.overviews.Set(key, o)
	c.metrics.UpstreamRequest(functionOverview, "ok")
	return o, nil
}

// GetMultipleQuotes fetches quotes one symbol at a time, omitting symbols
// the provider returned nothing for.
func (c *Client) GetMultipleQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error) {
	results := make(map[string]*models.Quote, len(symbols))
	for _, symbol := range symbols {
		q, err := c.GetQuote(ctx, symbol)
		if err != nil {
			return results, err
		}
		if q != nil {
			results[symbol] = q
		}
	}
	return results, nil
}

// ClearCache drops every cached quote and overview.
func (c *Client) ClearCache() {
	c.quotes.Clear()
	c.overviews.Clear()
}

func (c *Client) upstreamFailure(ctx context.Context, function, symbol string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	c.metrics.UpstreamRequest(function, "error")
	c.logger.Warn().Err(err).Str("function", function).Str("symbol", symbol).Msg("Alpha Vantage request failed")
	return nil
}

// Ensure Client implements QuoteClient
var _ interfaces.QuoteClient = (*Client)(nil)
