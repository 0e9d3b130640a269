// Package quote builds stock records from the quote provider with automatic
// fallback to synthetic data
package quote

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/metrics"
	"github.com/bobmcallan/folio/internal/models"
)

// ErrNoSymbols is returned when a request names no usable symbol.
var ErrNoSymbols = errors.New("no symbols provided")

// DefaultOverviewLimit is how many leading symbols per request also get a
// company overview; overviews cost an extra rate-limited call each.
const DefaultOverviewLimit = 3

// Service implements StockDataService: provider quotes first, synthetic
// fallback when the provider returns nothing.
type Service struct {
	client        interfaces.QuoteClient
	generator     *Generator
	enricher      *Enricher
	responses     *ResponseCache
	overviewLimit int
	logger        *common.Logger
	metrics       *metrics.Metrics
}

// ServiceOption configures the service
type ServiceOption func(*Service)

// WithResponseCache caches whole responses
func WithResponseCache(rc *ResponseCache) ServiceOption {
	return func(s *Service) {
		s.responses = rc
	}
}

// WithOverviewLimit sets how many symbols per request fetch an overview
func WithOverviewLimit(n int) ServiceOption {
	return func(s *Service) {
		if n >= 0 {
			s.overviewLimit = n
		}
	}
}

// WithRandSource sets the source of placeholder randomness
func WithRandSource(r RandSource) ServiceOption {
	return func(s *Service) {
		s.generator.rand = r
		s.enricher.rand = r
	}
}

// WithGenerator replaces the fallback generator
func WithGenerator(g *Generator) ServiceOption {
	return func(s *Service) {
		s.generator = g
	}
}

// WithServiceMetrics records fallback counts
func WithServiceMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new stock data service.
// logger may be nil.
func NewService(client interfaces.QuoteClient, logger *common.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Service{
		client:        client,
		generator:     NewGenerator(nil, nil),
		enricher:      NewEnricher(nil),
		overviewLimit: DefaultOverviewLimit,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enricher returns the placeholder generator shared with the portfolio
func (s *Service) Enricher() *Enricher {
	return s.enricher
}

// NormalizeSymbols splits a comma-separated list, trimming blanks.
func NormalizeSymbols(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if sym := strings.TrimSpace(part); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// GetStocks returns one record per symbol. Symbols are fetched in order;
// only the first overviewLimit symbols fetch an overview.
func (s *Service) GetStocks(ctx context.Context, symbols []string) (map[string]models.StockData, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	if cached, ok := s.responses.Get(symbols); ok {
		s.logger.Debug().Int("symbols", len(symbols)).Msg("Returning cached stock data")
		return maps.Clone(cached), nil
	}

	s.logger.Info().Int("symbols", len(symbols)).Msg("Fetching stock data")

	result := make(map[string]models.StockData, len(symbols))
	fallbacks := 0
	for i, symbol := range symbols {
		rec, err := s.fetchOne(ctx, i, symbol)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", symbol, err)
		}
		if rec.Source == models.SourceFallback {
			fallbacks++
		}
		result[symbol] = rec
	}

	s.responses.Set(symbols, result)

	s.logger.Info().
		Int("symbols", len(result)).
		Int("fallbacks", fallbacks).
		Msg("Stock data fetch completed")

	return maps.Clone(result), nil
}

func (s *Service) fetchOne(ctx context.Context, index int, symbol string) (models.StockData, error) {
	q, err := s.client.GetQuote(ctx, symbol)
	if err != nil {
		return models.StockData{}, err
	}

	if q == nil {
		fb := s.generator.Generate(symbol)
		s.metrics.FallbackQuote()
		s.logger.Warn().Str("symbol", symbol).Float64("price", fb.Price).Msg("Using fallback data")
		return s.enricher.FallbackRecord(fb), nil
	}

	var overview *models.Overview
	if index < s.overviewLimit {
		overview, err = s.client.GetCompanyOverview(ctx, symbol)
		if err != nil {
			return models.StockData{}, err
		}
	}

	s.logger.Debug().Str("symbol", symbol).Float64("price", q.Price).Msg("Fetched quote")
	return s.enricher.StockRecord(q, overview), nil
}

// Ensure Service implements StockDataService
var _ interfaces.StockDataService = (*Service)(nil)
