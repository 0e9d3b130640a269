// Package portfolio provides portfolio management services
package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/metrics"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/strategy"
)

// MetricsEnricher fills placeholder fundamentals on a holding
type MetricsEnricher interface {
	EnhancedMetrics(h *models.Holding)
}

// Service implements PortfolioService over an in-memory holding list
type Service struct {
	mu        sync.RWMutex
	portfolio models.Portfolio
	sectors   []models.SectorSummary

	name     string
	currency string
	stocks   interfaces.StockDataService
	enricher MetricsEnricher
	clock    common.Clock
	logger   *common.Logger
	metrics  *metrics.Metrics
	targets  map[string]models.AllocationTarget
}

// Option configures the service
type Option func(*Service)

// WithClock sets the clock used for timestamps
func WithClock(clock common.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithMetrics records refresh counters
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSectorTargets sets the ideal allocation band per sector
func WithSectorTargets(targets map[string]models.AllocationTarget) Option {
	return func(s *Service) {
		s.targets = targets
	}
}

// WithCurrency sets the display currency code
func WithCurrency(code string) Option {
	return func(s *Service) {
		if code != "" {
			s.currency = code
		}
	}
}

// NewService creates a portfolio from the given holdings. enricher may be
// nil, in which case holdings keep only the fundamentals they carry.
func NewService(name string, holdings []models.Holding, stocks interfaces.StockDataService, enricher MetricsEnricher, logger *common.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Service{
		name:     name,
		currency: "INR",
		stocks:   stocks,
		enricher: enricher,
		clock:    common.SystemClock,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.update(func() { s.replaceLocked(holdings) })
	return s
}

// Name returns the portfolio name
func (s *Service) Name() string {
	return s.name
}

// Currency returns the display currency code
func (s *Service) Currency() string {
	return s.currency
}

// update runs fn with s.mu held for writing.
func (s *Service) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// replaceLocked enriches, aggregates and scores holdings, then swaps them in.
// Caller holds s.mu.
func (s *Service) replaceLocked(holdings []models.Holding) {
	hs := make([]models.Holding, len(holdings))
	copy(hs, holdings)
	if s.enricher != nil {
		for i := range hs {
			s.enricher.EnhancedMetrics(&hs[i])
		}
	}
	s.storeLocked(hs)
}

// storeLocked recomputes aggregates and recommendations. Caller holds s.mu.
func (s *Service) storeLocked(holdings []models.Holding) {
	p := Recompute(s.name, holdings)
	for i := range p.Holdings {
		strategy.Recommend(p.Holdings[i]).Apply(&p.Holdings[i])
	}
	p.LastUpdated = s.clock.Now()
	s.portfolio = p
	s.sectors = ApplyTargets(SectorSummaries(p), s.targets)
}

// Snapshot returns a copy of the current portfolio
func (s *Service) Snapshot() models.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.portfolio
	p.Holdings = append([]models.Holding(nil), s.portfolio.Holdings...)
	return p
}

// Sectors returns sector summaries ordered by descending value
func (s *Service) Sectors() []models.SectorSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SectorSummary(nil), s.sectors...)
}

// Recommendations returns the recommendation for every holding, in
// portfolio order
func (s *Service) Recommendations() []models.Recommendation {
	p := s.Snapshot()
	out := make([]models.Recommendation, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		out = append(out, strategy.Recommend(h))
	}
	return out
}

// ReplaceHoldings swaps in a new holding list
func (s *Service) ReplaceHoldings(holdings []models.Holding) models.Portfolio {
	s.update(func() { s.replaceLocked(holdings) })

	s.logger.Info().Int("holdings", len(holdings)).Msg("Portfolio holdings replaced")
	return s.Snapshot()
}

// Refresh fetches records for every holding and merges them. On fetch
// failure the portfolio is left unchanged and the error returned.
func (s *Service) Refresh(ctx context.Context) (models.Portfolio, error) {
	start := s.clock.Now()
	current := s.Snapshot()
	if len(current.Holdings) == 0 {
		return current, nil
	}

	symbols := make([]string, 0, len(current.Holdings))
	seen := make(map[string]bool, len(current.Holdings))
	for _, h := range current.Holdings {
		if !seen[h.Symbol] {
			seen[h.Symbol] = true
			symbols = append(symbols, h.Symbol)
		}
	}

	data, err := s.stocks.GetStocks(ctx, symbols)
	if err != nil {
		s.metrics.Refresh(time.Since(start).Seconds(), err)
		s.logger.Warn().Err(err).Msg("Portfolio refresh failed, keeping previous prices")
		return current, fmt.Errorf("refresh portfolio: %w", err)
	}

	s.update(func() {
		s.storeLocked(MergeStockData(s.portfolio.Holdings, data, s.clock.Now()))
	})

	s.metrics.Refresh(time.Since(start).Seconds(), nil)
	snap := s.Snapshot()
	s.logger.Info().
		Int("holdings", len(snap.Holdings)).
		Float64("current_value", snap.CurrentValue).
		Msg("Portfolio refreshed")
	return snap, nil
}

// MergeStockData applies fetched records to holdings by symbol. A zero,
// negative or non-finite price keeps the previous price; PE and earnings
// are taken when present.
// Holdings without a record are returned unchanged.
func MergeStockData(holdings []models.Holding, data map[string]models.StockData, now time.Time) []models.Holding {
	out := make([]models.Holding, len(holdings))
	copy(out, holdings)
	for i := range out {
		rec, ok := data[out[i].Symbol]
		if !ok {
			continue
		}
		price := rec.CurrentPrice
		if price <= 0 || !isFinite(price) {
			price = out[i].CurrentPrice
		}
		out[i].Reprice(price)
		if rec.PERatio != 0 && isFinite(rec.PERatio) {
			pe := rec.PERatio
			out[i].PERatio = &pe
		}
		if rec.Earnings != "" {
			out[i].Earnings = rec.Earnings
		}
		out[i].QuoteSource = rec.Source
		out[i].LastUpdated = now
	}
	return out
}

// Ensure Service implements PortfolioService
var _ interfaces.PortfolioService = (*Service)(nil)
