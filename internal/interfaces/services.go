package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// StockDataService builds per-symbol stock records for the dashboard
type StockDataService interface {
	// GetStocks returns one record per requested symbol, substituting
	// synthetic data where the provider has none
	GetStocks(ctx context.Context, symbols []string) (map[string]models.StockData, error)
}

// PortfolioService manages the in-memory portfolio
type PortfolioService interface {
	// Snapshot returns the current portfolio with aggregates
	Snapshot() models.Portfolio

	// Query returns holdings matching the filter, sorted as requested
	Query(q HoldingQuery) []models.Holding

	// Sectors returns sector summaries ordered by descending value
	Sectors() []models.SectorSummary

	// SectorNames returns the distinct sectors, sorted
	SectorNames() []string

	// Recommendations returns the current recommendation per holding
	Recommendations() []models.Recommendation

	// Refresh fetches fresh quotes and recomputes the portfolio
	Refresh(ctx context.Context) (models.Portfolio, error)

	// ReplaceHoldings swaps in a new holding list and recomputes
	ReplaceHoldings(holdings []models.Holding) models.Portfolio
}

// HoldingQuery filters and orders portfolio holdings
type HoldingQuery struct {
	Search string // case-insensitive substring of name or symbol
	Sector string // "" or "all" matches every sector
	SortBy string // holding JSON field name
	Order  string // "asc" or "desc"
}
