// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// QuoteClient provides access to the upstream quote provider. Lookups
// return (nil, nil) when the provider has no usable data; a non-nil error
// means the context ended.
type QuoteClient interface {
	// GetQuote retrieves the latest quote for a symbol
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// GetCompanyOverview retrieves company fundamentals
	GetCompanyOverview(ctx context.Context, symbol string) (*models.Overview, error)

	// GetMultipleQuotes retrieves quotes sequentially, omitting misses
	GetMultipleQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error)

	// ClearCache drops all cached provider responses
	ClearCache()
}
