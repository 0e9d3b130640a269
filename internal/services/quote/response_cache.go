package quote

import (
	"slices"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/cache"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

const globalResponseKey = "global"

// ResponseCache holds complete GetStocks results. In symbols scope entries
// are keyed by the sorted, de-duplicated symbol set; in global scope one
// entry answers every request until it expires. A nil *ResponseCache
// caches nothing.
type ResponseCache struct {
	scope   string
	entries *cache.TTL[map[string]models.StockData]
}

// NewResponseCache creates a cache. Unknown scopes behave as symbols scope.
func NewResponseCache(ttl time.Duration, scope string, clock common.Clock) *ResponseCache {
	return &ResponseCache{
		scope:   scope,
		entries: cache.New[map[string]models.StockData](ttl, clock),
	}
}

func (rc *ResponseCache) key(symbols []string) string {
	if rc.scope == common.CacheScopeGlobal {
		return globalResponseKey
	}
	set := slices.Clone(symbols)
	slices.Sort(set)
	return strings.Join(slices.Compact(set), ",")
}

// Get returns the cached response for symbols.
func (rc *ResponseCache) Get(symbols []string) (map[string]models.StockData, bool) {
	if rc == nil {
		return nil, false
	}
	return rc.entries.Get(rc.key(symbols))
}

// Set stores a response for symbols.
func (rc *ResponseCache) Set(symbols []string, data map[string]models.StockData) {
	if rc == nil {
		return
	}
	rc.entries.Set(rc.key(symbols), data)
}

// Clear drops every cached response.
func (rc *ResponseCache) Clear() {
	if rc == nil {
		return
	}
	rc.entries.Clear()
}
