package portfolio

import (
	"cmp"
	"slices"
	"sort"
	"strings"

	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// SectorAll disables sector filtering
const SectorAll = "all"

// Query returns holdings matching q in the requested order
func (s *Service) Query(q interfaces.HoldingQuery) []models.Holding {
	return FilterHoldings(s.Snapshot().Holdings, q)
}

// SectorNames returns the distinct sectors, sorted
func (s *Service) SectorNames() []string {
	return SectorNames(s.Snapshot().Holdings)
}

// SectorNames returns the distinct sectors of holdings, sorted
func SectorNames(holdings []models.Holding) []string {
	names := make([]string, 0, len(holdings))
	for _, h := range holdings {
		names = append(names, h.Sector)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// FilterHoldings applies a case-insensitive name/symbol search, an exact
// sector match and an optional sort. Unknown sort keys keep input order.
func FilterHoldings(holdings []models.Holding, q interfaces.HoldingQuery) []models.Holding {
	term := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.Holding, 0, len(holdings))
	for _, h := range holdings {
		if term != "" &&
			!strings.Contains(strings.ToLower(h.Name), term) &&
			!strings.Contains(strings.ToLower(h.Symbol), term) {
			continue
		}
		if q.Sector != "" && q.Sector != SectorAll && h.Sector != q.Sector {
			continue
		}
		out = append(out, h)
	}

	less, ok := sortKeys[q.SortBy]
	if !ok {
		return out
	}
	desc := strings.EqualFold(q.Order, "desc")
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func byFloat(get func(models.Holding) float64) func(a, b models.Holding) bool {
	return func(a, b models.Holding) bool { return get(a) < get(b) }
}

func byString(get func(models.Holding) string) func(a, b models.Holding) bool {
	return func(a, b models.Holding) bool { return cmp.Less(get(a), get(b)) }
}

func optional(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// sortKeys maps holding JSON field names to orderings
var sortKeys = map[string]func(a, b models.Holding) bool{
	"name":             byString(func(h models.Holding) string { return h.Name }),
	"symbol":           byString(func(h models.Holding) string { return h.Symbol }),
	"sector":           byString(func(h models.Holding) string { return h.Sector }),
	"aiRecommendation": byString(func(h models.Holding) string { return string(h.AIRecommendation) }),
	"quantity":         byFloat(func(h models.Holding) float64 { return h.Quantity }),
	"purchasePrice":    byFloat(func(h models.Holding) float64 { return h.PurchasePrice }),
	"currentPrice":     byFloat(func(h models.Holding) float64 { return h.CurrentPrice }),
	"investment":       byFloat(func(h models.Holding) float64 { return h.Investment }),
	"presentValue":     byFloat(func(h models.Holding) float64 { return h.PresentValue }),
	"gainLoss":         byFloat(func(h models.Holding) float64 { return h.GainLoss }),
	"gainLossPercent":  byFloat(func(h models.Holding) float64 { return h.GainLossPercent }),
	"portfolioPercent": byFloat(func(h models.Holding) float64 { return h.PortfolioPercent }),
	"peRatio":          byFloat(func(h models.Holding) float64 { return optional(h.PERatio) }),
	"priceToBook":      byFloat(func(h models.Holding) float64 { return optional(h.PriceToBook) }),
	"debtToEquity":     byFloat(func(h models.Holding) float64 { return optional(h.DebtToEquity) }),
	"ebitdaPercent":    byFloat(func(h models.Holding) float64 { return optional(h.EBITDAPercent) }),
	"patPercent":       byFloat(func(h models.Holding) float64 { return optional(h.PATPercent) }),
	"aiConfidence":     byFloat(func(h models.Holding) float64 { return float64(h.AIConfidence) }),
}

// SortKeys lists the accepted sort field names
func SortKeys() []string {
	keys := make([]string, 0, len(sortKeys))
	for k := range sortKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
