package portfolio

import (
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

type seedHolding struct {
	id, name, symbol, sector string
	qty, purchase, current   float64
	pe                       float64
	earnings                 string
}

// sampleHoldings is the built-in portfolio used when configuration lists none.
var sampleHoldings = []seedHolding{
	{"1", "HDFC Bank", "HDFCBANK.NS", "Financial Sector", 50, 1450, 1770, 20.5, "₹45,000 Cr"},
	{"2", "Bajaj Finance", "BAJFINANCE.NS", "Financial Sector", 10, 4450, 6500, 28.3, "₹12,500 Cr"},
	{"3", "ICICI Bank", "ICICIBANK.NS", "Financial Sector", 75, 800, 1200, 18.2, "₹38,000 Cr"},
	{"4", "Affle India", "AFFLE.NS", "Information Technology", 50, 950, 1200, 28.5, "₹850 Cr"},
	{"5", "KPIT Technologies", "KPITTECH.NS", "Information Technology", 100, 950, 1800, 35.2, "₹2,800 Cr"},
	{"6", "DMart", "DMART.NS", "Consumer", 15, 3800, 3500, 45.2, "₹2,800 Cr"},
	{"7", "Tata Consumer", "TATACONSUM.NS", "Consumer", 37, 750, 850, 35.1, "₹8,200 Cr"},
	{"8", "Tata Power", "TATAPOWER.NS", "Power", 200, 220, 350, 28.7, "₹12,400 Cr"},
	{"9", "Suzlon Energy", "SUZLON.NS", "Power", 500, 38, 45, 8.5, "₹850 Cr"},
	{"10", "Polycab India", "POLYCAB.NS", "Others", 30, 2500, 4500, 25.3, "₹8,900 Cr"},
}

// SampleHoldings returns a fresh copy of the built-in portfolio.
func SampleHoldings(now time.Time) []models.Holding {
	out := make([]models.Holding, 0, len(sampleHoldings))
	for _, s := range sampleHoldings {
		pe := s.pe
		h := models.Holding{
			ID:            s.id,
			Name:          s.name,
			Symbol:        s.symbol,
			Sector:        s.sector,
			Exchange:      "NSE",
			Quantity:      s.qty,
			PurchasePrice: s.purchase,
			PERatio:       &pe,
			Earnings:      s.earnings,
			LastUpdated:   now,
		}
		h.Reprice(s.current)
		out = append(out, h)
	}
	return out
}

// HoldingsFromConfig converts configured holdings. Entries without an id get
// a generated one; a missing current price starts at the purchase price.
func HoldingsFromConfig(cfg []common.HoldingConfig, now time.Time) []models.Holding {
	out := make([]models.Holding, 0, len(cfg))
	for _, c := range cfg {
		h := models.Holding{
			ID:            c.ID,
			Name:          c.Name,
			Symbol:        c.Symbol,
			Sector:        c.Sector,
			Exchange:      c.Exchange,
			Quantity:      c.Quantity,
			PurchasePrice: c.PurchasePrice,
			Earnings:      c.Earnings,
			LastUpdated:   now,
		}
		if h.ID == "" {
			h.ID = uuid.NewString()
		}
		if h.Exchange == "" {
			h.Exchange = "NSE"
		}
		if c.PERatio > 0 {
			pe := c.PERatio
			h.PERatio = &pe
		}
		price := c.CurrentPrice
		if price <= 0 {
			price = c.PurchasePrice
		}
		h.Reprice(price)
		out = append(out, h)
	}
	return out
}

// SectorTargetsFromConfig indexes configured targets by sector. Entries
// with no sector, a negative or non-finite bound, or min above max are
// skipped; a later entry for the same sector wins.
func SectorTargetsFromConfig(cfg []common.SectorTargetConfig) map[string]models.AllocationTarget {
	out := make(map[string]models.AllocationTarget, len(cfg))
	for _, c := range cfg {
		if c.Sector == "" || !isFinite(c.Min) || !isFinite(c.Max) || c.Min < 0 || c.Min > c.Max {
			continue
		}
		out[c.Sector] = models.AllocationTarget{Min: c.Min, Max: c.Max, Note: c.Note}
	}
	return out
}
