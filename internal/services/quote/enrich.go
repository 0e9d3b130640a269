package quote

import (
	"fmt"
	"math"

	"github.com/bobmcallan/folio/internal/models"
)

// crore is 10^7, the unit Indian financial figures are quoted in.
const crore = 1e7

// Enricher fills values the provider did not supply with placeholder
// figures. Anything it generates is named in StockData.SyntheticFields or
// flagged by Holding.SyntheticMetrics; none of it is sourced data.
type Enricher struct {
	rand RandSource
}

// NewEnricher creates an enricher drawing from r (DefaultRand when nil).
func NewEnricher(r RandSource) *Enricher {
	if r == nil {
		r = DefaultRand
	}
	return &Enricher{rand: r}
}

// between returns a value uniformly drawn from [lo, lo+span).
func (e *Enricher) between(lo, span float64) float64 {
	return e.rand.Float64()*span + lo
}

func crores(v float64) string {
	return fmt.Sprintf("%.0f Cr", v)
}

func rupeeCrores(v float64) string {
	return "₹" + crores(v)
}

// StockRecord builds the /api/stocks record for a provider quote, using the
// overview where it has a non-zero value and a placeholder otherwise.
// overview may be nil.
func (e *Enricher) StockRecord(q *models.Quote, overview *models.Overview) models.StockData {
	rec := models.StockData{
		Symbol:        q.Symbol,
		CurrentPrice:  q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Volume:        q.Volume,
		High52Week:    q.High52Week,
		Low52Week:     q.Low52Week,
		LastUpdated:   q.LastUpdated,
		Source:        models.SourceAlphaVantage,
	}

	var ov models.Overview
	if overview != nil {
		ov = *overview
	}

	pick := func(field string, provided float64, synth func() float64) float64 {
		if provided != 0 {
			return provided
		}
		rec.SyntheticFields = append(rec.SyntheticFields, field)
		return synth()
	}

	rec.PERatio = pick("peRatio", ov.PERatio, func() float64 { return e.between(15, 25) })

	if ov.MarketCap != "" && ov.MarketCap != "0" {
		rec.MarketCap = ov.MarketCap
	} else {
		rec.MarketCap = crores(e.between(10000, 100000))
		rec.SyntheticFields = append(rec.SyntheticFields, "marketCap")
	}

	if overview != nil {
		rec.Earnings = rupeeCrores(ov.RevenueTTM / crore)
	} else {
		rec.Earnings = rupeeCrores(e.between(500, 5000))
		rec.SyntheticFields = append(rec.SyntheticFields, "earnings")
	}

	rec.BookValue = pick("bookValue", ov.BookValue, func() float64 { return q.Price * e.between(0.3, 0.7) })
	rec.DividendYield = pick("dividendYield", ov.DividendYield, func() float64 { return e.between(0, 5) })
	rec.Beta = pick("beta", ov.Beta, func() float64 { return e.between(0.5, 1.5) })
	rec.High52Week = pick("high52Week", q.High52Week, func() float64 { return q.Price * 1.3 })
	rec.Low52Week = pick("low52Week", q.Low52Week, func() float64 { return q.Price * 0.7 })
	rec.ProfitMargin = pick("profitMargin", ov.ProfitMargin, func() float64 { return e.between(2, 20) })
	rec.ReturnOnEquity = pick("returnOnEquity", ov.ReturnOnEquityTTM, func() float64 { return e.between(5, 25) })
	rec.PriceToBook = pick("priceToBook", ov.PriceToBookRatio, func() float64 { return e.between(0.5, 4) })
	rec.PriceToSales = pick("priceToSales", ov.PriceToSalesRatioTTM, func() float64 { return e.between(0.5, 8) })

	return rec
}

// FallbackRecord builds a fully synthetic record around a generated quote.
func (e *Enricher) FallbackRecord(q models.Quote) models.StockData {
	return models.StockData{
		Symbol:         q.Symbol,
		CurrentPrice:   q.Price,
		Change:         q.Change,
		ChangePercent:  q.ChangePercent,
		Volume:         q.Volume,
		PERatio:        e.between(15, 25),
		MarketCap:      rupeeCrores(e.between(10000, 100000)),
		Earnings:       rupeeCrores(e.between(500, 5000)),
		BookValue:      q.Price * e.between(0.3, 0.7),
		DividendYield:  e.between(0, 5),
		Beta:           e.between(0.5, 1.5),
		High52Week:     q.High52Week,
		Low52Week:      q.Low52Week,
		ProfitMargin:   e.between(2, 20),
		ReturnOnEquity: e.between(5, 25),
		PriceToBook:    e.between(0.5, 4),
		PriceToSales:   e.between(0.5, 8),
		LastUpdated:    q.LastUpdated,
		Source:         models.SourceFallback,
		SyntheticFields: []string{
			"currentPrice", "change", "changePercent", "volume", "peRatio", "marketCap",
			"earnings", "bookValue", "dividendYield", "beta", "high52Week", "low52Week",
			"profitMargin", "returnOnEquity", "priceToBook", "priceToSales",
		},
	}
}

// EnhancedMetrics sets placeholder fundamentals on h, scaled to its current
// price, and marks it SyntheticMetrics.
func (e *Enricher) EnhancedMetrics(h *models.Holding) {
	price := h.CurrentPrice
	capBase := price * crore

	h.MarketCap = ptr(capBase + (e.rand.Float64()-0.5)*capBase*0.1)
	h.LatestEarnings = rupeeCrores(e.between(500, 5000))
	h.RevenueTTM = ptr(e.between(5000, 50000) * crore)
	h.EBITDATTM = ptr(e.between(1000, 10000) * crore)
	h.EBITDAPercent = ptr(e.between(5, 25))
	h.PAT = ptr(e.between(500, 5000) * crore)
	h.PATPercent = ptr(e.between(2, 20))
	h.CFOMarch24 = ptr(e.between(300, 3000) * crore)
	h.CFONext5Years = ptr(e.between(1500, 15000) * crore)
	h.FreeCashFlowNext5Years = ptr(e.between(1200, 12000) * crore)
	h.DebtToEquity = ptr(e.between(0, 1.5))
	h.BookValue = ptr(price * e.between(0.3, 0.7))
	h.PriceToSales = ptr(e.between(0.5, 8))
	h.CFOToEBITDA = ptr(e.between(0.4, 0.6))
	h.CFOToPAT = ptr(e.between(0.8, 0.8))
	h.PriceToBook = ptr(e.between(0.5, 4))
	stage2 := e.rand.Float64() > 0.4
	h.Stage2 = &stage2
	h.SalePrice = ptr(price * e.between(0.95, 0.1))
	h.SyntheticMetrics = true
}

func ptr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
