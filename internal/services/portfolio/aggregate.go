package portfolio

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/models"
)

var hundred = decimal.NewFromInt(100)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// toDecimal maps NaN and infinities to zero; decimal.NewFromFloat panics on them.
func toDecimal(v float64) decimal.Decimal {
	if !isFinite(v) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// sanitize zeroes non-finite inputs. A non-finite current price falls back
// to the purchase price.
func sanitize(h *models.Holding) {
	if !isFinite(h.Quantity) {
		h.Quantity = 0
	}
	if !isFinite(h.PurchasePrice) {
		h.PurchasePrice = 0
	}
	if !isFinite(h.CurrentPrice) {
		h.CurrentPrice = h.PurchasePrice
	}
	if h.PERatio != nil && !isFinite(*h.PERatio) {
		h.PERatio = nil
	}
}

// Recompute derives portfolio totals from scratch. Each holding is repriced
// at its current price and its portfolio percent is set from the new total.
// Non-finite holding values are zeroed first.
// TotalGainLossPercent is NaN when there is no invested capital.
func Recompute(name string, holdings []models.Holding) models.Portfolio {
	out := make([]models.Holding, len(holdings))
	copy(out, holdings)

	totalInvestment := decimal.Zero
	currentValue := decimal.Zero
	for i := range out {
		sanitize(&out[i])
		out[i].Reprice(out[i].CurrentPrice)
		totalInvestment = totalInvestment.Add(toDecimal(out[i].Investment))
		currentValue = currentValue.Add(toDecimal(out[i].PresentValue))
	}

	totalGainLoss := currentValue.Sub(totalInvestment)

	p := models.Portfolio{
		Name:                 name,
		Holdings:             out,
		TotalInvestment:      totalInvestment.InexactFloat64(),
		CurrentValue:         currentValue.InexactFloat64(),
		TotalGainLoss:        totalGainLoss.InexactFloat64(),
		TotalGainLossPercent: math.NaN(),
	}

	if totalInvestment.IsZero() {
		for i := range out {
			out[i].PortfolioPercent = 0
		}
		return p
	}

	p.TotalGainLossPercent = p.TotalGainLoss / p.TotalInvestment * 100
	for i := range out {
		out[i].PortfolioPercent = out[i].Investment / p.TotalInvestment * 100
	}
	return p
}

type sectorAcc struct {
	count      int
	investment decimal.Decimal
	value      decimal.Decimal
	gainLoss   decimal.Decimal
}

// SectorSummaries groups holdings by sector, ordered by descending current
// value. Ties keep first-appearance order.
func SectorSummaries(p models.Portfolio) []models.SectorSummary {
	var order []string
	groups := make(map[string]*sectorAcc)

	for _, h := range p.Holdings {
		acc, ok := groups[h.Sector]
		if !ok {
			acc = &sectorAcc{}
			groups[h.Sector] = acc
			order = append(order, h.Sector)
		}
		acc.count++
		acc.investment = acc.investment.Add(toDecimal(h.Investment))
		acc.value = acc.value.Add(toDecimal(h.PresentValue))
		acc.gainLoss = acc.gainLoss.Add(toDecimal(h.GainLoss))
	}

	total := toDecimal(p.TotalInvestment)
	summaries := make([]models.SectorSummary, 0, len(order))
	for _, sector := range order {
		acc := groups[sector]
		s := models.SectorSummary{
			Sector:          sector,
			TotalStocks:     acc.count,
			TotalInvestment: acc.investment.InexactFloat64(),
			CurrentValue:    acc.value.InexactFloat64(),
			GainLoss:        acc.gainLoss.InexactFloat64(),
		}
		if !acc.investment.IsZero() {
			s.GainLossPercent = acc.gainLoss.Div(acc.investment).Mul(hundred).InexactFloat64()
		}
		if !total.IsZero() {
			s.PortfolioPercent = acc.investment.Div(total).Mul(hundred).InexactFloat64()
		}
		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CurrentValue > summaries[j].CurrentValue
	})
	return summaries
}

// ApplyTargets attaches the ideal allocation band and status to every
// summary whose sector has a target. The input slice is updated in place
// and returned.
func ApplyTargets(summaries []models.SectorSummary, targets map[string]models.AllocationTarget) []models.SectorSummary {
	for i := range summaries {
		t, ok := targets[summaries[i].Sector]
		if !ok {
			continue
		}
		summaries[i].IdealAllocation = &t
		summaries[i].AllocationStatus = t.Status(summaries[i].PortfolioPercent)
	}
	return summaries
}
