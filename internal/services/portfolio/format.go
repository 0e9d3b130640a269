package portfolio

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"

	"github.com/bobmcallan/folio/internal/models"
)

// Totals are display strings for the portfolio summary cards
type Totals struct {
	Currency             string `json:"currency"`
	TotalInvestment      string `json:"totalInvestment"`
	CurrentValue         string `json:"currentValue"`
	TotalGainLoss        string `json:"totalGainLoss"`
	TotalGainLossPercent string `json:"totalGainLossPercent"`
}

// FormatMoney renders amount in the currency's symbol and grouping,
// rounded to its minor unit.
func FormatMoney(amount float64, code string) string {
	cur := money.New(0, strings.ToUpper(code)).Currency()
	minor := toDecimal(amount).Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatPercent renders a signed percentage with two decimals.
func FormatPercent(p float64) string {
	sign := ""
	if p >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, p)
}

// FormatTotals renders portfolio aggregates for display. An empty portfolio
// has no gain/loss percent.
func FormatTotals(p models.Portfolio, code string) Totals {
	t := Totals{
		Currency:        strings.ToUpper(code),
		TotalInvestment: FormatMoney(p.TotalInvestment, code),
		CurrentValue:    FormatMoney(p.CurrentValue, code),
		TotalGainLoss:   FormatMoney(p.TotalGainLoss, code),
	}
	if p.IsEmpty() {
		t.TotalGainLossPercent = "n/a"
	} else {
		t.TotalGainLossPercent = FormatPercent(p.TotalGainLossPercent)
	}
	return t
}
