package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/folio/internal/models"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "₹542,250.00", FormatMoney(542250, "INR"))
	assert.Equal(t, "₹1,770.56", FormatMoney(1770.555, "inr"))
	assert.Equal(t, "$12.50", FormatMoney(12.5, "USD"))
	assert.Equal(t, "₹0.00", FormatMoney(math.NaN(), "INR"))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+46.60%", FormatPercent(46.6))
	assert.Equal(t, "-7.89%", FormatPercent(-7.894736))
	assert.Equal(t, "+0.00%", FormatPercent(0))
}

func TestFormatTotals(t *testing.T) {
	p := Recompute("sample", SampleHoldings(testNow))
	totals := FormatTotals(p, "INR")

	assert.Equal(t, "INR", totals.Currency)
	assert.Equal(t, "₹542,250.00", totals.TotalInvestment)
	assert.Equal(t, "₹794,950.00", totals.CurrentValue)
	assert.Equal(t, "₹252,700.00", totals.TotalGainLoss)
	assert.Equal(t, "+46.60%", totals.TotalGainLossPercent)

	empty := FormatTotals(models.Portfolio{TotalGainLossPercent: math.NaN()}, "INR")
	assert.Equal(t, "n/a", empty.TotalGainLossPercent)
}
