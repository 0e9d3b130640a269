package quote

import (
	"math"
	"math/rand"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// RandSource yields uniform values in [0, 1).
type RandSource interface {
	Float64() float64
}

// RandFunc adapts a function to RandSource.
type RandFunc func() float64

// Float64 returns f().
func (f RandFunc) Float64() float64 { return f() }

// DefaultRand draws from the auto-seeded math/rand global source, which is
// safe for concurrent use.
var DefaultRand RandSource = RandFunc(rand.Float64)

// DefaultBasePrice applies to symbols without a known reference price.
const DefaultBasePrice = 1000.0

// basePrices are reference prices (INR) the synthetic series walks around.
var basePrices = map[string]float64{
	"HDFCBANK.NS":   1770,
	"BAJFINANCE.NS": 6500,
	"ICICIBANK.NS":  1200,
	"BAJAJ-AUTO.NS": 9500,
	"SAVANIFIN.NS":  180,
	"AFFLE.NS":      1200,
	"LTIM.NS":       5800,
	"KPITTECH.NS":   1800,
	"TATATECH.NS":   900,
	"BLSE.NS":       90,
	"TANLA.NS":      480,
	"DMART.NS":      3500,
	"TATACONSUM.NS": 850,
	"PIDILITE.NS":   2800,
	"TATAPOWER.NS":  350,
	"KPIGREEN.NS":   200,
	"SUZLON.NS":     45,
	"GENSOL.NS":     150,
	"HARIOMPIPE.NS": 250,
	"ASTRAL.NS":     2200,
	"POLYCAB.NS":    4500,
	"CLEANSCI.NS":   1650,
	"DEEPAKNTR.NS":  2650,
	"FINEORG.NS":    5200,
	"GRAVITA.NS":    1450,
	"SBILIFE.NS":    1580,
	"INFY.NS":       1450,
	"HAPPSTMNDS.NS": 920,
	"EASEMYTRIP.NS": 38,
}

const (
	trendRange = 0.02
	volatility = 0.03
	priceFloor = 0.5
)

// BasePrice returns the reference price for symbol.
func BasePrice(symbol string) float64 {
	if p, ok := basePrices[symbol]; ok {
		return p
	}
	return DefaultBasePrice
}

// Generator synthesises quotes when the provider has none.
type Generator struct {
	rand  RandSource
	clock common.Clock
}

// NewGenerator creates a generator. Nil arguments select DefaultRand and the
// system clock.
func NewGenerator(r RandSource, clock common.Clock) *Generator {
	if r == nil {
		r = DefaultRand
	}
	if clock == nil {
		clock = common.SystemClock
	}
	return &Generator{rand: r, clock: clock}
}

// Generate returns a synthetic quote near the symbol's base price. The price
// never falls below half the base price. It never fails.
func (g *Generator) Generate(symbol string) models.Quote {
	base := BasePrice(symbol)
	trend := (g.rand.Float64() - 0.5) * trendRange
	noise := (g.rand.Float64() - 0.5) * volatility

	price := math.Max(base+base*(trend+noise), base*priceFloor)
	change := price - base
	changePercent := change / base * 100

	return models.Quote{
		Symbol:        symbol,
		Price:         round2(price),
		Change:        round2(change),
		ChangePercent: round2(changePercent),
		Volume:        int64(math.Floor(g.rand.Float64()*1_000_000)) + 100_000,
		High52Week:    base * (1.2 + g.rand.Float64()*0.3),
		Low52Week:     base * (0.7 - g.rand.Float64()*0.2),
		LastUpdated:   g.clock.Now().UTC().Format(time.RFC3339),
		FetchedAt:     g.clock.Now(),
		Source:        models.SourceFallback,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
