package portfolio

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// --- Mocks ---

type mockStocks struct {
	mu      sync.Mutex
	data    map[string]models.StockData
	err     error
	calls   int
	symbols []string
}

func (m *mockStocks) GetStocks(_ context.Context, symbols []string) (map[string]models.StockData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.symbols = symbols
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

// flatEnricher sets fixed fundamentals so recommendations are predictable.
type flatEnricher struct{}

func (flatEnricher) EnhancedMetrics(h *models.Holding) {
	v := 0.6
	h.DebtToEquity = &v
	stage2 := true
	h.Stage2 = &stage2
	h.SyntheticMetrics = true
}

func fixedClock() common.Clock {
	return common.ClockFunc(func() time.Time { return testNow })
}

func newTestService(stocks interfaces.StockDataService) *Service {
	return NewService("sample", SampleHoldings(testNow), stocks, flatEnricher{}, common.NewSilentLogger(), WithClock(fixedClock()))
}

func TestNewService_EnrichesAndScores(t *testing.T) {
	svc := newTestService(&mockStocks{})
	p := svc.Snapshot()

	require.Len(t, p.Holdings, 10)
	assert.Equal(t, 542250.0, p.TotalInvestment)
	assert.Equal(t, testNow, p.LastUpdated)
	for _, h := range p.Holdings {
		assert.True(t, h.SyntheticMetrics, h.Symbol)
		assert.NotEmpty(t, h.AIRecommendation, h.Symbol)
		assert.NotZero(t, h.AIConfidence, h.Symbol)
	}
	assert.Len(t, svc.Sectors(), 5)
	assert.Len(t, svc.Recommendations(), 10)
}

func TestRefresh_MergesPricesAndFundamentals(t *testing.T) {
	stocks := &mockStocks{data: map[string]models.StockData{
		"HDFCBANK.NS": {Symbol: "HDFCBANK.NS", CurrentPrice: 1800, PERatio: 21.3, Earnings: "₹46,000 Cr", Source: models.SourceAlphaVantage},
		"SUZLON.NS":   {Symbol: "SUZLON.NS", CurrentPrice: 0, Source: models.SourceFallback},
	}}
	svc := newTestService(stocks)

	p, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stocks.calls)
	assert.Len(t, stocks.symbols, 10)

	byID := map[string]models.Holding{}
	for _, h := range p.Holdings {
		byID[h.Symbol] = h
	}

	hdfc := byID["HDFCBANK.NS"]
	assert.Equal(t, 1800.0, hdfc.CurrentPrice)
	assert.Equal(t, 90000.0, hdfc.PresentValue)
	assert.Equal(t, 17500.0, hdfc.GainLoss)
	require.NotNil(t, hdfc.PERatio)
	assert.Equal(t, 21.3, *hdfc.PERatio)
	assert.Equal(t, "₹46,000 Cr", hdfc.Earnings)
	assert.Equal(t, models.SourceAlphaVantage, hdfc.QuoteSource)

	suzlon := byID["SUZLON.NS"]
	assert.Equal(t, 45.0, suzlon.CurrentPrice, "zero price keeps the previous price")
	assert.Equal(t, 8.5, *suzlon.PERatio)
	assert.Equal(t, models.SourceFallback, suzlon.QuoteSource)

	assert.Equal(t, 794950.0+1500, p.CurrentValue)
	assert.Equal(t, svc.Snapshot().CurrentValue, p.CurrentValue)
}

func TestRefresh_ErrorKeepsPortfolio(t *testing.T) {
	stocks := &mockStocks{err: errors.New("upstream exploded")}
	svc := newTestService(stocks)
	before := svc.Snapshot()

	p, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
	assert.Equal(t, before.CurrentValue, p.CurrentValue)
	assert.Equal(t, before.CurrentValue, svc.Snapshot().CurrentValue)
}

func TestRefresh_EmptyPortfolioSkipsFetch(t *testing.T) {
	stocks := &mockStocks{}
	svc := NewService("empty", nil, stocks, nil, nil)

	p, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())
	assert.Zero(t, stocks.calls)
}

func TestRefresh_RecomputesRecommendation(t *testing.T) {
	stocks := &mockStocks{data: map[string]models.StockData{
		// DMart bought at 3800: a price of 2500 is a loss beyond 30%.
		"DMART.NS": {CurrentPrice: 2500, PERatio: 45.2},
	}}
	svc := newTestService(stocks)

	p, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	for _, h := range p.Holdings {
		if h.Symbol == "DMART.NS" {
			assert.Less(t, h.GainLossPercent, -30.0)
			assert.Equal(t, models.ActionExit, h.AIRecommendation)
			assert.Contains(t, h.AIRecommendationReason, "Significant losses indicate fundamental issues")
			return
		}
	}
	t.Fatal("DMART.NS missing")
}

func TestReplaceHoldings(t *testing.T) {
	svc := newTestService(&mockStocks{})

	p := svc.ReplaceHoldings([]models.Holding{
		{ID: "x", Name: "Infosys", Symbol: "INFY.NS", Sector: "Information Technology", Quantity: 10, PurchasePrice: 1400, CurrentPrice: 1450},
	})

	require.Len(t, p.Holdings, 1)
	assert.Equal(t, 14000.0, p.TotalInvestment)
	assert.True(t, p.Holdings[0].SyntheticMetrics)
	assert.Equal(t, []string{"Information Technology"}, svc.SectorNames())
}

// withinDeadline fails the test if fn blocks, e.g. on a lock left held.
func withinDeadline(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("call blocked")
	}
}

func TestReplaceHoldings_NonFiniteDoesNotWedge(t *testing.T) {
	svc := newTestService(&mockStocks{})

	var p models.Portfolio
	withinDeadline(t, func() {
		p = svc.ReplaceHoldings([]models.Holding{
			{ID: "x", Name: "Infosys", Symbol: "INFY.NS", Sector: "Information Technology", Quantity: math.NaN(), PurchasePrice: 1400, CurrentPrice: math.Inf(1)},
			{ID: "y", Name: "TCS", Symbol: "TCS.NS", Sector: "Information Technology", Quantity: 2, PurchasePrice: 3000, CurrentPrice: 3500},
		})
	})
	assert.Equal(t, 6000.0, p.TotalInvestment)
	assert.Equal(t, 7000.0, p.CurrentValue)

	withinDeadline(t, func() {
		p = svc.ReplaceHoldings(SampleHoldings(testNow))
		assert.Len(t, svc.Sectors(), 5)
		assert.Len(t, svc.Recommendations(), 10)
	})
	assert.Equal(t, 542250.0, p.TotalInvestment)
}

func TestRefresh_NonFiniteRecordKeepsPrice(t *testing.T) {
	stocks := &mockStocks{data: map[string]models.StockData{
		"HDFCBANK.NS": {CurrentPrice: math.NaN(), PERatio: math.Inf(1), Source: models.SourceAlphaVantage},
		"SUZLON.NS":   {CurrentPrice: -3, Source: models.SourceFallback},
	}}
	svc := newTestService(stocks)
	before := map[string]models.Holding{}
	for _, h := range svc.Snapshot().Holdings {
		before[h.Symbol] = h
	}

	var p models.Portfolio
	var err error
	withinDeadline(t, func() { p, err = svc.Refresh(context.Background()) })
	require.NoError(t, err)

	for _, h := range p.Holdings {
		switch h.Symbol {
		case "HDFCBANK.NS", "SUZLON.NS":
			assert.Equal(t, before[h.Symbol].CurrentPrice, h.CurrentPrice, h.Symbol)
			assert.Equal(t, *before[h.Symbol].PERatio, *h.PERatio, h.Symbol)
		}
	}
	assert.Equal(t, 794950.0, p.CurrentValue)
}

func TestMergeStockData_UnknownSymbolUntouched(t *testing.T) {
	in := SampleHoldings(testNow)
	out := MergeStockData(in, map[string]models.StockData{"OTHER.NS": {CurrentPrice: 1}}, testNow)
	assert.Equal(t, in, out)
}

func TestQuery_SearchSectorSort(t *testing.T) {
	svc := newTestService(&mockStocks{})

	tata := svc.Query(interfaces.HoldingQuery{Search: "tata"})
	assert.Len(t, tata, 2)

	bySymbol := svc.Query(interfaces.HoldingQuery{Search: "BANK.ns"})
	assert.Len(t, bySymbol, 2)

	power := svc.Query(interfaces.HoldingQuery{Sector: "Power", SortBy: "currentPrice", Order: "desc"})
	require.Len(t, power, 2)
	assert.Equal(t, "TATAPOWER.NS", power[0].Symbol)
	assert.Equal(t, "SUZLON.NS", power[1].Symbol)

	all := svc.Query(interfaces.HoldingQuery{Sector: SectorAll, SortBy: "gainLossPercent"})
	require.Len(t, all, 10)
	assert.Equal(t, "DMART.NS", all[0].Symbol)
	assert.Equal(t, "KPITTECH.NS", all[9].Symbol)

	byName := svc.Query(interfaces.HoldingQuery{SortBy: "name", Order: "asc"})
	assert.Equal(t, "Affle India", byName[0].Name)

	unsorted := svc.Query(interfaces.HoldingQuery{SortBy: "nonsense"})
	assert.Equal(t, "HDFCBANK.NS", unsorted[0].Symbol)

	none := svc.Query(interfaces.HoldingQuery{Search: "zzz"})
	assert.Empty(t, none)
}

func TestSectorNames_DistinctSorted(t *testing.T) {
	svc := newTestService(&mockStocks{})
	assert.Equal(t, []string{"Consumer", "Financial Sector", "Information Technology", "Others", "Power"}, svc.SectorNames())
}

func TestSnapshot_IsCopy(t *testing.T) {
	svc := newTestService(&mockStocks{})
	p := svc.Snapshot()
	p.Holdings[0].Name = "changed"
	assert.Equal(t, "HDFC Bank", svc.Snapshot().Holdings[0].Name)
}

func TestSectors_CarryConfiguredTargets(t *testing.T) {
	targets := SectorTargetsFromConfig(common.DefaultSectorTargets())
	svc := NewService("sample", SampleHoldings(testNow), &mockStocks{}, nil, nil, WithSectorTargets(targets))

	sectors := svc.Sectors()
	require.Len(t, sectors, 5)
	for _, s := range sectors {
		require.NotNil(t, s.IdealAllocation, s.Sector)
		assert.Equal(t, targets[s.Sector], *s.IdealAllocation)
	}

	// targets follow the new allocation after a replace
	svc.ReplaceHoldings([]models.Holding{
		{ID: "x", Name: "Tata Power", Symbol: "TATAPOWER.NS", Sector: "Power", Quantity: 10, PurchasePrice: 300, CurrentPrice: 350},
	})
	sectors = svc.Sectors()
	require.Len(t, sectors, 1)
	assert.Equal(t, models.AllocationOver, sectors[0].AllocationStatus)
}
