package models

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Holding is one portfolio position plus its derived values, optional
// fundamentals and the computed recommendation.
type Holding struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Sector   string `json:"sector"`
	Exchange string `json:"exchange"`

	Quantity      float64 `json:"quantity"`
	PurchasePrice float64 `json:"purchasePrice"`
	CurrentPrice  float64 `json:"currentPrice"`

	// Derived; only Reprice writes these
	Investment       float64 `json:"investment"`
	PresentValue     float64 `json:"presentValue"`
	GainLoss         float64 `json:"gainLoss"`
	GainLossPercent  float64 `json:"gainLossPercent"`
	PortfolioPercent float64 `json:"portfolioPercent"`

	PERatio  *float64 `json:"peRatio,omitempty"`
	Earnings string   `json:"earnings,omitempty"`

	// Enhanced metrics. Populated by the placeholder generator unless a
	// provider supplies them; SyntheticMetrics reports which is the case.
	MarketCap              *float64 `json:"marketCap,omitempty"`
	LatestEarnings         string   `json:"latestEarnings,omitempty"`
	RevenueTTM             *float64 `json:"revenueTTM,omitempty"`
	EBITDATTM              *float64 `json:"ebitdaTTM,omitempty"`
	EBITDAPercent          *float64 `json:"ebitdaPercent,omitempty"`
	PAT                    *float64 `json:"pat,omitempty"`
	PATPercent             *float64 `json:"patPercent,omitempty"`
	CFOMarch24             *float64 `json:"cfoMarch24,omitempty"`
	CFONext5Years          *float64 `json:"cfoNext5Years,omitempty"`
	FreeCashFlowNext5Years *float64 `json:"freeCashFlowNext5Years,omitempty"`
	DebtToEquity           *float64 `json:"debtToEquity,omitempty"`
	BookValue              *float64 `json:"bookValue,omitempty"`
	PriceToSales           *float64 `json:"priceToSales,omitempty"`
	CFOToEBITDA            *float64 `json:"cfoToEbitda,omitempty"`
	CFOToPAT               *float64 `json:"cfoToPat,omitempty"`
	PriceToBook            *float64 `json:"priceToBook,omitempty"`
	Stage2                 *bool    `json:"stage2,omitempty"`
	SalePrice              *float64 `json:"salePrice,omitempty"`
	SyntheticMetrics       bool     `json:"syntheticMetrics"`

	AIRecommendation       Action    `json:"aiRecommendation,omitempty"`
	AIRecommendationReason string    `json:"aiRecommendationReason,omitempty"`
	AIConfidence           int       `json:"aiConfidence,omitempty"`
	QuoteSource            string    `json:"quoteSource,omitempty"`
	LastUpdated            time.Time `json:"lastUpdated"`
}

// Reprice sets the current price and recomputes investment, present value
// and gain/loss together.
func (h *Holding) Reprice(price float64) {
	h.CurrentPrice = price
	h.Investment = h.Quantity * h.PurchasePrice
	h.PresentValue = h.Quantity * h.CurrentPrice
	h.GainLoss = h.PresentValue - h.Investment
	if h.Investment != 0 {
		h.GainLossPercent = h.GainLoss / h.Investment * 100
	} else {
		h.GainLossPercent = 0
	}
}

// Portfolio is an ordered set of holdings and its aggregate totals.
type Portfolio struct {
	Name                 string    `json:"name"`
	Holdings             []Holding `json:"stocks"`
	TotalInvestment      float64   `json:"totalInvestment"`
	CurrentValue         float64   `json:"currentValue"`
	TotalGainLoss        float64   `json:"totalGainLoss"`
	TotalGainLossPercent float64   `json:"totalGainLossPercent"` // NaN when TotalInvestment is zero
	LastUpdated          time.Time `json:"lastUpdated"`
}

// IsEmpty reports whether the portfolio has no invested capital, in which
// case TotalGainLossPercent is undefined.
func (p Portfolio) IsEmpty() bool {
	return p.TotalInvestment == 0
}

// MarshalJSON encodes an undefined gain/loss percent as 0; encoding/json
// rejects NaN.
func (p Portfolio) MarshalJSON() ([]byte, error) {
	type alias Portfolio
	a := alias(p)
	if math.IsNaN(a.TotalGainLossPercent) || math.IsInf(a.TotalGainLossPercent, 0) {
		a.TotalGainLossPercent = 0
	}
	if a.Holdings == nil {
		a.Holdings = []Holding{}
	}
	return json.Marshal(a)
}

// SectorSummary aggregates the holdings of one sector.
type SectorSummary struct {
	Sector           string  `json:"sector"`
	TotalStocks      int     `json:"totalStocks"`
	TotalInvestment  float64 `json:"totalInvestment"`
	CurrentValue     float64 `json:"currentValue"`
	GainLoss         float64 `json:"gainLoss"`
	GainLossPercent  float64 `json:"gainLossPercent"`
	PortfolioPercent float64 `json:"portfolioPercent"`

	// Set only for sectors with a configured target
	IdealAllocation  *AllocationTarget `json:"idealAllocation,omitempty"`
	AllocationStatus AllocationStatus  `json:"allocationStatus,omitempty"`
}

// AllocationTarget is an ideal band for a sector's share of invested
// capital, in percent.
type AllocationTarget struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Note string  `json:"note,omitempty"`
}

// String renders the band as shown on the dashboard, e.g. "30-35% (reduce small caps)".
func (a AllocationTarget) String() string {
	s := strconv.FormatFloat(a.Min, 'f', -1, 64) + "-" + strconv.FormatFloat(a.Max, 'f', -1, 64) + "%"
	if a.Note != "" {
		s += " (" + a.Note + ")"
	}
	return s
}

// Status places a portfolio percent relative to the band.
func (a AllocationTarget) Status(percent float64) AllocationStatus {
	switch {
	case percent < a.Min:
		return AllocationUnder
	case percent > a.Max:
		return AllocationOver
	default:
		return AllocationWithin
	}
}

// AllocationStatus compares a sector's share with its target band
type AllocationStatus string

const (
	AllocationUnder  AllocationStatus = "under"
	AllocationWithin AllocationStatus = "within"
	AllocationOver   AllocationStatus = "over"
)
