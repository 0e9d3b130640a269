package models

import "time"

// Quote sources
const (
	SourceAlphaVantage = "alphavantage"
	SourceFallback     = "fallback"
)

// Quote is a point-in-time price for a symbol. It is transient: it lives only
// as long as its cache entry.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Volume        int64     `json:"volume"`
	High52Week    float64   `json:"high52Week,omitempty"`
	Low52Week     float64   `json:"low52Week,omitempty"`
	LastUpdated   string    `json:"lastUpdated"`
	FetchedAt     time.Time `json:"-"`
	Source        string    `json:"source,omitempty"` // "alphavantage" or "fallback"
}

// Overview holds company fundamentals reported by the quote provider.
type Overview struct {
	Symbol                     string  `json:"symbol"`
	Name                       string  `json:"name"`
	MarketCap                  string  `json:"marketCap"`
	PERatio                    float64 `json:"peRatio"`
	PEGRatio                   float64 `json:"pegRatio"`
	BookValue                  float64 `json:"bookValue"`
	DividendYield              float64 `json:"dividendYield"`
	EPS                        float64 `json:"eps"`
	RevenuePerShareTTM         float64 `json:"revenuePerShareTTM"`
	ProfitMargin               float64 `json:"profitMargin"`
	OperatingMarginTTM         float64 `json:"operatingMarginTTM"`
	ReturnOnAssetsTTM          float64 `json:"returnOnAssetsTTM"`
	ReturnOnEquityTTM          float64 `json:"returnOnEquityTTM"`
	RevenueTTM                 float64 `json:"revenueTTM"`
	GrossProfitTTM             float64 `json:"grossProfitTTM"`
	DilutedEPSTTM              float64 `json:"dilutedEPSTTM"`
	QuarterlyEarningsGrowthYOY float64 `json:"quarterlyEarningsGrowthYOY"`
	QuarterlyRevenueGrowthYOY  float64 `json:"quarterlyRevenueGrowthYOY"`
	AnalystTargetPrice         float64 `json:"analystTargetPrice"`
	TrailingPE                 float64 `json:"trailingPE"`
	ForwardPE                  float64 `json:"forwardPE"`
	PriceToSalesRatioTTM       float64 `json:"priceToSalesRatioTTM"`
	PriceToBookRatio           float64 `json:"priceToBookRatio"`
	EVToRevenue                float64 `json:"evToRevenue"`
	EVToEBITDA                 float64 `json:"evToEbitda"`
	Beta                       float64 `json:"beta"`
	High52Week                 float64 `json:"high52Week"`
	Low52Week                  float64 `json:"low52Week"`
	MovingAverage50Day         float64 `json:"movingAverage50Day"`
	MovingAverage200Day        float64 `json:"movingAverage200Day"`
	SharesOutstanding          float64 `json:"sharesOutstanding"`
	ForwardAnnualDividendRate  float64 `json:"forwardAnnualDividendRate"`
	ForwardAnnualDividendYield float64 `json:"forwardAnnualDividendYield"`
	PayoutRatio                float64 `json:"payoutRatio"`
	DividendDate               string  `json:"dividendDate"`
	ExDividendDate             string  `json:"exDividendDate"`
	LastSplitFactor            string  `json:"lastSplitFactor"`
	LastSplitDate              string  `json:"lastSplitDate"`
}

// StockData is the per-symbol record served by /api/stocks. Fields named in
// SyntheticFields were generated locally and are not provider data.
type StockData struct {
	Symbol          string   `json:"symbol"`
	CurrentPrice    float64  `json:"currentPrice"`
	Change          float64  `json:"change"`
	ChangePercent   float64  `json:"changePercent"`
	Volume          int64    `json:"volume"`
	PERatio         float64  `json:"peRatio"`
	MarketCap       string   `json:"marketCap"`
	Earnings        string   `json:"earnings"`
	BookValue       float64  `json:"bookValue"`
	DividendYield   float64  `json:"dividendYield"`
	Beta            float64  `json:"beta"`
	High52Week      float64  `json:"high52Week"`
	Low52Week       float64  `json:"low52Week"`
	ProfitMargin    float64  `json:"profitMargin"`
	ReturnOnEquity  float64  `json:"returnOnEquity"`
	PriceToBook     float64  `json:"priceToBook"`
	PriceToSales    float64  `json:"priceToSales"`
	LastUpdated     string   `json:"lastUpdated"`
	Source          string   `json:"source"`
	SyntheticFields []string `json:"syntheticFields,omitempty"`
}
