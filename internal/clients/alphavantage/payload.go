package alphavantage

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// parseFloat treats empty, "None", non-finite and malformed values as zero.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" || s == "-" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return int64(parseFloat(s))
	}
	return v
}

func stringField(body map[string]json.RawMessage, key string) string {
	raw, ok := body[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

// parseQuote maps a "Global Quote" object. The quote keeps the caller's
// symbol, not the provider's.
func parseQuote(symbol string, raw map[string]string, now time.Time) *models.Quote {
	lastUpdated := raw["07. latest trading day"]
	if lastUpdated == "" {
		lastUpdated = now.UTC().Format(time.RFC3339)
	}
	return &models.Quote{
		Symbol:        symbol,
		Price:         parseFloat(raw["05. price"]),
		Change:        parseFloat(raw["09. change"]),
		ChangePercent: parseFloat(strings.TrimSuffix(raw["10. change percent"], "%")),
		Volume:        parseInt(raw["06. volume"]),
		High52Week:    parseFloat(raw["03. high"]),
		Low52Week:     parseFloat(raw["04. low"]),
		LastUpdated:   lastUpdated,
		FetchedAt:     now,
		Source:        models.SourceAlphaVantage,
	}
}

func parseOverview(symbol string, raw map[string]string) *models.Overview {
	marketCap := raw["MarketCapitalization"]
	if marketCap == "" {
		marketCap = "0"
	}
	return &models.Overview{
		Symbol:                     symbol,
		Name:                       raw["Name"],
		MarketCap:                  marketCap,
		PERatio:                    parseFloat(raw["PERatio"]),
		PEGRatio:                   parseFloat(raw["PEGRatio"]),
		BookValue:                  parseFloat(raw["BookValue"]),
		DividendYield:              parseFloat(raw["DividendYield"]),
		EPS:                        parseFloat(raw["EPS"]),
		RevenuePerShareTTM:         parseFloat(raw["RevenuePerShareTTM"]),
		ProfitMargin:               parseFloat(raw["ProfitMargin"]),
		OperatingMarginTTM:         parseFloat(raw["OperatingMarginTTM"]),
		ReturnOnAssetsTTM:          parseFloat(raw["ReturnOnAssetsTTM"]),
		ReturnOnEquityTTM:          parseFloat(raw["ReturnOnEquityTTM"]),
		RevenueTTM:                 parseFloat(raw["RevenueTTM"]),
		GrossProfitTTM:             parseFloat(raw["GrossProfitTTM"]),
		DilutedEPSTTM:              parseFloat(raw["DilutedEPSTTM"]),
		QuarterlyEarningsGrowthYOY: parseFloat(raw["QuarterlyEarningsGrowthYOY"]),
		QuarterlyRevenueGrowthYOY:  parseFloat(raw["QuarterlyRevenueGrowthYOY"]),
		AnalystTargetPrice:         parseFloat(raw["AnalystTargetPrice"]),
		TrailingPE:                 parseFloat(raw["TrailingPE"]),
		ForwardPE:                  parseFloat(raw["ForwardPE"]),
		PriceToSalesRatioTTM:       parseFloat(raw["PriceToSalesRatioTTM"]),
		PriceToBookRatio:           parseFloat(raw["PriceToBookRatio"]),
		EVToRevenue:                parseFloat(raw["EVToRevenue"]),
		EVToEBITDA:                 parseFloat(raw["EVToEBITDA"]),
		Beta:                       parseFloat(raw["Beta"]),
		High52Week:                 parseFloat(raw["52WeekHigh"]),
		Low52Week:                  parseFloat(raw["52WeekLow"]),
		MovingAverage50Day:         parseFloat(raw["50DayMovingAverage"]),
		MovingAverage200Day:        parseFloat(raw["200DayMovingAverage"]),
		SharesOutstanding:          parseFloat(raw["SharesOutstanding"]),
		ForwardAnnualDividendRate:  parseFloat(raw["ForwardAnnualDividendRate"]),
		ForwardAnnualDividendYield: parseFloat(raw["ForwardAnnualDividendYield"]),
		PayoutRatio:                parseFloat(raw["PayoutRatio"]),
		DividendDate:               raw["DividendDate"],
		ExDividendDate:             raw["ExDividendDate"],
		LastSplitFactor:            raw["LastSplitFactor"],
		LastSplitDate:              raw["LastSplitDate"],
	}
}
