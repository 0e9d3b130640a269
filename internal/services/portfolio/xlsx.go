package portfolio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/bobmcallan/folio/internal/models"
)

const (
	holdingsSheet = "Holdings"
	sectorsSheet  = "Sectors"
)

var holdingColumns = []string{
	"ID", "Name", "Symbol", "Sector", "Exchange", "Quantity", "Purchase Price", "Current Price",
	"Investment", "Present Value", "Gain/Loss", "Gain/Loss %", "Portfolio %", "P/E", "Earnings",
	"Recommendation", "Confidence", "Reason", "Quote Source",
}

var sectorColumns = []string{
	"Sector", "Stocks", "Investment", "Current Value", "Gain/Loss", "Gain/Loss %", "Portfolio %",
	"Ideal Allocation", "Allocation Status",
}

// ErrNoHoldings is returned when an imported workbook has no usable rows
var ErrNoHoldings = errors.New("no holdings found in workbook")

// ExportXLSX writes the portfolio and its sector summaries as a workbook.
func ExportXLSX(p models.Portfolio, sectors []models.SectorSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", holdingsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sectorsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#cfe2f3"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	if err := writeRow(f, holdingsSheet, 1, toAny(holdingColumns)); err != nil {
		return nil, err
	}
	for i, h := range p.Holdings {
		pe := 0.0
		if h.PERatio != nil {
			pe = *h.PERatio
		}
		row := []any{
			h.ID, h.Name, h.Symbol, h.Sector, h.Exchange, h.Quantity, h.PurchasePrice, h.CurrentPrice,
			h.Investment, h.PresentValue, h.GainLoss, h.GainLossPercent, h.PortfolioPercent, pe, h.Earnings,
			string(h.AIRecommendation), h.AIConfidence, h.AIRecommendationReason, h.QuoteSource,
		}
		if err := writeRow(f, holdingsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if err := writeRow(f, sectorsSheet, 1, toAny(sectorColumns)); err != nil {
		return nil, err
	}
	for i, s := range sectors {
		ideal := ""
		if s.IdealAllocation != nil {
			ideal = s.IdealAllocation.String()
		}
		row := []any{s.Sector, s.TotalStocks, s.TotalInvestment, s.CurrentValue, s.GainLoss, s.GainLossPercent, s.PortfolioPercent, ideal, string(s.AllocationStatus)}
		if err := writeRow(f, sectorsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	for sheet, cols := range map[string]int{holdingsSheet: len(holdingColumns), sectorsSheet: len(sectorColumns)} {
		last, _ := excelize.CoordinatesToCellName(cols, 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("apply style: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// ImportXLSX reads holdings from the Holdings sheet, or the first sheet when
// there is none. Columns are matched by header name, case-insensitively;
// Name, Symbol, Quantity and Purchase Price are required.
func ImportXLSX(r io.Reader, now time.Time) ([]models.Holding, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := holdingsSheet
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, ErrNoHoldings
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, req := range []string{"name", "symbol", "quantity", "purchase price"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("missing column %q", req)
		}
	}

	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var holdings []models.Holding
	for n, row := range rows[1:] {
		symbol := get(row, "symbol")
		if symbol == "" {
			continue
		}
		qty, err := parseNonNegative(get(row, "quantity"))
		if err != nil {
			return nil, fmt.Errorf("row %d quantity: %w", n+2, err)
		}
		purchase, err := parseNonNegative(get(row, "purchase price"))
		if err != nil {
			return nil, fmt.Errorf("row %d purchase price: %w", n+2, err)
		}
		current, _ := parseNumber(get(row, "current price"))
		if current <= 0 {
			current = purchase
		}

		h := models.Holding{
			ID:            get(row, "id"),
			Name:          get(row, "name"),
			Symbol:        symbol,
			Sector:        get(row, "sector"),
			Exchange:      get(row, "exchange"),
			Quantity:      qty,
			PurchasePrice: purchase,
			Earnings:      get(row, "earnings"),
			LastUpdated:   now,
		}
		if h.ID == "" {
			h.ID = uuid.NewString()
		}
		if h.Sector == "" {
			h.Sector = "Others"
		}
		if h.Exchange == "" {
			h.Exchange = "NSE"
		}
		if pe, err := parseNumber(get(row, "p/e")); err == nil && pe > 0 {
			h.PERatio = &pe
		}
		h.Reprice(current)
		holdings = append(holdings, h)
	}

	if len(holdings) == 0 {
		return nil, ErrNoHoldings
	}
	return holdings, nil
}

var (
	errEmptyValue  = errors.New("empty value")
	errNotFinite   = errors.New("value must be a finite number")
	errNegativeVal = errors.New("value must not be negative")
)

// parseNumber accepts finite numbers with optional thousands separators and
// a leading rupee sign.
func parseNumber(s string) (float64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "₹")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, errEmptyValue
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

func parseNonNegative(s string) (float64, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errNegativeVal
	}
	return v, nil
}
