package portfolio

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/folio/internal/models"
)

// sectorPalette cycles through tailwind-500 shades
var sectorPalette = []string{
	"3b82f6", // blue
	"10b981", // emerald
	"f59e0b", // amber
	"ef4444", // red
	"8b5cf6", // violet
	"06b6d4", // cyan
	"84cc16", // lime
	"ec4899", // pink
}

// RenderSectorChart renders a PNG pie chart of current value by sector.
// Returns raw PNG bytes.
func RenderSectorChart(sectors []models.SectorSummary) ([]byte, error) {
	values := make([]chart.Value, 0, len(sectors))
	for i, s := range sectors {
		if s.CurrentValue <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.0f%%", s.Sector, s.PortfolioPercent),
			Value: s.CurrentValue,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex(sectorPalette[i%len(sectorPalette)]),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
			},
		})
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no sector with positive value")
	}

	pie := chart.PieChart{
		Title:  "Sector Allocation",
		Width:  600,
		Height: 600,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
