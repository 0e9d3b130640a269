// Package strategy scores holdings into exit/hold/add recommendations
package strategy

import (
	"strings"

	"github.com/bobmcallan/folio/internal/models"
)

// Sector names that earn a sector-specific bonus
const (
	SectorIT        = "Information Technology"
	SectorFinancial = "Financial Sector"
	SectorPower     = "Power"
)

// maxReasons bounds the reasons joined into Recommendation.Reason
const maxReasons = 3

// Metrics are the inputs the scoring rules read. Missing values are zero.
type Metrics struct {
	Sector          string
	GainLossPercent float64
	PERatio         float64
	PriceToBook     float64
	DebtToEquity    float64
	EBITDAPercent   float64
	PATPercent      float64
	CFOToEBITDA     float64
	CFOToPAT        float64
	Stage2          bool
}

// MetricsFor extracts scoring inputs from a holding, defaulting missing
// fundamentals to zero and stage2 to false.
func MetricsFor(h models.Holding) Metrics {
	m := Metrics{
		Sector:          h.Sector,
		GainLossPercent: h.GainLossPercent,
		PERatio:         deref(h.PERatio),
		PriceToBook:     deref(h.PriceToBook),
		DebtToEquity:    deref(h.DebtToEquity),
		EBITDAPercent:   deref(h.EBITDAPercent),
		PATPercent:      deref(h.PATPercent),
		CFOToEBITDA:     deref(h.CFOToEBITDA),
		CFOToPAT:        deref(h.CFOToPAT),
	}
	if h.Stage2 != nil {
		m.Stage2 = *h.Stage2
	}
	return m
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// scorer accumulates a score and the reasons that moved it.
type scorer struct {
	score   int
	reasons []string
}

func (s *scorer) add(delta int, reason string) {
	s.score += delta
	if reason != "" {
		s.reasons = append(s.reasons, reason)
	}
}

// Recommend scores a holding. It is deterministic: identical metrics always
// produce an identical recommendation.
func Recommend(h models.Holding) models.Recommendation {
	rec := Score(MetricsFor(h))
	rec.Symbol = h.Symbol
	return rec
}

// Score applies the rule set in order and maps the total to an action.
func Score(m Metrics) models.Recommendation {
	var s scorer

	switch {
	case m.GainLossPercent > 50:
		s.add(-2, "High gains suggest overvaluation")
	case m.GainLossPercent > 20:
		s.add(-1, "Good gains, consider profit booking")
	case m.GainLossPercent < -30:
		s.add(-3, "Significant losses indicate fundamental issues")
	}

	switch {
	case m.PERatio > 30:
		s.add(-1, "High P/E ratio indicates overvaluation")
	case m.PERatio < 15 && m.PERatio > 0:
		s.add(1, "Attractive P/E ratio")
	}

	switch {
	case m.PriceToBook > 3:
		s.add(-1, "High P/B ratio")
	case m.PriceToBook < 1.5:
		s.add(1, "Reasonable P/B ratio")
	}

	switch {
	case m.DebtToEquity > 1:
		s.add(-2, "High debt levels are concerning")
	case m.DebtToEquity < 0.3:
		s.add(1, "Low debt levels indicate financial stability")
	}

	switch {
	case m.EBITDAPercent > 20:
		s.add(2, "Strong EBITDA margins")
	case m.EBITDAPercent < 10:
		s.add(-1, "Weak EBITDA margins")
	}

	switch {
	case m.PATPercent > 15:
		s.add(2, "Excellent profit margins")
	case m.PATPercent < 5:
		s.add(-1, "Low profit margins")
	}

	switch {
	case m.CFOToEBITDA > 0.8:
		s.add(1, "Strong cash flow conversion")
	case m.CFOToEBITDA < 0.5:
		s.add(-1, "Poor cash flow conversion")
	}

	if m.CFOToPAT > 1.2 {
		s.add(1, "Cash flow exceeds reported profits")
	}

	if m.Stage2 {
		s.add(2, "Stock is in Stage-2 uptrend")
	} else {
		s.add(-1, "Stock not in favorable Stage-2 pattern")
	}

	switch m.Sector {
	case SectorIT:
		if m.PERatio < 25 {
			s.add(1, "")
		}
	case SectorFinancial:
		if m.PriceToBook < 2 {
			s.add(1, "")
		}
	case SectorPower:
		if m.DebtToEquity < 0.5 {
			s.add(1, "")
		}
	}

	action, confidence := classify(s.score)
	top := s.reasons
	if len(top) > maxReasons {
		top = top[:maxReasons]
	}

	reasons := s.reasons
	if reasons == nil {
		reasons = []string{}
	}
	return models.Recommendation{
		Action:     action,
		Reason:     strings.Join(top, "; "),
		Confidence: confidence,
		Score:      s.score,
		Reasons:    reasons,
	}
}

// classify maps a score to an action and confidence percentage.
func classify(score int) (models.Action, int) {
	switch {
	case score <= -4:
		return models.ActionExit, 90
	case score <= -2:
		return models.ActionExit, 75
	case score <= 0:
		return models.ActionHold, 60
	case score <= 2:
		return models.ActionHold, 70
	case score <= 4:
		return models.ActionAdd, 75
	default:
		return models.ActionAdd, 85
	}
}
