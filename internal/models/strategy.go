package models

// Action is the recommendation verdict for a holding.
type Action string

const (
	ActionExit Action = "exit"
	ActionHold Action = "hold"
	ActionAdd  Action = "add"
)

// Recommendation is the outcome of scoring a holding.
type Recommendation struct {
	Symbol     string   `json:"symbol,omitempty"`
	Action     Action   `json:"action"`
	Reason     string   `json:"reason"`
	Confidence int      `json:"confidence"`
	Score      int      `json:"score"`
	Reasons    []string `json:"reasons"`
}

// Apply copies the verdict onto the holding's recommendation fields.
func (r Recommendation) Apply(h *Holding) {
	h.AIRecommendation = r.Action
	h.AIRecommendationReason = r.Reason
	h.AIConfidence = r.Confidence
}
