package models

// AwaitingFirstCycle is the prediction id the backend reports before any cycle ran.
const AwaitingFirstCycle = "awaiting_first_cycle"

type HorizonPrediction struct {
	Horizon        string  `json:"horizon" validate:"required"`
	PredictedPrice float64 `json:"predicted_price"`
	Direction      string  `json:"direction" validate:"oneof=up down flat"`
	Confidence     float64 `json:"confidence" validate:"gte=0,lte=1"`
}

type ContributingFactor struct {
	Factor       string  `json:"factor" validate:"required"`
	Contribution float64 `json:"contribution"`
	Direction    string  `json:"direction" validate:"oneof=bullish bearish neutral"`
}

// PredictionResponse is the latest forecast.
type PredictionResponse struct {
	PredictionID        string               `json:"prediction_id" validate:"required"`
	Cycle               int                  `json:"cycle" validate:"gte=0"`
	Timestamp           Timestamp            `json:"timestamp"`
	Target              string               `json:"target"`
	CurrentPrice        float64              `json:"current_price"`
	Predictions         []HorizonPrediction  `json:"predictions" validate:"dive"`
	CausalExplanation   string               `json:"causal_explanation"`
	ContributingFactors []ContributingFactor `json:"contributing_factors" validate:"dive"`
}

// Evaluated reports whether a cycle has produced this prediction.
func (p *PredictionResponse) Evaluated() bool {
	return p != nil && p.PredictionID != "" && p.PredictionID != AwaitingFirstCycle
}

// PredictionHistoryItem back-fills actuals once a later cycle evaluates it.
type PredictionHistoryItem struct {
	PredictionID     string    `json:"prediction_id" validate:"required"`
	Cycle            int       `json:"cycle" validate:"gte=0"`
	Timestamp        Timestamp `json:"timestamp"`
	PredictedPrice1h float64   `json:"predicted_price_1h"`
	ActualPrice1h    *float64  `json:"actual_price_1h"`
	Error1h          *float64  `json:"error_1h"`
	DirectionCorrect *bool     `json:"direction_correct"`
}

// PredictionHistoryResponse is ordered most recent first.
type PredictionHistoryResponse struct {
	Predictions []PredictionHistoryItem `json:"predictions" validate:"dive"`
}
