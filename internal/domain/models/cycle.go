package models

// CycleRunRequest asks the backend for a new cycle and, when both fields are
// set, an evaluation of the previous prediction against the actual price.
type CycleRunRequest struct {
	PreviousPredictionID *string  `json:"previous_prediction_id,omitempty"`
	ActualPrice          *float64 `json:"actual_price,omitempty" validate:"omitempty,gte=0"`
}

type CycleEvaluation struct {
	PreviousPredictionID string   `json:"previous_prediction_id"`
	AbsoluteError        *float64 `json:"absolute_error"`
	DirectionCorrect     *bool    `json:"direction_correct"`
}

type CycleLearning struct {
	EventsCount      int   `json:"events_count"`
	GraphVersion     *int  `json:"graph_version"`
	DirectionCorrect *bool `json:"direction_correct"`
}

type CycleRunResponse struct {
	Cycle            int              `json:"cycle" validate:"gte=1"`
	PredictionID     string           `json:"prediction_id" validate:"required"`
	Timestamp        Timestamp        `json:"timestamp"`
	SignalCount      int              `json:"signal_count"`
	PredictedPrice1h *float64         `json:"predicted_price_1h"`
	Evaluation       *CycleEvaluation `json:"evaluation,omitempty"`
	Learning         *CycleLearning   `json:"learning,omitempty"`
}

// CycleEvent announces a completed cycle to peer dashboards.
type CycleEvent struct {
	Origin       string    `json:"origin"`
	Cycle        int       `json:"cycle"`
	PredictionID string    `json:"prediction_id"`
	At           Timestamp `json:"at"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}
