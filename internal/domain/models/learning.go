package models

type LastImprovement struct {
	Cycle    int     `json:"cycle"`
	Change   string  `json:"change"`
	MAEDelta float64 `json:"mae_delta"`
}

// LearningMetricsResponse carries per-cycle histories indexed from cycle 1.
type LearningMetricsResponse struct {
	TotalCycles                int              `json:"total_cycles" validate:"gte=0"`
	OverallMAE                 float64          `json:"overall_mae" validate:"gte=0"`
	DirectionalAccuracy        float64          `json:"directional_accuracy" validate:"gte=0,lte=1"`
	MAEHistory                 []float64        `json:"mae_history"`
	DirectionalAccuracyHistory []float64        `json:"directional_accuracy_history"`
	GraphVersions              int              `json:"graph_versions" validate:"gte=0"`
	LastImprovement            *LastImprovement `json:"last_improvement"`
}

type LearningEvent struct {
	Cycle       int       `json:"cycle" validate:"gte=0"`
	Timestamp   Timestamp `json:"timestamp"`
	Type        string    `json:"type" validate:"required"`
	Description string    `json:"description"`
	MAEBefore   *float64  `json:"mae_before"`
	MAEAfter    *float64  `json:"mae_after"`
}

type LearningLogResponse struct {
	Events []LearningEvent `json:"events" validate:"dive"`
}
