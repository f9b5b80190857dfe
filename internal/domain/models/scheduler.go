package models

// PriceWindow is a recommended low-price interval. Start precedes End.
type PriceWindow struct {
	Start             Timestamp `json:"start"`
	End               Timestamp `json:"end"`
	PredictedAvgPrice float64   `json:"predicted_avg_price"`
	SavingsPct        float64   `json:"savings_pct"`
	Confidence        float64   `json:"confidence" validate:"gte=0,lte=1"`
}

type CumulativeSavings struct {
	TotalUSD           float64 `json:"total_usd" validate:"gte=0"`
	VsNaivePct         float64 `json:"vs_naive_pct"`
	WorkloadsOptimized int     `json:"workloads_optimized" validate:"gte=0"`
}

type SchedulerResponse struct {
	CurrentPrice      float64           `json:"current_price"`
	Windows           []PriceWindow     `json:"windows" validate:"dive"`
	Recommendation    string            `json:"recommendation"`
	CumulativeSavings CumulativeSavings `json:"cumulative_savings"`
}
