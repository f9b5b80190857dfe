package models

// Node roles in the causal graph.
const (
	NodeSignal  = "signal"
	NodeDerived = "derived"
	NodeTarget  = "target"
)

// Edge directions.
const (
	DirectionPositive = "positive"
	DirectionNegative = "negative"
)

type CausalNode struct {
	ID     string `json:"id" validate:"required"`
	Label  string `json:"label"`
	Type   string `json:"type" validate:"oneof=signal derived target"`
	Source string `json:"source"`
}

type CausalEdge struct {
	From        string    `json:"from" validate:"required"`
	To          string    `json:"to" validate:"required"`
	Weight      float64   `json:"weight" validate:"gte=0,lte=1"`
	Confidence  float64   `json:"confidence" validate:"gte=0,lte=1"`
	Direction   string    `json:"direction" validate:"oneof=positive negative"`
	LastUpdated Timestamp `json:"last_updated"`
}

type GraphMetadata struct {
	TotalNodes  int       `json:"total_nodes" validate:"gte=0"`
	TotalEdges  int       `json:"total_edges" validate:"gte=0"`
	LastUpdated Timestamp `json:"last_updated"`
	Version     int       `json:"version" validate:"gte=0"`
}

type CausalGraphResponse struct {
	Nodes    []CausalNode  `json:"nodes" validate:"dive"`
	Edges    []CausalEdge  `json:"edges" validate:"dive"`
	Metadata GraphMetadata `json:"metadata"`
}

type FactorDetail struct {
	ID               string    `json:"id" validate:"required"`
	CurrentWeight    float64   `json:"current_weight"`
	WeightHistory    []float64 `json:"weight_history"`
	ContributionRank int       `json:"contribution_rank" validate:"gte=0"`
	Direction        string    `json:"direction"`
}

type FactorsResponse struct {
	Factors []FactorDetail `json:"factors" validate:"dive"`
}
