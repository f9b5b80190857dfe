package repository

import (
	"context"

	"OracleDash/internal/domain/models"
)

// OracleAPI is the forecasting backend as seen by the dashboard.
type OracleAPI interface {
	LatestSignals(ctx context.Context) (*models.SignalsLatestResponse, error)
	SignalHistory(ctx context.Context, req models.SignalHistoryRequest) (*models.SignalHistoryResponse, error)
	Sources(ctx context.Context) (*models.SourcesResponse, error)
	LatestPrediction(ctx context.Context) (*models.PredictionResponse, error)
	PredictionHistory(ctx context.Context, limit int) (*models.PredictionHistoryResponse, error)
	CausalGraph(ctx context.Context) (*models.CausalGraphResponse, error)
	Factors(ctx context.Context) (*models.FactorsResponse, error)
	LearningMetrics(ctx context.Context) (*models.LearningMetricsResponse, error)
	LearningLog(ctx context.Context, limit int) (*models.LearningLogResponse, error)
	SchedulerWindows(ctx context.Context) (*models.SchedulerResponse, error)
	Health(ctx context.Context) (*models.HealthResponse, error)
	RunCycle(ctx context.Context, req models.CycleRunRequest) (*models.CycleRunResponse, error)
}

type Metrics interface {
	RecordFetch(channel, outcome string, seconds float64)
	RecordSubscribers(channel string, n int)
	RecordDroppedEdges(n int)
	RecordCycleRun(ok bool)
	RecordBroadcast(backend string)
}

// Broadcaster fans completed-cycle events out to peer dashboards.
type Broadcaster interface {
	Publish(ctx context.Context, ev models.CycleEvent) error
	// Subscribe delivers peer events until ctx is done. Events published by
	// this instance are filtered out.
	Subscribe(ctx context.Context, handle func(models.CycleEvent)) error
	Backend() string
	Close() error
}
