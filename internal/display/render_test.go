package display

import (
	"errors"
	"strings"
	"testing"
	"time"

	"OracleDash/internal/domain/models"
	"OracleDash/internal/services/analytics"
	"OracleDash/internal/services/causal"
	"OracleDash/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestRenderStatuses(t *testing.T) {
	now := time.Date(2025, 11, 1, 10, 30, 0, 0, time.UTC)
	out := Render([]usecase.Panel{
		{Name: usecase.PanelSignals, Status: usecase.StatusLoading},
		{Name: usecase.PanelGraph, Status: usecase.StatusError, Error: errors.New("connection refused").Error()},
		{Name: usecase.PanelLog, Status: usecase.StatusReady, Stale: true, Error: "status 503", UpdatedAt: &now,
			Data: &models.LearningLogResponse{Events: []models.LearningEvent{{Cycle: 3, Type: "edge_pruned", Description: "dropped weak link"}}}},
	}, 0)

	assert.Contains(t, out, "SIGNALS")
	assert.Contains(t, out, "loading...")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "stale")
	assert.Contains(t, out, "dropped weak link", "stale panels keep their data")
}

func TestRenderGraphAndScheduler(t *testing.T) {
	dg := causal.Diagram{
		Header: "v4 | 2 nodes, 1 edges",
		Edges:  []causal.StyledEdge{{From: "s1", To: "t1", Label: "0.90", Direction: models.DirectionPositive}},
		Report: causal.Report{DroppedEdges: []string{"e-1"}},
	}
	sched := &models.SchedulerResponse{CumulativeSavings: models.CumulativeSavings{TotalUSD: 12.5}}
	out := Render([]usecase.Panel{
		{Name: usecase.PanelGraph, Status: usecase.StatusReady, Data: dg},
		{Name: usecase.PanelScheduler, Status: usecase.StatusReady, Data: usecase.SchedulerView{SchedulerResponse: sched, Summary: analytics.SummarizeSavings(sched)}},
	}, 60)

	assert.Contains(t, out, "v4 | 2 nodes, 1 edges")
	assert.Contains(t, out, "0.90")
	assert.Contains(t, out, "1 links skipped")
	assert.Contains(t, out, "$12.50 saved")
}

func TestPredictionAwaitingFirstCycle(t *testing.T) {
	out := RenderPanel(usecase.Panel{
		Name:   usecase.PanelPrediction,
		Status: usecase.StatusReady,
		Data:   usecase.PredictionView{PredictionResponse: &models.PredictionResponse{PredictionID: models.AwaitingFirstCycle}, AwaitingFirstCycle: true},
	}, 50)
	assert.Contains(t, out, "awaiting first cycle")
}

func TestSparkline(t *testing.T) {
	line := sparkline([]analytics.CurveRow{{MAE: 0.5}, {MAE: 0.3}, {MAE: 0.1}})
	assert.Equal(t, "  MAE █▄▁\n", line)
	assert.Empty(t, sparkline(nil))
	assert.True(t, strings.HasPrefix(sparkline([]analytics.CurveRow{{MAE: 1}, {MAE: 1}}), "  MAE ▁▁"))
}
