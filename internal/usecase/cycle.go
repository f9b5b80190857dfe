package usecase

import (
	"context"

	"OracleDash/internal/domain/models"
	applogger "OracleDash/pkg/logger"
)

// CycleOutcome is the backend's cycle result plus the refresh that followed it.
type CycleOutcome struct {
	Result  *models.CycleRunResponse `json:"result"`
	Refresh RefreshSummary           `json:"refresh"`
}

// RunCycle asks the backend to run one prediction cycle. When the caller
// supplies only an actual price, the cached latest prediction is named as
// the one to evaluate. On success every resource is refreshed with fresh
// fetches and peers are notified; on failure no channel state is touched.
func (d *Dashboard) RunCycle(ctx context.Context, req models.CycleRunRequest) (*CycleOutcome, error) {
	if req.ActualPrice != nil && req.PreviousPredictionID == nil {
		if st := d.prediction.Snapshot(); st.HasValue && st.Value.Evaluated() {
			id := st.Value.PredictionID
			req.PreviousPredictionID = &id
		}
	}

	res, err := d.api.RunCycle(ctx, req)
	d.metrics.RecordCycleRun(err == nil)
	if err != nil {
		d.log.Warn("cycle: run failed", applogger.Error(err))
		return nil, err
	}
	d.log.Info("cycle: completed",
		applogger.Int("cycle", res.Cycle),
		applogger.String("prediction_id", res.PredictionID),
	)

	out := &CycleOutcome{Result: res, Refresh: d.Refresh(ctx)}

	if d.bus != nil {
		ev := models.CycleEvent{Cycle: res.Cycle, PredictionID: res.PredictionID, At: models.NewTimestamp(d.now())}
		if err := d.bus.Publish(ctx, ev); err != nil {
			d.log.Warn("notify: publish failed", applogger.String("backend", d.bus.Backend()), applogger.Error(err))
		} else {
			d.metrics.RecordBroadcast(d.bus.Backend())
		}
	}
	return out, nil
}

// onPeerCycle refreshes after another replica ran a cycle.
func (d *Dashboard) onPeerCycle(ctx context.Context, ev models.CycleEvent) {
	d.log.Info("notify: peer cycle",
		applogger.String("origin", ev.Origin),
		applogger.Int("cycle", ev.Cycle),
	)
	s := d.Refresh(ctx)
	if !s.OK {
		d.log.Warn("notify: refresh after peer cycle incomplete", applogger.Any("failed", s.Failed))
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string, string, float64) {}
func (nopMetrics) RecordSubscribers(string, int)       {}
func (nopMetrics) RecordDroppedEdges(int)              {}
func (nopMetrics) RecordCycleRun(bool)                 {}
func (nopMetrics) RecordBroadcast(string)              {}
