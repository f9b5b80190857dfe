package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"OracleDash/internal/domain/models"
	"OracleDash/internal/services/causal"
	xhttp "OracleDash/pkg/http"
	applogger "OracleDash/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu         sync.Mutex
	calls      map[string]int
	prediction *models.PredictionResponse
	graph      *models.CausalGraphResponse
	graphErr   error
	signalsErr error
	cycleErr   error
	cycleReqs  []models.CycleRunRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:      make(map[string]int),
		prediction: &models.PredictionResponse{PredictionID: models.AwaitingFirstCycle, CurrentPrice: 0.91},
		graph: &models.CausalGraphResponse{
			Nodes: []models.CausalNode{
				{ID: "s1", Label: "Spot", Type: models.NodeSignal},
				{ID: "t1", Label: "Price", Type: models.NodeTarget},
			},
			Edges: []models.CausalEdge{
				{From: "s1", To: "t1", Weight: 0.9, Direction: models.DirectionPositive},
				{From: "ghost", To: "t1", Weight: 0.4, Direction: models.DirectionNegative},
			},
			Metadata: models.GraphMetadata{TotalNodes: 2, TotalEdges: 2, Version: 3},
		},
	}
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) set(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

func (f *fakeAPI) LatestSignals(context.Context) (*models.SignalsLatestResponse, error) {
	f.hit("signals")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signalsErr != nil {
		return nil, f.signalsErr
	}
	return &models.SignalsLatestResponse{Signals: []models.Signal{
		{Source: models.SourceNews, Name: "sentiment", Value: 0.2},
		{Source: models.SourceAWSSpot, Name: "p3.2xlarge", Value: 0.91},
	}}, nil
}

func (f *fakeAPI) SignalHistory(_ context.Context, req models.SignalHistoryRequest) (*models.SignalHistoryResponse, error) {
	f.hit("signal_history")
	return &models.SignalHistoryResponse{
		Source:     models.SignalSource(req.Source),
		Name:       req.Name,
		DataPoints: []models.DataPoint{{Value: 1}, {Value: 2}},
	}, nil
}

func (f *fakeAPI) Sources(context.Context) (*models.SourcesResponse, error) {
	f.hit("sources")
	return &models.SourcesResponse{Sources: []models.SourceStatus{{ID: "weather", Status: "active"}, {ID: "aws_spot", Status: "error"}}}, nil
}

func (f *fakeAPI) LatestPrediction(context.Context) (*models.PredictionResponse, error) {
	f.hit("prediction")
	f.mu.Lock()
	defer f.mu.Unlock()
	p := *f.prediction
	return &p, nil
}

func (f *fakeAPI) PredictionHistory(_ context.Context, limit int) (*models.PredictionHistoryResponse, error) {
	f.hit("timeline")
	return &models.PredictionHistoryResponse{Predictions: []models.PredictionHistoryItem{
		{PredictionID: "p2", Cycle: 2, PredictedPrice1h: 0.95},
		{PredictionID: "p1", Cycle: 1, PredictedPrice1h: 0.9},
	}}, nil
}

func (f *fakeAPI) CausalGraph(context.Context) (*models.CausalGraphResponse, error) {
	f.hit("graph")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.graphErr != nil {
		return nil, f.graphErr
	}
	return f.graph, nil
}

func (f *fakeAPI) Factors(context.Context) (*models.FactorsResponse, error) {
	f.hit("factors")
	return &models.FactorsResponse{Factors: []models.FactorDetail{{ID: "b", ContributionRank: 2}, {ID: "a", ContributionRank: 1}}}, nil
}

func (f *fakeAPI) LearningMetrics(context.Context) (*models.LearningMetricsResponse, error) {
	f.hit("learning")
	return &models.LearningMetricsResponse{TotalCycles: 3, MAEHistory: []float64{0.5, 0.4, 0.3}, DirectionalAccuracyHistory: []float64{0.5, 0.6}}, nil
}

func (f *fakeAPI) LearningLog(_ context.Context, limit int) (*models.LearningLogResponse, error) {
	f.hit("log")
	return &models.LearningLogResponse{Events: []models.LearningEvent{}}, nil
}

func (f *fakeAPI) SchedulerWindows(context.Context) (*models.SchedulerResponse, error) {
	f.hit("scheduler")
	return &models.SchedulerResponse{CurrentPrice: 0.9, Windows: []models.PriceWindow{{SavingsPct: 5}}}, nil
}

func (f *fakeAPI) Health(context.Context) (*models.HealthResponse, error) {
	return &models.HealthResponse{Status: "ok", Redis: "connected"}, nil
}

func (f *fakeAPI) RunCycle(_ context.Context, req models.CycleRunRequest) (*models.CycleRunResponse, error) {
	f.hit("cycle")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycleReqs = append(f.cycleReqs, req)
	if f.cycleErr != nil {
		return nil, f.cycleErr
	}
	return &models.CycleRunResponse{Cycle: 10, PredictionID: "pred_10"}, nil
}

type fakeMetrics struct {
	mu        sync.Mutex
	dropped   int
	cycles    []bool
	broadcast []string
}

func (m *fakeMetrics) RecordFetch(string, string, float64) {}
func (m *fakeMetrics) RecordSubscribers(string, int)       {}
func (m *fakeMetrics) RecordDroppedEdges(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped += n
}
func (m *fakeMetrics) RecordCycleRun(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, ok)
}
func (m *fakeMetrics) RecordBroadcast(backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcast = append(m.broadcast, backend)
}

type fakeBus struct {
	mu        sync.Mutex
	published []models.CycleEvent
	handler   func(models.CycleEvent)
	ready     chan struct{}
}

func newFakeBus() *fakeBus { return &fakeBus{ready: make(chan struct{})} }

func (b *fakeBus) Publish(_ context.Context, ev models.CycleEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, ev)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, handle func(models.CycleEvent)) error {
	b.mu.Lock()
	b.handler = handle
	b.mu.Unlock()
	close(b.ready)
	<-ctx.Done()
	return nil
}

func (b *fakeBus) Backend() string { return "fake" }
func (b *fakeBus) Close() error    { return nil }

func newTestDashboard(api *fakeAPI, m *fakeMetrics, bus *fakeBus) *Dashboard {
	set := DefaultSettings()
	set.Signals, set.Predictions, set.Causal = time.Hour, time.Hour, time.Hour
	set.Learning, set.Scheduler, set.Sources = time.Hour, time.Hour, time.Hour
	return NewDashboard(api, m, bus, nil, set)
}

func TestPanelsLoadThenReady(t *testing.T) {
	d := newTestDashboard(newFakeAPI(), &fakeMetrics{}, nil)

	for _, p := range d.Panels() {
		assert.Equal(t, StatusLoading, p.Status, p.Name)
		assert.Nil(t, p.Data)
	}

	s := d.Revalidate(context.Background())
	assert.True(t, s.OK)

	p, err := d.Panel(PanelSignals)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, p.Status)
	assert.False(t, p.Stale)
	require.NotNil(t, p.UpdatedAt)
	view := p.Data.(SignalsView)
	assert.Equal(t, 2, view.Count)
	assert.Equal(t, models.SourceAWSSpot, view.Groups[0].Source)

	p, _ = d.Panel(PanelPrediction)
	assert.True(t, p.Data.(PredictionView).AwaitingFirstCycle)

	p, _ = d.Panel(PanelTimeline)
	tv := p.Data.(TimelineView)
	assert.Equal(t, 1, tv.Rows[0].Cycle)
	assert.Equal(t, 0.91, tv.Chart.References[0].Y)

	p, _ = d.Panel(PanelLearning)
	lv := p.Data.(LearningView)
	assert.Len(t, lv.Curve, 2)
	assert.NotEmpty(t, lv.Mismatch)

	p, _ = d.Panel(PanelFactors)
	assert.Equal(t, "a", p.Data.([]models.FactorDetail)[0].ID)

	p, _ = d.Panel(PanelSources)
	assert.Equal(t, "aws_spot", p.Data.([]models.SourceStatus)[0].ID)
}

func TestPanelStaleAfterFailure(t *testing.T) {
	api := newFakeAPI()
	d := newTestDashboard(api, &fakeMetrics{}, nil)
	ctx := context.Background()
	d.Revalidate(ctx)

	api.set(func() {
		api.signalsErr = &xhttp.FetchError{Kind: xhttp.KindStatus, Method: "GET", URL: "/signals/latest", Status: 503, StatusText: "Service Unavailable"}
	})
	s := d.Revalidate(ctx)
	assert.False(t, s.OK)
	assert.Contains(t, s.Failed, PanelSignals)

	p, _ := d.Panel(PanelSignals)
	assert.Equal(t, StatusReady, p.Status)
	assert.True(t, p.Stale)
	assert.Equal(t, "status", p.ErrorKind)
	assert.NotNil(t, p.Data, "last good data is kept")
}

func TestPanelErrorWithoutData(t *testing.T) {
	api := newFakeAPI()
	api.graphErr = errors.New("connection refused")
	d := newTestDashboard(api, &fakeMetrics{}, nil)
	d.Revalidate(context.Background())

	p, _ := d.Panel(PanelGraph)
	assert.Equal(t, StatusError, p.Status)
	assert.False(t, p.Stale)
	assert.Nil(t, p.Data)
	assert.Equal(t, "unknown", p.ErrorKind)
}

func TestGraphDiagramBuiltOncePerFetch(t *testing.T) {
	m := &fakeMetrics{}
	d := newTestDashboard(newFakeAPI(), m, nil)
	ctx := context.Background()
	d.Revalidate(ctx)

	p, _ := d.Panel(PanelGraph)
	_, _ = d.Panel(PanelGraph)
	assert.Equal(t, 1, m.dropped, "same seq must not rebuild")

	dg := p.Data.(causal.Diagram)
	assert.Equal(t, "v3 | 2 nodes, 2 edges", dg.Header)
	assert.Equal(t, []string{"e-1"}, dg.Report.DroppedEdges)
	require.Len(t, dg.Edges, 1)

	d.Refresh(ctx)
	_, _ = d.Panel(PanelGraph)
	assert.Equal(t, 2, m.dropped, "a new fetch is laid out again")
}

func TestGraphDiagramKeptAcrossFailedFetch(t *testing.T) {
	api := newFakeAPI()
	m := &fakeMetrics{}
	d := newTestDashboard(api, m, nil)
	ctx := context.Background()
	d.Revalidate(ctx)
	_, _ = d.Panel(PanelGraph)
	require.Equal(t, 1, m.dropped)

	api.set(func() { api.graphErr = errors.New("connection refused") })
	d.Refresh(ctx)

	p, err := d.Panel(PanelGraph)
	require.NoError(t, err)
	assert.True(t, p.Stale)
	assert.Equal(t, uint64(2), p.Seq)
	assert.Equal(t, "v3 | 2 nodes, 2 edges", p.Data.(causal.Diagram).Header)
	assert.Equal(t, 1, m.dropped, "stale value is not laid out again")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRepeatedFetchFailuresSummarizedOnStop(t *testing.T) {
	api := newFakeAPI()
	api.set(func() { api.graphErr = errors.New("connection refused") })
	var out syncBuffer
	set := DefaultSettings()
	set.Signals, set.Predictions, set.Causal = time.Hour, time.Hour, time.Hour
	set.Learning, set.Scheduler, set.Sources = time.Hour, time.Hour, time.Hour
	set.FailureSummary = time.Hour
	d := NewDashboard(api, nil, nil, applogger.NewWriter(&out), set)
	ctx := context.Background()

	d.Refresh(ctx)
	d.Refresh(ctx)
	d.Refresh(ctx)
	assert.Equal(t, 1, strings.Count(out.String(), `"message":"poll: fetch failed"`))

	d.Start(ctx)
	d.Stop()
	assert.Contains(t, out.String(), `"message":"poll: fetch failed (repeated)"`)
}

func TestUnknownPanel(t *testing.T) {
	d := newTestDashboard(newFakeAPI(), nil, nil)
	_, err := d.Panel("weather")
	assert.True(t, IsUnknownPanel(err))
}

func TestRunCycleNamesCachedPrediction(t *testing.T) {
	api := newFakeAPI()
	api.prediction = &models.PredictionResponse{PredictionID: "pred_9", Cycle: 9, CurrentPrice: 0.9}
	m := &fakeMetrics{}
	bus := newFakeBus()
	d := newTestDashboard(api, m, bus)
	ctx := context.Background()
	d.Revalidate(ctx)
	before := api.count("graph")

	price := 0.93
	out, err := d.RunCycle(ctx, models.CycleRunRequest{ActualPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, 10, out.Result.Cycle)
	assert.True(t, out.Refresh.OK)

	require.Len(t, api.cycleReqs, 1)
	require.NotNil(t, api.cycleReqs[0].PreviousPredictionID)
	assert.Equal(t, "pred_9", *api.cycleReqs[0].PreviousPredictionID)

	assert.Equal(t, before+1, api.count("graph"), "every channel refreshed")
	assert.Equal(t, []bool{true}, m.cycles)
	assert.Equal(t, []string{"fake"}, m.broadcast)
	require.Len(t, bus.published, 1)
	assert.Equal(t, "pred_10", bus.published[0].PredictionID)
}

func TestRunCycleSkipsAwaitingFirstCycle(t *testing.T) {
	api := newFakeAPI()
	d := newTestDashboard(api, nil, nil)
	ctx := context.Background()
	d.Revalidate(ctx)

	price := 0.93
	_, err := d.RunCycle(ctx, models.CycleRunRequest{ActualPrice: &price})
	require.NoError(t, err)
	assert.Nil(t, api.cycleReqs[0].PreviousPredictionID)
}

func TestRunCycleKeepsExplicitPrediction(t *testing.T) {
	api := newFakeAPI()
	api.prediction = &models.PredictionResponse{PredictionID: "pred_9"}
	d := newTestDashboard(api, nil, nil)
	ctx := context.Background()
	d.Revalidate(ctx)

	id, price := "pred_3", 1.0
	_, err := d.RunCycle(ctx, models.CycleRunRequest{PreviousPredictionID: &id, ActualPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, "pred_3", *api.cycleReqs[0].PreviousPredictionID)
}

func TestRunCycleFailureTouchesNothing(t *testing.T) {
	api := newFakeAPI()
	api.cycleErr = &xhttp.FetchError{Kind: xhttp.KindStatus, Status: 500}
	m := &fakeMetrics{}
	bus := newFakeBus()
	d := newTestDashboard(api, m, bus)
	ctx := context.Background()
	d.Revalidate(ctx)
	seq := d.prediction.Snapshot().Seq
	graphCalls := api.count("graph")

	_, err := d.RunCycle(ctx, models.CycleRunRequest{})
	require.ErrorIs(t, err, xhttp.ErrStatus)

	assert.Equal(t, seq, d.prediction.Snapshot().Seq)
	assert.Equal(t, graphCalls, api.count("graph"))
	assert.Equal(t, []bool{false}, m.cycles)
	assert.Empty(t, bus.published)
}

func TestStartPollsAndPeerCycleRefreshes(t *testing.T) {
	api := newFakeAPI()
	bus := newFakeBus()
	d := newTestDashboard(api, nil, bus)

	events, stop := d.Watch()
	defer stop()

	d.Start(context.Background())
	defer d.Stop()

	require.Eventually(t, func() bool {
		p, _ := d.Panel(PanelScheduler)
		return p.Status == StatusReady
	}, time.Second, 5*time.Millisecond)

	seen := map[string]bool{}
	deadline := time.After(time.Second)
	for len(seen) < len(PanelNames) {
		select {
		case ev := <-events:
			if ev.Status == StatusReady {
				seen[ev.Panel] = true
			}
		case <-deadline:
			t.Fatalf("ready events seen for %v only", seen)
		}
	}

	<-bus.ready
	before := api.count("prediction")
	bus.mu.Lock()
	handle := bus.handler
	bus.mu.Unlock()
	handle(models.CycleEvent{Origin: "peer", Cycle: 11})
	assert.Greater(t, api.count("prediction"), before)
}

func TestStopEndsWatchers(t *testing.T) {
	d := newTestDashboard(newFakeAPI(), nil, nil)
	d.Start(context.Background())
	events, _ := d.Watch()
	d.Stop()

	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
	d.Stop()
}

func TestSignalHistoryLeases(t *testing.T) {
	api := newFakeAPI()
	d := newTestDashboard(api, nil, nil)
	d.Start(context.Background())
	defer d.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	req := models.SignalHistoryRequest{Source: "weather", Name: "temp", Hours: 6}
	p, err := d.SignalHistory(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, p.Status)
	v := p.Data.(SignalHistoryView)
	assert.Len(t, v.Points, 2)
	assert.Equal(t, 6, v.Hours)

	_, err = d.SignalHistory(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("signal_history"), "second read served from the polled state")
	assert.Equal(t, 1, d.signalHistory.Len())

	now := time.Now()
	d.leases.mu.Lock()
	d.leases.now = func() time.Time { return now.Add(time.Hour) }
	d.leases.mu.Unlock()
	assert.Equal(t, 1, d.leases.sweep())
	assert.Equal(t, 0, d.signalHistory.Len())
	assert.Equal(t, 0, d.leases.len())
}

func TestSignalHistoryOutsideRunLeasesNothing(t *testing.T) {
	api := newFakeAPI()
	d := newTestDashboard(api, nil, nil)
	ctx := context.Background()
	req := models.SignalHistoryRequest{Source: "weather", Name: "temp", Hours: 24}

	p, err := d.SignalHistory(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, p.Status)
	assert.Len(t, p.Data.(SignalHistoryView).Points, 2)
	assert.Equal(t, 0, d.leases.len())
	assert.Equal(t, 0, d.signalHistory.Len())

	d.Start(ctx)
	d.Stop()

	_, err = d.SignalHistory(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0, d.leases.len(), "no lease after Stop")
	assert.Equal(t, 0, d.signalHistory.Len(), "no series left polling after Stop")
	assert.Equal(t, 2, api.count("signal_history"), "each read is a single fetch")
}
