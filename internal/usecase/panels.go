package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"OracleDash/internal/domain/models"
	"OracleDash/internal/poll"
	"OracleDash/internal/services/analytics"
	"OracleDash/internal/services/causal"
	"OracleDash/pkg/cache"
	xhttp "OracleDash/pkg/http"
	applogger "OracleDash/pkg/logger"
)

// Panel names. Each is also the name of the channel feeding it.
const (
	PanelSignals    = "signals"
	PanelPrediction = "prediction"
	PanelTimeline   = "timeline"
	PanelGraph      = "graph"
	PanelLearning   = "learning"
	PanelLog        = "log"
	PanelScheduler  = "scheduler"
	PanelFactors    = "factors"
	PanelSources    = "sources"
)

// PanelNames lists every panel in page order.
var PanelNames = []string{
	PanelSignals,
	PanelPrediction,
	PanelTimeline,
	PanelGraph,
	PanelLearning,
	PanelLog,
	PanelScheduler,
	PanelFactors,
	PanelSources,
}

type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// statusOf: loading only before the first result, error only without data.
func statusOf(hasValue bool, err error) Status {
	switch {
	case hasValue:
		return StatusReady
	case err != nil:
		return StatusError
	default:
		return StatusLoading
	}
}

// Panel is the envelope every panel is served in. Data is nil unless Status
// is ready; Stale marks data kept from an earlier fetch after the latest failed.
type Panel struct {
	Name      string      `json:"name"`
	Status    Status      `json:"status"`
	Stale     bool        `json:"stale"`
	Loading   bool        `json:"loading"`
	Error     string      `json:"error,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
	UpdatedAt *time.Time  `json:"updated_at"`
	Seq       uint64      `json:"seq"`
	Data      interface{} `json:"data"`
}

func envelope[T any](name string, st poll.State[T], build func(T) interface{}) Panel {
	p := Panel{
		Name:    name,
		Status:  statusOf(st.HasValue, st.Err),
		Stale:   st.Stale(),
		Loading: st.IsLoading,
		Seq:     st.Seq,
	}
	if st.Err != nil {
		p.Error = st.Err.Error()
		p.ErrorKind = "unknown"
		if fe, ok := xhttp.AsFetchError(st.Err); ok {
			p.ErrorKind = fe.Kind.String()
		}
	}
	if !st.UpdatedAt.IsZero() {
		t := st.UpdatedAt.UTC()
		p.UpdatedAt = &t
	}
	if st.HasValue {
		p.Data = build(st.Value)
	}
	return p
}

var errUnknownPanel = errors.New("unknown panel")

// Panel returns the current envelope of one panel.
func (d *Dashboard) Panel(name string) (Panel, error) {
	switch name {
	case PanelSignals:
		return envelope(name, d.signals.Snapshot(), d.signalsView), nil
	case PanelPrediction:
		return envelope(name, d.prediction.Snapshot(), predictionView), nil
	case PanelTimeline:
		return envelope(name, d.history.Snapshot(), d.timelineView), nil
	case PanelGraph:
		st := d.graph.Snapshot()
		return envelope(name, st, func(g *models.CausalGraphResponse) interface{} {
			return d.diagram(st.ValueSeq, g)
		}), nil
	case PanelLearning:
		return envelope(name, d.learning.Snapshot(), d.learningView), nil
	case PanelLog:
		return envelope(name, d.learningLog.Snapshot(), logView), nil
	case PanelScheduler:
		return envelope(name, d.scheduler.Snapshot(), schedulerView), nil
	case PanelFactors:
		return envelope(name, d.factors.Snapshot(), factorsView), nil
	case PanelSources:
		return envelope(name, d.sources.Snapshot(), sourcesView), nil
	}
	return Panel{}, fmt.Errorf("%w: %q", errUnknownPanel, name)
}

// IsUnknownPanel reports whether err came from asking for a panel that does not exist.
func IsUnknownPanel(err error) bool { return errors.Is(err, errUnknownPanel) }

// Panels returns every panel in page order.
func (d *Dashboard) Panels() []Panel {
	out := make([]Panel, 0, len(PanelNames))
	for _, name := range PanelNames {
		p, _ := d.Panel(name)
		out = append(out, p)
	}
	return out
}

type SignalsView struct {
	Timestamp models.Timestamp        `json:"timestamp"`
	Count     int                     `json:"count"`
	Groups    []analytics.SignalGroup `json:"groups"`
}

func (d *Dashboard) signalsView(s *models.SignalsLatestResponse) interface{} {
	if s == nil {
		return SignalsView{Groups: []analytics.SignalGroup{}}
	}
	return SignalsView{Timestamp: s.Timestamp, Count: len(s.Signals), Groups: analytics.GroupSignals(s.Signals)}
}

type PredictionView struct {
	*models.PredictionResponse
	AwaitingFirstCycle bool `json:"awaiting_first_cycle"`
}

func predictionView(p *models.PredictionResponse) interface{} {
	return PredictionView{PredictionResponse: p, AwaitingFirstCycle: !p.Evaluated()}
}

type TimelineView struct {
	Rows    []analytics.TimelineRow   `json:"rows"`
	Summary analytics.TimelineSummary `json:"summary"`
	Chart   analytics.ChartSpec       `json:"chart"`
}

// timelineView places the reference line at the current price when the
// prediction panel has one.
func (d *Dashboard) timelineView(h *models.PredictionHistoryResponse) interface{} {
	rows := analytics.PredictionTimeline(h)
	var current float64
	if st := d.prediction.Snapshot(); st.HasValue && st.Value != nil {
		current = st.Value.CurrentPrice
	}
	return TimelineView{Rows: rows, Summary: analytics.SummarizeTimeline(rows), Chart: analytics.TimelineChart(current)}
}

// diagram builds the causal layout once per applied graph fetch.
func (d *Dashboard) diagram(seq uint64, g *models.CausalGraphResponse) causal.Diagram {
	key := cache.GenerateKeyWithParams("diagram", PanelGraph, seq)
	dg, _ := cache.GetOrCompute(context.Background(), d.views, key, 0, func() (causal.Diagram, error) {
		dg := causal.Build(g)
		if n := len(dg.Report.DroppedEdges); n > 0 {
			d.metrics.RecordDroppedEdges(n)
			d.log.Warn("causal: dropped edges with missing endpoints",
				applogger.Uint64("seq", seq),
				applogger.Strings("edges", dg.Report.DroppedEdges),
			)
		}
		if dg.Report.MetadataMismatch {
			d.log.Warn("causal: metadata counts disagree with graph", applogger.Uint64("seq", seq))
		}
		return dg, nil
	})
	return dg
}

type LearningView struct {
	*models.LearningMetricsResponse
	Curve    []analytics.CurveRow `json:"curve"`
	Chart    analytics.ChartSpec  `json:"chart"`
	Mismatch string               `json:"mismatch,omitempty"`
}

func (d *Dashboard) learningView(m *models.LearningMetricsResponse) interface{} {
	rows, err := analytics.LearningCurve(m)
	v := LearningView{LearningMetricsResponse: m, Curve: rows, Chart: analytics.LearningCurveChart()}
	if err != nil {
		v.Mismatch = err.Error()
	}
	return v
}

func logView(l *models.LearningLogResponse) interface{} {
	if l == nil {
		return &models.LearningLogResponse{Events: []models.LearningEvent{}}
	}
	return l
}

type SchedulerView struct {
	*models.SchedulerResponse
	Summary analytics.SavingsSummary `json:"summary"`
}

func schedulerView(s *models.SchedulerResponse) interface{} {
	return SchedulerView{SchedulerResponse: s, Summary: analytics.SummarizeSavings(s)}
}

func factorsView(f *models.FactorsResponse) interface{} {
	return analytics.RankFactors(f)
}

// sourcesView lists sources by id.
func sourcesView(s *models.SourcesResponse) interface{} {
	if s == nil {
		return []models.SourceStatus{}
	}
	out := append([]models.SourceStatus{}, s.Sources...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
