package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes reported per polled resource.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeDiscarded = "discarded"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches      *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	subscribers  *prometheus.GaugeVec
	droppedEdges prometheus.Counter
	cycleRuns    *prometheus.CounterVec
	broadcasts   *prometheus.CounterVec
}

// New creates a Prometheus metrics recorder registered on reg.
// A nil reg registers on the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracledash_fetches_total",
				Help: "Fetches per polled resource by outcome",
			},
			[]string{"channel", "outcome"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oracledash_fetch_duration_seconds",
				Help:    "Duration of upstream fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"channel"},
		),
		subscribers: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oracledash_channel_subscribers",
				Help: "Active subscribers per polled resource",
			},
			[]string{"channel"},
		),
		droppedEdges: f.NewCounter(
			prometheus.CounterOpts{
				Name: "oracledash_causal_dropped_edges_total",
				Help: "Causal links skipped because an endpoint node was missing",
			},
		),
		cycleRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracledash_cycle_runs_total",
				Help: "Manual cycle triggers by result",
			},
			[]string{"result"},
		),
		broadcasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracledash_broadcasts_total",
				Help: "Cycle notifications published by backend",
			},
			[]string{"backend"},
		),
	}
}

// RecordFetch records one fetch outcome and, for completed fetches, its latency.
func (r *Recorder) RecordFetch(channel, outcome string, seconds float64) {
	r.fetches.WithLabelValues(channel, outcome).Inc()
	if outcome != OutcomeDiscarded {
		r.fetchLatency.WithLabelValues(channel).Observe(seconds)
	}
}

// RecordSubscribers records the current subscriber count of a channel.
func (r *Recorder) RecordSubscribers(channel string, n int) {
	r.subscribers.WithLabelValues(channel).Set(float64(n))
}

// RecordDroppedEdges adds n skipped causal links.
func (r *Recorder) RecordDroppedEdges(n int) {
	if n > 0 {
		r.droppedEdges.Add(float64(n))
	}
}

// RecordCycleRun records a manual cycle trigger.
func (r *Recorder) RecordCycleRun(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.cycleRuns.WithLabelValues(result).Inc()
}

// RecordBroadcast records a published cycle notification.
func (r *Recorder) RecordBroadcast(backend string) {
	r.broadcasts.WithLabelValues(backend).Inc()
}
