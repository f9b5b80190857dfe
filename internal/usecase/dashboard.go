package usecase

import (
	"context"
	"sync"
	"time"

	"OracleDash/internal/domain/models"
	drepo "OracleDash/internal/domain/repository"
	"OracleDash/internal/poll"
	"OracleDash/internal/services/causal"
	"OracleDash/pkg/cache"
	applogger "OracleDash/pkg/logger"
)

// Settings are the polling cadences and list sizes of the dashboard.
type Settings struct {
	Signals     time.Duration
	Predictions time.Duration
	Causal      time.Duration
	Learning    time.Duration
	Scheduler   time.Duration
	Sources     time.Duration

	HistoryLimit int
	LogLimit     int
	// HistoryIdle is how long an unread signal history series keeps polling.
	HistoryIdle time.Duration
	// FailureSummary is how often repeated fetch failures are summarized.
	FailureSummary time.Duration
}

// DefaultSettings mirrors the config defaults.
func DefaultSettings() Settings {
	return Settings{
		Signals:      30 * time.Second,
		Predictions:  60 * time.Second,
		Causal:       120 * time.Second,
		Learning:     60 * time.Second,
		Scheduler:    60 * time.Second,
		Sources:      120 * time.Second,
		HistoryLimit: 20,
		LogLimit:     50,
		HistoryIdle:  5 * time.Minute,

		FailureSummary: time.Minute,
	}
}

// Dashboard owns every polled resource of the oracle backend and turns their
// states into panel envelopes.
type Dashboard struct {
	api     drepo.OracleAPI
	metrics drepo.Metrics
	bus     drepo.Broadcaster
	log     *applogger.Logger
	set     Settings
	views   *cache.MemoryCache[causal.Diagram]
	now     func() time.Time

	failures *applogger.Collector

	signals     *poll.Channel[*models.SignalsLatestResponse]
	prediction  *poll.Channel[*models.PredictionResponse]
	history     *poll.Channel[*models.PredictionHistoryResponse]
	graph       *poll.Channel[*models.CausalGraphResponse]
	learning    *poll.Channel[*models.LearningMetricsResponse]
	learningLog *poll.Channel[*models.LearningLogResponse]
	scheduler   *poll.Channel[*models.SchedulerResponse]
	factors     *poll.Channel[*models.FactorsResponse]
	sources     *poll.Channel[*models.SourcesResponse]

	signalHistory *poll.Registry[models.SignalHistoryRequest, *models.SignalHistoryResponse]
	leases        *leases

	coord *poll.Coordinator
	hub   *hub

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	subs    []func()
	wg      sync.WaitGroup
}

// NewDashboard wires the channels. Nothing is fetched until Start.
func NewDashboard(api drepo.OracleAPI, m drepo.Metrics, bus drepo.Broadcaster, l *applogger.Logger, set Settings) *Dashboard {
	if l == nil {
		l = applogger.Nop()
	}
	if m == nil {
		m = nopMetrics{}
	}
	def := DefaultSettings()
	if set.HistoryLimit <= 0 {
		set.HistoryLimit = def.HistoryLimit
	}
	if set.LogLimit <= 0 {
		set.LogLimit = def.LogLimit
	}
	if set.HistoryIdle <= 0 {
		set.HistoryIdle = def.HistoryIdle
	}
	if set.FailureSummary <= 0 {
		set.FailureSummary = def.FailureSummary
	}

	d := &Dashboard{
		api:     api,
		metrics: m,
		bus:     bus,
		log:     l,
		set:     set,
		views:   cache.NewMemoryCache[causal.Diagram](cache.WithMemoryMaxSize(8), cache.WithMemoryTTL(time.Hour), cache.WithMemoryCleanup(0)),
		now:     time.Now,
		hub:     newHub(),

		failures: applogger.NewCollector(l, applogger.CollectorConfig{Interval: set.FailureSummary, CountThreshold: 64}),
	}
	opts := []poll.Option{poll.WithLogger(l), poll.WithMetrics(m), poll.WithFailureCollector(d.failures)}

	d.signals = poll.NewChannel(PanelSignals, set.Signals, api.LatestSignals, opts...)
	d.prediction = poll.NewChannel(PanelPrediction, set.Predictions, api.LatestPrediction, opts...)
	d.history = poll.NewChannel(PanelTimeline, set.Predictions, func(ctx context.Context) (*models.PredictionHistoryResponse, error) {
		return api.PredictionHistory(ctx, set.HistoryLimit)
	}, opts...)
	d.graph = poll.NewChannel(PanelGraph, set.Causal, api.CausalGraph, opts...)
	d.learning = poll.NewChannel(PanelLearning, set.Learning, api.LearningMetrics, opts...)
	d.learningLog = poll.NewChannel(PanelLog, set.Learning, func(ctx context.Context) (*models.LearningLogResponse, error) {
		return api.LearningLog(ctx, set.LogLimit)
	}, opts...)
	d.scheduler = poll.NewChannel(PanelScheduler, set.Scheduler, api.SchedulerWindows, opts...)
	d.factors = poll.NewChannel(PanelFactors, set.Causal, api.Factors, opts...)
	d.sources = poll.NewChannel(PanelSources, set.Sources, api.Sources, opts...)

	d.signalHistory = poll.NewRegistry("signal_history", set.Signals, api.SignalHistory, opts...)
	d.leases = newLeases(d.signalHistory, set.HistoryIdle)

	d.coord = poll.NewCoordinator(l,
		d.signals, d.prediction, d.history, d.graph, d.learning,
		d.learningLog, d.scheduler, d.factors, d.sources, d.signalHistory,
	)
	return d
}

// Start subscribes every core channel, which begins polling, and listens
// for peer cycle events. Calling Start twice is a no-op.
func (d *Dashboard) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	ctx, d.cancel = context.WithCancel(ctx)

	watch(d, d.signals)
	watch(d, d.prediction)
	watch(d, d.history)
	watch(d, d.graph)
	watch(d, d.learning)
	watch(d, d.learningLog)
	watch(d, d.scheduler)
	watch(d, d.factors)
	watch(d, d.sources)

	if d.bus != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.bus.Subscribe(ctx, func(ev models.CycleEvent) { d.onPeerCycle(ctx, ev) }); err != nil {
				d.log.Error("notify: subscribe failed", applogger.String("backend", d.bus.Backend()), applogger.Error(err))
			}
		}()
	}

	d.leases.open()
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.leases.sweepEvery(ctx, d.set.HistoryIdle/2)
	}()
	go func() {
		defer d.wg.Done()
		d.failures.Run(ctx)
	}()

	d.log.Info("dashboard started", applogger.Int("channels", len(d.subs)))
}

// watch forwards every state change of ch to the stream hub until its
// subscription is closed. Must be called with d.mu held.
func watch[T any](d *Dashboard, ch *poll.Channel[T]) {
	sub := ch.Subscribe()
	d.subs = append(d.subs, sub.Close)
	name := ch.Name()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for st := range sub.C {
			d.hub.publish(PanelEvent{Panel: name, Seq: st.Seq, Status: statusOf(st.HasValue, st.Err)})
		}
	}()
}

// Stop releases every subscription, which stops polling, and waits for the
// background goroutines.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancel()
	for _, closeFn := range d.subs {
		closeFn()
	}
	d.subs = nil
	d.mu.Unlock()

	d.leases.closeAll()
	d.wg.Wait()
	d.hub.close()
	_ = d.views.Close()
	d.log.Info("dashboard stopped")
}

// Revalidate brings every resource up to date, attaching to fetches already in flight.
func (d *Dashboard) Revalidate(ctx context.Context) RefreshSummary {
	return summarize(d.coord.RevalidateAll(ctx))
}

// Refresh issues a fresh fetch for every resource.
func (d *Dashboard) Refresh(ctx context.Context) RefreshSummary {
	return summarize(d.coord.RefreshAll(ctx))
}

// Watch registers a panel change listener. The returned func unregisters it.
func (d *Dashboard) Watch() (<-chan PanelEvent, func()) {
	return d.hub.add()
}

// Health reports the backend's own health.
func (d *Dashboard) Health(ctx context.Context) (*models.HealthResponse, error) {
	return d.api.Health(ctx)
}

// RefreshSummary is the JSON form of a coordinated round.
type RefreshSummary struct {
	OK        bool              `json:"ok"`
	Failed    map[string]string `json:"failed,omitempty"`
	ElapsedMS int64             `json:"elapsed_ms"`
}

func summarize(r poll.Report) RefreshSummary {
	s := RefreshSummary{OK: r.OK(), ElapsedMS: r.Elapsed.Milliseconds()}
	for _, name := range r.Failed() {
		if s.Failed == nil {
			s.Failed = make(map[string]string)
		}
		s.Failed[name] = r.Outcomes[name].Error()
	}
	return s
}
