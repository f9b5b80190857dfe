package usecase

import (
	"context"
	"sync"
	"time"

	"OracleDash/internal/domain/models"
	"OracleDash/internal/poll"
)

// lease keeps a signal history series polling between reads.
type lease struct {
	sub      *poll.Subscription[*models.SignalHistoryResponse]
	lastRead time.Time
}

// leases subscribes to a history series on first read and releases it after
// it has gone unread for idle. Leases are only handed out between open and
// closeAll, while a sweeper runs.
type leases struct {
	reg  *poll.Registry[models.SignalHistoryRequest, *models.SignalHistoryResponse]
	idle time.Duration
	now  func() time.Time

	mu     sync.Mutex
	active bool
	m      map[models.SignalHistoryRequest]*lease
}

func newLeases(reg *poll.Registry[models.SignalHistoryRequest, *models.SignalHistoryResponse], idle time.Duration) *leases {
	return &leases{reg: reg, idle: idle, now: time.Now, m: make(map[models.SignalHistoryRequest]*lease)}
}

func (l *leases) open() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = true
}

// acquire returns the series channel for key, subscribing when needed, and
// whether the subscription is new. ok is false while leases are closed.
func (l *leases) acquire(key models.SignalHistoryRequest) (ch *poll.Channel[*models.SignalHistoryResponse], sub *poll.Subscription[*models.SignalHistoryResponse], fresh, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return nil, nil, false, false
	}
	if ls, found := l.m[key]; found {
		ls.lastRead = l.now()
		ch, _ = l.reg.Get(key)
		return ch, ls.sub, false, true
	}
	sub = l.reg.Subscribe(key)
	l.m[key] = &lease{sub: sub, lastRead: l.now()}
	ch, _ = l.reg.Get(key)
	return ch, sub, true, true
}

// sweep releases every lease idle for longer than l.idle.
func (l *leases) sweep() int {
	cutoff := l.now().Add(-l.idle)
	var expired []*lease
	l.mu.Lock()
	for key, ls := range l.m {
		if ls.lastRead.Before(cutoff) {
			expired = append(expired, ls)
			delete(l.m, key)
		}
	}
	l.mu.Unlock()
	for _, ls := range expired {
		ls.sub.Close()
	}
	return len(expired)
}

func (l *leases) sweepEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.sweep()
		}
	}
}

func (l *leases) closeAll() {
	l.mu.Lock()
	l.active = false
	all := l.m
	l.m = make(map[models.SignalHistoryRequest]*lease)
	l.mu.Unlock()
	for _, ls := range all {
		ls.sub.Close()
	}
}

func (l *leases) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// SignalHistoryView is one series ready for a line chart.
type SignalHistoryView struct {
	Source string             `json:"source"`
	Name   string             `json:"name"`
	Hours  int                `json:"hours"`
	Points []models.DataPoint `json:"points"`
}

// SignalHistory serves one signal's series. While the dashboard runs, the
// first read of a series subscribes to it and waits until the first fetch
// settles or ctx is done; later reads return the polled state at once.
// Outside Start/Stop every read is a single fetch and nothing keeps polling.
func (d *Dashboard) SignalHistory(ctx context.Context, req models.SignalHistoryRequest) (Panel, error) {
	ch, sub, fresh, leased := d.leases.acquire(req)
	name := "signal_history"
	build := func(h *models.SignalHistoryResponse) interface{} {
		v := SignalHistoryView{Source: req.Source, Name: req.Name, Hours: req.Hours, Points: []models.DataPoint{}}
		if h != nil && h.DataPoints != nil {
			v.Points = h.DataPoints
		}
		return v
	}
	if !leased {
		return d.signalHistoryOnce(ctx, req, name, build)
	}
	if fresh {
		st, err := poll.WaitSettled(ctx, sub)
		if err != nil {
			return Panel{}, err
		}
		return envelope(name, st, build), nil
	}
	return envelope(name, ch.Snapshot(), build), nil
}

func (d *Dashboard) signalHistoryOnce(ctx context.Context, req models.SignalHistoryRequest, name string, build func(*models.SignalHistoryResponse) interface{}) (Panel, error) {
	res, err := d.api.SignalHistory(ctx, req)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Panel{}, ctxErr
	}
	st := poll.State[*models.SignalHistoryResponse]{Seq: 1, FetchedAt: d.now()}
	if err != nil {
		st.Err = err
	} else {
		st.Value, st.HasValue, st.ValueSeq, st.UpdatedAt = res, true, 1, st.FetchedAt
	}
	return envelope(name, st, build), nil
}
