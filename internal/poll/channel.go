package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	applogger "OracleDash/pkg/logger"
	"OracleDash/pkg/metrics"

	"golang.org/x/sync/singleflight"
)

const flightKey = "fetch"

// Fetcher loads one value of a polled resource.
type Fetcher[T any] func(ctx context.Context) (T, error)

// State is a point-in-time view of a Channel. Value is the last successful
// result and survives later failures; Err is the outcome of the most recent
// applied fetch and is cleared by the next success.
type State[T any] struct {
	Value     T
	HasValue  bool
	Err       error
	IsLoading bool
	// Seq of the fetch whose result is reflected here; 0 before any result.
	Seq uint64
	// ValueSeq is the Seq of the fetch that produced Value. Failed fetches
	// advance Seq but leave ValueSeq alone.
	ValueSeq uint64
	// UpdatedAt is when Value was last replaced.
	UpdatedAt time.Time
	// FetchedAt is when the last applied fetch settled, successful or not.
	FetchedAt time.Time
}

// Stale reports whether a value exists but the latest fetch failed.
func (s State[T]) Stale() bool {
	return s.HasValue && s.Err != nil
}

// Channel polls one resource on a fixed cadence while it has subscribers and
// caches its latest value.
//
// Fetches are tagged with increasing sequence numbers and a result is applied
// only while it is the latest issued, so a slow response never overwrites a
// newer one. Revalidate attaches to an in-flight fetch; Refresh always issues
// a new one that supersedes it.
type Channel[T any] struct {
	name     string
	interval time.Duration
	fetch    Fetcher[T]
	opts     options
	now      func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	state  State[T]
	issued uint64
	subs   map[*Subscription[T]]struct{}
	stop   context.CancelFunc
	done   chan struct{}
}

// NewChannel creates an idle channel. Nothing is fetched until the first
// Subscribe or an explicit Revalidate/Refresh.
func NewChannel[T any](name string, interval time.Duration, fetch Fetcher[T], opts ...Option) *Channel[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Channel[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		opts:     o,
		now:      time.Now,
		subs:     make(map[*Subscription[T]]struct{}),
	}
}

func (c *Channel[T]) Name() string { return c.name }

func (c *Channel[T]) Interval() time.Duration { return c.interval }

// Snapshot returns a copy of the current state.
func (c *Channel[T]) Snapshot() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribers returns the number of open subscriptions.
func (c *Channel[T]) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Subscribe registers a consumer. The current state is delivered at once.
// The first subscriber starts the cadence loop with an immediate fetch.
func (c *Channel[T]) Subscribe() *Subscription[T] {
	s := newSubscription[T]()
	s.closeFn = func() { c.unsubscribe(s) }

	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[s] = struct{}{}
	s.offer(c.state)
	c.recordSubscribersLocked()
	if len(c.subs) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		c.stop = cancel
		c.done = make(chan struct{})
		go c.loop(ctx, c.done)
	}
	return s
}

func (c *Channel[T]) unsubscribe(s *Subscription[T]) {
	c.mu.Lock()
	if _, ok := c.subs[s]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.subs, s)
	close(s.ch)
	c.recordSubscribersLocked()
	if len(c.subs) > 0 {
		c.mu.Unlock()
		return
	}

	// last consumer gone: stop ticking and orphan whatever is in flight
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.issued++
	c.state.IsLoading = false
	c.group.Forget(flightKey)
	c.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

func (c *Channel[T]) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	_, _ = c.Revalidate(ctx)
	if c.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = c.Revalidate(ctx)
		}
	}
}

// Revalidate fetches unless a fetch is already in flight, in which case it
// waits for that one. All callers attached to one fetch observe its result.
// Returning early because ctx is done does not cancel the shared fetch.
func (c *Channel[T]) Revalidate(ctx context.Context) (T, error) {
	return c.await(ctx, c.group.DoChan(flightKey, c.runner(ctx)))
}

// Refresh always issues a new fetch. Any older in-flight fetch is superseded
// and its result discarded; later Revalidate calls attach to this one.
func (c *Channel[T]) Refresh(ctx context.Context) (T, error) {
	c.group.Forget(flightKey)
	return c.await(ctx, c.group.DoChan(flightKey, c.runner(ctx)))
}

// Sync is the type-erased form of Revalidate (force=false) and Refresh (force=true).
func (c *Channel[T]) Sync(ctx context.Context, force bool) error {
	var err error
	if force {
		_, err = c.Refresh(ctx)
	} else {
		_, err = c.Revalidate(ctx)
	}
	return err
}

func (c *Channel[T]) await(ctx context.Context, ch <-chan singleflight.Result) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		v, _ := res.Val.(T)
		return v, res.Err
	}
}

func (c *Channel[T]) runner(ctx context.Context) func() (interface{}, error) {
	// the fetch outlives any single waiter
	fctx := context.WithoutCancel(ctx)
	return func() (interface{}, error) {
		return c.run(fctx)
	}
}

func (c *Channel[T]) run(ctx context.Context) (T, error) {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.state.IsLoading = true
	c.publishLocked()
	c.mu.Unlock()

	start := c.now()
	v, err := c.safeFetch(ctx)
	elapsed := c.now().Sub(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.issued {
		c.record(metrics.OutcomeDiscarded, elapsed)
		c.opts.log.Debug("poll: discarded superseded response",
			applogger.String("channel", c.name),
			applogger.Uint64("seq", seq),
			applogger.Uint64("latest", c.issued),
		)
		return v, err
	}

	now := c.now()
	c.state.IsLoading = false
	c.state.Seq = seq
	c.state.FetchedAt = now
	if err != nil {
		c.state.Err = err
		c.record(metrics.OutcomeFailure, elapsed)
		c.opts.warnFailure("poll: fetch failed",
			applogger.String("channel", c.name),
			applogger.Bool("stale", c.state.HasValue),
			applogger.Error(err),
		)
	} else {
		c.state.Value = v
		c.state.ValueSeq = seq
		c.state.HasValue = true
		c.state.Err = nil
		c.state.UpdatedAt = now
		c.record(metrics.OutcomeSuccess, elapsed)
	}
	c.publishLocked()
	return v, err
}

func (c *Channel[T]) safeFetch(ctx context.Context) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll %s: fetch panic: %v", c.name, r)
		}
	}()
	return c.fetch(ctx)
}

func (c *Channel[T]) publishLocked() {
	for s := range c.subs {
		s.offer(c.state)
	}
}

func (c *Channel[T]) record(outcome string, elapsed time.Duration) {
	if c.opts.metrics != nil {
		c.opts.metrics.RecordFetch(c.name, outcome, elapsed.Seconds())
	}
}

func (c *Channel[T]) recordSubscribersLocked() {
	if c.opts.metrics != nil {
		c.opts.metrics.RecordSubscribers(c.name, len(c.subs))
	}
}
