package poll

import (
	"context"
	"sort"
	"sync"
	"time"

	applogger "OracleDash/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Member is anything the Coordinator can bring up to date: a Channel or a Registry.
type Member interface {
	Name() string
	Sync(ctx context.Context, force bool) error
}

// Report is the per-member outcome of one coordinated round. A nil error
// means the member's fetch succeeded.
type Report struct {
	Outcomes map[string]error
	Elapsed  time.Duration
}

// Failed returns the names of members whose fetch failed, sorted.
func (r Report) Failed() []string {
	var out []string
	for name, err := range r.Outcomes {
		if err != nil {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// OK reports whether every member succeeded.
func (r Report) OK() bool { return len(r.Failed()) == 0 }

// Coordinator revalidates a fixed set of members together.
type Coordinator struct {
	log *applogger.Logger

	mu      sync.RWMutex
	members []Member
}

func NewCoordinator(l *applogger.Logger, members ...Member) *Coordinator {
	if l == nil {
		l = applogger.Nop()
	}
	return &Coordinator{log: l, members: members}
}

// Register adds members to every later round.
func (c *Coordinator) Register(members ...Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members = append(c.members, members...)
}

// RevalidateAll triggers Revalidate on every member concurrently and returns
// once all have settled. Members already fetching are joined, not re-fetched.
// It never fails as a whole; see Report.
func (c *Coordinator) RevalidateAll(ctx context.Context) Report {
	return c.round(ctx, false)
}

// RefreshAll is RevalidateAll with superseding fetches, so results are
// guaranteed to have been requested after the call began.
func (c *Coordinator) RefreshAll(ctx context.Context) Report {
	return c.round(ctx, true)
}

func (c *Coordinator) round(ctx context.Context, force bool) Report {
	c.mu.RLock()
	members := append([]Member(nil), c.members...)
	c.mu.RUnlock()

	start := time.Now()
	rep := Report{Outcomes: make(map[string]error, len(members))}
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for _, m := range members {
		m := m
		g.Go(func() error {
			err := m.Sync(ctx, force)
			mu.Lock()
			rep.Outcomes[m.Name()] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	rep.Elapsed = time.Since(start)

	if failed := rep.Failed(); len(failed) > 0 {
		c.log.Warn("poll: coordinated round had failures",
			applogger.Bool("refresh", force),
			applogger.Strings("failed", failed),
			applogger.Int("members", len(members)),
		)
	} else {
		c.log.Debug("poll: coordinated round complete",
			applogger.Bool("refresh", force),
			applogger.Int("members", len(members)),
			applogger.Duration("elapsed_ms", rep.Elapsed),
		)
	}
	return rep
}
