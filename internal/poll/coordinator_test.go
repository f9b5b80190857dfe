package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorReportsPartialFailure(t *testing.T) {
	boom := errors.New("503 Service Unavailable")
	var okCalls atomic.Int32

	signals := NewChannel("signals", time.Hour, func(ctx context.Context) (int, error) {
		okCalls.Add(1)
		return 1, nil
	})
	graph := NewChannel("graph", time.Hour, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	learning := NewChannel("learning", time.Hour, func(ctx context.Context) (string, error) {
		time.Sleep(20 * time.Millisecond)
		return "ok", nil
	})

	c := NewCoordinator(nil, signals, graph)
	c.Register(learning)

	rep := c.RevalidateAll(context.Background())
	require.Len(t, rep.Outcomes, 3)
	assert.NoError(t, rep.Outcomes["signals"])
	assert.ErrorIs(t, rep.Outcomes["graph"], boom)
	assert.NoError(t, rep.Outcomes["learning"])
	assert.Equal(t, []string{"graph"}, rep.Failed())
	assert.False(t, rep.OK())

	// every member settled before the round returned
	assert.True(t, learning.Snapshot().HasValue)
	assert.ErrorIs(t, graph.Snapshot().Err, boom)
}

func TestCoordinatorRefreshAllIssuesFreshFetches(t *testing.T) {
	f := newGatedFetcher()
	f.script(1, "before-cycle", nil)
	f.script(2, "after-cycle", nil)
	ch := NewChannel("prediction", time.Hour, f.fetch)
	c := NewCoordinator(nil, ch)

	go func() { _, _ = ch.Revalidate(context.Background()) }()
	f.waitCalls(t, 1)

	done := make(chan Report, 1)
	go func() { done <- c.RefreshAll(context.Background()) }()
	f.waitCalls(t, 2)
	f.release(2)
	rep := <-done
	assert.True(t, rep.OK())
	f.release(1)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, "after-cycle", ch.Snapshot().Value)
}

func TestCoordinatorEmpty(t *testing.T) {
	rep := NewCoordinator(nil).RefreshAll(context.Background())
	assert.True(t, rep.OK())
	assert.Empty(t, rep.Outcomes)
}
