package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestCollectorFoldsRepeats(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(NewWriter(&buf), CollectorConfig{Interval: time.Hour})
	start := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	c.now = func() time.Time { tick++; return start.Add(time.Duration(tick) * time.Second) }

	refused := errors.New("connection refused")
	for i := 0; i < 5; i++ {
		c.Warn("poll: fetch failed", String("channel", "graph"), Error(refused))
	}
	c.Warn("poll: fetch failed", String("channel", "signals"), Error(refused))

	lines := logLines(t, &buf)
	require.Len(t, lines, 2, "only first occurrences are written before a flush")
	assert.Equal(t, "graph", lines[0]["channel"])
	assert.Equal(t, "signals", lines[1]["channel"])

	buf.Reset()
	assert.Equal(t, 1, c.Flush())
	lines = logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "poll: fetch failed (repeated)", lines[0]["message"])
	assert.Equal(t, "graph", lines[0]["channel"])
	assert.EqualValues(t, 4, lines[0]["repeated"])
	assert.Equal(t, "2025-11-01T12:00:01Z", lines[0]["first_seen"])
	assert.Equal(t, "2025-11-01T12:00:05Z", lines[0]["last_seen"])
	assert.Equal(t, 0, c.Len())

	buf.Reset()
	c.Warn("poll: fetch failed", String("channel", "graph"), Error(refused))
	assert.Len(t, logLines(t, &buf), 1, "a flushed warning is written again on its next occurrence")
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(NewWriter(&buf), CollectorConfig{Interval: time.Hour, CountThreshold: 2})

	c.Warn("a")
	c.Warn("a")
	assert.Equal(t, 1, c.Len())
	c.Warn("b")
	assert.Equal(t, 0, c.Len(), "reaching the threshold drains the collector")

	lines := logLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "a (repeated)", lines[2]["message"])
}

func TestCollectorRunFlushesOnCancel(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(NewWriter(&buf), CollectorConfig{Interval: time.Hour})
	c.Warn("x")
	c.Warn("x")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { c.Run(ctx); close(done) }()
	cancel()
	<-done

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "x (repeated)", lines[1]["message"])
}
