package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// CollectorConfig controls how often repeated lines are summarized.
type CollectorConfig struct {
	Interval       time.Duration // flush interval (e.g., 1m)
	CountThreshold int           // max distinct lines held before an early flush
}

// AggregatedEntry is one distinct warning and how often it was seen.
type AggregatedEntry struct {
	Message   string
	Fields    []Field
	Count     int
	FirstSeen time.Time
	LastSeen  time.Time
}

// Collector folds repeated warnings. The first occurrence of a line is
// written at once; repeats are only counted and written as one summary line
// per distinct warning on Flush.
type Collector struct {
	log *Logger
	cfg CollectorConfig
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*AggregatedEntry
}

func NewCollector(l *Logger, cfg CollectorConfig) *Collector {
	if l == nil {
		l = Nop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	return &Collector{log: l, cfg: cfg, now: time.Now, entries: make(map[string]*AggregatedEntry)}
}

// Warn logs msg the first time it is seen with these fields since the last
// flush and counts it otherwise.
func (c *Collector) Warn(msg string, fields ...Field) {
	key := collectorKey(msg, fields)
	now := c.now()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
		c.mu.Unlock()
		return
	}
	c.entries[key] = &AggregatedEntry{Message: msg, Fields: fields, Count: 1, FirstSeen: now, LastSeen: now}
	var full []*AggregatedEntry
	if len(c.entries) >= c.cfg.CountThreshold {
		full = c.drainLocked()
	}
	c.mu.Unlock()

	c.log.Warn(msg, fields...)
	c.write(full)
}

// Flush writes a summary for every warning that repeated since the last
// flush and forgets all of them. It returns the number of summaries.
func (c *Collector) Flush() int {
	c.mu.Lock()
	entries := c.drainLocked()
	c.mu.Unlock()
	return c.write(entries)
}

// Run flushes every interval until ctx is done, then flushes once more.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Flush()
		case <-ctx.Done():
			c.Flush()
			return
		}
	}
}

// Len reports the distinct warnings held since the last flush.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Collector) drainLocked() []*AggregatedEntry {
	if len(c.entries) == 0 {
		return nil
	}
	out := make([]*AggregatedEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	c.entries = make(map[string]*AggregatedEntry)
	return out
}

func (c *Collector) write(entries []*AggregatedEntry) int {
	n := 0
	for _, e := range entries {
		if e.Count < 2 {
			continue
		}
		fields := append(append([]Field{}, e.Fields...),
			Int("repeated", e.Count-1),
			String("first_seen", e.FirstSeen.UTC().Format(time.RFC3339)),
			String("last_seen", e.LastSeen.UTC().Format(time.RFC3339)),
		)
		c.log.Warn(e.Message+" (repeated)", fields...)
		n++
	}
	return n
}

func collectorKey(msg string, fields []Field) string {
	kv := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		k, v := f.GetKeyValue()
		kv[k] = v
	}
	data, _ := json.Marshal(struct {
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
	}{msg, kv})
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
