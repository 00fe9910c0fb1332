package logger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultModule = "app"

// Entry is a log record kept by a Collector.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Module    string    `json:"module"`
}

// Collector keeps the most recent log entries in memory for the admin console.
// It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

// NewCollector returns a Collector that keeps at most max entries.
func NewCollector(max int) *Collector {
	if max < 1 {
		max = 1
	}
	return &Collector{entries: make([]Entry, 0, max), max: max}
}

// Add appends an entry, evicting the oldest one when full.
func (c *Collector) Add(level slog.Level, msg, module string) {
	if module == "" {
		module = defaultModule
	}
	e := Entry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   msg,
		Module:    module,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.max {
		copy(c.entries, c.entries[1:])
		c.entries = c.entries[:len(c.entries)-1]
	}
	c.entries = append(c.entries, e)
}

// Entries returns a copy of the stored entries, newest first.
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[len(c.entries)-1-i] = e
	}
	return out
}

// Len returns the number of stored entries.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every stored entry.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = c.entries[:0]
}

// collectorHandler forwards records to next and copies them into a Collector.
type collectorHandler struct {
	next      slog.Handler
	collector *Collector
	groups    []string
}

func newCollectorHandler(next slog.Handler, c *Collector) *collectorHandler {
	return &collectorHandler{next: next, collector: c}
}

func (h *collectorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *collectorHandler) Handle(ctx context.Context, r slog.Record) error {
	h.collector.Add(r.Level, r.Message, strings.Join(h.groups, "."))
	return h.next.Handle(ctx, r)
}

func (h *collectorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &collectorHandler{next: h.next.WithAttrs(attrs), collector: h.collector, groups: h.groups}
}

func (h *collectorHandler) WithGroup(name string) slog.Handler {
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &collectorHandler{next: h.next.WithGroup(name), collector: h.collector, groups: groups}
}
