// Package metrics names the counters ghstars reports and provides an
// in-process stats.Tracker that can be read back for the /stats endpoint.
package metrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/bool64/stats"
)

// Metric names.
const (
	LookupTotal        = "lookup_total"
	CacheWriteFailed   = "cache_write_failed"
	MaintenanceRemoved = "maintenance_removed"
	CacheEntries       = "cache_entries"
)

// Counter is a stats.Tracker that keeps every series in memory.
//
// Series are keyed by name and sorted label pairs, e.g.
// `lookup_total{outcome="found"}`.
type Counter struct {
	mu     sync.Mutex
	values map[string]float64
}

var _ stats.Tracker = (*Counter)(nil)

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{values: make(map[string]float64)}
}

// Add increments a series by delta.
func (c *Counter) Add(_ context.Context, name string, delta float64, labelsAndValues ...string) {
	key := seriesKey(name, labelsAndValues)

	c.mu.Lock()
	c.values[key] += delta
	c.mu.Unlock()
}

// Set stores an absolute value for a series.
func (c *Counter) Set(_ context.Context, name string, absolute float64, labelsAndValues ...string) {
	key := seriesKey(name, labelsAndValues)

	c.mu.Lock()
	c.values[key] = absolute
	c.mu.Unlock()
}

// Value returns the current value of a series.
func (c *Counter) Value(name string, labelsAndValues ...string) float64 {
	key := seriesKey(name, labelsAndValues)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

// Snapshot returns a copy of all series.
func (c *Counter) Snapshot() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]float64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func seriesKey(name string, labelsAndValues []string) string {
	if len(labelsAndValues) < 2 {
		return name
	}

	pairs := make([]string, 0, len(labelsAndValues)/2)
	for i := 0; i+1 < len(labelsAndValues); i += 2 {
		pairs = append(pairs, labelsAndValues[i]+`="`+labelsAndValues[i+1]+`"`)
	}
	sort.Strings(pairs)

	return name + "{" + strings.Join(pairs, ",") + "}"
}
