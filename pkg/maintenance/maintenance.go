// Package maintenance keeps a cache.Store within its bounds.
//
// Two passes exist: a sweep that drops entries older than twice the TTL, and
// an eviction that trims the store to 80% of its capacity once it grows past
// it, oldest first. Both work from a single ListAll snapshot and only ever
// delete, so running them concurrently with lookups is safe.
package maintenance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bool64/stats"

	"github.com/johnsaigle/ghstars/pkg/cache"
	"github.com/johnsaigle/ghstars/pkg/config"
	"github.com/johnsaigle/ghstars/pkg/metrics"
	"github.com/johnsaigle/ghstars/pkg/types"
)

// Policy holds the bounds a maintenance run enforces.
type Policy struct {
	TTL        time.Duration
	MaxEntries int
}

// PolicyFor derives a Policy from lookup settings.
func PolicyFor(s config.Settings) Policy {
	return Policy{TTL: s.TTL, MaxEntries: s.MaxEntries}
}

// Report summarises one Run.
type Report struct {
	Stale     int `json:"stale"`
	Evicted   int `json:"evicted"`
	Remaining int `json:"remaining"`
}

// Removed returns the total number of deleted entries.
func (r Report) Removed() int {
	return r.Stale + r.Evicted
}

// Maintainer runs maintenance passes against a store.
type Maintainer struct {
	store cache.Store
	log   *slog.Logger
	stat  stats.Tracker
	now   func() time.Time

	// mu keeps runs from overlapping. Lookups are never blocked by it.
	mu sync.Mutex
}

// Option configures a Maintainer.
type Option func(*Maintainer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Maintainer) {
		if l != nil {
			m.log = l
		}
	}
}

// WithStats sets the metrics tracker.
func WithStats(t stats.Tracker) Option {
	return func(m *Maintainer) {
		if t != nil {
			m.stat = t
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Maintainer) {
		m.now = now
	}
}

// New creates a Maintainer for store.
func New(store cache.Store, opts ...Option) *Maintainer {
	m := &Maintainer{
		store: store,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		stat:  stats.NoOp{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SweepStale removes every entry whose age exceeds twice ttl.
// A non-positive ttl disables the pass.
func (m *Maintainer) SweepStale(ctx context.Context, ttl time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed, _, err := m.sweep(ctx, ttl)
	return removed, err
}

// EvictOldest trims the store to 80% of maxEntries, oldest first, once it
// holds more than maxEntries. A non-positive maxEntries disables the pass.
func (m *Maintainer) EvictOldest(ctx context.Context, maxEntries int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed, _, err := m.evict(ctx, maxEntries)
	return removed, err
}

// Run sweeps stale entries and then evicts down to the policy's bound.
func (m *Maintainer) Run(ctx context.Context, p Policy) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var report Report
	var err error

	report.Stale, report.Remaining, err = m.sweep(ctx, p.TTL)
	if err != nil {
		return report, err
	}

	if p.MaxEntries > 0 {
		report.Evicted, report.Remaining, err = m.evict(ctx, p.MaxEntries)
		if err != nil {
			return report, err
		}
	}

	m.stat.Set(ctx, metrics.CacheEntries, float64(report.Remaining))
	m.log.Debug("cache maintenance finished",
		"stale", report.Stale,
		"evicted", report.Evicted,
		"remaining", report.Remaining)

	return report, nil
}

// Schedule runs p immediately and then every interval until ctx is done.
// A non-positive interval runs once. Failed runs are logged and retried on the
// next tick.
func (m *Maintainer) Schedule(ctx context.Context, interval time.Duration, p Policy) {
	m.runLogged(ctx, p)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runLogged(ctx, p)
		}
	}
}

func (m *Maintainer) runLogged(ctx context.Context, p Policy) {
	if _, err := m.Run(ctx, p); err != nil && ctx.Err() == nil {
		m.log.Warn("cache maintenance failed", "err", err)
	}
}

// sweep returns the number removed and the number left in the snapshot.
func (m *Maintainer) sweep(ctx context.Context, ttl time.Duration) (int, int, error) {
	entries, err := m.store.ListAll(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list cache entries: %w", err)
	}
	if ttl <= 0 {
		return 0, len(entries), nil
	}

	now := m.now()
	limit := 2 * ttl

	var stale []types.RepoKey
	for _, e := range entries {
		if e.Age(now) > limit {
			stale = append(stale, e.Key)
		}
	}

	if err := m.remove(ctx, stale, "stale"); err != nil {
		return 0, len(entries), err
	}
	return len(stale), len(entries) - len(stale), nil
}

func (m *Maintainer) evict(ctx context.Context, maxEntries int) (int, int, error) {
	entries, err := m.store.ListAll(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list cache entries: %w", err)
	}
	if maxEntries <= 0 || len(entries) <= maxEntries {
		return 0, len(entries), nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].FetchedAt.Before(entries[j].FetchedAt)
	})

	target := maxEntries * 4 / 5
	excess := len(entries) - target

	keys := make([]types.RepoKey, 0, excess)
	for _, e := range entries[:excess] {
		keys = append(keys, e.Key)
	}

	if err := m.remove(ctx, keys, "evict"); err != nil {
		return 0, len(entries), err
	}
	return excess, target, nil
}

func (m *Maintainer) remove(ctx context.Context, keys []types.RepoKey, pass string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := m.store.RemoveAll(ctx, keys); err != nil {
		return fmt.Errorf("failed to remove %d %s entries: %w", len(keys), pass, err)
	}

	m.stat.Add(ctx, metrics.MaintenanceRemoved, float64(len(keys)), "pass", pass)
	m.log.Info("removed cache entries", "pass", pass, "removed", len(keys))
	return nil
}
