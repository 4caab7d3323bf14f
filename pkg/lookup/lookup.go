// Package lookup answers "how many stars does owner/name have, and is it
// still alive" from the cache when it can and from GitHub when it must.
//
// A fresh cache entry is served after a cheap existence probe; anything else
// triggers a full fetch. Fetch failures fall back to whatever is cached, except
// that a repository GitHub reports as missing is never served from the cache.
package lookup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/bool64/stats"

	"github.com/johnsaigle/ghstars/pkg/cache"
	"github.com/johnsaigle/ghstars/pkg/config"
	"github.com/johnsaigle/ghstars/pkg/github"
	"github.com/johnsaigle/ghstars/pkg/maintenance"
	"github.com/johnsaigle/ghstars/pkg/metrics"
	"github.com/johnsaigle/ghstars/pkg/types"
)

// Fetcher retrieves repository metadata. Not-found errors must wrap
// github.ErrNotFound.
type Fetcher interface {
	Fetch(ctx context.Context, key types.RepoKey, token string) (types.Snapshot, error)
	Exists(ctx context.Context, key types.RepoKey, token string) (bool, error)
}

// Maintainer frees space in the store when a write hits its quota.
type Maintainer interface {
	Run(ctx context.Context, p maintenance.Policy) (maintenance.Report, error)
}

// Service runs lookups against a fetcher and a store.
type Service struct {
	fetcher Fetcher
	store   cache.Store
	maint   Maintainer
	log     *slog.Logger
	stat    stats.Tracker
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMaintainer overrides the maintainer used on quota errors.
func WithMaintainer(m Maintainer) Option {
	return func(s *Service) {
		s.maint = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStats sets the metrics tracker.
func WithStats(t stats.Tracker) Option {
	return func(s *Service) {
		if t != nil {
			s.stat = t
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service. Without WithMaintainer, quota errors are
// handled by a maintenance.Maintainer over store.
func NewService(fetcher Fetcher, store cache.Store, opts ...Option) *Service {
	s := &Service{
		fetcher: fetcher,
		store:   store,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		stat:    stats.NoOp{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maint == nil {
		s.maint = maintenance.New(store,
			maintenance.WithLogger(s.log),
			maintenance.WithStats(s.stat),
			maintenance.WithClock(s.now))
	}
	return s
}

// Lookup resolves key using settings. It always returns a Result; failures
// are reported through Result.Kind.
func (s *Service) Lookup(ctx context.Context, key types.RepoKey, settings config.Settings) Result {
	settings = settings.Normalize()

	res := s.lookup(ctx, key, settings)
	res.Key = key

	s.stat.Add(ctx, metrics.LookupTotal, 1, "outcome", res.Kind.String())
	s.log.Debug("lookup finished", "repo", key, "outcome", res.Kind, "cached", res.FromCache)
	return res
}

func (s *Service) lookup(ctx context.Context, key types.RepoKey, settings config.Settings) Result {
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		s.log.Warn("failed to read cache entry", "repo", key, "err", err)
		entry = nil
	}

	now := s.now()
	if cache.IsFresh(entry, settings.TTL, now) {
		return s.revalidate(ctx, key, entry, settings)
	}
	return s.fetch(ctx, key, entry, settings)
}

// revalidate serves a fresh entry unless GitHub says the repository is gone.
func (s *Service) revalidate(ctx context.Context, key types.RepoKey, entry *cache.Entry, settings config.Settings) Result {
	exists, err := s.fetcher.Exists(ctx, key, settings.Token)
	if err != nil {
		s.log.Debug("existence check failed, serving cached entry", "repo", key, "err", err)
	} else if !exists {
		return notFound()
	}

	return fromSnapshot(KindFound, entry.Snapshot, entry.FetchedAt, true, settings, s.now())
}

func (s *Service) fetch(ctx context.Context, key types.RepoKey, entry *cache.Entry, settings config.Settings) Result {
	snap, err := s.fetcher.Fetch(ctx, key, settings.Token)
	if err == nil {
		fetchedAt := s.now()
		s.save(ctx, key, snap, settings)
		return fromSnapshot(KindFound, snap, fetchedAt, false, settings, fetchedAt)
	}

	if errors.Is(err, github.ErrNotFound) {
		return notFound()
	}

	if entry != nil {
		s.log.Warn("fetch failed, serving stale cache entry", "repo", key, "err", err)
		return fromSnapshot(KindStaleFallback, entry.Snapshot, entry.FetchedAt, true, settings, s.now())
	}

	s.log.Warn("fetch failed", "repo", key, "err", err)
	return Result{Kind: KindFailure, Message: err.Error(), DaysSinceLastPush: -1}
}

// save writes snap, running maintenance and retrying once if the store is
// full. A write that still fails is logged and dropped.
func (s *Service) save(ctx context.Context, key types.RepoKey, snap types.Snapshot, settings config.Settings) {
	err := s.store.Put(ctx, key, snap)
	if errors.Is(err, cache.ErrQuotaExceeded) {
		s.log.Warn("cache quota exceeded, running maintenance", "repo", key)
		if _, merr := s.maint.Run(ctx, maintenance.PolicyFor(settings)); merr != nil {
			s.log.Warn("cache maintenance failed", "err", merr)
		}
		err = s.store.Put(ctx, key, snap)
	}
	if err != nil {
		s.stat.Add(ctx, metrics.CacheWriteFailed, 1)
		s.log.Warn("failed to write cache entry", "repo", key, "err", err)
	}
}
