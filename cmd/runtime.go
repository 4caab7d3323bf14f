package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/johnsaigle/ghstars/pkg/cache"
	"github.com/johnsaigle/ghstars/pkg/config"
	"github.com/johnsaigle/ghstars/pkg/github"
	"github.com/johnsaigle/ghstars/pkg/lookup"
	"github.com/johnsaigle/ghstars/pkg/maintenance"
	"github.com/johnsaigle/ghstars/pkg/metrics"
)

// managedStore is implemented by every backend.
type managedStore interface {
	cache.Store
	Count() (int, error)
	Clear() error
}

// runtime holds the components a command works with.
type runtime struct {
	store    managedStore
	location string
	github   *github.Client
	counter  *metrics.Counter
	maint    *maintenance.Maintainer
	svc      *lookup.Service
	closers  []func() error
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{counter: metrics.NewCounter()}

	if err := rt.openStore(ctx, cfg.Store); err != nil {
		return nil, err
	}

	opts := []github.Option{
		github.WithLogger(logger),
		github.WithUserAgent("ghstars"),
	}
	if cfg.GitHub.BaseURL != "" {
		opts = append(opts, github.WithBaseURL(cfg.GitHub.BaseURL))
	}
	gh, err := github.NewClient(opts...)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	rt.github = gh

	rt.maint = maintenance.New(rt.store,
		maintenance.WithLogger(logger),
		maintenance.WithStats(rt.counter))
	rt.svc = lookup.NewService(rt.github, rt.store,
		lookup.WithMaintainer(rt.maint),
		lookup.WithLogger(logger),
		lookup.WithStats(rt.counter))

	return rt, nil
}

func (rt *runtime) openStore(ctx context.Context, sc config.StoreConfig) error {
	switch sc.Backend {
	case config.BackendMemory:
		rt.store = cache.NewMemoryStore(sc.MaxItems)
		rt.location = "memory"

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     sc.RedisAddr,
			Password: sc.RedisPassword,
			DB:       sc.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to redis at %s: %w", sc.RedisAddr, err)
		}
		rt.store = cache.NewRedisStore(client)
		rt.location = fmt.Sprintf("redis://%s/%d", sc.RedisAddr, sc.RedisDB)
		rt.closers = append(rt.closers, client.Close)

	default:
		maxBytes := sc.MaxBytes
		if maxBytes == 0 {
			maxBytes = cache.DefaultMaxBytes
		}
		fs, err := cache.NewFileStore(sc.Dir, maxBytes)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		rt.store = fs
		rt.location = fs.Dir()
	}
	return nil
}

// maintainOnStart runs one maintenance pass before a command starts looking
// repositories up. Failures are logged and do not stop the command.
func (rt *runtime) maintainOnStart(ctx context.Context, settings config.Settings) {
	report, err := rt.maint.Run(ctx, maintenance.PolicyFor(settings))
	if err != nil {
		logger.Warn("startup maintenance failed", "err", err)
		return
	}
	logger.Debug("startup maintenance finished",
		"stale", report.Stale, "evicted", report.Evicted, "remaining", report.Remaining)
}

func (rt *runtime) close() {
	for _, c := range rt.closers {
		if err := c(); err != nil {
			logger.Debug("failed to close resource", "err", err)
		}
	}
}
