package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnsaigle/ghstars/pkg/cache"
	"github.com/johnsaigle/ghstars/pkg/config"
	"github.com/johnsaigle/ghstars/pkg/lookup"
	"github.com/johnsaigle/ghstars/pkg/maintenance"
)

var (
	warmConcurrency int
	warmInputs      targetSources

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the metadata cache",
	}

	cacheSweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale entries and evict down to max_cache_entries",
		Args:  cobra.NoArgs,
		RunE:  runCacheSweep,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and entry ages",
		Args:  cobra.NoArgs,
		RunE:  runCacheStats,
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached entry",
		Args:  cobra.NoArgs,
		RunE:  runCacheClear,
	}

	cachePathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		Args:  cobra.NoArgs,
		RunE:  runCachePath,
	}

	cacheWarmCmd = &cobra.Command{
		Use:   "warm [target...]",
		Short: "Fetch repositories into the cache without printing results",
		RunE:  runCacheWarm,
	}
)

func init() {
	cacheWarmCmd.Flags().IntVar(&warmConcurrency, "concurrency", lookup.DefaultConcurrency, "maximum lookups in flight")
	addTargetFlags(cacheWarmCmd, &warmInputs)

	cacheCmd.AddCommand(cacheSweepCmd, cacheStatsCmd, cacheClearCmd, cachePathCmd, cacheWarmCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	report, err := rt.maint.Run(ctx, maintenance.PolicyFor(cfg.Settings()))
	if err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), "removed %d stale and %d evicted entries, %d remaining",
		report.Stale, report.Evicted, report.Remaining)
	return nil
}

// cacheStats summarises entry ages relative to the configured TTL.
type cacheStats struct {
	Total  int
	Fresh  int
	Stale  int
	Expiry int // older than twice the TTL, removed by the next sweep
	Oldest time.Time
	Newest time.Time
}

func collectCacheStats(entries []cache.Entry, settings config.Settings, now time.Time) cacheStats {
	s := cacheStats{Total: len(entries)}
	for _, e := range entries {
		switch {
		case cache.IsFresh(&e, settings.TTL, now):
			s.Fresh++
		case e.Age(now) > 2*settings.TTL:
			s.Expiry++
		default:
			s.Stale++
		}
		if s.Oldest.IsZero() || e.FetchedAt.Before(s.Oldest) {
			s.Oldest = e.FetchedAt
		}
		if e.FetchedAt.After(s.Newest) {
			s.Newest = e.FetchedAt
		}
	}
	return s
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	entries, err := rt.store.ListAll(ctx)
	if err != nil {
		return err
	}

	settings := cfg.Settings()
	stats := collectCacheStats(entries, settings, time.Now())

	w := cmd.OutOrStdout()
	printKeyValue(w, "backend", cfg.Store.Backend)
	printKeyValue(w, "location", rt.location)
	printKeyValue(w, "entries", stats.Total)
	printKeyValue(w, "max entries", settings.MaxEntries)
	printKeyValue(w, "ttl", settings.TTL)
	printKeyValue(w, "fresh", stats.Fresh)
	printKeyValue(w, "stale", stats.Stale)
	printKeyValue(w, "expired", stats.Expiry)
	if stats.Total > 0 {
		printKeyValue(w, "oldest", stats.Oldest.Local().Format(time.DateTime))
		printKeyValue(w, "newest", stats.Newest.Local().Format(time.DateTime))
	}
	if stats.Total > settings.MaxEntries {
		printWarning(w, "cache holds more than %d entries; run `ghstars cache sweep`", settings.MaxEntries)
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	n, err := rt.store.Count()
	if err != nil {
		return err
	}
	if err := rt.store.Clear(); err != nil {
		return err
	}
	printSuccess(cmd.OutOrStdout(), "cleared %d entries", n)
	return nil
}

func runCachePath(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	fmt.Fprintln(cmd.OutOrStdout(), rt.location)
	return nil
}

func runCacheWarm(cmd *cobra.Command, args []string) error {
	keys, err := warmInputs.collect(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()
	rt.maintainOnStart(ctx, cfg.Settings())

	start := time.Now()
	results := rt.svc.LookupAll(ctx, keys, cfg.Settings(), warmConcurrency)
	summary := lookup.Summarize(results)

	w := cmd.OutOrStdout()
	printSuccess(w, "warmed %d repositories in %s", summary.Total-summary.Unknown-summary.NotFound,
		time.Since(start).Round(time.Millisecond))
	if summary.NotFound > 0 {
		printWarning(w, "%d repositories not found", summary.NotFound)
	}
	if summary.Unknown > 0 {
		printWarning(w, "%d lookups failed", summary.Unknown)
	}
	return nil
}
