package lookup

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/johnsaigle/ghstars/pkg/config"
	"github.com/johnsaigle/ghstars/pkg/types"
)

// DefaultConcurrency bounds LookupAll when no limit is given.
const DefaultConcurrency = 4

// LookupAll resolves keys concurrently, at most concurrency at a time.
// Results are returned in the order of keys.
func (s *Service) LookupAll(ctx context.Context, keys []types.RepoKey, settings config.Settings, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]Result, len(keys))

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			results[i] = s.Lookup(ctx, key, settings)
			return nil
		})
	}

	// Lookup reports failures in its Result, so Wait never returns an error.
	_ = g.Wait()
	return results
}
