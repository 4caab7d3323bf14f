package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/johnsaigle/ghstars/pkg/types"
)

const redisScanBatch = 100

// RedisStore keeps entries as JSON strings in Redis under "gh:owner/name".
// A server running with maxmemory and a noeviction policy rejects writes
// with an OOM error, which is reported as ErrQuotaExceeded.
type RedisStore struct {
	client redis.UniversalClient
	opts   options
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: applyOptions(opts)}
}

// Get returns the entry for key.
func (r *RedisStore) Get(ctx context.Context, key types.RepoKey) (*Entry, error) {
	data, err := r.client.Get(ctx, StorageKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return nil, nil
	}
	e := rec.entry(key, r.opts.now())
	return &e, nil
}

// Put writes the entry for key without expiry.
func (r *RedisStore) Put(ctx context.Context, key types.RepoKey, snap types.Snapshot) error {
	data, err := encodeRecord(newRecord(snap, r.opts.now()))
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, StorageKey(key), data, 0).Err(); err != nil {
		if isOOM(err) {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// RemoveAll deletes keys in a single command.
func (r *RedisStore) RemoveAll(ctx context.Context, keys []types.RepoKey) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = StorageKey(key)
	}
	return r.client.Del(ctx, names...).Err()
}

// ListAll scans the repository namespace and loads entries in batches.
func (r *RedisStore) ListAll(ctx context.Context) ([]Entry, error) {
	names, err := r.scanKeys(ctx)
	if err != nil {
		return nil, err
	}

	now := r.opts.now()
	entries := make([]Entry, 0, len(names))
	for start := 0; start < len(names); start += redisScanBatch {
		end := min(start+redisScanBatch, len(names))
		batch := names[start:end]

		values, err := r.client.MGet(ctx, batch...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to load cache entries: %w", err)
		}

		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				// Deleted between SCAN and MGET.
				continue
			}
			key, ok := ParseStorageKey(batch[i])
			if !ok {
				continue
			}
			rec, err := decodeRecord([]byte(s))
			if err != nil {
				continue
			}
			entries = append(entries, rec.entry(key, now))
		}
	}
	return entries, nil
}

// Count returns the number of repository keys.
func (r *RedisStore) Count() (int, error) {
	names, err := r.scanKeys(context.Background())
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// Clear deletes every repository key, leaving unrelated keys alone.
func (r *RedisStore) Clear() error {
	ctx := context.Background()
	names, err := r.scanKeys(ctx)
	if err != nil {
		return err
	}
	for start := 0; start < len(names); start += redisScanBatch {
		end := min(start+redisScanBatch, len(names))
		if err := r.client.Del(ctx, names[start:end]...).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisStore) scanKeys(ctx context.Context) ([]string, error) {
	var names []string
	iter := r.client.Scan(ctx, 0, KeyPrefix+"*", redisScanBatch).Iterator()
	for iter.Next(ctx) {
		names = append(names, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return names, nil
}

func isOOM(err error) bool {
	return strings.HasPrefix(err.Error(), "OOM ")
}

var _ Store = (*RedisStore)(nil)
