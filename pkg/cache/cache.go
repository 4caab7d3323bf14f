// Package cache stores repository metadata snapshots keyed by owner/name.
//
// A Store is a bounded key-value store with no transactional guarantees.
// Writes may be rejected with ErrQuotaExceeded when the backend is full;
// callers are expected to run maintenance and retry once.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/johnsaigle/ghstars/pkg/types"
)

const (
	// KeyPrefix distinguishes repository entries from unrelated keys in a shared store.
	KeyPrefix = "gh:"
	// DefaultMaxBytes mirrors the 5 MiB quota of browser local storage.
	DefaultMaxBytes = 5 * 1024 * 1024
)

// ErrQuotaExceeded is returned by Put when the backend rejects a write for lack of space.
var ErrQuotaExceeded = errors.New("cache quota exceeded")

// Entry is a stored snapshot together with the time it was fetched.
type Entry struct {
	FetchedAt time.Time
	Snapshot  types.Snapshot
	Key       types.RepoKey
}

// Age returns how long ago the entry was fetched.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// Store maps repository keys to snapshots.
type Store interface {
	// Get returns the entry for key, or nil if none is stored.
	Get(ctx context.Context, key types.RepoKey) (*Entry, error)
	// Put replaces the entry for key, stamping it with the current time.
	Put(ctx context.Context, key types.RepoKey, snap types.Snapshot) error
	// RemoveAll deletes the given keys. Missing keys are ignored.
	RemoveAll(ctx context.Context, keys []types.RepoKey) error
	// ListAll returns every repository entry in the store.
	ListAll(ctx context.Context) ([]Entry, error)
}

// IsFresh reports whether e was fetched less than ttl before now.
func IsFresh(e *Entry, ttl time.Duration, now time.Time) bool {
	if e == nil {
		return false
	}
	return now.Sub(e.FetchedAt) < ttl
}

// StorageKey returns the backend key for a repository, e.g. "gh:owner/name".
func StorageKey(key types.RepoKey) string {
	return KeyPrefix + key.String()
}

// ParseStorageKey is the inverse of StorageKey. It reports false for keys
// that do not belong to the repository namespace.
func ParseStorageKey(s string) (types.RepoKey, bool) {
	rest, ok := strings.CutPrefix(s, KeyPrefix)
	if !ok {
		return types.RepoKey{}, false
	}
	key, err := types.ParseRepoKey(rest)
	if err != nil {
		return types.RepoKey{}, false
	}
	return key, true
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used to stamp and read entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// record is the stored value: {"data": ..., "ts": epoch-millis}.
// Key is only written by backends that cannot recover it from the storage key.
type record struct {
	Key  string         `json:"key,omitempty"`
	Data types.Snapshot `json:"data"`
	TS   int64          `json:"ts"`
}

func newRecord(snap types.Snapshot, now time.Time) record {
	return record{Data: snap, TS: now.UnixMilli()}
}

func (r record) entry(key types.RepoKey, now time.Time) Entry {
	fetchedAt := time.UnixMilli(r.TS).UTC()
	// Entries stamped by a clock running ahead are treated as fetched now.
	if fetchedAt.After(now) {
		fetchedAt = now
	}
	return Entry{Key: key, Snapshot: r.Data, FetchedAt: fetchedAt}
}

func encodeRecord(r record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (record, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return record{}, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return r, nil
}
