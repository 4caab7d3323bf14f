package cache

import (
	"context"
	"fmt"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/johnsaigle/ghstars/pkg/types"
)

// MemoryStore is an in-process store bounded by item count.
// Entries never expire on their own; maintenance removes them.
type MemoryStore struct {
	items    *gocache.Cache
	maxItems int
	opts     options

	// mu makes the capacity check and the insert a single step.
	mu sync.Mutex
}

// NewMemoryStore creates a store holding at most maxItems entries.
// Zero or a negative value disables the bound.
func NewMemoryStore(maxItems int, opts ...Option) *MemoryStore {
	return &MemoryStore{
		items:    gocache.New(gocache.NoExpiration, 0),
		maxItems: maxItems,
		opts:     applyOptions(opts),
	}
}

// Get returns the entry for key.
func (m *MemoryStore) Get(ctx context.Context, key types.RepoKey) (*Entry, error) {
	v, ok := m.items.Get(StorageKey(key))
	if !ok {
		return nil, nil
	}
	rec, ok := v.(record)
	if !ok {
		return nil, nil
	}
	e := rec.entry(key, m.opts.now())
	return &e, nil
}

// Put stores the entry for key. A new key is rejected once the store is full.
func (m *MemoryStore) Put(ctx context.Context, key types.RepoKey, snap types.Snapshot) error {
	k := StorageKey(key)
	rec := newRecord(snap, m.opts.now())

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxItems > 0 {
		if _, exists := m.items.Get(k); !exists && m.items.ItemCount() >= m.maxItems {
			return fmt.Errorf("%w: %d items stored", ErrQuotaExceeded, m.maxItems)
		}
	}
	m.items.Set(k, rec, gocache.NoExpiration)
	return nil
}

// RemoveAll deletes keys.
func (m *MemoryStore) RemoveAll(ctx context.Context, keys []types.RepoKey) error {
	for _, key := range keys {
		m.items.Delete(StorageKey(key))
	}
	return nil
}

// ListAll returns a snapshot of all entries.
func (m *MemoryStore) ListAll(ctx context.Context) ([]Entry, error) {
	now := m.opts.now()
	items := m.items.Items()
	entries := make([]Entry, 0, len(items))
	for k, item := range items {
		key, ok := ParseStorageKey(k)
		if !ok {
			continue
		}
		rec, ok := item.Object.(record)
		if !ok {
			continue
		}
		entries = append(entries, rec.entry(key, now))
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (m *MemoryStore) Count() (int, error) {
	return m.items.ItemCount(), nil
}

// Clear drops every entry.
func (m *MemoryStore) Clear() error {
	m.items.Flush()
	return nil
}

var _ Store = (*MemoryStore)(nil)
