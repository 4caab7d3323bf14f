package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/johnsaigle/ghstars/pkg/types"
)

func TestFileStore_Contract(t *testing.T) {
	testStoreContract(t, func(t *testing.T, clock *fakeClock) Store {
		s, err := NewFileStore(t.TempDir(), 0, WithClock(clock.Now))
		if err != nil {
			t.Fatalf("NewFileStore() error: %v", err)
		}
		return s
	})
}

func TestNewFileStore_DefaultDir(t *testing.T) {
	// Use XDG_CACHE_HOME to control the cache directory
	base := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", base)

	s, err := NewFileStore("", 0)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if want := filepath.Join(base, CacheDirName); s.Dir() != want {
		t.Errorf("Dir() = %q, want %q", s.Dir(), want)
	}
	if _, err := os.Stat(s.Dir()); err != nil {
		t.Errorf("cache directory not created: %v", err)
	}
}

func TestFileStore_Quota(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	probe, _ := NewFileStore(t.TempDir(), 0)
	_ = probe.Put(ctx, types.RepoKey{Owner: "a", Name: "a"}, testSnapshot(1))
	info, err := os.Stat(probe.path(types.RepoKey{Owner: "a", Name: "a"}))
	if err != nil {
		t.Fatalf("stat probe entry: %v", err)
	}
	// Room for two entries of this size, not three.
	limit := info.Size()*2 + info.Size()/2

	s, err := NewFileStore(dir, limit)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	a := types.RepoKey{Owner: "a", Name: "a"}
	b := types.RepoKey{Owner: "b", Name: "b"}
	c := types.RepoKey{Owner: "c", Name: "c"}

	if err := s.Put(ctx, a, testSnapshot(1)); err != nil {
		t.Fatalf("Put(a) error: %v", err)
	}
	if err := s.Put(ctx, b, testSnapshot(2)); err != nil {
		t.Fatalf("Put(b) error: %v", err)
	}
	if err := s.Put(ctx, c, testSnapshot(3)); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Put(c) error = %v, want ErrQuotaExceeded", err)
	}

	// Replacing an entry only counts the new size.
	if err := s.Put(ctx, a, testSnapshot(4)); err != nil {
		t.Errorf("overwrite at capacity error: %v", err)
	}

	_ = s.RemoveAll(ctx, []types.RepoKey{b})
	if err := s.Put(ctx, c, testSnapshot(3)); err != nil {
		t.Errorf("Put(c) after removal error: %v", err)
	}
}

func TestFileStore_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir(), 0)
	key := types.RepoKey{Owner: "user", Name: "repo"}

	if err := os.WriteFile(s.path(key), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	e, err := s.Get(ctx, key)
	if err != nil || e != nil {
		t.Errorf("Get() = %+v, %v; want miss", e, err)
	}

	entries, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("ListAll() = %d entries, want 0", len(entries))
	}
}

func TestFileStore_ClearAndCount(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	// Empty cache
	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 0 {
		t.Errorf("empty cache count = %d, want 0", count)
	}

	_ = s.Put(ctx, types.RepoKey{Owner: "user1", Name: "repo1"}, testSnapshot(1))
	_ = s.Put(ctx, types.RepoKey{Owner: "user2", Name: "repo2"}, testSnapshot(2))

	count, _ = s.Count()
	if count != 2 {
		t.Errorf("cache count = %d, want 2", count)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	count, _ = s.Count()
	if count != 0 {
		t.Errorf("count after clear = %d, want 0", count)
	}

	// The store stays usable after Clear.
	if err := s.Put(ctx, types.RepoKey{Owner: "user", Name: "repo"}, testSnapshot(1)); err != nil {
		t.Errorf("Put() after Clear error: %v", err)
	}
}

func TestFileStore_ClearKeepsForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir, 0)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	foreign := []string{"notes.txt", "settings.json"}
	for _, name := range foreign {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("keep"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	leftover := filepath.Join(dir, ".put-123.tmp")
	if err := os.WriteFile(leftover, []byte("partial"), 0600); err != nil {
		t.Fatal(err)
	}
	_ = s.Put(ctx, types.RepoKey{Owner: "user", Name: "repo"}, testSnapshot(1))

	if count, _ := s.Count(); count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	for _, name := range append(foreign, "sub") {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Clear() removed %s: %v", name, err)
		}
	}
	if _, err := os.Stat(leftover); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary file still present after Clear(): %v", err)
	}
	if count, _ := s.Count(); count != 0 {
		t.Errorf("Count() after Clear = %d, want 0", count)
	}
}

func TestFileStore_RoundTripWithRealClock(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir(), 0)
	key := types.RepoKey{Owner: "user", Name: "repo"}

	before := time.Now().Truncate(time.Millisecond)
	if err := s.Put(ctx, key, testSnapshot(5)); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	after := time.Now()

	e, err := s.Get(ctx, key)
	if err != nil || e == nil {
		t.Fatalf("Get() = %+v, %v", e, err)
	}
	if e.FetchedAt.Before(before) || e.FetchedAt.After(after) {
		t.Errorf("FetchedAt %v outside [%v, %v]", e.FetchedAt, before, after)
	}
}

func TestFileStore_PathDeterministic(t *testing.T) {
	s, _ := NewFileStore(t.TempDir(), 0)

	path1 := s.path(types.RepoKey{Owner: "user", Name: "repo"})
	path2 := s.path(types.RepoKey{Owner: "user", Name: "repo"})
	if path1 != path2 {
		t.Error("path should be deterministic for same key")
	}

	path3 := s.path(types.RepoKey{Owner: "user", Name: "other"})
	if path1 == path3 {
		t.Error("path should differ for different keys")
	}
}
