package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/johnsaigle/ghstars/pkg/types"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	testStoreContract(t, func(t *testing.T, clock *fakeClock) Store {
		_, client := newTestRedis(t)
		return NewRedisStore(client, WithClock(clock.Now))
	})
}

func TestRedisStore_StoredFormat(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	clock := newFakeClock()
	s := NewRedisStore(client, WithClock(clock.Now))

	key := types.RepoKey{Owner: "octocat", Name: "Hello-World"}
	if err := s.Put(ctx, key, types.Snapshot{Stars: 7}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	raw, err := mr.Get("gh:octocat/Hello-World")
	if err != nil {
		t.Fatalf("raw key missing: %v", err)
	}
	rec, err := decodeRecord([]byte(raw))
	if err != nil {
		t.Fatalf("decode stored value: %v", err)
	}
	if rec.Data.Stars != 7 || rec.TS != clock.Now().UnixMilli() {
		t.Errorf("stored record = %+v", rec)
	}
}

func TestRedisStore_IgnoresForeignKeys(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewRedisStore(client)

	_ = mr.Set("settings:theme", "dark")
	_ = s.Put(ctx, types.RepoKey{Owner: "a", Name: "b"}, testSnapshot(1))

	entries, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("ListAll() = %d entries, want 1", len(entries))
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if !mr.Exists("settings:theme") {
		t.Error("Clear() removed a key outside the repository namespace")
	}
	if n, _ := s.Count(); n != 0 {
		t.Errorf("Count() after Clear = %d, want 0", n)
	}
}

func TestRedisStore_OOMIsQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewRedisStore(client)

	// Establish the pooled connection before the server starts failing commands.
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
	mr.SetError("OOM command not allowed when used memory > 'maxmemory'.")
	err := s.Put(ctx, types.RepoKey{Owner: "a", Name: "b"}, testSnapshot(1))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Put() error = %v, want ErrQuotaExceeded", err)
	}

	mr.SetError("")
	if err := s.Put(ctx, types.RepoKey{Owner: "a", Name: "b"}, testSnapshot(1)); err != nil {
		t.Errorf("Put() after recovery error: %v", err)
	}
}
