package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/johnsaigle/ghstars/pkg/types"
)

// CacheDirName is the directory created under the user cache directory.
const CacheDirName = "ghstars"

const tempPrefix = ".put-"

// FileStore keeps one JSON file per repository in a directory.
//
// Writes go through a temporary file and a rename, so readers never observe
// a partially written entry. The total size of all entries is bounded by
// maxBytes; zero disables the bound.
type FileStore struct {
	dir      string
	maxBytes int64
	opts     options

	// mu serialises quota accounting between concurrent writers.
	mu sync.Mutex
}

// NewFileStore creates a file-backed store in dir, creating it if needed.
// An empty dir selects DefaultDir.
func NewFileStore(dir string, maxBytes int64, opts ...Option) (*FileStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get cache directory: %w", err)
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStore{
		dir:      dir,
		maxBytes: maxBytes,
		opts:     applyOptions(opts),
	}, nil
}

// DefaultDir returns the cache directory for the current user.
func DefaultDir() (string, error) {
	// Try XDG_CACHE_HOME first (Linux/Unix standard)
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, CacheDirName), nil
	}

	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, CacheDirName), nil
}

// Dir returns the directory backing the store.
func (c *FileStore) Dir() string {
	return c.dir
}

// Get reads the entry for key. Unreadable or corrupt files count as a miss.
func (c *FileStore) Get(ctx context.Context, key types.RepoKey) (*Entry, error) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return nil, nil
	}

	e := rec.entry(key, c.opts.now())
	return &e, nil
}

// Put writes the entry for key.
func (c *FileStore) Put(ctx context.Context, key types.RepoKey, snap types.Snapshot) error {
	rec := newRecord(snap, c.opts.now())
	rec.Key = StorageKey(key)

	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	path := c.path(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxBytes > 0 {
		used, err := c.usage(path)
		if err != nil {
			return err
		}
		if used+int64(len(data)) > c.maxBytes {
			return fmt.Errorf("%w: %d of %d bytes in use", ErrQuotaExceeded, used, c.maxBytes)
		}
	}

	if err := writeFileAtomic(c.dir, path, data); err != nil {
		if errors.Is(err, syscall.ENOSPC) {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// RemoveAll deletes the files for keys.
func (c *FileStore) RemoveAll(ctx context.Context, keys []types.RepoKey) error {
	var errs []error
	for _, key := range keys {
		if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListAll reads every entry in the directory, skipping files it cannot parse.
func (c *FileStore) ListAll(ctx context.Context) ([]Entry, error) {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	now := c.opts.now()
	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if f.IsDir() || !isEntryFile(f.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(filepath.Join(c.dir, f.Name()))
		if err != nil {
			continue
		}
		rec, err := decodeRecord(data)
		if err != nil {
			continue
		}
		key, ok := ParseStorageKey(rec.Key)
		if !ok {
			continue
		}
		entries = append(entries, rec.entry(key, now))
	}

	return entries, nil
}

// Clear removes all cached entries and leftover temporary files. Other files
// in the directory are left alone.
func (c *FileStore) Clear() error {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.MkdirAll(c.dir, 0755)
		}
		return err
	}

	var errs []error
	for _, f := range files {
		if f.IsDir() || (!isEntryFile(f.Name()) && !isTempFile(f.Name())) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, f.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of entries on disk.
func (c *FileStore) Count() (int, error) {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for _, f := range files {
		if !f.IsDir() && isEntryFile(f.Name()) {
			count++
		}
	}
	return count, nil
}

// usage sums the size of all entries except the one at skip, which is about
// to be replaced.
func (c *FileStore) usage(skip string) (int64, error) {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var total int64
	for _, f := range files {
		if f.IsDir() || !isEntryFile(f.Name()) {
			continue
		}
		if filepath.Join(c.dir, f.Name()) == skip {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// path returns the full path for a cache file
func (c *FileStore) path(key types.RepoKey) string {
	// Hash the key to create a safe filename
	hash := sha256.Sum256([]byte(StorageKey(key)))
	filename := fmt.Sprintf("%x.json", hash)
	return filepath.Join(c.dir, filename)
}

// isEntryFile reports whether name has the shape path gives entry files: a
// hex SHA-256 digest followed by .json.
func isEntryFile(name string) bool {
	digest, ok := strings.CutSuffix(name, ".json")
	if !ok || len(digest) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(digest)
	return err == nil
}

func isTempFile(name string) bool {
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, ".tmp")
}

func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, tempPrefix+"*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ Store = (*FileStore)(nil)
