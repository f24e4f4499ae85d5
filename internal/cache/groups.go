// Package cache keeps log-group listings on disk so repeated lookups do not
// hit the DescribeLogGroups API. It never stores search results.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const DefaultTTL = 10 * time.Minute

type GroupCache struct {
	dir     string
	maxSize int64         // max total cache size in bytes
	ttl     time.Duration // cache entry TTL
	now     func() time.Time
}

// Entry is one cached listing for a region and name prefix.
type Entry struct {
	Region   string    `json:"region"`
	Prefix   string    `json:"prefix,omitempty"`
	Groups   []string  `json:"groups"`
	StoredAt time.Time `json:"stored_at"`

	Path string `json:"-"`
	Size int64  `json:"-"`
}

func NewGroupCache(dir string, maxSizeMB int, ttl time.Duration) (*GroupCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create group cache dir: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &GroupCache{
		dir:     dir,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// DefaultDir is the per-user cache location.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(base, "log-hound"), nil
}

func (gc *GroupCache) entryPath(region, prefix string) string {
	sum := sha256.Sum256([]byte(prefix))
	return filepath.Join(gc.dir, fmt.Sprintf("groups-%s-%s.json", region, hex.EncodeToString(sum[:6])))
}

// Get returns a fresh listing, or false if there is none or it expired.
func (gc *GroupCache) Get(region, prefix string) ([]string, bool) {
	e, err := gc.read(gc.entryPath(region, prefix))
	if err != nil || e.Region != region || e.Prefix != prefix {
		return nil, false
	}
	if gc.now().Sub(e.StoredAt) >= gc.ttl {
		return nil, false
	}
	return e.Groups, true
}

// Put stores a listing and evicts stale entries.
func (gc *GroupCache) Put(region, prefix string, groups []string) error {
	data, err := json.Marshal(Entry{Region: region, Prefix: prefix, Groups: groups, StoredAt: gc.now()})
	if err != nil {
		return err
	}
	path := gc.entryPath(region, prefix)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write group cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write group cache: %w", err)
	}
	return gc.Evict()
}

// Load returns the listing for region and prefix from the cache, calling
// fetch and storing its result on a miss or when refresh is set. The
// second result reports whether the listing came from the cache. A failed
// store is not an error; the fetched listing is still returned.
func (gc *GroupCache) Load(ctx context.Context, region, prefix string, refresh bool,
	fetch func(ctx context.Context, region, prefix string) ([]string, error)) ([]string, bool, error) {
	if !refresh {
		if groups, ok := gc.Get(region, prefix); ok {
			return groups, true, nil
		}
	}
	groups, err := fetch(ctx, region, prefix)
	if err != nil {
		return nil, false, err
	}
	_ = gc.Put(region, prefix, groups)
	return groups, false, nil
}

func (gc *GroupCache) read(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	e.Path = path
	e.Size = int64(len(data))
	return &e, nil
}

// Evict removes expired and oversized cache entries.
func (gc *GroupCache) Evict() error {
	entries, err := gc.ListEntries()
	if err != nil {
		return err
	}

	var totalSize int64
	now := gc.now()
	remaining := entries[:0]
	for _, e := range entries {
		if now.Sub(e.StoredAt) > gc.ttl {
			os.Remove(e.Path)
			continue
		}
		remaining = append(remaining, e)
		totalSize += e.Size
	}
	entries = remaining

	// Oldest first once over the size cap.
	if gc.maxSize > 0 && totalSize > gc.maxSize {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].StoredAt.Before(entries[j].StoredAt)
		})
		for _, e := range entries {
			if totalSize <= gc.maxSize {
				break
			}
			os.Remove(e.Path)
			totalSize -= e.Size
		}
	}
	return nil
}

// ListEntries returns every readable entry, expired ones included.
func (gc *GroupCache) ListEntries() ([]Entry, error) {
	files, err := os.ReadDir(gc.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var result []Entry
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasPrefix(name, "groups-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		e, err := gc.read(filepath.Join(gc.dir, name))
		if err != nil {
			continue
		}
		result = append(result, *e)
	}
	return result, nil
}

func (gc *GroupCache) DeleteEntry(region, prefix string) error {
	err := os.Remove(gc.entryPath(region, prefix))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// DeleteAll removes all cache entries.
func (gc *GroupCache) DeleteAll() error {
	entries, err := gc.ListEntries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		os.Remove(e.Path)
	}
	return nil
}

// TotalSize returns total cache size in bytes.
func (gc *GroupCache) TotalSize() (int64, error) {
	entries, err := gc.ListEntries()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total, nil
}
