// Package cache provides a file-based cache for per-file match results.
//
// Entries are keyed by the file's content hash plus the query digest, the
// language tag and the target capture, so any change to the file or the
// search invalidates the entry naturally.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/treegrep/treegrep/pkg/matcher"
)

// Cache stores match results on disk with a TTL.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry is one cached result set.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Matches   []matcher.Range `json:"matches"`
}

// New creates a cache instance. A disabled cache is a no-op on every call.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache is active.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Key derives the cache key for one (file, query, language, capture) tuple.
// The file's decoded bytes are hashed with BLAKE3; queryDigest is the
// xxhash of the query source.
func Key(data []byte, queryDigest uint64, lang, capture string) string {
	hash := blake3.Sum256(data)
	return fmt.Sprintf("%s-%016x-%s-%s", hex.EncodeToString(hash[:]), queryDigest, lang, capture)
}

// Get retrieves cached matches if present and not expired.
func (c *Cache) Get(key string) ([]matcher.Range, bool) {
	if !c.enabled {
		return nil, false
	}

	path := c.keyPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if time.Since(entry.Timestamp) > c.ttl {
		os.Remove(path)
		return nil, false
	}
	return entry.Matches, true
}

// Set stores matches for key.
func (c *Cache) Set(key string, matches []matcher.Range) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(Entry{Timestamp: time.Now(), Matches: matches})
	if err != nil {
		return err
	}
	return os.WriteFile(c.keyPath(key), data, 0600)
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath converts a key to a filesystem path. The key is hashed again so
// filenames stay fixed-length.
func (c *Cache) keyPath(key string) string {
	hash := blake3.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}
