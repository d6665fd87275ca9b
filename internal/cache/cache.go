// Package cache keeps computed analyses on disk so unchanged record files
// are not re-analyzed.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// formatVersion is bumped whenever the entry layout changes; entries
// written by another version are misses.
const formatVersion = 1

const entryExt = ".json"

// Cache stores computed analyses on disk, keyed by analysis name and
// validated against a fingerprint of the inputs that produced them.
// A disabled cache misses on every read and discards every write.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

type entry struct {
	Version   int             `json:"version"`
	Key       string          `json:"key"`
	Hash      string          `json:"hash"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New creates the cache directory when enabled. A ttlHours of 0 keeps
// entries until their fingerprint changes.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache reads and writes entries.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Fingerprint hashes record file contents together with the parameters of
// an analysis. File order does not matter; a change to any file byte, path,
// or parameter produces a different fingerprint.
func Fingerprint(files map[string][]byte, params any) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", err
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := blake3.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(HashBytes(files[p])))
		h.Write([]byte{0})
	}
	h.Write(encoded)

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Load decodes the entry for key into v. It reports false on a miss: no
// entry, a different hash, an expired entry, or bytes that no longer decode.
// Expired entries are removed.
func (c *Cache) Load(key, hash string, v any) bool {
	if !c.enabled {
		return false
	}

	path := c.keyPath(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return false
	}
	if e.Version != formatVersion || e.Key != key || e.Hash != hash {
		return false
	}
	if c.ttl > 0 && time.Since(e.Timestamp) > c.ttl {
		os.Remove(path)
		return false
	}

	return json.Unmarshal(e.Data, v) == nil
}

// Store encodes v as JSON and writes it under key. The file is replaced
// atomically so concurrent readers never see a partial entry.
func (c *Cache) Store(key, hash string, v any) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(entry{
		Version:   formatVersion,
		Key:       key,
		Hash:      hash,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.keyPath(key))
}

// Clear removes every entry. The cache directory itself is kept.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	var errs []error
	err := c.walkEntries(func(path string, _ fs.FileInfo) {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	})
	return errors.Join(append(errs, err)...)
}

// keyPath converts a key to a filesystem path inside the cache directory.
func (c *Cache) keyPath(key string) string {
	hash := blake3.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+entryExt)
}

func (c *Cache) walkEntries(fn func(path string, info fs.FileInfo)) error {
	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entryExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		fn(filepath.Join(c.dir, de.Name()), info)
	}
	return nil
}

// Stats summarizes the cache directory.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
}

// GetStats returns statistics about the cache.
func (c *Cache) GetStats() (*Stats, error) {
	stats := &Stats{}
	if !c.enabled {
		return stats, nil
	}

	var oldest, newest time.Time
	err := c.walkEntries(func(_ string, info fs.FileInfo) {
		stats.Entries++
		stats.TotalSize += info.Size()

		mod := info.ModTime()
		if oldest.IsZero() || mod.Before(oldest) {
			oldest = mod
		}
		if newest.IsZero() || mod.After(newest) {
			newest = mod
		}
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		now := time.Now()
		stats.OldestAge = now.Sub(oldest)
		stats.NewestAge = now.Sub(newest)
	}
	return stats, nil
}
