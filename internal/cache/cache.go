// Package cache persists analysis results on disk, keyed by document
// content. Repeated analysis of identical input (ignoring leading and
// trailing whitespace per line) is served from disk instead of the LLM.
//
// The cache fails open: read or write problems are logged as warnings
// and treated as misses, never surfaced to the analysis pipeline.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache is a content-addressed store of analysis results with lazy TTL
// expiry. Entries are single JSON files named by fingerprint.
type Cache struct {
	dir    string
	ttl    time.Duration
	logger *slog.Logger

	now func() time.Time
}

// Stats summarizes the on-disk cache state.
type Stats struct {
	// Entries is the number of cached results
	Entries int

	// TotalBytes is the combined size of all entry files
	TotalBytes int64
}

// entry is the on-disk representation of one cached result.
type entry struct {
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	Analysis    string    `json:"analysis"`
}

// New creates a cache rooted at dir, creating the directory if needed.
// Entries older than ttl are expired on read; ttl <= 0 disables expiry.
func New(dir string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Cache{
		dir:    dir,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Fingerprint returns the cache key for a document: the hex SHA-256 of
// its content after trimming each line and the document ends. Two
// documents that differ only in surrounding whitespace share a key.
func Fingerprint(document string) string {
	lines := strings.Split(strings.TrimSpace(document), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	normalized := strings.Join(lines, "\n")

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get looks up the analysis for a document. Returns false on a miss,
// an expired entry, or any read problem.
func (c *Cache) Get(document string) (string, bool) {
	key := Fingerprint(document)
	path := c.entryPath(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("failed to read cache entry", "key", shortKey(key), "error", err)
		}
		return "", false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("corrupt cache entry", "key", shortKey(key), "error", err)
		return "", false
	}

	if c.ttl > 0 && c.now().Sub(e.CreatedAt) > c.ttl {
		c.logger.Debug("cache entry expired", "key", shortKey(key))
		if err := os.Remove(path); err != nil {
			c.logger.Warn("failed to remove expired cache entry", "key", shortKey(key), "error", err)
		}
		return "", false
	}

	c.logger.Info("cache hit", "key", shortKey(key))
	return e.Analysis, true
}

// Set stores the analysis for a document. Write failures are logged
// and otherwise ignored.
func (c *Cache) Set(document, analysis string) {
	key := Fingerprint(document)

	data, err := json.MarshalIndent(entry{
		Fingerprint: key,
		CreatedAt:   c.now(),
		Analysis:    analysis,
	}, "", "  ")
	if err != nil {
		c.logger.Warn("failed to encode cache entry", "key", shortKey(key), "error", err)
		return
	}

	if err := os.WriteFile(c.entryPath(key), data, 0o644); err != nil {
		c.logger.Warn("failed to write cache entry", "key", shortKey(key), "error", err)
		return
	}

	c.logger.Info("cached analysis", "key", shortKey(key))
}

// Clear removes cache entries and reports how many were deleted.
// With olderThan > 0 only entries created before now-olderThan are
// removed; entries that cannot be parsed are kept with a warning.
// With olderThan <= 0 every entry is removed.
func (c *Cache) Clear(olderThan time.Duration) (int, error) {
	names, err := c.entryNames()
	if err != nil {
		return 0, err
	}

	var cutoff time.Time
	if olderThan > 0 {
		cutoff = c.now().Add(-olderThan)
	}

	deleted := 0
	for _, name := range names {
		path := filepath.Join(c.dir, name)

		if !cutoff.IsZero() {
			data, err := os.ReadFile(path)
			if err != nil {
				c.logger.Warn("failed to read cache entry during clear", "file", name, "error", err)
				continue
			}
			var e entry
			if err := json.Unmarshal(data, &e); err != nil {
				c.logger.Warn("skipping corrupt cache entry during clear", "file", name, "error", err)
				continue
			}
			if e.CreatedAt.After(cutoff) {
				continue
			}
		}

		if err := os.Remove(path); err != nil {
			c.logger.Warn("failed to delete cache entry", "file", name, "error", err)
			continue
		}
		deleted++
	}

	c.logger.Info("cleared cache entries", "deleted", deleted)
	return deleted, nil
}

// Stats reports the current entry count and total size on disk.
func (c *Cache) Stats() (Stats, error) {
	names, err := c.entryNames()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Entries: len(names)}
	for _, name := range names {
		info, err := os.Stat(filepath.Join(c.dir, name))
		if err != nil {
			continue
		}
		stats.TotalBytes += info.Size()
	}

	return stats, nil
}

// entryNames lists the .json entry files in the cache directory.
func (c *Cache) entryNames() ([]string, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		names = append(names, de.Name())
	}
	return names, nil
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// shortKey abbreviates a fingerprint for log lines.
func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
