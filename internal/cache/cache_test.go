package cache

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(t.TempDir(), ttl, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

// TestFingerprintWhitespaceInvariant verifies that documents differing only
// in surrounding whitespace produce the same key, and that different
// content produces different keys.
func TestFingerprintWhitespaceInvariant(t *testing.T) {
	base := "ERROR connection refused\nWARN retrying"

	variants := []string{
		"ERROR connection refused\nWARN retrying",
		"  ERROR connection refused  \n  WARN retrying  ",
		"\n\nERROR connection refused\nWARN retrying\n\n",
		"ERROR connection refused\r\nWARN retrying",
	}

	want := Fingerprint(base)
	for i, v := range variants {
		if got := Fingerprint(v); got != want {
			t.Errorf("variant %d: Fingerprint = %s, want %s", i, got, want)
		}
	}

	if Fingerprint("ERROR something else") == want {
		t.Error("different content should produce a different fingerprint")
	}
}

// TestFingerprintPreservesInternalBlankLines verifies that blank lines
// between content still distinguish documents.
func TestFingerprintPreservesInternalBlankLines(t *testing.T) {
	a := Fingerprint("line one\nline two")
	b := Fingerprint("line one\n\nline two")
	if a == b {
		t.Error("internal blank lines should affect the fingerprint")
	}
}

// TestGetMiss verifies a lookup on an empty cache misses.
func TestGetMiss(t *testing.T) {
	c := newTestCache(t, time.Hour)

	if got, ok := c.Get("never stored"); ok {
		t.Errorf("expected miss, got hit with %q", got)
	}
}

// TestSetGetRoundTrip verifies a stored analysis is returned on lookup.
func TestSetGetRoundTrip(t *testing.T) {
	c := newTestCache(t, time.Hour)

	doc := "ERROR db down\nERROR db still down"
	c.Set(doc, "the database is down")

	got, ok := c.Get(doc)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got != "the database is down" {
		t.Errorf("Get = %q, want stored analysis", got)
	}

	// Whitespace-shifted form of the same document also hits.
	got, ok = c.Get("  ERROR db down\n  ERROR db still down  ")
	if !ok || got != "the database is down" {
		t.Errorf("whitespace variant should hit, got (%q, %v)", got, ok)
	}
}

// TestGetExpiredEntry verifies that entries past the TTL are treated as
// misses and removed from disk.
func TestGetExpiredEntry(t *testing.T) {
	c := newTestCache(t, time.Hour)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Set("some logs", "analysis")

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, ok := c.Get("some logs"); ok {
		t.Error("expected miss for expired entry")
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("expired entry should be removed, found %d entries", stats.Entries)
	}
}

// TestGetWithinTTL verifies entries younger than the TTL still hit.
func TestGetWithinTTL(t *testing.T) {
	c := newTestCache(t, time.Hour)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Set("some logs", "analysis")

	c.now = func() time.Time { return base.Add(59 * time.Minute) }
	if _, ok := c.Get("some logs"); !ok {
		t.Error("entry within TTL should hit")
	}
}

// TestZeroTTLNeverExpires verifies that ttl <= 0 disables expiry.
func TestZeroTTLNeverExpires(t *testing.T) {
	c := newTestCache(t, 0)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Set("some logs", "analysis")

	c.now = func() time.Time { return base.AddDate(10, 0, 0) }
	if _, ok := c.Get("some logs"); !ok {
		t.Error("entry should never expire with zero TTL")
	}
}

// TestGetCorruptEntry verifies a malformed entry file is a miss, not a failure.
func TestGetCorruptEntry(t *testing.T) {
	c := newTestCache(t, time.Hour)

	doc := "some logs"
	path := c.entryPath(Fingerprint(doc))
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to plant corrupt entry: %v", err)
	}

	if _, ok := c.Get(doc); ok {
		t.Error("corrupt entry should be a miss")
	}
}

// TestClearAll verifies Clear(0) removes every entry.
func TestClearAll(t *testing.T) {
	c := newTestCache(t, time.Hour)

	c.Set("doc one", "a")
	c.Set("doc two", "b")
	c.Set("doc three", "c")

	deleted, err := c.Clear(0)
	if err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Clear(0) = %d, want 3", deleted)
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("entries after clear = %d, want 0", stats.Entries)
	}
}

// TestClearOlderThan verifies the cutoff only removes old entries.
func TestClearOlderThan(t *testing.T) {
	c := newTestCache(t, 24*time.Hour)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	c.now = func() time.Time { return base }
	c.Set("old document", "old analysis")

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	c.Set("new document", "new analysis")

	c.now = func() time.Time { return base.Add(3 * time.Hour) }
	deleted, err := c.Clear(90 * time.Minute)
	if err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Clear(90m) = %d, want 1", deleted)
	}

	if _, ok := c.Get("old document"); ok {
		t.Error("old entry should have been cleared")
	}
	if _, ok := c.Get("new document"); !ok {
		t.Error("new entry should have survived the clear")
	}
}

// TestClearKeepsCorruptEntriesWithCutoff verifies that unparsable entries
// are skipped when a cutoff is given, but removed by a full clear.
func TestClearKeepsCorruptEntriesWithCutoff(t *testing.T) {
	c := newTestCache(t, time.Hour)

	path := filepath.Join(c.dir, "deadbeef.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to plant corrupt entry: %v", err)
	}

	deleted, err := c.Clear(time.Minute)
	if err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("cutoff clear should skip corrupt entries, deleted %d", deleted)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("corrupt entry should still exist: %v", err)
	}

	deleted, err = c.Clear(0)
	if err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("full clear should remove corrupt entries, deleted %d", deleted)
	}
}

// TestStats verifies entry counting and size accumulation.
func TestStats(t *testing.T) {
	c := newTestCache(t, time.Hour)

	c.Set("doc one", "first analysis")
	c.Set("doc two", "second analysis")

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}
	if stats.TotalBytes <= 0 {
		t.Errorf("TotalBytes = %d, want > 0", stats.TotalBytes)
	}
}

// TestNewNilLogger verifies that nil logger is rejected.
func TestNewNilLogger(t *testing.T) {
	_, err := New(t.TempDir(), time.Hour, nil)
	if err == nil {
		t.Error("New() should reject nil logger")
	}
}

// TestNewCreatesDirectory verifies the cache directory is created on demand.
func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	if _, err := New(dir, time.Hour, testLogger()); err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("cache directory missing: %v", err)
	}
	if !info.IsDir() {
		t.Error("cache path is not a directory")
	}
}
