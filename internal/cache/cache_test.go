package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")

	c, err := New(dir, 24, true)
	require.NoError(t, err)
	assert.True(t, c.Enabled())
	_, err = os.Stat(dir)
	assert.NoError(t, err, "New() should create cache directory")

	c, err = New("", 0, false)
	require.NoError(t, err)
	assert.False(t, c.Enabled())
}

func TestStoreAndLoad(t *testing.T) {
	c := newTestCache(t)
	want := summary{Mean: 81.5, Count: 4}

	require.NoError(t, c.Store("bins", "h1", want))

	var got summary
	require.True(t, c.Load("bins", "h1", &got))
	assert.Equal(t, want, got)

	assert.False(t, c.Load("bins", "h2", &got), "hash mismatch should miss")
	assert.False(t, c.Load("trend", "h1", &got), "unknown key should miss")

	require.NoError(t, c.Store("bins", "h2", summary{Count: 1}))
	assert.False(t, c.Load("bins", "h1", &got), "newer entry replaces the old one")
}

func TestEntryIsReadableJSON(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store("report", "h", summary{Mean: 70, Count: 2}))

	raw, err := os.ReadFile(c.keyPath("report"))
	require.NoError(t, err)

	var e map[string]any
	require.NoError(t, json.Unmarshal(raw, &e))
	assert.Equal(t, "report", e["key"])
	assert.Equal(t, map[string]any{"mean": float64(70), "count": float64(2)}, e["data"])

	leftovers, err := filepath.Glob(filepath.Join(c.dir, "tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp files should be renamed or removed")
}

func TestLoadRejectsBadEntries(t *testing.T) {
	c := newTestCache(t)
	var got summary

	require.NoError(t, os.WriteFile(c.keyPath("broken"), []byte("{not json"), 0o600))
	assert.False(t, c.Load("broken", "h", &got))

	old, err := json.Marshal(entry{Version: formatVersion + 1, Key: "old", Hash: "h", Timestamp: time.Now(), Data: json.RawMessage(`{}`)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.keyPath("old"), old, 0o600))
	assert.False(t, c.Load("old", "h", &got), "other format versions should miss")

	require.NoError(t, c.Store("shape", "h", []int{1, 2}))
	assert.False(t, c.Load("shape", "h", &got), "data that no longer decodes should miss")
}

func TestClear(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Store("a", "h", 1))
	require.NoError(t, c.Store("b", "h", 2))
	require.NoError(t, os.WriteFile(filepath.Join(c.dir, "notes.txt"), []byte("keep"), 0o600))

	require.NoError(t, c.Clear())

	var v int
	assert.False(t, c.Load("a", "h", &v))
	assert.False(t, c.Load("b", "h", &v))
	_, err := os.Stat(filepath.Join(c.dir, "notes.txt"))
	assert.NoError(t, err, "Clear should only remove entries")

	require.NoError(t, c.Store("a", "h", 3), "cache should stay usable after Clear")
	require.True(t, c.Load("a", "h", &v))
	assert.Equal(t, 3, v)
}

func TestDisabledCache(t *testing.T) {
	c, err := New("", 0, false)
	require.NoError(t, err)

	assert.NoError(t, c.Store("k", "h", 1))
	var v int
	assert.False(t, c.Load("k", "h", &v))
	assert.NoError(t, c.Clear())

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
}

func TestTTLExpiration(t *testing.T) {
	c := newTestCache(t)
	c.ttl = time.Millisecond

	require.NoError(t, c.Store("k", "h", 1))
	time.Sleep(5 * time.Millisecond)

	var v int
	assert.False(t, c.Load("k", "h", &v))
	_, err := os.Stat(c.keyPath("k"))
	assert.True(t, os.IsNotExist(err), "expired entry should be removed")
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), 0, true)
	require.NoError(t, err)

	require.NoError(t, c.Store("k", "h", 1))
	var v int
	assert.True(t, c.Load("k", "h", &v))
}

func TestHashBytes(t *testing.T) {
	h := HashBytes([]byte("date,earned,possible\n"))
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashBytes([]byte("date,earned,possible\n")))
	assert.NotEqual(t, h, HashBytes([]byte("date,earned,possible\n\n")))
}

func TestFingerprint(t *testing.T) {
	files := map[string][]byte{
		"a.csv": []byte("date,earned,possible\n2024-01-01,1,2\n"),
		"b.csv": []byte("date,earned,possible\n2024-01-02,2,2\n"),
	}
	params := map[string]any{"buckets": 10}

	base, err := Fingerprint(files, params)
	require.NoError(t, err)
	assert.Len(t, base, 64)

	same, err := Fingerprint(map[string][]byte{"b.csv": files["b.csv"], "a.csv": files["a.csv"]}, params)
	require.NoError(t, err)
	assert.Equal(t, base, same, "file order should not matter")

	changedParams, err := Fingerprint(files, map[string]any{"buckets": 5})
	require.NoError(t, err)
	assert.NotEqual(t, base, changedParams)

	changedBytes, err := Fingerprint(map[string][]byte{
		"a.csv": []byte("date,earned,possible\n2024-01-01,2,2\n"),
		"b.csv": files["b.csv"],
	}, params)
	require.NoError(t, err)
	assert.NotEqual(t, base, changedBytes)

	renamed, err := Fingerprint(map[string][]byte{"c.csv": files["a.csv"], "b.csv": files["b.csv"]}, params)
	require.NoError(t, err)
	assert.NotEqual(t, base, renamed)

	_, err = Fingerprint(files, func() {})
	assert.Error(t, err, "unencodable params should fail")
}

func TestGetStats(t *testing.T) {
	c := newTestCache(t)

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)

	require.NoError(t, c.Store("a", "h", 1))
	require.NoError(t, c.Store("b", "h", 22))

	stats, err = c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Positive(t, stats.TotalSize)
	assert.GreaterOrEqual(t, stats.OldestAge, stats.NewestAge)
}

func TestGetStatsSameModTime(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Store("a", "h", 1))
	require.NoError(t, c.Store("b", "h", 2))

	stamp := time.Now().Add(-time.Hour)
	for _, key := range []string{"a", "b"} {
		require.NoError(t, os.Chtimes(c.keyPath(key), stamp, stamp))
	}

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, stats.OldestAge, stats.NewestAge, "ages share one reference time")
	assert.GreaterOrEqual(t, stats.OldestAge, time.Hour)
}

func TestKeyPathIsSafe(t *testing.T) {
	c := newTestCache(t)

	for _, key := range []string{"bins:../../etc", "heatmap/month/score_rate", "scatter trend"} {
		p := c.keyPath(key)
		assert.Equal(t, c.dir, filepath.Dir(p), key)
		require.NoError(t, c.Store(key, "h", "v"), key)
	}
}
