package ngramindex

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const plenty = StaticMemory(1 << 40)

// helper to create a cache with deterministic memory reporting
func newTestCache(t *testing.T, mem MemoryProvider) *LineCache {
	return newTestCacheWithOpts(t, mem, DefaultOptions())
}

func newTestCacheWithOpts(t *testing.T, mem MemoryProvider, opts CacheOptions) *LineCache {
	t.Helper()
	opts.Memory = mem
	c, err := NewLineCacheWithOptions(opts)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// writeSource writes content to name under dir and returns the path.
func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// assertNewestScoresHighest checks that path scores strictly above every
// other cached path.
func assertNewestScoresHighest(t *testing.T, c *LineCache, path string) {
	t.Helper()
	top, ok := c.Score(path)
	if !ok {
		t.Fatalf("%s not cached", path)
	}
	for _, p := range c.Paths() {
		if p == path {
			continue
		}
		s, _ := c.Score(p)
		if s >= top {
			t.Fatalf("score of %s (%d) not below %s (%d)", p, s, path, top)
		}
	}
}

func TestResolveLines(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "corpus.txt", "alpha\nbeta\ngamma")
	cache := newTestCache(t, plenty)

	cases := []struct {
		offset uint64
		want   string
	}{
		{0, "alpha\n"},
		{6, "beta\n"},
		{8, "ta\n"},
		{11, "gamma"},
		{5, "\n"},
		{16, ""},
		{1000, ""},
	}
	for _, tc := range cases {
		got, err := cache.Resolve(src, tc.offset)
		if err != nil {
			t.Fatalf("resolve offset %d: %v", tc.offset, err)
		}
		if string(got) != tc.want {
			t.Fatalf("offset %d: got %q want %q", tc.offset, got, tc.want)
		}
	}

	st := cache.GetStats()
	if st.Misses != 1 || st.Hits != uint64(len(cases)-1) {
		t.Fatalf("unexpected stats, got %+v", st)
	}
}

func TestAppendLine(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.txt", "one\ntwo\n")
	b := writeSource(t, dir, "b.txt", "three\n")
	cache := newTestCache(t, plenty)

	var buf []byte
	var err error
	for _, ref := range []CorpusReference{{a, 4}, {b, 0}, {a, 0}, {a, 8}} {
		buf, err = cache.AppendLine(buf, ref.Path, ref.Offset)
		if err != nil {
			t.Fatalf("append %v: %v", ref, err)
		}
	}
	if string(buf) != "two\nthree\none\n" {
		t.Fatalf("unexpected concatenation %q", buf)
	}
}

func TestResolveDeterministic(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, body := range []string{"a0\na1\na2\n", "b0\nb1\n", "c0\n"} {
		paths = append(paths, writeSource(t, dir, string(rune('a'+i))+".txt", body))
	}
	// One eviction per miss keeps the cache churning.
	cache := newTestCache(t, StaticMemory(0))

	seq := []CorpusReference{
		{paths[0], 3}, {paths[1], 0}, {paths[2], 0}, {paths[0], 6},
		{paths[1], 3}, {paths[0], 0}, {paths[2], 3},
	}
	run := func() [][]byte {
		var out [][]byte
		for _, ref := range seq {
			line, err := cache.Resolve(ref.Path, ref.Offset)
			if err != nil {
				t.Fatalf("resolve %v: %v", ref, err)
			}
			out = append(out, line)
		}
		return out
	}

	first, second := run(), run()
	for i := range first {
		if !bytes.Equal(first[i], second[i]) {
			t.Fatalf("resolution %d differs: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestRecencyScores(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.txt", "a\n")
	b := writeSource(t, dir, "b.txt", "b\n")
	c := writeSource(t, dir, "c.txt", "c\n")
	cache := newTestCache(t, plenty)

	// a is resolved often first; it must still lose the top spot as soon as
	// another path is resolved.
	for _, p := range []string{a, a, a, a, b, c, a, b, b, c} {
		if _, err := cache.Resolve(p, 0); err != nil {
			t.Fatalf("resolve %s: %v", p, err)
		}
		assertNewestScoresHighest(t, cache, p)
		if s, _ := cache.Score(p); s != 0 {
			t.Fatalf("expected newest score 0, got %d", s)
		}
	}

	sa, _ := cache.Score(a)
	sb, _ := cache.Score(b)
	if sa != -3 || sb != -1 {
		t.Fatalf("expected relative scores a=-3 b=-1, got a=%d b=%d", sa, sb)
	}
	if got := cache.Paths(); !equalStrings(got, []string{a, b, c}) {
		t.Fatalf("unexpected recency order %v", got)
	}
	if _, ok := cache.Score(filepath.Join(dir, "missing")); ok {
		t.Fatalf("score reported for uncached path")
	}
}

func TestEvictionThreshold(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.txt", strings.Repeat("x", 99)+"\n")
	b := writeSource(t, dir, "b.txt", strings.Repeat("y", 99)+"\n")

	for _, tc := range []struct {
		avail uint64
		evict bool
	}{
		{149, true},
		{150, false},
		{1 << 20, false},
		{0, true},
	} {
		avail := uint64(1 << 40)
		cache := newTestCache(t, MemoryFunc(func() (uint64, error) { return avail, nil }))
		if _, err := cache.Resolve(a, 0); err != nil {
			t.Fatalf("resolve a: %v", err)
		}
		avail = tc.avail
		if _, err := cache.Resolve(b, 0); err != nil {
			t.Fatalf("resolve b: %v", err)
		}

		evicted := !cache.Contains(a)
		if evicted != tc.evict {
			t.Fatalf("avail %d: evicted=%v want %v", tc.avail, evicted, tc.evict)
		}
		if st := cache.GetStats(); (st.Evictions == 1) != tc.evict {
			t.Fatalf("avail %d: unexpected eviction count %d", tc.avail, st.Evictions)
		}
	}
}

func TestEvictsLowestScore(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.txt", "a\n")
	b := writeSource(t, dir, "b.txt", "b\n")
	c := writeSource(t, dir, "c.txt", "c\n")
	d := writeSource(t, dir, "d.txt", "d\n")

	avail := uint64(1 << 40)
	cache := newTestCache(t, MemoryFunc(func() (uint64, error) { return avail, nil }))
	for _, p := range []string{a, b, c, a} {
		if _, err := cache.Resolve(p, 0); err != nil {
			t.Fatalf("resolve %s: %v", p, err)
		}
	}

	avail = 0
	if _, err := cache.Resolve(d, 0); err != nil {
		t.Fatalf("resolve d: %v", err)
	}
	if cache.Contains(b) {
		t.Fatalf("expected b (lowest score) to be evicted")
	}
	for _, p := range []string{a, c, d} {
		if !cache.Contains(p) {
			t.Fatalf("expected %s to stay cached", p)
		}
	}
	if cache.Len() != 3 {
		t.Fatalf("expected exactly one eviction, cache holds %d", cache.Len())
	}
}

func TestUnboundedEvictionsUntilHeadroom(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a", "b", "c", "d"} {
		paths = append(paths, writeSource(t, dir, name+".txt", strings.Repeat(name, 99)+"\n"))
	}

	avail := uint64(1 << 40)
	opts := DefaultOptions()
	opts.MaxEvictionsPerMiss = -1
	cache := newTestCacheWithOpts(t, MemoryFunc(func() (uint64, error) { return avail, nil }), opts)
	for _, p := range paths[:3] {
		if _, err := cache.Resolve(p, 0); err != nil {
			t.Fatalf("resolve %s: %v", p, err)
		}
	}

	// 150 bytes needed, each eviction frees 100.
	avail = 0
	if _, err := cache.Resolve(paths[3], 0); err != nil {
		t.Fatalf("resolve d: %v", err)
	}
	if got := cache.Paths(); !equalStrings(got, []string{paths[2], paths[3]}) {
		t.Fatalf("expected two evictions, cache holds %v", got)
	}
	if st := cache.GetStats(); st.Evictions != 2 {
		t.Fatalf("expected 2 evictions, got %d", st.Evictions)
	}
	if got := cache.CachedBytes(); got != 200 {
		t.Fatalf("expected 200 cached bytes after evictions, got %d", got)
	}
}

func TestEmptyCacheLoadsWithoutHeadroom(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.txt", "hello\n")

	logger, hook := test.NewNullLogger()
	opts := DefaultOptions()
	opts.Logger = logger
	cache := newTestCacheWithOpts(t, StaticMemory(0), opts)

	line, err := cache.Resolve(a, 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if string(line) != "hello\n" {
		t.Fatalf("unexpected line %q", line)
	}
	if st := cache.GetStats(); st.Evictions != 0 {
		t.Fatalf("expected no eviction from an empty cache, got %d", st.Evictions)
	}

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["action"] == "line_cache_headroom" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected a headroom warning")
	}
}

func TestMissingSourceFile(t *testing.T) {
	cache := newTestCache(t, plenty)
	_, err := cache.Resolve(filepath.Join(t.TempDir(), "nope.txt"), 0)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if cache.Len() != 0 {
		t.Fatalf("failed load must not be cached")
	}
}

func TestMemoryProviderError(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.txt", "a\n")
	boom := errors.New("meminfo unavailable")
	cache := newTestCache(t, MemoryFunc(func() (uint64, error) { return 0, boom }))

	if _, err := cache.Resolve(a, 0); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestMmapResolve(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.txt", "first\nsecond\n")
	empty := writeSource(t, dir, "empty.txt", "")

	opts := DefaultOptions()
	opts.UseMmap = true
	cache := newTestCacheWithOpts(t, plenty, opts)

	line, err := cache.Resolve(a, 6)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if string(line) != "second\n" {
		t.Fatalf("unexpected line %q", line)
	}
	line, err = cache.Resolve(empty, 0)
	if err != nil {
		t.Fatalf("resolve empty: %v", err)
	}
	if len(line) != 0 {
		t.Fatalf("expected empty line, got %q", line)
	}
	if cache.CachedBytes() != 13 {
		t.Fatalf("unexpected cached bytes %d", cache.CachedBytes())
	}

	if err := cache.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := cache.Resolve(a, 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if cache.Len() != 0 || cache.CachedBytes() != 0 {
		t.Fatalf("close must drop all entries")
	}
}

func TestCacheMetrics(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.txt", "a\n")
	b := writeSource(t, dir, "b.txt", "bb\n")

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	opts := DefaultOptions()
	opts.Metrics = m
	cache := newTestCacheWithOpts(t, StaticMemory(0), opts)

	for _, p := range []string{a, a, b} {
		if _, err := cache.Resolve(p, 0); err != nil {
			t.Fatalf("resolve %s: %v", p, err)
		}
	}

	if v := testutil.ToFloat64(m.CacheRequests.WithLabelValues("hit")); v != 1 {
		t.Fatalf("expected 1 hit, got %v", v)
	}
	if v := testutil.ToFloat64(m.CacheRequests.WithLabelValues("miss")); v != 2 {
		t.Fatalf("expected 2 misses, got %v", v)
	}
	if v := testutil.ToFloat64(m.CacheEvictions); v != 1 {
		t.Fatalf("expected 1 eviction, got %v", v)
	}
	if v := testutil.ToFloat64(m.CachedBytes); v != 3 {
		t.Fatalf("expected 3 cached bytes, got %v", v)
	}
	if v := testutil.ToFloat64(m.LoadedBytes); v != 5 {
		t.Fatalf("expected 5 loaded bytes, got %v", v)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
