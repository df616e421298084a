package ngramindex

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by Resolve after Close.
var ErrClosed = errors.New("line cache closed")

// LineCache menyimpan salinan file sumber di memori dan me-resolve pasangan
// (path, offset) menjadi satu baris teks.
//
// Saat cache miss, memori yang tersedia dibandingkan dengan Headroom × ukuran
// file; bila kurang, entry dengan skor recency terendah dibuang terlebih
// dahulu. Ini heuristik, bukan batas memori yang ketat.
//
// Semua operasi aman untuk goroutine.
type LineCache struct {
	mu      sync.Mutex
	files   *simplelru.LRU[string, *cachedFile] // urutan recency: oldest → newest
	tick    uint64                              // jam logis, naik setiap Resolve
	bytes   int64                               // total byte yang sedang di-cache
	options CacheOptions
	closed  bool

	statHits      uint64
	statMisses    uint64
	statEvictions uint64
}

// NewLineCache membuat cache dengan opsi default (lihat DefaultOptions).
func NewLineCache() (*LineCache, error) {
	return NewLineCacheWithOptions(DefaultOptions())
}

// NewLineCacheWithOptions membuat cache dengan opsi kustom.
func NewLineCacheWithOptions(opts CacheOptions) (*LineCache, error) {
	opts.normalize()

	// The list is never bounded by entry count; eviction is driven by memory.
	files, err := simplelru.NewLRU[string, *cachedFile](math.MaxInt, nil)
	if err != nil {
		return nil, fmt.Errorf("gagal membuat daftar recency: %w", err)
	}

	return &LineCache{
		files:   files,
		options: opts,
	}, nil
}

// Resolve returns the line that starts at offset in the file at path,
// including its terminating newline when one exists. An offset at or past the
// end of the file yields an empty line.
func (c *LineCache) Resolve(path string, offset uint64) ([]byte, error) {
	return c.AppendLine(nil, path, offset)
}

// AppendLine is like Resolve but appends the line to dst.
func (c *LineCache) AppendLine(dst []byte, path string, offset uint64) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return dst, ErrClosed
	}

	e, ok := c.files.Get(path)
	if ok {
		atomic.AddUint64(&c.statHits, 1)
		c.options.Metrics.request(true)
	} else {
		var err error
		if e, err = c.admit(path); err != nil {
			return dst, err
		}
		atomic.AddUint64(&c.statMisses, 1)
		c.options.Metrics.request(false)
	}

	c.touch(e)
	return appendLineAt(dst, e.content, offset), nil
}

// admit loads path into the cache, evicting first when memory is short.
func (c *LineCache) admit(path string) (*cachedFile, error) {
	avail, err := c.options.Memory.Available()
	if err != nil {
		return nil, fmt.Errorf("query available memory: %w", err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source file: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("stat source file %s: %w", path, syscall.EISDIR)
	}

	need := uint64(float64(fi.Size()) * c.options.Headroom)
	if err := c.makeRoom(avail, need, path); err != nil {
		return nil, err
	}

	e, err := loadFile(path, fi.Size(), c.options.UseMmap)
	if err != nil {
		return nil, err
	}
	e.stamp = c.tick

	c.files.Add(path, e)
	c.bytes += e.size
	c.options.Metrics.loaded(e.size, c.files.Len(), c.bytes)

	c.options.Logger.WithFields(logrus.Fields{
		"action": "line_cache_load",
		"path":   path,
		"size":   humanize.Bytes(uint64(e.size)),
		"mmap":   e.mapped,
		"cached": c.files.Len(),
	}).Debug("loaded source file")

	return e, nil
}

// Contains reports whether path is currently cached. It does not change
// recency.
func (c *LineCache) Contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files.Contains(path)
}

// Len returns the number of cached files.
func (c *LineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files.Len()
}

// Paths returns the cached paths ordered from lowest to highest recency.
func (c *LineCache) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files.Keys()
}

// CachedBytes returns the total size of the cached content.
func (c *LineCache) CachedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}
