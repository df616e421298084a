package ngramindex

import (
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Recency scores are relative: every Resolve advances the cache tick by one
// and stamps the resolved entry with it. The score of an entry is its stamp
// minus the current tick, so the entry just resolved sits at 0 and every other
// entry drops by one per call. Ordering lives in the LRU list, which gives
// O(1) bumps and O(1) removal of the lowest score.

// touch marks e as the most recently resolved entry.
func (c *LineCache) touch(e *cachedFile) {
	c.tick++
	e.stamp = c.tick
	e.hits++
}

// Score returns the recency score of path. The most recently resolved path
// always scores 0; all other entries are negative.
func (c *LineCache) Score(path string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.files.Peek(path)
	if !ok {
		return 0, false
	}
	return int64(e.stamp) - int64(c.tick), true
}

// makeRoom evicts lowest-score entries while avail (plus what was freed so
// far) is below need, bounded by MaxEvictionsPerMiss.
func (c *LineCache) makeRoom(avail, need uint64, incoming string) error {
	if avail >= need {
		return nil
	}

	var freed uint64
	evicted := 0
	for avail+freed < need && c.files.Len() > 0 {
		if limit := c.options.MaxEvictionsPerMiss; limit > 0 && evicted >= limit {
			break
		}
		n, err := c.evictOldest()
		if err != nil {
			return err
		}
		freed += n
		evicted++
	}

	if avail+freed < need {
		c.options.Logger.WithFields(logrus.Fields{
			"action":    "line_cache_headroom",
			"path":      incoming,
			"available": humanize.Bytes(avail),
			"freed":     humanize.Bytes(freed),
			"needed":    humanize.Bytes(need),
			"evicted":   evicted,
		}).Warn("loading source file without full memory headroom")
	}
	return nil
}

// evictOldest removes the entry with the lowest recency score and returns the
// number of bytes it held.
func (c *LineCache) evictOldest() (uint64, error) {
	path, e, ok := c.files.RemoveOldest()
	if !ok {
		return 0, nil
	}

	n := uint64(e.size)
	c.bytes -= int64(n)
	atomic.AddUint64(&c.statEvictions, 1)
	c.options.Metrics.evicted(c.files.Len(), c.bytes)

	c.options.Logger.WithFields(logrus.Fields{
		"action": "line_cache_evict",
		"path":   path,
		"size":   humanize.Bytes(n),
		"hits":   e.hits,
	}).Debug("evicted source file")

	return n, e.release()
}
