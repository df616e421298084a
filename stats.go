package ngramindex

import "sync/atomic"

// Stats menyimpan statistik hit/miss/eviksi cache.
// HitRatio dalam persentase (0-100).
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRatio  float64
}

// GetStats mengambil snapshot statistik tanpa lock berat.
func (c *LineCache) GetStats() Stats {
	hits := atomic.LoadUint64(&c.statHits)
	misses := atomic.LoadUint64(&c.statMisses)
	total := hits + misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(hits) / float64(total) * 100.0
	}
	return Stats{
		Hits:      hits,
		Misses:    misses,
		Evictions: atomic.LoadUint64(&c.statEvictions),
		HitRatio:  ratio,
	}
}

// ResetStats mengatur ulang penghitung hit/miss/eviksi.
func (c *LineCache) ResetStats() {
	atomic.StoreUint64(&c.statHits, 0)
	atomic.StoreUint64(&c.statMisses, 0)
	atomic.StoreUint64(&c.statEvictions, 0)
}
