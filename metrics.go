package ngramindex

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the cache and the pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Line cache
	CacheRequests  *prometheus.CounterVec
	CacheEvictions prometheus.Counter
	LoadedBytes    prometheus.Counter
	CachedFiles    prometheus.Gauge
	CachedBytes    prometheus.Gauge

	// Pipeline
	RowsResolved  *prometheus.CounterVec
	Chunks        *prometheus.CounterVec
	ChunkDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		CacheRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ngram_index_line_cache_requests_total",
				Help: "Total number of line resolutions by cache result",
			},
			[]string{"result"}, // hit/miss
		),
		CacheEvictions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ngram_index_line_cache_evictions_total",
				Help: "Total number of source files evicted under memory pressure",
			},
		),
		LoadedBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ngram_index_line_cache_loaded_bytes_total",
				Help: "Total bytes of source files loaded into the cache",
			},
		),
		CachedFiles: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ngram_index_line_cache_files",
				Help: "Number of source files currently cached",
			},
		),
		CachedBytes: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ngram_index_line_cache_bytes",
				Help: "Bytes of source content currently cached",
			},
		),
		RowsResolved: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ngram_index_rows_resolved_total",
				Help: "Total number of rows resolved to lines",
			},
			[]string{"order"},
		),
		Chunks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ngram_index_chunks_total",
				Help: "Total number of chunks by outcome",
			},
			[]string{"order", "status"}, // status: written/skipped
		),
		ChunkDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ngram_index_chunk_duration_seconds",
				Help:    "Time spent materializing one chunk",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"order"},
		),
	}
}

func (m *Metrics) request(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheRequests.WithLabelValues("hit").Inc()
		return
	}
	m.CacheRequests.WithLabelValues("miss").Inc()
}

func (m *Metrics) loaded(n int64, files int, bytes int64) {
	if m == nil {
		return
	}
	m.LoadedBytes.Add(float64(n))
	m.CachedFiles.Set(float64(files))
	m.CachedBytes.Set(float64(bytes))
}

func (m *Metrics) evicted(files int, bytes int64) {
	if m == nil {
		return
	}
	m.CacheEvictions.Inc()
	m.CachedFiles.Set(float64(files))
	m.CachedBytes.Set(float64(bytes))
}

func (m *Metrics) cleared() {
	if m == nil {
		return
	}
	m.CachedFiles.Set(0)
	m.CachedBytes.Set(0)
}

func (m *Metrics) chunk(order int, status string, rows int, took time.Duration) {
	if m == nil {
		return
	}
	o := strconv.Itoa(order)
	m.Chunks.WithLabelValues(o, status).Inc()
	if status == chunkWritten {
		m.RowsResolved.WithLabelValues(o).Add(float64(rows))
		m.ChunkDuration.WithLabelValues(o).Observe(took.Seconds())
	}
}
