// Package ngramindex materializes n-gram index shards. Each n-gram order has a
// Parquet record file whose rows point at (source file, byte offset); every
// row is resolved to the text line at that offset and the lines are written
// out in fixed-size, resumable chunks.
//
// The library is organised into several files for clarity:
//
//	options.go        – cache configuration struct & defaults
//	memory.go         – pluggable available-memory providers
//	entry.go          – cached file representation
//	cache.go          – LineCache constructor & Resolve
//	recency.go        – recency scores & eviction
//	load.go           – reading / mapping source files, line extraction
//	stats.go          – lightweight stats accessors
//	metrics.go        – optional Prometheus collectors
//	close.go          – releasing cached content
//	source.go         – record source contracts & row mapping
//	parquet_source.go – Parquet backed record source
//	chunk.go          – chunk planning & shard file naming
//	buffer.go         – pooled chunk buffers
//	output.go         – output tree preparation & atomic shard writes
//	manifest.go       – persisted run layout
//	pipeline.go       – the per-order chunk pipeline
//
// The cmd/ngram-index directory contains the command line front end.
package ngramindex
