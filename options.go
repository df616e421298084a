package ngramindex

import (
	"io"

	"github.com/sirupsen/logrus"
)

// CacheOptions menyediakan opsi konfigurasi untuk LineCache.
//
//   - Headroom:            kelipatan ukuran file yang harus tersedia di memori sebelum load
//   - MaxEvictionsPerMiss: batas eviksi per cache miss (negatif = tanpa batas)
//   - UseMmap:             petakan file sumber dengan mmap alih-alih membacanya penuh
//   - Memory:              penyedia informasi memori tersedia (nil = HostMemory)
//   - Metrics:             kolektor Prometheus opsional
//   - Logger:              logger terstruktur (nil = dibuang)
//
// Lihat DefaultOptions() untuk nilai bawaan.
type CacheOptions struct {
	Headroom            float64
	MaxEvictionsPerMiss int
	UseMmap             bool
	Memory              MemoryProvider
	Metrics             *Metrics
	Logger              logrus.FieldLogger
}

// DefaultOptions mengembalikan konfigurasi default yang digunakan NewLineCache.
func DefaultOptions() CacheOptions {
	return CacheOptions{
		Headroom:            1.5,
		MaxEvictionsPerMiss: 1,
		UseMmap:             false,
		Memory:              HostMemory{},
	}
}

func (o *CacheOptions) normalize() {
	if o.Headroom <= 0 {
		o.Headroom = 1.5
	}
	if o.MaxEvictionsPerMiss == 0 {
		o.MaxEvictionsPerMiss = 1
	}
	if o.Memory == nil {
		o.Memory = HostMemory{}
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
