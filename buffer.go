package ngramindex

import "sync"

// maxPooledChunkBuf caps the buffers kept for reuse; a chunk of very long
// lines should not pin its buffer for the rest of the run.
const maxPooledChunkBuf = 256 << 20

func newChunkBufPool() *sync.Pool {
	return &sync.Pool{New: func() any { return new([]byte) }}
}

// getBufFromPool mengambil buffer chunk dari pool atau membuat baru.
// Panjang buffer selalu 0.
func (p *Pipeline) getBufFromPool() *[]byte {
	buf := p.bufPool.Get().(*[]byte)
	*buf = (*buf)[:0]
	return buf
}

// returnBufToPool mengembalikan buffer ke pool untuk digunakan kembali.
// Buffer yang terlalu besar dibiarkan untuk GC.
func (p *Pipeline) returnBufToPool(buf *[]byte) {
	if cap(*buf) > maxPooledChunkBuf {
		return
	}
	p.bufPool.Put(buf)
}
