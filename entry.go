package ngramindex

// cachedFile merepresentasikan satu file sumber yang sedang dipegang LineCache.
//
// Isi file disimpan utuh di `content`. Apabila opsi `UseMmap` aktif, `content`
// adalah region hasil `unix.Mmap` (read-only) dan `mapped` bernilai true
// sehingga region harus di-unmap saat entry dibuang.
//
// Field `stamp` menyimpan tick logis saat file terakhir di-resolve; skor
// recency dihitung relatif terhadap tick global cache (lihat recency.go).
type cachedFile struct {
	path    string // path file pada disk (kunci cache)
	content []byte // isi file (heap atau mmap)
	mapped  bool   // true bila content berasal dari mmap
	size    int64  // ukuran file saat dimuat
	stamp   uint64 // tick resolusi terakhir
	hits    uint64 // jumlah resolusi sejak dimuat
}
