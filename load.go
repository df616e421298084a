package ngramindex

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// loadFile membaca seluruh isi file ke memori, atau memetakannya read-only
// bila useMmap aktif. File kosong tidak pernah di-mmap.
func loadFile(path string, size int64, useMmap bool) (*cachedFile, error) {
	e := &cachedFile{path: path}

	if useMmap && size > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("gagal membuka file sumber: %w", err)
		}
		defer f.Close()

		m, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			return nil, fmt.Errorf("gagal mmap %s: %w", path, err)
		}
		e.content = m
		e.mapped = true
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("gagal membaca file sumber: %w", err)
		}
		e.content = data
	}

	e.size = int64(len(e.content))
	return e, nil
}

// release melepas isi entry. Region mmap di-unmap; isi heap diserahkan ke GC.
func (e *cachedFile) release() error {
	content := e.content
	e.content = nil
	if e.mapped && content != nil {
		e.mapped = false
		if err := unix.Munmap(content); err != nil {
			return fmt.Errorf("gagal unmap %s: %w", e.path, err)
		}
	}
	return nil
}

// appendLineAt appends content[offset:] up to and including the next '\n'
// (or to the end of content) to dst.
func appendLineAt(dst, content []byte, offset uint64) []byte {
	if offset >= uint64(len(content)) {
		return dst
	}
	rest := content[offset:]
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i+1]
	}
	return append(dst, rest...)
}
