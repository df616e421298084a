package ngramindex

import (
	"github.com/pbnjay/memory"
	"github.com/prometheus/procfs"
)

// MemoryProvider reports how many bytes of memory are currently available to
// load new source files. Values are point-in-time and advisory.
type MemoryProvider interface {
	Available() (uint64, error)
}

// HostMemory reports MemAvailable from /proc/meminfo, which counts reclaimable
// page cache as available. Where procfs cannot be read or lacks the field
// (non-Linux hosts, old kernels) it falls back to the free memory reported by
// the OS.
type HostMemory struct {
	// ProcPath is the procfs mount point (empty = /proc).
	ProcPath string
}

func (h HostMemory) Available() (uint64, error) {
	if n, ok := h.memAvailable(); ok {
		return n, nil
	}
	return memory.FreeMemory(), nil
}

func (h HostMemory) memAvailable() (uint64, bool) {
	mount := h.ProcPath
	if mount == "" {
		mount = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mount)
	if err != nil {
		return 0, false
	}
	mi, err := fs.Meminfo()
	if err != nil || mi.MemAvailableBytes == nil {
		return 0, false
	}
	return *mi.MemAvailableBytes, true
}

// StaticMemory always reports the same amount. Useful for tests and for
// pinning the eviction behaviour on shared hosts.
type StaticMemory uint64

func (s StaticMemory) Available() (uint64, error) { return uint64(s), nil }

// MemoryFunc adapts a plain function to MemoryProvider.
type MemoryFunc func() (uint64, error)

func (f MemoryFunc) Available() (uint64, error) { return f() }
