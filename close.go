package ngramindex

import (
	"github.com/hashicorp/go-multierror"
)

// Close membuang semua file yang di-cache dan melepas region mmap.
// Resolve setelah Close mengembalikan ErrClosed.
func (c *LineCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var result *multierror.Error
	for _, e := range c.files.Values() {
		if err := e.release(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	c.files.Purge()
	c.bytes = 0
	c.options.Metrics.cleared()

	return result.ErrorOrNil()
}
