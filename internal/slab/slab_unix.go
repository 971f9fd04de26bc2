//go:build unix

// Package slab provides platform-specific anonymous memory for chunk payloads.
package slab

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Alloc maps n bytes of zeroed anonymous memory and returns it together with
// a release func. The release func unmaps the region; calling it twice is a no-op.
func Alloc(n int) ([]byte, func() error, error) {
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrBadSize, n)
	}
	if n == 0 {
		return []byte{}, noop, nil
	}
	data, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: mmap %d bytes: %w", ErrNoMemory, n, err)
	}
	release := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		return err
	}
	return data, release, nil
}
