//go:build windows

// Package slab provides platform-specific anonymous memory for chunk payloads.
package slab

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Alloc commits n bytes of zeroed memory with VirtualAlloc and returns it
// together with a release func. Calling the release func twice is a no-op.
func Alloc(n int) ([]byte, func() error, error) {
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrBadSize, n)
	}
	if n == 0 {
		return []byte{}, noop, nil
	}
	addr, err := windows.VirtualAlloc(0, uintptr(n), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: VirtualAlloc %d bytes: %w", ErrNoMemory, n, err)
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	release := func() error {
		if addr == 0 {
			return nil
		}
		err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
		addr = 0
		return err
	}
	return data, release, nil
}
