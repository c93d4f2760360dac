package mm

import (
	"errors"
	"fmt"
)

// Mapping errors.
var (
	ErrMisaligned        = errors.New("address is not page aligned")
	ErrBadPermission     = errors.New("illegal permission bits")
	ErrInvalidRange      = errors.New("invalid address range")
	ErrConflict          = errors.New("range already mapped")
	ErrNotMapped         = errors.New("range not mapped")
	ErrOutOfFrames       = errors.New("out of physical frames")
	ErrFrameNotAllocated = errors.New("frame not allocated")
)

// Mmap maps [start, start+length) as anonymous frame-backed memory with the
// given user port bits. All arguments and the whole range are validated before
// anything is installed.
func Mmap(as AddressSpace, start VirtAddr, length uint64, port uint64) error {
	if !start.Aligned() {
		return fmt.Errorf("mmap %#x: %w", uint64(start), ErrMisaligned)
	}
	perm, err := PermissionFromPort(port)
	if err != nil {
		return fmt.Errorf("mmap port %#x: %w", port, err)
	}
	r, err := RangeOf(start, length)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}

	var conflict VirtPageNum
	found := false
	r.Each(func(vpn VirtPageNum) bool {
		if _, ok := as.Translate(vpn); ok {
			conflict, found = vpn, true
			return false
		}
		return true
	})
	if found {
		return fmt.Errorf("mmap %s: %w at %#x", r, ErrConflict, uint64(conflict.Addr()))
	}

	if err := as.InsertFramedArea(r, perm); err != nil {
		return fmt.Errorf("mmap %s: %w", r, err)
	}
	return nil
}

// Munmap removes every mapping in [start, start+length). The range must be
// fully mapped; otherwise nothing is removed.
func Munmap(as AddressSpace, start VirtAddr, length uint64) error {
	if !start.Aligned() {
		return fmt.Errorf("munmap %#x: %w", uint64(start), ErrMisaligned)
	}
	r, err := RangeOf(start, length)
	if err != nil {
		return fmt.Errorf("munmap: %w", err)
	}

	var hole VirtPageNum
	found := false
	r.Each(func(vpn VirtPageNum) bool {
		if _, ok := as.Translate(vpn); !ok {
			hole, found = vpn, true
			return false
		}
		return true
	})
	if found {
		return fmt.Errorf("munmap %s: %w at %#x", r, ErrNotMapped, uint64(hole.Addr()))
	}

	var unmapErr error
	r.Each(func(vpn VirtPageNum) bool {
		unmapErr = as.Unmap(vpn)
		return unmapErr == nil
	})
	if unmapErr != nil {
		return fmt.Errorf("munmap %s: %w", r, unmapErr)
	}
	return nil
}
