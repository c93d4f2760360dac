package kernel

import (
	"kcore/pkg/mm"
)

// Mmap maps [start, start+length) in the caller's address space with the
// port permission bits (1 read, 2 write, 4 exec).
func (k *Kernel) Mmap(start, length, port uint64) error {
	t, p, err := k.current()
	if err != nil {
		return err
	}
	if err := mm.Mmap(p.Memory, mm.VirtAddr(start), length, port); err != nil {
		k.log.Debug("mmap refused", "pid", p.PID, "tid", t.TID(), "err", err)
		return err
	}
	k.trace("mmap", t, "start", start, "len", length, "port", port)
	return nil
}

// Munmap removes [start, start+length) from the caller's address space.
func (k *Kernel) Munmap(start, length uint64) error {
	t, p, err := k.current()
	if err != nil {
		return err
	}
	if err := mm.Munmap(p.Memory, mm.VirtAddr(start), length); err != nil {
		k.log.Debug("munmap refused", "pid", p.PID, "tid", t.TID(), "err", err)
		return err
	}
	k.trace("munmap", t, "start", start, "len", length)
	return nil
}
