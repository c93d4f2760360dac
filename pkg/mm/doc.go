/*
Package mm maps and unmaps anonymous user memory regions.

Mmap and Munmap operate on any AddressSpace. They reject a misaligned start
address, and Mmap also rejects permission bits outside read/write/execute or an
empty permission set. The page range of a request is the half-open interval
[floor(start), ceil(start+length)). Both calls validate the entire range before
changing anything, so a failed call leaves the address space as it was.

MemorySet is the in-memory AddressSpace used by processes: a page map backed
by a FrameAllocator shared across the kernel.

	frames := mm.NewFrameAllocator(0, 1024)
	as := mm.NewMemorySet(frames)
	if err := mm.Mmap(as, 0x10000000, 2*mm.PageSize, mm.PortRead|mm.PortWrite); err != nil {
		// Handle error
	}
*/
package mm
