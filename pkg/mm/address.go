package mm

import "fmt"

// Page geometry.
const (
	PageSizeBits = 12
	PageSize     = 1 << PageSizeBits
)

// VirtAddr is a user virtual address.
type VirtAddr uint64

// VirtPageNum is a virtual page number.
type VirtPageNum uint64

// PhysPageNum is a physical frame number.
type PhysPageNum uint64

// Aligned reports whether the address sits on a page boundary.
func (a VirtAddr) Aligned() bool { return a&(PageSize-1) == 0 }

// Floor returns the page containing the address.
func (a VirtAddr) Floor() VirtPageNum { return VirtPageNum(a >> PageSizeBits) }

// Ceil returns the first page boundary at or above the address.
func (a VirtAddr) Ceil() VirtPageNum {
	return VirtPageNum((uint64(a) + PageSize - 1) >> PageSizeBits)
}

// Addr returns the first address of the page.
func (v VirtPageNum) Addr() VirtAddr { return VirtAddr(v << PageSizeBits) }

// PageRange is the half-open page interval [Start, End).
type PageRange struct {
	Start VirtPageNum
	End   VirtPageNum
}

// RangeOf returns the pages touched by [start, start+length).
func RangeOf(start VirtAddr, length uint64) (PageRange, error) {
	end := uint64(start) + length
	if end < uint64(start) || end > ^uint64(0)-PageSize {
		return PageRange{}, fmt.Errorf("%w: range overflows address space", ErrInvalidRange)
	}
	return PageRange{Start: start.Floor(), End: VirtAddr(end).Ceil()}, nil
}

// Len returns the number of pages in the range.
func (r PageRange) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return int(r.End - r.Start)
}

// Each calls fn for every page in order until fn returns false.
func (r PageRange) Each(fn func(VirtPageNum) bool) {
	for vpn := r.Start; vpn < r.End; vpn++ {
		if !fn(vpn) {
			return
		}
	}
}

func (r PageRange) String() string {
	return fmt.Sprintf("[%#x, %#x)", uint64(r.Start.Addr()), uint64(r.End.Addr()))
}
