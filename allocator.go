package vkbind

import (
	"fmt"

	"github.com/celer/vkbind/spirv"
)

type Allocation struct {
	Offset uint64
	Size   uint64
}

func (a *Allocation) String() string {
	return fmt.Sprintf("[%d %d]", a.Offset, a.Size)
}

// LinearAllocator hands out ranges of a fixed size block, first fit. It is
// used to place many small buffers in one DeviceMemory.
type LinearAllocator struct {
	Size uint64
	// allocs is kept sorted by offset
	allocs []*Allocation
}

// Allocate returns an aligned range of size bytes, or nil if no gap is
// large enough.
func (p *LinearAllocator) Allocate(size uint64, align uint64) *Allocation {
	var start uint64
	for i, a := range p.allocs {
		off := spirv.AlignUp(start, align)
		if off+size <= a.Offset {
			na := &Allocation{Offset: off, Size: size}
			p.allocs = append(p.allocs[:i], append([]*Allocation{na}, p.allocs[i:]...)...)
			return na
		}
		start = a.Offset + a.Size
	}
	off := spirv.AlignUp(start, align)
	if off+size > p.Size {
		return nil
	}
	na := &Allocation{Offset: off, Size: size}
	p.allocs = append(p.allocs, na)
	return na
}

func (p *LinearAllocator) Free(fa *Allocation) {
	for i, a := range p.allocs {
		if a == fa {
			p.allocs = append(p.allocs[:i], p.allocs[i+1:]...)
			return
		}
	}
}

// Used returns the number of bytes currently allocated, not counting
// alignment padding.
func (p *LinearAllocator) Used() uint64 {
	var n uint64
	for _, a := range p.allocs {
		n += a.Size
	}
	return n
}

func (p *LinearAllocator) String() string {
	return fmt.Sprintf("%v", p.allocs)
}
