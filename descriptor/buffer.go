package descriptor

import (
	"github.com/pkg/errors"

	"github.com/celer/vkbind/spirv"
)

// Region is a byte range inside a buffer.
type Region struct {
	Offset uint64
	Size   uint64
}

// Buffer backs one structured binding. Each field lives in its own
// aligned region and is written independently.
type Buffer struct {
	Name    string
	Set     uint32
	Binding uint32
	Type    spirv.DescriptorType
	Size    uint64

	handle   Handle
	driver   Driver
	arena    *Arena
	fields   map[string]spirv.FieldLayout
	released bool
}

func (b *Buffer) Handle() Handle {
	return b.handle
}

// Fields returns the field names in declaration order.
func (b *Buffer) Fields() []string {
	return spirv.SortedFieldNames(b.fields)
}

// Region returns where field lives in the buffer.
func (b *Buffer) Region(field string) (Region, bool) {
	f, ok := b.fields[field]
	if !ok {
		return Region{}, false
	}
	return Region{Offset: f.Offset, Size: f.Size}, true
}

// Write copies data into field's region. data must be exactly the size of
// the field; nothing is mapped otherwise.
func (b *Buffer) Write(field string, data []byte) error {
	f, ok := b.fields[field]
	if !ok {
		return &UnknownFieldError{Resource: b.Name, Field: field}
	}
	if uint64(len(data)) != f.Size {
		return &SizeMismatchError{Resource: b.Name, Field: field, Want: f.Size, Got: uint64(len(data))}
	}
	if !b.live() {
		return ErrReleased
	}
	if f.Size == 0 {
		return nil
	}

	mem, err := b.driver.MapMemory(b.handle, f.Offset, f.Size)
	if err != nil {
		return &AllocationError{Op: "map memory", Err: err}
	}
	defer b.driver.UnmapMemory(b.handle)

	if uint64(len(mem)) < f.Size {
		return &AllocationError{Op: "map memory", Err: errors.Errorf("mapped %d bytes, need %d", len(mem), f.Size)}
	}
	copy(mem, data)
	return nil
}

// Info returns the descriptor payload that binds field's region.
func (b *Buffer) Info(field string) (BufferInfo, error) {
	f, ok := b.fields[field]
	if !ok {
		return BufferInfo{}, &UnknownFieldError{Resource: b.Name, Field: field}
	}
	return BufferInfo{Buffer: b.handle, Offset: f.Offset, Range: f.Size}, nil
}

// WholeInfo returns the descriptor payload that binds the entire buffer.
// Fields sit at their aligned offsets, so a shader reading the block at
// its declared offsets only finds them there when Packed reports true.
// Bind single fields with Info otherwise.
func (b *Buffer) WholeInfo() BufferInfo {
	return BufferInfo{Buffer: b.handle, Offset: 0, Range: b.Size}
}

// Packed reports whether every field sits at its declared offset.
func (b *Buffer) Packed() bool {
	for _, f := range b.fields {
		if f.Offset != f.DeclaredOffset {
			return false
		}
	}
	return true
}

// Release destroys the buffer ahead of its pool.
func (b *Buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.arena != nil && b.arena.Destroy(b.handle) {
		logger.Printf("released buffer %q", b.Name)
	}
}

// live is false once the buffer or the pool that owns it was released.
func (b *Buffer) live() bool {
	if b.released {
		return false
	}
	return b.arena == nil || b.arena.Owns(b.handle)
}
