// Package descriptor aggregates reflected shader bindings into descriptor
// pools, sets and per-field buffers.
//
// All GPU objects are created through a Driver, so the package can run
// against a real device (see the vkbind package) or against the in-memory
// HostDriver.
package descriptor

import (
	"github.com/celer/vkbind/spirv"
)

// Handle identifies an object owned by a Driver. Zero is the null handle.
type Handle uint64

// NullHandle is never returned for a live object.
const NullHandle Handle = 0

// PoolSize is one descriptor type and how many of it a pool holds.
type PoolSize struct {
	Type  spirv.DescriptorType
	Count uint32
}

// LayoutBinding is one binding slot of a set layout.
type LayoutBinding struct {
	Binding uint32
	Type    spirv.DescriptorType
	Count   uint32
	Stages  spirv.StageFlags
}

// BufferUsage is a VkBufferUsageFlags value.
type BufferUsage uint32

const (
	UsageUniform BufferUsage = 0x10
	UsageStorage BufferUsage = 0x20
)

// UsageFor returns the buffer usage matching a buffer descriptor type.
func UsageFor(t spirv.DescriptorType) BufferUsage {
	if t == spirv.StorageBuffer {
		return UsageStorage
	}
	return UsageUniform
}

// Driver creates and destroys the objects a Pool is built from.
//
// MapMemory returns a slice of exactly size bytes aliasing the buffer at
// offset. Only one mapping per buffer may be active at a time; the caller
// ends it with UnmapMemory.
type Driver interface {
	CreateDescriptorPool(sizes []PoolSize, maxSets uint32) (Handle, error)
	CreateDescriptorSetLayout(bindings []LayoutBinding) (Handle, error)
	AllocateDescriptorSets(pool Handle, layouts []Handle) ([]Handle, error)
	UpdateDescriptorSets(writes []WriteRecord)
	CreateBuffer(size uint64, usage BufferUsage) (Handle, error)
	MapMemory(buffer Handle, offset, size uint64) ([]byte, error)
	UnmapMemory(buffer Handle)
	Destroy(h Handle)
}

// CommandRecorder records push-constant updates into a command buffer.
type CommandRecorder interface {
	PushConstants(stages spirv.StageFlags, offset uint32, data []byte)
}
