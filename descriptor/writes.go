package descriptor

import (
	"github.com/celer/vkbind/spirv"
)

// WriteInfo is the payload of a descriptor write. It is one of BufferInfo,
// ImageInfo or TexelBufferView.
type WriteInfo interface {
	writeInfo()
}

// BufferInfo points a buffer descriptor at a byte range of a buffer.
type BufferInfo struct {
	Buffer Handle
	Offset uint64
	Range  uint64
}

// ImageInfo points an image or sampler descriptor at a view and sampler.
// Layout is a VkImageLayout value.
type ImageInfo struct {
	Sampler Handle
	View    Handle
	Layout  uint32
}

// TexelBufferView points a texel buffer descriptor at a buffer view.
type TexelBufferView struct {
	View Handle
}

func (BufferInfo) writeInfo()      {}
func (ImageInfo) writeInfo()       {}
func (TexelBufferView) writeInfo() {}

// NamedWrite addresses a binding by resource name.
type NamedWrite struct {
	Name    string
	Element uint32
	Info    WriteInfo
}

// WriteRecord is a resolved write of one descriptor.
type WriteRecord struct {
	Set     Handle
	Binding uint32
	Element uint32
	Type    spirv.DescriptorType
	Info    WriteInfo
}

// accepts reports whether info is the right payload for t.
func accepts(t spirv.DescriptorType, info WriteInfo) bool {
	switch info.(type) {
	case BufferInfo:
		return t == spirv.UniformBuffer || t == spirv.StorageBuffer
	case ImageInfo:
		switch t {
		case spirv.Sampler, spirv.CombinedImageSampler, spirv.SampledImage, spirv.StorageImage:
			return true
		}
	case TexelBufferView:
		return t == spirv.UniformTexelBuffer || t == spirv.StorageTexelBuffer
	}
	return false
}
