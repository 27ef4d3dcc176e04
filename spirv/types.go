package spirv

import (
	"fmt"
)

// DescriptorType is the kind of descriptor a resource binds as. Values
// match VkDescriptorType.
type DescriptorType uint32

const (
	Sampler              DescriptorType = 0
	CombinedImageSampler DescriptorType = 1
	SampledImage         DescriptorType = 2
	StorageImage         DescriptorType = 3
	UniformTexelBuffer   DescriptorType = 4
	StorageTexelBuffer   DescriptorType = 5
	UniformBuffer        DescriptorType = 6
	StorageBuffer        DescriptorType = 7
)

func (t DescriptorType) String() string {
	switch t {
	case Sampler:
		return "sampler"
	case CombinedImageSampler:
		return "combined-image-sampler"
	case SampledImage:
		return "sampled-image"
	case StorageImage:
		return "storage-image"
	case UniformTexelBuffer:
		return "uniform-texel-buffer"
	case StorageTexelBuffer:
		return "storage-texel-buffer"
	case UniformBuffer:
		return "uniform-buffer"
	case StorageBuffer:
		return "storage-buffer"
	}
	return fmt.Sprintf("descriptor-type(%d)", uint32(t))
}

// IsBuffer reports whether t is backed by a buffer object rather than an
// image or sampler.
func (t DescriptorType) IsBuffer() bool {
	return t == UniformBuffer || t == StorageBuffer
}

// ResourceType is the underlying type of a reflected resource or member.
// It is a closed union: ImageType, SampledImageType, SamplerType,
// StructType, ScalarType and UnsupportedType are the only implementations.
type ResourceType interface {
	resourceType()
}

// ImageType is an OpTypeImage.
type ImageType struct {
	Dim     uint32
	Depth   uint32
	Arrayed bool
	MS      bool
	// Sampled is 1 for images used with a sampler, 2 for storage images
	// and 0 when only known at runtime.
	Sampled uint32
	Format  uint32
}

// SampledImageType is an image combined with a sampler.
type SampledImageType struct {
	Image ImageType
}

// SamplerType is a separate sampler.
type SamplerType struct{}

// StructType is a structured aggregate, the only kind of resource that
// gets a field table.
type StructType struct {
	Name    string
	Members []Member
}

// Member is one declared member of a StructType.
type Member struct {
	Index uint32
	Name  string
	// Offset is the declared, tightly packed byte offset
	Offset uint64
	// Size is the declared byte size of the member
	Size  uint64
	Type  ResourceType
	Count uint32

	anonymous bool
}

// ScalarType covers scalars, vectors and matrices.
type ScalarType struct {
	// Kind is "bool", "int", "uint" or "float"
	Kind    string
	Width   uint32
	Rows    uint32
	Columns uint32
}

// UnsupportedType is any type with no descriptor equivalent.
type UnsupportedType struct {
	Op uint16
}

func (ImageType) resourceType()        {}
func (SampledImageType) resourceType() {}
func (SamplerType) resourceType()      {}
func (StructType) resourceType()       {}
func (ScalarType) resourceType()       {}
func (UnsupportedType) resourceType()  {}

func (s ScalarType) String() string {
	k := s.Kind
	if s.Kind != "bool" {
		k = fmt.Sprintf("%s%d", s.Kind, s.Width)
	}
	switch {
	case s.Columns > 1:
		return fmt.Sprintf("mat%dx%d<%s>", s.Columns, s.Rows, k)
	case s.Rows > 1:
		return fmt.Sprintf("vec%d<%s>", s.Rows, k)
	}
	return k
}

// TypeName returns a short human readable name for t.
func TypeName(t ResourceType) string {
	switch v := t.(type) {
	case ImageType:
		return fmt.Sprintf("image(dim=%d,sampled=%d)", v.Dim, v.Sampled)
	case SampledImageType:
		return fmt.Sprintf("sampled-image(dim=%d)", v.Image.Dim)
	case SamplerType:
		return "sampler"
	case StructType:
		if v.Name != "" {
			return "struct " + v.Name
		}
		return "struct"
	case ScalarType:
		return v.String()
	case UnsupportedType:
		return fmt.Sprintf("unsupported(op %d)", v.Op)
	}
	return "unknown"
}

// classifyDescriptor picks the descriptor type for a resource of type t
// declared in the given storage class. bufferBlock marks the legacy
// Uniform+BufferBlock spelling of a storage buffer.
func classifyDescriptor(id uint32, storage uint32, bufferBlock bool, t ResourceType) (DescriptorType, error) {
	switch v := t.(type) {
	case ImageType:
		if v.Dim == DimBuffer {
			if v.Sampled == 2 {
				return StorageTexelBuffer, nil
			}
			return UniformTexelBuffer, nil
		}
		if v.Dim == DimSubpassData {
			return 0, reflectErrorf(id, "input attachments are not supported")
		}
		if v.Sampled == 2 {
			return StorageImage, nil
		}
		return SampledImage, nil
	case SampledImageType:
		if v.Image.Dim == DimBuffer {
			return UniformTexelBuffer, nil
		}
		return CombinedImageSampler, nil
	case SamplerType:
		return Sampler, nil
	case StructType:
		if storage == storageStorageBuffer || bufferBlock {
			return StorageBuffer, nil
		}
		return UniformBuffer, nil
	case ScalarType:
		if storage == storageStorageBuffer {
			return StorageBuffer, nil
		}
		return UniformBuffer, nil
	case UnsupportedType:
		return 0, reflectErrorf(id, "unsupported resource type (op %d)", v.Op)
	}
	return 0, reflectErrorf(id, "unknown resource type %T", t)
}
