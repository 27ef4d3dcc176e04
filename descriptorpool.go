package vkbind

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkbind/descriptor"
)

// DescriptorPool wraps a Vulkan descriptor pool. Sets allocated from it
// can be freed individually.
type DescriptorPool struct {
	Device               *Device
	VKDescriptorPool     vk.DescriptorPool
	VKDescriptorPoolSize []vk.DescriptorPoolSize
}

func vkPoolSizes(sizes []descriptor.PoolSize) []vk.DescriptorPoolSize {
	ret := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		ret[i] = vk.DescriptorPoolSize{
			Type:            vk.DescriptorType(s.Type),
			DescriptorCount: s.Count,
		}
	}
	return ret
}

// CreateDescriptorPool creates a pool holding sizes for up to maxSets sets
func (d *Device) CreateDescriptorPool(sizes []descriptor.PoolSize, maxSets uint32) (*DescriptorPool, error) {
	poolSizes := vkPoolSizes(sizes)

	var descriptorPoolCreateInfo = vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var descriptorPool vk.DescriptorPool
	err := vk.Error(vk.CreateDescriptorPool(d.VKDevice, &descriptorPoolCreateInfo, nil, &descriptorPool))
	if err != nil {
		return nil, errors.Wrap(err, "create descriptor pool")
	}

	return &DescriptorPool{
		Device:               d,
		VKDescriptorPool:     descriptorPool,
		VKDescriptorPoolSize: poolSizes,
	}, nil
}

// Allocate allocates one descriptor set per layout, in order
func (d *DescriptorPool) Allocate(layouts ...*DescriptorSetLayout) ([]*DescriptorSet, error) {
	ret := make([]*DescriptorSet, 0, len(layouts))
	for _, l := range layouts {
		descriptorSetAllocateInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     d.VKDescriptorPool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{l.VKDescriptorSetLayout},
		}

		var descriptorSet vk.DescriptorSet
		err := vk.Error(vk.AllocateDescriptorSets(d.Device.VKDevice, &descriptorSetAllocateInfo, &descriptorSet))
		if err != nil {
			for _, s := range ret {
				d.Free(s)
			}
			return nil, errors.Wrap(err, "allocate descriptor set")
		}

		ret = append(ret, &DescriptorSet{
			Device:          d.Device,
			DescriptorPool:  d,
			Layout:          l,
			VKDescriptorSet: descriptorSet,
		})
	}
	return ret, nil
}

func (d *DescriptorPool) Reset() error {
	return vk.Error(vk.ResetDescriptorPool(d.Device.VKDevice, d.VKDescriptorPool, 0))
}

func (d *DescriptorPool) Free(ds *DescriptorSet) error {
	descriptorSet := ds.VKDescriptorSet
	return vk.Error(vk.FreeDescriptorSets(d.Device.VKDevice, d.VKDescriptorPool, 1, &descriptorSet))
}

func (d *DescriptorPool) Destroy() {
	vk.DestroyDescriptorPool(d.Device.VKDevice, d.VKDescriptorPool, nil)
}
