package vkbind

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkbind/descriptor"
)

// DescriptorSetLayout describes the layout of a descriptorset
type DescriptorSetLayout struct {
	Device                        *Device
	VKDescriptorSetLayout         vk.DescriptorSetLayout
	VKDescriptorSetLayoutBindings []vk.DescriptorSetLayoutBinding
}

func vkLayoutBindings(bindings []descriptor.LayoutBinding) []vk.DescriptorSetLayoutBinding {
	ret := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		ret[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vk.DescriptorType(b.Type),
			DescriptorCount: b.Count,
			StageFlags:      vk.ShaderStageFlags(b.Stages),
		}
	}
	return ret
}

// CreateDescriptorSetLayout creates a layout with the given bindings. An
// empty list creates the empty layout used for unused set indices.
func (d *Device) CreateDescriptorSetLayout(bindings []descriptor.LayoutBinding) (*DescriptorSetLayout, error) {
	vkBindings := vkLayoutBindings(bindings)
	var descriptorSetLayoutCreateInfo = &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}

	var descriptorSetLayout vk.DescriptorSetLayout
	err := vk.Error(vk.CreateDescriptorSetLayout(d.VKDevice, descriptorSetLayoutCreateInfo, nil, &descriptorSetLayout))
	if err != nil {
		return nil, errors.Wrap(err, "create descriptor set layout")
	}

	return &DescriptorSetLayout{
		Device:                        d,
		VKDescriptorSetLayout:         descriptorSetLayout,
		VKDescriptorSetLayoutBindings: vkBindings,
	}, nil
}

// Destroy destroys this descriptor set layout
func (d *DescriptorSetLayout) Destroy() {
	vk.DestroyDescriptorSetLayout(d.Device.VKDevice, d.VKDescriptorSetLayout, nil)
}
