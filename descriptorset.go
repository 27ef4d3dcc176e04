package vkbind

import (
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorSet is a binding of resources to a descriptor, per a specific DescriptorSetLayout.
// Writes are queued with the Add methods and applied by Write.
type DescriptorSet struct {
	Device               *Device
	DescriptorPool       *DescriptorPool
	Layout               *DescriptorSetLayout
	VKDescriptorSet      vk.DescriptorSet
	VKWriteDiscriptorSet []vk.WriteDescriptorSet
}

func (du *DescriptorSet) queue(w vk.WriteDescriptorSet) {
	w.SType = vk.StructureTypeWriteDescriptorSet
	w.DescriptorCount = 1
	du.VKWriteDiscriptorSet = append(du.VKWriteDiscriptorSet, w)
}

// AddBuffer queues a write of a buffer range to a uniform or storage binding
func (du *DescriptorSet) AddBuffer(dstBinding, element uint32, dtype vk.DescriptorType, info vk.DescriptorBufferInfo) {
	du.queue(vk.WriteDescriptorSet{
		DstBinding:      dstBinding,
		DstArrayElement: element,
		DescriptorType:  dtype,
		PBufferInfo:     []vk.DescriptorBufferInfo{info},
	})
}

// AddImage queues a write to a sampler, image or combined image sampler binding
func (du *DescriptorSet) AddImage(dstBinding, element uint32, dtype vk.DescriptorType, layout vk.ImageLayout, imageView vk.ImageView, sampler vk.Sampler) {
	du.queue(vk.WriteDescriptorSet{
		DstBinding:      dstBinding,
		DstArrayElement: element,
		DescriptorType:  dtype,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     sampler,
			ImageView:   imageView,
			ImageLayout: layout,
		}},
	})
}

// AddTexelBufferView queues a write to a texel buffer binding
func (du *DescriptorSet) AddTexelBufferView(dstBinding, element uint32, dtype vk.DescriptorType, view vk.BufferView) {
	du.queue(vk.WriteDescriptorSet{
		DstBinding:       dstBinding,
		DstArrayElement:  element,
		DescriptorType:   dtype,
		PTexelBufferView: []vk.BufferView{view},
	})
}

// Write applies and clears the queued writes
func (du *DescriptorSet) Write() {
	if len(du.VKWriteDiscriptorSet) == 0 {
		return
	}
	for i := range du.VKWriteDiscriptorSet {
		du.VKWriteDiscriptorSet[i].DstSet = du.VKDescriptorSet
	}
	vk.UpdateDescriptorSets(du.Device.VKDevice, uint32(len(du.VKWriteDiscriptorSet)), du.VKWriteDiscriptorSet, 0, nil)
	du.VKWriteDiscriptorSet = nil
}

// Destroy returns the set to its pool
func (du *DescriptorSet) Destroy() {
	du.DescriptorPool.Free(du)
}
