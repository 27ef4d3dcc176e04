package vkbind

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkbind/descriptor"
	"github.com/celer/vkbind/spirv"
)

// CommandBuffer records commands for submission to a queue. Only the
// commands needed to bind descriptors and push constants are wrapped; use
// VK() for the rest.
type CommandBuffer struct {
	VKCommandBuffer vk.CommandBuffer
}

// ResetAndRelease will reset this commandbuffer and release the associated resources
func (c *CommandBuffer) ResetAndRelease() error {
	return vk.Error(vk.ResetCommandBuffer(c.VKCommandBuffer, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit)))
}

func (c *CommandBuffer) Reset() error {
	return vk.Error(vk.ResetCommandBuffer(c.VKCommandBuffer, 0))
}

// VK is a utility function for accessing the native vulkan command buffer
func (c *CommandBuffer) VK() vk.CommandBuffer {
	return c.VKCommandBuffer
}

// Begin capturing work for this command buffer
func (c *CommandBuffer) Begin() error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	return vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

// BeginOneTime begins a recording that will be submitted once.
func (c *CommandBuffer) BeginOneTime() error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	return vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

func (c *CommandBuffer) CmdBindDescriptorSets(bindPoint vk.PipelineBindPoint, layout *PipelineLayout, firstSet int, descriptorSets ...*DescriptorSet) {
	if len(descriptorSets) == 0 {
		return
	}
	sets := make([]vk.DescriptorSet, len(descriptorSets))
	for i := range descriptorSets {
		sets[i] = descriptorSets[i].VKDescriptorSet
	}

	vk.CmdBindDescriptorSets(c.VKCommandBuffer, bindPoint,
		layout.VKPipelineLayout, uint32(firstSet), uint32(len(descriptorSets)), sets, 0, nil)
}

// CmdBindChainSets binds every set of the chain's pool at its own set
// index.
func (c *CommandBuffer) CmdBindChainSets(bindPoint vk.PipelineBindPoint, chain *Chain, layout *PipelineLayout) error {
	for _, s := range chain.Pool.Sets() {
		ds, err := chain.Driver().Set(s.Handle)
		if err != nil {
			return err
		}
		c.CmdBindDescriptorSets(bindPoint, layout, int(s.Set), ds)
	}
	return nil
}

// End describing work for this command buffer
func (c *CommandBuffer) End() error {
	return vk.Error(vk.EndCommandBuffer(c.VKCommandBuffer))
}

type pushConstantRecorder struct {
	cb     *CommandBuffer
	layout *PipelineLayout
}

func (r pushConstantRecorder) PushConstants(stages spirv.StageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(r.cb.VKCommandBuffer, r.layout.VKPipelineLayout, vk.ShaderStageFlags(stages),
		offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

// PushConstantRecorder returns a recorder that writes push constants into
// this command buffer against layout.
func (c *CommandBuffer) PushConstantRecorder(layout *PipelineLayout) descriptor.CommandRecorder {
	return pushConstantRecorder{cb: c, layout: layout}
}
