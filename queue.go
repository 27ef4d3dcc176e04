package vkbind

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type Queue struct {
	Device      *Device
	QueueFamily *QueueFamily
	VKQueue     vk.Queue
}

// GetQueue returns the first queue of a family the device was created
// with.
func (d *Device) GetQueue(qf *QueueFamily) *Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(d.VKDevice, uint32(qf.Index), 0, &queue)
	return &Queue{Device: d, QueueFamily: qf, VKQueue: queue}
}

func (q *Queue) WaitIdle() error {
	return vk.Error(vk.QueueWaitIdle(q.VKQueue))
}

func submitInfo(buffers []*CommandBuffer) []vk.SubmitInfo {
	b := make([]vk.CommandBuffer, len(buffers))
	for i := range buffers {
		b[i] = buffers[i].VKCommandBuffer
	}
	return []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(b)),
		PCommandBuffers:    b,
	}}
}

// SubmitWaitIdle submits buffers and blocks until the queue is idle.
func (q *Queue) SubmitWaitIdle(buffers ...*CommandBuffer) error {
	err := vk.Error(vk.QueueSubmit(q.VKQueue, 1, submitInfo(buffers), vk.NullFence))
	if err != nil {
		return errors.Wrap(err, "queue submit")
	}
	return q.WaitIdle()
}

// SubmitWithFence submits buffers; fence is signaled when they complete.
func (q *Queue) SubmitWithFence(fence *Fence, buffers ...*CommandBuffer) error {
	err := vk.Error(vk.QueueSubmit(q.VKQueue, 1, submitInfo(buffers), fence.VKFence))
	if err != nil {
		return errors.Wrap(err, "queue submit")
	}
	return nil
}

func (q *Queue) String() string {
	return fmt.Sprintf("{Device: %s QueueFamily: %s}", q.Device.String(), q.QueueFamily.String())
}
