package vkbind

import (
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DeviceMemory maps to Vulkan DeviceMemory. Memory used for descriptor
// buffers is always host visible and coherent, so a mapping never needs
// flushing.
type DeviceMemory struct {
	Device         *Device
	VKDeviceMemory vk.DeviceMemory
	Size           uint64
	MapCount       int32
}

// IsMapped returns true if the device memory is currently mapped
func (d *DeviceMemory) IsMapped() bool {
	return atomic.LoadInt32(&d.MapCount) > 0
}

func (d *DeviceMemory) Destroy() {
	vk.FreeMemory(d.Device.VKDevice, d.VKDeviceMemory, nil)
}

// MapRange maps size bytes at offset and returns them as a slice. Vulkan
// allows one mapping per memory object, so mapping memory that is already
// mapped is an error.
func (d *DeviceMemory) MapRange(offset, size uint64) ([]byte, error) {
	if offset+size > d.Size {
		return nil, errors.Errorf("map range %d+%d exceeds memory size %d", offset, size, d.Size)
	}
	if !atomic.CompareAndSwapInt32(&d.MapCount, 0, 1) {
		return nil, errors.New("memory is already mapped")
	}
	var res unsafe.Pointer
	err := vk.Error(vk.MapMemory(d.Device.VKDevice, d.VKDeviceMemory, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &res))
	if err != nil {
		atomic.StoreInt32(&d.MapCount, 0)
		return nil, errors.Wrap(err, "map memory")
	}
	return ToBytes(res, int(size)), nil
}

func (d *DeviceMemory) Unmap() {
	if atomic.CompareAndSwapInt32(&d.MapCount, 1, 0) {
		vk.UnmapMemory(d.Device.VKDevice, d.VKDeviceMemory)
	}
}
