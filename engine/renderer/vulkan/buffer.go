package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// VulkanBuffer is a buffer with its own dedicated memory allocation.
type VulkanBuffer struct {
	Handle      vk.Buffer
	Memory      vk.DeviceMemory
	Size        vk.DeviceSize
	Usage       vk.BufferUsageFlags
	MemoryFlags vk.MemoryPropertyFlags
}

func BufferCreate(context *GraphicsContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	outBuffer := &VulkanBuffer{
		Size:        size,
		Usage:       usage,
		MemoryFlags: memoryFlags,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buffer); res != vk.Success {
		return nil, context.resultError("vkCreateBuffer", res)
	}
	outBuffer.Handle = buffer

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType, err := findMemoryIndex(context.Device.Memory, memoryRequirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		outBuffer.Destroy(context)
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		outBuffer.Destroy(context)
		return nil, context.resultError("vkAllocateMemory", res)
	}
	outBuffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer, memory, 0); res != vk.Success {
		outBuffer.Destroy(context)
		return nil, context.resultError("vkBindBufferMemory", res)
	}
	return outBuffer, nil
}

// LoadData copies data into a host visible buffer at offset.
func (vb *VulkanBuffer) LoadData(context *GraphicsContext, offset vk.DeviceSize, data []byte) error {
	size := vk.DeviceSize(len(data))
	if offset+size > vb.Size {
		return fmt.Errorf("buffer load of %d bytes at %d overflows buffer of %d bytes", size, offset, vb.Size)
	}
	var pData unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, vb.Memory, offset, size, 0, &pData); res != vk.Success {
		return context.resultError("vkMapMemory", res)
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
	return nil
}

// ReadData copies size bytes at offset out of a host visible buffer.
func (vb *VulkanBuffer) ReadData(context *GraphicsContext, offset, size vk.DeviceSize) ([]byte, error) {
	if offset+size > vb.Size {
		return nil, fmt.Errorf("buffer read of %d bytes at %d overflows buffer of %d bytes", size, offset, vb.Size)
	}
	var pData unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, vb.Memory, offset, size, 0, &pData); res != vk.Success {
		return nil, context.resultError("vkMapMemory", res)
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(pData), int(size)))
	vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
	return out, nil
}

func (vb *VulkanBuffer) Destroy(context *GraphicsContext) {
	if vb.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = nil
	}
	if vb.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = nil
	}
}
