package vulkan

import (
	"fmt"
	"image"

	vk "github.com/goki/vulkan"
)

// OffscreenTarget is a color image in the surface format that can be
// rendered to and read back by the host.
type OffscreenTarget struct {
	Image    *VulkanImage
	Readback *VulkanBuffer
	Width    uint32
	Height   uint32
}

func NewOffscreenTarget(context *GraphicsContext, format vk.Format, width, height uint32) (*OffscreenTarget, error) {
	if _, err := bytesPerPixel(format); err != nil {
		return nil, err
	}

	img, err := ImageCreate(context, width, height, format, vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	size := vk.DeviceSize(width) * vk.DeviceSize(height) * 4
	buffer, err := BufferCreate(context, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		img.Destroy(context)
		return nil, err
	}

	return &OffscreenTarget{
		Image:    img,
		Readback: buffer,
		Width:    width,
		Height:   height,
	}, nil
}

// RecordCopy copies the image into the readback buffer. The image must be
// in the transfer source layout.
func (t *OffscreenTarget) RecordCopy(commandBuffer *VulkanCommandBuffer) {
	// Color writes of the render pass must land before the transfer reads.
	vk.CmdPipelineBarrier(commandBuffer.Handle,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0,
		1, []vk.MemoryBarrier{{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessTransferReadBit),
		}},
		0, nil, 0, nil)

	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: t.Width, Height: t.Height, Depth: 1},
	}
	vk.CmdCopyImageToBuffer(commandBuffer.Handle, t.Image.Handle, vk.ImageLayoutTransferSrcOptimal,
		t.Readback.Handle, 1, []vk.BufferImageCopy{region})

	vk.CmdPipelineBarrier(commandBuffer.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageHostBit),
		0,
		1, []vk.MemoryBarrier{{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessHostReadBit),
		}},
		0, nil, 0, nil)
}

// Pixels reads the buffer back once the copy has completed.
func (t *OffscreenTarget) Pixels(context *GraphicsContext) (*image.RGBA, error) {
	data, err := t.Readback.ReadData(context, 0, t.Readback.Size)
	if err != nil {
		return nil, err
	}
	return PixelsToRGBA(data, t.Image.Format, t.Width, t.Height)
}

func (t *OffscreenTarget) Destroy(context *GraphicsContext) {
	if t.Readback != nil {
		t.Readback.Destroy(context)
		t.Readback = nil
	}
	if t.Image != nil {
		t.Image.Destroy(context)
		t.Image = nil
	}
}

func bytesPerPixel(format vk.Format) (int, error) {
	switch format {
	case vk.FormatB8g8r8a8Unorm, vk.FormatB8g8r8a8Srgb,
		vk.FormatR8g8b8a8Unorm, vk.FormatR8g8b8a8Srgb:
		return 4, nil
	}
	return 0, fmt.Errorf("unsupported capture format %d", format)
}

// PixelsToRGBA converts tightly packed 8 bit pixels to an RGBA image,
// swizzling BGRA layouts.
func PixelsToRGBA(data []byte, format vk.Format, width, height uint32) (*image.RGBA, error) {
	bpp, err := bytesPerPixel(format)
	if err != nil {
		return nil, err
	}
	want := int(width) * int(height) * bpp
	if len(data) < want {
		return nil, fmt.Errorf("capture holds %d bytes, %dx%d needs %d", len(data), width, height, want)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	copy(img.Pix, data[:want])

	if format == vk.FormatB8g8r8a8Unorm || format == vk.FormatB8g8r8a8Srgb {
		for i := 0; i < want; i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}
	return img, nil
}
