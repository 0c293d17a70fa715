package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/triangle/engine/core"
	emath "github.com/spaghettifunk/triangle/engine/math"
)

// VulkanSwapchain realizes one SurfaceConfiguration. Views are not kept
// here; a frame creates a view of the image it acquired.
type VulkanSwapchain struct {
	Handle     vk.Swapchain
	Config     SurfaceConfiguration
	Extent     vk.Extent2D
	ImageCount uint32
	Images     []vk.Image

	// One per image, signaled when rendering to that image is done.
	RenderFinished []vk.Semaphore
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []vk.PresentMode
}

// chooseExtent uses the surface's current extent when it reports one and
// the requested size otherwise, clamped to what the surface allows.
func chooseExtent(current, min, max vk.Extent2D, width, height uint32) vk.Extent2D {
	extent := vk.Extent2D{Width: width, Height: height}
	if current.Width != math.MaxUint32 {
		extent = current
	}
	extent.Width = emath.Clamp(extent.Width, min.Width, max.Width)
	extent.Height = emath.Clamp(extent.Height, min.Height, max.Height)
	return extent
}

// chooseImageCount asks for one image more than the minimum. A maximum of 0
// means no limit.
func chooseImageCount(min, max uint32) uint32 {
	count := min + 1
	if max > 0 && count > max {
		count = max
	}
	return count
}

// SwapchainCreate builds a swapchain for cfg. The old swapchain, if any, is
// handed to the driver for reuse and must be destroyed by the caller.
func SwapchainCreate(context *GraphicsContext, cfg SurfaceConfiguration, old *VulkanSwapchain) (*VulkanSwapchain, error) {
	support, err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	context.Device.SwapchainSupport = support
	caps := support.Capabilities

	swapchain := &VulkanSwapchain{
		Config: cfg,
		Extent: chooseExtent(caps.CurrentExtent, caps.MinImageExtent, caps.MaxImageExtent, cfg.Width, cfg.Height),
	}
	imageCount := chooseImageCount(caps.MinImageCount, caps.MaxImageCount)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      cfg.Format,
		ImageColorSpace:  cfg.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       cfg.Usage,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      cfg.PresentMode,
		Clipped:          vk.True,
	}

	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			context.Device.GraphicsQueueIndex,
			context.Device.PresentQueueIndex,
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}
	if old != nil {
		swapchainCreateInfo.OldSwapchain = old.Handle
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, context.resultError("vkCreateSwapchainKHR", res)
	}
	swapchain.Handle = handle

	// Images
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		swapchain.Destroy(context)
		return nil, context.resultError("vkGetSwapchainImagesKHR", res)
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		swapchain.Destroy(context)
		return nil, context.resultError("vkGetSwapchainImagesKHR", res)
	}

	swapchain.RenderFinished = make([]vk.Semaphore, swapchain.ImageCount)
	for i := range swapchain.RenderFinished {
		s, err := NewSemaphore(context)
		if err != nil {
			swapchain.Destroy(context)
			return nil, err
		}
		swapchain.RenderFinished[i] = s
	}

	core.LogDebug("Swapchain created: %dx%d, %d images, %s.",
		swapchain.Extent.Width, swapchain.Extent.Height, swapchain.ImageCount, presentModeName(cfg.PresentMode))
	return swapchain, nil
}

// AcquireNextImageIndex returns the index of the next image to render to.
// The semaphore is signaled once the image is ready.
func (vs *VulkanSwapchain) AcquireNextImageIndex(context *GraphicsContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore) (uint32, vk.Result) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, vk.Fence(vk.NullHandle), &imageIndex)
	return imageIndex, result
}

// Present queues the image for display once the image's render finished
// semaphore is signaled.
func (vs *VulkanSwapchain) Present(context *GraphicsContext, imageIndex uint32) vk.Result {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{vs.RenderFinished[imageIndex]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	return vk.QueuePresent(context.Device.PresentQueue, &presentInfo)
}

func (vs *VulkanSwapchain) Destroy(context *GraphicsContext) {
	for i := range vs.RenderFinished {
		if vs.RenderFinished[i] != vk.Semaphore(vk.NullHandle) {
			vk.DestroySemaphore(context.Device.LogicalDevice, vs.RenderFinished[i], context.Allocator)
		}
	}
	vs.RenderFinished = nil

	// Images are owned by the swapchain and go away with it.
	if vs.Handle != vk.Swapchain(vk.NullHandle) {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.Swapchain(vk.NullHandle)
	}
	vs.Images = nil
	vs.ImageCount = 0
}

func (vs *VulkanSwapchain) String() string {
	return fmt.Sprintf("swapchain %dx%d (%d images)", vs.Extent.Width, vs.Extent.Height, vs.ImageCount)
}
