package vulkan

import (
	"fmt"
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/triangle/engine/core"
)

// Window is what the graphics context needs from the platform window.
type Window interface {
	FramebufferSize() (uint32, uint32)
	RequestRedraw()
	GetRequiredExtensionNames() []string
	GetInstanceProcAddress() unsafe.Pointer
	CreateWindowSurface(instance interface{}) (uintptr, error)
}

type ContextConfig struct {
	ApplicationName    string
	Validation         bool
	PowerPreference    PowerPreference
	InitialPresentMode PresentMode
	ResizePresentMode  PresentMode
}

func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		ApplicationName:    "Hello Triangle",
		Validation:         true,
		PowerPreference:    PowerPreferenceLowPower,
		InitialPresentMode: PresentModeAutoVsync,
		ResizePresentMode:  PresentModeFifo,
	}
}

// GraphicsContext owns the GPU connection of one window: instance, surface,
// device, queues and the swapchain realizing the current surface
// configuration. Device, queues and format never change once created.
type GraphicsContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface
	Device    *VulkanDevice
	Swapchain *VulkanSwapchain

	window        Window
	cfg           ContextConfig
	format        SurfaceFormat
	config        SurfaceConfiguration
	suspended     bool
	stale         bool
	errorScopes   *ErrorScopes
	debugCallback vk.DebugReportCallback
}

// NewGraphicsContext blocks until the adapter and device are acquired and
// the surface is configured for the window's current size.
func NewGraphicsContext(window Window, cfg ContextConfig) (*GraphicsContext, error) {
	context := &GraphicsContext{
		Device:      &VulkanDevice{},
		window:      window,
		cfg:         cfg,
		errorScopes: NewErrorScopes(),
	}

	initialMode, err := ParsePresentMode(string(cfg.InitialPresentMode))
	if err != nil {
		return nil, err
	}
	if _, err := ParsePresentMode(string(cfg.ResizePresentMode)); err != nil {
		return nil, err
	}

	if err := createInstance(context, window, cfg.ApplicationName, cfg.Validation); err != nil {
		context.Destroy()
		return nil, err
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateWindowSurface(context.Instance)
	if err != nil {
		err = fmt.Errorf("vulkan surface creation failed: %w", err)
		core.LogError("%s", err)
		context.Destroy()
		return nil, err
	}
	context.Surface = vk.SurfaceFromPointer(surface)

	if err := DeviceCreate(context, cfg.PowerPreference); err != nil {
		context.Destroy()
		return nil, err
	}

	format, err := ChooseSurfaceFormat(context.Device.SwapchainSupport.Formats)
	if err != nil {
		core.LogError("%s", err)
		context.Destroy()
		return nil, err
	}
	context.format = format

	mode, err := initialMode.Resolve(context.Device.SwapchainSupport.PresentModes)
	if err != nil {
		core.LogError("%s", err)
		context.Destroy()
		return nil, err
	}

	width, height := window.FramebufferSize()
	context.config = newSurfaceConfiguration(format, mode, width, height)
	if width == 0 || height == 0 {
		context.suspended = true
	} else if err := context.configure(); err != nil {
		context.Destroy()
		return nil, err
	}

	core.LogInfo("Graphics context ready on %s: %dx%d, %s.", context.Device.Info, width, height, presentModeName(mode))
	return context, nil
}

// Resize reconfigures the surface for a new size with the resize present
// policy, then asks the window for a repaint. A zero dimension suspends
// drawing until the next non-zero size.
func (context *GraphicsContext) Resize(width, height uint32) error {
	defer context.window.RequestRedraw()

	mode, err := context.cfg.ResizePresentMode.Resolve(context.Device.SwapchainSupport.PresentModes)
	if err != nil {
		core.LogError("%s", err)
		return err
	}

	cfg, reconfigure := planResize(context.config, context.format, mode, width, height)
	if !reconfigure {
		core.LogDebug("Surface suspended (%dx%d).", width, height)
		context.suspended = true
		return nil
	}
	context.config = cfg
	context.suspended = false
	return context.configure()
}

// configure replaces the swapchain with one that matches the current
// configuration.
func (context *GraphicsContext) configure() error {
	if res := vk.DeviceWaitIdle(context.Device.LogicalDevice); res != vk.Success {
		return context.resultError("vkDeviceWaitIdle", res)
	}

	old := context.Swapchain
	swapchain, err := SwapchainCreate(context, context.config, old)
	if old != nil {
		old.Destroy(context)
	}
	if err != nil {
		context.Swapchain = nil
		return err
	}
	context.Swapchain = swapchain
	context.stale = false
	return nil
}

// SurfaceTexture is a swapchain image acquired for one frame.
type SurfaceTexture struct {
	Index          uint32
	Image          vk.Image
	Format         vk.Format
	Extent         vk.Extent2D
	RenderFinished vk.Semaphore
}

// AcquireSurfaceTexture returns the next image to render to. The semaphore
// is signaled when the image is ready. A swapchain that went out of date is
// rebuilt once before giving up.
func (context *GraphicsContext) AcquireSurfaceTexture(imageAvailable vk.Semaphore) (*SurfaceTexture, error) {
	if context.Swapchain == nil || context.stale {
		if err := context.configure(); err != nil {
			return nil, fmt.Errorf("%w: %s", core.ErrSurfaceTexture, err)
		}
	}

	index, res := context.Swapchain.AcquireNextImageIndex(context, math.MaxUint64, imageAvailable)
	if res == vk.ErrorOutOfDate {
		core.LogDebug("Swapchain out of date, reconfiguring.")
		if err := context.configure(); err != nil {
			return nil, fmt.Errorf("%w: %s", core.ErrSurfaceTexture, err)
		}
		index, res = context.Swapchain.AcquireNextImageIndex(context, math.MaxUint64, imageAvailable)
	}
	if !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("%w: %s", core.ErrSurfaceTexture, VulkanResultString(res, true))
		core.LogError("%s", err)
		return nil, err
	}

	return &SurfaceTexture{
		Index:          index,
		Image:          context.Swapchain.Images[index],
		Format:         context.config.Format,
		Extent:         context.Swapchain.Extent,
		RenderFinished: context.Swapchain.RenderFinished[index],
	}, nil
}

// Present hands a rendered surface texture back to the presentation engine.
func (context *GraphicsContext) Present(texture *SurfaceTexture) error {
	res := context.Swapchain.Present(context, texture.Index)
	switch {
	case res == vk.ErrorOutOfDate:
		// Rebuilt on the next acquire.
		context.stale = true
		return nil
	case !VulkanResultIsSuccess(res):
		return context.resultError("vkQueuePresentKHR", res)
	}
	return nil
}

// Submit runs the command buffer on the graphics queue once the image is
// available and signals the texture's render finished semaphore and fence.
func (context *GraphicsContext) Submit(commandBuffer *VulkanCommandBuffer, imageAvailable vk.Semaphore, texture *SurfaceTexture, fence *VulkanFence) error {
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{texture.RenderFinished},
	}
	if res := vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); res != vk.Success {
		return context.resultError("vkQueueSubmit", res)
	}
	commandBuffer.UpdateSubmitted()
	fence.IsSignaled = false
	return nil
}

// DiscardSurfaceTexture gives up on a texture that was acquired but never
// submitted. The pending signal on imageAvailable is consumed by an empty
// submission so the semaphore can be reused, and the swapchain is rebuilt on
// the next acquire to release the image.
func (context *GraphicsContext) DiscardSurfaceTexture(imageAvailable vk.Semaphore) error {
	context.stale = true

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{imageAvailable},
		PWaitDstStageMask:  []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)},
	}
	if res := vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
		return context.resultError("vkQueueSubmit", res)
	}
	if res := vk.QueueWaitIdle(context.Device.GraphicsQueue); res != vk.Success {
		return context.resultError("vkQueueWaitIdle", res)
	}
	return nil
}

// WaitIdle blocks until the device finished all submitted work.
func (context *GraphicsContext) WaitIdle() error {
	if res := vk.DeviceWaitIdle(context.Device.LogicalDevice); res != vk.Success {
		return context.resultError("vkDeviceWaitIdle", res)
	}
	return nil
}

func (context *GraphicsContext) Format() SurfaceFormat {
	return context.format
}

func (context *GraphicsContext) Configuration() SurfaceConfiguration {
	return context.config
}

func (context *GraphicsContext) Suspended() bool {
	return context.suspended
}

// Extent is the size of the images currently being presented.
func (context *GraphicsContext) Extent() (uint32, uint32) {
	if context.Swapchain == nil {
		return context.config.Width, context.config.Height
	}
	return context.Swapchain.Extent.Width, context.Swapchain.Extent.Height
}

func (context *GraphicsContext) AdapterInfo() AdapterInfo {
	return context.Device.Info
}

// ValidationEnabled reports whether validation messages reach the error
// scopes. Without the validation layer only out-of-memory errors do.
func (context *GraphicsContext) ValidationEnabled() bool {
	return context.debugCallback != vk.NullDebugReportCallback
}

func (context *GraphicsContext) PushErrorScope(filter ErrorFilter) {
	context.errorScopes.Push(filter)
}

func (context *GraphicsContext) PopErrorScope() error {
	return context.errorScopes.Pop()
}

// resultError turns a failed result into an error. Out of memory results
// are also reported to the error scopes.
func (context *GraphicsContext) resultError(op string, res vk.Result) error {
	err := fmt.Errorf("%s failed with %s", op, VulkanResultString(res, true))
	if isOutOfMemory(res) {
		context.errorScopes.Report(ErrorFilterOutOfMemory, err.Error())
	}
	core.LogError("%s", err)
	return err
}

// Destroy releases everything in the opposite order of creation.
func (context *GraphicsContext) Destroy() {
	if context.Device != nil && context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(context.Device.LogicalDevice)
	}

	if context.Swapchain != nil {
		context.Swapchain.Destroy(context)
		context.Swapchain = nil
	}

	DeviceDestroy(context)

	if context.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(context.Instance, context.Surface, context.Allocator)
		context.Surface = vk.NullSurface
	}

	if context.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(context.Instance, context.debugCallback, context.Allocator)
		context.debugCallback = vk.NullDebugReportCallback
	}

	if context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}
}
