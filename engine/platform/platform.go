package platform

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/triangle/engine/containers"
	"github.com/spaghettifunk/triangle/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window

	events *containers.RingQueue[core.EventContext]
}

func New() *Platform {
	return &Platform{
		Window: nil,
		events: containers.NewRingQueue[core.EventContext](16),
	}
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		err = fmt.Errorf("failed to initialize glfw: %w", err)
		core.LogError("%s", err)
		return err
	}

	if !glfw.VulkanSupported() {
		core.LogError("glfw could not find a Vulkan loader")
		glfw.Terminate()
		return core.ErrNoVulkan
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		err = fmt.Errorf("failed to create window: %w", err)
		core.LogError("%s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetRefreshCallback(p.refreshCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	// The first frame is drawn without waiting for the window system to ask.
	p.RequestRedraw()

	core.LogDebug("Window '%s' created (%dx%d).", applicationName, width, height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages blocks until the window system produced at least one event
// and returns everything queued so far. Redraw requests are coalesced.
func (p *Platform) PumpMessages() []core.EventContext {
	if p.events.IsEmpty() {
		glfw.WaitEvents()
	} else {
		glfw.PollEvents()
	}
	return core.CoalesceRedraws(p.events.Drain())
}

// RequestRedraw schedules a redraw event and wakes up PumpMessages.
func (p *Platform) RequestRedraw() {
	p.events.Enqueue(core.NewRedrawRequestedEvent())
	glfw.PostEmptyEvent()
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) GetInstanceProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

// CreateWindowSurface creates a VkSurfaceKHR for the window and returns the
// raw handle.
func (p *Platform) CreateWindowSurface(instance interface{}) (uintptr, error) {
	if p.Window == nil {
		return 0, core.ErrWindowClosed
	}
	return p.Window.CreateWindowSurface(instance, nil)
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.events.Enqueue(core.NewResizedEvent(uint32(width), uint32(height)))
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.events.Enqueue(core.NewCloseRequestedEvent())
}

func (p *Platform) refreshCallback(w *glfw.Window) {
	p.events.Enqueue(core.NewRedrawRequestedEvent())
}
