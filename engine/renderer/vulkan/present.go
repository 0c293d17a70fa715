package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/triangle/engine/core"
)

// PresentMode is a presentation policy. The auto policies pick the best
// mode the surface supports; the others name one exact mode.
type PresentMode string

const (
	PresentModeAutoVsync   PresentMode = "auto-vsync"
	PresentModeAutoNoVsync PresentMode = "auto-no-vsync"
	PresentModeFifo        PresentMode = "fifo"
	PresentModeFifoRelaxed PresentMode = "fifo-relaxed"
	PresentModeImmediate   PresentMode = "immediate"
	PresentModeMailbox     PresentMode = "mailbox"
)

func ParsePresentMode(s string) (PresentMode, error) {
	switch m := PresentMode(s); m {
	case PresentModeAutoVsync, PresentModeAutoNoVsync, PresentModeFifo,
		PresentModeFifoRelaxed, PresentModeImmediate, PresentModeMailbox:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownPresentMode, s)
	}
}

// Resolve maps the policy to a concrete mode among the supported ones.
// FIFO is always available on a conformant surface.
func (m PresentMode) Resolve(supported []vk.PresentMode) (vk.PresentMode, error) {
	var candidates []vk.PresentMode
	switch m {
	case PresentModeAutoVsync:
		candidates = []vk.PresentMode{vk.PresentModeFifoRelaxed, vk.PresentModeFifo}
	case PresentModeAutoNoVsync:
		candidates = []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo}
	case PresentModeFifo:
		return vk.PresentModeFifo, nil
	case PresentModeFifoRelaxed:
		candidates = []vk.PresentMode{vk.PresentModeFifoRelaxed}
	case PresentModeImmediate:
		candidates = []vk.PresentMode{vk.PresentModeImmediate}
	case PresentModeMailbox:
		candidates = []vk.PresentMode{vk.PresentModeMailbox}
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrUnknownPresentMode, string(m))
	}

	for _, c := range candidates {
		for _, s := range supported {
			if c == s {
				return c, nil
			}
		}
	}
	if m == PresentModeAutoVsync || m == PresentModeAutoNoVsync {
		return vk.PresentModeFifo, nil
	}
	return 0, fmt.Errorf("%w: %s", core.ErrPresentModeUnsupported, m)
}

func presentModeName(mode vk.PresentMode) string {
	switch mode {
	case vk.PresentModeImmediate:
		return "IMMEDIATE"
	case vk.PresentModeMailbox:
		return "MAILBOX"
	case vk.PresentModeFifo:
		return "FIFO"
	case vk.PresentModeFifoRelaxed:
		return "FIFO_RELAXED"
	default:
		return fmt.Sprintf("PresentMode(%d)", int32(mode))
	}
}

type SurfaceFormat struct {
	Format     vk.Format
	ColorSpace vk.ColorSpace
}

// ChooseSurfaceFormat returns the first format the surface reports. A lone
// undefined format means the surface has no preference.
func ChooseSurfaceFormat(formats []SurfaceFormat) (SurfaceFormat, error) {
	if len(formats) == 0 {
		return SurfaceFormat{}, core.ErrNoSurfaceFormat
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: formats[0].ColorSpace}, nil
	}
	return formats[0], nil
}

// SurfaceConfiguration describes how the surface is set up. Equal inputs
// give equal configurations.
type SurfaceConfiguration struct {
	Usage       vk.ImageUsageFlags
	Format      vk.Format
	ColorSpace  vk.ColorSpace
	PresentMode vk.PresentMode
	Width       uint32
	Height      uint32
}

func newSurfaceConfiguration(format SurfaceFormat, mode vk.PresentMode, width, height uint32) SurfaceConfiguration {
	return SurfaceConfiguration{
		Usage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		Format:      format.Format,
		ColorSpace:  format.ColorSpace,
		PresentMode: mode,
		Width:       width,
		Height:      height,
	}
}

// planResize returns the configuration for a new window size and whether
// the surface should be reconfigured at all. A zero dimension suspends
// presentation and keeps the current configuration.
func planResize(current SurfaceConfiguration, format SurfaceFormat, mode vk.PresentMode, width, height uint32) (SurfaceConfiguration, bool) {
	if width == 0 || height == 0 {
		return current, false
	}
	return newSurfaceConfiguration(format, mode, width, height), true
}
