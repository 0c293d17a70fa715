package core

import (
	"errors"
)

var (
	ErrNoVulkan               = errors.New("vulkan is not available on this system")
	ErrNoAdapter              = errors.New("no compatible adapter found")
	ErrNoSurfaceFormat        = errors.New("surface reports no supported formats")
	ErrPresentModeUnsupported = errors.New("present mode not supported by the surface")
	ErrUnknownPresentMode     = errors.New("unknown present mode")
	ErrUnknownPowerPreference = errors.New("unknown power preference")
	ErrSurfaceTexture         = errors.New("couldn't get next surface texture")
	ErrErrorScopeEmpty        = errors.New("no error scope to pop")
	ErrShaderCompile          = errors.New("shader compilation failed")
	ErrNoMemoryType           = errors.New("no suitable memory type")
	ErrWindowClosed           = errors.New("window already closed")
)
