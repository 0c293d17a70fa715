package engine

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spaghettifunk/triangle/engine/core"
	"github.com/spaghettifunk/triangle/engine/platform"
	"github.com/spaghettifunk/triangle/engine/renderer"
	"github.com/spaghettifunk/triangle/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// EventSource blocks until the window system has something to say and
// returns the queued events in order.
type EventSource interface {
	PumpMessages() []core.EventContext
}

// Surface is the part of the graphics context that follows the window size.
type Surface interface {
	Resize(width, height uint32) error
}

// Drawer renders one frame.
type Drawer interface {
	Draw(ctx *vulkan.GraphicsContext) error
}

type Option func(*Engine)

// WithEventSource replaces the GLFW window as the source of events.
func WithEventSource(events EventSource) Option {
	return func(e *Engine) {
		e.events = events
	}
}

// WithSurface replaces the graphics context as the target of resizes.
func WithSurface(surface Surface) Option {
	return func(e *Engine) {
		e.surface = surface
	}
}

// WithDrawer replaces the renderer.
func WithDrawer(drawer Drawer) Option {
	return func(e *Engine) {
		e.drawer = drawer
	}
}

// WithOutput sets where the per-frame "draw" line goes. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.out = w
	}
}

// Engine owns the window, the graphics context and the renderer and routes
// window events to them.
type Engine struct {
	currentStage Stage
	config       *ApplicationConfig
	out          io.Writer

	events  EventSource
	surface Surface
	drawer  Drawer

	platform *platform.Platform
	context  *vulkan.GraphicsContext
	renderer *renderer.Renderer

	clock     *core.Clock
	lastFrame float64
	metrics   *core.Metrics
}

func New(cfg *ApplicationConfig, options ...Option) (*Engine, error) {
	if cfg == nil {
		var err error
		if cfg, err = DefaultApplicationConfig(); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		out:          os.Stdout,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}
	for _, o := range options {
		o(e)
	}
	return e, nil
}

// Initialize opens the window, acquires the GPU and builds the renderer.
// Validation errors raised while building the renderer are fatal.
func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("engine cannot initialize while %s", e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	if e.config.LogLevel != "" {
		if err := core.SetLogLevel(e.config.LogLevel); err != nil {
			core.LogWarn("Invalid log level '%s': %s", e.config.LogLevel, err)
		}
	}

	contextConfig, err := e.contextConfig()
	if err != nil {
		core.LogError("%s", err)
		return err
	}

	if e.events == nil {
		e.platform = platform.New()
		if err := e.platform.Startup(e.config.Name,
			e.config.StartPosX,
			e.config.StartPosY,
			e.config.StartWidth,
			e.config.StartHeight); err != nil {
			return err
		}
		e.events = e.platform
	}

	if e.surface == nil || e.drawer == nil {
		if e.platform == nil {
			return errors.New("a graphics context needs the platform window")
		}
		e.context, err = vulkan.NewGraphicsContext(e.platform, contextConfig)
		if err != nil {
			return err
		}
		validation := validationMode(contextConfig.Validation, e.context.ValidationEnabled())
		if contextConfig.Validation && !e.context.ValidationEnabled() {
			core.LogWarn("Using adapter %s, %s.", e.context.AdapterInfo(), validation)
		} else {
			core.LogInfo("Using adapter %s, %s.", e.context.AdapterInfo(), validation)
		}
		if e.surface == nil {
			e.surface = e.context
		}
	}

	if e.drawer == nil {
		e.context.PushErrorScope(vulkan.ErrorFilterValidation)
		r, err := renderer.New(e.context, renderer.Config{ClearColor: e.config.Renderer.ClearColor})
		scopeErr := e.context.PopErrorScope()
		if err != nil {
			return err
		}
		if scopeErr != nil {
			err := fmt.Errorf("renderer creation: %w", scopeErr)
			core.LogError("%s", err)
			r.Destroy(e.context)
			return err
		}
		e.renderer = r
		e.drawer = r
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized.")
	return nil
}

// validationMode describes what the error scopes can catch.
func validationMode(requested, enabled bool) string {
	switch {
	case enabled:
		return "validation on"
	case requested:
		return "validation layer unavailable, error scopes only catch out-of-memory errors"
	default:
		return "validation off"
	}
}

func (e *Engine) contextConfig() (vulkan.ContextConfig, error) {
	cfg := vulkan.DefaultContextConfig()
	cfg.ApplicationName = e.config.Name
	cfg.Validation = e.config.Renderer.Validation

	var err error
	if cfg.PowerPreference, err = vulkan.ParsePowerPreference(e.config.Renderer.PowerPreference); err != nil {
		return cfg, err
	}
	if e.config.Renderer.InitialPresentMode != "" {
		if cfg.InitialPresentMode, err = vulkan.ParsePresentMode(e.config.Renderer.InitialPresentMode); err != nil {
			return cfg, err
		}
	}
	if e.config.Renderer.ResizePresentMode != "" {
		if cfg.ResizePresentMode, err = vulkan.ParsePresentMode(e.config.Renderer.ResizePresentMode); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Run dispatches window events until the window is closed. It returns nil
// on close and an error wrapping core.ErrSurfaceTexture when a frame could
// not get a surface image. Other draw errors are logged and the loop goes on.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine cannot run while %s", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.lastFrame = 0

	for {
		for _, event := range e.events.PumpMessages() {
			switch event.Type {
			case core.EVENT_CODE_RESIZED:
				width, height := event.Size()
				core.LogDebug("Window resize: %d, %d", width, height)
				if err := e.surface.Resize(width, height); err != nil {
					core.LogError("resize: %s", err)
				}
			case core.EVENT_CODE_CLOSE_REQUESTED:
				core.LogInfo("Close requested, shutting down.")
				return nil
			case core.EVENT_CODE_REDRAW_REQUESTED:
				if err := e.redraw(); err != nil {
					return err
				}
			default:
				core.LogWarn("Unhandled event '%s'.", event.Type)
			}
		}
	}
}

func (e *Engine) redraw() error {
	fmt.Fprintln(e.out, "draw")

	e.clock.Update()
	frameStart := e.clock.Elapsed()
	sinceLastFrame := frameStart - e.lastFrame
	e.lastFrame = frameStart

	err := e.drawer.Draw(e.context)

	e.clock.Update()
	e.metrics.Update(e.clock.Elapsed()-frameStart, sinceLastFrame)

	var scoped *vulkan.ValidationError
	switch {
	case errors.Is(err, core.ErrSurfaceTexture):
		core.LogError("draw: %s", err)
		return err
	case errors.As(err, &scoped):
		core.LogError("draw: %s error: %s", scoped.Filter, scoped.Details())
	case err != nil:
		core.LogError("draw: %s", err)
	}
	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.clock.Stop()

	fps, frameTime := e.metrics.Frame()
	core.LogDebug("Frames: %d, fps: %.1f, avg draw time: %.3fms.", e.metrics.TotalFrames, fps, frameTime)

	var errs []error
	if e.renderer != nil {
		errs = append(errs, e.renderer.Destroy(e.context))
		e.renderer = nil
	}
	if e.context != nil {
		e.context.Destroy()
		e.context = nil
	}
	if e.platform != nil {
		errs = append(errs, e.platform.Shutdown())
		e.platform = nil
	}
	return errors.Join(errs...)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Metrics() *core.Metrics {
	return e.metrics
}
