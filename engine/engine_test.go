package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/spaghettifunk/triangle/engine/core"
	"github.com/spaghettifunk/triangle/engine/renderer/vulkan"
)

type fakeEvents struct {
	batches [][]core.EventContext
	pumped  int
}

func (f *fakeEvents) PumpMessages() []core.EventContext {
	if f.pumped >= len(f.batches) {
		// A real window would block here; the tests always end with a close.
		panic("event source exhausted")
	}
	b := f.batches[f.pumped]
	f.pumped++
	return b
}

type fakeSurface struct {
	sizes [][2]uint32
}

func (f *fakeSurface) Resize(width, height uint32) error {
	f.sizes = append(f.sizes, [2]uint32{width, height})
	return nil
}

type fakeDrawer struct {
	errs  []error
	draws int
}

func (f *fakeDrawer) Draw(ctx *vulkan.GraphicsContext) error {
	f.draws++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func newTestEngine(t *testing.T, events *fakeEvents, surface *fakeSurface, drawer *fakeDrawer) (*Engine, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	e, err := New(nil,
		WithEventSource(events),
		WithSurface(surface),
		WithDrawer(drawer),
		WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if e.Stage() != EngineStageInitialized {
		t.Fatalf("Stage() = %s, want initialized", e.Stage())
	}
	return e, &out
}

func TestRunDispatch(t *testing.T) {
	events := &fakeEvents{batches: [][]core.EventContext{
		{core.NewRedrawRequestedEvent()},
		{core.NewResizedEvent(400, 300), core.NewRedrawRequestedEvent()},
		{core.NewResizedEvent(0, 0)},
		{core.NewCloseRequestedEvent()},
	}}
	surface := &fakeSurface{}
	drawer := &fakeDrawer{}
	e, out := newTestEngine(t, events, surface, drawer)

	if err := e.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if drawer.draws != 2 {
		t.Errorf("draws = %d, want 2", drawer.draws)
	}
	if got, want := out.String(), "draw\ndraw\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if fmt.Sprint(surface.sizes) != "[[400 300] [0 0]]" {
		t.Errorf("resizes = %v, want [[400 300] [0 0]]", surface.sizes)
	}
	if e.Metrics().TotalFrames != 2 {
		t.Errorf("TotalFrames = %d, want 2", e.Metrics().TotalFrames)
	}
	if err := e.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestRunCloseDropsLaterEvents(t *testing.T) {
	events := &fakeEvents{batches: [][]core.EventContext{
		{core.NewCloseRequestedEvent(), core.NewRedrawRequestedEvent(), core.NewResizedEvent(10, 10)},
	}}
	surface := &fakeSurface{}
	drawer := &fakeDrawer{}
	e, out := newTestEngine(t, events, surface, drawer)

	if err := e.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if drawer.draws != 0 || out.Len() != 0 || len(surface.sizes) != 0 {
		t.Errorf("events after close were handled: draws=%d out=%q resizes=%v", drawer.draws, out.String(), surface.sizes)
	}
}

func TestRunDrawErrors(t *testing.T) {
	var logs bytes.Buffer
	core.SetLogOutput(&logs)
	t.Cleanup(func() { core.SetLogOutput(io.Discard) })

	validation := &vulkan.ValidationError{Filter: vulkan.ErrorFilterValidation, Messages: []string{"bad stride"}}
	several := &vulkan.ValidationError{Filter: vulkan.ErrorFilterValidation, Messages: []string{"wrong format", "missing binding 0"}}
	surfaceErr := fmt.Errorf("%w: VK_ERROR_SURFACE_LOST_KHR", core.ErrSurfaceTexture)

	events := &fakeEvents{batches: [][]core.EventContext{
		{core.NewRedrawRequestedEvent()},
		{core.NewRedrawRequestedEvent()},
		{core.NewRedrawRequestedEvent()},
		{core.NewRedrawRequestedEvent()},
	}}
	drawer := &fakeDrawer{errs: []error{validation, several, surfaceErr}}
	e, _ := newTestEngine(t, events, &fakeSurface{}, drawer)

	err := e.Run()
	if !errors.Is(err, core.ErrSurfaceTexture) {
		t.Fatalf("Run() error = %v, want ErrSurfaceTexture", err)
	}
	if drawer.draws != 3 {
		t.Errorf("draws = %d, want 3", drawer.draws)
	}
	for _, want := range []string{"draw: validation error: bad stride", "wrong format", "missing binding 0"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log does not contain %q, got %q", want, logs.String())
		}
	}
}

func TestStages(t *testing.T) {
	e, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.Stage() != EngineStageUninitialized {
		t.Errorf("Stage() = %s, want uninitialized", e.Stage())
	}
	if err := e.Run(); err == nil {
		t.Error("Run() before Initialize succeeded")
	}

	e, _ = newTestEngine(t, &fakeEvents{batches: [][]core.EventContext{{core.NewCloseRequestedEvent()}}}, &fakeSurface{}, &fakeDrawer{})
	if err := e.Initialize(); err == nil {
		t.Error("second Initialize() succeeded")
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if err := e.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if e.Stage() != EngineStageShuttingDown {
		t.Errorf("Stage() = %s, want shutting down", e.Stage())
	}
}

func TestInitializeRejectsBadPolicy(t *testing.T) {
	cfg, err := DefaultApplicationConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Renderer.InitialPresentMode = "sometimes"

	e, err := New(cfg, WithEventSource(&fakeEvents{}), WithSurface(&fakeSurface{}), WithDrawer(&fakeDrawer{}))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); !errors.Is(err, core.ErrUnknownPresentMode) {
		t.Errorf("Initialize() error = %v, want ErrUnknownPresentMode", err)
	}
}

func TestValidationMode(t *testing.T) {
	tests := []struct {
		name               string
		requested, enabled bool
		want               string
	}{
		{"enabled", true, true, "validation on"},
		{"missing layer", true, false, "validation layer unavailable, error scopes only catch out-of-memory errors"},
		{"not requested", false, false, "validation off"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validationMode(tt.requested, tt.enabled); got != tt.want {
				t.Errorf("validationMode(%t, %t) = %q, want %q", tt.requested, tt.enabled, got, tt.want)
			}
		})
	}
}
