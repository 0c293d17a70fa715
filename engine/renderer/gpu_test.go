package renderer

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/spaghettifunk/triangle/engine/renderer/vulkan"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func TestCaptureE2E(t *testing.T) {
	g := newGPU(t)

	var err error
	onMain(func() { err = g.renderer.Draw(g.ctx) })
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	var img *image.RGBA
	onMain(func() { img, err = g.renderer.Capture(g.ctx, 800, 600) })
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if c := coverage(img, red); c < 0.45 || c > 0.55 {
		t.Errorf("triangle covers %.3f of the frame, want about 0.5", c)
	}

	want := ReferenceImage(800, 600, DefaultConfig().ClearColor, blue)
	edge, stray := diffReference(img, want, red, blue)
	if len(stray) > 0 {
		p := stray[0]
		t.Errorf("%d pixels off the triangle outline differ from the reference, first (%d, %d) = %v, want %v",
			len(stray), p.X, p.Y, img.RGBAAt(p.X, p.Y), want.RGBAAt(p.X, p.Y))
	}
	if limit := int(perimeter(800, 600)); edge > limit {
		t.Errorf("%d outline pixels differ from the reference, want at most %d", edge, limit)
	}

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"center", 400, 300, blue},
		{"left", 40, 300, red},
		{"right", 760, 300, red},
		{"top left", 100, 50, red},
		{"top right", 700, 50, red},
		{"below apex", 400, 60, blue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := img.RGBAAt(tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestDrawAfterDiscardedTexture(t *testing.T) {
	g := newGPU(t)

	var err error
	onMain(func() {
		g.ctx.PushErrorScope(vulkan.ErrorFilterValidation)
		defer func() {
			if scopeErr := g.ctx.PopErrorScope(); err == nil {
				err = scopeErr
			}
		}()
		if _, err = g.ctx.AcquireSurfaceTexture(g.renderer.imageAvailable); err != nil {
			return
		}
		err = g.ctx.DiscardSurfaceTexture(g.renderer.imageAvailable)
	})
	if err != nil {
		t.Fatalf("acquire and discard: %v", err)
	}

	for i := 0; i < 3; i++ {
		onMain(func() { err = g.renderer.Draw(g.ctx) })
		if err != nil {
			t.Fatalf("Draw() #%d after discard error = %v", i, err)
		}
	}
}

func TestDrawKeepsState(t *testing.T) {
	g := newGPU(t)

	before := g.renderer.VertexBytes()
	description := g.renderer.Description()
	pipeline := g.renderer.pipeline.Handle
	buffer := g.renderer.vertexBuffer.Handle

	for i := 0; i < 5; i++ {
		var err error
		onMain(func() { err = g.renderer.Draw(g.ctx) })
		if err != nil {
			t.Fatalf("Draw() #%d error = %v", i, err)
		}
	}

	if !bytes.Equal(before, g.renderer.VertexBytes()) || !bytes.Equal(before, EncodeVertices(TriangleVertices)) {
		t.Error("vertex bytes changed across draws")
	}
	if g.renderer.Description() != description {
		t.Error("pipeline description changed across draws")
	}
	if g.renderer.pipeline.Handle != pipeline || g.renderer.vertexBuffer.Handle != buffer {
		t.Error("pipeline or vertex buffer replaced across draws")
	}
}

func TestResizeE2E(t *testing.T) {
	g := newGPU(t)
	device := g.ctx.Device.LogicalDevice

	var err error
	onMain(func() { err = g.ctx.Resize(400, 300) })
	if err != nil {
		t.Fatalf("Resize(400, 300) error = %v", err)
	}
	first := g.ctx.Configuration()

	onMain(func() { err = g.ctx.Resize(400, 300) })
	if err != nil {
		t.Fatalf("second Resize(400, 300) error = %v", err)
	}
	if g.ctx.Configuration() != first {
		t.Errorf("equal resizes gave %+v and %+v", first, g.ctx.Configuration())
	}
	if first.Width != 400 || first.Height != 300 {
		t.Errorf("configuration = %dx%d, want 400x300", first.Width, first.Height)
	}

	onMain(func() { err = g.renderer.Draw(g.ctx) })
	if err != nil {
		t.Fatalf("Draw() after resize error = %v", err)
	}
	if g.ctx.Device.LogicalDevice != device {
		t.Error("device changed across resize")
	}
}

func TestResizeZeroE2E(t *testing.T) {
	g := newGPU(t)

	var err error
	onMain(func() { err = g.ctx.Resize(0, 0) })
	if err != nil {
		t.Fatalf("Resize(0, 0) error = %v", err)
	}
	if !g.ctx.Suspended() {
		t.Fatal("context not suspended after zero resize")
	}
	onMain(func() { err = g.renderer.Draw(g.ctx) })
	if err != nil {
		t.Fatalf("Draw() while suspended error = %v", err)
	}

	onMain(func() { err = g.ctx.Resize(800, 600) })
	if err != nil {
		t.Fatalf("Resize(800, 600) error = %v", err)
	}
	if g.ctx.Suspended() {
		t.Fatal("context still suspended")
	}
	onMain(func() { err = g.renderer.Draw(g.ctx) })
	if err != nil {
		t.Fatalf("Draw() after resume error = %v", err)
	}
}

func TestResizeManyE2E(t *testing.T) {
	g := newGPU(t)
	for _, size := range [][2]uint32{{1, 1}, {640, 480}, {1024, 16}, {16, 1024}, {800, 600}} {
		var err error
		onMain(func() {
			if err = g.ctx.Resize(size[0], size[1]); err == nil {
				err = g.renderer.Draw(g.ctx)
			}
		})
		if err != nil {
			t.Fatalf("resize to %dx%d: %v", size[0], size[1], err)
		}
	}
	if w, h := g.ctx.Extent(); w == 0 || h == 0 {
		t.Errorf("extent %dx%d after resizes", w, h)
	}
}
