package renderer

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"slices"
	"testing"

	"github.com/spaghettifunk/triangle/engine/core"
	emath "github.com/spaghettifunk/triangle/engine/math"
	"github.com/spaghettifunk/triangle/engine/platform"
	"github.com/spaghettifunk/triangle/engine/renderer/vulkan"
)

// The window system only works on the main thread, which TestMain keeps for
// itself and lends out through onMain.
var mainfunc = make(chan func())

func TestMain(m *testing.M) {
	done := make(chan int, 1)
	go func() {
		done <- m.Run()
	}()
	for {
		select {
		case f := <-mainfunc:
			f()
		case code := <-done:
			os.Exit(code)
		}
	}
}

func onMain(f func()) {
	done := make(chan struct{})
	mainfunc <- func() {
		f()
		close(done)
	}
	<-done
}

type gpu struct {
	platform *platform.Platform
	ctx      *vulkan.GraphicsContext
	renderer *Renderer
}

// newGPU opens a window with a context and renderer, or skips the test when
// the machine has no display or no Vulkan device.
func newGPU(t *testing.T) *gpu {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping GPU test in short mode")
	}

	g := &gpu{platform: platform.New()}
	var err error
	onMain(func() {
		err = g.platform.Startup("triangle-test", 0, 0, 800, 600)
	})
	if err != nil {
		t.Skipf("no window system: %v", err)
	}

	cfg := vulkan.DefaultContextConfig()
	onMain(func() {
		g.ctx, err = vulkan.NewGraphicsContext(g.platform, cfg)
	})
	if err != nil {
		onMain(func() { _ = g.platform.Shutdown() })
		if errors.Is(err, core.ErrNoVulkan) || errors.Is(err, core.ErrNoAdapter) {
			t.Skipf("no Vulkan device: %v", err)
		}
		t.Fatalf("NewGraphicsContext() error = %v", err)
	}

	onMain(func() {
		g.ctx.PushErrorScope(vulkan.ErrorFilterValidation)
		g.renderer, err = New(g.ctx, DefaultConfig())
		if err == nil {
			err = g.ctx.PopErrorScope()
		} else {
			_ = g.ctx.PopErrorScope()
		}
	})
	if err != nil {
		g.close()
		t.Fatalf("New() error = %v", err)
	}

	t.Cleanup(g.close)
	return g
}

func (g *gpu) close() {
	onMain(func() {
		if g.renderer != nil {
			_ = g.renderer.Destroy(g.ctx)
			g.renderer = nil
		}
		if g.ctx != nil {
			g.ctx.Destroy()
			g.ctx = nil
		}
		_ = g.platform.Shutdown()
	})
}

// coverage is the share of pixels that are not bg.
func coverage(img *image.RGBA, bg color.RGBA) float64 {
	b := img.Bounds()
	covered := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) != bg {
				covered++
			}
		}
	}
	return float64(covered) / float64(b.Dx()*b.Dy())
}

// diffReference compares got with the reference frame want. Every pixel of
// got must be one of palette. Pixels that differ from want are counted as
// edge when they sit on the triangle outline of want and returned as stray
// otherwise.
func diffReference(got, want *image.RGBA, palette ...color.RGBA) (edge int, stray []image.Point) {
	b := want.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := got.RGBAAt(x, y)
			switch {
			case !slices.Contains(palette, g):
				stray = append(stray, image.Pt(x, y))
			case g == want.RGBAAt(x, y):
			case onOutline(want, x, y, palette):
				edge++
			default:
				stray = append(stray, image.Pt(x, y))
			}
		}
	}
	return edge, stray
}

// onOutline reports whether (x, y) is blended in img or borders a pixel of
// another color.
func onOutline(img *image.RGBA, x, y int, palette []color.RGBA) bool {
	c := img.RGBAAt(x, y)
	if !slices.Contains(palette, c) {
		return true
	}
	b := img.Bounds()
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			p := image.Pt(x+dx, y+dy)
			if p.In(b) && img.RGBAAt(p.X, p.Y) != c {
				return true
			}
		}
	}
	return false
}

// perimeter is the length in pixels of the triangle outline on a width x
// height target.
func perimeter(width, height uint32) float64 {
	total := 0.0
	for i := range TriangleVertices {
		a, b := TriangleVertices[i], TriangleVertices[(i+1)%len(TriangleVertices)]
		pa := emath.ClipToScreen(emath.NewVec2(a.Position[0], a.Position[1]), width, height)
		pb := emath.ClipToScreen(emath.NewVec2(b.Position[0], b.Position[1]), width, height)
		total += math.Hypot(float64(pb.X-pa.X), float64(pb.Y-pa.Y))
	}
	return total
}
