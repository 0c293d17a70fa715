package renderer

import (
	"image"
	"image/color"
	"image/draw"

	emath "github.com/spaghettifunk/triangle/engine/math"
	"golang.org/x/image/vector"
)

// ReferenceImage rasterizes the expected frame on the CPU: the clear color
// everywhere and the triangle filled with fill.
func ReferenceImage(width, height uint32, clear [4]float32, fill color.RGBA) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(toRGBA(clear)), image.Point{}, draw.Src)

	z := vector.NewRasterizer(int(width), int(height))
	for i, v := range TriangleVertices {
		p := emath.ClipToScreen(emath.NewVec2(v.Position[0], v.Position[1]), width, height)
		if i == 0 {
			z.MoveTo(p.X, p.Y)
		} else {
			z.LineTo(p.X, p.Y)
		}
	}
	z.ClosePath()
	z.Draw(dst, dst.Bounds(), image.NewUniform(fill), image.Point{})
	return dst
}

func toRGBA(c [4]float32) color.RGBA {
	return color.RGBA{
		R: channel(c[0]),
		G: channel(c[1]),
		B: channel(c[2]),
		A: channel(c[3]),
	}
}

func channel(f float32) uint8 {
	return uint8(emath.Clamp(f, 0, 1)*255 + 0.5)
}
