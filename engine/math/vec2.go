package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

/**
 * @brief Creates and returns a new 2-element vector using the supplied values.
 */
func NewVec2(x, y float32) Vec2 {
	return Vec2{
		X: x,
		Y: y,
	}
}

// ClipToScreen maps a clip-space position (x right, y up, both in [-1, 1])
// to pixel coordinates of a width x height target whose origin is the top
// left corner.
func ClipToScreen(p Vec2, width, height uint32) Vec2 {
	return Vec2{
		X: (p.X + 1) * 0.5 * float32(width),
		Y: (1 - p.Y) * 0.5 * float32(height),
	}
}
