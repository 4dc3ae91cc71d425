// Package draw defines the drawing primitives the reconciler paints
// decorations with, plus the gradient and ordered-dithering math used for
// title bars. Actual rasterization is done by the backend implementation.
package draw

// Color is an RGBA color with channels in [0, 1].
type Color struct {
	R, G, B, A float64
}

// Black is the clear color for freshly created buffers.
var Black = Color{A: 1}

// Pixel returns the color packed as ARGB32.
func (c Color) Pixel() uint32 {
	p := uint32(byte(clamp(c.A, 0, 1)*255)) << 24
	p |= uint32(byte(clamp(c.R, 0, 1)*255)) << 16
	p |= uint32(byte(clamp(c.G, 0, 1)*255)) << 8
	p |= uint32(byte(clamp(c.B, 0, 1) * 255))
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Lerp interpolates between two colors. Alpha follows the start color.
func Lerp(a, b Color, t float64) Color {
	return Color{
		R: lerp(a.R, b.R, t),
		G: lerp(a.G, b.G, t),
		B: lerp(a.B, b.B, t),
		A: a.A,
	}
}
