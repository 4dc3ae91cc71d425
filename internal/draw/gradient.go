package draw

import "math"

const (
	thresholdDim  = 8
	thresholdSize = thresholdDim * thresholdDim
)

// 8x8 Bayer matrix for ordered dithering.
var thresholdMap = [thresholdSize]float64{
	0, 32, 8, 40, 2, 34, 10, 42,
	48, 16, 56, 24, 50, 18, 58, 26,
	12, 44, 4, 36, 14, 46, 6, 38,
	60, 28, 52, 20, 62, 30, 54, 22,
	3, 35, 11, 43, 1, 33, 9, 41,
	51, 19, 59, 27, 49, 17, 57, 25,
	15, 47, 7, 39, 13, 45, 5, 37,
	63, 31, 55, 23, 61, 29, 53, 21,
}

// GradientOptions controls how a gradient fill is rendered.
type GradientOptions struct {
	// Dither enables ordered dithering of the quantized gradient.
	Dither bool
	// NoiseGain scales the threshold noise added during dithering.
	NoiseGain float64
	// OffsetStart and OffsetEnd remap the interpolation parameter before
	// sampling, so a gradient can start or end partway through its ramp.
	OffsetStart, OffsetEnd float64
	// Levels is the number of quantization levels per channel. Zero means
	// 256.
	Levels int
}

func (o GradientOptions) levels() int {
	if o.Levels <= 0 {
		return 256
	}
	return o.Levels
}

func (o GradientOptions) offsets() (float64, float64) {
	if o.OffsetStart == 0 && o.OffsetEnd == 0 {
		return 0, 1
	}
	return o.OffsetStart, o.OffsetEnd
}

// Quantize snaps a [0, 1] channel value to the nearest of n levels.
func Quantize(v float64, n int) float64 {
	steps := float64(n - 1)
	return math.Floor(v*steps+0.5) / steps
}

// DitherChannel quantizes one channel value and adds the threshold noise for
// pixel position (x, y), clamped to [0, 1]. With a gain of zero this is a
// plain quantization.
func DitherChannel(v float64, x, y int, gain float64, levels int) float64 {
	q := Quantize(v, levels)
	m := thresholdMap[(y%thresholdDim)*thresholdDim+(x%thresholdDim)]
	noise := m/thresholdSize - 0.5
	return clamp(q+noise*gain, 0, 1)
}

// GradientPixels renders a horizontal gradient as ARGB32 pixels, row-major.
// The slice has w*h entries. Used by backends that rasterize the dithered
// gradient via an image upload.
func GradientPixels(w, h int, start, end Color, opts GradientOptions) []uint32 {
	pixels := make([]uint32, w*h)
	levels := opts.levels()
	o0, o1 := opts.offsets()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := o0 + (o1-o0)*float64(x)/float64(w)
			c := Lerp(start, end, t)
			if opts.Dither {
				c.R = DitherChannel(c.R, x, y, opts.NoiseGain, levels)
				c.G = DitherChannel(c.G, x, y, opts.NoiseGain, levels)
				c.B = DitherChannel(c.B, x, y, opts.NoiseGain, levels)
			}
			c.A = 1
			pixels[y*w+x] = c.Pixel()
		}
	}
	return pixels
}
