// Package extract reduces a frame to its slit-scan contribution: a single
// pixel column replicated into a band of the requested width.
package extract

import (
	"image"

	"slitscan/pkg/frame"
)

func New(fraction float64) *Sampler {
	return &Sampler{fraction: fraction}
}

// Sampler picks the sample column of every frame at a fixed horizontal
// position, expressed as a fraction of the frame width (0 = left edge,
// 1 = right edge). Sampling is pure: the same frame and fraction always
// yield a bit-identical strip.
type Sampler struct {
	fraction float64
}

// Column returns the sample column index for a frame of width w,
// clamped to [0, w-1].
func (s *Sampler) Column(w int) int {
	x := int(s.fraction * float64(w-1))
	if x < 0 {
		x = 0
	}
	if x > w-1 {
		x = w - 1
	}
	return x
}

// Strip samples one column of f and replicates it width times. No
// interpolation: the band is a sharp nearest-neighbor stretch.
func (s *Sampler) Strip(f *frame.Frame, width int) *image.NRGBA {
	src := f.Img
	h := f.Height()
	x := src.Rect.Min.X + s.Column(f.Width())

	out := image.NewNRGBA(image.Rect(0, 0, width, h))
	for y := 0; y < h; y++ {
		si := src.PixOffset(x, src.Rect.Min.Y+y)
		px := src.Pix[si : si+4 : si+4]
		row := out.Pix[y*out.Stride : y*out.Stride+width*4]
		for i := 0; i < len(row); i += 4 {
			copy(row[i:], px)
		}
	}
	return out
}
