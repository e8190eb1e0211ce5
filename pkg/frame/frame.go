package frame

import (
	"image"

	"github.com/disintegration/imaging"
)

// Frame is one decoded frame of the input sequence, tagged with its
// zero-based position in time. Frames are treated as immutable once
// produced by a source.
type Frame struct {
	Index int
	Img   *image.NRGBA
}

// FromImage clones src into an NRGBA buffer owned by the new frame.
func FromImage(i int, src image.Image) *Frame {
	return &Frame{Index: i, Img: imaging.Clone(src)}
}

func (f *Frame) Width() int {
	return f.Img.Rect.Dx()
}

func (f *Frame) Height() int {
	return f.Img.Rect.Dy()
}
