// Package compose accumulates per-frame strips into the output canvas.
package compose

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

// State tracks canvas fill progress.
type State int

const (
	Empty State = iota
	Filling
	Complete
)

// SequenceError reports a strip arriving out of frame order, or after the
// canvas is already complete. It signals a defect in the caller, not a
// user error.
type SequenceError struct {
	Want int
	Got  int
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("strip for frame %d applied while expecting frame %d", e.Got, e.Want)
}

type Option func(c *Compositor)

// WithStretch sizes the canvas as frames*stretch and places every strip
// contiguously at stretch columns per frame.
func WithStretch(stretch int) Option {
	return func(c *Compositor) {
		c.width = c.frames * stretch
	}
}

// WithTargetWidth fixes the canvas width; frame spans are scaled onto it.
func WithTargetWidth(width int) Option {
	return func(c *Compositor) {
		c.width = width
	}
}

// New allocates a canvas for a run of n frames of the given height.
// Without options the canvas is n columns wide (stretch 1).
//
// A Compositor is not goroutine-safe: the caller serializes Apply.
func New(n, height int, opts ...Option) *Compositor {
	c := &Compositor{
		frames: n,
		height: height,
		width:  n,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.canvas = image.NewNRGBA(image.Rect(0, 0, c.width, c.height))
	return c
}

// Compositor writes strips into the canvas at the column range owned by
// each frame's ordinal position, strictly left to right.
type Compositor struct {
	frames int
	width  int
	height int
	next   int
	state  State
	canvas *image.NRGBA
}

func (c *Compositor) State() State {
	return c.state
}

func (c *Compositor) Width() int {
	return c.width
}

func (c *Compositor) Height() int {
	return c.height
}

// Span returns the half-open canvas column range [x0, x1) owned by frame i.
// The integer-division rule covers every column exactly once across the
// run: spans never overlap and the last span absorbs any rounding
// remainder.
func (c *Compositor) Span(i int) (x0, x1 int) {
	return i * c.width / c.frames, (i + 1) * c.width / c.frames
}

// SpanWidth returns the strip width frame i must provide.
func (c *Compositor) SpanWidth(i int) int {
	x0, x1 := c.Span(i)
	return x1 - x0
}

// Apply writes the strip for frame i into its span. Strips must arrive in
// ascending frame order with no gaps.
func (c *Compositor) Apply(i int, strip *image.NRGBA) error {
	if c.state == Complete || i != c.next {
		return &SequenceError{Want: c.next, Got: i}
	}

	x0, x1 := c.Span(i)
	w := x1 - x0
	if strip.Rect.Dx() != w || strip.Rect.Dy() != c.height {
		return errors.Errorf("strip for frame %d is %dx%d, span needs %dx%d",
			i, strip.Rect.Dx(), strip.Rect.Dy(), w, c.height)
	}

	for y := 0; y < c.height; y++ {
		di := y*c.canvas.Stride + x0*4
		si := strip.PixOffset(strip.Rect.Min.X, strip.Rect.Min.Y+y)
		copy(c.canvas.Pix[di:di+w*4], strip.Pix[si:si+w*4])
	}

	c.next++
	c.state = Filling
	if c.next == c.frames {
		c.state = Complete
	}
	return nil
}

// Applied is the number of strips written to the canvas so far.
func (c *Compositor) Applied() int {
	return c.next
}

// Image hands the finished canvas to the caller.
func (c *Compositor) Image() (*image.NRGBA, error) {
	if c.state != Complete {
		return nil, errors.Errorf("canvas incomplete: %d of %d strips applied", c.next, c.frames)
	}
	return c.canvas, nil
}
