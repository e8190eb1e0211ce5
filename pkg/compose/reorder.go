package compose

import (
	"image"

	"github.com/pkg/errors"
)

// NewReorder wraps c with a bounded buffer that accepts strips in any
// order and releases them to the compositor in ascending frame order.
// limit bounds how many strips may be parked waiting for a predecessor.
// The caller must admit no more than limit frames past the next unwritten
// index into extraction at once; under that discipline the buffer cannot
// fill up, so an overflow reports a sequencing defect.
//
// Like the Compositor, a Reorder is driven by a single goroutine.
func NewReorder(c *Compositor, limit int) *Reorder {
	return &Reorder{
		c:       c,
		limit:   limit,
		pending: make(map[int]*image.NRGBA, limit),
	}
}

type Reorder struct {
	c       *Compositor
	limit   int
	pending map[int]*image.NRGBA
}

// Put hands over the strip for frame i. Strips for future frames are
// parked until their predecessors arrive; a strip for a past frame is a
// sequencing defect and fails immediately.
func (r *Reorder) Put(i int, strip *image.NRGBA) error {
	if i < r.c.next {
		return &SequenceError{Want: r.c.next, Got: i}
	}

	if i != r.c.next {
		if len(r.pending) >= r.limit {
			return errors.Errorf("reorder buffer overflow: %d strips waiting for frame %d", len(r.pending), r.c.next)
		}
		r.pending[i] = strip
		return nil
	}

	if err := r.c.Apply(i, strip); err != nil {
		return err
	}

	for {
		next, ok := r.pending[r.c.next]
		if !ok {
			return nil
		}
		delete(r.pending, r.c.next)
		if err := r.c.Apply(r.c.next, next); err != nil {
			return err
		}
	}
}
