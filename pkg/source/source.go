// Package source produces ordered, finite frame sequences from a
// directory of stills or a video file.
package source

import (
	"fmt"

	"github.com/pkg/errors"

	"slitscan/pkg/frame"
)

// Source is a lazy sequence of frames in temporal order. It is finite and
// not restartable: each frame is produced once and consumed immediately
// downstream. Close releases the decode session and is safe to call
// before the sequence is exhausted.
type Source interface {
	// Next returns the next frame, or io.EOF after the last one.
	Next() (*frame.Frame, error)
	// Len is the total number of frames the source will produce.
	Len() int
	Close() error
}

var (
	ErrNotFound   = errors.New("source not found")
	ErrEmptyInput = errors.New("no frames in input")
)

// DecodeError reports a frame that could not be decoded, or whose
// dimensions disagree with the rest of the run. Any decode failure aborts
// the whole run: a missing strip would silently corrupt the composite.
type DecodeError struct {
	Path  string
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame %d (%s): %v", e.Index, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
