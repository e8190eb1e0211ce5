package source

import (
	"image"
	"io"
	"os"

	vidio "github.com/AlexEidt/Vidio"
	"github.com/pkg/errors"

	"slitscan/pkg/frame"
)

// stream is the part of the container decoder the source drives.
type stream interface {
	Read() bool
	Frames() int
	Close()
}

// NewVideo opens a decode session on the video container at path. Frames
// are decoded in presentation order, one per Next call, into a single
// reused buffer; the session holds the decoder pipe until Close.
func NewVideo(path string) (*Video, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNotFound, path)
		}
		return nil, err
	}

	vid, err := vidio.NewVideo(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Index: 0, Err: err}
	}
	if vid.Frames() == 0 {
		vid.Close()
		return nil, errors.Wrap(ErrEmptyInput, path)
	}

	buf := image.NewRGBA(image.Rect(0, 0, vid.Width(), vid.Height()))
	if err := vid.SetFrameBuffer(buf.Pix); err != nil {
		vid.Close()
		return nil, &DecodeError{Path: path, Index: 0, Err: err}
	}

	return &Video{path: path, vid: vid, buf: buf}, nil
}

// Video reads frames from a video container in presentation order. The
// run length is the container's reported frame count: streams that keep
// yielding past their metadata are cut off there, so the composite always
// matches the canvas allocated for it.
type Video struct {
	path string
	vid  stream
	buf  *image.RGBA
	pos  int
}

func (v *Video) Len() int {
	return v.vid.Frames()
}

func (v *Video) Next() (*frame.Frame, error) {
	if v.pos >= v.vid.Frames() {
		return nil, io.EOF
	}

	if !v.vid.Read() {
		return nil, &DecodeError{
			Path:  v.path,
			Index: v.pos,
			Err:   errors.Errorf("stream ended after %d of %d frames", v.pos, v.vid.Frames()),
		}
	}

	fr := frame.FromImage(v.pos, v.buf)
	v.pos++
	return fr, nil
}

func (v *Video) Close() error {
	v.vid.Close()
	return nil
}
