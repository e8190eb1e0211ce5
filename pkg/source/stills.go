package source

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"

	"slitscan/pkg/frame"
)

var stillExts = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp"}

// NewStills enumerates dir, keeps the image files, and orders them
// lexicographically by name. Frames are decoded lazily, one per Next call.
func NewStills(dir string) (*Stills, error) {
	fs := afero.NewOsFs()
	if exists, err := afero.DirExists(fs, dir); err != nil {
		return nil, err
	} else if !exists {
		return nil, errors.Wrap(ErrNotFound, dir)
	}

	base := afero.NewBasePathFs(fs, dir)
	entries, err := afero.ReadDir(base, ".")
	if err != nil {
		return nil, fmt.Errorf("list stills failed: %w", err)
	}

	names := lo.Map(lo.Filter(entries, func(fi os.FileInfo, _ int) bool {
		return !fi.IsDir() && lo.Contains(stillExts, strings.ToLower(filepath.Ext(fi.Name())))
	}), func(fi os.FileInfo, _ int) string {
		return fi.Name()
	})
	if len(names) == 0 {
		return nil, errors.Wrap(ErrEmptyInput, dir)
	}
	sort.Strings(names)

	return &Stills{fs: base, names: names}, nil
}

// Stills reads frames from a directory of image files, ordered by
// filename sort order.
type Stills struct {
	fs     afero.Fs
	names  []string
	pos    int
	width  int
	height int
}

func (s *Stills) Len() int {
	return len(s.names)
}

func (s *Stills) Next() (*frame.Frame, error) {
	if s.pos >= len(s.names) {
		return nil, io.EOF
	}

	name := s.names[s.pos]
	f, err := s.fs.Open(name)
	if err != nil {
		return nil, &DecodeError{Path: name, Index: s.pos, Err: err}
	}

	img, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return nil, &DecodeError{Path: name, Index: s.pos, Err: err}
	}

	fr := frame.FromImage(s.pos, img)
	if s.pos == 0 {
		s.width, s.height = fr.Width(), fr.Height()
	} else if fr.Width() != s.width || fr.Height() != s.height {
		return nil, &DecodeError{
			Path:  name,
			Index: s.pos,
			Err:   errors.Errorf("frame is %dx%d, run is %dx%d", fr.Width(), fr.Height(), s.width, s.height),
		}
	}

	s.pos++
	return fr, nil
}

func (s *Stills) Close() error {
	return nil
}
