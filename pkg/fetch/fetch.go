// Package fetch resolves remote video URLs to local files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/inhies/go-bytesize"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"slitscan/pkg/source"
)

// IsURL reports whether raw names a remote resource rather than a local
// path.
func IsURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

// New creates a downloader writing into dir. An empty dir falls back to
// the OS temp directory.
func New(dir string, logger *zap.Logger) (*Fetcher, error) {
	f := &Fetcher{
		cli: resty.New().SetDoNotParseResponse(true),
		log: logger,
	}

	if dir == "" {
		dir = afero.GetTempDir(afero.NewOsFs(), "slitscan")
	}

	fs := afero.NewOsFs()
	if exists, err := afero.DirExists(fs, dir); err != nil {
		return nil, err
	} else if !exists {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create fetch dir failed: %w", err)
		}
	}

	f.fs = afero.NewBasePathFs(fs, dir)
	return f, nil
}

type Fetcher struct {
	fs  afero.Fs
	cli *resty.Client
	log *zap.Logger
}

// Fetch downloads rawurl and returns the path of the local copy.
func (f *Fetcher) Fetch(ctx context.Context, rawurl string) (string, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", errors.Wrap(source.ErrNotFound, rawurl)
	}

	ext := path.Ext(u.Path)
	if ext == "" {
		ext = ".mp4"
	}
	name := xid.New().String() + ext

	resp, err := f.cli.R().SetContext(ctx).Get(rawurl)
	if err != nil {
		return "", fmt.Errorf("fetch %s failed: %w", rawurl, err)
	}

	defer func() {
		_ = resp.RawBody().Close()
	}()

	if resp.StatusCode() != 200 {
		return "", errors.Wrapf(source.ErrNotFound, "%s: status %d", rawurl, resp.StatusCode())
	}

	out, err := f.fs.Create(name)
	if err != nil {
		return "", err
	}

	bar := progressbar.DefaultBytes(resp.RawResponse.ContentLength, fmt.Sprintf("Downloading %s", rawurl))

	n, err := io.Copy(io.MultiWriter(out, bar), resp.RawBody())
	if errC := out.Close(); err == nil {
		err = errC
	}
	if err != nil {
		_ = f.fs.Remove(name)
		return "", fmt.Errorf("fetch %s failed: %w", rawurl, err)
	}

	local, _ := f.fs.(*afero.BasePathFs).RealPath(name)
	f.log.With(
		zap.String("url", rawurl),
		zap.String("file", local),
		zap.String("size", bytesize.New(float64(n)).String()),
	).Info("video downloaded")

	return local, nil
}
