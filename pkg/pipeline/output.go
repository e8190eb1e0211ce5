package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/inhies/go-bytesize"
	"github.com/rs/xid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Run composes the sequence and writes the result, returning the output
// path. The file appears atomically: it is encoded to a temp name and
// renamed into place, so a failed run never leaves a half-written image.
func (d *Driver) Run(ctx context.Context) (string, error) {
	canvas, err := d.Compose(ctx)
	if err != nil {
		return "", err
	}
	return d.save(canvas)
}

func (d *Driver) save(canvas *image.NRGBA) (string, error) {
	name := d.cfg.OutputPath()
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return "", &ConfigError{Param: "output", Reason: err.Error()}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, format); err != nil {
		return "", fmt.Errorf("encode failed: %w", err)
	}

	fs := afero.NewOsFs()
	tmp := filepath.Join(filepath.Dir(name), "."+xid.New().String()+filepath.Ext(name))
	if err := afero.WriteFile(fs, tmp, buf.Bytes(), 0644); err != nil {
		return "", err
	}
	if err := fs.Rename(tmp, name); err != nil {
		_ = fs.Remove(tmp)
		return "", err
	}

	d.log.With(
		zap.String("output", name),
		zap.String("size", bytesize.New(float64(buf.Len())).String()),
	).Info("composite written")

	return name, nil
}
