// Package pipeline drives source, extractor and compositor into a
// finished slit-scan composite.
package pipeline

import (
	"context"
	"image"
	"image/draw"
	"io"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"slitscan/pkg/compose"
	"slitscan/pkg/extract"
	"slitscan/pkg/fetch"
	"slitscan/pkg/frame"
	"slitscan/pkg/source"
)

func New(cfg *Config, logger *zap.Logger) *Driver {
	return &Driver{cfg: cfg, log: logger}
}

type Driver struct {
	cfg *Config
	log *zap.Logger
}

// Compose pulls every frame through extraction and placement and returns
// the finished canvas. The first error from any stage aborts the run; no
// partial canvas is ever returned.
func (d *Driver) Compose(ctx context.Context) (*image.NRGBA, error) {
	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}

	src, err := d.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = src.Close()
	}()

	first, err := src.Next()
	if err != nil {
		if err == io.EOF {
			return nil, source.ErrEmptyInput
		}
		return nil, err
	}

	n := src.Len()
	comp := compose.New(n, first.Height(), d.canvasOpts(n)...)
	d.log.With(
		zap.Int("frames", n),
		zap.Int("width", comp.Width()),
		zap.Int("height", comp.Height()),
	).Info("canvas allocated")

	sampler := extract.New(d.cfg.Slice)
	if d.cfg.Workers > 1 {
		err = d.fillParallel(ctx, src, sampler.Strip, comp, first)
	} else {
		err = d.fill(src, sampler, comp, first)
	}
	if err != nil {
		return nil, err
	}

	canvas, err := comp.Image()
	if err != nil {
		return nil, err
	}
	return d.mirrored(canvas), nil
}

func (d *Driver) open(ctx context.Context) (source.Source, error) {
	if d.cfg.Stills != "" {
		return source.NewStills(d.cfg.Stills)
	}

	path := d.cfg.Video
	if fetch.IsURL(path) {
		f, err := fetch.New("", d.log)
		if err != nil {
			return nil, err
		}
		local, err := f.Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		path = local
	}
	return source.NewVideo(path)
}

func (d *Driver) canvasOpts(n int) []compose.Option {
	if d.cfg.Width == 0 && d.cfg.Mirror != MirrorHalf {
		return []compose.Option{compose.WithStretch(d.cfg.Stretch)}
	}

	width := d.cfg.Width
	if width == 0 {
		width = n * d.cfg.Stretch
	}
	if d.cfg.Mirror == MirrorHalf {
		width /= 2
		if width < 1 {
			width = 1
		}
	}
	return []compose.Option{compose.WithTargetWidth(width)}
}

func (d *Driver) fill(src source.Source, sampler *extract.Sampler, comp *compose.Compositor, first *frame.Frame) error {
	fr := first
	for {
		if err := comp.Apply(fr.Index, sampler.Strip(fr, comp.SpanWidth(fr.Index))); err != nil {
			return err
		}

		x0, x1 := comp.Span(fr.Index)
		d.log.With(zap.Int("frame", fr.Index), zap.Int("x0", x0), zap.Int("x1", x1)).Debug("strip placed")

		var err error
		fr, err = src.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

type stripResult struct {
	index int
	strip *image.NRGBA
}

// fillParallel decodes in order on one goroutine, extracts on a worker
// pool, and funnels strips through a reorder buffer so the canvas still
// fills strictly left to right. Admission is windowed: a frame enters
// extraction only while it is within window slots of the next unwritten
// column, so a straggling extraction cannot pile up more parked strips
// than the reorder buffer holds.
func (d *Driver) fillParallel(ctx context.Context, src source.Source, strip func(*frame.Frame, int) *image.NRGBA, comp *compose.Compositor, first *frame.Frame) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := d.cfg.Workers
	window := workers * 2
	jobs := make(chan *frame.Frame)
	results := make(chan stripResult, workers)
	srcErr := make(chan error, 1)
	tokens := make(chan struct{}, window)

	go func() {
		defer close(jobs)
		fr := first
		for {
			select {
			case tokens <- struct{}{}:
			case <-ctx.Done():
				return
			}
			select {
			case jobs <- fr:
			case <-ctx.Done():
				return
			}

			var err error
			fr, err = src.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				srcErr <- err
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fr := range jobs {
				select {
				case results <- stripResult{fr.Index, strip(fr, comp.SpanWidth(fr.Index))}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	reorder := compose.NewReorder(comp, window)
	released := 0
	for r := range results {
		if err := reorder.Put(r.index, r.strip); err != nil {
			cancel()
			for range results {
			}
			return err
		}
		for ; released < comp.Applied(); released++ {
			<-tokens
		}
	}

	select {
	case err := <-srcErr:
		return err
	default:
		return nil
	}
}

func (d *Driver) mirrored(canvas *image.NRGBA) *image.NRGBA {
	if d.cfg.Mirror == MirrorNone {
		return canvas
	}

	w, h := canvas.Rect.Dx(), canvas.Rect.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, 2*w, h))
	draw.Draw(out, image.Rect(0, 0, w, h), canvas, canvas.Rect.Min, draw.Src)
	draw.Draw(out, image.Rect(w, 0, 2*w, h), imaging.FlipH(canvas), image.Point{}, draw.Src)
	return out
}
