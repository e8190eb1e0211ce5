package pipeline

import (
	"context"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slitscan/pkg/compose"
	"slitscan/pkg/extract"
	"slitscan/pkg/frame"
	"slitscan/pkg/source"
)

var bands = []color.NRGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
	{R: 255, G: 255, A: 255},
}

func writeFrames(t *testing.T, dir string, w, h int, colors []color.NRGBA) {
	t.Helper()
	for i, c := range colors {
		name := filepath.Join(dir, "frame_000"+string(rune('0'+i))+".png")
		require.NoError(t, imaging.Save(imaging.New(w, h, c), name))
	}
}

func newDriver(cfg *Config) *Driver {
	return New(cfg, zap.NewNop())
}

func TestComposeColorBands(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 100, 50, bands)

	canvas, err := newDriver(&Config{Stills: dir, Slice: 0.5, Stretch: 10}).Compose(context.Background())
	require.NoError(t, err)
	require.Equal(t, 40, canvas.Rect.Dx())
	require.Equal(t, 50, canvas.Rect.Dy())

	for x := 0; x < 40; x++ {
		assert.Equal(t, bands[x/10], canvas.NRGBAAt(x, 25), "column %d", x)
	}
}

func TestComposeSliceBoundaries(t *testing.T) {
	dir := t.TempDir()
	img := imaging.New(100, 10, color.NRGBA{G: 255, A: 255})
	for y := 0; y < 10; y++ {
		img.SetNRGBA(0, y, color.NRGBA{R: 255, A: 255})
		img.SetNRGBA(99, y, color.NRGBA{B: 255, A: 255})
	}
	require.NoError(t, imaging.Save(img, filepath.Join(dir, "frame.png")))

	left, err := newDriver(&Config{Stills: dir, Slice: 0.0, Stretch: 5}).Compose(context.Background())
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, left.NRGBAAt(2, 5))

	right, err := newDriver(&Config{Stills: dir, Slice: 1.0, Stretch: 5}).Compose(context.Background())
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, right.NRGBAAt(2, 5))
}

func TestComposeTargetWidth(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 20, 5, bands[:3])

	canvas, err := newDriver(&Config{Stills: dir, Slice: 0.5, Stretch: 1, Width: 10}).Compose(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, canvas.Rect.Dx())

	// spans: [0,3) [3,6) [6,10); the last strip absorbs the remainder
	for x := 0; x < 3; x++ {
		assert.Equal(t, bands[0], canvas.NRGBAAt(x, 0))
	}
	for x := 3; x < 6; x++ {
		assert.Equal(t, bands[1], canvas.NRGBAAt(x, 0))
	}
	for x := 6; x < 10; x++ {
		assert.Equal(t, bands[2], canvas.NRGBAAt(x, 0))
	}
}

func TestComposeMirror(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 10, 2, bands[:2])

	full, err := newDriver(&Config{Stills: dir, Slice: 0.5, Stretch: 2, Mirror: MirrorFull}).Compose(context.Background())
	require.NoError(t, err)
	require.Equal(t, 8, full.Rect.Dx())
	want := []color.NRGBA{bands[0], bands[0], bands[1], bands[1], bands[1], bands[1], bands[0], bands[0]}
	for x, c := range want {
		assert.Equal(t, c, full.NRGBAAt(x, 0), "column %d", x)
	}

	half, err := newDriver(&Config{Stills: dir, Slice: 0.5, Stretch: 2, Mirror: MirrorHalf}).Compose(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, half.Rect.Dx())
	wantHalf := []color.NRGBA{bands[0], bands[1], bands[1], bands[0]}
	for x, c := range wantHalf {
		assert.Equal(t, c, half.NRGBAAt(x, 0), "column %d", x)
	}
}

func TestComposeParallelMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	colors := make([]color.NRGBA, 9)
	for i := range colors {
		colors[i] = color.NRGBA{R: uint8(i * 25), G: uint8(255 - i*25), A: 255}
	}
	writeFrames(t, dir, 30, 6, colors)

	seq, err := newDriver(&Config{Stills: dir, Slice: 0.3, Stretch: 3}).Compose(context.Background())
	require.NoError(t, err)

	par, err := newDriver(&Config{Stills: dir, Slice: 0.3, Stretch: 3, Workers: 4}).Compose(context.Background())
	require.NoError(t, err)

	assert.Equal(t, seq.Pix, par.Pix)
}

// rampSource yields n in-memory frames whose red channel encodes their
// index.
type rampSource struct {
	n   int
	pos int
}

func (s *rampSource) Len() int { return s.n }

func (s *rampSource) Next() (*frame.Frame, error) {
	if s.pos >= s.n {
		return nil, io.EOF
	}
	fr := frame.FromImage(s.pos, imaging.New(8, 2, color.NRGBA{R: uint8(s.pos * 20), A: 255}))
	s.pos++
	return fr, nil
}

func (s *rampSource) Close() error { return nil }

func TestFillParallelStragglerFrameZero(t *testing.T) {
	const n = 12
	src := &rampSource{n: n}
	first, err := src.Next()
	require.NoError(t, err)

	comp := compose.New(n, 2, compose.WithStretch(1))
	sampler := extract.New(0.5)
	slow := func(fr *frame.Frame, width int) *image.NRGBA {
		// hold the first strip back while the rest of the pool races ahead
		if fr.Index == 0 {
			time.Sleep(50 * time.Millisecond)
		}
		return sampler.Strip(fr, width)
	}

	d := newDriver(&Config{Workers: 4})
	require.NoError(t, d.fillParallel(context.Background(), src, slow, comp, first))

	img, err := comp.Image()
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.Equal(t, uint8(i*20), img.NRGBAAt(i, 0).R, "column %d", i)
	}
}

func TestComposeValidatesBeforeReading(t *testing.T) {
	cfg := &Config{Stills: filepath.Join(t.TempDir(), "missing"), Slice: 1.5, Stretch: 1}
	_, err := newDriver(cfg).Compose(context.Background())

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "slice", cfgErr.Param)
}

func TestRunWritesExampleComposite(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 100, 50, bands)
	out := filepath.Join(t.TempDir(), "out.png")

	cfg := &Config{Stills: dir, Slice: 0.5, Stretch: 10, Output: out}
	path, err := newDriver(cfg).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, out, path)

	img, err := imaging.Open(path)
	require.NoError(t, err)
	require.Equal(t, 40, img.Bounds().Dx())
	require.Equal(t, 50, img.Bounds().Dy())
	for x := 0; x < 40; x++ {
		got := color.NRGBAModel.Convert(img.At(x, 25)).(color.NRGBA)
		assert.Equal(t, bands[x/10], got, "column %d", x)
	}
}

func TestRunDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 40, 20, bands)

	outDir := t.TempDir()
	a := filepath.Join(outDir, "a.png")
	b := filepath.Join(outDir, "b.png")

	_, err := newDriver(&Config{Stills: dir, Slice: 0.25, Stretch: 3, Output: a}).Run(context.Background())
	require.NoError(t, err)
	_, err = newDriver(&Config{Stills: dir, Slice: 0.25, Stretch: 3, Output: b}).Run(context.Background())
	require.NoError(t, err)

	ab, err := os.ReadFile(a)
	require.NoError(t, err)
	bb, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, ab, bb)
}

func TestRunEmptyInputLeavesNoFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.png")
	cfg := &Config{Stills: t.TempDir(), Slice: 0.5, Stretch: 1, Output: out}

	_, err := newDriver(cfg).Run(context.Background())
	require.ErrorIs(t, err, source.ErrEmptyInput)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMissingSourceLeavesNoFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.png")
	cfg := &Config{Stills: filepath.Join(t.TempDir(), "nope"), Slice: 0.5, Stretch: 1, Output: out}

	_, err := newDriver(cfg).Run(context.Background())
	require.ErrorIs(t, err, source.ErrNotFound)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}
