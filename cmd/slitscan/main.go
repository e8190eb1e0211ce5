package main

import (
	"context"
	"os"

	"github.com/samber/lo"
	flag "github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"slitscan/pkg/pipeline"
)

var stills = flag.String("stills", "", "directory of still frames, ordered by filename")
var video = flag.String("video", "", "video file or http(s) URL")
var slice = flag.Float64("slice", 0.5, "horizontal sample position (0-1)")
var stretch = flag.Int("stretch", 1, "output columns per frame")
var width = flag.Int("width", 0, "target output width (0 = frames * stretch)")
var mirror = flag.String("mirror", "", "reverse time at the end: half or full")
var output = flag.String("output", "", "output image path")
var workers = flag.Int("workers", 1, "parallel slice extractors")
var debug = flag.Bool("debug", false, "set debug")

func main() {
	flag.Parse()

	var runErr error

	fx.New(
		fx.NopLogger,
		fx.Provide(
			func() (*zap.Logger, error) {
				return lo.Ternary(*debug, zap.NewDevelopment, zap.NewProduction)()
			},
			func() *pipeline.Config {
				return &pipeline.Config{
					Stills:  *stills,
					Video:   *video,
					Slice:   *slice,
					Stretch: *stretch,
					Width:   *width,
					Mirror:  pipeline.Mirror(*mirror),
					Output:  *output,
					Workers: *workers,
				}
			},
			pipeline.New,
		),
		fx.Invoke(func(d *pipeline.Driver, logger *zap.Logger, sd fx.Shutdowner) {
			go func() {
				defer func() {
					_ = sd.Shutdown()
				}()

				if _, err := d.Run(context.Background()); err != nil {
					logger.With(zap.Error(err)).Error("run failed")
					runErr = err
				}
			}()
		}),
	).Run()

	if runErr != nil {
		os.Exit(1)
	}
}
