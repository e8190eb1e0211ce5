package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Mirror appends a time-reversed copy of the composite.
type Mirror string

const (
	MirrorNone Mirror = ""
	// MirrorHalf composes the sequence into half the target width, then
	// reflects it: time reverses halfway through the image.
	MirrorHalf Mirror = "half"
	// MirrorFull reflects the whole composite, doubling its width.
	MirrorFull Mirror = "full"
)

// Config describes one composition run. Exactly one of Stills or Video
// must be set.
type Config struct {
	// Stills is a directory of image files, ordered by filename.
	Stills string
	// Video is a local video file or an http(s) URL to download first.
	Video string
	// Slice is the horizontal sample position within each frame, 0 = left
	// edge, 1 = right edge.
	Slice float64
	// Stretch is how many output columns each sampled column expands into.
	Stretch int
	// Width fixes the output width; 0 sizes the canvas as frames*Stretch.
	Width  int
	Mirror Mirror
	// Output is the image file to write; empty derives a name from the
	// input and options.
	Output string
	// Workers sets how many slice extractors run concurrently; values
	// below 2 keep the pipeline fully sequential.
	Workers int
}

// ConfigError reports an invalid option, named so the caller can point at
// the offending flag.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Param, e.Reason)
}

// Validate runs once at pipeline start, before any frame is read.
func (c *Config) Validate() error {
	if c.Stills == "" && c.Video == "" {
		return &ConfigError{Param: "stills/video", Reason: "one input must be set"}
	}
	if c.Stills != "" && c.Video != "" {
		return &ConfigError{Param: "stills/video", Reason: "only one input may be set"}
	}
	if c.Slice < 0 || c.Slice > 1 {
		return &ConfigError{Param: "slice", Reason: fmt.Sprintf("%g outside [0,1]", c.Slice)}
	}
	if c.Stretch < 1 {
		return &ConfigError{Param: "stretch", Reason: fmt.Sprintf("%d below 1", c.Stretch)}
	}
	if c.Width < 0 {
		return &ConfigError{Param: "width", Reason: fmt.Sprintf("%d below 0", c.Width)}
	}
	switch c.Mirror {
	case MirrorNone, MirrorHalf, MirrorFull:
	default:
		return &ConfigError{Param: "mirror", Reason: fmt.Sprintf("%q is not half or full", c.Mirror)}
	}
	if c.Workers < 0 {
		return &ConfigError{Param: "workers", Reason: fmt.Sprintf("%d below 0", c.Workers)}
	}
	if c.Output != "" {
		if _, err := imaging.FormatFromFilename(c.Output); err != nil {
			return &ConfigError{Param: "output", Reason: err.Error()}
		}
	}
	return nil
}

// OutputPath is the file the composite will be written to. When no output
// was configured the name encodes the input and the non-default options.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}

	base := c.Stills
	if base == "" {
		base = c.Video
	}
	base = filepath.Base(base)
	if c.Video != "" {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}

	parts := []string{"slitscan", base, fmt.Sprintf("slice=%g", c.Slice)}
	if c.Stretch > 1 {
		parts = append(parts, fmt.Sprintf("stretch=%d", c.Stretch))
	}
	if c.Mirror != MirrorNone {
		parts = append(parts, fmt.Sprintf("%s-mirror", c.Mirror))
	}
	return strings.Join(parts, "_") + ".png"
}
