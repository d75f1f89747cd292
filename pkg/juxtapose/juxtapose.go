// Package juxtapose places frames of two videos side by side so they can be
// compared as one image.
package juxtapose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/user/framemark/pkg/ports"
	"github.com/user/framemark/pkg/seek"
)

// ErrNoOutput is returned when Input has no output path.
var ErrNoOutput = errors.New("juxtapose: output path required")

// Options configures the juxtapose operation.
type Options struct {
	// Gap is the horizontal gap between the two frames in pixels.
	Gap int
	// Height scales both frames to this height. Zero keeps the original
	// sizes and centers the shorter frame vertically.
	Height int
	// Background fills the gap and the letterbox.
	Background color.Color
	// Quality is the JPEG quality (1-100).
	Quality int
}

// DefaultOptions returns default options.
func DefaultOptions() Options {
	return Options{
		Gap:        10,
		Background: color.Black,
		Quality:    90,
	}
}

// Grabber decodes one frame of a video.
type Grabber interface {
	Grab(path string, frame int64) (*seek.DecodedFrame, error)
}

// Input names the two frames and the output file.
type Input struct {
	LeftPath   string
	LeftFrame  int64
	RightPath  string
	RightFrame int64
	OutputPath string
	Format     ports.ImageFormat
}

// Result describes the written image.
type Result struct {
	Left   *seek.DecodedFrame
	Right  *seek.DecodedFrame
	Width  int
	Height int
	Bytes  int
}

// Stage grabs two frames, composes them and writes the image.
type Stage struct {
	grabber  Grabber
	renderer ports.Renderer
	fs       ports.FileSystem
	logger   ports.Logger
	opts     Options
}

// New creates a juxtapose stage.
func New(grabber Grabber, renderer ports.Renderer, fs ports.FileSystem, logger ports.Logger, opts Options) *Stage {
	if opts.Background == nil {
		opts.Background = color.Black
	}
	return &Stage{
		grabber:  grabber,
		renderer: renderer,
		fs:       fs,
		logger:   logger.WithComponent("juxtapose"),
		opts:     opts,
	}
}

// Execute runs the stage.
func (s *Stage) Execute(ctx context.Context, in Input) (*Result, error) {
	if in.OutputPath == "" {
		return nil, ErrNoOutput
	}

	left, err := s.grabber.Grab(in.LeftPath, in.LeftFrame)
	if err != nil {
		return nil, fmt.Errorf("left frame: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	right, err := s.grabber.Grab(in.RightPath, in.RightFrame)
	if err != nil {
		return nil, fmt.Errorf("right frame: %w", err)
	}

	img := Compose(s.renderer, left.Image, right.Image, s.opts)
	data, err := s.renderer.EncodeImage(img, in.Format, s.opts.Quality)
	if err != nil {
		return nil, err
	}
	if err := s.fs.WriteFile(in.OutputPath, data); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}

	b := img.Bounds()
	s.logger.Info("Placed frame %d of %s beside frame %d of %s in %s",
		left.Number, in.LeftPath, right.Number, in.RightPath, in.OutputPath)
	return &Result{Left: left, Right: right, Width: b.Dx(), Height: b.Dy(), Bytes: len(data)}, nil
}

// Compose draws left and right next to each other on one canvas.
func Compose(r ports.Renderer, left, right image.Image, opts Options) image.Image {
	lw, lh := size(left)
	rw, rh := size(right)
	if opts.Height > 0 {
		lw, lh = scaledWidth(lw, lh, opts.Height), opts.Height
		rw, rh = scaledWidth(rw, rh, opts.Height), opts.Height
	}

	height := lh
	if rh > height {
		height = rh
	}
	width := lw + opts.Gap + rw

	bg := opts.Background
	if bg == nil {
		bg = color.Black
	}
	canvas := r.CreateCanvas(width, height, bg)
	canvas.DrawImageScaled(left, 0, (height-lh)/2, lw, lh)
	canvas.DrawImageScaled(right, lw+opts.Gap, (height-rh)/2, rw, rh)
	return canvas.ToImage()
}

func size(img image.Image) (int, int) {
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func scaledWidth(w, h, height int) int {
	if h == 0 {
		return w
	}
	return (w*height + h/2) / h
}
