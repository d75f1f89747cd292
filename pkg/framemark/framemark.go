// Package framemark provides a high-level API for frame-accurate video
// marking: exporting frames, playing videos, editing marker files and
// comparing them.
package framemark

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/user/framemark/pkg/adapters/ggrenderer"
	"github.com/user/framemark/pkg/adapters/osfilesystem"
	"github.com/user/framemark/pkg/adapters/smartcontainer"
	"github.com/user/framemark/pkg/juxtapose"
	"github.com/user/framemark/pkg/markers"
	"github.com/user/framemark/pkg/player"
	"github.com/user/framemark/pkg/ports"
	"github.com/user/framemark/pkg/report"
	"github.com/user/framemark/pkg/seek"
	"github.com/user/framemark/pkg/summarizer"
)

// ErrUnknownImageFormat is returned for an output path whose extension is
// neither PNG nor JPEG.
var ErrUnknownImageFormat = errors.New("framemark: unknown image format")

// Deps are the adapters framemark works through.
type Deps struct {
	// NewContainer returns a fresh container for every opened video.
	NewContainer func() ports.Container
	FileSystem   ports.FileSystem
	Renderer     ports.Renderer
}

// Framemark runs the caller-facing operations.
type Framemark struct {
	opts   Options
	deps   Deps
	logger ports.Logger
	store  *markers.Store
}

// New creates a Framemark backed by ffmpeg, the local disk and gg.
func New(opts Options, logger ports.Logger) *Framemark {
	copts := smartcontainer.Options{
		FFmpegPath:   opts.FFmpegPath,
		FFprobePath:  opts.FFprobePath,
		DisableProbe: opts.DisableProbe,
		OutputWait:   opts.OutputWait,
	}
	return NewWithDeps(opts, logger, Deps{
		NewContainer: func() ports.Container { return smartcontainer.New(copts) },
		FileSystem:   osfilesystem.New(),
		Renderer:     ggrenderer.New(),
	})
}

// NewWithDeps creates a Framemark with custom adapters.
func NewWithDeps(opts Options, logger ports.Logger, deps Deps) *Framemark {
	return &Framemark{
		opts:   opts,
		deps:   deps,
		logger: logger,
		store:  markers.NewStore(deps.FileSystem, logger),
	}
}

// Options returns the options in use.
func (f *Framemark) Options() Options {
	return f.opts
}

// Open opens a video for seeking. The caller closes the engine.
func (f *Framemark) Open(path string) (*seek.Engine, error) {
	e := seek.New(f.deps.NewContainer(), f.logger, seek.Options{MatroskaRetreat: f.opts.MatroskaRetreat})
	if _, err := e.Open(path); err != nil {
		return nil, err
	}
	return e, nil
}

// Probe opens a video and describes it.
func (f *Framemark) Probe(path string) (*summarizer.VideoInfo, seek.Stats, error) {
	e, err := f.Open(path)
	if err != nil {
		return nil, seek.Stats{}, err
	}
	defer e.Close()

	info := f.VideoInfo(e.Info())
	return &info, e.Stats(), nil
}

// VideoInfo converts stream info to its summary form.
func (f *Framemark) VideoInfo(si *seek.StreamInfo) summarizer.VideoInfo {
	size, err := f.deps.FileSystem.Size(si.Path)
	if err != nil {
		f.logger.Debug("Cannot read size of %s: %v", si.Path, err)
	}
	v := summarizer.VideoInfo{
		Path:       si.Path,
		FileSize:   size,
		Container:  si.FormatName,
		Timing:     si.Format.String(),
		Codec:      si.CodecName,
		Width:      si.Width,
		Height:     si.Height,
		FrameRate:  si.FrameRate,
		FrameCount: si.FrameCount(),
		DurationMs: si.DurationMs,
		BitRate:    si.BitRate,
		TimeBase:   fmt.Sprintf("%d/%d", si.TimeBase.Num, si.TimeBase.Den),
	}
	for _, c := range si.Chapters {
		v.Chapters = append(v.Chapters, summarizer.Chapter{Title: c.Title, StartMs: c.StartMs, EndMs: c.EndMs})
	}
	return v
}

// SeekInfo converts engine counters to their summary form.
func SeekInfo(st seek.Stats) summarizer.SeekInfo {
	return summarizer.SeekInfo{
		Seeks:         st.Seeks,
		Retreats:      st.Retreats,
		PacketsRead:   st.PacketsRead,
		FramesDecoded: st.FramesDecoded,
		CacheHits:     st.CacheHits,
		DecodeErrors:  st.DecodeErrors,
	}
}

// ImageFormatFor picks the image format from the extension of path. An
// empty extension yields fallback.
func ImageFormatFor(path string, fallback ports.ImageFormat) (ports.ImageFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return ports.FormatPNG, nil
	case ".jpg", ".jpeg":
		return ports.FormatJPEG, nil
	case "":
		return fallback, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownImageFormat, path)
	}
}

// ExportResult describes an exported frame.
type ExportResult struct {
	Frame  *seek.DecodedFrame
	Width  int
	Height int
	Bytes  int
	Stats  seek.Stats
}

// ExportFrame decodes one frame and writes it as an image.
func (f *Framemark) ExportFrame(path string, frame int64, out string) (*ExportResult, error) {
	format, err := ImageFormatFor(out, f.opts.FrameFormat)
	if err != nil {
		return nil, err
	}

	e, err := f.Open(path)
	if err != nil {
		return nil, err
	}
	defer e.Close()

	df, err := e.SeekToFrame(frame)
	if err != nil {
		return nil, err
	}

	var img image.Image = df.Image
	size := df.Image.Bounds()
	if w := f.opts.FrameWidth; w > 0 && w != size.Dx() && size.Dx() > 0 {
		h := size.Dy() * w / size.Dx()
		if h < 1 {
			h = 1
		}
		img = f.deps.Renderer.ResizeImage(img, w, h)
	}

	data, err := f.deps.Renderer.EncodeImage(img, format, f.opts.Quality)
	if err != nil {
		return nil, err
	}
	if err := f.deps.FileSystem.WriteFile(out, data); err != nil {
		return nil, fmt.Errorf("write %s: %w", out, err)
	}

	b := img.Bounds()
	f.logger.Info("Saved frame %d (%d ms) to %s", df.Number, df.TimeMs, out)
	return &ExportResult{Frame: df, Width: b.Dx(), Height: b.Dy(), Bytes: len(data), Stats: e.Stats()}, nil
}

// Grab decodes one frame of a video. It implements juxtapose.Grabber.
func (f *Framemark) Grab(path string, frame int64) (*seek.DecodedFrame, error) {
	e, err := f.Open(path)
	if err != nil {
		return nil, err
	}
	defer e.Close()
	return e.SeekToFrame(frame)
}

// Juxtapose writes two frames side by side. An unset Format is taken from
// the output extension.
func (f *Framemark) Juxtapose(ctx context.Context, in juxtapose.Input) (*juxtapose.Result, error) {
	format, err := ImageFormatFor(in.OutputPath, f.opts.FrameFormat)
	if err != nil {
		return nil, err
	}
	in.Format = format

	stage := juxtapose.New(f, f.deps.Renderer, f.deps.FileSystem, f.logger, juxtapose.Options{
		Gap:        f.opts.JuxtaposeGap,
		Height:     f.opts.JuxtaposeHeight,
		Background: f.opts.Background,
		Quality:    f.opts.Quality,
	})
	return stage.Execute(ctx, in)
}

// LoadMarkers reads a marker file leniently.
func (f *Framemark) LoadMarkers(path string) (*markers.List, markers.ParseReport, error) {
	return f.store.Load(path)
}

// MarkerInfo summarizes a loaded marker file.
func MarkerInfo(path string, l *markers.List, r markers.ParseReport) summarizer.MarkerFileInfo {
	open := 0
	for _, m := range l.Markers() {
		if m.IsOpen() {
			open++
		}
	}
	return summarizer.MarkerFileInfo{
		Path:       path,
		Count:      l.Len(),
		Open:       open,
		Skipped:    len(r.Skipped),
		OutOfOrder: len(r.OutOfOrder),
	}
}

// EditMarkers loads a marker file, applies edit and saves the result. A
// missing file starts as an empty list. Nothing is written when edit fails.
func (f *Framemark) EditMarkers(path string, edit func(*markers.List) error) (*markers.List, error) {
	list := markers.NewList()
	exists, err := f.deps.FileSystem.Exists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		if list, _, err = f.store.Load(path); err != nil {
			return nil, err
		}
	}

	if err := edit(list); err != nil {
		return nil, err
	}
	if err := f.store.Save(path, list); err != nil {
		return nil, err
	}
	f.logger.Info("Saved %d markers to %s", list.Len(), path)
	return list, nil
}

// Mark ends the open marker of a file at end and starts a new one at start,
// creating the file when it does not exist. Open (-1) skips either side.
func (f *Framemark) Mark(path string, end, start int64) (*markers.List, error) {
	return f.EditMarkers(path, func(l *markers.List) error {
		return l.EndAndStart(end, start)
	})
}

// Compare loads two marker files and aligns them.
func (f *Framemark) Compare(pathA, pathB string) (*markers.Comparison, error) {
	return f.store.Compare(pathA, pathB)
}

// ComparisonInfo summarizes a comparison.
func ComparisonInfo(c *markers.Comparison) summarizer.ComparisonInfo {
	return summarizer.ComparisonInfo{
		PathA:       c.PathA,
		PathB:       c.PathB,
		Rows:        len(c.Rows),
		Highlighted: c.Mismatches(),
	}
}

// RenderComparison draws a comparison as a table image and writes it.
func (f *Framemark) RenderComparison(c *markers.Comparison, out string) error {
	format, err := ImageFormatFor(out, ports.FormatPNG)
	if err != nil {
		return err
	}
	img := report.NewTable(f.deps.Renderer, f.opts.tableOptions()).Render(c)
	data, err := f.deps.Renderer.EncodeImage(img, format, f.opts.Quality)
	if err != nil {
		return err
	}
	if err := f.deps.FileSystem.WriteFile(out, data); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	f.logger.Info("Saved comparison of %d rows to %s", len(c.Rows), out)
	return nil
}

// SheetResult describes a written contact sheet.
type SheetResult struct {
	Frames []int64
	Width  int
	Height int
	Stats  seek.Stats
}

// ContactSheet writes count evenly spaced frames of a video as one image.
// onFrame, when set, is called after each decoded frame.
func (f *Framemark) ContactSheet(ctx context.Context, path string, count int, out string, onFrame func(done, total int)) (*SheetResult, error) {
	format, err := ImageFormatFor(out, ports.FormatPNG)
	if err != nil {
		return nil, err
	}

	e, err := f.Open(path)
	if err != nil {
		return nil, err
	}
	defer e.Close()

	frames := report.SpacedFrames(e.FrameCount(), count)
	opts := f.opts.sheetOptions()
	opts.OnFrame = onFrame
	img, err := report.NewSheet(f.deps.Renderer, f.logger, f.opts.Workers).Render(ctx, e, frames, opts)
	if err != nil {
		return nil, err
	}

	data, err := f.deps.Renderer.EncodeImage(img, format, f.opts.Quality)
	if err != nil {
		return nil, err
	}
	if err := f.deps.FileSystem.WriteFile(out, data); err != nil {
		return nil, fmt.Errorf("write %s: %w", out, err)
	}

	b := img.Bounds()
	f.logger.Info("Saved contact sheet of %d frames to %s", len(frames), out)
	return &SheetResult{Frames: frames, Width: b.Dx(), Height: b.Dy(), Stats: e.Stats()}, nil
}

// Player creates a player for an opened engine. A zero speed uses the
// configured one.
func (f *Framemark) Player(e *seek.Engine, opts player.Options) *player.Player {
	if opts.Speed <= 0 {
		opts.Speed = f.opts.Speed
	}
	return player.New(e, f.logger, opts)
}

// WriteSummary writes a Markdown summary to path, or to stdout when path
// is summarizer.StdoutPath.
func (f *Framemark) WriteSummary(path string, s *summarizer.Summary, opts ...summarizer.MarkdownOption) error {
	w := summarizer.NewWriter(summarizer.NewMarkdownFormatter(opts...), f.deps.FileSystem)
	if err := w.Write(path, s); err != nil {
		return err
	}
	if path != summarizer.StdoutPath {
		f.logger.Info("Summary saved to %s", path)
	}
	return nil
}

var _ juxtapose.Grabber = (*Framemark)(nil)
