package framemark

import (
	"image/color"
	"time"

	"github.com/user/framemark/pkg/ports"
	"github.com/user/framemark/pkg/report"
)

// Options controls how videos are opened and how images are produced.
type Options struct {
	// Container
	FFmpegPath   string        // custom ffmpeg binary, empty searches the usual places
	FFprobePath  string        // custom ffprobe binary
	DisableProbe bool          // use demuxer metadata only
	OutputWait   time.Duration // wait for a decoded picture per packet

	// Seeking
	MatroskaRetreat int64 // Matroska correction step in stream ticks (0 = default)

	// Frame export
	FrameFormat ports.ImageFormat
	Quality     int // JPEG quality (1-100)
	FrameWidth  int // resize exported frames to this width, 0 keeps the size

	// Juxtapose
	JuxtaposeGap    int
	JuxtaposeHeight int // scale both frames to this height, 0 keeps sizes
	Background      color.Color

	// Playback
	Speed float64 // frame rate multiplier

	// Reports
	Theme      report.Theme
	FontPath   string // TrueType font, empty uses the built-in face
	FontSize   float64
	CellWidth  int // comparison table column width
	RowHeight  int
	Columns    int // contact sheet columns
	ThumbWidth int
	SheetGap   int
	Workers    int // scaling workers, 0 uses one per CPU
}

// OptionsBuilder provides a fluent interface for building Options.
type OptionsBuilder struct {
	opts Options
}

// NewOptionsBuilder creates a builder with the default options.
func NewOptionsBuilder() *OptionsBuilder {
	return &OptionsBuilder{opts: defaults()}
}

// NewOptionsBuilderFrom creates a builder starting from opts.
func NewOptionsBuilderFrom(opts Options) *OptionsBuilder {
	return &OptionsBuilder{opts: opts}
}

func defaults() Options {
	table := report.DefaultTableOptions()
	sheet := report.DefaultSheetOptions()
	return Options{
		OutputWait: 2 * time.Second,

		FrameFormat: ports.FormatPNG,
		Quality:     90,

		JuxtaposeGap: 10,
		Background:   color.Black,

		Speed: 1,

		Theme:      report.DefaultTheme(),
		FontSize:   table.FontSize,
		CellWidth:  table.CellWidth,
		RowHeight:  table.RowHeight,
		Columns:    sheet.Columns,
		ThumbWidth: sheet.ThumbWidth,
		SheetGap:   sheet.Gap,
	}
}

// Build returns the final Options, applying constraints.
func (b *OptionsBuilder) Build() Options {
	opts := b.opts

	if opts.Quality < 1 || opts.Quality > 100 {
		opts.Quality = 90
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.Columns < 1 {
		opts.Columns = 1
	}
	if opts.FrameWidth < 0 {
		opts.FrameWidth = 0
	}
	if opts.JuxtaposeHeight < 0 {
		opts.JuxtaposeHeight = 0
	}
	if opts.Workers < 0 {
		opts.Workers = 0
	}
	if opts.Background == nil {
		opts.Background = color.Black
	}
	return opts
}

// WithFFmpegPath sets a custom ffmpeg binary.
func (b *OptionsBuilder) WithFFmpegPath(path string) *OptionsBuilder {
	b.opts.FFmpegPath = path
	return b
}

// WithFFprobePath sets a custom ffprobe binary.
func (b *OptionsBuilder) WithFFprobePath(path string) *OptionsBuilder {
	b.opts.FFprobePath = path
	return b
}

// WithProbe enables or disables ffprobe metadata.
func (b *OptionsBuilder) WithProbe(enabled bool) *OptionsBuilder {
	b.opts.DisableProbe = !enabled
	return b
}

// WithOutputWait bounds the wait for a decoded picture.
func (b *OptionsBuilder) WithOutputWait(d time.Duration) *OptionsBuilder {
	b.opts.OutputWait = d
	return b
}

// WithMatroskaRetreat sets the Matroska correction step in stream ticks.
func (b *OptionsBuilder) WithMatroskaRetreat(ticks int64) *OptionsBuilder {
	b.opts.MatroskaRetreat = ticks
	return b
}

// WithFrameFormat sets the image format of exported frames.
func (b *OptionsBuilder) WithFrameFormat(f ports.ImageFormat) *OptionsBuilder {
	b.opts.FrameFormat = f
	return b
}

// WithQuality sets the JPEG quality (1-100).
// Values outside the range fall back to 90.
func (b *OptionsBuilder) WithQuality(q int) *OptionsBuilder {
	b.opts.Quality = q
	return b
}

// WithFrameWidth resizes exported frames to width, keeping the aspect ratio.
func (b *OptionsBuilder) WithFrameWidth(width int) *OptionsBuilder {
	b.opts.FrameWidth = width
	return b
}

// WithJuxtaposeGap sets the gap between two juxtaposed frames.
func (b *OptionsBuilder) WithJuxtaposeGap(gap int) *OptionsBuilder {
	b.opts.JuxtaposeGap = gap
	return b
}

// WithJuxtaposeHeight scales juxtaposed frames to height.
func (b *OptionsBuilder) WithJuxtaposeHeight(height int) *OptionsBuilder {
	b.opts.JuxtaposeHeight = height
	return b
}

// WithBackground sets the background of juxtaposed images.
func (b *OptionsBuilder) WithBackground(c color.Color) *OptionsBuilder {
	b.opts.Background = c
	return b
}

// WithSpeed sets the playback speed multiplier.
func (b *OptionsBuilder) WithSpeed(speed float64) *OptionsBuilder {
	b.opts.Speed = speed
	return b
}

// WithTheme sets the report colors.
func (b *OptionsBuilder) WithTheme(t report.Theme) *OptionsBuilder {
	b.opts.Theme = t
	return b
}

// WithFont sets the report font and size.
func (b *OptionsBuilder) WithFont(path string, size float64) *OptionsBuilder {
	b.opts.FontPath = path
	if size > 0 {
		b.opts.FontSize = size
	}
	return b
}

// WithTableSize sets the comparison table cell geometry.
func (b *OptionsBuilder) WithTableSize(cellWidth, rowHeight int) *OptionsBuilder {
	b.opts.CellWidth = cellWidth
	b.opts.RowHeight = rowHeight
	return b
}

// WithSheet sets the contact sheet layout.
// Columns below 1 are forced to 1.
func (b *OptionsBuilder) WithSheet(columns, thumbWidth, gap int) *OptionsBuilder {
	b.opts.Columns = columns
	b.opts.ThumbWidth = thumbWidth
	b.opts.SheetGap = gap
	return b
}

// WithWorkers sets the number of scaling workers.
func (b *OptionsBuilder) WithWorkers(n int) *OptionsBuilder {
	b.opts.Workers = n
	return b
}

func (o Options) tableOptions() report.TableOptions {
	return report.TableOptions{
		CellWidth: o.CellWidth,
		RowHeight: o.RowHeight,
		FontPath:  o.FontPath,
		FontSize:  o.FontSize,
		Theme:     o.Theme,
	}
}

func (o Options) sheetOptions() report.SheetOptions {
	return report.SheetOptions{
		Columns:    o.Columns,
		ThumbWidth: o.ThumbWidth,
		Gap:        o.SheetGap,
		FontPath:   o.FontPath,
		FontSize:   o.FontSize,
		Theme:      o.Theme,
	}
}
