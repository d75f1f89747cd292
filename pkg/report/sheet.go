package report

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sort"
	"sync"

	"github.com/user/framemark/pkg/ports"
	"github.com/user/framemark/pkg/seek"
)

// ErrNoFrames is returned when a contact sheet has nothing to show.
var ErrNoFrames = errors.New("report: no frames to draw")

// FrameSource decodes frames by number. seek.Engine satisfies it.
type FrameSource interface {
	SeekToFrame(n int64) (*seek.DecodedFrame, error)
}

// SheetOptions configures a contact sheet.
type SheetOptions struct {
	Columns    int
	ThumbWidth int
	Gap        int
	LabelSize  int // height of the caption under each thumbnail
	FontPath   string
	FontSize   float64
	Theme      Theme
	// OnFrame is called after each frame is decoded.
	OnFrame func(done, total int)
}

// DefaultSheetOptions returns a four column sheet of 240 pixel thumbnails.
func DefaultSheetOptions() SheetOptions {
	return SheetOptions{
		Columns:    4,
		ThumbWidth: 240,
		Gap:        8,
		LabelSize:  18,
		FontSize:   12,
		Theme:      DefaultTheme(),
	}
}

// Sheet draws thumbnails of selected frames in a grid. Frames are decoded
// one at a time in ascending order; scaling runs on a worker pool.
type Sheet struct {
	renderer   ports.Renderer
	logger     ports.Logger
	numWorkers int
}

// NewSheet creates a contact sheet renderer.
func NewSheet(renderer ports.Renderer, logger ports.Logger, numWorkers int) *Sheet {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Sheet{
		renderer:   renderer,
		logger:     logger.WithComponent("report"),
		numWorkers: numWorkers,
	}
}

// SpacedFrames picks n frame numbers spread evenly over count frames,
// always including the first one.
func SpacedFrames(count int64, n int) []int64 {
	if count <= 0 || n <= 0 {
		return nil
	}
	if int64(n) > count {
		n = int(count)
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i) * count / int64(n)
	}
	return out
}

type thumb struct {
	index  int
	number int64
	timeMs int64
	image  image.Image
}

// Render decodes the frames and draws the sheet.
func (s *Sheet) Render(ctx context.Context, src FrameSource, frames []int64, opts SheetOptions) (image.Image, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	opts = withSheetDefaults(opts)

	order := append([]int64(nil), frames...)
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	decoded := make([]*seek.DecodedFrame, 0, len(order))
	for i, n := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := src.SeekToFrame(n)
		if err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", n, err)
		}
		decoded = append(decoded, f)
		if opts.OnFrame != nil {
			opts.OnFrame(i+1, len(order))
		}
	}

	s.logger.Debug("Scaling %d frames with %d workers", len(decoded), s.numWorkers)
	thumbs, err := s.scaleParallel(ctx, decoded, opts.ThumbWidth)
	if err != nil {
		return nil, err
	}
	return s.draw(thumbs, opts), nil
}

func withSheetDefaults(opts SheetOptions) SheetOptions {
	def := DefaultSheetOptions()
	if opts.Columns <= 0 {
		opts.Columns = def.Columns
	}
	if opts.ThumbWidth <= 0 {
		opts.ThumbWidth = def.ThumbWidth
	}
	if opts.LabelSize <= 0 {
		opts.LabelSize = def.LabelSize
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.Theme.Background == nil {
		opts.Theme = def.Theme
	}
	return opts
}

// scaleParallel resizes every frame to width using the worker pool.
func (s *Sheet) scaleParallel(ctx context.Context, frames []*seek.DecodedFrame, width int) ([]thumb, error) {
	jobs := make(chan int, len(frames))
	results := make(chan thumb, len(frames))

	var wg sync.WaitGroup
	for w := 0; w < s.numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				f := frames[idx]
				results <- thumb{
					index:  idx,
					number: f.Number,
					timeMs: f.TimeMs,
					image:  s.scale(f.Image, width),
				}
			}
		}()
	}

	for i := range frames {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	thumbs := make([]thumb, 0, len(frames))
	for t := range results {
		thumbs = append(thumbs, t)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(thumbs, func(i, j int) bool {
		return thumbs[i].index < thumbs[j].index
	})
	return thumbs, nil
}

func (s *Sheet) scale(img *ports.RGBFrame, width int) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dx() == width {
		return img
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	return s.renderer.ResizeImage(img, width, height)
}

func (s *Sheet) draw(thumbs []thumb, opts SheetOptions) image.Image {
	cols := opts.Columns
	if cols > len(thumbs) {
		cols = len(thumbs)
	}
	rows := (len(thumbs) + cols - 1) / cols

	thumbH := 0
	for _, t := range thumbs {
		if h := t.image.Bounds().Dy(); h > thumbH {
			thumbH = h
		}
	}
	cellW := opts.ThumbWidth
	cellH := thumbH + opts.LabelSize
	w := opts.Gap + cols*(cellW+opts.Gap)
	h := opts.Gap + rows*(cellH+opts.Gap)

	canvas := s.renderer.CreateCanvas(w, h, opts.Theme.Background)
	style := ports.TextStyle{FontPath: opts.FontPath, FontSize: opts.FontSize, Color: opts.Theme.Text, Align: ports.AlignCenter}
	for i, t := range thumbs {
		x := opts.Gap + (i%cols)*(cellW+opts.Gap)
		y := opts.Gap + (i/cols)*(cellH+opts.Gap)
		canvas.DrawImage(t.image, x, y)
		canvas.DrawRectStroke(x, y, cellW, t.image.Bounds().Dy(), opts.Theme.Grid, 1)
		canvas.DrawText(Caption(t.number, t.timeMs), x+cellW/2, y+thumbH+opts.LabelSize/2, style)
	}
	return canvas.ToImage()
}

// Caption formats a frame number and its time as "#120 00:04.800".
func Caption(number, timeMs int64) string {
	if timeMs < 0 {
		timeMs = 0
	}
	minutes := timeMs / 60000
	sec := (timeMs % 60000) / 1000
	ms := timeMs % 1000
	return fmt.Sprintf("#%d %02d:%02d.%03d", number, minutes, sec, ms)
}

var _ FrameSource = (*seek.Engine)(nil)
