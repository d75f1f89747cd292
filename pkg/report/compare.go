// Package report draws images from framemark results: marker comparison
// tables and contact sheets of video frames.
package report

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strconv"

	"github.com/user/framemark/pkg/markers"
	"github.com/user/framemark/pkg/ports"
)

// Theme holds the colors of a report.
type Theme struct {
	Background color.Color
	Text       color.Color
	Grid       color.Color
	Header     color.Color
	Blank      color.Color
}

// DefaultTheme returns a light theme.
func DefaultTheme() Theme {
	return Theme{
		Background: color.White,
		Text:       color.Black,
		Grid:       color.RGBA{R: 0xb4, G: 0xb4, B: 0xb4, A: 0xff},
		Header:     color.RGBA{R: 0xdc, G: 0xdc, B: 0xdc, A: 0xff},
		Blank:      color.RGBA{R: 0xf4, G: 0xf4, B: 0xf4, A: 0xff},
	}
}

// TableOptions configures the comparison table.
type TableOptions struct {
	CellWidth  int
	RowHeight  int
	IndexWidth int
	Margin     int
	FontPath   string
	FontSize   float64
	Theme      Theme
}

// DefaultTableOptions returns the default table geometry.
func DefaultTableOptions() TableOptions {
	return TableOptions{
		CellWidth:  140,
		RowHeight:  20,
		IndexWidth: 48,
		Margin:     12,
		FontSize:   13,
		Theme:      DefaultTheme(),
	}
}

// Table draws aligned marker rows as an image: a header with both file
// names, then one line per row with highlighted rows filled with their
// palette color.
type Table struct {
	renderer ports.Renderer
	opts     TableOptions
}

// NewTable creates a table renderer.
func NewTable(renderer ports.Renderer, opts TableOptions) *Table {
	def := DefaultTableOptions()
	if opts.CellWidth <= 0 {
		opts.CellWidth = def.CellWidth
	}
	if opts.RowHeight <= 0 {
		opts.RowHeight = def.RowHeight
	}
	if opts.IndexWidth <= 0 {
		opts.IndexWidth = def.IndexWidth
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.Theme.Background == nil {
		opts.Theme = def.Theme
	}
	return &Table{renderer: renderer, opts: opts}
}

// Size returns the image size for n rows.
func (t *Table) Size(n int) (int, int) {
	o := t.opts
	w := o.Margin*2 + o.IndexWidth + o.CellWidth*2
	// header, rows, footer
	h := o.Margin*2 + o.RowHeight*(n+2)
	return w, h
}

// Render draws the comparison.
func (t *Table) Render(c *markers.Comparison) image.Image {
	o := t.opts
	w, h := t.Size(len(c.Rows))
	canvas := t.renderer.CreateCanvas(w, h, o.Theme.Background)

	style := ports.TextStyle{FontPath: o.FontPath, FontSize: o.FontSize, Color: o.Theme.Text, Align: ports.AlignCenter}
	x0 := o.Margin
	xa := x0 + o.IndexWidth
	xb := xa + o.CellWidth
	xEnd := xb + o.CellWidth
	y := o.Margin
	mid := o.RowHeight / 2

	canvas.DrawRect(x0, y, xEnd-x0, o.RowHeight, o.Theme.Header)
	canvas.DrawText("#", x0+o.IndexWidth/2, y+mid, style)
	canvas.DrawText(t.fit(canvas, filepath.Base(c.PathA), style), xa+o.CellWidth/2, y+mid, style)
	canvas.DrawText(t.fit(canvas, filepath.Base(c.PathB), style), xb+o.CellWidth/2, y+mid, style)
	y += o.RowHeight

	for i, r := range c.Rows {
		if r.Highlighted {
			canvas.DrawRect(x0, y, xEnd-x0, o.RowHeight, markers.Palette[r.Color])
		} else {
			t.blank(canvas, r.Left, xa, y)
			t.blank(canvas, r.Right, xb, y)
		}
		canvas.DrawText(strconv.Itoa(i+1), x0+o.IndexWidth/2, y+mid, style)
		canvas.DrawText(cellLabel(r.Left), xa+o.CellWidth/2, y+mid, style)
		canvas.DrawText(cellLabel(r.Right), xb+o.CellWidth/2, y+mid, style)
		canvas.DrawLine(x0, y, xEnd, y, o.Theme.Grid, 1)
		y += o.RowHeight
	}
	canvas.DrawLine(x0, y, xEnd, y, o.Theme.Grid, 1)
	top := o.Margin
	for _, x := range []int{x0, xa, xb, xEnd} {
		canvas.DrawLine(x, top, x, y, o.Theme.Grid, 1)
	}

	footer := fmt.Sprintf("%d rows, %d highlighted", len(c.Rows), c.Mismatches())
	left := style
	left.Align = ports.AlignLeft
	canvas.DrawText(footer, x0, y+mid, left)

	return canvas.ToImage()
}

func (t *Table) blank(canvas ports.Canvas, c markers.Cell, x, y int) {
	if c.Blank() {
		canvas.DrawRect(x, y, t.opts.CellWidth, t.opts.RowHeight, t.opts.Theme.Blank)
	}
}

// fit shortens s, marking the cut with a tilde, until it fits a cell.
func (t *Table) fit(canvas ports.Canvas, s string, style ports.TextStyle) string {
	limit := float64(t.opts.CellWidth - 8)
	r := []rune(s)
	for len(r) > 1 {
		if w, _ := canvas.MeasureText(string(r), style); w <= limit {
			return string(r)
		}
		r = append(r[:len(r)-2], '~')
	}
	return string(r)
}

func cellLabel(c markers.Cell) string {
	if c.Blank() {
		return ""
	}
	return c.Marker.String()
}
