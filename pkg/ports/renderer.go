package ports

import (
	"image"
	"image/color"
)

// Renderer encodes exported frames and draws report images.
type Renderer interface {
	CreateCanvas(width, height int, bg color.Color) Canvas

	// EncodeImage encodes img. quality only applies to JPEG.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage must be safe for concurrent use.
	ResizeImage(img image.Image, width, height int) image.Image
}

// Canvas is a drawing surface. Coordinates are pixels from the top left.
type Canvas interface {
	DrawImage(img image.Image, x, y int)
	DrawImageScaled(img image.Image, x, y, width, height int)
	DrawRect(x, y, w, h int, c color.Color)
	DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64)
	DrawLine(x1, y1, x2, y2 int, c color.Color, width float64)

	// DrawText draws text vertically centered on y. Align decides whether
	// x is the left edge, the center or the right edge.
	DrawText(text string, x, y int, style TextStyle)

	// MeasureText returns the rendered size of text.
	MeasureText(text string, style TextStyle) (width, height float64)

	ToImage() image.Image
}

// TextStyle describes text. An empty FontPath selects the built-in bitmap
// face, which ignores FontSize.
type TextStyle struct {
	FontSize float64
	FontPath string
	Color    color.Color
	Align    TextAlign
}

type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// ImageFormat is the encoding of exported images.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
)

func (f ImageFormat) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	default:
		return "unknown"
	}
}
