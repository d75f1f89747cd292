package markers

import "image/color"

// Palette holds the highlight colors of mismatching rows, used in turn.
var Palette = [5]color.RGBA{
	{R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff}, // light gray
	{R: 0xff, G: 0x00, B: 0x00, A: 0xff}, // red
	{R: 0x00, G: 0xff, B: 0xff, A: 0xff}, // cyan
	{R: 0xff, G: 0x00, B: 0xff, A: 0xff}, // magenta
	{R: 0xff, G: 0xff, B: 0x00, A: 0xff}, // yellow
}

// PaletteNames names the Palette entries.
var PaletteNames = [len(Palette)]string{"lightgray", "red", "cyan", "magenta", "yellow"}

// rotation hands out palette indexes round-robin.
type rotation struct {
	next int
}

func (r *rotation) take() int {
	c := r.next
	r.next = (r.next + 1) % len(Palette)
	return c
}
