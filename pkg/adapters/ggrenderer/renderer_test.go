package ggrenderer

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/user/framemark/pkg/ports"
)

// redFrame returns a solid red RGB frame.
func redFrame(w, h int) *ports.RGBFrame {
	f := ports.NewRGBFrame(w, h)
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i] = 255
	}
	return f
}

func isRed(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r > 0xf000 && g < 0x1000 && b < 0x1000
}

func TestRenderer_CreateCanvas(t *testing.T) {
	r := New()

	img := r.CreateCanvas(120, 80, color.White).ToImage()
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 80 {
		t.Errorf("expected 120x80, got %dx%d", b.Dx(), b.Dy())
	}
	if r, g, b, _ := img.At(5, 5).RGBA(); r != 0xffff || g != 0xffff || b != 0xffff {
		t.Error("expected white background")
	}
}

func TestRenderer_EncodePNG(t *testing.T) {
	r := New()

	data, err := r.EncodeImage(redFrame(30, 20), ports.FormatPNG, 0)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode PNG: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 30 || b.Dy() != 20 {
		t.Errorf("expected 30x20, got %dx%d", b.Dx(), b.Dy())
	}
	if !isRed(decoded.At(10, 10)) {
		t.Error("expected the frame pixels to survive PNG encoding")
	}
}

func TestRenderer_EncodeJPEG_DefaultQuality(t *testing.T) {
	r := New()

	// An out of range quality falls back to the default instead of failing.
	data, err := r.EncodeImage(redFrame(16, 16), ports.FormatJPEG, 0)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("decode JPEG: %v", err)
	}
}

func TestRenderer_EncodeUnknownFormat(t *testing.T) {
	r := New()
	if _, err := r.EncodeImage(redFrame(2, 2), ports.ImageFormat(9), 0); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRenderer_ResizeImage(t *testing.T) {
	r := New()

	resized := r.ResizeImage(redFrame(64, 48), 32, 24)
	if b := resized.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("expected 32x24, got %dx%d", b.Dx(), b.Dy())
	}
	if !isRed(resized.At(16, 12)) {
		t.Error("expected resized frame to stay red")
	}
}

func TestCanvas_DrawImageScaled(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 100, color.White)

	canvas.DrawImageScaled(redFrame(8, 8), 10, 10, 40, 40)
	img := canvas.ToImage()

	if !isRed(img.At(30, 30)) {
		t.Error("expected red inside the scaled image")
	}
	if isRed(img.At(60, 60)) {
		t.Error("expected background outside the scaled image")
	}
}

func TestCanvas_DrawRectAndStroke(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 100, color.White)

	canvas.DrawRect(10, 10, 30, 30, color.RGBA{R: 255, A: 255})
	canvas.DrawRectStroke(50, 50, 30, 30, color.Black, 2)
	img := canvas.ToImage()

	if !isRed(img.At(20, 20)) {
		t.Error("expected red pixel inside rectangle")
	}
	if r, g, b, _ := img.At(50, 60).RGBA(); r == 0xffff && g == 0xffff && b == 0xffff {
		t.Error("expected stroke on the rectangle border")
	}
}

func TestCanvas_DrawLine(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 100, color.White)

	canvas.DrawLine(0, 50, 100, 50, color.Black, 2)

	if r, g, b, _ := canvas.ToImage().At(50, 50).RGBA(); r == 0xffff && g == 0xffff && b == 0xffff {
		t.Error("expected non-white pixel on line")
	}
}

func TestCanvas_Text(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(200, 40, color.White)

	style := ports.TextStyle{FontSize: 14, Align: ports.AlignCenter}
	w, h := canvas.MeasureText("12, 48", style)
	if w <= 0 || h <= 0 {
		t.Fatalf("expected positive text size, got %vx%v", w, h)
	}

	// A nil color draws black text.
	canvas.DrawText("12, 48", 100, 20, style)
	img := canvas.ToImage().(*image.RGBA)
	dark := false
	for x := 80; x < 120 && !dark; x++ {
		for y := 10; y < 30; y++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r < 0x8000 {
				dark = true
				break
			}
		}
	}
	if !dark {
		t.Error("expected text pixels around the anchor")
	}
}

func TestRenderer_MissingFontFallsBack(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 30, color.White)

	style := ports.TextStyle{FontPath: "/nonexistent/font.ttf", FontSize: 20}
	canvas.DrawText("abc", 5, 15, style)
	canvas.DrawText("abc", 5, 15, style)

	if len(r.faces) != 1 {
		t.Errorf("expected one cached face entry, got %d", len(r.faces))
	}
	if f := r.face(style); f != nil {
		t.Error("expected nil face for an unreadable font")
	}
}
