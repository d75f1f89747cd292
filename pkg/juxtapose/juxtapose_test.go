package juxtapose

import (
	"context"
	"errors"
	"testing"

	"github.com/user/framemark/pkg/adapters/logger"
	"github.com/user/framemark/pkg/mocks"
	"github.com/user/framemark/pkg/ports"
	"github.com/user/framemark/pkg/seek"
)

type grabber struct {
	sizes map[string][2]int
	calls []string
}

func (g *grabber) Grab(path string, frame int64) (*seek.DecodedFrame, error) {
	sz, ok := g.sizes[path]
	if !ok {
		return nil, errors.New("no such video")
	}
	g.calls = append(g.calls, path)
	return &seek.DecodedFrame{Image: ports.NewRGBFrame(sz[0], sz[1]), Number: frame, TimeMs: frame * 40}, nil
}

func TestCompose_CentersShorterFrame(t *testing.T) {
	r := &mocks.Renderer{}

	Compose(r, ports.NewRGBFrame(100, 60), ports.NewRGBFrame(80, 40), Options{Gap: 10})

	c := r.Canvases()[0]
	if c.Width != 190 || c.Height != 60 {
		t.Fatalf("expected 190x60 canvas, got %dx%d", c.Width, c.Height)
	}
	if len(c.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(c.Images))
	}
	if got := c.Images[1]; got.X != 110 || got.Y != 10 {
		t.Errorf("right frame at (%d,%d), want (110,10)", got.X, got.Y)
	}
}

func TestCompose_ScalesToHeight(t *testing.T) {
	r := &mocks.Renderer{}

	Compose(r, ports.NewRGBFrame(160, 90), ports.NewRGBFrame(64, 48), Options{Gap: 4, Height: 180})

	c := r.Canvases()[0]
	if c.Width != 320+4+240 || c.Height != 180 {
		t.Errorf("expected 564x180 canvas, got %dx%d", c.Width, c.Height)
	}
	if got := c.Images[1]; got.Width != 240 || got.Height != 180 || got.Y != 0 {
		t.Errorf("right frame drawn %dx%d at y=%d", got.Width, got.Height, got.Y)
	}
}

func TestStage_Execute(t *testing.T) {
	g := &grabber{sizes: map[string][2]int{"a.mp4": {32, 24}, "b.mkv": {32, 24}}}
	fs := mocks.NewFileSystem()
	r := &mocks.Renderer{}
	stage := New(g, r, fs, logger.NewNoop(), DefaultOptions())

	res, err := stage.Execute(context.Background(), Input{
		LeftPath: "a.mp4", LeftFrame: 12,
		RightPath: "b.mkv", RightFrame: 13,
		OutputPath: "out/pair.png",
		Format:     ports.FormatPNG,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Width != 74 || res.Height != 24 {
		t.Errorf("expected 74x24, got %dx%d", res.Width, res.Height)
	}
	if res.Left.Number != 12 || res.Right.Number != 13 {
		t.Errorf("frames %d/%d, want 12/13", res.Left.Number, res.Right.Number)
	}
	if _, ok := fs.GetFile("out/pair.png"); !ok {
		t.Error("expected output to be written")
	}
}

func TestStage_Errors(t *testing.T) {
	g := &grabber{sizes: map[string][2]int{"a.mp4": {8, 8}}}
	stage := New(g, &mocks.Renderer{}, mocks.NewFileSystem(), logger.NewNoop(), DefaultOptions())

	if _, err := stage.Execute(context.Background(), Input{LeftPath: "a.mp4", RightPath: "a.mp4"}); !errors.Is(err, ErrNoOutput) {
		t.Errorf("expected ErrNoOutput, got %v", err)
	}
	if _, err := stage.Execute(context.Background(), Input{LeftPath: "a.mp4", RightPath: "missing.mp4", OutputPath: "x.png"}); err == nil {
		t.Error("expected error for a missing right video")
	}
}
