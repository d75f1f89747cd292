package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/framemark/pkg/adapters/logger"
	"github.com/user/framemark/pkg/mocks"
	"github.com/user/framemark/pkg/seek"
)

// newPlayer opens a synthetic video of n frames and returns a player whose
// ticker fires immediately.
func newPlayer(t *testing.T, n int, opts Options) (*Player, *seek.Engine) {
	t.Helper()
	e := seek.New(mocks.NewContainer(n, 5), logger.NewNoop(), seek.Options{})
	if _, err := e.Open("clip.avi"); err != nil {
		t.Fatalf("open: %v", err)
	}
	p := New(e, logger.NewNoop(), opts)
	p.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		ch := make(chan time.Time)
		close(ch)
		return ch, func() {}
	}
	return p, e
}

func TestPlay_ToEndOfStream(t *testing.T) {
	var shown []int64
	p, _ := newPlayer(t, 10, Options{OnFrame: func(f *seek.DecodedFrame) { shown = append(shown, f.Number) }})

	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	// Frame 0 is shown by Open; playback continues from frame 1.
	if len(shown) != 9 || shown[0] != 1 || shown[8] != 9 {
		t.Errorf("unexpected frames: %v", shown)
	}
	if p.State() != Stopped {
		t.Errorf("expected stopped, got %s", p.State())
	}
}

func TestPlay_PauseAndResume(t *testing.T) {
	var shown []int64
	var p *Player
	p, e := newPlayer(t, 20, Options{OnFrame: func(f *seek.DecodedFrame) {
		shown = append(shown, f.Number)
		if f.Number == 3 {
			p.Pause()
		}
	}})

	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if p.State() != Paused {
		t.Fatalf("expected paused, got %s", p.State())
	}
	if e.CurrentFrameNumber() != 3 {
		t.Errorf("expected to pause on frame 3, at %d", e.CurrentFrameNumber())
	}

	seeks := e.Stats().Seeks
	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if shown[3] != 4 {
		t.Errorf("expected resume at frame 4, got %v", shown)
	}
	if got := e.Stats().Seeks; got != seeks {
		t.Errorf("resuming must not seek, %d seeks became %d", seeks, got)
	}
}

func TestPlay_StopRewinds(t *testing.T) {
	var shown []int64
	var p *Player
	p, e := newPlayer(t, 20, Options{OnFrame: func(f *seek.DecodedFrame) {
		shown = append(shown, f.Number)
		if f.Number == 5 {
			p.Pause()
			// a stop replaces the pending pause
			if err := p.Stop(); err != nil {
				t.Errorf("Stop failed: %v", err)
			}
		}
	}})

	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if p.State() != Stopped {
		t.Errorf("expected stopped, got %s", p.State())
	}
	if last := shown[len(shown)-1]; last != 0 {
		t.Errorf("expected frame 0 after stop, got %d", last)
	}
	if e.CurrentFrameNumber() != 0 {
		t.Errorf("expected engine at frame 0, got %d", e.CurrentFrameNumber())
	}
}

func TestStop_WhenIdle(t *testing.T) {
	p, e := newPlayer(t, 20, Options{})
	if _, err := e.SeekToFrame(12); err != nil {
		t.Fatalf("seek: %v", err)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if e.CurrentFrameNumber() != 0 {
		t.Errorf("expected frame 0, got %d", e.CurrentFrameNumber())
	}
}

func TestPlay_Until(t *testing.T) {
	p, e := newPlayer(t, 50, Options{Until: 7})

	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if e.CurrentFrameNumber() != 7 {
		t.Errorf("expected to stop at frame 7, at %d", e.CurrentFrameNumber())
	}
}

func TestPlay_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var p *Player
	p, _ = newPlayer(t, 50, Options{OnFrame: func(f *seek.DecodedFrame) {
		if f.Number == 2 {
			cancel()
		}
	}})

	if err := p.Play(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p.State() != Paused {
		t.Errorf("expected paused, got %s", p.State())
	}
}

func TestPlay_AlreadyPlaying(t *testing.T) {
	p, _ := newPlayer(t, 5, Options{})
	p.setState(Playing)

	if err := p.Play(context.Background()); !errors.Is(err, ErrPlaying) {
		t.Errorf("expected ErrPlaying, got %v", err)
	}
}

func TestInterval(t *testing.T) {
	p, _ := newPlayer(t, 5, Options{Speed: 2})

	if got := p.Interval(); got != 20*time.Millisecond {
		t.Errorf("expected 20ms at double speed, got %v", got)
	}
}
