// Package player plays a video frame by frame at its nominal frame rate.
//
// Playback runs on the goroutine that calls Play, so the seek engine is only
// ever used from one goroutine. Pause and Stop may be called from any
// goroutine; they take effect between two frames, never during a seek.
package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/user/framemark/pkg/ports"
	"github.com/user/framemark/pkg/seek"
)

// ErrPlaying is returned when Play is called while already playing.
var ErrPlaying = errors.New("player: already playing")

// Engine is the part of seek.Engine the player drives.
type Engine interface {
	SeekNextFrame() (*seek.DecodedFrame, error)
	SeekToFrame(n int64) (*seek.DecodedFrame, error)
	Info() *seek.StreamInfo
}

// State is the playback state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Options configures a Player.
type Options struct {
	// Speed multiplies the frame rate. Zero means 1.
	Speed float64
	// OnFrame receives every frame shown, on the playing goroutine.
	OnFrame func(*seek.DecodedFrame)
	// Until, when positive, stops playback after this frame number.
	Until int64
}

type command int

const (
	cmdPause command = iota + 1
	cmdStop
)

// Player steps an engine forward on a ticker.
type Player struct {
	engine Engine
	logger ports.Logger
	opts   Options

	mu    sync.Mutex
	state State
	ctrl  chan command

	// newTicker is replaced in tests.
	newTicker func(time.Duration) (<-chan time.Time, func())
}

// New creates a player for an opened engine.
func New(engine Engine, logger ports.Logger, opts Options) *Player {
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	return &Player{
		engine: engine,
		logger: logger.WithComponent("player"),
		opts:   opts,
		ctrl:   make(chan command, 1),
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// State returns the playback state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Interval returns the time between two frames.
func (p *Player) Interval() time.Duration {
	ms := p.engine.Info().FrameDurationMs / p.opts.Speed
	d := time.Duration(ms * float64(time.Millisecond))
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}

// Play shows one frame per tick until the stream ends, ctx is done, or
// Pause or Stop is called. It blocks. Reaching the end of the stream is not
// an error: the player stops on the last frame.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	if p.state == Playing {
		p.mu.Unlock()
		return ErrPlaying
	}
	p.state = Playing
	p.mu.Unlock()

	// drop a command left over from a previous run
	select {
	case <-p.ctrl:
	default:
	}

	interval := p.Interval()
	p.logger.Debug("Playing at %.3f fps", 1/interval.Seconds())
	tick, stop := p.newTicker(interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			p.setState(Paused)
			return ctx.Err()
		case cmd := <-p.ctrl:
			return p.handle(cmd)
		case <-tick:
		}
		// a command or cancellation that raced with the tick wins
		select {
		case cmd := <-p.ctrl:
			return p.handle(cmd)
		default:
		}
		if err := ctx.Err(); err != nil {
			p.setState(Paused)
			return err
		}

		frame, err := p.engine.SeekNextFrame()
		if err != nil {
			p.setState(Stopped)
			if errors.Is(err, seek.ErrEndOfStream) {
				p.logger.Debug("End of stream")
				return nil
			}
			return err
		}
		if p.opts.OnFrame != nil {
			p.opts.OnFrame(frame)
		}
		if p.opts.Until > 0 && frame.Number >= p.opts.Until {
			p.setState(Stopped)
			return nil
		}
	}
}

// Pause stops playback after the current frame. The position is kept and
// the next Play resumes from it.
func (p *Player) Pause() {
	p.send(cmdPause)
}

// Stop ends playback and returns to frame 0. When not playing it seeks to
// frame 0 right away, on the calling goroutine.
func (p *Player) Stop() error {
	if p.State() == Playing {
		p.send(cmdStop)
		return nil
	}
	return p.rewind()
}

func (p *Player) handle(cmd command) error {
	if cmd == cmdStop {
		return p.rewind()
	}
	p.setState(Paused)
	return nil
}

func (p *Player) send(cmd command) {
	select {
	case p.ctrl <- cmd:
	default:
		// a stop wins over a pending pause
		if cmd == cmdStop {
			select {
			case <-p.ctrl:
			default:
			}
			select {
			case p.ctrl <- cmd:
			default:
			}
		}
	}
}

func (p *Player) rewind() error {
	p.setState(Stopped)
	frame, err := p.engine.SeekToFrame(0)
	if err != nil {
		return err
	}
	if p.opts.OnFrame != nil {
		p.opts.OnFrame(frame)
	}
	return nil
}
