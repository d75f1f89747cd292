// Package seek implements frame-accurate seeking on top of a media container.
//
// The engine translates frame numbers to container positions using one of
// three timing models, chosen once at open time from the container format.
// It keeps the last decoded frame and a two-frame window of decoded frame
// numbers so sequential stepping and repeated requests avoid container seeks.
//
// An Engine is not safe for concurrent use.
package seek

import (
	"errors"
	"fmt"
	"io"

	"github.com/user/framemark/pkg/ports"
)

// Options tunes the engine.
type Options struct {
	// MatroskaRetreat is the step, in stream ticks, of the Matroska
	// correction loop. Zero means DefaultMatroskaRetreat.
	MatroskaRetreat int64
}

// Stats counts the work done by the engine since Open.
type Stats struct {
	Seeks           int // container level seeks
	Retreats        int // Matroska correction steps
	PacketsRead     int
	FramesDecoded   int
	CacheHits       int
	SequentialSteps int
	DecodeErrors    int
}

// Engine locates and decodes frames by number or time.
type Engine struct {
	container ports.Container
	logger    ports.Logger
	opts      Options

	info     *StreamInfo
	strategy strategy
	cache    frameCache
	stats    Stats
	opened   bool
}

// New creates an engine reading through the given container.
func New(container ports.Container, logger ports.Logger, opts Options) *Engine {
	return &Engine{
		container: container,
		logger:    logger.WithComponent("seek"),
		opts:      opts,
	}
}

// Open opens the video at path and decodes its first frame.
// Any previously opened video is closed first.
func (e *Engine) Open(path string) (*StreamInfo, error) {
	if e.opened {
		e.Close()
	}
	e.cache.reset()
	e.stats = Stats{}

	if err := e.container.OpenInput(path); err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	info, err := e.probe(path)
	if err != nil {
		e.container.CloseInput()
		return nil, &OpenError{Path: path, Err: err}
	}
	e.info = info
	e.strategy = strategyFor(info.Format)
	e.opened = true

	e.logger.Debug("Opened %s: %s, %dx%d, %.3f fps, time base %s",
		path, info.Format, info.Width, info.Height, info.FrameRate, info.TimeBase)

	if _, err := e.decodeForward(-1); err != nil {
		e.Close()
		if errors.Is(err, ErrEndOfStream) {
			err = ErrNoDecodableFrame
		}
		return nil, &OpenError{Path: path, Err: err}
	}
	return info.clone(), nil
}

func (e *Engine) probe(path string) (*StreamInfo, error) {
	media, err := e.container.FindStreamInfo()
	if err != nil {
		return nil, fmt.Errorf("find stream info: %w", err)
	}

	index, ok := e.container.FirstVideoStream()
	if !ok {
		return nil, ErrNoVideoStream
	}
	var stream *ports.StreamMeta
	for i := range media.Streams {
		if media.Streams[i].Index == index {
			stream = &media.Streams[i]
			break
		}
	}
	if stream == nil {
		return nil, ErrNoVideoStream
	}

	if err := e.container.OpenDecoder(index); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodecUnavailable, err)
	}
	return newStreamInfo(path, media, *stream)
}

// Close releases the container. The engine can be reopened.
func (e *Engine) Close() error {
	if !e.opened {
		return nil
	}
	e.opened = false
	e.cache.reset()
	e.info = nil
	return e.container.CloseInput()
}

// SeekToFrame decodes the first frame numbered at or after ideal.
func (e *Engine) SeekToFrame(ideal int64) (*DecodedFrame, error) {
	if !e.opened {
		return nil, ErrNotOpen
	}
	if ideal < 0 {
		return nil, &SeekError{Frame: ideal, Err: ErrFrameOutOfRange}
	}

	pos := &e.cache.pos
	if pos.LastFrameOk && ideal == pos.LastIdealFrameNumber+1 {
		e.stats.SequentialSteps++
		return e.step(ideal)
	}

	if pos.contains(ideal) {
		e.stats.CacheHits++
		pos.LastIdealFrameNumber = ideal
		return e.cache.snapshot(), nil
	}

	e.logger.Debug("Seeking to frame %d", ideal)
	if err := e.strategy.reposition(e, ideal); err != nil {
		e.cache.invalidate()
		return nil, &SeekError{Frame: ideal, Err: err}
	}
	e.container.FlushDecoder(e.info.StreamIndex)
	e.cache.invalidate()
	return e.step(ideal)
}

// SeekToTimeMs decodes the frame nearest to ms.
func (e *Engine) SeekToTimeMs(ms int64) (*DecodedFrame, error) {
	if !e.opened {
		return nil, ErrNotOpen
	}
	return e.SeekToFrame(e.info.FrameNumberForTime(ms))
}

// SeekNextFrame decodes the frame after the last requested one.
func (e *Engine) SeekNextFrame() (*DecodedFrame, error) {
	if !e.opened {
		return nil, ErrNotOpen
	}
	return e.SeekToFrame(e.cache.pos.LastIdealFrameNumber + 1)
}

// SeekPrevFrame decodes the frame before the last requested one.
func (e *Engine) SeekPrevFrame() (*DecodedFrame, error) {
	if !e.opened {
		return nil, ErrNotOpen
	}
	return e.SeekToFrame(e.cache.pos.LastIdealFrameNumber - 1)
}

// CurrentFrame returns the last decoded frame without seeking.
func (e *Engine) CurrentFrame() (*DecodedFrame, error) {
	if !e.opened {
		return nil, ErrNotOpen
	}
	if !e.cache.available() {
		return nil, ErrNotAvailable
	}
	return e.cache.snapshot(), nil
}

// CurrentFrameNumber returns the number of the last decoded frame, or -1.
func (e *Engine) CurrentFrameNumber() int64 {
	if !e.opened {
		return -1
	}
	return e.cache.pos.LastFrameNumber
}

// CurrentFrameTimeMs returns the time of the last decoded frame, or -1.
func (e *Engine) CurrentFrameTimeMs() int64 {
	if !e.opened {
		return -1
	}
	return e.cache.pos.LastFrameTime
}

// IdealFrameNumber returns the last requested frame number, or -1.
func (e *Engine) IdealFrameNumber() int64 {
	if !e.opened {
		return -1
	}
	return e.cache.pos.LastIdealFrameNumber
}

// VideoLengthMs returns the container duration, or -1.
func (e *Engine) VideoLengthMs() int64 {
	if !e.opened {
		return -1
	}
	return e.info.DurationMs
}

// FrameCount returns the estimated number of frames, or -1.
func (e *Engine) FrameCount() int64 {
	if !e.opened {
		return -1
	}
	return e.info.FrameCount()
}

// FrameNumberForTime returns the frame nearest to ms, or -1.
func (e *Engine) FrameNumberForTime(ms int64) int64 {
	if !e.opened {
		return -1
	}
	return e.info.FrameNumberForTime(ms)
}

// Info returns a copy of the stream info, or nil when nothing is open.
func (e *Engine) Info() *StreamInfo {
	if !e.opened {
		return nil
	}
	return e.info.clone()
}

// Position returns a copy of the decode window.
func (e *Engine) Position() DecodePosition {
	return e.cache.pos
}

// Stats returns the work counters since Open.
func (e *Engine) Stats() Stats {
	return e.stats
}

// IsOpen reports whether a video is open.
func (e *Engine) IsOpen() bool {
	return e.opened
}

// step decodes forward to ideal without repositioning the container.
func (e *Engine) step(ideal int64) (*DecodedFrame, error) {
	frame, err := e.decodeForward(ideal)
	if err != nil {
		e.cache.invalidate()
		return nil, &SeekError{Frame: ideal, Err: err}
	}
	e.cache.pos.LastIdealFrameNumber = ideal
	return frame, nil
}

// decodeForward reads packets until a frame numbered at or after ideal is
// decoded. An ideal of -1 accepts the first decoded frame.
func (e *Engine) decodeForward(ideal int64) (*DecodedFrame, error) {
	if ideal != -1 && e.cache.pos.contains(ideal) && e.cache.frame != nil {
		e.stats.CacheHits++
		return e.cache.snapshot(), nil
	}

	for {
		pkt, err := e.container.ReadPacket()
		if errors.Is(err, io.EOF) {
			return nil, ErrEndOfStream
		}
		if err != nil {
			return nil, fmt.Errorf("read packet: %w", err)
		}
		e.stats.PacketsRead++
		if pkt.StreamIndex != e.info.StreamIndex {
			continue
		}

		pic, complete, err := e.container.DecodePacket(pkt)
		if err != nil {
			e.skipPacket(pkt, err)
			continue
		}
		if !complete {
			continue
		}
		e.stats.FramesDecoded++

		number, timeMs := e.strategy.locate(e.info, pic)
		e.cache.pos.advance(number, timeMs)
		if ideal != -1 && number < ideal {
			continue
		}

		rgb, err := e.container.ConvertToRGB(pic)
		if err != nil {
			return nil, &DecodeError{DTS: pic.PacketDTS, Err: err}
		}
		e.cache.store(rgb)
		return e.cache.snapshot(), nil
	}
}

// seek asks the container to move at or before target.
func (e *Engine) seek(target int64, flag ports.SeekFlag) error {
	e.stats.Seeks++
	if err := e.container.Seek(e.info.StreamIndex, target, flag); err != nil {
		return fmt.Errorf("container seek to %d (%s): %w", target, flag, err)
	}
	return nil
}

// reseek seeks backward to target and drops decoder state.
func (e *Engine) reseek(target int64) error {
	if err := e.seek(target, ports.SeekBackward); err != nil {
		return err
	}
	e.container.FlushDecoder(e.info.StreamIndex)
	return nil
}

func (e *Engine) skipPacket(pkt *ports.Packet, err error) {
	e.stats.DecodeErrors++
	e.logger.Debug("Skipping packet: %s", &DecodeError{DTS: pkt.DTS, Err: err})
}
