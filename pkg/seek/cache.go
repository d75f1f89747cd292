package seek

import (
	"math"

	"github.com/user/framemark/pkg/ports"
)

// DecodePosition is the rolling window of the last two decoded frames.
//
// While LastFrameOk is true, LastLastFrameNumber <= LastFrameNumber and both
// refer to frames that were actually decoded. LastIdealFrameNumber is the
// frame the caller last asked for, which can trail LastFrameNumber.
type DecodePosition struct {
	LastFrameOk          bool
	LastFrameNumber      int64
	LastFrameTime        int64
	LastLastFrameNumber  int64
	LastLastFrameTime    int64
	LastIdealFrameNumber int64
}

func newDecodePosition() DecodePosition {
	return DecodePosition{
		LastLastFrameNumber: math.MinInt64,
		LastLastFrameTime:   math.MinInt64,
	}
}

// advance records a newly decoded frame. A frame numbered below the current
// window restarts the window so the ordering invariant holds.
func (p *DecodePosition) advance(number, timeMs int64) {
	if !p.LastFrameOk || number < p.LastFrameNumber {
		p.LastFrameOk = true
		p.LastLastFrameNumber, p.LastFrameNumber = number, number
		p.LastLastFrameTime, p.LastFrameTime = timeMs, timeMs
		return
	}
	p.LastLastFrameNumber, p.LastLastFrameTime = p.LastFrameNumber, p.LastFrameTime
	p.LastFrameNumber, p.LastFrameTime = number, timeMs
}

// contains reports whether the cached frame satisfies a request for ideal.
func (p *DecodePosition) contains(ideal int64) bool {
	return p.LastFrameOk && p.LastLastFrameNumber <= ideal && ideal <= p.LastFrameNumber
}

// DecodedFrame is a decoded frame handed to the caller. The image is a copy
// the caller owns.
type DecodedFrame struct {
	Image  *ports.RGBFrame
	Number int64
	TimeMs int64
}

// frameCache is the single-slot frame cache plus its decode window.
type frameCache struct {
	pos   DecodePosition
	frame *ports.RGBFrame
}

func (c *frameCache) reset() {
	c.pos = newDecodePosition()
	c.frame = nil
}

func (c *frameCache) invalidate() {
	c.pos.LastFrameOk = false
}

func (c *frameCache) store(frame *ports.RGBFrame) {
	c.frame = frame
}

func (c *frameCache) snapshot() *DecodedFrame {
	return &DecodedFrame{
		Image:  c.frame.Clone(),
		Number: c.pos.LastFrameNumber,
		TimeMs: c.pos.LastFrameTime,
	}
}

func (c *frameCache) available() bool {
	return c.pos.LastFrameOk && c.frame != nil
}
