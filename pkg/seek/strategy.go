package seek

import (
	"errors"
	"io"
	"math"

	"github.com/user/framemark/pkg/ports"
)

// DefaultMatroskaRetreat is the number of stream ticks the Matroska
// correction loop steps back after landing past the desired frame.
const DefaultMatroskaRetreat int64 = 3000

// strategy holds the format specific parts of a seek.
type strategy interface {
	// reposition moves the container to a point at or before ideal.
	reposition(e *Engine, ideal int64) error
	// locate derives the frame number and time in ms of a decoded picture.
	locate(info *StreamInfo, pic *ports.Picture) (number, timeMs int64)
}

func strategyFor(format ContainerFormat) strategy {
	switch format {
	case FormatMpeg, FormatAsf:
		return mpegStrategy{}
	case FormatMatroska:
		return matroskaStrategy{}
	default:
		return genericStrategy{}
	}
}

// mpegStrategy predicts a decode timestamp well before the target and
// numbers frames from packet decode timestamps.
type mpegStrategy struct{}

func (mpegStrategy) reposition(e *Engine, ideal int64) error {
	info := e.info
	fps := info.FrameRate
	tb := info.TimeBase
	// (ideal - 0.5 - fps) / (fps * tb), kept in integer-friendly order.
	target := int64((float64(ideal)-0.5-fps)*float64(tb.Den)/(fps*float64(tb.Num))) + info.FirstDTS
	if target < info.FirstDTS {
		target = info.FirstDTS
	}
	return e.seek(target, ports.SeekBackward)
}

func (mpegStrategy) locate(info *StreamInfo, pic *ports.Picture) (int64, int64) {
	dts := pictureDTS(pic) - info.StartTime
	number := roundInt(float64(dts) * info.FrameRate * info.TimeBase.Float64())
	return number, ports.Rescale(dts, info.TimeBase, ports.Milliseconds)
}

// matroskaStrategy predicts a timestamp from the time bases, then retreats
// until the first decoded frame is not after the desired time.
type matroskaStrategy struct{}

func (matroskaStrategy) reposition(e *Engine, ideal int64) error {
	info := e.info
	target := int64(float64(ideal) * ticksPerFrame(info.TimeBase, info.CodecTimeBase, info.TicksPerFrame))
	desired := roundInt(float64(ideal) * info.FrameDurationMs)
	step := e.opts.MatroskaRetreat
	if step <= 0 {
		step = DefaultMatroskaRetreat
	}

	retreat := func() error {
		target -= step
		if target < 0 {
			target = 0
		}
		e.stats.Retreats++
		e.logger.Debug("Retreating to %d, wanted %d ms", target, desired)
		return e.reseek(target)
	}

	if err := e.reseek(target); err != nil {
		return err
	}

	firstEOF := true
	for {
		pkt, err := e.container.ReadPacket()
		if errors.Is(err, io.EOF) {
			if !firstEOF {
				return ErrEndOfStream
			}
			firstEOF = false
			if err := retreat(); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		e.stats.PacketsRead++
		if pkt.StreamIndex != info.StreamIndex {
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

		_, t := matroskaStrategy{}.locate(info, pic)
		if t <= desired {
			break
		}
		if target == 0 {
			e.logger.Debug("First frame at %d ms is past %d ms, accepting start of stream", t, desired)
			break
		}
		if err := retreat(); err != nil {
			return err
		}
	}

	// Rewind to the accepted point so forward decoding starts from it.
	return e.reseek(target)
}

func (matroskaStrategy) locate(info *StreamInfo, pic *ports.Picture) (int64, int64) {
	ts := pic.BestEffortTimestamp
	if ts == ports.NoTimestamp {
		ts = pic.PacketDTS
	}
	t := ports.Rescale(ts, info.TimeBase, ports.Milliseconds)
	return roundInt(float64(t) / info.FrameDurationMs), t
}

// genericStrategy treats decode timestamps as frame counts.
type genericStrategy struct{}

func (genericStrategy) reposition(e *Engine, ideal int64) error {
	return e.seek(ideal, ports.SeekFrame)
}

func (genericStrategy) locate(info *StreamInfo, pic *ports.Picture) (int64, int64) {
	dts := pictureDTS(pic)
	return dts, ports.Rescale(dts, info.TimeBase, ports.Milliseconds)
}

func pictureDTS(pic *ports.Picture) int64 {
	if pic.PacketDTS == ports.NoTimestamp {
		return pic.BestEffortTimestamp
	}
	return pic.PacketDTS
}

func roundInt(v float64) int64 {
	return int64(math.Round(v))
}
