package seek

import (
	"github.com/user/framemark/pkg/ports"
)

// StreamInfo describes the opened video stream. It does not change until
// the next Open.
type StreamInfo struct {
	Path        string
	FormatName  string
	Format      ContainerFormat
	StreamIndex int
	CodecName   string

	FrameRate       float64 // nominal frames per second
	FrameDurationMs float64 // 1000 / FrameRate
	// RealFrameDuration is the per-frame duration in stream ticks derived
	// from the time bases and ticks per frame. Only differs from the
	// nominal duration for Matroska.
	RealFrameDuration float64

	TimeBase      ports.Rational
	CodecTimeBase ports.Rational
	TicksPerFrame int
	StartTime     int64 // stream ticks
	FirstDTS      int64 // stream ticks

	Width      int
	Height     int
	DurationMs int64
	BitRate    int64

	Programs []ports.Program
	Chapters []ports.Chapter
	Tags     map[string]string
}

// newStreamInfo derives the stream info from container metadata.
func newStreamInfo(path string, media *ports.MediaInfo, stream ports.StreamMeta) (*StreamInfo, error) {
	fps := stream.FrameRate.Float64()
	if fps <= 0 {
		return nil, ErrUnknownFrameRate
	}

	ctb := stream.CodecTimeBase
	// Some codecs report a codec time base of N/1 with N in the thousands.
	if ctb.Num > 1000 && ctb.Den == 1 {
		ctb.Den = 1000
	}

	info := &StreamInfo{
		Path:            path,
		FormatName:      media.FormatName,
		Format:          ParseContainerFormat(media.FormatName),
		StreamIndex:     stream.Index,
		CodecName:       stream.CodecName,
		FrameRate:       fps,
		FrameDurationMs: 1000 / fps,
		TimeBase:        stream.TimeBase,
		CodecTimeBase:   ctb,
		TicksPerFrame:   stream.TicksPerFrame,
		StartTime:       stream.StartTime,
		FirstDTS:        stream.FirstDTS,
		Width:           stream.Width,
		Height:          stream.Height,
		DurationMs:      media.DurationUs / 1000,
		BitRate:         media.BitRate,
		Programs:        media.Programs,
		Chapters:        media.Chapters,
		Tags:            media.Tags,
	}
	if info.FirstDTS == ports.NoTimestamp {
		info.FirstDTS = 0
	}
	if info.StartTime == ports.NoTimestamp {
		info.StartTime = 0
	}
	if info.TicksPerFrame <= 0 {
		info.TicksPerFrame = 1
	}

	info.RealFrameDuration = info.FrameDurationMs
	if info.Format == FormatMatroska {
		if d := ticksPerFrame(info.TimeBase, info.CodecTimeBase, info.TicksPerFrame); d > 0 {
			info.RealFrameDuration = d
		}
	}
	return info, nil
}

// ticksPerFrame returns (1/tb) / (1/ctb) * ticks, the duration of one frame
// in stream ticks.
func ticksPerFrame(tb, ctb ports.Rational, ticks int) float64 {
	if tb.IsZero() || ctb.IsZero() {
		return 0
	}
	streamRate := float64(tb.Den) / float64(tb.Num)
	codecRate := float64(ctb.Den) / float64(ctb.Num)
	return streamRate / codecRate * float64(ticks)
}

// FrameCount estimates the number of frames from duration and frame rate.
// Containers that store a wrong duration yield a wrong count.
func (s *StreamInfo) FrameCount() int64 {
	return roundInt(float64(s.DurationMs) * s.FrameRate / 1000)
}

// FrameNumberForTime returns the frame nearest to ms.
func (s *StreamInfo) FrameNumberForTime(ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	return roundInt(float64(ms) / s.FrameDurationMs)
}

func (s *StreamInfo) clone() *StreamInfo {
	c := *s
	return &c
}
