package mocks

import (
	"errors"
	"fmt"
	"io"

	"github.com/user/framemark/pkg/ports"
)

// SeekCall records one call to Container.Seek.
type SeekCall struct {
	Stream int
	Target int64
	Flag   ports.SeekFlag
}

// Container is a synthetic ports.Container. Frame i has decode timestamp
// FirstDTS + i*DTSStep and presentation timestamp i*PTSStep, and every
// pixel of its picture encodes i (see FrameIndex).
type Container struct {
	FormatName    string
	Frames        int
	GOP           int // keyframe interval, frames
	TimeBase      ports.Rational
	CodecTimeBase ports.Rational
	TicksPerFrame int
	FrameRate     ports.Rational
	StartTime     int64
	FirstDTS      int64
	DTSStep       int64
	PTSStep       int64
	Width         int
	Height        int
	DurationUs    int64

	// DecoderDelay holds pictures back for that many packets. The delayed
	// pictures are released by flush packets after the last frame.
	DecoderDelay int
	// SeekPastTarget makes backward seeks land on the first keyframe at or
	// after the target, like a container with a broken index.
	SeekPastTarget bool
	// CorruptFrames fail to decode.
	CorruptFrames map[int]bool
	// AudioEvery interleaves one audio packet after every n video packets.
	AudioEvery int

	OpenInputErr   error
	StreamInfoErr  error
	OpenDecoderErr error
	SeekErr        error
	NoVideo        bool

	// Observations.
	SeekCalls []SeekCall
	Flushes   int
	Reads     int
	Opened    bool
	Closed    bool

	next       int // next video frame to deliver
	audioCount int
	drained    int
	pending    []int
	hasRef     bool
}

// NewContainer returns a generic container of n frames at 25 fps with a
// keyframe every gop frames. Decode timestamps count frames.
func NewContainer(n, gop int) *Container {
	return &Container{
		FormatName:    "avi",
		Frames:        n,
		GOP:           gop,
		TimeBase:      ports.Rational{Num: 1, Den: 25},
		CodecTimeBase: ports.Rational{Num: 1, Den: 25},
		TicksPerFrame: 1,
		FrameRate:     ports.Rational{Num: 25, Den: 1},
		DTSStep:       1,
		PTSStep:       1,
		Width:         4,
		Height:        2,
		DurationUs:    int64(n) * 40000,
	}
}

// NewMpegContainer returns an MPEG program stream of n frames at 25 fps on
// a 90 kHz clock starting at startDTS.
func NewMpegContainer(n, gop int, startDTS int64) *Container {
	c := NewContainer(n, gop)
	c.FormatName = "mpeg"
	c.TimeBase = ports.Rational{Num: 1, Den: 90000}
	c.CodecTimeBase = ports.Rational{Num: 1, Den: 50}
	c.TicksPerFrame = 2
	c.StartTime = startDTS
	c.FirstDTS = startDTS
	c.DTSStep = 3600
	c.PTSStep = 3600
	return c
}

// NewMatroskaContainer returns a Matroska stream of n frames at 25 fps with
// millisecond timestamps.
func NewMatroskaContainer(n, gop int) *Container {
	c := NewContainer(n, gop)
	c.FormatName = "matroska,webm"
	c.TimeBase = ports.Rational{Num: 1, Den: 1000}
	c.CodecTimeBase = ports.Rational{Num: 1, Den: 50}
	c.TicksPerFrame = 2
	c.DTSStep = 40
	c.PTSStep = 40
	return c
}

func (c *Container) OpenInput(path string) error {
	if c.OpenInputErr != nil {
		return c.OpenInputErr
	}
	c.Opened = true
	c.Closed = false
	c.rewind(0)
	return nil
}

func (c *Container) FindStreamInfo() (*ports.MediaInfo, error) {
	if c.StreamInfoErr != nil {
		return nil, c.StreamInfoErr
	}
	info := &ports.MediaInfo{
		FormatName: c.FormatName,
		DurationUs: c.DurationUs,
		BitRate:    1000000,
		Tags:       map[string]string{"title": "synthetic"},
	}
	if !c.NoVideo {
		info.Streams = append(info.Streams, ports.StreamMeta{
			Index:         0,
			Type:          ports.MediaVideo,
			CodecName:     "synthetic",
			TimeBase:      c.TimeBase,
			CodecTimeBase: c.CodecTimeBase,
			TicksPerFrame: c.TicksPerFrame,
			FrameRate:     c.FrameRate,
			StartTime:     c.StartTime,
			FirstDTS:      c.FirstDTS,
			Width:         c.Width,
			Height:        c.Height,
		})
	}
	info.Streams = append(info.Streams, ports.StreamMeta{Index: 1, Type: ports.MediaAudio, CodecName: "pcm"})
	return info, nil
}

func (c *Container) FirstVideoStream() (int, bool) {
	if c.NoVideo {
		return -1, false
	}
	return 0, true
}

func (c *Container) OpenDecoder(streamIndex int) error {
	return c.OpenDecoderErr
}

func (c *Container) ReadPacket() (*ports.Packet, error) {
	if !c.Opened {
		return nil, errors.New("mock container: not opened")
	}
	c.Reads++

	if c.AudioEvery > 0 && c.next > 0 && c.next%c.AudioEvery == 0 && c.audioCount < c.next/c.AudioEvery {
		c.audioCount++
		return &ports.Packet{StreamIndex: 1, DTS: ports.NoTimestamp, PTS: ports.NoTimestamp, Pos: -1}, nil
	}

	if c.next >= c.Frames {
		if c.drained < c.DecoderDelay && len(c.pending) > 0 {
			c.drained++
			return &ports.Packet{StreamIndex: 0, DTS: ports.NoTimestamp, PTS: ports.NoTimestamp, Pos: -1}, nil
		}
		return nil, io.EOF
	}

	i := c.next
	c.next++
	return &ports.Packet{
		StreamIndex: 0,
		DTS:         c.dts(i),
		PTS:         c.pts(i),
		Duration:    c.DTSStep,
		Keyframe:    c.isKey(i),
		Pos:         int64(i),
		Data:        []byte{byte(i), byte(i >> 8), byte(i >> 16)},
	}, nil
}

func (c *Container) DecodePacket(pkt *ports.Packet) (*ports.Picture, bool, error) {
	if pkt.Data != nil {
		i := int(pkt.Pos)
		if c.CorruptFrames[i] {
			return nil, false, fmt.Errorf("mock container: corrupt frame %d", i)
		}
		if !c.hasRef && !pkt.Keyframe {
			return nil, false, fmt.Errorf("mock container: frame %d has no reference", i)
		}
		c.hasRef = true
		c.pending = append(c.pending, i)
		if len(c.pending) <= c.DecoderDelay {
			return nil, false, nil
		}
	}
	if len(c.pending) == 0 {
		return nil, false, nil
	}
	i := c.pending[0]
	c.pending = c.pending[1:]
	return &ports.Picture{
		Width:               c.Width,
		Height:              c.Height,
		PacketDTS:           c.dts(i),
		BestEffortTimestamp: c.pts(i),
		Pix:                 []byte{byte(i), byte(i >> 8)},
	}, true, nil
}

// Seek positions at the last keyframe at or before target. Backward seeks
// compare decode timestamps, frame seeks compare frame indexes.
func (c *Container) Seek(streamIndex int, target int64, flag ports.SeekFlag) error {
	c.SeekCalls = append(c.SeekCalls, SeekCall{Stream: streamIndex, Target: target, Flag: flag})
	if c.SeekErr != nil {
		return c.SeekErr
	}

	index := func(i int) int64 {
		if flag == ports.SeekFrame {
			return int64(i)
		}
		return c.dts(i)
	}

	landing := 0
	if c.SeekPastTarget {
		landing = c.Frames
		for i := 0; i < c.Frames; i += c.gop() {
			if index(i) >= target {
				landing = i
				break
			}
		}
	} else {
		for i := 0; i < c.Frames; i += c.gop() {
			if index(i) > target {
				break
			}
			landing = i
		}
	}
	c.rewind(landing)
	return nil
}

func (c *Container) FlushDecoder(streamIndex int) {
	c.Flushes++
	c.pending = nil
	c.hasRef = false
}

func (c *Container) ConvertToRGB(pic *ports.Picture) (*ports.RGBFrame, error) {
	f := ports.NewRGBFrame(pic.Width, pic.Height)
	for p := 0; p < len(f.Pix); p += 3 {
		f.Pix[p] = pic.Pix[0]
		f.Pix[p+1] = pic.Pix[1]
		f.Pix[p+2] = 0x7f
	}
	return f, nil
}

func (c *Container) CloseInput() error {
	c.Opened = false
	c.Closed = true
	return nil
}

// SeekCount returns the number of container seeks so far.
func (c *Container) SeekCount() int {
	return len(c.SeekCalls)
}

// FrameIndex recovers the synthetic frame index painted into img.
func FrameIndex(img *ports.RGBFrame) int {
	if img == nil || len(img.Pix) < 2 {
		return -1
	}
	return int(img.Pix[0]) | int(img.Pix[1])<<8
}

func (c *Container) rewind(frame int) {
	c.next = frame
	c.drained = 0
	if c.AudioEvery > 0 {
		c.audioCount = frame / c.AudioEvery
	}
}

func (c *Container) gop() int {
	if c.GOP <= 0 {
		return 1
	}
	return c.GOP
}

func (c *Container) isKey(i int) bool {
	return i%c.gop() == 0
}

func (c *Container) dts(i int) int64 {
	return c.FirstDTS + int64(i)*c.DTSStep
}

func (c *Container) pts(i int) int64 {
	return c.StartTime + int64(i)*c.PTSStep
}

var _ ports.Container = (*Container)(nil)
