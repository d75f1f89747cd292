// Package ports defines the interfaces framemark uses to reach containers,
// decoders, the file system, image rendering and logging.
package ports

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// NoTimestamp marks a timestamp the container did not provide.
const NoTimestamp int64 = math.MinInt64

// Rational is a fraction used for time bases and frame rates.
type Rational struct {
	Num int64
	Den int64
}

// Float64 returns the rational as a float, or 0 when the denominator is 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// IsZero reports whether the rational is unset.
func (r Rational) IsZero() bool {
	return r.Num == 0 || r.Den == 0
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Milliseconds is the 1/1000 time base.
var Milliseconds = Rational{Num: 1, Den: 1000}

// Rescale converts ts from time base from to time base to,
// rounding to the nearest integer with halves away from zero.
func Rescale(ts int64, from, to Rational) int64 {
	if from.Den == 0 || to.Num == 0 {
		return 0
	}
	num := float64(ts) * float64(from.Num) * float64(to.Den)
	den := float64(from.Den) * float64(to.Num)
	return int64(math.Round(num / den))
}

// SeekFlag selects how a container interprets a seek target.
type SeekFlag int

const (
	// SeekBackward positions at the nearest keyframe at or before the
	// target decode timestamp.
	SeekBackward SeekFlag = iota
	// SeekFrame interprets the target as a frame count and positions at
	// the nearest keyframe at or before that frame.
	SeekFrame
)

func (f SeekFlag) String() string {
	switch f {
	case SeekBackward:
		return "backward"
	case SeekFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// MediaInfo is the read-only metadata of an opened container.
type MediaInfo struct {
	FormatName string // e.g. "mpeg", "asf", "matroska,webm", "mov,mp4,m4a,3gp,3g2,mj2"
	DurationUs int64  // container duration in microseconds
	BitRate    int64  // bits per second, 0 if unknown
	Streams    []StreamMeta
	Programs   []Program
	Chapters   []Chapter
	Tags       map[string]string
}

// StreamMeta describes one stream of a container.
type StreamMeta struct {
	Index         int
	Type          MediaType
	CodecName     string
	TimeBase      Rational
	CodecTimeBase Rational
	TicksPerFrame int
	FrameRate     Rational // nominal (r_frame_rate)
	StartTime     int64    // in TimeBase units, NoTimestamp if unknown
	FirstDTS      int64    // in TimeBase units, NoTimestamp if unknown
	Width         int
	Height        int
	Tags          map[string]string
}

// MediaType classifies a stream.
type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaOther MediaType = "other"
)

// Program is a container program (MPEG-TS service and the like).
type Program struct {
	ID      int
	Name    string
	Streams []int
}

// Chapter is a named time range of the container.
type Chapter struct {
	ID      int64
	StartMs int64
	EndMs   int64
	Title   string
}

// Packet is one compressed access unit read from the container.
type Packet struct {
	StreamIndex int
	DTS         int64 // NoTimestamp if unknown
	PTS         int64 // NoTimestamp if unknown
	Duration    int64
	Keyframe    bool
	Pos         int64 // byte position or sample index, -1 if unknown
	Data        []byte
}

// Picture is a decoded, not yet converted, video frame.
type Picture struct {
	Width  int
	Height int
	// PacketDTS is the decode timestamp of the packet credited with
	// completing this picture.
	PacketDTS int64
	// BestEffortTimestamp is the presentation timestamp as guessed by the
	// decoder, in the stream time base.
	BestEffortTimestamp int64
	Pix                 []byte // packed rgb24 or decoder-native samples
}

// Container is the media container and codec collaborator of the seek
// engine. Calls are not safe for concurrent use.
type Container interface {
	// OpenInput opens the media at path.
	OpenInput(path string) error

	// FindStreamInfo probes the opened input and returns its metadata.
	FindStreamInfo() (*MediaInfo, error)

	// FirstVideoStream returns the index of the first video stream.
	FirstVideoStream() (int, bool)

	// OpenDecoder opens the decoder of the given stream.
	OpenDecoder(streamIndex int) error

	// ReadPacket returns the next packet of any stream, or io.EOF.
	ReadPacket() (*Packet, error)

	// DecodePacket feeds one packet to the decoder. complete is true when a
	// full picture came out.
	DecodePacket(pkt *Packet) (pic *Picture, complete bool, err error)

	// Seek repositions the input at or before target, never after it.
	Seek(streamIndex int, target int64, flag SeekFlag) error

	// FlushDecoder drops any picture state buffered by the decoder.
	FlushDecoder(streamIndex int)

	// ConvertToRGB converts a picture into a freshly allocated RGB frame.
	ConvertToRGB(pic *Picture) (*RGBFrame, error)

	// CloseInput releases the input and its decoder.
	CloseInput() error
}

// RGBFrame is a packed 24-bit RGB image. It implements image.Image.
type RGBFrame struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

// NewRGBFrame allocates a black w x h frame.
func NewRGBFrame(w, h int) *RGBFrame {
	return &RGBFrame{
		Pix:    make([]byte, w*h*3),
		Stride: w * 3,
		Rect:   image.Rect(0, 0, w, h),
	}
}

// ColorModel implements image.Image.
func (f *RGBFrame) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (f *RGBFrame) Bounds() image.Rectangle { return f.Rect }

// At implements image.Image.
func (f *RGBFrame) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(f.Rect)) {
		return color.RGBA{}
	}
	i := (y-f.Rect.Min.Y)*f.Stride + (x-f.Rect.Min.X)*3
	return color.RGBA{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2], A: 255}
}

// Clone returns a deep copy of the frame.
func (f *RGBFrame) Clone() *RGBFrame {
	if f == nil {
		return nil
	}
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &RGBFrame{Pix: pix, Stride: f.Stride, Rect: f.Rect}
}
