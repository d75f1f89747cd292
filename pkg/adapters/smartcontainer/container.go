// Package smartcontainer provides a media container that detects the file
// format and selects the matching demuxer, decoding pictures with ffmpeg.
package smartcontainer

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/user/framemark/pkg/adapters/ffmpegdecoder"
	"github.com/user/framemark/pkg/adapters/ffprobe"
	"github.com/user/framemark/pkg/adapters/fftools"
	"github.com/user/framemark/pkg/adapters/formatdetect"
	"github.com/user/framemark/pkg/adapters/mkvdemux"
	"github.com/user/framemark/pkg/adapters/mp4demux"
	"github.com/user/framemark/pkg/adapters/tsdemux"
	"github.com/user/framemark/pkg/ports"
)

// Backend represents the decoding backend used.
type Backend string

const (
	// BackendFFmpeg decodes with an ffmpeg process.
	BackendFFmpeg Backend = "ffmpeg"
)

// Info describes the choices made for the opened file.
type Info struct {
	// Container is the detected container family.
	Container formatdetect.Container
	// Codec is the codec of the video stream.
	Codec string
	// Backend is the decoding backend being used.
	Backend Backend
	// Probed is true when ffprobe metadata was merged in.
	Probed bool
}

// Options configures the container.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	// FFprobePath is an optional custom path to the ffprobe binary.
	FFprobePath string
	// DisableProbe skips ffprobe and uses demuxer metadata only.
	DisableProbe bool
	// OutputWait bounds the wait for a decoded picture per packet.
	OutputWait time.Duration
}

var (
	// ErrNotOpen is returned when no input is open.
	ErrNotOpen = errors.New("smartcontainer: no input open")
	// ErrWrongStream is returned for a stream other than the demuxed one.
	ErrWrongStream = errors.New("smartcontainer: stream is not the demuxed video stream")
	// ErrDecoderNotOpen is returned when decoding before OpenDecoder.
	ErrDecoderNotOpen = errors.New("smartcontainer: decoder not open")
	// ErrPictureSize is returned when a picture does not match its size.
	ErrPictureSize = errors.New("smartcontainer: picture buffer does not match its size")
)

// Container implements ports.Container.
type Container struct {
	newDemuxer func(formatdetect.Container) (ports.Demuxer, error)
	newDecoder func() ports.PictureDecoder
	prober     ports.Prober

	path        string
	dmx         ports.Demuxer
	dec         ports.PictureDecoder
	media       *ports.MediaInfo
	info        Info
	stream      int
	decoderOpen bool

	// pictures drained from the decoder after the last packet
	drained []*ports.Picture
	eof     bool
}

// New creates a container. ffprobe is used for extra metadata when it is
// installed and not disabled.
func New(opts Options) *Container {
	if opts.FFmpegPath != "" {
		fftools.SetPath(fftools.FFmpeg, opts.FFmpegPath)
	}
	if opts.FFprobePath != "" {
		fftools.SetPath(fftools.FFprobe, opts.FFprobePath)
	}

	c := &Container{
		newDemuxer: NewDemuxer,
		newDecoder: func() ports.PictureDecoder {
			return ffmpegdecoder.New(ffmpegdecoder.Options{OutputWait: opts.OutputWait})
		},
	}
	if !opts.DisableProbe && ffprobe.Available() {
		c.prober = ffprobe.New()
	}
	return c
}

// NewDemuxer returns the demuxer for a container family.
func NewDemuxer(kind formatdetect.Container) (ports.Demuxer, error) {
	switch kind {
	case formatdetect.ContainerMP4:
		return mp4demux.New(), nil
	case formatdetect.ContainerMPEGTS:
		return tsdemux.New(), nil
	case formatdetect.ContainerMatroska:
		return mkvdemux.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", formatdetect.ErrUnknownContainer, kind)
	}
}

// Info returns information about the opened file.
func (c *Container) Info() Info {
	return c.info
}

// OpenInput detects the container format and opens its demuxer.
func (c *Container) OpenInput(path string) error {
	c.CloseInput()

	kind, err := formatdetect.DetectFromFile(path)
	if err != nil {
		return err
	}
	dmx, err := c.newDemuxer(kind)
	if err != nil {
		return err
	}
	if err := dmx.Open(path); err != nil {
		return fmt.Errorf("open %s demuxer: %w", kind, err)
	}

	c.path = path
	c.dmx = dmx
	c.info = Info{Container: kind, Backend: BackendFFmpeg}
	return nil
}

// FindStreamInfo returns the demuxer metadata, completed from ffprobe when
// available. Timing fields always come from the demuxer.
func (c *Container) FindStreamInfo() (*ports.MediaInfo, error) {
	if c.dmx == nil {
		return nil, ErrNotOpen
	}
	media := copyInfo(c.dmx.Info())
	if c.prober != nil {
		if probed, err := c.prober.Probe(c.path); err == nil {
			merge(media, probed)
			c.info.Probed = true
		}
	}
	for _, s := range media.Streams {
		if s.Type == ports.MediaVideo {
			c.info.Codec = s.CodecName
			break
		}
	}
	c.media = media
	return media, nil
}

func copyInfo(in *ports.MediaInfo) *ports.MediaInfo {
	out := *in
	out.Streams = append([]ports.StreamMeta(nil), in.Streams...)
	return &out
}

// merge fills what the demuxer left empty with the probed values.
func merge(dst, probed *ports.MediaInfo) {
	if dst.BitRate == 0 {
		dst.BitRate = probed.BitRate
	}
	if dst.DurationUs <= 0 {
		dst.DurationUs = probed.DurationUs
	}
	if len(dst.Programs) == 0 {
		dst.Programs = probed.Programs
	}
	if len(dst.Chapters) == 0 {
		dst.Chapters = probed.Chapters
	}
	if len(dst.Tags) == 0 {
		dst.Tags = probed.Tags
	}

	var pv *ports.StreamMeta
	for i := range probed.Streams {
		if probed.Streams[i].Type == ports.MediaVideo {
			pv = &probed.Streams[i]
			break
		}
	}
	if pv == nil {
		return
	}
	for i := range dst.Streams {
		s := &dst.Streams[i]
		if s.Type != ports.MediaVideo {
			continue
		}
		if s.Width == 0 || s.Height == 0 {
			s.Width, s.Height = pv.Width, pv.Height
		}
		if s.FrameRate.IsZero() {
			s.FrameRate = pv.FrameRate
		}
		if len(s.Tags) == 0 {
			s.Tags = pv.Tags
		}
		return
	}
}

// FirstVideoStream returns the index of the demuxed video stream.
func (c *Container) FirstVideoStream() (int, bool) {
	if c.dmx == nil {
		return 0, false
	}
	media := c.media
	if media == nil {
		media = c.dmx.Info()
	}
	for _, s := range media.Streams {
		if s.Type == ports.MediaVideo {
			return s.Index, true
		}
	}
	return 0, false
}

// OpenDecoder starts the picture decoder of the video stream.
func (c *Container) OpenDecoder(streamIndex int) error {
	if c.dmx == nil {
		return ErrNotOpen
	}
	idx, ok := c.FirstVideoStream()
	if !ok || idx != streamIndex {
		return ErrWrongStream
	}

	media := c.media
	if media == nil {
		media = c.dmx.Info()
	}
	var width, height int
	for _, s := range media.Streams {
		if s.Index == streamIndex {
			width, height = s.Width, s.Height
		}
	}

	dec := c.newDecoder()
	if err := dec.Start(c.dmx.Bitstream(), width, height); err != nil {
		return err
	}
	c.dec = dec
	c.stream = streamIndex
	c.decoderOpen = true
	return nil
}

// ReadPacket returns the next video packet. After the last one it returns
// one flush packet (nil Data) per picture left in the decoder, then io.EOF.
func (c *Container) ReadPacket() (*ports.Packet, error) {
	if c.dmx == nil {
		return nil, ErrNotOpen
	}
	if len(c.drained) > 0 {
		return c.flushPacket(), nil
	}
	if c.eof {
		return nil, io.EOF
	}

	pkt, err := c.dmx.ReadPacket()
	if !errors.Is(err, io.EOF) {
		return pkt, err
	}

	c.eof = true
	if c.decoderOpen {
		pics, err := c.dec.Drain()
		if err != nil && len(pics) == 0 {
			return nil, err
		}
		c.drained = pics
	}
	if len(c.drained) > 0 {
		return c.flushPacket(), nil
	}
	return nil, io.EOF
}

func (c *Container) flushPacket() *ports.Packet {
	return &ports.Packet{
		StreamIndex: c.stream,
		DTS:         ports.NoTimestamp,
		PTS:         ports.NoTimestamp,
		Pos:         -1,
	}
}

// DecodePacket feeds a packet to the decoder. A flush packet returns the
// next drained picture.
func (c *Container) DecodePacket(pkt *ports.Packet) (*ports.Picture, bool, error) {
	if !c.decoderOpen {
		return nil, false, ErrDecoderNotOpen
	}
	if pkt.Data == nil {
		if len(c.drained) == 0 {
			return nil, false, nil
		}
		pic := c.drained[0]
		c.drained = c.drained[1:]
		return pic, true, nil
	}
	return c.dec.Decode(pkt)
}

// Seek positions the demuxer at the last keyframe at or before target.
func (c *Container) Seek(streamIndex int, target int64, flag ports.SeekFlag) error {
	if c.dmx == nil {
		return ErrNotOpen
	}
	if streamIndex != c.stream {
		return ErrWrongStream
	}
	if err := c.dmx.SeekKeyframe(target, flag); err != nil {
		return err
	}
	c.eof = false
	c.drained = nil
	return nil
}

// FlushDecoder discards buffered pictures.
func (c *Container) FlushDecoder(streamIndex int) {
	if c.decoderOpen {
		c.dec.Flush()
	}
	c.drained = nil
}

// ConvertToRGB copies a packed rgb24 picture into a new frame.
func (c *Container) ConvertToRGB(pic *ports.Picture) (*ports.RGBFrame, error) {
	if len(pic.Pix) != pic.Width*pic.Height*3 {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrPictureSize, pic.Width, pic.Height, len(pic.Pix))
	}
	frame := ports.NewRGBFrame(pic.Width, pic.Height)
	copy(frame.Pix, pic.Pix)
	return frame, nil
}

// CloseInput stops the decoder and closes the demuxer.
func (c *Container) CloseInput() error {
	var err error
	if c.dec != nil {
		err = c.dec.Close()
		c.dec = nil
	}
	if c.dmx != nil {
		if cerr := c.dmx.Close(); err == nil {
			err = cerr
		}
		c.dmx = nil
	}
	c.decoderOpen = false
	c.media = nil
	c.drained = nil
	c.eof = false
	return err
}

var _ ports.Container = (*Container)(nil)
