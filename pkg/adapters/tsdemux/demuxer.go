// Package tsdemux reads the first video elementary stream of an MPEG
// transport stream. Timestamps stay in the 90 kHz clock of the stream.
package tsdemux

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/asticode/go-astits"

	"github.com/user/framemark/pkg/adapters/formatdetect"
	"github.com/user/framemark/pkg/adapters/nalu"
	"github.com/user/framemark/pkg/adapters/packetindex"
	"github.com/user/framemark/pkg/ports"
)

// PacketSize is the size of a transport stream packet.
const PacketSize = 188

// ClockRate is the frequency of PES timestamps.
const ClockRate = 90000

const wrap = int64(1) << 33

var (
	// ErrNoVideoStream is returned when no PMT lists a supported video stream.
	ErrNoVideoStream = errors.New("tsdemux: no video stream found")

	// ErrNoPictures is returned when the video stream carries no PES packets.
	ErrNoPictures = errors.New("tsdemux: no video PES packets")
)

var mpegSequenceHeader = []byte{0, 0, 1, 0xb3}

// videoCodec describes a supported elementary stream type.
type videoCodec struct {
	name   string
	format string
	key    func(data []byte) bool
}

var videoCodecs = map[astits.StreamType]videoCodec{
	astits.StreamTypeH264Video:  {"h264", "h264", nalu.AVCKeyframe},
	astits.StreamTypeH265Video:  {"hevc", "hevc", nalu.HEVCKeyframe},
	astits.StreamTypeMPEG2Video: {"mpeg2video", "mpegvideo", isMPEGKeyframe},
	astits.StreamTypeMPEG1Video: {"mpeg1video", "mpegvideo", isMPEGKeyframe},
}

func isMPEGKeyframe(data []byte) bool {
	return bytes.Contains(data, mpegSequenceHeader)
}

// Demuxer implements ports.Demuxer for MPEG-TS.
type Demuxer struct {
	path      string
	info      *ports.MediaInfo
	bitstream ports.Bitstream
	index     packetindex.Index
	pid       uint16
	stream    int
	codec     videoCodec

	// live reader, positioned before the PES with ordinal pos
	file   *os.File
	dmx    *astits.Demuxer
	cancel context.CancelFunc
	pos    int
}

// New creates a transport stream demuxer.
func New() *Demuxer {
	return &Demuxer{}
}

// Open scans the whole stream once to index the video access units.
func (d *Demuxer) Open(path string) error {
	d.path = path
	if err := d.scan(); err != nil {
		d.Close()
		return err
	}
	return nil
}

func (d *Demuxer) scan() error {
	if err := d.restart(); err != nil {
		return err
	}

	var (
		programs []ports.Program
		names    = map[uint16]string{}
		found    bool
		width    int
		height   int
		lastDTS  = ports.NoTimestamp
		lastPTS  = ports.NoTimestamp
	)

	for {
		data, err := d.dmx.NextData()
		if errors.Is(err, astits.ErrNoMorePackets) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading next data: %w", err)
		}

		if data.SDT != nil {
			for _, s := range data.SDT.Services {
				for _, desc := range s.Descriptors {
					if desc.Tag == astits.DescriptorTagService && desc.Service != nil {
						names[s.ServiceID] = string(desc.Service.Name)
					}
				}
			}
		}

		if data.PMT != nil && !found {
			prog := ports.Program{ID: int(data.PMT.ProgramNumber)}
			for i, es := range data.PMT.ElementaryStreams {
				prog.Streams = append(prog.Streams, i)
				if codec, ok := videoCodecs[es.StreamType]; ok && !found {
					found = true
					d.pid = es.ElementaryPID
					d.stream = i
					d.codec = codec
				}
			}
			programs = append(programs, prog)
		}

		if !found || data.PES == nil || data.PID != d.pid {
			continue
		}

		dts, pts := timestamps(data.PES)
		dts, pts = unwrap(dts, lastDTS), unwrap(pts, lastPTS)
		lastDTS, lastPTS = dts, pts

		key := d.codec.key(data.PES.Data)
		if data.FirstPacket != nil && data.FirstPacket.AdaptationField != nil && data.FirstPacket.AdaptationField.RandomAccessIndicator {
			key = true
		}
		if key && width == 0 && d.codec.format == "h264" {
			if sps, _ := nalu.AVCParameterSets(data.PES.Data); len(sps) > 0 {
				width, height, _ = nalu.AVCDimensions(sps[0])
			}
		}

		d.index.Append(packetindex.Entry{
			DTS:      dts,
			PTS:      pts,
			Keyframe: key,
			Loc:      int64(d.index.Len()),
			Size:     len(data.PES.Data),
		})
	}

	if !found {
		return ErrNoVideoStream
	}
	if d.index.Len() == 0 {
		return ErrNoPictures
	}
	for i := range programs {
		programs[i].Name = names[uint16(programs[i].ID)]
	}

	frameDur := d.index.FrameDuration()
	meta := ports.StreamMeta{
		Index:         d.stream,
		Type:          ports.MediaVideo,
		CodecName:     d.codec.name,
		TimeBase:      ports.Rational{Num: 1, Den: ClockRate},
		TicksPerFrame: 1,
		StartTime:     d.index.MinPTS(),
		FirstDTS:      d.index.FirstDTS(),
		Width:         width,
		Height:        height,
	}
	if frameDur > 0 {
		meta.FrameRate = ports.Rational{Num: ClockRate, Den: frameDur}
		meta.CodecTimeBase = ports.Rational{Num: frameDur, Den: ClockRate}
	}

	d.info = &ports.MediaInfo{
		FormatName: formatdetect.ContainerMPEGTS.FormatName(),
		DurationUs: d.index.Span() * 1000000 / ClockRate,
		Streams:    []ports.StreamMeta{meta},
		Programs:   programs,
	}
	d.bitstream = ports.Bitstream{Format: d.codec.format}
	return d.restart()
}

// timestamps returns the PES decode and presentation timestamps. A missing
// DTS equals the PTS.
func timestamps(pes *astits.PESData) (int64, int64) {
	dts, pts := ports.NoTimestamp, ports.NoTimestamp
	if pes.Header == nil || pes.Header.OptionalHeader == nil {
		return dts, pts
	}
	oh := pes.Header.OptionalHeader
	if oh.PTS != nil {
		pts = oh.PTS.Base
	}
	if oh.DTS != nil {
		dts = oh.DTS.Base
	} else {
		dts = pts
	}
	return dts, pts
}

// unwrap extends a 33-bit timestamp past its wrap point relative to prev.
func unwrap(ts, prev int64) int64 {
	if ts == ports.NoTimestamp || prev == ports.NoTimestamp {
		return ts
	}
	for ts < prev-wrap/2 {
		ts += wrap
	}
	return ts
}

// restart reopens the file and positions the live reader at the first PES.
func (d *Demuxer) restart() error {
	d.closeReader()

	f, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.file = f
	d.cancel = cancel
	d.dmx = astits.NewDemuxer(ctx, bufio.NewReaderSize(f, 1000*PacketSize))
	d.pos = 0
	return nil
}

func (d *Demuxer) closeReader() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
	d.dmx = nil
}

// Info returns the metadata gathered by Open.
func (d *Demuxer) Info() *ports.MediaInfo {
	return d.info
}

// Bitstream describes the framing of the packets.
func (d *Demuxer) Bitstream() ports.Bitstream {
	return d.bitstream
}

// ReadPacket returns the next video access unit, or io.EOF.
func (d *Demuxer) ReadPacket() (*ports.Packet, error) {
	if d.index.Next() >= d.index.Len() {
		return nil, io.EOF
	}
	// TODO: keep byte offsets of keyframe PES starts so a backward seek can
	// resume from a checkpoint instead of rescanning from the first packet.
	if d.dmx == nil || d.pos > d.index.Next() {
		if err := d.restart(); err != nil {
			return nil, err
		}
	}

	for {
		data, err := d.dmx.NextData()
		if errors.Is(err, astits.ErrNoMorePackets) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("reading next data: %w", err)
		}
		if data.PES == nil || data.PID != d.pid {
			continue
		}

		ordinal := d.pos
		d.pos++
		if ordinal < d.index.Next() {
			continue
		}

		e, _, err := d.index.Read()
		if err != nil {
			return nil, err
		}
		return &ports.Packet{
			StreamIndex: d.stream,
			DTS:         e.DTS,
			PTS:         e.PTS,
			Duration:    e.Duration,
			Keyframe:    e.Keyframe,
			Pos:         e.Loc,
			Data:        data.PES.Data,
		}, nil
	}
}

// SeekKeyframe positions at the last keyframe whose DTS is at or before
// target. SeekFrame addresses the access unit ordinal instead.
func (d *Demuxer) SeekKeyframe(target int64, flag ports.SeekFlag) error {
	return d.index.SeekKeyframe(target, flag)
}

// Close releases the file.
func (d *Demuxer) Close() error {
	d.closeReader()
	return nil
}

var _ ports.Demuxer = (*Demuxer)(nil)
