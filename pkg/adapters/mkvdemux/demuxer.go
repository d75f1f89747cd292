// Package mkvdemux reads the first video track of a Matroska or WebM file.
// Timestamps are in units of the segment timecode scale.
package mkvdemux

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/hevc"
	"github.com/at-wat/ebml-go"

	"github.com/user/framemark/pkg/adapters/formatdetect"
	"github.com/user/framemark/pkg/adapters/ivf"
	"github.com/user/framemark/pkg/adapters/nalu"
	"github.com/user/framemark/pkg/adapters/packetindex"
	"github.com/user/framemark/pkg/ports"
)

const (
	nanosPerSecond       = 1000000000
	defaultTimecodeScale = 1000000
)

var (
	// ErrNoVideoTrack is returned when the file has no video track.
	ErrNoVideoTrack = errors.New("mkvdemux: no video track found")

	// ErrNoBlocks is returned when the video track has no blocks.
	ErrNoBlocks = errors.New("mkvdemux: video track has no blocks")

	// ErrUnsupportedCodec is returned for codec IDs the decoder can't read.
	ErrUnsupportedCodec = errors.New("mkvdemux: unsupported codec")
)

// codecKind groups codec IDs by how their blocks are framed.
type codecKind int

const (
	kindAVC codecKind = iota
	kindHEVC
	kindIVF
	kindMPEG
)

type codecSpec struct {
	name   string
	kind   codecKind
	fourcc string
}

var codecs = map[string]codecSpec{
	"V_MPEG4/ISO/AVC":  {name: "h264", kind: kindAVC},
	"V_MPEGH/ISO/HEVC": {name: "hevc", kind: kindHEVC},
	"V_VP8":            {name: "vp8", kind: kindIVF, fourcc: ivf.VP8},
	"V_VP9":            {name: "vp9", kind: kindIVF, fourcc: ivf.VP9},
	"V_AV1":            {name: "av1", kind: kindIVF, fourcc: ivf.AV1},
	"V_MPEG1":          {name: "mpeg1video", kind: kindMPEG},
	"V_MPEG2":          {name: "mpeg2video", kind: kindMPEG},
}

// Demuxer implements ports.Demuxer for Matroska. Blocks of the video track
// are held in memory after Open.
type Demuxer struct {
	info      *ports.MediaInfo
	bitstream ports.Bitstream
	codec     codecSpec
	paramSets []byte
	index     packetindex.Index
	stream    int
}

// New creates a Matroska demuxer.
func New() *Demuxer {
	return &Demuxer{}
}

// Open parses the file and collects the blocks of the first video track.
func (d *Demuxer) Open(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return d.read(f)
}

func (d *Demuxer) read(r io.Reader) error {
	var c container
	if err := ebml.Unmarshal(r, &c, ebml.WithIgnoreUnknown(true)); err != nil {
		return fmt.Errorf("parse matroska: %w", err)
	}
	return d.load(&c)
}

func (d *Demuxer) load(c *container) error {
	seg := &c.Segment

	stream, track := videoTrack(seg.Tracks.TrackEntry)
	if track == nil {
		return ErrNoVideoTrack
	}
	spec, ok := codecs[track.CodecID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedCodec, track.CodecID)
	}
	d.codec = spec
	d.stream = stream

	scale := seg.Info.TimecodeScale
	if scale == 0 {
		scale = defaultTimecodeScale
	}

	d.index = buildIndex(seg.Cluster, track.TrackNumber)
	if d.index.Len() == 0 {
		return ErrNoBlocks
	}

	frameNs := int64(track.DefaultDuration)
	if frameNs == 0 {
		frameNs = d.index.FrameDuration() * int64(scale)
	}

	width, height := int(track.Video.PixelWidth), int(track.Video.PixelHeight)
	if err := d.setupBitstream(track, width, height, scale); err != nil {
		return err
	}

	meta := ports.StreamMeta{
		Index:         stream,
		Type:          ports.MediaVideo,
		CodecName:     spec.name,
		TimeBase:      ports.Rational{Num: int64(scale), Den: nanosPerSecond},
		TicksPerFrame: 1,
		StartTime:     d.index.MinPTS(),
		FirstDTS:      d.index.FirstDTS(),
		Width:         width,
		Height:        height,
	}
	if track.Name != "" {
		meta.Tags = map[string]string{"title": track.Name}
	}
	if frameNs > 0 {
		meta.FrameRate = ports.Rational{Num: nanosPerSecond, Den: frameNs}
		meta.CodecTimeBase = ports.Rational{Num: frameNs, Den: nanosPerSecond}
	}

	durationUs := int64(seg.Info.Duration * float64(scale) / 1000)
	if durationUs <= 0 {
		durationUs = d.index.Span() * int64(scale) / 1000
	}

	d.info = &ports.MediaInfo{
		FormatName: formatdetect.ContainerMatroska.FormatName(),
		DurationUs: durationUs,
		Streams:    []ports.StreamMeta{meta},
		Chapters:   convertChapters(seg.Chapters),
		Tags:       convertTags(seg.Info, seg.Tags),
	}
	return nil
}

// videoTrack returns the position and entry of the first video track.
func videoTrack(entries []trackEntry) (int, *trackEntry) {
	for i := range entries {
		if entries[i].TrackType == trackTypeVideo {
			return i, &entries[i]
		}
	}
	return -1, nil
}

func (d *Demuxer) setupBitstream(track *trackEntry, width, height int, scale uint64) error {
	if (d.codec.kind == kindAVC || d.codec.kind == kindHEVC) && len(track.CodecPrivate) == 0 {
		return fmt.Errorf("%w: %s without codec private data", ErrUnsupportedCodec, track.CodecID)
	}

	switch d.codec.kind {
	case kindAVC:
		rec, err := avc.DecodeAVCDecConfRec(track.CodecPrivate)
		if err != nil {
			return fmt.Errorf("%w: avcC: %v", ErrUnsupportedCodec, err)
		}
		units := append(append([][]byte{}, rec.SPSnalus...), rec.PPSnalus...)
		d.paramSets = nalu.JoinAnnexB(units...)
		d.bitstream = ports.Bitstream{Format: "h264"}
	case kindHEVC:
		rec, err := hevc.DecodeHEVCDecConfRec(track.CodecPrivate)
		if err != nil {
			return fmt.Errorf("%w: hvcC: %v", ErrUnsupportedCodec, err)
		}
		var units [][]byte
		for _, t := range []hevc.NaluType{hevc.NALU_VPS, hevc.NALU_SPS, hevc.NALU_PPS} {
			units = append(units, rec.GetNalusForType(t)...)
		}
		d.paramSets = nalu.JoinAnnexB(units...)
		d.bitstream = ports.Bitstream{Format: "hevc"}
	case kindIVF:
		// Frame timestamps stay in timecode scale units.
		d.bitstream = ports.Bitstream{
			Format: "ivf",
			Header: ivf.FileHeader(d.codec.fourcc, width, height, uint32(scale), nanosPerSecond, 0),
		}
	case kindMPEG:
		d.paramSets = track.CodecPrivate
		d.bitstream = ports.Bitstream{Format: "mpegvideo"}
	}
	return nil
}

// buildIndex lists the blocks of track in file order. Presentation
// timestamps come from the blocks; decode timestamps are the sorted
// presentation timestamps so they increase even with reordered frames.
func buildIndex(clusters []cluster, track uint64) packetindex.Index {
	var entries []packetindex.Entry
	add := func(base uint64, b ebml.Block, key bool, dur int64) {
		if b.TrackNumber != track {
			return
		}
		var data []byte
		for _, frame := range b.Data {
			data = append(data, frame...)
		}
		entries = append(entries, packetindex.Entry{
			PTS:      int64(base) + int64(b.Timecode),
			Duration: dur,
			Keyframe: key,
			Size:     len(data),
			Data:     data,
		})
	}

	for _, cl := range clusters {
		for _, b := range cl.SimpleBlock {
			add(cl.Timecode, b, b.Keyframe, 0)
		}
		for _, g := range cl.BlockGroup {
			add(cl.Timecode, g.Block, len(g.ReferenceBlock) == 0, int64(g.BlockDuration))
		}
	}

	sorted := make([]int64, len(entries))
	for i, e := range entries {
		sorted[i] = e.PTS
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var x packetindex.Index
	for i, e := range entries {
		e.DTS = sorted[i]
		e.Loc = int64(i)
		x.Append(e)
	}
	return x
}

func convertChapters(c chapters) []ports.Chapter {
	var out []ports.Chapter
	for _, ed := range c.EditionEntry {
		for _, atom := range ed.ChapterAtom {
			ch := ports.Chapter{
				ID:      int64(atom.ChapterUID),
				StartMs: int64(atom.ChapterTimeStart / 1000000),
				EndMs:   int64(atom.ChapterTimeEnd / 1000000),
			}
			if len(atom.ChapterDisplay) > 0 {
				ch.Title = atom.ChapterDisplay[0].ChapString
			}
			out = append(out, ch)
		}
	}
	return out
}

func convertTags(in info, t tags) map[string]string {
	out := map[string]string{}
	if in.Title != "" {
		out["title"] = in.Title
	}
	if in.WritingApp != "" {
		out["encoder"] = in.WritingApp
	}
	for _, tg := range t.Tag {
		for _, st := range tg.SimpleTag {
			if st.TagString != "" {
				out[st.TagName] = st.TagString
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Info returns the metadata gathered by Open.
func (d *Demuxer) Info() *ports.MediaInfo {
	return d.info
}

// Bitstream describes the framing of the packets.
func (d *Demuxer) Bitstream() ports.Bitstream {
	return d.bitstream
}

// ReadPacket returns the next video block, or io.EOF.
func (d *Demuxer) ReadPacket() (*ports.Packet, error) {
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
		Data:        d.frame(e),
	}, nil
}

func (d *Demuxer) frame(e packetindex.Entry) []byte {
	switch d.codec.kind {
	case kindIVF:
		return ivf.Frame(e.PTS, e.Data)
	case kindMPEG:
		if e.Keyframe && len(d.paramSets) > 0 {
			return nalu.Prepend(d.paramSets, e.Data)
		}
		return e.Data
	default:
		annexB := nalu.ToAnnexB(e.Data)
		if e.Keyframe {
			return nalu.Prepend(d.paramSets, annexB)
		}
		return annexB
	}
}

// SeekKeyframe positions at the last keyframe at or before target. For
// SeekBackward target is a timestamp; for SeekFrame it is a block ordinal.
func (d *Demuxer) SeekKeyframe(target int64, flag ports.SeekFlag) error {
	return d.index.SeekKeyframe(target, flag)
}

// Close drops the buffered blocks.
func (d *Demuxer) Close() error {
	d.index = packetindex.Index{}
	return nil
}

var _ ports.Demuxer = (*Demuxer)(nil)
