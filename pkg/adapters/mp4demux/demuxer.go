// Package mp4demux reads the video samples of progressive and fragmented
// MP4 files. Decode timestamps are frame ordinals, so the seek engine
// addresses MP4 samples by frame count.
package mp4demux

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/Eyevinn/mp4ff/hevc"
	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/framemark/pkg/adapters/formatdetect"
	"github.com/user/framemark/pkg/adapters/ivf"
	"github.com/user/framemark/pkg/adapters/nalu"
	"github.com/user/framemark/pkg/adapters/packetindex"
	"github.com/user/framemark/pkg/ports"
)

var (
	// ErrNoVideoTrack is returned for files without a video track.
	ErrNoVideoTrack = errors.New("mp4demux: no video track found")

	// ErrNoSamples is returned when the video track holds no samples.
	ErrNoSamples = errors.New("mp4demux: no samples")

	// ErrUnsupportedCodec is returned for sample entries the decoder cannot read.
	ErrUnsupportedCodec = errors.New("mp4demux: unsupported codec")
)

// sample is one video sample as laid out in the file.
type sample struct {
	decodeTime uint64
	dur        uint32
	cto        int32
	sync       bool
	offset     int64 // -1 when data is held in memory
	size       int
	data       []byte
}

// Demuxer implements ports.Demuxer for MP4.
type Demuxer struct {
	file      *os.File
	info      *ports.MediaInfo
	bitstream ports.Bitstream
	codec     formatdetect.Codec
	paramSets []byte
	index     packetindex.Index
	stream    int
}

// New creates an MP4 demuxer.
func New() *Demuxer {
	return &Demuxer{}
}

// Open parses the file and indexes the samples of its first video track.
func (d *Demuxer) Open(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}

	mp4File, err := mp4.DecodeFile(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode mp4: %w", err)
	}
	d.file = f

	if err := d.load(mp4File); err != nil {
		d.Close()
		return err
	}
	return nil
}

func (d *Demuxer) load(mp4File *mp4.File) error {
	moov := mp4File.Moov
	if mp4File.IsFragmented() && mp4File.Init != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return fmt.Errorf("%w: no moov box", ErrNoVideoTrack)
	}

	trakIndex, trak, entry := videoTrack(moov)
	if trak == nil {
		return ErrNoVideoTrack
	}
	d.stream = trakIndex
	d.codec = formatdetect.SampleEntryCodec(entry.Type())

	var timescale uint32 = 1000
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
		timescale = trak.Mdia.Mdhd.Timescale
	}

	var samples []sample
	var err error
	if mp4File.IsFragmented() {
		samples, err = fragmentedSamples(mp4File, moov, trak.Tkhd.TrackID)
	} else {
		samples, err = progressiveSamples(trak)
	}
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return ErrNoSamples
	}

	width, height := int(entry.Width), int(entry.Height)
	sampleDur := nominalDuration(samples)
	if err := d.setupBitstream(entry, width, height, sampleDur, timescale); err != nil {
		return err
	}
	d.index = buildIndex(samples, sampleDur)

	first, last := samples[0], samples[len(samples)-1]
	spanTicks := last.decodeTime + uint64(last.dur) - first.decodeTime
	d.info = &ports.MediaInfo{
		FormatName: formatdetect.ContainerMP4.FormatName(),
		DurationUs: int64(spanTicks * 1e6 / uint64(timescale)),
		Streams: []ports.StreamMeta{{
			Index:         trakIndex,
			Type:          ports.MediaVideo,
			CodecName:     string(d.codec),
			TimeBase:      ports.Rational{Num: int64(sampleDur), Den: int64(timescale)},
			CodecTimeBase: ports.Rational{Num: int64(sampleDur), Den: int64(timescale)},
			TicksPerFrame: 1,
			FrameRate:     ports.Rational{Num: int64(timescale), Den: int64(sampleDur)},
			StartTime:     d.index.MinPTS(),
			FirstDTS:      d.index.FirstDTS(),
			Width:         width,
			Height:        height,
		}},
	}
	return nil
}

func (d *Demuxer) setupBitstream(entry *mp4.VisualSampleEntryBox, width, height int, sampleDur, timescale uint32) error {
	switch d.codec {
	case formatdetect.CodecH264:
		if entry.AvcC == nil {
			return fmt.Errorf("%w: avc sample entry without avcC", ErrUnsupportedCodec)
		}
		units := append(append([][]byte{}, entry.AvcC.SPSnalus...), entry.AvcC.PPSnalus...)
		d.paramSets = nalu.JoinAnnexB(units...)
		d.bitstream = ports.Bitstream{Format: "h264"}
	case formatdetect.CodecHEVC:
		if entry.HvcC == nil {
			return fmt.Errorf("%w: hevc sample entry without hvcC", ErrUnsupportedCodec)
		}
		var units [][]byte
		for _, t := range []hevc.NaluType{hevc.NALU_VPS, hevc.NALU_SPS, hevc.NALU_PPS} {
			units = append(units, entry.HvcC.GetNalusForType(t)...)
		}
		d.paramSets = nalu.JoinAnnexB(units...)
		d.bitstream = ports.Bitstream{Format: "hevc"}
	case formatdetect.CodecAV1:
		d.bitstream = ports.Bitstream{
			Format: "ivf",
			Header: ivf.FileHeader(ivf.AV1, width, height, sampleDur, timescale, 0),
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCodec, entry.Type())
	}
	return nil
}

// videoTrack returns the first video track and its visual sample entry.
func videoTrack(moov *mp4.MoovBox) (int, *mp4.TrakBox, *mp4.VisualSampleEntryBox) {
	for i, trak := range moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
			continue
		}
		for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
			if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
				return i, trak, vse
			}
		}
	}
	return -1, nil, nil
}

func progressiveSamples(trak *mp4.TrakBox) ([]sample, error) {
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil {
		return nil, fmt.Errorf("no stsz box found")
	}
	sampleCount := stbl.Stsz.SampleNumber

	syncSamples := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, sampleNr := range stbl.Stss.SampleNumber {
			syncSamples[sampleNr] = true
		}
	}

	samples := make([]sample, 0, sampleCount)
	for sampleNr := uint32(1); sampleNr <= sampleCount; sampleNr++ {
		offset, size, err := sampleLocation(stbl, sampleNr)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", sampleNr, err)
		}

		s := sample{
			sync:   syncSamples[sampleNr] || stbl.Stss == nil,
			offset: offset,
			size:   size,
		}
		if stbl.Stts != nil {
			s.decodeTime, s.dur = stbl.Stts.GetDecodeTime(sampleNr)
		}
		if stbl.Ctts != nil {
			s.cto = stbl.Ctts.GetCompositionTimeOffset(sampleNr)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// sampleLocation returns the file offset and size of a progressive sample.
func sampleLocation(stbl *mp4.StblBox, sampleNr uint32) (int64, int, error) {
	if stbl.Stsc == nil || stbl.Stsz == nil {
		return 0, 0, fmt.Errorf("missing stsc or stsz box")
	}

	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
	if err != nil {
		return 0, 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	if stbl.Stco != nil {
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, 0, fmt.Errorf("get chunk offset: %w", err)
		}
	} else if stbl.Co64 != nil {
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, 0, fmt.Errorf("chunk nr out of range")
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	} else {
		return 0, 0, fmt.Errorf("no stco or co64 box")
	}

	offset := chunkOffset
	for s := uint32(firstSampleInChunk); s < sampleNr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}
	return int64(offset), int(stbl.Stsz.GetSampleSize(int(sampleNr))), nil
}

func fragmentedSamples(mp4File *mp4.File, moov *mp4.MoovBox, trackID uint32) ([]sample, error) {
	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var samples []sample
	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || !hasTrack(frag.Moof, trackID) {
				continue
			}

			full, err := frag.GetFullSamples(trex)
			if err != nil {
				return nil, fmt.Errorf("get samples: %w", err)
			}
			for _, fs := range full {
				samples = append(samples, sample{
					decodeTime: fs.DecodeTime,
					dur:        fs.Dur,
					cto:        fs.CompositionTimeOffset,
					sync:       fs.IsSync(),
					offset:     -1,
					size:       len(fs.Data),
					data:       fs.Data,
				})
			}
		}
	}
	return samples, nil
}

func hasTrack(moof *mp4.MoofBox, trackID uint32) bool {
	for _, traf := range moof.Trafs {
		if traf.Tfhd != nil && traf.Tfhd.TrackID == trackID {
			return true
		}
	}
	return false
}

// nominalDuration returns the most frequent sample duration.
func nominalDuration(samples []sample) uint32 {
	counts := make(map[uint32]int)
	for _, s := range samples {
		if s.dur > 0 {
			counts[s.dur]++
		}
	}
	if len(counts) == 0 {
		return 1
	}

	durs := make([]uint32, 0, len(counts))
	for dur := range counts {
		durs = append(durs, dur)
	}
	sort.Slice(durs, func(i, j int) bool {
		if counts[durs[i]] != counts[durs[j]] {
			return counts[durs[i]] > counts[durs[j]]
		}
		return durs[i] < durs[j]
	})
	return durs[0]
}

// buildIndex numbers samples in decode order. Presentation timestamps are
// expressed in frames relative to the first decode time.
func buildIndex(samples []sample, sampleDur uint32) packetindex.Index {
	var x packetindex.Index
	base := int64(samples[0].decodeTime)
	for i, s := range samples {
		presentation := int64(s.decodeTime) + int64(s.cto) - base
		loc := s.offset
		if loc < 0 {
			loc = int64(i)
		}
		x.Append(packetindex.Entry{
			DTS:      int64(i),
			PTS:      roundDiv(presentation, int64(sampleDur)),
			Duration: 1,
			Keyframe: s.sync,
			Loc:      loc,
			Size:     s.size,
			Data:     s.data,
		})
	}
	return x
}

func roundDiv(a, b int64) int64 {
	if a >= 0 {
		return (a + b/2) / b
	}
	return -((-a + b/2) / b)
}

// Info returns the metadata gathered by Open.
func (d *Demuxer) Info() *ports.MediaInfo {
	return d.info
}

// Bitstream describes the framing of the packets.
func (d *Demuxer) Bitstream() ports.Bitstream {
	return d.bitstream
}

// ReadPacket returns the next sample in decode order, or io.EOF.
func (d *Demuxer) ReadPacket() (*ports.Packet, error) {
	e, _, err := d.index.Read()
	if err != nil {
		return nil, err
	}

	data := e.Data
	if data == nil {
		data = make([]byte, e.Size)
		if _, err := d.file.ReadAt(data, e.Loc); err != nil {
			return nil, fmt.Errorf("read sample at %d: %w", e.Loc, err)
		}
	}

	return &ports.Packet{
		StreamIndex: d.stream,
		DTS:         e.DTS,
		PTS:         e.PTS,
		Duration:    e.Duration,
		Keyframe:    e.Keyframe,
		Pos:         e.Loc,
		Data:        d.frame(e, data),
	}, nil
}

func (d *Demuxer) frame(e packetindex.Entry, data []byte) []byte {
	switch d.codec {
	case formatdetect.CodecAV1:
		return ivf.Frame(e.PTS, data)
	default:
		annexB := nalu.ToAnnexB(data)
		if e.Keyframe {
			return nalu.Prepend(d.paramSets, annexB)
		}
		return annexB
	}
}

// SeekKeyframe positions at the last sync sample at or before frame target.
// Both flags address frames since decode timestamps are frame ordinals.
func (d *Demuxer) SeekKeyframe(target int64, flag ports.SeekFlag) error {
	return d.index.SeekKeyframe(target, flag)
}

// Close releases the file.
func (d *Demuxer) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

var _ ports.Demuxer = (*Demuxer)(nil)
