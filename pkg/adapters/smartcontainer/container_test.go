package smartcontainer

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/framemark/pkg/adapters/formatdetect"
	"github.com/user/framemark/pkg/ports"
)

// fakeDemuxer serves n keyframe-every-gop packets whose DTS is the ordinal.
type fakeDemuxer struct {
	n, gop int
	next   int
	width  int
	closed bool
}

func (d *fakeDemuxer) Open(string) error { return nil }

func (d *fakeDemuxer) Info() *ports.MediaInfo {
	return &ports.MediaInfo{
		FormatName: "matroska,webm",
		DurationUs: int64(d.n) * 40000,
		Streams: []ports.StreamMeta{{
			Index:     1,
			Type:      ports.MediaVideo,
			CodecName: "vp9",
			TimeBase:  ports.Rational{Num: 1, Den: 1000},
			FrameRate: ports.Rational{Num: 25, Den: 1},
			Width:     d.width,
			Height:    d.width * 3 / 4,
		}},
	}
}

func (d *fakeDemuxer) Bitstream() ports.Bitstream { return ports.Bitstream{Format: "ivf"} }

func (d *fakeDemuxer) ReadPacket() (*ports.Packet, error) {
	if d.next >= d.n {
		return nil, io.EOF
	}
	i := d.next
	d.next++
	return &ports.Packet{StreamIndex: 1, DTS: int64(i), PTS: int64(i), Keyframe: i%d.gop == 0, Data: []byte{byte(i)}}, nil
}

func (d *fakeDemuxer) SeekKeyframe(target int64, _ ports.SeekFlag) error {
	d.next = int(target) / d.gop * d.gop
	return nil
}

func (d *fakeDemuxer) Close() error {
	d.closed = true
	return nil
}

// fakeDecoder holds back delay pictures like a reordering decoder.
type fakeDecoder struct {
	delay   int
	queue   []*ports.Packet
	width   int
	height  int
	flushes int
	closed  bool
}

func (d *fakeDecoder) Start(_ ports.Bitstream, w, h int) error {
	d.width, d.height = w, h
	return nil
}

func (d *fakeDecoder) Decode(pkt *ports.Packet) (*ports.Picture, bool, error) {
	d.queue = append(d.queue, pkt)
	if len(d.queue) <= d.delay {
		return nil, false, nil
	}
	return d.pop(), true, nil
}

func (d *fakeDecoder) pop() *ports.Picture {
	p := d.queue[0]
	d.queue = d.queue[1:]
	return &ports.Picture{
		Width: d.width, Height: d.height,
		PacketDTS: p.DTS, BestEffortTimestamp: p.PTS,
		Pix: make([]byte, d.width*d.height*3),
	}
}

func (d *fakeDecoder) Drain() ([]*ports.Picture, error) {
	var out []*ports.Picture
	for len(d.queue) > 0 {
		out = append(out, d.pop())
	}
	return out, nil
}

func (d *fakeDecoder) Flush() {
	d.queue = nil
	d.flushes++
}

func (d *fakeDecoder) Close() error {
	d.closed = true
	return nil
}

type fakeProber struct {
	info *ports.MediaInfo
}

func (p fakeProber) Probe(string) (*ports.MediaInfo, error) { return p.info, nil }

func mkvFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mkv")
	require.NoError(t, os.WriteFile(path, []byte{0x1a, 0x45, 0xdf, 0xa3, 0x9f, 0x42, 0x86, 0x81}, 0o644))
	return path
}

func newTestContainer(dmx *fakeDemuxer, dec *fakeDecoder) *Container {
	return &Container{
		newDemuxer: func(kind formatdetect.Container) (ports.Demuxer, error) {
			if kind != formatdetect.ContainerMatroska {
				return nil, formatdetect.ErrUnknownContainer
			}
			return dmx, nil
		},
		newDecoder: func() ports.PictureDecoder { return dec },
	}
}

func openDecoder(t *testing.T, c *Container, path string) {
	t.Helper()
	require.NoError(t, c.OpenInput(path))
	_, err := c.FindStreamInfo()
	require.NoError(t, err)
	idx, ok := c.FirstVideoStream()
	require.True(t, ok)
	require.Equal(t, 1, idx)
	require.NoError(t, c.OpenDecoder(idx))
}

func TestReadPacket_DrainsDecoderAtEnd(t *testing.T) {
	dec := &fakeDecoder{delay: 2}
	c := newTestContainer(&fakeDemuxer{n: 5, gop: 5, width: 8}, dec)
	openDecoder(t, c, mkvFile(t))

	var dts []int64
	for {
		pkt, err := c.ReadPacket()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		pic, ok, err := c.DecodePacket(pkt)
		require.NoError(t, err)
		if ok {
			dts = append(dts, pic.PacketDTS)
		}
	}

	require.Equal(t, []int64{0, 1, 2, 3, 4}, dts)
	_, err := c.ReadPacket()
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, Info{Container: formatdetect.ContainerMatroska, Codec: "vp9", Backend: BackendFFmpeg}, c.Info())
}

func TestSeek_ClearsEndOfStream(t *testing.T) {
	dmx := &fakeDemuxer{n: 10, gop: 5, width: 8}
	c := newTestContainer(dmx, &fakeDecoder{})
	openDecoder(t, c, mkvFile(t))

	for {
		if _, err := c.ReadPacket(); err == io.EOF {
			break
		}
	}

	require.NoError(t, c.Seek(1, 7, ports.SeekFrame))
	c.FlushDecoder(1)
	pkt, err := c.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, int64(5), pkt.DTS)
	require.True(t, pkt.Keyframe)

	require.ErrorIs(t, c.Seek(0, 0, ports.SeekBackward), ErrWrongStream)
}

func TestFindStreamInfo_MergesProbe(t *testing.T) {
	c := newTestContainer(&fakeDemuxer{n: 3, gop: 3}, &fakeDecoder{})
	c.prober = fakeProber{info: &ports.MediaInfo{
		FormatName: "matroska,webm",
		BitRate:    800000,
		Tags:       map[string]string{"title": "probe"},
		Streams: []ports.StreamMeta{
			{Index: 0, Type: ports.MediaAudio},
			{Index: 1, Type: ports.MediaVideo, Width: 640, Height: 360, TimeBase: ports.Rational{Num: 1, Den: 90000}},
		},
	}}
	require.NoError(t, c.OpenInput(mkvFile(t)))

	media, err := c.FindStreamInfo()
	require.NoError(t, err)

	require.Equal(t, int64(800000), media.BitRate)
	require.Equal(t, "probe", media.Tags["title"])
	require.Len(t, media.Streams, 1)
	require.Equal(t, 640, media.Streams[0].Width)
	require.Equal(t, 360, media.Streams[0].Height)
	require.Equal(t, ports.Rational{Num: 1, Den: 1000}, media.Streams[0].TimeBase)
	require.True(t, c.Info().Probed)
}

func TestOpenDecoder_WrongStream(t *testing.T) {
	c := newTestContainer(&fakeDemuxer{n: 1, gop: 1, width: 8}, &fakeDecoder{})
	require.NoError(t, c.OpenInput(mkvFile(t)))

	require.ErrorIs(t, c.OpenDecoder(0), ErrWrongStream)
	_, _, err := c.DecodePacket(&ports.Packet{Data: []byte{1}})
	require.ErrorIs(t, err, ErrDecoderNotOpen)
}

func TestOpenInput_UnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a video at all, just some text"), 0o644))

	c := newTestContainer(&fakeDemuxer{}, &fakeDecoder{})
	require.ErrorIs(t, c.OpenInput(path), formatdetect.ErrUnknownContainer)
}

func TestConvertToRGB(t *testing.T) {
	c := &Container{}
	pic := &ports.Picture{Width: 2, Height: 1, Pix: []byte{1, 2, 3, 4, 5, 6}}

	frame, err := c.ConvertToRGB(pic)
	require.NoError(t, err)
	require.Equal(t, 6, frame.Stride)
	require.Equal(t, pic.Pix, frame.Pix)
	pic.Pix[0] = 9
	require.Equal(t, byte(1), frame.Pix[0])

	_, err = c.ConvertToRGB(&ports.Picture{Width: 2, Height: 2, Pix: []byte{1}})
	require.ErrorIs(t, err, ErrPictureSize)
}

func TestCloseInput(t *testing.T) {
	dmx := &fakeDemuxer{n: 1, gop: 1, width: 8}
	dec := &fakeDecoder{}
	c := newTestContainer(dmx, dec)
	openDecoder(t, c, mkvFile(t))

	require.NoError(t, c.CloseInput())
	require.True(t, dmx.closed)
	require.True(t, dec.closed)
	_, err := c.ReadPacket()
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestNewDemuxer(t *testing.T) {
	for _, kind := range []formatdetect.Container{formatdetect.ContainerMP4, formatdetect.ContainerMPEGTS, formatdetect.ContainerMatroska} {
		d, err := NewDemuxer(kind)
		require.NoError(t, err, kind)
		require.NotNil(t, d)
	}
	_, err := NewDemuxer(formatdetect.ContainerUnknown)
	require.ErrorIs(t, err, formatdetect.ErrUnknownContainer)
}
