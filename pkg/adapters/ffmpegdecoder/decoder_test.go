package ffmpegdecoder

import (
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/user/framemark/pkg/adapters/fftools"
	"github.com/user/framemark/pkg/adapters/tsdemux"
	"github.com/user/framemark/pkg/ports"
)

func TestStamps_DecodeOrderAndPresentationOrder(t *testing.T) {
	var s stamps
	// I P B B in decode order, presented as I B B P.
	s.push(0, 2)
	s.push(1, 5)
	s.push(2, 3)
	s.push(3, 4)

	want := [][2]int64{{0, 2}, {1, 3}, {2, 4}, {3, 5}}
	for i, w := range want {
		dts, pts := s.pop()
		if dts != w[0] || pts != w[1] {
			t.Errorf("pop %d = (%d, %d), want (%d, %d)", i, dts, pts, w[0], w[1])
		}
	}

	dts, pts := s.pop()
	if dts != ports.NoTimestamp || pts != ports.NoTimestamp {
		t.Errorf("pop on empty = (%d, %d), want NoTimestamp", dts, pts)
	}
}

func TestStamps_MissingPresentationTimestamp(t *testing.T) {
	var s stamps
	s.push(7, ports.NoTimestamp)

	dts, pts := s.pop()
	if dts != 7 || pts != ports.NoTimestamp {
		t.Errorf("pop = (%d, %d), want (7, NoTimestamp)", dts, pts)
	}
}

func TestStart_UnknownSize(t *testing.T) {
	d := New(Options{})
	if err := d.Start(ports.Bitstream{Format: "h264"}, 0, 240); !errors.Is(err, ErrUnknownSize) {
		t.Errorf("Start() error = %v, want ErrUnknownSize", err)
	}
}

func TestDecode_NotStarted(t *testing.T) {
	d := New(Options{})
	if _, _, err := d.Decode(&ports.Packet{}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Decode() error = %v, want ErrNotStarted", err)
	}
}

func TestArgs(t *testing.T) {
	d := New(Options{})
	d.bs = ports.Bitstream{Format: "hevc"}
	d.width, d.height = 320, 180

	args := d.args()
	find := func(flag string) string {
		for i := 0; i < len(args)-1; i++ {
			if args[i] == flag {
				return args[i+1]
			}
		}
		return ""
	}
	if got := find("-f"); got != "hevc" {
		t.Errorf("input format = %q, want hevc", got)
	}
	if got := find("-s"); got != "320x180" {
		t.Errorf("size = %q, want 320x180", got)
	}
	if got := find("-pix_fmt"); got != "rgb24" {
		t.Errorf("pix_fmt = %q, want rgb24", got)
	}
}

// encodeTS writes an MPEG-2 video transport stream with ffmpeg's built-in
// encoder.
func encodeTS(t *testing.T, frames int) string {
	t.Helper()
	ffmpeg, err := fftools.Find(fftools.FFmpeg)
	if err != nil {
		t.Skip("ffmpeg not available")
	}
	path := filepath.Join(t.TempDir(), "clip.ts")
	cmd := exec.Command(ffmpeg, "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=size=64x48:rate=25",
		"-frames:v", strconv.Itoa(frames), "-c:v", "mpeg2video", "-g", "5", "-bf", "0",
		"-f", "mpegts", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg could not encode test clip: %v: %s", err, out)
	}
	return path
}

func TestDecodeAndDrain(t *testing.T) {
	const frames = 12
	path := encodeTS(t, frames)

	dmx := tsdemux.New()
	if err := dmx.Open(path); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer dmx.Close()

	d := New(Options{OutputWait: 50 * time.Millisecond})
	if err := d.Start(dmx.Bitstream(), 64, 48); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Close()

	var pics []*ports.Picture
	for {
		pkt, err := dmx.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadPacket failed: %v", err)
		}
		pic, ok, err := d.Decode(pkt)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if ok {
			pics = append(pics, pic)
		}
	}
	rest, err := d.Drain()
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	pics = append(pics, rest...)

	if len(pics) != frames {
		t.Fatalf("decoded %d pictures, want %d", len(pics), frames)
	}
	for i, p := range pics {
		if len(p.Pix) != 64*48*3 {
			t.Errorf("picture %d has %d bytes", i, len(p.Pix))
		}
		if i > 0 && p.PacketDTS <= pics[i-1].PacketDTS {
			t.Errorf("picture %d DTS %d not after %d", i, p.PacketDTS, pics[i-1].PacketDTS)
		}
	}
}
