package seek

import (
	"errors"
	"testing"

	"github.com/user/framemark/pkg/adapters/logger"
	"github.com/user/framemark/pkg/mocks"
	"github.com/user/framemark/pkg/ports"
)

func openEngine(t *testing.T, c *mocks.Container, opts Options) *Engine {
	t.Helper()
	e := New(c, logger.NewNoop(), opts)
	if _, err := e.Open("synthetic.bin"); err != nil {
		t.Fatalf("open: %v", err)
	}
	return e
}

func checkFrame(t *testing.T, f *DecodedFrame, number int64) {
	t.Helper()
	if f.Number != number {
		t.Errorf("frame number: expected %d, got %d", number, f.Number)
	}
	if got := mocks.FrameIndex(f.Image); int64(got) != number {
		t.Errorf("frame content: expected frame %d, got %d", number, got)
	}
}

func TestOpen_StreamInfo(t *testing.T) {
	c := mocks.NewMpegContainer(250, 12, 90000)
	e := New(c, logger.NewNoop(), Options{})

	info, err := e.Open("clip.mpg")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if info.Format != FormatMpeg {
		t.Errorf("format: expected mpeg, got %s", info.Format)
	}
	if info.FrameRate != 25 {
		t.Errorf("frame rate: expected 25, got %v", info.FrameRate)
	}
	if info.FrameDurationMs != 40 {
		t.Errorf("frame duration: expected 40, got %v", info.FrameDurationMs)
	}
	if info.DurationMs != 10000 {
		t.Errorf("duration: expected 10000, got %d", info.DurationMs)
	}
	if info.FirstDTS != 90000 || info.StartTime != 90000 {
		t.Errorf("timestamps: expected 90000/90000, got %d/%d", info.FirstDTS, info.StartTime)
	}
	if e.FrameCount() != 250 {
		t.Errorf("frame count: expected 250, got %d", e.FrameCount())
	}
	if e.VideoLengthMs() != 10000 {
		t.Errorf("video length: expected 10000, got %d", e.VideoLengthMs())
	}

	// Open decodes the first frame without a container seek.
	f, err := e.CurrentFrame()
	if err != nil {
		t.Fatalf("current frame: %v", err)
	}
	checkFrame(t, f, 0)
	if c.SeekCount() != 0 {
		t.Errorf("expected no seek during open, got %d", c.SeekCount())
	}
}

func TestOpen_MatroskaRealFrameDuration(t *testing.T) {
	c := mocks.NewMatroskaContainer(100, 10)
	c.FrameRate = ports.Rational{Num: 50, Den: 1} // field rate reported as frame rate
	e := New(c, logger.NewNoop(), Options{})

	info, err := e.Open("clip.mkv")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if info.FrameDurationMs != 20 {
		t.Errorf("nominal duration: expected 20, got %v", info.FrameDurationMs)
	}
	if info.RealFrameDuration != 40 {
		t.Errorf("real duration: expected 40, got %v", info.RealFrameDuration)
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *mocks.Container)
		want  error
	}{
		{"no video stream", func(c *mocks.Container) { c.NoVideo = true }, ErrNoVideoStream},
		{"codec unavailable", func(c *mocks.Container) { c.OpenDecoderErr = errors.New("no decoder") }, ErrCodecUnavailable},
		{"no frames", func(c *mocks.Container) { c.Frames = 0 }, ErrNoDecodableFrame},
		{"unknown frame rate", func(c *mocks.Container) { c.FrameRate = ports.Rational{} }, ErrUnknownFrameRate},
		{"bad path", func(c *mocks.Container) { c.OpenInputErr = errMissing }, errMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mocks.NewContainer(10, 5)
			tt.setup(c)
			e := New(c, logger.NewNoop(), Options{})

			_, err := e.Open("clip.avi")
			var openErr *OpenError
			if !errors.As(err, &openErr) {
				t.Fatalf("expected OpenError, got %v", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if e.IsOpen() {
				t.Error("engine should stay closed")
			}
			if _, err := e.SeekToFrame(1); !errors.Is(err, ErrNotOpen) {
				t.Errorf("expected ErrNotOpen after failed open, got %v", err)
			}
		})
	}
}

var errMissing = errors.New("no such file")

func TestSeekToFrame_SequentialMonotonicity(t *testing.T) {
	containers := map[string]*mocks.Container{
		"generic":  mocks.NewContainer(120, 10),
		"mpeg":     mocks.NewMpegContainer(120, 12, 45000),
		"matroska": mocks.NewMatroskaContainer(120, 10),
	}

	for name, c := range containers {
		t.Run(name, func(t *testing.T) {
			e := openEngine(t, c, Options{})
			for k := int64(0); k < 100; k++ {
				f, err := e.SeekToFrame(k)
				if err != nil {
					t.Fatalf("frame %d: %v", k, err)
				}
				checkFrame(t, f, k)
			}
			if c.SeekCount() > 1 {
				t.Errorf("expected at most one container seek, got %d", c.SeekCount())
			}
		})
	}
}

func TestSeekToFrame_Idempotent(t *testing.T) {
	c := mocks.NewContainer(100, 10)
	e := openEngine(t, c, Options{})

	first, err := e.SeekToFrame(37)
	if err != nil {
		t.Fatalf("first seek: %v", err)
	}
	seeks := c.SeekCount()

	second, err := e.SeekToFrame(37)
	if err != nil {
		t.Fatalf("second seek: %v", err)
	}

	checkFrame(t, first, 37)
	checkFrame(t, second, 37)
	if first.TimeMs != 1480 || second.TimeMs != first.TimeMs {
		t.Errorf("times: expected 1480 twice, got %d and %d", first.TimeMs, second.TimeMs)
	}
	if c.SeekCount() != seeks {
		t.Errorf("re-request seeked again: %d -> %d", seeks, c.SeekCount())
	}
}

func TestSeekToFrame_WindowHitAvoidsSeek(t *testing.T) {
	c := mocks.NewContainer(100, 10)
	e := openEngine(t, c, Options{})

	if _, err := e.SeekToFrame(37); err != nil {
		t.Fatalf("seek: %v", err)
	}
	pos := e.Position()
	if pos.LastLastFrameNumber != 36 || pos.LastFrameNumber != 37 {
		t.Fatalf("window: expected [36,37], got [%d,%d]", pos.LastLastFrameNumber, pos.LastFrameNumber)
	}

	seeks := c.SeekCount()
	if _, err := e.SeekToFrame(36); err != nil {
		t.Fatalf("seek in window: %v", err)
	}
	if c.SeekCount() != seeks {
		t.Error("request inside the window must not seek")
	}
	if e.IdealFrameNumber() != 36 {
		t.Errorf("ideal frame: expected 36, got %d", e.IdealFrameNumber())
	}
}

func TestSeekToFrame_BackwardRepositions(t *testing.T) {
	t.Run("generic", func(t *testing.T) {
		c := mocks.NewContainer(100, 10)
		e := openEngine(t, c, Options{})

		if _, err := e.SeekToFrame(50); err != nil {
			t.Fatalf("seek 50: %v", err)
		}
		seeks := c.SeekCount()
		f, err := e.SeekToFrame(45)
		if err != nil {
			t.Fatalf("seek 45: %v", err)
		}
		checkFrame(t, f, 45)

		if c.SeekCount() != seeks+1 {
			t.Fatalf("expected one new seek, got %d", c.SeekCount()-seeks)
		}
		last := c.SeekCalls[len(c.SeekCalls)-1]
		if last.Flag != ports.SeekFrame || last.Target != 45 {
			t.Errorf("expected frame seek to 45, got %+v", last)
		}
	})

	t.Run("mpeg", func(t *testing.T) {
		c := mocks.NewMpegContainer(200, 12, 90000)
		e := openEngine(t, c, Options{})

		if _, err := e.SeekToFrame(150); err != nil {
			t.Fatalf("seek 150: %v", err)
		}
		f, err := e.SeekToFrame(145)
		if err != nil {
			t.Fatalf("seek 145: %v", err)
		}
		checkFrame(t, f, 145)
		if f.TimeMs != 5800 {
			t.Errorf("time: expected 5800, got %d", f.TimeMs)
		}

		last := c.SeekCalls[len(c.SeekCalls)-1]
		if last.Flag != ports.SeekBackward {
			t.Errorf("expected backward seek, got %s", last.Flag)
		}
		// (145 - 0.5 - 25) / (25/90000) + 90000
		if last.Target != 520200 {
			t.Errorf("target: expected 520200, got %d", last.Target)
		}
	})

	t.Run("mpeg clamps to first dts", func(t *testing.T) {
		c := mocks.NewMpegContainer(200, 12, 90000)
		e := openEngine(t, c, Options{})

		if _, err := e.SeekToFrame(60); err != nil {
			t.Fatalf("seek 60: %v", err)
		}
		f, err := e.SeekToFrame(5)
		if err != nil {
			t.Fatalf("seek 5: %v", err)
		}
		checkFrame(t, f, 5)
		last := c.SeekCalls[len(c.SeekCalls)-1]
		if last.Target != 90000 {
			t.Errorf("target: expected first dts 90000, got %d", last.Target)
		}
	})
}

func TestSeekToFrame_EndOfStream(t *testing.T) {
	c := mocks.NewContainer(20, 10)
	e := openEngine(t, c, Options{})

	_, err := e.SeekToFrame(25)
	var seekErr *SeekError
	if !errors.As(err, &seekErr) {
		t.Fatalf("expected SeekError, got %v", err)
	}
	if !errors.Is(err, ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream, got %v", err)
	}
	if e.Position().LastFrameOk {
		t.Error("cache must be invalid after a failed seek")
	}
	if _, err := e.CurrentFrame(); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("expected ErrNotAvailable, got %v", err)
	}

	// The engine recovers on the next request.
	f, err := e.SeekToFrame(5)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	checkFrame(t, f, 5)
}

func TestSeekNextFrame_PastLastFrame(t *testing.T) {
	c := mocks.NewContainer(20, 10)
	e := openEngine(t, c, Options{})

	if _, err := e.SeekToFrame(19); err != nil {
		t.Fatalf("seek 19: %v", err)
	}
	if _, err := e.SeekNextFrame(); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
	if e.Position().LastFrameOk {
		t.Error("cache must be invalid after a failed step")
	}
}

func TestSeekPrevFrame(t *testing.T) {
	c := mocks.NewContainer(100, 10)
	e := openEngine(t, c, Options{})

	if _, err := e.SeekToFrame(40); err != nil {
		t.Fatalf("seek 40: %v", err)
	}
	seeks := c.SeekCount()
	f, err := e.SeekPrevFrame()
	if err != nil {
		t.Fatalf("prev: %v", err)
	}
	checkFrame(t, f, 39)
	if c.SeekCount() != seeks+1 {
		t.Errorf("stepping back out of the window must seek")
	}
	if e.IdealFrameNumber() != 39 {
		t.Errorf("ideal frame: expected 39, got %d", e.IdealFrameNumber())
	}

	if _, err := e.SeekToFrame(0); err != nil {
		t.Fatalf("seek 0: %v", err)
	}
	if _, err := e.SeekPrevFrame(); !errors.Is(err, ErrFrameOutOfRange) {
		t.Errorf("expected ErrFrameOutOfRange before frame 0, got %v", err)
	}
}

func TestSeekToTimeMs(t *testing.T) {
	c := mocks.NewContainer(100, 10)
	e := openEngine(t, c, Options{})

	tests := []struct {
		ms   int64
		want int64
	}{
		{-5, 0},
		{0, 0},
		{1000, 25},
		{1019, 25},
		{1021, 26},
	}
	for _, tt := range tests {
		if got := e.FrameNumberForTime(tt.ms); got != tt.want {
			t.Errorf("FrameNumberForTime(%d): expected %d, got %d", tt.ms, tt.want, got)
		}
	}

	f, err := e.SeekToTimeMs(2000)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}
	checkFrame(t, f, 50)
	if e.CurrentFrameTimeMs() != 2000 {
		t.Errorf("time: expected 2000, got %d", e.CurrentFrameTimeMs())
	}
}

func TestMatroska_CorrectionLoopRetreats(t *testing.T) {
	c := mocks.NewMatroskaContainer(200, 10)
	c.SeekPastTarget = true
	e := openEngine(t, c, Options{})

	f, err := e.SeekToFrame(105)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}
	checkFrame(t, f, 105)
	if f.TimeMs != 4200 {
		t.Errorf("time: expected 4200, got %d", f.TimeMs)
	}

	if e.Stats().Retreats != 1 {
		t.Errorf("retreats: expected 1, got %d", e.Stats().Retreats)
	}
	targets := []int64{4200, 1200, 1200}
	if len(c.SeekCalls) != len(targets) {
		t.Fatalf("seeks: expected %d, got %+v", len(targets), c.SeekCalls)
	}
	for i, want := range targets {
		if c.SeekCalls[i].Target != want || c.SeekCalls[i].Flag != ports.SeekBackward {
			t.Errorf("seek %d: expected backward to %d, got %+v", i, want, c.SeekCalls[i])
		}
	}
}

func TestMatroska_RetreatStepIsTunable(t *testing.T) {
	c := mocks.NewMatroskaContainer(200, 10)
	c.SeekPastTarget = true
	e := openEngine(t, c, Options{MatroskaRetreat: 500})

	f, err := e.SeekToFrame(105)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}
	checkFrame(t, f, 105)
	if c.SeekCalls[1].Target != 3700 {
		t.Errorf("retreat: expected 3700, got %d", c.SeekCalls[1].Target)
	}
}

func TestMatroska_FirstEndOfStreamRetreats(t *testing.T) {
	c := mocks.NewMatroskaContainer(50, 10)
	c.SeekPastTarget = true
	e := openEngine(t, c, Options{})

	f, err := e.SeekToFrame(48)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}
	checkFrame(t, f, 48)
	if e.Stats().Retreats != 1 {
		t.Errorf("retreats: expected 1, got %d", e.Stats().Retreats)
	}
}

func TestMatroska_SecondEndOfStreamFails(t *testing.T) {
	c := mocks.NewMatroskaContainer(50, 10)
	c.SeekPastTarget = true
	e := openEngine(t, c, Options{MatroskaRetreat: 100})

	_, err := e.SeekToFrame(49)
	if !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
	var seekErr *SeekError
	if !errors.As(err, &seekErr) || seekErr.Frame != 49 {
		t.Errorf("expected SeekError for frame 49, got %v", err)
	}
	if e.Position().LastFrameOk {
		t.Error("cache must be invalid after a failed seek")
	}
}

func TestMatroska_AcceptsStartWhenFirstFrameIsLate(t *testing.T) {
	c := mocks.NewMatroskaContainer(100, 10)
	c.StartTime = 400
	e := openEngine(t, c, Options{})

	f, err := e.SeekToFrame(3)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}
	if f.Number != 10 || mocks.FrameIndex(f.Image) != 0 {
		t.Errorf("expected first frame numbered 10, got number %d content %d", f.Number, mocks.FrameIndex(f.Image))
	}
}

func TestDecoderDelayAndDrain(t *testing.T) {
	c := mocks.NewContainer(30, 10)
	c.DecoderDelay = 2
	e := openEngine(t, c, Options{})

	f, err := e.SeekToFrame(29)
	if err != nil {
		t.Fatalf("seek last frame: %v", err)
	}
	checkFrame(t, f, 29)

	f, err = e.SeekToFrame(3)
	if err != nil {
		t.Fatalf("seek 3: %v", err)
	}
	checkFrame(t, f, 3)
}

func TestCorruptPacketIsSkipped(t *testing.T) {
	c := mocks.NewContainer(30, 10)
	c.CorruptFrames = map[int]bool{5: true}
	e := openEngine(t, c, Options{})

	for k := int64(0); k < 5; k++ {
		if _, err := e.SeekToFrame(k); err != nil {
			t.Fatalf("frame %d: %v", k, err)
		}
	}

	f, err := e.SeekToFrame(5)
	if err != nil {
		t.Fatalf("frame 5: %v", err)
	}
	checkFrame(t, f, 6)

	f, err = e.SeekToFrame(6)
	if err != nil {
		t.Fatalf("frame 6: %v", err)
	}
	checkFrame(t, f, 6)

	if e.Stats().DecodeErrors != 1 {
		t.Errorf("decode errors: expected 1, got %d", e.Stats().DecodeErrors)
	}
	if c.SeekCount() != 0 {
		t.Errorf("expected no seek, got %d", c.SeekCount())
	}
}

func TestInterleavedPacketsAreIgnored(t *testing.T) {
	c := mocks.NewContainer(40, 10)
	c.AudioEvery = 3
	e := openEngine(t, c, Options{})

	for k := int64(0); k < 30; k++ {
		f, err := e.SeekToFrame(k)
		if err != nil {
			t.Fatalf("frame %d: %v", k, err)
		}
		checkFrame(t, f, k)
	}
	st := e.Stats()
	if st.PacketsRead <= st.FramesDecoded {
		t.Errorf("expected audio packets to be read, got %d packets for %d frames", st.PacketsRead, st.FramesDecoded)
	}
}

func TestSeekError_ContainerFailure(t *testing.T) {
	c := mocks.NewContainer(100, 10)
	e := openEngine(t, c, Options{})
	c.SeekErr = errors.New("io failure")

	_, err := e.SeekToFrame(50)
	var seekErr *SeekError
	if !errors.As(err, &seekErr) {
		t.Fatalf("expected SeekError, got %v", err)
	}
	if e.Position().LastFrameOk {
		t.Error("cache must be invalid after a failed seek")
	}
}

func TestCurrentFrameReturnsCopy(t *testing.T) {
	c := mocks.NewContainer(10, 5)
	e := openEngine(t, c, Options{})

	f, err := e.CurrentFrame()
	if err != nil {
		t.Fatalf("current frame: %v", err)
	}
	f.Image.Pix[0] = 0xff

	g, err := e.CurrentFrame()
	if err != nil {
		t.Fatalf("current frame: %v", err)
	}
	if g.Image.Pix[0] == 0xff {
		t.Error("caller mutation leaked into the cached frame")
	}
}

func TestClosedEngine(t *testing.T) {
	c := mocks.NewContainer(10, 5)
	e := openEngine(t, c, Options{})
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !c.Closed {
		t.Error("container not closed")
	}
	if e.CurrentFrameNumber() != -1 || e.VideoLengthMs() != -1 || e.FrameCount() != -1 {
		t.Error("accessors should report -1 when closed")
	}
	if _, err := e.CurrentFrame(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}
}

func TestParseContainerFormat(t *testing.T) {
	tests := map[string]ContainerFormat{
		"mpeg":                    FormatMpeg,
		"mpegts":                  FormatMpeg,
		"asf":                     FormatAsf,
		"matroska,webm":           FormatMatroska,
		"avi":                     FormatGeneric,
		"mov,mp4,m4a,3gp,3g2,mj2": FormatGeneric,
		"":                        FormatGeneric,
	}
	for name, want := range tests {
		if got := ParseContainerFormat(name); got != want {
			t.Errorf("ParseContainerFormat(%q): expected %s, got %s", name, want, got)
		}
	}
}
