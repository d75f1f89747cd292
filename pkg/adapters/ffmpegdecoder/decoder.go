// Package ffmpegdecoder decodes a demuxed video stream with an ffmpeg
// process. The elementary stream is written to the process stdin and
// packed rgb24 pictures are read back from its stdout.
package ffmpegdecoder

import (
	"bytes"
	"container/heap"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/user/framemark/pkg/adapters/fftools"
	"github.com/user/framemark/pkg/ports"
)

var (
	// ErrNotStarted is returned when Decode is called before Start.
	ErrNotStarted = errors.New("ffmpegdecoder: decoder not started")

	// ErrUnknownSize is returned when the picture size is not known.
	ErrUnknownSize = errors.New("ffmpegdecoder: picture size unknown")

	// ErrDecodeFailed is returned when the ffmpeg process fails.
	ErrDecodeFailed = errors.New("ffmpegdecoder: decode failed")
)

// DefaultOutputWait is how long Decode waits for a picture after writing a
// packet.
const DefaultOutputWait = 20 * time.Millisecond

// Options configures the decoder.
type Options struct {
	// FFmpegPath overrides the ffmpeg location.
	FFmpegPath string
	// OutputWait bounds the wait for a picture in Decode. Zero means
	// DefaultOutputWait; negative means do not wait.
	OutputWait time.Duration
}

// Decoder implements ports.PictureDecoder.
type Decoder struct {
	opts       Options
	ffmpegPath string

	bs        ports.Bitstream
	width     int
	height    int
	started   bool
	proc      *process
	timestamp stamps
}

// New creates a decoder.
func New(opts Options) *Decoder {
	if opts.OutputWait == 0 {
		opts.OutputWait = DefaultOutputWait
	}
	return &Decoder{opts: opts}
}

// Available reports whether ffmpeg can be found.
func Available() bool {
	return fftools.Available(fftools.FFmpeg)
}

// Start prepares the decoder. The process itself starts with the first
// packet.
func (d *Decoder) Start(bs ports.Bitstream, width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrUnknownSize
	}
	if d.opts.FFmpegPath != "" {
		fftools.SetPath(fftools.FFmpeg, d.opts.FFmpegPath)
	}
	path, err := fftools.Find(fftools.FFmpeg)
	if err != nil {
		return err
	}

	d.Flush()
	d.ffmpegPath = path
	d.bs = bs
	d.width = width
	d.height = height
	d.started = true
	return nil
}

func (d *Decoder) args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-probesize", "32",
		"-analyzeduration", "0",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-f", d.bs.Format,
		"-i", "pipe:0",
		"-fps_mode", "passthrough",
		"-s", strconv.Itoa(d.width) + "x" + strconv.Itoa(d.height),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	}
}

// Decode writes one packet and returns the oldest finished picture, if any.
func (d *Decoder) Decode(pkt *ports.Packet) (*ports.Picture, bool, error) {
	if !d.started {
		return nil, false, ErrNotStarted
	}
	if d.proc == nil {
		p, err := startProcess(d.ffmpegPath, d.args(), d.width*d.height*3)
		if err != nil {
			return nil, false, err
		}
		if len(d.bs.Header) > 0 {
			if err := p.write(d.bs.Header); err != nil {
				p.kill()
				return nil, false, err
			}
		}
		d.proc = p
	}

	if err := d.proc.write(pkt.Data); err != nil {
		d.Flush()
		return nil, false, err
	}
	d.timestamp.push(pkt.DTS, pkt.PTS)

	pix, ok := d.proc.next(d.opts.OutputWait)
	if !ok {
		return nil, false, nil
	}
	return d.picture(pix), true, nil
}

// Drain closes the input of the running process and returns every picture
// it still produces. The next Decode starts a new process.
func (d *Decoder) Drain() ([]*ports.Picture, error) {
	if d.proc == nil {
		return nil, nil
	}
	p := d.proc
	d.proc = nil

	rest, err := p.finish()
	pics := make([]*ports.Picture, 0, len(rest))
	for _, pix := range rest {
		pics = append(pics, d.picture(pix))
	}
	d.timestamp.reset()
	return pics, err
}

// Flush kills the running process and forgets queued timestamps.
func (d *Decoder) Flush() {
	if d.proc != nil {
		d.proc.kill()
		d.proc = nil
	}
	d.timestamp.reset()
}

// Close stops the decoder.
func (d *Decoder) Close() error {
	d.Flush()
	d.started = false
	return nil
}

func (d *Decoder) picture(pix []byte) *ports.Picture {
	dts, pts := d.timestamp.pop()
	return &ports.Picture{
		Width:               d.width,
		Height:              d.height,
		PacketDTS:           dts,
		BestEffortTimestamp: pts,
		Pix:                 pix,
	}
}

// process is one running ffmpeg instance.
type process struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stderr    bytes.Buffer
	frameSize int

	mu      sync.Mutex
	frames  [][]byte
	readErr error
	ready   chan struct{}
	done    chan struct{}
}

func startProcess(path string, args []string, frameSize int) (*process, error) {
	p := &process{
		frameSize: frameSize,
		ready:     make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	p.cmd = exec.Command(path, args...)
	p.cmd.Stderr = &p.stderr

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	p.stdin = stdin

	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	go p.read(stdout)
	return p, nil
}

// read collects fixed size pictures until stdout closes.
func (p *process) read(stdout io.Reader) {
	defer close(p.done)
	for {
		buf := make([]byte, p.frameSize)
		if _, err := io.ReadFull(stdout, buf); err != nil {
			if !errors.Is(err, io.EOF) {
				p.mu.Lock()
				p.readErr = err
				p.mu.Unlock()
			}
			return
		}
		p.mu.Lock()
		p.frames = append(p.frames, buf)
		p.mu.Unlock()

		select {
		case p.ready <- struct{}{}:
		default:
		}
	}
}

func (p *process) write(data []byte) error {
	if _, err := p.stdin.Write(data); err != nil {
		return fmt.Errorf("%w: write packet: %v: %s", ErrDecodeFailed, err, p.stderr.String())
	}
	return nil
}

func (p *process) pop() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) == 0 {
		return nil, false
	}
	f := p.frames[0]
	p.frames = p.frames[1:]
	return f, true
}

// next returns a picture, waiting up to wait for one to arrive.
func (p *process) next(wait time.Duration) ([]byte, bool) {
	if f, ok := p.pop(); ok {
		return f, true
	}
	if wait <= 0 {
		return nil, false
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-p.ready:
	case <-p.done:
	case <-timer.C:
	}
	return p.pop()
}

// finish closes stdin, waits for the process and returns the pictures not
// yet taken.
func (p *process) finish() ([][]byte, error) {
	p.stdin.Close()
	<-p.done
	waitErr := p.cmd.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	rest := p.frames
	p.frames = nil

	if p.readErr != nil {
		return rest, fmt.Errorf("%w: read picture: %v", ErrDecodeFailed, p.readErr)
	}
	if waitErr != nil {
		return rest, fmt.Errorf("%w: %v: %s", ErrDecodeFailed, waitErr, p.stderr.String())
	}
	return rest, nil
}

func (p *process) kill() {
	p.stdin.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	<-p.done
	p.cmd.Wait()
}

// stamps pairs pictures with the packets that produced them. Decode
// timestamps leave in input order; presentation timestamps leave smallest
// first, matching the output order of a reordering decoder.
type stamps struct {
	dts []int64
	pts int64Heap
}

func (s *stamps) push(dts, pts int64) {
	s.dts = append(s.dts, dts)
	if pts != ports.NoTimestamp {
		heap.Push(&s.pts, pts)
	}
}

func (s *stamps) pop() (dts, pts int64) {
	dts, pts = ports.NoTimestamp, ports.NoTimestamp
	if len(s.dts) > 0 {
		dts = s.dts[0]
		s.dts = s.dts[1:]
	}
	if s.pts.Len() > 0 {
		pts = heap.Pop(&s.pts).(int64)
	}
	return dts, pts
}

func (s *stamps) reset() {
	s.dts = nil
	s.pts = nil
}

type int64Heap []int64

func (h int64Heap) Len() int           { return len(h) }
func (h int64Heap) Less(i, j int) bool { return h[i] < h[j] }
func (h int64Heap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *int64Heap) Push(x any)        { *h = append(*h, x.(int64)) }
func (h *int64Heap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

var _ ports.PictureDecoder = (*Decoder)(nil)
