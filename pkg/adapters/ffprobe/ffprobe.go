// Package ffprobe reads container metadata with the ffprobe executable.
package ffprobe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/user/framemark/pkg/adapters/fftools"
	"github.com/user/framemark/pkg/ports"
)

// ffprobeOutput represents the JSON output from ffprobe.
type ffprobeOutput struct {
	Format   ffprobeFormat    `json:"format"`
	Streams  []ffprobeStream  `json:"streams"`
	Programs []ffprobeProgram `json:"programs"`
	Chapters []ffprobeChapter `json:"chapters"`
}

type ffprobeFormat struct {
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	BitRate    string            `json:"bit_rate"`
	Tags       map[string]string `json:"tags"`
}

type ffprobeStream struct {
	Index         int               `json:"index"`
	CodecType     string            `json:"codec_type"`
	CodecName     string            `json:"codec_name"`
	TimeBase      string            `json:"time_base"`
	CodecTimeBase string            `json:"codec_time_base"`
	RFrameRate    string            `json:"r_frame_rate"`
	AvgFrameRate  string            `json:"avg_frame_rate"`
	StartPTS      *int64            `json:"start_pts"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	Tags          map[string]string `json:"tags"`
}

type ffprobeProgram struct {
	ProgramID int               `json:"program_id"`
	Tags      map[string]string `json:"tags"`
	Streams   []ffprobeStream   `json:"streams"`
}

type ffprobeChapter struct {
	ID        int64             `json:"id"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Tags      map[string]string `json:"tags"`
}

// Prober runs ffprobe.
type Prober struct{}

// New creates a prober. The ffprobe location follows fftools.Find.
func New() *Prober {
	return &Prober{}
}

// Available reports whether ffprobe can be found.
func Available() bool {
	return fftools.Available(fftools.FFprobe)
}

// Probe runs ffprobe on path and converts its report.
func (p *Prober) Probe(path string) (*ports.MediaInfo, error) {
	bin, err := fftools.Find(fftools.FFprobe)
	if err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd := exec.Command(bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-show_programs",
		"-show_chapters",
		path,
	)
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w\nstderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return Parse(output)
}

// Parse converts ffprobe JSON output into MediaInfo.
func Parse(data []byte) (*ports.MediaInfo, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &ports.MediaInfo{
		FormatName: out.Format.FormatName,
		DurationUs: secondsToUnits(out.Format.Duration, 1e6),
		BitRate:    parseInt(out.Format.BitRate),
		Tags:       out.Format.Tags,
	}

	for _, s := range out.Streams {
		info.Streams = append(info.Streams, convertStream(s))
	}

	for _, p := range out.Programs {
		prog := ports.Program{ID: p.ProgramID, Name: p.Tags["service_name"]}
		for _, s := range p.Streams {
			prog.Streams = append(prog.Streams, s.Index)
		}
		info.Programs = append(info.Programs, prog)
	}

	for _, c := range out.Chapters {
		info.Chapters = append(info.Chapters, ports.Chapter{
			ID:      c.ID,
			StartMs: secondsToUnits(c.StartTime, 1e3),
			EndMs:   secondsToUnits(c.EndTime, 1e3),
			Title:   c.Tags["title"],
		})
	}
	return info, nil
}

func convertStream(s ffprobeStream) ports.StreamMeta {
	meta := ports.StreamMeta{
		Index:         s.Index,
		Type:          mediaType(s.CodecType),
		CodecName:     s.CodecName,
		TimeBase:      parseRational(s.TimeBase),
		CodecTimeBase: parseRational(s.CodecTimeBase),
		FrameRate:     parseRational(s.RFrameRate),
		StartTime:     ports.NoTimestamp,
		FirstDTS:      ports.NoTimestamp,
		Width:         s.Width,
		Height:        s.Height,
		Tags:          s.Tags,
	}
	if meta.FrameRate.IsZero() {
		meta.FrameRate = parseRational(s.AvgFrameRate)
	}
	if s.StartPTS != nil {
		meta.StartTime = *s.StartPTS
	}
	return meta
}

func mediaType(codecType string) ports.MediaType {
	switch codecType {
	case "video":
		return ports.MediaVideo
	case "audio":
		return ports.MediaAudio
	default:
		return ports.MediaOther
	}
}

// parseRational parses "num/den". Malformed input yields the zero value.
func parseRational(s string) ports.Rational {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return ports.Rational{}
	}
	n, err1 := strconv.ParseInt(num, 10, 64)
	d, err2 := strconv.ParseInt(den, 10, 64)
	if err1 != nil || err2 != nil {
		return ports.Rational{}
	}
	return ports.Rational{Num: n, Den: d}
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// secondsToUnits converts a decimal seconds string to integer units.
func secondsToUnits(s string, perSecond float64) int64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(v * perSecond))
}

var _ ports.Prober = (*Prober)(nil)
